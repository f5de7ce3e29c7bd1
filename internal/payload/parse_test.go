package payload

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrylevesque/qrgen/internal/models"
)

func TestParseInvertsEncode(t *testing.T) {
	intents := []models.Intent{
		models.Website{URL: "https://example.com/path?q=1"},
		models.ContactCard{FirstName: "Ada", LastName: "Lovelace", Company: "Analytical Engines",
			JobTitle: "Programmer", Phone: "+44 20 0000", Email: "ada@example.com", Website: "https://ada.dev", Address: "12 St James Square"},
		models.WiFiNetwork{SSID: "Home", Password: "secret1", Security: models.SecurityWPA},
		models.WiFiNetwork{SSID: "Guest", Security: models.SecurityNoPass, Hidden: true},
		models.EmailMessage{To: "ada@example.com", Subject: "Fish & Chips?", Body: "see you at 8"},
		models.TextMessage{Number: "+15550100", Message: "running late & sorry"},
		models.PhoneCall{Phone: "+1-555-0100"},
		models.SocialProfile{Platform: "twitter", Username: "ada"},
		models.SocialProfile{Platform: "youtube", Username: "ada"},
		models.CalendarEvent{Title: "Standup", Location: "Room 4",
			Start: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), End: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)},
		models.GeoLocation{Latitude: models.Coord(37.7749), Longitude: models.Coord(-122.4194)},
	}
	for _, in := range intents {
		t.Run(string(in.Kind()), func(t *testing.T) {
			got, err := Parse(Encode(in))
			require.NoError(t, err)
			assert.Equal(t, in, got)
		})
	}
}

func TestParseUnescapesStructuredValues(t *testing.T) {
	w := models.WiFiNetwork{SSID: `My;Net,work`, Password: `p:a\ss`, Security: models.SecurityWPA}
	got, err := Parse(Encode(w))
	require.NoError(t, err)
	assert.Equal(t, w, got)

	ev := models.CalendarEvent{Title: "Retro; part 2", Location: "Room 4, floor 2"}
	got, err = Parse(Encode(ev))
	require.NoError(t, err)
	assert.Equal(t, ev, got)
}

func TestParseOtherConventions(t *testing.T) {
	got, err := Parse("SMSTO:+15550100:hello there")
	require.NoError(t, err)
	assert.Equal(t, models.TextMessage{Number: "+15550100", Message: "hello there"}, got)

	got, err = Parse("geo:1.5,2.25;u=35")
	require.NoError(t, err)
	assert.Equal(t, models.GeoLocation{Latitude: models.Coord(1.5), Longitude: models.Coord(2.25)}, got)

	got, err = Parse("https://instagram.com/ada/posts")
	require.NoError(t, err)
	assert.Equal(t, models.Website{URL: "https://instagram.com/ada/posts"}, got)
}

func TestParseMalformed(t *testing.T) {
	for _, text := range []string{
		"geo:north,south",
		"geo:12",
		"WIFI:T:WPA;P:x;;",
		"BEGIN:VCALENDAR\nVERSION:2.0\nEND:VCALENDAR",
		"BEGIN:VCALENDAR\nBEGIN:VEVENT\nDTSTART:soon\nEND:VEVENT\nEND:VCALENDAR",
	} {
		_, err := Parse(text)
		assert.ErrorIs(t, err, ErrMalformed, text)
	}
}
