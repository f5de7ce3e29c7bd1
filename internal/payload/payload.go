// Package payload turns intents into the exact text a QR symbol carries,
// and classifies scanned text back into intents.
package payload

import (
	"strings"
	"time"

	"github.com/harrylevesque/qrgen/internal/models"
)

// Encode returns the payload for in. It never fails: missing fields become
// empty values and an unusable intent yields a degenerate (possibly empty)
// payload, so a live preview always has something to show.
func Encode(in models.Intent) string {
	switch v := in.(type) {
	case models.Website:
		return v.URL
	case models.ContactCard:
		return encodeContact(v)
	case models.WiFiNetwork:
		return encodeWiFi(v)
	case models.EmailMessage:
		return encodeEmail(v)
	case models.TextMessage:
		return encodeSMS(v)
	case models.PhoneCall:
		return "tel:" + v.Phone
	case models.SocialProfile:
		return encodeSocial(v)
	case models.CalendarEvent:
		return encodeCalendar(v)
	case models.GeoLocation:
		return encodeGeo(v)
	default:
		return ""
	}
}

// EncodeContent routes a stored field bag. Calendar input without a zone is
// interpreted in loc.
func EncodeContent(kind models.Kind, c models.Content, loc *time.Location) string {
	return Encode(c.Intent(kind, loc))
}

// EncodeRecord re-derives the payload of a stored record.
func EncodeRecord(r *models.Record, loc *time.Location) (string, error) {
	in, err := r.Intent(loc)
	if err != nil {
		return "", err
	}
	return Encode(in), nil
}

func encodeContact(c models.ContactCard) string {
	name := strings.TrimSpace(escapeText(c.FirstName) + " " + escapeText(c.LastName))
	lines := []string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		"FN:" + name,
		"ORG:" + escapeText(c.Company),
		"TITLE:" + escapeText(c.JobTitle),
		"TEL:" + escapeText(c.Phone),
		"EMAIL:" + escapeText(c.Email),
		"URL:" + escapeText(c.Website),
		"ADR:;;" + escapeText(c.Address) + ";;;;",
		"END:VCARD",
	}
	return strings.Join(lines, "\n")
}

// icalTime is the UTC basic format with all punctuation removed.
const icalTime = "20060102T150405Z"

func formatICalTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(icalTime)
}

func encodeCalendar(e models.CalendarEvent) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"BEGIN:VEVENT",
		"SUMMARY:" + escapeText(e.Title),
		"DTSTART:" + formatICalTime(e.Start),
		"DTEND:" + formatICalTime(e.End),
		"LOCATION:" + escapeText(e.Location),
		"END:VEVENT",
		"END:VCALENDAR",
	}
	return strings.Join(lines, "\n")
}
