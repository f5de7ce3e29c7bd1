package payload

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-vcard"

	"github.com/harrylevesque/qrgen/internal/models"
)

// ErrMalformed is returned when text claims a structured format but breaks its grammar.
var ErrMalformed = errors.New("malformed payload")

// Parse classifies scanned text. Text that matches no known scheme is a Website.
func Parse(text string) (models.Intent, error) {
	switch {
	case hasPrefixFold(text, "BEGIN:VCARD"):
		return parseContact(text)
	case hasPrefixFold(text, "BEGIN:VCALENDAR"), hasPrefixFold(text, "BEGIN:VEVENT"):
		return parseCalendar(text)
	case hasPrefixFold(text, "WIFI:"):
		return parseWiFi(text[len("WIFI:"):])
	case hasPrefixFold(text, "mailto:"):
		return parseEmail(text)
	case hasPrefixFold(text, "smsto:"):
		number, msg, _ := strings.Cut(text[len("smsto:"):], ":")
		return models.TextMessage{Number: number, Message: msg}, nil
	case hasPrefixFold(text, "sms:"):
		return parseSMS(text)
	case hasPrefixFold(text, "tel:"):
		return models.PhoneCall{Phone: text[len("tel:"):]}, nil
	case hasPrefixFold(text, "geo:"):
		return parseGeo(text[len("geo:"):])
	}
	if p, ok := parseSocial(text); ok {
		return p, nil
	}
	return models.Website{URL: text}, nil
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func parseContact(text string) (models.Intent, error) {
	card, err := vcard.NewDecoder(strings.NewReader(text)).Decode()
	if err != nil {
		return nil, fmt.Errorf("%w: vcard: %v", ErrMalformed, err)
	}
	first, last, _ := strings.Cut(cardValue(card, vcard.FieldFormattedName), " ")
	c := models.ContactCard{
		FirstName: first,
		LastName:  last,
		Company:   cardValue(card, vcard.FieldOrganization),
		JobTitle:  cardValue(card, vcard.FieldTitle),
		Phone:     cardValue(card, vcard.FieldTelephone),
		Email:     cardValue(card, vcard.FieldEmail),
		Website:   cardValue(card, vcard.FieldURL),
	}
	if f := card.Get(vcard.FieldAddress); f != nil {
		parts := splitEscaped(f.Value, ';')
		if len(parts) > 2 {
			c.Address = unescapeSemicolons(parts[2])
		}
	}
	return c, nil
}

// go-vcard already resolves \\, \n and \, so only \; is left to undo.
func cardValue(card vcard.Card, key string) string {
	f := card.Get(key)
	if f == nil {
		return ""
	}
	return unescapeSemicolons(f.Value)
}

func unescapeSemicolons(s string) string { return strings.ReplaceAll(s, `\;`, ";") }

func parseCalendar(text string) (models.Intent, error) {
	var (
		ev      models.CalendarEvent
		inEvent bool
	)
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key, _, _ = strings.Cut(strings.ToUpper(key), ";")
		switch key {
		case "BEGIN":
			if strings.EqualFold(value, "VEVENT") {
				inEvent = true
			}
		case "SUMMARY":
			ev.Title = unescapeBackslash(value)
		case "LOCATION":
			ev.Location = unescapeBackslash(value)
		case "DTSTART", "DTEND":
			t, err := parseICalTime(value)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
			}
			if key == "DTSTART" {
				ev.Start = t
			} else {
				ev.End = t
			}
		}
	}
	if !inEvent {
		return nil, fmt.Errorf("%w: no VEVENT", ErrMalformed)
	}
	return ev, nil
}

func parseICalTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{icalTime, "20060102T150405", "20060102"} {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad date-time %q", v)
}

func parseWiFi(body string) (models.Intent, error) {
	var (
		w    models.WiFiNetwork
		seen bool
	)
	for _, part := range splitEscaped(body, ';') {
		if len(part) < 2 || part[1] != ':' {
			continue
		}
		value := unescapeBackslash(part[2:])
		switch part[0] {
		case 'T', 't':
			w.Security = models.WiFiSecurity(value)
		case 'S', 's':
			w.SSID = value
			seen = true
		case 'P', 'p':
			w.Password = value
		case 'H', 'h':
			w.Hidden = strings.EqualFold(value, "true")
		}
	}
	if !seen {
		return nil, fmt.Errorf("%w: wifi payload without SSID", ErrMalformed)
	}
	return w, nil
}

func parseEmail(text string) (models.Intent, error) {
	u, err := url.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	q := u.Query()
	return models.EmailMessage{To: u.Opaque, Subject: q.Get("subject"), Body: q.Get("body")}, nil
}

func parseSMS(text string) (models.Intent, error) {
	u, err := url.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return models.TextMessage{Number: u.Opaque, Message: u.Query().Get("body")}, nil
}

func parseGeo(body string) (models.Intent, error) {
	if i := strings.IndexAny(body, ";?"); i >= 0 {
		body = body[:i]
	}
	latText, lonText, ok := strings.Cut(body, ",")
	if !ok {
		return nil, fmt.Errorf("%w: geo needs latitude,longitude", ErrMalformed)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latText), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: latitude: %v", ErrMalformed, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonText), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: longitude: %v", ErrMalformed, err)
	}
	return models.GeoLocation{Latitude: &lat, Longitude: &lon}, nil
}

func parseSocial(text string) (models.SocialProfile, bool) {
	for _, platform := range Platforms() {
		base := profileBases[platform]
		if !strings.HasPrefix(text, base) {
			continue
		}
		user := text[len(base):]
		if user == "" || strings.ContainsAny(user, "/?#") {
			return models.SocialProfile{}, false
		}
		return models.SocialProfile{Platform: platform, Username: user}, true
	}
	return models.SocialProfile{}, false
}
