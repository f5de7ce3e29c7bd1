package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Content is the form-shaped field bag persisted as a record's "content".
// It may carry fields of several kinds at once; Intent projects it onto one.
type Content struct {
	URL         string `json:"url,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Company   string `json:"company,omitempty"`
	JobTitle  string `json:"jobTitle,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Website   string `json:"website,omitempty"`
	Address   string `json:"address,omitempty"`

	SSID     string `json:"ssid,omitempty"`
	Password string `json:"password,omitempty"`
	Security string `json:"security,omitempty"`
	Hidden   bool   `json:"hidden,omitempty"`

	To      string `json:"to,omitempty"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`

	Number  string `json:"number,omitempty"`
	Message string `json:"message,omitempty"`

	Platform string `json:"platform,omitempty"`
	Username string `json:"username,omitempty"`

	EventTitle string `json:"eventTitle,omitempty"`
	StartDate  string `json:"startDate,omitempty"`
	EndDate    string `json:"endDate,omitempty"`
	Location   string `json:"location,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Layouts accepted for calendar input, tried in order. The first two are what
// a datetime-local form control submits.
var dateLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02",
}

// utcBasicLayout is the iCalendar basic form. Its trailing Z is a literal in
// Go layouts, so it is parsed in UTC rather than in the caller's zone.
const utcBasicLayout = "20060102T150405Z"

// ParseDate reads a calendar timestamp. Inputs without a zone are wall-clock
// times in loc. Empty or unparseable input yields the zero time.
func ParseDate(s string, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(utcBasicLayout, s, time.UTC); err == nil {
		return t
	}
	return time.Time{}
}

// Intent projects the bag onto the variant for kind. Unknown kinds
// degrade to a Website built from the url field.
func (c Content) Intent(kind Kind, loc *time.Location) Intent {
	switch kind {
	case KindWebsite:
		return Website{URL: c.URL}
	case KindContact:
		return ContactCard{
			FirstName: c.FirstName,
			LastName:  c.LastName,
			Company:   c.Company,
			JobTitle:  c.JobTitle,
			Phone:     c.Phone,
			Email:     c.Email,
			Website:   c.Website,
			Address:   c.Address,
		}
	case KindWiFi:
		return WiFiNetwork{SSID: c.SSID, Password: c.Password, Security: WiFiSecurity(c.Security), Hidden: c.Hidden}
	case KindEmail:
		return EmailMessage{To: c.To, Subject: c.Subject, Body: c.Body}
	case KindSMS:
		return TextMessage{Number: c.Number, Message: c.Message}
	case KindPhone:
		return PhoneCall{Phone: c.Phone}
	case KindSocial:
		return SocialProfile{Platform: c.Platform, Username: c.Username, URL: c.URL}
	case KindCalendar:
		return CalendarEvent{
			Title:    c.EventTitle,
			Start:    ParseDate(c.StartDate, loc),
			End:      ParseDate(c.EndDate, loc),
			Location: c.Location,
		}
	case KindLocation:
		return GeoLocation{Latitude: copyFloat(c.Latitude), Longitude: copyFloat(c.Longitude)}
	default:
		return Website{URL: c.URL}
	}
}

// ContentOf is the inverse of Content.Intent. Calendar times are written in
// RFC 3339 so they survive a round trip regardless of the reader's zone.
func ContentOf(in Intent) Content {
	switch v := in.(type) {
	case Website:
		return Content{URL: v.URL}
	case ContactCard:
		return Content{
			FirstName: v.FirstName,
			LastName:  v.LastName,
			Company:   v.Company,
			JobTitle:  v.JobTitle,
			Phone:     v.Phone,
			Email:     v.Email,
			Website:   v.Website,
			Address:   v.Address,
		}
	case WiFiNetwork:
		return Content{SSID: v.SSID, Password: v.Password, Security: string(v.Security), Hidden: v.Hidden}
	case EmailMessage:
		return Content{To: v.To, Subject: v.Subject, Body: v.Body}
	case TextMessage:
		return Content{Number: v.Number, Message: v.Message}
	case PhoneCall:
		return Content{Phone: v.Phone}
	case SocialProfile:
		return Content{Platform: v.Platform, Username: v.Username, URL: v.URL}
	case CalendarEvent:
		return Content{
			EventTitle: v.Title,
			StartDate:  formatDate(v.Start),
			EndDate:    formatDate(v.End),
			Location:   v.Location,
		}
	case GeoLocation:
		return Content{Latitude: copyFloat(v.Latitude), Longitude: copyFloat(v.Longitude)}
	default:
		return Content{}
	}
}

// Normalize rewrites calendar dates as RFC 3339 so a stored bag no longer
// depends on the zone it is read in. Other fields are kept as given.
func (c Content) Normalize(kind Kind, loc *time.Location) Content {
	if kind != KindCalendar {
		return c
	}
	c.StartDate = formatDate(ParseDate(c.StartDate, loc))
	c.EndDate = formatDate(ParseDate(c.EndDate, loc))
	return c
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Set assigns one field by its JSON key from a text value.
func (c *Content) Set(key, value string) error {
	switch key {
	case "url":
		c.URL = value
	case "title":
		c.Title = value
	case "description":
		c.Description = value
	case "firstName":
		c.FirstName = value
	case "lastName":
		c.LastName = value
	case "company":
		c.Company = value
	case "jobTitle":
		c.JobTitle = value
	case "phone":
		c.Phone = value
	case "email":
		c.Email = value
	case "website":
		c.Website = value
	case "address":
		c.Address = value
	case "ssid":
		c.SSID = value
	case "password":
		c.Password = value
	case "security":
		c.Security = value
	case "hidden":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("hidden: %w", err)
		}
		c.Hidden = b
	case "to":
		c.To = value
	case "subject":
		c.Subject = value
	case "body":
		c.Body = value
	case "number":
		c.Number = value
	case "message":
		c.Message = value
	case "platform":
		c.Platform = value
	case "username":
		c.Username = value
	case "eventTitle":
		c.EventTitle = value
	case "startDate":
		c.StartDate = value
	case "endDate":
		c.EndDate = value
	case "location":
		c.Location = value
	case "latitude", "longitude":
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if key == "latitude" {
			c.Latitude = &f
		} else {
			c.Longitude = &f
		}
	default:
		return fmt.Errorf("unknown content field %q", key)
	}
	return nil
}

// MarshalContent serializes c for storage.
func MarshalContent(c Content) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalContent parses stored content. Empty input is an empty bag.
func UnmarshalContent(s string) (Content, error) {
	var c Content
	if strings.TrimSpace(s) == "" {
		return c, nil
	}
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return Content{}, err
	}
	return c, nil
}
