package models

import (
	"strings"
	"time"
)

// Kind identifies which intent a code carries. Values are the stored type tags.
type Kind string

const (
	KindWebsite  Kind = "url"
	KindContact  Kind = "vcard"
	KindWiFi     Kind = "wifi"
	KindEmail    Kind = "email"
	KindSMS      Kind = "sms"
	KindPhone    Kind = "phone"
	KindSocial   Kind = "social"
	KindCalendar Kind = "calendar"
	KindLocation Kind = "location"
)

// Kinds lists every supported kind in display order.
var Kinds = []Kind{
	KindWebsite, KindContact, KindWiFi, KindEmail, KindSMS,
	KindPhone, KindSocial, KindCalendar, KindLocation,
}

var kindAliases = map[string]Kind{
	"website":        KindWebsite,
	"contact-card":   KindContact,
	"contact":        KindContact,
	"wifi-network":   KindWiFi,
	"email-message":  KindEmail,
	"text-message":   KindSMS,
	"phone-call":     KindPhone,
	"tel":            KindPhone,
	"social-profile": KindSocial,
	"calendar-event": KindCalendar,
	"event":          KindCalendar,
	"geo-location":   KindLocation,
	"geo":            KindLocation,
}

// ParseKind accepts a stored tag ("vcard") or a descriptive alias ("contact-card").
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	k, ok := kindAliases[s]
	return k, ok
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	for _, v := range Kinds {
		if v == k {
			return true
		}
	}
	return false
}

// Intent is the sealed union of everything a code can carry.
// Exactly one concrete type is active per value.
type Intent interface {
	Kind() Kind
	isIntent()
}

type Website struct {
	URL string
}

type ContactCard struct {
	FirstName string
	LastName  string
	Company   string
	JobTitle  string
	Phone     string
	Email     string
	Website   string
	Address   string
}

// WiFiSecurity is the authentication mode advertised in a WIFI: payload.
type WiFiSecurity string

const (
	SecurityWPA    WiFiSecurity = "WPA"
	SecurityWEP    WiFiSecurity = "WEP"
	SecurityNoPass WiFiSecurity = "nopass"
)

type WiFiNetwork struct {
	SSID     string
	Password string
	Security WiFiSecurity
	Hidden   bool
}

type EmailMessage struct {
	To      string
	Subject string
	Body    string
}

type TextMessage struct {
	Number  string
	Message string
}

type PhoneCall struct {
	Phone string
}

type SocialProfile struct {
	Platform string
	Username string
	// URL is used when Platform is not one of the known networks.
	URL string
}

// CalendarEvent times are absolute instants; the zero time means "not set".
type CalendarEvent struct {
	Title    string
	Start    time.Time
	End      time.Time
	Location string
}

// GeoLocation coordinates are nil when the user has not supplied them.
type GeoLocation struct {
	Latitude  *float64
	Longitude *float64
}

func (Website) Kind() Kind       { return KindWebsite }
func (ContactCard) Kind() Kind   { return KindContact }
func (WiFiNetwork) Kind() Kind   { return KindWiFi }
func (EmailMessage) Kind() Kind  { return KindEmail }
func (TextMessage) Kind() Kind   { return KindSMS }
func (PhoneCall) Kind() Kind     { return KindPhone }
func (SocialProfile) Kind() Kind { return KindSocial }
func (CalendarEvent) Kind() Kind { return KindCalendar }
func (GeoLocation) Kind() Kind   { return KindLocation }

func (Website) isIntent()       {}
func (ContactCard) isIntent()   {}
func (WiFiNetwork) isIntent()   {}
func (EmailMessage) isIntent()  {}
func (TextMessage) isIntent()   {}
func (PhoneCall) isIntent()     {}
func (SocialProfile) isIntent() {}
func (CalendarEvent) isIntent() {}
func (GeoLocation) isIntent()   {}

// Coord is a convenience for building GeoLocation literals.
func Coord(v float64) *float64 { return &v }
