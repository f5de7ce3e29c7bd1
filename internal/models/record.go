package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidRecord is returned when a record cannot be stored as given.
var ErrInvalidRecord = errors.New("invalid record")

// Record is a saved code. Content and DesignSettings hold serialized JSON so
// the payload can always be re-derived from Type + Content.
type Record struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	Name           string     `json:"name"`
	Type           Kind       `json:"type"`
	Content        string     `json:"content"`
	DesignSettings string     `json:"designSettings"`
	IsDynamic      bool       `json:"isDynamic"`
	IsActive       bool       `json:"isActive"`
	ShortURL       string     `json:"shortUrl,omitempty"`
	PasswordHash   string     `json:"passwordHash,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	MaxScans       *int       `json:"maxScans,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// NewRecordID returns a prefixed random identifier.
func NewRecordID() string { return "qr--" + uuid.New().String() }

// NewRecord builds an active record for in. Timestamps are set by the store.
func NewRecord(userID, name string, in Intent, settings RenderSettings) (*Record, error) {
	content, err := MarshalContent(ContentOf(in))
	if err != nil {
		return nil, err
	}
	design, err := MarshalSettings(settings)
	if err != nil {
		return nil, err
	}
	return &Record{
		UserID:         userID,
		Name:           name,
		Type:           in.Kind(),
		Content:        content,
		DesignSettings: design,
		IsActive:       true,
	}, nil
}

// Validate checks the invariants a store enforces before writing.
func (r *Record) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRecord)
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidRecord, r.Type)
	}
	if _, err := UnmarshalContent(r.Content); err != nil {
		return fmt.Errorf("%w: content: %v", ErrInvalidRecord, err)
	}
	if _, err := UnmarshalSettings(r.DesignSettings); err != nil {
		return fmt.Errorf("%w: designSettings: %v", ErrInvalidRecord, err)
	}
	if r.MaxScans != nil && *r.MaxScans < 0 {
		return fmt.Errorf("%w: maxScans must not be negative", ErrInvalidRecord)
	}
	return nil
}

// ParsedContent decodes the stored content bag.
func (r *Record) ParsedContent() (Content, error) { return UnmarshalContent(r.Content) }

// Settings decodes the stored design settings.
func (r *Record) Settings() (RenderSettings, error) { return UnmarshalSettings(r.DesignSettings) }

// Intent re-derives the intent from the stored type and content.
func (r *Record) Intent(loc *time.Location) (Intent, error) {
	c, err := r.ParsedContent()
	if err != nil {
		return nil, err
	}
	return c.Intent(r.Type, loc), nil
}

// Expired reports whether the record has an expiry in the past.
func (r *Record) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !r.ExpiresAt.After(now)
}
