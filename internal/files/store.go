package files

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harrylevesque/qrgen/internal/crypto"
	"github.com/harrylevesque/qrgen/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrExists   = errors.New("record already exists")
)

// RecordStore persists saved codes. Implementations are safe for concurrent use.
type RecordStore interface {
	Create(ctx context.Context, r *models.Record) error
	Get(ctx context.Context, id string) (*models.Record, error)
	// List returns matching records, newest first.
	List(ctx context.Context, f Filter) ([]*models.Record, error)
	// Update replaces the editable fields of an existing record.
	Update(ctx context.Context, r *models.Record) error
	SetActive(ctx context.Context, id string, active bool) (*models.Record, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	UserID string
	Kind   models.Kind
	// Search matches name or type, case-insensitively.
	Search     string
	ActiveOnly bool
}

func (f Filter) Match(r *models.Record) bool {
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	if f.Kind != "" && r.Type != f.Kind {
		return false
	}
	if f.ActiveOnly && !r.IsActive {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(r.Name), q) && !strings.Contains(strings.ToLower(string(r.Type)), q) {
			return false
		}
	}
	return true
}

// prepareCreate validates r and fills the fields a store owns.
func prepareCreate(r *models.Record, now time.Time) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = models.NewRecordID()
	}
	if r.IsDynamic && r.ShortURL == "" {
		r.ShortURL = crypto.NewShortCode()
	}
	now = now.UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

// applyUpdate copies the editable fields of in onto existing.
func applyUpdate(existing, in *models.Record, now time.Time) error {
	if err := in.Validate(); err != nil {
		return err
	}
	existing.Name = in.Name
	existing.Type = in.Type
	existing.Content = in.Content
	existing.DesignSettings = in.DesignSettings
	existing.IsDynamic = in.IsDynamic
	existing.IsActive = in.IsActive
	existing.PasswordHash = in.PasswordHash
	existing.ExpiresAt = in.ExpiresAt
	existing.MaxScans = in.MaxScans
	if in.ShortURL != "" {
		existing.ShortURL = in.ShortURL
	}
	if existing.IsDynamic && existing.ShortURL == "" {
		existing.ShortURL = crypto.NewShortCode()
	}
	existing.UpdatedAt = now.UTC()
	return nil
}

func sortNewestFirst(rs []*models.Record) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.After(rs[j].CreatedAt)
		}
		return rs[i].ID < rs[j].ID
	})
}

func clone(r *models.Record) *models.Record {
	c := *r
	if r.ExpiresAt != nil {
		t := *r.ExpiresAt
		c.ExpiresAt = &t
	}
	if r.MaxScans != nil {
		n := *r.MaxScans
		c.MaxScans = &n
	}
	return &c
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
