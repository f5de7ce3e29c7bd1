package files

import (
	"bytes"
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrylevesque/qrgen/internal/config"
	"github.com/harrylevesque/qrgen/internal/crypto"
	"github.com/harrylevesque/qrgen/internal/metrics"
	"github.com/harrylevesque/qrgen/internal/models"
	"github.com/harrylevesque/qrgen/internal/payload"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newClock() *clock { return &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)} }

func backends(t *testing.T) map[string]func(t *testing.T) RecordStore {
	return map[string]func(t *testing.T) RecordStore{
		"file": func(t *testing.T) RecordStore {
			s, err := NewFileStore(t.TempDir(), nil)
			require.NoError(t, err)
			s.now = newClock().now
			return s
		},
		"sealed-file": func(t *testing.T) RecordStore {
			s, err := NewFileStore(t.TempDir(), bytes.Repeat([]byte{9}, 32))
			require.NoError(t, err)
			s.now = newClock().now
			return s
		},
		"sqlite": func(t *testing.T) RecordStore {
			s, err := OpenSQLite(":memory:")
			require.NoError(t, err)
			s.now = newClock().now
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func record(t *testing.T, user, name string, in models.Intent) *models.Record {
	t.Helper()
	r, err := models.NewRecord(user, name, in, models.DefaultRenderSettings())
	require.NoError(t, err)
	return r
}

func TestRecordStoreCRUD(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			wifi := record(t, "u1", "Office WiFi", models.WiFiNetwork{SSID: "Office", Password: "pw", Security: models.SecurityWPA})
			require.NoError(t, s.Create(ctx, wifi))
			assert.NotEmpty(t, wifi.ID)
			assert.False(t, wifi.CreatedAt.IsZero())
			assert.True(t, wifi.IsActive)

			got, err := s.Get(ctx, wifi.ID)
			require.NoError(t, err)
			assert.Equal(t, wifi.Name, got.Name)
			assert.Equal(t, models.KindWiFi, got.Type)
			assert.True(t, wifi.CreatedAt.Equal(got.CreatedAt))

			stored, err := payload.EncodeRecord(got, time.UTC)
			require.NoError(t, err)
			assert.Equal(t, "WIFI:T:WPA;S:Office;P:pw;H:false;;", stored)

			got.Name = "Guest WiFi"
			limit := 10
			got.MaxScans = &limit
			require.NoError(t, s.Update(ctx, got))
			assert.True(t, got.UpdatedAt.After(got.CreatedAt))

			again, err := s.Get(ctx, wifi.ID)
			require.NoError(t, err)
			assert.Equal(t, "Guest WiFi", again.Name)
			require.NotNil(t, again.MaxScans)
			assert.Equal(t, 10, *again.MaxScans)

			toggled, err := s.SetActive(ctx, wifi.ID, false)
			require.NoError(t, err)
			assert.False(t, toggled.IsActive)

			require.NoError(t, s.Delete(ctx, wifi.ID))
			_, err = s.Get(ctx, wifi.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.Delete(ctx, wifi.ID), ErrNotFound)
			_, err = s.SetActive(ctx, wifi.ID, true)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.Update(ctx, wifi), ErrNotFound)
		})
	}
}

func TestRecordStoreValidation(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			bad := record(t, "u1", " ", models.Website{URL: "https://example.com"})
			assert.ErrorIs(t, s.Create(ctx, bad), models.ErrInvalidRecord)

			bad = record(t, "u1", "x", models.Website{URL: "https://example.com"})
			bad.Content = "{not json"
			assert.ErrorIs(t, s.Create(ctx, bad), models.ErrInvalidRecord)

			ok := record(t, "u1", "site", models.Website{URL: "https://example.com"})
			require.NoError(t, s.Create(ctx, ok))
			dup := record(t, "u1", "site", models.Website{URL: "https://example.com"})
			dup.ID = ok.ID
			assert.ErrorIs(t, s.Create(ctx, dup), ErrExists)

			ok.Type = "fax"
			assert.ErrorIs(t, s.Update(ctx, ok), models.ErrInvalidRecord)
		})
	}
}

func TestRecordStoreList(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			site := record(t, "u1", "Homepage", models.Website{URL: "https://example.com"})
			call := record(t, "u1", "Support line", models.PhoneCall{Phone: "+1-555-0100"})
			wifi := record(t, "u1", "100%_WiFi", models.WiFiNetwork{SSID: "x"})
			other := record(t, "u2", "Homepage", models.Website{URL: "https://other.example"})
			for _, r := range []*models.Record{site, call, wifi, other} {
				require.NoError(t, s.Create(ctx, r))
			}
			_, err := s.SetActive(ctx, call.ID, false)
			require.NoError(t, err)

			all, err := s.List(ctx, Filter{UserID: "u1"})
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, []string{wifi.ID, call.ID, site.ID}, ids(all))

			byKind, err := s.List(ctx, Filter{UserID: "u1", Kind: models.KindPhone})
			require.NoError(t, err)
			assert.Equal(t, []string{call.ID}, ids(byKind))

			active, err := s.List(ctx, Filter{UserID: "u1", ActiveOnly: true})
			require.NoError(t, err)
			assert.Equal(t, []string{wifi.ID, site.ID}, ids(active))

			search, err := s.List(ctx, Filter{Search: "HOME"})
			require.NoError(t, err)
			assert.Equal(t, []string{other.ID, site.ID}, ids(search))

			byType, err := s.List(ctx, Filter{UserID: "u1", Search: "phone"})
			require.NoError(t, err)
			assert.Equal(t, []string{call.ID}, ids(byType))

			literal, err := s.List(ctx, Filter{Search: "0%_"})
			require.NoError(t, err)
			assert.Equal(t, []string{wifi.ID}, ids(literal))

			none, err := s.List(ctx, Filter{UserID: "nobody"})
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestDynamicRecordsGetShortCode(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			r := record(t, "u1", "dyn", models.Website{URL: "https://example.com"})
			r.IsDynamic = true
			require.NoError(t, s.Create(ctx, r))
			assert.Len(t, r.ShortURL, 16)

			static := record(t, "u1", "static", models.Website{URL: "https://example.com"})
			require.NoError(t, s.Create(ctx, static))
			assert.Empty(t, static.ShortURL)

			static.IsDynamic = true
			require.NoError(t, s.Update(ctx, static))
			assert.NotEmpty(t, static.ShortURL)
		})
	}
}

func ids(rs []*models.Record) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestFileStorePersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	key := bytes.Repeat([]byte{3}, 32)

	s, err := NewFileStore(dir, key)
	require.NoError(t, err)
	r := record(t, "u1", "Menu", models.Website{URL: "https://example.com/menu"})
	require.NoError(t, s.Create(ctx, r))

	raw, err := os.ReadFile(filepath.Join(dir, sealedRecordsFile))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "example.com")

	reopened, err := NewFileStore(dir, key)
	require.NoError(t, err)
	got, err := reopened.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.Content, got.Content)

	_, err = NewFileStore(dir, bytes.Repeat([]byte{4}, 32))
	assert.Error(t, err)

	_, err = NewFileStore(dir, []byte("short"))
	assert.ErrorIs(t, err, crypto.ErrInvalidKeyLength)
}

func TestFileStorePlainDocument(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, record(t, "u1", "Call", models.PhoneCall{Phone: "+1"})))

	raw, err := os.ReadFile(filepath.Join(dir, recordsFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"name": "Call"`)
	assert.Contains(t, string(raw), `"type": "phone"`)
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)
	r := record(t, "u1", "a", models.PhoneCall{Phone: "+1"})
	require.NoError(t, s.Create(ctx, r))

	got, err := s.Get(ctx, r.ID)
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := s.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", again.Name)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	m := metrics.MustNewMetrics(prometheus.NewRegistry())

	s, err := Open(config.StoreConfig{Backend: "sqlite", Path: t.TempDir()}, m)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, record(t, "u1", "a", models.PhoneCall{Phone: "+1"})))
	require.NoError(t, s.Close())

	s, err = Open(config.StoreConfig{Backend: "file", Path: t.TempDir()}, nil)
	require.NoError(t, err)
	_, ok := s.(*FileStore)
	assert.True(t, ok)

	t.Setenv(crypto.MasterKeyEnv, hex.EncodeToString(bytes.Repeat([]byte{1}, 32)))
	s, err = Open(config.StoreConfig{Backend: "file", Path: t.TempDir(), Encrypt: true}, m)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, record(t, "u1", "b", models.PhoneCall{Phone: "+1"})))

	t.Setenv(crypto.MasterKeyEnv, "bad")
	_, err = Open(config.StoreConfig{Backend: "file", Path: t.TempDir(), Encrypt: true}, m)
	assert.Error(t, err)

	_, err = Open(config.StoreConfig{Backend: "redis"}, m)
	assert.Error(t, err)
}
