// Package files holds the record stores: a JSON document on disk, optionally
// sealed with a key derived from the master key, and a SQLite database.
package files

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	logging "github.com/ipfs/go-log/v2"

	"github.com/harrylevesque/qrgen/internal/config"
	"github.com/harrylevesque/qrgen/internal/metrics"
	"github.com/harrylevesque/qrgen/internal/models"
)

var log = logging.Logger("qrgen/files")

// Open builds the backend selected by cfg.
func Open(cfg config.StoreConfig, m *metrics.Metrics) (RecordStore, error) {
	var (
		store RecordStore
		err   error
	)
	switch cfg.Backend {
	case "", "file":
		var key []byte
		if cfg.Encrypt {
			if key, err = LoadRecordKey(); err != nil {
				return nil, err
			}
		}
		store, err = NewFileStore(cfg.Path, key)
		if err == nil {
			log.Infow("file record store opened", "path", store.(*FileStore).Path(), "encrypted", key != nil)
		}
	case "sqlite":
		path := cfg.Path
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "records.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
		store, err = OpenSQLite(path)
		if err == nil {
			log.Infow("sqlite record store opened", "path", path)
		}
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return Instrument(store, m), nil
}

// Instrument counts every operation of store in m.
func Instrument(store RecordStore, m *metrics.Metrics) RecordStore {
	if m == nil {
		return store
	}
	return &instrumented{next: store, m: m}
}

type instrumented struct {
	next RecordStore
	m    *metrics.Metrics
}

func (s *instrumented) Create(ctx context.Context, r *models.Record) error {
	err := s.next.Create(ctx, r)
	s.m.IncRecordOp("create", err)
	return err
}

func (s *instrumented) Get(ctx context.Context, id string) (*models.Record, error) {
	r, err := s.next.Get(ctx, id)
	s.m.IncRecordOp("get", err)
	return r, err
}

func (s *instrumented) List(ctx context.Context, f Filter) ([]*models.Record, error) {
	rs, err := s.next.List(ctx, f)
	s.m.IncRecordOp("list", err)
	return rs, err
}

func (s *instrumented) Update(ctx context.Context, r *models.Record) error {
	err := s.next.Update(ctx, r)
	s.m.IncRecordOp("update", err)
	return err
}

func (s *instrumented) SetActive(ctx context.Context, id string, active bool) (*models.Record, error) {
	r, err := s.next.SetActive(ctx, id, active)
	s.m.IncRecordOp("set_active", err)
	return r, err
}

func (s *instrumented) Delete(ctx context.Context, id string) error {
	err := s.next.Delete(ctx, id)
	s.m.IncRecordOp("delete", err)
	return err
}

func (s *instrumented) Close() error { return s.next.Close() }
