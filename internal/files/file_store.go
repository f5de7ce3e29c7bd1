package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/harrylevesque/qrgen/internal/crypto"
	"github.com/harrylevesque/qrgen/internal/models"
)

const (
	recordsFile       = "records.json"
	sealedRecordsFile = "records.json.enc"
)

// FileStore keeps every record in one JSON document, optionally sealed with
// AES-GCM. The document is rewritten through a temp file and rename.
type FileStore struct {
	filePath string
	key      []byte

	mu      sync.RWMutex
	records map[string]*models.Record
	now     func() time.Time
}

// NewFileStore opens the store in dir, creating dir if needed. A non-nil key
// seals the document; it must be 32 bytes.
func NewFileStore(dir string, key []byte) (*FileStore, error) {
	if key != nil && len(key) != 32 {
		return nil, crypto.ErrInvalidKeyLength
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	name := recordsFile
	if key != nil {
		name = sealedRecordsFile
	}
	s := &FileStore{
		filePath: filepath.Join(dir, name),
		key:      key,
		records:  make(map[string]*models.Record),
		now:      time.Now,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) Path() string { return s.filePath }

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if s.key != nil {
		data, err = crypto.DecryptAESGCM(s.key, data)
		if err != nil {
			return fmt.Errorf("decrypt record store: %w", err)
		}
	}
	var list []*models.Record
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("parse record store: %w", err)
	}
	for _, r := range list {
		s.records[r.ID] = r
	}
	return nil
}

// persist writes the whole document. Callers hold the write lock.
func (s *FileStore) persist() error {
	list := make([]*models.Record, 0, len(s.records))
	for _, r := range s.records {
		list = append(list, r)
	}
	sortNewestFirst(list)

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	if s.key != nil {
		data, err = crypto.EncryptAESGCM(s.key, data)
		if err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.filePath), ".records-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.filePath)
}

func (s *FileStore) Create(ctx context.Context, r *models.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID != "" {
		if _, ok := s.records[r.ID]; ok {
			return fmt.Errorf("%w: %s", ErrExists, r.ID)
		}
	}
	if err := prepareCreate(r, s.now()); err != nil {
		return err
	}
	s.records[r.ID] = clone(r)
	if err := s.persist(); err != nil {
		delete(s.records, r.ID)
		return err
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, notFound(id)
	}
	return clone(r), nil
}

func (s *FileStore) List(ctx context.Context, f Filter) ([]*models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Record, 0, len(s.records))
	for _, r := range s.records {
		if f.Match(r) {
			out = append(out, clone(r))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *FileStore) Update(ctx context.Context, r *models.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[r.ID]
	if !ok {
		return notFound(r.ID)
	}
	updated := clone(existing)
	if err := applyUpdate(updated, r, s.now()); err != nil {
		return err
	}
	s.records[r.ID] = updated
	if err := s.persist(); err != nil {
		s.records[r.ID] = existing
		return err
	}
	*r = *clone(updated)
	return nil
}

func (s *FileStore) SetActive(ctx context.Context, id string, active bool) (*models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[id]
	if !ok {
		return nil, notFound(id)
	}
	updated := clone(existing)
	updated.IsActive = active
	updated.UpdatedAt = s.now().UTC()
	s.records[id] = updated
	if err := s.persist(); err != nil {
		s.records[id] = existing
		return nil, err
	}
	return clone(updated), nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[id]
	if !ok {
		return notFound(id)
	}
	delete(s.records, id)
	if err := s.persist(); err != nil {
		s.records[id] = existing
		return err
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
