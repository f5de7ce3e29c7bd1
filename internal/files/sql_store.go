package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harrylevesque/qrgen/internal/models"

	_ "modernc.org/sqlite"
)

// Fixed-width so lexical order in SQL matches time order.
const sqlTimeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) a SQLite database at dsn and migrates it.
func OpenSQLite(dsn string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if strings.Contains(dsn, ":memory:") {
		// each pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	s, err := NewSQLStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	s := &SQLStore{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate record store: %w", err)
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS qr_codes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		content TEXT NOT NULL,
		design_settings TEXT NOT NULL,
		is_dynamic INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		short_url TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL DEFAULT '',
		expires_at TEXT,
		max_scans INTEGER,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_qr_codes_user_created ON qr_codes (user_id, created_at DESC);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

const selectColumns = `id, user_id, name, type, content, design_settings, is_dynamic, is_active,
	short_url, password_hash, expires_at, max_scans, created_at, updated_at`

func (s *SQLStore) Create(ctx context.Context, r *models.Record) error {
	if err := prepareCreate(r, s.now()); err != nil {
		return err
	}
	query := `INSERT INTO qr_codes (` + selectColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.UserID, r.Name, string(r.Type), r.Content, r.DesignSettings, r.IsDynamic, r.IsActive,
		r.ShortURL, r.PasswordHash, nullTime(r.ExpiresAt), nullInt(r.MaxScans),
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrExists, r.ID)
		}
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*models.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM qr_codes WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	return r, err
}

func (s *SQLStore) List(ctx context.Context, f Filter) ([]*models.Record, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Kind != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Kind))
	}
	if f.ActiveOnly {
		where = append(where, "is_active = 1")
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		where = append(where, `(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(type) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	query := `SELECT ` + selectColumns + ` FROM qr_codes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []*models.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) Update(ctx context.Context, r *models.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := scanRecord(tx.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM qr_codes WHERE id = ?`, r.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(r.ID)
	}
	if err != nil {
		return err
	}
	if err := applyUpdate(existing, r, s.now()); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `UPDATE qr_codes SET name = ?, type = ?, content = ?, design_settings = ?,
		is_dynamic = ?, is_active = ?, short_url = ?, password_hash = ?, expires_at = ?, max_scans = ?, updated_at = ?
		WHERE id = ?`,
		existing.Name, string(existing.Type), existing.Content, existing.DesignSettings,
		existing.IsDynamic, existing.IsActive, existing.ShortURL, existing.PasswordHash,
		nullTime(existing.ExpiresAt), nullInt(existing.MaxScans), formatTime(existing.UpdatedAt), existing.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	*r = *existing
	return nil
}

func (s *SQLStore) SetActive(ctx context.Context, id string, active bool) (*models.Record, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE qr_codes SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, formatTime(s.now()), id)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, notFound(id)
	}
	return s.Get(ctx, id)
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM qr_codes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(id)
	}
	return nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		r         models.Record
		kind      string
		expiresAt sql.NullString
		maxScans  sql.NullInt64
		createdAt string
		updatedAt string
	)
	err := row.Scan(&r.ID, &r.UserID, &r.Name, &kind, &r.Content, &r.DesignSettings, &r.IsDynamic, &r.IsActive,
		&r.ShortURL, &r.PasswordHash, &expiresAt, &maxScans, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	r.Type = models.Kind(kind)
	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	if r.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("updated_at: %w", err)
	}
	if expiresAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, expiresAt.String)
		if err != nil {
			return nil, fmt.Errorf("expires_at: %w", err)
		}
		r.ExpiresAt = &t
	}
	if maxScans.Valid {
		n := int(maxScans.Int64)
		r.MaxScans = &n
	}
	return &r, nil
}

func formatTime(t time.Time) string { return t.UTC().Format(sqlTimeLayout) }

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullInt(n *int) any {
	if n == nil {
		return nil
	}
	return int64(*n)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
