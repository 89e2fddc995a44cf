// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package formatstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/streamres/internal/format"
	"github.com/ManuGH/streamres/internal/persistence/sqlite"
)

var migrations = []sqlite.Migration{
	{Version: 1, SQL: `
	CREATE TABLE IF NOT EXISTS format_metadata (
		content_id     TEXT PRIMARY KEY,
		itag           INTEGER NOT NULL,
		mime_type      TEXT NOT NULL,
		bitrate        INTEGER,
		content_length INTEGER,
		last_modified  INTEGER,
		loudness_db    REAL,
		updated_at_ms  INTEGER NOT NULL DEFAULT (CAST(strftime('%s','now') AS INTEGER) * 1000)
	);`},
}

// SqliteStore implements Store on SQLite.
type SqliteStore struct {
	DB   *sql.DB
	path string
}

// NewSqliteStore opens (and migrates) the store at dbPath.
func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("format store: create dir: %w", err)
	}
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(context.Background(), db, migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("format store: migration failed: %w", err)
	}
	return &SqliteStore{DB: db, path: dbPath}, nil
}

func (s *SqliteStore) Put(ctx context.Context, contentID string, d format.Descriptor) error {
	const query = `
	INSERT INTO format_metadata (content_id, itag, mime_type, bitrate, content_length, last_modified, loudness_db, updated_at_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, CAST(strftime('%s','now') AS INTEGER) * 1000)
	ON CONFLICT(content_id) DO UPDATE SET
		itag = excluded.itag,
		mime_type = excluded.mime_type,
		bitrate = excluded.bitrate,
		content_length = excluded.content_length,
		last_modified = excluded.last_modified,
		loudness_db = excluded.loudness_db,
		updated_at_ms = excluded.updated_at_ms
	`
	_, err := s.DB.ExecContext(ctx, query,
		contentID, d.Itag, d.MimeType,
		nullInt(d.Bitrate), nullInt(d.ContentLength), nullInt(d.LastModified), nullFloat(d.LoudnessDB),
	)
	return err
}

func (s *SqliteStore) Get(ctx context.Context, contentID string) (format.Descriptor, bool, error) {
	const query = `SELECT itag, mime_type, bitrate, content_length, last_modified, loudness_db FROM format_metadata WHERE content_id = ?`
	var (
		d                         format.Descriptor
		bitrate, length, modified sql.NullInt64
		loudness                  sql.NullFloat64
	)
	err := s.DB.QueryRowContext(ctx, query, contentID).Scan(&d.Itag, &d.MimeType, &bitrate, &length, &modified, &loudness)
	if errors.Is(err, sql.ErrNoRows) {
		return format.Descriptor{}, false, nil
	}
	if err != nil {
		return format.Descriptor{}, false, err
	}
	d.Bitrate = fromNullInt(bitrate)
	d.ContentLength = fromNullInt(length)
	d.LastModified = fromNullInt(modified)
	if loudness.Valid {
		d.LoudnessDB = format.Float64(loudness.Float64)
	}
	return d, true, nil
}

// Check runs a quick integrity check; used by the health endpoint.
func (s *SqliteStore) Check(ctx context.Context) error {
	issues, err := sqlite.QuickCheck(ctx, s.DB)
	if err != nil {
		return err
	}
	if len(issues) > 0 {
		return fmt.Errorf("format store corrupt: %s", issues[0])
	}
	return nil
}

func (s *SqliteStore) Close() error {
	return s.DB.Close()
}

func nullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func fromNullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return format.Int64(v.Int64)
}
