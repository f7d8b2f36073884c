package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"bukukas/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ Repository = (*SQLiteRepository)(nil)
	_ ExportLog  = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serialises writers; SQLite allows only one anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := Migrate(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Load(ctx context.Context) (core.Document, error) {
	var (
		version int64
		body    string
	)
	err := r.db.QueryRowContext(ctx, `SELECT version, body FROM documents WHERE id = 1`).Scan(&version, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return core.NewDocument(), nil
	}
	if err != nil {
		return core.Document{}, fmt.Errorf("load document: %w", err)
	}
	doc, err := core.DecodeDocument([]byte(body))
	if err != nil {
		return core.Document{}, err
	}
	doc.Version = version
	return doc, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, doc core.Document) (core.Document, error) {
	if err := doc.Validate(); err != nil {
		return core.Document{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Document{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var stored int64
	err = tx.QueryRowContext(ctx, `SELECT version FROM documents WHERE id = 1`).Scan(&stored)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return core.Document{}, fmt.Errorf("read version: %w", err)
	}
	if doc.Version != stored {
		return core.Document{}, fmt.Errorf("%w: have %d, stored %d", ErrVersionConflict, doc.Version, stored)
	}

	doc.Version = stored + 1
	body, err := json.Marshal(doc)
	if err != nil {
		return core.Document{}, fmt.Errorf("encode document: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, version, body, updated_at) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET version = excluded.version, body = excluded.body, updated_at = excluded.updated_at`,
		doc.Version, string(body), time.Now().UTC())
	if err != nil {
		return core.Document{}, fmt.Errorf("write document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Document{}, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Document saved to SQLite", "version", doc.Version, "bytes", len(body))
	return doc, nil
}

func (r *SQLiteRepository) RecordExport(ctx context.Context, rec ExportRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO export_log (id, kind, period, status, detail, created_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status, detail = excluded.detail, created_at = excluded.created_at`,
		rec.ID, rec.Kind, rec.Period, rec.Status, rec.Detail, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("record export: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListExports(ctx context.Context, period string) ([]ExportRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, period, status, detail, created_at FROM export_log
		WHERE ? = '' OR period = ?
		ORDER BY created_at DESC`, period, period)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()
	var out []ExportRecord
	for rows.Next() {
		var rec ExportRecord
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Period, &rec.Status, &rec.Detail, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
