package storage

import (
	"context"
	"errors"
	"time"

	"bukukas/internal/core"
)

var (
	// ErrVersionConflict is returned when saving a document whose version
	// no longer matches the stored one.
	ErrVersionConflict = errors.New("document version conflict")
)

// Repository loads and saves the whole business document.
type Repository interface {
	// Load returns the stored document, or an empty one at version 0.
	Load(ctx context.Context) (core.Document, error)
	// Save stores doc if doc.Version equals the stored version and returns
	// it with the incremented version.
	Save(ctx context.Context, doc core.Document) (core.Document, error)
	Close() error
}

// ExportRecord is one entry of the export log.
type ExportRecord struct {
	ID        string
	Kind      string
	Period    string
	Status    string
	Detail    string
	CreatedAt time.Time
}

// ExportLog records the outcome of report exports.
type ExportLog interface {
	RecordExport(ctx context.Context, rec ExportRecord) error
	ListExports(ctx context.Context, period string) ([]ExportRecord, error)
}
