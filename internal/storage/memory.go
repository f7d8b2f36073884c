package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"bukukas/internal/core"
)

// MemoryRepository keeps the document as encoded JSON so every load goes
// through the same decode and validation path as the SQLite backend.
type MemoryRepository struct {
	mu      sync.Mutex
	version int64
	body    []byte
	exports []ExportRecord
}

var (
	_ Repository = (*MemoryRepository)(nil)
	_ ExportLog  = (*MemoryRepository)(nil)
)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Load(ctx context.Context) (core.Document, error) {
	if err := ctx.Err(); err != nil {
		return core.Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.body == nil {
		return core.NewDocument(), nil
	}
	doc, err := core.DecodeDocument(r.body)
	if err != nil {
		return core.Document{}, err
	}
	doc.Version = r.version
	return doc, nil
}

func (r *MemoryRepository) Save(ctx context.Context, doc core.Document) (core.Document, error) {
	if err := ctx.Err(); err != nil {
		return core.Document{}, err
	}
	if err := doc.Validate(); err != nil {
		return core.Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc.Version != r.version {
		return core.Document{}, fmt.Errorf("%w: have %d, stored %d", ErrVersionConflict, doc.Version, r.version)
	}
	doc.Version = r.version + 1
	body, err := json.Marshal(doc)
	if err != nil {
		return core.Document{}, fmt.Errorf("encode document: %w", err)
	}
	r.body = body
	r.version = doc.Version
	return doc, nil
}

func (r *MemoryRepository) RecordExport(_ context.Context, rec ExportRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exports = append(r.exports, rec)
	return nil
}

func (r *MemoryRepository) ListExports(_ context.Context, period string) ([]ExportRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ExportRecord
	for _, rec := range r.exports {
		if period == "" || rec.Period == period {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) Close() error { return nil }
