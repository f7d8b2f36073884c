package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"bukukas/internal/report"
	ports "bukukas/internal/sheets"
)

var _ ports.TableWriter = (*Store)(nil)

// Store keeps written tables in memory. It backs local development and
// tests when no spreadsheet is configured.
type Store struct {
	mu     sync.Mutex
	tables map[string]report.Table
	writes int
}

func New() *Store {
	return &Store{tables: map[string]report.Table{}}
}

// WriteTable stores a copy of t under its name, replacing any previous one.
func (s *Store) WriteTable(ctx context.Context, t report.Table) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if t.Name == "" {
		return "", errors.New("table name is required")
	}
	cp := report.Table{Name: t.Name, Header: append([]string(nil), t.Header...)}
	for _, r := range t.Rows {
		cp.Rows = append(cp.Rows, append([]string(nil), r...))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.Name] = cp
	s.writes++
	return fmt.Sprintf("mem:%s:%d", t.Name, len(cp.Rows)+1), nil
}

// Table returns the last table written under name.
func (s *Store) Table(name string) (report.Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	return t, ok
}

// Names lists stored table names in sorted order.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tables))
	for n := range s.tables {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Writes counts WriteTable calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
