// Package override holds manually entered corrections to monthly figures.
package override

import (
	"sort"

	"bukukas/internal/core"

	"github.com/shopspring/decimal"
)

// Patch carries the fields to set. Nil fields are left untouched.
type Patch struct {
	TotalRevenue    *decimal.Decimal `json:"totalRevenue,omitempty"`
	TotalExpenses   *decimal.Decimal `json:"totalExpenses,omitempty"`
	TotalSalaryPaid *decimal.Decimal `json:"totalSalaryPaid,omitempty"`
	OwnerSavings    *decimal.Decimal `json:"ownerSavings,omitempty"`
	ProductRevenue  *decimal.Decimal `json:"productRevenue,omitempty"`
}

func (p Patch) IsEmpty() bool {
	return p.TotalRevenue == nil && p.TotalExpenses == nil && p.TotalSalaryPaid == nil &&
		p.OwnerSavings == nil && p.ProductRevenue == nil
}

// Store is a date-keyed override map with a save counter. It is not safe
// for concurrent use; callers serialise access.
type Store struct {
	items map[core.Date]core.Override
	seq   uint64
}

func New() *Store {
	return &Store{items: map[core.Date]core.Override{}}
}

// FromDocument copies a document's overrides. The counter resumes at the
// highest of seq and any stored override sequence.
func FromDocument(items map[core.Date]core.Override, seq uint64) *Store {
	s := &Store{items: make(map[core.Date]core.Override, len(items)), seq: seq}
	for date, o := range items {
		o.Date = date
		s.items[date] = o
		if o.Seq > s.seq {
			s.seq = o.Seq
		}
	}
	return s
}

// Set merges p into the override for date and marks it as the most
// recent save. An empty patch changes nothing.
func (s *Store) Set(date core.Date, p Patch) core.Override {
	o, ok := s.items[date]
	if p.IsEmpty() {
		return o
	}
	if !ok {
		o = core.Override{Date: date}
	}
	if p.TotalRevenue != nil {
		o.TotalRevenue = copyDecimal(p.TotalRevenue)
	}
	if p.TotalExpenses != nil {
		o.TotalExpenses = copyDecimal(p.TotalExpenses)
	}
	if p.TotalSalaryPaid != nil {
		o.TotalSalaryPaid = copyDecimal(p.TotalSalaryPaid)
	}
	if p.OwnerSavings != nil {
		o.OwnerSavings = copyDecimal(p.OwnerSavings)
	}
	if p.ProductRevenue != nil {
		o.ProductRevenue = copyDecimal(p.ProductRevenue)
	}
	s.seq++
	o.Seq = s.seq
	s.items[date] = o
	return o
}

// Clear removes the override for date, reporting whether one existed.
func (s *Store) Clear(date core.Date) bool {
	_, ok := s.items[date]
	delete(s.items, date)
	return ok
}

func (s *Store) Get(date core.Date) (core.Override, bool) {
	o, ok := s.items[date]
	return o, ok
}

// InMonth returns the overrides dated inside month, oldest save first.
func (s *Store) InMonth(month core.Month) []core.Override {
	var out []core.Override
	for date, o := range s.items {
		if month.Contains(date) {
			out = append(out, o)
		}
	}
	sortBySeq(out)
	return out
}

// All returns every override, oldest save first.
func (s *Store) All() []core.Override {
	out := make([]core.Override, 0, len(s.items))
	for _, o := range s.items {
		out = append(out, o)
	}
	sortBySeq(out)
	return out
}

// Seq is the sequence number of the latest save.
func (s *Store) Seq() uint64 { return s.seq }

// Items returns a copy of the map for storing back into a document.
func (s *Store) Items() map[core.Date]core.Override {
	out := make(map[core.Date]core.Override, len(s.items))
	for k, v := range s.items {
		out[k] = v
	}
	return out
}

func sortBySeq(os []core.Override) {
	sort.Slice(os, func(i, j int) bool {
		if os[i].Seq != os[j].Seq {
			return os[i].Seq < os[j].Seq
		}
		return os[i].Date < os[j].Date
	})
}

func copyDecimal(d *decimal.Decimal) *decimal.Decimal {
	v := *d
	return &v
}
