package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Document is the whole business-data snapshot. Persistence loads and saves
// it as one unit; every computation receives it (or a Clone) by value.
type Document struct {
	Version         int64                  `json:"version"`
	Services        []Service              `json:"services"`
	Employees       []Employee             `json:"employees"`
	DailyRecords    map[string]DailyEntry  `json:"dailyRecords"`
	Transactions    map[string]Transaction `json:"transactions"`
	ProductSales    map[string]ProductSale `json:"productSales"`
	UrgentOverrides map[Date]Override      `json:"urgentOverrides"`
	OverrideSeq     uint64                 `json:"overrideSeq,omitempty"`
}

var ErrMalformedDocument = errors.New("malformed document")

// NewDocument returns an empty document with all maps allocated.
func NewDocument() Document {
	var d Document
	d.ensureMaps()
	return d
}

func (d *Document) ensureMaps() {
	if d.DailyRecords == nil {
		d.DailyRecords = map[string]DailyEntry{}
	}
	if d.Transactions == nil {
		d.Transactions = map[string]Transaction{}
	}
	if d.ProductSales == nil {
		d.ProductSales = map[string]ProductSale{}
	}
	if d.UrgentOverrides == nil {
		d.UrgentOverrides = map[Date]Override{}
	}
}

// Clone returns a deep copy so callers can compute on it while the
// original keeps being edited.
func (d Document) Clone() Document {
	out := Document{
		Version:     d.Version,
		Services:    append([]Service(nil), d.Services...),
		Employees:   append([]Employee(nil), d.Employees...),
		OverrideSeq: d.OverrideSeq,
	}
	out.ensureMaps()
	for k, v := range d.DailyRecords {
		out.DailyRecords[k] = v.Clone()
	}
	for k, v := range d.Transactions {
		out.Transactions[k] = v
	}
	for k, v := range d.ProductSales {
		out.ProductSales[k] = v
	}
	for k, v := range d.UrgentOverrides {
		out.UrgentOverrides[k] = v
	}
	return out
}

// Entries returns all daily records ordered by date then employee id.
// Record keys are ignored.
func (d Document) Entries() []DailyEntry {
	out := make([]DailyEntry, 0, len(d.DailyRecords))
	for _, e := range d.DailyRecords {
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out
}

func (d Document) TransactionList() []Transaction {
	out := make([]Transaction, 0, len(d.Transactions))
	for _, t := range d.Transactions {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (d Document) ProductSaleList() []ProductSale {
	out := make([]ProductSale, 0, len(d.ProductSales))
	for _, p := range d.ProductSales {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// PutEntry stores e under its conventional key, removing any other record
// for the same (date, employee) pair regardless of the key it was stored under.
func (d *Document) PutEntry(e DailyEntry) {
	d.ensureMaps()
	d.RemoveEntry(e.Date, e.EmployeeID)
	d.DailyRecords[e.Key()] = e
}

// RemoveEntry deletes every record for (date, employeeID). It reports
// whether anything was removed.
func (d *Document) RemoveEntry(date Date, employeeID string) bool {
	removed := false
	for k, e := range d.DailyRecords {
		if e.Date == date && e.EmployeeID == employeeID {
			delete(d.DailyRecords, k)
			removed = true
		}
	}
	return removed
}

// FindEntry returns the record for (date, employeeID).
func (d Document) FindEntry(date Date, employeeID string) (DailyEntry, bool) {
	for _, e := range d.DailyRecords {
		if e.Date == date && e.EmployeeID == employeeID {
			return e, true
		}
	}
	return DailyEntry{}, false
}

// Validate rejects documents whose top-level shape cannot be trusted.
// Dangling catalog references are allowed: historical records may point at
// deleted services or employees.
func (d Document) Validate() error {
	seen := map[string]bool{}
	for i, s := range d.Services {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("%w: service %d: %v", ErrMalformedDocument, i, err)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate service id %q", ErrMalformedDocument, s.ID)
		}
		seen[s.ID] = true
	}
	seen = map[string]bool{}
	for i, e := range d.Employees {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("%w: employee %d: %v", ErrMalformedDocument, i, err)
		}
		if seen[e.ID] {
			return fmt.Errorf("%w: duplicate employee id %q", ErrMalformedDocument, e.ID)
		}
		seen[e.ID] = true
	}
	for k, e := range d.DailyRecords {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("%w: daily record %q: %v", ErrMalformedDocument, k, err)
		}
	}
	for k, t := range d.Transactions {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%w: transaction %q: %v", ErrMalformedDocument, k, err)
		}
	}
	for k, p := range d.ProductSales {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: product sale %q: %v", ErrMalformedDocument, k, err)
		}
	}
	for k := range d.UrgentOverrides {
		if err := k.Validate(); err != nil {
			return fmt.Errorf("%w: override %q: %v", ErrMalformedDocument, k, err)
		}
	}
	return nil
}

// DecodeDocument parses and validates a JSON document.
func DecodeDocument(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	d.ensureMaps()
	for k, o := range d.UrgentOverrides {
		if o.Date == "" {
			o.Date = k
			d.UrgentOverrides[k] = o
		}
	}
	if err := d.Validate(); err != nil {
		return Document{}, err
	}
	return d, nil
}

// dailyEntryJSON is the stored record shape: bonus selections and bonus
// quantities live in two parallel maps, and the snapshot fields sit at
// the top level under their bookkeeping names.
type dailyEntryJSON struct {
	Date              Date                           `json:"date"`
	EmployeeID        string                         `json:"employeeId"`
	ServiceQuantities map[string]Quantity            `json:"serviceQuantities"`
	BonusSelections   map[string]map[string]bool     `json:"bonusSelections,omitempty"`
	BonusQuantities   map[string]map[string]Quantity `json:"bonusQuantities,omitempty"`
	Role              Role                           `json:"role,omitempty"`
	MainRevenue       *decimal.Decimal               `json:"mainRevenue,omitempty"`
	BonusRevenue      *decimal.Decimal               `json:"bonusRevenue,omitempty"`
	Potongan          *decimal.Decimal               `json:"potongan,omitempty"`
	GajiDiterima      *decimal.Decimal               `json:"gajiDiterima,omitempty"`
}

func (e DailyEntry) MarshalJSON() ([]byte, error) {
	out := dailyEntryJSON{
		Date:              e.Date,
		EmployeeID:        e.EmployeeID,
		ServiceQuantities: e.ServiceQuantities,
		Role:              e.Role,
	}
	if out.ServiceQuantities == nil {
		out.ServiceQuantities = map[string]Quantity{}
	}
	if len(e.Bonuses) > 0 {
		out.BonusSelections = map[string]map[string]bool{}
		out.BonusQuantities = map[string]map[string]Quantity{}
		for main, claims := range e.Bonuses {
			sel := map[string]bool{}
			qty := map[string]Quantity{}
			for bonus, c := range claims {
				sel[bonus] = c.Enabled
				qty[bonus] = c.Quantity
			}
			out.BonusSelections[main] = sel
			out.BonusQuantities[main] = qty
		}
	}
	if s := e.Snapshot; s != nil {
		out.MainRevenue = &s.MainRevenue
		out.BonusRevenue = &s.BonusRevenue
		out.Potongan = &s.Deduction
		out.GajiDiterima = &s.NetPay
	}
	return json.Marshal(out)
}

func (e *DailyEntry) UnmarshalJSON(data []byte) error {
	var in dailyEntryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*e = DailyEntry{
		Date:              in.Date,
		EmployeeID:        in.EmployeeID,
		ServiceQuantities: in.ServiceQuantities,
		Role:              in.Role,
	}
	if e.ServiceQuantities == nil {
		e.ServiceQuantities = map[string]Quantity{}
	}
	// A quantity without a selection is an unselected claim; a selection
	// without a quantity is a claim of zero.
	for main, sel := range in.BonusSelections {
		for bonus, enabled := range sel {
			e.setClaim(main, bonus, BonusClaim{Enabled: enabled, Quantity: in.BonusQuantities[main][bonus]})
		}
	}
	for main, qty := range in.BonusQuantities {
		for bonus, q := range qty {
			if _, ok := in.BonusSelections[main][bonus]; ok {
				continue
			}
			e.setClaim(main, bonus, BonusClaim{Enabled: false, Quantity: q})
		}
	}
	if in.MainRevenue != nil || in.BonusRevenue != nil || in.Potongan != nil || in.GajiDiterima != nil {
		e.Snapshot = &EntrySnapshot{
			MainRevenue:  derefDecimal(in.MainRevenue),
			BonusRevenue: derefDecimal(in.BonusRevenue),
			Deduction:    derefDecimal(in.Potongan),
			NetPay:       derefDecimal(in.GajiDiterima),
		}
	}
	return nil
}

func (e *DailyEntry) setClaim(main, bonus string, c BonusClaim) {
	if e.Bonuses == nil {
		e.Bonuses = map[string]map[string]BonusClaim{}
	}
	if e.Bonuses[main] == nil {
		e.Bonuses[main] = map[string]BonusClaim{}
	}
	e.Bonuses[main][bonus] = c
}

func derefDecimal(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
