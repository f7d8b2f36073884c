package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleKaryawan Role = "Karyawan"
	RoleOwner    Role = "Owner"

	Income  TransactionType = "Income"
	Expense TransactionType = "Expense"

	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

type (
	Role            string
	TransactionType string

	// Date is a calendar day in YYYY-MM-DD form. Ordering is lexicographic.
	Date string

	// Month is a calendar month in YYYY-MM form.
	Month string

	Service struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		Price     decimal.Decimal `json:"price"`
		Bonusable bool            `json:"bonusable"`
	}

	Employee struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Role Role   `json:"role"`
	}

	// BonusClaim records an add-on service claimed on top of a main service.
	// A missing claim means nothing was selected; a present claim with
	// Enabled=false means it was selected and then switched off.
	BonusClaim struct {
		Enabled  bool
		Quantity Quantity
	}

	// EntrySnapshot holds the figures computed when an entry was saved.
	EntrySnapshot struct {
		MainRevenue  decimal.Decimal
		BonusRevenue decimal.Decimal
		Deduction    decimal.Decimal // potongan
		NetPay       decimal.Decimal // gaji diterima
	}

	// DailyEntry is the work one employee recorded on one date.
	DailyEntry struct {
		Date              Date
		EmployeeID        string
		ServiceQuantities map[string]Quantity            // main service id -> quantity
		Bonuses           map[string]map[string]BonusClaim // main service id -> bonus service id -> claim
		Role              Role                           // role at capture, empty for legacy records
		Snapshot          *EntrySnapshot
	}

	Transaction struct {
		ID          string          `json:"id"`
		Date        Date            `json:"date"`
		Type        TransactionType `json:"type"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
	}

	ProductSale struct {
		ID    string          `json:"id"`
		Date  Date            `json:"date"`
		Total decimal.Decimal `json:"total"`
	}

	// Override replaces computed monthly figures. Nil fields are not overridden.
	Override struct {
		Date            Date             `json:"date"`
		TotalRevenue    *decimal.Decimal `json:"totalRevenue,omitempty"`
		TotalExpenses   *decimal.Decimal `json:"totalExpenses,omitempty"`
		TotalSalaryPaid *decimal.Decimal `json:"totalSalaryPaid,omitempty"`
		OwnerSavings    *decimal.Decimal `json:"ownerSavings,omitempty"`
		ProductRevenue  *decimal.Decimal `json:"productRevenue,omitempty"`
		Seq             uint64           `json:"seq"`
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidMonth    = errors.New("invalid month, expected YYYY-MM")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNegativePrice   = errors.New("price cannot be negative")
	ErrEmptyID         = errors.New("empty id")
	ErrEmptyName       = errors.New("empty name")
	ErrUnknownRole     = errors.New("unknown role")
	ErrUnknownTxType   = errors.New("unknown transaction type")
	ErrEmptyEmployeeID = errors.New("empty employee id")
	ErrNotFound        = errors.New("not found")
	ErrDescriptionLong = errors.New("description too long (max 200 characters)")
)

func (r Role) Validate() error {
	switch r {
	case RoleKaryawan, RoleOwner:
		return nil
	default:
		return ErrUnknownRole
	}
}

func (d Date) Validate() error {
	if _, err := time.Parse(dateLayout, string(d)); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// Month returns the YYYY-MM prefix of the date.
func (d Date) Month() Month {
	if len(d) < 7 {
		return ""
	}
	return Month(d[:7])
}

func (d Date) String() string { return string(d) }

// Today returns the current local date.
func Today() Date {
	return Date(time.Now().Format(dateLayout))
}

func (m Month) Validate() error {
	if _, err := time.Parse(monthLayout, string(m)); err != nil {
		return ErrInvalidMonth
	}
	return nil
}

// Window returns the inclusive string bounds YYYY-MM-01 and YYYY-MM-31.
// No calendar check is made on the upper bound: a stored date can never
// exceed the true month length, so "-31" covers every month.
func (m Month) Window() (first, last Date) {
	return Date(string(m) + "-01"), Date(string(m) + "-31")
}

// Contains reports whether d falls inside the month window.
func (m Month) Contains(d Date) bool {
	first, last := m.Window()
	return d >= first && d <= last
}

func (m Month) String() string { return string(m) }

func (s Service) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if s.Price.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

func (e Employee) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	return e.Role.Validate()
}

// Validate checks the shape of an entry. Quantity anomalies are not errors
// here; they are clamped by the engine and reported as conditions.
func (e DailyEntry) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.EmployeeID) == "" {
		return ErrEmptyEmployeeID
	}
	if e.Role != "" {
		if err := e.Role.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Key is the conventional record key "{date}_{employeeId}".
func (e DailyEntry) Key() string {
	return RecordKey(e.Date, e.EmployeeID)
}

func RecordKey(date Date, employeeID string) string {
	return string(date) + "_" + employeeID
}

// Clone returns a deep copy of the entry.
func (e DailyEntry) Clone() DailyEntry {
	out := e
	if e.ServiceQuantities != nil {
		out.ServiceQuantities = make(map[string]Quantity, len(e.ServiceQuantities))
		for k, v := range e.ServiceQuantities {
			out.ServiceQuantities[k] = v
		}
	}
	if e.Bonuses != nil {
		out.Bonuses = make(map[string]map[string]BonusClaim, len(e.Bonuses))
		for main, claims := range e.Bonuses {
			cp := make(map[string]BonusClaim, len(claims))
			for k, v := range claims {
				cp[k] = v
			}
			out.Bonuses[main] = cp
		}
	}
	if e.Snapshot != nil {
		snap := *e.Snapshot
		out.Snapshot = &snap
	}
	return out
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	switch t.Type {
	case Income, Expense:
	default:
		return ErrUnknownTxType
	}
	if len(t.Description) > 200 {
		return ErrDescriptionLong
	}
	return nil
}

func (p ProductSale) Validate() error {
	return p.Date.Validate()
}

// Clone returns a copy that shares no amounts with o.
func (o Override) Clone() Override {
	cp := func(v *decimal.Decimal) *decimal.Decimal {
		if v == nil {
			return nil
		}
		x := *v
		return &x
	}
	o.TotalRevenue = cp(o.TotalRevenue)
	o.TotalExpenses = cp(o.TotalExpenses)
	o.TotalSalaryPaid = cp(o.TotalSalaryPaid)
	o.OwnerSavings = cp(o.OwnerSavings)
	o.ProductRevenue = cp(o.ProductRevenue)
	return o
}

// IsEmpty reports whether no field of the override is set.
func (o Override) IsEmpty() bool {
	return o.TotalRevenue == nil && o.TotalExpenses == nil && o.TotalSalaryPaid == nil &&
		o.OwnerSavings == nil && o.ProductRevenue == nil
}
