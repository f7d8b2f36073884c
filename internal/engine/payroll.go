package engine

import (
	"fmt"
	"sort"

	"bukukas/internal/catalog"
	"bukukas/internal/core"

	"github.com/shopspring/decimal"
)

// Fixed pay constants. They are not configurable per employee.
var (
	KaryawanShare     = decimal.RequireFromString("0.5")
	OwnerShare        = decimal.RequireFromString("0.5")
	AttendanceBonus   = decimal.NewFromInt(10_000)
	DailySavings      = decimal.NewFromInt(40_000)
	EmployeeDeduction = decimal.NewFromInt(10_000)
)

type (
	// Figures are the revenue inputs of a pay rule.
	Figures struct {
		Main  decimal.Decimal
		Bonus decimal.Decimal
	}

	// DayContext describes the non-owner work recorded on the same date.
	// At capture time it is the zero value.
	DayContext struct {
		OthersRevenue decimal.Decimal // Σ (main + bonus) of non-owner entries
		OthersEntries int
		// CoOwner marks an owner whose date is already charged through
		// another owner's line.
		CoOwner bool
	}

	// Pay is the breakdown a rule produces for one entry.
	Pay struct {
		AttendanceBonus   decimal.Decimal `json:"attendanceBonus"`
		ShareFromOthers   decimal.Decimal `json:"shareFromOthers"`
		DailySavings      decimal.Decimal `json:"dailySavings"`
		EmployeeDeduction decimal.Decimal `json:"employeeDeduction"`
		Deduction         decimal.Decimal `json:"potongan"`
		NetPay            decimal.Decimal `json:"gajiDiterima"`
	}
)

// PayRule computes pay for one role.
type PayRule interface {
	Apply(own Figures, day DayContext) Pay
}

// KaryawanRule pays half of own main revenue plus the attendance bonus
// plus all bonus-service revenue.
type KaryawanRule struct{}

func (KaryawanRule) Apply(own Figures, _ DayContext) Pay {
	half := own.Main.Mul(KaryawanShare)
	return Pay{
		AttendanceBonus:   AttendanceBonus,
		ShareFromOthers:   decimal.Zero,
		DailySavings:      decimal.Zero,
		EmployeeDeduction: decimal.Zero,
		Deduction:         half,
		NetPay:            half.Add(AttendanceBonus).Add(own.Bonus),
	}
}

// OwnerRule pays own revenue plus half of everyone else's, minus the daily
// savings and the per-staff deduction. The recorded deduction is the daily
// savings only. A co-owner keeps own revenue and carries no share or charge.
type OwnerRule struct{}

func (OwnerRule) Apply(own Figures, day DayContext) Pay {
	if day.CoOwner {
		p := zeroPay()
		p.NetPay = own.Main.Add(own.Bonus)
		return p
	}
	share := day.OthersRevenue.Mul(OwnerShare)
	empDed := EmployeeDeduction.Mul(decimal.NewFromInt(int64(day.OthersEntries)))
	return Pay{
		AttendanceBonus:   decimal.Zero,
		ShareFromOthers:   share,
		DailySavings:      DailySavings,
		EmployeeDeduction: empDed,
		Deduction:         DailySavings,
		NetPay:            own.Main.Add(own.Bonus).Add(share).Sub(DailySavings).Sub(empDed),
	}
}

var payRules = map[core.Role]PayRule{
	core.RoleKaryawan: KaryawanRule{},
	core.RoleOwner:    OwnerRule{},
}

// PayRuleFor returns the rule registered for role.
func PayRuleFor(role core.Role) (PayRule, error) {
	rule, ok := payRules[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownRole, role)
	}
	return rule, nil
}

// PayLine is one entry's resolved revenue and pay.
type PayLine struct {
	Date         core.Date       `json:"date"`
	EmployeeID   string          `json:"employeeId"`
	EmployeeName string          `json:"employeeName"`
	Role         core.Role       `json:"role,omitempty"`
	MainRevenue  decimal.Decimal `json:"mainRevenue"`
	BonusRevenue decimal.Decimal `json:"bonusRevenue"`
	BonusDetail  []BonusLine     `json:"bonusDetail"`
	Pay
	// FromSnapshot is set when revenue came from the figures stored at save
	// time rather than from the current catalog.
	FromSnapshot bool       `json:"fromSnapshot"`
	Conditions   Conditions `json:"conditions,omitempty"`
}

// Revenue is main plus bonus revenue for the line.
func (l PayLine) Revenue() decimal.Decimal {
	return l.MainRevenue.Add(l.BonusRevenue)
}

// Day is the full set of entries recorded on one date. It can only be
// built with NewDay so that owner pay always sees its sibling entries.
type Day struct {
	date    core.Date
	entries []core.DailyEntry
}

// NewDay selects the entries of all that fall on date, ordered by
// employee id.
func NewDay(date core.Date, all []core.DailyEntry) Day {
	d := Day{date: date}
	for _, e := range all {
		if e.Date == date {
			d.entries = append(d.entries, e)
		}
	}
	sort.SliceStable(d.entries, func(i, j int) bool {
		return d.entries[i].EmployeeID < d.entries[j].EmployeeID
	})
	return d
}

func (d Day) Date() core.Date { return d.date }

func (d Day) Entries() []core.DailyEntry {
	return append([]core.DailyEntry(nil), d.entries...)
}

func (d Day) Len() int { return len(d.entries) }

// DayPayroll is the pay of every entry on a date, in catalog order.
type DayPayroll struct {
	Date       core.Date  `json:"date"`
	Lines      []PayLine  `json:"lines"`
	Conditions Conditions `json:"conditions,omitempty"`
}

// resolved is an entry with its revenue and role settled.
type resolved struct {
	entry   core.DailyEntry
	role    core.Role
	known   bool
	name    string
	figures Figures
	detail  []BonusLine
	fromSnp bool
	conds   Conditions
}

// resolve settles an entry's revenue and role. Stored snapshot revenue
// wins over live pricing; the role recorded at capture wins over the
// current catalog role.
func resolve(entry core.DailyEntry, cat *catalog.Catalog) resolved {
	r := resolved{entry: entry, role: entry.Role, name: entry.EmployeeID}
	emp, ok := cat.Employee(entry.EmployeeID)
	if ok {
		r.known = true
		r.name = emp.Name
		if r.role == "" {
			r.role = emp.Role
		}
	} else {
		r.conds = append(r.conds, Condition{
			Kind: MissingReference, Date: entry.Date, EmployeeID: entry.EmployeeID,
			Detail: "employee not in catalog",
		})
	}

	if snap := entry.Snapshot; snap != nil {
		r.figures = Figures{Main: snap.MainRevenue, Bonus: snap.BonusRevenue}
		r.fromSnp = true
		r.detail = []BonusLine{}
		return r
	}
	rev := ComputeEntryRevenue(entry, cat)
	r.figures = Figures{Main: rev.Main, Bonus: rev.Bonus}
	r.detail = rev.BonusDetail
	r.conds = append(r.conds, rev.Conditions...)
	return r
}

func (r resolved) isOwner() bool { return r.role == core.RoleOwner }

func (r resolved) line(pay Pay) PayLine {
	return PayLine{
		Date:         r.entry.Date,
		EmployeeID:   r.entry.EmployeeID,
		EmployeeName: r.name,
		Role:         r.role,
		MainRevenue:  r.figures.Main,
		BonusRevenue: r.figures.Bonus,
		BonusDetail:  r.detail,
		Pay:          pay,
		FromSnapshot: r.fromSnp,
		Conditions:   r.conds,
	}
}

func zeroPay() Pay {
	return Pay{
		AttendanceBonus:   decimal.Zero,
		ShareFromOthers:   decimal.Zero,
		DailySavings:      decimal.Zero,
		EmployeeDeduction: decimal.Zero,
		Deduction:         decimal.Zero,
		NetPay:            decimal.Zero,
	}
}

// payFor applies the role rule. Unknown employees and unknown roles get
// zero pay.
func payFor(r *resolved, ctx DayContext) Pay {
	if !r.known {
		return zeroPay()
	}
	rule, err := PayRuleFor(r.role)
	if err != nil {
		r.conds = append(r.conds, Condition{
			Kind: MissingReference, Date: r.entry.Date, EmployeeID: r.entry.EmployeeID,
			Detail: err.Error(),
		})
		return zeroPay()
	}
	return rule.Apply(r.figures, ctx)
}

// ComputeDayPayroll computes pay for every entry of day with full-day
// context. The share of non-owner revenue, the daily savings and the
// employee deduction are resolved once per date, on the line of the first
// owner in catalog order. Other owners on the date keep their own revenue.
//
// Callers: AggregateDay, AggregateMonth and the service-layer snapshot
// recompute. The capture path uses ComputeCapturePay instead.
func ComputeDayPayroll(day Day, cat *catalog.Catalog) DayPayroll {
	rs := make([]resolved, len(day.entries))
	ctx := DayContext{OthersRevenue: decimal.Zero}
	for i, e := range day.entries {
		rs[i] = resolve(e, cat)
		if rs[i].role != "" && !rs[i].isOwner() {
			ctx.OthersRevenue = ctx.OthersRevenue.Add(rs[i].figures.Main).Add(rs[i].figures.Bonus)
			ctx.OthersEntries++
		}
	}

	primary := primaryOwner(rs, cat)
	out := DayPayroll{Date: day.date, Lines: make([]PayLine, 0, len(rs))}
	for i := range rs {
		lineCtx := ctx
		lineCtx.CoOwner = rs[i].isOwner() && i != primary
		pay := payFor(&rs[i], lineCtx)
		line := rs[i].line(pay)
		out.Lines = append(out.Lines, line)
		out.Conditions = append(out.Conditions, line.Conditions...)
	}
	sortLines(out.Lines, cat)
	return out
}

// primaryOwner is the index of the known owner ranked first in catalog
// order, or -1.
func primaryOwner(rs []resolved, cat *catalog.Catalog) int {
	best := -1
	for i := range rs {
		if !rs[i].known || !rs[i].isOwner() {
			continue
		}
		if best < 0 || rankLess(cat, rs[i].entry.EmployeeID, rs[best].entry.EmployeeID) {
			best = i
		}
	}
	return best
}

func rankLess(cat *catalog.Catalog, a, b string) bool {
	if ra, rb := cat.Rank(a), cat.Rank(b); ra != rb {
		return ra < rb
	}
	return a < b
}

// ComputeCapturePay prices and pays a single entry with no sibling
// context: an owner's share and employee deduction are zero. The entry's
// stored snapshot is ignored; revenue is always priced live.
//
// The result is what gets stored on the entry when it is saved.
func ComputeCapturePay(entry core.DailyEntry, cat *catalog.Catalog) PayLine {
	live := entry.Clone()
	live.Snapshot = nil
	r := resolve(live, cat)
	pay := payFor(&r, DayContext{OthersRevenue: decimal.Zero})
	return r.line(pay)
}

// Snapshot converts the line to the figures stored on an entry.
func (l PayLine) Snapshot() core.EntrySnapshot {
	return core.EntrySnapshot{
		MainRevenue:  l.MainRevenue,
		BonusRevenue: l.BonusRevenue,
		Deduction:    l.Deduction,
		NetPay:       l.NetPay,
	}
}

func sortLines(lines []PayLine, cat *catalog.Catalog) {
	sort.SliceStable(lines, func(i, j int) bool {
		ri, rj := cat.Rank(lines[i].EmployeeID), cat.Rank(lines[j].EmployeeID)
		if ri != rj {
			return ri < rj
		}
		if lines[i].EmployeeID != lines[j].EmployeeID {
			return lines[i].EmployeeID < lines[j].EmployeeID
		}
		return lines[i].Date < lines[j].Date
	})
}
