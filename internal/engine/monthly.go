package engine

import (
	"fmt"
	"sort"

	"bukukas/internal/catalog"
	"bukukas/internal/core"

	"github.com/shopspring/decimal"
)

// OverrideSource yields the overrides dated inside a month, ordered by
// save sequence (oldest first).
type OverrideSource interface {
	InMonth(month core.Month) []core.Override
}

// Snapshot is the materialised input of a monthly aggregation.
type Snapshot struct {
	Catalog      *catalog.Catalog
	Entries      []core.DailyEntry
	Transactions []core.Transaction
	ProductSales []core.ProductSale
	Overrides    OverrideSource
}

// NewSnapshot builds a Snapshot from a document.
func NewSnapshot(doc core.Document, overrides OverrideSource) Snapshot {
	return Snapshot{
		Catalog:      catalog.FromDocument(doc),
		Entries:      doc.Entries(),
		Transactions: doc.TransactionList(),
		ProductSales: doc.ProductSaleList(),
		Overrides:    overrides,
	}
}

type (
	// MonthlyFigures are the fields an override can replace.
	MonthlyFigures struct {
		TotalRevenue    decimal.Decimal `json:"totalRevenue"`
		TotalExpenses   decimal.Decimal `json:"totalExpenses"`
		TotalSalaryPaid decimal.Decimal `json:"totalSalaryPaid"`
		OwnerSavings    decimal.Decimal `json:"ownerSavings"`
		ProductRevenue  decimal.Decimal `json:"productRevenue"`
	}

	// EmployeeMonth is one employee's monthly salary rollup.
	EmployeeMonth struct {
		EmployeeID   string          `json:"employeeId"`
		Name         string          `json:"name"`
		Role         core.Role       `json:"role,omitempty"`
		Entries      int             `json:"entries"`
		MainRevenue  decimal.Decimal `json:"mainRevenue"`
		BonusRevenue decimal.Decimal `json:"bonusRevenue"`
		Deduction    decimal.Decimal `json:"potongan"`
		NetPay       decimal.Decimal `json:"gajiDiterima"`
	}

	MonthlyReport struct {
		Month core.Month `json:"month"`
		MonthlyFigures
		TotalEmployeeSalary decimal.Decimal `json:"totalEmployeeSalary"`
		TotalBonus          decimal.Decimal `json:"totalBonus"`
		OwnerFinalSalary    decimal.Decimal `json:"ownerFinalSalary"`
		Income              decimal.Decimal `json:"income"`
		ActiveDays          int             `json:"activeDays"`
		ActiveEmployees     int             `json:"activeEmployees"`
		NetProfit           decimal.Decimal `json:"netProfit"`

		// Computed holds the figures before any override was applied.
		Computed        MonthlyFigures  `json:"computed"`
		AppliedOverride *core.Override  `json:"appliedOverride,omitempty"`
		Employees       []EmployeeMonth `json:"employees"`
		Conditions      Conditions      `json:"conditions,omitempty"`
	}
)

// AggregateMonth rolls up everything dated inside month.
//
// Per-entry figures come from the snapshot stored on each entry; entries
// without one are computed with full-day context. Owner pay is then
// recomputed at month scope and replaces the per-entry sum, because
// stored owner pay was captured without sibling context.
//
// The latest override dated in the month (by save sequence) replaces each
// field it sets. Older overrides in the same month are ignored and
// reported as an OverrideConflict.
func AggregateMonth(month core.Month, snap Snapshot) MonthlyReport {
	cat := snap.Catalog
	if cat == nil {
		cat = catalog.New(nil, nil)
	}
	rep := MonthlyReport{
		Month:               month,
		TotalEmployeeSalary: decimal.Zero,
		TotalBonus:          decimal.Zero,
		OwnerFinalSalary:    decimal.Zero,
		Income:              decimal.Zero,
		Employees:           []EmployeeMonth{},
	}
	c := MonthlyFigures{
		TotalRevenue:   decimal.Zero,
		TotalExpenses:  decimal.Zero,
		OwnerSavings:   decimal.Zero,
		ProductRevenue: decimal.Zero,
	}

	var inWindow []core.DailyEntry
	dates := map[core.Date]bool{}
	for _, e := range snap.Entries {
		if month.Contains(e.Date) {
			inWindow = append(inWindow, e)
			dates[e.Date] = true
		}
	}
	sortedDates := make([]core.Date, 0, len(dates))
	for d := range dates {
		sortedDates = append(sortedDates, d)
	}
	sort.Slice(sortedDates, func(i, j int) bool { return sortedDates[i] < sortedDates[j] })

	rollup := map[string]*EmployeeMonth{}
	ownerRevenue := map[string]decimal.Decimal{}
	othersRevenue := decimal.Zero
	othersEntries := 0

	for _, d := range sortedDates {
		day := NewDay(d, inWindow)
		payroll := ComputeDayPayroll(day, cat)
		rep.Conditions = append(rep.Conditions, payroll.Conditions...)
		byEmp := make(map[string]core.DailyEntry, day.Len())
		for _, e := range day.entries {
			byEmp[e.EmployeeID] = e
		}
		for _, l := range payroll.Lines {
			// owner lines keep the full-day deduction so savings count once per date
			deduction, netPay := l.Deduction, l.NetPay
			if s := byEmp[l.EmployeeID].Snapshot; s != nil && l.Role != core.RoleOwner {
				deduction, netPay = s.Deduction, s.NetPay
			}

			c.TotalRevenue = c.TotalRevenue.Add(l.Revenue())
			rep.TotalBonus = rep.TotalBonus.Add(l.BonusRevenue)
			switch l.Role {
			case core.RoleOwner:
				c.OwnerSavings = c.OwnerSavings.Add(deduction)
				ownerRevenue[l.EmployeeID] = ownerRevenue[l.EmployeeID].Add(l.Revenue())
			case core.RoleKaryawan:
				rep.TotalEmployeeSalary = rep.TotalEmployeeSalary.Add(netPay)
				othersRevenue = othersRevenue.Add(l.Revenue())
				othersEntries++
			}

			em, ok := rollup[l.EmployeeID]
			if !ok {
				em = &EmployeeMonth{
					EmployeeID:   l.EmployeeID,
					Name:         l.EmployeeName,
					Role:         l.Role,
					MainRevenue:  decimal.Zero,
					BonusRevenue: decimal.Zero,
					Deduction:    decimal.Zero,
					NetPay:       decimal.Zero,
				}
				rollup[l.EmployeeID] = em
			}
			if l.Role == core.RoleOwner {
				em.Role = core.RoleOwner
			}
			em.Entries++
			em.MainRevenue = em.MainRevenue.Add(l.MainRevenue)
			em.BonusRevenue = em.BonusRevenue.Add(l.BonusRevenue)
			em.Deduction = em.Deduction.Add(deduction)
			em.NetPay = em.NetPay.Add(netPay)
		}
	}

	rep.ActiveDays = len(sortedDates)
	rep.ActiveEmployees = len(rollup)
	rep.OwnerFinalSalary = rep.resolveOwners(cat, rollup, ownerRevenue, othersRevenue, othersEntries)

	for _, t := range snap.Transactions {
		if !month.Contains(t.Date) {
			continue
		}
		switch t.Type {
		case core.Income:
			rep.Income = rep.Income.Add(t.Amount)
		case core.Expense:
			c.TotalExpenses = c.TotalExpenses.Add(t.Amount)
		}
	}
	for _, p := range snap.ProductSales {
		if month.Contains(p.Date) {
			c.ProductRevenue = c.ProductRevenue.Add(p.Total)
		}
	}
	c.TotalSalaryPaid = rep.TotalEmployeeSalary.Add(rep.OwnerFinalSalary)

	rep.Computed = c
	rep.MonthlyFigures = c
	if snap.Overrides != nil {
		rep.applyOverrides(month, snap.Overrides.InMonth(month))
	}

	rep.NetProfit = rep.TotalRevenue.
		Add(rep.Income).
		Add(rep.ProductRevenue).
		Sub(rep.TotalSalaryPaid).
		Sub(rep.TotalExpenses).
		Sub(rep.OwnerSavings)

	for _, em := range rollup {
		rep.Employees = append(rep.Employees, *em)
	}
	sort.SliceStable(rep.Employees, func(i, j int) bool {
		ri, rj := cat.Rank(rep.Employees[i].EmployeeID), cat.Rank(rep.Employees[j].EmployeeID)
		if ri != rj {
			return ri < rj
		}
		return rep.Employees[i].EmployeeID < rep.Employees[j].EmployeeID
	})
	return rep
}

// Clone returns a deep copy of the report.
func (rep MonthlyReport) Clone() MonthlyReport {
	out := rep
	if rep.Employees != nil {
		out.Employees = append(make([]EmployeeMonth, 0, len(rep.Employees)), rep.Employees...)
	}
	if rep.Conditions != nil {
		out.Conditions = append(make(Conditions, 0, len(rep.Conditions)), rep.Conditions...)
	}
	if rep.AppliedOverride != nil {
		o := rep.AppliedOverride.Clone()
		out.AppliedOverride = &o
	}
	return out
}

func (rep *MonthlyReport) applyOverrides(month core.Month, overrides []core.Override) {
	var inMonth []core.Override
	for _, o := range overrides {
		if month.Contains(o.Date) && !o.IsEmpty() {
			inMonth = append(inMonth, o)
		}
	}
	if len(inMonth) == 0 {
		return
	}
	sort.SliceStable(inMonth, func(i, j int) bool { return inMonth[i].Seq < inMonth[j].Seq })
	latest := inMonth[len(inMonth)-1]
	if len(inMonth) > 1 {
		ignored := make([]core.Date, 0, len(inMonth)-1)
		for _, o := range inMonth[:len(inMonth)-1] {
			ignored = append(ignored, o.Date)
		}
		rep.Conditions = append(rep.Conditions, Condition{
			Kind: OverrideConflict,
			Date: latest.Date,
			Detail: fmt.Sprintf("%d overrides in %s, using %s and ignoring %v",
				len(inMonth), month, latest.Date, ignored),
		})
	}

	if latest.TotalRevenue != nil {
		rep.TotalRevenue = *latest.TotalRevenue
	}
	if latest.TotalExpenses != nil {
		rep.TotalExpenses = *latest.TotalExpenses
	}
	if latest.TotalSalaryPaid != nil {
		rep.TotalSalaryPaid = *latest.TotalSalaryPaid
	}
	if latest.OwnerSavings != nil {
		rep.OwnerSavings = *latest.OwnerSavings
	}
	if latest.ProductRevenue != nil {
		rep.ProductRevenue = *latest.ProductRevenue
	}
	rep.AppliedOverride = &latest
}

// resolveOwners computes the owner figure once for the month and writes
// each owner's part into the rollup. The first owner in catalog order takes
// the share and the charges; other owners keep their own revenue. When no
// owner recorded an entry but the month has activity, the catalog's first
// owner still takes the figure on a row with zero entries.
func (rep *MonthlyReport) resolveOwners(cat *catalog.Catalog, rollup map[string]*EmployeeMonth,
	ownerRevenue map[string]decimal.Decimal, othersRevenue decimal.Decimal, othersEntries int) decimal.Decimal {
	ids := make([]string, 0, len(ownerRevenue))
	for id := range ownerRevenue {
		ids = append(ids, id)
	}
	if len(ids) == 0 && rep.ActiveDays > 0 {
		if owners := cat.EmployeesWithRole(core.RoleOwner); len(owners) > 0 {
			ids = append(ids, owners[0].ID)
		}
	}
	if len(ids) == 0 {
		return decimal.Zero
	}
	sort.Slice(ids, func(i, j int) bool { return rankLess(cat, ids[i], ids[j]) })

	ownTotal := decimal.Zero
	for _, id := range ids {
		ownTotal = ownTotal.Add(ownerRevenue[id])
	}
	final := OwnerMonthSalary(ownTotal, othersRevenue, rep.ActiveDays, othersEntries)

	for i, id := range ids {
		pay := ownerRevenue[id]
		if i == 0 {
			pay = final.Sub(ownTotal.Sub(ownerRevenue[id]))
		}
		em, ok := rollup[id]
		if !ok {
			name := id
			if emp, found := cat.Employee(id); found {
				name = emp.Name
			}
			em = &EmployeeMonth{
				EmployeeID:   id,
				Name:         name,
				Role:         core.RoleOwner,
				MainRevenue:  decimal.Zero,
				BonusRevenue: decimal.Zero,
				Deduction:    decimal.Zero,
			}
			rollup[id] = em
		}
		em.NetPay = pay
	}
	return final
}

// OwnerMonthSalary is the owner pay formula at month scope:
// own revenue + half of staff revenue − daily savings per active day −
// employee deduction per staff entry.
func OwnerMonthSalary(ownRevenue, othersRevenue decimal.Decimal, activeDays, othersEntries int) decimal.Decimal {
	return ownRevenue.
		Add(othersRevenue.Mul(OwnerShare)).
		Sub(DailySavings.Mul(decimal.NewFromInt(int64(activeDays)))).
		Sub(EmployeeDeduction.Mul(decimal.NewFromInt(int64(othersEntries))))
}
