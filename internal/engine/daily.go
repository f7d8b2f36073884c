package engine

import (
	"bukukas/internal/catalog"
	"bukukas/internal/core"

	"github.com/shopspring/decimal"
)

// DailyRecap is the per-date summary shown on the recap screen.
type DailyRecap struct {
	Date              core.Date       `json:"date"`
	Lines             []PayLine       `json:"lines"`
	GrandTotalRevenue decimal.Decimal `json:"grandTotalRevenue"`
	TotalSalaryPaid   decimal.Decimal `json:"totalSalaryPaid"`
	Conditions        Conditions      `json:"conditions,omitempty"`
}

// AggregateDay computes the recap of date from the full entry collection.
// A date without entries yields zero totals and an empty line list.
func AggregateDay(date core.Date, entries []core.DailyEntry, cat *catalog.Catalog) DailyRecap {
	payroll := ComputeDayPayroll(NewDay(date, entries), cat)
	recap := DailyRecap{
		Date:              date,
		Lines:             payroll.Lines,
		GrandTotalRevenue: decimal.Zero,
		TotalSalaryPaid:   decimal.Zero,
		Conditions:        payroll.Conditions,
	}
	for _, l := range recap.Lines {
		recap.GrandTotalRevenue = recap.GrandTotalRevenue.Add(l.Revenue())
		recap.TotalSalaryPaid = recap.TotalSalaryPaid.Add(l.NetPay)
	}
	return recap
}
