// Package report flattens engine results into tabular rows for CSV, XLSX
// and spreadsheet export. No business computation happens here: every
// figure comes from the engine, and breakdowns are rendered to strings.
package report

import (
	"fmt"
	"strings"

	"bukukas/internal/catalog"
	"bukukas/internal/core"
	"bukukas/internal/engine"

	"github.com/shopspring/decimal"
)

type (
	DailyRecapRow struct {
		Date         string `csv:"Tanggal"`
		Employee     string `csv:"Karyawan"`
		Role         string `csv:"Role"`
		MainRevenue  string `csv:"Pendapatan Utama"`
		BonusRevenue string `csv:"Pendapatan Bonus"`
		Deduction    string `csv:"Potongan"`
		NetPay       string `csv:"Gaji Diterima"`
		Breakdown    string `csv:"Rincian"`
	}

	EmployeeMonthRow struct {
		Employee     string `csv:"Karyawan"`
		Role         string `csv:"Role"`
		Entries      int    `csv:"Hari Kerja"`
		MainRevenue  string `csv:"Pendapatan Utama"`
		BonusRevenue string `csv:"Pendapatan Bonus"`
		Deduction    string `csv:"Potongan"`
		NetPay       string `csv:"Gaji Diterima"`
	}

	SummaryRow struct {
		Field      string `csv:"Keterangan"`
		Value      string `csv:"Nilai"`
		Overridden bool   `csv:"Override"`
	}

	TransactionRow struct {
		Date        string `csv:"Tanggal"`
		Type        string `csv:"Jenis"`
		Description string `csv:"Keterangan"`
		Amount      string `csv:"Jumlah"`
	}
)

func amount(d decimal.Decimal) string { return d.String() }

// Breakdown renders how a line's pay was derived.
func Breakdown(l engine.PayLine) string {
	switch l.Role {
	case core.RoleKaryawan:
		return fmt.Sprintf("50%% x %s + %s + bonus %s",
			core.FormatRupiah(l.MainRevenue), core.FormatRupiah(l.AttendanceBonus), core.FormatRupiah(l.BonusRevenue))
	case core.RoleOwner:
		return fmt.Sprintf("%s + bonus %s + 50%% staf %s - tabungan %s - potongan staf %s",
			core.FormatRupiah(l.MainRevenue), core.FormatRupiah(l.BonusRevenue), core.FormatRupiah(l.ShareFromOthers),
			core.FormatRupiah(l.DailySavings), core.FormatRupiah(l.EmployeeDeduction))
	default:
		return "tidak dihitung"
	}
}

func DailyRecapRows(recap engine.DailyRecap) []DailyRecapRow {
	rows := make([]DailyRecapRow, 0, len(recap.Lines)+1)
	for _, l := range recap.Lines {
		rows = append(rows, DailyRecapRow{
			Date:         string(l.Date),
			Employee:     l.EmployeeName,
			Role:         string(l.Role),
			MainRevenue:  amount(l.MainRevenue),
			BonusRevenue: amount(l.BonusRevenue),
			Deduction:    amount(l.Deduction),
			NetPay:       amount(l.NetPay),
			Breakdown:    Breakdown(l),
		})
	}
	rows = append(rows, DailyRecapRow{
		Date:        string(recap.Date),
		Employee:    "TOTAL",
		MainRevenue: amount(recap.GrandTotalRevenue),
		NetPay:      amount(recap.TotalSalaryPaid),
	})
	return rows
}

func EmployeeMonthRows(rep engine.MonthlyReport) []EmployeeMonthRow {
	rows := make([]EmployeeMonthRow, 0, len(rep.Employees))
	for _, e := range rep.Employees {
		rows = append(rows, EmployeeMonthRow{
			Employee:     e.Name,
			Role:         string(e.Role),
			Entries:      e.Entries,
			MainRevenue:  amount(e.MainRevenue),
			BonusRevenue: amount(e.BonusRevenue),
			Deduction:    amount(e.Deduction),
			NetPay:       amount(e.NetPay),
		})
	}
	return rows
}

func SummaryRows(rep engine.MonthlyReport) []SummaryRow {
	var rev, exp, sal, sav, prod bool
	if o := rep.AppliedOverride; o != nil {
		rev, exp, sal = o.TotalRevenue != nil, o.TotalExpenses != nil, o.TotalSalaryPaid != nil
		sav, prod = o.OwnerSavings != nil, o.ProductRevenue != nil
	}
	return []SummaryRow{
		{Field: "Bulan", Value: string(rep.Month)},
		{Field: "Total Pendapatan", Value: amount(rep.TotalRevenue), Overridden: rev},
		{Field: "Total Bonus", Value: amount(rep.TotalBonus)},
		{Field: "Pemasukan Lain", Value: amount(rep.Income)},
		{Field: "Penjualan Produk", Value: amount(rep.ProductRevenue), Overridden: prod},
		{Field: "Gaji Karyawan", Value: amount(rep.TotalEmployeeSalary)},
		{Field: "Gaji Owner", Value: amount(rep.OwnerFinalSalary)},
		{Field: "Total Gaji Dibayar", Value: amount(rep.TotalSalaryPaid), Overridden: sal},
		{Field: "Pengeluaran", Value: amount(rep.TotalExpenses), Overridden: exp},
		{Field: "Tabungan Owner", Value: amount(rep.OwnerSavings), Overridden: sav},
		{Field: "Hari Aktif", Value: fmt.Sprint(rep.ActiveDays)},
		{Field: "Karyawan Aktif", Value: fmt.Sprint(rep.ActiveEmployees)},
		{Field: "Laba Bersih", Value: amount(rep.NetProfit)},
	}
}

func TransactionRows(month core.Month, txs []core.Transaction) []TransactionRow {
	var rows []TransactionRow
	for _, t := range txs {
		if !month.Contains(t.Date) {
			continue
		}
		rows = append(rows, TransactionRow{
			Date:        string(t.Date),
			Type:        string(t.Type),
			Description: t.Description,
			Amount:      amount(t.Amount),
		})
	}
	return rows
}

// EntryTable lays out every entry of the month with one quantity column
// per main service name. Services referenced by entries but missing from
// the catalog get a column named by their id.
func EntryTable(name string, month core.Month, snap engine.Snapshot) Table {
	cat := snap.Catalog
	if cat == nil {
		cat = catalog.New(nil, nil)
	}
	var entries []core.DailyEntry
	for _, e := range snap.Entries {
		if month.Contains(e.Date) {
			entries = append(entries, e)
		}
	}

	var columns []string
	seen := map[string]bool{}
	for _, s := range cat.Services() {
		if !s.Bonusable {
			columns = append(columns, s.ID)
			seen[s.ID] = true
		}
	}
	var dangling []string
	for _, e := range entries {
		for id := range e.ServiceQuantities {
			if !seen[id] {
				seen[id] = true
				dangling = append(dangling, id)
			}
		}
	}
	sortStrings(dangling)
	columns = append(columns, dangling...)

	header := []string{"Tanggal", "Karyawan", "Role"}
	for _, id := range columns {
		header = append(header, cat.ServiceName(id))
	}
	header = append(header, "Pendapatan Utama", "Pendapatan Bonus", "Rincian Bonus", "Potongan", "Gaji Diterima")

	t := Table{Name: name, Header: header}
	dates := map[core.Date]bool{}
	for _, e := range entries {
		dates[e.Date] = true
	}
	for _, d := range sortedDates(dates) {
		recap := engine.AggregateDay(d, entries, cat)
		stored := map[string]*core.EntrySnapshot{}
		quantities := map[string]map[string]core.Quantity{}
		for _, e := range entries {
			if e.Date == d {
				stored[e.EmployeeID] = e.Snapshot
				quantities[e.EmployeeID] = e.ServiceQuantities
			}
		}
		for _, l := range recap.Lines {
			deduction, netPay := l.Deduction, l.NetPay
			if s := stored[l.EmployeeID]; s != nil {
				deduction, netPay = s.Deduction, s.NetPay
			}
			row := []string{string(l.Date), l.EmployeeName, string(l.Role)}
			for _, id := range columns {
				q := quantities[l.EmployeeID][id]
				if q < 0 {
					q = 0
				}
				row = append(row, fmt.Sprint(q.Int()))
			}
			row = append(row,
				amount(l.MainRevenue),
				amount(l.BonusRevenue),
				bonusDetail(l.BonusDetail, cat),
				amount(deduction),
				amount(netPay),
			)
			t.Rows = append(t.Rows, row)
		}
	}
	return t
}

func bonusDetail(lines []engine.BonusLine, cat *catalog.Catalog) string {
	parts := make([]string, 0, len(lines))
	for _, b := range lines {
		parts = append(parts, fmt.Sprintf("%s x%d (%s) %s",
			cat.ServiceName(b.BonusServiceID), b.Quantity, cat.ServiceName(b.MainServiceID), core.FormatRupiah(b.Value)))
	}
	return strings.Join(parts, "; ")
}
