package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"bukukas/internal/core"
	"bukukas/internal/engine"

	"github.com/gocarina/gocsv"
)

// Table is a named grid of pre-rendered cells. The first row of output is
// always Header.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// FromRows converts a slice of csv-tagged structs into a Table.
func FromRows(name string, rows any) (Table, error) {
	raw, err := gocsv.MarshalBytes(rows)
	if err != nil {
		return Table{}, fmt.Errorf("marshal %s rows: %w", name, err)
	}
	records, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("read %s rows: %w", name, err)
	}
	t := Table{Name: name}
	if len(records) > 0 {
		t.Header = records[0]
		t.Rows = records[1:]
	}
	return t, nil
}

// Values returns header and rows as cell values. Numeric cells are
// converted to numbers so spreadsheets can sum them.
func (t Table) Values() [][]any {
	out := make([][]any, 0, len(t.Rows)+1)
	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	out = append(out, header)
	for _, r := range t.Rows {
		row := make([]any, len(r))
		for i, cell := range r {
			row[i] = cellValue(cell)
		}
		out = append(out, row)
	}
	return out
}

func cellValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// WriteCSV writes the table as CSV.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// MonthlyExport bundles a monthly report with its export tables.
type MonthlyExport struct {
	Report engine.MonthlyReport
	Tables []Table
}

// BuildMonthlyExport computes the month and lays it out as tables:
// summary, salaries, entry detail, daily recaps and transactions.
func BuildMonthlyExport(month core.Month, snap engine.Snapshot) (MonthlyExport, error) {
	rep := engine.AggregateMonth(month, snap)
	out := MonthlyExport{Report: rep}

	summary, err := FromRows("Ringkasan "+string(month), SummaryRows(rep))
	if err != nil {
		return out, err
	}
	salaries, err := FromRows("Gaji "+string(month), EmployeeMonthRows(rep))
	if err != nil {
		return out, err
	}

	var recaps []DailyRecapRow
	dates := map[core.Date]bool{}
	for _, e := range snap.Entries {
		if month.Contains(e.Date) {
			dates[e.Date] = true
		}
	}
	for _, d := range sortedDates(dates) {
		recaps = append(recaps, DailyRecapRows(engine.AggregateDay(d, snap.Entries, snap.Catalog))...)
	}
	daily, err := FromRows("Rekap Harian "+string(month), nonNil(recaps))
	if err != nil {
		return out, err
	}
	txs, err := FromRows("Transaksi "+string(month), nonNil(TransactionRows(month, snap.Transactions)))
	if err != nil {
		return out, err
	}

	out.Tables = []Table{
		summary,
		salaries,
		EntryTable("Rincian "+string(month), month, snap),
		daily,
		txs,
	}
	return out, nil
}

// DailyExport lays out a single day's recap.
func DailyExport(recap engine.DailyRecap) (Table, error) {
	return FromRows("Rekap "+string(recap.Date), DailyRecapRows(recap))
}

// nonNil keeps gocsv writing a header for empty row sets.
func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}

func sortedDates(set map[core.Date]bool) []core.Date {
	out := make([]core.Date, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortStrings(s []string) { sort.Strings(s) }
