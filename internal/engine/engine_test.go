package engine

import (
	"errors"
	"reflect"
	"testing"

	"bukukas/internal/catalog"
	"bukukas/internal/core"

	"github.com/shopspring/decimal"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func ptr(v int64) *decimal.Decimal {
	x := decimal.NewFromInt(v)
	return &x
}

func assertAmount(t *testing.T, name string, got decimal.Decimal, want int64) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Fatalf("%s = %s, want %d", name, got, want)
	}
}

func testCatalog() *catalog.Catalog {
	return catalog.New(
		[]core.Service{
			{ID: "s1", Name: "Cukur", Price: d(50_000)},
			{ID: "s3", Name: "Cukur Anak", Price: d(30_000)},
			{ID: "b1", Name: "Cuci Rambut", Price: d(20_000), Bonusable: true},
		},
		[]core.Employee{
			{ID: "o1", Name: "Joko", Role: core.RoleOwner},
			{ID: "e1", Name: "Budi", Role: core.RoleKaryawan},
			{ID: "e2", Name: "Sari", Role: core.RoleKaryawan},
		},
	)
}

// twoOwnerCatalog adds a second owner ranked after o1.
func twoOwnerCatalog() *catalog.Catalog {
	base := testCatalog()
	emps := append([]core.Employee{}, base.Employees()[:1]...)
	emps = append(emps, core.Employee{ID: "o2", Name: "Rina", Role: core.RoleOwner})
	emps = append(emps, base.Employees()[1:]...)
	return catalog.New(base.Services(), emps)
}

func coOwnerEntry(date core.Date) core.DailyEntry {
	e := ownerEntry(date)
	e.EmployeeID = "o2"
	return e
}

func sumNetPay(rows []EmployeeMonth) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.NetPay)
	}
	return total
}

func karyawanEntry(date core.Date, emp string) core.DailyEntry {
	return core.DailyEntry{
		Date:              date,
		EmployeeID:        emp,
		ServiceQuantities: map[string]core.Quantity{"s1": 2},
		Bonuses: map[string]map[string]core.BonusClaim{
			"s1": {"b1": {Enabled: true, Quantity: 1}},
		},
	}
}

func ownerEntry(date core.Date) core.DailyEntry {
	return core.DailyEntry{
		Date:              date,
		EmployeeID:        "o1",
		ServiceQuantities: map[string]core.Quantity{"s3": 1},
	}
}

func TestComputeEntryRevenue(t *testing.T) {
	rev := ComputeEntryRevenue(karyawanEntry("2025-01-02", "e1"), testCatalog())
	assertAmount(t, "main", rev.Main, 100_000)
	assertAmount(t, "bonus", rev.Bonus, 20_000)
	if len(rev.BonusDetail) != 1 || rev.BonusDetail[0].BonusServiceID != "b1" || rev.BonusDetail[0].Quantity != 1 {
		t.Fatalf("unexpected bonus detail %+v", rev.BonusDetail)
	}
	if len(rev.Conditions) != 0 {
		t.Fatalf("unexpected conditions %v", rev.Conditions)
	}
}

func TestComputeEntryRevenueBonusCap(t *testing.T) {
	tests := []struct {
		name      string
		mainQty   core.Quantity
		claim     core.BonusClaim
		wantQty   int
		wantBonus int64
		wantKind  ConditionKind
	}{
		{"within cap", 2, core.BonusClaim{Enabled: true, Quantity: 2}, 2, 40_000, ""},
		{"capped at main", 1, core.BonusClaim{Enabled: true, Quantity: 5}, 1, 20_000, BonusExceedsMain},
		{"main missing", 0, core.BonusClaim{Enabled: true, Quantity: 1}, 0, 0, BonusExceedsMain},
		{"disabled claim", 3, core.BonusClaim{Enabled: false, Quantity: 3}, 0, 0, ""},
		{"enabled zero", 3, core.BonusClaim{Enabled: true, Quantity: 0}, 0, 0, ""},
		{"negative bonus", 3, core.BonusClaim{Enabled: true, Quantity: -1}, 0, 0, InvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := core.DailyEntry{
				Date:              "2025-01-02",
				EmployeeID:        "e1",
				ServiceQuantities: map[string]core.Quantity{"s1": tt.mainQty},
				Bonuses:           map[string]map[string]core.BonusClaim{"s1": {"b1": tt.claim}},
			}
			rev := ComputeEntryRevenue(e, testCatalog())
			assertAmount(t, "bonus", rev.Bonus, tt.wantBonus)
			for _, line := range rev.BonusDetail {
				if line.Quantity > int(tt.mainQty) {
					t.Fatalf("bonus quantity %d exceeds main %d", line.Quantity, tt.mainQty)
				}
			}
			if tt.wantQty > 0 && (len(rev.BonusDetail) != 1 || rev.BonusDetail[0].Quantity != tt.wantQty) {
				t.Fatalf("unexpected detail %+v", rev.BonusDetail)
			}
			if tt.wantQty == 0 && len(rev.BonusDetail) != 0 {
				t.Fatalf("expected no bonus lines, got %+v", rev.BonusDetail)
			}
			if tt.wantKind != "" && !rev.Conditions.Has(tt.wantKind) {
				t.Fatalf("expected %s condition, got %v", tt.wantKind, rev.Conditions)
			}
			if tt.wantKind == "" && len(rev.Conditions) != 0 {
				t.Fatalf("unexpected conditions %v", rev.Conditions)
			}
		})
	}
}

func TestComputeEntryRevenueMissingAndInvalid(t *testing.T) {
	e := core.DailyEntry{
		Date:              "2025-01-02",
		EmployeeID:        "e1",
		ServiceQuantities: map[string]core.Quantity{"s1": -3, "deleted": 2, "s3": 1},
	}
	rev := ComputeEntryRevenue(e, testCatalog())
	assertAmount(t, "main", rev.Main, 30_000)
	counts := rev.Conditions.Count()
	if counts[InvalidQuantity] != 1 || counts[MissingReference] != 1 {
		t.Fatalf("unexpected conditions %v", rev.Conditions)
	}
	for _, c := range rev.Conditions {
		if c.Kind == MissingReference && !errors.Is(c, ErrMissingReference) {
			t.Fatalf("condition does not match its sentinel")
		}
	}
	if e.ServiceQuantities["s1"] != -3 {
		t.Fatalf("input entry was mutated")
	}
}

func TestComputeEntryRevenueBonusable(t *testing.T) {
	tests := []struct {
		name      string
		qty       map[string]core.Quantity
		bonuses   map[string]map[string]core.BonusClaim
		wantMain  int64
		wantBonus int64
	}{
		{
			name:     "add-on recorded as main work",
			qty:      map[string]core.Quantity{"s1": 1, "b1": 2},
			wantMain: 50_000,
		},
		{
			name:     "main service claimed as bonus",
			qty:      map[string]core.Quantity{"s1": 2},
			bonuses:  map[string]map[string]core.BonusClaim{"s1": {"s3": {Enabled: true, Quantity: 1}}},
			wantMain: 100_000,
		},
		{
			name:    "add-on attached to an add-on",
			qty:     map[string]core.Quantity{"b1": 1},
			bonuses: map[string]map[string]core.BonusClaim{"b1": {"b1": {Enabled: true, Quantity: 1}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := core.DailyEntry{Date: "2025-01-02", EmployeeID: "e1", ServiceQuantities: tt.qty, Bonuses: tt.bonuses}
			rev := ComputeEntryRevenue(e, testCatalog())
			assertAmount(t, "main", rev.Main, tt.wantMain)
			assertAmount(t, "bonus", rev.Bonus, tt.wantBonus)
			if len(rev.BonusDetail) != 0 {
				t.Fatalf("unexpected bonus detail %+v", rev.BonusDetail)
			}
			if !rev.Conditions.Has(MissingReference) {
				t.Fatalf("expected MissingReference, got %v", rev.Conditions)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	e := karyawanEntry("2025-01-02", "e1")
	e.Bonuses["s1"]["b1"] = core.BonusClaim{Enabled: true, Quantity: 7}
	clean, conds := Sanitize(e)
	if got := clean.Bonuses["s1"]["b1"].Quantity; got != 2 {
		t.Fatalf("bonus not clamped, got %d", got)
	}
	if !conds.Has(BonusExceedsMain) {
		t.Fatalf("expected BonusExceedsMain, got %v", conds)
	}
	if e.Bonuses["s1"]["b1"].Quantity != 7 {
		t.Fatalf("input entry was mutated")
	}
}

func TestKaryawanCapturePay(t *testing.T) {
	line := ComputeCapturePay(karyawanEntry("2025-01-02", "e1"), testCatalog())
	assertAmount(t, "mainRevenue", line.MainRevenue, 100_000)
	assertAmount(t, "bonusRevenue", line.BonusRevenue, 20_000)
	assertAmount(t, "deduction", line.Deduction, 50_000)
	assertAmount(t, "netPay", line.NetPay, 80_000)
	if line.Role != core.RoleKaryawan {
		t.Fatalf("unexpected role %q", line.Role)
	}
}

func TestOwnerPay(t *testing.T) {
	cat := testCatalog()
	entries := []core.DailyEntry{ownerEntry("2025-01-02"), karyawanEntry("2025-01-02", "e1")}

	t.Run("full day context", func(t *testing.T) {
		p := ComputeDayPayroll(NewDay("2025-01-02", entries), cat)
		if len(p.Lines) != 2 || p.Lines[0].EmployeeID != "o1" {
			t.Fatalf("unexpected lines %+v", p.Lines)
		}
		o := p.Lines[0]
		assertAmount(t, "shareFromOthers", o.ShareFromOthers, 60_000)
		assertAmount(t, "employeeDeduction", o.EmployeeDeduction, 10_000)
		assertAmount(t, "dailySavings", o.DailySavings, 40_000)
		assertAmount(t, "deduction", o.Deduction, 40_000)
		assertAmount(t, "netPay", o.NetPay, 40_000)
	})

	t.Run("entry only context", func(t *testing.T) {
		o := ComputeCapturePay(ownerEntry("2025-01-02"), cat)
		assertAmount(t, "shareFromOthers", o.ShareFromOthers, 0)
		assertAmount(t, "employeeDeduction", o.EmployeeDeduction, 0)
		assertAmount(t, "netPay", o.NetPay, -10_000)
	})
}

func TestRoleAtCaptureWins(t *testing.T) {
	e := karyawanEntry("2025-01-02", "o1")
	e.Role = core.RoleKaryawan
	line := ComputeCapturePay(e, testCatalog())
	if line.Role != core.RoleKaryawan {
		t.Fatalf("expected recorded role to win, got %q", line.Role)
	}
	assertAmount(t, "netPay", line.NetPay, 80_000)
}

func TestPayRuleFor(t *testing.T) {
	if _, err := PayRuleFor("Manager"); !errors.Is(err, core.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
	if _, err := PayRuleFor(core.RoleOwner); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestAggregateDay(t *testing.T) {
	cat := testCatalog()
	entries := []core.DailyEntry{
		karyawanEntry("2025-01-02", "e1"),
		ownerEntry("2025-01-02"),
		karyawanEntry("2025-01-03", "e2"),
	}
	recap := AggregateDay("2025-01-02", entries, cat)
	assertAmount(t, "grandTotalRevenue", recap.GrandTotalRevenue, 150_000)
	assertAmount(t, "totalSalaryPaid", recap.TotalSalaryPaid, 120_000)
	if len(recap.Lines) != 2 || recap.Lines[0].EmployeeID != "o1" || recap.Lines[1].EmployeeID != "e1" {
		t.Fatalf("lines not in catalog order: %+v", recap.Lines)
	}

	t.Run("idempotent", func(t *testing.T) {
		again := AggregateDay("2025-01-02", entries, cat)
		if !reflect.DeepEqual(recap, again) {
			t.Fatalf("second aggregation differs")
		}
	})

	t.Run("input order does not matter", func(t *testing.T) {
		reversed := []core.DailyEntry{entries[2], entries[1], entries[0]}
		other := AggregateDay("2025-01-02", reversed, cat)
		if !reflect.DeepEqual(recap, other) {
			t.Fatalf("aggregation depends on input order")
		}
	})

	t.Run("zero entry day", func(t *testing.T) {
		empty := AggregateDay("2025-01-09", entries, cat)
		assertAmount(t, "grandTotalRevenue", empty.GrandTotalRevenue, 0)
		assertAmount(t, "totalSalaryPaid", empty.TotalSalaryPaid, 0)
		if len(empty.Lines) != 0 || len(empty.Conditions) != 0 {
			t.Fatalf("expected empty recap, got %+v", empty)
		}
		none := AggregateDay("2025-01-09", nil, catalog.New(nil, nil))
		if len(none.Lines) != 0 {
			t.Fatalf("expected no lines")
		}
	})

	ownerCases := []struct {
		name        string
		entries     []core.DailyEntry
		carrier     string
		wantShare   int64
		wantEmpDed  int64
		wantSalary  int64
		wantCoOwner int64
	}{
		{
			name:       "single owner",
			entries:    []core.DailyEntry{ownerEntry("2025-01-10"), karyawanEntry("2025-01-10", "e1")},
			carrier:    "o1",
			wantShare:  60_000,
			wantEmpDed: 10_000,
			wantSalary: 120_000,
		},
		{
			name:        "two owners with staff",
			entries:     []core.DailyEntry{coOwnerEntry("2025-01-10"), karyawanEntry("2025-01-10", "e1"), ownerEntry("2025-01-10")},
			carrier:     "o1",
			wantShare:   60_000,
			wantEmpDed:  10_000,
			wantSalary:  150_000, // o1 40,000 + o2 30,000 + e1 80,000
			wantCoOwner: 30_000,
		},
		{
			name:        "two owners alone",
			entries:     []core.DailyEntry{ownerEntry("2025-01-10"), coOwnerEntry("2025-01-10")},
			carrier:     "o1",
			wantSalary:  20_000, // o1 30,000 − 40,000 and o2 30,000
			wantCoOwner: 30_000,
		},
	}
	for _, tc := range ownerCases {
		t.Run(tc.name, func(t *testing.T) {
			recap := AggregateDay("2025-01-10", tc.entries, twoOwnerCatalog())
			share, savings, empDed := decimal.Zero, decimal.Zero, decimal.Zero
			for _, l := range recap.Lines {
				share = share.Add(l.ShareFromOthers)
				savings = savings.Add(l.DailySavings)
				empDed = empDed.Add(l.EmployeeDeduction)
				switch {
				case l.EmployeeID == tc.carrier:
					assertAmount(t, "carrier deduction", l.Deduction, 40_000)
				case l.Role == core.RoleOwner:
					assertAmount(t, "co-owner deduction", l.Deduction, 0)
					assertAmount(t, "co-owner netPay", l.NetPay, tc.wantCoOwner)
				}
			}
			assertAmount(t, "dailySavings", savings, 40_000)
			assertAmount(t, "shareFromOthers", share, tc.wantShare)
			assertAmount(t, "employeeDeduction", empDed, tc.wantEmpDed)
			assertAmount(t, "totalSalaryPaid", recap.TotalSalaryPaid, tc.wantSalary)
		})
	}
}

func TestAggregateDayUnknownEmployee(t *testing.T) {
	entries := []core.DailyEntry{karyawanEntry("2025-01-02", "ghost"), karyawanEntry("2025-01-02", "e1")}
	recap := AggregateDay("2025-01-02", entries, testCatalog())
	if len(recap.Lines) != 2 || recap.Lines[1].EmployeeID != "ghost" {
		t.Fatalf("unknown employee should sort last: %+v", recap.Lines)
	}
	ghost := recap.Lines[1]
	assertAmount(t, "ghost netPay", ghost.NetPay, 0)
	assertAmount(t, "grandTotalRevenue", recap.GrandTotalRevenue, 240_000)
	found := false
	for _, c := range recap.Conditions {
		if errors.Is(c, ErrReferenceNotFound) && c.EmployeeID == "ghost" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ReferenceNotFound for ghost, got %v", recap.Conditions)
	}
}

func TestAggregateDayPrefersSnapshot(t *testing.T) {
	e := karyawanEntry("2025-01-02", "e1")
	e.Snapshot = &core.EntrySnapshot{MainRevenue: d(60_000), BonusRevenue: d(0)}
	recap := AggregateDay("2025-01-02", []core.DailyEntry{e}, testCatalog())
	l := recap.Lines[0]
	if !l.FromSnapshot {
		t.Fatalf("expected snapshot revenue")
	}
	assertAmount(t, "mainRevenue", l.MainRevenue, 60_000)
	assertAmount(t, "netPay", l.NetPay, 40_000)
}

type overrideList []core.Override

func (l overrideList) InMonth(m core.Month) []core.Override {
	var out []core.Override
	for _, o := range l {
		if m.Contains(o.Date) {
			out = append(out, o)
		}
	}
	return out
}

func captured(e core.DailyEntry, cat *catalog.Catalog) core.DailyEntry {
	line := ComputeCapturePay(e, cat)
	snap := line.Snapshot()
	e.Snapshot = &snap
	e.Role = line.Role
	return e
}

func monthSnapshot() Snapshot {
	cat := testCatalog()
	entries := []core.DailyEntry{
		captured(ownerEntry("2025-01-02"), cat),
		captured(karyawanEntry("2025-01-02", "e1"), cat),
		captured(ownerEntry("2025-01-03"), cat),
		captured(karyawanEntry("2025-01-03", "e2"), cat),
		captured(karyawanEntry("2025-02-01", "e1"), cat),
	}
	return Snapshot{
		Catalog: cat,
		Entries: entries,
		Transactions: []core.Transaction{
			{ID: "t1", Date: "2025-01-05", Type: core.Income, Amount: d(50_000)},
			{ID: "t2", Date: "2025-01-06", Type: core.Expense, Amount: d(30_000)},
			{ID: "t3", Date: "2025-02-01", Type: core.Expense, Amount: d(999_000)},
		},
		ProductSales: []core.ProductSale{
			{ID: "p1", Date: "2025-01-31", Total: d(25_000)},
			{ID: "p2", Date: "2024-12-31", Total: d(1_000)},
		},
	}
}

func TestAggregateMonth(t *testing.T) {
	rep := AggregateMonth("2025-01", monthSnapshot())

	assertAmount(t, "totalRevenue", rep.TotalRevenue, 300_000)
	assertAmount(t, "totalBonus", rep.TotalBonus, 40_000)
	assertAmount(t, "totalEmployeeSalary", rep.TotalEmployeeSalary, 160_000)
	assertAmount(t, "ownerSavings", rep.OwnerSavings, 80_000)
	assertAmount(t, "income", rep.Income, 50_000)
	assertAmount(t, "totalExpenses", rep.TotalExpenses, 30_000)
	assertAmount(t, "productRevenue", rep.ProductRevenue, 25_000)
	// 60,000 own + 50% of 240,000 − 2 × 40,000 − 2 × 10,000
	assertAmount(t, "ownerFinalSalary", rep.OwnerFinalSalary, 80_000)
	assertAmount(t, "totalSalaryPaid", rep.TotalSalaryPaid, 240_000)
	// 300,000 + 50,000 + 25,000 − 240,000 − 30,000 − 80,000
	assertAmount(t, "netProfit", rep.NetProfit, 25_000)
	if rep.ActiveDays != 2 || rep.ActiveEmployees != 3 {
		t.Fatalf("activeDays=%d activeEmployees=%d", rep.ActiveDays, rep.ActiveEmployees)
	}
	if rep.AppliedOverride != nil {
		t.Fatalf("no override expected")
	}

	ownerCases := []struct {
		name         string
		cat          *catalog.Catalog
		entries      []core.DailyEntry
		wantFinal    int64
		wantSavings  int64
		wantPaid     int64
		wantRows     int
		wantActive   int
		wantOwnerPay map[string]int64
	}{
		{
			name: "two owners share one date",
			cat:  twoOwnerCatalog(),
			entries: []core.DailyEntry{
				ownerEntry("2025-01-10"), coOwnerEntry("2025-01-10"), karyawanEntry("2025-01-10", "e1"),
			},
			// 60,000 own + 50% of 120,000 − 40,000 − 10,000
			wantFinal:    70_000,
			wantSavings:  40_000,
			wantPaid:     150_000,
			wantRows:     3,
			wantActive:   3,
			wantOwnerPay: map[string]int64{"o1": 40_000, "o2": 30_000},
		},
		{
			name:    "owner without entries",
			cat:     testCatalog(),
			entries: []core.DailyEntry{karyawanEntry("2025-01-10", "e1")},
			// 50% of 120,000 − 40,000 − 10,000
			wantFinal:    10_000,
			wantSavings:  0,
			wantPaid:     90_000,
			wantRows:     2,
			wantActive:   1,
			wantOwnerPay: map[string]int64{"o1": 10_000},
		},
	}
	for _, tc := range ownerCases {
		t.Run(tc.name, func(t *testing.T) {
			var entries []core.DailyEntry
			for _, e := range tc.entries {
				entries = append(entries, captured(e, tc.cat))
			}
			rep := AggregateMonth("2025-01", Snapshot{Catalog: tc.cat, Entries: entries})
			assertAmount(t, "ownerFinalSalary", rep.OwnerFinalSalary, tc.wantFinal)
			assertAmount(t, "ownerSavings", rep.OwnerSavings, tc.wantSavings)
			assertAmount(t, "totalSalaryPaid", rep.TotalSalaryPaid, tc.wantPaid)
			if len(rep.Employees) != tc.wantRows || rep.ActiveEmployees != tc.wantActive {
				t.Fatalf("rows=%d activeEmployees=%d", len(rep.Employees), rep.ActiveEmployees)
			}
			if got := sumNetPay(rep.Employees); !got.Equal(rep.TotalSalaryPaid) {
				t.Fatalf("rollup net pay %s does not add up to totalSalaryPaid %s", got, rep.TotalSalaryPaid)
			}
			for _, em := range rep.Employees {
				if want, ok := tc.wantOwnerPay[em.EmployeeID]; ok {
					assertAmount(t, em.EmployeeID+" netPay", em.NetPay, want)
				}
			}
		})
	}
}

func TestMonthlyOwnerRecompute(t *testing.T) {
	rep := AggregateMonth("2025-01", monthSnapshot())
	var owner *EmployeeMonth
	for i := range rep.Employees {
		if rep.Employees[i].EmployeeID == "o1" {
			owner = &rep.Employees[i]
		}
	}
	if owner == nil {
		t.Fatalf("owner missing from rollup")
	}
	// stored per-entry owner pay was captured without sibling context:
	// 2 × (30,000 − 40,000) = −20,000
	if owner.NetPay.Equal(d(-20_000)) {
		t.Fatalf("owner rollup used per-entry sum")
	}
	assertAmount(t, "owner netPay", owner.NetPay, 80_000)
	assertAmount(t, "owner deduction", owner.Deduction, 80_000)
	if got := sumNetPay(rep.Employees); !got.Equal(rep.TotalSalaryPaid) {
		t.Fatalf("rollup net pay %s, totalSalaryPaid %s", got, rep.TotalSalaryPaid)
	}
	if rep.Employees[0].EmployeeID != "o1" {
		t.Fatalf("employees not in catalog order")
	}
}

func TestMonthlyOverridePrecedence(t *testing.T) {
	cat := testCatalog()
	snap := Snapshot{
		Catalog: cat,
		Entries: []core.DailyEntry{{
			Date: "2025-03-10", EmployeeID: "e1",
			ServiceQuantities: map[string]core.Quantity{"s1": 10},
		}},
	}
	rep := AggregateMonth("2025-03", snap)
	assertAmount(t, "computed totalRevenue", rep.TotalRevenue, 500_000)

	snap.Overrides = overrideList{{Date: "2025-03-15", TotalRevenue: ptr(1_000_000), Seq: 1}}
	rep = AggregateMonth("2025-03", snap)
	assertAmount(t, "totalRevenue", rep.TotalRevenue, 1_000_000)
	assertAmount(t, "computed.totalRevenue", rep.Computed.TotalRevenue, 500_000)
	if rep.AppliedOverride == nil || rep.AppliedOverride.Date != "2025-03-15" {
		t.Fatalf("expected applied override, got %+v", rep.AppliedOverride)
	}
	if rep.Conditions.Has(OverrideConflict) {
		t.Fatalf("single override must not conflict")
	}
}

func TestMonthlyOverrideLastWriteWins(t *testing.T) {
	snap := monthSnapshot()
	snap.Overrides = overrideList{
		{Date: "2025-01-20", TotalRevenue: ptr(1_000_000), TotalExpenses: ptr(5), Seq: 2},
		{Date: "2025-01-10", TotalRevenue: ptr(700_000), TotalSalaryPaid: ptr(-1_000), Seq: 7},
		{Date: "2025-02-01", TotalRevenue: ptr(1), Seq: 9},
	}
	rep := AggregateMonth("2025-01", snap)
	assertAmount(t, "totalRevenue", rep.TotalRevenue, 700_000)
	assertAmount(t, "totalSalaryPaid", rep.TotalSalaryPaid, -1_000)
	// older override fields are not consulted
	assertAmount(t, "totalExpenses", rep.TotalExpenses, 30_000)
	if !rep.Conditions.Has(OverrideConflict) {
		t.Fatalf("expected OverrideConflict, got %v", rep.Conditions)
	}
	// 700,000 + 50,000 + 25,000 + 1,000 − 30,000 − 80,000
	assertAmount(t, "netProfit", rep.NetProfit, 666_000)
}

func TestAggregateMonthEmpty(t *testing.T) {
	rep := AggregateMonth("2025-06", Snapshot{Catalog: testCatalog()})
	assertAmount(t, "ownerFinalSalary", rep.OwnerFinalSalary, 0)
	assertAmount(t, "netProfit", rep.NetProfit, 0)
	if rep.ActiveDays != 0 || len(rep.Employees) != 0 {
		t.Fatalf("expected empty report, got %+v", rep)
	}
}

func TestAggregateMonthIdempotent(t *testing.T) {
	snap := monthSnapshot()
	snap.Overrides = overrideList{{Date: "2025-01-20", OwnerSavings: ptr(1), Seq: 1}}
	a := AggregateMonth("2025-01", snap)
	b := AggregateMonth("2025-01", snap)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("monthly aggregation is not idempotent")
	}
}

func TestMonthlyReportClone(t *testing.T) {
	snap := monthSnapshot()
	snap.Overrides = overrideList{{Date: "2025-01-20", TotalRevenue: ptr(1_000), Seq: 1}}
	rep := AggregateMonth("2025-01", snap)
	cp := rep.Clone()
	if !reflect.DeepEqual(rep, cp) {
		t.Fatalf("clone differs from original")
	}
	cp.Employees[0].NetPay = d(1)
	*cp.AppliedOverride.TotalRevenue = d(2)
	cp.Conditions = append(cp.Conditions, Condition{Kind: OverrideConflict})
	if rep.Employees[0].NetPay.Equal(d(1)) || rep.AppliedOverride.TotalRevenue.Equal(d(2)) {
		t.Fatalf("clone shares state with original")
	}
	if rep.Conditions.Has(OverrideConflict) {
		t.Fatalf("clone shares conditions with original")
	}
}

func TestOwnerMonthSalary(t *testing.T) {
	got := OwnerMonthSalary(d(60_000), d(240_000), 2, 2)
	assertAmount(t, "OwnerMonthSalary", got, 80_000)
}
