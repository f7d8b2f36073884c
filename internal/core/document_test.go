package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

const sampleDocument = `{
  "services": [
    {"id": "s1", "name": "Cukur", "price": "50000", "bonusable": false},
    {"id": "b1", "name": "Cuci", "price": "10000", "bonusable": true}
  ],
  "employees": [
    {"id": "e1", "name": "Budi", "role": "Karyawan"},
    {"id": "o1", "name": "Pak Joko", "role": "Owner"}
  ],
  "dailyRecords": {
    "whatever": {
      "date": "2025-01-02",
      "employeeId": "e1",
      "serviceQuantities": {"s1": "2", "s9": null},
      "bonusSelections": {"s1": {"b1": true}},
      "bonusQuantities": {"s1": {"b1": 1, "b2": 3}},
      "mainRevenue": 100000,
      "gajiDiterima": "60000"
    }
  },
  "transactions": {},
  "productSales": {},
  "urgentOverrides": {
    "2025-01-15": {"totalRevenue": "1000000"}
  }
}`

func TestDecodeDocument(t *testing.T) {
	doc, err := DecodeDocument([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	entries := doc.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.ServiceQuantities["s1"] != 2 || e.ServiceQuantities["s9"] != 0 {
		t.Fatalf("unexpected quantities %v", e.ServiceQuantities)
	}
	if c := e.Bonuses["s1"]["b1"]; !c.Enabled || c.Quantity != 1 {
		t.Fatalf("unexpected b1 claim %+v", c)
	}
	if c, ok := e.Bonuses["s1"]["b2"]; !ok || c.Enabled || c.Quantity != 3 {
		t.Fatalf("quantity without selection should decode as disabled claim, got %+v ok=%v", c, ok)
	}
	if e.Snapshot == nil || !e.Snapshot.MainRevenue.Equal(decimal.NewFromInt(100000)) ||
		!e.Snapshot.NetPay.Equal(decimal.NewFromInt(60000)) || !e.Snapshot.BonusRevenue.IsZero() {
		t.Fatalf("unexpected snapshot %+v", e.Snapshot)
	}
	o := doc.UrgentOverrides["2025-01-15"]
	if o.Date != "2025-01-15" || o.TotalRevenue == nil || o.TotalExpenses != nil {
		t.Fatalf("unexpected override %+v", o)
	}
}

func TestDecodeDocumentRejectsMalformed(t *testing.T) {
	cases := []string{
		`{"services": "nope"}`,
		`{"services": [{"id": "", "name": "x", "price": "1"}]}`,
		`{"employees": [{"id": "e", "name": "x", "role": "Boss"}]}`,
		`{"dailyRecords": {"k": {"date": "bad", "employeeId": "e"}}}`,
		`{"services": [{"id": "s", "name": "a", "price": "1"}, {"id": "s", "name": "b", "price": "1"}]}`,
	}
	for i, in := range cases {
		if _, err := DecodeDocument([]byte(in)); !errors.Is(err, ErrMalformedDocument) {
			t.Fatalf("case %d expected ErrMalformedDocument, got %v", i, err)
		}
	}
}

func TestDailyEntryJSONRoundTrip(t *testing.T) {
	e := DailyEntry{
		Date:              "2025-01-02",
		EmployeeID:        "e1",
		ServiceQuantities: map[string]Quantity{"s1": 2},
		Bonuses:           map[string]map[string]BonusClaim{"s1": {"b1": {Enabled: false, Quantity: 0}}},
		Role:              RoleKaryawan,
	}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "gajiDiterima") {
		t.Fatalf("entry without snapshot should not carry cached fields: %s", data)
	}
	var back DailyEntry
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	c, ok := back.Bonuses["s1"]["b1"]
	if !ok || c.Enabled {
		t.Fatalf("disabled claim lost: %+v ok=%v", c, ok)
	}
	if back.Snapshot != nil || back.Role != RoleKaryawan {
		t.Fatalf("unexpected decoded entry %+v", back)
	}
}

func TestPutEntryReplacesByDateAndEmployee(t *testing.T) {
	doc := NewDocument()
	doc.DailyRecords["legacy-key"] = DailyEntry{Date: "2025-01-02", EmployeeID: "e1", ServiceQuantities: map[string]Quantity{"s1": 1}}
	doc.PutEntry(DailyEntry{Date: "2025-01-02", EmployeeID: "e1", ServiceQuantities: map[string]Quantity{"s1": 5}})
	if len(doc.DailyRecords) != 1 {
		t.Fatalf("expected replacement, got %d records", len(doc.DailyRecords))
	}
	got, ok := doc.FindEntry("2025-01-02", "e1")
	if !ok || got.ServiceQuantities["s1"] != 5 {
		t.Fatalf("unexpected entry %+v", got)
	}
	if _, ok := doc.DailyRecords["2025-01-02_e1"]; !ok {
		t.Fatalf("entry not stored under conventional key")
	}
	if !doc.RemoveEntry("2025-01-02", "e1") || len(doc.DailyRecords) != 0 {
		t.Fatalf("RemoveEntry failed")
	}
}

func TestDocumentClone(t *testing.T) {
	doc, err := DecodeDocument([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	c := doc.Clone()
	c.Services[0].Name = "changed"
	for k := range c.DailyRecords {
		c.DailyRecords[k].ServiceQuantities["s1"] = 99
	}
	if doc.Services[0].Name != "Cukur" {
		t.Fatalf("services shared")
	}
	if doc.Entries()[0].ServiceQuantities["s1"] != 2 {
		t.Fatalf("entries shared")
	}
}
