package engine

import (
	"fmt"
	"sort"

	"bukukas/internal/catalog"
	"bukukas/internal/core"

	"github.com/shopspring/decimal"
)

type (
	// BonusLine is one claimed add-on that contributed revenue.
	BonusLine struct {
		MainServiceID  string          `json:"mainServiceId"`
		BonusServiceID string          `json:"bonusServiceId"`
		Quantity       int             `json:"quantity"`
		Value          decimal.Decimal `json:"value"`
	}

	Revenue struct {
		Main        decimal.Decimal `json:"mainRevenue"`
		Bonus       decimal.Decimal `json:"bonusRevenue"`
		BonusDetail []BonusLine     `json:"bonusDetail"`
		Conditions  Conditions      `json:"conditions,omitempty"`
	}
)

// Total is main plus bonus revenue.
func (r Revenue) Total() decimal.Decimal {
	return r.Main.Add(r.Bonus)
}

// Sanitize returns a copy of entry with negative quantities set to 0 and
// every enabled bonus quantity capped at its main service quantity.
// The returned conditions describe each correction made.
func Sanitize(entry core.DailyEntry) (core.DailyEntry, Conditions) {
	out := entry.Clone()
	var conds Conditions
	if out.ServiceQuantities == nil {
		out.ServiceQuantities = map[string]core.Quantity{}
	}
	for _, id := range sortedKeys(out.ServiceQuantities) {
		if q := out.ServiceQuantities[id]; q < 0 {
			conds = append(conds, Condition{
				Kind: InvalidQuantity, Date: entry.Date, EmployeeID: entry.EmployeeID, ServiceID: id,
				Detail: fmt.Sprintf("quantity %d set to 0", q),
			})
			out.ServiceQuantities[id] = 0
		}
	}
	for _, main := range sortedKeys(out.Bonuses) {
		claims := out.Bonuses[main]
		limit := out.ServiceQuantities[main]
		for _, bonus := range sortedKeys(claims) {
			c := claims[bonus]
			if c.Quantity < 0 {
				conds = append(conds, Condition{
					Kind: InvalidQuantity, Date: entry.Date, EmployeeID: entry.EmployeeID, ServiceID: bonus,
					Detail: fmt.Sprintf("bonus quantity %d set to 0", c.Quantity),
				})
				c.Quantity = 0
			}
			if c.Enabled && c.Quantity > limit {
				conds = append(conds, Condition{
					Kind: BonusExceedsMain, Date: entry.Date, EmployeeID: entry.EmployeeID, ServiceID: bonus,
					Detail: fmt.Sprintf("bonus quantity %d capped at %s quantity %d", c.Quantity, main, limit),
				})
				c.Quantity = limit
			}
			claims[bonus] = c
		}
	}
	return out, conds
}

// ComputeEntryRevenue prices an entry against the catalog. It depends only
// on the entry itself, never on the employee's role or sibling entries.
// Unknown services contribute zero and are reported as MissingReference, as
// are bonusable services counted as main work and bonus claims that do not
// pair a bonusable add-on with a main service.
func ComputeEntryRevenue(entry core.DailyEntry, cat *catalog.Catalog) Revenue {
	clean, conds := Sanitize(entry)
	rev := Revenue{
		Main:        decimal.Zero,
		Bonus:       decimal.Zero,
		BonusDetail: []BonusLine{},
	}

	for _, id := range sortedKeys(clean.ServiceQuantities) {
		q := clean.ServiceQuantities[id]
		if q == 0 {
			continue
		}
		svc, ok := cat.Service(id)
		if !ok {
			conds = append(conds, Condition{
				Kind: MissingReference, Date: entry.Date, EmployeeID: entry.EmployeeID, ServiceID: id,
				Detail: "service not in catalog",
			})
			continue
		}
		if svc.Bonusable {
			conds = append(conds, Condition{
				Kind: MissingReference, Date: entry.Date, EmployeeID: entry.EmployeeID, ServiceID: id,
				Detail: "bonusable service recorded as main service",
			})
			continue
		}
		rev.Main = rev.Main.Add(svc.Price.Mul(decimal.NewFromInt(int64(q))))
	}

	for _, main := range sortedKeys(clean.Bonuses) {
		claims := clean.Bonuses[main]
		mainSvc, mainKnown := cat.Service(main)
		for _, bonus := range sortedKeys(claims) {
			c := claims[bonus]
			if !c.Enabled || c.Quantity <= 0 {
				continue
			}
			if mainKnown && mainSvc.Bonusable {
				conds = append(conds, Condition{
					Kind: MissingReference, Date: entry.Date, EmployeeID: entry.EmployeeID, ServiceID: bonus,
					Detail: fmt.Sprintf("%s is not a main service", main),
				})
				continue
			}
			svc, ok := cat.Service(bonus)
			if !ok {
				conds = append(conds, Condition{
					Kind: MissingReference, Date: entry.Date, EmployeeID: entry.EmployeeID, ServiceID: bonus,
					Detail: "bonus service not in catalog",
				})
				continue
			}
			if !svc.Bonusable {
				conds = append(conds, Condition{
					Kind: MissingReference, Date: entry.Date, EmployeeID: entry.EmployeeID, ServiceID: bonus,
					Detail: "service is not bonusable",
				})
				continue
			}
			line := BonusLine{
				MainServiceID:  main,
				BonusServiceID: bonus,
				Quantity:       c.Quantity.Int(),
				Value:          svc.Price.Mul(decimal.NewFromInt(int64(c.Quantity))),
			}
			rev.BonusDetail = append(rev.BonusDetail, line)
			rev.Bonus = rev.Bonus.Add(line.Value)
		}
	}

	rev.Conditions = conds
	return rev
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
