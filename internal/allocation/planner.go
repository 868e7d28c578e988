// Package allocation decides which inventory rows a booking draws from and
// applies that decision transactionally. Planning is pure and advisory; the
// executor's in-transaction re-validation is the actual correctness
// guarantee.
package allocation

import (
	"sort"

	"hemobank/internal/inventory"
	"hemobank/pkg/domain"
	dErrors "hemobank/pkg/domain-errors"
)

// Draw is one planned deduction: take Units from the record at one bank.
type Draw struct {
	RecordID domain.InventoryRecordID
	BankID   domain.BankID
	Units    int
}

// Plan is an ordered list of draws whose units sum to the requested quantity.
type Plan struct {
	Group    domain.BloodGroup
	Quantity int
	Draws    []Draw
}

// BuildPlan greedily selects inventory rows for a (group, quantity) request
// against a read-only snapshot:
//
//  1. The central bank's row, when present with stock, is always drawn first
//     regardless of its level relative to other banks.
//  2. The remainder comes from non-central rows in descending unit order
//     (ties broken by record id), each drained as far as needed.
//
// The plan is all-or-nothing: when the snapshot cannot cover the quantity the
// whole request fails with insufficient_stock and nothing is planned.
// Greedy depletion keeps the deduction list short and favors the central
// reserve over fragmenting many small bank balances.
func BuildPlan(group domain.BloodGroup, quantity int, centralBank domain.BankID, snapshot []*inventory.Record) (Plan, error) {
	if quantity <= 0 {
		return Plan{}, dErrors.New(dErrors.CodeInvalidInput, "quantity must be greater than zero")
	}

	var (
		central *inventory.Record
		others  []*inventory.Record
		total   int
	)
	for _, rec := range snapshot {
		if rec.Group != group || rec.Units <= 0 {
			continue
		}
		total += rec.Units
		if !centralBank.IsNil() && rec.BankID == centralBank {
			central = rec
			continue
		}
		others = append(others, rec)
	}

	if total < quantity {
		return Plan{}, dErrors.Newf(dErrors.CodeInsufficientStock,
			"requested %d units of %s, %d available", quantity, group, total)
	}

	plan := Plan{Group: group, Quantity: quantity}
	remaining := quantity

	if central != nil {
		take := min(central.Units, remaining)
		plan.Draws = append(plan.Draws, Draw{RecordID: central.ID, BankID: central.BankID, Units: take})
		remaining -= take
	}

	sort.Slice(others, func(i, j int) bool {
		if others[i].Units != others[j].Units {
			return others[i].Units > others[j].Units
		}
		return others[i].ID.String() < others[j].ID.String()
	})

	for _, rec := range others {
		if remaining == 0 {
			break
		}
		take := min(rec.Units, remaining)
		plan.Draws = append(plan.Draws, Draw{RecordID: rec.ID, BankID: rec.BankID, Units: take})
		remaining -= take
	}

	return plan, nil
}
