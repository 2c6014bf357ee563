// Package calculator turns receipts into per-member allocations and
// balances into settlement plans. Everything here is pure: no storage, no
// locking, no logging.
package calculator

import (
	"fmt"
	"slices"

	"github.com/mmynk/splitsnap/internal/models"
	"github.com/mmynk/splitsnap/internal/money"
)

// Share is one member's part of a receipt.
type Share struct {
	// Items is the member's fair share of the line items they were assigned.
	Items money.Cents

	// SharedCost is the member's proportional share of tax and tip.
	SharedCost money.Cents

	// Total is Items + SharedCost.
	Total money.Cents
}

// Allocation maps each member on a receipt to the cents they owe for it.
// The shares always sum exactly to Total.
type Allocation struct {
	ReceiptID string
	Total     money.Cents

	// Order lists members by first appearance on the receipt. It is the
	// tie-break order used when apportioning tax and tip.
	Order []string

	Shares map[string]Share
}

// Owed returns what member owes for the receipt, zero if not on it.
func (a *Allocation) Owed(member string) money.Cents {
	return a.Shares[member].Total
}

// Equal reports whether both allocations assign identical shares.
func (a *Allocation) Equal(b *Allocation) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Total != b.Total || !slices.Equal(a.Order, b.Order) || len(a.Shares) != len(b.Shares) {
		return false
	}
	for m, s := range a.Shares {
		if b.Shares[m] != s {
			return false
		}
	}
	return true
}

// Allocate computes how much each assignee owes for a receipt.
//
// Algorithm:
//   - each line cost (unit price × quantity) is divided fairly among its
//     assignees, leftover cents going to assignees in declaration order
//   - per-member item shares are summed into subtotals
//   - tax + tip is apportioned by subtotal with the largest remainder
//     method, ties broken by first appearance on the receipt
//
// The receipt is validated first; Allocate never coerces invalid input.
func Allocate(r *models.Receipt) (*Allocation, error) {
	if err := validate(r); err != nil {
		return nil, err
	}

	alloc := &Allocation{
		ReceiptID: r.ID,
		Total:     r.Total,
		Shares:    make(map[string]Share),
	}

	subtotals := make(map[string]money.Cents)
	var itemsTotal money.Cents
	for i := range r.Items {
		item := &r.Items[i]
		cost, err := item.LineCost()
		if err != nil {
			return nil, fmt.Errorf("failed to price item %d: %w", i, err)
		}
		if itemsTotal, err = money.Add(itemsTotal, cost); err != nil {
			return nil, fmt.Errorf("failed to sum items: %w", err)
		}

		assignees := dedupe(item.Assignees)
		parts, err := money.DivideFairly(cost, len(assignees))
		if err != nil {
			return nil, fmt.Errorf("failed to split item %d: %w", i, err)
		}
		for j, member := range assignees {
			if _, seen := subtotals[member]; !seen {
				alloc.Order = append(alloc.Order, member)
			}
			subtotals[member] += parts[j]
		}
	}

	pool, err := money.Add(r.Tax, r.Tip)
	if err != nil {
		return nil, fmt.Errorf("failed to sum tax and tip: %w", err)
	}
	grand, err := money.Add(itemsTotal, pool)
	if err != nil {
		return nil, fmt.Errorf("failed to sum receipt: %w", err)
	}
	if grand != r.Total {
		return nil, fmt.Errorf("%w: items %s + tax %s + tip %s = %s, receipt says %s",
			ErrTotalMismatch, itemsTotal, r.Tax, r.Tip, grand, r.Total)
	}

	if len(alloc.Order) == 0 {
		return alloc, nil
	}

	weights := make([]money.Cents, len(alloc.Order))
	for i, member := range alloc.Order {
		weights[i] = subtotals[member]
	}
	shared, err := money.Apportion(pool, weights)
	if err != nil {
		return nil, fmt.Errorf("failed to apportion tax and tip: %w", err)
	}

	var sum money.Cents
	for i, member := range alloc.Order {
		s := Share{
			Items:      subtotals[member],
			SharedCost: shared[i],
			Total:      subtotals[member] + shared[i],
		}
		alloc.Shares[member] = s
		sum += s.Total
	}

	if sum != r.Total {
		panic(fmt.Sprintf("calculator: allocation of receipt %s sums to %s, want %s", r.ID, sum, r.Total))
	}
	return alloc, nil
}

func validate(r *models.Receipt) error {
	if r.Tax < 0 || r.Tip < 0 || r.Total < 0 {
		return fmt.Errorf("%w: tax %s, tip %s, total %s", ErrInvalidQuantityOrPrice, r.Tax, r.Tip, r.Total)
	}
	if len(r.Items) == 0 {
		if r.Total != 0 || r.Tax != 0 || r.Tip != 0 {
			return fmt.Errorf("%w: receipt without items must total zero, got %s", ErrTotalMismatch, r.Total)
		}
		return nil
	}
	for i, item := range r.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d (%q) has quantity %d", ErrInvalidQuantityOrPrice, i, item.Name, item.Quantity)
		}
		if item.UnitPrice < 0 {
			return fmt.Errorf("%w: item %d (%q) has price %s", ErrInvalidQuantityOrPrice, i, item.Name, item.UnitPrice)
		}
		if len(dedupe(item.Assignees)) == 0 {
			return fmt.Errorf("%w: item %d (%q)", ErrUnassignedItem, i, item.Name)
		}
	}
	return nil
}

// dedupe drops repeated and empty member ids, keeping first occurrences.
func dedupe(members []string) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		if m != "" && !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	return out
}
