package models

import (
	"fmt"

	"github.com/mmynk/splitsnap/internal/money"
)

// Receipt represents a purchase whose items are split among group members.
type Receipt struct {
	// ID is the unique identifier for the receipt (UUID format).
	ID string

	// GroupID is the owning group. Receipts without a group can be
	// previewed but never enter a ledger.
	GroupID string

	// Merchant is an optional label (e.g., "Trader Joe's").
	Merchant string

	// Items are the line items, in the order they appear on the receipt.
	Items []Item

	// Tax is the tax amount for the whole receipt.
	Tax money.Cents

	// Tip is the optional tip amount for the whole receipt.
	Tip money.Cents

	// Total is the amount charged. It must equal the sum of line costs
	// plus tax and tip; this is checked when the receipt is finalized.
	Total money.Cents

	// PayerID is the member who paid the merchant. Empty means the
	// creator paid.
	PayerID string

	// CreatedBy is the member who entered the receipt.
	CreatedBy string

	// CreatedAt is the Unix timestamp when the receipt was created.
	CreatedAt int64

	// Finalized is set once the receipt passed validation and entered the
	// group ledger.
	Finalized bool
}

// Payer returns the member credited with paying the merchant.
func (r *Receipt) Payer() string {
	if r.PayerID != "" {
		return r.PayerID
	}
	return r.CreatedBy
}

// Item represents a single line item on a receipt.
type Item struct {
	// ID is the unique identifier for the item (UUID format).
	ID string

	// Name is the description of the item (e.g., "Pizza", "Beer").
	Name string

	// UnitPrice is the price of one unit.
	UnitPrice money.Cents

	// Quantity is the number of units. Must be positive.
	Quantity int64

	// Assignees are the members sharing this item, in declaration order.
	// The order decides who absorbs the leftover cent of an uneven split.
	Assignees []string
}

// LineCost returns UnitPrice × Quantity.
func (i *Item) LineCost() (money.Cents, error) {
	cost, err := money.Mul(i.UnitPrice, i.Quantity)
	if err != nil {
		return 0, fmt.Errorf("item %q: %w", i.Name, err)
	}
	return cost, nil
}
