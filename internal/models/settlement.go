package models

import "github.com/mmynk/splitsnap/internal/money"

// SettlementStatus is the state carried by a settlement record.
type SettlementStatus string

const (
	// SettlementPending records an intended payment. It does not move
	// balances until superseded by a settled record.
	SettlementPending SettlementStatus = "pending"

	// SettlementSettled records a completed payment.
	SettlementSettled SettlementStatus = "settled"

	// SettlementCancelled withdraws a pending record.
	SettlementCancelled SettlementStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s SettlementStatus) Valid() bool {
	switch s {
	case SettlementPending, SettlementSettled, SettlementCancelled:
		return true
	}
	return false
}

// Settlement represents a payment between group members to clear debts.
// Settlements are never mutated once recorded.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// GroupID is the group this settlement belongs to.
	GroupID string

	// FromMember is the member who paid (debtor settling up).
	FromMember string

	// ToMember is the member who received payment (creditor being paid).
	ToMember string

	// Amount is the payment amount. Always positive.
	Amount money.Cents

	// Status is pending, settled or cancelled.
	Status SettlementStatus

	// Supersedes is the id of an earlier pending settlement this record
	// resolves. Empty for standalone records.
	Supersedes string

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64

	// CreatedBy is the member who recorded this settlement.
	CreatedBy string

	// Note is an optional description for the settlement.
	Note string
}
