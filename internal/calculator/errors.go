package calculator

import "errors"

var (
	// ErrUnassignedItem is returned when an item has no assignees.
	ErrUnassignedItem = errors.New("unassigned item")

	// ErrTotalMismatch is returned when a receipt total differs from the sum
	// of its line costs, tax and tip.
	ErrTotalMismatch = errors.New("total mismatch")

	// ErrInvalidQuantityOrPrice is returned for a non-positive quantity or a
	// negative price, tax or tip.
	ErrInvalidQuantityOrPrice = errors.New("invalid quantity or price")

	// ErrUnbalanced is returned when balances handed to the planner do not
	// sum to zero.
	ErrUnbalanced = errors.New("balances do not sum to zero")
)
