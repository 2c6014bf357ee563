package ledger

import (
	"errors"

	"github.com/mmynk/splitsnap/internal/calculator"
	"github.com/mmynk/splitsnap/internal/money"
)

var (
	// allocation errors, re-exported so callers can match on one package
	ErrAmountOverflow         = money.ErrAmountOverflow
	ErrUnassignedItem         = calculator.ErrUnassignedItem
	ErrTotalMismatch          = calculator.ErrTotalMismatch
	ErrInvalidQuantityOrPrice = calculator.ErrInvalidQuantityOrPrice

	// membership errors
	ErrUnknownMember    = errors.New("unknown member")
	ErrInvalidMember    = errors.New("invalid member id")
	ErrMemberHasBalance = errors.New("member has outstanding balance")
	ErrGroupMismatch    = errors.New("record belongs to another group")

	// settlement errors
	ErrOverSettlement    = errors.New("over-settlement")
	ErrInvalidSettlement = errors.New("invalid settlement")
)
