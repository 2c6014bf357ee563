// Package money provides fixed-point integer-cent arithmetic.
//
// Amounts are never represented as floating point. All operations that can
// leave the signed 64-bit range report ErrAmountOverflow instead of wrapping.
package money

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"sort"
)

var (
	// ErrAmountOverflow is returned when an operation leaves the int64 range.
	ErrAmountOverflow = errors.New("amount overflow")

	// ErrInvalidDivision is returned for a negative total or a non-positive
	// number of shares.
	ErrInvalidDivision = errors.New("invalid division")
)

// Cents is an amount of money in the smallest currency unit.
type Cents int64

// String renders the amount with two decimals, e.g. "12.34" or "-0.05".
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		if v == math.MinInt64 {
			// -MinInt64 is not representable; format via uint64.
			u := uint64(math.MaxInt64) + 1
			return fmt.Sprintf("-%d.%02d", u/100, u%100)
		}
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Add returns a + b.
func Add(a, b Cents) (Cents, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, fmt.Errorf("%w: %d + %d", ErrAmountOverflow, a, b)
	}
	return a + b, nil
}

// Sub returns a - b.
func Sub(a, b Cents) (Cents, error) {
	if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
		return 0, fmt.Errorf("%w: %d - %d", ErrAmountOverflow, a, b)
	}
	return a - b, nil
}

// Mul returns a * n.
func Mul(a Cents, n int64) (Cents, error) {
	if a == 0 || n == 0 {
		return 0, nil
	}
	p := int64(a) * n
	if p/n != int64(a) || (a == -1 && n == math.MinInt64) || (n == -1 && a == math.MinInt64) {
		return 0, fmt.Errorf("%w: %d * %d", ErrAmountOverflow, a, n)
	}
	return Cents(p), nil
}

// Sum adds all values, failing on the first overflow.
func Sum(values ...Cents) (Cents, error) {
	var total Cents
	for _, v := range values {
		var err error
		if total, err = Add(total, v); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// DivideFairly splits total into n shares that sum exactly to total and
// differ from each other by at most one cent. The first total%n shares carry
// the extra cent, so callers control who absorbs the remainder through the
// order in which they map shares back to recipients.
func DivideFairly(total Cents, n int) ([]Cents, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d shares", ErrInvalidDivision, n)
	}
	if total < 0 {
		return nil, fmt.Errorf("%w: negative total %s", ErrInvalidDivision, total)
	}

	base := total / Cents(n)
	remainder := int(total % Cents(n))

	shares := make([]Cents, n)
	for i := range shares {
		shares[i] = base
		if i < remainder {
			shares[i]++
		}
	}
	return shares, nil
}

// Apportion splits total across len(weights) recipients in proportion to
// their weights using the largest remainder method. Each recipient first
// gets floor(total*w/W); the cents left over go one each to the recipients
// with the largest fractional remainders, ties broken by index.
//
// If every weight is zero the total is divided with DivideFairly instead.
func Apportion(total Cents, weights []Cents) ([]Cents, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("%w: no recipients", ErrInvalidDivision)
	}
	if total < 0 {
		return nil, fmt.Errorf("%w: negative total %s", ErrInvalidDivision, total)
	}
	for _, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("%w: negative weight %s", ErrInvalidDivision, w)
		}
	}

	weightSum, err := Sum(weights...)
	if err != nil {
		return nil, err
	}
	if weightSum == 0 {
		return DivideFairly(total, len(weights))
	}

	shares := make([]Cents, len(weights))
	remainders := make([]uint64, len(weights))
	var allotted Cents
	for i, w := range weights {
		// total*w can exceed 64 bits; total < 2^63 and w <= weightSum keep
		// hi below the divisor, so Div64 cannot panic.
		hi, lo := bits.Mul64(uint64(total), uint64(w))
		q, r := bits.Div64(hi, lo, uint64(weightSum))
		shares[i] = Cents(q)
		remainders[i] = r
		allotted += Cents(q)
	}

	left := int(total - allotted)
	if left == 0 {
		return shares, nil
	}

	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})
	for _, idx := range order[:left] {
		shares[idx]++
	}
	return shares, nil
}
