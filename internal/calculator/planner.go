package calculator

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/mmynk/splitsnap/internal/money"
)

// Transfer is one payment in a settlement plan.
type Transfer struct {
	From   string // Member who owes
	To     string // Member who is owed
	Amount money.Cents
}

// PlanSettlements computes transfers that bring every balance to zero.
// Balances are positive for members owed money and negative for members
// who owe; they must sum to zero.
//
// Algorithm (greedy, at most n-1 transfers for n nonzero balances):
//   - split members into creditors and debtors, ignoring zero balances
//   - repeatedly match the largest creditor with the largest debtor and
//     transfer the smaller of the two amounts
//   - push back whichever side still has a remainder
//
// Equal amounts are ordered by member id so the plan is deterministic.
// This is a heuristic: it is optimal in practice but not guaranteed to find
// the minimum number of transfers.
func PlanSettlements(balances map[string]money.Cents) ([]Transfer, error) {
	var sum money.Cents
	creditors := &positions{}
	debtors := &positions{}
	for member, bal := range balances {
		var err error
		if sum, err = money.Add(sum, bal); err != nil {
			return nil, fmt.Errorf("failed to sum balances: %w", err)
		}
		switch {
		case bal > 0:
			*creditors = append(*creditors, position{member: member, amount: bal})
		case bal == math.MinInt64:
			return nil, fmt.Errorf("failed to plan for %s: %w", member, money.ErrAmountOverflow)
		case bal < 0:
			*debtors = append(*debtors, position{member: member, amount: -bal})
		}
	}
	if sum != 0 {
		return nil, fmt.Errorf("%w: off by %s", ErrUnbalanced, sum)
	}

	heap.Init(creditors)
	heap.Init(debtors)

	var transfers []Transfer
	for creditors.Len() > 0 && debtors.Len() > 0 {
		c := heap.Pop(creditors).(position)
		d := heap.Pop(debtors).(position)

		amount := min(c.amount, d.amount)
		transfers = append(transfers, Transfer{From: d.member, To: c.member, Amount: amount})

		c.amount -= amount
		d.amount -= amount
		if c.amount > 0 {
			heap.Push(creditors, c)
		}
		if d.amount > 0 {
			heap.Push(debtors, d)
		}
	}

	if creditors.Len() != 0 || debtors.Len() != 0 {
		panic(fmt.Sprintf("calculator: settlement plan left %d creditors and %d debtors", creditors.Len(), debtors.Len()))
	}
	return transfers, nil
}

// ApplyTransfers returns a copy of balances with every transfer applied:
// the payer moves up by the amount and the receiver moves down.
func ApplyTransfers(balances map[string]money.Cents, transfers []Transfer) (map[string]money.Cents, error) {
	out := make(map[string]money.Cents, len(balances))
	for m, b := range balances {
		out[m] = b
	}
	for _, t := range transfers {
		from, err := money.Add(out[t.From], t.Amount)
		if err != nil {
			return nil, err
		}
		to, err := money.Sub(out[t.To], t.Amount)
		if err != nil {
			return nil, err
		}
		out[t.From], out[t.To] = from, to
	}
	return out, nil
}

// position is a member's absolute outstanding amount on one side of the
// ledger.
type position struct {
	member string
	amount money.Cents
}

// positions is a max-heap by amount, then member id ascending.
type positions []position

func (p positions) Len() int { return len(p) }

func (p positions) Less(i, j int) bool {
	if p[i].amount != p[j].amount {
		return p[i].amount > p[j].amount
	}
	return p[i].member < p[j].member
}

func (p positions) Swap(i, j int) { p[i], p[j] = p[j], p[i] }

func (p *positions) Push(x any) { *p = append(*p, x.(position)) }

func (p *positions) Pop() any {
	old := *p
	n := len(old)
	x := old[n-1]
	*p = old[:n-1]
	return x
}
