// Package ledger maintains net member balances for a group from its
// finalized receipts and recorded settlements.
//
// A Group is not safe for concurrent use. Callers serialize mutations per
// group (see service.LedgerService) and rebuild from durable history rather
// than keeping a Group alive across requests.
package ledger

import (
	"fmt"
	"maps"
	"slices"

	"github.com/mmynk/splitsnap/internal/calculator"
	"github.com/mmynk/splitsnap/internal/models"
	"github.com/mmynk/splitsnap/internal/money"
)

// receiptEffect is what a receipt contributed to the balances, kept so an
// edit can be reverted exactly before the new version is applied.
type receiptEffect struct {
	payer string
	alloc *calculator.Allocation
}

// Group is the ledger of a single group.
//
// Balance convention: positive means the member is owed money by the group,
// negative means the member owes. For a receipt with payer P and allocation
// A, balance[P] += total - A[P] and balance[m] -= A[m] for every other m.
type Group struct {
	id string

	members map[string]bool
	// former holds members referenced by replayed history who are no longer
	// in the group.
	former map[string]bool

	balances    map[string]money.Cents
	receipts    map[string]receiptEffect
	settlements []models.Settlement
	byID        map[string]int
	// resolved maps a pending settlement id to the record superseding it.
	resolved map[string]string
}

// New creates an empty ledger for a group.
func New(groupID string, members []string) *Group {
	g := &Group{
		id:       groupID,
		members:  make(map[string]bool, len(members)),
		former:   make(map[string]bool),
		balances: make(map[string]money.Cents, len(members)),
		receipts: make(map[string]receiptEffect),
		byID:     make(map[string]int),
		resolved: make(map[string]string),
	}
	for _, m := range members {
		if m != "" {
			g.members[m] = true
		}
	}
	return g
}

// Rebuild replays a group's durable history into a fresh ledger. Receipts
// and settlements are expected in creation order.
//
// Settlements are not re-checked for over-settlement: they were validated
// when recorded, and a later receipt edit may legitimately leave an old
// payment larger than the current debt. Members who appear in history but
// have since left the group are admitted as former members.
func Rebuild(groupID string, members []string, receipts []*models.Receipt, settlements []*models.Settlement) (*Group, error) {
	g := New(groupID, members)
	for _, r := range receipts {
		if _, err := g.applyReceipt(r, true); err != nil {
			return nil, fmt.Errorf("failed to replay receipt %s: %w", r.ID, err)
		}
	}
	for _, s := range settlements {
		if err := g.recordSettlement(s, true); err != nil {
			return nil, fmt.Errorf("failed to replay settlement %s: %w", s.ID, err)
		}
	}
	return g, nil
}

// ID returns the group id.
func (g *Group) ID() string { return g.id }

// Members returns the current members sorted by id.
func (g *Group) Members() []string {
	return slices.Sorted(maps.Keys(g.members))
}

// IsMember reports whether m is a current member.
func (g *Group) IsMember(m string) bool { return g.members[m] }

// AddMember adds a member. Adding an existing member is a no-op.
func (g *Group) AddMember(m string) error {
	if m == "" {
		return ErrInvalidMember
	}
	g.members[m] = true
	delete(g.former, m)
	return nil
}

// RemoveMember removes a member whose balance is zero.
func (g *Group) RemoveMember(m string) error {
	if !g.members[m] {
		return fmt.Errorf("%w: %s", ErrUnknownMember, m)
	}
	if b := g.balances[m]; b != 0 {
		return fmt.Errorf("%w: %s has %s", ErrMemberHasBalance, m, b)
	}
	delete(g.members, m)
	delete(g.balances, m)
	return nil
}

// Balances returns a copy of the net balance of every current member, plus
// any former member whose balance is not zero.
func (g *Group) Balances() map[string]money.Cents {
	out := make(map[string]money.Cents, len(g.members))
	for m := range g.members {
		out[m] = g.balances[m]
	}
	for m := range g.former {
		if b := g.balances[m]; b != 0 {
			out[m] = b
		}
	}
	return out
}

// Balance returns the net balance of one member.
func (g *Group) Balance(m string) money.Cents { return g.balances[m] }

// Allocation returns the allocation currently applied for a receipt.
func (g *Group) Allocation(receiptID string) (*calculator.Allocation, bool) {
	e, ok := g.receipts[receiptID]
	return e.alloc, ok
}

// Settlements returns every recorded settlement in recording order.
func (g *Group) Settlements() []models.Settlement {
	return slices.Clone(g.settlements)
}

// Pending returns pending settlements that have not been superseded.
func (g *Group) Pending() []models.Settlement {
	var out []models.Settlement
	for _, s := range g.settlements {
		if s.Status == models.SettlementPending && g.resolved[s.ID] == "" {
			out = append(out, s)
		}
	}
	return out
}

// Plan computes the transfers that would settle the group right now.
// It does not change the ledger.
func (g *Group) Plan() ([]calculator.Transfer, error) {
	return calculator.PlanSettlements(g.Balances())
}

// ApplyReceipt allocates a finalized receipt and applies its effect. If the
// receipt was applied before, its previous effect is reverted first, so
// re-applying an unchanged receipt leaves the balances untouched.
func (g *Group) ApplyReceipt(r *models.Receipt) (*calculator.Allocation, error) {
	return g.applyReceipt(r, false)
}

// RemoveReceipt reverts a receipt's effect. Unknown ids are ignored.
func (g *Group) RemoveReceipt(receiptID string) error {
	prev, ok := g.receipts[receiptID]
	if !ok {
		return nil
	}
	next := g.copyBalances()
	if err := unapply(next, prev); err != nil {
		return err
	}
	g.balances = next
	delete(g.receipts, receiptID)
	g.mustConserve()
	return nil
}

func (g *Group) applyReceipt(r *models.Receipt, replay bool) (*calculator.Allocation, error) {
	if r.GroupID != g.id {
		return nil, fmt.Errorf("%w: receipt %s is in group %q", ErrGroupMismatch, r.ID, r.GroupID)
	}
	payer := r.Payer()
	if payer == "" {
		return nil, fmt.Errorf("%w: receipt %s has no payer", ErrUnknownMember, r.ID)
	}

	alloc, err := calculator.Allocate(r)
	if err != nil {
		return nil, err
	}

	for _, m := range append([]string{payer}, alloc.Order...) {
		if err := g.admit(m, replay); err != nil {
			return nil, fmt.Errorf("receipt %s: %w", r.ID, err)
		}
	}

	next := g.copyBalances()
	if prev, ok := g.receipts[r.ID]; ok {
		if err := unapply(next, prev); err != nil {
			return nil, err
		}
	}
	eff := receiptEffect{payer: payer, alloc: alloc}
	if err := apply(next, eff); err != nil {
		return nil, err
	}

	g.balances = next
	g.receipts[r.ID] = eff
	g.mustConserve()
	return alloc, nil
}

// RecordSettlement validates a settlement and appends it to the ledger.
//
// A settled record moves balances: the payer's balance rises toward zero
// and the receiver's falls toward zero by the same amount. It fails with
// ErrOverSettlement if either party would cross zero. Pending records are
// validated the same way but only move balances once a settled record
// supersedes them. A cancelled record may only supersede a pending one.
func (g *Group) RecordSettlement(s *models.Settlement) error {
	return g.recordSettlement(s, false)
}

func (g *Group) recordSettlement(s *models.Settlement, replay bool) error {
	if s.GroupID != g.id {
		return fmt.Errorf("%w: settlement %s is in group %q", ErrGroupMismatch, s.ID, s.GroupID)
	}
	if err := g.validateSettlement(s); err != nil {
		return err
	}
	for _, m := range []string{s.FromMember, s.ToMember} {
		if err := g.admit(m, replay); err != nil {
			return fmt.Errorf("settlement %s: %w", s.ID, err)
		}
	}

	moves := s.Status == models.SettlementSettled
	if !replay && s.Status != models.SettlementCancelled {
		if err := g.checkOverSettlement(s); err != nil {
			return err
		}
	}

	next := g.balances
	if moves {
		next = g.copyBalances()
		from, err := money.Add(next[s.FromMember], s.Amount)
		if err != nil {
			return err
		}
		to, err := money.Sub(next[s.ToMember], s.Amount)
		if err != nil {
			return err
		}
		next[s.FromMember], next[s.ToMember] = from, to
	}

	g.balances = next
	g.byID[s.ID] = len(g.settlements)
	g.settlements = append(g.settlements, *s)
	if s.Supersedes != "" {
		g.resolved[s.Supersedes] = s.ID
	}
	g.mustConserve()
	return nil
}

func (g *Group) validateSettlement(s *models.Settlement) error {
	if s.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidSettlement)
	}
	if _, dup := g.byID[s.ID]; dup {
		return fmt.Errorf("%w: %s already recorded", ErrInvalidSettlement, s.ID)
	}
	if !s.Status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidSettlement, s.Status)
	}
	if s.Amount <= 0 {
		return fmt.Errorf("%w: amount %s must be positive", ErrInvalidSettlement, s.Amount)
	}
	if s.FromMember == s.ToMember {
		return fmt.Errorf("%w: %s cannot pay themselves", ErrInvalidSettlement, s.FromMember)
	}

	if s.Supersedes == "" {
		if s.Status == models.SettlementCancelled {
			return fmt.Errorf("%w: cancellation must supersede a pending settlement", ErrInvalidSettlement)
		}
		return nil
	}

	idx, ok := g.byID[s.Supersedes]
	if !ok {
		return fmt.Errorf("%w: superseded settlement %s not found", ErrInvalidSettlement, s.Supersedes)
	}
	target := g.settlements[idx]
	if target.Status != models.SettlementPending {
		return fmt.Errorf("%w: %s is %s, only pending settlements can be superseded", ErrInvalidSettlement, target.ID, target.Status)
	}
	if by := g.resolved[target.ID]; by != "" {
		return fmt.Errorf("%w: %s already resolved by %s", ErrInvalidSettlement, target.ID, by)
	}
	if s.Status == models.SettlementPending {
		return fmt.Errorf("%w: a pending settlement cannot supersede another", ErrInvalidSettlement)
	}
	if s.FromMember != target.FromMember || s.ToMember != target.ToMember || s.Amount != target.Amount {
		return fmt.Errorf("%w: %s does not match superseded settlement %s", ErrInvalidSettlement, s.ID, target.ID)
	}
	return nil
}

func (g *Group) checkOverSettlement(s *models.Settlement) error {
	owes := -g.balances[s.FromMember]
	if owes < s.Amount {
		return fmt.Errorf("%w: %s owes %s, cannot pay %s", ErrOverSettlement, s.FromMember, max(owes, 0), s.Amount)
	}
	owed := g.balances[s.ToMember]
	if owed < s.Amount {
		return fmt.Errorf("%w: %s is owed %s, cannot receive %s", ErrOverSettlement, s.ToMember, max(owed, 0), s.Amount)
	}
	return nil
}

// admit checks that m may appear in a record. During replay, members no
// longer in the group are tracked as former members instead of rejected.
func (g *Group) admit(m string, replay bool) error {
	if m == "" {
		return ErrInvalidMember
	}
	if g.members[m] {
		return nil
	}
	if replay {
		g.former[m] = true
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownMember, m)
}

func (g *Group) copyBalances() map[string]money.Cents {
	return maps.Clone(g.balances)
}

// mustConserve panics if the balances do not sum to zero. Money only moves
// between members, so a nonzero sum is a defect in this package.
func (g *Group) mustConserve() {
	var sum money.Cents
	for _, b := range g.balances {
		sum += b
	}
	if sum != 0 {
		panic(fmt.Sprintf("ledger: balances of group %s sum to %s", g.id, sum))
	}
}

func apply(balances map[string]money.Cents, e receiptEffect) error {
	return shift(balances, e, money.Add, money.Sub)
}

func unapply(balances map[string]money.Cents, e receiptEffect) error {
	return shift(balances, e, money.Sub, money.Add)
}

// shift credits the payer with total-A[payer] and debits every other
// member their share, using credit/debit so the same walk can revert.
func shift(balances map[string]money.Cents, e receiptEffect, credit, debit func(a, b money.Cents) (money.Cents, error)) error {
	payerNet := e.alloc.Total - e.alloc.Owed(e.payer)
	v, err := credit(balances[e.payer], payerNet)
	if err != nil {
		return err
	}
	balances[e.payer] = v

	for _, m := range e.alloc.Order {
		if m == e.payer {
			continue
		}
		v, err := debit(balances[m], e.alloc.Owed(m))
		if err != nil {
			return err
		}
		balances[m] = v
	}
	return nil
}
