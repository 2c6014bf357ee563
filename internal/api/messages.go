package api

import (
	"sort"

	"github.com/mmynk/splitsnap/internal/calculator"
	"github.com/mmynk/splitsnap/internal/models"
	"github.com/mmynk/splitsnap/internal/money"
)

// Amounts on the wire are integer cents.

type groupMessage struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Members   []string `json:"members"`
	CreatedAt int64    `json:"created_at"`
}

type createGroupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type addMemberRequest struct {
	Member string `json:"member"`
}

type listGroupsResponse struct {
	Groups []groupMessage `json:"groups"`
}

type itemMessage struct {
	ID        string      `json:"id,omitempty"`
	Name      string      `json:"name"`
	UnitPrice money.Cents `json:"unit_price"`
	Quantity  int64       `json:"quantity"`
	Assignees []string    `json:"assignees"`
}

type receiptMessage struct {
	ID        string        `json:"id,omitempty"`
	GroupID   string        `json:"group_id,omitempty"`
	Merchant  string        `json:"merchant,omitempty"`
	Items     []itemMessage `json:"items"`
	Tax       money.Cents   `json:"tax"`
	Tip       money.Cents   `json:"tip"`
	Total     money.Cents   `json:"total"`
	PayerID   string        `json:"payer_id,omitempty"`
	CreatedBy string        `json:"created_by,omitempty"`
	CreatedAt int64         `json:"created_at,omitempty"`
	Finalized bool          `json:"finalized"`
}

type shareMessage struct {
	Member     string      `json:"member"`
	Items      money.Cents `json:"items"`
	SharedCost money.Cents `json:"shared_cost"`
	Total      money.Cents `json:"total"`
}

type allocationMessage struct {
	ReceiptID string         `json:"receipt_id,omitempty"`
	Total     money.Cents    `json:"total"`
	Shares    []shareMessage `json:"shares"`
}

type receiptResponse struct {
	Receipt    receiptMessage     `json:"receipt"`
	Allocation *allocationMessage `json:"allocation,omitempty"`
}

type settlementMessage struct {
	ID         string                  `json:"id,omitempty"`
	GroupID    string                  `json:"group_id,omitempty"`
	From       string                  `json:"from"`
	To         string                  `json:"to"`
	Amount     money.Cents             `json:"amount"`
	Status     models.SettlementStatus `json:"status,omitempty"`
	Supersedes string                  `json:"supersedes,omitempty"`
	CreatedAt  int64                   `json:"created_at,omitempty"`
	CreatedBy  string                  `json:"created_by,omitempty"`
	Note       string                  `json:"note,omitempty"`
}

type listSettlementsResponse struct {
	Settlements []settlementMessage `json:"settlements"`
}

type balanceMessage struct {
	Member  string      `json:"member"`
	Balance money.Cents `json:"balance"`
}

type balancesResponse struct {
	GroupID  string           `json:"group_id"`
	Balances []balanceMessage `json:"balances"`
}

type transferMessage struct {
	From   string      `json:"from"`
	To     string      `json:"to"`
	Amount money.Cents `json:"amount"`
}

type planResponse struct {
	GroupID   string            `json:"group_id"`
	Transfers []transferMessage `json:"transfers"`
}

func toGroupMessage(g *models.Group) groupMessage {
	members := g.Members
	if members == nil {
		members = []string{}
	}
	return groupMessage{ID: g.ID, Name: g.Name, Members: members, CreatedAt: g.CreatedAt}
}

func (m *receiptMessage) toModel() *models.Receipt {
	items := make([]models.Item, len(m.Items))
	for i, it := range m.Items {
		items[i] = models.Item{
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Assignees: it.Assignees,
		}
	}
	return &models.Receipt{
		ID:        m.ID,
		GroupID:   m.GroupID,
		Merchant:  m.Merchant,
		Items:     items,
		Tax:       m.Tax,
		Tip:       m.Tip,
		Total:     m.Total,
		PayerID:   m.PayerID,
		CreatedBy: m.CreatedBy,
	}
}

func toReceiptMessage(r *models.Receipt) receiptMessage {
	items := make([]itemMessage, len(r.Items))
	for i, it := range r.Items {
		assignees := it.Assignees
		if assignees == nil {
			assignees = []string{}
		}
		items[i] = itemMessage{
			ID:        it.ID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Assignees: assignees,
		}
	}
	return receiptMessage{
		ID:        r.ID,
		GroupID:   r.GroupID,
		Merchant:  r.Merchant,
		Items:     items,
		Tax:       r.Tax,
		Tip:       r.Tip,
		Total:     r.Total,
		PayerID:   r.PayerID,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
		Finalized: r.Finalized,
	}
}

// toAllocationMessage lists shares in first-appearance order.
func toAllocationMessage(a *calculator.Allocation) *allocationMessage {
	if a == nil {
		return nil
	}
	shares := make([]shareMessage, 0, len(a.Order))
	for _, m := range a.Order {
		s := a.Shares[m]
		shares = append(shares, shareMessage{Member: m, Items: s.Items, SharedCost: s.SharedCost, Total: s.Total})
	}
	return &allocationMessage{ReceiptID: a.ReceiptID, Total: a.Total, Shares: shares}
}

func (m *settlementMessage) toModel(groupID string) *models.Settlement {
	return &models.Settlement{
		GroupID:    groupID,
		FromMember: m.From,
		ToMember:   m.To,
		Amount:     m.Amount,
		Status:     m.Status,
		Supersedes: m.Supersedes,
		CreatedBy:  m.CreatedBy,
		Note:       m.Note,
	}
}

func toSettlementMessage(s *models.Settlement) settlementMessage {
	return settlementMessage{
		ID:         s.ID,
		GroupID:    s.GroupID,
		From:       s.FromMember,
		To:         s.ToMember,
		Amount:     s.Amount,
		Status:     s.Status,
		Supersedes: s.Supersedes,
		CreatedAt:  s.CreatedAt,
		CreatedBy:  s.CreatedBy,
		Note:       s.Note,
	}
}

// toBalancesResponse lists balances sorted by member id.
func toBalancesResponse(groupID string, balances map[string]money.Cents) balancesResponse {
	out := make([]balanceMessage, 0, len(balances))
	for m, b := range balances {
		out = append(out, balanceMessage{Member: m, Balance: b})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Member < out[j].Member })
	return balancesResponse{GroupID: groupID, Balances: out}
}

func toPlanResponse(groupID string, transfers []calculator.Transfer) planResponse {
	out := make([]transferMessage, len(transfers))
	for i, t := range transfers {
		out[i] = transferMessage{From: t.From, To: t.To, Amount: t.Amount}
	}
	return planResponse{GroupID: groupID, Transfers: out}
}
