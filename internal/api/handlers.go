package api

import (
	"fmt"
	"net/http"

	"github.com/mmynk/splitsnap/internal/middleware"
)

func (h *Handler) createGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := h.ledger.CreateGroup(r.Context(), req.Name, req.Members)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupMessage(g))
}

func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.ledger.ListGroups(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := listGroupsResponse{Groups: make([]groupMessage, len(groups))}
	for i, g := range groups {
		resp.Groups[i] = toGroupMessage(g)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getGroup(w http.ResponseWriter, r *http.Request) {
	g, err := h.ledger.GetGroup(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupMessage(g))
}

func (h *Handler) addMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	groupID := r.PathValue("id")
	if err := h.ledger.AddMember(r.Context(), groupID, req.Member); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeGroup(w, r, groupID)
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")
	if err := h.ledger.RemoveMember(r.Context(), groupID, r.PathValue("member")); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeGroup(w, r, groupID)
}

func (h *Handler) writeGroup(w http.ResponseWriter, r *http.Request, groupID string) {
	g, err := h.ledger.GetGroup(r.Context(), groupID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupMessage(g))
}

func (h *Handler) previewReceipt(w http.ResponseWriter, r *http.Request) {
	var req receiptMessage
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	alloc, err := h.ledger.PreviewAllocation(req.toModel())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationMessage(alloc))
}

// finalizeReceipt creates or edits the receipt named by the path. The
// authenticated member, when known, is recorded as creator.
func (h *Handler) finalizeReceipt(w http.ResponseWriter, r *http.Request) {
	var req receiptMessage
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	if req.ID != "" && req.ID != id {
		writeError(w, r, fmt.Errorf("%w: body id %q does not match path id %q", errBadRequest, req.ID, id))
		return
	}

	receipt := req.toModel()
	receipt.ID = id
	if member := middleware.GetMemberID(r.Context()); member != "" {
		receipt.CreatedBy = member
	}

	alloc, err := h.ledger.FinalizeReceipt(r.Context(), receipt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receiptResponse{
		Receipt:    toReceiptMessage(receipt),
		Allocation: toAllocationMessage(alloc),
	})
}

func (h *Handler) getReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, alloc, err := h.ledger.GetReceipt(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receiptResponse{
		Receipt:    toReceiptMessage(receipt),
		Allocation: toAllocationMessage(alloc),
	})
}

func (h *Handler) recordSettlement(w http.ResponseWriter, r *http.Request) {
	var req settlementMessage
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s := req.toModel(r.PathValue("id"))
	if member := middleware.GetMemberID(r.Context()); member != "" {
		s.CreatedBy = member
	}

	recorded, err := h.ledger.RecordSettlement(r.Context(), s)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSettlementMessage(recorded))
}

func (h *Handler) confirmSettlement(w http.ResponseWriter, r *http.Request) {
	s, err := h.ledger.ConfirmSettlement(r.Context(), r.PathValue("id"), r.PathValue("sid"), middleware.GetMemberID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSettlementMessage(s))
}

func (h *Handler) cancelSettlement(w http.ResponseWriter, r *http.Request) {
	s, err := h.ledger.CancelSettlement(r.Context(), r.PathValue("id"), r.PathValue("sid"), middleware.GetMemberID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSettlementMessage(s))
}

func (h *Handler) listSettlements(w http.ResponseWriter, r *http.Request) {
	settlements, err := h.ledger.ListSettlements(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := listSettlementsResponse{Settlements: make([]settlementMessage, len(settlements))}
	for i := range settlements {
		resp.Settlements[i] = toSettlementMessage(&settlements[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getBalances(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")
	balances, err := h.ledger.GetBalances(r.Context(), groupID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalancesResponse(groupID, balances))
}

func (h *Handler) planSettlements(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")
	plan, err := h.ledger.PlanSettlements(r.Context(), groupID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanResponse(groupID, plan))
}
