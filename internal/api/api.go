// Package api exposes the ledger service as a JSON HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mmynk/splitsnap/internal/calculator"
	"github.com/mmynk/splitsnap/internal/ledger"
	"github.com/mmynk/splitsnap/internal/models"
	"github.com/mmynk/splitsnap/internal/money"
	"github.com/mmynk/splitsnap/internal/service"
	"github.com/mmynk/splitsnap/internal/storage"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Ledger is the set of service operations the API serves.
type Ledger interface {
	CreateGroup(ctx context.Context, name string, members []string) (*models.Group, error)
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	ListGroups(ctx context.Context) ([]*models.Group, error)
	AddMember(ctx context.Context, groupID, member string) error
	RemoveMember(ctx context.Context, groupID, member string) error

	PreviewAllocation(r *models.Receipt) (*calculator.Allocation, error)
	FinalizeReceipt(ctx context.Context, r *models.Receipt) (*calculator.Allocation, error)
	GetReceipt(ctx context.Context, receiptID string) (*models.Receipt, *calculator.Allocation, error)

	RecordSettlement(ctx context.Context, s *models.Settlement) (*models.Settlement, error)
	ConfirmSettlement(ctx context.Context, groupID, pendingID, by string) (*models.Settlement, error)
	CancelSettlement(ctx context.Context, groupID, pendingID, by string) (*models.Settlement, error)
	ListSettlements(ctx context.Context, groupID string) ([]models.Settlement, error)

	GetBalances(ctx context.Context, groupID string) (map[string]money.Cents, error)
	PlanSettlements(ctx context.Context, groupID string) ([]calculator.Transfer, error)
}

var _ Ledger = (*service.LedgerService)(nil)

// Handler serves the /v1 routes.
type Handler struct {
	ledger Ledger
	mux    *http.ServeMux
}

// NewHandler registers every route on a fresh ServeMux.
func NewHandler(l Ledger) *Handler {
	h := &Handler{ledger: l, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/groups", h.createGroup)
	h.mux.HandleFunc("GET /v1/groups", h.listGroups)
	h.mux.HandleFunc("GET /v1/groups/{id}", h.getGroup)
	h.mux.HandleFunc("POST /v1/groups/{id}/members", h.addMember)
	h.mux.HandleFunc("DELETE /v1/groups/{id}/members/{member}", h.removeMember)

	h.mux.HandleFunc("POST /v1/receipts/preview", h.previewReceipt)
	h.mux.HandleFunc("PUT /v1/receipts/{id}", h.finalizeReceipt)
	h.mux.HandleFunc("GET /v1/receipts/{id}", h.getReceipt)

	h.mux.HandleFunc("POST /v1/groups/{id}/settlements", h.recordSettlement)
	h.mux.HandleFunc("GET /v1/groups/{id}/settlements", h.listSettlements)
	h.mux.HandleFunc("POST /v1/groups/{id}/settlements/{sid}/confirm", h.confirmSettlement)
	h.mux.HandleFunc("POST /v1/groups/{id}/settlements/{sid}/cancel", h.cancelSettlement)

	h.mux.HandleFunc("GET /v1/groups/{id}/balances", h.getBalances)
	h.mux.HandleFunc("GET /v1/groups/{id}/plan", h.planSettlements)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errBadRequest marks request bodies that could not be decoded.
var errBadRequest = errors.New("malformed request")

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrOverSettlement),
		errors.Is(err, ledger.ErrMemberHasBalance),
		errors.Is(err, ledger.ErrGroupMismatch):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrAmountOverflow),
		errors.Is(err, ledger.ErrUnassignedItem),
		errors.Is(err, ledger.ErrTotalMismatch),
		errors.Is(err, ledger.ErrInvalidQuantityOrPrice),
		errors.Is(err, ledger.ErrUnknownMember),
		errors.Is(err, ledger.ErrInvalidMember),
		errors.Is(err, ledger.ErrInvalidSettlement),
		errors.Is(err, service.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	kind := service.Reason(err)
	msg := err.Error()
	if errors.Is(err, errBadRequest) {
		kind = "bad_request"
	}
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: kind, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

// decode reads a single JSON object, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", errBadRequest)
	}
	return nil
}
