package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/mmynk/splitsnap/internal/calculator"
	"github.com/mmynk/splitsnap/internal/events"
	"github.com/mmynk/splitsnap/internal/ledger"
	"github.com/mmynk/splitsnap/internal/models"
	"github.com/mmynk/splitsnap/internal/storage"
)

// PreviewAllocation computes a receipt's allocation without storing it.
// The receipt does not need a group.
func (s *LedgerService) PreviewAllocation(r *models.Receipt) (*calculator.Allocation, error) {
	alloc, err := calculator.Allocate(r)
	if err != nil {
		s.reject("preview_allocation", err)
		return nil, err
	}
	return alloc, nil
}

// FinalizeReceipt validates a receipt, applies it to its group's ledger and
// stores it. Finalizing an existing receipt id is a corrective edit: its old
// effect is replaced in full, and finalizing unchanged input leaves balances
// as they were. The creator and creation time of an edited receipt stay as
// first stored.
//
// r is updated with the stored receipt only on success.
func (s *LedgerService) FinalizeReceipt(ctx context.Context, r *models.Receipt) (*calculator.Allocation, error) {
	slog.Info("FinalizeReceipt request received",
		"receipt_id", r.ID,
		"group_id", r.GroupID,
		"items_count", len(r.Items),
		"total", r.Total,
	)

	if r.GroupID == "" {
		err := fmt.Errorf("%w: receipt must belong to a group to be finalized", ErrInvalidInput)
		s.reject("finalize_receipt", err)
		return nil, err
	}

	rc := *r
	rc.Items = slices.Clone(r.Items)

	var alloc *calculator.Allocation
	err := s.withWrite(rc.GroupID, func() error {
		g, err := s.loadForWrite(ctx, rc.GroupID)
		if err != nil {
			return err
		}

		if rc.ID == "" {
			rc.ID = uuid.New().String()
			rc.CreatedAt = s.now().Unix()
		} else if err := s.inheritStored(ctx, &rc); err != nil {
			return err
		}

		alloc, err = g.ApplyReceipt(&rc)
		if err != nil {
			return err
		}

		rc.Finalized = true
		if err := s.store.SaveReceipt(ctx, &rc); err != nil {
			return fmt.Errorf("failed to save receipt: %w", err)
		}

		s.committed(ctx, g, events.ReceiptFinalized, rc.ID)
		return nil
	})
	if err != nil {
		s.reject("finalize_receipt", err)
		slog.Warn("FinalizeReceipt failed", "receipt_id", r.ID, "group_id", r.GroupID, "error", err)
		return nil, err
	}

	*r = rc
	s.metrics.ReceiptsFinalized.Inc()
	slog.Info("Receipt finalized", "receipt_id", r.ID, "group_id", r.GroupID, "members_count", len(alloc.Order))
	return alloc, nil
}

// inheritStored copies creation metadata from an already stored version of
// the receipt and refuses to move a receipt between groups. A receipt seen
// for the first time gets the current time.
func (s *LedgerService) inheritStored(ctx context.Context, r *models.Receipt) error {
	stored, err := s.store.GetReceipt(ctx, r.ID)
	if errors.Is(err, storage.ErrNotFound) {
		r.CreatedAt = s.now().Unix()
		return nil
	}
	if err != nil {
		return err
	}
	if stored.GroupID != "" && stored.GroupID != r.GroupID {
		return fmt.Errorf("%w: receipt %s is in group %s", ledger.ErrGroupMismatch, r.ID, stored.GroupID)
	}
	r.CreatedAt = stored.CreatedAt
	if stored.CreatedBy != "" {
		r.CreatedBy = stored.CreatedBy
	}
	return nil
}

// GetReceipt returns a stored receipt and, once finalized, its allocation.
func (s *LedgerService) GetReceipt(ctx context.Context, receiptID string) (*models.Receipt, *calculator.Allocation, error) {
	r, err := s.store.GetReceipt(ctx, receiptID)
	if err != nil {
		slog.Error("GetReceipt failed", "receipt_id", receiptID, "error", err)
		return nil, nil, err
	}
	if !r.Finalized {
		return r, nil, nil
	}
	alloc, err := calculator.Allocate(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to allocate stored receipt %s: %w", r.ID, err)
	}
	return r, alloc, nil
}
