package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mmynk/splitsnap/internal/calculator"
	"github.com/mmynk/splitsnap/internal/events"
	"github.com/mmynk/splitsnap/internal/models"
	"github.com/mmynk/splitsnap/internal/money"
	"github.com/mmynk/splitsnap/internal/storage"
)

// RecordSettlement validates and appends a settlement. An empty status
// defaults to settled. The argument is not modified; the returned record
// carries the assigned id and timestamp.
func (s *LedgerService) RecordSettlement(ctx context.Context, settlement *models.Settlement) (*models.Settlement, error) {
	slog.Info("RecordSettlement request received",
		"group_id", settlement.GroupID,
		"from", settlement.FromMember,
		"to", settlement.ToMember,
		"amount", settlement.Amount,
		"status", settlement.Status,
	)

	record := *settlement
	if record.Status == "" {
		record.Status = models.SettlementSettled
	}
	if err := s.appendSettlement(ctx, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// ConfirmSettlement marks a pending settlement as paid by appending a
// settled record that supersedes it.
func (s *LedgerService) ConfirmSettlement(ctx context.Context, groupID, pendingID, by string) (*models.Settlement, error) {
	return s.resolvePending(ctx, groupID, pendingID, by, models.SettlementSettled)
}

// CancelSettlement withdraws a pending settlement by appending a cancelled
// record that supersedes it.
func (s *LedgerService) CancelSettlement(ctx context.Context, groupID, pendingID, by string) (*models.Settlement, error) {
	return s.resolvePending(ctx, groupID, pendingID, by, models.SettlementCancelled)
}

func (s *LedgerService) resolvePending(ctx context.Context, groupID, pendingID, by string, status models.SettlementStatus) (*models.Settlement, error) {
	slog.Info("Resolve pending settlement request received",
		"group_id", groupID,
		"settlement_id", pendingID,
		"status", status,
	)

	var pending *models.Settlement
	err := s.withRead(groupID, func() error {
		g, err := s.loadLedger(ctx, groupID)
		if err != nil {
			return err
		}
		for _, p := range g.Settlements() {
			if p.ID == pendingID {
				pending = &p
				return nil
			}
		}
		return fmt.Errorf("%w: settlement %s", storage.ErrNotFound, pendingID)
	})
	if err != nil {
		return nil, err
	}

	// The write path re-validates against fresh history, so a concurrent
	// resolution between the two locks is rejected there.
	record := &models.Settlement{
		GroupID:    groupID,
		FromMember: pending.FromMember,
		ToMember:   pending.ToMember,
		Amount:     pending.Amount,
		Status:     status,
		Supersedes: pending.ID,
		CreatedBy:  by,
		Note:       pending.Note,
	}
	if err := s.appendSettlement(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// appendSettlement assigns id and timestamp to settlement, which must be a
// record owned by the service, then validates and stores it.
func (s *LedgerService) appendSettlement(ctx context.Context, settlement *models.Settlement) error {
	if settlement.GroupID == "" {
		err := fmt.Errorf("%w: group_id required", ErrInvalidInput)
		s.reject("record_settlement", err)
		return err
	}

	err := s.withWrite(settlement.GroupID, func() error {
		g, err := s.loadForWrite(ctx, settlement.GroupID)
		if err != nil {
			return err
		}

		if settlement.ID == "" {
			settlement.ID = uuid.New().String()
		}
		if settlement.CreatedAt == 0 {
			settlement.CreatedAt = s.now().Unix()
		}

		if err := g.RecordSettlement(settlement); err != nil {
			return err
		}
		if err := s.store.AppendSettlement(ctx, settlement); err != nil {
			return fmt.Errorf("failed to append settlement: %w", err)
		}

		s.committed(ctx, g, events.SettlementRecorded, settlement.ID)
		return nil
	})
	if err != nil {
		s.reject("record_settlement", err)
		slog.Warn("RecordSettlement failed", "group_id", settlement.GroupID, "error", err)
		return err
	}

	s.metrics.SettlementsRecorded.WithLabelValues(string(settlement.Status)).Inc()
	slog.Info("Settlement recorded",
		"settlement_id", settlement.ID,
		"group_id", settlement.GroupID,
		"status", settlement.Status,
	)
	return nil
}

// ListSettlements returns a group's settlement log in recording order.
func (s *LedgerService) ListSettlements(ctx context.Context, groupID string) ([]models.Settlement, error) {
	var out []models.Settlement
	err := s.withRead(groupID, func() error {
		g, err := s.loadLedger(ctx, groupID)
		if err != nil {
			return err
		}
		out = g.Settlements()
		return nil
	})
	return out, err
}

// GetBalances returns the net balance of every member of a group.
func (s *LedgerService) GetBalances(ctx context.Context, groupID string) (map[string]money.Cents, error) {
	var balances map[string]money.Cents
	err := s.withRead(groupID, func() error {
		g, err := s.loadLedger(ctx, groupID)
		if err != nil {
			return err
		}
		balances = g.Balances()
		return nil
	})
	if err != nil {
		slog.Error("GetBalances failed", "group_id", groupID, "error", err)
		return nil, err
	}
	return balances, nil
}

// PlanSettlements previews the transfers that would settle a group. It
// records nothing and can be called any number of times.
func (s *LedgerService) PlanSettlements(ctx context.Context, groupID string) ([]calculator.Transfer, error) {
	var plan []calculator.Transfer
	err := s.withRead(groupID, func() error {
		g, err := s.loadLedger(ctx, groupID)
		if err != nil {
			return err
		}
		plan, err = g.Plan()
		return err
	})
	if err != nil {
		slog.Error("PlanSettlements failed", "group_id", groupID, "error", err)
		return nil, err
	}

	s.metrics.PlannedTransfers.Observe(float64(len(plan)))
	slog.Info("PlanSettlements successful", "group_id", groupID, "transfers_count", len(plan))
	return plan, nil
}
