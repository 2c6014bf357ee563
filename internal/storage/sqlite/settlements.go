package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitsnap/internal/models"
)

// AppendSettlement persists a new settlement. There is no update or delete:
// corrections are new records that supersede earlier ones.
func (s *SQLiteStore) AppendSettlement(ctx context.Context, settlement *models.Settlement) error {
	// Generate ID if not set
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settlements (id, group_id, from_member, to_member, amount, status, supersedes, created_at, created_by, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		settlement.ID, settlement.GroupID, settlement.FromMember, settlement.ToMember,
		int64(settlement.Amount), string(settlement.Status), nullable(settlement.Supersedes),
		settlement.CreatedAt, settlement.CreatedBy, nullable(settlement.Note),
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}

	return nil
}

// LoadSettlements retrieves all settlements for a group in append order.
// Rows are never updated or deleted, so rowid is the order they were
// written in, whatever created_at says.
func (s *SQLiteStore) LoadSettlements(ctx context.Context, groupID string) ([]*models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, from_member, to_member, amount, status, supersedes, created_at, created_by, note
		 FROM settlements WHERE group_id = ? ORDER BY rowid`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements by group: %w", err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		settlement := &models.Settlement{}
		var (
			amount           int64
			status           string
			supersedes, note sql.NullString
		)

		if err := rows.Scan(&settlement.ID, &settlement.GroupID, &settlement.FromMember, &settlement.ToMember,
			&amount, &status, &supersedes, &settlement.CreatedAt, &settlement.CreatedBy, &note); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}

		settlement.Amount = centsOf(amount)
		settlement.Status = models.SettlementStatus(status)
		settlement.Supersedes = supersedes.String
		settlement.Note = note.String

		settlements = append(settlements, settlement)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}

	return settlements, nil
}

// nullable maps an empty string to SQL NULL.
func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
