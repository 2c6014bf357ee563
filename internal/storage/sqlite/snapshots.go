package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/mmynk/splitsnap/internal/money"
)

// PersistBalanceSnapshot replaces the cached balances of a group.
func (s *SQLiteStore) PersistBalanceSnapshot(ctx context.Context, groupID string, balances map[string]money.Cents) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM balance_snapshots WHERE group_id = ?", groupID); err != nil {
		return fmt.Errorf("failed to clear balance snapshot: %w", err)
	}

	now := time.Now().Unix()
	for member, balance := range balances {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO balance_snapshots (group_id, member_id, balance, updated_at) VALUES (?, ?, ?, ?)",
			groupID, member, int64(balance), now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert balance snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadBalanceSnapshot returns the cached balances of a group.
func (s *SQLiteStore) LoadBalanceSnapshot(ctx context.Context, groupID string) (map[string]money.Cents, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT member_id, balance FROM balance_snapshots WHERE group_id = ?",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance snapshot: %w", err)
	}
	defer rows.Close()

	balances := make(map[string]money.Cents)
	for rows.Next() {
		var (
			member  string
			balance int64
		)
		if err := rows.Scan(&member, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan balance snapshot: %w", err)
		}
		balances[member] = centsOf(balance)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance snapshot: %w", err)
	}
	return balances, nil
}

func centsOf(v int64) money.Cents { return money.Cents(v) }
