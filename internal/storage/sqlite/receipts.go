package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitsnap/internal/models"
	"github.com/mmynk/splitsnap/internal/storage"
)

// SaveReceipt inserts a receipt or replaces an existing one, items included.
// Replacing keeps the original row, so the receipt's position in creation
// order does not change when it is edited. The creation time of an existing
// row is never overwritten, and neither is its creator once set. Item ids are
// always assigned here since items are rewritten on every save.
func (s *SQLiteStore) SaveReceipt(ctx context.Context, receipt *models.Receipt) error {
	if receipt.ID == "" {
		receipt.ID = uuid.New().String()
	}
	if receipt.CreatedAt == 0 {
		receipt.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var groupID any
	if receipt.GroupID != "" {
		groupID = receipt.GroupID
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO receipts (id, group_id, merchant, tax, tip, total, payer_id, created_by, created_at, finalized)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   group_id = excluded.group_id,
		   merchant = excluded.merchant,
		   tax = excluded.tax,
		   tip = excluded.tip,
		   total = excluded.total,
		   payer_id = excluded.payer_id,
		   created_by = CASE WHEN receipts.created_by = '' THEN excluded.created_by ELSE receipts.created_by END,
		   finalized = excluded.finalized`,
		receipt.ID, groupID, receipt.Merchant, int64(receipt.Tax), int64(receipt.Tip), int64(receipt.Total),
		receipt.PayerID, receipt.CreatedBy, receipt.CreatedAt, receipt.Finalized,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert receipt: %w", err)
	}

	// Replace items wholesale; edits always recompute from scratch.
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM item_assignees WHERE item_id IN (SELECT id FROM items WHERE receipt_id = ?)",
		receipt.ID,
	); err != nil {
		return fmt.Errorf("failed to clear item assignees: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM items WHERE receipt_id = ?", receipt.ID); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}

	for i := range receipt.Items {
		item := &receipt.Items[i]
		item.ID = uuid.New().String()

		_, err = tx.ExecContext(ctx,
			"INSERT INTO items (id, receipt_id, position, name, unit_price, quantity) VALUES (?, ?, ?, ?, ?, ?)",
			item.ID, receipt.ID, i, item.Name, int64(item.UnitPrice), item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}

		for pos, member := range item.Assignees {
			_, err = tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO item_assignees (item_id, position, member_id) VALUES (?, ?, ?)",
				item.ID, pos, member,
			)
			if err != nil {
				return fmt.Errorf("failed to insert item assignee: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetReceipt retrieves a receipt by ID, including all items and assignees.
func (s *SQLiteStore) GetReceipt(ctx context.Context, receiptID string) (*models.Receipt, error) {
	row := s.db.QueryRowContext(ctx, receiptColumns+" WHERE id = ?", receiptID)
	receipt, err := scanReceipt(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: receipt %s", storage.ErrNotFound, receiptID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	if receipt.Items, err = s.loadItems(ctx, receipt.ID); err != nil {
		return nil, err
	}
	return receipt, nil
}

// LoadFinalizedReceipts returns a group's finalized receipts in creation
// order, which is rowid order since edits keep the original row.
func (s *SQLiteStore) LoadFinalizedReceipts(ctx context.Context, groupID string) ([]*models.Receipt, error) {
	rows, err := s.db.QueryContext(ctx,
		receiptColumns+" WHERE group_id = ? AND finalized = 1 ORDER BY rowid",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts by group: %w", err)
	}
	defer rows.Close()

	var receipts []*models.Receipt
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipts: %w", err)
	}
	rows.Close()

	for _, receipt := range receipts {
		if receipt.Items, err = s.loadItems(ctx, receipt.ID); err != nil {
			return nil, err
		}
	}
	return receipts, nil
}

const receiptColumns = `SELECT id, COALESCE(group_id, ''), merchant, tax, tip, total, payer_id, created_by, created_at, finalized FROM receipts`

type scanner interface {
	Scan(dest ...any) error
}

func scanReceipt(sc scanner) (*models.Receipt, error) {
	r := &models.Receipt{}
	var tax, tip, total int64
	if err := sc.Scan(&r.ID, &r.GroupID, &r.Merchant, &tax, &tip, &total,
		&r.PayerID, &r.CreatedBy, &r.CreatedAt, &r.Finalized); err != nil {
		return nil, err
	}
	r.Tax, r.Tip, r.Total = centsOf(tax), centsOf(tip), centsOf(total)
	return r, nil
}

// loadItems returns a receipt's items in position order with assignees in
// declaration order.
func (s *SQLiteStore) loadItems(ctx context.Context, receiptID string) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT i.id, i.name, i.unit_price, i.quantity, COALESCE(a.member_id, '')
		 FROM items i
		 LEFT JOIN item_assignees a ON a.item_id = i.id
		 WHERE i.receipt_id = ?
		 ORDER BY i.position, a.position`,
		receiptID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var (
			id, name, member string
			price, quantity  int64
		)
		if err := rows.Scan(&id, &name, &price, &quantity, &member); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		if len(items) == 0 || items[len(items)-1].ID != id {
			items = append(items, models.Item{
				ID:        id,
				Name:      name,
				UnitPrice: centsOf(price),
				Quantity:  quantity,
			})
		}
		if member != "" {
			last := &items[len(items)-1]
			last.Assignees = append(last.Assignees, member)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}
