// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/splitsnap/internal/models"
	"github.com/mmynk/splitsnap/internal/money"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for durable ledger history.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
//
// The ledger is always rebuilt from receipts and settlements; balance
// snapshots are a cache and never a source of truth.
type Store interface {
	// CreateGroup persists a new group. ID and CreatedAt are populated
	// by the store when empty.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group with its members.
	// Returns ErrNotFound if the group does not exist.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroups retrieves all groups, newest first.
	ListGroups(ctx context.Context) ([]*models.Group, error)

	// AddGroupMember adds a member to a group. Adding an existing member
	// is a no-op.
	AddGroupMember(ctx context.Context, groupID, memberID string) error

	// RemoveGroupMember removes a member from a group.
	RemoveGroupMember(ctx context.Context, groupID, memberID string) error

	// LoadGroupMembers returns the member ids of a group.
	LoadGroupMembers(ctx context.Context, groupID string) ([]string, error)

	// SaveReceipt inserts or fully replaces a receipt and its items.
	// ID, item IDs and CreatedAt are populated by the store when empty.
	SaveReceipt(ctx context.Context, receipt *models.Receipt) error

	// GetReceipt retrieves a receipt by ID, including items.
	// Returns ErrNotFound if the receipt does not exist.
	GetReceipt(ctx context.Context, receiptID string) (*models.Receipt, error)

	// LoadFinalizedReceipts returns the finalized receipts of a group in
	// creation order.
	LoadFinalizedReceipts(ctx context.Context, groupID string) ([]*models.Receipt, error)

	// AppendSettlement persists a new settlement. Settlements are never
	// updated or deleted.
	AppendSettlement(ctx context.Context, settlement *models.Settlement) error

	// LoadSettlements returns the settlements of a group in recording order.
	LoadSettlements(ctx context.Context, groupID string) ([]*models.Settlement, error)

	// PersistBalanceSnapshot replaces the cached balances of a group.
	PersistBalanceSnapshot(ctx context.Context, groupID string, balances map[string]money.Cents) error

	// LoadBalanceSnapshot returns the cached balances of a group, or an
	// empty map if none were persisted.
	LoadBalanceSnapshot(ctx context.Context, groupID string) (map[string]money.Cents, error)

	// Close releases any resources held by the store.
	Close() error
}
