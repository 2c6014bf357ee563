package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmynk/splitsnap/internal/models"
	"github.com/mmynk/splitsnap/internal/money"
	"github.com/mmynk/splitsnap/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewCreatesDatabaseDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "nested", "ledger.db")
	store, err := New(path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected database file at %s: %v", path, err)
	}
}

func TestGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{Name: "Roommates", Members: []string{"bob", "alice"}}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if group.ID == "" {
		t.Error("Expected group ID to be generated")
	}
	if group.CreatedAt == 0 {
		t.Error("Expected CreatedAt to be set")
	}

	t.Run("GetGroup returns sorted members", func(t *testing.T) {
		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if got.Name != "Roommates" {
			t.Errorf("Name mismatch: got %s", got.Name)
		}
		if len(got.Members) != 2 || got.Members[0] != "alice" || got.Members[1] != "bob" {
			t.Errorf("Members mismatch: got %v", got.Members)
		}
	})

	t.Run("GetGroup returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetGroup(ctx, "nonexistent-id")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Add and remove members", func(t *testing.T) {
		if err := store.AddGroupMember(ctx, group.ID, "carol"); err != nil {
			t.Fatalf("AddGroupMember failed: %v", err)
		}
		if err := store.AddGroupMember(ctx, group.ID, "carol"); err != nil {
			t.Fatalf("AddGroupMember should be idempotent: %v", err)
		}
		if err := store.RemoveGroupMember(ctx, group.ID, "bob"); err != nil {
			t.Fatalf("RemoveGroupMember failed: %v", err)
		}
		if err := store.RemoveGroupMember(ctx, group.ID, "bob"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound removing twice, got %v", err)
		}
		if err := store.AddGroupMember(ctx, "nonexistent-id", "dave"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for unknown group, got %v", err)
		}

		members, err := store.LoadGroupMembers(ctx, group.ID)
		if err != nil {
			t.Fatalf("LoadGroupMembers failed: %v", err)
		}
		if len(members) != 2 || members[0] != "alice" || members[1] != "carol" {
			t.Errorf("Members mismatch: got %v", members)
		}
	})

	t.Run("ListGroups", func(t *testing.T) {
		other := &models.Group{Name: "Trip", Members: []string{"x"}}
		if err := store.CreateGroup(ctx, other); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		groups, err := store.ListGroups(ctx)
		if err != nil {
			t.Fatalf("ListGroups failed: %v", err)
		}
		if len(groups) != 2 {
			t.Fatalf("Expected 2 groups, got %d", len(groups))
		}
		if groups[0].ID != other.ID {
			t.Errorf("Expected newest group first, got %s", groups[0].Name)
		}
	})
}

func TestReceipts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{Name: "Dinner", Members: []string{"X", "Y"}}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	receipt := &models.Receipt{
		GroupID:  group.ID,
		Merchant: "Bistro",
		Items: []models.Item{
			{Name: "A", UnitPrice: 1000, Quantity: 1, Assignees: []string{"Y", "X"}},
			{Name: "B", UnitPrice: 167, Quantity: 3, Assignees: []string{"Y"}},
		},
		Tax:       100,
		Tip:       0,
		Total:     1601,
		PayerID:   "X",
		CreatedBy: "X",
		Finalized: true,
	}

	t.Run("SaveReceipt generates IDs", func(t *testing.T) {
		if err := store.SaveReceipt(ctx, receipt); err != nil {
			t.Fatalf("SaveReceipt failed: %v", err)
		}
		if receipt.ID == "" || receipt.Items[0].ID == "" {
			t.Error("Expected receipt and item IDs to be generated")
		}
	})

	t.Run("GetReceipt round trips items in order", func(t *testing.T) {
		got, err := store.GetReceipt(ctx, receipt.ID)
		if err != nil {
			t.Fatalf("GetReceipt failed: %v", err)
		}
		if got.Total != 1601 || got.Tax != 100 || got.PayerID != "X" || !got.Finalized {
			t.Errorf("Receipt fields mismatch: %+v", got)
		}
		if len(got.Items) != 2 {
			t.Fatalf("Expected 2 items, got %d", len(got.Items))
		}
		first := got.Items[0]
		if first.Name != "A" || first.UnitPrice != 1000 || len(first.Assignees) != 2 || first.Assignees[0] != "Y" {
			t.Errorf("Assignee order must be preserved: %+v", first)
		}
		if got.Items[1].Quantity != 3 {
			t.Errorf("Quantity mismatch: %d", got.Items[1].Quantity)
		}
	})

	t.Run("SaveReceipt replaces items on edit", func(t *testing.T) {
		receipt.Items = receipt.Items[:1]
		receipt.Items[0].Assignees = []string{"X"}
		receipt.Total = 1100
		if err := store.SaveReceipt(ctx, receipt); err != nil {
			t.Fatalf("SaveReceipt failed: %v", err)
		}
		got, err := store.GetReceipt(ctx, receipt.ID)
		if err != nil {
			t.Fatalf("GetReceipt failed: %v", err)
		}
		if len(got.Items) != 1 || len(got.Items[0].Assignees) != 1 || got.Total != 1100 {
			t.Errorf("Edit not applied: %+v", got)
		}
	})

	t.Run("LoadFinalizedReceipts skips drafts", func(t *testing.T) {
		draft := &models.Receipt{GroupID: group.ID, Total: 0, CreatedBy: "Y"}
		if err := store.SaveReceipt(ctx, draft); err != nil {
			t.Fatalf("SaveReceipt failed: %v", err)
		}
		receipts, err := store.LoadFinalizedReceipts(ctx, group.ID)
		if err != nil {
			t.Fatalf("LoadFinalizedReceipts failed: %v", err)
		}
		if len(receipts) != 1 || receipts[0].ID != receipt.ID {
			t.Errorf("Expected only the finalized receipt, got %d", len(receipts))
		}
	})

	t.Run("Receipt without group", func(t *testing.T) {
		loose := &models.Receipt{Items: []models.Item{{Name: "Gum", UnitPrice: 99, Quantity: 1}}, Total: 99}
		if err := store.SaveReceipt(ctx, loose); err != nil {
			t.Fatalf("SaveReceipt failed: %v", err)
		}
		got, err := store.GetReceipt(ctx, loose.ID)
		if err != nil {
			t.Fatalf("GetReceipt failed: %v", err)
		}
		if got.GroupID != "" || len(got.Items[0].Assignees) != 0 {
			t.Errorf("Unexpected receipt: %+v", got)
		}
	})

	t.Run("Item ids are assigned by the store", func(t *testing.T) {
		first := &models.Receipt{GroupID: group.ID, Total: 100, CreatedBy: "X",
			Items: []models.Item{{ID: "shared", Name: "Tea", UnitPrice: 100, Quantity: 1, Assignees: []string{"X"}}}}
		second := &models.Receipt{GroupID: group.ID, Total: 100, CreatedBy: "Y",
			Items: []models.Item{{ID: "shared", Name: "Tea", UnitPrice: 100, Quantity: 1, Assignees: []string{"Y"}}}}
		if err := store.SaveReceipt(ctx, first); err != nil {
			t.Fatalf("SaveReceipt failed: %v", err)
		}
		if err := store.SaveReceipt(ctx, second); err != nil {
			t.Fatalf("SaveReceipt with a reused item id failed: %v", err)
		}
		if first.Items[0].ID == "shared" || first.Items[0].ID == second.Items[0].ID {
			t.Errorf("Expected fresh item ids, got %s and %s", first.Items[0].ID, second.Items[0].ID)
		}
	})

	t.Run("Edit keeps creator and creation time", func(t *testing.T) {
		original := &models.Receipt{GroupID: group.ID, Total: 0, CreatedBy: "X", CreatedAt: 500}
		if err := store.SaveReceipt(ctx, original); err != nil {
			t.Fatalf("SaveReceipt failed: %v", err)
		}
		edit := &models.Receipt{ID: original.ID, GroupID: group.ID, Total: 0, CreatedBy: "Y", CreatedAt: 900}
		if err := store.SaveReceipt(ctx, edit); err != nil {
			t.Fatalf("SaveReceipt failed: %v", err)
		}
		got, err := store.GetReceipt(ctx, original.ID)
		if err != nil {
			t.Fatalf("GetReceipt failed: %v", err)
		}
		if got.CreatedBy != "X" || got.CreatedAt != 500 {
			t.Errorf("Creator must not change on edit: %+v", got)
		}
	})

	t.Run("GetReceipt returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetReceipt(ctx, "nonexistent-id")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestSettlementsAndSnapshots(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{Name: "Trip", Members: []string{"X", "Y"}}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	first := &models.Settlement{GroupID: group.ID, FromMember: "Y", ToMember: "X", Amount: 500,
		Status: models.SettlementPending, CreatedAt: 100, Note: "venmo"}
	second := &models.Settlement{GroupID: group.ID, FromMember: "Y", ToMember: "X", Amount: 500,
		Status: models.SettlementSettled, CreatedAt: 100}

	if err := store.AppendSettlement(ctx, first); err != nil {
		t.Fatalf("AppendSettlement failed: %v", err)
	}
	second.Supersedes = first.ID
	if err := store.AppendSettlement(ctx, second); err != nil {
		t.Fatalf("AppendSettlement failed: %v", err)
	}

	settlements, err := store.LoadSettlements(ctx, group.ID)
	if err != nil {
		t.Fatalf("LoadSettlements failed: %v", err)
	}
	if len(settlements) != 2 {
		t.Fatalf("Expected 2 settlements, got %d", len(settlements))
	}
	if settlements[0].ID != first.ID || settlements[1].ID != second.ID {
		t.Error("Settlements must come back in recording order")
	}
	if settlements[0].Note != "venmo" || settlements[0].Status != models.SettlementPending {
		t.Errorf("Settlement fields mismatch: %+v", settlements[0])
	}
	if settlements[1].Supersedes != first.ID || settlements[1].Amount != 500 {
		t.Errorf("Settlement fields mismatch: %+v", settlements[1])
	}

	t.Run("Append order wins over created_at", func(t *testing.T) {
		pending := &models.Settlement{GroupID: group.ID, FromMember: "Y", ToMember: "X", Amount: 100,
			Status: models.SettlementPending, CreatedAt: 2000}
		if err := store.AppendSettlement(ctx, pending); err != nil {
			t.Fatalf("AppendSettlement failed: %v", err)
		}
		// Clock stepped back before the confirmation was written.
		confirm := &models.Settlement{GroupID: group.ID, FromMember: "Y", ToMember: "X", Amount: 100,
			Status: models.SettlementSettled, Supersedes: pending.ID, CreatedAt: 1995}
		if err := store.AppendSettlement(ctx, confirm); err != nil {
			t.Fatalf("AppendSettlement failed: %v", err)
		}

		got, err := store.LoadSettlements(ctx, group.ID)
		if err != nil {
			t.Fatalf("LoadSettlements failed: %v", err)
		}
		if len(got) != 4 || got[2].ID != pending.ID || got[3].ID != confirm.ID {
			t.Errorf("Expected pending before its confirmation, got %d records", len(got))
		}
	})

	empty, err := store.LoadBalanceSnapshot(ctx, group.ID)
	if err != nil {
		t.Fatalf("LoadBalanceSnapshot failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected empty snapshot, got %v", empty)
	}

	want := map[string]money.Cents{"X": 568, "Y": -568}
	if err := store.PersistBalanceSnapshot(ctx, group.ID, want); err != nil {
		t.Fatalf("PersistBalanceSnapshot failed: %v", err)
	}
	if err := store.PersistBalanceSnapshot(ctx, group.ID, want); err != nil {
		t.Fatalf("PersistBalanceSnapshot should replace: %v", err)
	}
	got, err := store.LoadBalanceSnapshot(ctx, group.ID)
	if err != nil {
		t.Fatalf("LoadBalanceSnapshot failed: %v", err)
	}
	if len(got) != 2 || got["X"] != 568 || got["Y"] != -568 {
		t.Errorf("Snapshot mismatch: %v", got)
	}
}
