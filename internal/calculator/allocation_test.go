package calculator

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitsnap/internal/models"
	"github.com/mmynk/splitsnap/internal/money"
)

func TestAllocate(t *testing.T) {
	tests := []struct {
		name         string
		receipt      models.Receipt
		wantErr      error
		validateFunc func(t *testing.T, a *Allocation)
	}{
		{
			name: "shared item with proportional tax",
			receipt: models.Receipt{
				ID: "r1",
				Items: []models.Item{
					{Name: "A", UnitPrice: 1000, Quantity: 1, Assignees: []string{"X", "Y"}},
					{Name: "B", UnitPrice: 501, Quantity: 1, Assignees: []string{"Y"}},
				},
				Tax:   100,
				Total: 1601,
			},
			validateFunc: func(t *testing.T, a *Allocation) {
				// X: 500 items + 100*500/1501 = 33.31 -> 33
				// Y: 1001 items + 100*1001/1501 = 66.69 -> 67
				assert.Equal(t, Share{Items: 500, SharedCost: 33, Total: 533}, a.Shares["X"])
				assert.Equal(t, Share{Items: 1001, SharedCost: 67, Total: 1068}, a.Shares["Y"])
				assert.Equal(t, []string{"X", "Y"}, a.Order)
			},
		},
		{
			name: "quantity multiplies unit price",
			receipt: models.Receipt{
				Items: []models.Item{
					{Name: "Beer", UnitPrice: 450, Quantity: 3, Assignees: []string{"Alice"}},
				},
				Tip:   150,
				Total: 1500,
			},
			validateFunc: func(t *testing.T, a *Allocation) {
				assert.Equal(t, Share{Items: 1350, SharedCost: 150, Total: 1500}, a.Shares["Alice"])
			},
		},
		{
			name: "odd cent goes to first declared assignee",
			receipt: models.Receipt{
				Items: []models.Item{
					{Name: "Pizza", UnitPrice: 1001, Quantity: 1, Assignees: []string{"Bob", "Alice"}},
				},
				Total: 1001,
			},
			validateFunc: func(t *testing.T, a *Allocation) {
				assert.Equal(t, money.Cents(501), a.Owed("Bob"))
				assert.Equal(t, money.Cents(500), a.Owed("Alice"))
			},
		},
		{
			name: "tax tie broken by first appearance",
			receipt: models.Receipt{
				Items: []models.Item{
					{Name: "Soup", UnitPrice: 300, Quantity: 1, Assignees: []string{"C"}},
					{Name: "Bread", UnitPrice: 300, Quantity: 1, Assignees: []string{"A"}},
					{Name: "Tea", UnitPrice: 300, Quantity: 1, Assignees: []string{"B"}},
				},
				Tax:   100,
				Total: 1000,
			},
			validateFunc: func(t *testing.T, a *Allocation) {
				assert.Equal(t, []string{"C", "A", "B"}, a.Order)
				assert.Equal(t, money.Cents(34), a.Shares["C"].SharedCost)
				assert.Equal(t, money.Cents(33), a.Shares["A"].SharedCost)
				assert.Equal(t, money.Cents(33), a.Shares["B"].SharedCost)
			},
		},
		{
			name: "duplicate assignees count once",
			receipt: models.Receipt{
				Items: []models.Item{
					{Name: "Wine", UnitPrice: 3000, Quantity: 1, Assignees: []string{"A", "B", "A"}},
				},
				Total: 3000,
			},
			validateFunc: func(t *testing.T, a *Allocation) {
				assert.Equal(t, money.Cents(1500), a.Owed("A"))
				assert.Equal(t, money.Cents(1500), a.Owed("B"))
			},
		},
		{
			name: "free items split tax equally",
			receipt: models.Receipt{
				Items: []models.Item{
					{Name: "Sample", UnitPrice: 0, Quantity: 2, Assignees: []string{"A", "B"}},
				},
				Tax:   5,
				Total: 5,
			},
			validateFunc: func(t *testing.T, a *Allocation) {
				assert.Equal(t, money.Cents(3), a.Owed("A"))
				assert.Equal(t, money.Cents(2), a.Owed("B"))
			},
		},
		{
			name:    "empty receipt with zero total",
			receipt: models.Receipt{},
			validateFunc: func(t *testing.T, a *Allocation) {
				assert.Empty(t, a.Shares)
			},
		},
		{
			name:    "empty receipt with nonzero total",
			receipt: models.Receipt{Total: 100},
			wantErr: ErrTotalMismatch,
		},
		{
			name:    "empty receipt with tax only",
			receipt: models.Receipt{Tax: 100, Total: 100},
			wantErr: ErrTotalMismatch,
		},
		{
			name: "total mismatch",
			receipt: models.Receipt{
				Items: []models.Item{{Name: "A", UnitPrice: 100, Quantity: 1, Assignees: []string{"X"}}},
				Tax:   10,
				Total: 100,
			},
			wantErr: ErrTotalMismatch,
		},
		{
			name: "unassigned item",
			receipt: models.Receipt{
				Items: []models.Item{
					{Name: "A", UnitPrice: 100, Quantity: 1, Assignees: []string{"X"}},
					{Name: "B", UnitPrice: 100, Quantity: 1},
				},
				Total: 200,
			},
			wantErr: ErrUnassignedItem,
		},
		{
			name: "zero quantity",
			receipt: models.Receipt{
				Items: []models.Item{{Name: "A", UnitPrice: 100, Quantity: 0, Assignees: []string{"X"}}},
			},
			wantErr: ErrInvalidQuantityOrPrice,
		},
		{
			name: "negative price",
			receipt: models.Receipt{
				Items: []models.Item{{Name: "A", UnitPrice: -1, Quantity: 1, Assignees: []string{"X"}}},
				Total: -1,
			},
			wantErr: ErrInvalidQuantityOrPrice,
		},
		{
			name: "negative tip",
			receipt: models.Receipt{
				Items: []models.Item{{Name: "A", UnitPrice: 100, Quantity: 1, Assignees: []string{"X"}}},
				Tip:   -10,
				Total: 90,
			},
			wantErr: ErrInvalidQuantityOrPrice,
		},
		{
			name: "line cost overflow",
			receipt: models.Receipt{
				Items: []models.Item{{Name: "A", UnitPrice: math.MaxInt64 / 2, Quantity: 3, Assignees: []string{"X"}}},
				Total: 1,
			},
			wantErr: money.ErrAmountOverflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Allocate(&tt.receipt)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assertExact(t, &tt.receipt, a)
			if tt.validateFunc != nil {
				tt.validateFunc(t, a)
			}
		})
	}
}

func TestAllocateIsDeterministic(t *testing.T) {
	r := &models.Receipt{
		ID: "r",
		Items: []models.Item{
			{Name: "A", UnitPrice: 1999, Quantity: 1, Assignees: []string{"X", "Y", "Z"}},
			{Name: "B", UnitPrice: 333, Quantity: 2, Assignees: []string{"Z"}},
		},
		Tax:   211,
		Tip:   400,
		Total: 1999 + 666 + 211 + 400,
	}
	first, err := Allocate(r)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Allocate(r)
		require.NoError(t, err)
		require.True(t, first.Equal(again))
	}
}

func TestAllocateExactnessProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	members := []string{"ann", "bea", "cal", "dan", "eve"}

	for i := 0; i < 500; i++ {
		r := randomReceipt(rng, members, fmt.Sprintf("r%d", i))
		a, err := Allocate(r)
		require.NoError(t, err)
		assertExact(t, r, a)
	}
}

func randomReceipt(rng *rand.Rand, members []string, id string) *models.Receipt {
	r := &models.Receipt{ID: id}
	var total money.Cents
	for j := 0; j < rng.Intn(6)+1; j++ {
		n := rng.Intn(len(members)) + 1
		perm := rng.Perm(len(members))[:n]
		assignees := make([]string, n)
		for k, p := range perm {
			assignees[k] = members[p]
		}
		item := models.Item{
			Name:      fmt.Sprintf("item-%d", j),
			UnitPrice: money.Cents(rng.Int63n(5000)),
			Quantity:  rng.Int63n(4) + 1,
			Assignees: assignees,
		}
		total += item.UnitPrice * money.Cents(item.Quantity)
		r.Items = append(r.Items, item)
	}
	r.Tax = money.Cents(rng.Int63n(1000))
	r.Tip = money.Cents(rng.Int63n(1000))
	r.Total = total + r.Tax + r.Tip
	return r
}

func assertExact(t *testing.T, r *models.Receipt, a *Allocation) {
	t.Helper()
	var sum money.Cents
	for _, s := range a.Shares {
		require.Equal(t, s.Items+s.SharedCost, s.Total)
		sum += s.Total
	}
	require.Equal(t, r.Total, sum, "allocation must sum to receipt total")
}
