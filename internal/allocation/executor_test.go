package allocation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hemobank/internal/inventory"
	"hemobank/pkg/domain"
	dErrors "hemobank/pkg/domain-errors"
)

func TestExecutor(t *testing.T) {
	ctx := context.Background()

	t.Run("realizes every draw of the plan", func(t *testing.T) {
		store := inventory.NewInMemory()
		exec := NewExecutor(store, inventory.NewMemoryTx(store))

		recA, err := store.UpsertAdd(ctx, domain.NewBankID(), domain.BloodGroupOPos, 3)
		require.NoError(t, err)
		recB, err := store.UpsertAdd(ctx, domain.NewBankID(), domain.BloodGroupOPos, 5)
		require.NoError(t, err)

		plan := Plan{
			Group:    domain.BloodGroupOPos,
			Quantity: 6,
			Draws: []Draw{
				{RecordID: recA.ID, BankID: recA.BankID, Units: 3},
				{RecordID: recB.ID, BankID: recB.BankID, Units: 3},
			},
		}

		draws, err := exec.Execute(ctx, plan)
		require.NoError(t, err)
		assert.Equal(t, plan.Draws, draws)

		gotA, err := store.FindByID(ctx, recA.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, gotA.Units)
		gotB, err := store.FindByID(ctx, recB.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, gotB.Units)
	})

	t.Run("aborts whole transaction when one row ran short", func(t *testing.T) {
		store := inventory.NewInMemory()
		exec := NewExecutor(store, inventory.NewMemoryTx(store))

		recA, err := store.UpsertAdd(ctx, domain.NewBankID(), domain.BloodGroupAPos, 4)
		require.NoError(t, err)
		recB, err := store.UpsertAdd(ctx, domain.NewBankID(), domain.BloodGroupAPos, 4)
		require.NoError(t, err)

		// Stale plan: recB was drained after planning.
		require.NoError(t, store.DecrementIfSufficient(ctx, recB.ID, 4))

		plan := Plan{
			Group:    domain.BloodGroupAPos,
			Quantity: 6,
			Draws: []Draw{
				{RecordID: recA.ID, BankID: recA.BankID, Units: 4},
				{RecordID: recB.ID, BankID: recB.BankID, Units: 2},
			},
		}

		_, err = exec.Execute(ctx, plan)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientStock))

		gotA, err := store.FindByID(ctx, recA.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, gotA.Units, "aborted execution must leave no partial deduction")
	})

	t.Run("concurrent executions never drive stock negative", func(t *testing.T) {
		store := inventory.NewInMemory()
		exec := NewExecutor(store, inventory.NewMemoryTx(store))

		rec, err := store.UpsertAdd(ctx, domain.NewBankID(), domain.BloodGroupBPos, 6)
		require.NoError(t, err)

		// Both plans were built against the same snapshot of 6 units;
		// together they over-commit.
		plan := Plan{
			Group:    domain.BloodGroupBPos,
			Quantity: 4,
			Draws:    []Draw{{RecordID: rec.ID, BankID: rec.BankID, Units: 4}},
		}

		var wg sync.WaitGroup
		results := make([]error, 2)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, results[i] = exec.Execute(ctx, plan)
			}(i)
		}
		wg.Wait()

		var successes, insufficient int
		for _, err := range results {
			switch {
			case err == nil:
				successes++
			case dErrors.HasCode(err, dErrors.CodeInsufficientStock):
				insufficient++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, successes, "exactly one racer may win")
		assert.Equal(t, 1, insufficient)

		got, err := store.FindByID(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Units)
	})
}
