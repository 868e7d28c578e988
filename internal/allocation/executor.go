package allocation

import (
	"context"
	"errors"

	"hemobank/internal/inventory"
	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/platform/sentinel"
)

// Executor applies a plan inside one inventory transaction. Every planned row
// is re-validated by DecrementIfSufficient, so concurrent bookings racing on
// the same stale snapshot serialize at the storage layer: exactly one wins
// per unit, the rest abort with insufficient_stock and no partial effect.
type Executor struct {
	store inventory.Store
	txr   inventory.TxRunner
}

func NewExecutor(store inventory.Store, txr inventory.TxRunner) *Executor {
	return &Executor{store: store, txr: txr}
}

// Execute commits every draw of the plan or none of them. On success the
// realized draws are identical to the plan, since the transaction re-checked
// every row.
func (e *Executor) Execute(ctx context.Context, plan Plan) ([]Draw, error) {
	err := e.txr.RunInTx(ctx, func(ctx context.Context) error {
		for _, draw := range plan.Draws {
			if err := e.store.DecrementIfSufficient(ctx, draw.RecordID, draw.Units); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrInsufficientStock) || errors.Is(err, sentinel.ErrNotFound) {
			// A concurrent booking consumed the stock between planning and
			// execution; the caller may retry with a fresh plan.
			return nil, dErrors.Wrap(err, dErrors.CodeInsufficientStock,
				"stock changed since planning, retry with a fresh plan")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "allocation transaction failed")
	}
	return plan.Draws, nil
}
