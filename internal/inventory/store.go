package inventory

import (
	"context"
	"time"

	"hemobank/pkg/domain"
)

// Record is the unit count of one blood group at one bank.
// Invariant: Units >= 0 at all times; at most one record per (bank, group).
type Record struct {
	ID        domain.InventoryRecordID
	BankID    domain.BankID
	Group     domain.BloodGroup
	Units     int
	UpdatedAt time.Time
}

// Store owns inventory counters. Mutating calls participate in whatever
// transaction travels in ctx (pkg/platform/tx for postgres, the TxRunner's
// lock for memory); sufficiency checks therefore hold for the whole
// transaction, not just the single statement.
//
// Implementations return sentinel errors: ErrNotFound for missing records and
// ErrInsufficientStock when a decrement would go negative.
type Store interface {
	// UpsertAdd creates the (bank, group) record with the given units, or
	// increments it when it already exists. units must be positive; the
	// service layer validates, the store assumes.
	UpsertAdd(ctx context.Context, bankID domain.BankID, group domain.BloodGroup, units int) (*Record, error)

	FindByID(ctx context.Context, id domain.InventoryRecordID) (*Record, error)
	FindByBankAndGroup(ctx context.Context, bankID domain.BankID, group domain.BloodGroup) (*Record, error)

	// ListByGroup returns every record for the group, including zero-unit
	// rows; planners filter. Ordering is unspecified.
	ListByGroup(ctx context.Context, group domain.BloodGroup) ([]*Record, error)

	// DecrementIfSufficient re-checks the record's units inside the current
	// transaction and decrements only when record.Units >= units.
	DecrementIfSufficient(ctx context.Context, id domain.InventoryRecordID, units int) error

	// Increment is the unconditional credit-back used by compensation and
	// cancellation; it fails only on storage unavailability or a missing
	// record, never on business grounds.
	Increment(ctx context.Context, id domain.InventoryRecordID, units int) error

	// AggregateByGroup returns total units per blood group across all banks.
	// Groups without records are absent; the stock reporter zero-fills.
	AggregateByGroup(ctx context.Context) (map[domain.BloodGroup]int, error)
}

// TxRunner provides the transactional boundary for multi-record inventory
// mutations: the allocation executor's decrements and a cancellation's
// restores each run inside exactly one RunInTx call. An error from fn aborts
// with no partial effect.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
