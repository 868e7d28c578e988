package inventory

import (
	"context"
	"sync"
	"time"

	"hemobank/pkg/domain"
	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/platform/sentinel"
)

// InMemory is the development and test implementation of Store.
// Each method is individually atomic under the store mutex; multi-record
// atomicity comes from MemoryTx.
type InMemory struct {
	mu      sync.RWMutex
	records map[domain.InventoryRecordID]*Record

	// txMu keeps direct mutations out of an open MemoryTx transaction.
	// The transaction rolls back by restoring a whole-store snapshot, so a
	// write landing between snapshot and restore would be silently undone.
	txMu sync.RWMutex
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[domain.InventoryRecordID]*Record)}
}

// memTxKey marks a context as running inside MemoryTx.RunInTx. Mutations
// carrying the mark already hold the transaction lock and skip the barrier.
type memTxKey struct{}

func withMemTx(ctx context.Context) context.Context {
	return context.WithValue(ctx, memTxKey{}, true)
}

func inMemTx(ctx context.Context) bool {
	v, _ := ctx.Value(memTxKey{}).(bool)
	return v
}

// barrier blocks a direct mutation while a transaction is open. It returns
// the matching release func.
func (s *InMemory) barrier(ctx context.Context) func() {
	if inMemTx(ctx) {
		return func() {}
	}
	s.txMu.RLock()
	return s.txMu.RUnlock
}

func (s *InMemory) UpsertAdd(ctx context.Context, bankID domain.BankID, group domain.BloodGroup, units int) (*Record, error) {
	defer s.barrier(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.records {
		if rec.BankID == bankID && rec.Group == group {
			rec.Units += units
			rec.UpdatedAt = time.Now()
			cp := *rec
			return &cp, nil
		}
	}
	rec := &Record{
		ID:        domain.NewInventoryRecordID(),
		BankID:    bankID,
		Group:     group,
		Units:     units,
		UpdatedAt: time.Now(),
	}
	s.records[rec.ID] = rec
	cp := *rec
	return &cp, nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.InventoryRecordID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *InMemory) FindByBankAndGroup(_ context.Context, bankID domain.BankID, group domain.BloodGroup) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		if rec.BankID == bankID && rec.Group == group {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListByGroup(_ context.Context, group domain.BloodGroup) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Record
	for _, rec := range s.records {
		if rec.Group == group {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemory) DecrementIfSufficient(ctx context.Context, id domain.InventoryRecordID, units int) error {
	defer s.barrier(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if rec.Units < units {
		return sentinel.ErrInsufficientStock
	}
	rec.Units -= units
	rec.UpdatedAt = time.Now()
	return nil
}

func (s *InMemory) Increment(ctx context.Context, id domain.InventoryRecordID, units int) error {
	defer s.barrier(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	rec.Units += units
	rec.UpdatedAt = time.Now()
	return nil
}

func (s *InMemory) AggregateByGroup(_ context.Context) (map[domain.BloodGroup]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[domain.BloodGroup]int)
	for _, rec := range s.records {
		totals[rec.Group] += rec.Units
	}
	return totals, nil
}

// snapshot and restore give MemoryTx rollback semantics.
func (s *InMemory) snapshot() map[domain.InventoryRecordID]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(map[domain.InventoryRecordID]Record, len(s.records))
	for id, rec := range s.records {
		snap[id] = *rec
	}
	return snap
}

func (s *InMemory) restore(snap map[domain.InventoryRecordID]Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[domain.InventoryRecordID]*Record, len(snap))
	for id, rec := range snap {
		cp := rec
		s.records[id] = &cp
	}
}

// defaultMemoryTxTimeout bounds a transaction the way the SQL store's
// statement timeouts would.
const defaultMemoryTxTimeout = 5 * time.Second

// MemoryTx serializes whole transactions over an InMemory store and rolls the
// store back when fn fails, so a partially applied plan never survives.
type MemoryTx struct {
	mu      sync.Mutex
	store   *InMemory
	timeout time.Duration
}

func NewMemoryTx(store *InMemory) *MemoryTx {
	return &MemoryTx{store: store, timeout: defaultMemoryTxTimeout}
}

func (t *MemoryTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Hold the store's transaction barrier so no direct mutation can land
	// between snapshot and restore and be lost to a rollback.
	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	snap := t.store.snapshot()
	if err := fn(withMemTx(ctx)); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}
