package booking

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"hemobank/internal/allocation"
	"hemobank/internal/audit"
	"hemobank/internal/bank"
	"hemobank/internal/inventory"
	"hemobank/internal/platform/metrics"
	"hemobank/pkg/domain"
	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/platform/sentinel"
)

// CentralFinder resolves the designated central bank, the planner's
// first-choice source. sentinel.ErrNotFound means "no central bank exists",
// which is not a failure.
type CentralFinder interface {
	Central(ctx context.Context) (*bank.Bank, error)
}

// ReportInvalidator drops any cached aggregate stock report. Every inventory
// mutation on the booking paths calls it, so a cached report never outlives
// the stock it summarizes.
type ReportInvalidator interface {
	Invalidate(ctx context.Context)
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context) {}

// Service coordinates the two-step booking saga: commit an allocation in the
// relational store, then persist the booking in the ledger. The two halves
// cannot be committed atomically together, so the service owns the
// compensation logic that keeps them eventually consistent.
type Service struct {
	banks    CentralFinder
	store    inventory.Store
	txr      inventory.TxRunner
	executor *allocation.Executor
	ledger   Ledger
	cache    ReportInvalidator
	logger   *slog.Logger
	metrics  *metrics.Metrics
	recorder audit.Recorder
	tracer   trace.Tracer
}

func NewService(
	banks CentralFinder,
	store inventory.Store,
	txr inventory.TxRunner,
	ledger Ledger,
	cache ReportInvalidator,
	logger *slog.Logger,
	m *metrics.Metrics,
	recorder audit.Recorder,
) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if cache == nil {
		cache = nopInvalidator{}
	}
	return &Service{
		banks:    banks,
		store:    store,
		txr:      txr,
		executor: allocation.NewExecutor(store, txr),
		ledger:   ledger,
		cache:    cache,
		logger:   logger,
		metrics:  m,
		recorder: recorder,
		tracer:   otel.Tracer("hemobank/booking"),
	}
}

// Book allocates quantity units of group for the principal and records the
// claim durably.
//
// Flow: snapshot -> plan -> execute (one transaction) -> append to ledger.
// A ledger failure after the executed allocation triggers a compensating
// transaction restoring exactly the deducted units; if compensation itself
// fails the error escalates to inconsistent_state and requires manual
// reconciliation.
func (s *Service) Book(ctx context.Context, actor domain.Principal, group domain.BloodGroup, quantity int, emergency bool) (*Booking, error) {
	ctx, span := s.tracer.Start(ctx, "booking.Book",
		trace.WithAttributes(
			attribute.String("blood_group", group.String()),
			attribute.Int("quantity", quantity),
		))
	defer span.End()

	if !actor.CanBook() {
		return nil, dErrors.New(dErrors.CodePermissionDenied, "only doctors and patients may book blood")
	}
	if !group.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unrecognized blood group")
	}
	if quantity <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "quantity must be greater than zero")
	}

	// Advisory snapshot, taken outside any transaction. The executor's
	// in-transaction checks are the real guarantee.
	snapshot, err := s.store.ListByGroup(ctx, group)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read inventory")
	}

	var centralID domain.BankID
	central, err := s.banks.Central(ctx)
	switch {
	case err == nil:
		centralID = central.ID
	case errors.Is(err, sentinel.ErrNotFound):
		// No central bank configured; allocate from regular banks only.
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve central bank")
	}

	plan, err := allocation.BuildPlan(group, quantity, centralID, snapshot)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInsufficientStock) {
			s.metrics.InsufficientStockTotal.Inc()
		}
		return nil, err
	}

	draws, err := s.executor.Execute(ctx, plan)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInsufficientStock) {
			s.metrics.InsufficientStockTotal.Inc()
		}
		return nil, err
	}
	s.cache.Invalidate(ctx)

	deductions := make([]Deduction, len(draws))
	for i, d := range draws {
		deductions[i] = Deduction{BankID: d.BankID, InventoryRecordID: d.RecordID, Units: d.Units}
	}

	priority := PriorityNormal
	if emergency {
		priority = PriorityEmergency
	}
	now := time.Now().UTC()
	b := &Booking{
		ID:         domain.NewBookingID(),
		UserID:     actor.ID,
		BloodGroup: group,
		Quantity:   quantity,
		Priority:   priority,
		Status:     StatusActive,
		Deductions: deductions,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.ledger.Append(ctx, b); err != nil {
		return nil, s.compensate(ctx, b, err)
	}

	s.metrics.BookingsTotal.WithLabelValues(group.String(), string(priority)).Inc()
	s.recorder.Record(ctx, audit.Event{
		Action:     audit.ActionBookingCreated,
		UserID:     actor.ID,
		BookingID:  b.ID,
		BloodGroup: group,
		Quantity:   quantity,
	})
	s.logger.InfoContext(ctx, "booking created",
		"booking_id", b.ID.String(),
		"blood_group", group.String(),
		"quantity", quantity,
		"deductions", len(deductions),
	)
	return b, nil
}

// compensate restores every deducted unit after a ledger write failure. The
// compensating increments run in one transaction so the restore is itself
// all-or-nothing.
func (s *Service) compensate(ctx context.Context, b *Booking, cause error) error {
	s.logger.ErrorContext(ctx, "ledger append failed, compensating inventory",
		"booking_id", b.ID.String(),
		"error", cause,
	)

	compErr := s.txr.RunInTx(ctx, func(ctx context.Context) error {
		for _, d := range b.Deductions {
			if err := s.store.Increment(ctx, d.InventoryRecordID, d.Units); err != nil {
				return err
			}
		}
		return nil
	})
	if compErr != nil {
		s.metrics.CompensationFailures.Inc()
		s.recorder.Record(ctx, audit.Event{
			Action:    audit.ActionCompensationFailed,
			UserID:    b.UserID,
			BookingID: b.ID,
			Detail:    compErr.Error(),
		})
		s.logger.ErrorContext(ctx, "compensation failed, stores are inconsistent",
			"booking_id", b.ID.String(),
			"error", compErr,
		)
		return dErrors.Wrap(cause, dErrors.CodeInconsistentState,
			"booking not persisted and inventory compensation failed; manual reconciliation required")
	}

	s.cache.Invalidate(ctx)
	s.metrics.CompensationsTotal.Inc()
	s.recorder.Record(ctx, audit.Event{
		Action:    audit.ActionCompensationApplied,
		UserID:    b.UserID,
		BookingID: b.ID,
	})
	return dErrors.Wrap(cause, dErrors.CodePersistenceFailed,
		"booking not persisted; inventory compensation succeeded")
}

// Cancel reverses a booking: restore every recorded deduction in one
// transaction, then mark the booking CANCELLED. Only an administrator or the
// original requester may cancel, and only once.
func (s *Service) Cancel(ctx context.Context, actor domain.Principal, id domain.BookingID) (*Booking, error) {
	ctx, span := s.tracer.Start(ctx, "booking.Cancel",
		trace.WithAttributes(attribute.String("booking_id", id.String())))
	defer span.End()

	b, err := s.ledger.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "booking not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load booking")
	}
	if b.Status == StatusCancelled {
		return nil, dErrors.New(dErrors.CodeInvalidState, "booking is already cancelled")
	}
	if !actor.IsAdmin() && actor.ID != b.UserID {
		return nil, dErrors.New(dErrors.CodePermissionDenied, "only an administrator or the requester may cancel")
	}

	// The deduction trail is the source of truth for how much to restore
	// and from where; one transaction keeps the restore atomic.
	err = s.txr.RunInTx(ctx, func(ctx context.Context) error {
		for _, d := range b.Deductions {
			if err := s.store.Increment(ctx, d.InventoryRecordID, d.Units); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to restore inventory")
	}
	s.cache.Invalidate(ctx)

	updated, err := s.ledger.SetStatus(ctx, id, StatusCancelled)
	if err != nil {
		// Inventory is restored but the booking still reads ACTIVE. Roll the
		// restore back so a retry of Cancel starts from a clean state instead
		// of double-crediting.
		return nil, s.rollbackRestore(ctx, b, err)
	}

	s.metrics.CancellationsTotal.Inc()
	s.recorder.Record(ctx, audit.Event{
		Action:     audit.ActionBookingCancelled,
		UserID:     actor.ID,
		BookingID:  b.ID,
		BloodGroup: b.BloodGroup,
		Quantity:   b.Quantity,
	})
	s.logger.InfoContext(ctx, "booking cancelled",
		"booking_id", b.ID.String(),
		"cancelled_by", actor.ID.String(),
	)
	return updated, nil
}

// rollbackRestore undoes a cancellation's inventory restore after the ledger
// status write failed. The units were credited moments ago inside this call,
// so decrementing them back cannot normally run short.
func (s *Service) rollbackRestore(ctx context.Context, b *Booking, cause error) error {
	s.logger.ErrorContext(ctx, "ledger status update failed, rolling back restore",
		"booking_id", b.ID.String(),
		"error", cause,
	)

	rbErr := s.txr.RunInTx(ctx, func(ctx context.Context) error {
		for _, d := range b.Deductions {
			if err := s.store.DecrementIfSufficient(ctx, d.InventoryRecordID, d.Units); err != nil {
				return err
			}
		}
		return nil
	})
	if rbErr != nil {
		s.metrics.CompensationFailures.Inc()
		s.logger.ErrorContext(ctx, "restore rollback failed, stores are inconsistent",
			"booking_id", b.ID.String(),
			"error", rbErr,
		)
		return dErrors.Wrap(cause, dErrors.CodeInconsistentState,
			"cancellation not recorded and inventory restore could not be rolled back; manual reconciliation required")
	}
	s.cache.Invalidate(ctx)
	return dErrors.Wrap(cause, dErrors.CodePersistenceFailed,
		"cancellation not recorded; inventory restore rolled back, retry the cancellation")
}

// List returns bookings visible to the principal: administrators see every
// booking, everyone else only their own, newest first.
func (s *Service) List(ctx context.Context, actor domain.Principal) ([]*Booking, error) {
	all, err := s.ledger.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list bookings")
	}

	var out []*Booking
	for _, b := range all {
		if actor.IsAdmin() || b.UserID == actor.ID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
