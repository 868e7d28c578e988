package stock

import (
	"context"
	"errors"
	"log/slog"

	"hemobank/internal/audit"
	"hemobank/internal/bank"
	"hemobank/internal/inventory"
	"hemobank/internal/platform/metrics"
	"hemobank/pkg/domain"
	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/platform/sentinel"
)

// GroupTotal is one row of the aggregate stock report.
type GroupTotal struct {
	Group domain.BloodGroup `json:"bloodGroup"`
	Units int               `json:"units"`
}

// BankDirectory resolves the banks stock operations target.
type BankDirectory interface {
	Central(ctx context.Context) (*bank.Bank, error)
	FindByID(ctx context.Context, id domain.BankID) (*bank.Bank, error)
}

// Service owns administrator stock mutations and the public aggregate report.
// A zero bank id on a mutation targets the central bank.
type Service struct {
	banks    BankDirectory
	store    inventory.Store
	cache    *Cache
	logger   *slog.Logger
	metrics  *metrics.Metrics
	recorder audit.Recorder
}

func NewService(banks BankDirectory, store inventory.Store, cache *Cache, logger *slog.Logger, m *metrics.Metrics, recorder audit.Recorder) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		banks:    banks,
		store:    store,
		cache:    cache,
		logger:   logger,
		metrics:  m,
		recorder: recorder,
	}
}

// AddStock credits units of group at the given bank, creating the inventory
// record on first use. Administrators only.
func (s *Service) AddStock(ctx context.Context, actor domain.Principal, bankID domain.BankID, group domain.BloodGroup, units int) (*inventory.Record, error) {
	if !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodePermissionDenied, "only administrators may add stock")
	}
	if !group.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unrecognized blood group")
	}
	if units <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "units must be greater than zero")
	}

	target, err := s.resolveBank(ctx, bankID)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.UpsertAdd(ctx, target.ID, group, units)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add stock")
	}

	s.cache.Invalidate(ctx)
	s.recorder.Record(ctx, audit.Event{
		Action:     audit.ActionStockAdded,
		UserID:     actor.ID,
		BloodGroup: group,
		Quantity:   units,
		Detail:     target.Name,
	})
	s.logger.InfoContext(ctx, "stock added",
		"bank", target.Name,
		"blood_group", group.String(),
		"units", units,
		"total", rec.Units,
	)
	return rec, nil
}

// RemoveStock debits units of group at the given bank. The decrement is
// conditional on sufficiency, so stock never goes negative even under
// concurrent bookings. Administrators only.
func (s *Service) RemoveStock(ctx context.Context, actor domain.Principal, bankID domain.BankID, group domain.BloodGroup, units int) (*inventory.Record, error) {
	if !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodePermissionDenied, "only administrators may remove stock")
	}
	if !group.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unrecognized blood group")
	}
	if units <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "units must be greater than zero")
	}

	target, err := s.resolveBank(ctx, bankID)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.FindByBankAndGroup(ctx, target.ID, group)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no stock record for this bank and blood group")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load stock record")
	}

	if err := s.store.DecrementIfSufficient(ctx, rec.ID, units); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrInsufficientStock):
			s.metrics.InsufficientStockTotal.Inc()
			return nil, dErrors.Newf(dErrors.CodeInsufficientStock,
				"cannot remove %d units of %s, %d available", units, group, rec.Units)
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "no stock record for this bank and blood group")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove stock")
		}
	}

	s.cache.Invalidate(ctx)
	s.recorder.Record(ctx, audit.Event{
		Action:     audit.ActionStockRemoved,
		UserID:     actor.ID,
		BloodGroup: group,
		Quantity:   units,
		Detail:     target.Name,
	})
	s.logger.InfoContext(ctx, "stock removed",
		"bank", target.Name,
		"blood_group", group.String(),
		"units", units,
	)

	updated, err := s.store.FindByID(ctx, rec.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reload stock record")
	}
	return updated, nil
}

// Report returns total units per blood group across every bank. All eight
// groups always appear, zero-filled, in fixed enum order, so consumers can
// rely on a stable shape.
func (s *Service) Report(ctx context.Context) ([]GroupTotal, error) {
	if cached, ok := s.cache.GetReport(ctx); ok {
		return cached, nil
	}

	totals, err := s.store.AggregateByGroup(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to aggregate stock")
	}

	groups := domain.BloodGroups()
	report := make([]GroupTotal, len(groups))
	for i, g := range groups {
		report[i] = GroupTotal{Group: g, Units: totals[g]}
	}

	s.cache.SetReport(ctx, report)
	return report, nil
}

// resolveBank maps a zero bank id to the central bank.
func (s *Service) resolveBank(ctx context.Context, bankID domain.BankID) (*bank.Bank, error) {
	if bankID.IsNil() {
		central, err := s.banks.Central(ctx)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound,
					"no central bank exists; create it or name a bank explicitly")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve central bank")
		}
		return central, nil
	}
	return s.banks.FindByID(ctx, bankID)
}
