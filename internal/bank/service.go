package bank

import (
	"context"
	"errors"
	"time"

	"hemobank/pkg/domain"
	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/platform/sentinel"
)

// Service owns bank administration. Banks are created by administrators and
// stay immutable apart from display fields once inventory references them.
type Service struct {
	store           Store
	centralBankName string
}

func NewService(store Store, centralBankName string) *Service {
	return &Service{store: store, centralBankName: centralBankName}
}

// CreateInput carries the fields of a new bank. Name and city are required.
type CreateInput struct {
	Name    string
	Address string
	City    string
	Phone   string
	Email   string
}

func (s *Service) Create(ctx context.Context, actor domain.Principal, in CreateInput) (*Bank, error) {
	if !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodePermissionDenied, "only administrators may create banks")
	}
	if in.Name == "" || in.City == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "name and city are required")
	}

	now := time.Now()
	bank := &Bank{
		ID:        domain.NewBankID(),
		Name:      in.Name,
		Address:   in.Address,
		City:      in.City,
		Phone:     in.Phone,
		Email:     in.Email,
		CreatedBy: actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, bank); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a bank with this name already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create bank")
	}
	return bank, nil
}

// Update patches display fields only; inventory-bearing identity never moves.
func (s *Service) Update(ctx context.Context, actor domain.Principal, id domain.BankID, patch DisplayPatch) (*Bank, error) {
	if !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodePermissionDenied, "only administrators may update banks")
	}

	bank, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "bank not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load bank")
	}

	patch.apply(bank)
	if bank.Name == "" || bank.City == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "name and city cannot be cleared")
	}
	if err := s.store.Update(ctx, bank); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update bank")
	}
	return bank, nil
}

func (s *Service) List(ctx context.Context, actor domain.Principal) ([]*Bank, error) {
	if !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodePermissionDenied, "only administrators may list banks")
	}
	banks, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list banks")
	}
	return banks, nil
}

// Central resolves the designated central bank by its well-known name.
// Returns sentinel.ErrNotFound unwrapped so callers can treat a missing
// central bank as "no preferred source" rather than a failure.
func (s *Service) Central(ctx context.Context) (*Bank, error) {
	return s.store.FindByName(ctx, s.centralBankName)
}

// FindByID resolves one bank; callers that accept external bank ids use this
// before touching inventory.
func (s *Service) FindByID(ctx context.Context, id domain.BankID) (*Bank, error) {
	bank, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "bank not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load bank")
	}
	return bank, nil
}
