package bank

import (
	"context"

	"hemobank/pkg/domain"
)

// Store persists banks. Implementations return pkg/platform/sentinel errors
// for infrastructure facts (ErrNotFound, ErrConflict) so the service layer
// can translate them into domain errors.
type Store interface {
	Create(ctx context.Context, bank *Bank) error
	FindByID(ctx context.Context, id domain.BankID) (*Bank, error)
	// FindByName matches case-insensitively; bank names are unique.
	FindByName(ctx context.Context, name string) (*Bank, error)
	List(ctx context.Context) ([]*Bank, error)
	Update(ctx context.Context, bank *Bank) error
}
