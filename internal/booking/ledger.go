package booking

import (
	"context"

	"hemobank/pkg/domain"
)

// Ledger is the durable store of bookings. The backing implementation may be
// a transactional store or a mutex-guarded flat file with atomic replace; the
// contract that matters is single-writer mutation and atomic
// whole-collection replacement.
//
// Implementations return sentinel errors: ErrConflict when appending an id
// that already exists, ErrNotFound for unknown ids.
type Ledger interface {
	Append(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id domain.BookingID) (*Booking, error)
	ListAll(ctx context.Context) ([]*Booking, error)
	SetStatus(ctx context.Context, id domain.BookingID, status Status) (*Booking, error)
}
