package audit

import (
	"context"
	"time"

	"hemobank/pkg/domain"
)

// Action identifies what happened to a booking or to stock.
type Action string

const (
	ActionBookingCreated      Action = "booking.created"
	ActionBookingCancelled    Action = "booking.cancelled"
	ActionCompensationApplied Action = "booking.compensation_applied"
	ActionCompensationFailed  Action = "booking.compensation_failed"
	ActionStockAdded          Action = "stock.added"
	ActionStockRemoved        Action = "stock.removed"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	Action     Action            `json:"action"`
	UserID     domain.UserID     `json:"userId"`
	BookingID  domain.BookingID  `json:"bookingId,omitempty"`
	BloodGroup domain.BloodGroup `json:"bloodGroup,omitempty"`
	Quantity   int               `json:"quantity,omitempty"`
	Detail     string            `json:"detail,omitempty"`
}

// Recorder accepts events without blocking the caller. The booking flow must
// never stall on the audit path.
type Recorder interface {
	Record(ctx context.Context, event Event)
}
