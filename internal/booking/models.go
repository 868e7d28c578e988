package booking

import (
	"time"

	"hemobank/pkg/domain"
)

// Priority is advisory only: it is recorded on the booking but does not
// affect allocation order or queuing.
type Priority string

const (
	PriorityNormal    Priority = "NORMAL"
	PriorityEmergency Priority = "EMERGENCY"
)

// Status is the booking lifecycle. The only transition is ACTIVE ->
// CANCELLED, one-way, and it always travels with a full inventory restore.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCancelled Status = "CANCELLED"
)

// Deduction records exactly how many units one booking took from one bank's
// inventory record. The relational store keeps no memory of which booking
// caused a decrement once committed, so this trail is the single source of
// truth for compensation and cancellation.
type Deduction struct {
	BankID            domain.BankID            `json:"bankId"`
	InventoryRecordID domain.InventoryRecordID `json:"inventoryRecordId"`
	Units             int                      `json:"units"`
}

// Booking is a persisted, reversible claim on blood units.
// Invariant: while ACTIVE, the deduction units sum to Quantity; a booking
// with incomplete deductions is never persisted.
type Booking struct {
	ID         domain.BookingID  `json:"id"`
	UserID     domain.UserID     `json:"userId"`
	BloodGroup domain.BloodGroup `json:"bloodGroup"`
	Quantity   int               `json:"quantity"`
	Priority   Priority          `json:"priority"`
	Status     Status            `json:"status"`
	Deductions []Deduction       `json:"deductions"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}
