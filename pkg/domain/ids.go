package domain

import (
	"github.com/google/uuid"

	dErrors "hemobank/pkg/domain-errors"
)

// Typed UUID identifiers keep bank, booking, and inventory ids from being
// mixed up at compile time. Construct via the Parse helpers at trust
// boundaries; direct casting bypasses validation.
type (
	UserID            uuid.UUID
	BankID            uuid.UUID
	BookingID         uuid.UUID
	InventoryRecordID uuid.UUID
)

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	return UserID(u), err
}

func ParseBankID(s string) (BankID, error) {
	u, err := parseUUID(s)
	return BankID(u), err
}

func ParseBookingID(s string) (BookingID, error) {
	u, err := parseUUID(s)
	return BookingID(u), err
}

func ParseInventoryRecordID(s string) (InventoryRecordID, error) {
	u, err := parseUUID(s)
	return InventoryRecordID(u), err
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}

func (id UserID) String() string            { return uuid.UUID(id).String() }
func (id BankID) String() string            { return uuid.UUID(id).String() }
func (id BookingID) String() string         { return uuid.UUID(id).String() }
func (id InventoryRecordID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool            { return uuid.UUID(id) == uuid.Nil }
func (id BankID) IsNil() bool            { return uuid.UUID(id) == uuid.Nil }
func (id BookingID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id InventoryRecordID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Text marshaling keeps the typed ids rendering as canonical UUID strings in
// JSON (the booking ledger file and every HTTP payload rely on this).
func (id UserID) MarshalText() ([]byte, error)            { return []byte(id.String()), nil }
func (id BankID) MarshalText() ([]byte, error)            { return []byte(id.String()), nil }
func (id BookingID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id InventoryRecordID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = UserID(u)
	return nil
}

func (id *BankID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = BankID(u)
	return nil
}

func (id *BookingID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = BookingID(u)
	return nil
}

func (id *InventoryRecordID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = InventoryRecordID(u)
	return nil
}

// NewBankID and friends mint fresh identifiers for newly created entities.
func NewBankID() BankID                       { return BankID(uuid.New()) }
func NewBookingID() BookingID                 { return BookingID(uuid.New()) }
func NewInventoryRecordID() InventoryRecordID { return InventoryRecordID(uuid.New()) }
