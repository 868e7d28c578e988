package bank

import (
	"time"

	"hemobank/pkg/domain"
)

// Bank is a physical or logical holder of blood inventory. One bank,
// designated by a well-known configured name, acts as the central first-choice
// allocation source. Display fields stay mutable; identity does not.
type Bank struct {
	ID        domain.BankID
	Name      string
	Address   string
	City      string
	Phone     string
	Email     string
	CreatedBy domain.UserID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayPatch carries optional display-field updates. Nil fields are left
// untouched.
type DisplayPatch struct {
	Name    *string
	Address *string
	City    *string
	Phone   *string
	Email   *string
}

func (p DisplayPatch) apply(b *Bank) {
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.Address != nil {
		b.Address = *p.Address
	}
	if p.City != nil {
		b.City = *p.City
	}
	if p.Phone != nil {
		b.Phone = *p.Phone
	}
	if p.Email != nil {
		b.Email = *p.Email
	}
}
