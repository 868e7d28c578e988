package domain

// Role is the caller's resolved role attribute. Role resolution itself is an
// external collaborator; the core only consumes the result.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleDoctor  Role = "DOCTOR"
	RolePatient Role = "PATIENT"
)

// Principal is an authenticated caller as produced by the identity layer.
type Principal struct {
	ID   UserID
	Role Role
}

// IsAdmin reports whether the principal carries the administrator role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanBook reports whether the principal's role is allowed to book blood.
// Only doctors and patients place bookings; admins manage stock instead.
func (p Principal) CanBook() bool {
	return p.Role == RoleDoctor || p.Role == RolePatient
}
