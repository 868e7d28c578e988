package domain

import dErrors "hemobank/pkg/domain-errors"

// BloodGroup is one of the eight standard ABO/Rh combinations.
// Invariant: the value must be one of the recognized groups.
//
// Usage: construct via ParseBloodGroup at trust boundaries to enforce the
// closed enumeration; direct casting bypasses validation.
type BloodGroup string

const (
	BloodGroupANeg  BloodGroup = "A_NEG"
	BloodGroupAPos  BloodGroup = "A_POS"
	BloodGroupABNeg BloodGroup = "AB_NEG"
	BloodGroupABPos BloodGroup = "AB_POS"
	BloodGroupBNeg  BloodGroup = "B_NEG"
	BloodGroupBPos  BloodGroup = "B_POS"
	BloodGroupONeg  BloodGroup = "O_NEG"
	BloodGroupOPos  BloodGroup = "O_POS"
)

// bloodGroups is the single source of truth for recognized groups,
// kept in the sort order stock reports use.
var bloodGroups = []BloodGroup{
	BloodGroupANeg,
	BloodGroupAPos,
	BloodGroupABNeg,
	BloodGroupABPos,
	BloodGroupBNeg,
	BloodGroupBPos,
	BloodGroupONeg,
	BloodGroupOPos,
}

var validBloodGroups = func() map[BloodGroup]bool {
	m := make(map[BloodGroup]bool, len(bloodGroups))
	for _, g := range bloodGroups {
		m[g] = true
	}
	return m
}()

// BloodGroups returns every recognized group in report order.
func BloodGroups() []BloodGroup {
	out := make([]BloodGroup, len(bloodGroups))
	copy(out, bloodGroups)
	return out
}

// ParseBloodGroup constructs a BloodGroup from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or not one of the
// eight recognized groups; no other errors are expected.
func ParseBloodGroup(s string) (BloodGroup, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "blood group cannot be empty")
	}
	g := BloodGroup(s)
	if !g.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unrecognized blood group: "+s)
	}
	return g, nil
}

// IsValid checks whether the group is one of the recognized enum values.
func (g BloodGroup) IsValid() bool {
	return validBloodGroups[g]
}

// String returns the string representation of the group.
func (g BloodGroup) String() string {
	return string(g)
}
