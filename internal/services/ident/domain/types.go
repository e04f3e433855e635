// Package domain defines the core types and interfaces for the ident service:
// users, the closed role set, and opaque bearer tokens (4.I)
package domain

import "time"

// Role is one of the closed set of roles a user can hold
type Role string

const (
	RoleCitizen         Role = "citizen"
	RoleCaregiver       Role = "caregiver"
	RoleASHA            Role = "asha"
	RoleClinician       Role = "clinician"
	RoleDistrictOfficer Role = "district_officer"
	RoleStateOfficer    Role = "state_officer"
	RoleNationalAdmin   Role = "national_admin"
)

// roleRank orders roles for "at least" guards (dashboard endpoints require
// district_officer or higher). Roles outside the administrative ladder
// (citizen, caregiver, asha, clinician) rank 0 and never satisfy an
// "or higher" guard meant for the oversight roles
var roleRank = map[Role]int{
	RoleDistrictOfficer: 1,
	RoleStateOfficer:    2,
	RoleNationalAdmin:   3,
}

// AtLeast reports whether r is the given administrative role or a higher one.
// Returns false for any role (including min) outside the administrative ladder
func (r Role) AtLeast(min Role) bool {
	rr, ok := roleRank[r]
	if !ok {
		return false
	}
	mr, ok := roleRank[min]
	if !ok {
		return false
	}
	return rr >= mr
}

// ValidRole reports whether r is a member of the closed role set
func ValidRole(r Role) bool {
	switch r {
	case RoleCitizen, RoleCaregiver, RoleASHA, RoleClinician,
		RoleDistrictOfficer, RoleStateOfficer, RoleNationalAdmin:
		return true
	default:
		return false
	}
}

// User is a registered identity. The id is immutable; destroyed only by
// the right-to-erasure cascade (§3)
type User struct {
	ID        string
	Phone     string
	CreatedAt time.Time
}

// Principal is the resolved identity of an authenticated request: the
// user id plus the roles currently assigned
type Principal struct {
	UserID string
	Roles  []Role
}

// HasRole reports whether the principal holds any of the given roles
func (p Principal) HasRole(roles ...Role) bool {
	for _, have := range p.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// HasAtLeast reports whether the principal holds an administrative role at
// or above min
func (p Principal) HasAtLeast(min Role) bool {
	for _, have := range p.Roles {
		if have.AtLeast(min) {
			return true
		}
	}
	return false
}
