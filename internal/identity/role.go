package identity

import (
	"fmt"
	"strings"
)

// Role is the closed set of university roles.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleDoctor  Role = "DOCTOR" // subject lead, heads the TAs
	RoleTA      Role = "TA"
	RoleStudent Role = "STUDENT"
)

// Roles lists every role in display order.
var Roles = []Role{RoleAdmin, RoleDoctor, RoleTA, RoleStudent}

// ParseRole accepts any casing of a known role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleTA, RoleStudent:
		return true
	}
	return false
}

// Label is the localized display name.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "مدير النظام"
	case RoleDoctor:
		return "دكتور المادة"
	case RoleTA:
		return "معيد"
	case RoleStudent:
		return "طالب"
	}
	return string(r)
}

// IsStaff covers everyone but students.
func (r Role) IsStaff() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleTA:
		return true
	case RoleStudent:
		return false
	}
	return false
}

// IsInstructor reports whether the role can own schedule entries.
func (r Role) IsInstructor() bool {
	switch r {
	case RoleDoctor, RoleTA:
		return true
	case RoleAdmin, RoleStudent:
		return false
	}
	return false
}

func (r Role) String() string { return string(r) }
