package domain

import (
	"fmt"
	"strings"
)

// Role is a closed set of permission tiers.
type Role string

const (
	// RoleUnknown means no role could be resolved.
	RoleUnknown     Role = ""
	RoleAdmin       Role = "admin"
	RoleStudent     Role = "student"
	RoleMentor      Role = "mentor"
	RoleCreator     Role = "creator"
	RoleDataAnalyst Role = "data_analyst"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleStudent, RoleMentor, RoleCreator, RoleDataAnalyst}

// ParseRole maps a loosely typed string onto a Role. An empty string yields RoleUnknown.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if r == RoleUnknown {
		return RoleUnknown, nil
	}
	if !r.Valid() {
		return RoleUnknown, fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStudent, RoleMentor, RoleCreator, RoleDataAnalyst:
		return true
	case RoleUnknown:
		return false
	}
	return false
}

func (r Role) Known() bool { return r != RoleUnknown }

func (r Role) String() string { return string(r) }
