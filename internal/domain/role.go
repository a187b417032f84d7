package domain

import (
	"fmt"
	"strings"
)

// Role enumerates account roles.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTechnician Role = "technician"
	RoleUser       Role = "user"
)

// Roles lists every known role.
var Roles = []Role{RoleAdmin, RoleTechnician, RoleUser}

// ParseRole normalizes and validates a role string.
func ParseRole(raw string) (Role, error) {
	switch role := Role(strings.ToLower(strings.TrimSpace(raw))); role {
	case RoleAdmin, RoleTechnician, RoleUser:
		return role, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTechnician, RoleUser:
		return true
	default:
		return false
	}
}
