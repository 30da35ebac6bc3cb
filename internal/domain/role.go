package domain

import (
	"fmt"
	"strings"
)

// Role is the closed set of account kinds.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleStudent, RoleTeacher}

// ParseRole converts user input into a Role. Matching is case-insensitive.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleTeacher:
		return RoleTeacher, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}
