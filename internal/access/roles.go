package access

import (
	"strings"
	"time"
)

// Role is the job-function tag that gates which stages a user may edit.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleSubadmin       Role = "subadmin"
	RoleStage1Employee Role = "stage1_employee"
	RoleStage2Employee Role = "stage2_employee"
	RoleStage3Employee Role = "stage3_employee"
	RoleCustomer       Role = "customer"
)

var allRoles = []Role{
	RoleAdmin,
	RoleSubadmin,
	RoleStage1Employee,
	RoleStage2Employee,
	RoleStage3Employee,
	RoleCustomer,
}

// AllRoles returns every known role.
func AllRoles() []Role {
	cp := make([]Role, len(allRoles))
	copy(cp, allRoles)
	return cp
}

// ParseRole converts a string into a known Role.
func ParseRole(value string) (Role, bool) {
	normalized := Role(strings.ToLower(strings.TrimSpace(value)))
	for _, role := range allRoles {
		if role == normalized {
			return role, true
		}
	}
	return "", false
}

// User is an actor resolved from the user directory.
type User struct {
	ID        int64
	Name      string
	Email     string
	Role      Role
	IsAdmin   bool
	CreatedAt time.Time
}

// Admin reports whether the user holds the admin override, either through the
// is_admin flag or the admin role.
func (u User) Admin() bool {
	return u.IsAdmin || u.Role == RoleAdmin
}
