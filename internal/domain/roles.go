package domain

import "strings"

// Roles as issued by the school backend.
const (
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPrincipal = "admin:principal"
	RoleTeacher        = "teacher:"
	RoleStudent        = "student:"
)

var rolePriorities = map[string]int{
	RoleAdminOwner:     30,
	RoleAdminPrincipal: 29,
	RoleAdmin:          21,
	RoleTeacher:        11,
	RoleStudent:        1,
}

func RolePriority(role string) int {
	return rolePriorities[strings.TrimSpace(role)]
}

// PrimaryRole returns the highest-priority known role, or the first non-empty
// role when none is known.
func PrimaryRole(roles []string) string {
	var (
		best     string
		bestPrio int
		fallback string
	)
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		if fallback == "" {
			fallback = role
		}
		if prio := RolePriority(role); prio > bestPrio {
			best, bestPrio = role, prio
		}
	}
	if best == "" {
		return fallback
	}
	return best
}

// RoleLabel maps a role to the portal it opens.
func RoleLabel(role string) string {
	switch {
	case role == "":
		return "none"
	case strings.HasPrefix(role, RoleAdmin):
		return "admin"
	case strings.HasPrefix(role, RoleTeacher):
		return "teacher"
	case strings.HasPrefix(role, RoleStudent):
		return "student"
	default:
		return role
	}
}
