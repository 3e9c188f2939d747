package domain

// Role enumerates supported access roles.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

var roleRank = map[Role]int{
	RoleUser:       0,
	RoleAdmin:      1,
	RoleSuperadmin: 2,
}

// ParseRole normalizes a raw role string. Unknown values report ok=false.
func ParseRole(raw string) (Role, bool) {
	r := Role(raw)
	_, ok := roleRank[r]
	return r, ok
}

// HighestRole resolves the effective role from a user's role rows.
// Precedence is superadmin > admin > user; no rows means user.
func HighestRole(roles []Role) Role {
	highest := RoleUser
	for _, r := range roles {
		if roleRank[r] > roleRank[highest] {
			highest = r
		}
	}
	return highest
}

// AtLeast reports whether role meets the given minimum privilege level.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min]
}

// CanDeleteUser evaluates the deletion permission rule: a target holding the
// superadmin role may only be deleted by another superadmin. Everyone else may
// be deleted by any admin-level actor (route access itself is gated separately).
func CanDeleteUser(actorRoles, targetRoles []Role) bool {
	if HighestRole(targetRoles) != RoleSuperadmin {
		return true
	}
	return HighestRole(actorRoles) == RoleSuperadmin
}
