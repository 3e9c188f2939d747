package domain

import "strings"

// UserFilter narrows the in-memory admin user list. Empty fields match
// everything; populated fields compose with logical AND.
type UserFilter struct {
	Query  string // case-insensitive substring on name or email
	Role   string // exact match on effective role
	Status string // exact match on active|deleted
}

// Matches applies the filter to a single joined user view.
func (f UserFilter) Matches(u AdminUser) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		name := strings.ToLower(u.Name)
		email := strings.ToLower(u.Email)
		if !strings.Contains(name, q) && !strings.Contains(email, q) {
			return false
		}
	}
	if f.Role != "" && string(u.EffectiveRole) != f.Role {
		return false
	}
	if f.Status != "" && u.Status() != f.Status {
		return false
	}
	return true
}

// Apply returns the subset of users matching the filter, preserving order.
func (f UserFilter) Apply(users []AdminUser) []AdminUser {
	out := make([]AdminUser, 0, len(users))
	for _, u := range users {
		if f.Matches(u) {
			out = append(out, u)
		}
	}
	return out
}
