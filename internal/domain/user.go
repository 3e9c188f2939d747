package domain

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// User represents an authenticated account within the platform.
type User struct {
	ID         string
	GoogleSub  string
	Email      string
	Name       string
	Picture    string
	Locale     string
	Deleted    bool
	LastSeenAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Status returns the display status derived from the soft-delete flag.
func (u User) Status() string {
	if u.Deleted {
		return "deleted"
	}
	return "active"
}

// AdminUser is the admin-list view of a user: the row joined in memory with
// its role rows, plus display fields.
type AdminUser struct {
	User
	Roles         []Role
	EffectiveRole Role
	LastActive    string
}

// JoinRoles builds AdminUser views by joining user rows with role rows in
// memory. Users without role rows get the default user role.
func JoinRoles(users []User, rolesByUser map[string][]Role, now time.Time, locale string) []AdminUser {
	out := make([]AdminUser, 0, len(users))
	for _, u := range users {
		roles := rolesByUser[u.ID]
		out = append(out, AdminUser{
			User:          u,
			Roles:         roles,
			EffectiveRole: HighestRole(roles),
			LastActive:    LastActiveDisplay(u.lastActiveAt(), now, locale),
		})
	}
	return out
}

func (u User) lastActiveAt() time.Time {
	if u.LastSeenAt != nil {
		return *u.LastSeenAt
	}
	return u.CreatedAt
}

var indonesianMonths = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// LastActiveDisplay renders the tiered last-active string:
// under 24h "Today, HH:MM"; under 48h "Yesterday, HH:MM"; under 7 days
// "N days ago"; otherwise a date localized to the request locale.
func LastActiveDisplay(lastActive, now time.Time, locale string) string {
	since := now.Sub(lastActive)
	switch {
	case since < 24*time.Hour:
		return "Today, " + lastActive.Format("15:04")
	case since < 48*time.Hour:
		return "Yesterday, " + lastActive.Format("15:04")
	case since < 7*24*time.Hour:
		days := int(since.Hours() / 24)
		return fmt.Sprintf("%d days ago", days)
	default:
		return localizedDate(lastActive, locale)
	}
}

func localizedDate(t time.Time, locale string) string {
	tag, err := language.Parse(locale)
	if err == nil {
		if base, _ := tag.Base(); base.String() == "id" {
			return fmt.Sprintf("%d %s %d", t.Day(), indonesianMonths[t.Month()-1], t.Year())
		}
	}
	return t.Format("Jan 2, 2006")
}
