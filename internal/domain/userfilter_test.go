package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func adminUserFixture() []AdminUser {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	users := []User{
		{ID: "u1", Name: "Alice Carter", Email: "alice@example.com", CreatedAt: now},
		{ID: "u2", Name: "Bob Osborn", Email: "bob@corp.io", CreatedAt: now},
		{ID: "u3", Name: "Carla Reyes", Email: "carla@example.com", Deleted: true, CreatedAt: now},
	}
	roles := map[string][]Role{
		"u1": {RoleSuperadmin},
		"u2": {RoleAdmin, RoleUser},
	}
	return JoinRoles(users, roles, now, "en")
}

func TestFilterQueryMatchesNameAndEmail(t *testing.T) {
	users := adminUserFixture()

	got := UserFilter{Query: "ALICE"}.Apply(users)
	assert.Len(t, got, 1)
	assert.Equal(t, "u1", got[0].ID)

	got = UserFilter{Query: "example.com"}.Apply(users)
	assert.Len(t, got, 2)

	got = UserFilter{Query: "nobody"}.Apply(users)
	assert.Empty(t, got)
}

func TestFilterRoleAndStatus(t *testing.T) {
	users := adminUserFixture()

	got := UserFilter{Role: "admin"}.Apply(users)
	assert.Len(t, got, 1)
	assert.Equal(t, "u2", got[0].ID)

	got = UserFilter{Status: "deleted"}.Apply(users)
	assert.Len(t, got, 1)
	assert.Equal(t, "u3", got[0].ID)

	// u3 has no role rows so its effective role is user.
	got = UserFilter{Role: "user", Status: "deleted"}.Apply(users)
	assert.Len(t, got, 1)
}

func TestFilterEmptyMatchesEverything(t *testing.T) {
	users := adminUserFixture()
	assert.Len(t, UserFilter{}.Apply(users), len(users))
}

func TestFilterFieldsCommute(t *testing.T) {
	users := adminUserFixture()

	byNameThenRole := UserFilter{Role: "superadmin"}.Apply(UserFilter{Query: "carter"}.Apply(users))
	byRoleThenName := UserFilter{Query: "carter"}.Apply(UserFilter{Role: "superadmin"}.Apply(users))
	assert.Equal(t, byNameThenRole, byRoleThenName)

	combined := UserFilter{Query: "carter", Role: "superadmin"}.Apply(users)
	assert.Equal(t, byNameThenRole, combined)
}
