package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/user-service/internal/core/domain"
)

func TestStore_AssignsSequentialIDs(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	admin, err := s.CreateRole(ctx, domain.RoleAdministrator)
	require.NoError(t, err)
	guest, err := s.CreateRole(ctx, domain.RoleGuest)
	require.NoError(t, err)
	assert.Equal(t, int64(1), admin.ID)
	assert.Equal(t, int64(2), guest.ID)

	a, err := s.CreateUser(ctx, &domain.User{Email: "a@x.com"})
	require.NoError(t, err)
	b, err := s.CreateUser(ctx, &domain.User{Email: "b@x.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)

	require.NoError(t, s.DeleteUser(ctx, b.ID))
	c, err := s.CreateUser(ctx, &domain.User{Email: "c@x.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), c.ID, "ids are never reused")
}

func TestStore_RejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	a, err := s.CreateUser(ctx, &domain.User{Email: "a@x.com"})
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, &domain.User{Email: "a@x.com"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	b, err := s.CreateUser(ctx, &domain.User{Email: "b@x.com"})
	require.NoError(t, err)
	b.Email = a.Email
	assert.ErrorIs(t, s.UpdateUser(ctx, b), domain.ErrEmailTaken)
}

func TestStore_EmailLookups(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	a, err := s.CreateUser(ctx, &domain.User{Email: "a@x.com"})
	require.NoError(t, err)

	got, err := s.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = s.GetUserByEmailExcludingID(ctx, a.ID, "a@x.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	other, err := s.GetUserByEmailExcludingID(ctx, a.ID+1, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, other.ID)

	_, err = s.GetUserByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	role, _ := s.CreateRole(ctx, domain.RoleGuest)

	in := &domain.User{Email: "a@x.com", Roles: []domain.Role{*role}}
	created, err := s.CreateUser(ctx, in)
	require.NoError(t, err)

	in.Roles[0].Name = "mutated"
	created.Roles[0].Name = "mutated"
	created.Email = "changed@x.com"

	stored, err := s.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", stored.Email)
	assert.Equal(t, domain.RoleGuest, stored.Roles[0].Name)
}

func TestStore_UpdateAndDeleteMissing(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	assert.ErrorIs(t, s.UpdateUser(ctx, &domain.User{ID: 9}), domain.ErrUserNotFound)
	assert.ErrorIs(t, s.DeleteUser(ctx, 9), domain.ErrUserNotFound)
	_, err := s.GetUserByID(ctx, 9)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestStore_Roles(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_, _ = s.CreateRole(ctx, domain.RoleAdministrator)
	_, _ = s.CreateRole(ctx, domain.RoleGuest)

	n, err := s.CountRoles(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := s.GetRolesByNames(ctx, []string{domain.RoleGuest, "Unknown", domain.RoleAdministrator})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.RoleAdministrator, got[0].Name)
	assert.Equal(t, domain.RoleGuest, got[1].Name)

	none, err := s.GetRolesByNames(ctx, []string{"Unknown"})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = s.GetRoleByName(ctx, "Unknown")
	assert.ErrorIs(t, err, domain.ErrRoleNotFound)
}

func TestStore_ListUsersOrderedByID(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, e := range []string{"c@x.com", "a@x.com", "b@x.com"} {
		_, err := s.CreateUser(ctx, &domain.User{Email: e})
		require.NoError(t, err)
	}

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	for i, u := range users {
		assert.Equal(t, int64(i+1), u.ID)
	}
}
