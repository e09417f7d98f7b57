package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopwise/shopwise-api/apperrors"
	"github.com/shopwise/shopwise-api/models"
	"github.com/shopwise/shopwise-api/testutil"
)

func TestSeedUsers(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	users := []SeedUser{
		{Email: "Admin@Example.com", Password: "admin-password", FirstName: "Admin", LastName: "User", Role: models.RoleAdmin},
		{Email: "staff@example.com", Password: "staff-password", FirstName: "Staff", LastName: "User", Role: models.RoleEmployee},
	}

	results, err := SeedUsers(ctx, db, users)
	require.NoError(t, err)
	require.Len(t, results, 2)

	admin := results[0].User
	assert.True(t, results[0].Created)
	assert.Equal(t, "admin@example.com", admin.Email)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.True(t, admin.IsActive)
	assert.True(t, strings.HasPrefix(admin.Subject, "local|"))
	assert.True(t, CheckPassword(admin.PasswordHash, "admin-password"))
	assert.False(t, CheckPassword(admin.PasswordHash, "wrong-password"))

	t.Run("rerun leaves existing accounts alone", func(t *testing.T) {
		require.NoError(t, db.Model(&models.User{}).Where("id = ?", admin.ID).Update("first_name", "Renamed").Error)

		again, err := SeedUsers(ctx, db, users)
		require.NoError(t, err)
		require.Len(t, again, 2)
		assert.False(t, again[0].Created)
		assert.False(t, again[1].Created)
		assert.Equal(t, admin.ID, again[0].User.ID)
		assert.Equal(t, "Renamed", again[0].User.FirstName)

		listed, err := ListUsers(ctx, db)
		require.NoError(t, err)
		assert.Len(t, listed, 2)
	})

	t.Run("seeded admin can obtain a token", func(t *testing.T) {
		tokens := NewTokenService(testTokenConfig())
		token, _, err := tokens.Issue(admin)
		require.NoError(t, err)

		claims, err := tokens.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, claims.Role)
	})
}

func TestSeedUsers_Validation(t *testing.T) {
	tests := []struct {
		name     string
		user     SeedUser
		wantCode string
	}{
		{"bad email", SeedUser{Email: "admin", Password: "long-enough", Role: models.RoleAdmin}, "VALIDATION_ERROR"},
		{"short password", SeedUser{Email: "a@example.com", Password: "short", Role: models.RoleAdmin}, "VALIDATION_ERROR"},
		{"unknown role", SeedUser{Email: "a@example.com", Password: "long-enough", Role: "superuser"}, "INVALID_ROLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.NewTestDB(t)
			valid := SeedUser{Email: "ok@example.com", Password: "long-enough", Role: models.RoleCustomer}

			_, err := SeedUsers(context.Background(), db, []SeedUser{valid, tt.user})
			require.Error(t, err)
			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, appErr.Code)

			users, err := ListUsers(context.Background(), db)
			require.NoError(t, err)
			assert.Empty(t, users, "nothing is created when any entry is invalid")
		})
	}
}

func TestListUsers_OldestFirst(t *testing.T) {
	db := testutil.NewTestDB(t)
	first := testutil.CreateUser(t, db, "first@example.com", models.RoleCustomer)
	second := testutil.CreateUser(t, db, "second@example.com", models.RoleAdmin)

	users, err := ListUsers(context.Background(), db)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, first.ID, users[0].ID)
	assert.Equal(t, second.ID, users[1].ID)
	assert.Empty(t, users[0].PasswordHash)
}
