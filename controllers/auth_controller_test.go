package controllers

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shopwise/shopwise-api/config"
	"github.com/shopwise/shopwise-api/models"
	"github.com/shopwise/shopwise-api/services"
)

func TestRegister(t *testing.T) {
	env := setupTestEnv(t)

	router := setupTestRouter()
	router.POST("/auth/register", Register)

	valid := map[string]string{
		"email":      "Alice@Example.com",
		"password":   "correct-horse",
		"first_name": "Alice",
		"last_name":  "Liddell",
	}

	w := performRequest(router, http.MethodPost, "/auth/register", valid)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := dataOf(t, w)
	user := data["user"].(map[string]interface{})
	assert.Equal(t, "alice@example.com", user["email"])
	assert.Equal(t, models.RoleCustomer, user["role"])
	assert.True(t, strings.HasPrefix(user["subject"].(string), "local|"))
	assert.NotContains(t, user, "password_hash")

	claims, err := services.NewTokenService(config.GetConfig()).Parse(data["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, user["subject"], claims.Subject)
	assert.Equal(t, models.RoleCustomer, claims.Role)

	var stored models.User
	require.NoError(t, env.db.Where("email = ?", "alice@example.com").First(&stored).Error)
	assert.True(t, services.CheckPassword(stored.PasswordHash, "correct-horse"))

	t.Run("duplicate email", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, "/auth/register", valid)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "USER_EXISTS", errorCode(t, w))
	})

	invalid := []struct {
		name string
		body map[string]string
	}{
		{"bad email", map[string]string{"email": "nope", "password": "long-enough", "first_name": "A", "last_name": "B"}},
		{"short password", map[string]string{"email": "b@example.com", "password": "short", "first_name": "A", "last_name": "B"}},
		{"missing last name", map[string]string{"email": "c@example.com", "password": "long-enough", "first_name": "A"}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, http.MethodPost, "/auth/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
		})
	}
}

func TestLogin(t *testing.T) {
	env := setupTestEnv(t)

	hash, err := services.HashPassword("s3cret-pass")
	require.NoError(t, err)
	active := models.User{Subject: "local|active", Email: "active@example.com", PasswordHash: hash, FirstName: "A", Role: models.RoleEmployee, IsActive: true}
	disabled := models.User{Subject: "local|disabled", Email: "disabled@example.com", PasswordHash: hash, FirstName: "D", Role: models.RoleCustomer, IsActive: true}
	require.NoError(t, env.db.Create(&active).Error)
	require.NoError(t, env.db.Create(&disabled).Error)
	require.NoError(t, env.db.Model(&disabled).Update("is_active", false).Error)

	router := setupTestRouter()
	router.POST("/auth/login", Login)

	tests := []struct {
		name       string
		email      string
		password   string
		wantStatus int
		wantCode   string
	}{
		{name: "valid credentials", email: "ACTIVE@example.com", password: "s3cret-pass", wantStatus: http.StatusOK},
		{name: "wrong password", email: "active@example.com", password: "wrong-pass", wantStatus: http.StatusUnauthorized, wantCode: "INVALID_CREDENTIALS"},
		{name: "unknown email", email: "ghost@example.com", password: "s3cret-pass", wantStatus: http.StatusUnauthorized, wantCode: "INVALID_CREDENTIALS"},
		{name: "disabled account", email: "disabled@example.com", password: "s3cret-pass", wantStatus: http.StatusForbidden, wantCode: "ACCOUNT_DISABLED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, http.MethodPost, "/auth/login", map[string]string{"email": tt.email, "password": tt.password})
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, w))
				return
			}

			data := dataOf(t, w)
			claims, err := services.NewTokenService(config.GetConfig()).Parse(data["token"].(string))
			require.NoError(t, err)
			assert.Equal(t, active.Subject, claims.Subject)
			assert.Equal(t, models.RoleEmployee, claims.Role)
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: users.email")))
	assert.True(t, isUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "idx_users_email"`)))
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
}
