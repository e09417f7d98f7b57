package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopwise/shopwise-api/config"
	"github.com/shopwise/shopwise-api/models"
	"github.com/shopwise/shopwise-api/services"
	"github.com/shopwise/shopwise-api/testutil"
)

// setupMockAuth0Server creates a mock HTTP server that simulates Auth0's /userinfo endpoint
func setupMockAuth0Server(userInfoMap map[string]*services.Auth0UserInfo) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/userinfo" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if len(authHeader) < 7 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		userInfo, exists := userInfoMap[authHeader[7:]]
		if !exists {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(userInfo)
	}))
}

func useAuth0(t *testing.T, server *httptest.Server) {
	t.Helper()
	cfg := testConfig()
	cfg.Auth0Domain = server.URL
	cfg.Auth0Audience = "https://api.shopwise.test"
	config.SetConfig(cfg)
}

func TestCreateUser(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name          string
		subject       string
		role          string
		info          services.Auth0UserInfo
		wantStatus    int
		wantCode      string
		wantFirstName string
		wantLastName  string
		wantRole      string
	}{
		{
			name:          "customer from full name",
			subject:       "auth0|123456",
			role:          "customer",
			info:          services.Auth0UserInfo{Email: "John@Example.com", Name: "John Doe"},
			wantStatus:    http.StatusCreated,
			wantFirstName: "John",
			wantLastName:  "Doe",
			wantRole:      models.RoleCustomer,
		},
		{
			name:          "given and family names win over name",
			subject:       "auth0|given",
			role:          "employee",
			info:          services.Auth0UserInfo{Email: "given@example.com", Name: "ignored", GivenName: "Grace", FamilyName: "Hopper"},
			wantStatus:    http.StatusCreated,
			wantFirstName: "Grace",
			wantLastName:  "Hopper",
			wantRole:      models.RoleEmployee,
		},
		{
			name:          "default role when claim is empty",
			subject:       "auth0|norole",
			info:          services.Auth0UserInfo{Email: "norole@example.com", Name: "Mononym"},
			wantStatus:    http.StatusCreated,
			wantFirstName: "Mononym",
			wantRole:      models.RoleCustomer,
		},
		{
			name:       "missing email",
			subject:    "auth0|noemail",
			info:       services.Auth0UserInfo{Name: "No Email"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "MISSING_EMAIL",
		},
		{
			name:       "missing name",
			subject:    "auth0|noname",
			info:       services.Auth0UserInfo{Email: "noname@example.com"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "MISSING_NAME",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.db.Exec("DELETE FROM users")

			token := "token-" + tt.subject
			info := tt.info
			info.Sub = tt.subject
			server := setupMockAuth0Server(map[string]*services.Auth0UserInfo{token: &info})
			defer server.Close()
			useAuth0(t, server)

			router := setupTestRouter()
			router.POST("/users", mockAuthMiddleware(tt.subject, tt.role, token), CreateUser)

			w := performRequest(router, http.MethodPost, "/users", nil)
			assert.Equal(t, tt.wantStatus, w.Code, "Response body: %s", w.Body.String())

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, w))
				return
			}

			data := dataOf(t, w)
			assert.Equal(t, tt.subject, data["subject"])
			assert.Equal(t, tt.wantFirstName, data["first_name"])
			assert.Equal(t, tt.wantLastName, data["last_name"])
			assert.Equal(t, tt.wantRole, data["role"])
			assert.NotContains(t, data, "password_hash")

			var stored models.User
			require.NoError(t, env.db.Where("subject = ?", tt.subject).First(&stored).Error)
			assert.Equal(t, stored.Email, data["email"])
		})
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	env := setupTestEnv(t)
	testutil.CreateUser(t, env.db, "first@example.com", models.RoleCustomer)

	token := "token-duplicate"
	server := setupMockAuth0Server(map[string]*services.Auth0UserInfo{
		token: {Sub: "auth0|second", Email: "first@example.com", Name: "Second User"},
	})
	defer server.Close()
	useAuth0(t, server)

	router := setupTestRouter()
	router.POST("/users", mockAuthMiddleware("auth0|second", "customer", token), CreateUser)

	w := performRequest(router, http.MethodPost, "/users", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "USER_EXISTS", errorCode(t, w))
}

func TestCreateUser_Auth0Failures(t *testing.T) {
	setupTestEnv(t)

	t.Run("local auth mode", func(t *testing.T) {
		router := setupTestRouter()
		router.POST("/users", mockAuthMiddleware("local|x", "", "token"), CreateUser)

		w := performRequest(router, http.MethodPost, "/users", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "AUTH0_NOT_CONFIGURED", errorCode(t, w))
	})

	t.Run("userinfo rejects token", func(t *testing.T) {
		server := setupMockAuth0Server(map[string]*services.Auth0UserInfo{})
		defer server.Close()
		useAuth0(t, server)

		router := setupTestRouter()
		router.POST("/users", mockAuthMiddleware("auth0|unknown", "", "unknown-token"), CreateUser)

		w := performRequest(router, http.MethodPost, "/users", nil)
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, "AUTH0_ERROR", errorCode(t, w))
	})

	t.Run("no subject in context", func(t *testing.T) {
		server := setupMockAuth0Server(map[string]*services.Auth0UserInfo{})
		defer server.Close()
		useAuth0(t, server)

		router := setupTestRouter()
		router.POST("/users", CreateUser)

		w := performRequest(router, http.MethodPost, "/users", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))
	})
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		in, first, last string
	}{
		{"", "", ""},
		{"Cher", "Cher", ""},
		{"Ada Lovelace", "Ada", "Lovelace"},
		{"  Jean   Luc  Picard ", "Jean", "Luc Picard"},
	}
	for _, tt := range tests {
		first, last := splitName(tt.in)
		assert.Equal(t, tt.first, first, tt.in)
		assert.Equal(t, tt.last, last, tt.in)
	}
}

func TestGetMyProfile(t *testing.T) {
	env := setupTestEnv(t)
	user := testutil.CreateUser(t, env.db, "me@example.com", models.RoleCustomer)

	router := setupTestRouter()
	router.GET("/users/me", asUser(user), GetMyProfile)

	w := performRequest(router, http.MethodGet, "/users/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, "me@example.com", data["email"])
	assert.Equal(t, float64(user.ID), data["id"])

	t.Run("without a loaded user", func(t *testing.T) {
		router := setupTestRouter()
		router.GET("/users/me", GetMyProfile)

		w := performRequest(router, http.MethodGet, "/users/me", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestUpdateMyProfile(t *testing.T) {
	env := setupTestEnv(t)
	user := testutil.CreateUser(t, env.db, "me@example.com", models.RoleCustomer)
	testutil.CreateUser(t, env.db, "taken@example.com", models.RoleCustomer)

	router := setupTestRouter()
	router.PUT("/users/me", asUser(user), UpdateMyProfile)

	t.Run("updates names and phone", func(t *testing.T) {
		w := performRequest(router, http.MethodPut, "/users/me", map[string]string{
			"first_name": "Updated",
			"phone":      "+1-555-0100",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := dataOf(t, w)
		assert.Equal(t, "Updated", data["first_name"])
		assert.Equal(t, "+1-555-0100", data["phone"])
		assert.Equal(t, user.LastName, data["last_name"])
	})

	t.Run("hashes a new password", func(t *testing.T) {
		w := performRequest(router, http.MethodPut, "/users/me", map[string]string{"password": "n3w-password!"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var stored models.User
		require.NoError(t, env.db.First(&stored, user.ID).Error)
		assert.True(t, services.CheckPassword(stored.PasswordHash, "n3w-password!"))
	})

	t.Run("short password", func(t *testing.T) {
		w := performRequest(router, http.MethodPut, "/users/me", map[string]string{"password": "short"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
	})

	t.Run("email taken by another user", func(t *testing.T) {
		w := performRequest(router, http.MethodPut, "/users/me", map[string]string{"email": "TAKEN@example.com"})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "EMAIL_EXISTS", errorCode(t, w))
	})

	t.Run("empty body keeps the profile", func(t *testing.T) {
		w := performRequest(router, http.MethodPut, "/users/me", map[string]string{})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "me@example.com", dataOf(t, w)["email"])
	})
}
