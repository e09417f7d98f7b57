package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shopwise/shopwise-api/config"
	"github.com/shopwise/shopwise-api/middleware"
	"github.com/shopwise/shopwise-api/models"
	"github.com/shopwise/shopwise-api/services"
	"github.com/shopwise/shopwise-api/testutil"
)

// testEnv is the set of globals a controller test runs against
type testEnv struct {
	db     *gorm.DB
	ai     *services.MockAIService
	events *services.MockEventPublisher
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		db:     testutil.NewTestDB(t),
		ai:     services.NewMockAIService(),
		events: services.NewMockEventPublisher(),
	}
	config.SetDB(env.db)
	config.SetConfig(testConfig())
	env.ai.SetAsMockForTesting()
	env.events.SetAsMockForTesting()
	services.SetImageService(nil)

	t.Cleanup(func() {
		services.WaitForBackgroundJobs()
		services.SetEventPublisher(services.NoopEventPublisher{})
	})
	return env
}

func testConfig() *config.Config {
	return &config.Config{
		GoEnv:       "test",
		JWTSecret:   "controller-test-secret-0123456789",
		JWTIssuer:   "shopwise-api",
		JWTAudience: "shopwise-clients",
		JWTExpiry:   time.Hour,
	}
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	return router
}

// mockAuthMiddleware simulates the JWT middleware for testing
// It sets up the context exactly as the real EnsureValidToken middleware does
func mockAuthMiddleware(subject, role, accessToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", subject)
		c.Set("access_token", accessToken)

		mockClaims := &validator.ValidatedClaims{
			CustomClaims: &middleware.CustomClaims{Role: role},
		}
		c.Set("validated_claims", mockClaims)

		c.Next()
	}
}

// asUser places user in the context the way LoadCurrentUser does
func asUser(user models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("current_user", &user)
		c.Next()
	}
}

func performRequest(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			payload, _ := json.Marshal(b)
			reader = bytes.NewBuffer(payload)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "body: %s", w.Body.String())
	return response
}

func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	response := decodeBody(t, w)
	require.Equal(t, true, response["success"], "body: %s", w.Body.String())
	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "data is not an object: %s", w.Body.String())
	return data
}

func listOf(t *testing.T, w *httptest.ResponseRecorder) []interface{} {
	t.Helper()

	response := decodeBody(t, w)
	require.Equal(t, true, response["success"], "body: %s", w.Body.String())
	data, ok := response["data"].([]interface{})
	require.True(t, ok, "data is not a list: %s", w.Body.String())
	return data
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	response := decodeBody(t, w)
	require.Equal(t, false, response["success"], "body: %s", w.Body.String())
	errorData, ok := response["error"].(map[string]interface{})
	require.True(t, ok, "missing error object: %s", w.Body.String())
	return errorData["code"].(string)
}
