package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopwise/shopwise-api/config"
)

func TestAuth0Service_GetUserInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/userinfo" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_token"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Auth0UserInfo{
			Sub:        "auth0|42",
			Email:      "ada@example.com",
			Name:       "Ada Lovelace",
			GivenName:  "Ada",
			FamilyName: "Lovelace",
		})
	}))
	defer server.Close()

	service := NewAuth0Service(&config.Config{Auth0Domain: server.URL})

	t.Run("valid token", func(t *testing.T) {
		info, err := service.GetUserInfo(context.Background(), "good-token")
		require.NoError(t, err)
		assert.Equal(t, "auth0|42", info.Sub)
		assert.Equal(t, "ada@example.com", info.Email)
		assert.Equal(t, "Ada", info.GivenName)
		assert.Equal(t, "Lovelace", info.FamilyName)
	})

	t.Run("rejected token", func(t *testing.T) {
		info, err := service.GetUserInfo(context.Background(), "bad-token")
		assert.Nil(t, info)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
		assert.Contains(t, err.Error(), "invalid_token")
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := service.GetUserInfo(ctx, "good-token")
		assert.Error(t, err)
	})
}

func TestAuth0Service_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	_, err := NewAuth0Service(&config.Config{Auth0Domain: server.URL}).GetUserInfo(context.Background(), "token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}
