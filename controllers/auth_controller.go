package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/shopwise/shopwise-api/config"
	"github.com/shopwise/shopwise-api/models"
	"github.com/shopwise/shopwise-api/services"
)

// RegisterRequest represents the request body for creating a local account
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone"`
}

// LoginRequest represents the request body for signing in
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	User      models.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Register handles POST /api/v1/auth/register - creates a customer account
func Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	hash, err := services.HashPassword(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("Failed to hash password")
		respondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create account")
		return
	}

	// Self-registered accounts are always customers
	user := models.User{
		Subject:      "local|" + uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Role:         models.RoleCustomer,
		IsActive:     true,
	}

	db := config.GetDB()
	var existing int64
	if err := db.Model(&models.User{}).Where("email = ?", user.Email).Count(&existing).Error; err != nil {
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create account")
		return
	}
	if existing > 0 {
		respondWithError(c, http.StatusConflict, "USER_EXISTS", "A user with this email already exists")
		return
	}

	if err := db.Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			respondWithError(c, http.StatusConflict, "USER_EXISTS", "A user with this email already exists")
			return
		}
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create account")
		return
	}

	respondWithToken(c, http.StatusCreated, user)
}

// Login handles POST /api/v1/auth/login
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	var user models.User
	err := config.GetDB().Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to sign in")
		return
	}

	// Unknown email and wrong password look the same to the caller
	if err != nil || !services.CheckPassword(user.PasswordHash, req.Password) {
		respondWithError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}
	if !user.IsActive {
		respondWithError(c, http.StatusForbidden, "ACCOUNT_DISABLED", "This account has been deactivated")
		return
	}

	respondWithToken(c, http.StatusOK, user)
}

func respondWithToken(c *gin.Context, status int, user models.User) {
	token, expiresAt, err := services.NewTokenService(config.GetConfig()).Issue(user)
	if err != nil {
		log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to issue token")
		respondWithError(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to issue access token")
		return
	}

	respondData(c, status, AuthResponse{User: user, Token: token, ExpiresAt: expiresAt})
}

// isUniqueViolation works with both PostgreSQL and SQLite error texts
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate") || strings.Contains(errMsg, "unique")
}
