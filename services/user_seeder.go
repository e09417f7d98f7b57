package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/shopwise/shopwise-api/apperrors"
	"github.com/shopwise/shopwise-api/models"
)

// MinPasswordLength matches the registration rule for local accounts
const MinPasswordLength = 8

// SeedUser describes a local account created outside the public sign-up flow
type SeedUser struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// SeedResult reports what happened to one SeedUser
type SeedResult struct {
	User    models.User
	Created bool
}

// SeedUsers creates the given local accounts. Accounts whose email is
// already taken are left untouched and reported with Created false.
func SeedUsers(ctx context.Context, db *gorm.DB, users []SeedUser) ([]SeedResult, error) {
	for _, u := range users {
		if err := validateSeedUser(u); err != nil {
			return nil, err
		}
	}

	results := make([]SeedResult, 0, len(users))
	for _, u := range users {
		email := strings.ToLower(strings.TrimSpace(u.Email))

		var existing models.User
		err := db.WithContext(ctx).Where("email = ?", email).Limit(1).Find(&existing).Error
		if err != nil {
			return nil, apperrors.Unexpected(err, "Failed to look up user")
		}
		if existing.ID != 0 {
			log.Info().Str("email", email).Str("role", existing.Role).Msg("User already exists, skipping")
			results = append(results, SeedResult{User: existing})
			continue
		}

		hash, err := HashPassword(u.Password)
		if err != nil {
			return nil, apperrors.Unexpected(err, "Failed to hash password")
		}
		user := models.User{
			Subject:      "local|" + uuid.NewString(),
			Email:        email,
			PasswordHash: hash,
			FirstName:    u.FirstName,
			LastName:     u.LastName,
			Role:         u.Role,
			IsActive:     true,
		}
		if err := db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, apperrors.Unexpected(err, fmt.Sprintf("Failed to create user %s", email))
		}

		log.Info().Str("email", email).Str("role", user.Role).Msg("Created user")
		results = append(results, SeedResult{User: user, Created: true})
	}
	return results, nil
}

func validateSeedUser(u SeedUser) error {
	if !strings.Contains(u.Email, "@") {
		return apperrors.Validation("VALIDATION_ERROR", fmt.Sprintf("Invalid email %q", u.Email))
	}
	if len(u.Password) < MinPasswordLength {
		return apperrors.Validation("VALIDATION_ERROR",
			fmt.Sprintf("Password for %s must be at least %d characters", u.Email, MinPasswordLength))
	}
	if !models.ValidRole(u.Role) {
		return apperrors.Validation("INVALID_ROLE", fmt.Sprintf("Unknown role %q", u.Role))
	}
	return nil
}

// ListUsers returns every account, oldest first
func ListUsers(ctx context.Context, db *gorm.DB) ([]models.User, error) {
	var users []models.User
	if err := db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, apperrors.Unexpected(err, "Failed to list users")
	}
	return users, nil
}
