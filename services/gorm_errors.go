package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// isDuplicateKeyError reports a unique constraint violation (works with both PostgreSQL and SQLite)
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate") ||
		strings.Contains(errMsg, "unique constraint") ||
		strings.Contains(errMsg, "unique")
}
