package utils

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/shopwise/shopwise-api/apperrors"
)

// MaxPage bounds page numbers so (page-1)*limit cannot overflow
const MaxPage = 1_000_000

// ParseID parses a positive numeric identifier from a path or query parameter
func ParseID(value string) (uint, error) {
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Validation("INVALID_ID", fmt.Sprintf("Invalid id %q", value))
	}
	return uint(id), nil
}

// ParseOptionalID parses an identifier that may be absent
func ParseOptionalID(value string) (*uint, error) {
	if value == "" {
		return nil, nil
	}
	id, err := ParseID(value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ParsePagination reads page and limit query values. Missing or invalid
// values fall back to page 1 and defaultLimit; page is capped at MaxPage and
// limit at maxLimit.
func ParsePagination(pageStr, limitStr string, defaultLimit, maxLimit int) (page, limit int) {
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}

	limit, err = strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	return page, limit
}

// TotalPages returns the number of pages needed for total items
func TotalPages(total int64, limit int) int {
	if limit < 1 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// ParseOptionalDecimal parses a non-negative decimal query value that may be absent
func ParseOptionalDecimal(name, value string) (*decimal.Decimal, error) {
	if value == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil || d.IsNegative() {
		return nil, apperrors.Validation("VALIDATION_ERROR", fmt.Sprintf("%s must be a non-negative number", name))
	}
	return &d, nil
}
