package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("VALIDATION_ERROR", "bad input"), KindValidation},
		{"not found", NotFound("ORDER_NOT_FOUND", "Order not found"), KindNotFound},
		{"conflict", Conflict("REVIEW_EXISTS", "duplicate"), KindConflict},
		{"forbidden", Forbidden("FORBIDDEN", "no"), KindForbidden},
		{"unauthenticated", Unauthenticated("INVALID_CREDENTIALS", "no"), KindUnauthenticated},
		{"insufficient stock", InsufficientStock(1, 3, 2), KindInsufficientStock},
		{"invalid state", InvalidState("INVALID_STATUS_TRANSITION", "no"), KindInvalidState},
		{"foreign error", errors.New("boom"), KindUnexpected},
		{"wrapped domain error", fmt.Errorf("placing order: %w", NotFound("PRODUCT_NOT_FOUND", "missing")), KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(KindValidation))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(KindInsufficientStock))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(KindNotFound))
	assert.Equal(t, http.StatusConflict, HTTPStatus(KindConflict))
	assert.Equal(t, http.StatusConflict, HTTPStatus(KindInvalidState))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(KindForbidden))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(KindUnauthenticated))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindUnexpected))
}

func TestInsufficientStockDetails(t *testing.T) {
	err := InsufficientStock(7, 3, 2)

	appErr, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, "INSUFFICIENT_STOCK", appErr.Code)
	assert.Equal(t, uint(7), appErr.Details["product_id"])
	assert.Equal(t, 3, appErr.Details["requested"])
	assert.Equal(t, 2, appErr.Details["available"])
}

func TestUnexpectedUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Unexpected(cause, "Failed to load order")

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "Failed to load order: connection reset", err.Error())
	assert.True(t, Is(err, KindUnexpected))
	assert.False(t, Is(nil, KindUnexpected))
}
