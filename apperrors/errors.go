package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error so the HTTP layer can pick a status code
type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindForbidden
	KindUnauthenticated
	KindInsufficientStock
	KindInvalidState
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindInvalidState:
		return "invalid_state"
	default:
		return "unexpected"
	}
}

// Error is the domain error returned by workflows
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports malformed or missing input
func Validation(code, message string) error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// NotFound reports a referenced entity that does not exist
func NotFound(code, message string) error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

// Conflict reports a uniqueness violation or a blocked mutation
func Conflict(code, message string) error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// Forbidden reports an authenticated caller without the required capability
func Forbidden(code, message string) error {
	return &Error{Kind: KindForbidden, Code: code, Message: message}
}

// Unauthenticated reports missing or invalid credentials
func Unauthenticated(code, message string) error {
	return &Error{Kind: KindUnauthenticated, Code: code, Message: message}
}

// InvalidState reports a mutation that the current entity state does not allow
func InvalidState(code, message string) error {
	return &Error{Kind: KindInvalidState, Code: code, Message: message}
}

// InsufficientStock reports an order line that exceeds available inventory
func InsufficientStock(productID uint, requested, available int) error {
	return &Error{
		Kind:    KindInsufficientStock,
		Code:    "INSUFFICIENT_STOCK",
		Message: fmt.Sprintf("Insufficient stock for product %d: requested %d, available %d", productID, requested, available),
		Details: map[string]interface{}{
			"product_id": productID,
			"requested":  requested,
			"available":  available,
		},
	}
}

// Unexpected wraps an infrastructure failure
func Unexpected(err error, message string) error {
	return &Error{Kind: KindUnexpected, Code: "INTERNAL_ERROR", Message: message, Err: err}
}

// As extracts the domain error from err, if any
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindUnexpected for foreign errors
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindUnexpected
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind to its response status code
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindInsufficientStock:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindInvalidState:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
