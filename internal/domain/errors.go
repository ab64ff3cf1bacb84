// Package domain defines the error taxonomy shared by the service and API
// layers. Services detect failures close to their cause and convert them to
// one of these kinds; the API boundary translates kinds to status codes.
package domain

import "fmt"

// ValidationError reports malformed or semantically invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Entity string // "user", "product" or "sale"
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found"
}

// ConflictError reports a uniqueness or referential-integrity conflict,
// such as a duplicate email or a delete blocked by existing sales.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// AuthError reports failed authentication. The message is intentionally
// generic so callers cannot tell an unknown email from a wrong password.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// InsufficientStockError reports a stock mutation that would drive a
// product's stock negative. Available carries the current stock level for
// caller-facing messaging.
type InsufficientStockError struct {
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock, available stock: %d", e.Available)
}
