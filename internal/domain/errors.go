package domain

import "errors"

// Domain sentinel errors. The HTTP layer maps these to status codes.
var (
	// ErrInvalidQuantity is returned when a quantity violates domain rules:
	// negative, zero where positive is required, or a subtraction that would
	// underflow.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInsufficientStock is returned when a reservation requests more than
	// the available quantity.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrReservationNotFound is returned by commit/release for an unknown
	// reservation id.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrConcurrencyConflict is returned by the event store when the expected
	// version does not match the stored version.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)
