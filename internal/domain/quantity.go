package domain

import "fmt"

// Quantity is a non-negative stock count.
type Quantity int

// NewQuantity validates that v is non-negative and returns it as a Quantity.
func NewQuantity(v int) (Quantity, error) {
	if v < 0 {
		return 0, fmt.Errorf("quantity must be non-negative, got %d: %w", v, ErrInvalidQuantity)
	}
	return Quantity(v), nil
}

// Value returns the quantity as a plain int.
func (q Quantity) Value() int {
	return int(q)
}

// Add returns q + other.
func (q Quantity) Add(other Quantity) Quantity {
	return q + other
}

// Subtract returns q - other, failing with ErrInvalidQuantity if the result
// would be negative.
func (q Quantity) Subtract(other Quantity) (Quantity, error) {
	if other > q {
		return 0, fmt.Errorf("cannot subtract %d from %d: %w", other, q, ErrInvalidQuantity)
	}
	return q - other, nil
}
