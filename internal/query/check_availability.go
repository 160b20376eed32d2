package query

import (
	"context"
	"errors"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/inventory-es/pkg/errors"
)

// AvailabilityResult answers "can required units be reserved right now".
type AvailabilityResult struct {
	Available    bool `json:"available"`
	CurrentStock int  `json:"current_stock"`
	Required     int  `json:"required"`
}

// CheckAvailability reports whether the pair has at least required available
// units. The check always bypasses the cache: it feeds reservation decisions,
// so a stale answer is worse than an extra read-model hit. An unknown pair is
// simply unavailable.
func (q *Queries) CheckAvailability(ctx context.Context, productID, storeID uuid.UUID, required int) (*AvailabilityResult, error) {
	record, err := q.readModel.Get(ctx, productID, storeID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return &AvailabilityResult{Available: false, CurrentStock: 0, Required: required}, nil
	}
	if err != nil {
		return nil, err
	}

	return &AvailabilityResult{
		Available:    record.Available >= required,
		CurrentStock: record.Available,
		Required:     required,
	}, nil
}
