package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/utafrali/inventory-es/internal/domain"
	apperrors "github.com/utafrali/inventory-es/pkg/errors"
	"github.com/utafrali/inventory-es/pkg/httputil"
)

// writeDomainError maps domain sentinels onto HTTP statuses and stable error
// codes. Anything unmapped falls through to the generic error writer.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		httputil.WriteError(w, r, &apperrors.AppError{
			Code:    "INVALID_QUANTITY",
			Message: err.Error(),
			Status:  http.StatusBadRequest,
			Err:     err,
		}, logger)

	case errors.Is(err, domain.ErrInsufficientStock):
		httputil.WriteError(w, r, &apperrors.AppError{
			Code:    "INSUFFICIENT_STOCK",
			Message: err.Error(),
			Status:  http.StatusConflict,
			Err:     err,
		}, logger)

	case errors.Is(err, domain.ErrConcurrencyConflict):
		httputil.WriteError(w, r, &apperrors.AppError{
			Code:    "CONCURRENCY_CONFLICT",
			Message: "concurrent modification, please retry",
			Status:  http.StatusConflict,
			Err:     err,
		}, logger)

	case errors.Is(err, domain.ErrReservationNotFound):
		httputil.WriteError(w, r, &apperrors.AppError{
			Code:    "RESERVATION_NOT_FOUND",
			Message: err.Error(),
			Status:  http.StatusNotFound,
			Err:     err,
		}, logger)

	default:
		httputil.WriteError(w, r, err, logger)
	}
}
