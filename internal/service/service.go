package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/utafrali/inventory-es/internal/command"
	"github.com/utafrali/inventory-es/internal/domain"
	"github.com/utafrali/inventory-es/internal/query"
	"github.com/utafrali/inventory-es/internal/readmodel"
)

// maxCommandTries bounds optimistic-concurrency retries per command.
const maxCommandTries = 3

// Service is the application facade over the write and read sides. Commands
// that lose an optimistic-concurrency race are retried against a freshly
// replayed aggregate; any other failure aborts immediately.
type Service struct {
	commands *command.Commands
	queries  *query.Queries
	logger   *slog.Logger
}

// New wires the facade.
func New(commands *command.Commands, queries *query.Queries, logger *slog.Logger) *Service {
	return &Service{commands: commands, queries: queries, logger: logger}
}

// withRetry runs op until it succeeds, fails with a non-conflict error, or
// exhausts maxCommandTries.
func (s *Service) withRetry(ctx context.Context, name string, op func() (*command.Result, error)) (*command.Result, error) {
	attempt := 0
	wrapped := func() (*command.Result, error) {
		attempt++
		result, err := op()
		if err == nil {
			return result, nil
		}
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			s.logger.WarnContext(ctx, "command lost version race, retrying",
				slog.String("command", name),
				slog.Int("attempt", attempt),
			)
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond

	return backoff.Retry(ctx, wrapped,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(maxCommandTries),
	)
}

func (s *Service) AddStock(ctx context.Context, productID, storeID uuid.UUID, quantity int, reason string) (*command.Result, error) {
	return s.withRetry(ctx, "add_stock", func() (*command.Result, error) {
		return s.commands.AddStock(ctx, productID, storeID, quantity, reason)
	})
}

func (s *Service) ReserveStock(ctx context.Context, productID, storeID, customerID uuid.UUID, quantity int, ttl time.Duration) (*command.Result, error) {
	return s.withRetry(ctx, "reserve_stock", func() (*command.Result, error) {
		return s.commands.ReserveStock(ctx, productID, storeID, customerID, quantity, ttl)
	})
}

func (s *Service) CommitReservation(ctx context.Context, productID, storeID, reservationID, orderID uuid.UUID) (*command.Result, error) {
	return s.withRetry(ctx, "commit_reservation", func() (*command.Result, error) {
		return s.commands.CommitReservation(ctx, productID, storeID, reservationID, orderID)
	})
}

func (s *Service) ReleaseReservation(ctx context.Context, productID, storeID, reservationID uuid.UUID, reason string) (*command.Result, error) {
	return s.withRetry(ctx, "release_reservation", func() (*command.Result, error) {
		return s.commands.ReleaseReservation(ctx, productID, storeID, reservationID, reason)
	})
}

func (s *Service) AdjustStock(ctx context.Context, productID, storeID uuid.UUID, newQuantity int, reason string) (*command.Result, error) {
	return s.withRetry(ctx, "adjust_stock", func() (*command.Result, error) {
		return s.commands.AdjustStock(ctx, productID, storeID, newQuantity, reason)
	})
}

// RebuildProjection replays all aggregates into the read model. No retry:
// the caller reruns it on failure.
func (s *Service) RebuildProjection(ctx context.Context) (int, error) {
	return s.commands.RebuildProjection(ctx)
}

func (s *Service) GetStock(ctx context.Context, productID, storeID uuid.UUID) (*readmodel.Record, error) {
	return s.queries.GetStock(ctx, productID, storeID)
}

func (s *Service) CheckAvailability(ctx context.Context, productID, storeID uuid.UUID, required int) (*query.AvailabilityResult, error) {
	return s.queries.CheckAvailability(ctx, productID, storeID, required)
}

func (s *Service) GetProductInventory(ctx context.Context, productID uuid.UUID) ([]readmodel.Record, error) {
	return s.queries.GetProductInventory(ctx, productID)
}
