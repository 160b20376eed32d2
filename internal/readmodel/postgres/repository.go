package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/inventory-es/internal/readmodel"
	"github.com/utafrali/inventory-es/pkg/database"
	apperrors "github.com/utafrali/inventory-es/pkg/errors"
)

// Repository persists the projection in the inventory_read_model table, one
// row per (product, store) pair, upserted in full on each update.
type Repository struct {
	db     database.DBTX
	logger *slog.Logger
}

// NewRepository creates a postgres-backed read model.
func NewRepository(db database.DBTX, logger *slog.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Update overwrites the record for the pair.
func (r *Repository) Update(ctx context.Context, productID, storeID uuid.UUID, available, reserved int) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO inventory_read_model (product_id, store_id, available, reserved, total, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (product_id, store_id) DO UPDATE
		SET available = EXCLUDED.available,
		    reserved = EXCLUDED.reserved,
		    total = EXCLUDED.total,
		    updated_at = NOW()`,
		productID, storeID, available, reserved, available+reserved,
	)
	if err != nil {
		return fmt.Errorf("update read model %s/%s: %w", productID, storeID, err)
	}
	return nil
}

// Get returns the record for the pair, or apperrors.ErrNotFound.
func (r *Repository) Get(ctx context.Context, productID, storeID uuid.UUID) (*readmodel.Record, error) {
	var record readmodel.Record
	err := r.db.QueryRow(ctx, `
		SELECT product_id, store_id, available, reserved, total
		FROM inventory_read_model
		WHERE product_id = $1 AND store_id = $2`,
		productID, storeID,
	).Scan(&record.ProductID, &record.StoreID, &record.Available, &record.Reserved, &record.Total)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("stock %s/%s: %w", productID, storeID, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get read model %s/%s: %w", productID, storeID, err)
	}
	return &record, nil
}

// GetByProduct returns all records for the product across stores.
func (r *Repository) GetByProduct(ctx context.Context, productID uuid.UUID) ([]readmodel.Record, error) {
	rows, err := r.db.Query(ctx, `
		SELECT product_id, store_id, available, reserved, total
		FROM inventory_read_model
		WHERE product_id = $1
		ORDER BY store_id`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("get read model by product %s: %w", productID, err)
	}
	defer rows.Close()

	records := make([]readmodel.Record, 0)
	for rows.Next() {
		var record readmodel.Record
		if err := rows.Scan(&record.ProductID, &record.StoreID,
			&record.Available, &record.Reserved, &record.Total); err != nil {
			return nil, fmt.Errorf("get read model by product %s: scan: %w", productID, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get read model by product %s: %w", productID, err)
	}
	return records, nil
}

// Check reports whether at least required units are available.
func (r *Repository) Check(ctx context.Context, productID, storeID uuid.UUID, required int) (bool, error) {
	record, err := r.Get(ctx, productID, storeID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return record.Available >= required, nil
}
