package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/utafrali/inventory-es/internal/domain"
	"github.com/utafrali/inventory-es/internal/readmodel"
	apperrors "github.com/utafrali/inventory-es/pkg/errors"
)

const fileName = "inventory.json"

// Repository is a file-backed projection: one JSON map keyed "<p>:<s>",
// atomically swapped on each update. The whole map is held in memory and
// guarded by a single RWMutex.
type Repository struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	records map[string]readmodel.Record
}

// New creates a file repository rooted at dir, loading the existing
// projection if present.
func New(dir string, logger *slog.Logger) (*Repository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create read model dir: %w", err)
	}

	r := &Repository{
		path:    filepath.Join(dir, fileName),
		logger:  logger,
		records: make(map[string]readmodel.Record),
	}

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read projection: %w", err)
	}
	if err := json.Unmarshal(data, &r.records); err != nil {
		return nil, fmt.Errorf("decode projection: %w", err)
	}
	return r, nil
}

// Update overwrites the record for the pair and persists the projection.
func (r *Repository) Update(ctx context.Context, productID, storeID uuid.UUID, available, reserved int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[domain.AggregateKey(productID, storeID)] = readmodel.Record{
		ProductID: productID.String(),
		StoreID:   storeID.String(),
		Available: available,
		Reserved:  reserved,
		Total:     available + reserved,
	}
	return r.save()
}

// Get returns the record for the pair, or apperrors.ErrNotFound.
func (r *Repository) Get(ctx context.Context, productID, storeID uuid.UUID) (*readmodel.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[domain.AggregateKey(productID, storeID)]
	if !ok {
		return nil, fmt.Errorf("stock %s/%s: %w", productID, storeID, apperrors.ErrNotFound)
	}
	return &record, nil
}

// GetByProduct returns all records for the product across stores.
func (r *Repository) GetByProduct(ctx context.Context, productID uuid.UUID) ([]readmodel.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	prefix := productID.String()
	records := make([]readmodel.Record, 0)
	for _, record := range r.records {
		if record.ProductID == prefix {
			records = append(records, record)
		}
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

// save writes the projection atomically. Callers hold the write lock.
func (r *Repository) save() error {
	data, err := json.MarshalIndent(r.records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode projection: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".projection-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp projection: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp projection: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync temp projection: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp projection: %w", err)
	}

	if err := os.Rename(tmpName, r.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("swap projection: %w", err)
	}
	return nil
}
