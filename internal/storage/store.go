// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/cartsaver/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ItemStore is the item persistence the optimizer depends on.
// Item CRUD belongs to the list service; this interface only covers what the
// engine reads and writes back.
type ItemStore interface {
	// CreateItem persists a new item. The item.ID field is populated when empty.
	CreateItem(ctx context.Context, item *models.ShoppingItem) error

	// GetItem retrieves an item by its ID.
	// Returns an error wrapping ErrNotFound if the item does not exist.
	GetItem(ctx context.Context, itemID string) (*models.ShoppingItem, error)

	// ListItems returns every item on a list, ordered by name.
	ListItems(ctx context.Context, listID string) ([]*models.ShoppingItem, error)

	// UpdateItem overwrites the pricing fields of one item.
	// Writes are idempotent; the last write wins.
	UpdateItem(ctx context.Context, itemID string, update models.ItemUpdate) error
}

// RunStore persists optimization run summaries.
type RunStore interface {
	// SaveRun inserts or replaces the run with the same ID.
	SaveRun(ctx context.Context, run *models.OptimizationRun) error

	// GetRun retrieves a run by session ID.
	GetRun(ctx context.Context, runID string) (*models.OptimizationRun, error)

	// ListRuns returns a user's most recent runs first. Anonymous runs are
	// listed under the empty user ID.
	ListRuns(ctx context.Context, userID string, limit int) ([]*models.OptimizationRun, error)
}

// Store combines every storage capability used by the server.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	ItemStore
	RunStore

	// Close releases any resources held by the store.
	Close() error
}
