// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/cartsaver/internal/models"
	"github.com/mmynk/cartsaver/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// busy_timeout lets concurrent writers wait instead of failing with SQLITE_BUSY
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const itemColumns = `id, list_id, name, quantity, quantity_unit, category, brand,
	price, price_per_unit, store, is_purchased, updated_at`

// CreateItem persists a new item.
func (s *SQLiteStore) CreateItem(ctx context.Context, item *models.ShoppingItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.UpdatedAt == 0 {
		item.UpdatedAt = time.Now().Unix()
	}

	var price sql.NullFloat64
	if item.Price != nil {
		price = sql.NullFloat64{Float64: *item.Price, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.ListID, item.Name, item.Quantity, item.QuantityUnit, item.Category,
		item.Brand, price, item.PricePerUnit, item.Store, item.IsPurchased, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}

	return nil
}

// GetItem retrieves an item by ID.
func (s *SQLiteStore) GetItem(ctx context.Context, itemID string) (*models.ShoppingItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`,
		itemID,
	)

	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("item %s: %w", itemID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return item, nil
}

// ListItems retrieves all items on a list.
func (s *SQLiteStore) ListItems(ctx context.Context, listID string) ([]*models.ShoppingItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE list_id = ? ORDER BY name, id`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*models.ShoppingItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	return items, nil
}

// UpdateItem overwrites the pricing fields of an item.
func (s *SQLiteStore) UpdateItem(ctx context.Context, itemID string, update models.ItemUpdate) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE items SET store = ?, price = ?, price_per_unit = ?, brand = ?, updated_at = ?
		 WHERE id = ?`,
		update.Store, update.Price, update.PricePerUnit, update.Brand, time.Now().Unix(), itemID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("item %s: %w", itemID, storage.ErrNotFound)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(sc scanner) (*models.ShoppingItem, error) {
	item := &models.ShoppingItem{}
	var price sql.NullFloat64

	err := sc.Scan(&item.ID, &item.ListID, &item.Name, &item.Quantity, &item.QuantityUnit,
		&item.Category, &item.Brand, &price, &item.PricePerUnit, &item.Store,
		&item.IsPurchased, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if price.Valid {
		p := price.Float64
		item.Price = &p
	}

	return item, nil
}
