package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Category is one catalog row. Position fixes the order categories are
// offered in.
type Category struct {
	ID       string
	Label    string
	Position int
}

// CatalogStore reads and seeds the categories table.
type CatalogStore struct {
	db *sql.DB
}

func NewCatalogStore(db *sql.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// ListCategories returns the full catalog in display order.
func (s *CatalogStore) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, position
		FROM categories
		ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var category Category
		if err := rows.Scan(&category.ID, &category.Label, &category.Position); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

// SeedCatalog inserts the given categories when the table is empty. An
// already-populated table is left untouched so operators can edit it.
func (s *CatalogStore) SeedCatalog(ctx context.Context, categories []Category) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&count); err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	for _, category := range categories {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO categories (id, label, position) VALUES ($1, $2, $3)
		`, category.ID, category.Label, category.Position); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("seed category %s: %w", category.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}
	return nil
}

// Ping checks database reachability.
func (s *CatalogStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DefaultCatalog is the built-in category set, used to seed the database
// and as the catalog when no database is configured.
func DefaultCatalog() []Category {
	return []Category{
		{ID: "role", Label: "Role", Position: 1},
		{ID: "context", Label: "Context", Position: 2},
		{ID: "objective", Label: "Objective", Position: 3},
		{ID: "instructions", Label: "Instructions", Position: 4},
		{ID: "examples", Label: "Examples", Position: 5},
		{ID: "constraints", Label: "Constraints", Position: 6},
		{ID: "tone", Label: "Tone", Position: 7},
		{ID: "audience", Label: "Audience", Position: 8},
		{ID: "output-format", Label: "Output Format", Position: 9},
	}
}
