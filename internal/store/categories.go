package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/inventar/internal/model"
)

// CreateCategory inserts a category.
func CreateCategory(ctx context.Context, db DBTX, name string) (*model.Category, error) {
	c := model.Category{ID: NewID(), Name: name}
	_, err := db.ExecContext(ctx,
		`INSERT INTO categories (id, name) VALUES (?, ?)`, c.ID, c.Name,
	)
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}
	return &c, nil
}

// PutCategory inserts or renames a category with a known ID.
func PutCategory(ctx context.Context, db DBTX, c model.Category) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO categories (id, name) VALUES (?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
		c.ID, c.Name,
	)
	if err != nil {
		return fmt.Errorf("storing category: %w", err)
	}
	return nil
}

// GetCategory returns a category by ID.
func GetCategory(ctx context.Context, db DBTX, id string) (*model.Category, error) {
	c := &model.Category{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}
	return c, nil
}

// ListCategories returns all categories ordered by name.
func ListCategories(ctx context.Context, db DBTX) ([]model.Category, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name FROM categories ORDER BY name COLLATE NOCASE`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// DeleteCategory removes a category. Items keep their embedded copy.
func DeleteCategory(ctx context.Context, db DBTX, id string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	return nil
}
