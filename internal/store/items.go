package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/inventar/internal/model"
)

const itemColumns = `id, name, description, category_id, category_name, quantity, min_quantity,
	unit, location_id, status, image_url, documents, created_at, updated_at`

// CreateItem inserts an item. ID, status and timestamps are filled in when
// unset.
func CreateItem(ctx context.Context, db DBTX, item model.Item) (*model.Item, error) {
	if item.ID == "" {
		item.ID = NewID()
	}
	if item.Status == "" {
		item.Status = model.StatusAvailable
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = item.CreatedAt
	}
	docs, err := EncodeDocuments(item.Documents)
	if err != nil {
		return nil, err
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO items (`+itemColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Description, item.Category.ID, item.Category.Name,
		item.Quantity, item.MinQuantity, item.Unit, item.LocationID, string(item.Status),
		item.ImageURL, docs, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, db, item.ID)
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db DBTX, id string) (*model.Item, error) {
	row := db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ItemFilter narrows ListItems. Zero values match everything.
type ItemFilter struct {
	LocationID string
	Status     model.ItemStatus
}

// ListItems returns items ordered by name.
func ListItems(ctx context.Context, db DBTX, filter ItemFilter) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE 1=1`
	var args []any

	if filter.LocationID != "" {
		query += ` AND location_id = ?`
		args = append(args, filter.LocationID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY name COLLATE NOCASE, id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// CountItemsAtLocation returns how many items reference a location.
func CountItemsAtLocation(ctx context.Context, db DBTX, locationID string) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE location_id = ?`, locationID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting items at location: %w", err)
	}
	return count, nil
}

// ItemPatch holds the editable item fields. Nil fields are left unchanged.
// Quantity is not part of the patch; it only changes through SetItemStock.
type ItemPatch struct {
	Name        *string
	Description *string
	Category    *model.Category
	MinQuantity *int
	Unit        *string
	LocationID  *string
	Status      *model.ItemStatus
	ImageURL    *string
}

// UpdateItem applies a patch and refreshes updated_at.
func UpdateItem(ctx context.Context, db DBTX, id string, patch ItemPatch, at time.Time) (bool, error) {
	sets := []string{"updated_at = ?"}
	args := []any{at}

	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Category != nil {
		sets = append(sets, "category_id = ?", "category_name = ?")
		args = append(args, patch.Category.ID, patch.Category.Name)
	}
	if patch.MinQuantity != nil {
		sets = append(sets, "min_quantity = ?")
		args = append(args, *patch.MinQuantity)
	}
	if patch.Unit != nil {
		sets = append(sets, "unit = ?")
		args = append(args, *patch.Unit)
	}
	if patch.LocationID != nil {
		sets = append(sets, "location_id = ?")
		args = append(args, *patch.LocationID)
	}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.ImageURL != nil {
		sets = append(sets, "image_url = ?")
		args = append(args, *patch.ImageURL)
	}

	args = append(args, id)
	result, err := db.ExecContext(ctx,
		`UPDATE items SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...,
	)
	if err != nil {
		return false, fmt.Errorf("updating item: %w", err)
	}
	return affected(result)
}

// SetItemStock adds delta to the item's quantity and sets its status. The
// write only happens if the resulting quantity is not negative; the returned
// bool reports whether it did.
func SetItemStock(ctx context.Context, db DBTX, id string, delta int, status model.ItemStatus, at time.Time) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET quantity = quantity + ?, status = ?, updated_at = ?
		 WHERE id = ? AND quantity + ? >= 0`,
		delta, string(status), at, id, delta,
	)
	if err != nil {
		return false, fmt.Errorf("updating item stock: %w", err)
	}
	return affected(result)
}

// SetItemDocuments replaces the item's attachment list.
func SetItemDocuments(ctx context.Context, db DBTX, id string, docs []model.Document, at time.Time) error {
	encoded, err := EncodeDocuments(docs)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`UPDATE items SET documents = ?, updated_at = ? WHERE id = ?`,
		encoded, at, id,
	)
	if err != nil {
		return fmt.Errorf("updating item documents: %w", err)
	}
	return nil
}

// DeleteItem removes an item.
func DeleteItem(ctx context.Context, db DBTX, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

func scanItem(row rowScanner) (*model.Item, error) {
	var (
		item   model.Item
		status string
		docs   string
	)
	err := row.Scan(&item.ID, &item.Name, &item.Description, &item.Category.ID, &item.Category.Name,
		&item.Quantity, &item.MinQuantity, &item.Unit, &item.LocationID, &status,
		&item.ImageURL, &docs, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if item.Status, err = model.ParseItemStatus(status); err != nil {
		return nil, fmt.Errorf("item %s: %w", item.ID, err)
	}
	if item.Documents, err = DecodeDocuments([]byte(docs)); err != nil {
		return nil, fmt.Errorf("item %s: %w", item.ID, err)
	}
	return &item, nil
}
