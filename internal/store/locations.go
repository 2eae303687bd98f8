package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/inventar/internal/model"
)

// CreateLocation inserts a location.
func CreateLocation(ctx context.Context, db DBTX, loc model.Location) (*model.Location, error) {
	if loc.ID == "" {
		loc.ID = NewID()
	}
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = time.Now().UTC()
	}
	if loc.UpdatedAt.IsZero() {
		loc.UpdatedAt = loc.CreatedAt
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO locations (id, name, description, capacity, responsible, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		loc.ID, loc.Name, loc.Description, loc.Capacity, loc.Responsible, loc.CreatedAt, loc.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating location: %w", err)
	}

	return GetLocation(ctx, db, loc.ID)
}

// GetLocation returns a location by ID.
func GetLocation(ctx context.Context, db DBTX, id string) (*model.Location, error) {
	loc, err := scanLocation(db.QueryRowContext(ctx,
		`SELECT id, name, description, capacity, responsible, created_at, updated_at
		 FROM locations WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting location: %w", err)
	}
	return loc, nil
}

// ListLocations returns all locations ordered by name.
func ListLocations(ctx context.Context, db DBTX) ([]model.Location, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, description, capacity, responsible, created_at, updated_at
		 FROM locations ORDER BY name COLLATE NOCASE, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	defer rows.Close()

	locations := []model.Location{}
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		locations = append(locations, *loc)
	}
	return locations, rows.Err()
}

// LocationPatch holds the editable location fields. ClearCapacity removes the
// capacity limit.
type LocationPatch struct {
	Name          *string
	Description   *string
	Capacity      *int
	ClearCapacity bool
	Responsible   *string
}

// UpdateLocation applies a patch and refreshes updated_at.
func UpdateLocation(ctx context.Context, db DBTX, id string, patch LocationPatch, at time.Time) (bool, error) {
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
	if patch.ClearCapacity {
		sets = append(sets, "capacity = NULL")
	} else if patch.Capacity != nil {
		sets = append(sets, "capacity = ?")
		args = append(args, *patch.Capacity)
	}
	if patch.Responsible != nil {
		sets = append(sets, "responsible = ?")
		args = append(args, *patch.Responsible)
	}

	args = append(args, id)
	result, err := db.ExecContext(ctx,
		`UPDATE locations SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...,
	)
	if err != nil {
		return false, fmt.Errorf("updating location: %w", err)
	}
	return affected(result)
}

// DeleteLocation removes a location. Callers check item references first.
func DeleteLocation(ctx context.Context, db DBTX, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM locations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting location: %w", err)
	}
	return nil
}

func scanLocation(row rowScanner) (*model.Location, error) {
	var (
		loc      model.Location
		capacity sql.NullInt64
	)
	if err := row.Scan(&loc.ID, &loc.Name, &loc.Description, &capacity, &loc.Responsible,
		&loc.CreatedAt, &loc.UpdatedAt); err != nil {
		return nil, err
	}
	if capacity.Valid {
		c := int(capacity.Int64)
		loc.Capacity = &c
	}
	return &loc, nil
}
