package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/inventar/internal/model"
)

const movementColumns = `id, item_id, item_name, item_unit, item_category, item_location,
	type, reason, quantity, user_id, user_name, user_email, user_role, date, notes`

// AppendMovement writes a new ledger entry. The ledger has no update or
// delete; the table rejects both.
func AppendMovement(ctx context.Context, db DBTX, m *model.Movement) error {
	if m.ID == "" {
		m.ID = NewID()
	}
	if m.Date.IsZero() {
		m.Date = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO movements (`+movementColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Item.ID, m.Item.Name, m.Item.Unit, m.Item.CategoryName, m.Item.LocationID,
		string(m.Type), string(m.Reason), m.Quantity,
		m.ResponsibleUser.ID, m.ResponsibleUser.Name, m.ResponsibleUser.Email, string(m.ResponsibleUser.Role),
		m.Date, m.Notes,
	)
	if err != nil {
		return fmt.Errorf("appending movement: %w", err)
	}
	return nil
}

// GetMovement returns a movement by ID.
func GetMovement(ctx context.Context, db DBTX, id string) (*model.Movement, error) {
	m, err := scanMovement(db.QueryRowContext(ctx,
		`SELECT `+movementColumns+` FROM movements WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting movement: %w", err)
	}
	return m, nil
}

// MovementFilter narrows ListMovements. Zero values match everything.
type MovementFilter struct {
	ItemID string
	Type   model.MovementType
}

// ListMovements returns movements, newest first.
func ListMovements(ctx context.Context, db DBTX, filter MovementFilter) ([]model.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE 1=1`
	var args []any

	if filter.ItemID != "" {
		query += ` AND item_id = ?`
		args = append(args, filter.ItemID)
	}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(filter.Type))
	}
	query += ` ORDER BY date DESC, rowid DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing movements: %w", err)
	}
	defer rows.Close()

	movements := []model.Movement{}
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning movement: %w", err)
		}
		movements = append(movements, *m)
	}
	return movements, rows.Err()
}

func scanMovement(row rowScanner) (*model.Movement, error) {
	var (
		m                 model.Movement
		typ, reason, role string
	)
	err := row.Scan(&m.ID, &m.Item.ID, &m.Item.Name, &m.Item.Unit, &m.Item.CategoryName, &m.Item.LocationID,
		&typ, &reason, &m.Quantity,
		&m.ResponsibleUser.ID, &m.ResponsibleUser.Name, &m.ResponsibleUser.Email, &role,
		&m.Date, &m.Notes)
	if err != nil {
		return nil, err
	}

	if m.Type, err = model.ParseMovementType(typ); err != nil {
		return nil, fmt.Errorf("movement %s: %w", m.ID, err)
	}
	if m.Reason, err = model.ParseMovementReason(reason); err != nil {
		return nil, fmt.Errorf("movement %s: %w", m.ID, err)
	}
	m.ResponsibleUser.Role = model.Role(role)
	return &m, nil
}
