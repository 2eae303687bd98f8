// Package importer moves whole inventories in and out as JSON documents.
// Imports accept exports of the previous document database: collections may
// be lists or objects keyed by id, enum values may use the old localized
// labels and dates may use any encoding store.Timestamp understands.
package importer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

type document struct {
	Categories json.RawMessage `json:"categories"`
	Locations  json.RawMessage `json:"locations"`
	Users      json.RawMessage `json:"users"`
	Items      json.RawMessage `json:"items"`
	Loans      json.RawMessage `json:"loans"`
	Movements  json.RawMessage `json:"movements"`
}

// Result counts imported records per collection.
type Result struct {
	Categories int `json:"categories"`
	Locations  int `json:"locations"`
	Users      int `json:"users"`
	Items      int `json:"items"`
	Loans      int `json:"loans"`
	Movements  int `json:"movements"`
}

// Import reads a JSON export from r and inserts every record in one
// transaction. Nothing is written if any record is rejected.
func Import(ctx context.Context, database *sql.DB, r io.Reader, log zerolog.Logger) (*Result, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding export: %w", err)
	}

	categories, err := decodeCollection(doc.Categories, func(c *categoryRecord, id string) { setIfEmpty(&c.ID, id) })
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	locations, err := decodeCollection(doc.Locations, func(l *locationRecord, id string) { setIfEmpty(&l.ID, id) })
	if err != nil {
		return nil, fmt.Errorf("locations: %w", err)
	}
	users, err := decodeCollection(doc.Users, func(u *userRecord, id string) { setIfEmpty(&u.ID, id) })
	if err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}
	items, err := decodeCollection(doc.Items, func(i *itemRecord, id string) { setIfEmpty(&i.ID, id) })
	if err != nil {
		return nil, fmt.Errorf("items: %w", err)
	}
	loans, err := decodeCollection(doc.Loans, func(l *loanRecord, id string) { setIfEmpty(&l.ID, id) })
	if err != nil {
		return nil, fmt.Errorf("loans: %w", err)
	}
	movements, err := decodeCollection(doc.Movements, func(m *movementRecord, id string) { setIfEmpty(&m.ID, id) })
	if err != nil {
		return nil, fmt.Errorf("movements: %w", err)
	}

	res := &Result{}
	err = db.InTx(ctx, database, func(tx *sql.Tx) error {
		for _, c := range categories {
			if err := store.PutCategory(ctx, tx, model.Category{ID: c.ID, Name: c.Name}); err != nil {
				return fmt.Errorf("category %s: %w", c.ID, err)
			}
			res.Categories++
		}
		for _, l := range locations {
			loc := model.Location{
				ID:          l.ID,
				Name:        l.Name,
				Description: l.Description,
				Responsible: l.Responsible,
				CreatedAt:   l.CreatedAt.Time,
				UpdatedAt:   l.UpdatedAt.Time,
			}
			if l.Capacity != nil {
				c := int(*l.Capacity)
				loc.Capacity = &c
			}
			if _, err := store.CreateLocation(ctx, tx, loc); err != nil {
				return fmt.Errorf("location %s: %w", l.ID, err)
			}
			res.Locations++
		}
		for _, u := range users {
			snap, err := u.snapshot()
			if err != nil {
				return fmt.Errorf("user %s: %w", u.ID, err)
			}
			if snap.Role == "" {
				snap.Role = model.RoleMember
			}
			if _, err := store.CreateUser(ctx, tx, model.User{ID: snap.ID, Name: snap.Name, Email: snap.Email, Role: snap.Role}); err != nil {
				return fmt.Errorf("user %s: %w", u.ID, err)
			}
			res.Users++
		}
		for _, rec := range items {
			item, err := rec.item()
			if err != nil {
				return fmt.Errorf("item %s: %w", rec.ID, err)
			}
			if item.Quantity < 0 || item.MinQuantity < 0 {
				return fmt.Errorf("item %s: negative quantity", rec.ID)
			}
			if _, err := store.CreateItem(ctx, tx, item); err != nil {
				return fmt.Errorf("item %s: %w", rec.ID, err)
			}
			res.Items++
		}
		for _, rec := range loans {
			loan, err := rec.loan()
			if err != nil {
				return fmt.Errorf("loan %s: %w", rec.ID, err)
			}
			if err := store.ImportLoan(ctx, tx, &loan); err != nil {
				return fmt.Errorf("loan %s: %w", rec.ID, err)
			}
			res.Loans++
		}
		for _, rec := range movements {
			m, err := rec.movement()
			if err != nil {
				return fmt.Errorf("movement %s: %w", rec.ID, err)
			}
			if err := store.AppendMovement(ctx, tx, &m); err != nil {
				return fmt.Errorf("movement %s: %w", rec.ID, err)
			}
			res.Movements++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("categories", res.Categories).
		Int("locations", res.Locations).
		Int("users", res.Users).
		Int("items", res.Items).
		Int("loans", res.Loans).
		Int("movements", res.Movements).
		Msg("import finished")
	return res, nil
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

// Export is the canonical document written by Write.
type Export struct {
	ExportedAt time.Time        `json:"exportedAt"`
	Categories []model.Category `json:"categories"`
	Locations  []model.Location `json:"locations"`
	Users      []model.User     `json:"users"`
	Items      []model.Item     `json:"items"`
	Loans      []model.Loan     `json:"loans"`
	Movements  []model.Movement `json:"movements"`
}

// Write dumps every collection to w in the form Import reads back. Password
// hashes are not exported.
func Write(ctx context.Context, database *sql.DB, w io.Writer, now time.Time) error {
	exp := Export{ExportedAt: now.UTC()}
	var err error
	if exp.Categories, err = store.ListCategories(ctx, database); err != nil {
		return err
	}
	if exp.Locations, err = store.ListLocations(ctx, database); err != nil {
		return err
	}
	if exp.Users, err = store.ListUsers(ctx, database); err != nil {
		return err
	}
	if exp.Items, err = store.ListItems(ctx, database, store.ItemFilter{}); err != nil {
		return err
	}
	if exp.Loans, err = store.ListLoans(ctx, database, store.LoanFilter{}); err != nil {
		return err
	}
	if exp.Movements, err = store.ListMovements(ctx, database, store.MovementFilter{}); err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(exp); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	return nil
}
