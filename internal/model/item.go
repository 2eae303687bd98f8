package model

import "time"

// ItemStatus is the availability state of an item.
type ItemStatus string

// Item statuses. Borrowed is derived from loan activity; Damaged and
// Maintenance are set by hand and stay until edited.
const (
	StatusAvailable   ItemStatus = "available"
	StatusBorrowed    ItemStatus = "borrowed"
	StatusDamaged     ItemStatus = "damaged"
	StatusMaintenance ItemStatus = "maintenance"
)

// Valid reports whether s is one of the known statuses.
func (s ItemStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusBorrowed, StatusDamaged, StatusMaintenance:
		return true
	}
	return false
}

// Manual reports whether the status is only ever set by an explicit edit.
func (s ItemStatus) Manual() bool {
	return s == StatusDamaged || s == StatusMaintenance
}

// Category groups items. Items embed it by value.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Document types.
const (
	DocumentImage    = "image"
	DocumentPDF      = "pdf"
	DocumentDocument = "document"
)

// Document is the metadata of a file attached to an item.
type Document struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Path       string    `json:"path"`
	Type       string    `json:"type"`
	Size       int64     `json:"size"`
	UploadDate time.Time `json:"uploadDate"`
}

// Item represents a trackable asset or supply type.
type Item struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Category    Category   `json:"category"`
	Quantity    int        `json:"quantity"`
	MinQuantity int        `json:"minQuantity"`
	Unit        string     `json:"unit"`
	LocationID  string     `json:"locationId"`
	Status      ItemStatus `json:"status"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	Documents   []Document `json:"documents"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// LowStock reports whether the item is at or below its minimum quantity.
func (i Item) LowStock() bool {
	return i.Quantity <= i.MinQuantity
}

// Snapshot returns the value copy embedded into ledger entries.
func (i Item) Snapshot() ItemSnapshot {
	return ItemSnapshot{
		ID:           i.ID,
		Name:         i.Name,
		Unit:         i.Unit,
		CategoryName: i.Category.Name,
		LocationID:   i.LocationID,
	}
}

// ItemSnapshot is an item as it was when a movement or loan was written.
// It is never updated afterwards.
type ItemSnapshot struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Unit         string `json:"unit,omitempty"`
	CategoryName string `json:"categoryName,omitempty"`
	LocationID   string `json:"locationId,omitempty"`
}
