package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// number accepts JSON numbers and numeric strings.
type number int

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	s := strings.Trim(string(data), `"`)
	if s == "" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s", data)
	}
	*n = number(f)
	return nil
}

// reference accepts either an id string or an object with an id.
type reference struct {
	ID   string
	Name string
}

func (r *reference) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		return nil
	case len(data) > 0 && data[0] == '"':
		return json.Unmarshal(data, &r.ID)
	default:
		var obj struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		r.ID, r.Name = obj.ID, obj.Name
		return nil
	}
}

type categoryRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type locationRecord struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Capacity    *number         `json:"capacity"`
	Responsible string          `json:"responsible"`
	CreatedAt   store.Timestamp `json:"createdAt"`
	UpdatedAt   store.Timestamp `json:"updatedAt"`
}

type userRecord struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (u userRecord) snapshot() (model.UserSnapshot, error) {
	snap := model.UserSnapshot{ID: u.ID, Name: u.Name, Email: u.Email}
	if u.Role != "" {
		role, err := model.ParseRole(u.Role)
		if err != nil {
			return snap, err
		}
		snap.Role = role
	}
	return snap, nil
}

type itemRecord struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    reference       `json:"category"`
	Quantity    number          `json:"quantity"`
	MinQuantity number          `json:"minQuantity"`
	Unit        string          `json:"unit"`
	Location    reference       `json:"location"`
	LocationID  string          `json:"locationId"`
	Status      string          `json:"status"`
	ImageURL    string          `json:"imageUrl"`
	Documents   json.RawMessage `json:"documents"`
	CreatedAt   store.Timestamp `json:"createdAt"`
	UpdatedAt   store.Timestamp `json:"updatedAt"`
}

func (r itemRecord) item() (model.Item, error) {
	item := model.Item{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Category:    model.Category{ID: r.Category.ID, Name: r.Category.Name},
		Quantity:    int(r.Quantity),
		MinQuantity: int(r.MinQuantity),
		Unit:        r.Unit,
		LocationID:  r.LocationID,
		ImageURL:    r.ImageURL,
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
	}
	if item.LocationID == "" {
		item.LocationID = r.Location.ID
	}
	if r.Status != "" {
		status, err := model.ParseItemStatus(r.Status)
		if err != nil {
			return item, err
		}
		item.Status = status
	}
	docs, err := store.DecodeDocuments(r.Documents)
	if err != nil {
		return item, err
	}
	item.Documents = docs
	return item, nil
}

// itemRef is the item as embedded in movements and loans.
type itemRef struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Unit         string    `json:"unit"`
	Category     reference `json:"category"`
	CategoryName string    `json:"categoryName"`
	Location     reference `json:"location"`
	LocationID   string    `json:"locationId"`
}

func (r itemRef) snapshot() model.ItemSnapshot {
	snap := model.ItemSnapshot{ID: r.ID, Name: r.Name, Unit: r.Unit, CategoryName: r.CategoryName, LocationID: r.LocationID}
	if snap.CategoryName == "" {
		snap.CategoryName = r.Category.Name
	}
	if snap.LocationID == "" {
		snap.LocationID = r.Location.ID
	}
	return snap
}

type movementRecord struct {
	ID              string          `json:"id"`
	Item            itemRef         `json:"item"`
	Type            string          `json:"type"`
	Reason          string          `json:"reason"`
	Quantity        number          `json:"quantity"`
	ResponsibleUser userRecord      `json:"responsibleUser"`
	Date            store.Timestamp `json:"date"`
	Notes           string          `json:"notes"`
}

func (r movementRecord) movement() (model.Movement, error) {
	m := model.Movement{
		ID:       r.ID,
		Item:     r.Item.snapshot(),
		Quantity: int(r.Quantity),
		Date:     r.Date.Time,
		Notes:    r.Notes,
	}
	var err error
	if m.Type, err = model.ParseMovementType(r.Type); err != nil {
		return m, err
	}
	if m.Reason, err = model.ParseMovementReason(r.Reason); err != nil {
		return m, err
	}
	if m.ResponsibleUser, err = r.ResponsibleUser.snapshot(); err != nil {
		return m, err
	}
	if m.Quantity <= 0 {
		return m, fmt.Errorf("movement %s: quantity must be positive, got %d", m.ID, m.Quantity)
	}
	return m, nil
}

type loanRecord struct {
	ID                 string          `json:"id"`
	Item               itemRef         `json:"item"`
	Borrower           userRecord      `json:"borrower"`
	Quantity           number          `json:"quantity"`
	BorrowDate         store.Timestamp `json:"borrowDate"`
	ExpectedReturnDate store.Timestamp `json:"expectedReturnDate"`
	ActualReturnDate   store.Timestamp `json:"actualReturnDate"`
	ReturnedBy         *userRecord     `json:"returnedBy"`
	Notes              string          `json:"notes"`
}

func (r loanRecord) loan() (model.Loan, error) {
	l := model.Loan{
		ID:                 r.ID,
		Item:               r.Item.snapshot(),
		Quantity:           int(r.Quantity),
		BorrowDate:         r.BorrowDate.Time,
		ExpectedReturnDate: r.ExpectedReturnDate.Time,
		Notes:              r.Notes,
	}
	var err error
	if l.Borrower, err = r.Borrower.snapshot(); err != nil {
		return l, err
	}
	if !r.ActualReturnDate.IsZero() {
		at := r.ActualReturnDate.Time
		l.ActualReturnDate = &at
		if r.ReturnedBy != nil {
			by, err := r.ReturnedBy.snapshot()
			if err != nil {
				return l, err
			}
			l.ReturnedBy = &by
		}
	}
	if l.ExpectedReturnDate.Before(l.BorrowDate) {
		return l, fmt.Errorf("loan %s: expected return before borrow date", l.ID)
	}
	return l, nil
}

// decodeCollection reads a collection that is either a list or an object
// keyed by id. setID fills the id from the key when the record has none.
// Keyed collections are returned in key order.
func decodeCollection[T any](raw json.RawMessage, setID func(*T, string)) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '[' {
		var list []T
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(keyed))
	for k := range keyed {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]T, 0, len(keys))
	for _, k := range keys {
		var rec T
		if err := json.Unmarshal(keyed[k], &rec); err != nil {
			return nil, fmt.Errorf("record %s: %w", k, err)
		}
		setID(&rec, k)
		out = append(out, rec)
	}
	return out, nil
}
