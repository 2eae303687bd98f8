package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/erazemk/inventar/internal/imaging"
	"github.com/erazemk/inventar/internal/inventory"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/query"
	"github.com/erazemk/inventar/internal/store"
)

// maxDocumentSize caps attachment uploads.
const maxDocumentSize = 32 << 20

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	DB        *sql.DB
	Inventory *inventory.Service
}

type categoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type createItemRequest struct {
	Name        string       `json:"name" validate:"required"`
	Description string       `json:"description"`
	Category    *categoryRef `json:"category"`
	Quantity    int          `json:"quantity" validate:"gte=0"`
	MinQuantity int          `json:"minQuantity" validate:"gte=0"`
	Unit        string       `json:"unit"`
	LocationID  string       `json:"locationId"`
	Status      string       `json:"status" validate:"omitempty,oneof=available borrowed damaged maintenance"`
}

type updateItemRequest struct {
	Name        *string      `json:"name" validate:"omitempty,min=1"`
	Description *string      `json:"description"`
	Category    *categoryRef `json:"category"`
	Quantity    *int         `json:"quantity" validate:"omitempty,gte=0"`
	MinQuantity *int         `json:"minQuantity" validate:"omitempty,gte=0"`
	Unit        *string      `json:"unit"`
	LocationID  *string      `json:"locationId"`
	Status      *string      `json:"status" validate:"omitempty,oneof=available borrowed damaged maintenance"`
}

// resolveCategory fills in the category name from the categories collection
// when only the id is given. A nil ref means no category.
func resolveCategory(ctx context.Context, db *sql.DB, ref *categoryRef) (model.Category, error) {
	if ref == nil || ref.ID == "" {
		return model.Category{}, nil
	}
	if ref.Name != "" {
		return model.Category{ID: ref.ID, Name: ref.Name}, nil
	}
	c, err := store.GetCategory(ctx, db, ref.ID)
	if err != nil {
		return model.Category{}, err
	}
	if c == nil {
		return model.Category{}, fmt.Errorf("%w: category %s", inventory.ErrNotFound, ref.ID)
	}
	return *c, nil
}

// List handles GET /api/items?q=&status=&location=&lowStock=.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := query.Items{
		Text:       params.Get("q"),
		LocationID: params.Get("location"),
		LowStock:   params.Get("lowStock") == "true",
	}
	if s := params.Get("status"); s != "" {
		status, err := model.ParseItemStatus(s)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		q.Status = status
	}

	items, err := store.ListItems(r.Context(), h.DB, store.ItemFilter{})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, q.Apply(items))
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if !bindJSON(w, r, &req) {
		return
	}

	category, err := resolveCategory(r.Context(), h.DB, req.Category)
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := h.Inventory.CreateItem(r.Context(), session(r), inventory.ItemRequest{
		Name:        req.Name,
		Description: req.Description,
		Category:    category,
		Quantity:    req.Quantity,
		MinQuantity: req.MinQuantity,
		Unit:        req.Unit,
		LocationID:  req.LocationID,
		Status:      model.ItemStatus(req.Status),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := store.GetItem(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PATCH /api/items/{id}. A quantity change is recorded as a
// movement.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if !bindJSON(w, r, &req) {
		return
	}

	ch := inventory.ItemChanges{
		ItemPatch: store.ItemPatch{
			Name:        req.Name,
			Description: req.Description,
			MinQuantity: req.MinQuantity,
			Unit:        req.Unit,
			LocationID:  req.LocationID,
		},
		Quantity: req.Quantity,
	}
	if req.Category != nil {
		category, err := resolveCategory(r.Context(), h.DB, req.Category)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ch.Category = &category
	}
	if req.Status != nil {
		status := model.ItemStatus(*req.Status)
		ch.Status = &status
	}

	item, err := h.Inventory.UpdateItem(r.Context(), session(r), r.PathValue("id"), ch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Inventory.DeleteItem(r.Context(), session(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage handles PUT /api/items/{id}/image. The photo comes in the
// "image" form field and is stored downscaled.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxInput)
	if err := r.ParseMultipartForm(imaging.MaxInput); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	item, err := h.Inventory.SetItemImage(r.Context(), session(r), r.PathValue("id"), file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// AddDocument handles POST /api/items/{id}/documents. The file comes in the
// "file" form field.
func (h *ItemsHandler) AddDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentSize)
	if err := r.ParseMultipartForm(maxDocumentSize); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	doc, err := h.Inventory.AttachDocument(r.Context(), session(r), r.PathValue("id"), inventory.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, doc)
}

// RemoveDocument handles DELETE /api/items/{id}/documents/{docId}.
func (h *ItemsHandler) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	err := h.Inventory.RemoveDocument(r.Context(), session(r), r.PathValue("id"), r.PathValue("docId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Movements handles GET /api/items/{id}/movements.
func (h *ItemsHandler) Movements(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ms, err := store.ListMovements(r.Context(), h.DB, store.MovementFilter{ItemID: id})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, ms)
}

// Loans handles GET /api/items/{id}/loans?state=.
func (h *ItemsHandler) Loans(w http.ResponseWriter, r *http.Request) {
	state, err := query.ParseLoanState(r.URL.Query().Get("state"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := r.PathValue("id")
	loans, err := store.ListLoans(r.Context(), h.DB, store.LoanFilter{ItemID: id})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, query.Loans{State: state, Now: h.Inventory.Now()}.Apply(loans))
}
