package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/inventar/internal/inventory"
	"github.com/erazemk/inventar/internal/query"
	"github.com/erazemk/inventar/internal/store"
)

// LocationsHandler handles location endpoints.
type LocationsHandler struct {
	DB        *sql.DB
	Inventory *inventory.Service
}

type createLocationRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Capacity    *int   `json:"capacity" validate:"omitempty,gte=0"`
	Responsible string `json:"responsible"`
}

type updateLocationRequest struct {
	Name          *string `json:"name" validate:"omitempty,min=1"`
	Description   *string `json:"description"`
	Capacity      *int    `json:"capacity" validate:"omitempty,gte=0"`
	ClearCapacity bool    `json:"clearCapacity"`
	Responsible   *string `json:"responsible"`
}

// List handles GET /api/locations.
func (h *LocationsHandler) List(w http.ResponseWriter, r *http.Request) {
	locs, err := store.ListLocations(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, locs)
}

// Create handles POST /api/locations.
func (h *LocationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLocationRequest
	if !bindJSON(w, r, &req) {
		return
	}

	loc, err := h.Inventory.CreateLocation(r.Context(), session(r), inventory.LocationRequest{
		Name:        req.Name,
		Description: req.Description,
		Capacity:    req.Capacity,
		Responsible: req.Responsible,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, loc)
}

// Get handles GET /api/locations/{id}.
func (h *LocationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	loc, err := store.GetLocation(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if loc == nil {
		jsonError(w, http.StatusNotFound, "location not found")
		return
	}
	jsonResponse(w, http.StatusOK, loc)
}

// Update handles PATCH /api/locations/{id}.
func (h *LocationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateLocationRequest
	if !bindJSON(w, r, &req) {
		return
	}

	loc, err := h.Inventory.UpdateLocation(r.Context(), session(r), r.PathValue("id"), store.LocationPatch{
		Name:          req.Name,
		Description:   req.Description,
		Capacity:      req.Capacity,
		ClearCapacity: req.ClearCapacity,
		Responsible:   req.Responsible,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, loc)
}

// Delete handles DELETE /api/locations/{id}. Locations still holding items
// are refused.
func (h *LocationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Inventory.DeleteLocation(r.Context(), session(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Items handles GET /api/locations/{id}/items?q=.
func (h *LocationsHandler) Items(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	loc, err := store.GetLocation(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if loc == nil {
		jsonError(w, http.StatusNotFound, "location not found")
		return
	}

	items, err := store.ListItems(r.Context(), h.DB, store.ItemFilter{LocationID: id})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, query.Search(items, r.URL.Query().Get("q")))
}
