package api

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/erazemk/inventar/internal/store"
)

// CategoriesHandler handles category endpoints.
type CategoriesHandler struct {
	DB *sql.DB
}

type createCategoryRequest struct {
	Name string `json:"name" validate:"required"`
}

// List handles GET /api/categories.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	cats, err := store.ListCategories(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, cats)
}

// Create handles POST /api/categories.
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if !bindJSON(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	c, err := store.CreateCategory(r.Context(), h.DB, name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, c)
}

// Delete handles DELETE /api/categories/{id}. Items keep their copy of the
// category.
func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	c, err := store.GetCategory(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if c == nil {
		jsonError(w, http.StatusNotFound, "category not found")
		return
	}
	if err := store.DeleteCategory(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
