package api

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/erazemk/inventar/internal/inventory"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/query"
	"github.com/erazemk/inventar/internal/store"
)

// MovementsHandler handles ledger endpoints.
type MovementsHandler struct {
	DB        *sql.DB
	Inventory *inventory.Service
}

type createMovementRequest struct {
	ItemID   string `json:"itemId" validate:"required"`
	Type     string `json:"type" validate:"required"`
	Reason   string `json:"reason" validate:"required"`
	Quantity int    `json:"quantity" validate:"gt=0"`
	Notes    string `json:"notes"`
}

// parseDate reads a query date as RFC 3339 or YYYY-MM-DD. A plain date used
// as an upper bound covers the whole day.
func parseDate(s string, upper bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// Create handles POST /api/movements. Type and reason accept the legacy
// labels as well.
func (h *MovementsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMovementRequest
	if !bindJSON(w, r, &req) {
		return
	}

	typ, err := model.ParseMovementType(req.Type)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	reason, err := model.ParseMovementReason(req.Reason)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.Inventory.RecordMovement(r.Context(), session(r), inventory.MovementRequest{
		ItemID:   req.ItemID,
		Type:     typ,
		Reason:   reason,
		Quantity: req.Quantity,
		Notes:    req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, m)
}

// List handles GET /api/movements?type=&reason=&item=&from=&to=&q=.
func (h *MovementsHandler) List(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := query.Movements{ItemID: params.Get("item"), Text: params.Get("q")}

	var err error
	if s := params.Get("type"); s != "" {
		if q.Type, err = model.ParseMovementType(s); err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if s := params.Get("reason"); s != "" {
		if q.Reason, err = model.ParseMovementReason(s); err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if q.From, err = parseDate(params.Get("from"), false); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if q.To, err = parseDate(params.Get("to"), true); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		jsonError(w, http.StatusBadRequest, "date range ends before it starts")
		return
	}

	ms, err := store.ListMovements(r.Context(), h.DB, store.MovementFilter{ItemID: q.ItemID, Type: q.Type})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, q.Apply(ms))
}
