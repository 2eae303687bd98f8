package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/inventar/internal/inventory"
	"github.com/erazemk/inventar/internal/query"
	"github.com/erazemk/inventar/internal/store"
)

// LoansHandler handles loan endpoints.
type LoansHandler struct {
	DB        *sql.DB
	Inventory *inventory.Service
}

type createLoanRequest struct {
	ItemID             string    `json:"itemId" validate:"required"`
	BorrowerID         string    `json:"borrowerId" validate:"required"`
	Quantity           int       `json:"quantity" validate:"gt=0"`
	BorrowDate         time.Time `json:"borrowDate"`
	ExpectedReturnDate time.Time `json:"expectedReturnDate" validate:"required"`
	Notes              string    `json:"notes"`
}

// List handles GET /api/loans?state=&item=&borrower=.
func (h *LoansHandler) List(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	state, err := query.ParseLoanState(params.Get("state"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := query.Loans{
		State:      state,
		ItemID:     params.Get("item"),
		BorrowerID: params.Get("borrower"),
		Now:        h.Inventory.Now(),
	}

	loans, err := store.ListLoans(r.Context(), h.DB, store.LoanFilter{
		ItemID:     q.ItemID,
		BorrowerID: q.BorrowerID,
		ActiveOnly: state == query.LoansActive || state == query.LoansOverdue,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, q.Apply(loans))
}

// Create handles POST /api/loans.
func (h *LoansHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLoanRequest
	if !bindJSON(w, r, &req) {
		return
	}

	loan, err := h.Inventory.CreateLoan(r.Context(), session(r), inventory.LoanRequest{
		ItemID:             req.ItemID,
		BorrowerID:         req.BorrowerID,
		Quantity:           req.Quantity,
		BorrowDate:         req.BorrowDate,
		ExpectedReturnDate: req.ExpectedReturnDate,
		Notes:              req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, loan)
}

// Get handles GET /api/loans/{id}.
func (h *LoansHandler) Get(w http.ResponseWriter, r *http.Request) {
	loan, err := store.GetLoan(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if loan == nil {
		jsonError(w, http.StatusNotFound, "loan not found")
		return
	}
	jsonResponse(w, http.StatusOK, loan)
}

// Return handles POST /api/loans/{id}/return.
func (h *LoansHandler) Return(w http.ResponseWriter, r *http.Request) {
	ret, err := h.Inventory.ReturnLoan(r.Context(), session(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, ret)
}
