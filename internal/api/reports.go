package api

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/inventar/internal/inventory"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/report"
	"github.com/erazemk/inventar/internal/store"
)

// ReportsHandler serves the summary and the file exports.
type ReportsHandler struct {
	DB        *sql.DB
	Inventory *inventory.Service
}

type snapshot struct {
	items     []model.Item
	loans     []model.Loan
	movements []model.Movement
	now       time.Time
}

// load reads everything a report needs in one transaction so the figures
// agree with each other.
func (h *ReportsHandler) load(ctx context.Context) (*snapshot, error) {
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	s := &snapshot{now: h.Inventory.Now()}
	if s.items, err = store.ListItems(ctx, tx, store.ItemFilter{}); err != nil {
		return nil, err
	}
	if s.loans, err = store.ListLoans(ctx, tx, store.LoanFilter{}); err != nil {
		return nil, err
	}
	if s.movements, err = store.ListMovements(ctx, tx, store.MovementFilter{}); err != nil {
		return nil, err
	}
	return s, nil
}

// Summary handles GET /api/reports/summary.
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.load(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, report.Summarize(s.items, s.loans, s.movements, s.now))
}

// InventoryPDF handles GET /api/reports/inventory.pdf.
func (h *ReportsHandler) InventoryPDF(w http.ResponseWriter, r *http.Request) {
	s, err := h.load(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	locs, err := store.ListLocations(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	names := make(map[string]string, len(locs))
	for _, l := range locs {
		names[l.ID] = l.Name
	}

	var buf bytes.Buffer
	err = report.WritePDF(&buf, report.Inventory{
		Items:     s.items,
		Locations: names,
		Summary:   report.Summarize(s.items, s.loans, s.movements, s.now),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	sendFile(w, "application/pdf", "inventory-"+s.now.Format("2006-01-02")+".pdf", buf.Bytes())
}

// ExportXLSX handles GET /api/reports/export.xlsx.
func (h *ReportsHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	s, err := h.load(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, report.Workbook{Items: s.items, Loans: s.loans, Movements: s.movements}); err != nil {
		writeError(w, r, err)
		return
	}
	sendFile(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"inventory-"+s.now.Format("2006-01-02")+".xlsx", buf.Bytes())
}

func sendFile(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
