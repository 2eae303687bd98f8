package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"

	"github.com/erazemk/inventar/internal/model"
)

// Inventory is the data rendered into the PDF report.
type Inventory struct {
	Title     string
	Items     []model.Item
	Locations map[string]string // id to name
	Summary   Summary
}

// WritePDF renders an A4 inventory report.
func WritePDF(w io.Writer, inv Inventory) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.SetAutoPageBreak(true, 14)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	title := inv.Title
	if title == "" {
		title = "Inventory report"
	}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.CellFormat(0, 4, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	contentW := pageW - left - right

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, "Generated "+inv.Summary.GeneratedAt.Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	s := inv.Summary
	stats := [][2]string{
		{"Unique items", strconv.Itoa(s.UniqueItems)},
		{"Total quantity", strconv.Itoa(s.TotalQuantity)},
		{"Low stock", strconv.Itoa(s.LowStockItems)},
		{"Damaged", strconv.Itoa(s.DamagedItems)},
		{"Active loans", strconv.Itoa(s.ActiveLoans)},
		{"Overdue loans", strconv.Itoa(s.OverdueLoans)},
		{"Inflow (30 days)", fmt.Sprintf("%d in %d movements", s.Inflow.Quantity, s.Inflow.Count)},
		{"Outflow (30 days)", fmt.Sprintf("%d in %d movements", s.Outflow.Quantity, s.Outflow.Count)},
	}
	pdf.SetFont("Helvetica", "", 9)
	for _, kv := range stats {
		pdf.CellFormat(45, 5, kv[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW-45, 5, kv[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	cols := []struct {
		title string
		width float64
		align string
	}{
		{"Item", 0.34, "L"},
		{"Category", 0.18, "L"},
		{"Location", 0.2, "L"},
		{"Qty", 0.1, "R"},
		{"Min", 0.08, "R"},
		{"Status", 0.1, "L"},
	}
	header := func() {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetFillColor(230, 230, 230)
		for _, c := range cols {
			pdf.CellFormat(contentW*c.width, 6, c.title, "B", 0, c.align, true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
	}
	header()

	_, pageH := pdf.GetPageSize()
	for _, it := range inv.Items {
		if pdf.GetY()+5 > pageH-16 {
			pdf.AddPage()
			header()
		}
		if it.LowStock() {
			pdf.SetTextColor(180, 0, 0)
		}
		row := []string{
			truncate(it.Name, 40),
			truncate(it.Category.Name, 20),
			truncate(inv.Locations[it.LocationID], 24),
			fmt.Sprintf("%d %s", it.Quantity, it.Unit),
			strconv.Itoa(it.MinQuantity),
			string(it.Status),
		}
		for i, c := range cols {
			pdf.CellFormat(contentW*c.width, 5, tr(row[i]), "", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("writing pdf: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "..."
}
