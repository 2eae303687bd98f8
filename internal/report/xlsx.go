package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/erazemk/inventar/internal/model"
)

// Workbook is the data exported to a spreadsheet.
type Workbook struct {
	Items     []model.Item
	Loans     []model.Loan
	Movements []model.Movement
}

const sheetDate = "2006-01-02 15:04"

// WriteXLSX writes one sheet each for items, loans and movements.
func WriteXLSX(w io.Writer, wb Workbook) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	items := [][]any{{"ID", "Name", "Description", "Category", "Quantity", "Min quantity", "Unit", "Location", "Status", "Updated"}}
	for _, it := range wb.Items {
		items = append(items, []any{it.ID, it.Name, it.Description, it.Category.Name, it.Quantity,
			it.MinQuantity, it.Unit, it.LocationID, string(it.Status), it.UpdatedAt.Format(sheetDate)})
	}

	loans := [][]any{{"ID", "Item", "Borrower", "Quantity", "Borrowed", "Expected return", "Returned", "Returned by", "Notes"}}
	for _, l := range wb.Loans {
		returned, by := "", ""
		if l.ActualReturnDate != nil {
			returned = l.ActualReturnDate.Format(sheetDate)
		}
		if l.ReturnedBy != nil {
			by = l.ReturnedBy.Name
		}
		loans = append(loans, []any{l.ID, l.Item.Name, l.Borrower.Name, l.Quantity,
			l.BorrowDate.Format(sheetDate), l.ExpectedReturnDate.Format(sheetDate), returned, by, l.Notes})
	}

	movements := [][]any{{"ID", "Date", "Item", "Type", "Reason", "Quantity", "Responsible", "Notes"}}
	for _, m := range wb.Movements {
		movements = append(movements, []any{m.ID, m.Date.Format(sheetDate), m.Item.Name, string(m.Type),
			string(m.Reason), m.Quantity, m.ResponsibleUser.Name, m.Notes})
	}

	sheets := []struct {
		name string
		rows [][]any
	}{
		{"Items", items},
		{"Loans", loans},
		{"Movements", movements},
	}
	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.name); err != nil {
				return fmt.Errorf("renaming sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", sh.name, err)
		}
		if err := writeRows(f, sh.name, sh.rows); err != nil {
			return err
		}
		last, err := excelize.CoordinatesToCellName(len(sh.rows[0]), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sh.name, "A1", last, bold); err != nil {
			return fmt.Errorf("styling %s header: %w", sh.name, err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing xlsx: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
