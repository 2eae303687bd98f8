package model

import (
	"testing"
	"time"
)

func TestParseItemStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    ItemStatus
		wantErr bool
	}{
		{"available", StatusAvailable, false},
		{"Borrowed", StatusBorrowed, false},
		{"Disponível", StatusAvailable, false},
		{"Emprestado", StatusBorrowed, false},
		{"Danificado", StatusDamaged, false},
		{"Em manutenção", StatusMaintenance, false},
		{"lost", "", true},
	}

	for _, tt := range tests {
		got, err := ParseItemStatus(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseItemStatus(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseItemStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseMovementLabels(t *testing.T) {
	if typ, err := ParseMovementType("Saída"); err != nil || typ != MovementOutput {
		t.Errorf("ParseMovementType(Saída) = %q, %v", typ, err)
	}
	if typ, err := ParseMovementType("input"); err != nil || typ != MovementInput {
		t.Errorf("ParseMovementType(input) = %q, %v", typ, err)
	}
	if r, err := ParseMovementReason("Manutenção"); err != nil || r != ReasonMaintenance {
		t.Errorf("ParseMovementReason(Manutenção) = %q, %v", r, err)
	}
	if _, err := ParseMovementReason("theft"); err == nil {
		t.Error("expected error for unknown reason")
	}
}

func TestMovementSignedDelta(t *testing.T) {
	in := Movement{Type: MovementInput, Quantity: 4}
	out := Movement{Type: MovementOutput, Quantity: 4}
	if in.SignedDelta() != 4 {
		t.Errorf("expected +4, got %d", in.SignedDelta())
	}
	if out.SignedDelta() != -4 {
		t.Errorf("expected -4, got %d", out.SignedDelta())
	}
}

func TestLoanOverdue(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	loan := Loan{ExpectedReturnDate: now.Add(-time.Hour)}
	if !loan.Overdue(now) {
		t.Error("expected active loan past due date to be overdue")
	}

	returned := now
	loan.ActualReturnDate = &returned
	if loan.Overdue(now) {
		t.Error("returned loan must not be overdue")
	}

	future := Loan{ExpectedReturnDate: now.Add(time.Hour)}
	if future.Overdue(now) {
		t.Error("loan due in the future must not be overdue")
	}
}

func TestItemSnapshotCopiesValues(t *testing.T) {
	item := Item{ID: "i1", Name: "Drill", Unit: "pcs", Category: Category{ID: "c1", Name: "Tools"}, LocationID: "l1"}
	snap := item.Snapshot()
	item.Name = "Renamed"
	if snap.Name != "Drill" {
		t.Errorf("snapshot must not follow later edits, got %q", snap.Name)
	}
	if snap.CategoryName != "Tools" || snap.LocationID != "l1" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}
