package model

import "time"

// Loan records item quantity withdrawn for a borrower.
type Loan struct {
	ID                 string        `json:"id"`
	Item               ItemSnapshot  `json:"item"`
	Borrower           UserSnapshot  `json:"borrower"`
	Quantity           int           `json:"quantity"`
	BorrowDate         time.Time     `json:"borrowDate"`
	ExpectedReturnDate time.Time     `json:"expectedReturnDate"`
	ActualReturnDate   *time.Time    `json:"actualReturnDate,omitempty"`
	ReturnedBy         *UserSnapshot `json:"returnedBy,omitempty"`
	Notes              string        `json:"notes,omitempty"`
}

// Active reports whether the loan has not been returned.
func (l Loan) Active() bool {
	return l.ActualReturnDate == nil
}

// Overdue reports whether the loan is active and past its expected return date.
func (l Loan) Overdue(now time.Time) bool {
	return l.Active() && l.ExpectedReturnDate.Before(now)
}
