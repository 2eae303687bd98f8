package model

import "time"

// NotificationType identifies the condition a notification reports.
type NotificationType string

// Notification types.
const (
	NotificationLowStock    NotificationType = "low_stock"
	NotificationOverdueLoan NotificationType = "overdue_loan"
)

// Notification is an advisory entry derived from items and loans.
//
// SubjectID is the item for low stock and the loan for overdue loans.
// Together with Type it is the dedup key.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	SubjectID string           `json:"subjectId"`
	ItemID    string           `json:"itemId"`
	ItemName  string           `json:"itemName"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Key returns the dedup key.
func (n Notification) Key() string {
	return string(n.Type) + ":" + n.SubjectID
}
