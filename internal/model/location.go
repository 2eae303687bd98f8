package model

import "time"

// Location is a place that holds items.
type Location struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Capacity    *int      `json:"capacity,omitempty"`
	Responsible string    `json:"responsible,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
