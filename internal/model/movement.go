package model

import "time"

// MovementType is the direction of a stock change.
type MovementType string

// Movement types.
const (
	MovementInput  MovementType = "input"
	MovementOutput MovementType = "output"
)

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	return t == MovementInput || t == MovementOutput
}

// MovementReason explains a stock change.
type MovementReason string

// Movement reasons.
const (
	ReasonPurchase    MovementReason = "purchase"
	ReasonUse         MovementReason = "use"
	ReasonDiscard     MovementReason = "discard"
	ReasonMaintenance MovementReason = "maintenance"
	ReasonOther       MovementReason = "other"
)

// Valid reports whether r is a known reason.
func (r MovementReason) Valid() bool {
	switch r {
	case ReasonPurchase, ReasonUse, ReasonDiscard, ReasonMaintenance, ReasonOther:
		return true
	}
	return false
}

// Movement is an immutable ledger entry recording one quantity change.
type Movement struct {
	ID              string         `json:"id"`
	Item            ItemSnapshot   `json:"item"`
	Type            MovementType   `json:"type"`
	Reason          MovementReason `json:"reason"`
	Quantity        int            `json:"quantity"`
	ResponsibleUser UserSnapshot   `json:"responsibleUser"`
	Date            time.Time      `json:"date"`
	Notes           string         `json:"notes,omitempty"`
}

// SignedDelta returns the effect of the movement on the item's quantity.
func (m Movement) SignedDelta() int {
	if m.Type == MovementOutput {
		return -m.Quantity
	}
	return m.Quantity
}
