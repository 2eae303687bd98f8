package model

import (
	"fmt"
	"strings"
)

// Older exports store enum values as localized display labels.
var (
	legacyStatuses = map[string]ItemStatus{
		"disponível":    StatusAvailable,
		"emprestado":    StatusBorrowed,
		"danificado":    StatusDamaged,
		"em manutenção": StatusMaintenance,
	}
	legacyMovementTypes = map[string]MovementType{
		"entrada": MovementInput,
		"saída":   MovementOutput,
	}
	legacyReasons = map[string]MovementReason{
		"compra":     ReasonPurchase,
		"uso":        ReasonUse,
		"descarte":   ReasonDiscard,
		"manutenção": ReasonMaintenance,
		"outro":      ReasonOther,
	}
)

// ParseItemStatus accepts canonical values and legacy labels.
func ParseItemStatus(s string) (ItemStatus, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if st := ItemStatus(key); st.Valid() {
		return st, nil
	}
	if st, ok := legacyStatuses[key]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown item status %q", s)
}

// ParseMovementType accepts canonical values and legacy labels.
func ParseMovementType(s string) (MovementType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if t := MovementType(key); t.Valid() {
		return t, nil
	}
	if t, ok := legacyMovementTypes[key]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown movement type %q", s)
}

// ParseMovementReason accepts canonical values and legacy labels.
func ParseMovementReason(s string) (MovementReason, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if r := MovementReason(key); r.Valid() {
		return r, nil
	}
	if r, ok := legacyReasons[key]; ok {
		return r, nil
	}
	return "", fmt.Errorf("unknown movement reason %q", s)
}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}
