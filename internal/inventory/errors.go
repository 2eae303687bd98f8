package inventory

import (
	"errors"
	"fmt"
	"strings"
)

// Errors reported by core operations. Match them with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidRange        = errors.New("invalid range")
	ErrAlreadyReturned     = errors.New("loan already returned")
	ErrReferentialConflict = errors.New("referential conflict")
	ErrInvalidInput        = errors.New("invalid input")
	ErrStoreIO             = errors.New("store failure")
)

var domainErrors = []error{
	ErrNotFound, ErrInsufficientStock, ErrInvalidRange, ErrAlreadyReturned, ErrReferentialConflict,
	ErrInvalidInput,
}

// isDomain reports whether err is a rejection rather than a failure.
func isDomain(err error) bool {
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return true
		}
	}
	return false
}

// StepError reports a failure in the middle of a multi-step operation. It
// lists the steps that had completed, so callers can tell a clean rejection
// from a partial write.
type StepError struct {
	Op         string
	Completed  []string
	Failed     string
	RolledBack bool
	Err        error
}

func (e *StepError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: step %q failed", e.Op, e.Failed)
	if len(e.Completed) > 0 {
		fmt.Fprintf(&b, " after %s", strings.Join(e.Completed, ", "))
	}
	if e.RolledBack {
		b.WriteString(" (rolled back)")
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

// Unwrap exposes the cause, plus ErrStoreIO when the cause is not one of the
// domain errors.
func (e *StepError) Unwrap() []error {
	if isDomain(e.Err) {
		return []error{e.Err}
	}
	return []error{ErrStoreIO, e.Err}
}

// steps tracks progress through an operation for StepError reporting.
type steps struct {
	op   string
	done []string
}

func (s *steps) ok(step string) {
	s.done = append(s.done, step)
}

func (s *steps) fail(step string, err error) error {
	completed := make([]string, len(s.done))
	copy(completed, s.done)
	return &StepError{Op: s.op, Completed: completed, Failed: step, RolledBack: true, Err: err}
}

// storeErr marks a failed read as a store failure.
func storeErr(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreIO, err)
}
