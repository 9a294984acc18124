package timeoff

import (
	"errors"
	"fmt"
)

// =============================================================================
// OVERLAP ERRORS
// =============================================================================

var (
	// ErrOverlapConflict is returned when a proposal overlaps existing leave
	// and no resolution applies.
	ErrOverlapConflict = errors.New("overlapping leave")

	// ErrConfirmationRequired is not a failure: the proposal can be saved
	// after the caller confirms a split, replace or trim.
	ErrConfirmationRequired = errors.New("confirmation required")

	// ErrAttachmentFailed is logged and reported as a warning only.
	ErrAttachmentFailed = errors.New("document attachment failed")
)

// OverlapConflictError names the first conflicting record.
type OverlapConflictError struct {
	Conflict LeaveRecord
	Reason   string
}

func (e *OverlapConflictError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("overlapping leave: %s (existing %s from %s to %s)",
			e.Reason, e.Conflict.Type, e.Conflict.Start, e.Conflict.End)
	}
	return fmt.Sprintf("overlapping leave: existing %s from %s to %s",
		e.Conflict.Type, e.Conflict.Start, e.Conflict.End)
}

func (e *OverlapConflictError) Unwrap() error { return ErrOverlapConflict }

type ConfirmationKind string

const (
	ConfirmSplit   ConfirmationKind = "split"
	ConfirmReplace ConfirmationKind = "replace"
	ConfirmTrim    ConfirmationKind = "trim"
)

// TrimSide names the end of the existing record that is cut away.
type TrimSide string

const (
	TrimStart TrimSide = "start" // keep [proposed.End+1, existing.End]
	TrimEnd   TrimSide = "end"   // keep [existing.Start, proposed.Start-1]
)

// ConfirmationRequiredError carries what the caller needs to re-invoke the
// matching Service.Execute* operation.
type ConfirmationRequiredError struct {
	Kind     ConfirmationKind
	Side     TrimSide // only for ConfirmTrim
	Proposed Proposal
	Conflict LeaveRecord
	Message  string
}

func (e *ConfirmationRequiredError) Error() string {
	return fmt.Sprintf("confirmation required (%s): %s", e.Kind, e.Message)
}

func (e *ConfirmationRequiredError) Unwrap() error { return ErrConfirmationRequired }

// AttachmentError records a document that could not be stored.
type AttachmentError struct {
	RecordID RecordID
	Path     string
	Err      error
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("attach %s to leave %s: %v", e.Path, e.RecordID, e.Err)
}

func (e *AttachmentError) Unwrap() []error { return []error{ErrAttachmentFailed, e.Err} }

// IsConfirmation reports whether err asks the caller to confirm a resolution.
func IsConfirmation(err error) bool { return errors.Is(err, ErrConfirmationRequired) }
