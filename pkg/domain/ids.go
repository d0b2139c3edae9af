// Package domain defines typed identifiers shared across modules.
//
// IDs are distinct types over uuid.UUID so the compiler rejects cross-type
// assignment (an EmployeeID can never be passed where a HeldEventID is
// expected). Parsing enforces the invariant that IDs are valid, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "punchtrust/pkg/domain-errors"
)

// EmployeeID identifies an employee in the HR directory.
type EmployeeID uuid.UUID

// HeldEventID identifies a punch suspended for supervisor review.
type HeldEventID uuid.UUID

// ReviewerID identifies the supervisor resolving a held event.
type ReviewerID uuid.UUID

func (id EmployeeID) String() string  { return uuid.UUID(id).String() }
func (id HeldEventID) String() string { return uuid.UUID(id).String() }
func (id ReviewerID) String() string  { return uuid.UUID(id).String() }

func (id EmployeeID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id HeldEventID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ReviewerID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// NewHeldEventID returns a fresh random held event ID.
func NewHeldEventID() HeldEventID { return HeldEventID(uuid.New()) }

// ParseEmployeeID parses and validates an employee ID from its string form.
func ParseEmployeeID(s string) (EmployeeID, error) {
	parsed, err := parseUUID(s, "employee_id")
	return EmployeeID(parsed), err
}

// ParseHeldEventID parses and validates a held event ID from its string form.
func ParseHeldEventID(s string) (HeldEventID, error) {
	parsed, err := parseUUID(s, "event_id")
	return HeldEventID(parsed), err
}

// ParseReviewerID parses and validates a reviewer ID from its string form.
func ParseReviewerID(s string) (ReviewerID, error) {
	parsed, err := parseUUID(s, "reviewer_id")
	return ReviewerID(parsed), err
}

// parseUUID enforces the shared ID invariant: valid, non-empty, non-nil.
func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be empty", field)
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", field)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be the nil UUID", field)
	}
	return parsed, nil
}
