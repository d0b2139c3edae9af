// Package policy maps a punch's risk level to a disposition.
//
// The gate is deliberately tiny and pure so the complete decision table fits
// in one screen and one test. Everything stateful (preconditions, commits,
// held events) lives in the punch service.
package policy

import (
	"punchtrust/internal/attendance/models"
)

// Disposition is the gate's verdict on a punch. It is a dedicated type rather
// than a bool plus flags so invalid combinations ("held and also accepted")
// cannot be represented.
type Disposition int

const (
	// Accept commits the punch to the ledger immediately.
	Accept Disposition = iota

	// RequireReason rejects the punch until the caller resubmits it with a
	// non-empty justification.
	RequireReason

	// Hold suspends the punch for supervisor review; the ledger is untouched
	// until the review resolves.
	Hold
)

func (d Disposition) String() string {
	switch d {
	case Accept:
		return "accept"
	case RequireReason:
		return "require_reason"
	case Hold:
		return "hold"
	}
	return "unknown"
}

// Decide applies the decision table:
//
//	low               -> Accept
//	medium, no reason -> RequireReason
//	medium, reason    -> Accept (reason retained for audit)
//	high              -> Hold, reason or not
//
// A supplied reason never bypasses review at high risk; it is carried into
// the held event for the reviewer's context. Unknown levels rank as high, so
// the gate inherits the scorer's fail-closed posture.
func Decide(level models.RiskLevel, reasonSupplied bool) Disposition {
	if level.AtLeast(models.RiskHigh) {
		return Hold
	}
	if level.AtLeast(models.RiskMedium) && !reasonSupplied {
		return RequireReason
	}
	return Accept
}
