// Package models defines the attendance domain types: the per-employee-per-day
// attendance record, the ephemeral punch event, the trust evaluation attached
// to it, and the held event awaiting supervisor review.
package models

import (
	"time"

	id "punchtrust/pkg/domain"
)

// PunchType distinguishes the two punch directions.
type PunchType string

const (
	PunchClockIn  PunchType = "clockIn"
	PunchClockOut PunchType = "clockOut"
)

func (t PunchType) IsValid() bool {
	return t == PunchClockIn || t == PunchClockOut
}

// DayStatus is the derived day-level attendance status used by reporting
// and payroll.
type DayStatus string

const (
	StatusPending DayStatus = "pending"
	StatusPresent DayStatus = "present"
	StatusLate    DayStatus = "late"
	StatusHalfDay DayStatus = "half-day"
	StatusAbsent  DayStatus = "absent"
	StatusOnLeave DayStatus = "on-leave"
	StatusHoliday DayStatus = "holiday"
)

// External reports whether the status is owned by the leave/holiday
// collaborators. External statuses take precedence over punch-derived ones
// and are never assigned by this engine.
func (s DayStatus) External() bool {
	return s == StatusOnLeave || s == StatusHoliday
}

// Day is a calendar date in the business timezone, normalized to midnight.
// It is the second half of the ledger key (employeeID, day).
type Day struct {
	t time.Time
}

// DayOf truncates a timestamp to its calendar date in the timestamp's location.
func DayOf(at time.Time) Day {
	y, m, d := at.Date()
	return Day{t: time.Date(y, m, d, 0, 0, 0, 0, at.Location())}
}

// ParseDay parses a "2006-01-02" date in the given location.
func ParseDay(s string, loc *time.Location) (Day, error) {
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return Day{}, err
	}
	return Day{t: t}, nil
}

func (d Day) String() string       { return d.t.Format("2006-01-02") }
func (d Day) Time() time.Time      { return d.t }
func (d Day) Equal(o Day) bool     { return d.String() == o.String() }
func (d Day) Before(o Day) bool    { return d.t.Before(o.t) }
func (d Day) Next() Day            { return Day{t: d.t.AddDate(0, 0, 1)} }
func (d Day) End() time.Time       { return d.Next().t }
func (d Day) IsZero() bool         { return d.t.IsZero() }

// Elapsed reports whether the calendar date has fully passed at ref.
func (d Day) Elapsed(ref time.Time) bool {
	return !ref.Before(d.End())
}

// AttendanceRecord is the canonical ledger entry for one (employee, day).
// Records are created lazily on the first accepted punch, amended by later
// punches or approved reviews, and never deleted.
type AttendanceRecord struct {
	EmployeeID  id.EmployeeID
	Day         Day
	ClockIn     *time.Time
	ClockOut    *time.Time
	WorkMinutes *int
	Status      DayStatus

	// ClockInReason and ClockOutReason retain the justification supplied with
	// a medium-risk punch, for audit.
	ClockInReason  string
	ClockOutReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OpenClockIn reports whether the record has a clock-in without a matching
// clock-out. At most one such state may exist per (employee, day).
func (r *AttendanceRecord) OpenClockIn() bool {
	return r != nil && r.ClockIn != nil && r.ClockOut == nil
}

// Clone returns a deep copy so in-memory stores never leak internal pointers.
func (r *AttendanceRecord) Clone() *AttendanceRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.ClockIn != nil {
		in := *r.ClockIn
		out.ClockIn = &in
	}
	if r.ClockOut != nil {
		o := *r.ClockOut
		out.ClockOut = &o
	}
	if r.WorkMinutes != nil {
		m := *r.WorkMinutes
		out.WorkMinutes = &m
	}
	return &out
}

// RiskLevel is the ordered discrete trust verdict: low < medium < high.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (l RiskLevel) rank() int {
	switch l {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	}
	return 2 // unknown levels are treated as maximally risky
}

// AtLeast reports whether l is at least as risky as other.
func (l RiskLevel) AtLeast(other RiskLevel) bool {
	return l.rank() >= other.rank()
}

// Evaluation is the scorer's output for one punch. It is attached to the
// punch or the held event, never persisted on its own.
type Evaluation struct {
	Score float64
	Level RiskLevel
}

// PunchEvent is one attempted clock-in or clock-out. It exists only for the
// duration of processing; its outcome lands on the attendance record or as a
// held event.
type PunchEvent struct {
	EmployeeID   id.EmployeeID
	EmployeeName string
	Type         PunchType
	RequestedAt  time.Time
	Signals      map[string]any
	Reason       string
}

// HeldEventStatus tracks the review state of a suspended punch.
type HeldEventStatus string

const (
	HeldPending  HeldEventStatus = "pending"
	HeldApproved HeldEventStatus = "approved"
	HeldRejected HeldEventStatus = "rejected"
)

// ReviewDecision is a supervisor's verdict on a held event.
type ReviewDecision string

const (
	DecisionApproved ReviewDecision = "approved"
	DecisionRejected ReviewDecision = "rejected"
)

func (d ReviewDecision) IsValid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// TerminalStatus maps a review decision to the event's terminal status.
func (d ReviewDecision) TerminalStatus() HeldEventStatus {
	if d == DecisionApproved {
		return HeldApproved
	}
	return HeldRejected
}

// HeldTrustEvent is a punch suspended pending supervisor review. It
// transitions exactly once from pending to approved or rejected; the review
// workflow is the sole mutator after creation.
type HeldTrustEvent struct {
	ID           id.HeldEventID
	EmployeeID   id.EmployeeID
	EmployeeName string
	EventType    PunchType
	CapturedAt   time.Time
	RiskScore    float64
	RiskLevel    RiskLevel

	// Reason carries the justification supplied at punch time, for the
	// reviewer's context. It does not bypass review.
	Reason string

	Status     HeldEventStatus
	ReviewedBy *id.ReviewerID
	ReviewedAt *time.Time
}

// Clone returns a deep copy for the in-memory store.
func (e *HeldTrustEvent) Clone() *HeldTrustEvent {
	if e == nil {
		return nil
	}
	out := *e
	if e.ReviewedBy != nil {
		rb := *e.ReviewedBy
		out.ReviewedBy = &rb
	}
	if e.ReviewedAt != nil {
		ra := *e.ReviewedAt
		out.ReviewedAt = &ra
	}
	return &out
}
