// Package ports defines shared interfaces for the attendance module.
// Interfaces are placed here when consumed by multiple services to avoid duplication.
package ports

import (
	"context"
	"log/slog"
	"time"

	"punchtrust/internal/attendance/models"
	"punchtrust/internal/audit"
	id "punchtrust/pkg/domain"
	"punchtrust/pkg/requestcontext"
)

// LedgerStore owns the canonical per-employee-per-day attendance records.
//
// Commit methods are conditional: the precondition ("no open clock-in" for
// CommitClockIn, "an open clock-in exists" for CommitClockOut) is checked
// atomically with the write, so two concurrent clock-ins for the same
// (employee, day) can never both succeed.
type LedgerStore interface {
	// Get returns the record for (employeeID, day), or nil if none exists.
	Get(ctx context.Context, employeeID id.EmployeeID, day models.Day) (*models.AttendanceRecord, error)

	// CommitClockIn creates or amends the day's record with a clock-in.
	// Fails with CodeAlreadyClockedIn if an open clock-in already exists.
	CommitClockIn(ctx context.Context, employeeID id.EmployeeID, day models.Day, at time.Time, reason string) (*models.AttendanceRecord, error)

	// CommitClockOut closes the day's open clock-in.
	// Fails with CodeNotClockedIn if there is no open clock-in.
	CommitClockOut(ctx context.Context, employeeID id.EmployeeID, day models.Day, at time.Time, reason string) (*models.AttendanceRecord, error)

	// ListRange returns the employee's records for days in [from, to], newest first.
	ListRange(ctx context.Context, employeeID id.EmployeeID, from, to models.Day) ([]*models.AttendanceRecord, error)
}

// HeldEventStore persists punches suspended for supervisor review.
type HeldEventStore interface {
	// Create stores a new held event in pending status.
	Create(ctx context.Context, event *models.HeldTrustEvent) error

	// Get returns the event, or a CodeNotFound error.
	Get(ctx context.Context, eventID id.HeldEventID) (*models.HeldTrustEvent, error)

	// ListPending returns pending events, most recent capture first, capped at limit.
	ListPending(ctx context.Context, limit int) ([]*models.HeldTrustEvent, error)

	// MarkReviewed transitions the event from pending to the decision's
	// terminal status. The transition is an atomic compare-and-set: a second
	// review fails with CodeAlreadyReviewed, an unknown id with CodeNotFound.
	MarkReviewed(ctx context.Context, eventID id.HeldEventID, decision models.ReviewDecision, reviewerID id.ReviewerID, at time.Time) (*models.HeldTrustEvent, error)
}

// PunchLocker serializes punch processing per (employee, day) so the "one
// open clock-in" invariant cannot be raced. Implementations: in-process keyed
// mutex, Redis lease for multi-instance deployments.
type PunchLocker interface {
	// Lock blocks until the key is held or ctx is done. The returned func
	// releases the lock.
	Lock(ctx context.Context, key string) (func(), error)
}

// AuditPublisher emits audit events for trust-relevant operations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// LogAudit is a shared helper for recording audit events across attendance services.
// It logs to both the structured logger and the audit publisher if available.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, action string, attrs ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}

	args := append(attrs, "event", action, "log_type", "audit")

	if logger != nil {
		logger.InfoContext(ctx, action, args...)
	}

	if publisher == nil {
		return
	}
	details := detailsFromAttrs(attrs)
	event := audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Action:    action,
		Details:   details,
	}
	// Sinks key and query the trail by employee, so the id must land on the
	// event itself, not just inside the detail map.
	if employeeID, ok := details["employee_id"].(string); ok {
		event.EmployeeID = employeeID
	}
	if err := publisher.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", action, "error", err)
	}
}

// detailsFromAttrs flattens slog-style key-value pairs into the audit payload.
func detailsFromAttrs(attrs []any) map[string]any {
	details := make(map[string]any, len(attrs)/2)
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		details[key] = attrs[i+1]
	}
	return details
}
