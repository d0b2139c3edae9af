package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"punchtrust/internal/attendance/models"
	"punchtrust/internal/attendance/ports"
	id "punchtrust/pkg/domain"
	dErrors "punchtrust/pkg/domain-errors"
	"punchtrust/pkg/requestcontext"
)

// ListHeld returns pending held events, newest capture first. The limit is
// clamped to the configured cap; zero or negative means "as many as allowed".
func (s *Service) ListHeld(ctx context.Context, limit int) ([]*models.HeldTrustEvent, error) {
	if limit <= 0 || limit > s.heldLimit {
		limit = s.heldLimit
	}
	events, err := s.heldEvents.ListPending(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list held events")
	}
	return events, nil
}

// Review resolves a held event exactly once.
//
// Approval replays the original punch: the ledger commit uses the event's
// captured timestamp, so an approved clock-in is indistinguishable from one
// accepted directly. The precondition is re-checked under the punch lock
// before the event transitions; if the ledger has moved on while the event
// sat in the queue, the review fails with the punch conflict and the event
// stays pending for the reviewer to reject explicitly.
func (s *Service) Review(ctx context.Context, eventID id.HeldEventID, decision models.ReviewDecision, reviewerID id.ReviewerID) (*models.HeldTrustEvent, error) {
	ctx, span := tracer.Start(ctx, "attendance.review",
		trace.WithAttributes(attribute.String("review.decision", string(decision))))
	defer span.End()

	if !decision.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown review decision %q", decision)
	}
	if reviewerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "reviewer id is required")
	}

	event, err := s.heldEvents.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}

	capturedAt := event.CapturedAt.In(s.loc)
	day := models.DayOf(capturedAt)

	unlock, err := s.locker.Lock(ctx, punchKey(event.EmployeeID, day))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "punch lock unavailable")
	}
	defer unlock()

	if decision == models.DecisionApproved {
		if err := s.checkPrecondition(ctx, event.EventType, event.EmployeeID, day); err != nil {
			return nil, err
		}
	}

	reviewedAt := requestcontext.Now(ctx).In(s.loc)
	reviewed, err := s.heldEvents.MarkReviewed(ctx, eventID, decision, reviewerID, reviewedAt)
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementReview(string(decision))
	s.metrics.HeldEventResolved()

	if decision == models.DecisionApproved {
		// The precondition held under the lock, so only infrastructure
		// failures can surface here.
		if _, err := s.commit(ctx, event.EventType, event.EmployeeID, day, capturedAt, event.Reason); err != nil {
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "approved punch failed to commit",
					"held_event_id", eventID.String(), "error", err)
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit approved punch")
		}
	}

	ports.LogAudit(ctx, s.logger, s.auditPublisher, "attendance.held_event.reviewed",
		"held_event_id", eventID.String(),
		"employee_id", event.EmployeeID.String(),
		"punch_type", string(event.EventType),
		"decision", string(decision),
		"reviewer_id", reviewerID.String(),
	)
	return reviewed, nil
}
