// Package service implements punch processing: trust evaluation, the policy
// gate, precondition checks, and the conditional ledger commit. All mutation
// for one (employee, day) happens under the punch lock, so the "at most one
// open clock-in" invariant holds even under concurrent punches.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"punchtrust/internal/attendance/ledger"
	"punchtrust/internal/attendance/metrics"
	"punchtrust/internal/attendance/models"
	"punchtrust/internal/attendance/policy"
	"punchtrust/internal/attendance/ports"
	"punchtrust/internal/attendance/trust"
	"punchtrust/internal/platform/config"
	id "punchtrust/pkg/domain"
	dErrors "punchtrust/pkg/domain-errors"
	"punchtrust/pkg/requestcontext"
)

var tracer = otel.Tracer("punchtrust/internal/attendance")

const defaultHeldListLimit = 100

// Service orchestrates punch processing and the held event review workflow.
type Service struct {
	records    ports.LedgerStore
	heldEvents ports.HeldEventStore
	locker     ports.PunchLocker
	scorer     *trust.Scorer
	shift      config.ShiftConfig
	loc        *time.Location
	heldLimit  int

	logger         *slog.Logger
	auditPublisher ports.AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithHeldListLimit overrides the cap on held event listings.
func WithHeldListLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.heldLimit = limit
		}
	}
}

// New constructs a Service. The location is the business timezone in which
// "today" is resolved for every punch.
func New(records ports.LedgerStore, heldEvents ports.HeldEventStore, locker ports.PunchLocker, scorer *trust.Scorer, shift config.ShiftConfig, loc *time.Location, opts ...Option) *Service {
	s := &Service{
		records:    records,
		heldEvents: heldEvents,
		locker:     locker,
		scorer:     scorer,
		shift:      shift,
		loc:        loc,
		heldLimit:  defaultHeldListLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PunchResult is the outcome of a gated punch. Exactly one of Record (Accept)
// or HeldEvent (Hold) is populated; RequireReason surfaces as a coded error
// instead, since it carries no state.
type PunchResult struct {
	Disposition policy.Disposition
	Evaluation  models.Evaluation
	Record      *models.AttendanceRecord
	HeldEvent   *models.HeldTrustEvent
}

// ClockIn processes a clock-in attempt for the day resolved from the request
// time.
func (s *Service) ClockIn(ctx context.Context, event *models.PunchEvent) (*PunchResult, error) {
	event.Type = models.PunchClockIn
	return s.Punch(ctx, event)
}

// ClockOut processes a clock-out attempt against the day's open clock-in.
func (s *Service) ClockOut(ctx context.Context, event *models.PunchEvent) (*PunchResult, error) {
	event.Type = models.PunchClockOut
	return s.Punch(ctx, event)
}

// Punch processes one clock-in or clock-out attempt.
//
// Order of operations: validate, resolve today under the injected request
// time, serialize on (employee, day), check the precondition, evaluate trust,
// gate, then commit or hold. A punch that fails the precondition never reaches
// the gate, so a duplicate clock-in reports the conflict rather than a
// trust verdict.
func (s *Service) Punch(ctx context.Context, event *models.PunchEvent) (*PunchResult, error) {
	ctx, span := tracer.Start(ctx, "attendance.punch",
		trace.WithAttributes(attribute.String("punch.type", string(event.Type))))
	defer span.End()

	if !event.Type.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown punch type %q", event.Type)
	}
	if event.EmployeeID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "employee id is required")
	}
	reason := strings.TrimSpace(event.Reason)
	if event.Reason != "" && reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reason must not be blank")
	}

	at := requestcontext.Now(ctx).In(s.loc)
	day := models.DayOf(at)

	unlock, err := s.locker.Lock(ctx, punchKey(event.EmployeeID, day))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "punch lock unavailable")
	}
	defer unlock()

	if err := s.checkPrecondition(ctx, event.Type, event.EmployeeID, day); err != nil {
		return nil, err
	}

	evaluation, scored := s.safeEvaluate(ctx, event.Signals)
	if scored {
		s.metrics.ObserveRiskScore(evaluation.Score)
	}
	disposition := policy.Decide(evaluation.Level, reason != "")
	s.metrics.IncrementDisposition(string(event.Type), disposition.String())
	span.SetAttributes(
		attribute.Float64("trust.score", evaluation.Score),
		attribute.String("trust.level", string(evaluation.Level)),
		attribute.String("punch.disposition", disposition.String()),
	)

	switch disposition {
	case policy.RequireReason:
		ports.LogAudit(ctx, s.logger, s.auditPublisher, "attendance.punch.reason_required",
			"employee_id", event.EmployeeID.String(),
			"punch_type", string(event.Type),
			"risk_score", evaluation.Score,
			"risk_level", string(evaluation.Level),
		)
		return nil, dErrors.New(dErrors.CodeReasonRequired, "a reason is required for this punch")

	case policy.Hold:
		heldEvent := &models.HeldTrustEvent{
			ID:           id.NewHeldEventID(),
			EmployeeID:   event.EmployeeID,
			EmployeeName: event.EmployeeName,
			EventType:    event.Type,
			CapturedAt:   at,
			RiskScore:    evaluation.Score,
			RiskLevel:    evaluation.Level,
			Reason:       reason,
			Status:       models.HeldPending,
		}
		if err := s.heldEvents.Create(ctx, heldEvent); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hold punch for review")
		}
		s.metrics.HeldEventCreated()
		ports.LogAudit(ctx, s.logger, s.auditPublisher, "attendance.punch.held",
			"employee_id", event.EmployeeID.String(),
			"held_event_id", heldEvent.ID.String(),
			"punch_type", string(event.Type),
			"risk_score", evaluation.Score,
			"risk_level", string(evaluation.Level),
		)
		return &PunchResult{Disposition: policy.Hold, Evaluation: evaluation, HeldEvent: heldEvent}, nil
	}

	record, err := s.commit(ctx, event.Type, event.EmployeeID, day, at, reason)
	if err != nil {
		return nil, err
	}
	ports.LogAudit(ctx, s.logger, s.auditPublisher, "attendance.punch.accepted",
		"employee_id", event.EmployeeID.String(),
		"punch_type", string(event.Type),
		"day", day.String(),
		"risk_score", evaluation.Score,
		"risk_level", string(evaluation.Level),
	)
	return &PunchResult{Disposition: policy.Accept, Evaluation: evaluation, Record: record}, nil
}

// TodayRecord pairs the stored record (nil when no punch was accepted) with
// the status derived as of the request time.
type TodayRecord struct {
	Day    models.Day
	Record *models.AttendanceRecord
	Status models.DayStatus
}

// TodayStatus reports the employee's attendance for today in the business
// timezone. Read-only: derivation never writes the status back.
func (s *Service) TodayStatus(ctx context.Context, employeeID id.EmployeeID) (*TodayRecord, error) {
	if employeeID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "employee id is required")
	}

	now := requestcontext.Now(ctx).In(s.loc)
	day := models.DayOf(now)

	record, err := s.records.Get(ctx, employeeID, day)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load attendance record")
	}
	status, err := ledger.DeriveStatus(record, day, now, s.shift)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to derive attendance status")
	}
	return &TodayRecord{Day: day, Record: record, Status: status}, nil
}

// History returns the employee's records for days in [from, to], newest
// first, each with its status derived as of the request time.
func (s *Service) History(ctx context.Context, employeeID id.EmployeeID, from, to models.Day) ([]*models.AttendanceRecord, error) {
	if employeeID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "employee id is required")
	}
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid date range")
	}

	now := requestcontext.Now(ctx).In(s.loc)
	records, err := s.records.ListRange(ctx, employeeID, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attendance records")
	}
	for _, record := range records {
		status, err := ledger.DeriveStatus(record, record.Day, now, s.shift)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to derive attendance status")
		}
		record.Status = status
	}
	return records, nil
}

// checkPrecondition enforces the punch ordering rules for (employee, day).
// Callers must hold the punch lock so the check stays valid until the commit.
func (s *Service) checkPrecondition(ctx context.Context, punchType models.PunchType, employeeID id.EmployeeID, day models.Day) error {
	record, err := s.records.Get(ctx, employeeID, day)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load attendance record")
	}
	switch punchType {
	case models.PunchClockIn:
		if record != nil && record.ClockIn != nil {
			return dErrors.New(dErrors.CodeAlreadyClockedIn, "employee already clocked in today")
		}
	case models.PunchClockOut:
		if !record.OpenClockIn() {
			return dErrors.New(dErrors.CodeNotClockedIn, "no open clock-in for today")
		}
	}
	return nil
}

func (s *Service) commit(ctx context.Context, punchType models.PunchType, employeeID id.EmployeeID, day models.Day, at time.Time, reason string) (*models.AttendanceRecord, error) {
	if punchType == models.PunchClockOut {
		return s.records.CommitClockOut(ctx, employeeID, day, at, reason)
	}
	return s.records.CommitClockIn(ctx, employeeID, day, at, reason)
}

// safeEvaluate shields punch processing from scorer faults. A panicking
// scorer yields a high verdict rather than an accepted punch; the score
// itself is unknowable then, so the second return tells callers whether it is
// worth recording.
func (s *Service) safeEvaluate(ctx context.Context, signals map[string]any) (evaluation models.Evaluation, scored bool) {
	defer func() {
		if r := recover(); r != nil {
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "trust scorer panicked; treating punch as high risk", "panic", r)
			}
			evaluation = models.Evaluation{Level: models.RiskHigh}
			scored = false
		}
	}()
	return s.scorer.Evaluate(ctx, signals), true
}

func punchKey(employeeID id.EmployeeID, day models.Day) string {
	return employeeID.String() + "|" + day.String()
}
