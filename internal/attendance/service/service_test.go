package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"punchtrust/internal/attendance/lock"
	"punchtrust/internal/attendance/models"
	"punchtrust/internal/attendance/policy"
	heldstore "punchtrust/internal/attendance/store/held"
	ledgerstore "punchtrust/internal/attendance/store/ledger"
	"punchtrust/internal/attendance/trust"
	"punchtrust/internal/platform/config"
	id "punchtrust/pkg/domain"
	dErrors "punchtrust/pkg/domain-errors"
	"punchtrust/pkg/requestcontext"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type ServiceSuite struct {
	suite.Suite
	svc        *Service
	records    *ledgerstore.InMemoryStore
	heldEvents *heldstore.InMemoryStore
	employeeID id.EmployeeID
	reviewerID id.ReviewerID
	morning    time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	cfg := config.Default()
	s.records = ledgerstore.NewInMemoryStore()
	s.heldEvents = heldstore.NewInMemoryStore()
	s.svc = New(
		s.records,
		s.heldEvents,
		lock.NewKeyedMutex(),
		trust.NewScorer(cfg.Trust),
		cfg.Shift,
		time.UTC,
	)
	s.employeeID = id.EmployeeID(uuid.New())
	s.reviewerID = id.ReviewerID(uuid.New())
	s.morning = time.Date(2025, 3, 10, 8, 55, 0, 0, time.UTC)
}

// at builds a request context carrying the given punch time.
func (s *ServiceSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *ServiceSuite) punch(punchType models.PunchType, reason string, signals map[string]any) *models.PunchEvent {
	return &models.PunchEvent{
		EmployeeID:   s.employeeID,
		EmployeeName: "Asha Rao",
		Type:         punchType,
		Signals:      signals,
		Reason:       reason,
	}
}

// trustedSignals scores well below the medium threshold.
func trustedSignals() map[string]any {
	return map[string]any{
		"device_id":             "kiosk-7",
		"device_seen_before":    true,
		"user_agent":            chromeUA,
		"ip_address":            "203.0.113.9",
		"location_consistent":   true,
		"distance_from_site_km": 0.2,
		"within_usual_hours":    true,
	}
}

// mediumSignals lands between the medium and high thresholds: a new device
// (+2) punching outside usual hours (+2).
func mediumSignals() map[string]any {
	sig := trustedSignals()
	sig["device_seen_before"] = false
	sig["within_usual_hours"] = false
	return sig
}

// =============================================================================
// Accept Path Tests
// =============================================================================

func (s *ServiceSuite) TestPunchAccept() {
	ctx := s.at(s.morning)

	s.Run("trusted clock-in commits immediately", func() {
		result, err := s.svc.Punch(ctx, s.punch(models.PunchClockIn, "", trustedSignals()))
		s.Require().NoError(err)
		s.Equal(policy.Accept, result.Disposition)
		s.Equal(models.RiskLow, result.Evaluation.Level)
		s.Require().NotNil(result.Record)
		s.Equal(s.morning, *result.Record.ClockIn)
	})

	s.Run("today reports present before shift start plus grace", func() {
		today, err := s.svc.TodayStatus(ctx, s.employeeID)
		s.Require().NoError(err)
		s.Equal(models.StatusPresent, today.Status)
	})

	s.Run("duplicate clock-in conflicts", func() {
		_, err := s.svc.Punch(s.at(s.morning.Add(time.Minute)), s.punch(models.PunchClockIn, "", trustedSignals()))
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyClockedIn))
	})

	s.Run("trusted clock-out closes the day", func() {
		evening := s.morning.Add(8*time.Hour + 10*time.Minute)
		result, err := s.svc.Punch(s.at(evening), s.punch(models.PunchClockOut, "", trustedSignals()))
		s.Require().NoError(err)
		s.Require().NotNil(result.Record.WorkMinutes)
		s.Equal(8*60+10, *result.Record.WorkMinutes)
	})

	s.Run("clock-out without clock-in conflicts", func() {
		other := id.EmployeeID(uuid.New())
		event := s.punch(models.PunchClockOut, "", trustedSignals())
		event.EmployeeID = other
		_, err := s.svc.Punch(ctx, event)
		s.True(dErrors.HasCode(err, dErrors.CodeNotClockedIn))
	})
}

// =============================================================================
// Reason Gate Tests
// =============================================================================

func (s *ServiceSuite) TestPunchRequireReason() {
	ctx := s.at(s.morning)

	s.Run("medium risk without a reason is rejected without mutation", func() {
		_, err := s.svc.Punch(ctx, s.punch(models.PunchClockIn, "", mediumSignals()))
		s.True(dErrors.HasCode(err, dErrors.CodeReasonRequired))

		record, err := s.records.Get(ctx, s.employeeID, models.DayOf(s.morning))
		s.Require().NoError(err)
		s.Nil(record, "a rejected punch must leave no trace in the ledger")
	})

	s.Run("whitespace-only reason fails validation before the gate", func() {
		_, err := s.svc.Punch(ctx, s.punch(models.PunchClockIn, "   ", mediumSignals()))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("resubmission with a reason commits and retains it", func() {
		result, err := s.svc.Punch(ctx, s.punch(models.PunchClockIn, "site wifi down, punching from phone", mediumSignals()))
		s.Require().NoError(err)
		s.Equal(policy.Accept, result.Disposition)
		s.Equal("site wifi down, punching from phone", result.Record.ClockInReason)
	})
}

// =============================================================================
// Hold Path Tests
// =============================================================================

func (s *ServiceSuite) TestPunchHold() {
	ctx := s.at(s.morning)

	s.Run("high risk is held even with a reason", func() {
		result, err := s.svc.Punch(ctx, s.punch(models.PunchClockIn, "I am really me", nil))
		s.Require().NoError(err)
		s.Equal(policy.Hold, result.Disposition)
		s.Equal(models.RiskHigh, result.Evaluation.Level)
		s.Require().NotNil(result.HeldEvent)
		s.Equal(models.HeldPending, result.HeldEvent.Status)
		s.Equal("I am really me", result.HeldEvent.Reason)

		record, err := s.records.Get(ctx, s.employeeID, models.DayOf(s.morning))
		s.Require().NoError(err)
		s.Nil(record, "a held punch must not touch the ledger")
	})

	s.Run("held punch appears in the pending list", func() {
		events, err := s.svc.ListHeld(ctx, 10)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(s.employeeID, events[0].EmployeeID)
	})

	s.Run("scorer failure holds the punch instead of accepting it", func() {
		cfg := config.Default()
		broken := New(s.records, s.heldEvents, lock.NewKeyedMutex(), nil, cfg.Shift, time.UTC)

		other := s.punch(models.PunchClockIn, "", trustedSignals())
		other.EmployeeID = id.EmployeeID(uuid.New())
		result, err := broken.Punch(ctx, other)
		s.Require().NoError(err)
		s.Equal(policy.Hold, result.Disposition)
		s.Equal(models.RiskHigh, result.Evaluation.Level)
	})
}

// =============================================================================
// Review Workflow Tests
// =============================================================================

func (s *ServiceSuite) hold(ctx context.Context, punchType models.PunchType) *models.HeldTrustEvent {
	result, err := s.svc.Punch(ctx, s.punch(punchType, "", nil))
	s.Require().NoError(err)
	s.Require().NotNil(result.HeldEvent)
	return result.HeldEvent
}

func (s *ServiceSuite) TestReviewApprove() {
	ctx := s.at(s.morning)
	heldEvent := s.hold(ctx, models.PunchClockIn)

	reviewCtx := s.at(s.morning.Add(2 * time.Hour))
	reviewed, err := s.svc.Review(reviewCtx, heldEvent.ID, models.DecisionApproved, s.reviewerID)
	s.Require().NoError(err)
	s.Equal(models.HeldApproved, reviewed.Status)
	s.Require().NotNil(reviewed.ReviewedBy)
	s.Equal(s.reviewerID, *reviewed.ReviewedBy)

	// The approved punch lands at its original capture time, exactly as a
	// directly accepted punch would have.
	record, err := s.records.Get(ctx, s.employeeID, models.DayOf(s.morning))
	s.Require().NoError(err)
	s.Require().NotNil(record)
	s.Equal(s.morning, *record.ClockIn)
}

func (s *ServiceSuite) TestReviewReject() {
	ctx := s.at(s.morning)
	heldEvent := s.hold(ctx, models.PunchClockIn)

	reviewed, err := s.svc.Review(ctx, heldEvent.ID, models.DecisionRejected, s.reviewerID)
	s.Require().NoError(err)
	s.Equal(models.HeldRejected, reviewed.Status)

	record, err := s.records.Get(ctx, s.employeeID, models.DayOf(s.morning))
	s.Require().NoError(err)
	s.Nil(record, "a rejected punch must never reach the ledger")
}

func (s *ServiceSuite) TestReviewExactlyOnce() {
	ctx := s.at(s.morning)
	heldEvent := s.hold(ctx, models.PunchClockIn)

	_, err := s.svc.Review(ctx, heldEvent.ID, models.DecisionApproved, s.reviewerID)
	s.Require().NoError(err)

	s.Run("second review fails regardless of decision", func() {
		_, err := s.svc.Review(ctx, heldEvent.ID, models.DecisionRejected, s.reviewerID)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyReviewed))
	})

	s.Run("approval committed only once", func() {
		record, err := s.records.Get(ctx, s.employeeID, models.DayOf(s.morning))
		s.Require().NoError(err)
		s.Equal(s.morning, *record.ClockIn)
	})
}

func (s *ServiceSuite) TestReviewConflicts() {
	ctx := s.at(s.morning)

	s.Run("unknown event is not found", func() {
		_, err := s.svc.Review(ctx, id.NewHeldEventID(), models.DecisionApproved, s.reviewerID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("invalid decision fails validation", func() {
		heldEvent := s.hold(ctx, models.PunchClockIn)
		_, err := s.svc.Review(ctx, heldEvent.ID, models.ReviewDecision("maybe"), s.reviewerID)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("approval after a direct clock-in conflicts and stays pending", func() {
		other := id.EmployeeID(uuid.New())
		event := s.punch(models.PunchClockIn, "", nil)
		event.EmployeeID = other
		result, err := s.svc.Punch(ctx, event)
		s.Require().NoError(err)
		heldID := result.HeldEvent.ID

		direct := s.punch(models.PunchClockIn, "", trustedSignals())
		direct.EmployeeID = other
		_, err = s.svc.Punch(s.at(s.morning.Add(time.Minute)), direct)
		s.Require().NoError(err)

		_, err = s.svc.Review(ctx, heldID, models.DecisionApproved, s.reviewerID)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyClockedIn))

		pending, err := s.heldEvents.Get(ctx, heldID)
		s.Require().NoError(err)
		s.Equal(models.HeldPending, pending.Status, "a failed approval must not consume the review")
	})
}

// =============================================================================
// Day Rollover Tests
// =============================================================================

func (s *ServiceSuite) TestTodayStatusRollover() {
	s.Run("no punch while the day runs is pending", func() {
		today, err := s.svc.TodayStatus(s.at(s.morning), s.employeeID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, today.Status)
		s.Nil(today.Record)
	})

	s.Run("next morning the new day starts pending again", func() {
		_, err := s.svc.Punch(s.at(s.morning), s.punch(models.PunchClockIn, "", trustedSignals()))
		s.Require().NoError(err)

		nextMorning := s.morning.AddDate(0, 0, 1)
		today, err := s.svc.TodayStatus(s.at(nextMorning), s.employeeID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, today.Status)
		s.Nil(today.Record, "yesterday's record must not leak into today")
	})

	s.Run("a new clock-in is accepted on the next day", func() {
		nextMorning := s.morning.AddDate(0, 0, 1)
		result, err := s.svc.Punch(s.at(nextMorning), s.punch(models.PunchClockIn, "", trustedSignals()))
		s.Require().NoError(err)
		s.Equal(policy.Accept, result.Disposition)
	})
}

// =============================================================================
// History Tests
// =============================================================================

func (s *ServiceSuite) TestHistory() {
	for dayOffset := 0; dayOffset < 3; dayOffset++ {
		at := s.morning.AddDate(0, 0, dayOffset)
		_, err := s.svc.Punch(s.at(at), s.punch(models.PunchClockIn, "", trustedSignals()))
		s.Require().NoError(err)
	}

	ref := s.morning.AddDate(0, 0, 3)
	from := models.DayOf(s.morning)
	to := models.DayOf(s.morning.AddDate(0, 0, 2))

	records, err := s.svc.History(s.at(ref), s.employeeID, from, to)
	s.Require().NoError(err)
	s.Require().Len(records, 3)
	for _, record := range records {
		// Clock-in without clock-out on an elapsed day stays open; derivation
		// reports it from the punch that exists.
		s.NotEqual(models.StatusAbsent, record.Status)
	}

	s.Run("inverted range fails validation", func() {
		_, err := s.svc.History(s.at(ref), s.employeeID, to, from)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// =============================================================================
// Concurrency Tests
// =============================================================================

// TestConcurrentPunches drives simultaneous trusted clock-ins through the full
// service path and verifies exactly one reaches the ledger.
func (s *ServiceSuite) TestConcurrentPunches() {
	ctx := s.at(s.morning)
	const goroutines = 25

	var wg sync.WaitGroup
	var accepted, conflicted atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.Punch(ctx, s.punch(models.PunchClockIn, "", trustedSignals()))
			switch {
			case err == nil:
				accepted.Add(1)
			case dErrors.HasCode(err, dErrors.CodeAlreadyClockedIn):
				conflicted.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), accepted.Load(), "exactly one concurrent clock-in must win")
	s.Equal(int32(goroutines-1), conflicted.Load())
}
