package held

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"punchtrust/internal/attendance/models"
	id "punchtrust/pkg/domain"
	dErrors "punchtrust/pkg/domain-errors"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	base  time.Time
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.base = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
}

func (s *MemoryStoreSuite) newEvent(capturedAt time.Time) *models.HeldTrustEvent {
	return &models.HeldTrustEvent{
		ID:           id.NewHeldEventID(),
		EmployeeID:   id.EmployeeID(uuid.New()),
		EmployeeName: "Priya Nair",
		EventType:    models.PunchClockIn,
		CapturedAt:   capturedAt,
		RiskScore:    9,
		RiskLevel:    models.RiskHigh,
		Status:       models.HeldPending,
	}
}

// =============================================================================
// Create / Get Tests
// =============================================================================

func (s *MemoryStoreSuite) TestCreateAndGet() {
	ctx := context.Background()
	event := s.newEvent(s.base)

	s.Run("round-trips the event", func() {
		s.Require().NoError(s.store.Create(ctx, event))

		got, err := s.store.Get(ctx, event.ID)
		s.Require().NoError(err)
		s.Equal(event.ID, got.ID)
		s.Equal(models.HeldPending, got.Status)
		s.Nil(got.ReviewedBy)
	})

	s.Run("duplicate create conflicts", func() {
		err := s.store.Create(ctx, event)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown event is not found", func() {
		_, err := s.store.Get(ctx, id.NewHeldEventID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// =============================================================================
// Listing Tests
// =============================================================================

func (s *MemoryStoreSuite) TestListPending() {
	ctx := context.Background()

	oldest := s.newEvent(s.base)
	middle := s.newEvent(s.base.Add(time.Hour))
	newest := s.newEvent(s.base.Add(2 * time.Hour))
	for _, event := range []*models.HeldTrustEvent{oldest, middle, newest} {
		s.Require().NoError(s.store.Create(ctx, event))
	}

	s.Run("returns newest first", func() {
		events, err := s.store.ListPending(ctx, 10)
		s.Require().NoError(err)
		s.Require().Len(events, 3)
		s.Equal(newest.ID, events[0].ID)
		s.Equal(oldest.ID, events[2].ID)
	})

	s.Run("honors the limit", func() {
		events, err := s.store.ListPending(ctx, 2)
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal(newest.ID, events[0].ID)
	})

	s.Run("excludes reviewed events", func() {
		_, err := s.store.MarkReviewed(ctx, middle.ID, models.DecisionApproved, id.ReviewerID(uuid.New()), s.base.Add(3*time.Hour))
		s.Require().NoError(err)

		events, err := s.store.ListPending(ctx, 10)
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		for _, event := range events {
			s.NotEqual(middle.ID, event.ID)
		}
	})
}

// =============================================================================
// Review Transition Tests
// =============================================================================

func (s *MemoryStoreSuite) TestMarkReviewed() {
	ctx := context.Background()
	reviewer := id.ReviewerID(uuid.New())

	s.Run("first review wins and records the reviewer", func() {
		event := s.newEvent(s.base)
		s.Require().NoError(s.store.Create(ctx, event))

		reviewed, err := s.store.MarkReviewed(ctx, event.ID, models.DecisionApproved, reviewer, s.base.Add(time.Hour))
		s.Require().NoError(err)
		s.Equal(models.HeldApproved, reviewed.Status)
		s.Require().NotNil(reviewed.ReviewedBy)
		s.Equal(reviewer, *reviewed.ReviewedBy)
		s.Require().NotNil(reviewed.ReviewedAt)
	})

	s.Run("second review fails regardless of decision", func() {
		event := s.newEvent(s.base)
		s.Require().NoError(s.store.Create(ctx, event))

		_, err := s.store.MarkReviewed(ctx, event.ID, models.DecisionRejected, reviewer, s.base.Add(time.Hour))
		s.Require().NoError(err)

		_, err = s.store.MarkReviewed(ctx, event.ID, models.DecisionApproved, reviewer, s.base.Add(2*time.Hour))
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyReviewed))

		got, err := s.store.Get(ctx, event.ID)
		s.Require().NoError(err)
		s.Equal(models.HeldRejected, got.Status, "terminal state must not change")
	})

	s.Run("unknown event is not found", func() {
		_, err := s.store.MarkReviewed(ctx, id.NewHeldEventID(), models.DecisionApproved, reviewer, s.base)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
