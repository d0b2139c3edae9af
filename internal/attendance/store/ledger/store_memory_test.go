package ledger

import (
	"context"
	"sync"
	"sync/atomic"
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
	store      *InMemoryStore
	employeeID id.EmployeeID
	day        models.Day
	morning    time.Time
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.employeeID = id.EmployeeID(uuid.New())
	s.morning = time.Date(2025, 3, 10, 8, 55, 0, 0, time.UTC)
	s.day = models.DayOf(s.morning)
}

// =============================================================================
// Clock-in Tests
// =============================================================================

func (s *MemoryStoreSuite) TestCommitClockIn() {
	ctx := context.Background()

	s.Run("creates the day record lazily", func() {
		record, err := s.store.CommitClockIn(ctx, s.employeeID, s.day, s.morning, "")
		s.Require().NoError(err)
		s.Require().NotNil(record.ClockIn)
		s.Equal(s.morning, *record.ClockIn)
		s.Nil(record.ClockOut)
		s.Nil(record.WorkMinutes)
	})

	s.Run("second clock-in fails and leaves the record unchanged", func() {
		_, err := s.store.CommitClockIn(ctx, s.employeeID, s.day, s.morning.Add(time.Hour), "")
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyClockedIn))

		record, err := s.store.Get(ctx, s.employeeID, s.day)
		s.Require().NoError(err)
		s.Equal(s.morning, *record.ClockIn)
	})

	s.Run("retains the supplied reason for audit", func() {
		other := id.EmployeeID(uuid.New())
		record, err := s.store.CommitClockIn(ctx, other, s.day, s.morning, "forgot badge")
		s.Require().NoError(err)
		s.Equal("forgot badge", record.ClockInReason)
	})
}

// =============================================================================
// Clock-out Tests
// =============================================================================

func (s *MemoryStoreSuite) TestCommitClockOut() {
	ctx := context.Background()

	s.Run("fails without an open clock-in", func() {
		_, err := s.store.CommitClockOut(ctx, s.employeeID, s.day, s.morning, "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotClockedIn))
	})

	s.Run("closes the open clock-in and derives minutes", func() {
		_, err := s.store.CommitClockIn(ctx, s.employeeID, s.day, s.morning, "")
		s.Require().NoError(err)

		evening := s.morning.Add(8*time.Hour + 35*time.Minute + 30*time.Second)
		record, err := s.store.CommitClockOut(ctx, s.employeeID, s.day, evening, "")
		s.Require().NoError(err)
		s.Require().NotNil(record.WorkMinutes)
		s.Equal(8*60+35, *record.WorkMinutes)
	})

	s.Run("second clock-out fails", func() {
		_, err := s.store.CommitClockOut(ctx, s.employeeID, s.day, s.morning.Add(10*time.Hour), "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotClockedIn))
	})

	s.Run("rejects clock-out at or before clock-in", func() {
		other := id.EmployeeID(uuid.New())
		_, err := s.store.CommitClockIn(ctx, other, s.day, s.morning, "")
		s.Require().NoError(err)

		_, err = s.store.CommitClockOut(ctx, other, s.day, s.morning, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

// =============================================================================
// Concurrency Tests
// =============================================================================

// TestConcurrentClockIn verifies that simultaneous clock-ins for the same
// employee and day admit exactly one winner.
func (s *MemoryStoreSuite) TestConcurrentClockIn() {
	ctx := context.Background()
	const goroutines = 50

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.CommitClockIn(ctx, s.employeeID, s.day, s.morning, "")
			switch {
			case err == nil:
				successCount.Add(1)
			case dErrors.HasCode(err, dErrors.CodeAlreadyClockedIn):
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one clock-in must win")
	s.Equal(int32(goroutines-1), conflictCount.Load())
}

// =============================================================================
// Range Tests
// =============================================================================

func (s *MemoryStoreSuite) TestListRange() {
	ctx := context.Background()

	for dayOffset := 0; dayOffset < 3; dayOffset++ {
		at := s.morning.AddDate(0, 0, dayOffset)
		_, err := s.store.CommitClockIn(ctx, s.employeeID, models.DayOf(at), at, "")
		s.Require().NoError(err)
	}

	from := s.day
	to := models.DayOf(s.morning.AddDate(0, 0, 1))
	records, err := s.store.ListRange(ctx, s.employeeID, from, to)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.True(records[1].Day.Before(records[0].Day), "newest first")
}

func (s *MemoryStoreSuite) TestGetReturnsCopy() {
	ctx := context.Background()

	_, err := s.store.CommitClockIn(ctx, s.employeeID, s.day, s.morning, "")
	s.Require().NoError(err)

	record, err := s.store.Get(ctx, s.employeeID, s.day)
	s.Require().NoError(err)
	tampered := s.morning.Add(5 * time.Hour)
	record.ClockIn = &tampered

	fresh, err := s.store.Get(ctx, s.employeeID, s.day)
	s.Require().NoError(err)
	s.Equal(s.morning, *fresh.ClockIn, "store must not expose internal pointers")
}
