// Package ledger provides the attendance record stores.
package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"punchtrust/internal/attendance/models"
	id "punchtrust/pkg/domain"
	dErrors "punchtrust/pkg/domain-errors"
)

// InMemoryStore keeps attendance records in memory for development and tests.
// The store mutex makes the precondition check and the write a single atomic
// step, so concurrent punches for one employee cannot both commit.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.AttendanceRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]*models.AttendanceRecord),
	}
}

func key(employeeID id.EmployeeID, day models.Day) string {
	return employeeID.String() + "|" + day.String()
}

func (s *InMemoryStore) Get(_ context.Context, employeeID id.EmployeeID, day models.Day) (*models.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[key(employeeID, day)].Clone(), nil
}

func (s *InMemoryStore) CommitClockIn(_ context.Context, employeeID id.EmployeeID, day models.Day, at time.Time, reason string) (*models.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.records[key(employeeID, day)]
	if record == nil {
		record = &models.AttendanceRecord{
			EmployeeID: employeeID,
			Day:        day,
			Status:     models.StatusPending,
			CreatedAt:  at,
		}
		s.records[key(employeeID, day)] = record
	}
	if record.ClockIn != nil {
		return nil, dErrors.New(dErrors.CodeAlreadyClockedIn, "employee already clocked in today")
	}

	in := at
	record.ClockIn = &in
	record.ClockInReason = reason
	record.UpdatedAt = at
	return record.Clone(), nil
}

func (s *InMemoryStore) CommitClockOut(_ context.Context, employeeID id.EmployeeID, day models.Day, at time.Time, reason string) (*models.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.records[key(employeeID, day)]
	if record == nil || record.ClockIn == nil || record.ClockOut != nil {
		return nil, dErrors.New(dErrors.CodeNotClockedIn, "no open clock-in for today")
	}
	if !at.After(*record.ClockIn) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "clock-out must be after clock-in")
	}

	out := at
	record.ClockOut = &out
	record.ClockOutReason = reason
	record.WorkMinutes = workMinutes(*record.ClockIn, at)
	record.UpdatedAt = at
	return record.Clone(), nil
}

func (s *InMemoryStore) ListRange(_ context.Context, employeeID id.EmployeeID, from, to models.Day) ([]*models.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.AttendanceRecord
	for _, record := range s.records {
		if record.EmployeeID != employeeID {
			continue
		}
		if record.Day.Before(from) || to.Before(record.Day) {
			continue
		}
		out = append(out, record.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[j].Day.Before(out[i].Day)
	})
	return out, nil
}

func workMinutes(in, out time.Time) *int {
	minutes := int(out.Sub(in) / time.Minute)
	return &minutes
}
