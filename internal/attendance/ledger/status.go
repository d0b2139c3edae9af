// Package ledger holds the pure derivation rules for day-level attendance:
// worked minutes and the status enum consumed by reporting and payroll.
// This is pure domain logic - no I/O, no side effects.
package ledger

import (
	"fmt"
	"time"

	"punchtrust/internal/attendance/models"
	"punchtrust/internal/platform/config"
)

// WorkMinutes returns the floor-truncated minutes between clock-in and
// clock-out, present only when both timestamps exist.
func WorkMinutes(clockIn, clockOut *time.Time) *int {
	if clockIn == nil || clockOut == nil {
		return nil
	}
	minutes := int(clockOut.Sub(*clockIn) / time.Minute)
	return &minutes
}

// ShiftStart resolves the configured "HH:MM" shift start on the given day.
func ShiftStart(day models.Day, shift config.ShiftConfig) (time.Time, error) {
	parsed, err := time.Parse("15:04", shift.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid shift start %q: %w", shift.Start, err)
	}
	base := day.Time()
	return time.Date(base.Year(), base.Month(), base.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, base.Location()), nil
}

// DeriveStatus computes the day-level status for a record as of ref.
//
// Rules, in precedence order:
//   - on-leave and holiday are owned by the external leave/holiday
//     collaborators and always win when present.
//   - no clock-in: pending while the day is still running, absent once it
//     has fully elapsed.
//   - completed day with 0 < workMinutes < the full-day threshold: half-day
//     (half-day wins over late; payroll treats the short day as the
//     dominant fact).
//   - clock-in after shift start + grace: late.
//   - otherwise: present.
//
// A nil record means no punch was ever accepted for the day.
func DeriveStatus(record *models.AttendanceRecord, day models.Day, ref time.Time, shift config.ShiftConfig) (models.DayStatus, error) {
	if record != nil && record.Status.External() {
		return record.Status, nil
	}

	if record == nil || record.ClockIn == nil {
		if day.Elapsed(ref) {
			return models.StatusAbsent, nil
		}
		return models.StatusPending, nil
	}

	if minutes := WorkMinutes(record.ClockIn, record.ClockOut); minutes != nil && *minutes < shift.FullDayMinutes {
		if *minutes > 0 {
			return models.StatusHalfDay, nil
		}
	}

	start, err := ShiftStart(day, shift)
	if err != nil {
		return "", err
	}
	deadline := start.Add(time.Duration(shift.GraceMinutes) * time.Minute)
	if record.ClockIn.After(deadline) {
		return models.StatusLate, nil
	}
	return models.StatusPresent, nil
}
