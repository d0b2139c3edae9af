package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"punchtrust/internal/attendance/models"
	id "punchtrust/pkg/domain"
	dErrors "punchtrust/pkg/domain-errors"

	"github.com/google/uuid"
)

// PostgresStore persists attendance records in PostgreSQL.
//
// The precondition is folded into the statement predicate (guarded upsert for
// clock-in, conditional update for clock-out), so the check-and-write is
// atomic at the database and safe across service instances.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed attendance record store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `employee_id, day, clock_in, clock_out, work_minutes, status, clock_in_reason, clock_out_reason, created_at, updated_at`

func (s *PostgresStore) Get(ctx context.Context, employeeID id.EmployeeID, day models.Day) (*models.AttendanceRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM attendance_records WHERE employee_id = $1 AND day = $2`,
		uuid.UUID(employeeID), day.String(),
	)
	record, err := scanRecord(row, day.Time().Location())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attendance record: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) CommitClockIn(ctx context.Context, employeeID id.EmployeeID, day models.Day, at time.Time, reason string) (*models.AttendanceRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (employee_id, day, clock_in, clock_in_reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'pending', $3, $3)
		ON CONFLICT (employee_id, day) DO UPDATE
		SET clock_in = EXCLUDED.clock_in,
		    clock_in_reason = EXCLUDED.clock_in_reason,
		    updated_at = EXCLUDED.updated_at
		WHERE attendance_records.clock_in IS NULL
		RETURNING `+recordColumns,
		uuid.UUID(employeeID), day.String(), at, nullString(reason),
	)
	record, err := scanRecord(row, day.Time().Location())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dErrors.New(dErrors.CodeAlreadyClockedIn, "employee already clocked in today")
	}
	if err != nil {
		return nil, fmt.Errorf("commit clock-in: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) CommitClockOut(ctx context.Context, employeeID id.EmployeeID, day models.Day, at time.Time, reason string) (*models.AttendanceRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE attendance_records
		SET clock_out = $3,
		    clock_out_reason = $4,
		    work_minutes = FLOOR(EXTRACT(EPOCH FROM ($3::timestamptz - clock_in)) / 60),
		    updated_at = $3
		WHERE employee_id = $1 AND day = $2
		  AND clock_in IS NOT NULL AND clock_in < $3
		  AND clock_out IS NULL
		RETURNING `+recordColumns,
		uuid.UUID(employeeID), day.String(), at, nullString(reason),
	)
	record, err := scanRecord(row, day.Time().Location())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dErrors.New(dErrors.CodeNotClockedIn, "no open clock-in for today")
	}
	if err != nil {
		return nil, fmt.Errorf("commit clock-out: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListRange(ctx context.Context, employeeID id.EmployeeID, from, to models.Day) ([]*models.AttendanceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM attendance_records
		 WHERE employee_id = $1 AND day BETWEEN $2 AND $3
		 ORDER BY day DESC`,
		uuid.UUID(employeeID), from.String(), to.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	defer rows.Close()

	loc := from.Time().Location()
	var out []*models.AttendanceRecord
	for rows.Next() {
		record, err := scanRecord(rows, loc)
		if err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner, loc *time.Location) (*models.AttendanceRecord, error) {
	var (
		employeeID     uuid.UUID
		dayTime        time.Time
		clockIn        sql.NullTime
		clockOut       sql.NullTime
		workMinutes    sql.NullInt64
		status         string
		clockInReason  sql.NullString
		clockOutReason sql.NullString
		createdAt      time.Time
		updatedAt      time.Time
	)
	if err := row.Scan(&employeeID, &dayTime, &clockIn, &clockOut, &workMinutes, &status,
		&clockInReason, &clockOutReason, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	// DATE columns scan as midnight UTC; rebuild the Day in the business zone.
	day, err := models.ParseDay(dayTime.Format("2006-01-02"), loc)
	if err != nil {
		return nil, fmt.Errorf("parse day: %w", err)
	}

	record := &models.AttendanceRecord{
		EmployeeID:     id.EmployeeID(employeeID),
		Day:            day,
		Status:         models.DayStatus(status),
		ClockInReason:  clockInReason.String,
		ClockOutReason: clockOutReason.String,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}
	if clockIn.Valid {
		t := clockIn.Time.In(loc)
		record.ClockIn = &t
	}
	if clockOut.Valid {
		t := clockOut.Time.In(loc)
		record.ClockOut = &t
	}
	if workMinutes.Valid {
		m := int(workMinutes.Int64)
		record.WorkMinutes = &m
	}
	return record, nil
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
