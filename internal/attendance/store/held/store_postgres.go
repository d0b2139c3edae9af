package held

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

// PostgresStore persists held trust events in PostgreSQL. The review
// transition is a conditional update on status = 'pending', making the
// compare-and-set atomic across service instances.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed held event store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const eventColumns = `id, employee_id, employee_name, event_type, captured_at, risk_score, risk_level, reason, status, reviewed_by, reviewed_at`

func (s *PostgresStore) Create(ctx context.Context, event *models.HeldTrustEvent) error {
	if event == nil {
		return dErrors.New(dErrors.CodeInternal, "held event is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO held_trust_events
			(id, employee_id, employee_name, event_type, captured_at, risk_score, risk_level, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.UUID(event.ID), uuid.UUID(event.EmployeeID), event.EmployeeName,
		string(event.EventType), event.CapturedAt, event.RiskScore, string(event.RiskLevel),
		nullString(event.Reason), string(event.Status),
	)
	if err != nil {
		return fmt.Errorf("create held event: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, eventID id.HeldEventID) (*models.HeldTrustEvent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM held_trust_events WHERE id = $1`,
		uuid.UUID(eventID),
	)
	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dErrors.New(dErrors.CodeNotFound, "held event not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get held event: %w", err)
	}
	return event, nil
}

func (s *PostgresStore) ListPending(ctx context.Context, limit int) ([]*models.HeldTrustEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM held_trust_events
		 WHERE status = 'pending'
		 ORDER BY captured_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending held events: %w", err)
	}
	defer rows.Close()

	var out []*models.HeldTrustEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan held event: %w", err)
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkReviewed(ctx context.Context, eventID id.HeldEventID, decision models.ReviewDecision, reviewerID id.ReviewerID, at time.Time) (*models.HeldTrustEvent, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE held_trust_events
		SET status = $2, reviewed_by = $3, reviewed_at = $4
		WHERE id = $1 AND status = 'pending'
		RETURNING `+eventColumns,
		uuid.UUID(eventID), string(decision.TerminalStatus()), uuid.UUID(reviewerID), at,
	)
	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Either unknown or already terminal; disambiguate for the caller.
		if _, getErr := s.Get(ctx, eventID); getErr != nil {
			return nil, getErr
		}
		return nil, dErrors.New(dErrors.CodeAlreadyReviewed, "held event already reviewed")
	}
	if err != nil {
		return nil, fmt.Errorf("mark held event reviewed: %w", err)
	}
	return event, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*models.HeldTrustEvent, error) {
	var (
		eventID    uuid.UUID
		employeeID uuid.UUID
		name       string
		eventType  string
		capturedAt time.Time
		riskScore  float64
		riskLevel  string
		reason     sql.NullString
		status     string
		reviewedBy uuid.NullUUID
		reviewedAt sql.NullTime
	)
	if err := row.Scan(&eventID, &employeeID, &name, &eventType, &capturedAt,
		&riskScore, &riskLevel, &reason, &status, &reviewedBy, &reviewedAt); err != nil {
		return nil, err
	}

	event := &models.HeldTrustEvent{
		ID:           id.HeldEventID(eventID),
		EmployeeID:   id.EmployeeID(employeeID),
		EmployeeName: name,
		EventType:    models.PunchType(eventType),
		CapturedAt:   capturedAt,
		RiskScore:    riskScore,
		RiskLevel:    models.RiskLevel(riskLevel),
		Reason:       reason.String,
		Status:       models.HeldEventStatus(status),
	}
	if reviewedBy.Valid {
		rb := id.ReviewerID(reviewedBy.UUID)
		event.ReviewedBy = &rb
	}
	if reviewedAt.Valid {
		ra := reviewedAt.Time
		event.ReviewedAt = &ra
	}
	return event, nil
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
