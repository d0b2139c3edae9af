package audit

import (
	"context"
	"time"
)

// Store is the persistence boundary for audit events. Append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByEmployee(ctx context.Context, employeeID string) ([]Event, error)
}

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if employeeID, ok := event.Details["employee_id"].(string); ok && event.EmployeeID == "" {
		event.EmployeeID = employeeID
	}
	return p.store.Append(ctx, event)
}

func (p *Publisher) List(ctx context.Context, employeeID string) ([]Event, error) {
	return p.store.ListByEmployee(ctx, employeeID)
}
