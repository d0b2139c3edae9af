// Package held provides the held trust event stores.
package held

import (
	"context"
	"sort"
	"sync"
	"time"

	"punchtrust/internal/attendance/models"
	id "punchtrust/pkg/domain"
	dErrors "punchtrust/pkg/domain-errors"
)

// InMemoryStore keeps held events in memory for development and tests.
// MarkReviewed performs its compare-and-set under the store mutex, so two
// supervisors racing on the same event see exactly one winner.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.HeldEventID]*models.HeldTrustEvent
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		events: make(map[id.HeldEventID]*models.HeldTrustEvent),
	}
}

func (s *InMemoryStore) Create(_ context.Context, event *models.HeldTrustEvent) error {
	if event == nil {
		return dErrors.New(dErrors.CodeInternal, "held event is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[event.ID]; exists {
		return dErrors.New(dErrors.CodeConflict, "held event already exists")
	}
	s.events[event.ID] = event.Clone()
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, eventID id.HeldEventID) (*models.HeldTrustEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[eventID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "held event not found")
	}
	return event.Clone(), nil
}

func (s *InMemoryStore) ListPending(_ context.Context, limit int) ([]*models.HeldTrustEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.HeldTrustEvent
	for _, event := range s.events {
		if event.Status == models.HeldPending {
			out = append(out, event.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CapturedAt.After(out[j].CapturedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) MarkReviewed(_ context.Context, eventID id.HeldEventID, decision models.ReviewDecision, reviewerID id.ReviewerID, at time.Time) (*models.HeldTrustEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "held event not found")
	}
	if event.Status != models.HeldPending {
		return nil, dErrors.New(dErrors.CodeAlreadyReviewed, "held event already reviewed")
	}

	event.Status = decision.TerminalStatus()
	reviewer := reviewerID
	reviewedAt := at
	event.ReviewedBy = &reviewer
	event.ReviewedAt = &reviewedAt
	return event.Clone(), nil
}
