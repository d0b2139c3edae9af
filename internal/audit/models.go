// Package audit captures trust-relevant actions as structured events.
// Dispositions and review outcomes must be reconstructible after the fact;
// the punch UI only ever sees the final verdict.
package audit

import "time"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp  time.Time      `json:"timestamp"`
	EmployeeID string         `json:"employee_id,omitempty"`
	Action     string         `json:"action"`
	Details    map[string]any `json:"details,omitempty"`
}
