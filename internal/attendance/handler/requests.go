package handler

import (
	"punchtrust/internal/attendance/models"
	id "punchtrust/pkg/domain"
	dErrors "punchtrust/pkg/domain-errors"
)

// PunchRequest is the body of POST /attendance/clock-in and /clock-out. The
// signal bundle is passed through untyped; the trust layer owns validating it.
type PunchRequest struct {
	EmployeeID   string         `json:"employee_id"`
	EmployeeName string         `json:"employee_name"`
	Signals      map[string]any `json:"signals"`
	Reason       string         `json:"reason,omitempty"`

	employeeID id.EmployeeID
}

func (r *PunchRequest) Validate() error {
	employeeID, err := id.ParseEmployeeID(r.EmployeeID)
	if err != nil {
		return err
	}
	r.employeeID = employeeID
	if r.EmployeeName == "" {
		return dErrors.New(dErrors.CodeValidation, "employee_name must not be empty")
	}
	return nil
}

// Event builds the punch event for the given direction.
func (r *PunchRequest) Event(punchType models.PunchType) *models.PunchEvent {
	return &models.PunchEvent{
		EmployeeID:   r.employeeID,
		EmployeeName: r.EmployeeName,
		Type:         punchType,
		Signals:      r.Signals,
		Reason:       r.Reason,
	}
}

// ReviewRequest is the body of POST /attendance/held-events/{eventID}/review.
type ReviewRequest struct {
	Decision   string `json:"decision"`
	ReviewerID string `json:"reviewer_id"`

	decision   models.ReviewDecision
	reviewerID id.ReviewerID
}

func (r *ReviewRequest) Validate() error {
	decision := models.ReviewDecision(r.Decision)
	if !decision.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "decision must be %q or %q",
			models.DecisionApproved, models.DecisionRejected)
	}
	reviewerID, err := id.ParseReviewerID(r.ReviewerID)
	if err != nil {
		return err
	}
	r.decision = decision
	r.reviewerID = reviewerID
	return nil
}
