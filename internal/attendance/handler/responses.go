package handler

import (
	"time"

	"punchtrust/internal/attendance/models"
	"punchtrust/internal/attendance/service"
)

// recordResponse is the JSON shape of one attendance record.
type recordResponse struct {
	EmployeeID  string     `json:"employee_id"`
	Day         string     `json:"day"`
	ClockIn     *time.Time `json:"clock_in,omitempty"`
	ClockOut    *time.Time `json:"clock_out,omitempty"`
	WorkMinutes *int       `json:"work_minutes,omitempty"`
	Status      string     `json:"status"`
}

func toRecordResponse(record *models.AttendanceRecord) *recordResponse {
	if record == nil {
		return nil
	}
	return &recordResponse{
		EmployeeID:  record.EmployeeID.String(),
		Day:         record.Day.String(),
		ClockIn:     record.ClockIn,
		ClockOut:    record.ClockOut,
		WorkMinutes: record.WorkMinutes,
		Status:      string(record.Status),
	}
}

// recordListResponse wraps a range query result.
type recordListResponse struct {
	Records []*recordResponse `json:"records"`
}

func toRecordListResponse(records []*models.AttendanceRecord) *recordListResponse {
	out := &recordListResponse{Records: make([]*recordResponse, 0, len(records))}
	for _, record := range records {
		out.Records = append(out.Records, toRecordResponse(record))
	}
	return out
}

// punchResponse is returned for an accepted punch.
type punchResponse struct {
	Disposition string          `json:"disposition"`
	RiskLevel   string          `json:"risk_level"`
	Record      *recordResponse `json:"record"`
}

// heldResponse is returned with 202 Accepted when a punch is suspended for
// review. The client shows the employee that the punch is in limbo, not lost.
type heldResponse struct {
	Disposition string `json:"disposition"`
	RiskLevel   string `json:"risk_level"`
	HeldEventID string `json:"held_event_id"`
}

// todayResponse is the shape of GET /attendance/employees/{employeeID}/today.
// Record is null until a punch is accepted; status is always present.
type todayResponse struct {
	Day    string          `json:"day"`
	Status string          `json:"status"`
	Record *recordResponse `json:"record"`
}

func toTodayResponse(today *service.TodayRecord) *todayResponse {
	return &todayResponse{
		Day:    today.Day.String(),
		Status: string(today.Status),
		Record: toRecordResponse(today.Record),
	}
}

// heldEventResponse is the JSON shape of one held trust event.
type heldEventResponse struct {
	ID           string     `json:"id"`
	EmployeeID   string     `json:"employee_id"`
	EmployeeName string     `json:"employee_name"`
	EventType    string     `json:"event_type"`
	CapturedAt   time.Time  `json:"captured_at"`
	RiskScore    float64    `json:"risk_score"`
	RiskLevel    string     `json:"risk_level"`
	Reason       string     `json:"reason,omitempty"`
	Status       string     `json:"status"`
	ReviewedBy   string     `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
}

func toHeldEventResponse(event *models.HeldTrustEvent) *heldEventResponse {
	resp := &heldEventResponse{
		ID:           event.ID.String(),
		EmployeeID:   event.EmployeeID.String(),
		EmployeeName: event.EmployeeName,
		EventType:    string(event.EventType),
		CapturedAt:   event.CapturedAt,
		RiskScore:    event.RiskScore,
		RiskLevel:    string(event.RiskLevel),
		Reason:       event.Reason,
		Status:       string(event.Status),
		ReviewedAt:   event.ReviewedAt,
	}
	if event.ReviewedBy != nil {
		resp.ReviewedBy = event.ReviewedBy.String()
	}
	return resp
}

// heldListResponse wraps the pending event list so the shape can grow a
// cursor without breaking clients.
type heldListResponse struct {
	Events []*heldEventResponse `json:"events"`
}

func toHeldListResponse(events []*models.HeldTrustEvent) *heldListResponse {
	out := &heldListResponse{Events: make([]*heldEventResponse, 0, len(events))}
	for _, event := range events {
		out.Events = append(out.Events, toHeldEventResponse(event))
	}
	return out
}
