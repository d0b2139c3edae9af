// Package handler exposes the attendance module over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"punchtrust/internal/attendance/models"
	"punchtrust/internal/attendance/policy"
	"punchtrust/internal/attendance/service"
	id "punchtrust/pkg/domain"
	dErrors "punchtrust/pkg/domain-errors"
	"punchtrust/pkg/platform/httputil"
	"punchtrust/pkg/requestcontext"
)

// Service defines the attendance operations the handler depends on.
type Service interface {
	ClockIn(ctx context.Context, event *models.PunchEvent) (*service.PunchResult, error)
	ClockOut(ctx context.Context, event *models.PunchEvent) (*service.PunchResult, error)
	TodayStatus(ctx context.Context, employeeID id.EmployeeID) (*service.TodayRecord, error)
	History(ctx context.Context, employeeID id.EmployeeID, from, to models.Day) ([]*models.AttendanceRecord, error)
	ListHeld(ctx context.Context, limit int) ([]*models.HeldTrustEvent, error)
	Review(ctx context.Context, eventID id.HeldEventID, decision models.ReviewDecision, reviewerID id.ReviewerID) (*models.HeldTrustEvent, error)
}

// Handler handles attendance endpoints.
type Handler struct {
	attendance Service
	loc        *time.Location
	logger     *slog.Logger
}

// New creates a new attendance Handler. The location is the business timezone
// used to interpret date query parameters.
func New(attendance Service, loc *time.Location, logger *slog.Logger) *Handler {
	return &Handler{attendance: attendance, loc: loc, logger: logger}
}

// Register registers the attendance routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/attendance", func(r chi.Router) {
		r.Post("/clock-in", h.handleClockIn)
		r.Post("/clock-out", h.handleClockOut)
		r.Get("/employees/{employeeID}/today", h.handleToday)
		r.Get("/employees/{employeeID}/records", h.handleHistory)
		r.Get("/held-events", h.handleListHeld)
		r.Post("/held-events/{eventID}/review", h.handleReview)
	})
}

func (h *Handler) handleClockIn(w http.ResponseWriter, r *http.Request) {
	h.handlePunch(w, r, models.PunchClockIn, http.StatusCreated)
}

func (h *Handler) handleClockOut(w http.ResponseWriter, r *http.Request) {
	h.handlePunch(w, r, models.PunchClockOut, http.StatusOK)
}

func (h *Handler) handlePunch(w http.ResponseWriter, r *http.Request, punchType models.PunchType, acceptStatus int) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[PunchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	punch := h.attendance.ClockIn
	if punchType == models.PunchClockOut {
		punch = h.attendance.ClockOut
	}
	result, err := punch(ctx, req.Event(punchType))
	if err != nil {
		h.writeServiceError(ctx, w, requestID, string(punchType), err)
		return
	}

	if result.Disposition == policy.Hold {
		httputil.WriteJSON(w, http.StatusAccepted, &heldResponse{
			Disposition: result.Disposition.String(),
			RiskLevel:   string(result.Evaluation.Level),
			HeldEventID: result.HeldEvent.ID.String(),
		})
		return
	}

	httputil.WriteJSON(w, acceptStatus, &punchResponse{
		Disposition: result.Disposition.String(),
		RiskLevel:   string(result.Evaluation.Level),
		Record:      toRecordResponse(result.Record),
	})
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	employeeID, err := id.ParseEmployeeID(chi.URLParam(r, "employeeID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	today, err := h.attendance.TodayStatus(ctx, employeeID)
	if err != nil {
		h.writeServiceError(ctx, w, requestID, "today_status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTodayResponse(today))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	employeeID, err := id.ParseEmployeeID(chi.URLParam(r, "employeeID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	query := r.URL.Query()
	from, err := models.ParseDay(query.Get("from"), h.loc)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "from must be a YYYY-MM-DD date"))
		return
	}
	to, err := models.ParseDay(query.Get("to"), h.loc)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "to must be a YYYY-MM-DD date"))
		return
	}

	records, err := h.attendance.History(ctx, employeeID, from, to)
	if err != nil {
		h.writeServiceError(ctx, w, requestID, "history", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordListResponse(records))
}

func (h *Handler) handleListHeld(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	events, err := h.attendance.ListHeld(ctx, limit)
	if err != nil {
		h.writeServiceError(ctx, w, requestID, "list_held", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toHeldListResponse(events))
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	eventID, err := id.ParseHeldEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[ReviewRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	reviewed, err := h.attendance.Review(ctx, eventID, req.decision, req.reviewerID)
	if err != nil {
		h.writeServiceError(ctx, w, requestID, "review", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toHeldEventResponse(reviewed))
}

// writeServiceError logs the failure at a severity matching its class and
// writes the coded response.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, requestID, op string, err error) {
	if h.logger != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "attendance operation failed",
				"op", op, "request_id", requestID, "error", err.Error())
		} else {
			h.logger.WarnContext(ctx, "attendance operation rejected",
				"op", op, "request_id", requestID, "error", err.Error())
		}
	}
	httputil.WriteError(w, err)
}
