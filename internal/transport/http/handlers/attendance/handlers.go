package attendancehandler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hrms/internal/apperr"
	"hrms/internal/domain/access"
	"hrms/internal/domain/attendance"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type Handler struct {
	Service *attendance.Service
	Perms   middleware.PermissionChecker
	Log     *zap.Logger
}

func NewHandler(service *attendance.Service, perms middleware.PermissionChecker, log *zap.Logger) *Handler {
	return &Handler{Service: service, Perms: perms, Log: log.Named("attendance_handler")}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(access.PermAttendanceRead, h.Perms)
	write := middleware.RequirePermission(access.PermAttendanceWrite, h.Perms)
	approve := middleware.RequirePermission(access.PermAttendanceApprove, h.Perms)
	r.Route("/attendance", func(r chi.Router) {
		r.With(read).Get("/", h.handleList)
		r.With(read).Get("/summary", h.handleSummary)
		r.With(write).Post("/clock-in", h.handleClockIn)
		r.With(write).Post("/clock-out", h.handleClockOut)
		r.With(write).Post("/breaks/start", h.handleStartBreak)
		r.With(write).Post("/breaks/end", h.handleEndBreak)

		r.With(read).Get("/corrections", h.handleListCorrections)
		r.With(approve).Post("/corrections/{correctionID}/approve", h.handleApproveCorrection)
		r.With(approve).Post("/corrections/{correctionID}/reject", h.handleRejectCorrection)

		r.With(read).Get("/{recordID}", h.handleGet)
		r.With(write).Post("/{recordID}/corrections", h.handleRequestCorrection)
	})
}

type clockRequest struct {
	EmployeeID string `json:"employeeId"`
	Notes      string `json:"notes" validate:"max=500"`
}

type correctionRequest struct {
	ClockIn  string `json:"clockIn" validate:"required"`
	ClockOut string `json:"clockOut" validate:"required"`
	Reason   string `json:"reason" validate:"required,max=1000"`
}

type decisionRequest struct {
	Note string `json:"note" validate:"max=1000"`
}

func (h *Handler) clockPayload(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	var payload clockRequest
	if !shared.BindOptional(w, r, &payload) {
		return "", "", false
	}
	employeeID := payload.EmployeeID
	if employeeID == "" {
		employeeID = shared.Actor(r).EmployeeID
	}
	if employeeID == "" {
		shared.FailValidation(w, shared.RequestID(r), []apperr.FieldError{{Field: "employeeId", Reason: "is required"}})
		return "", "", false
	}
	return employeeID, payload.Notes, true
}

func (h *Handler) handleClockIn(w http.ResponseWriter, r *http.Request) {
	employeeID, notes, ok := h.clockPayload(w, r)
	if !ok {
		return
	}
	record, err := h.Service.ClockIn(r.Context(), shared.Actor(r), employeeID, notes)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Created(w, record, shared.RequestID(r))
}

func (h *Handler) handleClockOut(w http.ResponseWriter, r *http.Request) {
	employeeID, notes, ok := h.clockPayload(w, r)
	if !ok {
		return
	}
	record, err := h.Service.ClockOut(r.Context(), shared.Actor(r), employeeID, notes)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, record, shared.RequestID(r))
}

func (h *Handler) handleStartBreak(w http.ResponseWriter, r *http.Request) {
	employeeID, _, ok := h.clockPayload(w, r)
	if !ok {
		return
	}
	record, err := h.Service.StartBreak(r.Context(), shared.Actor(r), employeeID)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, record, shared.RequestID(r))
}

func (h *Handler) handleEndBreak(w http.ResponseWriter, r *http.Request) {
	employeeID, _, ok := h.clockPayload(w, r)
	if !ok {
		return
	}
	record, err := h.Service.EndBreak(r.Context(), shared.Actor(r), employeeID)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, record, shared.RequestID(r))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	employeeID, err := shared.EmployeeID(r)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	v := shared.NewValidator()
	from := shared.QueryDate(r, v, "from")
	to := shared.QueryDate(r, v, "to")
	if v.Reject(w, shared.RequestID(r)) {
		return
	}
	page := shared.Page(r)
	records, total, err := h.Service.List(r.Context(), shared.Actor(r), employeeID, from, to, page.Limit, page.Offset)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	shared.List(w, r, records, total)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	employeeID, err := shared.EmployeeID(r)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	v := shared.NewValidator()
	from := shared.QueryDate(r, v, "from")
	to := shared.QueryDate(r, v, "to")
	if v.Reject(w, shared.RequestID(r)) {
		return
	}
	summary, err := h.Service.Summary(r.Context(), shared.Actor(r), employeeID, from, to)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, summary, shared.RequestID(r))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	record, err := h.Service.Get(r.Context(), shared.Actor(r), chi.URLParam(r, "recordID"))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, record, shared.RequestID(r))
}

func timestamp(v *shared.Validator, field, raw string) time.Time {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		v.Add(field, "must be an RFC3339 timestamp")
		return time.Time{}
	}
	return t.UTC()
}

func (h *Handler) handleRequestCorrection(w http.ResponseWriter, r *http.Request) {
	var payload correctionRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	in := timestamp(v, "clockIn", payload.ClockIn)
	out := timestamp(v, "clockOut", payload.ClockOut)
	v.DateOrder("clockIn", in, "clockOut", out)
	if v.Reject(w, shared.RequestID(r)) {
		return
	}
	correction, err := h.Service.RequestCorrection(r.Context(), shared.Actor(r), chi.URLParam(r, "recordID"), attendance.CorrectionInput{
		ClockIn:  in,
		ClockOut: out,
		Reason:   payload.Reason,
	})
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Created(w, correction, shared.RequestID(r))
}

func (h *Handler) handleListCorrections(w http.ResponseWriter, r *http.Request) {
	actor := shared.Actor(r)
	q := r.URL.Query()
	criteria := attendance.CorrectionCriteria{
		EmployeeID: q.Get("employeeId"),
		Status:     q.Get("status"),
	}
	if team := shared.QueryBool(r, "team"); team != nil && *team {
		criteria.ManagerID = actor.EmployeeID
	}
	page := shared.Page(r)
	corrections, total, err := h.Service.ListCorrections(r.Context(), actor, criteria, page.Limit, page.Offset)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	shared.List(w, r, corrections, total)
}

func (h *Handler) handleApproveCorrection(w http.ResponseWriter, r *http.Request) {
	var payload decisionRequest
	if !shared.BindOptional(w, r, &payload) {
		return
	}
	correction, err := h.Service.ApproveCorrection(r.Context(), shared.Actor(r), chi.URLParam(r, "correctionID"), payload.Note)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, correction, shared.RequestID(r))
}

func (h *Handler) handleRejectCorrection(w http.ResponseWriter, r *http.Request) {
	var payload decisionRequest
	if !shared.BindOptional(w, r, &payload) {
		return
	}
	correction, err := h.Service.RejectCorrection(r.Context(), shared.Actor(r), chi.URLParam(r, "correctionID"), payload.Note)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, correction, shared.RequestID(r))
}
