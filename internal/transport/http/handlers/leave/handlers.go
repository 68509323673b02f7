package leavehandler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hrms/internal/domain/access"
	"hrms/internal/domain/leave"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type Handler struct {
	Service *leave.Service
	Perms   middleware.PermissionChecker
	Log     *zap.Logger
}

func NewHandler(service *leave.Service, perms middleware.PermissionChecker, log *zap.Logger) *Handler {
	return &Handler{Service: service, Perms: perms, Log: log.Named("leave_handler")}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(access.PermLeaveRead, h.Perms)
	write := middleware.RequirePermission(access.PermLeaveWrite, h.Perms)
	approve := middleware.RequirePermission(access.PermLeaveApprove, h.Perms)
	r.Route("/leave", func(r chi.Router) {
		r.With(read).Get("/types", h.handleListTypes)
		r.With(write).Post("/types", h.handleCreateType)
		r.With(read).Get("/types/{typeID}", h.handleGetType)
		r.With(write).Put("/types/{typeID}", h.handleUpdateType)
		r.With(write).Delete("/types/{typeID}", h.handleDeleteType)

		r.With(read).Get("/balances", h.handleListBalances)
		r.With(write).Post("/balances", h.handleAllocateBalance)

		r.With(read).Get("/requests", h.handleListRequests)
		r.With(write).Post("/requests", h.handleSubmitRequest)
		r.With(read).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(approve).Post("/requests/{requestID}/approve", h.handleApproveRequest)
		r.With(approve).Post("/requests/{requestID}/reject", h.handleRejectRequest)
		r.With(write).Post("/requests/{requestID}/cancel", h.handleCancelRequest)
	})
}

type typeRequest struct {
	Code             string  `json:"code" validate:"required,max=32"`
	Name             string  `json:"name" validate:"required,max=100"`
	DefaultDays      float64 `json:"defaultDays" validate:"gte=0,lte=366"`
	Paid             bool    `json:"paid"`
	RequiresApproval bool    `json:"requiresApproval"`
}

type allocateRequest struct {
	EmployeeID  string  `json:"employeeId" validate:"required"`
	LeaveTypeID string  `json:"leaveTypeId" validate:"required"`
	Year        int     `json:"year" validate:"required,gte=2000,lte=2100"`
	Allocated   float64 `json:"allocated" validate:"gte=0"`
	CarriedOver float64 `json:"carriedOver" validate:"gte=0"`
}

type submitRequest struct {
	EmployeeID  string `json:"employeeId"`
	LeaveTypeID string `json:"leaveTypeId" validate:"required"`
	StartDate   string `json:"startDate" validate:"required"`
	EndDate     string `json:"endDate" validate:"required"`
	StartHalf   bool   `json:"startHalf"`
	EndHalf     bool   `json:"endHalf"`
	Reason      string `json:"reason" validate:"max=1000"`
}

type decisionRequest struct {
	Note string `json:"note" validate:"max=1000"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	activeOnly := true
	if all := shared.QueryBool(r, "all"); all != nil && *all {
		activeOnly = false
	}
	types, err := h.Service.ListTypes(r.Context(), activeOnly)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, types, shared.RequestID(r))
}

func (h *Handler) handleCreateType(w http.ResponseWriter, r *http.Request) {
	var payload typeRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	lt, err := h.Service.CreateType(r.Context(), shared.Actor(r), leave.TypeInput(payload))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Created(w, lt, shared.RequestID(r))
}

func (h *Handler) handleGetType(w http.ResponseWriter, r *http.Request) {
	lt, err := h.Service.GetType(r.Context(), chi.URLParam(r, "typeID"))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, lt, shared.RequestID(r))
}

func (h *Handler) handleUpdateType(w http.ResponseWriter, r *http.Request) {
	var payload typeRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	lt, err := h.Service.UpdateType(r.Context(), shared.Actor(r), chi.URLParam(r, "typeID"), leave.TypeInput(payload))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, lt, shared.RequestID(r))
}

func (h *Handler) handleDeleteType(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteType(r.Context(), shared.Actor(r), chi.URLParam(r, "typeID")); err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.NoContent(w)
}

func (h *Handler) handleListBalances(w http.ResponseWriter, r *http.Request) {
	employeeID, err := shared.EmployeeID(r)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	year := shared.QueryInt(r, "year", time.Now().UTC().Year())
	balances, err := h.Service.ListBalances(r.Context(), shared.Actor(r), employeeID, year)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, balances, shared.RequestID(r))
}

func (h *Handler) handleAllocateBalance(w http.ResponseWriter, r *http.Request) {
	var payload allocateRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	balance, err := h.Service.AllocateBalance(r.Context(), shared.Actor(r), leave.AllocateInput(payload))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Created(w, balance, shared.RequestID(r))
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	actor := shared.Actor(r)
	q := r.URL.Query()
	v := shared.NewValidator()
	criteria := leave.Criteria{
		EmployeeID:  q.Get("employeeId"),
		Status:      q.Get("status"),
		LeaveTypeID: q.Get("leaveTypeId"),
		From:        shared.QueryDate(r, v, "from"),
		To:          shared.QueryDate(r, v, "to"),
	}
	if team := shared.QueryBool(r, "team"); team != nil && *team {
		criteria.ManagerID = actor.EmployeeID
	}
	if v.Reject(w, shared.RequestID(r)) {
		return
	}
	page := shared.Page(r)
	requests, total, err := h.Service.Search(r.Context(), actor, criteria, page.Limit, page.Offset)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	shared.List(w, r, requests, total)
}

func (h *Handler) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	var payload submitRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	actor := shared.Actor(r)
	v := shared.NewValidator()
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, shared.RequestID(r)) {
		return
	}
	employeeID := payload.EmployeeID
	if employeeID == "" {
		employeeID = actor.EmployeeID
	}
	req, err := h.Service.Submit(r.Context(), actor, leave.SubmitInput{
		EmployeeID:  employeeID,
		LeaveTypeID: payload.LeaveTypeID,
		StartDate:   start,
		EndDate:     end,
		StartHalf:   payload.StartHalf,
		EndHalf:     payload.EndHalf,
		Reason:      payload.Reason,
	})
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Created(w, req, shared.RequestID(r))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Service.Get(r.Context(), shared.Actor(r), chi.URLParam(r, "requestID"))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, req, shared.RequestID(r))
}

func (h *Handler) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	var payload decisionRequest
	if !shared.BindOptional(w, r, &payload) {
		return
	}
	req, err := h.Service.Approve(r.Context(), shared.Actor(r), chi.URLParam(r, "requestID"), payload.Note)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, req, shared.RequestID(r))
}

func (h *Handler) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	var payload decisionRequest
	if !shared.BindOptional(w, r, &payload) {
		return
	}
	req, err := h.Service.Reject(r.Context(), shared.Actor(r), chi.URLParam(r, "requestID"), payload.Note)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, req, shared.RequestID(r))
}

func (h *Handler) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	var payload cancelRequest
	if !shared.BindOptional(w, r, &payload) {
		return
	}
	req, err := h.Service.Cancel(r.Context(), shared.Actor(r), chi.URLParam(r, "requestID"), payload.Reason)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, req, shared.RequestID(r))
}
