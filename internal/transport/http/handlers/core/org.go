package corehandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"hrms/internal/domain/access"
	"hrms/internal/domain/core"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

func (h *Handler) registerOrgRoutes(r chi.Router) {
	read := middleware.RequirePermission(access.PermOrgRead, h.Perms)
	write := middleware.RequirePermission(access.PermOrgWrite, h.Perms)
	r.Route("/departments", func(r chi.Router) {
		r.With(read).Get("/", h.handleListDepartments)
		r.With(write).Post("/", h.handleCreateDepartment)
		r.With(read).Get("/{departmentID}", h.handleGetDepartment)
		r.With(write).Put("/{departmentID}", h.handleUpdateDepartment)
		r.With(write).Delete("/{departmentID}", h.handleDeleteDepartment)
		r.With(read, middleware.RequirePermission(access.PermEmployeesRead, h.Perms)).
			Get("/{departmentID}/employees", h.handleDepartmentEmployees)
	})
	r.Route("/positions", func(r chi.Router) {
		r.With(read).Get("/", h.handleListPositions)
		r.With(write).Post("/", h.handleCreatePosition)
		r.With(read).Get("/{positionID}", h.handleGetPosition)
		r.With(write).Put("/{positionID}", h.handleUpdatePosition)
		r.With(write).Delete("/{positionID}", h.handleDeletePosition)
	})
}

type departmentRequest struct {
	Code           string  `json:"code" validate:"required,max=32"`
	Name           string  `json:"name" validate:"required,max=150"`
	Description    string  `json:"description" validate:"max=500"`
	ParentID       *string `json:"parentId"`
	HeadEmployeeID *string `json:"headEmployeeId"`
}

type positionRequest struct {
	Code         string   `json:"code" validate:"required,max=32"`
	Title        string   `json:"title" validate:"required,max=150"`
	Description  string   `json:"description" validate:"max=500"`
	DepartmentID *string  `json:"departmentId"`
	PayGradeID   *string  `json:"payGradeId"`
	MinSalary    *float64 `json:"minSalary" validate:"omitempty,gte=0"`
	MaxSalary    *float64 `json:"maxSalary" validate:"omitempty,gte=0"`
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	page := shared.Page(r)
	deps, total, err := h.Service.ListDepartments(r.Context(), core.DepartmentFilter{
		Active: shared.QueryBool(r, "active"),
		Name:   r.URL.Query().Get("name"),
	}, page.Limit, page.Offset)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	shared.List(w, r, deps, total)
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	var payload departmentRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	dep, err := h.Service.CreateDepartment(r.Context(), shared.Actor(r), core.DepartmentInput(payload))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Created(w, dep, shared.RequestID(r))
}

func (h *Handler) handleGetDepartment(w http.ResponseWriter, r *http.Request) {
	dep, err := h.Service.GetDepartment(r.Context(), chi.URLParam(r, "departmentID"))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, dep, shared.RequestID(r))
}

func (h *Handler) handleUpdateDepartment(w http.ResponseWriter, r *http.Request) {
	var payload departmentRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	dep, err := h.Service.UpdateDepartment(r.Context(), shared.Actor(r), chi.URLParam(r, "departmentID"), core.DepartmentInput(payload))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, dep, shared.RequestID(r))
}

func (h *Handler) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteDepartment(r.Context(), shared.Actor(r), chi.URLParam(r, "departmentID")); err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.NoContent(w)
}

func (h *Handler) handleDepartmentEmployees(w http.ResponseWriter, r *http.Request) {
	page := shared.Page(r)
	employees, total, err := h.Service.DepartmentEmployees(r.Context(), shared.Actor(r), chi.URLParam(r, "departmentID"), page.Limit, page.Offset)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	shared.List(w, r, employees, total)
}

func (h *Handler) handleListPositions(w http.ResponseWriter, r *http.Request) {
	page := shared.Page(r)
	positions, total, err := h.Service.ListPositions(r.Context(), core.PositionFilter{
		Active:       shared.QueryBool(r, "active"),
		DepartmentID: r.URL.Query().Get("departmentId"),
	}, page.Limit, page.Offset)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	shared.List(w, r, positions, total)
}

func (h *Handler) handleCreatePosition(w http.ResponseWriter, r *http.Request) {
	var payload positionRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	pos, err := h.Service.CreatePosition(r.Context(), shared.Actor(r), core.PositionInput(payload))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Created(w, pos, shared.RequestID(r))
}

func (h *Handler) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	pos, err := h.Service.GetPosition(r.Context(), chi.URLParam(r, "positionID"))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, pos, shared.RequestID(r))
}

func (h *Handler) handleUpdatePosition(w http.ResponseWriter, r *http.Request) {
	var payload positionRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	pos, err := h.Service.UpdatePosition(r.Context(), shared.Actor(r), chi.URLParam(r, "positionID"), core.PositionInput(payload))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, pos, shared.RequestID(r))
}

func (h *Handler) handleDeletePosition(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeletePosition(r.Context(), shared.Actor(r), chi.URLParam(r, "positionID")); err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.NoContent(w)
}
