package corehandler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hrms/internal/domain/access"
	"hrms/internal/domain/core"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type Handler struct {
	Service        *core.Service
	Perms          middleware.PermissionChecker
	MaxUploadBytes int64
	Log            *zap.Logger
}

func NewHandler(service *core.Service, perms middleware.PermissionChecker, maxUploadBytes int64, log *zap.Logger) *Handler {
	return &Handler{Service: service, Perms: perms, MaxUploadBytes: maxUploadBytes, Log: log.Named("core_handler")}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(access.PermEmployeesRead, h.Perms)
	write := middleware.RequirePermission(access.PermEmployeesWrite, h.Perms)
	r.Route("/employees", func(r chi.Router) {
		r.With(read).Get("/", h.handleListEmployees)
		r.With(write).Post("/", h.handleCreateEmployee)
		r.Route("/{employeeID}", func(r chi.Router) {
			r.With(read).Get("/", h.handleGetEmployee)
			r.With(write).Put("/", h.handleUpdateEmployee)
			r.With(write).Delete("/", h.handleDeleteEmployee)
			r.With(write).Put("/manager", h.handleAssignManager)
			r.With(write).Delete("/manager", h.handleRemoveManager)
			r.With(read).Get("/reports", h.handleDirectReports)
			r.With(read).Get("/hierarchy", h.handleHierarchy)
			r.With(write).Post("/status", h.handleChangeStatus)
			r.With(write).Post("/photo", h.handleUploadPhoto)
			r.With(write).Put("/user", h.handleLinkUser)
		})
	})
	h.registerOrgRoutes(r)
}

type employeeRequest struct {
	EmployeeCode   string   `json:"employeeCode" validate:"max=32"`
	FirstName      string   `json:"firstName" validate:"required,max=100"`
	LastName       string   `json:"lastName" validate:"required,max=100"`
	Email          string   `json:"email" validate:"required,email"`
	Phone          string   `json:"phone" validate:"max=32"`
	DateOfBirth    string   `json:"dateOfBirth"`
	HireDate       string   `json:"hireDate" validate:"required"`
	EmploymentType string   `json:"employmentType"`
	DepartmentID   *string  `json:"departmentId"`
	PositionID     *string  `json:"positionId"`
	ManagerID      *string  `json:"managerId"`
	PayGradeID     *string  `json:"payGradeId"`
	Salary         *float64 `json:"salary" validate:"omitempty,gt=0"`
	Address        string   `json:"address" validate:"max=500"`
	NationalID     string   `json:"nationalId" validate:"max=64"`
	BankAccount    string   `json:"bankAccount" validate:"max=64"`
}

type employeeUpdateRequest struct {
	FirstName      *string `json:"firstName" validate:"omitempty,max=100"`
	LastName       *string `json:"lastName" validate:"omitempty,max=100"`
	Email          *string `json:"email" validate:"omitempty,email"`
	Phone          *string `json:"phone" validate:"omitempty,max=32"`
	DateOfBirth    *string `json:"dateOfBirth"`
	HireDate       *string `json:"hireDate"`
	EmploymentType *string `json:"employmentType"`
	DepartmentID   *string `json:"departmentId"`
	PositionID     *string `json:"positionId"`
	PayGradeID     *string `json:"payGradeId"`
	Address        *string `json:"address" validate:"omitempty,max=500"`
	NationalID     *string `json:"nationalId" validate:"omitempty,max=64"`
	BankAccount    *string `json:"bankAccount" validate:"omitempty,max=64"`
}

type managerRequest struct {
	ManagerID string `json:"managerId" validate:"required"`
}

type statusRequest struct {
	Status        string `json:"status" validate:"required"`
	EffectiveDate string `json:"effectiveDate"`
}

type linkUserRequest struct {
	UserID string `json:"userId"`
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v := shared.NewValidator()
	criteria := core.EmployeeCriteria{
		Name:           q.Get("name"),
		FirstName:      q.Get("firstName"),
		LastName:       q.Get("lastName"),
		Email:          q.Get("email"),
		Code:           q.Get("code"),
		DepartmentID:   q.Get("departmentId"),
		PositionID:     q.Get("positionId"),
		ManagerID:      q.Get("managerId"),
		Status:         q.Get("status"),
		EmploymentType: q.Get("employmentType"),
		HiredFrom:      shared.QueryDate(r, v, "hiredFrom"),
		HiredTo:        shared.QueryDate(r, v, "hiredTo"),
		Sort:           q.Get("sort"),
	}
	if desc := shared.QueryBool(r, "desc"); desc != nil {
		criteria.Desc = *desc
	}
	if v.Reject(w, shared.RequestID(r)) {
		return
	}
	page := shared.Page(r)
	employees, total, err := h.Service.Search(r.Context(), shared.Actor(r), criteria, page.Limit, page.Offset)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	shared.List(w, r, employees, total)
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var payload employeeRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	hireDate, _ := v.Date("hireDate", payload.HireDate)
	dob := v.OptionalDate("dateOfBirth", payload.DateOfBirth)
	if v.Reject(w, shared.RequestID(r)) {
		return
	}
	emp, err := h.Service.Create(r.Context(), shared.Actor(r), core.EmployeeInput{
		EmployeeCode:   payload.EmployeeCode,
		FirstName:      payload.FirstName,
		LastName:       payload.LastName,
		Email:          payload.Email,
		Phone:          payload.Phone,
		DateOfBirth:    dob,
		HireDate:       hireDate,
		EmploymentType: payload.EmploymentType,
		DepartmentID:   payload.DepartmentID,
		PositionID:     payload.PositionID,
		ManagerID:      payload.ManagerID,
		PayGradeID:     payload.PayGradeID,
		Salary:         payload.Salary,
		Address:        payload.Address,
		NationalID:     payload.NationalID,
		BankAccount:    payload.BankAccount,
	})
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Created(w, emp, shared.RequestID(r))
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Service.Get(r.Context(), shared.Actor(r), chi.URLParam(r, "employeeID"))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, emp, shared.RequestID(r))
}

func optionalDate(v *shared.Validator, field string, raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	return v.OptionalDate(field, *raw)
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	var payload employeeUpdateRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	update := core.EmployeeUpdate{
		FirstName:      payload.FirstName,
		LastName:       payload.LastName,
		Email:          payload.Email,
		Phone:          payload.Phone,
		DateOfBirth:    optionalDate(v, "dateOfBirth", payload.DateOfBirth),
		HireDate:       optionalDate(v, "hireDate", payload.HireDate),
		EmploymentType: payload.EmploymentType,
		DepartmentID:   payload.DepartmentID,
		PositionID:     payload.PositionID,
		PayGradeID:     payload.PayGradeID,
		Address:        payload.Address,
		NationalID:     payload.NationalID,
		BankAccount:    payload.BankAccount,
	}
	if v.Reject(w, shared.RequestID(r)) {
		return
	}
	emp, err := h.Service.Update(r.Context(), shared.Actor(r), chi.URLParam(r, "employeeID"), update)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, emp, shared.RequestID(r))
}

func (h *Handler) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), shared.Actor(r), chi.URLParam(r, "employeeID")); err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.NoContent(w)
}

func (h *Handler) handleAssignManager(w http.ResponseWriter, r *http.Request) {
	var payload managerRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	emp, err := h.Service.AssignManager(r.Context(), shared.Actor(r), chi.URLParam(r, "employeeID"), payload.ManagerID)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, emp, shared.RequestID(r))
}

func (h *Handler) handleRemoveManager(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Service.RemoveManager(r.Context(), shared.Actor(r), chi.URLParam(r, "employeeID"))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, emp, shared.RequestID(r))
}

func (h *Handler) handleDirectReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.Service.DirectReports(r.Context(), shared.Actor(r), chi.URLParam(r, "employeeID"))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, reports, shared.RequestID(r))
}

func (h *Handler) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	node, err := h.Service.Hierarchy(r.Context(), shared.Actor(r), chi.URLParam(r, "employeeID"), shared.QueryInt(r, "depth", 0))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, node, shared.RequestID(r))
}

func (h *Handler) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	var payload statusRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	effective := v.OptionalDate("effectiveDate", payload.EffectiveDate)
	if v.Reject(w, shared.RequestID(r)) {
		return
	}
	emp, err := h.Service.ChangeStatus(r.Context(), shared.Actor(r), chi.URLParam(r, "employeeID"), payload.Status, effective)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, emp, shared.RequestID(r))
}

func (h *Handler) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	file, header, err := shared.FormFile(w, r, "file", h.MaxUploadBytes)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	defer file.Close()
	emp, err := h.Service.UploadPhoto(r.Context(), shared.Actor(r), chi.URLParam(r, "employeeID"),
		header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, emp, shared.RequestID(r))
}

func (h *Handler) handleLinkUser(w http.ResponseWriter, r *http.Request) {
	var payload linkUserRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	emp, err := h.Service.LinkUser(r.Context(), shared.Actor(r), chi.URLParam(r, "employeeID"), payload.UserID)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, emp, shared.RequestID(r))
}
