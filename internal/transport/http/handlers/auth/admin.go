package authhandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"hrms/internal/domain/auth"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/shared"
)

type createUserRequest struct {
	Username   string   `json:"username" validate:"required,min=3,max=100"`
	Email      string   `json:"email" validate:"required,email"`
	Password   string   `json:"password" validate:"required"`
	Roles      []string `json:"roles"`
	EmployeeID *string  `json:"employeeId"`
	Enabled    *bool    `json:"enabled"`
}

type updateUserRequest struct {
	Username   *string `json:"username" validate:"omitempty,min=3,max=100"`
	Email      *string `json:"email" validate:"omitempty,email"`
	EmployeeID *string `json:"employeeId"`
}

type rolesRequest struct {
	Roles []string `json:"roles" validate:"required,min=1"`
}

type roleRequest struct {
	Name        string   `json:"name" validate:"required,max=50"`
	Description string   `json:"description" validate:"max=255"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page := shared.Page(r)
	q := r.URL.Query()
	users, total, err := h.Service.SearchUsers(r.Context(), auth.UserCriteria{
		Username: q.Get("username"),
		Email:    q.Get("email"),
		Enabled:  shared.QueryBool(r, "enabled"),
		Role:     q.Get("role"),
	}, page.Limit, page.Offset)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	shared.List(w, r, users, total)
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var payload createUserRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	enabled := true
	if payload.Enabled != nil {
		enabled = *payload.Enabled
	}
	user, err := h.Service.CreateUser(r.Context(), shared.Actor(r), auth.CreateUserInput{
		Username:   payload.Username,
		Email:      payload.Email,
		Password:   payload.Password,
		Roles:      payload.Roles,
		EmployeeID: payload.EmployeeID,
		Enabled:    enabled,
	})
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Created(w, user, shared.RequestID(r))
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.Service.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, user, shared.RequestID(r))
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var payload updateUserRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	user, err := h.Service.UpdateUser(r.Context(), shared.Actor(r), chi.URLParam(r, "userID"), auth.UpdateUserInput{
		Username:   payload.Username,
		Email:      payload.Email,
		EmployeeID: payload.EmployeeID,
	})
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, user, shared.RequestID(r))
}

func (h *Handler) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	user, err := h.Service.SetEnabled(r.Context(), shared.Actor(r), chi.URLParam(r, "userID"), enabled)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, user, shared.RequestID(r))
}

func (h *Handler) handleEnableUser(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, true)
}

func (h *Handler) handleDisableUser(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, false)
}

func (h *Handler) handleAssignRoles(w http.ResponseWriter, r *http.Request) {
	var payload rolesRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	user, err := h.Service.AssignRoles(r.Context(), shared.Actor(r), chi.URLParam(r, "userID"), payload.Roles)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, user, shared.RequestID(r))
}

func (h *Handler) handleUnlockUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.Service.Unlock(r.Context(), shared.Actor(r), chi.URLParam(r, "userID"))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, user, shared.RequestID(r))
}

func (h *Handler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Service.ListRoles(r.Context())
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, roles, shared.RequestID(r))
}

func (h *Handler) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var payload roleRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	role, err := h.Service.CreateRole(r.Context(), shared.Actor(r), auth.RoleInput(payload))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Created(w, role, shared.RequestID(r))
}

func (h *Handler) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	var payload roleRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	role, err := h.Service.UpdateRole(r.Context(), shared.Actor(r), chi.URLParam(r, "roleID"), auth.RoleInput(payload))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, role, shared.RequestID(r))
}

func (h *Handler) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteRole(r.Context(), shared.Actor(r), chi.URLParam(r, "roleID")); err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.NoContent(w)
}

func (h *Handler) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.Service.ListPermissions(r.Context())
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, perms, shared.RequestID(r))
}
