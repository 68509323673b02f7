package authhandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hrms/internal/apperr"
	"hrms/internal/domain/access"
	"hrms/internal/domain/auth"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type Handler struct {
	Service *auth.Service
	Perms   middleware.PermissionChecker
	Log     *zap.Logger
}

func NewHandler(service *auth.Service, perms middleware.PermissionChecker, log *zap.Logger) *Handler {
	return &Handler{Service: service, Perms: perms, Log: log.Named("auth_handler")}
}

// RegisterPublicRoutes mounts the endpoints that work without a token.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/refresh", h.handleRefresh)
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/password/forgot", h.handleForgotPassword)
	r.Post("/auth/password/reset", h.handleResetPassword)
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/logout", h.handleLogout)
		r.Get("/me", h.handleMe)
		r.Post("/password/change", h.handleChangePassword)
		r.Post("/mfa/setup", h.handleMFASetup)
		r.Post("/mfa/enable", h.handleMFAEnable)
		r.Post("/mfa/disable", h.handleMFADisable)
	})

	read := middleware.RequirePermission(access.PermUsersRead, h.Perms)
	write := middleware.RequirePermission(access.PermUsersWrite, h.Perms)
	r.Route("/users", func(r chi.Router) {
		r.With(read).Get("/", h.handleListUsers)
		r.With(write).Post("/", h.handleCreateUser)
		r.Route("/{userID}", func(r chi.Router) {
			r.With(read).Get("/", h.handleGetUser)
			r.With(write).Put("/", h.handleUpdateUser)
			r.With(write).Delete("/", h.handleDisableUser)
			r.With(write).Post("/enable", h.handleEnableUser)
			r.With(write).Post("/disable", h.handleDisableUser)
			r.With(write).Put("/roles", h.handleAssignRoles)
			r.With(write).Post("/unlock", h.handleUnlockUser)
		})
	})
	r.Route("/roles", func(r chi.Router) {
		r.With(read).Get("/", h.handleListRoles)
		r.With(write).Post("/", h.handleCreateRole)
		r.With(write).Put("/{roleID}", h.handleUpdateRole)
		r.With(write).Delete("/{roleID}", h.handleDeleteRole)
	})
	r.With(read).Get("/permissions", h.handleListPermissions)
}

type loginRequest struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password" validate:"required"`
	MFACode  string `json:"mfaCode"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type forgotRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

type mfaCodeRequest struct {
	Code string `json:"code" validate:"required,len=6"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	login := payload.Login
	if login == "" {
		login = payload.Email
	}
	if login == "" {
		login = payload.Username
	}
	if login == "" {
		shared.FailValidation(w, shared.RequestID(r), []apperr.FieldError{{Field: "login", Reason: "is required"}})
		return
	}
	pair, err := h.Service.Login(r.Context(), auth.LoginInput{
		Login:    login,
		Password: payload.Password,
		MFACode:  payload.MFACode,
		IP:       shared.ClientIP(r),
		Agent:    r.UserAgent(),
	})
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, pair, shared.RequestID(r))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var payload refreshRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	pair, err := h.Service.Refresh(r.Context(), payload.RefreshToken, shared.ClientIP(r), r.UserAgent())
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, pair, shared.RequestID(r))
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload registerRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	user, err := h.Service.Register(r.Context(), payload.Username, payload.Email, payload.Password)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Created(w, user, shared.RequestID(r))
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var payload forgotRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	// the answer never reveals whether the address exists
	if err := h.Service.RequestPasswordReset(r.Context(), payload.Email); err != nil {
		h.Log.Warn("password reset request failed", zap.Error(err))
	}
	api.Success(w, map[string]string{"status": "ok"}, shared.RequestID(r))
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload resetRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	if err := h.Service.ResetPassword(r.Context(), payload.Token, payload.NewPassword); err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, map[string]string{"status": "ok"}, shared.RequestID(r))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Logout(r.Context(), shared.Actor(r)); err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.NoContent(w)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	actor := shared.Actor(r)
	user, err := h.Service.Me(r.Context(), actor)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, map[string]any{
		"user":       user,
		"roles":      actor.Roles,
		"employeeId": actor.EmployeeID,
	}, shared.RequestID(r))
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var payload changePasswordRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	if err := h.Service.ChangePassword(r.Context(), shared.Actor(r), payload.CurrentPassword, payload.NewPassword); err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.NoContent(w)
}

func (h *Handler) handleMFASetup(w http.ResponseWriter, r *http.Request) {
	setup, err := h.Service.SetupMFA(r.Context(), shared.Actor(r))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, setup, shared.RequestID(r))
}

func (h *Handler) handleMFAEnable(w http.ResponseWriter, r *http.Request) {
	var payload mfaCodeRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	if err := h.Service.EnableMFA(r.Context(), shared.Actor(r), payload.Code); err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, map[string]bool{"mfaEnabled": true}, shared.RequestID(r))
}

func (h *Handler) handleMFADisable(w http.ResponseWriter, r *http.Request) {
	var payload mfaCodeRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	if err := h.Service.DisableMFA(r.Context(), shared.Actor(r), payload.Code); err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, map[string]bool{"mfaEnabled": false}, shared.RequestID(r))
}
