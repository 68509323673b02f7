package notificationshandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hrms/internal/domain/access"
	"hrms/internal/domain/notifications"
	"hrms/internal/platform/realtime"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type Handler struct {
	Service *notifications.Service
	Hub     *realtime.Hub
	Perms   middleware.PermissionChecker
	Log     *zap.Logger
}

func NewHandler(service *notifications.Service, hub *realtime.Hub, perms middleware.PermissionChecker, log *zap.Logger) *Handler {
	return &Handler{Service: service, Hub: hub, Perms: perms, Log: log.Named("notifications_handler")}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	admin := middleware.RequirePermission(access.PermNotificationsAdmin, h.Perms)
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/unread-count", h.handleUnreadCount)
		r.Post("/read-all", h.handleMarkAllRead)
		r.Get("/stream", h.handleStream)
		r.Get("/preferences", h.handlePreferences)
		r.Put("/preferences", h.handleUpdatePreferences)
		r.Route("/templates", func(r chi.Router) {
			r.Use(admin)
			r.Get("/", h.handleListTemplates)
			r.Post("/", h.handleCreateTemplate)
			r.Get("/{templateID}", h.handleGetTemplate)
			r.Put("/{templateID}", h.handleUpdateTemplate)
			r.Delete("/{templateID}", h.handleDeleteTemplate)
		})
		r.Post("/{notificationID}/read", h.handleMarkRead)
		r.Delete("/{notificationID}", h.handleDelete)
	})
}

type preferencesRequest struct {
	EmailEnabled *bool    `json:"emailEnabled"`
	InAppEnabled *bool    `json:"inAppEnabled"`
	MutedTypes   []string `json:"mutedTypes" validate:"omitempty,dive,max=64"`
}

type templateRequest struct {
	Code    string `json:"code" validate:"required,max=64"`
	Subject string `json:"subject" validate:"required,max=255"`
	Body    string `json:"body" validate:"required"`
	Channel string `json:"channel" validate:"omitempty,oneof=EMAIL IN_APP BOTH"`
	Active  *bool  `json:"active"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	unread := shared.QueryBool(r, "unread")
	page := shared.Page(r)
	items, total, err := h.Service.List(r.Context(), shared.Actor(r), unread != nil && *unread, page.Limit, page.Offset)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	shared.List(w, r, items, total)
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.Service.UnreadCount(r.Context(), shared.Actor(r))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, map[string]int64{"count": count}, shared.RequestID(r))
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.MarkRead(r.Context(), shared.Actor(r), chi.URLParam(r, "notificationID")); err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.NoContent(w)
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := h.Service.MarkAllRead(r.Context(), shared.Actor(r))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, map[string]int64{"updated": updated}, shared.RequestID(r))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), shared.Actor(r), chi.URLParam(r, "notificationID")); err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.NoContent(w)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	actor := shared.Actor(r)
	if err := h.Hub.Serve(w, r, actor.UserID); err != nil {
		// the upgrader has already written the failure response
		h.Log.Debug("websocket upgrade failed", zap.String("user_id", actor.UserID), zap.Error(err))
	}
}

func (h *Handler) handlePreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.Service.Preferences(r.Context(), shared.Actor(r))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, prefs, shared.RequestID(r))
}

func (h *Handler) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var payload preferencesRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	prefs, err := h.Service.UpdatePreferences(r.Context(), shared.Actor(r), notifications.PreferencesInput(payload))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, prefs, shared.RequestID(r))
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.Service.ListTemplates(r.Context())
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, templates, shared.RequestID(r))
}

func (h *Handler) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var payload templateRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	tmpl, err := h.Service.CreateTemplate(r.Context(), shared.Actor(r), notifications.TemplateInput(payload))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Created(w, tmpl, shared.RequestID(r))
}

func (h *Handler) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := h.Service.GetTemplate(r.Context(), chi.URLParam(r, "templateID"))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, tmpl, shared.RequestID(r))
}

func (h *Handler) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var payload templateRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	tmpl, err := h.Service.UpdateTemplate(r.Context(), shared.Actor(r), chi.URLParam(r, "templateID"), notifications.TemplateInput(payload))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, tmpl, shared.RequestID(r))
}

func (h *Handler) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteTemplate(r.Context(), shared.Actor(r), chi.URLParam(r, "templateID")); err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.NoContent(w)
}
