package jobshandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hrms/internal/domain/access"
	"hrms/internal/platform/jobs"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type Handler struct {
	Jobs  *jobs.Service
	Perms middleware.PermissionChecker
	Log   *zap.Logger
}

func NewHandler(scheduler *jobs.Service, perms middleware.PermissionChecker, log *zap.Logger) *Handler {
	return &Handler{Jobs: scheduler, Perms: perms, Log: log.Named("jobs_handler")}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/jobs", func(r chi.Router) {
		r.Use(middleware.RequirePermission(access.PermSystemAdmin, h.Perms))
		r.Get("/", h.handleNames)
		r.Get("/runs", h.handleRuns)
		r.Post("/{job}/run", h.handleRun)
	})
}

func (h *Handler) handleNames(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Jobs.Names(), shared.RequestID(r))
}

func (h *Handler) handleRuns(w http.ResponseWriter, r *http.Request) {
	page := shared.Page(r)
	runs, total, err := h.Jobs.ListRuns(r.Context(), r.URL.Query().Get("job"), page.Limit, page.Offset)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	shared.List(w, r, runs, total)
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "job")
	run, err := h.Jobs.RunNow(r.Context(), name)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("job triggered", zap.String("job", name), zap.String("user_id", shared.Actor(r).UserID))
	api.Success(w, run, shared.RequestID(r))
}
