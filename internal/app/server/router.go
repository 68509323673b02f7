package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hrms/internal/platform/config"
	"hrms/internal/transport/http/api"
	attendancehandler "hrms/internal/transport/http/handlers/attendance"
	audithandler "hrms/internal/transport/http/handlers/audit"
	authhandler "hrms/internal/transport/http/handlers/auth"
	corehandler "hrms/internal/transport/http/handlers/core"
	documentshandler "hrms/internal/transport/http/handlers/documents"
	jobshandler "hrms/internal/transport/http/handlers/jobs"
	leavehandler "hrms/internal/transport/http/handlers/leave"
	notificationshandler "hrms/internal/transport/http/handlers/notifications"
	payrollhandler "hrms/internal/transport/http/handlers/payroll"
	performancehandler "hrms/internal/transport/http/handlers/performance"
	reportshandler "hrms/internal/transport/http/handlers/reports"
	"hrms/internal/transport/http/middleware"
)

// Pinger reports whether the database answers.
type Pinger func(ctx context.Context) error

// NewRouter mounts every handler under /api/v1. Login and the other public
// auth endpoints get a stricter per-IP limit.
func NewRouter(cfg config.Config, svc *Services, ping Pinger, log *zap.Logger) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recoverer(log))
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(svc.Metrics.Instrument)
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(svc.Auth))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, map[string]string{"status": "ok"}, middleware.GetRequestID(r.Context()))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if ping != nil {
			if err := ping(ctx); err != nil {
				api.Fail(w, http.StatusServiceUnavailable, "not_ready", "database not ready", middleware.GetRequestID(r.Context()))
				return
			}
		}
		api.Success(w, map[string]string{"status": "ready"}, middleware.GetRequestID(r.Context()))
	})
	if cfg.MetricsEnabled && svc.Metrics != nil {
		router.Handle("/metrics", svc.Metrics.Handler())
	}

	perms := svc.Auth
	authHandler := authhandler.NewHandler(svc.Auth, perms, log)

	router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(publicRateLimit(cfg.RateLimitPerMinute), log, middleware.IPKey))
			authHandler.RegisterPublicRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, log, nil))

			authHandler.RegisterRoutes(r)
			corehandler.NewHandler(svc.Core, perms, cfg.MaxUploadBytes, log).RegisterRoutes(r)
			leavehandler.NewHandler(svc.Leave, perms, log).RegisterRoutes(r)
			payrollhandler.NewHandler(svc.Payroll, perms, log).RegisterRoutes(r)
			performancehandler.NewHandler(svc.Performance, perms, log).RegisterRoutes(r)
			attendancehandler.NewHandler(svc.Attendance, perms, log).RegisterRoutes(r)
			documentshandler.NewHandler(svc.Documents, perms, cfg.MaxUploadBytes, log).RegisterRoutes(r)
			notificationshandler.NewHandler(svc.Notifications, svc.Hub, perms, log).RegisterRoutes(r)
			reportshandler.NewHandler(svc.Reports, perms, log).RegisterRoutes(r)
			audithandler.NewHandler(svc.Audit, perms, log).RegisterRoutes(r)
			jobshandler.NewHandler(svc.Jobs, perms, log).RegisterRoutes(r)
		})
	})
	return router
}

func publicRateLimit(perMinute int) int {
	if limit := perMinute / 4; limit >= 10 {
		return limit
	}
	return 10
}
