package audithandler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hrms/internal/domain/access"
	"hrms/internal/domain/audit"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type Handler struct {
	Service *audit.Service
	Perms   middleware.PermissionChecker
	Log     *zap.Logger
}

func NewHandler(service *audit.Service, perms middleware.PermissionChecker, log *zap.Logger) *Handler {
	return &Handler{Service: service, Perms: perms, Log: log.Named("audit_handler")}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Use(middleware.RequirePermission(access.PermAuditRead, h.Perms))
		r.Get("/", h.handleSearch)
		r.Get("/export", h.handleExport)
	})
}

func (h *Handler) filter(w http.ResponseWriter, r *http.Request) (audit.Filter, bool) {
	q := r.URL.Query()
	v := shared.NewValidator()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
		ActorID:    q.Get("actorId"),
		From:       shared.QueryDate(r, v, "from"),
		To:         shared.QueryDate(r, v, "to"),
	}
	if filter.From != nil && filter.To != nil {
		v.DateOrder("from", *filter.From, "to", *filter.To)
	}
	if v.Reject(w, shared.RequestID(r)) {
		return filter, false
	}
	return filter, true
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.filter(w, r)
	if !ok {
		return
	}
	page := shared.Page(r)
	logs, total, err := h.Service.Search(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	shared.List(w, r, logs, total)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.filter(w, r)
	if !ok {
		return
	}
	name := "audit-" + time.Now().UTC().Format("20060102") + ".csv"
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := h.Service.ExportCSV(r.Context(), filter, w); err != nil {
		// headers are gone once the first row is written
		h.Log.Error("audit export failed", zap.String("request_id", shared.RequestID(r)), zap.Error(err))
	}
}
