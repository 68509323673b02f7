package reportshandler

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hrms/internal/apperr"
	"hrms/internal/domain/access"
	"hrms/internal/domain/reports"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type Handler struct {
	Service *reports.Service
	Perms   middleware.PermissionChecker
	Log     *zap.Logger
}

func NewHandler(service *reports.Service, perms middleware.PermissionChecker, log *zap.Logger) *Handler {
	return &Handler{Service: service, Perms: perms, Log: log.Named("reports_handler")}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequireAnyPermission(h.Perms, access.PermReportsRead, access.PermReportsGenerate)
	generate := middleware.RequirePermission(access.PermReportsGenerate, h.Perms)
	r.Get("/dashboard", h.handleDashboard)
	r.Route("/reports", func(r chi.Router) {
		r.With(read).Get("/", h.handleList)
		r.With(generate).Post("/", h.handleGenerate)
		r.With(read).Get("/{reportID}", h.handleGet)
		r.With(read).Get("/{reportID}/export", h.handleExport)
	})
}

type generateRequest struct {
	Type         string `json:"type" validate:"required"`
	DepartmentID string `json:"departmentId"`
	Year         int    `json:"year" validate:"omitempty,gte=2000,lte=2100"`
	Month        int    `json:"month" validate:"omitempty,gte=1,lte=12"`
	From         string `json:"from"`
	To           string `json:"to"`
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var payload generateRequest
	if !shared.Bind(w, r, &payload) {
		return
	}
	report, err := h.Service.Generate(r.Context(), shared.Actor(r), payload.Type, reports.Params{
		DepartmentID: payload.DepartmentID,
		Year:         payload.Year,
		Month:        payload.Month,
		From:         payload.From,
		To:           payload.To,
	})
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Created(w, report, shared.RequestID(r))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	page := shared.Page(r)
	items, total, err := h.Service.List(r.Context(), r.URL.Query().Get("type"), page.Limit, page.Offset)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	shared.List(w, r, items, total)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.Get(r.Context(), chi.URLParam(r, "reportID"))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, report, shared.RequestID(r))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		shared.Error(w, r, h.Log, apperr.Validation("format", "must be csv or pdf"))
		return
	}
	report, err := h.Service.Get(r.Context(), chi.URLParam(r, "reportID"))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}

	// render fully before writing so failures still get an error envelope
	var buf bytes.Buffer
	contentType := "text/csv"
	if format == "pdf" {
		contentType = "application/pdf"
		err = reports.WritePDF(&buf, report)
	} else {
		err = reports.WriteCSV(&buf, report)
	}
	if err != nil {
		shared.Error(w, r, h.Log, apperr.Wrap(apperr.KindInternal, "export_failed", "could not render report", err))
		return
	}
	name := strings.ToLower(report.Type) + "-" + report.ID + "." + format
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.Service.Dashboard(r.Context(), shared.Actor(r))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, dash, shared.RequestID(r))
}
