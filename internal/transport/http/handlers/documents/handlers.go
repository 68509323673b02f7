package documentshandler

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hrms/internal/domain/access"
	"hrms/internal/domain/documents"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type Handler struct {
	Service        *documents.Service
	Perms          middleware.PermissionChecker
	MaxUploadBytes int64
	Log            *zap.Logger
}

func NewHandler(service *documents.Service, perms middleware.PermissionChecker, maxUploadBytes int64, log *zap.Logger) *Handler {
	return &Handler{Service: service, Perms: perms, MaxUploadBytes: maxUploadBytes, Log: log.Named("documents_handler")}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(access.PermDocumentsRead, h.Perms)
	write := middleware.RequirePermission(access.PermDocumentsWrite, h.Perms)
	r.Route("/documents", func(r chi.Router) {
		r.With(read).Get("/", h.handleList)
		r.With(write).Post("/", h.handleUpload)
		r.With(read).Get("/expiring", h.handleExpiring)
		r.With(read).Get("/{documentID}", h.handleGet)
		r.With(write).Delete("/{documentID}", h.handleDelete)
	})
	// Any signed-in user may ask; the service decides per file kind.
	r.Get("/files/{fileID}", h.handleDownload)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := shared.FormFile(w, r, "file", h.MaxUploadBytes)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	defer file.Close()

	v := shared.NewValidator()
	in := documents.DocumentInput{
		EmployeeID:  r.FormValue("employeeId"),
		Title:       r.FormValue("title"),
		Category:    r.FormValue("category"),
		Description: r.FormValue("description"),
		ExpiresAt:   v.OptionalDate("expiresAt", r.FormValue("expiresAt")),
	}
	if in.EmployeeID == "" {
		in.EmployeeID = shared.Actor(r).EmployeeID
	}
	v.Required("employeeId", in.EmployeeID, "is required")
	v.Required("title", in.Title, "is required")
	if v.Reject(w, shared.RequestID(r)) {
		return
	}

	doc, err := h.Service.Upload(r.Context(), shared.Actor(r), in, documents.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, file)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Created(w, doc, shared.RequestID(r))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	page := shared.Page(r)
	q := r.URL.Query()
	docs, total, err := h.Service.List(r.Context(), shared.Actor(r), q.Get("employeeId"), q.Get("category"), page.Limit, page.Offset)
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	shared.List(w, r, docs, total)
}

func (h *Handler) handleExpiring(w http.ResponseWriter, r *http.Request) {
	docs, err := h.Service.Expiring(r.Context(), shared.Actor(r), shared.QueryInt(r, "days", documents.DefaultExpiringDays))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, docs, shared.RequestID(r))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Service.Get(r.Context(), shared.Actor(r), chi.URLParam(r, "documentID"))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.Success(w, doc, shared.RequestID(r))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), shared.Actor(r), chi.URLParam(r, "documentID")); err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	api.NoContent(w)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	f, body, err := h.Service.Download(r.Context(), shared.Actor(r), chi.URLParam(r, "fileID"))
	if err != nil {
		shared.Error(w, r, h.Log, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(f.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.OriginalName}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.Log.Warn("file stream interrupted", zap.String("file_id", f.ID), zap.Error(err))
	}
}
