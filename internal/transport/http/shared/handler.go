package shared

import (
	"net/http"

	"go.uber.org/zap"

	"hrms/internal/apperr"
	"hrms/internal/domain/access"
	"hrms/internal/requestctx"
	"hrms/internal/transport/http/api"
)

func RequestID(r *http.Request) string {
	return requestctx.GetRequestID(r.Context())
}

// Actor returns the caller attached by the auth middleware. Routes behind
// RequireAuth always carry one.
func Actor(r *http.Request) access.Actor {
	actor, _ := requestctx.GetActor(r.Context())
	return actor
}

// Bind decodes the body into dst and runs its validate tags. On failure the
// error response has already been written.
func Bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := DecodeJSON(r, dst); err != nil {
		api.FailError(w, nil, err, RequestID(r))
		return false
	}
	v := NewValidator()
	v.Struct(dst)
	return !v.Reject(w, RequestID(r))
}

// Error writes err as an envelope.
func Error(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	api.FailError(w, log, err, RequestID(r))
}

// List writes a page of items and its total.
func List(w http.ResponseWriter, r *http.Request, items any, total int64) {
	SetTotal(w, total)
	api.Success(w, items, RequestID(r))
}

// BindOptional is Bind for endpoints whose body may be omitted.
func BindOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	return Bind(w, r, dst)
}

// EmployeeID reads the employeeId query parameter and falls back to the
// caller's own employee record.
func EmployeeID(r *http.Request) (string, error) {
	id := r.URL.Query().Get("employeeId")
	if id == "" {
		id = Actor(r).EmployeeID
	}
	if id == "" {
		return "", apperr.Validation("employeeId", "is required when the caller has no employee record")
	}
	return id, nil
}
