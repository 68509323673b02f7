package shared

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"hrms/internal/apperr"
)

// DecodeJSON decodes a single JSON object and rejects unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.New(apperr.KindValidation, "payload_too_large", "request body too large")
		}
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.KindValidation, "invalid_payload", "request body is empty")
		}
		return apperr.Wrap(apperr.KindValidation, "invalid_payload", "invalid request payload", err)
	}
	if dec.More() {
		return apperr.New(apperr.KindValidation, "invalid_payload", "request body must contain a single JSON object")
	}
	return nil
}

func ClientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		if value := strings.TrimSpace(strings.Split(fwd, ",")[0]); value != "" {
			return value
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

// QueryBool returns nil when the parameter is absent or unparsable.
func QueryBool(r *http.Request, key string) *bool {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func QueryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// PathInt parses the chi URL parameter key as an integer.
func PathInt(v *Validator, r *http.Request, key string) int {
	n, err := strconv.Atoi(chi.URLParam(r, key))
	if err != nil {
		v.Add(key, "must be a number")
	}
	return n
}
