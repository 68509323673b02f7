package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hrms/internal/apperr"
)

func TestStatusFor(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindNotFound:     http.StatusNotFound,
		apperr.KindValidation:   http.StatusBadRequest,
		apperr.KindInvalidState: http.StatusBadRequest,
		apperr.KindConflict:     http.StatusConflict,
		apperr.KindUnauthorized: http.StatusUnauthorized,
		apperr.KindForbidden:    http.StatusForbidden,
		apperr.KindInternal:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, StatusFor(kind), string(kind))
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestFailErrorHidesInternalMessages(t *testing.T) {
	rec := httptest.NewRecorder()
	FailError(rec, zap.NewNop(), errors.New("pq: password authentication failed"), "req-1")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decode(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "internal_error", env.Error.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.Equal(t, "req-1", env.RequestID)
}

func TestFailErrorIncludesFieldDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	FailError(rec, zap.NewNop(), apperr.Validation("email", "must be a valid email"), "req-2")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{
		"success": false,
		"error": {
			"code": "validation_error",
			"message": "payload validation failed",
			"details": {"fields": [{"field": "email", "reason": "must be a valid email"}]}
		},
		"requestId": "req-2"
	}`, rec.Body.String())
}

func TestFailErrorMapsKinds(t *testing.T) {
	rec := httptest.NewRecorder()
	FailError(rec, zap.NewNop(), apperr.NotFound("employee"), "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "employee not found", decode(t, rec).Error.Message)
}
