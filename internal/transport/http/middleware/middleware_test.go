package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"hrms/internal/domain/access"
)

func TestRequestIDMiddleware(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Fatal("expected request id in context")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-supplied")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "client-supplied" {
		t.Fatalf("expected client request id to be echoed, got %q", got)
	}
}

type stubVerifier struct {
	actor access.Actor
	err   error
	seen  string
}

func (s *stubVerifier) VerifyAccessToken(_ context.Context, token string) (access.Actor, error) {
	s.seen = token
	return s.actor, s.err
}

type stubChecker map[string][]string

func (s stubChecker) HasPermission(_ context.Context, roles []string, permission string) (bool, error) {
	for _, role := range roles {
		for _, perm := range s[role] {
			if perm == permission {
				return true, nil
			}
		}
	}
	return false, nil
}

func TestAuthAndPermission(t *testing.T) {
	checker := stubChecker{access.RoleHR: {access.PermEmployeesWrite}}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := GetUser(r.Context())
		_, _ = w.Write([]byte(user.UserID))
	})

	tests := []struct {
		name       string
		header     string
		verifier   *stubVerifier
		wantStatus int
	}{
		{
			name:       "missing token",
			verifier:   &stubVerifier{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid token",
			header:     "Bearer broken",
			verifier:   &stubVerifier{err: errors.New("bad signature")},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "insufficient role",
			header:     "Bearer good",
			verifier:   &stubVerifier{actor: access.Actor{UserID: "u1", Roles: []string{access.RoleUser}}},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "granted",
			header:     "bearer good",
			verifier:   &stubVerifier{actor: access.Actor{UserID: "u2", Roles: []string{access.RoleHR}}},
			wantStatus: http.StatusOK,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := Auth(tc.verifier)(RequirePermission(access.PermEmployeesWrite, checker)(ok))
			req := httptest.NewRequest(http.MethodPost, "/employees", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
			if tc.wantStatus == http.StatusOK && rec.Body.String() != "u2" {
				t.Fatalf("expected actor in context, got %q", rec.Body.String())
			}
		})
	}
}

func TestWebsocketTokenFromQuery(t *testing.T) {
	verifier := &stubVerifier{actor: access.Actor{UserID: "u1"}}
	handler := Auth(verifier)(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {})))

	req := httptest.NewRequest(http.MethodGet, "/notifications/stream?access_token=abc", nil)
	req.Header.Set("Upgrade", "websocket")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || verifier.seen != "abc" {
		t.Fatalf("expected query token to authenticate upgrade, got %d (%q)", rec.Code, verifier.seen)
	}

	verifier.seen = ""
	req = httptest.NewRequest(http.MethodGet, "/employees?access_token=abc", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized || verifier.seen != "" {
		t.Fatalf("query tokens must only be honoured on upgrades, got %d", rec.Code)
	}
}

func TestRateLimitUsesUserKeyBeforeIPFallback(t *testing.T) {
	limited := RateLimit(1, zap.NewNop(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	userCtx := WithUser(context.Background(), access.Actor{UserID: "user-1"})

	first := httptest.NewRequest(http.MethodPost, "/leave/requests", nil).WithContext(userCtx)
	first.RemoteAddr = "198.51.100.11:2222"
	firstRec := httptest.NewRecorder()
	limited.ServeHTTP(firstRec, first)
	if firstRec.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", firstRec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/leave/requests", nil).WithContext(userCtx)
	second.RemoteAddr = "198.51.100.12:3333"
	secondRec := httptest.NewRecorder()
	limited.ServeHTTP(secondRec, second)
	if secondRec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled by user key, got %d", secondRec.Code)
	}
	if secondRec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}

	other := httptest.NewRequest(http.MethodPost, "/leave/requests", nil)
	other.RemoteAddr = "198.51.100.12:3333"
	otherRec := httptest.NewRecorder()
	limited.ServeHTTP(otherRec, other)
	if otherRec.Code != http.StatusNoContent {
		t.Fatalf("expected anonymous request from another key to pass, got %d", otherRec.Code)
	}
}

func TestRecovererReturnsEnvelope(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	handler := RequestID(Recoverer(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"internal_error"`) {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Fatal("expected panic to be logged")
	}
}

func TestLoggerRecordsStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := Logger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/departments/x", nil))
	entries := logs.All()
	if len(entries) != 1 || entries[0].Level != zap.WarnLevel {
		t.Fatalf("expected one warn entry, got %+v", entries)
	}
	if entries[0].ContextMap()["status"] != int64(http.StatusConflict) {
		t.Fatalf("expected status field, got %v", entries[0].ContextMap())
	}
}

func TestLoggerRecordsAuthenticatedUser(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	verifier := &stubVerifier{actor: access.Actor{UserID: "u-1", Roles: []string{access.RoleUser}}}
	handler := RequestID(Logger(zap.New(core))(Auth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))))

	req := httptest.NewRequest(http.MethodGet, "/employees/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %+v", entries)
	}
	fields := entries[0].ContextMap()
	if fields["user_id"] != "u-1" {
		t.Fatalf("expected user_id field, got %v", fields)
	}
	if fields["request_id"] == "" {
		t.Fatalf("expected request_id field, got %v", fields)
	}

	logs.TakeAll()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if _, ok := logs.All()[0].ContextMap()["user_id"]; ok {
		t.Fatal("anonymous requests must not carry user_id")
	}
}

func TestBodyLimitAndSecureHeaders(t *testing.T) {
	handler := SecureHeaders(true)(BodyLimit(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		if _, err := r.Body.Read(buf); err != nil && err.Error() != "EOF" {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64))))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected body limit to trip, got %d", rec.Code)
	}
	if rec.Header().Get("Strict-Transport-Security") == "" || rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatal("expected security headers")
	}
}

func TestRequireAnyPermission(t *testing.T) {
	checker := stubChecker{access.RoleManager: {access.PermLeaveApprove}}
	handler := RequireAnyPermission(checker, access.PermEmployeesWrite, access.PermLeaveApprove)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), access.Actor{UserID: "u1", Roles: []string{access.RoleManager}}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected second permission to grant access, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), access.Actor{UserID: "u2", Roles: []string{access.RoleUser}}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected forbidden, got %d", rec.Code)
	}
}
