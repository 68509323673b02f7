package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hrms/internal/domain/access"
	"hrms/internal/domain/attendance"
	"hrms/internal/domain/audit"
	"hrms/internal/domain/auth"
	"hrms/internal/domain/core"
	"hrms/internal/domain/documents"
	"hrms/internal/domain/leave"
	"hrms/internal/domain/notifications"
	"hrms/internal/domain/payroll"
	"hrms/internal/domain/performance"
	"hrms/internal/domain/reports"
	"hrms/internal/platform/config"
	"hrms/internal/platform/db/dbtest"
	"hrms/internal/platform/email"
	"hrms/internal/platform/events"
	"hrms/internal/platform/jobs"
	"hrms/internal/platform/metrics"
	"hrms/internal/platform/realtime"
	"hrms/internal/platform/revocation"
	"hrms/internal/platform/storage"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "Admin12345"
	userPassword  = "Passw0rdOK"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	svc     *Services
}

func allModels() []any {
	var models []any
	for _, set := range [][]any{
		auth.Models, core.Models, leave.Models, payroll.Models, performance.Models,
		attendance.Models, documents.Models, notifications.Models, reports.Models,
	} {
		models = append(models, set...)
	}
	return append(models, &audit.Log{}, &jobs.JobRun{})
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop()
	gdb := dbtest.Open(t, allModels()...)
	cfg := config.Config{
		Environment:        "test",
		JWTSecret:          "router-test-secret-0123456789abcdef",
		JWTIssuer:          "hrms",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    time.Hour,
		MaxBodyBytes:       1 << 20,
		MaxUploadBytes:     1 << 20,
		RateLimitPerMinute: 1000,
		MetricsEnabled:     true,
	}
	blobs, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	m := metrics.New()
	infra := &Infra{
		Revoked:   revocation.NewMemory(),
		Publisher: events.Noop{},
		Mailer:    email.New(cfg, log),
		Blobs:     blobs,
		Hub:       realtime.NewHub(log),
		Metrics:   m,
	}
	svc, err := NewServices(gdb, cfg, infra, log)
	require.NoError(t, err)
	require.NoError(t, svc.Auth.Seed(context.Background(), adminEmail, adminPassword))
	require.NoError(t, RegisterJobs(svc, cfg))
	return &testServer{t: t, handler: NewRouter(cfg, svc, nil, log), svc: svc}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Details struct {
			Fields []struct {
				Field  string `json:"field"`
				Reason string `json:"reason"`
			} `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if dst != nil {
		require.NoError(t, json.Unmarshal(env.Data, dst))
	}
	return env
}

func (s *testServer) expect(status int, rec *httptest.ResponseRecorder) {
	s.t.Helper()
	require.Equal(s.t, status, rec.Code, rec.Body.String())
}

func (s *testServer) login(login, password string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"login": login, "password": password})
	s.expect(http.StatusOK, rec)
	var pair struct {
		AccessToken string `json:"accessToken"`
	}
	decode(s.t, rec, &pair)
	require.NotEmpty(s.t, pair.AccessToken)
	return pair.AccessToken
}

type idOnly struct {
	ID string `json:"id"`
}

func (s *testServer) create(path, token string, body any) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, path, token, body)
	s.expect(http.StatusCreated, rec)
	var out idOnly
	decode(s.t, rec, &out)
	require.NotEmpty(s.t, out.ID)
	return out.ID
}

func TestHealthAndAuthBoundary(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/healthz", "", nil)
	s.expect(http.StatusOK, rec)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	s.expect(http.StatusOK, s.do(http.MethodGet, "/readyz", "", nil))

	rec = s.do(http.MethodGet, "/api/v1/employees", "", nil)
	s.expect(http.StatusUnauthorized, rec)
	env := decode(t, rec, nil)
	assert.False(t, env.Success)

	s.expect(http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/employees", "not-a-token", nil))

	rec = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"login": adminEmail, "password": "wrong-Passw0rd"})
	s.expect(http.StatusUnauthorized, rec)

	rec = s.do(http.MethodGet, "/metrics", "", nil)
	s.expect(http.StatusOK, rec)
	assert.Contains(t, rec.Body.String(), "requests_total")
}

func TestValidationEnvelope(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(adminEmail, adminPassword)

	rec := s.do(http.MethodPost, "/api/v1/employees", admin, map[string]any{"email": "not-an-email"})
	s.expect(http.StatusBadRequest, rec)
	env := decode(t, rec, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_error", env.Error.Code)
	fields := map[string]bool{}
	for _, f := range env.Error.Details.Fields {
		fields[f.Field] = true
	}
	assert.True(t, fields["firstName"])
	assert.True(t, fields["email"])

	req := httptest.NewRequest(http.MethodPost, "/api/v1/departments", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+admin)
	req.Header.Set("Content-Type", "application/json")
	out := httptest.NewRecorder()
	s.handler.ServeHTTP(out, req)
	assert.Equal(t, http.StatusBadRequest, out.Code)

	s.expect(http.StatusNotFound, s.do(http.MethodGet, "/api/v1/employees/00000000-0000-0000-0000-000000000000", admin, nil))
}

func TestEmployeeLeaveJourney(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(adminEmail, adminPassword)

	deptID := s.create("/api/v1/departments", admin, map[string]any{"code": "ENG", "name": "Engineering"})
	rec := s.do(http.MethodPost, "/api/v1/departments", admin, map[string]any{"code": "eng", "name": "Again"})
	s.expect(http.StatusConflict, rec)

	mgrID := s.create("/api/v1/employees", admin, map[string]any{
		"firstName": "Mona", "lastName": "Manager", "email": "mona@example.com",
		"hireDate": "2020-01-06", "departmentId": deptID, "salary": 60000,
	})
	workerID := s.create("/api/v1/employees", admin, map[string]any{
		"firstName": "Walt", "lastName": "Worker", "email": "walt@example.com",
		"hireDate": "2021-04-01", "departmentId": deptID, "managerId": mgrID,
	})
	otherID := s.create("/api/v1/employees", admin, map[string]any{
		"firstName": "Olga", "lastName": "Other", "email": "olga@example.com", "hireDate": "2022-02-01",
	})

	s.create("/api/v1/users", admin, map[string]any{
		"username": "mona", "email": "mona@example.com", "password": userPassword,
		"roles": []string{access.RoleManager}, "employeeId": mgrID,
	})
	s.create("/api/v1/users", admin, map[string]any{
		"username": "walt", "email": "walt@example.com", "password": userPassword,
		"roles": []string{access.RoleUser}, "employeeId": workerID,
	})
	manager := s.login("mona", userPassword)
	worker := s.login("walt@example.com", userPassword)

	s.expect(http.StatusOK, s.do(http.MethodGet, "/api/v1/employees/"+workerID, worker, nil))
	s.expect(http.StatusOK, s.do(http.MethodGet, "/api/v1/employees/"+workerID, manager, nil))
	s.expect(http.StatusForbidden, s.do(http.MethodGet, "/api/v1/employees/"+otherID, worker, nil))
	s.expect(http.StatusForbidden, s.do(http.MethodPost, "/api/v1/departments", worker, map[string]any{"code": "OPS", "name": "Ops"}))
	s.expect(http.StatusForbidden, s.do(http.MethodGet, "/api/v1/users", manager, nil))

	rec = s.do(http.MethodGet, "/api/v1/employees?limit=2", admin, nil)
	s.expect(http.StatusOK, rec)
	assert.Equal(t, "3", rec.Header().Get("X-Total-Count"))
	var page []idOnly
	decode(t, rec, &page)
	assert.Len(t, page, 2)

	year := time.Now().UTC().Year() + 1
	typeID := s.create("/api/v1/leave/types", admin, map[string]any{
		"code": "ANNUAL", "name": "Annual leave", "defaultDays": 20, "paid": true, "requiresApproval": true,
	})
	s.expect(http.StatusForbidden, s.do(http.MethodPost, "/api/v1/leave/types", worker, map[string]any{"code": "GYM", "name": "Gym"}))
	s.create("/api/v1/leave/balances", admin, map[string]any{
		"employeeId": workerID, "leaveTypeId": typeID, "year": year, "allocated": 10,
	})

	requestID := s.create("/api/v1/leave/requests", worker, map[string]any{
		"leaveTypeId": typeID,
		"startDate":   fmt.Sprintf("%d-03-03", year),
		"endDate":     fmt.Sprintf("%d-03-04", year),
		"reason":      "family trip",
	})
	s.expect(http.StatusForbidden, s.do(http.MethodPost, "/api/v1/leave/requests/"+requestID+"/approve", worker, nil))

	rec = s.do(http.MethodPost, "/api/v1/leave/requests/"+requestID+"/approve", manager, map[string]string{"note": "enjoy"})
	s.expect(http.StatusOK, rec)
	var decided struct {
		Status string `json:"status"`
	}
	decode(t, rec, &decided)
	assert.Equal(t, leave.StatusApproved, decided.Status)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/v1/leave/balances?year=%d", year), worker, nil)
	s.expect(http.StatusOK, rec)
	var balances []struct {
		Allocated float64 `json:"allocated"`
		Used      float64 `json:"used"`
	}
	decode(t, rec, &balances)
	require.Len(t, balances, 1)
	assert.Equal(t, 2.0, balances[0].Used)

	rec = s.do(http.MethodGet, "/api/v1/dashboard", worker, nil)
	s.expect(http.StatusOK, rec)

	rec = s.do(http.MethodGet, "/api/v1/audit?action=leave.request.approve", admin, nil)
	s.expect(http.StatusOK, rec)
	s.expect(http.StatusForbidden, s.do(http.MethodGet, "/api/v1/audit", manager, nil))
}

func TestJobsEndpoints(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(adminEmail, adminPassword)

	rec := s.do(http.MethodGet, "/api/v1/jobs", admin, nil)
	s.expect(http.StatusOK, rec)
	var names []string
	decode(t, rec, &names)
	assert.Equal(t, []string{JobAttendanceClose, JobLeaveAccrual}, names)

	rec = s.do(http.MethodPost, "/api/v1/jobs/"+JobAttendanceClose+"/run", admin, nil)
	s.expect(http.StatusOK, rec)
	var run struct {
		Status string `json:"status"`
	}
	decode(t, rec, &run)
	assert.Equal(t, jobs.StatusCompleted, run.Status)

	s.expect(http.StatusNotFound, s.do(http.MethodPost, "/api/v1/jobs/nope/run", admin, nil))

	rec = s.do(http.MethodGet, "/api/v1/jobs/runs", admin, nil)
	s.expect(http.StatusOK, rec)
	assert.Equal(t, "1", rec.Header().Get("X-Total-Count"))
}
