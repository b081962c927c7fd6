package web

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/metrics"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Corpus:    config.CorpusConfig{Path: filepath.Join(t.TempDir(), "embeddings.gob")},
		Matching:  config.MatchingConfig{Metric: "distance", Threshold: 0.45},
		Dashboard: config.DashboardConfig{SessionSecret: "test-secret"},
		Schedule: config.ScheduleConfig{
			Entry: config.EntryRules{OnTimeUntil: "09:10", DelayBaseHour: 9},
			Exit:  config.ExitRules{CorrectionFrom: "20:00"},
		},
	}
	employees := mock.NewEmployeeStore(database.Employee{EmpID: "E1", Name: "Alice"})
	s, err := NewServer(cfg, 0, "127.0.0.1", Deps{
		Employees:  employees,
		Attendance: mock.NewAttendanceStore(employees),
		Users:      mock.NewUserStore(),
		Metrics:    metrics.NewRecorder(),
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(s.sessionManager.Stop)
	return s
}

func bearer(t *testing.T, s *Server, role string) string {
	t.Helper()
	session, err := s.Sessions().CreateSession(t.Context(), role+"-user", role)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + session.ID
}

func TestNewServer_RequiresStores(t *testing.T) {
	if _, err := NewServer(&config.Config{}, 0, "", Deps{}); err == nil {
		t.Error("expected error without stores")
	}
}

func TestRoutes_Access(t *testing.T) {
	s := newTestServer(t)
	admin := bearer(t, s, database.RoleAdmin)
	manager := bearer(t, s, database.RoleManager)
	user := bearer(t, s, database.RoleUser)

	tests := []struct {
		name   string
		method string
		path   string
		auth   string
		body   string
		status int
	}{
		{"health is public", "GET", "/api/v1/health", "", "", http.StatusOK},
		{"status is public", "GET", "/api/v1/auth/status", "", "", http.StatusOK},
		{"stats needs login", "GET", "/api/v1/stats", "", "", http.StatusUnauthorized},
		{"stats for user", "GET", "/api/v1/stats", user, "", http.StatusOK},
		{"employees for user", "GET", "/api/v1/employees", user, "", http.StatusOK},
		{"employee by id", "GET", "/api/v1/employees/E1", user, "", http.StatusOK},
		{"reports for user", "GET", "/api/v1/reports/summary", user, "", http.StatusOK},
		{"config for user", "GET", "/api/v1/config", user, "", http.StatusOK},
		{"corpus for user", "GET", "/api/v1/corpus", user, "", http.StatusOK},
		{"user cannot mark", "PUT", "/api/v1/attendance/E1/2025-03-31", user, `{"status":"leave"}`, http.StatusForbidden},
		{"manager marks", "PUT", "/api/v1/attendance/E1/2025-03-31", manager, `{"status":"leave"}`, http.StatusOK},
		{"user cannot create employee", "POST", "/api/v1/employees", user, `{"emp_id":"E2","name":"Bob"}`, http.StatusForbidden},
		{"manager creates employee", "POST", "/api/v1/employees", manager, `{"emp_id":"E2","name":"Bob"}`, http.StatusCreated},
		{"manager cannot list users", "GET", "/api/v1/users", manager, "", http.StatusForbidden},
		{"admin lists users", "GET", "/api/v1/users", admin, "", http.StatusOK},
		{"metrics", "GET", "/metrics", "", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			recorder := httptest.NewRecorder()
			s.Router().ServeHTTP(recorder, req)
			if recorder.Code != tt.status {
				t.Errorf("%s %s = %d, want %d\nBody: %s", tt.method, tt.path, recorder.Code, tt.status, recorder.Body.String())
			}
		})
	}
}

func TestRoutes_MarkInvalidatesStats(t *testing.T) {
	s := newTestServer(t)
	manager := bearer(t, s, database.RoleManager)

	serve := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Authorization", manager)
		recorder := httptest.NewRecorder()
		s.Router().ServeHTTP(recorder, req)
		return recorder
	}

	if body := serve("GET", "/api/v1/stats", "").Body.String(); !strings.Contains(body, `"on_leave":0`) {
		t.Fatalf("unexpected stats %s", body)
	}
	date := time.Now().Format(constants.DateLayout)
	if rec := serve("PUT", "/api/v1/attendance/E1/"+date, `{"status":"leave"}`); rec.Code != http.StatusOK {
		t.Fatalf("mark failed: %d %s", rec.Code, rec.Body.String())
	}
	if body := serve("GET", "/api/v1/stats", "").Body.String(); !strings.Contains(body, `"on_leave":1`) {
		t.Errorf("stats not refreshed after mark: %s", body)
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	s := newTestServer(t)
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, httptest.NewRequest("GET", "/api/v1/health", nil))

	if recorder.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}
