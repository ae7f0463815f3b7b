package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fpachisa/marathon-training-app/internal/metrics"
	"github.com/fpachisa/marathon-training-app/internal/middleware"
	"github.com/fpachisa/marathon-training-app/internal/model"
)

// mockSessionFinder はmiddleware.SessionFinderのモック実装。
type mockSessionFinder struct {
	FindByIDFunc func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return m.FindByIDFunc(ctx, id)
}

// mockRouterUserFinder はmiddleware.UserFinderのモック実装。
type mockRouterUserFinder struct {
	FindByIDFunc func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockRouterUserFinder) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.FindByIDFunc(ctx, id)
}

// mockHealthChecker はHealthCheckerのモック実装。
type mockHealthChecker struct {
	PingContextFunc func(ctx context.Context) error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.PingContextFunc(ctx)
}

// newTestRouter は統合テスト用のルーターと依存一式を構築する。
// user-1が一般ユーザー、admin-1（admin@example.com）が管理者。
func newTestRouter(t *testing.T) (http.Handler, *mockAdminService, func()) {
	t.Helper()

	sessions := map[string]*model.Session{
		"session-user":  {ID: "session-user", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)},
		"session-admin": {ID: "session-admin", UserID: "admin-1", ExpiresAt: time.Now().Add(time.Hour)},
	}
	users := map[string]*model.User{
		"user-1":  {ID: "user-1", Email: "runner@example.com", DisplayName: "Runner"},
		"admin-1": {ID: "admin-1", Email: "admin@example.com", DisplayName: "Admin"},
	}

	adminService := &mockAdminService{
		ListAllFunc: func(ctx context.Context) ([]model.SubmissionDetail, error) {
			return []model.SubmissionDetail{}, nil
		},
	}

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())

	deps := &RouterDeps{
		SessionFinder: &mockSessionFinder{
			FindByIDFunc: func(ctx context.Context, id string) (*model.Session, error) {
				return sessions[id], nil
			},
		},
		UserFinder: &mockRouterUserFinder{
			FindByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
				return users[id], nil
			},
		},
		AdminChecker:      &listAdminChecker{admins: map[string]bool{"admin@example.com": true}},
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		Logger:            slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Collector:         &nopTestCollector{},
		AuthService: &mockAuthService{
			GetLoginURLFunc: func(state string) string { return "https://accounts.google.com/?state=" + state },
		},
		AuthConfig: testAuthConfig(),
		SubmissionService: &mockSubmissionService{
			ListForUserFunc: func(ctx context.Context, userID string) ([]model.TaskWithSubmission, error) {
				return []model.TaskWithSubmission{
					{Task: model.TaskTemplate{ID: "task-1", Number: 1, Title: "5K Training Run"}},
				}, nil
			},
			RecordCompletionFunc: func(ctx context.Context, taskID, userID, evidenceURL string) (*model.Submission, error) {
				return &model.Submission{
					ID: "sub-1", TaskID: taskID, UserID: userID,
					Completed: true, EvidenceURL: evidenceURL, Status: model.StatusPending,
				}, nil
			},
		},
		EvidenceStore: &mockEvidenceStore{
			SaveFunc: func(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
				return "/uploads/1-" + filename, nil
			},
		},
		MaxUploadSize: 10 << 20,
		AdminService:  adminService,
		CatalogSeeder: &mockCatalogSeeder{
			SeedDefaultsFunc: func(ctx context.Context) (int, error) { return 10, nil },
		},
		HealthChecker: &mockHealthChecker{
			PingContextFunc: func(ctx context.Context) error { return nil },
		},
		MetricsGatherer: prometheus.NewRegistry(),
	}

	return NewRouter(deps), adminService, rl.Stop
}

func TestRouter_TasksRequireSession(t *testing.T) {
	router, _, stop := newTestRouter(t)
	defer stop()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRouter_TasksWithSession(t *testing.T) {
	router, _, stop := newTestRouter(t)
	defer stop()

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-user"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body = %s", rec.Code, rec.Body.String())
	}

	var resp []taskResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 1 || resp[0].Title != "5K Training Run" {
		t.Errorf("unexpected task list: %+v", resp)
	}
}

func TestRouter_CompleteTaskEndToEnd(t *testing.T) {
	router, _, stop := newTestRouter(t)
	defer stop()

	req := newMultipartRequest(t, uploadFieldName, "proof.png", pngMagicBytes)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-user"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: body = %s", rec.Code, rec.Body.String())
	}

	var resp submissionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TaskID != "task-1" {
		t.Errorf("TaskID = %s, want task-1 (from URL parameter)", resp.TaskID)
	}
	if resp.UserID != "user-1" {
		t.Errorf("UserID = %s, want user-1 (from session)", resp.UserID)
	}
	if !strings.HasPrefix(resp.EvidenceURL, "/uploads/") {
		t.Errorf("EvidenceURL = %s, want /uploads/ prefix", resp.EvidenceURL)
	}
}

func TestRouter_AdminRoutesForbiddenForNonAdmin(t *testing.T) {
	router, _, stop := newTestRouter(t)
	defer stop()

	req := httptest.NewRequest(http.MethodGet, "/api/admin/submissions", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-user"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestRouter_AdminRoutesAllowedForAdmin(t *testing.T) {
	router, _, stop := newTestRouter(t)
	defer stop()

	req := httptest.NewRequest(http.MethodGet, "/api/admin/submissions", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-admin"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200: body = %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_ReviewEndToEnd(t *testing.T) {
	router, adminService, stop := newTestRouter(t)
	defer stop()

	var gotReviewerID string
	adminService.ReviewFunc = func(ctx context.Context, taskID, userID, status, feedback, reviewerID string) (*model.Submission, error) {
		gotReviewerID = reviewerID
		return &model.Submission{
			ID: "sub-1", TaskID: taskID, UserID: userID,
			Completed: true, Status: model.SubmissionStatus(status),
		}, nil
	}

	body := bytes.NewBufferString(`{"task_id":"task-1","user_id":"user-1","status":"approved"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/submissions/review", body)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-admin"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body = %s", rec.Code, rec.Body.String())
	}
	if gotReviewerID != "admin-1" {
		t.Errorf("reviewerID = %s, want admin-1 (taken from the session)", gotReviewerID)
	}
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _, stop := newTestRouter(t)
	defer stop()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %s, want ok", resp["status"])
	}
}

func TestRouter_HealthEndpointUnhealthy(t *testing.T) {
	sessions := &mockSessionFinder{
		FindByIDFunc: func(ctx context.Context, id string) (*model.Session, error) { return nil, nil },
	}
	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer rl.Stop()

	deps := &RouterDeps{
		SessionFinder: sessions,
		UserFinder: &mockRouterUserFinder{
			FindByIDFunc: func(ctx context.Context, id string) (*model.User, error) { return nil, nil },
		},
		AdminChecker:      &listAdminChecker{},
		RateLimiter:       rl,
		Logger:            slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Collector:         &nopTestCollector{},
		AuthService:       &mockAuthService{},
		AuthConfig:        testAuthConfig(),
		SubmissionService: &mockSubmissionService{},
		EvidenceStore:     &mockEvidenceStore{},
		AdminService:      &mockAdminService{},
		CatalogSeeder:     &mockCatalogSeeder{},
		HealthChecker: &mockHealthChecker{
			PingContextFunc: func(ctx context.Context) error { return errors.New("connection refused") },
		},
	}
	router := NewRouter(deps)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics.NewCollector(registry)

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer rl.Stop()

	deps := &RouterDeps{
		SessionFinder: &mockSessionFinder{
			FindByIDFunc: func(ctx context.Context, id string) (*model.Session, error) { return nil, nil },
		},
		UserFinder: &mockRouterUserFinder{
			FindByIDFunc: func(ctx context.Context, id string) (*model.User, error) { return nil, nil },
		},
		AdminChecker:      &listAdminChecker{},
		RateLimiter:       rl,
		Logger:            slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Collector:         &nopTestCollector{},
		AuthService:       &mockAuthService{},
		AuthConfig:        testAuthConfig(),
		SubmissionService: &mockSubmissionService{},
		EvidenceStore:     &mockEvidenceStore{},
		AdminService:      &mockAdminService{},
		CatalogSeeder:     &mockCatalogSeeder{},
		HealthChecker: &mockHealthChecker{
			PingContextFunc: func(ctx context.Context) error { return nil },
		},
		MetricsGatherer: registry,
	}
	router := NewRouter(deps)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "trainingapp_") {
		t.Error("metrics output should contain trainingapp_ metric families")
	}
}

func TestRouter_LoginRedirects(t *testing.T) {
	router, _, stop := newTestRouter(t)
	defer stop()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/login", nil))

	if rec.Code != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want 307", rec.Code)
	}
}
