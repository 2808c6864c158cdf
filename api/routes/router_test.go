package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/recruitment-backend/api/controllers"
	"github.com/angelmondragon/recruitment-backend/internal/allotments"
	"github.com/angelmondragon/recruitment-backend/internal/applications"
	"github.com/angelmondragon/recruitment-backend/internal/merit"
	pkgAuth "github.com/angelmondragon/recruitment-backend/pkg/auth"
	"github.com/angelmondragon/recruitment-backend/pkg/config"
	"github.com/angelmondragon/recruitment-backend/pkg/db/models"
	"github.com/angelmondragon/recruitment-backend/pkg/enums"
	"github.com/angelmondragon/recruitment-backend/pkg/logger"
	"github.com/angelmondragon/recruitment-backend/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubAllotments struct {
	allotments.Service
	seen []uuid.UUID
}

func (s *stubAllotments) GetSchedule(ctx context.Context, id uuid.UUID) (*allotments.ScheduleView, error) {
	s.seen = append(s.seen, id)
	return &allotments.ScheduleView{Schedule: models.AllotmentEmailSchedule{ID: id, Status: enums.AllotmentScheduleScheduled}}, nil
}

type stubApplications struct {
	applications.Service
	withdrawn []applications.WithdrawInput
}

func (s *stubApplications) Withdraw(ctx context.Context, input applications.WithdrawInput) (*models.Application, error) {
	s.withdrawn = append(s.withdrawn, input)
	return &models.Application{ID: input.ApplicationID, ApplicantID: input.ApplicantID, Status: enums.ApplicationStatusWithdrawn}, nil
}

type stubMerit struct {
	merit.Service
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", CORSAllowedOrigins: []string{"http://localhost:3000"}},
		Auth: config.AuthConfig{
			JWTSecret: "router-secret",
			JWTIssuer: "recruitment-auth",
		},
	}
}

func newTestRouter(t *testing.T, svc *stubAllotments) (http.Handler, *prometheus.Registry) {
	t.Helper()
	return newTestRouterWith(t, svc, &stubApplications{})
}

func newTestRouterWith(t *testing.T, svc *stubAllotments, apps *stubApplications) (http.Handler, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	router := NewRouter(
		testConfig(),
		logg,
		reg,
		metrics.NewHTTPMetrics(reg),
		map[string]controllers.Pinger{"db": stubPinger{}},
		apps,
		stubMerit{},
		svc,
	)
	return router, reg
}

func mint(t *testing.T, role string) string {
	t.Helper()
	return mintFor(t, uuid.New(), role)
}

func mintFor(t *testing.T, subject uuid.UUID, role string) string {
	t.Helper()
	token, err := pkgAuth.MintAdminToken(testConfig().Auth, time.Now(), time.Hour, pkgAuth.AdminTokenPayload{
		AdminID: subject,
		Role:    role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthRoutesArePublic(t *testing.T) {
	router, _ := newTestRouter(t, &stubAllotments{})

	for _, path := range []string{"/health/live", "/health/ready"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
	}
}

func TestAdminRoutesRequireAdminToken(t *testing.T) {
	svc := &stubAllotments{}
	router, _ := newTestRouter(t, svc)
	path := "/api/admin/v1/allotment-schedules/" + uuid.NewString()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+mint(t, "APPLICANT"))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin role, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for malformed token, got %d", w.Code)
	}

	if len(svc.seen) != 0 {
		t.Fatalf("service must not be reached without an admin token")
	}
}

func TestAdminRouteDispatchesWithPathParam(t *testing.T) {
	svc := &stubAllotments{}
	router, reg := newTestRouter(t, svc)
	id := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/allotment-schedules/"+id.String(), nil)
	req.Header.Set("Authorization", "Bearer "+mint(t, pkgAuth.RoleAdmin))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(svc.seen) != 1 || svc.seen[0] != id {
		t.Fatalf("expected schedule %s to be requested, got %v", id, svc.seen)
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() != "http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "route" && strings.Contains(label.GetValue(), "{scheduleId}") {
					found = true
				}
			}
		}
	}
	if !found {
		t.Fatalf("expected request metric labelled with the route pattern")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &stubAllotments{})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", w.Code)
	}
}

func TestApplicantWithdrawRoute(t *testing.T) {
	apps := &stubApplications{}
	router, _ := newTestRouterWith(t, &stubAllotments{}, apps)
	applicantID := uuid.New()
	applicationID := uuid.New()
	path := "/api/applicant/v1/applications/" + applicationID.String() + "/withdraw"

	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("Authorization", "Bearer "+mintFor(t, uuid.New(), pkgAuth.RoleAdmin))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for admin token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("Authorization", "Bearer "+mintFor(t, applicantID, pkgAuth.RoleApplicant))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(apps.withdrawn) != 1 {
		t.Fatalf("expected one withdraw call, got %d", len(apps.withdrawn))
	}
	got := apps.withdrawn[0]
	if got.ApplicationID != applicationID || got.ApplicantID != applicantID {
		t.Fatalf("unexpected withdraw input %+v", got)
	}
}
