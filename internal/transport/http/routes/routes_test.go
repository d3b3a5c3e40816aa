package routes_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"

	"github.com/arklim/daily-tracker/internal/core/domain"
	"github.com/arklim/daily-tracker/internal/infra/config"
	redisrepo "github.com/arklim/daily-tracker/internal/repository/redis"
	"github.com/arklim/daily-tracker/internal/transport/http/middleware"
	httproutes "github.com/arklim/daily-tracker/internal/transport/http/routes"
	"github.com/arklim/daily-tracker/internal/usecase"
)

type fakeIdentity struct{}

func (fakeIdentity) Register(context.Context, usecase.RegistrationInput) (domain.Identity, error) {
	return domain.Identity{ID: "user-1"}, nil
}

func (fakeIdentity) Authenticate(context.Context, string, string) (domain.Identity, error) {
	return domain.Identity{}, domain.ErrInvalidCredentials
}

type fakeTokens struct{}

func (fakeTokens) IssuePair(domain.Identity) (domain.TokenPair, error) {
	return domain.TokenPair{}, nil
}

func (fakeTokens) Refresh(context.Context, string) (domain.TokenPair, domain.Identity, error) {
	return domain.TokenPair{}, domain.Identity{}, domain.ErrInvalidToken
}

func (fakeTokens) ResolveAccessToken(_ context.Context, token string) (domain.Identity, error) {
	if token != "ok" {
		return domain.Identity{}, domain.ErrInvalidToken
	}
	return domain.Identity{ID: "user-1", Email: "a@b.co"}, nil
}

type fakeTracker struct{}

func (fakeTracker) GetHabits(context.Context, string) ([]domain.Habit, error) {
	return []domain.Habit{}, nil
}

func (fakeTracker) CreateHabit(_ context.Context, userID string, d domain.HabitDraft) (domain.Habit, error) {
	return d.Build(userID), nil
}

func (fakeTracker) ToggleHabit(context.Context, string, string) (domain.Habit, error) {
	return domain.Habit{}, domain.ErrNotFound
}

func (fakeTracker) SyncLog(context.Context, string, domain.LogEntry) (domain.DailyLog, error) {
	return domain.DailyLog{}, nil
}

func (fakeTracker) GetTodayLog(_ context.Context, userID string) (domain.DailyLog, error) {
	return domain.EmptyLog(userID, "2024-01-01"), nil
}

func (fakeTracker) GetLogHistory(context.Context, string, string, string) ([]domain.LogEntry, error) {
	return []domain.LogEntry{}, nil
}

func newTestConfig() *config.AppConfig {
	return &config.AppConfig{
		App:  config.AppSettings{Env: "test", Version: "test"},
		CORS: config.CORSSettings{AllowedOrigins: []string{"*"}},
		RateLimit: config.RateLimitSettings{
			WindowDuration:   time.Minute,
			LoginMaxAttempts: 2,
		},
	}
}

func newServices() httproutes.ServiceSet {
	return httproutes.ServiceSet{Identity: fakeIdentity{}, Tokens: fakeTokens{}, Tracker: fakeTracker{}}
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := httproutes.Register(httproutes.Dependencies{
		Config: newTestConfig(),
		Logger: zaptest.NewLogger(t),
	})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if rec.Header().Get(middleware.TraceIDHeader) == "" {
		t.Fatalf("expected trace id header")
	}
}

func TestReadinessUsesStoreCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := httproutes.Register(httproutes.Dependencies{
		Config: newTestConfig(),
		Logger: zaptest.NewLogger(t),
		Store: httproutes.CheckFunc(func(context.Context) error {
			return errors.New("connection refused")
		}),
	})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestMetricsEndpointRecordsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Registerer: reg})
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}

	r := httproutes.Register(httproutes.Dependencies{
		Config:         newTestConfig(),
		Logger:         zaptest.NewLogger(t),
		Services:       newServices(),
		Metrics:        metrics,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	rec := serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tracker_http_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}
}

func TestTrackerRoutesMountedBehindAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := httproutes.Register(httproutes.Dependencies{
		Config:   newTestConfig(),
		Logger:   zaptest.NewLogger(t),
		Services: newServices(),
	})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/v1/tracker/habits", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/tracker/logs/today", nil)
	req.Header.Set("Authorization", "Bearer ok")
	rec = serve(r, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/user/profile", nil)
	req.Header.Set("Authorization", "Bearer ok")
	rec = serve(r, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for profile, got %d", rec.Code)
	}
}

func TestLoginIsRateLimitedPerIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := redisrepo.NewRateLimitRepository(client, redisrepo.SlidingWindowConfig{KeyPrefix: "test:rl"})
	logger := zaptest.NewLogger(t)

	r := httproutes.Register(httproutes.Dependencies{
		Config:      newTestConfig(),
		Logger:      logger,
		Services:    newServices(),
		RateLimiter: middleware.NewRateLimiter(store, logger),
	})

	var codes []int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login/json", strings.NewReader(`{"email":"a@b.co","password":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "203.0.113.7:5555"
		codes = append(codes, serve(r, req).Code)
	}

	want := []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("attempt %d: expected %d, got %d (all: %v)", i+1, want[i], codes[i], codes)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := httproutes.Register(httproutes.Dependencies{Config: newTestConfig(), Services: newServices()})

	req := httptest.NewRequest(http.MethodOptions, "/v1/tracker/habits", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := serve(r, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected wildcard origin, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}
