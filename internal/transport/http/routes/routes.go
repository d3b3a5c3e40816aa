package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arklim/daily-tracker/internal/infra/config"
	"github.com/arklim/daily-tracker/internal/transport/http/handlers"
	"github.com/arklim/daily-tracker/internal/transport/http/middleware"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Identity handlers.IdentityService
	Tokens   handlers.TokenService
	Tracker  handlers.TrackerService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Metrics     *middleware.HTTPMetrics
	// MetricsHandler serves /metrics; promhttp.Handler() when nil.
	MetricsHandler http.Handler
	Store          StoreChecker
	Cache          CacheChecker
}

// StoreChecker exposes readiness behaviour for the document or SQL store.
type StoreChecker interface {
	HealthCheck(ctx context.Context) error
}

// CheckFunc adapts a plain function, such as pgxpool.Pool.Ping, to a checker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) HealthCheck(ctx context.Context) error {
	return f(ctx)
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Config == nil {
		deps.Config = &config.AppConfig{}
	}
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(deps.Config.CORS.AllowedOrigins))
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	healthOptions := []handlers.HealthOption{handlers.WithVersion(deps.Config.App.Version)}
	if deps.Store != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("store", deps.Store.HealthCheck))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/health", healthHandler.Status)
	r.GET("/ready", healthHandler.Readiness)

	metricsHandler := deps.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.GET("/metrics", gin.WrapH(metricsHandler))

	api := r.Group("/v1")

	if deps.Services.Identity != nil && deps.Services.Tokens != nil {
		authHandler := handlers.NewAuthHandler(deps.Services.Identity, deps.Services.Tokens)
		authHandler.RegisterRoutes(api.Group("/auth"), buildAuthLimits(deps))

		userGroup := api.Group("/user")
		userGroup.Use(middleware.RequireAuth(deps.Services.Tokens))
		authHandler.RegisterUserRoutes(userGroup)

		if deps.Services.Tracker != nil {
			trackerGroup := api.Group("/tracker")
			trackerGroup.Use(middleware.RequireAuth(deps.Services.Tokens))
			handlers.NewTrackerHandler(deps.Services.Tracker).RegisterRoutes(trackerGroup)
		}
	}

	return r
}

func buildAuthLimits(deps Dependencies) handlers.AuthLimits {
	if deps.RateLimiter == nil {
		return handlers.AuthLimits{}
	}

	settings := deps.Config.RateLimit
	window := settings.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	return handlers.AuthLimits{
		Login:    ipLimit(deps.RateLimiter, "auth_login_ip", settings.LoginMaxAttempts, window),
		Register: ipLimit(deps.RateLimiter, "auth_register_ip", settings.RegisterMaxAttempts, window),
		Refresh:  ipLimit(deps.RateLimiter, "auth_refresh_ip", settings.RefreshMaxAttempts, window),
	}
}

func ipLimit(limiter *middleware.RateLimiter, name string, limit int, window time.Duration) []gin.HandlerFunc {
	if limit <= 0 {
		return nil
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}
	return []gin.HandlerFunc{limiter.RateLimit(rule)}
}
