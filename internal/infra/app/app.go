package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/arklim/daily-tracker/internal/core/port"
	"github.com/arklim/daily-tracker/internal/infra/config"
	"github.com/arklim/daily-tracker/internal/infra/database"
	kafkainfra "github.com/arklim/daily-tracker/internal/infra/kafka"
	"github.com/arklim/daily-tracker/internal/infra/logger"
	redisinfra "github.com/arklim/daily-tracker/internal/infra/redis"
	"github.com/arklim/daily-tracker/internal/infra/security"
	"github.com/arklim/daily-tracker/internal/infra/telemetry"
	mongorepo "github.com/arklim/daily-tracker/internal/repository/mongo"
	postgresrepo "github.com/arklim/daily-tracker/internal/repository/postgres"
	redisrepo "github.com/arklim/daily-tracker/internal/repository/redis"
	transportgrpc "github.com/arklim/daily-tracker/internal/transport/grpc"
	grpcinterceptors "github.com/arklim/daily-tracker/internal/transport/grpc/interceptors"
	"github.com/arklim/daily-tracker/internal/transport/http/middleware"
	"github.com/arklim/daily-tracker/internal/transport/http/routes"
	"github.com/arklim/daily-tracker/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// stores is the backend-agnostic view of the selected store driver.
type stores struct {
	identities port.IdentityRepository
	habits     port.HabitRepository
	logs       port.LogRepository
	health     routes.StoreChecker
	close      func(context.Context)
}

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	grpc     *transportgrpc.Server
	grpcAddr string
	closers  []func(context.Context)
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	if cfg.Telemetry.Enabled {
		tp, err := telemetry.NewTracerProvider(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
		a.onClose(func(ctx context.Context) { _ = tp.Shutdown(ctx) })
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.onClose(st.close)

	var (
		redisClient *redisinfra.Client
		locker      port.HabitLocker
		rateStore   port.RateLimitStore
		rateLimiter *middleware.RateLimiter
	)
	if cfg.Redis.Enabled {
		redisClient, err = redisinfra.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn("redis unavailable, continuing without locks and rate limits", zap.Error(err))
			redisClient = nil
		}
	}
	if redisClient != nil {
		a.onClose(func(context.Context) { _ = redisClient.Close() })

		locker = redisrepo.NewHabitLockRepository(redisClient.Client(), cfg.Redis.LockPrefix, cfg.Redis.LockTTL)

		window := cfg.RateLimit.WindowDuration
		if window <= 0 {
			window = time.Minute
		}
		rateStore = redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
			KeyPrefix: "tracker:rate-limit",
			TTL:       2 * window,
		})
		rateLimiter = middleware.NewRateLimiter(rateStore, log)
	}

	events, err := newEventPublisher(cfg, log, a)
	if err != nil {
		return nil, err
	}

	hasher, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}, cfg.Argon2.Workers)
	if err != nil {
		return nil, fmt.Errorf("init password hasher: %w", err)
	}

	issuer, err := security.NewJWTIssuer(cfg.JWT.SecretKey, cfg.JWT.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	policy := security.NewPasswordPolicy(security.DefaultMinPasswordLength, cfg.JWT.PasswordMinScore)

	location := time.Local
	if cfg.App.Timezone != "" {
		location, err = time.LoadLocation(cfg.App.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone: %w", err)
		}
	}

	identityService := usecase.NewIdentityService(st.identities, hasher, policy).
		WithEventPublisher(events).
		WithLogger(log)
	if rateStore != nil {
		identityService.WithLoginLimit(usecase.LoginLimit{
			Store:       rateStore,
			MaxAttempts: cfg.RateLimit.LoginMaxAttempts,
			Window:      cfg.RateLimit.WindowDuration,
		})
	}

	tokenService := usecase.NewTokenService(issuer, st.identities, cfg.JWT.AccessTokenTTL(), cfg.JWT.RefreshTokenTTL())

	engine := usecase.NewGamificationEngine(st.identities).
		WithEventPublisher(events).
		WithLogger(log)

	trackerService := usecase.NewTrackerService(st.habits, st.logs, engine).
		WithEventPublisher(events).
		WithLogger(log).
		WithLocation(location)
	if locker != nil {
		trackerService.WithLocker(locker)
	}

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	deps := routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Metrics:     httpMetrics,
		Store:       st.health,
		Services: routes.ServiceSet{
			Identity: identityService,
			Tokens:   tokenService,
			Tracker:  trackerService,
		},
	}
	if redisClient != nil {
		deps.Cache = redisClient
	}
	a.engine = routes.Register(deps)

	if cfg.GRPC.Enabled {
		if err := a.initGRPC(deps); err != nil {
			return nil, err
		}
	}

	ok = true
	return a, nil
}

func (a *Application) initGRPC(deps routes.Dependencies) error {
	metrics, err := grpcinterceptors.NewGRPCMetrics(grpcinterceptors.GRPCMetricsOptions{})
	if err != nil {
		return fmt.Errorf("init grpc metrics: %w", err)
	}

	var probes []transportgrpc.Probe
	if deps.Store != nil {
		probes = append(probes, transportgrpc.Probe{Name: "store", Check: deps.Store.HealthCheck})
	}
	if deps.Cache != nil {
		probes = append(probes, transportgrpc.Probe{Name: "redis", Check: deps.Cache.HealthCheck})
	}

	serverDeps := transportgrpc.ServerDependencies{
		Logger:        a.logger,
		Metrics:       metrics,
		Probes:        probes,
		ProbeInterval: a.cfg.GRPC.ProbeInterval,
	}
	if a.cfg.Telemetry.Enabled {
		// global provider and propagator installed by telemetry.NewTracerProvider
		serverDeps.Tracing = &grpcinterceptors.TracingOptions{}
	}

	a.grpc = transportgrpc.NewServer(serverDeps)
	a.grpcAddr = net.JoinHostPort(a.cfg.GRPC.Host, strconv.Itoa(a.cfg.GRPC.Port))
	return nil
}

func openStores(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (stores, error) {
	timeout := cfg.Store.OperationTimeout

	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
		if err != nil {
			return stores{}, fmt.Errorf("init postgres: %w", err)
		}
		repos := postgresrepo.NewRepositories(pool, timeout)
		return stores{
			identities: repos.Identities,
			habits:     repos.Habits,
			logs:       repos.Logs,
			health:     routes.CheckFunc(pool.Ping),
			close:      func(context.Context) { pool.Close() },
		}, nil

	default:
		store, err := database.NewMongoStore(ctx, cfg.Mongo, log)
		if err != nil {
			return stores{}, fmt.Errorf("init mongo: %w", err)
		}
		if err := mongorepo.EnsureIndexes(ctx, store.Database); err != nil {
			_ = store.Close(ctx)
			return stores{}, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		repos := mongorepo.NewRepositories(store.Database, timeout)
		return stores{
			identities: repos.Identities,
			habits:     repos.Habits,
			logs:       repos.Logs,
			health:     store,
			close:      func(ctx context.Context) { _ = store.Close(ctx) },
		}, nil
	}
}

func newEventPublisher(cfg *config.AppConfig, log *zap.Logger, a *Application) (port.EventPublisher, error) {
	var publisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			publisher = kafkainfra.NewStubPublisher(log)
		} else {
			a.onClose(func(context.Context) { _ = producer.Close() })
			publisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		publisher = kafkainfra.NewStubPublisher(log)
	}

	metrics, err := telemetry.NewEventMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, fmt.Errorf("init event metrics: %w", err)
	}
	return telemetry.NewInstrumentedPublisher(publisher, metrics), nil
}

func (a *Application) onClose(fn func(context.Context)) {
	a.closers = append(a.closers, fn)
}

// close releases resources in reverse acquisition order.
func (a *Application) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
	a.closers = nil
}

// Handler exposes the configured router, mainly for tests.
func (a *Application) Handler() http.Handler {
	return a.engine
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.close()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting tracker API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
		zap.String("store", a.cfg.Store.Driver),
	)

	grpcErrCh := make(chan error, 1)
	if a.grpc != nil {
		lis, err := net.Listen("tcp", a.grpcAddr)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		a.logger.Info("starting gRPC health server", zap.String("address", a.grpcAddr))
		go func() {
			if err := a.grpc.Serve(ctx, lis); err != nil {
				grpcErrCh <- fmt.Errorf("run grpc server: %w", err)
			}
		}()
		defer a.grpc.GracefulStop()
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		if a.grpc != nil {
			a.grpc.GracefulStop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		a.logger.Info("tracker API stopped")
		return nil
	case err := <-serverErrCh:
		return err
	case err := <-grpcErrCh:
		return err
	}
}
