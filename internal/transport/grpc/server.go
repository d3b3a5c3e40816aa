package transportgrpc

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcinterceptors "github.com/arklim/daily-tracker/internal/transport/grpc/interceptors"
)

const (
	// TrackerService is the health service name reported alongside the overall "" entry.
	TrackerService = "tracker.v1.Tracker"

	defaultProbeInterval = 15 * time.Second
	probeTimeout         = 2 * time.Second
)

// Probe checks one dependency; a non-nil error marks the service NOT_SERVING.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// ServerDependencies encapsulates what the gRPC server layer needs.
type ServerDependencies struct {
	Logger        *zap.Logger
	Metrics       *grpcinterceptors.GRPCMetrics
	Tracing       *grpcinterceptors.TracingOptions
	Probes        []Probe
	ProbeInterval time.Duration
}

// Server serves the standard grpc.health.v1 service backed by dependency probes.
type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	probes   []Probe
	interval time.Duration
	logger   *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

// NewServer wires health, reflection and instrumentation.
func NewServer(deps ServerDependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := deps.ProbeInterval
	if interval <= 0 {
		interval = defaultProbeInterval
	}

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(deps.Metrics.UnaryServerInterceptor()),
	}
	if deps.Tracing != nil {
		opts = append(opts, grpcinterceptors.ServerTracing(*deps.Tracing))
	}

	srv := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	// NOT_SERVING until the first probe round completes.
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(TrackerService, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{
		grpc:     srv,
		health:   hs,
		probes:   deps.Probes,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Refresh runs every probe once and publishes the resulting statuses.
// Each probe is also reported under its own name.
func (s *Server) Refresh(ctx context.Context) bool {
	serving := true
	for _, p := range s.probes {
		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := p.Check(pctx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			serving = false
			status = healthpb.HealthCheckResponse_NOT_SERVING
			s.logger.Warn("health probe failed", zap.String("probe", p.Name), zap.Error(err))
		}
		s.health.SetServingStatus(p.Name, status)
	}

	overall := healthpb.HealthCheckResponse_SERVING
	if !serving {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", overall)
	s.health.SetServingStatus(TrackerService, overall)
	return serving
}

// Serve probes once, keeps probing on the configured interval and blocks serving lis.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.Refresh(ctx)
	go s.probeLoop(ctx)

	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func (s *Server) probeLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

// GracefulStop marks every service NOT_SERVING and drains in-flight calls.
func (s *Server) GracefulStop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.health.Shutdown()
		s.grpc.GracefulStop()
	})
}
