package transportgrpc

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	grpcinterceptors "github.com/arklim/daily-tracker/internal/transport/grpc/interceptors"
)

func startServer(t *testing.T, deps ServerDependencies) (*Server, healthpb.HealthClient) {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(deps)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		srv.GracefulStop()
		<-done
	})
	return srv, healthpb.NewHealthClient(conn)
}

func check(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("check %q: %v", service, err)
	}
	return resp.GetStatus()
}

func TestHealthServingWhenProbesPass(t *testing.T) {
	srv, client := startServer(t, ServerDependencies{
		Logger: zaptest.NewLogger(t),
		Probes: []Probe{{Name: "store", Check: func(context.Context) error { return nil }}},
	})
	srv.Refresh(context.Background())

	for _, service := range []string{"", TrackerService, "store"} {
		if got := check(t, client, service); got != healthpb.HealthCheckResponse_SERVING {
			t.Fatalf("%q: expected SERVING, got %v", service, got)
		}
	}
}

func TestHealthNotServingWhenProbeFails(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)

	srv, client := startServer(t, ServerDependencies{
		Logger: zaptest.NewLogger(t),
		Probes: []Probe{
			{Name: "store", Check: func(context.Context) error { return nil }},
			{Name: "redis", Check: func(context.Context) error {
				if failing.Load() {
					return errors.New("connection refused")
				}
				return nil
			}},
		},
	})

	if srv.Refresh(context.Background()) {
		t.Fatalf("expected refresh to report failure")
	}
	if got := check(t, client, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING, got %v", got)
	}
	if got := check(t, client, "store"); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("store: expected SERVING, got %v", got)
	}

	failing.Store(false)
	srv.Refresh(context.Background())
	if got := check(t, client, TrackerService); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected recovery to SERVING, got %v", got)
	}
}

func TestHealthUnknownServiceAndInstrumentation(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := grpcinterceptors.NewGRPCMetrics(grpcinterceptors.GRPCMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, client := startServer(t, ServerDependencies{
		Logger:  zaptest.NewLogger(t),
		Metrics: metrics,
		Tracing: &grpcinterceptors.TracingOptions{TracerProvider: tp},
	})

	_, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "nope"})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound for unknown service, got %v", err)
	}

	got, err := testutil.GatherAndCount(registry, "tracker_grpc_requests_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected one request series, got %d", got)
	}

	// the server span ends after the response is written
	deadline := time.Now().Add(time.Second)
	for len(recorder.Ended()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if len(recorder.Ended()) == 0 {
		t.Fatalf("expected a server span to be recorded")
	}
}
