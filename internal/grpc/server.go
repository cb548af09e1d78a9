// Package grpc serves the operational gRPC endpoint: standard health checks
// backed by the storefront health checker, plus server reflection.
package grpc

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/pmgasset/nomadtech/internal/health"
)

// ServiceName is the name clients may ask about in addition to "".
const ServiceName = "nomadtech.storefront"

type Reporter interface {
	Check(ctx context.Context) health.Report
}

type HealthServer struct {
	healthpb.UnimplementedHealthServer
	reporter Reporter
	logger   *slog.Logger
}

func NewHealthServer(reporter Reporter, logger *slog.Logger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthServer{reporter: reporter, logger: logger}
}

// Check reports SERVING while the storefront can take orders. A degraded
// report (e.g. email not configured) still serves.
func (s *HealthServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if svc := req.GetService(); svc != "" && svc != ServiceName {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", svc)
	}

	report := s.reporter.Check(ctx)
	resp := &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}
	if !report.Serving() {
		s.logger.Warn("health check not serving", "errors", report.Errors)
		resp.Status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	return resp, nil
}

// NewServer builds a gRPC server with health and reflection registered.
func NewServer(reporter Reporter, logger *slog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.StatsHandler(otelgrpc.NewServerHandler())}, opts...)
	srv := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(srv, NewHealthServer(reporter, logger))

	// Enable reflection for grpcurl/grpcui
	reflection.Register(srv)
	return srv
}
