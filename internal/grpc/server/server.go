package server

import (
	"context"
	"time"

	"github.com/AlexMickh/exoterra-chat/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

const checkTimeout = 3 * time.Second

// Check reports whether a dependency is reachable.
type Check = func(ctx context.Context) error

// Server answers the standard gRPC health protocol. The empty service name
// covers every dependency, a dependency name covers only that one.
type Server struct {
	grpc_health_v1.UnimplementedHealthServer
	checks map[string]Check
}

func New(checks map[string]Check) *Server {
	return &Server{
		checks: checks,
	}
}

func Register(gs *grpc.Server, s *Server) {
	grpc_health_v1.RegisterHealthServer(gs, s)
}

func (s *Server) Check(
	ctx context.Context,
	req *grpc_health_v1.HealthCheckRequest,
) (*grpc_health_v1.HealthCheckResponse, error) {
	const op = "grpc.server.Check"

	ctx = logger.GetFromCtx(ctx).With(
		ctx,
		zap.String("op", op),
		zap.String("service", req.GetService()),
	)

	checks := s.checks
	if name := req.GetService(); name != "" {
		check, ok := s.checks[name]
		if !ok {
			return nil, status.Error(codes.NotFound, "unknown service")
		}
		checks = map[string]Check{name: check}
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	for name, check := range checks {
		if err := check(ctx); err != nil {
			logger.GetFromCtx(ctx).Warn(ctx, "dependency is down",
				zap.String("dependency", name),
				zap.Error(err),
			)
			return &grpc_health_v1.HealthCheckResponse{
				Status: grpc_health_v1.HealthCheckResponse_NOT_SERVING,
			}, nil
		}
	}

	return &grpc_health_v1.HealthCheckResponse{
		Status: grpc_health_v1.HealthCheckResponse_SERVING,
	}, nil
}
