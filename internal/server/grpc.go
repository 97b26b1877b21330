package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthhandler "volunteer-platform/backend/internal/health/handler"
)

// RegisterServices registers the gRPC services with s. Only the standard health service is
// exposed over gRPC, for load balancers and orchestrators.
func RegisterServices(s grpc.ServiceRegistrar, checker *healthhandler.Checker) {
	healthpb.RegisterHealthServer(s, healthhandler.NewGRPCServer(checker))
}

// NewGRPCServer returns a gRPC server with OpenTelemetry stats and the health service registered.
func NewGRPCServer(checker *healthhandler.Checker) *grpc.Server {
	s := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	RegisterServices(s, checker)
	return s
}
