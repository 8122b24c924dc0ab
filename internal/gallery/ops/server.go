// Package ops runs the gRPC operations server: health checking and
// reflection behind the same logging, recovery and authentication chain the
// service uses.
package ops

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	reflectionpb "google.golang.org/grpc/reflection/grpc_reflection_v1"
	reflectionv1alpha "google.golang.org/grpc/reflection/grpc_reflection_v1alpha"

	"github.com/narwhalmedia/gallery/pkg/auth"
	"github.com/narwhalmedia/gallery/pkg/interfaces"
	"github.com/narwhalmedia/gallery/pkg/logger"
)

// ServiceName is the health service name reported for the gallery.
const ServiceName = "gallery.v1.Gallery"

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// publicMethods are served without credentials.
var publicMethods = []string{
	healthpb.Health_Check_FullMethodName,
	healthpb.Health_Watch_FullMethodName,
	reflectionpb.ServerReflection_ServerReflectionInfo_FullMethodName,
	reflectionv1alpha.ServerReflection_ServerReflectionInfo_FullMethodName,
}

// Server is the gRPC operations server.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	checks []Check
	logger interfaces.Logger
}

// NewServer builds the server. checks decide the serving status reported by
// the health service.
func NewServer(resolver auth.Resolver, log interfaces.Logger, checks ...Check) *Server {
	authInterceptor := auth.NewInterceptor(resolver, publicMethods...)

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logger.UnaryServerInterceptor(log),
			UnaryRecoveryInterceptor(log),
			authInterceptor.UnaryServerInterceptor(),
		),
		grpc.ChainStreamInterceptor(
			logger.StreamServerInterceptor(log),
			StreamRecoveryInterceptor(log),
			authInterceptor.StreamServerInterceptor(),
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &Server{grpc: srv, health: hs, checks: checks, logger: log}
}

// GRPC returns the underlying server for registering further services.
func (s *Server) GRPC() *grpc.Server {
	return s.grpc
}

// Refresh runs the checks once and publishes the result.
func (s *Server) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for _, check := range s.checks {
		if err := check(ctx); err != nil {
			s.logger.WithContext(ctx).Warn("Health check failed", interfaces.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
			break
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	return status
}

// Watch refreshes the health status every interval until ctx is done.
func (s *Server) Watch(ctx context.Context, interval time.Duration) {
	s.Refresh(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

// Shutdown marks the service as not serving and stops the server
// gracefully.
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
