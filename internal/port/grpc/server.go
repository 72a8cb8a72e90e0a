package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/app/config"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/platform/logger"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the name reported by the health service alongside the
// overall ("") status.
const ServiceName = "storefront.Storefront"

// Server exposes health checking and reflection for the storefront so it can
// sit behind gRPC-aware load balancers and orchestrators.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	log        logger.Logger
	port       string
}

func NewServer(log logger.Logger, cfg config.GRPCServerConfig) *Server {
	serverOpts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     cfg.MaxConnectionIdle,
			Timeout:               20 * time.Second,
			MaxConnectionAge:      cfg.MaxConnectionIdle,
			Time:                  cfg.MaxConnectionIdle,
			MaxConnectionAgeGrace: 5 * time.Second,
		}),
	}

	grpcServer := grpc.NewServer(serverOpts...)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	reflection.Register(grpcServer)

	return &Server{
		grpcServer: grpcServer,
		health:     healthServer,
		log:        log,
		port:       cfg.Port,
	}
}

// SetServing flips both the overall and the storefront status.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

func (s *Server) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", s.port, err)
	}
	return s.Serve(lis)
}

// Serve marks the server SERVING and blocks on lis.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Infof("gRPC health server is starting on %s", lis.Addr())
	s.SetServing(true)

	if err := s.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("gRPC server failed to serve: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Stopping gRPC health server")
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		s.log.Warn("gRPC drain deadline exceeded, closing open connections")
		s.grpcServer.Stop()
		return ctx.Err()
	case <-stopped:
		s.log.Info("gRPC health server stopped")
		return nil
	}
}
