package health

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/proximity-lock/proximity-lock/internal/logger"
	"github.com/proximity-lock/proximity-lock/internal/proximity"
)

const (
	// MonitorService is the health service name of the monitor as a whole.
	MonitorService = "proximity.Monitor"
	// ScannerService is the health service name tracking the BLE scanner.
	ScannerService = "proximity.Scanner"
)

// ErrNoListenAddress indicates missing listen configuration.
var ErrNoListenAddress = errors.New("no health address configured")

// Server serves the gRPC health protocol for one monitoring session.
type Server struct {
	// address is the TCP listen address.
	address string
	// health holds the per-service statuses.
	health *grpchealth.Server
}

// NewServer creates a health server; every service starts as SERVING.
func NewServer(address string) *Server {
	hs := grpchealth.NewServer()
	hs.SetServingStatus(MonitorService, healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ScannerService, healthpb.HealthCheckResponse_SERVING)

	return &Server{address: address, health: hs}
}

// Emit updates the scanner status from engine events.
func (s *Server) Emit(event proximity.Event) {
	switch event.Kind {
	case proximity.EventScannerRestarted:
		s.health.SetServingStatus(ScannerService, healthpb.HealthCheckResponse_NOT_SERVING)
	case proximity.EventScannerRecovered:
		s.health.SetServingStatus(ScannerService, healthpb.HealthCheckResponse_SERVING)
	default:
	}
}

// Run listens on the configured address and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	if s.address == "" {
		return ErrNoListenAddress
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", s.address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.address, err)
	}

	return s.Serve(ctx, lis)
}

// Serve serves on an existing listener until ctx is canceled.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	ctx = logger.WithName(ctx, "health")

	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, s.health)

	logger.InfoKV(ctx, "Health endpoint listening", "listen_address", lis.Addr().String())

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		// Tell watchers the monitor is going away before closing connections.
		s.health.Shutdown()
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "Health endpoint stopped")

	return nil
}

var _ proximity.EventSink = (*Server)(nil)
