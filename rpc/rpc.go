package rpc

import (
	"errors"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/strangeindustries/scrumpoker/logger"
)

// ServiceName is the health-check service name reported alongside the
// overall ("") server status.
const ServiceName = "scrumpoker.Rooms"

// Server is the admin gRPC listener. It exposes grpc.health.v1.Health so
// orchestrators can probe readiness independently of the WebSocket port.
type Server struct {
	listener   net.Listener
	address    string
	grpcServer *grpc.Server
	health     *health.Server
}

// NewServer binds addr. The health status stays NOT_SERVING until Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{
		listener:   listener,
		address:    listener.Addr().String(),
		grpcServer: gs,
		health:     hs,
	}, nil
}

// Addr returns the bound address, useful when addr had port 0.
func (s *Server) Addr() string {
	return s.address
}

// Start marks the service SERVING and blocks serving requests until Stop.
func (s *Server) Start() error {
	logger.Log.Infof("RPC server listening on %s", s.address)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	if err := s.grpcServer.Serve(s.listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Drain flips every service to NOT_SERVING while connections stay open, so
// probes see the shutdown before the listener goes away.
func (s *Server) Drain() {
	s.health.Shutdown()
}

// Stop closes the listener after in-flight RPCs finish.
func (s *Server) Stop() {
	logger.Log.Info("Stopping RPC server.")
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
