package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/oggyb/ffm-club/internal/config"
)

// NewGRPCServer builds a gRPC server with logging, metrics and auth
// interceptors and registers all provided services.
func NewGRPCServer(cfg *config.Config, log *slog.Logger, authn Authenticator, registrars ...Registrar) *grpc.Server {
	gate := &authGate{
		authn:    authn,
		required: cfg.Auth.Required,
		public:   publicMethods(registrars),
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(loggingUnary(log), gate.unary()),
		grpc.ChainStreamInterceptor(loggingStream(log), gate.stream()),
	)

	// register all services
	for _, r := range registrars {
		r.Register(grpcServer)
	}

	// enable reflection for easier debugging with grpcurl
	reflection.Register(grpcServer)

	return grpcServer
}

// StartGRPCServer serves on cfg.GRPC until ctx is done, then stops
// gracefully.
func StartGRPCServer(ctx context.Context, cfg *config.Config, log *slog.Logger, authn Authenticator, registrars ...Registrar) error {
	addr := fmt.Sprintf("%s:%s", cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	grpcServer := NewGRPCServer(cfg, log, authn, registrars...)
	go func() {
		<-ctx.Done()
		log.Info("stopping gRPC server")
		grpcServer.GracefulStop()
	}()

	log.Info("starting gRPC server", "addr", addr)
	return grpcServer.Serve(lis)
}
