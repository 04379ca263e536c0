// Package grpc exposes the credential store services over gRPC using the
// JSON codec from internal/api.
package grpc

import (
	"context"
	"errors"
	"net"

	"github.com/dmitrijs2005/pmvault/internal/api"
	"github.com/dmitrijs2005/pmvault/internal/logging"
	"github.com/dmitrijs2005/pmvault/internal/server/models"
	"github.com/dmitrijs2005/pmvault/internal/server/services"
	"google.golang.org/grpc"
)

type UserService interface {
	Signup(ctx context.Context, username, password string, verification *models.Credential) (*models.User, error)
	Login(ctx context.Context, username, password string, ttlMinutes int) (*services.Token, error)
	ReadUser(ctx context.Context, userID string) (*models.User, error)
}

type CredentialService interface {
	Create(ctx context.Context, userID string, c *models.Credential) (*models.Credential, error)
	List(ctx context.Context, userID string) ([]*models.Credential, error)
}

type ExportService interface {
	Export(ctx context.Context, userID string) (*services.Export, error)
}

type GRPCServer struct {
	address     string
	users       UserService
	credentials CredentialService
	exports     ExportService
	logger      logging.Logger
	jwtSecret   []byte
}

var _ api.CredentialStoreServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, us UserService, cs CredentialService, es ExportService, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:     a,
		logger:      l.With("module", "grpc_server"),
		users:       us,
		credentials: cs,
		exports:     es,
		jwtSecret:   []byte(secretKey),
	}
}

// newServer builds the gRPC server with the service and interceptors
// registered.
func (s *GRPCServer) newServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	srv := grpc.NewServer(opts...)
	api.RegisterCredentialStoreServer(srv, s)
	return srv
}

// Run serves until ctx is cancelled, then stops gracefully.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	stop := context.AfterFunc(ctx, func() {
		s.logger.Info(context.Background(), "Stopping gRPC server...")
		srv.GracefulStop()
	})
	defer stop()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}

	return nil
}
