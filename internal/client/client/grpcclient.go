package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pmvault/internal/api"
	"github.com/dmitrijs2005/pmvault/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// DefaultCallTimeout bounds a single RPC.
const DefaultCallTimeout = 10 * time.Second

// storeAPI is the generated-style stub GRPCClient calls through.
type storeAPI interface {
	Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Signup(ctx context.Context, in *api.SignupRequest, opts ...grpc.CallOption) (*api.SignupResponse, error)
	Login(ctx context.Context, in *api.LoginRequest, opts ...grpc.CallOption) (*api.LoginResponse, error)
	ReadUser(ctx context.Context, in *api.ReadUserRequest, opts ...grpc.CallOption) (*api.ReadUserResponse, error)
	ListCredentials(ctx context.Context, in *api.ListCredentialsRequest, opts ...grpc.CallOption) (*api.ListCredentialsResponse, error)
	CreateCredential(ctx context.Context, in *api.CreateCredentialRequest, opts ...grpc.CallOption) (*api.CreateCredentialResponse, error)
	ExportVault(ctx context.Context, in *api.ExportVaultRequest, opts ...grpc.CallOption) (*api.ExportVaultResponse, error)
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      storeAPI
	callTimeout time.Duration
}

var _ Client = (*GRPCClient)(nil)

type tokenKey struct{}

func withToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

// accessTokenInterceptor moves the token placed on ctx by withToken into
// the outgoing metadata.
func accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if tok, ok := ctx.Value(tokenKey{}).(string); ok && tok != "" {
		ctx = withAccessToken(ctx, tok)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// New connects lazily to the store at endpointURL (host:port). Extra dial
// options are appended after the defaults.
func New(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	dial := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dial...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpointURL, err)
	}
	return &GRPCClient{
		endpointURL: endpointURL,
		conn:        conn,
		client:      api.NewCredentialStoreClient(conn),
		callTimeout: DefaultCallTimeout,
	}, nil
}

// SetCallTimeout changes the per-call deadline. Zero disables it.
func (s *GRPCClient) SetCallTimeout(d time.Duration) {
	s.callTimeout = d
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) callCtx(ctx context.Context, token string) (context.Context, context.CancelFunc) {
	if token != "" {
		ctx = withToken(ctx, token)
	}
	if s.callTimeout > 0 {
		return context.WithTimeout(ctx, s.callTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	ctx, cancel := s.callCtx(ctx, "")
	defer cancel()

	resp, err := s.client.Ping(ctx, &emptypb.Empty{})
	if err != nil {
		return mapError(err)
	}
	if resp.GetValue() != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Signup(ctx context.Context, username, password string, verification api.Credential) error {
	ctx, cancel := s.callCtx(ctx, "")
	defer cancel()

	req := &api.SignupRequest{Username: username, Password: password, Verification: verification}
	if _, err := s.client.Signup(ctx, req); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *GRPCClient) Login(ctx context.Context, username, password string, ttlMinutes int) (*api.LoginResponse, error) {
	ctx, cancel := s.callCtx(ctx, "")
	defer cancel()

	resp, err := s.client.Login(ctx, &api.LoginRequest{Username: username, Password: password, TTLMinutes: ttlMinutes})
	if err != nil {
		return nil, mapError(err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrRejected)
	}
	return resp, nil
}

func (s *GRPCClient) ReadUser(ctx context.Context, token string) (string, error) {
	ctx, cancel := s.callCtx(ctx, token)
	defer cancel()

	resp, err := s.client.ReadUser(ctx, &api.ReadUserRequest{})
	if err != nil {
		return "", mapError(err)
	}
	return resp.Username, nil
}

func (s *GRPCClient) ListCredentials(ctx context.Context, token string) ([]api.Credential, error) {
	ctx, cancel := s.callCtx(ctx, token)
	defer cancel()

	resp, err := s.client.ListCredentials(ctx, &api.ListCredentialsRequest{})
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Credentials, nil
}

func (s *GRPCClient) CreateCredential(ctx context.Context, token string, c api.Credential) (*api.CreateCredentialResponse, error) {
	ctx, cancel := s.callCtx(ctx, token)
	defer cancel()

	resp, err := s.client.CreateCredential(ctx, &api.CreateCredentialRequest{Credential: c})
	if err != nil {
		return nil, mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) ExportVault(ctx context.Context, token string) (*api.ExportVaultResponse, error) {
	ctx, cancel := s.callCtx(ctx, token)
	defer cancel()

	resp, err := s.client.ExportVault(ctx, &api.ExportVaultRequest{})
	if err != nil {
		return nil, mapError(err)
	}
	return resp, nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrUnavailable
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return ErrUnavailable
	case codes.AlreadyExists:
		return ErrConflict
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
