package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/pmvault/internal/api"
	"github.com/dmitrijs2005/pmvault/internal/common"
	"github.com/dmitrijs2005/pmvault/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// toStatus maps service errors onto gRPC codes. Unexpected errors are
// logged and hidden from the caller.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}

func (s *GRPCServer) Ping(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String("OK"), nil
}

func (s *GRPCServer) Signup(ctx context.Context, req *api.SignupRequest) (*api.SignupResponse, error) {
	user, err := s.users.Signup(ctx, req.Username, req.Password, models.FromAPI(req.Verification))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "username", user.UserName, "user_id", user.ID)
	return &api.SignupResponse{UserID: user.ID}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *api.LoginRequest) (*api.LoginResponse, error) {
	token, err := s.users.Login(ctx, req.Username, req.Password, req.TTLMinutes)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &api.LoginResponse{
		AccessToken: token.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   token.ExpiresAt,
	}, nil
}

func (s *GRPCServer) ReadUser(ctx context.Context, _ *api.ReadUserRequest) (*api.ReadUserResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.users.ReadUser(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &api.ReadUserResponse{UserID: user.ID, Username: user.UserName}, nil
}

func (s *GRPCServer) ListCredentials(ctx context.Context, _ *api.ListCredentialsRequest) (*api.ListCredentialsResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	list, err := s.credentials.List(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	resp := &api.ListCredentialsResponse{Credentials: make([]api.Credential, 0, len(list))}
	for _, c := range list {
		resp.Credentials = append(resp.Credentials, c.API())
	}
	return resp, nil
}

func (s *GRPCServer) CreateCredential(ctx context.Context, req *api.CreateCredentialRequest) (*api.CreateCredentialResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	c, err := s.credentials.Create(ctx, userID, models.FromAPI(req.Credential))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &api.CreateCredentialResponse{ID: c.ID, CreatedAt: c.CreatedAt}, nil
}

func (s *GRPCServer) ExportVault(ctx context.Context, _ *api.ExportVaultRequest) (*api.ExportVaultResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	exp, err := s.exports.Export(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Vault exported", "user_id", userID, "key", exp.Key, "records", exp.Count)
	return &api.ExportVaultResponse{
		Key:       exp.Key,
		URL:       exp.URL,
		Count:     exp.Count,
		ExpiresAt: exp.ExpiresAt,
	}, nil
}
