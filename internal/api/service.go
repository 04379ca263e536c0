package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "pmvault.v1.CredentialStore"

const (
	MethodPing             = "/" + ServiceName + "/Ping"
	MethodSignup           = "/" + ServiceName + "/Signup"
	MethodLogin            = "/" + ServiceName + "/Login"
	MethodReadUser         = "/" + ServiceName + "/ReadUser"
	MethodListCredentials  = "/" + ServiceName + "/ListCredentials"
	MethodCreateCredential = "/" + ServiceName + "/CreateCredential"
	MethodExportVault      = "/" + ServiceName + "/ExportVault"
)

// CredentialStoreServer is implemented by the remote credential store.
type CredentialStoreServer interface {
	Ping(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	Signup(context.Context, *SignupRequest) (*SignupResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	ReadUser(context.Context, *ReadUserRequest) (*ReadUserResponse, error)
	ListCredentials(context.Context, *ListCredentialsRequest) (*ListCredentialsResponse, error)
	CreateCredential(context.Context, *CreateCredentialRequest) (*CreateCredentialResponse, error)
	ExportVault(context.Context, *ExportVaultRequest) (*ExportVaultResponse, error)
}

func RegisterCredentialStoreServer(s grpc.ServiceRegistrar, srv CredentialStoreServer) {
	s.RegisterService(&ServiceDesc, srv)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CredentialStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: unary(MethodPing, CredentialStoreServer.Ping)},
		{MethodName: "Signup", Handler: unary(MethodSignup, CredentialStoreServer.Signup)},
		{MethodName: "Login", Handler: unary(MethodLogin, CredentialStoreServer.Login)},
		{MethodName: "ReadUser", Handler: unary(MethodReadUser, CredentialStoreServer.ReadUser)},
		{MethodName: "ListCredentials", Handler: unary(MethodListCredentials, CredentialStoreServer.ListCredentials)},
		{MethodName: "CreateCredential", Handler: unary(MethodCreateCredential, CredentialStoreServer.CreateCredential)},
		{MethodName: "ExportVault", Handler: unary(MethodExportVault, CredentialStoreServer.ExportVault)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pmvault/v1/credential_store",
}

func unary[Req, Resp any](fullMethod string, call func(CredentialStoreServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(CredentialStoreServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// CredentialStoreClient calls the service over a gRPC connection using the
// JSON codec.
type CredentialStoreClient struct {
	cc grpc.ClientConnInterface
}

func NewCredentialStoreClient(cc grpc.ClientConnInterface) *CredentialStoreClient {
	return &CredentialStoreClient{cc: cc}
}

func invoke[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in *Req, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CredentialStoreClient) Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke[emptypb.Empty, wrapperspb.StringValue](ctx, c.cc, MethodPing, in, opts)
}

func (c *CredentialStoreClient) Signup(ctx context.Context, in *SignupRequest, opts ...grpc.CallOption) (*SignupResponse, error) {
	return invoke[SignupRequest, SignupResponse](ctx, c.cc, MethodSignup, in, opts)
}

func (c *CredentialStoreClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginRequest, LoginResponse](ctx, c.cc, MethodLogin, in, opts)
}

func (c *CredentialStoreClient) ReadUser(ctx context.Context, in *ReadUserRequest, opts ...grpc.CallOption) (*ReadUserResponse, error) {
	return invoke[ReadUserRequest, ReadUserResponse](ctx, c.cc, MethodReadUser, in, opts)
}

func (c *CredentialStoreClient) ListCredentials(ctx context.Context, in *ListCredentialsRequest, opts ...grpc.CallOption) (*ListCredentialsResponse, error) {
	return invoke[ListCredentialsRequest, ListCredentialsResponse](ctx, c.cc, MethodListCredentials, in, opts)
}

func (c *CredentialStoreClient) CreateCredential(ctx context.Context, in *CreateCredentialRequest, opts ...grpc.CallOption) (*CreateCredentialResponse, error) {
	return invoke[CreateCredentialRequest, CreateCredentialResponse](ctx, c.cc, MethodCreateCredential, in, opts)
}

func (c *CredentialStoreClient) ExportVault(ctx context.Context, in *ExportVaultRequest, opts ...grpc.CallOption) (*ExportVaultResponse, error) {
	return invoke[ExportVaultRequest, ExportVaultResponse](ctx, c.cc, MethodExportVault, in, opts)
}
