package grpc

import (
	"context"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "account.v1.AccountService"

// AccountServiceServer is the server API of account.v1.AccountService. Every
// message is a google.protobuf.Struct holding the JSON form of the matching
// app/types request or response.
type AccountServiceServer interface {
	Register(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Verify(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ResendVerification(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	RefreshAuth(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Logout(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	RequestPasswordReset(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ResetPassword(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ValidateToken(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Profile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	DeleteAccount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ChangePassword(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// privateMethods run only with a live auth token in the call metadata.
var privateMethods = map[string]bool{
	FullMethod("Profile"):        true,
	FullMethod("DeleteAccount"):  true,
	FullMethod("ChangePassword"): true,
}

func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

type unaryMethod func(srv AccountServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

func methodDesc(name string, call unaryMethod) gogrpc.MethodDesc {
	return gogrpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AccountServiceServer), ctx, in)
			}
			info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(AccountServiceServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

var AccountServiceDesc = gogrpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AccountServiceServer)(nil),
	Methods: []gogrpc.MethodDesc{
		methodDesc("Register", AccountServiceServer.Register),
		methodDesc("Verify", AccountServiceServer.Verify),
		methodDesc("ResendVerification", AccountServiceServer.ResendVerification),
		methodDesc("Login", AccountServiceServer.Login),
		methodDesc("RefreshAuth", AccountServiceServer.RefreshAuth),
		methodDesc("Logout", AccountServiceServer.Logout),
		methodDesc("RequestPasswordReset", AccountServiceServer.RequestPasswordReset),
		methodDesc("ResetPassword", AccountServiceServer.ResetPassword),
		methodDesc("ValidateToken", AccountServiceServer.ValidateToken),
		methodDesc("Profile", AccountServiceServer.Profile),
		methodDesc("DeleteAccount", AccountServiceServer.DeleteAccount),
		methodDesc("ChangePassword", AccountServiceServer.ChangePassword),
	},
	Streams:  []gogrpc.StreamDesc{},
	Metadata: "account/v1/account.proto",
}

func RegisterAccountServiceServer(s gogrpc.ServiceRegistrar, srv AccountServiceServer) {
	s.RegisterService(&AccountServiceDesc, srv)
}

// AccountServiceClient calls account.v1.AccountService over conn.
type AccountServiceClient struct {
	conn gogrpc.ClientConnInterface
}

func NewAccountServiceClient(conn gogrpc.ClientConnInterface) *AccountServiceClient {
	return &AccountServiceClient{conn: conn}
}

// Call invokes method with in and returns the response struct.
func (c *AccountServiceClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...gogrpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
