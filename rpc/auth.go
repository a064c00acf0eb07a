package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const (
	Auth_Nonce_FullMethodName        = "/valorem.trade.v1.Auth/Nonce"
	Auth_Verify_FullMethodName       = "/valorem.trade.v1.Auth/Verify"
	Auth_Authenticate_FullMethodName = "/valorem.trade.v1.Auth/Authenticate"
)

// AuthClient is the sign-in handshake. Nonce returns the session cookie in a
// set-cookie header; later calls must echo it in a cookie header.
type AuthClient interface {
	Nonce(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*NonceText, error)
	Verify(ctx context.Context, in *VerifyText, opts ...grpc.CallOption) (*Empty, error)
	Authenticate(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
}

type authClient struct {
	cc grpc.ClientConnInterface
}

func NewAuthClient(cc grpc.ClientConnInterface) AuthClient {
	return &authClient{cc}
}

func (c *authClient) Nonce(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*NonceText, error) {
	out := new(NonceText)
	if err := c.cc.Invoke(ctx, Auth_Nonce_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *authClient) Verify(ctx context.Context, in *VerifyText, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.cc.Invoke(ctx, Auth_Verify_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *authClient) Authenticate(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.cc.Invoke(ctx, Auth_Authenticate_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// AuthServer is the server API for the Auth service.
type AuthServer interface {
	Nonce(context.Context, *Empty) (*NonceText, error)
	Verify(context.Context, *VerifyText) (*Empty, error)
	Authenticate(context.Context, *Empty) (*Empty, error)
}

// RegisterAuthServer registers srv on s. The server must be created with ServerOption.
func RegisterAuthServer(s grpc.ServiceRegistrar, srv AuthServer) {
	s.RegisterService(&Auth_ServiceDesc, srv)
}

func _Auth_Nonce_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthServer).Nonce(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Auth_Nonce_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AuthServer).Nonce(ctx, req.(*Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _Auth_Verify_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(VerifyText)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthServer).Verify(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Auth_Verify_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AuthServer).Verify(ctx, req.(*VerifyText))
	}
	return interceptor(ctx, in, info, handler)
}

func _Auth_Authenticate_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthServer).Authenticate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Auth_Authenticate_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AuthServer).Authenticate(ctx, req.(*Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// Auth_ServiceDesc is the grpc.ServiceDesc for the Auth service.
var Auth_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "valorem.trade.v1.Auth",
	HandlerType: (*AuthServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Nonce", Handler: _Auth_Nonce_Handler},
		{MethodName: "Verify", Handler: _Auth_Verify_Handler},
		{MethodName: "Authenticate", Handler: _Auth_Authenticate_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "valorem/trade/v1/auth.proto",
}
