// Package rfqtest runs the trade API Auth and RFQ services in process over
// bufconn for tests.
package rfqtest

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/kaifufi/valorem-rfq-sdk-go/rpc"
)

const bufSize = 1 << 20

// Server is a running test trade API.
type Server struct {
	Auth  *AuthServer
	Relay *Relay

	lis *bufconn.Listener
	srv *grpc.Server
}

// NewServer starts a server that is stopped when t finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()

	auth := NewAuthServer()
	s := &Server{
		Auth:  auth,
		Relay: NewRelay(auth),
		lis:   bufconn.Listen(bufSize),
		srv:   grpc.NewServer(rpc.ServerOption()),
	}
	rpc.RegisterAuthServer(s.srv, s.Auth)
	rpc.RegisterRFQServer(s.srv, s.Relay)

	go func() {
		_ = s.srv.Serve(s.lis)
	}()
	t.Cleanup(s.srv.Stop)
	return s
}

// DialOptions returns the options that route a client to this server.
func (s *Server) DialOptions() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return s.lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
}

// Target is the dial target to use with DialOptions.
const Target = "passthrough:///bufnet"

// Dial connects a client that is closed when t finishes.
func (s *Server) Dial(t testing.TB) *grpc.ClientConn {
	t.Helper()
	conn, err := grpc.NewClient(Target, s.DialOptions()...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
