package rfqtest

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/spruceid/siwe-go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/kaifufi/valorem-rfq-sdk-go/rpc"
)

// SessionCookie is the cookie name the test server issues.
const SessionCookie = "rfq_session"

type authSession struct {
	nonce    string
	address  common.Address
	verified bool
}

// AuthServer implements the sign-in handshake with EIP-4361 verification.
type AuthServer struct {
	// ChainID, when set, must match the chain id in signed messages.
	ChainID int64

	mu         sync.Mutex
	sessions   map[string]*authSession
	nonceCalls int
}

var _ rpc.AuthServer = (*AuthServer)(nil)

func NewAuthServer() *AuthServer {
	return &AuthServer{sessions: make(map[string]*authSession)}
}

func (a *AuthServer) Nonce(ctx context.Context, _ *rpc.Empty) (*rpc.NonceText, error) {
	id := uuid.NewString()
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")

	a.mu.Lock()
	a.sessions[id] = &authSession{nonce: nonce}
	a.nonceCalls++
	a.mu.Unlock()

	cookie := &http.Cookie{Name: SessionCookie, Value: id, Path: "/", HttpOnly: true}
	if err := grpc.SetHeader(ctx, metadata.Pairs("set-cookie", cookie.String())); err != nil {
		return nil, err
	}
	return &rpc.NonceText{Nonce: nonce}, nil
}

func (a *AuthServer) Verify(ctx context.Context, in *rpc.VerifyText) (*rpc.Empty, error) {
	var body struct {
		Message   string `json:"message"`
		Signature string `json:"signature"`
	}
	if err := json.Unmarshal([]byte(in.Body), &body); err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid verify body")
	}
	msg, err := siwe.ParseMessage(body.Message)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	a.mu.Lock()
	sess := a.sessionLocked(ctx)
	var nonce string
	if sess != nil {
		nonce = sess.nonce
	}
	a.mu.Unlock()
	if sess == nil {
		return nil, status.Error(codes.Unauthenticated, "no session")
	}

	// Verify checks the EIP-191 signature against the message address and the nonce.
	if _, err := msg.Verify(body.Signature, nil, &nonce, nil); err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	if a.ChainID != 0 && a.ChainID != int64(msg.GetChainID()) {
		return nil, status.Error(codes.Unauthenticated, "chain id mismatch")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	sess.verified = true
	sess.address = msg.GetAddress()
	return &rpc.Empty{}, nil
}

func (a *AuthServer) Authenticate(ctx context.Context, _ *rpc.Empty) (*rpc.Empty, error) {
	if _, err := a.Authorized(ctx); err != nil {
		return nil, err
	}
	return &rpc.Empty{}, nil
}

// Authorized returns the signed-in address for the cookie on ctx.
func (a *AuthServer) Authorized(ctx context.Context) (common.Address, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	sess := a.sessionLocked(ctx)
	if sess == nil || !sess.verified {
		return common.Address{}, status.Error(codes.Unauthenticated, "not signed in")
	}
	return sess.address, nil
}

// Revoke signs out every session of addr.
func (a *AuthServer) Revoke(addr common.Address) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, sess := range a.sessions {
		if sess.address == addr {
			delete(a.sessions, id)
		}
	}
}

// NonceCalls returns how many handshakes were started.
func (a *AuthServer) NonceCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nonceCalls
}

func (a *AuthServer) sessionLocked(ctx context.Context) *authSession {
	md, _ := metadata.FromIncomingContext(ctx)
	for _, line := range md.Get("cookie") {
		cookies, err := http.ParseCookie(line)
		if err != nil {
			continue
		}
		for _, c := range cookies {
			if c.Name == SessionCookie {
				return a.sessions[c.Value]
			}
		}
	}
	return nil
}
