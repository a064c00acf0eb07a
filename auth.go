package valoremrfq

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/kaifufi/valorem-rfq-sdk-go/chain"
	"github.com/kaifufi/valorem-rfq-sdk-go/rpc"
)

const (
	cookieHeader    = "cookie"
	setCookieHeader = "set-cookie"
)

// SessionToken is the cookie the trade API issues at the start of sign-in. It
// must accompany every call made on behalf of the signed-in account.
type SessionToken string

// CallOption attaches the token to a single call.
func (t SessionToken) CallOption() grpc.CallOption {
	return grpc.PerRPCCredentials(tokenCredentials{token: t})
}

type tokenCredentials struct {
	token SessionToken
}

var _ credentials.PerRPCCredentials = tokenCredentials{}

func (c tokenCredentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	if c.token == "" {
		return nil, nil
	}
	return map[string]string{cookieHeader: string(c.token)}, nil
}

// RequireTransportSecurity is false so the same token works against a local
// relay without TLS.
func (c tokenCredentials) RequireTransportSecurity() bool {
	return false
}

// Challenge is the nonce to sign plus the token the nonce was bound to.
type Challenge struct {
	Nonce string
	Token SessionToken
}

// AuthBridge is the trade API sign-in handshake.
type AuthBridge interface {
	// Nonce starts a sign-in and returns the challenge to sign.
	Nonce(ctx context.Context) (*Challenge, error)
	// Verify submits the signed challenge message and returns the authenticated token.
	Verify(ctx context.Context, challenge *Challenge, message string, signature *chain.Signature) (SessionToken, error)
	// CheckAuthenticated reports whether token is still signed in.
	CheckAuthenticated(ctx context.Context, token SessionToken) (bool, error)
}

// GRPCAuthBridge implements AuthBridge against the trade API Auth service.
type GRPCAuthBridge struct {
	client rpc.AuthClient
}

var _ AuthBridge = (*GRPCAuthBridge)(nil)

// NewGRPCAuthBridge creates an AuthBridge on an existing connection.
func NewGRPCAuthBridge(conn grpc.ClientConnInterface) *GRPCAuthBridge {
	return &GRPCAuthBridge{client: rpc.NewAuthClient(conn)}
}

func (b *GRPCAuthBridge) Nonce(ctx context.Context) (*Challenge, error) {
	var header metadata.MD
	resp, err := b.client.Nonce(ctx, &rpc.Empty{}, grpc.Header(&header))
	if err != nil {
		return nil, errors.Wrap(ErrAuthenticationFailed, "nonce: "+err.Error())
	}
	if resp.Nonce == "" {
		return nil, errors.Wrap(ErrAuthenticationFailed, "nonce: empty nonce")
	}
	token, err := tokenFromHeader(header)
	if err != nil {
		return nil, err
	}
	return &Challenge{Nonce: resp.Nonce, Token: token}, nil
}

type verifyBody struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

func (b *GRPCAuthBridge) Verify(ctx context.Context, challenge *Challenge, message string, signature *chain.Signature) (SessionToken, error) {
	body, err := json.Marshal(verifyBody{Message: message, Signature: hexutil.Encode(signature.Bytes())})
	if err != nil {
		return "", errors.Wrap(err, "failed to encode verify body")
	}

	var header metadata.MD
	_, err = b.client.Verify(ctx, &rpc.VerifyText{Body: string(body)}, challenge.Token.CallOption(), grpc.Header(&header))
	if err != nil {
		return "", errors.Wrap(ErrAuthenticationFailed, "verify: "+err.Error())
	}

	// The server may rotate the cookie once the account is verified.
	if token, err := tokenFromHeader(header); err == nil {
		return token, nil
	}
	return challenge.Token, nil
}

func (b *GRPCAuthBridge) CheckAuthenticated(ctx context.Context, token SessionToken) (bool, error) {
	_, err := b.client.Authenticate(ctx, &rpc.Empty{}, token.CallOption())
	if err == nil {
		return true, nil
	}
	if status.Code(err) == codes.Unauthenticated {
		return false, nil
	}
	return false, errors.Wrap(err, "authenticate")
}

// tokenFromHeader keeps the name=value part of the first set-cookie header.
func tokenFromHeader(md metadata.MD) (SessionToken, error) {
	for _, line := range md.Get(setCookieHeader) {
		cookie, err := http.ParseSetCookie(line)
		if err != nil {
			continue
		}
		return SessionToken(cookie.Name + "=" + cookie.Value), nil
	}
	return "", errors.Wrap(ErrAuthenticationFailed, "no session cookie in response")
}

// SignInConfig holds the fields of the sign-in message that are not per-session.
type SignInConfig struct {
	Domain    string
	URI       string
	Statement string
	ChainID   int64
	Now       func() time.Time
}

// SignIn runs the full handshake for signer: fetch a nonce, sign the EIP-4361
// message and verify it. Every failure wraps ErrAuthenticationFailed.
func SignIn(ctx context.Context, bridge AuthBridge, signer chain.Signer, cfg SignInConfig) (SessionToken, error) {
	challenge, err := bridge.Nonce(ctx)
	if err != nil {
		return "", err
	}

	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}
	statement := cfg.Statement
	if statement == "" {
		statement = DefaultSIWEStatement
	}
	msg, err := (&SIWEMessage{
		Domain:    cfg.Domain,
		Address:   signer.Address(),
		Statement: statement,
		URI:       cfg.URI,
		ChainID:   cfg.ChainID,
		Nonce:     challenge.Nonce,
		IssuedAt:  now(),
	}).Message()
	if err != nil {
		return "", errors.Wrap(ErrAuthenticationFailed, err.Error())
	}
	text := msg.String()

	sig, err := signer.SignMessage(ctx, []byte(text))
	if err != nil {
		return "", errors.Wrap(ErrAuthenticationFailed, "sign message: "+err.Error())
	}

	token, err := bridge.Verify(ctx, challenge, text, sig)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", errors.Wrap(ErrAuthenticationFailed, "empty session token")
	}
	return token, nil
}
