package valoremrfq_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	valoremrfq "github.com/kaifufi/valorem-rfq-sdk-go"
	"github.com/kaifufi/valorem-rfq-sdk-go/internal/rfqtest"
)

func TestGRPCAuthBridge_SignIn(t *testing.T) {
	h := newHarness(t)
	signer := newSigner(t)
	bridge := valoremrfq.NewGRPCAuthBridge(h.conn)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	challenge, err := bridge.Nonce(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, challenge.Nonce)
	assert.True(t, strings.HasPrefix(string(challenge.Token), rfqtest.SessionCookie+"="))

	ok, err := bridge.CheckAuthenticated(ctx, challenge.Token)
	require.NoError(t, err)
	assert.False(t, ok, "token is not signed in before verify")

	token, err := valoremrfq.SignIn(ctx, bridge, signer, h.sessionConfig(signer).SignIn)
	require.NoError(t, err)

	ok, err = bridge.CheckAuthenticated(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)

	addr, err := h.server.Auth.Authorized(metadataContext(token))
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), addr)

	h.server.Auth.Revoke(signer.Address())
	ok, err = bridge.CheckAuthenticated(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignIn_WrongChain(t *testing.T) {
	h := newHarness(t)
	signer := newSigner(t)
	cfg := h.sessionConfig(signer).SignIn
	cfg.ChainID = int64(valoremrfq.ChainIDArbitrumOne)

	_, err := valoremrfq.SignIn(context.Background(), valoremrfq.NewGRPCAuthBridge(h.conn), signer, cfg)
	assert.ErrorIs(t, err, valoremrfq.ErrAuthenticationFailed)
}

func TestVerify_ForeignSignature(t *testing.T) {
	h := newHarness(t)
	signer := newSigner(t)
	imposter := newSigner(t)
	bridge := valoremrfq.NewGRPCAuthBridge(h.conn)
	ctx := context.Background()

	challenge, err := bridge.Nonce(ctx)
	require.NoError(t, err)

	siweMsg, err := (&valoremrfq.SIWEMessage{
		Domain:   "localhost",
		Address:  signer.Address(),
		URI:      "http://localhost",
		ChainID:  testChainID.Int64(),
		Nonce:    challenge.Nonce,
		IssuedAt: time.Now(),
	}).Message()
	require.NoError(t, err)
	msg := siweMsg.String()
	sig, err := imposter.SignMessage(ctx, []byte(msg))
	require.NoError(t, err)

	_, err = bridge.Verify(ctx, challenge, msg, sig)
	assert.ErrorIs(t, err, valoremrfq.ErrAuthenticationFailed)
}

func TestVerify_StaleNonce(t *testing.T) {
	h := newHarness(t)
	signer := newSigner(t)
	bridge := valoremrfq.NewGRPCAuthBridge(h.conn)
	ctx := context.Background()

	challenge, err := bridge.Nonce(ctx)
	require.NoError(t, err)

	siweMsg, err := (&valoremrfq.SIWEMessage{
		Domain:   "localhost",
		Address:  signer.Address(),
		URI:      "http://localhost",
		ChainID:  testChainID.Int64(),
		Nonce:    "staleNonce1234",
		IssuedAt: time.Now(),
	}).Message()
	require.NoError(t, err)
	msg := siweMsg.String()
	sig, err := signer.SignMessage(ctx, []byte(msg))
	require.NoError(t, err)

	_, err = bridge.Verify(ctx, challenge, msg, sig)
	assert.ErrorIs(t, err, valoremrfq.ErrAuthenticationFailed)
}

// metadataContext is what the server sees for a call carrying token.
func metadataContext(token valoremrfq.SessionToken) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("cookie", string(token)))
}
