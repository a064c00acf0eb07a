package valoremrfq_test

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	valoremrfq "github.com/kaifufi/valorem-rfq-sdk-go"
	"github.com/kaifufi/valorem-rfq-sdk-go/chain"
	chain_mock "github.com/kaifufi/valorem-rfq-sdk-go/chain/mock"
)

type failingBridge struct {
	err error
}

func (b failingBridge) Nonce(context.Context) (*valoremrfq.Challenge, error) {
	return nil, b.err
}

func (b failingBridge) Verify(context.Context, *valoremrfq.Challenge, string, *chain.Signature) (valoremrfq.SessionToken, error) {
	return "", b.err
}

func (b failingBridge) CheckAuthenticated(context.Context, valoremrfq.SessionToken) (bool, error) {
	return false, b.err
}

func newTestTaker(t *testing.T, cfg valoremrfq.SessionConfig) *valoremrfq.Taker {
	t.Helper()
	ctrl := gomock.NewController(t)
	taker, err := valoremrfq.NewTaker(nil, valoremrfq.TakerConfig{
		SessionConfig: cfg,
		Domain:        testDomain(),
		Policy:        &valoremrfq.PriceCeilingPolicy{SettlementToken: testUSDC},
		Settlement:    chain_mock.NewMockSettlement(ctrl),
		State:         chain_mock.NewMockStateReader(ctrl),
	})
	require.NoError(t, err)
	return taker
}

func TestSession_Authenticate(t *testing.T) {
	h := newHarness(t)
	signer := newSigner(t)
	taker := newTestTaker(t, h.sessionConfig(signer))

	assert.Equal(t, valoremrfq.StateIdle, taker.State())
	assert.Equal(t, valoremrfq.RoleTaker, taker.Role())
	assert.NotEmpty(t, taker.ID())
	assert.Empty(t, taker.Token())

	require.NoError(t, taker.Authenticate(context.Background()))
	assert.Equal(t, valoremrfq.StateAuthenticated, taker.State())
	assert.NotEmpty(t, taker.Token())

	err := taker.Authenticate(context.Background())
	assert.ErrorIs(t, err, valoremrfq.ErrInvalidTransition)
}

func TestSession_ReusesCachedToken(t *testing.T) {
	h := newHarness(t)
	signer := newSigner(t)

	first := newTestTaker(t, h.sessionConfig(signer))
	require.NoError(t, first.Authenticate(context.Background()))
	second := newTestTaker(t, h.sessionConfig(signer))
	require.NoError(t, second.Authenticate(context.Background()))

	assert.Equal(t, 1, h.server.Auth.NonceCalls())
	assert.Equal(t, first.Token(), second.Token())
	assert.NotEqual(t, first.ID(), second.ID())
}

func TestSession_ConcurrentAuthenticateSignsInOnce(t *testing.T) {
	h := newHarness(t)
	signer := newSigner(t)

	var wg sync.WaitGroup
	for range 8 {
		taker := newTestTaker(t, h.sessionConfig(signer))
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, taker.Authenticate(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, h.server.Auth.NonceCalls())
}

func TestSession_RevokedTokenSignsInAgain(t *testing.T) {
	h := newHarness(t)
	signer := newSigner(t)

	first := newTestTaker(t, h.sessionConfig(signer))
	require.NoError(t, first.Authenticate(context.Background()))
	h.server.Auth.Revoke(signer.Address())

	second := newTestTaker(t, h.sessionConfig(signer))
	require.NoError(t, second.Authenticate(context.Background()))

	assert.Equal(t, 2, h.server.Auth.NonceCalls())
	assert.NotEqual(t, first.Token(), second.Token())
	cached, ok := h.tokens.Get(signer.Address())
	require.True(t, ok)
	assert.Equal(t, second.Token(), cached)
}

func TestSession_AuthenticateFailure(t *testing.T) {
	signer := newSigner(t)
	taker := newTestTaker(t, valoremrfq.SessionConfig{
		Signer: signer,
		Auth:   failingBridge{err: errors.New("unavailable")},
		Tokens: valoremrfq.NewTokenCache(),
	})

	err := taker.Authenticate(context.Background())
	assert.ErrorIs(t, err, valoremrfq.ErrAuthenticationFailed)
	assert.Equal(t, valoremrfq.StateIdle, taker.State())
}

func TestSession_AuthenticateCancelled(t *testing.T) {
	signer := newSigner(t)
	taker := newTestTaker(t, valoremrfq.SessionConfig{
		Signer: signer,
		Auth:   failingBridge{err: context.Canceled},
		Tokens: valoremrfq.NewTokenCache(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := taker.Authenticate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, valoremrfq.StateIdle, taker.State())
}

func TestSession_NegotiateRequiresAuthentication(t *testing.T) {
	h := newHarness(t)
	signer := newSigner(t)
	taker := newTestTaker(t, h.sessionConfig(signer))

	req := valoremrfq.NewQuoteRequest(signer.Address(), testOption(t), big.NewInt(1), valoremrfq.ActionBuy)
	_, err := taker.Negotiate(context.Background(), req)
	assert.ErrorIs(t, err, valoremrfq.ErrInvalidTransition)
	assert.Equal(t, valoremrfq.StateIdle, taker.State())
}

func TestSession_Close(t *testing.T) {
	h := newHarness(t)
	signer := newSigner(t)
	taker := newTestTaker(t, h.sessionConfig(signer))
	require.NoError(t, taker.Authenticate(context.Background()))

	require.NoError(t, taker.Close())
	require.NoError(t, taker.Close())
	assert.Equal(t, valoremrfq.StateClosed, taker.State())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req := valoremrfq.NewQuoteRequest(signer.Address(), testOption(t), big.NewInt(1), valoremrfq.ActionBuy)
	_, err := taker.Negotiate(ctx, req)
	assert.ErrorIs(t, err, valoremrfq.ErrSessionClosed)
	assert.ErrorIs(t, taker.Authenticate(ctx), valoremrfq.ErrSessionClosed)
}

func TestNewTaker_RequiresCollaborators(t *testing.T) {
	signer := newSigner(t)
	_, err := valoremrfq.NewTaker(nil, valoremrfq.TakerConfig{
		SessionConfig: valoremrfq.SessionConfig{Signer: signer, Auth: failingBridge{}},
		Domain:        testDomain(),
	})
	var invalid *valoremrfq.InvalidParamError
	assert.True(t, errors.As(err, &invalid))
}
