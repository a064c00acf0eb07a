package valoremrfq_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc"

	valoremrfq "github.com/kaifufi/valorem-rfq-sdk-go"
	"github.com/kaifufi/valorem-rfq-sdk-go/chain"
	chain_mock "github.com/kaifufi/valorem-rfq-sdk-go/chain/mock"
	"github.com/kaifufi/valorem-rfq-sdk-go/internal/rfqtest"
)

var (
	testChainID       = big.NewInt(int64(valoremrfq.ChainIDArbitrumGoerli))
	testSeaport       = common.HexToAddress("0x00000000000000ADc04C56Bf30aC9d3c0aAF14dC")
	testClearinghouse = common.HexToAddress("0x402A401B1944EBb5A3030F36Aa70d6b5794190c9")
	testUSDC          = common.HexToAddress("0x8AE0EeedD35DbEFe460Df12A20823eFDe9e03458")
	testWETH          = common.HexToAddress("0x618b9a2Db0CF23Bb20A849dAa2963c72770C1372")
)

func newSigner(t *testing.T) *chain.KeySigner {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return chain.NewKeySigner(key)
}

func testDomain() *chain.EIP712Domain {
	return chain.NewEIP712Domain(testChainID, testSeaport)
}

// testOption is a WETH call series on the clearinghouse.
func testOption(t *testing.T) chain.Instrument {
	t.Helper()
	id, err := chain.OptionID(chain.OptionType{
		UnderlyingAsset:   testWETH,
		UnderlyingAmount:  big.NewInt(1e18),
		ExerciseAsset:     testUSDC,
		ExerciseAmount:    big.NewInt(1500_000000),
		ExerciseTimestamp: 1_700_000_000,
		ExpiryTimestamp:   1_700_604_800,
	})
	require.NoError(t, err)
	return chain.Instrument{ItemType: chain.ItemTypeERC1155, Token: testClearinghouse, Identifier: id}
}

// harness is a running test trade API plus a client connection to it.
type harness struct {
	server *rfqtest.Server
	conn   *grpc.ClientConn
	tokens *valoremrfq.TokenCache
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	server := rfqtest.NewServer(t)
	server.Auth.ChainID = testChainID.Int64()
	return &harness{
		server: server,
		conn:   server.Dial(t),
		tokens: valoremrfq.NewTokenCache(),
	}
}

func (h *harness) sessionConfig(signer chain.Signer) valoremrfq.SessionConfig {
	return valoremrfq.SessionConfig{
		Signer: signer,
		Auth:   valoremrfq.NewGRPCAuthBridge(h.conn),
		Tokens: h.tokens,
		SignIn: valoremrfq.SignInConfig{
			Domain:  "localhost",
			URI:     "http://localhost",
			ChainID: testChainID.Int64(),
		},
	}
}

// chainState returns a StateReader that reports the current time and counter zero.
func chainState(ctrl *gomock.Controller) *chain_mock.MockStateReader {
	state := chain_mock.NewMockStateReader(ctrl)
	state.EXPECT().BlockTimestamp(gomock.Any()).DoAndReturn(func(context.Context) (uint64, error) {
		return uint64(time.Now().Unix()), nil
	}).AnyTimes()
	state.EXPECT().Counter(gomock.Any(), gomock.Any()).Return(big.NewInt(0), nil).AnyTimes()
	return state
}

type runningMaker struct {
	maker  *valoremrfq.Maker
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func (rm *runningMaker) wait() error {
	<-rm.done
	return rm.err
}

// startMaker authenticates a maker and serves until the test ends.
func (h *harness) startMaker(t *testing.T, cfg valoremrfq.MakerConfig) *runningMaker {
	t.Helper()
	maker, err := valoremrfq.NewMaker(h.conn, cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, maker.Authenticate(ctx))

	rm := &runningMaker{maker: maker, cancel: cancel, done: make(chan struct{})}
	go func() {
		rm.err = maker.Serve(ctx)
		close(rm.done)
	}()
	t.Cleanup(func() {
		cancel()
		_ = rm.wait()
	})

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, h.server.Relay.WaitMakers(waitCtx, 1))
	return rm
}

func newBuilder(t *testing.T, signer chain.Signer, state chain.StateReader) *chain.OrderBuilder {
	t.Helper()
	builder, err := chain.NewOrderBuilder(testDomain(), signer, state, chain.WithValidity(10*time.Minute))
	require.NoError(t, err)
	return builder
}
