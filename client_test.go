package valoremrfq_test

import (
	"context"
	"encoding/hex"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	valoremrfq "github.com/kaifufi/valorem-rfq-sdk-go"
	"github.com/kaifufi/valorem-rfq-sdk-go/internal/rfqtest"
)

func TestNewClient_UnsupportedChain(t *testing.T) {
	_, err := valoremrfq.NewClient(valoremrfq.ClientConfig{ChainID: 1})
	var invalid *valoremrfq.InvalidParamError
	assert.ErrorAs(t, err, &invalid)
}

func TestNewClient_InvalidAddress(t *testing.T) {
	_, err := valoremrfq.NewClient(valoremrfq.ClientConfig{
		ChainID:     valoremrfq.ChainIDArbitrumGoerli,
		SeaportAddr: "not-an-address",
	})
	var invalid *valoremrfq.InvalidParamError
	assert.ErrorAs(t, err, &invalid)
}

func TestClient_SignInAndSessions(t *testing.T) {
	server := rfqtest.NewServer(t)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	client, err := valoremrfq.NewClient(valoremrfq.ClientConfig{
		Endpoint:      rfqtest.Target,
		Insecure:      true,
		ChainID:       valoremrfq.ChainIDArbitrumGoerli,
		RPCURL:        "http://127.0.0.1:8545",
		PrivateKey:    hex.EncodeToString(crypto.FromECDSA(key)),
		SIWEDomain:    "localhost",
		SIWEURI:       "http://localhost",
		OrderValidity: 5 * time.Minute,
		Tokens:        valoremrfq.NewTokenCache(),
		DialOptions:   server.DialOptions(),
	})
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), client.Address())
	assert.Equal(t, 0, client.Domain().ChainID.Cmp(testChainID))
	assert.Equal(t, testSeaport, client.Domain().VerifyingContract)
	assert.Equal(t, testUSDC, client.SettlementToken())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	token, err := client.SignIn(ctx)
	require.NoError(t, err)
	again, err := client.SignIn(ctx)
	require.NoError(t, err)
	assert.Equal(t, token, again)
	assert.Equal(t, 1, server.Auth.NonceCalls())

	taker, err := client.NewTaker(&valoremrfq.PriceCeilingPolicy{SettlementToken: client.SettlementToken()},
		func(cfg *valoremrfq.TakerConfig) { cfg.RequestInterval = time.Second })
	require.NoError(t, err)
	require.NoError(t, taker.Authenticate(ctx))
	assert.Equal(t, token, taker.Token())
	require.NoError(t, taker.Close())

	maker, err := client.NewMaker(&valoremrfq.InventoryPolicy{PriceToken: client.SettlementToken(), Premium: big.NewInt(1)},
		func(cfg *valoremrfq.MakerConfig) { cfg.Concurrency = 2 })
	require.NoError(t, err)
	assert.Equal(t, valoremrfq.RoleMaker, maker.Role())
	assert.Equal(t, 1, server.Auth.NonceCalls())
}
