package valoremrfq_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	valoremrfq "github.com/kaifufi/valorem-rfq-sdk-go"
	"github.com/kaifufi/valorem-rfq-sdk-go/chain"
	chain_mock "github.com/kaifufi/valorem-rfq-sdk-go/chain/mock"
	"github.com/kaifufi/valorem-rfq-sdk-go/rpc"
)

func TestNegotiation_BuyFilled(t *testing.T) {
	h := newHarness(t)
	ctrl := gomock.NewController(t)
	makerSigner, takerSigner := newSigner(t), newSigner(t)
	option := testOption(t)

	custody := chain_mock.NewMockCustody(ctrl)
	custody.EXPECT().EnsureAvailable(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	h.startMaker(t, valoremrfq.MakerConfig{
		SessionConfig: h.sessionConfig(makerSigner),
		Policy:        inventory(option),
		Custody:       custody,
		Builder:       newBuilder(t, makerSigner, chainState(ctrl)),
	})

	receipt := &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: common.HexToHash("0xabc")}
	settlement := chain_mock.NewMockSettlement(ctrl)
	settlement.EXPECT().Fulfill(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, signed *chain.SignedOrder) (*types.Receipt, error) {
			signer, err := chain.VerifyOrder(testDomain(), signed)
			assert.NoError(t, err)
			assert.Equal(t, makerSigner.Address(), signer)
			return receipt, nil
		})

	taker, err := valoremrfq.NewTaker(h.conn, valoremrfq.TakerConfig{
		SessionConfig: h.sessionConfig(takerSigner),
		Domain:        testDomain(),
		Policy:        &valoremrfq.PriceCeilingPolicy{SettlementToken: testUSDC, MaxPrice: big.NewInt(200_000000)},
		Settlement:    settlement,
		State:         chainState(ctrl),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, taker.Authenticate(ctx))

	fill, err := taker.Negotiate(ctx, valoremrfq.NewQuoteRequest(takerSigner.Address(), option, big.NewInt(5), valoremrfq.ActionBuy))
	require.NoError(t, err)
	assert.Same(t, receipt, fill.Receipt)

	order := fill.Quote.Order.Order
	now := big.NewInt(time.Now().Unix())
	assert.Equal(t, makerSigner.Address(), order.Offerer)
	require.Len(t, order.Offer, 1)
	assert.Equal(t, 0, order.Offer[0].CurrentAmount(order, now).Cmp(big.NewInt(5)))
	assert.Equal(t, 0, fill.Quote.Price(testUSDC, now).Cmp(big.NewInt(100_000000)))
	assert.Equal(t, valoremrfq.StateClosed, taker.State())
}

func TestNegotiation_PriceAboveCeiling(t *testing.T) {
	h := newHarness(t)
	ctrl := gomock.NewController(t)
	makerSigner, takerSigner := newSigner(t), newSigner(t)
	option := testOption(t)

	h.startMaker(t, valoremrfq.MakerConfig{
		SessionConfig: h.sessionConfig(makerSigner),
		Policy:        inventory(option),
		Custody:       availableCustody(ctrl),
		Builder:       newBuilder(t, makerSigner, chainState(ctrl)),
	})

	skipped := make(chan valoremrfq.Rejection, 1)
	taker, err := valoremrfq.NewTaker(h.conn, valoremrfq.TakerConfig{
		SessionConfig: h.sessionConfig(takerSigner),
		Domain:        testDomain(),
		Policy:        &valoremrfq.PriceCeilingPolicy{SettlementToken: testUSDC, MaxPrice: big.NewInt(50_000000)},
		Settlement:    chain_mock.NewMockSettlement(ctrl),
		State:         chainState(ctrl),
		OnReject:      func(r valoremrfq.Rejection) { skipped <- r },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	require.NoError(t, taker.Authenticate(ctx))

	req := valoremrfq.NewQuoteRequest(takerSigner.Address(), option, big.NewInt(5), valoremrfq.ActionBuy)
	_, err = taker.Negotiate(ctx, req)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case r := <-skipped:
		assert.ErrorIs(t, r.Err, valoremrfq.ErrQuoteRejected)
		assert.Equal(t, req.CorrelationID, r.CorrelationID)
		assert.Equal(t, makerSigner.Address(), r.Counterparty)
	default:
		t.Fatal("quote was not rejected")
	}
}

func TestNegotiation_SellNotQuoted(t *testing.T) {
	h := newHarness(t)
	ctrl := gomock.NewController(t)
	makerSigner, takerSigner := newSigner(t), newSigner(t)
	option := testOption(t)

	declined := make(chan valoremrfq.Rejection, 1)
	h.startMaker(t, valoremrfq.MakerConfig{
		SessionConfig: h.sessionConfig(makerSigner),
		Policy:        inventory(option),
		Custody:       chain_mock.NewMockCustody(ctrl),
		Builder:       newBuilder(t, makerSigner, chainState(ctrl)),
		OnReject:      func(r valoremrfq.Rejection) { declined <- r },
	})

	taker, err := valoremrfq.NewTaker(h.conn, valoremrfq.TakerConfig{
		SessionConfig: h.sessionConfig(takerSigner),
		Domain:        testDomain(),
		Policy:        &valoremrfq.PriceCeilingPolicy{SettlementToken: testUSDC},
		Settlement:    chain_mock.NewMockSettlement(ctrl),
		State:         chain_mock.NewMockStateReader(ctrl),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	require.NoError(t, taker.Authenticate(ctx))

	req := valoremrfq.NewQuoteRequest(takerSigner.Address(), option, big.NewInt(5), valoremrfq.ActionSell)
	_, err = taker.Negotiate(ctx, req)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case r := <-declined:
		assert.ErrorIs(t, r.Err, valoremrfq.ErrQuoteRejected)
		assert.Equal(t, req.CorrelationID, r.CorrelationID)
	case <-time.After(time.Second):
		t.Fatal("request was not declined")
	}

	requests := h.server.Relay.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, rpc.ActionSell, requests[0].Action)
	assert.Empty(t, h.server.Relay.Responses(requests[0].Ulid))
}
