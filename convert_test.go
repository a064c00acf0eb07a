package valoremrfq

import (
	"context"
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/kaifufi/valorem-rfq-sdk-go/chain"
	"github.com/kaifufi/valorem-rfq-sdk-go/rpc"
)

var (
	convSeaport = common.HexToAddress("0x00000000000000ADc04C56Bf30aC9d3c0aAF14dC")
	convUSDC    = common.HexToAddress("0x8AE0EeedD35DbEFe460Df12A20823eFDe9e03458")
	convOption  = chain.Instrument{
		ItemType:   chain.ItemTypeERC1155,
		Token:      common.HexToAddress("0x402A401B1944EBb5A3030F36Aa70d6b5794190c9"),
		Identifier: new(big.Int).Lsh(big.NewInt(0x1234abcd), 96),
	}
)

func signedQuote(t *testing.T) (*Quote, *chain.KeySigner) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := chain.NewKeySigner(key)
	domain := chain.NewEIP712Domain(big.NewInt(421613), convSeaport)

	order := &chain.Order{
		Offerer: signer.Address(),
		Offer: []chain.OfferItem{{
			ItemType:             convOption.ItemType,
			Token:                convOption.Token,
			IdentifierOrCriteria: convOption.Identifier,
			StartAmount:          big.NewInt(5),
			EndAmount:            big.NewInt(5),
		}},
		Consideration: []chain.ConsiderationItem{{
			ItemType:             chain.ItemTypeERC20,
			Token:                convUSDC,
			IdentifierOrCriteria: new(big.Int),
			StartAmount:          big.NewInt(100_000000),
			EndAmount:            big.NewInt(100_000000),
			Recipient:            signer.Address(),
		}},
		OrderType: chain.OrderTypeFullOpen,
		StartTime: big.NewInt(1_700_000_000),
		EndTime:   big.NewInt(1_700_001_800),
		Salt:      new(big.Int).Lsh(big.NewInt(1), 255),
		Counter:   big.NewInt(3),
	}
	signed, err := chain.SignOrder(context.Background(), signer, domain, order)
	require.NoError(t, err)

	return &Quote{
		CorrelationID: ulid.Make(),
		Maker:         signer.Address(),
		Order:         signed,
		ChainID:       domain.ChainID,
		Seaport:       convSeaport,
	}, signer
}

// overWire marshals and unmarshals msg the way the stream does.
func overWire(t *testing.T, msg *rpc.QuoteResponse) *rpc.QuoteResponse {
	t.Helper()
	raw, err := msg.Marshal()
	require.NoError(t, err)
	out := new(rpc.QuoteResponse)
	require.NoError(t, out.Unmarshal(raw))
	return out
}

func TestULIDWire(t *testing.T) {
	id := ulid.MustParse("01ARZ3NDEKTSV4RRFFQ69G5FAV")
	h := ulidToWire(id)

	assert.Equal(t, binary.BigEndian.Uint64(id[:8]), h.Hi)
	assert.Equal(t, binary.BigEndian.Uint64(id[8:]), h.Lo)
	assert.Equal(t, id, ulidFromWire(h))
	assert.Equal(t, ulid.ULID{}, ulidFromWire(nil))
	assert.Equal(t, 0, h.Big().Cmp(new(big.Int).SetBytes(id[:])))
}

func TestRequestWire(t *testing.T) {
	req := NewQuoteRequest(common.HexToAddress("0xabc"), convOption, big.NewInt(5), ActionBuy)
	req.ChainID = big.NewInt(421613)
	req.Seaport = convSeaport

	msg, err := requestToWire(req)
	require.NoError(t, err)
	raw, err := msg.Marshal()
	require.NoError(t, err)
	decoded := new(rpc.QuoteRequest)
	require.NoError(t, decoded.Unmarshal(raw))

	got, err := requestFromWire(decoded)
	require.NoError(t, err)
	assert.Equal(t, req.CorrelationID, got.CorrelationID)
	assert.Equal(t, req.Taker, got.Taker)
	assert.Equal(t, req.Instrument.ItemType, got.Instrument.ItemType)
	assert.Equal(t, req.Instrument.Token, got.Instrument.Token)
	assert.Equal(t, 0, req.Instrument.Identifier.Cmp(got.Instrument.Identifier))
	assert.Equal(t, 0, req.Amount.Cmp(got.Amount))
	assert.Equal(t, ActionBuy, got.Action)
	assert.Equal(t, 0, req.ChainID.Cmp(got.ChainID))
	assert.Equal(t, convSeaport, got.Seaport)
}

func TestRequestWire_Invalid(t *testing.T) {
	_, err := requestToWire(NewQuoteRequest(common.Address{}, convOption, big.NewInt(0), ActionBuy))
	var paramErr *InvalidParamError
	assert.ErrorAs(t, err, &paramErr)

	_, err = requestFromWire(&rpc.QuoteRequest{})
	assert.ErrorIs(t, err, ErrInvalidQuoteRequest)

	msg, err := requestToWire(NewQuoteRequest(common.Address{}, convOption, big.NewInt(1), ActionSell))
	require.NoError(t, err)
	msg.Action = rpc.Action(9)
	got, err := requestFromWire(msg)
	require.NoError(t, err)
	assert.Equal(t, ActionInvalid, got.Action)
}

func TestQuoteWire(t *testing.T) {
	quote, signer := signedQuote(t)

	msg, err := quoteToWire(quote)
	require.NoError(t, err)
	got, err := quoteFromWire(overWire(t, msg))
	require.NoError(t, err)

	assert.Equal(t, quote.CorrelationID, got.CorrelationID)
	assert.Equal(t, signer.Address(), got.Maker)
	assert.Equal(t, 0, quote.ChainID.Cmp(got.ChainID))
	assert.Equal(t, convSeaport, got.Seaport)
	assert.Equal(t, *quote.Order.Signature, *got.Order.Signature)
	assert.Equal(t, 0, got.Order.Order.Salt.Cmp(quote.Order.Order.Salt))
	assert.Equal(t, 0, got.Order.Order.Counter.Cmp(big.NewInt(3)))

	domain := chain.NewEIP712Domain(quote.ChainID, convSeaport)
	assert.Equal(t, chain.CreateOrderSignHash(domain, quote.Order.Order), chain.CreateOrderSignHash(domain, got.Order.Order))
	recovered, err := chain.VerifyOrder(domain, got.Order)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), recovered)
}

func TestQuoteFromWire_MissingField(t *testing.T) {
	tests := []struct {
		field string
		strip func(m *rpc.QuoteResponse)
	}{
		{"ulid", func(m *rpc.QuoteResponse) { m.Ulid = nil }},
		{"maker_address", func(m *rpc.QuoteResponse) { m.MakerAddress = nil }},
		{"order", func(m *rpc.QuoteResponse) { m.Order = nil }},
		{"signature", func(m *rpc.QuoteResponse) { m.Order.Signature = nil }},
		{"parameters", func(m *rpc.QuoteResponse) { m.Order.Parameters = nil }},
		{"offerer", func(m *rpc.QuoteResponse) { m.Order.Parameters.Offerer = nil }},
		{"start_time", func(m *rpc.QuoteResponse) { m.Order.Parameters.StartTime = nil }},
		{"end_time", func(m *rpc.QuoteResponse) { m.Order.Parameters.EndTime = nil }},
		{"salt", func(m *rpc.QuoteResponse) { m.Order.Parameters.Salt = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			quote, _ := signedQuote(t)
			msg, err := quoteToWire(quote)
			require.NoError(t, err)
			tt.strip(msg)

			_, err = quoteFromWire(overWire(t, msg))
			require.ErrorIs(t, err, ErrIncompleteResponse)
			var incompleteErr *IncompleteResponseError
			require.True(t, errors.As(err, &incompleteErr))
			assert.Equal(t, tt.field, incompleteErr.Field)
		})
	}
}

func TestQuoteFromWire_MalformedWideInt(t *testing.T) {
	quote, _ := signedQuote(t)
	msg, err := quoteToWire(quote)
	require.NoError(t, err)
	msg.MakerAddress = nil
	raw, err := msg.Marshal()
	require.NoError(t, err)

	// maker_address whose 32-bit lo field carries 40 bits
	var bad []byte
	bad = protowire.AppendTag(bad, 2, protowire.VarintType)
	bad = protowire.AppendVarint(bad, 1<<40)
	raw = protowire.AppendTag(raw, 2, protowire.BytesType)
	raw = protowire.AppendBytes(raw, bad)

	decoded := new(rpc.QuoteResponse)
	require.NoError(t, decoded.Unmarshal(raw))
	assert.False(t, decoded.IsKeepAlive())

	_, err = quoteFromWire(decoded)
	assert.ErrorIs(t, err, ErrMalformedWideInt)
}

func TestQuoteFromWire_InvalidItemType(t *testing.T) {
	tests := map[string]func(m *rpc.QuoteResponse){
		"offer wraps to erc1155":   func(m *rpc.QuoteResponse) { m.Order.Parameters.Offer[0].ItemType = 259 },
		"consideration wraps to 0": func(m *rpc.QuoteResponse) { m.Order.Parameters.Consideration[0].ItemType = 256 },
		"consideration unknown":    func(m *rpc.QuoteResponse) { m.Order.Parameters.Consideration[0].ItemType = 9 },
		"negative offer":           func(m *rpc.QuoteResponse) { m.Order.Parameters.Offer[0].ItemType = -1 },
	}
	for name, corrupt := range tests {
		t.Run(name, func(t *testing.T) {
			quote, _ := signedQuote(t)
			msg, err := quoteToWire(quote)
			require.NoError(t, err)
			corrupt(msg)

			_, err = quoteFromWire(overWire(t, msg))
			assert.ErrorIs(t, err, ErrIncompleteResponse)
		})
	}
}

func TestSignatureFromWire(t *testing.T) {
	quote, _ := signedQuote(t)
	sig := quote.Order.Signature

	got, err := signatureFromWire(&rpc.EthSignature{R: sig.R[:], S: sig.S[:], V: []byte{sig.V - 27}})
	require.NoError(t, err)
	assert.Equal(t, *sig, *got)

	_, err = signatureFromWire(&rpc.EthSignature{R: sig.R[:], S: sig.S[:], V: []byte{1, 2}})
	assert.ErrorIs(t, err, ErrIncompleteResponse)
}
