package chain

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	MinOrderValidity     = 120 * time.Second
	MaxOrderValidity     = 1800 * time.Second
	DefaultOrderValidity = MaxOrderValidity
)

// OrderData describes the offer a maker wants to build.
type OrderData struct {
	Instrument Instrument
	Amount     *big.Int
	PriceToken common.Address
	Price      *big.Int
}

// OrderBuilder builds and signs maker orders
type OrderBuilder struct {
	domain   *EIP712Domain
	signer   Signer
	state    StateReader
	validity time.Duration
	saltTag  uint32
}

// OrderBuilderOption configures an OrderBuilder.
type OrderBuilderOption func(*OrderBuilder)

// WithValidity sets how long built orders stay valid after the current block time.
func WithValidity(d time.Duration) OrderBuilderOption {
	return func(ob *OrderBuilder) {
		ob.validity = d
	}
}

// WithSaltDomainTag writes tag into the low 32 bits of every salt, marking orders
// as originating from a given front end. The remaining 224 bits stay random.
func WithSaltDomainTag(tag uint32) OrderBuilderOption {
	return func(ob *OrderBuilder) {
		ob.saltTag = tag
	}
}

// NewOrderBuilder creates a new OrderBuilder
func NewOrderBuilder(domain *EIP712Domain, signer Signer, state StateReader, opts ...OrderBuilderOption) (*OrderBuilder, error) {
	ob := &OrderBuilder{
		domain:   domain,
		signer:   signer,
		state:    state,
		validity: DefaultOrderValidity,
	}
	for _, opt := range opts {
		opt(ob)
	}

	if ob.validity < MinOrderValidity || ob.validity > MaxOrderValidity {
		return nil, fmt.Errorf("order validity must be between %s and %s, got %s", MinOrderValidity, MaxOrderValidity, ob.validity)
	}
	if domain == nil || domain.ChainID == nil {
		return nil, fmt.Errorf("eip712 domain with chain id is required")
	}
	return ob, nil
}

// Domain returns the EIP712 domain orders are signed under.
func (ob *OrderBuilder) Domain() *EIP712Domain {
	return ob.domain
}

// Offerer returns the address orders are built for.
func (ob *OrderBuilder) Offerer() common.Address {
	return ob.signer.Address()
}

// BuildOrder builds an unsigned order offering data.Amount of the instrument for
// data.Price of the price token, paid to the offerer.
func (ob *OrderBuilder) BuildOrder(ctx context.Context, data *OrderData) (*Order, error) {
	if err := ob.validateInputs(data); err != nil {
		return nil, err
	}

	now, err := ob.state.BlockTimestamp(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get block timestamp: %w", err)
	}

	offerer := ob.signer.Address()
	counter, err := ob.state.Counter(ctx, offerer)
	if err != nil {
		return nil, fmt.Errorf("failed to get counter: %w", err)
	}

	salt, err := GenerateSalt(ob.saltTag)
	if err != nil {
		return nil, err
	}

	priceType := ItemTypeERC20
	if data.PriceToken == (common.Address{}) {
		priceType = ItemTypeNative
	}

	startTime := new(big.Int).SetUint64(now)
	endTime := new(big.Int).Add(startTime, big.NewInt(int64(ob.validity/time.Second)))

	return &Order{
		Offerer: offerer,
		Offer: []OfferItem{{
			ItemType:             data.Instrument.ItemType,
			Token:                data.Instrument.Token,
			IdentifierOrCriteria: orZero(data.Instrument.Identifier),
			StartAmount:          new(big.Int).Set(data.Amount),
			EndAmount:            new(big.Int).Set(data.Amount),
		}},
		Consideration: []ConsiderationItem{{
			ItemType:             priceType,
			Token:                data.PriceToken,
			IdentifierOrCriteria: new(big.Int),
			StartAmount:          new(big.Int).Set(data.Price),
			EndAmount:            new(big.Int).Set(data.Price),
			Recipient:            offerer,
		}},
		OrderType: OrderTypeFullOpen,
		StartTime: startTime,
		EndTime:   endTime,
		Salt:      salt,
		Counter:   counter,
	}, nil
}

// BuildSignedOrder builds and signs an order
func (ob *OrderBuilder) BuildSignedOrder(ctx context.Context, data *OrderData) (*SignedOrder, error) {
	order, err := ob.BuildOrder(ctx, data)
	if err != nil {
		return nil, err
	}
	return SignOrder(ctx, ob.signer, ob.domain, order)
}

// SignOrder signs the EIP712 digest of order. Every call goes to the signer.
func SignOrder(ctx context.Context, signer Signer, domain *EIP712Domain, order *Order) (*SignedOrder, error) {
	signature, err := signer.SignHash(ctx, CreateOrderSignHash(domain, order))
	if err != nil {
		return nil, fmt.Errorf("failed to sign order: %w", err)
	}
	return &SignedOrder{Order: order, Signature: signature}, nil
}

// VerifyOrder recovers the address that signed the order under domain.
func VerifyOrder(domain *EIP712Domain, signed *SignedOrder) (common.Address, error) {
	if signed == nil || signed.Order == nil || signed.Signature == nil {
		return common.Address{}, fmt.Errorf("signed order is incomplete")
	}
	return signed.Signature.Recover(CreateOrderSignHash(domain, signed.Order))
}

// GenerateSalt returns 256 random bits, with tag in the low 32 bits when non-zero.
func GenerateSalt(tag uint32) (*big.Int, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	if tag != 0 {
		buf[28] = byte(tag >> 24)
		buf[29] = byte(tag >> 16)
		buf[30] = byte(tag >> 8)
		buf[31] = byte(tag)
	}
	return new(big.Int).SetBytes(buf[:]), nil
}

func (ob *OrderBuilder) validateInputs(data *OrderData) error {
	if data == nil {
		return fmt.Errorf("order data is required")
	}
	if !data.Instrument.ItemType.Valid() {
		return fmt.Errorf("invalid item type %d", data.Instrument.ItemType)
	}
	if data.Amount == nil || data.Amount.Sign() <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	if data.Price == nil || data.Price.Sign() <= 0 {
		return fmt.Errorf("price must be positive")
	}
	return nil
}
