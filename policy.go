package valoremrfq

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/kaifufi/valorem-rfq-sdk-go/chain"
)

// TakerPolicy decides whether a verified quote is acceptable. A non-nil error
// declines the quote and the taker keeps listening.
type TakerPolicy interface {
	Accept(ctx context.Context, req *QuoteRequest, quote *Quote) error
}

// TakerPolicyFunc adapts a function to TakerPolicy.
type TakerPolicyFunc func(ctx context.Context, req *QuoteRequest, quote *Quote) error

func (f TakerPolicyFunc) Accept(ctx context.Context, req *QuoteRequest, quote *Quote) error {
	return f(ctx, req, quote)
}

// PriceCeilingPolicy accepts a quote that offers at least the requested amount of
// the requested instrument, is paid entirely in SettlementToken and costs no more
// than MaxPrice.
type PriceCeilingPolicy struct {
	SettlementToken common.Address
	MaxPrice        *big.Int
	// Now defaults to time.Now.
	Now func() time.Time
}

func (p *PriceCeilingPolicy) Accept(ctx context.Context, req *QuoteRequest, quote *Quote) error {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	ts := big.NewInt(now().Unix())

	order := quote.Order.Order
	if order.EndTime == nil || order.EndTime.Cmp(ts) <= 0 {
		return errors.Wrap(ErrQuoteRejected, "order expired")
	}
	if order.StartTime != nil && order.StartTime.Cmp(ts) > 0 {
		return errors.Wrapf(ErrQuoteRejected, "order not active until %s", order.StartTime)
	}

	offered := new(big.Int)
	for _, item := range order.Offer {
		if sameInstrument(req.Instrument, chain.Instrument{
			ItemType:   item.ItemType,
			Token:      item.Token,
			Identifier: item.IdentifierOrCriteria,
		}) {
			offered.Add(offered, item.CurrentAmount(order, ts))
		}
	}
	if offered.Cmp(req.Amount) < 0 {
		return errors.Wrapf(ErrQuoteRejected, "offers %s of %s requested", offered, req.Amount)
	}

	if len(order.Consideration) == 0 {
		return errors.Wrap(ErrQuoteRejected, "no consideration")
	}
	for _, item := range order.Consideration {
		if item.Token != p.SettlementToken {
			return errors.Wrapf(ErrQuoteRejected, "consideration in %s", item.Token.Hex())
		}
	}

	price := quote.Price(p.SettlementToken, ts)
	if p.MaxPrice != nil && price.Cmp(p.MaxPrice) > 0 {
		return errors.Wrapf(ErrQuoteRejected, "price %s above ceiling %s", price, p.MaxPrice)
	}
	return nil
}

// MakerPolicy turns an acceptable request into the order to offer. A non-nil
// error declines the request and nothing is sent.
type MakerPolicy interface {
	Quote(ctx context.Context, req *QuoteRequest) (*chain.OrderData, error)
}

// MakerPolicyFunc adapts a function to MakerPolicy.
type MakerPolicyFunc func(ctx context.Context, req *QuoteRequest) (*chain.OrderData, error)

func (f MakerPolicyFunc) Quote(ctx context.Context, req *QuoteRequest) (*chain.OrderData, error) {
	return f(ctx, req)
}

// InventoryPolicy sells the listed instruments only, up to MaxAmount per request,
// for Premium plus UnitPrice per unit, paid in PriceToken.
type InventoryPolicy struct {
	Instruments []chain.Instrument
	MaxAmount   *big.Int
	PriceToken  common.Address
	Premium     *big.Int
	UnitPrice   *big.Int
}

func (p *InventoryPolicy) Quote(ctx context.Context, req *QuoteRequest) (*chain.OrderData, error) {
	if req.Action != ActionBuy {
		return nil, errors.Wrapf(ErrQuoteRejected, "action %s", req.Action)
	}

	var instrument *chain.Instrument
	for i := range p.Instruments {
		if sameInstrument(p.Instruments[i], req.Instrument) {
			instrument = &p.Instruments[i]
			break
		}
	}
	if instrument == nil {
		return nil, errors.Wrap(ErrQuoteRejected, "instrument not offered")
	}

	if p.MaxAmount != nil && req.Amount.Cmp(p.MaxAmount) > 0 {
		return nil, errors.Wrapf(ErrQuoteRejected, "amount %s above limit %s", req.Amount, p.MaxAmount)
	}

	price := new(big.Int)
	if p.Premium != nil {
		price.Add(price, p.Premium)
	}
	if p.UnitPrice != nil {
		price.Add(price, new(big.Int).Mul(p.UnitPrice, req.Amount))
	}
	if price.Sign() <= 0 {
		return nil, errors.Wrap(ErrQuoteRejected, "no price configured")
	}

	return &chain.OrderData{
		Instrument: *instrument,
		Amount:     new(big.Int).Set(req.Amount),
		PriceToken: p.PriceToken,
		Price:      price,
	}, nil
}

func sameInstrument(a, b chain.Instrument) bool {
	return a.ItemType == b.ItemType && a.Token == b.Token &&
		bigOrZero(a.Identifier).Cmp(bigOrZero(b.Identifier)) == 0
}

func bigOrZero(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return x
}
