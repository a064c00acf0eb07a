package valoremrfq

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/oklog/ulid/v2"

	"github.com/kaifufi/valorem-rfq-sdk-go/chain"
	"github.com/kaifufi/valorem-rfq-sdk-go/rpc"
)

// Action represents the side a taker wants to trade
type Action int

const (
	ActionBuy Action = iota
	ActionSell
	ActionInvalid
)

func (a Action) String() string {
	return a.wire().String()
}

func (a Action) wire() rpc.Action {
	switch a {
	case ActionBuy:
		return rpc.ActionBuy
	case ActionSell:
		return rpc.ActionSell
	}
	return rpc.ActionInvalid
}

func actionFromWire(a rpc.Action) Action {
	switch a.Normalize() {
	case rpc.ActionBuy:
		return ActionBuy
	case rpc.ActionSell:
		return ActionSell
	}
	return ActionInvalid
}

// State represents the lifecycle position of a Session
type State int

const (
	StateIdle State = iota
	StateAuthenticated
	StateStreamOpen
	StateEvaluating
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAuthenticated:
		return "authenticated"
	case StateStreamOpen:
		return "stream_open"
	case StateEvaluating:
		return "evaluating"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Role is the side of the RFQ stream a session drives
type Role string

const (
	RoleTaker Role = "taker"
	RoleMaker Role = "maker"
)

// QuoteRequest asks makers for a signed offer. It is immutable once sent.
type QuoteRequest struct {
	CorrelationID ulid.ULID
	Taker         common.Address
	Instrument    chain.Instrument
	Amount        *big.Int
	Action        Action
	ChainID       *big.Int
	Seaport       common.Address
}

// NewQuoteRequest creates a request with a fresh correlation id.
func NewQuoteRequest(taker common.Address, instrument chain.Instrument, amount *big.Int, action Action) *QuoteRequest {
	return &QuoteRequest{
		CorrelationID: ulid.Make(),
		Taker:         taker,
		Instrument:    instrument,
		Amount:        amount,
		Action:        action,
	}
}

// Quote is a maker's signed answer to a QuoteRequest.
type Quote struct {
	CorrelationID ulid.ULID
	Maker         common.Address
	Order         *chain.SignedOrder
	ChainID       *big.Int
	Seaport       common.Address
}

// Price returns the total consideration of the order at now, summed over items
// paid in token.
func (q *Quote) Price(token common.Address, now *big.Int) *big.Int {
	total := new(big.Int)
	if q.Order == nil || q.Order.Order == nil {
		return total
	}
	for _, item := range q.Order.Order.Consideration {
		if item.Token == token {
			total.Add(total, item.CurrentAmount(q.Order.Order, now))
		}
	}
	return total
}

// Fill is the result of a successful negotiation.
type Fill struct {
	Quote   *Quote
	Receipt *types.Receipt
}

// Rejection describes a message a session skipped.
type Rejection struct {
	CorrelationID ulid.ULID
	Counterparty  common.Address
	Err           error
}
