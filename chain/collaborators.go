package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

//go:generate mockgen -source collaborators.go -destination=mock/collaborators_mock.go -package=chain_mock

// StateReader reads the chain state an order depends on.
type StateReader interface {
	// BlockTimestamp returns the timestamp of the latest block in unix seconds.
	BlockTimestamp(ctx context.Context) (uint64, error)
	// Counter returns the offerer's current Seaport counter.
	Counter(ctx context.Context, offerer common.Address) (*big.Int, error)
}

// Settlement executes an accepted order. Fulfillment is all-or-nothing.
type Settlement interface {
	Fulfill(ctx context.Context, order *SignedOrder) (*types.Receipt, error)
}

// Custody makes an instrument available to the maker before it is offered,
// minting or acquiring it if needed.
type Custody interface {
	EnsureAvailable(ctx context.Context, instrument Instrument, amount *big.Int) error
}
