package valoremrfq

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/kaifufi/valorem-rfq-sdk-go/chain"
	"github.com/kaifufi/valorem-rfq-sdk-go/logger"
	"github.com/kaifufi/valorem-rfq-sdk-go/rpc"
)

const DefaultMakerConcurrency = 8

// MakerConfig configures a Maker.
type MakerConfig struct {
	SessionConfig

	Policy  MakerPolicy
	Custody chain.Custody
	// Builder signs orders with the session signer for one Seaport deployment.
	Builder *chain.OrderBuilder

	// Concurrency bounds how many requests are quoted at once.
	Concurrency int
	// OnReject, when set, receives every request the maker did not quote.
	OnReject func(Rejection)
}

// Maker answers quote requests with signed orders until its context ends.
type Maker struct {
	*Session
	rfq rpc.RFQClient
	cfg MakerConfig
}

// NewMaker creates a maker session on conn.
func NewMaker(conn grpc.ClientConnInterface, cfg MakerConfig) (*Maker, error) {
	if cfg.Policy == nil {
		return nil, &InvalidParamError{Message: "maker policy is required"}
	}
	if cfg.Custody == nil {
		return nil, &InvalidParamError{Message: "custody is required"}
	}
	if cfg.Builder == nil {
		return nil, &InvalidParamError{Message: "order builder is required"}
	}
	if cfg.Signer != nil && cfg.Builder.Offerer() != cfg.Signer.Address() {
		return nil, &InvalidParamError{Message: "order builder must sign with the session signer"}
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultMakerConcurrency
	}

	session, err := newSession(RoleMaker, cfg.SessionConfig)
	if err != nil {
		return nil, err
	}
	return &Maker{Session: session, rfq: rpc.NewRFQClient(conn), cfg: cfg}, nil
}

// Serve opens the maker stream and quotes requests until ctx is done or the
// stream fails. The session must be authenticated and is closed when Serve returns.
func (m *Maker) Serve(ctx context.Context) error {
	streamCtx, err := m.openStream(ctx)
	if err != nil {
		return err
	}
	defer m.Close()

	g, gctx := errgroup.WithContext(streamCtx)
	stream, err := m.rfq.Maker(gctx, m.Token().CallOption())
	if err != nil {
		return m.streamError(gctx, err)
	}
	m.log.InfoContext(gctx, "maker stream open")

	out := make(chan *rpc.QuoteResponse, m.cfg.Concurrency)
	g.Go(func() error {
		return m.send(gctx, stream, out)
	})
	g.Go(func() error {
		return m.receive(gctx, stream, out)
	})

	err = g.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// send emits the empty response that opens the stream, then every quote the
// handlers produce. Nothing is sent once ctx is done.
func (m *Maker) send(ctx context.Context, stream rpc.RFQ_MakerClient, out <-chan *rpc.QuoteResponse) error {
	if err := stream.Send(&rpc.QuoteResponse{}); err != nil {
		return m.streamError(ctx, err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-out:
			if ctx.Err() != nil {
				return nil
			}
			if err := stream.Send(msg); err != nil {
				return m.streamError(ctx, err)
			}
		}
	}
}

func (m *Maker) receive(ctx context.Context, stream rpc.RFQ_MakerClient, out chan<- *rpc.QuoteResponse) error {
	workers, wctx := errgroup.WithContext(ctx)
	workers.SetLimit(m.cfg.Concurrency)

	for {
		msg, err := stream.Recv()
		if err != nil {
			_ = workers.Wait()
			return m.streamError(ctx, err)
		}

		workers.Go(func() error {
			resp, err := m.handle(wctx, msg)
			if err != nil {
				r := Rejection{
					CorrelationID: ulidFromWire(msg.Ulid),
					Counterparty:  msg.TakerAddress.Address(),
					Err:           err,
				}
				m.reject(wctx, m.cfg.OnReject, r)
				return nil
			}
			select {
			case out <- resp:
			case <-wctx.Done():
			}
			return nil
		})
	}
}

// handle quotes a single request. Any error it returns declines that request only.
func (m *Maker) handle(ctx context.Context, msg *rpc.QuoteRequest) (*rpc.QuoteResponse, error) {
	req, err := requestFromWire(msg)
	if err != nil {
		return nil, err
	}

	domain := m.cfg.Builder.Domain()
	if req.ChainID != nil && req.ChainID.Sign() != 0 && req.ChainID.Cmp(domain.ChainID) != 0 {
		return nil, errors.Wrapf(ErrQuoteRejected, "chain id %s", req.ChainID)
	}
	if req.Seaport != (common.Address{}) && req.Seaport != domain.VerifyingContract {
		return nil, errors.Wrapf(ErrQuoteRejected, "seaport %s", req.Seaport.Hex())
	}

	data, err := m.cfg.Policy.Quote(ctx, req)
	if err != nil {
		if !errors.Is(err, ErrQuoteRejected) {
			err = errors.Wrap(ErrQuoteRejected, err.Error())
		}
		return nil, err
	}

	if err := m.cfg.Custody.EnsureAvailable(ctx, data.Instrument, data.Amount); err != nil {
		return nil, errors.Wrap(ErrPreconditionFailed, err.Error())
	}

	signed, err := m.cfg.Builder.BuildSignedOrder(ctx, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build order")
	}

	resp, err := quoteToWire(&Quote{
		CorrelationID: req.CorrelationID,
		Maker:         m.cfg.Builder.Offerer(),
		Order:         signed,
		ChainID:       domain.ChainID,
		Seaport:       domain.VerifyingContract,
	})
	if err != nil {
		return nil, err
	}

	m.log.InfoContext(ctx, "quote signed",
		logger.NewField("correlation_id", req.CorrelationID.String()),
		logger.NewField("taker", req.Taker.Hex()),
		logger.NewField("amount", req.Amount.String()),
		logger.NewField("price", data.Price.String()),
	)
	return resp, nil
}
