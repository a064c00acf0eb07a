package valoremrfq

import (
	"context"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/kaifufi/valorem-rfq-sdk-go/chain"
	"github.com/kaifufi/valorem-rfq-sdk-go/logger"
	"github.com/kaifufi/valorem-rfq-sdk-go/rpc"
)

// TakerConfig configures a Taker.
type TakerConfig struct {
	SessionConfig

	// Domain is the Seaport deployment orders must be signed for.
	Domain     *chain.EIP712Domain
	Policy     TakerPolicy
	Settlement chain.Settlement
	// State supplies the offerer counter when a quote omits it.
	State chain.StateReader

	// RequestInterval re-sends the request at this cadence until a quote is
	// accepted. Zero sends it once.
	RequestInterval time.Duration
	// OnReject, when set, receives every quote the taker skipped.
	OnReject func(Rejection)
}

// Taker asks makers for quotes and settles the first acceptable one.
type Taker struct {
	*Session
	rfq rpc.RFQClient
	cfg TakerConfig
}

// NewTaker creates a taker session on conn.
func NewTaker(conn grpc.ClientConnInterface, cfg TakerConfig) (*Taker, error) {
	if cfg.Domain == nil || cfg.Domain.ChainID == nil {
		return nil, &InvalidParamError{Message: "eip712 domain is required"}
	}
	if cfg.Policy == nil {
		return nil, &InvalidParamError{Message: "taker policy is required"}
	}
	if cfg.Settlement == nil {
		return nil, &InvalidParamError{Message: "settlement is required"}
	}
	if cfg.State == nil {
		return nil, &InvalidParamError{Message: "state reader is required"}
	}
	if cfg.RequestInterval < 0 {
		return nil, &InvalidParamError{Message: "request interval must not be negative"}
	}

	session, err := newSession(RoleTaker, cfg.SessionConfig)
	if err != nil {
		return nil, err
	}
	return &Taker{Session: session, rfq: rpc.NewRFQClient(conn), cfg: cfg}, nil
}

// Negotiate sends req and settles the first quote that passes validation and the
// taker policy. Malformed, unverifiable and declined quotes are skipped. The
// session must be authenticated and is closed when Negotiate returns. It blocks
// until a fill, a fatal stream error or ctx is done.
func (t *Taker) Negotiate(ctx context.Context, req *QuoteRequest) (*Fill, error) {
	r := *req
	req = &r
	if req.ChainID == nil {
		req.ChainID = t.cfg.Domain.ChainID
	}
	if req.Seaport == (common.Address{}) {
		req.Seaport = t.cfg.Domain.VerifyingContract
	}
	if req.Taker == (common.Address{}) {
		req.Taker = t.cfg.Signer.Address()
	}
	msg, err := requestToWire(req)
	if err != nil {
		return nil, err
	}

	streamCtx, err := t.openStream(ctx)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	t.log.InfoContext(streamCtx, "requesting quotes",
		logger.NewField("correlation_id", req.CorrelationID.String()),
		logger.NewField("action", req.Action.String()),
		logger.NewField("amount", req.Amount.String()),
	)

	g, gctx := errgroup.WithContext(streamCtx)
	stream, err := t.rfq.Taker(gctx, t.Token().CallOption())
	if err != nil {
		t.endStream()
		return nil, t.streamError(gctx, err)
	}

	accepted := make(chan struct{})
	var quote *Quote
	g.Go(func() error {
		return t.send(gctx, stream, msg, accepted)
	})
	g.Go(func() error {
		q, err := t.receive(gctx, stream, req)
		if err != nil {
			return err
		}
		quote = q
		close(accepted)
		return nil
	})
	err = g.Wait()
	t.endStream()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	return t.settle(ctx, quote)
}

// send writes the request once, or on every tick of RequestInterval until a quote
// is accepted, then half-closes the stream.
func (t *Taker) send(ctx context.Context, stream rpc.RFQ_TakerClient, msg *rpc.QuoteRequest, accepted <-chan struct{}) error {
	if err := stream.Send(msg); err != nil {
		if err == io.EOF {
			return nil
		}
		return t.streamError(ctx, err)
	}

	if t.cfg.RequestInterval > 0 {
		ticker := time.NewTicker(t.cfg.RequestInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-accepted:
				return nil
			case <-ticker.C:
				if err := stream.Send(msg); err != nil {
					if err == io.EOF {
						return nil
					}
					return t.streamError(ctx, err)
				}
			}
		}
	}

	if err := stream.CloseSend(); err != nil {
		return t.streamError(ctx, err)
	}
	return nil
}

func (t *Taker) receive(ctx context.Context, stream rpc.RFQ_TakerClient, req *QuoteRequest) (*Quote, error) {
	for {
		resp, err := stream.Recv()
		if err != nil {
			return nil, t.streamError(ctx, err)
		}
		if resp.IsKeepAlive() {
			continue
		}

		quote, err := t.evaluate(ctx, req, resp)
		if err != nil {
			r := Rejection{Err: err}
			if quote != nil {
				r.CorrelationID = quote.CorrelationID
				r.Counterparty = quote.Maker
			} else {
				r.CorrelationID = ulidFromWire(resp.Ulid)
				r.Counterparty = resp.MakerAddress.Address()
			}
			t.reject(ctx, t.cfg.OnReject, r)
			continue
		}

		t.log.InfoContext(ctx, "quote accepted",
			logger.NewField("correlation_id", quote.CorrelationID.String()),
			logger.NewField("maker", quote.Maker.Hex()),
		)
		return quote, nil
	}
}

// evaluate decodes and checks a single response. Any error it returns rejects
// that response only.
func (t *Taker) evaluate(ctx context.Context, req *QuoteRequest, resp *rpc.QuoteResponse) (*Quote, error) {
	quote, err := quoteFromWire(resp)
	if err != nil {
		return nil, err
	}
	if quote.CorrelationID != req.CorrelationID {
		return quote, errors.Wrapf(ErrCorrelationMismatch, "got %s", quote.CorrelationID)
	}
	if quote.ChainID != nil && quote.ChainID.Cmp(t.cfg.Domain.ChainID) != 0 {
		return quote, errors.Wrapf(ErrQuoteRejected, "chain id %s", quote.ChainID)
	}

	order := quote.Order.Order
	if order.Counter == nil {
		counter, err := t.cfg.State.Counter(ctx, order.Offerer)
		if err != nil {
			return quote, errors.Wrap(err, "failed to read offerer counter")
		}
		order.Counter = counter
	}

	signer, err := chain.VerifyOrder(t.cfg.Domain, quote.Order)
	if err != nil {
		return quote, errors.Wrap(ErrSignatureMismatch, err.Error())
	}
	if signer != quote.Maker || order.Offerer != quote.Maker {
		return quote, errors.WithStack(&SignatureMismatchError{Claimed: quote.Maker.Hex(), Recovered: signer.Hex()})
	}

	if err := t.cfg.Policy.Accept(ctx, req, quote); err != nil {
		if !errors.Is(err, ErrQuoteRejected) {
			err = errors.Wrap(ErrQuoteRejected, err.Error())
		}
		return quote, err
	}
	return quote, nil
}

func (t *Taker) settle(ctx context.Context, quote *Quote) (*Fill, error) {
	if err := t.transition(StateEvaluating, StateStreamOpen); err != nil {
		return nil, err
	}
	ctx = t.context(ctx)

	receipt, err := t.cfg.Settlement.Fulfill(ctx, quote.Order)
	if err != nil {
		err = errors.Wrap(ErrSettlementFailed, err.Error())
		t.log.ErrorContext(ctx, err, logger.NewField("correlation_id", quote.CorrelationID.String()))
		return nil, err
	}

	fields := []logger.Field{logger.NewField("correlation_id", quote.CorrelationID.String())}
	if receipt != nil {
		fields = append(fields, logger.NewField("tx_hash", receipt.TxHash.Hex()))
	}
	t.log.InfoContext(ctx, "order fulfilled", fields...)
	return &Fill{Quote: quote, Receipt: receipt}, nil
}
