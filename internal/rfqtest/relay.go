package rfqtest

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/kaifufi/valorem-rfq-sdk-go/rpc"
	"github.com/kaifufi/valorem-rfq-sdk-go/wideint"
)

type ulidKey struct {
	hi, lo uint64
}

func keyOf(h *wideint.H128) ulidKey {
	if h == nil {
		return ulidKey{}
	}
	return ulidKey{h.Hi, h.Lo}
}

// Relay forwards taker requests to every connected maker and routes maker
// responses back to the taker that sent the matching request. Every stream
// must carry a signed-in cookie.
type Relay struct {
	auth *AuthServer

	mu        sync.Mutex
	nextMaker int
	makers    map[int]chan *rpc.QuoteRequest
	takers    map[ulidKey]chan *rpc.QuoteResponse
	requests  []*rpc.QuoteRequest
	responses []*rpc.QuoteResponse
	openers   []*rpc.QuoteResponse
}

var _ rpc.RFQServer = (*Relay)(nil)

func NewRelay(auth *AuthServer) *Relay {
	return &Relay{
		auth:   auth,
		makers: make(map[int]chan *rpc.QuoteRequest),
		takers: make(map[ulidKey]chan *rpc.QuoteResponse),
	}
}

func (r *Relay) Taker(stream rpc.RFQ_TakerServer) error {
	ctx := stream.Context()
	if _, err := r.auth.Authorized(ctx); err != nil {
		return err
	}

	// Takers first see a keep-alive, as they do against the live service.
	if err := stream.Send(&rpc.QuoteResponse{}); err != nil {
		return err
	}

	out := make(chan *rpc.QuoteResponse, 16)
	defer r.dropTaker(out)

	errc := make(chan error, 1)
	go func() {
		for {
			req, err := stream.Recv()
			if err == io.EOF {
				return
			}
			if err != nil {
				errc <- err
				return
			}
			r.publish(req, out)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errc:
			return err
		case resp := <-out:
			if err := stream.Send(resp); err != nil {
				return err
			}
		}
	}
}

func (r *Relay) Maker(stream rpc.RFQ_MakerServer) error {
	ctx := stream.Context()
	if _, err := r.auth.Authorized(ctx); err != nil {
		return err
	}

	first, err := stream.Recv()
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.openers = append(r.openers, first)
	r.mu.Unlock()
	if !first.IsKeepAlive() {
		r.route(first)
	}

	in := make(chan *rpc.QuoteRequest, 16)
	id := r.addMaker(in)
	defer r.dropMaker(id)

	errc := make(chan error, 1)
	go func() {
		for {
			resp, err := stream.Recv()
			if err != nil {
				errc <- err
				return
			}
			if !resp.IsKeepAlive() {
				r.route(resp)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errc:
			if err == io.EOF {
				return nil
			}
			return err
		case req := <-in:
			if err := stream.Send(req); err != nil {
				return err
			}
		}
	}
}

// Inject delivers resp to the taker waiting on its ulid, as if a maker sent it.
func (r *Relay) Inject(resp *rpc.QuoteResponse) bool {
	return r.route(resp)
}

// WaitMakers blocks until at least n makers are connected.
func (r *Relay) WaitMakers(ctx context.Context, n int) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		r.mu.Lock()
		connected := len(r.makers)
		r.mu.Unlock()
		if connected >= n {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitRequests blocks until at least n requests have been published.
func (r *Relay) WaitRequests(ctx context.Context, n int) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		if len(r.Requests()) >= n {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Requests returns every request takers have sent.
func (r *Relay) Requests() []*rpc.QuoteRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*rpc.QuoteRequest(nil), r.requests...)
}

// Responses returns every non-empty response makers have sent for ulid.
func (r *Relay) Responses(ulid *wideint.H128) []*rpc.QuoteResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*rpc.QuoteResponse
	for _, resp := range r.responses {
		if keyOf(resp.Ulid) == keyOf(ulid) {
			out = append(out, resp)
		}
	}
	return out
}

// Openers returns the first message of every maker stream.
func (r *Relay) Openers() []*rpc.QuoteResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*rpc.QuoteResponse(nil), r.openers...)
}

func (r *Relay) publish(req *rpc.QuoteRequest, out chan *rpc.QuoteResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	r.takers[keyOf(req.Ulid)] = out
	for _, in := range r.makers {
		select {
		case in <- req:
		default:
		}
	}
}

func (r *Relay) route(resp *rpc.QuoteResponse) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, resp)
	out, ok := r.takers[keyOf(resp.Ulid)]
	if !ok {
		return false
	}
	select {
	case out <- resp:
		return true
	default:
		return false
	}
}

func (r *Relay) addMaker(in chan *rpc.QuoteRequest) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextMaker++
	r.makers[r.nextMaker] = in
	return r.nextMaker
}

func (r *Relay) dropMaker(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.makers, id)
}

func (r *Relay) dropTaker(out chan *rpc.QuoteResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, ch := range r.takers {
		if ch == out {
			delete(r.takers, key)
		}
	}
}
