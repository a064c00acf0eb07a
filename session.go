package valoremrfq

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kaifufi/valorem-rfq-sdk-go/chain"
	"github.com/kaifufi/valorem-rfq-sdk-go/logger"
)

// SessionConfig holds what every session needs regardless of role.
type SessionConfig struct {
	Signer chain.Signer
	Auth   AuthBridge
	// Tokens defaults to DefaultTokenCache.
	Tokens *TokenCache
	SignIn SignInConfig
	// Logger defaults to a no-op logger.
	Logger logger.Interface
}

// Session is one negotiation against the trade API. It moves through
// Idle -> Authenticated -> StreamOpen -> Evaluating -> Closed; Closed is final.
type Session struct {
	id   string
	role Role
	cfg  SessionConfig
	log  logger.Interface

	mu     sync.Mutex
	state  State
	token  SessionToken
	cancel context.CancelFunc
}

func newSession(role Role, cfg SessionConfig) (*Session, error) {
	if cfg.Signer == nil {
		return nil, &InvalidParamError{Message: "signer is required"}
	}
	if cfg.Auth == nil {
		return nil, &InvalidParamError{Message: "auth bridge is required"}
	}
	if cfg.Tokens == nil {
		cfg.Tokens = DefaultTokenCache
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}

	return &Session{
		id:   uuid.NewString(),
		role: role,
		cfg:  cfg,
		log: cfg.Logger.WithFields(
			logger.NewField("role", string(role)),
			logger.NewField("address", cfg.Signer.Address().Hex()),
		),
		state: StateIdle,
	}, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Role() Role {
	return s.role
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Token returns the session token, empty before Authenticate succeeds.
func (s *Session) Token() SessionToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Authenticate obtains a session token for the signer, reusing a cached one when
// the server still accepts it. On failure the session stays Idle.
func (s *Session) Authenticate(ctx context.Context) error {
	if err := s.expect(StateIdle); err != nil {
		return err
	}
	ctx = s.context(ctx)

	addr := s.cfg.Signer.Address()
	fetch := func(ctx context.Context) (SessionToken, error) {
		return SignIn(ctx, s.cfg.Auth, s.cfg.Signer, s.cfg.SignIn)
	}

	token, err := s.cfg.Tokens.Acquire(ctx, addr, fetch)
	if err == nil {
		var ok bool
		ok, err = s.cfg.Auth.CheckAuthenticated(ctx, token)
		if err == nil && !ok {
			s.log.InfoContext(ctx, "cached session token rejected, signing in again")
			s.cfg.Tokens.Invalidate(addr, token)
			token, err = s.cfg.Tokens.Acquire(ctx, addr, fetch)
		}
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !errors.Is(err, ErrAuthenticationFailed) {
			err = errors.Wrap(ErrAuthenticationFailed, err.Error())
		}
		s.log.ErrorContext(ctx, err)
		return err
	}

	if err := s.transition(StateAuthenticated, StateIdle); err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	s.log.InfoContext(ctx, "session authenticated")
	return nil
}

// Close ends the session and aborts any open stream. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return nil
}

// openStream moves Authenticated -> StreamOpen and returns a context that is
// cancelled when the stream must be torn down.
func (s *Session) openStream(ctx context.Context) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return nil, ErrSessionClosed
	}
	if s.state != StateAuthenticated {
		return nil, errors.Wrapf(ErrInvalidTransition, "%s -> %s", s.state, StateStreamOpen)
	}
	streamCtx, cancel := context.WithCancel(s.context(ctx))
	s.state = StateStreamOpen
	s.cancel = cancel
	return streamCtx, nil
}

// endStream releases the transport without changing state.
func (s *Session) endStream() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) transition(to State, from ...State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range from {
		if s.state == f {
			s.state = to
			return nil
		}
	}
	if s.state == StateClosed {
		return ErrSessionClosed
	}
	return errors.Wrapf(ErrInvalidTransition, "%s -> %s", s.state, to)
}

func (s *Session) expect(state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == state {
		return nil
	}
	if s.state == StateClosed {
		return ErrSessionClosed
	}
	return errors.Wrapf(ErrInvalidTransition, "expected %s, in %s", state, s.state)
}

// streamError classifies a failed Send or Recv. A rejected token is dropped from
// the cache so the next session signs in again.
func (s *Session) streamError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == io.EOF {
		return errors.WithStack(&TransportError{Err: errors.New("stream closed by server")})
	}
	switch status.Code(err) {
	case codes.Unauthenticated, codes.PermissionDenied:
		s.cfg.Tokens.Invalidate(s.cfg.Signer.Address(), s.Token())
		return errors.Wrap(ErrAuthenticationFailed, err.Error())
	}
	return errors.WithStack(&TransportError{Err: err})
}

func (s *Session) context(ctx context.Context) context.Context {
	return logger.ContextWithSessionID(ctx, s.id)
}

func (s *Session) reject(ctx context.Context, hook func(Rejection), r Rejection) {
	fields := []logger.Field{
		logger.NewField("correlation_id", r.CorrelationID.String()),
		logger.NewField("counterparty", r.Counterparty.Hex()),
	}
	switch {
	case errors.Is(r.Err, ErrSignatureMismatch):
		s.log.ErrorContext(ctx, r.Err, fields...)
	case errors.Is(r.Err, ErrQuoteRejected):
		s.log.DebugContext(ctx, r.Err.Error(), fields...)
	default:
		s.log.WarnContext(ctx, r.Err.Error(), fields...)
	}
	if hook != nil {
		hook(r)
	}
}
