package valoremrfq

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/kaifufi/valorem-rfq-sdk-go/wideint"
)

var (
	// ErrAuthenticationFailed means the sign-in handshake was rejected. Fatal to the session.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrMalformedWideInt means a wide integer field exceeded its declared width.
	ErrMalformedWideInt = wideint.ErrMalformedWideInt

	// ErrOutOfRange means a value did not fit the wide integer width it was encoded to.
	ErrOutOfRange = wideint.ErrOutOfRange

	// ErrIncompleteResponse means a quote response lacks a required field.
	ErrIncompleteResponse = errors.New("incomplete quote response")

	// ErrSignatureMismatch means an order's signature does not recover to its maker.
	ErrSignatureMismatch = errors.New("signature mismatch")

	// ErrPreconditionFailed means custody could not make the instrument available.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrTransport means the stream failed. Fatal to the session.
	ErrTransport = errors.New("transport error")

	// ErrInvalidQuoteRequest means a maker received a request it cannot interpret.
	ErrInvalidQuoteRequest = errors.New("invalid quote request")

	// ErrCorrelationMismatch means a response answers a different request.
	ErrCorrelationMismatch = errors.New("correlation id mismatch")

	// ErrQuoteRejected means a policy declined a quote or request.
	ErrQuoteRejected = errors.New("quote rejected")

	// ErrSettlementFailed means the accepted order could not be fulfilled.
	ErrSettlementFailed = errors.New("settlement failed")

	// ErrSessionClosed means the session has ended and cannot be reused.
	ErrSessionClosed = errors.New("session closed")

	// ErrInvalidTransition means an operation was attempted in the wrong session state.
	ErrInvalidTransition = errors.New("invalid session state transition")
)

// InvalidParamError represents an invalid parameter error with context
type InvalidParamError struct {
	Message string
}

func (e *InvalidParamError) Error() string {
	return e.Message
}

// IncompleteResponseError names the missing field of a rejected response.
type IncompleteResponseError struct {
	Field string
}

func (e *IncompleteResponseError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrIncompleteResponse, e.Field)
}

func (e *IncompleteResponseError) Is(target error) bool {
	return target == ErrIncompleteResponse
}

func incomplete(field string) error {
	return errors.WithStack(&IncompleteResponseError{Field: field})
}

// SignatureMismatchError carries the claimed and recovered signers.
type SignatureMismatchError struct {
	Claimed   string
	Recovered string
}

func (e *SignatureMismatchError) Error() string {
	return fmt.Sprintf("%s: order claims %s, signed by %s", ErrSignatureMismatch, e.Claimed, e.Recovered)
}

func (e *SignatureMismatchError) Is(target error) bool {
	return target == ErrSignatureMismatch
}

// TransportError wraps a stream failure. It matches ErrTransport.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", ErrTransport, e.Err)
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
