package engine

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies why a single exchange with the echo server did not succeed.
type ErrorKind int

const (
	KindSuccess ErrorKind = iota
	KindConnectFailed
	KindSendFailed
	KindReceiveFailed
	KindMismatch
	KindPeerClosed
)

// FailureKinds lists every non-success kind in report order.
var FailureKinds = []ErrorKind{KindConnectFailed, KindSendFailed, KindReceiveFailed, KindMismatch, KindPeerClosed}

func (k ErrorKind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindConnectFailed:
		return "connect_failed"
	case KindSendFailed:
		return "send_failed"
	case KindReceiveFailed:
		return "receive_failed"
	case KindMismatch:
		return "mismatch"
	case KindPeerClosed:
		return "peer_closed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText lets reports use kind names as JSON object keys.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ExchangeError carries the failure kind together with the underlying cause.
type ExchangeError struct {
	Kind ErrorKind
	Err  error
}

func (e *ExchangeError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}

	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

func newExchangeError(kind ErrorKind, err error) *ExchangeError {
	return &ExchangeError{Kind: kind, Err: err}
}

// KindOf returns the ErrorKind stored in err, KindSuccess for nil and
// KindReceiveFailed for errors that did not come from a session.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindSuccess
	}

	var xe *ExchangeError
	if errors.As(err, &xe) {
		return xe.Kind
	}

	return KindReceiveFailed
}

// Exchange is the outcome of one send/receive round on a session.
type Exchange struct {
	Kind    ErrorKind
	Elapsed time.Duration
	Size    int
	Err     error
}

// OK reports whether the echo matched the payload.
func (x Exchange) OK() bool {
	return x.Kind == KindSuccess
}
