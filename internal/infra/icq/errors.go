package icq

import (
	"errors"
	"fmt"
)

// Kind classifies a client failure
type Kind int

const (
	// KindSerialization means the request body could not be built
	KindSerialization Kind = iota + 1
	// KindDeserialization means the response body could not be decoded
	KindDeserialization
	// KindTransport means the network call failed or the service reported an error status
	KindTransport
)

// Sentinels for errors.Is
var (
	ErrSerialization   = errors.New("request serialization failed")
	ErrDeserialization = errors.New("response deserialization failed")
	ErrTransport       = errors.New("transport failed")
)

func (k Kind) sentinel() error {
	switch k {
	case KindSerialization:
		return ErrSerialization
	case KindDeserialization:
		return ErrDeserialization
	default:
		return ErrTransport
	}
}

func (k Kind) String() string {
	switch k {
	case KindSerialization:
		return "serialization"
	case KindDeserialization:
		return "deserialization"
	case KindTransport:
		return "transport"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is returned by every Client call
type Error struct {
	Op     string // Remote operation, e.g. "sendIM"
	Kind   Kind
	Status int // HTTP or envelope status, 0 if none
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("icq %s: %s error", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error kind
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func newError(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}
