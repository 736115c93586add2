package notifier

import (
	"errors"
	"fmt"

	"github.com/a7exd/cheap-flights-finder/internal/flight"
)

// Failure kinds. Every *SendError wraps exactly one of these (or
// flight.ErrMalformedOffer) next to its cause.
var (
	ErrTransport        = errors.New("transport failure")
	ErrAuth             = errors.New("authentication rejected")
	ErrDeliveryRejected = errors.New("delivery rejected")
	ErrNotImplemented   = errors.New("channel not implemented")
)

// SendError is returned by Channel.Send on failure.
type SendError struct {
	Channel string
	Kind    error
	Err     error
}

func (e *SendError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Channel, e.Kind)
	}
	if errors.Is(e.Err, e.Kind) {
		return fmt.Sprintf("%s: %v", e.Channel, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Channel, e.Kind, e.Err)
}

func (e *SendError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func sendError(channel string, kind, err error) *SendError {
	return &SendError{Channel: channel, Kind: kind, Err: err}
}

// kindOf picks the failure kind carried by err, defaulting to ErrTransport.
func kindOf(err error) error {
	for _, kind := range []error{flight.ErrMalformedOffer, ErrAuth, ErrDeliveryRejected, ErrNotImplemented, ErrTransport} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrTransport
}
