package notifier

import (
	"context"

	"github.com/a7exd/cheap-flights-finder/internal/flight"
)

// Channel delivers a flight alert through one medium (SMS, email, chat).
// A nil error from Send means the remote side accepted the message;
// failures are *SendError values.
type Channel interface {
	Name() string
	Send(ctx context.Context, req Request) error
}

// Request is one alert to deliver. It is owned by the caller and is not
// modified by any channel.
type Request struct {
	Offer *flight.Offer
	// Passengers feeds the booking link; <= 0 selects the channel default.
	Passengers int
}

func (r Request) passengers(fallback int) int {
	if r.Passengers > 0 {
		return r.Passengers
	}
	if fallback > 0 {
		return fallback
	}
	return 1
}
