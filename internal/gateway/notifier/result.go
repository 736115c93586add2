package notifier

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusSuccess        Status = "success"
	StatusFailure        Status = "failure"
	StatusNotImplemented Status = "not_implemented"
)

// Result is the terminal outcome of one send attempt.
type Result struct {
	ID      string
	Channel string
	Status  Status
	Err     error
	Elapsed time.Duration
}

func (r Result) OK() bool { return r.Status == StatusSuccess }

// Deliver performs a single send on ch and classifies the outcome.
// It never retries.
func Deliver(ctx context.Context, ch Channel, req Request) Result {
	res := Result{ID: uuid.NewString(), Channel: ch.Name()}
	start := time.Now()
	err := ch.Send(ctx, req)
	res.Elapsed = time.Since(start)
	res.Err = err
	switch {
	case err == nil:
		res.Status = StatusSuccess
	case errors.Is(err, ErrNotImplemented):
		res.Status = StatusNotImplemented
	default:
		res.Status = StatusFailure
	}
	return res
}
