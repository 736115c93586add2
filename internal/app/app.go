package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/a7exd/cheap-flights-finder/internal/config"
	"github.com/a7exd/cheap-flights-finder/internal/flight"
	"github.com/a7exd/cheap-flights-finder/internal/gateway/notifier"
	"github.com/a7exd/cheap-flights-finder/internal/logger"

	"golang.org/x/sync/errgroup"
)

// App holds the enabled notification channels and dispatches offers to them.
type App struct {
	cfg      *config.Config
	channels []notifier.Channel
	Summary  *StartupSummary
}

// NewApp builds the application from configuration without sending anything.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run prints the startup summary and alerts about one offer.
func (a *App) Run(ctx context.Context, offer *flight.Offer) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	results, err := a.Notify(ctx, offer)
	PrintResults(results)
	return err
}

// Notify sends offer through every channel concurrently. Channels fail
// independently; the returned error joins the failed results.
func (a *App) Notify(ctx context.Context, offer *flight.Offer) ([]notifier.Result, error) {
	if len(a.channels) == 0 {
		return nil, fmt.Errorf("no notification channel configured")
	}
	if err := offer.Validate(); err != nil {
		return nil, err
	}
	req := notifier.Request{Offer: offer}
	if a.cfg != nil {
		req.Passengers = a.cfg.Notify.Passengers
	}

	results := make([]notifier.Result, len(a.channels))
	var eg errgroup.Group
	for i, ch := range a.channels {
		eg.Go(func() error {
			results[i] = notifier.Deliver(ctx, ch, req)
			logResult(results[i])
			return nil
		})
	}
	_ = eg.Wait()

	var errs []error
	for _, res := range results {
		if !res.OK() {
			errs = append(errs, res.Err)
		}
	}
	return results, errors.Join(errs...)
}

// Channels exposes the built channels in dispatch order.
func (a *App) Channels() []notifier.Channel {
	if a == nil {
		return nil
	}
	return a.channels
}

func logResult(res notifier.Result) {
	log := logger.With("channel", res.Channel, "id", res.ID, "elapsed", res.Elapsed)
	switch res.Status {
	case notifier.StatusSuccess:
		log.Info("flight alert sent")
	case notifier.StatusNotImplemented:
		log.Warn("flight alert skipped", "status", res.Status, "err", res.Err)
	default:
		log.Error("flight alert failed", "status", res.Status, "err", res.Err)
	}
}
