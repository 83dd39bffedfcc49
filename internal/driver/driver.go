package driver

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultTickLength = time.Second
)

// Ticker is anything advanced once per tick.
type Ticker interface {
	Tick(context.Context) error
}

// Driver fires its tickers on a fixed wall-clock interval. Firings that are
// missed while a tick is still running are dropped, not queued.
type Driver struct {
	tickLength time.Duration
	tickers    []Ticker
}

func NewDriver(tickers []Ticker, opts ...DriverOpt) *Driver {
	d := &Driver{
		tickLength: DefaultTickLength,
		tickers:    tickers,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// TickLength is the interval between firings.
func (d *Driver) TickLength() time.Duration {
	return d.tickLength
}

func (d *Driver) Start(ctx context.Context) error {
	ticker := time.NewTicker(d.tickLength)
	defer ticker.Stop()

	slog.InfoContext(ctx, "driver started", "tick_length", d.tickLength)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := d.Tick(ctx)
			if err != nil {
				return err
			}
			if n := dropMissed(ticker.C); n > 0 {
				slog.WarnContext(ctx, "tick overran interval", "dropped", n)
			}
		}
	}
}

// dropMissed discards firings that came due while a tick was running.
func dropMissed(c <-chan time.Time) int {
	n := 0
	for {
		select {
		case <-c:
			n++
		default:
			return n
		}
	}
}

func (d *Driver) Tick(ctx context.Context) error {
	for _, t := range d.tickers {
		if err := t.Tick(ctx); err != nil {
			return err
		}
	}
	return nil
}
