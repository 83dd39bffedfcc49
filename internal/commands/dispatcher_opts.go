package commands

import "time"

type DispatcherOpt func(*Dispatcher)

// WithClock replaces time.Now for ban timestamps.
func WithClock(now func() time.Time) DispatcherOpt {
	return func(d *Dispatcher) {
		d.now = now
	}
}
