package tick

import "time"

type SchedulerOpt func(*Scheduler)

// WithInterval sets the wall-clock time one firing represents. It must match the driver's tick length.
func WithInterval(d time.Duration) SchedulerOpt {
	return func(s *Scheduler) {
		s.interval = d
	}
}

// WithClock replaces time.Now for lastTickTimestamp.
func WithClock(now func() time.Time) SchedulerOpt {
	return func(s *Scheduler) {
		s.now = now
	}
}
