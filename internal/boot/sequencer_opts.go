package boot

import "time"

type SequencerOpt func(*Sequencer)

// WithPhaseDelay sets the pause after each phase.
func WithPhaseDelay(d time.Duration) SequencerOpt {
	return func(s *Sequencer) {
		s.delay = d
	}
}

// WithSleep replaces the wait between phases, mostly for tests.
func WithSleep(fn SleepFunc) SequencerOpt {
	return func(s *Sequencer) {
		s.sleep = fn
	}
}

// WithCheck installs a warm-up probe for a phase. Ready cannot have one.
func WithCheck(phase State, c Check) SequencerOpt {
	return func(s *Sequencer) {
		if phase == StateReady {
			return
		}
		s.checks[phase] = c
	}
}
