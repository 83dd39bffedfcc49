// Package boot gates the process behind a one-shot startup sequence.
package boot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pixil98/go-voxel/internal/protocol"
)

const DefaultPhaseDelay = 2 * time.Second

var ErrAlreadyStarted = errors.New("boot sequence already started")

// State is a boot phase. Transitions are linear and happen once.
type State int32

const (
	StateInit State = iota
	StatePreInit
	StatePostInit
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StatePreInit:
		return "preinit"
	case StatePostInit:
		return "postinit"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

var phaseEvents = map[State]string{
	StateInit:     protocol.EventServerInit,
	StatePreInit:  protocol.EventServerPreInit,
	StatePostInit: protocol.EventServerPostInit,
	StateReady:    protocol.EventServerReady,
}

// Check is a warm-up probe run at the start of a phase. The phase does not
// advance until it succeeds.
type Check func(ctx context.Context) error

// SleepFunc waits for d or until ctx ends.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Broadcaster receives the phase notices.
type Broadcaster interface {
	ToAll(event string, data any) error
}

// Sequencer is the process-wide boot state machine.
type Sequencer struct {
	pub    Broadcaster
	delay  time.Duration
	sleep  SleepFunc
	checks map[State]Check

	state   atomic.Int32
	started atomic.Bool
	done    chan struct{}
	once    sync.Once
}

func NewSequencer(pub Broadcaster, opts ...SequencerOpt) *Sequencer {
	s := &Sequencer{
		pub:    pub,
		delay:  DefaultPhaseDelay,
		sleep:  sleepContext,
		checks: map[State]Check{},
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// State returns the current phase.
func (s *Sequencer) State() State {
	return State(s.state.Load())
}

// Ready reports whether the sequence has completed.
func (s *Sequencer) Ready() bool {
	return s.State() == StateReady
}

// Done is closed when the sequencer reaches Ready.
func (s *Sequencer) Done() <-chan struct{} {
	return s.done
}

// Start runs the sequence and then blocks until ctx ends.
func (s *Sequencer) Start(ctx context.Context) error {
	if err := s.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	<-ctx.Done()
	return nil
}

// Run executes every phase once. It returns ErrAlreadyStarted on a second call.
func (s *Sequencer) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	for _, phase := range []State{StateInit, StatePreInit, StatePostInit} {
		s.state.Store(int32(phase))

		if err := s.runCheck(ctx, phase); err != nil {
			return err
		}
		s.notify(ctx, phase)

		if err := s.sleep(ctx, s.delay); err != nil {
			return fmt.Errorf("boot %s: %w", phase, err)
		}
	}

	s.state.Store(int32(StateReady))
	s.once.Do(func() { close(s.done) })
	s.notify(ctx, StateReady)
	slog.InfoContext(ctx, "server ready")
	return nil
}

func (s *Sequencer) runCheck(ctx context.Context, phase State) error {
	check, ok := s.checks[phase]
	if !ok {
		return nil
	}
	for {
		err := check(ctx)
		if err == nil {
			return nil
		}
		slog.WarnContext(ctx, "boot check failed, retrying", "phase", phase, "error", err)
		if err := s.sleep(ctx, s.delay); err != nil {
			return fmt.Errorf("boot %s: %w", phase, err)
		}
	}
}

func (s *Sequencer) notify(ctx context.Context, phase State) {
	slog.InfoContext(ctx, "boot phase", "phase", phase)
	msg := protocol.Notice{Message: fmt.Sprintf("server %s", phase)}
	if err := s.pub.ToAll(phaseEvents[phase], msg); err != nil {
		slog.WarnContext(ctx, "broadcasting boot phase", "phase", phase, "error", err)
	}
}
