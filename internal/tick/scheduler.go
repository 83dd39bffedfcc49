package tick

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/pixil98/go-voxel/internal/game"
	"github.com/pixil98/go-voxel/internal/protocol"
)

const DefaultInterval = time.Second

var errStale = errors.New("tick already advanced")

// Store is the slice of storage.ServerStore the scheduler needs.
type Store interface {
	Get(ctx context.Context, id game.ServerId) (*game.ServerInstance, error)
	Update(ctx context.Context, id game.ServerId, fn func(*game.ServerInstance) error) (*game.ServerInstance, error)
}

// Counter reports live connections per instance.
type Counter interface {
	Count(id game.ServerId) int
}

// CounterFunc adapts a function to Counter.
type CounterFunc func(id game.ServerId) int

func (f CounterFunc) Count(id game.ServerId) int { return f(id) }

// Scheduler advances the clock of every instance that has players. It is
// driven by driver.Driver through Tick.
type Scheduler struct {
	store    Store
	pub      game.Broadcaster
	exec     Executor
	counter  Counter
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	active map[game.ServerId]struct{}
}

func NewScheduler(store Store, pub game.Broadcaster, exec Executor, counter Counter, opts ...SchedulerOpt) *Scheduler {
	s := &Scheduler{
		store:    store,
		pub:      pub,
		exec:     exec,
		counter:  counter,
		interval: DefaultInterval,
		now:      time.Now,
		active:   map[game.ServerId]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resume marks the instance as having players.
func (s *Scheduler) Resume(id game.ServerId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[id] = struct{}{}
}

// Pause stops firing for the instance until it is resumed.
func (s *Scheduler) Pause(id game.ServerId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, id)
}

// Resumed reports whether the instance is in the resume set.
func (s *Scheduler) Resumed(id game.ServerId) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[id]
	return ok
}

// Running reports whether the instance's clock advances on the next firing:
// it is resumed, has at least one connection and has ticking enabled.
func (s *Scheduler) Running(ctx context.Context, id game.ServerId) (bool, error) {
	if !s.Resumed(id) || s.counter.Count(id) == 0 {
		return false, nil
	}
	si, err := s.store.Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("loading server: %w", err)
	}
	return si.TickEnabled, nil
}

func (s *Scheduler) activeIds() []game.ServerId {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]game.ServerId, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Tick fires every resumed instance. Per-instance failures are logged and never
// returned, so one broken instance cannot stop the driver.
func (s *Scheduler) Tick(ctx context.Context) error {
	for _, id := range s.activeIds() {
		if _, err := s.Fire(ctx, id); err != nil {
			slog.WarnContext(ctx, "tick failed", "server", id, "error", err)
		}
	}
	return nil
}

// Fire runs one firing for the instance and reports whether the clock advanced.
// It returns (false, nil) when nobody is connected or ticking is disabled.
func (s *Scheduler) Fire(ctx context.Context, id game.ServerId) (bool, error) {
	si, err := s.store.Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("loading server: %w", err)
	}
	if !si.TickEnabled {
		return false, nil
	}
	if s.counter.Count(id) == 0 {
		return false, nil
	}

	res, err := s.exec.Compute(ctx, Request{
		ServerId:      id,
		GlobalTick:    si.GlobalTick,
		TickRate:      si.TickRate,
		Interval:      s.interval,
		GameStartDate: si.GameStartDate,
	})
	if err != nil {
		return false, fmt.Errorf("computing tick: %w", err)
	}

	_, err = s.store.Update(ctx, id, func(cur *game.ServerInstance) error {
		if cur.GlobalTick >= res.Ticks {
			return errStale
		}
		cur.GlobalTick = res.Ticks
		cur.LastTickTimestamp = s.now()
		return nil
	})
	if errors.Is(err, errStale) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("persisting tick: %w", err)
	}

	err = s.pub.ToInstanceTick(id, protocol.TickUpdate{
		ServerId:   id,
		Ticks:      res.Ticks,
		TickOfDay:  res.TickOfDay,
		Day:        res.Day,
		InGameDate: res.InGameDate,
	})
	if err != nil {
		return true, fmt.Errorf("broadcasting tick: %w", err)
	}
	return true, nil
}
