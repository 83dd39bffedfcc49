package command

import (
	"fmt"

	"github.com/pixil98/go-errors"

	"github.com/pixil98/go-voxel/internal/messaging"
	"github.com/pixil98/go-voxel/internal/tick"
)

type ExecutorType string

const (
	ExecutorLocal ExecutorType = "local"
	ExecutorNats  ExecutorType = "nats"
)

type TickConfig struct {
	Executor     ExecutorType `json:"executor"`
	TicksPerDay  int64        `json:"ticks_per_day"`
	DateTemplate string       `json:"date_template"`
}

func (c *TickConfig) validate() error {
	el := errors.NewErrorList()

	switch c.Executor {
	case "", ExecutorLocal, ExecutorNats:
	default:
		el.Add(fmt.Errorf("tick: unknown executor %q", c.Executor))
	}
	if c.TicksPerDay < 0 {
		el.Add(fmt.Errorf("tick: ticks_per_day must be positive"))
	}
	if _, err := c.BuildCalendar(); err != nil {
		el.Add(fmt.Errorf("tick: %w", err))
	}

	return el.Err()
}

func (c *TickConfig) BuildCalendar() (*tick.Calendar, error) {
	perDay := c.TicksPerDay
	if perDay == 0 {
		perDay = tick.DefaultTicksPerDay
	}
	return tick.NewCalendar(perDay, c.DateTemplate)
}

// BuildExecutor returns the executor and, for the nats strategy, the worker
// that must run alongside it.
func (c *TickConfig) BuildExecutor(cal *tick.Calendar, bus *messaging.NatsServer) (tick.Executor, *tick.Worker) {
	if c.Executor == ExecutorNats {
		return tick.NewNatsExecutor(bus), tick.NewWorker(bus, cal)
	}
	return tick.NewLocalExecutor(cal), nil
}
