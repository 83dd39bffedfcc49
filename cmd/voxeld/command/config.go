package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
)

type Config struct {
	TickInterval string          `json:"tick_interval"`
	Listener     ListenerConfig  `json:"listener"`
	Storage      StorageConfig   `json:"storage"`
	Nats         NatsConfig      `json:"nats"`
	Boot         BootConfig      `json:"boot"`
	Tick         TickConfig      `json:"tick"`
	Proximity    ProximityConfig `json:"proximity"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	if _, err := c.tickInterval(); err != nil {
		el.Add(err)
	}

	el.Add(c.Listener.validate())
	el.Add(c.Storage.validate())
	el.Add(c.Nats.validate())
	el.Add(c.Boot.validate())
	el.Add(c.Tick.validate())
	el.Add(c.Proximity.validate())

	return el.Err()
}

// tickInterval defaults to one second when unset.
func (c *Config) tickInterval() (time.Duration, error) {
	if c.TickInterval == "" {
		return time.Second, nil
	}
	d, err := time.ParseDuration(c.TickInterval)
	if err != nil {
		return 0, fmt.Errorf("parsing tick_interval: %w", err)
	}
	if d < 100*time.Millisecond {
		return 0, fmt.Errorf("tick_interval must be at least 100ms")
	}
	return d, nil
}
