package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-voxel/internal/boot"
)

type BootConfig struct {
	PhaseDelay string `json:"phase_delay"`
}

func (c *BootConfig) validate() error {
	if c.PhaseDelay == "" {
		return nil
	}
	d, err := time.ParseDuration(c.PhaseDelay)
	if err != nil {
		return fmt.Errorf("boot: parsing phase_delay: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("boot: phase_delay must not be negative")
	}
	return nil
}

func (c *BootConfig) BuildSequencer(pub boot.Broadcaster, opts ...boot.SequencerOpt) (*boot.Sequencer, error) {
	if c.PhaseDelay != "" {
		d, err := time.ParseDuration(c.PhaseDelay)
		if err != nil {
			return nil, fmt.Errorf("parsing phase_delay: %w", err)
		}
		opts = append(opts, boot.WithPhaseDelay(d))
	}
	return boot.NewSequencer(pub, opts...), nil
}
