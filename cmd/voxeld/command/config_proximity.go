package command

import (
	"fmt"

	"github.com/pixil98/go-voxel/internal/world"
)

type ProximityConfig struct {
	Radius float64 `json:"radius"`
}

func (c *ProximityConfig) validate() error {
	if c.Radius < 0 {
		return fmt.Errorf("proximity: radius must not be negative")
	}
	return nil
}

func (c *ProximityConfig) opts() []world.ProximityOpt {
	if c.Radius == 0 {
		return nil
	}
	return []world.ProximityOpt{world.WithRadius(c.Radius)}
}
