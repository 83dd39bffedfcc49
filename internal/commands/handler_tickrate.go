package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pixil98/go-voxel/internal/game"
	"github.com/pixil98/go-voxel/internal/protocol"
)

type tickRateParams struct {
	TickRate *int `json:"tickRate"`
}

// TickRateHandlerFactory creates handlers that change how fast the world clock runs.
type TickRateHandlerFactory struct{}

func (f *TickRateHandlerFactory) Parse(params json.RawMessage) (CommandFunc, error) {
	var p tickRateParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.TickRate == nil {
		return nil, game.NewValidationError("Missing tickRate", nil)
	}
	if *p.TickRate <= 0 {
		return nil, game.NewValidationError("tickRate must be positive", fmt.Errorf("tickRate %d", *p.TickRate))
	}
	rate := *p.TickRate

	return func(ctx context.Context, cmdCtx *CommandContext) error {
		_, err := cmdCtx.Mutate(ctx, func(si *game.ServerInstance) error {
			si.TickRate = rate
			return nil
		})
		if err != nil {
			return err
		}
		cmdCtx.Broadcast(ctx, protocol.EventServerUpdate, protocol.ServerUpdate{TickRate: &rate})
		return nil
	}, nil
}
