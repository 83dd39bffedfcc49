package commands

import (
	"context"
	"encoding/json"

	"github.com/pixil98/go-voxel/internal/game"
	"github.com/pixil98/go-voxel/internal/protocol"
)

// WhitelistHandlerFactory creates handlers that flip whitelist enforcement.
// Params are ignored.
type WhitelistHandlerFactory struct{}

func (f *WhitelistHandlerFactory) Parse(json.RawMessage) (CommandFunc, error) {
	return func(ctx context.Context, cmdCtx *CommandContext) error {
		si, err := cmdCtx.Mutate(ctx, func(si *game.ServerInstance) error {
			si.WhitelistEnabled = !si.WhitelistEnabled
			return nil
		})
		if err != nil {
			return err
		}
		enabled := si.WhitelistEnabled
		cmdCtx.Broadcast(ctx, protocol.EventServerUpdate, protocol.ServerUpdate{WhitelistEnabled: &enabled})
		return nil
	}, nil
}
