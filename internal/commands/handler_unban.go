package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pixil98/go-voxel/internal/game"
	"github.com/pixil98/go-voxel/internal/protocol"
)

type unbanParams struct {
	UserId game.UserId `json:"userId"`
}

// UnbanHandlerFactory creates handlers that lift a ban.
type UnbanHandlerFactory struct{}

func (f *UnbanHandlerFactory) Parse(params json.RawMessage) (CommandFunc, error) {
	var p unbanParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if !p.UserId.Valid() {
		return nil, game.NewValidationError("Invalid user id", fmt.Errorf("user id %q", p.UserId))
	}

	return func(ctx context.Context, cmdCtx *CommandContext) error {
		si, err := cmdCtx.Mutate(ctx, func(si *game.ServerInstance) error {
			si.Unban(p.UserId)
			return nil
		})
		if err != nil {
			return err
		}
		cmdCtx.Broadcast(ctx, protocol.EventUpdateBannedUsers, protocol.NewBannedList(si.BannedUsers))
		return nil
	}, nil
}
