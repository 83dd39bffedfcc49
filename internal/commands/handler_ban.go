package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pixil98/go-voxel/internal/game"
	"github.com/pixil98/go-voxel/internal/protocol"
)

type banParams struct {
	UserId   game.UserId `json:"userId"`
	Nickname string      `json:"nickname"`
	Reason   string      `json:"reason"`
}

// BanHandlerFactory creates handlers that ban a user and drop their live sessions.
type BanHandlerFactory struct{}

func (f *BanHandlerFactory) Parse(params json.RawMessage) (CommandFunc, error) {
	var p banParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if !p.UserId.Valid() {
		return nil, game.NewValidationError("Invalid user id", fmt.Errorf("user id %q", p.UserId))
	}

	return func(ctx context.Context, cmdCtx *CommandContext) error {
		wasConnected := false
		si, err := cmdCtx.Mutate(ctx, func(si *game.ServerInstance) error {
			wasConnected = si.IsConnected(p.UserId)
			si.Ban(game.BannedUser{
				UserId:   p.UserId,
				Nickname: p.Nickname,
				Reason:   p.Reason,
				BannedAt: cmdCtx.now().UTC(),
			})
			return nil
		})
		if err != nil {
			return err
		}

		cmdCtx.Broadcast(ctx, protocol.EventUpdateBannedUsers, protocol.NewBannedList(si.BannedUsers))
		if wasConnected {
			cmdCtx.Broadcast(ctx, protocol.EventUpdateUsers, protocol.NewUserList(si.ConnectedUsers))
		}
		if cmdCtx.kicker != nil {
			cmdCtx.kicker.Kick(ctx, cmdCtx.ServerId, p.UserId, "Banned")
		}
		return nil
	}, nil
}
