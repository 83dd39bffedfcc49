package listener

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pixil98/go-voxel/internal/game"
	"github.com/pixil98/go-voxel/internal/protocol"
)

func (s *session) handle(ctx context.Context, env protocol.Envelope) {
	switch env.Event {
	case protocol.EventIdentify:
		s.handleIdentify(ctx, env)
	case protocol.EventUpdatePosition:
		s.handleUpdatePosition(ctx, env)
	case protocol.EventExecuteCommand:
		s.handleExecuteCommand(ctx, env)
	default:
		slog.DebugContext(ctx, "ignoring unknown event", "conn", s.id, "event", env.Event)
	}
}

// handleIdentify disconnects users who are refused entry. Malformed
// requests get an error and the connection stays open.
func (s *session) handleIdentify(ctx context.Context, env protocol.Envelope) {
	var msg protocol.Identify
	if err := env.DecodeData(&msg); err != nil {
		s.replyError(ctx, game.NewValidationError("Invalid identify", err))
		return
	}
	if msg.ServerId == "" {
		msg.ServerId = s.serverId
	}

	err := s.cm.registry.Identify(ctx, s.id, msg.UserId, msg.Nickname, msg.ServerId)
	if err == nil {
		return
	}

	slog.InfoContext(ctx, "identify refused", "conn", s.id, "user", msg.UserId, "error", err)
	s.replyError(ctx, err)
	switch game.KindOf(err) {
	case game.KindAuthorization, game.KindNotFound:
		s.disconnect()
	}
}

// handleUpdatePosition drops invalid updates without telling the client.
func (s *session) handleUpdatePosition(ctx context.Context, env protocol.Envelope) {
	var msg protocol.UpdatePosition
	if err := env.DecodeData(&msg); err != nil {
		slog.InfoContext(ctx, "dropping position update", "conn", s.id, "error", err)
		return
	}
	if err := s.cm.world.UpdatePosition(ctx, s.id, msg); err != nil {
		slog.InfoContext(ctx, "dropping position update", "conn", s.id, "user", msg.UserId, "error", err)
	}
}

// handleExecuteCommand runs as the identified user of the connection. Any
// failure is reported to the client and the connection stays open.
func (s *session) handleExecuteCommand(ctx context.Context, env protocol.Envelope) {
	var msg protocol.ExecuteCommand
	if err := env.DecodeData(&msg); err != nil {
		s.replyError(ctx, game.NewValidationError("Invalid command request", err))
		return
	}

	conn, ok := s.cm.registry.Lookup(s.id)
	if !ok || !conn.Identified() {
		s.replyError(ctx, game.NewValidationError("Not identified", game.ErrNotIdentified))
		return
	}
	if msg.UserId != "" && msg.UserId != conn.UserId {
		s.replyError(ctx, game.NewValidationError("User mismatch", fmt.Errorf("command for %q on connection of %q", msg.UserId, conn.UserId)))
		return
	}
	if msg.ServerId != "" && msg.ServerId != conn.ServerId {
		s.replyError(ctx, game.NewValidationError("Server mismatch", fmt.Errorf("command for %q on connection bound to %q", msg.ServerId, conn.ServerId)))
		return
	}

	if err := s.cm.dispatcher.Execute(ctx, conn.UserId, conn.ServerId, msg.Command, msg.Params); err != nil {
		slog.InfoContext(ctx, "command failed", "conn", s.id, "user", conn.UserId, "command", msg.Command, "error", err)
		s.replyError(ctx, err)
	}
}
