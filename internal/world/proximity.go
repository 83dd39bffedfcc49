package world

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pixil98/go-voxel/internal/game"
	"github.com/pixil98/go-voxel/internal/protocol"
)

const DefaultRadius = 100.0

// Sessions resolves a connection to its instance and identity.
type Sessions interface {
	Lookup(connId game.ConnectionId) (game.Connection, bool)
}

// Proximity applies position updates and tells nearby players about them.
type Proximity struct {
	positions *Positions
	pub       game.Broadcaster
	sessions  Sessions
	radius    float64
}

func NewProximity(positions *Positions, pub game.Broadcaster, sessions Sessions, opts ...ProximityOpt) *Proximity {
	p := &Proximity{
		positions: positions,
		pub:       pub,
		sessions:  sessions,
		radius:    DefaultRadius,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Radius is the visibility distance in world units.
func (p *Proximity) Radius() float64 {
	return p.radius
}

// UpdatePosition stores the mover's transform, sends them everyone they can
// see, and sends each of those observers a one-element update with the mover.
// Visibility is recomputed from scratch on every call.
func (p *Proximity) UpdatePosition(ctx context.Context, connId game.ConnectionId, msg protocol.UpdatePosition) error {
	conn, ok := p.sessions.Lookup(connId)
	if !ok {
		return game.NewValidationError("Connection not registered", nil)
	}
	if !conn.Identified() {
		return game.NewValidationError("Not identified", game.ErrNotIdentified)
	}
	if !msg.UserId.Valid() {
		return game.NewValidationError("Invalid user id", fmt.Errorf("user id %q", msg.UserId))
	}
	if msg.UserId != conn.UserId {
		return game.NewValidationError("User mismatch", fmt.Errorf("position for %q on connection of %q", msg.UserId, conn.UserId))
	}
	pos, err := game.ParseVec3(msg.Position)
	if err != nil {
		return game.NewValidationError("Invalid position", err)
	}
	rot, err := game.ParseRotation(msg.Rotation)
	if err != nil {
		return game.NewValidationError("Invalid rotation", err)
	}

	mover := game.PlayerState{
		UserId:   conn.UserId,
		ConnId:   connId,
		Position: pos,
		Rotation: rot,
	}
	p.positions.Upsert(conn.ServerId, mover)

	visible := p.positions.Within(conn.ServerId, mover.UserId, pos, p.radius)

	snapshot := make([]protocol.VisiblePlayer, 0, len(visible))
	for _, ps := range visible {
		snapshot = append(snapshot, protocol.NewVisiblePlayer(ps))
	}
	if err := p.pub.ToConnection(connId, protocol.EventUpdateVisiblePlayers, snapshot); err != nil {
		slog.WarnContext(ctx, "sending visible players", "conn", connId, "error", err)
	}

	update := []protocol.VisiblePlayer{protocol.NewVisiblePlayer(mover)}
	for _, ps := range visible {
		if err := p.pub.ToConnection(ps.ConnId, protocol.EventUpdateVisiblePlayers, update); err != nil {
			slog.WarnContext(ctx, "sending mover to observer", "conn", ps.ConnId, "observer", ps.UserId, "error", err)
		}
	}
	return nil
}

// RemovePlayer forgets the player's state for connId and tells the instance they left.
func (p *Proximity) RemovePlayer(ctx context.Context, serverId game.ServerId, userId game.UserId, connId game.ConnectionId) {
	if !p.positions.Remove(serverId, userId, connId) {
		return
	}
	if err := p.pub.ToInstance(serverId, protocol.EventPlayerLeft, protocol.PlayerLeft{Id: userId}); err != nil {
		slog.WarnContext(ctx, "broadcasting player left", "server", serverId, "user", userId, "error", err)
	}
}
