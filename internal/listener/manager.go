package listener

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pixil98/go-voxel/internal/game"
	"github.com/pixil98/go-voxel/internal/protocol"
)

// Gate reports whether the process has finished booting.
type Gate interface {
	Ready() bool
}

// Registry is the connection bookkeeping a session drives.
type Registry interface {
	Register(ctx context.Context, connId game.ConnectionId, serverId game.ServerId) error
	Identify(ctx context.Context, connId game.ConnectionId, userId game.UserId, nickname string, serverId game.ServerId) error
	Unregister(ctx context.Context, connId game.ConnectionId)
	Lookup(connId game.ConnectionId) (game.Connection, bool)
}

// World receives position updates and disconnects.
type World interface {
	UpdatePosition(ctx context.Context, connId game.ConnectionId, msg protocol.UpdatePosition) error
	RemovePlayer(ctx context.Context, serverId game.ServerId, userId game.UserId, connId game.ConnectionId)
}

// Dispatcher runs operator commands.
type Dispatcher interface {
	Execute(ctx context.Context, userId game.UserId, serverId game.ServerId, command string, params json.RawMessage) error
}

// Subscriber delivers broker messages published for a subject.
type Subscriber interface {
	Subscribe(subject string, handler func(data []byte)) (func(), error)
}

type ConnectionManager struct {
	gate       Gate
	registry   Registry
	world      World
	dispatcher Dispatcher
	subscriber Subscriber
}

func NewConnectionManager(gate Gate, registry Registry, world World, dispatcher Dispatcher, subscriber Subscriber) *ConnectionManager {
	return &ConnectionManager{
		gate:       gate,
		registry:   registry,
		world:      world,
		dispatcher: dispatcher,
		subscriber: subscriber,
	}
}

// AcceptConnection runs a websocket session until the client goes away or ctx ends.
// Connections arriving before boot completes are told to wait and closed.
func (m *ConnectionManager) AcceptConnection(ctx context.Context, conn *websocket.Conn, serverId game.ServerId) {
	if !m.gate.Ready() {
		rejectConnection(ctx, conn, protocol.EventServerWaiting, protocol.Notice{Message: "Server is starting, try again shortly"}, websocket.CloseTryAgainLater)
		return
	}

	connId := game.ConnectionId(uuid.NewString())
	if err := m.registry.Register(ctx, connId, serverId); err != nil {
		slog.InfoContext(ctx, "rejecting connection", "server", serverId, "error", err)
		rejectConnection(ctx, conn, protocol.EventError, protocol.Error{Message: game.MessageOf(err)}, websocket.ClosePolicyViolation)
		return
	}

	s := newSession(m, conn, connId, serverId)
	if err := s.run(ctx); err != nil {
		slog.WarnContext(ctx, "websocket session", "conn", connId, "error", err)
	}
}

func rejectConnection(ctx context.Context, conn *websocket.Conn, event string, data any, code int) {
	defer func() {
		if err := conn.Close(); err != nil {
			slog.DebugContext(ctx, "closing rejected connection", "error", err)
		}
	}()

	msg, err := protocol.Encode(event, data)
	if err != nil {
		slog.ErrorContext(ctx, "encoding rejection", "event", event, "error", err)
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, event))
}
