package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pixil98/go-voxel/internal/game"
	"github.com/pixil98/go-voxel/internal/protocol"
	"github.com/pixil98/go-voxel/internal/storage"
)

// Store is the slice of storage.ServerStore the registry needs.
type Store interface {
	Get(ctx context.Context, id game.ServerId) (*game.ServerInstance, error)
	Update(ctx context.Context, id game.ServerId, fn func(*game.ServerInstance) error) (*game.ServerInstance, error)
}

// Presence is told when an instance gains its first or loses its last connection.
type Presence interface {
	Resume(id game.ServerId)
	Pause(id game.ServerId)
}

// Registry tracks which live connection belongs to which instance and user.
type Registry struct {
	store    Store
	pub      game.Broadcaster
	presence Presence

	mu       sync.RWMutex
	conns    map[game.ConnectionId]*game.Connection
	byServer map[game.ServerId]map[game.ConnectionId]*game.Connection
}

func NewRegistry(store Store, pub game.Broadcaster, presence Presence) *Registry {
	return &Registry{
		store:    store,
		pub:      pub,
		presence: presence,
		conns:    map[game.ConnectionId]*game.Connection{},
		byServer: map[game.ServerId]map[game.ConnectionId]*game.Connection{},
	}
}

func storeError(err error, serverId game.ServerId) error {
	if errors.Is(err, storage.ErrNotFound) {
		return game.NewNotFoundError(fmt.Sprintf("Unknown server %s", serverId))
	}
	return game.NewTransientStoreError(err)
}

// Register tracks a new transport-level connection for serverId.
func (r *Registry) Register(ctx context.Context, connId game.ConnectionId, serverId game.ServerId) error {
	if serverId == "" {
		return game.NewValidationError("MissingServerId", game.ErrMissingServerId)
	}

	if _, err := r.store.Get(ctx, serverId); err != nil {
		return storeError(err, serverId)
	}

	r.mu.Lock()
	if _, exists := r.conns[connId]; exists {
		r.mu.Unlock()
		return game.NewValidationError("Connection already registered", nil)
	}
	c := &game.Connection{Id: connId, ServerId: serverId}
	r.conns[connId] = c
	peers, ok := r.byServer[serverId]
	if !ok {
		peers = map[game.ConnectionId]*game.Connection{}
		r.byServer[serverId] = peers
	}
	peers[connId] = c
	first := len(peers) == 1
	r.mu.Unlock()

	if first && r.presence != nil {
		r.presence.Resume(serverId)
	}
	return nil
}

// Identify binds a user to a registered connection after checking the whitelist and ban list.
// The binding happens inside the instance update so Unregister and Kick always observe it.
func (r *Registry) Identify(ctx context.Context, connId game.ConnectionId, userId game.UserId, nickname string, serverId game.ServerId) error {
	conn, ok := r.Lookup(connId)
	if !ok {
		return game.NewValidationError("Connection not registered", nil)
	}
	if serverId != conn.ServerId {
		return game.NewValidationError("Server mismatch", fmt.Errorf("identify for %q on connection bound to %q", serverId, conn.ServerId))
	}
	if !userId.Valid() {
		return game.NewValidationError("Invalid user id", fmt.Errorf("user id %q", userId))
	}

	bound := false
	si, err := r.store.Update(ctx, serverId, func(si *game.ServerInstance) error {
		if si.WhitelistEnabled && !si.IsWhitelisted(userId) {
			return game.NewAuthorizationError("Access denied")
		}
		if si.IsBanned(userId) {
			return game.NewAuthorizationError("Banned")
		}

		var err error
		bound, err = r.bind(connId, userId, nickname)
		if err != nil {
			return err
		}
		si.AddConnected(game.UserRef{UserId: userId, Nickname: nickname})
		return nil
	})
	if err != nil {
		if bound {
			r.unbind(connId)
		}
		switch game.KindOf(err) {
		case game.KindAuthorization, game.KindValidation:
			return err
		}
		return storeError(err, serverId)
	}

	// a ban that committed after the write above has already kicked this connection
	if fresh, err := r.store.Get(ctx, serverId); err == nil {
		si = fresh
	}
	if si.IsBanned(userId) {
		return game.NewAuthorizationError("Banned")
	}

	slog.InfoContext(ctx, "user identified", "server", serverId, "user", userId, "conn", connId)
	r.broadcastUsers(ctx, si)
	return nil
}

// bind sets the user on a live connection. It reports whether the connection
// was unidentified before the call.
func (r *Registry) bind(connId game.ConnectionId, userId game.UserId, nickname string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connId]
	if !ok {
		return false, game.NewValidationError("Connection not registered", nil)
	}
	if c.Identified() && c.UserId != userId {
		return false, game.NewValidationError("Already identified", fmt.Errorf("connection is bound to %q", c.UserId))
	}
	first := !c.Identified()
	c.UserId = userId
	c.Nickname = nickname
	return first, nil
}

func (r *Registry) unbind(connId game.ConnectionId) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.conns[connId]; ok {
		c.UserId = ""
		c.Nickname = ""
	}
}

// hasUser reports whether any live connection on the instance is bound to the user.
func (r *Registry) hasUser(serverId game.ServerId, userId game.UserId) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.byServer[serverId] {
		if c.UserId == userId {
			return true
		}
	}
	return false
}

// Unregister forgets a connection. The user leaves connectedUsers once their last
// connection on the instance is gone, decided inside the instance update. The
// store write is detached from ctx so a cancelled connection still completes its
// cleanup.
func (r *Registry) Unregister(ctx context.Context, connId game.ConnectionId) {
	r.mu.Lock()
	c, ok := r.conns[connId]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.conns, connId)
	peers := r.byServer[c.ServerId]
	delete(peers, connId)
	remaining := len(peers)
	if remaining == 0 {
		delete(r.byServer, c.ServerId)
	}
	conn := *c
	r.mu.Unlock()

	if remaining == 0 && r.presence != nil {
		r.presence.Pause(conn.ServerId)
	}

	if !conn.Identified() {
		return
	}

	ctx = context.WithoutCancel(ctx)
	removed := false
	si, err := r.store.Update(ctx, conn.ServerId, func(si *game.ServerInstance) error {
		if r.hasUser(conn.ServerId, conn.UserId) {
			return nil
		}
		removed = si.RemoveConnected(conn.UserId)
		return nil
	})
	if err != nil {
		slog.WarnContext(ctx, "removing connected user", "server", conn.ServerId, "user", conn.UserId, "error", err)
		return
	}
	if removed {
		r.broadcastUsers(ctx, si)
	}
}

// Lookup returns a copy of the connection.
func (r *Registry) Lookup(connId game.ConnectionId) (game.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[connId]
	if !ok {
		return game.Connection{}, false
	}
	return *c, true
}

// Count returns the number of live connections on an instance.
func (r *Registry) Count(serverId game.ServerId) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byServer[serverId])
}

// ConnectionsOf returns the ids of the user's live connections on an instance.
func (r *Registry) ConnectionsOf(serverId game.ServerId, userId game.UserId) []game.ConnectionId {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []game.ConnectionId
	for id, c := range r.byServer[serverId] {
		if c.UserId == userId {
			ids = append(ids, id)
		}
	}
	return ids
}

// Kick sends an error to each of the user's connections on the instance and closes them.
func (r *Registry) Kick(ctx context.Context, serverId game.ServerId, userId game.UserId, message string) {
	for _, id := range r.ConnectionsOf(serverId, userId) {
		if err := r.pub.ToConnection(id, protocol.EventError, protocol.Error{Message: message}); err != nil {
			slog.WarnContext(ctx, "sending kick notice", "conn", id, "error", err)
		}
		if err := r.pub.ToConnection(id, protocol.EventKick, nil); err != nil {
			slog.WarnContext(ctx, "sending kick", "conn", id, "error", err)
		}
	}
}

func (r *Registry) broadcastUsers(ctx context.Context, si *game.ServerInstance) {
	if err := r.pub.ToInstance(si.Id, protocol.EventUpdateUsers, protocol.NewUserList(si.ConnectedUsers)); err != nil {
		slog.WarnContext(ctx, "broadcasting users", "server", si.Id, "error", err)
	}
}
