package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pixil98/go-voxel/internal/game"
	"github.com/pixil98/go-voxel/internal/storage"
)

// CommandFunc runs one parsed command.
type CommandFunc func(ctx context.Context, cmdCtx *CommandContext) error

// HandlerFactory turns the raw params of a command into a CommandFunc.
// Parse returns a validation error for malformed params.
type HandlerFactory interface {
	Parse(params json.RawMessage) (CommandFunc, error)
}

// Store is the slice of storage.ServerStore commands need.
type Store interface {
	Get(ctx context.Context, id game.ServerId) (*game.ServerInstance, error)
	Update(ctx context.Context, id game.ServerId, fn func(*game.ServerInstance) error) (*game.ServerInstance, error)
}

// Kicker closes every live session of a user on an instance.
type Kicker interface {
	Kick(ctx context.Context, serverId game.ServerId, userId game.UserId, message string)
}

// CommandContext is what a running command sees.
type CommandContext struct {
	ServerId game.ServerId
	Actor    game.UserId

	store  Store
	pub    game.Broadcaster
	kicker Kicker
	now    func() time.Time
}

// Mutate applies fn to the instance inside the store's per-instance update.
// The operator check is repeated under the lock so a demoted actor cannot
// slip a change in.
func (c *CommandContext) Mutate(ctx context.Context, fn func(si *game.ServerInstance) error) (*game.ServerInstance, error) {
	si, err := c.store.Update(ctx, c.ServerId, func(si *game.ServerInstance) error {
		if !si.IsOperator(c.Actor) {
			return game.NewAuthorizationError("Permission denied")
		}
		return fn(si)
	})
	if err != nil {
		return nil, storeError(err, c.ServerId)
	}
	return si, nil
}

// Broadcast sends an event to every connection on the instance. Failures are logged.
func (c *CommandContext) Broadcast(ctx context.Context, event string, data any) {
	if err := c.pub.ToInstance(c.ServerId, event, data); err != nil {
		slog.WarnContext(ctx, "broadcasting command result", "server", c.ServerId, "event", event, "error", err)
	}
}

// Dispatcher runs operator commands against a ServerInstance.
type Dispatcher struct {
	store     Store
	pub       game.Broadcaster
	kicker    Kicker
	now       func() time.Time
	factories map[string]HandlerFactory
}

func NewDispatcher(store Store, pub game.Broadcaster, kicker Kicker, opts ...DispatcherOpt) *Dispatcher {
	d := &Dispatcher{
		store:     store,
		pub:       pub,
		kicker:    kicker,
		now:       time.Now,
		factories: make(map[string]HandlerFactory),
	}
	for _, opt := range opts {
		opt(d)
	}

	// Register built-in handlers
	_ = d.RegisterFactory("updateTickRate", &TickRateHandlerFactory{})
	_ = d.RegisterFactory("banUser", &BanHandlerFactory{})
	_ = d.RegisterFactory("unbanUser", &UnbanHandlerFactory{})
	_ = d.RegisterFactory("toggleWhitelist", &WhitelistHandlerFactory{})
	return d
}

// RegisterFactory registers a handler factory by command name.
func (d *Dispatcher) RegisterFactory(name string, factory HandlerFactory) error {
	if name == "" {
		return fmt.Errorf("command name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("handler factory cannot be nil")
	}
	if _, exists := d.factories[name]; exists {
		return fmt.Errorf("handler factory %q already registered", name)
	}
	d.factories[name] = factory
	return nil
}

// Execute authorizes userId as an operator of the instance, then runs the command.
func (d *Dispatcher) Execute(ctx context.Context, userId game.UserId, serverId game.ServerId, command string, params json.RawMessage) error {
	si, err := d.store.Get(ctx, serverId)
	if err != nil {
		return storeError(err, serverId)
	}
	if !si.IsOperator(userId) {
		return game.NewAuthorizationError("Permission denied")
	}

	factory, ok := d.factories[command]
	if !ok {
		return game.NewProtocolError("Invalid command")
	}
	cmdFunc, err := factory.Parse(params)
	if err != nil {
		return err
	}

	err = cmdFunc(ctx, &CommandContext{
		ServerId: serverId,
		Actor:    userId,
		store:    d.store,
		pub:      d.pub,
		kicker:   d.kicker,
		now:      d.now,
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "command executed", "server", serverId, "user", userId, "command", command)
	return nil
}

func storeError(err error, serverId game.ServerId) error {
	if game.KindOf(err) != game.KindUnknown {
		return err
	}
	if errors.Is(err, storage.ErrNotFound) {
		return game.NewNotFoundError(fmt.Sprintf("Unknown server %s", serverId))
	}
	return game.NewTransientStoreError(err)
}

// decodeParams unmarshals params into v, rejecting a missing payload.
func decodeParams(params json.RawMessage, v any) error {
	if len(params) == 0 || string(params) == "null" {
		return game.NewValidationError("Missing params", nil)
	}
	if err := json.Unmarshal(params, v); err != nil {
		return game.NewValidationError("Invalid params", err)
	}
	return nil
}
