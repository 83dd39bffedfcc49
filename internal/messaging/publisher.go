package messaging

import (
	"fmt"

	"github.com/pixil98/go-voxel/internal/game"
	"github.com/pixil98/go-voxel/internal/protocol"
)

const SubjectAll = "broadcast.all"

// ConnectionSubject carries events for a single connection.
func ConnectionSubject(id game.ConnectionId) string {
	return fmt.Sprintf("conn.%s", id)
}

// InstanceSubject carries roster, command and proximity events for an instance.
func InstanceSubject(id game.ServerId) string {
	return fmt.Sprintf("instance.%s.events", id)
}

// InstanceTickSubject is the namespaced channel for tick:update.
func InstanceTickSubject(id game.ServerId) string {
	return fmt.Sprintf("instance.%s.tick", id)
}

// Transport is the raw publish side of the broker.
type Transport interface {
	Publish(subject string, data []byte) error
}

// Broadcaster encodes wire envelopes and publishes them to the matching subjects.
type Broadcaster struct {
	transport Transport
}

func NewBroadcaster(t Transport) *Broadcaster {
	return &Broadcaster{transport: t}
}

func (b *Broadcaster) publish(subject, event string, data any) error {
	msg, err := protocol.Encode(event, data)
	if err != nil {
		return err
	}
	if err := b.transport.Publish(subject, msg); err != nil {
		return fmt.Errorf("publishing %s to %s: %w", event, subject, err)
	}
	return nil
}

func (b *Broadcaster) ToConnection(connId game.ConnectionId, event string, data any) error {
	return b.publish(ConnectionSubject(connId), event, data)
}

func (b *Broadcaster) ToInstance(serverId game.ServerId, event string, data any) error {
	return b.publish(InstanceSubject(serverId), event, data)
}

func (b *Broadcaster) ToInstanceTick(serverId game.ServerId, data any) error {
	return b.publish(InstanceTickSubject(serverId), protocol.EventTickUpdate, data)
}

func (b *Broadcaster) ToAll(event string, data any) error {
	return b.publish(SubjectAll, event, data)
}
