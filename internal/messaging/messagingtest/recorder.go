// Package messagingtest provides a recording game.Broadcaster for tests.
package messagingtest

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pixil98/go-voxel/internal/game"
	"github.com/pixil98/go-voxel/internal/protocol"
)

// Target says where a recorded message was sent.
type Target string

const (
	TargetAll = Target("all")
)

func ConnTarget(id game.ConnectionId) Target { return Target("conn:" + string(id)) }
func InstanceTarget(id game.ServerId) Target { return Target("instance:" + string(id)) }
func TickTarget(id game.ServerId) Target     { return Target("tick:" + string(id)) }

// Message is one recorded event, re-encoded to JSON so tests see the wire shape.
type Message struct {
	Target Target
	Event  string
	Data   json.RawMessage
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	return json.Unmarshal(m.Data, v)
}

// Recorder implements game.Broadcaster and keeps everything it is given.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
	// Err, when set, is returned from every call after recording.
	Err error
}

func (r *Recorder) record(target Target, event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshalling %s: %w", event, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, Message{Target: target, Event: event, Data: raw})
	return r.Err
}

func (r *Recorder) ToConnection(id game.ConnectionId, event string, data any) error {
	return r.record(ConnTarget(id), event, data)
}

func (r *Recorder) ToInstance(id game.ServerId, event string, data any) error {
	return r.record(InstanceTarget(id), event, data)
}

func (r *Recorder) ToInstanceTick(id game.ServerId, data any) error {
	return r.record(TickTarget(id), protocol.EventTickUpdate, data)
}

func (r *Recorder) ToAll(event string, data any) error {
	return r.record(TargetAll, event, data)
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

// Filter returns the recorded messages matching target and event.
func (r *Recorder) Filter(target Target, event string) []Message {
	var out []Message
	for _, m := range r.Messages() {
		if m.Target == target && m.Event == event {
			out = append(out, m)
		}
	}
	return out
}

// Reset discards recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}
