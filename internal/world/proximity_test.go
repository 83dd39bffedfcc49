package world

import (
	"context"
	"math"
	"testing"

	"github.com/pixil98/go-testutil"

	"github.com/pixil98/go-voxel/internal/game"
	"github.com/pixil98/go-voxel/internal/messaging/messagingtest"
	"github.com/pixil98/go-voxel/internal/protocol"
)

type sessionMap map[game.ConnectionId]game.Connection

func (m sessionMap) Lookup(id game.ConnectionId) (game.Connection, bool) {
	c, ok := m[id]
	return c, ok
}

func newTestProximity() (*Proximity, *messagingtest.Recorder) {
	sessions := sessionMap{
		"ca":   {Id: "ca", ServerId: "s1", UserId: "a"},
		"cb":   {Id: "cb", ServerId: "s1", UserId: "b"},
		"cc":   {Id: "cc", ServerId: "s1", UserId: "c"},
		"anon": {Id: "anon", ServerId: "s1"},
	}
	rec := &messagingtest.Recorder{}
	return NewProximity(NewPositions(), rec, sessions), rec
}

func visibleTo(t *testing.T, rec *messagingtest.Recorder, connId game.ConnectionId) [][]protocol.VisiblePlayer {
	t.Helper()
	var out [][]protocol.VisiblePlayer
	for _, m := range rec.Filter(messagingtest.ConnTarget(connId), protocol.EventUpdateVisiblePlayers) {
		var vp []protocol.VisiblePlayer
		if err := m.Decode(&vp); err != nil {
			t.Fatalf("decoding: %v", err)
		}
		out = append(out, vp)
	}
	return out
}

func move(t *testing.T, p *Proximity, connId game.ConnectionId, userId game.UserId, pos ...float64) {
	t.Helper()
	err := p.UpdatePosition(context.Background(), connId, protocol.UpdatePosition{UserId: userId, Position: pos, Rotation: []float64{0, 0, 0}})
	if err != nil {
		t.Fatalf("update position for %s: %v", userId, err)
	}
}

func TestProximity_UpdatePosition(t *testing.T) {
	p, rec := newTestProximity()
	testutil.AssertEqual(t, "radius", p.Radius(), DefaultRadius)

	move(t, p, "ca", "a", 0, 0, 0)
	first := visibleTo(t, rec, "ca")
	testutil.AssertEqual(t, "snapshots to a", len(first), 1)
	testutil.AssertEqual(t, "a sees nobody", len(first[0]), 0)

	rec.Reset()
	move(t, p, "cb", "b", 50, 0, 0)

	toB := visibleTo(t, rec, "cb")
	testutil.AssertEqual(t, "snapshots to b", len(toB), 1)
	testutil.AssertEqual(t, "b sees one", len(toB[0]), 1)
	testutil.AssertEqual(t, "b sees a", toB[0][0].Id, game.UserId("a"))

	toA := visibleTo(t, rec, "ca")
	testutil.AssertEqual(t, "updates to a", len(toA), 1)
	testutil.AssertEqual(t, "a gets one", len(toA[0]), 1)
	testutil.AssertEqual(t, "a sees b", toA[0][0].Id, game.UserId("b"))
	testutil.AssertEqual(t, "b position", toA[0][0].Position, game.Vec3{50, 0, 0})

	rec.Reset()
	move(t, p, "cb", "b", 150, 0, 0)

	toB = visibleTo(t, rec, "cb")
	testutil.AssertEqual(t, "snapshots to b", len(toB), 1)
	testutil.AssertEqual(t, "b out of range", len(toB[0]), 0)
	testutil.AssertEqual(t, "a told nothing", len(visibleTo(t, rec, "ca")), 0)
}

func TestProximity_ObserverFanOut(t *testing.T) {
	p, rec := newTestProximity()
	move(t, p, "ca", "a", 0, 0, 0)
	move(t, p, "cb", "b", 30, 0, 0)
	move(t, p, "cc", "c", 0, 30, 0)
	rec.Reset()

	move(t, p, "ca", "a", 1, 1, 0)

	toA := visibleTo(t, rec, "ca")
	testutil.AssertEqual(t, "snapshots to a", len(toA), 1)
	testutil.AssertEqual(t, "a sees both", len(toA[0]), 2)
	testutil.AssertEqual(t, "sorted first", toA[0][0].Id, game.UserId("b"))
	testutil.AssertEqual(t, "sorted second", toA[0][1].Id, game.UserId("c"))

	for _, conn := range []game.ConnectionId{"cb", "cc"} {
		got := visibleTo(t, rec, conn)
		testutil.AssertEqual(t, "updates", len(got), 1)
		testutil.AssertEqual(t, "only mover", len(got[0]), 1)
		testutil.AssertEqual(t, "mover", got[0][0].Id, game.UserId("a"))
	}
}

func TestProximity_Rejects(t *testing.T) {
	tests := map[string]struct {
		connId game.ConnectionId
		msg    protocol.UpdatePosition
	}{
		"unknown connection": {
			connId: "ghost",
			msg:    protocol.UpdatePosition{UserId: "a", Position: []float64{0, 0, 0}},
		},
		"not identified": {
			connId: "anon",
			msg:    protocol.UpdatePosition{UserId: "a", Position: []float64{0, 0, 0}},
		},
		"malformed user": {
			connId: "ca",
			msg:    protocol.UpdatePosition{UserId: "a b", Position: []float64{0, 0, 0}},
		},
		"someone else's user": {
			connId: "ca",
			msg:    protocol.UpdatePosition{UserId: "b", Position: []float64{0, 0, 0}},
		},
		"two components": {
			connId: "ca",
			msg:    protocol.UpdatePosition{UserId: "a", Position: []float64{0, 0}},
		},
		"not finite": {
			connId: "ca",
			msg:    protocol.UpdatePosition{UserId: "a", Position: []float64{0, math.Inf(1), 0}},
		},
		"bad rotation": {
			connId: "ca",
			msg:    protocol.UpdatePosition{UserId: "a", Position: []float64{0, 0, 0}, Rotation: []float64{1, 2}},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			p, rec := newTestProximity()
			err := p.UpdatePosition(context.Background(), tt.connId, tt.msg)
			testutil.AssertEqual(t, "kind", game.KindOf(err), game.KindValidation)
			testutil.AssertEqual(t, "tracked", p.positions.Len("s1"), 0)
			testutil.AssertEqual(t, "messages", len(rec.Messages()), 0)
		})
	}
}

func TestProximity_RemovePlayer(t *testing.T) {
	p, rec := newTestProximity()
	ctx := context.Background()
	move(t, p, "ca", "a", 0, 0, 0)
	move(t, p, "cb", "b", 30, 0, 0)
	rec.Reset()

	p.RemovePlayer(ctx, "s1", "b", "cb")

	left := rec.Filter(messagingtest.InstanceTarget("s1"), protocol.EventPlayerLeft)
	testutil.AssertEqual(t, "left events", len(left), 1)
	var payload protocol.PlayerLeft
	if err := left[0].Decode(&payload); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	testutil.AssertEqual(t, "left id", payload.Id, game.UserId("b"))

	rec.Reset()
	move(t, p, "ca", "a", 1, 0, 0)
	toA := visibleTo(t, rec, "ca")
	testutil.AssertEqual(t, "a sees nobody", len(toA[0]), 0)

	rec.Reset()
	p.RemovePlayer(ctx, "s1", "b", "cb")
	testutil.AssertEqual(t, "second remove is silent", len(rec.Messages()), 0)
}
