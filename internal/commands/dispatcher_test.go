package commands

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"

	"github.com/pixil98/go-voxel/internal/game"
	"github.com/pixil98/go-voxel/internal/messaging/messagingtest"
	"github.com/pixil98/go-voxel/internal/protocol"
	"github.com/pixil98/go-voxel/internal/storage"
)

type kick struct {
	serverId game.ServerId
	userId   game.UserId
	message  string
}

type recordingKicker struct {
	kicks []kick
}

func (k *recordingKicker) Kick(_ context.Context, serverId game.ServerId, userId game.UserId, message string) {
	k.kicks = append(k.kicks, kick{serverId: serverId, userId: userId, message: message})
}

type fixture struct {
	store  *storage.FileServerStore
	rec    *messagingtest.Recorder
	kicker *recordingKicker
	d      *Dispatcher
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewFileServerStore(t.TempDir())
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	si := &game.ServerInstance{
		Id:             "s1",
		TickRate:       20,
		Operators:      []game.UserRef{{UserId: "op", Nickname: "Op"}},
		ConnectedUsers: []game.UserRef{{UserId: "op", Nickname: "Op"}, {UserId: "griefer", Nickname: "G"}},
	}
	if err := store.Create(context.Background(), si); err != nil {
		t.Fatalf("creating instance: %v", err)
	}
	f := &fixture{
		store:  store,
		rec:    &messagingtest.Recorder{},
		kicker: &recordingKicker{},
		now:    time.Date(2024, time.May, 4, 10, 0, 0, 0, time.UTC),
	}
	f.d = NewDispatcher(store, f.rec, f.kicker, WithClock(func() time.Time { return f.now }))
	return f
}

func (f *fixture) instance(t *testing.T) *game.ServerInstance {
	t.Helper()
	si, err := f.store.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return si
}

func TestDispatcher_ExecuteErrors(t *testing.T) {
	tests := map[string]struct {
		userId   game.UserId
		serverId game.ServerId
		command  string
		params   string
		expKind  game.Kind
		expMsg   string
	}{
		"not an operator": {
			userId:   "griefer",
			serverId: "s1",
			command:  "toggleWhitelist",
			expKind:  game.KindAuthorization,
			expMsg:   "Permission denied",
		},
		"non operator with unknown command": {
			userId:   "griefer",
			serverId: "s1",
			command:  "explode",
			expKind:  game.KindAuthorization,
			expMsg:   "Permission denied",
		},
		"unknown command": {
			userId:   "op",
			serverId: "s1",
			command:  "explode",
			expKind:  game.KindProtocol,
			expMsg:   "Invalid command",
		},
		"unknown server": {
			userId:   "op",
			serverId: "s9",
			command:  "toggleWhitelist",
			expKind:  game.KindNotFound,
		},
		"tick rate missing": {
			userId:   "op",
			serverId: "s1",
			command:  "updateTickRate",
			params:   `{}`,
			expKind:  game.KindValidation,
		},
		"tick rate zero": {
			userId:   "op",
			serverId: "s1",
			command:  "updateTickRate",
			params:   `{"tickRate":0}`,
			expKind:  game.KindValidation,
		},
		"tick rate wrong type": {
			userId:   "op",
			serverId: "s1",
			command:  "updateTickRate",
			params:   `{"tickRate":"fast"}`,
			expKind:  game.KindValidation,
		},
		"ban without params": {
			userId:   "op",
			serverId: "s1",
			command:  "banUser",
			expKind:  game.KindValidation,
			expMsg:   "Missing params",
		},
		"ban malformed user": {
			userId:   "op",
			serverId: "s1",
			command:  "banUser",
			params:   `{"userId":"bad user"}`,
			expKind:  game.KindValidation,
		},
		"unban malformed user": {
			userId:   "op",
			serverId: "s1",
			command:  "unbanUser",
			params:   `{"userId":""}`,
			expKind:  game.KindValidation,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			before := f.instance(t)

			var params json.RawMessage
			if tt.params != "" {
				params = json.RawMessage(tt.params)
			}
			err := f.d.Execute(context.Background(), tt.userId, tt.serverId, tt.command, params)

			testutil.AssertEqual(t, "kind", game.KindOf(err), tt.expKind)
			if tt.expMsg != "" {
				testutil.AssertEqual(t, "message", game.MessageOf(err), tt.expMsg)
			}
			after := f.instance(t)
			testutil.AssertEqual(t, "tick rate", after.TickRate, before.TickRate)
			testutil.AssertEqual(t, "whitelist", after.WhitelistEnabled, before.WhitelistEnabled)
			testutil.AssertEqual(t, "banned", len(after.BannedUsers), 0)
			testutil.AssertEqual(t, "broadcasts", len(f.rec.Messages()), 0)
			testutil.AssertEqual(t, "kicks", len(f.kicker.kicks), 0)
		})
	}
}

func TestDispatcher_UpdateTickRate(t *testing.T) {
	f := newFixture(t)
	err := f.d.Execute(context.Background(), "op", "s1", "updateTickRate", json.RawMessage(`{"tickRate":30}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "tick rate", f.instance(t).TickRate, 30)

	msgs := f.rec.Filter(messagingtest.InstanceTarget("s1"), protocol.EventServerUpdate)
	testutil.AssertEqual(t, "broadcasts", len(msgs), 1)
	testutil.AssertEqual(t, "payload", string(msgs[0].Data), `{"tickRate":30}`)
}

func TestDispatcher_ToggleWhitelist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, exp := range []string{`{"whitelistEnabled":true}`, `{"whitelistEnabled":false}`} {
		if err := f.d.Execute(ctx, "op", "s1", "toggleWhitelist", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		msgs := f.rec.Filter(messagingtest.InstanceTarget("s1"), protocol.EventServerUpdate)
		testutil.AssertEqual(t, "payload", string(msgs[len(msgs)-1].Data), exp)
	}
	testutil.AssertEqual(t, "whitelist", f.instance(t).WhitelistEnabled, false)
}

func TestDispatcher_BanUnban(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.d.Execute(ctx, "op", "s1", "banUser", json.RawMessage(`{"userId":"griefer","nickname":"G"}`))
	if err != nil {
		t.Fatalf("ban: %v", err)
	}

	si := f.instance(t)
	testutil.AssertEqual(t, "banned", len(si.BannedUsers), 1)
	testutil.AssertEqual(t, "reason", si.BannedUsers[0].Reason, game.DefaultBanReason)
	testutil.AssertEqual(t, "banned at", si.BannedUsers[0].BannedAt.Equal(f.now), true)
	testutil.AssertEqual(t, "removed from connected", si.IsConnected("griefer"), false)
	testutil.AssertEqual(t, "operator still connected", si.IsConnected("op"), true)

	testutil.AssertEqual(t, "banned broadcasts", len(f.rec.Filter(messagingtest.InstanceTarget("s1"), protocol.EventUpdateBannedUsers)), 1)
	users := f.rec.Filter(messagingtest.InstanceTarget("s1"), protocol.EventUpdateUsers)
	testutil.AssertEqual(t, "user broadcasts", len(users), 1)
	var list protocol.UserList
	if err := users[0].Decode(&list); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	testutil.AssertEqual(t, "users left", len(list), 1)

	testutil.AssertEqual(t, "kicks", len(f.kicker.kicks), 1)
	testutil.AssertEqual(t, "kicked", f.kicker.kicks[0], kick{serverId: "s1", userId: "griefer", message: "Banned"})

	// banning again replaces the entry
	err = f.d.Execute(ctx, "op", "s1", "banUser", json.RawMessage(`{"userId":"griefer","reason":"again"}`))
	if err != nil {
		t.Fatalf("second ban: %v", err)
	}
	si = f.instance(t)
	testutil.AssertEqual(t, "banned", len(si.BannedUsers), 1)
	testutil.AssertEqual(t, "reason", si.BannedUsers[0].Reason, "again")
	testutil.AssertEqual(t, "no roster change", len(f.rec.Filter(messagingtest.InstanceTarget("s1"), protocol.EventUpdateUsers)), 1)

	err = f.d.Execute(ctx, "op", "s1", "unbanUser", json.RawMessage(`{"userId":"griefer"}`))
	if err != nil {
		t.Fatalf("unban: %v", err)
	}
	testutil.AssertEqual(t, "banned", len(f.instance(t).BannedUsers), 0)

	msgs := f.rec.Filter(messagingtest.InstanceTarget("s1"), protocol.EventUpdateBannedUsers)
	testutil.AssertEqual(t, "banned broadcasts", len(msgs), 3)
	testutil.AssertEqual(t, "empty list", string(msgs[2].Data), `[]`)
}

type staticFactory struct{ calls int }

func (f *staticFactory) Parse(json.RawMessage) (CommandFunc, error) {
	return func(context.Context, *CommandContext) error {
		f.calls++
		return nil
	}, nil
}

func TestDispatcher_RegisterFactory(t *testing.T) {
	f := newFixture(t)

	testutil.AssertErrorContains(t, f.d.RegisterFactory("", &staticFactory{}), "cannot be empty")
	testutil.AssertErrorContains(t, f.d.RegisterFactory("x", nil), "cannot be nil")
	testutil.AssertErrorContains(t, f.d.RegisterFactory("banUser", &staticFactory{}), "already registered")

	sf := &staticFactory{}
	if err := f.d.RegisterFactory("ping", sf); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := f.d.Execute(context.Background(), "op", "s1", "ping", nil); err != nil {
		t.Fatalf("execute: %v", err)
	}
	testutil.AssertEqual(t, "calls", sf.calls, 1)
}

func TestCommandContext_MutateRechecksOperator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cc := &CommandContext{ServerId: "s1", Actor: "op", store: f.store, pub: f.rec, now: time.Now}
	_, err := f.store.Update(ctx, "s1", func(si *game.ServerInstance) error {
		si.Operators = nil
		return nil
	})
	if err != nil {
		t.Fatalf("demoting: %v", err)
	}

	_, err = cc.Mutate(ctx, func(si *game.ServerInstance) error {
		si.TickRate = 99
		return nil
	})
	testutil.AssertEqual(t, "kind", game.KindOf(err), game.KindAuthorization)
	testutil.AssertEqual(t, "tick rate", f.instance(t).TickRate, 20)
}
