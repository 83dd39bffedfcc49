package game

import (
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

func TestUserId_Valid(t *testing.T) {
	tests := map[string]struct {
		id  UserId
		exp bool
	}{
		"simple":         {id: "alice", exp: true},
		"dash and score": {id: "a-b_c9", exp: true},
		"empty":          {id: "", exp: false},
		"space":          {id: "a b", exp: false},
		"punctuation":    {id: "a.b", exp: false},
		"too long":       {id: UserId(string(make([]byte, 65))), exp: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "valid", tt.id.Valid(), tt.exp)
		})
	}
}

func TestServerInstance_Validate(t *testing.T) {
	tests := map[string]struct {
		si     ServerInstance
		expErr string
	}{
		"valid": {
			si: ServerInstance{Id: "s1", TickRate: 20},
		},
		"zero tick rate": {
			si:     ServerInstance{Id: "s1"},
			expErr: "tickRate must be positive",
		},
		"negative global tick": {
			si:     ServerInstance{Id: "s1", TickRate: 1, GlobalTick: -1},
			expErr: "globalTick must not be negative",
		},
		"banned and connected": {
			si: ServerInstance{
				Id: "s1", TickRate: 1,
				ConnectedUsers: []UserRef{{UserId: "bob"}},
				BannedUsers:    []BannedUser{{UserId: "bob"}},
			},
			expErr: `banned user "bob" is listed as connected`,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.si.Validate()
			if tt.expErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			testutil.AssertErrorContains(t, err, tt.expErr)
		})
	}
}

func TestServerInstance_Roster(t *testing.T) {
	si := &ServerInstance{Id: "s1", TickRate: 20}

	testutil.AssertEqual(t, "first add", si.AddConnected(UserRef{UserId: "alice", Nickname: "A"}), true)
	testutil.AssertEqual(t, "second add", si.AddConnected(UserRef{UserId: "alice", Nickname: "A2"}), false)
	testutil.AssertEqual(t, "connected", len(si.ConnectedUsers), 1)
	testutil.AssertEqual(t, "nickname kept", si.ConnectedUsers[0].Nickname, "A")

	testutil.AssertEqual(t, "remove", si.RemoveConnected("alice"), true)
	testutil.AssertEqual(t, "remove again", si.RemoveConnected("alice"), false)
}

func TestServerInstance_Ban(t *testing.T) {
	at := time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC)
	si := &ServerInstance{
		Id: "s1", TickRate: 20,
		ConnectedUsers: []UserRef{{UserId: "alice"}, {UserId: "bob"}},
	}

	si.Ban(BannedUser{UserId: "alice", BannedAt: at})
	testutil.AssertEqual(t, "banned", si.IsBanned("alice"), true)
	testutil.AssertEqual(t, "default reason", si.BannedUsers[0].Reason, DefaultBanReason)
	testutil.AssertEqual(t, "disconnected", si.IsConnected("alice"), false)
	testutil.AssertEqual(t, "bob untouched", si.IsConnected("bob"), true)

	si.Ban(BannedUser{UserId: "alice", Reason: "spam"})
	testutil.AssertEqual(t, "replaced", len(si.BannedUsers), 1)
	testutil.AssertEqual(t, "new reason", si.BannedUsers[0].Reason, "spam")

	if err := si.Validate(); err != nil {
		t.Fatalf("ban left an invalid instance: %v", err)
	}

	testutil.AssertEqual(t, "unban", si.Unban("alice"), true)
	testutil.AssertEqual(t, "unban again", si.Unban("alice"), false)
	testutil.AssertEqual(t, "banned", si.IsBanned("alice"), false)
}

func TestServerInstance_Clone(t *testing.T) {
	si := &ServerInstance{Id: "s1", TickRate: 20, Operators: []UserRef{{UserId: "op"}}}
	c := si.Clone()
	c.Operators[0].UserId = "other"
	c.AddConnected(UserRef{UserId: "alice"})

	testutil.AssertEqual(t, "operator", si.IsOperator("op"), true)
	testutil.AssertEqual(t, "connected", len(si.ConnectedUsers), 0)
}
