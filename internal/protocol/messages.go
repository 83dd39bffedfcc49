package protocol

import (
	"encoding/json"

	"github.com/pixil98/go-voxel/internal/game"
)

type Identify struct {
	UserId   game.UserId   `json:"userId"`
	Nickname string        `json:"nickname"`
	ServerId game.ServerId `json:"serverId"`
}

type ExecuteCommand struct {
	UserId   game.UserId     `json:"userId"`
	Command  string          `json:"command"`
	ServerId game.ServerId   `json:"serverId"`
	Params   json.RawMessage `json:"params,omitempty"`
}

type UpdatePosition struct {
	UserId   game.UserId `json:"userId"`
	Position []float64   `json:"position"`
	Rotation []float64   `json:"rotation"`
}

// UserList is the payload of updateUsers.
type UserList []game.UserRef

// NewUserList never returns nil so the list encodes as [].
func NewUserList(refs []game.UserRef) UserList {
	if refs == nil {
		return UserList{}
	}
	return UserList(refs)
}

// BannedList is the payload of updateBannedUsers.
type BannedList []game.BannedUser

func NewBannedList(b []game.BannedUser) BannedList {
	if b == nil {
		return BannedList{}
	}
	return BannedList(b)
}

// ServerUpdate carries whichever instance settings changed.
type ServerUpdate struct {
	TickRate         *int  `json:"tickRate,omitempty"`
	WhitelistEnabled *bool `json:"whitelistEnabled,omitempty"`
}

type VisiblePlayer struct {
	Id       game.UserId   `json:"id"`
	Position game.Vec3     `json:"position"`
	Rotation game.Rotation `json:"rotation"`
}

func NewVisiblePlayer(ps game.PlayerState) VisiblePlayer {
	return VisiblePlayer{Id: ps.UserId, Position: ps.Position, Rotation: ps.Rotation}
}

type PlayerLeft struct {
	Id game.UserId `json:"id"`
}

type TickUpdate struct {
	ServerId   game.ServerId `json:"serverId"`
	Ticks      int64         `json:"ticks"`
	TickOfDay  int64         `json:"tickOfDay"`
	Day        int64         `json:"day"`
	InGameDate string        `json:"inGameDate"`
}

// Notice is the payload of the server lifecycle events.
type Notice struct {
	Message string `json:"message"`
}

type Error struct {
	Message string `json:"message"`
}
