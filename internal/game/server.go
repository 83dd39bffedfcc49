package game

import (
	"fmt"
	"regexp"
	"slices"
	"time"

	"github.com/pixil98/go-errors"
)

const (
	DefaultTickRate  = 20
	DefaultBanReason = "rule violation"
	maxUserIdLength  = 64
)

var userIdPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// UserId identifies a platform user. Compare with ==.
type UserId string

// Valid reports whether the id is well formed.
func (id UserId) Valid() bool {
	return len(id) <= maxUserIdLength && userIdPattern.MatchString(string(id))
}

func (id UserId) String() string {
	return string(id)
}

// ServerId identifies a ServerInstance.
type ServerId string

func (id ServerId) String() string {
	return string(id)
}

// UserRef is a user entry in one of the instance rosters.
type UserRef struct {
	UserId   UserId `json:"userId" bson:"userId"`
	Nickname string `json:"nickname" bson:"nickname"`
}

// BannedUser is an entry in the instance ban list.
type BannedUser struct {
	UserId   UserId    `json:"userId" bson:"userId"`
	Nickname string    `json:"nickname" bson:"nickname"`
	Reason   string    `json:"reason" bson:"reason"`
	BannedAt time.Time `json:"bannedAt" bson:"bannedAt"`
}

// ServerInstance is the persisted record of one game world.
type ServerInstance struct {
	Id                ServerId     `json:"id" bson:"_id"`
	TickEnabled       bool         `json:"tickEnabled" bson:"tickEnabled"`
	TickRate          int          `json:"tickRate" bson:"tickRate"`
	LastTickTimestamp time.Time    `json:"lastTickTimestamp" bson:"lastTickTimestamp"`
	GlobalTick        int64        `json:"globalTick" bson:"globalTick"`
	GameStartDate     time.Time    `json:"gameStartDate" bson:"gameStartDate"`
	ConnectedUsers    []UserRef    `json:"connectedUsers" bson:"connectedUsers"`
	BannedUsers       []BannedUser `json:"bannedUsers" bson:"bannedUsers"`
	WhitelistEnabled  bool         `json:"whitelistEnabled" bson:"whitelistEnabled"`
	Whitelist         []UserRef    `json:"whitelist" bson:"whitelist"`
	Operators         []UserRef    `json:"operators" bson:"operators"`
}

// Validate satisfies storage.ValidatingSpec.
func (s *ServerInstance) Validate() error {
	el := errors.NewErrorList()

	if s.TickRate <= 0 {
		el.Add(fmt.Errorf("tickRate must be positive"))
	}
	if s.GlobalTick < 0 {
		el.Add(fmt.Errorf("globalTick must not be negative"))
	}
	for _, b := range s.BannedUsers {
		if s.IsConnected(b.UserId) {
			el.Add(fmt.Errorf("banned user %q is listed as connected", b.UserId))
		}
	}

	return el.Err()
}

// Clone returns a deep copy so callers can mutate it without touching cached state.
func (s *ServerInstance) Clone() *ServerInstance {
	c := *s
	c.ConnectedUsers = slices.Clone(s.ConnectedUsers)
	c.BannedUsers = slices.Clone(s.BannedUsers)
	c.Whitelist = slices.Clone(s.Whitelist)
	c.Operators = slices.Clone(s.Operators)
	return &c
}

func containsUser(refs []UserRef, id UserId) bool {
	return slices.ContainsFunc(refs, func(r UserRef) bool { return r.UserId == id })
}

func (s *ServerInstance) IsConnected(id UserId) bool {
	return containsUser(s.ConnectedUsers, id)
}

func (s *ServerInstance) IsWhitelisted(id UserId) bool {
	return containsUser(s.Whitelist, id)
}

func (s *ServerInstance) IsOperator(id UserId) bool {
	return containsUser(s.Operators, id)
}

func (s *ServerInstance) IsBanned(id UserId) bool {
	return slices.ContainsFunc(s.BannedUsers, func(b BannedUser) bool { return b.UserId == id })
}

// AddConnected appends the user to the connected roster. Returns false if already present.
func (s *ServerInstance) AddConnected(ref UserRef) bool {
	if s.IsConnected(ref.UserId) {
		return false
	}
	s.ConnectedUsers = append(s.ConnectedUsers, ref)
	return true
}

// RemoveConnected drops the user from the connected roster. Returns false if absent.
func (s *ServerInstance) RemoveConnected(id UserId) bool {
	n := len(s.ConnectedUsers)
	s.ConnectedUsers = slices.DeleteFunc(s.ConnectedUsers, func(r UserRef) bool { return r.UserId == id })
	return len(s.ConnectedUsers) != n
}

// Ban records a ban, replacing any previous entry for the same user, and
// removes the user from the connected roster.
func (s *ServerInstance) Ban(b BannedUser) {
	if b.Reason == "" {
		b.Reason = DefaultBanReason
	}
	s.Unban(b.UserId)
	s.BannedUsers = append(s.BannedUsers, b)
	s.RemoveConnected(b.UserId)
}

// Unban removes the user from the ban list. Returns false if they were not banned.
func (s *ServerInstance) Unban(id UserId) bool {
	n := len(s.BannedUsers)
	s.BannedUsers = slices.DeleteFunc(s.BannedUsers, func(b BannedUser) bool { return b.UserId == id })
	return len(s.BannedUsers) != n
}
