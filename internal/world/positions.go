package world

import (
	"slices"
	"strings"
	"sync"

	"github.com/pixil98/go-voxel/internal/game"
)

// instancePositions holds the live transforms of one instance.
type instancePositions struct {
	mu      sync.RWMutex
	players map[game.UserId]game.PlayerState
}

// Positions is the in-memory player state of every instance. Each instance has
// its own lock; there is no cross-instance locking.
type Positions struct {
	mu        sync.Mutex
	instances map[game.ServerId]*instancePositions
}

func NewPositions() *Positions {
	return &Positions{instances: map[game.ServerId]*instancePositions{}}
}

func (p *Positions) instance(id game.ServerId, create bool) *instancePositions {
	p.mu.Lock()
	defer p.mu.Unlock()

	ip, ok := p.instances[id]
	if !ok && create {
		ip = &instancePositions{players: map[game.UserId]game.PlayerState{}}
		p.instances[id] = ip
	}
	return ip
}

// Upsert stores the latest state for the player. Last write wins.
func (p *Positions) Upsert(serverId game.ServerId, ps game.PlayerState) {
	ip := p.instance(serverId, true)
	ip.mu.Lock()
	defer ip.mu.Unlock()
	ip.players[ps.UserId] = ps
}

// Remove drops the player if their entry still belongs to connId. A reconnect
// on a new connection is left alone. Returns whether an entry was removed.
func (p *Positions) Remove(serverId game.ServerId, userId game.UserId, connId game.ConnectionId) bool {
	ip := p.instance(serverId, false)
	if ip == nil {
		return false
	}

	ip.mu.Lock()
	defer ip.mu.Unlock()

	ps, ok := ip.players[userId]
	if !ok || ps.ConnId != connId {
		return false
	}
	delete(ip.players, userId)
	return true
}

func (p *Positions) Get(serverId game.ServerId, userId game.UserId) (game.PlayerState, bool) {
	ip := p.instance(serverId, false)
	if ip == nil {
		return game.PlayerState{}, false
	}
	ip.mu.RLock()
	defer ip.mu.RUnlock()
	ps, ok := ip.players[userId]
	return ps, ok
}

// Len is the number of tracked players in the instance.
func (p *Positions) Len(serverId game.ServerId) int {
	ip := p.instance(serverId, false)
	if ip == nil {
		return 0
	}
	ip.mu.RLock()
	defer ip.mu.RUnlock()
	return len(ip.players)
}

// Within returns every player other than userId at distance <= radius from pos,
// ordered by user id.
func (p *Positions) Within(serverId game.ServerId, userId game.UserId, pos game.Vec3, radius float64) []game.PlayerState {
	ip := p.instance(serverId, false)
	if ip == nil {
		return nil
	}

	ip.mu.RLock()
	var out []game.PlayerState
	for id, ps := range ip.players {
		if id == userId {
			continue
		}
		if pos.DistanceTo(ps.Position) <= radius {
			out = append(out, ps)
		}
	}
	ip.mu.RUnlock()

	slices.SortFunc(out, func(a, b game.PlayerState) int {
		return strings.Compare(string(a.UserId), string(b.UserId))
	})
	return out
}
