// internal/player/player.go
package player

import (
	"sync"
	"time"
)

// Player tracks the node-side state of one guild's session. Playback control
// lives on the node; this is the client's mirror of it.
type Player struct {
	mu      sync.RWMutex
	guildID string

	position   int64 // track position in ms
	nodeTime   int64 // node clock at last update, unix ms
	connected  bool
	lastUpdate time.Time
}

func newPlayer(guildID string) *Player {
	return &Player{guildID: guildID}
}

// GuildID returns the guild this player is scoped to.
func (p *Player) GuildID() string {
	return p.guildID
}

// ApplyState mutates the player from a playerUpdate frame. The state object
// is the frame's nested "state" field when present, otherwise the top-level
// field set.
func (p *Player) ApplyState(fields map[string]any) {
	state := fields
	if nested, ok := fields["state"].(map[string]any); ok {
		state = nested
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if v, ok := state["position"].(float64); ok {
		p.position = int64(v)
	}
	if v, ok := state["time"].(float64); ok {
		p.nodeTime = int64(v)
	}
	if v, ok := state["connected"].(bool); ok {
		p.connected = v
	}
	p.lastUpdate = time.Now()
}

// Position returns the last reported track position in ms.
func (p *Player) Position() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.position
}

// Connected reports whether the node considers this session's voice
// connection alive.
func (p *Player) Connected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

// LastUpdate returns when the player last received a state update.
func (p *Player) LastUpdate() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastUpdate
}
