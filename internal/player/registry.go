// internal/player/registry.go
package player

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrNotFound is returned when no player exists for a guild.
var ErrNotFound = errors.New("player not found")

// Registry is an indexed guild → player mapping. Lookups are O(1) and a
// miss is an explicit error, never a panic.
type Registry struct {
	mu      sync.RWMutex
	players map[string]*Player
	logger  *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		players: make(map[string]*Player),
		logger:  logger.Named("player_registry"),
	}
}

// Resolve returns the player for a guild, or ErrNotFound.
func (r *Registry) Resolve(guildID string) (*Player, error) {
	r.mu.RLock()
	p, ok := r.players[guildID]
	r.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

// Create registers a player for a guild, returning the existing one if the
// guild is already registered.
func (r *Registry) Create(guildID string) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.players[guildID]; ok {
		return p
	}

	p := newPlayer(guildID)
	r.players[guildID] = p
	r.logger.Debug("Player registered", zap.String("guild_id", guildID))
	return p
}

// Remove drops a guild's player. Removing an unknown guild is a no-op.
func (r *Registry) Remove(guildID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[guildID]; !ok {
		return
	}
	delete(r.players, guildID)
	r.logger.Debug("Player removed", zap.String("guild_id", guildID))
}

// Len returns the number of registered players.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}
