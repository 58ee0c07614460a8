// internal/event/events.go
package event

import (
	"github.com/meloncore/nodelink/internal/track"
)

// Event is one typed occurrence translated from a node frame. Tag is the
// lowercase variant name used to form the dispatch event name; Payload is
// the flat field set handed to the bus. Variants carry guild identifiers,
// never player references — resolution is the consumer's job.
type Event interface {
	Tag() string
	Payload() map[string]any
}

// PlayerUpdate reports a node-side player state change. The matching
// player's state has already been mutated by the time this is dispatched.
type PlayerUpdate struct {
	GuildID string
	State   map[string]any
}

func (e PlayerUpdate) Tag() string { return "playerupdate" }

func (e PlayerUpdate) Payload() map[string]any {
	return map[string]any{"guildId": e.GuildID, "state": e.State}
}

// TrackStart reports a track beginning playback.
type TrackStart struct {
	GuildID string
	Track   *track.Track
}

func (e TrackStart) Tag() string { return "trackstart" }

func (e TrackStart) Payload() map[string]any {
	return map[string]any{"guildId": e.GuildID, "track": e.Track}
}

// TrackEnd reports a track finishing, with the node's end reason.
type TrackEnd struct {
	GuildID string
	Track   *track.Track
	Reason  string
}

func (e TrackEnd) Tag() string { return "trackend" }

func (e TrackEnd) Payload() map[string]any {
	return map[string]any{"guildId": e.GuildID, "track": e.Track, "reason": e.Reason}
}

// TrackException reports a playback error on the node.
type TrackException struct {
	GuildID string
	Track   *track.Track
	Error   string
}

func (e TrackException) Tag() string { return "trackexception" }

func (e TrackException) Payload() map[string]any {
	return map[string]any{"guildId": e.GuildID, "track": e.Track, "error": e.Error}
}

// TrackStuck reports a track that made no progress for thresholdMs.
type TrackStuck struct {
	GuildID     string
	Track       *track.Track
	ThresholdMs int64
}

func (e TrackStuck) Tag() string { return "trackstuck" }

func (e TrackStuck) Payload() map[string]any {
	return map[string]any{"guildId": e.GuildID, "track": e.Track, "thresholdMs": e.ThresholdMs}
}

// WebsocketClosed reports the node's own voice websocket closing.
type WebsocketClosed struct {
	GuildID  string
	Code     int64
	Reason   string
	ByRemote bool
}

func (e WebsocketClosed) Tag() string { return "websocketclosed" }

func (e WebsocketClosed) Payload() map[string]any {
	return map[string]any{
		"guildId":  e.GuildID,
		"code":     e.Code,
		"reason":   e.Reason,
		"byRemote": e.ByRemote,
	}
}

// Stats carries the node's periodic statistics payload as-is. Nothing
// downstream consumes it yet; it is dispatched for observability only.
type Stats struct {
	Raw map[string]any
}

func (e Stats) Tag() string { return "stats" }

func (e Stats) Payload() map[string]any {
	return map[string]any{"stats": e.Raw}
}
