// internal/event/factory.go
package event

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/meloncore/nodelink/internal/player"
	"github.com/meloncore/nodelink/internal/protocol"
	"github.com/meloncore/nodelink/internal/track"
)

var (
	// ErrUnknownOpCode marks envelopes whose op is outside the known set.
	ErrUnknownOpCode = errors.New("unknown operation code")
	// ErrUnknownEventType marks op=event envelopes with an unknown type.
	ErrUnknownEventType = errors.New("unknown event type")
	// ErrTrackBuild wraps track resolver failures.
	ErrTrackBuild = errors.New("track build failed")
)

// PlayerStore resolves guild identifiers to players. Implemented by
// player.Registry.
type PlayerStore interface {
	Resolve(guildID string) (*player.Player, error)
}

// TrackBuilder resolves encoded track blobs. Implemented by track.Resolver.
type TrackBuilder interface {
	Build(ctx context.Context, encoded string) (*track.Track, error)
}

// Factory translates parsed envelopes into typed events. Per-envelope
// failures are returned to the caller; the factory never terminates
// anything.
type Factory struct {
	players PlayerStore
	tracks  TrackBuilder
	logger  *zap.Logger
}

func NewFactory(players PlayerStore, tracks TrackBuilder, logger *zap.Logger) *Factory {
	return &Factory{
		players: players,
		tracks:  tracks,
		logger:  logger.Named("event_factory"),
	}
}

// Build constructs the event for an envelope, dispatched by op code.
func (f *Factory) Build(ctx context.Context, env *protocol.Envelope) (Event, error) {
	switch env.Op {
	case protocol.OpPlayerUpdate:
		return f.buildPlayerUpdate(env)
	case protocol.OpEvent:
		return f.buildNodeEvent(ctx, env)
	case protocol.OpStats:
		// Deliberately inert: forwarded raw, no collaborator calls.
		return Stats{Raw: env.Fields}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOpCode, env.RawOp)
	}
}

func (f *Factory) buildPlayerUpdate(env *protocol.Envelope) (Event, error) {
	guildID, ok := env.String("guildId")
	if !ok {
		return nil, fmt.Errorf("%w: playerUpdate without guildId", protocol.ErrMalformedMessage)
	}

	p, err := f.players.Resolve(guildID)
	if err != nil {
		return nil, fmt.Errorf("guild %s: %w", guildID, err)
	}

	// State is applied before the event goes out, so consumers observing
	// the dispatch always see the post-update player.
	p.ApplyState(env.Fields)

	state, _ := env.Object("state")
	return PlayerUpdate{GuildID: guildID, State: state}, nil
}

func (f *Factory) buildNodeEvent(ctx context.Context, env *protocol.Envelope) (Event, error) {
	guildID, ok := env.String("guildId")
	if !ok {
		return nil, fmt.Errorf("%w: event without guildId", protocol.ErrMalformedMessage)
	}

	typ := env.EventType()
	if typ == protocol.EventWebsocketClosed {
		code, _ := env.Int("code")
		reason, _ := env.String("reason")
		byRemote, _ := env.Bool("byRemote")
		return WebsocketClosed{GuildID: guildID, Code: code, Reason: reason, ByRemote: byRemote}, nil
	}

	if typ == protocol.EventUnknown {
		raw, _ := env.String("type")
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, raw)
	}

	// Track-lifecycle events are scoped to a live session: no player for
	// the guild drops the frame before any track fetch.
	if _, err := f.players.Resolve(guildID); err != nil {
		return nil, fmt.Errorf("guild %s: %w", guildID, err)
	}

	encoded, _ := env.String("track")
	tr, err := f.tracks.Build(ctx, encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTrackBuild, err)
	}

	switch typ {
	case protocol.EventTrackStart:
		return TrackStart{GuildID: guildID, Track: tr}, nil
	case protocol.EventTrackEnd:
		reason, _ := env.String("reason")
		return TrackEnd{GuildID: guildID, Track: tr, Reason: reason}, nil
	case protocol.EventTrackException:
		msg, _ := env.String("error")
		return TrackException{GuildID: guildID, Track: tr, Error: msg}, nil
	case protocol.EventTrackStuck:
		ms, _ := env.Int("thresholdMs")
		return TrackStuck{GuildID: guildID, Track: tr, ThresholdMs: ms}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, string(typ))
	}
}
