// internal/protocol/protocol_test.go
package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelope_PlayerUpdate(t *testing.T) {
	raw := []byte(`{"op":"playerUpdate","guildId":"123","state":{"position":5000,"time":1620000000,"connected":true}}`)

	env, err := ParseEnvelope(raw)
	require.NoError(t, err)

	assert.Equal(t, OpPlayerUpdate, env.Op)

	guild, ok := env.String("guildId")
	require.True(t, ok)
	assert.Equal(t, "123", guild)

	state, ok := env.Object("state")
	require.True(t, ok)
	assert.Equal(t, float64(5000), state["position"])
}

func TestParseEnvelope_EventType(t *testing.T) {
	raw := []byte(`{"op":"event","type":"TrackStartEvent","guildId":"123","track":"abc"}`)

	env, err := ParseEnvelope(raw)
	require.NoError(t, err)

	assert.Equal(t, OpEvent, env.Op)
	assert.Equal(t, EventTrackStart, env.EventType())
}

func TestParseEnvelope_UnknownOpPreserved(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"op":"ready","sessionId":"s1"}`))
	require.NoError(t, err)

	assert.Equal(t, OpUnknown, env.Op)
	assert.Equal(t, "ready", env.RawOp)
}

func TestParseEnvelope_Malformed(t *testing.T) {
	cases := map[string][]byte{
		"not json":     []byte(`{"op":`),
		"not object":   []byte(`[1,2,3]`),
		"missing op":   []byte(`{"guildId":"123"}`),
		"empty op":     []byte(`{"op":""}`),
		"op not a str": []byte(`{"op":42}`),
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseEnvelope(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedMessage))
		})
	}
}

func TestParseEventType_Unknown(t *testing.T) {
	assert.Equal(t, EventUnknown, ParseEventType("SegmentLoadedEvent"))
	assert.Equal(t, EventWebsocketClosed, ParseEventType("WebSocketClosedEvent"))
}

func TestEnvelope_FieldAccessors(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"op":"event","type":"TrackStuckEvent","guildId":"9","thresholdMs":1500,"byRemote":true}`))
	require.NoError(t, err)

	ms, ok := env.Int("thresholdMs")
	require.True(t, ok)
	assert.Equal(t, int64(1500), ms)

	b, ok := env.Bool("byRemote")
	require.True(t, ok)
	assert.True(t, b)

	_, ok = env.Int("guildId")
	assert.False(t, ok)
}
