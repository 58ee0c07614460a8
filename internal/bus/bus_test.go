// internal/bus/bus_test.go
package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recorded struct {
	name    string
	payload map[string]any
}

func TestBus_DispatchToSubscriber(t *testing.T) {
	b := New(zaptest.NewLogger(t))

	var got []recorded
	b.Subscribe("nodelink_trackend", func(name string, payload map[string]any) {
		got = append(got, recorded{name, payload})
	})

	b.Dispatch("nodelink_trackend", map[string]any{"guildId": "123", "reason": "FINISHED"})

	require.Len(t, got, 1)
	assert.Equal(t, "nodelink_trackend", got[0].name)
	assert.Equal(t, "123", got[0].payload["guildId"])
	assert.Equal(t, "FINISHED", got[0].payload["reason"])
}

func TestBus_NoMatchingHandler(t *testing.T) {
	b := New(zaptest.NewLogger(t))

	var calls int
	b.Subscribe("nodelink_trackstart", func(string, map[string]any) { calls++ })

	b.Dispatch("nodelink_trackend", map[string]any{})
	assert.Equal(t, 0, calls)
}

func TestBus_WildcardSubscription(t *testing.T) {
	b := New(zaptest.NewLogger(t))

	var names []string
	b.Subscribe(AllEvents, func(name string, _ map[string]any) {
		names = append(names, name)
	})

	b.Dispatch("nodelink_trackstart", nil)
	b.Dispatch("nodelink_stats", nil)

	assert.Equal(t, []string{"nodelink_trackstart", "nodelink_stats"}, names)
}

func TestBus_Unsubscribe(t *testing.T) {
	b := New(zaptest.NewLogger(t))

	var calls int
	sub := b.Subscribe("x", func(string, map[string]any) { calls++ })

	b.Dispatch("x", nil)
	sub.Unsubscribe()
	sub.Unsubscribe() // idempotent
	b.Dispatch("x", nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, b.HandlerCount("x"))
}

func TestBus_HandlerPanicIsContained(t *testing.T) {
	b := New(zaptest.NewLogger(t))

	var calls int
	b.Subscribe("x", func(string, map[string]any) { panic("boom") })
	b.Subscribe("x", func(string, map[string]any) { calls++ })

	require.NotPanics(t, func() {
		b.Dispatch("x", nil)
	})
	assert.Equal(t, 1, calls)
}
