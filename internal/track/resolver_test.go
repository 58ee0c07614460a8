// internal/track/resolver_test.go
package track

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestResolver(t *testing.T, handler http.HandlerFunc) (*Resolver, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	r := NewResolver(ResolverConfig{
		BaseURL:  srv.URL,
		Password: "secret",
		MaxTries: 3,
	}, zaptest.NewLogger(t))
	return r, srv
}

func TestResolver_Build(t *testing.T) {
	var requests atomic.Int32
	r, _ := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		requests.Add(1)
		assert.Equal(t, "secret", req.Header.Get("Authorization"))
		assert.Equal(t, "abc", req.URL.Query().Get("track"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"identifier":"dQw4w9WgXcQ","isSeekable":true,"author":"Rick","length":212000,"isStream":false,"position":0,"title":"Never Gonna Give You Up","uri":"https://youtu.be/dQw4w9WgXcQ"}`))
	})

	got, err := r.Build(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Encoded)
	assert.Equal(t, "Never Gonna Give You Up", got.Info.Title)
	assert.Equal(t, int64(212000), got.Info.Length)

	// Second build hits the cache, not the server.
	again, err := r.Build(context.Background(), "abc")
	require.NoError(t, err)
	assert.Same(t, got, again)
	assert.Equal(t, int32(1), requests.Load())
	assert.Equal(t, 1, r.CacheLen())
}

func TestResolver_RetriesTransientFailure(t *testing.T) {
	var requests atomic.Int32
	r, _ := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"identifier":"x","title":"ok"}`))
	})

	got, err := r.Build(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Info.Title)
	assert.Equal(t, int32(2), requests.Load())
}

func TestResolver_ClientErrorIsPermanent(t *testing.T) {
	var requests atomic.Int32
	r, _ := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := r.Build(context.Background(), "abc")
	require.Error(t, err)
	assert.Equal(t, int32(1), requests.Load(), "4xx must not be retried")
}

func TestResolver_EmptyEncoded(t *testing.T) {
	r := NewResolver(ResolverConfig{BaseURL: "http://localhost:0"}, zaptest.NewLogger(t))
	_, err := r.Build(context.Background(), "")
	assert.Error(t, err)
}
