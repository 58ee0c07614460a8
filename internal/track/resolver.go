// internal/track/resolver.go
package track

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTimeout  = 5 * time.Second
	DefaultMaxTries = 3
	defaultCacheCap = 512
)

// Resolver decodes opaque track blobs against the node's HTTP API.
// Transient failures are retried with exponential backoff; concurrent
// requests for the same blob are collapsed into one.
type Resolver struct {
	baseURL  string
	password string
	httpc    *http.Client
	maxTries uint
	logger   *zap.Logger

	group singleflight.Group

	mu    sync.Mutex
	cache map[string]*Track
}

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	BaseURL  string // node REST address, e.g. http://localhost:2333
	Password string
	Timeout  time.Duration
	MaxTries uint
}

func NewResolver(cfg ResolverConfig, logger *zap.Logger) *Resolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxTries := cfg.MaxTries
	if maxTries == 0 {
		maxTries = DefaultMaxTries
	}

	return &Resolver{
		baseURL:  cfg.BaseURL,
		password: cfg.Password,
		httpc:    &http.Client{Timeout: timeout},
		maxTries: maxTries,
		logger:   logger.Named("track_resolver"),
		cache:    make(map[string]*Track),
	}
}

// Build resolves an encoded track blob into a Track.
func (r *Resolver) Build(ctx context.Context, encoded string) (*Track, error) {
	if encoded == "" {
		return nil, fmt.Errorf("empty encoded track")
	}

	r.mu.Lock()
	if t, ok := r.cache[encoded]; ok {
		r.mu.Unlock()
		return t, nil
	}
	r.mu.Unlock()

	v, err, _ := r.group.Do(encoded, func() (interface{}, error) {
		t, err := r.fetch(ctx, encoded)
		if err != nil {
			return nil, err
		}
		r.store(encoded, t)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Track), nil
}

func (r *Resolver) fetch(ctx context.Context, encoded string) (*Track, error) {
	operation := func() (*Track, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			r.baseURL+"/decodetrack?track="+url.QueryEscape(encoded), nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Authorization", r.password)

		resp, err := r.httpc.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return nil, backoff.Permanent(fmt.Errorf("decode track: status %d", resp.StatusCode))
		default:
			return nil, fmt.Errorf("decode track: status %d", resp.StatusCode)
		}

		var info Info
		if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("decode track response: %w", err))
		}
		return &Track{Encoded: encoded, Info: info}, nil
	}

	t, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(r.maxTries))
	if err != nil {
		r.logger.Warn("Track decode failed", zap.Error(err))
		return nil, err
	}
	return t, nil
}

func (r *Resolver) store(encoded string, t *Track) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.cache) >= defaultCacheCap {
		// Full: drop an arbitrary entry. Encoded blobs repeat heavily in
		// practice, so anything smarter hasn't been worth it.
		for k := range r.cache {
			delete(r.cache, k)
			break
		}
	}
	r.cache[encoded] = t
}

// CacheLen returns the number of cached tracks.
func (r *Resolver) CacheLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}
