// internal/backoff/backoff.go
package backoff

import (
	"math/rand"
	"sync"
	"time"
)

const (
	DefaultBase = 1 * time.Second
	DefaultMax  = 60 * time.Second
)

// Policy computes successive reconnect delays: the bound starts at base,
// doubles on every consecutive use and is capped at max. The returned delay
// is jittered uniformly within (0, bound] so simultaneous clients don't
// redial in lockstep.
type Policy struct {
	mu      sync.Mutex
	base    time.Duration
	max     time.Duration
	bound   time.Duration
	retries int
	rng     *rand.Rand
}

// Option configures a Policy.
type Option func(*Policy)

// WithRand injects the jitter source. Tests seed this for determinism.
func WithRand(rng *rand.Rand) Option {
	return func(p *Policy) { p.rng = rng }
}

func New(base, max time.Duration, opts ...Option) *Policy {
	if base <= 0 {
		base = DefaultBase
	}
	if max < base {
		max = DefaultMax
	}
	p := &Policy{
		base: base,
		max:  max,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Delay advances the policy and returns the next jittered delay.
func (p *Policy) Delay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bound == 0 {
		p.bound = p.base
	} else if p.bound < p.max {
		p.bound *= 2
		if p.bound > p.max {
			p.bound = p.max
		}
	}
	p.retries++

	return time.Duration(p.rng.Int63n(int64(p.bound))) + 1
}

// Bound returns the current pre-jitter bound, i.e. min(base*2^(n-1), max)
// after n calls to Delay.
func (p *Policy) Bound() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bound
}

// Retries returns the number of delays handed out since the last reset.
func (p *Policy) Retries() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.retries
}

// Reset returns the policy to its base bound. Called after a successful
// connection, never on failure.
func (p *Policy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bound = 0
	p.retries = 0
}
