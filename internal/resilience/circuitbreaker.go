// Package resilience composes reference-audio backends into an ordered
// fallback chain protected by circuit breakers.
//
// The central type is [AudioChain]: a tts.Provider whose Synthesize tries
// each configured backend in order until one produces a clip. Each backend
// gets its own [Breaker], a classic three-state circuit breaker
// (closed → open → half-open), so a backend that keeps failing is bypassed
// without paying its timeout on every request.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by [Breaker.Do] while the breaker is open and the
// cool-off period has not yet elapsed.
var ErrOpen = errors.New("resilience: circuit open")

// breakerState is the operating mode of a [Breaker].
type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateClosed:
		return "closed"
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds the tuning knobs for a [Breaker]. Zero values are
// replaced with defaults.
type BreakerConfig struct {
	// Name labels the breaker in log messages.
	Name string

	// Trip is the number of consecutive failures that opens the breaker.
	// Default: 3.
	Trip int

	// CoolOff is how long the breaker stays open before allowing a probe
	// call. Default: 30s.
	CoolOff time.Duration
}

// Breaker is a three-state circuit breaker. Safe for concurrent use.
type Breaker struct {
	name    string
	trip    int
	coolOff time.Duration

	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
}

// NewBreaker creates a [Breaker] in the closed state.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Trip <= 0 {
		cfg.Trip = 3
	}
	if cfg.CoolOff <= 0 {
		cfg.CoolOff = 30 * time.Second
	}
	return &Breaker{
		name:    cfg.Name,
		trip:    cfg.Trip,
		coolOff: cfg.CoolOff,
	}
}

// Do runs fn unless the breaker is open. In the open state it returns
// [ErrOpen] without calling fn until the cool-off elapses, after which a
// single probe call is let through: success closes the breaker, failure
// re-opens it for another cool-off.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case stateOpen:
		if time.Since(b.openedAt) < b.coolOff {
			b.mu.Unlock()
			return ErrOpen
		}
		b.state = stateHalfOpen
		slog.Debug("circuit breaker probing", "name", b.name)
	case stateHalfOpen:
		// One probe at a time.
		b.mu.Unlock()
		return ErrOpen
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		b.openedAt = time.Now()
		if b.state == stateHalfOpen || b.failures >= b.trip {
			if b.state != stateOpen {
				slog.Warn("circuit breaker opened", "name", b.name, "failures", b.failures)
			}
			b.state = stateOpen
		}
		return err
	}
	if b.state != stateClosed {
		slog.Info("circuit breaker closed", "name", b.name)
	}
	b.state = stateClosed
	b.failures = 0
	return nil
}

// Open reports whether the breaker is currently rejecting calls.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == stateOpen && time.Since(b.openedAt) < b.coolOff
}

// Reset forces the breaker back to closed, clearing failure counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = stateClosed
	b.failures = 0
}
