package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sherbini/taratil/pkg/provider/tts"
)

// ErrChainExhausted is returned when every backend in an [AudioChain]
// failed or had an open breaker.
var ErrChainExhausted = errors.New("resilience: all audio backends failed")

// backend pairs a named tts.Provider with its dedicated breaker.
type backend struct {
	name     string
	provider tts.Provider
	breaker  *Breaker
}

// AudioChain implements [tts.Provider] across an ordered list of backends.
// Synthesize tries each backend in registration order; a backend returning
// [tts.ErrNoAudio] falls through without counting as a breaker failure,
// since "no recording for this verse" says nothing about backend health.
type AudioChain struct {
	backends []backend
	cfg      BreakerConfig
}

// Compile-time interface assertion.
var _ tts.Provider = (*AudioChain)(nil)

// NewAudioChain creates an empty chain whose backends each get a breaker
// built from cfg. Register backends with [AudioChain.Add] in preference
// order.
func NewAudioChain(cfg BreakerConfig) *AudioChain {
	return &AudioChain{cfg: cfg}
}

// Add appends a backend to the chain. Backends are tried in the order
// added.
func (c *AudioChain) Add(name string, p tts.Provider) {
	bc := c.cfg
	bc.Name = name
	c.backends = append(c.backends, backend{
		name:     name,
		provider: p,
		breaker:  NewBreaker(bc),
	})
}

// Names returns the backend names in chain order.
func (c *AudioChain) Names() []string {
	names := make([]string, len(c.backends))
	for i, b := range c.backends {
		names[i] = b.name
	}
	return names
}

// Synthesize returns audio from the first backend that produces a clip.
func (c *AudioChain) Synthesize(ctx context.Context, text string, voice tts.Voice) (*tts.Clip, error) {
	if len(c.backends) == 0 {
		return nil, fmt.Errorf("%w: no backends configured", ErrChainExhausted)
	}

	var lastErr error
	for i := range c.backends {
		b := &c.backends[i]

		var clip *tts.Clip
		err := b.breaker.Do(func() error {
			var synthErr error
			clip, synthErr = b.provider.Synthesize(ctx, text, voice)
			if errors.Is(synthErr, tts.ErrNoAudio) {
				// A miss is healthy behaviour for a library backend;
				// record it outside the breaker's failure accounting.
				clip = nil
				return nil
			}
			return synthErr
		})
		if err == nil && clip != nil {
			return clip, nil
		}

		switch {
		case err == nil:
			slog.Debug("audio backend has no clip, falling through", "backend", b.name)
			lastErr = tts.ErrNoAudio
		case errors.Is(err, ErrOpen):
			slog.Debug("skipping audio backend, circuit open", "backend", b.name)
			lastErr = err
		default:
			slog.Warn("audio backend failed, trying next", "backend", b.name, "err", err)
			lastErr = err
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrChainExhausted, lastErr)
}

// ListVoices returns the union of voices across healthy backends. A
// backend that cannot list voices is skipped rather than failing the call.
func (c *AudioChain) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	var voices []tts.Voice
	for i := range c.backends {
		b := &c.backends[i]
		vs, err := b.provider.ListVoices(ctx)
		if err != nil {
			slog.Warn("audio backend voice listing failed", "backend", b.name, "err", err)
			continue
		}
		voices = append(voices, vs...)
	}
	if len(voices) == 0 {
		return nil, fmt.Errorf("%w: no backend returned voices", ErrChainExhausted)
	}
	return voices, nil
}
