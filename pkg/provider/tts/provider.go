// Package tts defines the Provider interface for reference-audio backends.
//
// A provider turns verse text into a playable audio clip. Backends range
// from a directory of pre-recorded recordings through cloud synthesis to a
// local synthesizer subprocess; the application composes them into an
// ordered fallback chain (see internal/resilience) so that a missing
// recording or an unreachable cloud API degrades gracefully instead of
// failing the request.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"
	"errors"
)

// ErrNoAudio is returned by a backend that cannot produce audio for the
// given text — for example a recording library with no matching file. It
// signals "fall through to the next backend" rather than a fault.
var ErrNoAudio = errors.New("tts: no audio available for this text")

// Voice describes one synthesis voice offered by a backend.
type Voice struct {
	// ID is the backend-specific voice identifier (e.g. "Zeina").
	ID string

	// Name is the human-readable description.
	Name string

	// Language is the voice's language tag (e.g. "arb" for Modern
	// Standard Arabic).
	Language string

	// Gender is the voice gender as reported by the backend, if any.
	Gender string

	// Engine selects a synthesis engine variant where the backend has
	// several (e.g. "standard" vs "neural").
	Engine string

	// Provider names the backend this voice belongs to.
	Provider string
}

// Clip is one synthesized or retrieved audio resource.
type Clip struct {
	// Audio is the encoded audio payload.
	Audio []byte

	// Format is the payload encoding: "mp3" or "wav".
	Format string

	// Voice is the ID of the voice that produced the clip, when known.
	Voice string

	// Cached reports whether the clip was served from a cache rather than
	// synthesized for this call.
	Cached bool
}

// Provider is the abstraction over any reference-audio backend.
type Provider interface {
	// Synthesize returns audio for text using voice. Backends that only
	// serve fixed recordings ignore the voice. Returns [ErrNoAudio]
	// (possibly wrapped) when the backend has nothing for this text.
	Synthesize(ctx context.Context, text string, voice Voice) (*Clip, error)

	// ListVoices returns the voices this backend offers.
	ListVoices(ctx context.Context) ([]Voice, error)
}
