// Package speech defines the Recognizer interface for speech-recognition
// backends.
//
// A recognizer wraps whatever actually performs recognition — in the
// reference deployment a browser's speech API relaying events over a
// websocket, in tests a mock — and exposes a uniform event stream. The
// central abstraction is [Stream]: once opened, a stream emits lifecycle
// and result events in the order the recognizer produced them, ending with
// [KindEnd] when recognition finishes for any reason.
//
// Implementations must be safe for concurrent use.
package speech

import (
	"context"
	"errors"
)

// ErrPermissionDenied is returned by [Recognizer.Listen] when the
// environment refuses the microphone or recognition capability. There is no
// automatic retry; the user has to grant access and start again.
var ErrPermissionDenied = errors.New("speech: microphone permission denied")

// Config describes the recognition settings for a new stream.
type Config struct {
	// Language is the BCP-47 language tag for recognition (e.g. "ar-SA").
	Language string

	// InterimResults requests low-latency partial results in addition to
	// final ones. Recognizers that cannot provide partials ignore this.
	InterimResults bool
}

// Stream is an open recognition stream. Callers must either drain Events
// until it closes or call Stop/Abort; failing to do so may leak goroutines
// inside the implementation. All methods are safe for concurrent use.
type Stream interface {
	// Events returns the stream's event channel. The channel is closed
	// after the [KindEnd] event has been delivered.
	Events() <-chan Event

	// Stop ends recognition gracefully: buffered audio is still recognized
	// and any pending final result is delivered before [KindEnd].
	Stop() error

	// Abort ends recognition immediately, discarding pending results.
	// The stream delivers a [KindError] event with [ErrAborted] followed
	// by [KindEnd].
	Abort() error
}

// Recognizer is the abstraction over any speech-recognition backend.
type Recognizer interface {
	// Listen opens a recognition stream with the given configuration.
	// Returns [ErrPermissionDenied] (possibly wrapped) when the microphone
	// capability is refused, or [ErrLanguageUnsupported] when the backend
	// cannot recognize cfg.Language.
	Listen(ctx context.Context, cfg Config) (Stream, error)
}

// ErrLanguageUnsupported is returned by [Recognizer.Listen], or carried by a
// [KindError] event, when the backend does not support the requested
// language.
var ErrLanguageUnsupported = errors.New("speech: language not supported")
