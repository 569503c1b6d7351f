// Package mock provides test doubles for the speech package interfaces.
//
// Use Recognizer to verify which Config a caller listens with and to control
// whether Listen succeeds. Use Stream to feed scripted events into the code
// under test:
//
//	stream := mock.NewStream()
//	rec := &mock.Recognizer{Stream: stream}
//	// ... start the controller, then:
//	stream.Emit(speech.Event{Kind: speech.KindSpeechStart})
package mock

import (
	"context"
	"sync"

	"github.com/sherbini/taratil/pkg/provider/speech"
)

// ListenCall records a single invocation of Recognizer.Listen.
type ListenCall struct {
	Ctx context.Context
	Cfg speech.Config
}

// Recognizer is a mock implementation of speech.Recognizer.
type Recognizer struct {
	mu sync.Mutex

	// Stream is returned by Listen. When nil, Listen returns a fresh
	// default Stream.
	Stream speech.Stream

	// ListenErr, if non-nil, is returned from Listen instead of a stream.
	ListenErr error

	// ListenErrOnce makes ListenErr apply to the first call only.
	ListenErrOnce bool

	// ListenCalls records every call to Listen.
	ListenCalls []ListenCall
}

// Listen records the call and returns Stream, ListenErr.
func (r *Recognizer) Listen(ctx context.Context, cfg speech.Config) (speech.Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ListenCalls = append(r.ListenCalls, ListenCall{Ctx: ctx, Cfg: cfg})
	if r.ListenErr != nil {
		err := r.ListenErr
		if r.ListenErrOnce {
			r.ListenErr = nil
		}
		return nil, err
	}
	if r.Stream == nil {
		return NewStream(), nil
	}
	return r.Stream, nil
}

// Calls returns a copy of the recorded Listen calls.
func (r *Recognizer) Calls() []ListenCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ListenCall, len(r.ListenCalls))
	copy(out, r.ListenCalls)
	return out
}

// Stream is a scriptable implementation of speech.Stream. Events pushed via
// Emit are delivered on the Events channel; End emits KindEnd and closes it.
type Stream struct {
	mu      sync.Mutex
	events  chan speech.Event
	ended   bool
	stopped bool
	aborted bool

	// StopErr and AbortErr are returned from Stop and Abort respectively.
	StopErr  error
	AbortErr error
}

// NewStream returns a Stream with a generously buffered event channel so
// tests never block on Emit.
func NewStream() *Stream {
	return &Stream{events: make(chan speech.Event, 64)}
}

// Events returns the scripted event channel.
func (s *Stream) Events() <-chan speech.Event { return s.events }

// Emit delivers ev to the stream's consumer. Emitting after End panics, as
// it would in a misbehaving test.
func (s *Stream) Emit(ev speech.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		panic("mock: Emit after End")
	}
	s.events <- ev
}

// End emits the final KindEnd event and closes the channel. Safe to call
// more than once.
func (s *Stream) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.events <- speech.Event{Kind: speech.KindEnd}
	close(s.events)
}

// Stop records the call, then ends the stream like a real recognizer would.
func (s *Stream) Stop() error {
	s.mu.Lock()
	s.stopped = true
	err := s.StopErr
	s.mu.Unlock()
	s.End()
	return err
}

// Abort records the call and ends the stream immediately.
func (s *Stream) Abort() error {
	s.mu.Lock()
	s.aborted = true
	err := s.AbortErr
	s.mu.Unlock()
	s.End()
	return err
}

// Stopped reports whether Stop was called.
func (s *Stream) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Aborted reports whether Abort was called.
func (s *Stream) Aborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}
