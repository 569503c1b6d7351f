// Package wsjson provides a speech.Recognizer that drives a recogniser
// running in the client over a WebSocket connection.
//
// The actual recognition happens client-side (in the browser). The server
// sends JSON commands telling the client to start, stop, or abort
// recognition, and the client streams recognition events back as JSON
// messages. The connection's read loop is owned by the caller (the practice
// WebSocket handler); inbound recognition messages are routed to the active
// stream via [Recognizer.Deliver].
package wsjson

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/sherbini/taratil/pkg/provider/speech"
)

// commandTimeout bounds control-command writes. Stop and Abort are called
// while the session controller holds its lock, so a stalled client write
// must not block it indefinitely.
const commandTimeout = 5 * time.Second

// Command types sent to the client.
const (
	CommandListen = "listen"
	CommandStop   = "stop"
	CommandAbort  = "abort"
)

// Command is a server-to-client recognition control message.
type Command struct {
	Type           string `json:"type"`
	Language       string `json:"language,omitempty"`
	InterimResults bool   `json:"interim_results,omitempty"`
}

// Message is a client-to-server recognition event.
type Message struct {
	// Event is one of "start", "speechstart", "speechend", "result",
	// "error", "end".
	Event string `json:"event"`

	// Final marks a result message as final rather than interim.
	Final bool `json:"final,omitempty"`

	// Alternatives carries transcription candidates for result messages,
	// best first.
	Alternatives []Alternative `json:"alternatives,omitempty"`

	// Error is the client's recognition error code for error messages
	// (e.g. "not-allowed", "no-speech", "language-not-supported").
	Error string `json:"error,omitempty"`
}

// Alternative is one transcription candidate.
type Alternative struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Sender transmits one JSON control message to the client.
type Sender func(ctx context.Context, v any) error

// Recognizer implements speech.Recognizer over a WebSocket connection.
// At most one stream is active at a time; starting a new one ends the
// previous stream.
type Recognizer struct {
	send Sender

	mu     sync.Mutex
	active *stream
}

// Compile-time interface check.
var _ speech.Recognizer = (*Recognizer)(nil)

// NewRecognizer creates a [Recognizer] that sends commands over conn using
// JSON text messages.
func NewRecognizer(conn *websocket.Conn) *Recognizer {
	return NewRecognizerWithSender(func(ctx context.Context, v any) error {
		return wsjson.Write(ctx, conn, v)
	})
}

// NewRecognizerWithSender creates a [Recognizer] with a custom [Sender].
// Used in tests to capture outbound commands.
func NewRecognizerWithSender(send Sender) *Recognizer {
	return &Recognizer{send: send}
}

// Listen implements [speech.Recognizer.Listen]. It tells the client to start
// recognising with the given config and returns the event stream. Language
// support is only known client-side, so an unsupported language surfaces as
// an error event on the stream rather than a Listen error.
func (r *Recognizer) Listen(ctx context.Context, cfg speech.Config) (speech.Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		r.active.end()
		r.active = nil
	}

	cmd := Command{
		Type:           CommandListen,
		Language:       cfg.Language,
		InterimResults: cfg.InterimResults,
	}
	if err := r.send(ctx, cmd); err != nil {
		return nil, fmt.Errorf("wsjson: send listen command: %w", err)
	}

	s := &stream{
		send:   r.send,
		events: make(chan speech.Event, 64),
	}
	r.active = s
	return s, nil
}

// Deliver routes an inbound recognition message to the active stream. It is
// called from the connection's read loop. Messages arriving while no stream
// is active are dropped.
func (r *Recognizer) Deliver(msg Message) {
	r.mu.Lock()
	s := r.active
	if s != nil && msg.Event == "end" {
		r.active = nil
	}
	r.mu.Unlock()

	if s == nil {
		return
	}

	switch msg.Event {
	case "start":
		s.emit(speech.Event{Kind: speech.KindStart})
	case "speechstart":
		s.emit(speech.Event{Kind: speech.KindSpeechStart})
	case "speechend":
		s.emit(speech.Event{Kind: speech.KindSpeechEnd})
	case "result":
		res := &speech.Result{Final: msg.Final}
		for _, alt := range msg.Alternatives {
			res.Alternatives = append(res.Alternatives, speech.Alternative{
				Text:       alt.Text,
				Confidence: alt.Confidence,
			})
		}
		s.emit(speech.Event{Kind: speech.KindResult, Result: res})
	case "error":
		s.emit(speech.Event{Kind: speech.KindError, Category: categoryFor(msg.Error)})
	case "end":
		s.end()
	}
}

// Close ends the active stream, if any. Call it when the WebSocket
// connection goes away.
func (r *Recognizer) Close() {
	r.mu.Lock()
	s := r.active
	r.active = nil
	r.mu.Unlock()

	if s != nil {
		s.end()
	}
}

// categoryFor maps a client recognition error code to a [speech.ErrorCategory].
// The codes follow the Web Speech API SpeechRecognitionErrorEvent values.
func categoryFor(code string) speech.ErrorCategory {
	switch code {
	case "not-allowed", "service-not-allowed":
		return speech.ErrPermission
	case "no-speech":
		return speech.ErrNoSpeech
	case "network":
		return speech.ErrNetwork
	case "language-not-supported":
		return speech.ErrLanguage
	case "aborted":
		return speech.ErrAborted
	default:
		return speech.ErrUnspecified
	}
}

// ---- stream ----

// stream is a live client recognition stream. It implements speech.Stream.
//
// emit and end are serialised by mu: the read loop emits via
// [Recognizer.Deliver] while the consume goroutine can end the stream
// through a concurrent Listen, and a send must never race the close.
type stream struct {
	send   Sender
	events chan speech.Event

	mu     sync.Mutex
	closed bool
}

func (s *stream) Events() <-chan speech.Event { return s.events }

// Stop asks the client to finish recognising and flush a final result.
func (s *stream) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := s.send(ctx, Command{Type: CommandStop}); err != nil {
		return fmt.Errorf("wsjson: send stop command: %w", err)
	}
	return nil
}

// Abort asks the client to discard the stream without a final result.
func (s *stream) Abort() error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := s.send(ctx, Command{Type: CommandAbort}); err != nil {
		return fmt.Errorf("wsjson: send abort command: %w", err)
	}
	return nil
}

// emit delivers ev without blocking the connection read loop. Events beyond
// the buffer are dropped; the stream is per-session and the consumer drains
// it continuously. Events after end are dropped.
func (s *stream) emit(ev speech.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}

// end emits the terminal end event and closes the channel. Idempotent.
func (s *stream) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- speech.Event{Kind: speech.KindEnd}:
	default:
	}
	s.closed = true
	close(s.events)
}
