// Package session governs the lifecycle of one listening attempt: a small
// state machine (idle → listening → ended, restartable) fed by an injected
// [speech.Recognizer], with silence and max-duration timeouts driven by an
// injected [Clock].
//
// The controller owns all session state; callers interact only through
// Start, Stop, Abort, SetVerse, and the Events channel. Final transcripts
// are scored against the current verse through a [compare.Scorer]; the
// scoring outcome never changes lifecycle state.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sherbini/taratil/internal/compare"
	"github.com/sherbini/taratil/pkg/provider/speech"
)

// ErrSessionActive is returned by [Controller.Start] while a session is
// already listening. Callers must stop or await the current session first.
var ErrSessionActive = errors.New("session: a session is already active")

// ErrNotListening is returned by Stop and Abort when no session is active.
var ErrNotListening = errors.New("session: no active session")

// State is the lifecycle state of a [Controller].
type State string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
	StateEnded     State = "ended"
)

// Defaults for [Config] fields left at their zero value.
const (
	DefaultSilenceTimeout = 3 * time.Second
	DefaultMaxDuration    = 15 * time.Second
	DefaultLanguage       = "ar-SA"
)

// Config holds the tuning knobs for a [Controller].
type Config struct {
	// Languages is the recognition language fallback list, preferred
	// first. When the recognizer rejects a language the controller
	// advances to the next entry before giving up.
	// Default: [DefaultLanguage].
	Languages []string

	// SilenceTimeout is how long after a speech segment ends before the
	// session is closed for silence. Only armed once speech has been
	// heard, and only when AutoStop is set. Default: 3s.
	SilenceTimeout time.Duration

	// MaxDuration is the hard upper bound on a listening session.
	// Default: 15s.
	MaxDuration time.Duration

	// AutoStop arms the silence timer when a speech segment ends.
	AutoStop bool

	// InterimResults requests interim transcripts from the recognizer.
	InterimResults bool
}

func (c *Config) applyDefaults() {
	if len(c.Languages) == 0 {
		c.Languages = []string{DefaultLanguage}
	}
	if c.SilenceTimeout <= 0 {
		c.SilenceTimeout = DefaultSilenceTimeout
	}
	if c.MaxDuration <= 0 {
		c.MaxDuration = DefaultMaxDuration
	}
}

// Controller runs one listening session at a time. All exported methods are
// safe for concurrent use.
type Controller struct {
	recognizer speech.Recognizer
	scorer     *compare.Scorer
	clock      Clock
	cfg        Config
	events     chan Event

	mu         sync.Mutex
	state      State
	gen        int // session generation; stale timer callbacks check it
	ctx        context.Context
	stream     speech.Stream
	langIdx    int
	expected   string
	hasSpeech  bool
	lastSpeech time.Time
	silence    Timer
	maxTimer   Timer
}

// NewController creates a [Controller] in the idle state. recognizer and
// scorer must be non-nil; a nil clock falls back to [RealClock].
func NewController(recognizer speech.Recognizer, scorer *compare.Scorer, clock Clock, cfg Config) *Controller {
	if clock == nil {
		clock = RealClock()
	}
	cfg.applyDefaults()
	return &Controller{
		recognizer: recognizer,
		scorer:     scorer,
		clock:      clock,
		cfg:        cfg,
		events:     make(chan Event, 64),
		state:      StateIdle,
	}
}

// Events returns the channel on which session events are delivered. The
// channel is never closed; it is owned by the controller for its lifetime.
// Slow consumers lose events rather than blocking the session.
func (c *Controller) Events() <-chan Event { return c.events }

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Language returns the active recognition language.
func (c *Controller) Language() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Languages[c.langIdx]
}

// SetVerse sets the expected verse text that final transcripts are scored
// against. May be called at any time; it affects transcripts finalized
// after the call.
func (c *Controller) SetVerse(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expected = text
}

// Start opens a recognition stream and transitions to listening.
//
// Returns [ErrSessionActive] while a session is listening; ended sessions
// are restartable. A permission refusal from the recognizer surfaces as a
// permission-denied error event and leaves the session ended. A language
// rejection advances through the configured fallback list before giving up.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateListening {
		return ErrSessionActive
	}

	c.ctx = ctx
	stream, err := c.listenWithFallback(ctx)
	if err != nil {
		c.state = StateEnded
		cat := categorize(err)
		c.emit(Event{Kind: EventError, Category: cat})
		c.emit(Event{Kind: EventEnded, End: EndError})
		return fmt.Errorf("session: start: %w", err)
	}

	c.gen++
	gen := c.gen
	c.state = StateListening
	c.stream = stream
	c.hasSpeech = false
	c.lastSpeech = c.clock.Now()
	c.maxTimer = c.clock.AfterFunc(c.cfg.MaxDuration, func() {
		c.onTimeout(gen, TimeoutMaxDuration)
	})

	go c.consume(stream, gen)

	lang := c.cfg.Languages[c.langIdx]
	c.emit(Event{Kind: EventStarted, Language: lang})
	slog.Debug("session started", "language", lang, "max_duration", c.cfg.MaxDuration)
	return nil
}

// listenWithFallback opens a stream, advancing through the language
// fallback list on language rejections. Caller holds c.mu.
func (c *Controller) listenWithFallback(ctx context.Context) (speech.Stream, error) {
	for {
		cfg := speech.Config{
			Language:       c.cfg.Languages[c.langIdx],
			InterimResults: c.cfg.InterimResults,
		}
		stream, err := c.recognizer.Listen(ctx, cfg)
		if err == nil {
			return stream, nil
		}
		if !errors.Is(err, speech.ErrLanguageUnsupported) || c.langIdx+1 >= len(c.cfg.Languages) {
			return nil, err
		}
		c.langIdx++
		next := c.cfg.Languages[c.langIdx]
		c.emit(Event{Kind: EventLanguageChanged, Language: next})
		slog.Info("recognition language unsupported, falling back", "language", next)
	}
}

// Stop ends the active session gracefully: timers are cancelled and the
// stream is stopped. Returns [ErrNotListening] when no session is active.
func (c *Controller) Stop() error {
	return c.endByUser(EndStopped)
}

// Abort ends the active session immediately, signalling abnormal
// termination to listeners. Returns [ErrNotListening] when no session is
// active.
func (c *Controller) Abort() error {
	return c.endByUser(EndAborted)
}

func (c *Controller) endByUser(reason EndReason) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateListening {
		return ErrNotListening
	}
	c.cancelTimersLocked()
	c.state = StateEnded

	stream := c.stream
	c.stream = nil
	if stream != nil {
		var err error
		if reason == EndAborted {
			err = stream.Abort()
		} else {
			err = stream.Stop()
		}
		if err != nil {
			slog.Warn("session: stream close error", "reason", reason, "err", err)
		}
	}
	c.emit(Event{Kind: EventEnded, End: reason})
	return nil
}

// onTimeout is the timer callback for both timeout kinds. A timer racing a
// natural end sees a stale generation or a non-listening state and does
// nothing.
func (c *Controller) onTimeout(gen int, reason TimeoutReason) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.state != StateListening {
		return
	}
	c.cancelTimersLocked()
	c.state = StateEnded

	stream := c.stream
	c.stream = nil
	if stream != nil {
		if err := stream.Stop(); err != nil {
			slog.Warn("session: stream stop after timeout", "err", err)
		}
	}
	c.emit(Event{Kind: EventTimeout, Timeout: reason})
	c.emit(Event{Kind: EventEnded, End: EndTimeout})
	slog.Debug("session timed out", "reason", reason)
}

// consume dispatches recognizer events for one stream until it closes.
func (c *Controller) consume(stream speech.Stream, gen int) {
	for ev := range stream.Events() {
		switch ev.Kind {
		case speech.KindSpeechStart:
			c.onSpeechStart(stream, gen)
		case speech.KindSpeechEnd:
			c.onSpeechEnd(stream, gen)
		case speech.KindResult:
			c.onResult(stream, gen, ev.Result)
		case speech.KindError:
			c.onProviderError(stream, gen, ev.Category)
		case speech.KindStart, speech.KindEnd:
			// Stream start is implicit in EventStarted; stream end is
			// handled when the channel closes below.
		}
	}
	c.onStreamClosed(stream, gen)
}

// current reports whether stream still belongs to the live session.
// Caller holds c.mu.
func (c *Controller) currentLocked(stream speech.Stream, gen int) bool {
	return gen == c.gen && c.state == StateListening && c.stream == stream
}

func (c *Controller) onSpeechStart(stream speech.Stream, gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(stream, gen) {
		return
	}
	c.hasSpeech = true
	c.lastSpeech = c.clock.Now()
	if c.silence != nil {
		c.silence.Stop()
		c.silence = nil
	}
}

func (c *Controller) onSpeechEnd(stream speech.Stream, gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(stream, gen) {
		return
	}
	// The silence timer only means something once speech has been heard;
	// before that the max-duration timer is the sole bound.
	if !c.cfg.AutoStop || !c.hasSpeech {
		return
	}
	if c.silence != nil {
		c.silence.Stop()
	}
	c.silence = c.clock.AfterFunc(c.cfg.SilenceTimeout, func() {
		c.onTimeout(gen, TimeoutSilence)
	})
}

func (c *Controller) onResult(stream speech.Stream, gen int, res *speech.Result) {
	if res == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(stream, gen) {
		return
	}

	text := res.Best()
	if !res.Final {
		c.emit(Event{Kind: EventInterim, Transcript: text})
		return
	}

	result := c.scorer.Compare(c.expected, text)
	c.emit(Event{Kind: EventScored, Transcript: text, Result: &result})
	slog.Debug("final transcript scored",
		"score", result.Score,
		"classification", result.Classification,
		"passed", result.Passed,
	)
}

func (c *Controller) onProviderError(stream speech.Stream, gen int, cat speech.ErrorCategory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(stream, gen) {
		return
	}

	// language-unsupported gets one local recovery step per remaining
	// fallback language before it is surfaced as fatal.
	if cat == speech.ErrLanguage && c.langIdx+1 < len(c.cfg.Languages) {
		c.langIdx++
		next := c.cfg.Languages[c.langIdx]
		c.emit(Event{Kind: EventLanguageChanged, Language: next})

		replacement, err := c.recognizer.Listen(c.ctx, speech.Config{
			Language:       next,
			InterimResults: c.cfg.InterimResults,
		})
		if err == nil {
			// Same generation: the session continues, only the stream is
			// swapped. The old stream's remaining events fail the
			// stream-identity check.
			c.stream = replacement
			go c.consume(replacement, gen)
			slog.Info("recognition restarted on fallback language", "language", next)
			return
		}
		cat = categorize(err)
		slog.Warn("fallback language failed", "language", next, "err", err)
	}

	c.cancelTimersLocked()
	c.state = StateEnded
	c.stream = nil
	c.emit(Event{Kind: EventError, Category: cat})
	c.emit(Event{Kind: EventEnded, End: EndError})
}

// onStreamClosed handles the recognizer finishing on its own.
func (c *Controller) onStreamClosed(stream speech.Stream, gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(stream, gen) {
		return
	}
	c.cancelTimersLocked()
	c.state = StateEnded
	c.stream = nil
	c.emit(Event{Kind: EventEnded, End: EndCompleted})
}

// cancelTimersLocked stops both timers. Caller holds c.mu.
func (c *Controller) cancelTimersLocked() {
	if c.silence != nil {
		c.silence.Stop()
		c.silence = nil
	}
	if c.maxTimer != nil {
		c.maxTimer.Stop()
		c.maxTimer = nil
	}
}

// emit delivers ev without blocking; a full consumer buffer drops the event.
func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		slog.Warn("session: event dropped, consumer too slow", "kind", ev.Kind)
	}
}

// categorize maps a Listen error to an event category.
func categorize(err error) speech.ErrorCategory {
	switch {
	case errors.Is(err, speech.ErrPermissionDenied):
		return speech.ErrPermission
	case errors.Is(err, speech.ErrLanguageUnsupported):
		return speech.ErrLanguage
	default:
		return speech.ErrNetwork
	}
}
