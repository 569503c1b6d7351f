package session

import (
	"github.com/sherbini/taratil/internal/compare"
	"github.com/sherbini/taratil/pkg/provider/speech"
)

// EventKind discriminates the variants carried by [Event].
type EventKind string

const (
	// EventStarted signals the session entered the listening state.
	EventStarted EventKind = "started"

	// EventEnded signals the session left the listening state. End carries
	// the reason.
	EventEnded EventKind = "ended"

	// EventTimeout signals a silence or max-duration timeout fired. It is
	// always followed by an [EventEnded] with [EndTimeout].
	EventTimeout EventKind = "timeout"

	// EventError carries a categorized recognition error.
	EventError EventKind = "error"

	// EventLanguageChanged signals an automatic advance to the next
	// fallback recognition language.
	EventLanguageChanged EventKind = "language_changed"

	// EventInterim carries an unscored interim transcript, suitable for
	// live display only.
	EventInterim EventKind = "interim"

	// EventScored carries the comparison result for a final transcript.
	EventScored EventKind = "scored"
)

// TimeoutReason says which timer ended the session.
type TimeoutReason string

const (
	TimeoutSilence     TimeoutReason = "silence"
	TimeoutMaxDuration TimeoutReason = "max_duration"
)

// EndReason says why a session ended.
type EndReason string

const (
	// EndStopped is a user-initiated stop.
	EndStopped EndReason = "stopped"

	// EndAborted is a user-initiated abort.
	EndAborted EndReason = "aborted"

	// EndTimeout means a silence or max-duration timer fired.
	EndTimeout EndReason = "timeout"

	// EndError means the recognizer reported a fatal error.
	EndError EndReason = "error"

	// EndCompleted means the recognizer finished on its own.
	EndCompleted EndReason = "completed"
)

// Event is a single session occurrence delivered to consumers. Exactly the
// fields relevant to Kind are populated.
type Event struct {
	Kind EventKind

	// Language is the active recognition language. Set on [EventStarted]
	// and [EventLanguageChanged].
	Language string

	// End is set on [EventEnded].
	End EndReason

	// Timeout is set on [EventTimeout].
	Timeout TimeoutReason

	// Category is set on [EventError].
	Category speech.ErrorCategory

	// Transcript is the raw recognized text. Set on [EventInterim] and
	// [EventScored].
	Transcript string

	// Result is the comparison outcome. Set on [EventScored].
	Result *compare.Result
}
