package speech

// EventKind discriminates the variants carried by [Event].
type EventKind string

const (
	// KindStart signals that the recognizer began capturing audio.
	KindStart EventKind = "start"

	// KindSpeechStart signals that speech was detected in the audio.
	KindSpeechStart EventKind = "speechstart"

	// KindSpeechEnd signals that a speech segment ended (the speaker
	// paused). More speech may still follow on the same stream.
	KindSpeechEnd EventKind = "speechend"

	// KindResult carries a recognition result, interim or final.
	KindResult EventKind = "result"

	// KindError carries a categorized recognition error.
	KindError EventKind = "error"

	// KindEnd signals that the stream is finished. It is always the last
	// event before the channel closes.
	KindEnd EventKind = "end"
)

// ErrorCategory classifies recognition errors across backends.
type ErrorCategory string

const (
	ErrPermission  ErrorCategory = "permission-denied"
	ErrNoSpeech    ErrorCategory = "no-speech-detected"
	ErrNetwork     ErrorCategory = "network-failure"
	ErrLanguage    ErrorCategory = "language-unsupported"
	ErrAborted     ErrorCategory = "session-aborted"
	ErrUnspecified ErrorCategory = "unspecified"
)

// Alternative is one recognition hypothesis for an utterance.
type Alternative struct {
	// Text is the recognized text.
	Text string

	// Confidence is the recognizer's confidence in [0, 1], or 0 when the
	// backend does not report one.
	Confidence float64
}

// Result is the payload of a [KindResult] event.
type Result struct {
	// Final reports whether the recognizer has committed to this result.
	// Interim results may be revised by later events.
	Final bool

	// Alternatives holds the hypotheses, best first. Never empty on a
	// well-formed event.
	Alternatives []Alternative
}

// Best returns the top hypothesis text, or the empty string when the result
// carries no alternatives.
func (r Result) Best() string {
	if len(r.Alternatives) == 0 {
		return ""
	}
	return r.Alternatives[0].Text
}

// Event is a single occurrence on a recognition [Stream]. Exactly the
// fields relevant to Kind are populated.
type Event struct {
	Kind EventKind

	// Result is set for [KindResult] events.
	Result *Result

	// Category is set for [KindError] events.
	Category ErrorCategory
}
