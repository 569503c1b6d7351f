package compare

import "github.com/sherbini/taratil/internal/arabic"

// Classification labels how a comparison was decided.
type Classification string

const (
	// ClassExact means the normalized strings were identical and the fuzzy
	// pipeline was skipped.
	ClassExact Classification = "exact"

	// ClassFuzzy means the score was computed from word alignment and
	// character similarity.
	ClassFuzzy Classification = "fuzzy"
)

// Weighting policy for the combined score. Getting most words right matters
// far more than exact character fidelity for reading practice, so word
// matching dominates. These are fixed constants, not configuration.
const (
	wordWeight = 0.7
	charWeight = 0.3
)

// DefaultPassThreshold is the combined score at or above which a reading
// attempt counts as passed, unless overridden via [WithPassThreshold].
const DefaultPassThreshold = 0.8

// Result is the outcome of comparing a recognized utterance against an
// expected verse. It is created per evaluation and immutable once returned.
type Result struct {
	// Score is the combined confidence in [0, 1].
	Score float64

	// Classification is [ClassExact] or [ClassFuzzy].
	Classification Classification

	// Passed reports Score >= the scorer's pass threshold.
	Passed bool

	// Alignment holds the word-level diff.
	Alignment Alignment

	// CharSimilarity is the character-level similarity in [0, 1] over the
	// full normalized strings.
	CharSimilarity float64

	// Hints pairs missing expected words with phonetically similar extra
	// words — likely mispronunciations. May be empty.
	Hints []Hint

	// NormalizedExpected and NormalizedActual are the canonical forms the
	// comparison actually ran on. Useful for display and debugging.
	NormalizedExpected string
	NormalizedActual   string
}

// Option is a functional option for configuring a [Scorer].
type Option func(*Scorer)

// WithPassThreshold sets the minimum combined score counted as a pass.
// Values outside (0, 1] fall back to [DefaultPassThreshold].
func WithPassThreshold(threshold float64) Option {
	return func(s *Scorer) {
		if threshold > 0 && threshold <= 1 {
			s.passThreshold = threshold
		}
	}
}

// WithHints enables or disables mispronunciation hint generation.
// Enabled by default.
func WithHints(enabled bool) Option {
	return func(s *Scorer) {
		s.hints = enabled
	}
}

// Scorer compares raw expected/actual text pairs. It is read-only after
// construction and safe for concurrent use.
type Scorer struct {
	passThreshold float64
	hints         bool
}

// NewScorer returns a [Scorer] with the supplied options applied.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		passThreshold: DefaultPassThreshold,
		hints:         true,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// PassThreshold returns the configured pass threshold.
func (s *Scorer) PassThreshold() float64 { return s.passThreshold }

// Compare normalizes both inputs and scores actualRaw against expectedRaw.
//
// Identical normalized strings short-circuit to score 1.0 with
// [ClassExact] and a trivial full-match alignment. Otherwise the combined
// score is wordWeight×alignment ratio + charWeight×character similarity,
// which stays in [0, 1] because both components do and the weights sum to 1.
func (s *Scorer) Compare(expectedRaw, actualRaw string) Result {
	expected := arabic.Normalize(expectedRaw)
	actual := arabic.Normalize(actualRaw)

	if expected == actual {
		return Result{
			Score:              1.0,
			Classification:     ClassExact,
			Passed:             true,
			Alignment:          fullMatch(arabic.Words(expected)),
			CharSimilarity:     1.0,
			Hints:              []Hint{},
			NormalizedExpected: expected,
			NormalizedActual:   actual,
		}
	}

	alignment := Align(arabic.Words(expected), arabic.Words(actual))
	charSim := Similarity(expected, actual)
	score := wordWeight*alignment.Ratio + charWeight*charSim

	var hints []Hint
	if s.hints {
		hints = SuggestHints(alignment)
	} else {
		hints = []Hint{}
	}

	return Result{
		Score:              score,
		Classification:     ClassFuzzy,
		Passed:             score >= s.passThreshold,
		Alignment:          alignment,
		CharSimilarity:     charSim,
		Hints:              hints,
		NormalizedExpected: expected,
		NormalizedActual:   actual,
	}
}
