package compare

// WordMatch records an expected word found somewhere in the recognized
// sequence.
type WordMatch struct {
	// Word is the normalized word that matched.
	Word string

	// ExpectedIndex is the word's position in the expected sequence.
	ExpectedIndex int

	// ActualIndex is the position of the first occurrence found in the
	// recognized sequence.
	ActualIndex int
}

// MissingWord records an expected word absent from the recognized sequence.
type MissingWord struct {
	Word  string
	Index int
}

// ExtraWord records a recognized word absent from the expected sequence.
type ExtraWord struct {
	Word  string
	Index int
}

// Alignment is the word-level diff between an expected and a recognized word
// sequence. It is created fresh per comparison and never mutated afterwards.
type Alignment struct {
	Matches []WordMatch
	Missing []MissingWord
	Extra   []ExtraWord

	// ExpectedCount and ActualCount are the input sequence lengths.
	ExpectedCount int
	ActualCount   int

	// Ratio is len(Matches) / ExpectedCount, or 0 when no words were
	// expected.
	Ratio float64
}

// Align classifies each expected word as matched or missing and each
// recognized word as extra.
//
// Matching is deliberately simple: an expected word matches if it occurs
// anywhere in the recognized sequence, recorded against its first
// occurrence. Occurrences are not consumed, so a word spoken once can
// satisfy several identical expected words. Stricter positional alignment
// was considered and rejected: the scoring thresholds downstream were tuned
// against this behaviour, and verse text rarely repeats words close enough
// for the difference to matter.
func Align(expected, actual []string) Alignment {
	a := Alignment{
		Matches:       []WordMatch{},
		Missing:       []MissingWord{},
		Extra:         []ExtraWord{},
		ExpectedCount: len(expected),
		ActualCount:   len(actual),
	}

	actualIndex := make(map[string]int, len(actual))
	for i := len(actual) - 1; i >= 0; i-- {
		actualIndex[actual[i]] = i // first occurrence wins
	}
	expectedSet := make(map[string]struct{}, len(expected))
	for _, w := range expected {
		expectedSet[w] = struct{}{}
	}

	for i, w := range expected {
		if j, ok := actualIndex[w]; ok {
			a.Matches = append(a.Matches, WordMatch{Word: w, ExpectedIndex: i, ActualIndex: j})
		} else {
			a.Missing = append(a.Missing, MissingWord{Word: w, Index: i})
		}
	}

	for i, w := range actual {
		if _, ok := expectedSet[w]; !ok {
			a.Extra = append(a.Extra, ExtraWord{Word: w, Index: i})
		}
	}

	if len(expected) > 0 {
		a.Ratio = float64(len(a.Matches)) / float64(len(expected))
	}
	return a
}

// fullMatch builds the trivial Alignment for an exact post-normalization
// match, where every word matches at its own position.
func fullMatch(words []string) Alignment {
	a := Alignment{
		Matches:       make([]WordMatch, 0, len(words)),
		Missing:       []MissingWord{},
		Extra:         []ExtraWord{},
		ExpectedCount: len(words),
		ActualCount:   len(words),
	}
	for i, w := range words {
		a.Matches = append(a.Matches, WordMatch{Word: w, ExpectedIndex: i, ActualIndex: i})
	}
	if len(words) > 0 {
		a.Ratio = 1.0
	}
	return a
}
