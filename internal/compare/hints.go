package compare

import "github.com/antzucaro/matchr"

// hintThreshold is the minimum Jaro-Winkler similarity between a missing
// expected word and an extra recognized word for the pair to be reported as
// a likely mispronunciation. Below this the words are treated as unrelated.
const hintThreshold = 0.75

// Hint pairs a missing expected word with the extra recognized word most
// similar to it — usually the reader's mispronunciation of that word.
type Hint struct {
	// Expected is the missing verse word.
	Expected string

	// Heard is the extra recognized word it most resembles.
	Heard string

	// Similarity is the Jaro-Winkler score between the two, in
	// [hintThreshold, 1).
	Similarity float64
}

// SuggestHints pairs each missing word in a with its closest extra word by
// Jaro-Winkler similarity. Each extra word is used at most once, assigned
// greedily in missing-word order. Returns an empty slice when either list
// is empty or nothing clears the threshold.
func SuggestHints(a Alignment) []Hint {
	hints := []Hint{}
	if len(a.Missing) == 0 || len(a.Extra) == 0 {
		return hints
	}

	used := make(map[int]bool, len(a.Extra))
	for _, m := range a.Missing {
		bestIdx := -1
		bestScore := 0.0
		for i, e := range a.Extra {
			if used[i] {
				continue
			}
			if s := matchr.JaroWinkler(m.Word, e.Word, false); s > bestScore {
				bestIdx, bestScore = i, s
			}
		}
		if bestIdx >= 0 && bestScore >= hintThreshold {
			used[bestIdx] = true
			hints = append(hints, Hint{
				Expected:   m.Word,
				Heard:      a.Extra[bestIdx].Word,
				Similarity: bestScore,
			})
		}
	}
	return hints
}
