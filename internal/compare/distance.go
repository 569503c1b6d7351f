// Package compare scores a recognized utterance against an expected verse.
//
// The pipeline has three layers, composed by [Scorer.Compare]:
//
//   - character-level Levenshtein similarity over the full normalized strings
//     (distance.go),
//   - word-level alignment classifying each word as matched, missing, or
//     extra (align.go),
//   - a weighted combination of the two into a single confidence score
//     (scorer.go), optionally annotated with mispronunciation hints
//     (hints.go).
//
// All functions are pure and total over the string domain; malformed or
// empty input degrades the score but never produces an error.
package compare

import (
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// EditDistance returns the Levenshtein distance between a and b: the minimum
// number of single-rune insertions, deletions, and substitutions (unit cost
// each) transforming one string into the other. It is symmetric.
func EditDistance(a, b string) int {
	return matchr.Levenshtein(a, b)
}

// Similarity converts the edit distance between a and b into a bounded score
// in [0, 1]: 1 - distance/max(len(a), len(b)), measured in runes. Two empty
// strings are defined as identical (similarity 1).
func Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(EditDistance(a, b))/float64(longest)
}
