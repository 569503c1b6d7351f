// Package arabic canonicalizes Arabic text for pronunciation comparison.
//
// Recognized speech and reference verses differ in surface form far more
// often than in substance: diacritics (tashkeel) are present in printed
// verses but never emitted by recognizers, and hamza-bearing letter variants
// are spelled inconsistently. Normalize collapses these variations so that
// downstream comparison only sees meaningful differences.
//
// Transformations are applied in a fixed order:
//
//  1. Strip tashkeel and Quranic annotation marks (U+064B–U+065F, U+0670,
//     U+06D6–U+06ED) and the tatweel filler (U+0640).
//  2. Collapse alef variants (أ, إ, آ) to bare alef (ا).
//  3. Collapse teh-marbuta (ة) to heh (ه).
//  4. Collapse alef-maksura (ى) and hamza-on-yeh (ئ) to yeh (ي).
//  5. Collapse whitespace runs to single spaces and trim.
//  6. Case-fold (affects only non-Arabic characters).
//
// Normalize is a pure function over the string domain: it never fails, and
// empty input yields the empty string. All functions are safe for concurrent
// use by multiple goroutines.
package arabic

import "strings"

// Normalize returns the canonical form of text. The result is idempotent:
// Normalize(Normalize(s)) == Normalize(s) for all s.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))

	for _, r := range text {
		if isTashkeel(r) {
			continue
		}
		b.WriteRune(foldLetter(r))
	}

	// Whitespace collapse and trim in one pass, then case-fold what remains.
	collapsed := strings.Join(strings.Fields(b.String()), " ")
	return strings.ToLower(collapsed)
}

// Words splits a normalized string into its word tokens. Empty input yields
// no tokens rather than a single empty token.
func Words(normalized string) []string {
	return strings.Fields(normalized)
}

// isTashkeel reports whether r is an Arabic diacritic, a Quranic annotation
// mark, or the tatweel filler — all removed during normalization.
func isTashkeel(r rune) bool {
	switch {
	case r >= 0x064B && r <= 0x065F: // fathatan … wavy hamza below
		return true
	case r == 0x0670: // superscript alef (dagger alef)
		return true
	case r >= 0x06D6 && r <= 0x06ED: // Quranic annotation signs
		return true
	case r == 0x0640: // tatweel
		return true
	}
	return false
}

// foldLetter maps hamza-bearing and presentation letter variants to their
// canonical base letter. Step order in the package doc is preserved because
// the mappings are disjoint on input code points.
func foldLetter(r rune) rune {
	switch r {
	case 'أ', 'إ', 'آ': // alef with hamza above / below, alef with madda
		return 'ا'
	case 'ة': // teh-marbuta
		return 'ه'
	case 'ى', 'ئ': // alef-maksura, yeh with hamza
		return 'ي'
	}
	return r
}
