package compare_test

import (
	"testing"

	"github.com/sherbini/taratil/internal/compare"
)

func TestAlign_AllMatched(t *testing.T) {
	t.Parallel()

	words := []string{"الرب", "راعي", "فلا", "يعوزني", "شيء"}
	a := compare.Align(words, words)

	if len(a.Matches) != 5 || len(a.Missing) != 0 || len(a.Extra) != 0 {
		t.Fatalf("full match: matches=%d missing=%d extra=%d", len(a.Matches), len(a.Missing), len(a.Extra))
	}
	if a.Ratio != 1.0 {
		t.Errorf("Ratio = %f, want 1.0", a.Ratio)
	}
	for i, m := range a.Matches {
		if m.ExpectedIndex != i || m.ActualIndex != i {
			t.Errorf("match %d: indices (%d, %d), want (%d, %d)", i, m.ExpectedIndex, m.ActualIndex, i, i)
		}
	}
}

func TestAlign_TruncatedReading(t *testing.T) {
	t.Parallel()

	expected := []string{"الرب", "راعي", "فلا", "يعوزني", "شيء"}
	actual := []string{"الرب", "راعي"}
	a := compare.Align(expected, actual)

	if len(a.Matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(a.Matches))
	}
	if a.Ratio != 0.4 {
		t.Errorf("Ratio = %f, want 0.4", a.Ratio)
	}
	if len(a.Extra) != 0 {
		t.Errorf("Extra = %v, want empty", a.Extra)
	}

	wantMissing := []compare.MissingWord{
		{Word: "فلا", Index: 2},
		{Word: "يعوزني", Index: 3},
		{Word: "شيء", Index: 4},
	}
	if len(a.Missing) != len(wantMissing) {
		t.Fatalf("Missing = %v, want %v", a.Missing, wantMissing)
	}
	for i, want := range wantMissing {
		if a.Missing[i] != want {
			t.Errorf("Missing[%d] = %v, want %v", i, a.Missing[i], want)
		}
	}
}

func TestAlign_ExtraWords(t *testing.T) {
	t.Parallel()

	expected := []string{"في", "البدء"}
	actual := []string{"في", "هذا", "البدء", "كان"}
	a := compare.Align(expected, actual)

	if len(a.Matches) != 2 || len(a.Missing) != 0 {
		t.Fatalf("matches=%d missing=%d", len(a.Matches), len(a.Missing))
	}
	wantExtra := []compare.ExtraWord{
		{Word: "هذا", Index: 1},
		{Word: "كان", Index: 3},
	}
	if len(a.Extra) != 2 || a.Extra[0] != wantExtra[0] || a.Extra[1] != wantExtra[1] {
		t.Errorf("Extra = %v, want %v", a.Extra, wantExtra)
	}
}

// Duplicate words exercise the non-positional first-occurrence rule: matches
// are recorded against the first occurrence in the recognized sequence, and
// occurrences are not consumed.
func TestAlign_DuplicateWords(t *testing.T) {
	t.Parallel()

	t.Run("duplicate in actual", func(t *testing.T) {
		t.Parallel()

		// "قدوس" spoken twice but expected once: one match, and the second
		// occurrence is not extra because the word does occur in expected.
		expected := []string{"قدوس", "الرب"}
		actual := []string{"قدوس", "قدوس", "الرب"}
		a := compare.Align(expected, actual)

		if len(a.Matches) != 2 || len(a.Missing) != 0 || len(a.Extra) != 0 {
			t.Errorf("matches=%d missing=%d extra=%d, want 2/0/0", len(a.Matches), len(a.Missing), len(a.Extra))
		}
		if a.Matches[0].ActualIndex != 0 {
			t.Errorf("first occurrence: ActualIndex = %d, want 0", a.Matches[0].ActualIndex)
		}
	})

	t.Run("duplicate in expected", func(t *testing.T) {
		t.Parallel()

		// Both expected occurrences match the single spoken one.
		expected := []string{"قدوس", "قدوس", "قدوس"}
		actual := []string{"قدوس"}
		a := compare.Align(expected, actual)

		if len(a.Matches) != 3 || len(a.Missing) != 0 {
			t.Errorf("matches=%d missing=%d, want 3/0", len(a.Matches), len(a.Missing))
		}
		if a.Ratio != 1.0 {
			t.Errorf("Ratio = %f, want 1.0", a.Ratio)
		}
		for _, m := range a.Matches {
			if m.ActualIndex != 0 {
				t.Errorf("ActualIndex = %d, want 0", m.ActualIndex)
			}
		}
	})
}

func TestAlign_EmptyInputs(t *testing.T) {
	t.Parallel()

	a := compare.Align(nil, nil)
	if a.Ratio != 0 {
		t.Errorf("empty expected: Ratio = %f, want 0", a.Ratio)
	}

	a = compare.Align(nil, []string{"كلمه"})
	if a.Ratio != 0 || len(a.Extra) != 1 {
		t.Errorf("empty expected with actual: Ratio=%f extra=%d", a.Ratio, len(a.Extra))
	}
}

// Removing a matched word from actual can never raise the match ratio.
func TestAlign_RatioMonotonic(t *testing.T) {
	t.Parallel()

	expected := []string{"في", "البدء", "خلق", "الله"}
	actual := []string{"في", "البدء", "خلق", "الله"}

	prev := compare.Align(expected, actual).Ratio
	for len(actual) > 0 {
		actual = actual[:len(actual)-1]
		r := compare.Align(expected, actual).Ratio
		if r > prev {
			t.Fatalf("ratio rose from %f to %f after removing a word", prev, r)
		}
		prev = r
	}
}
