package httpapi

import "github.com/sherbini/taratil/internal/compare"

// resultDTO is the JSON shape of a comparison result.
type resultDTO struct {
	Score              float64        `json:"score"`
	Classification     string         `json:"classification"`
	Passed             bool           `json:"passed"`
	CharSimilarity     float64        `json:"char_similarity"`
	NormalizedExpected string         `json:"normalized_expected"`
	NormalizedActual   string         `json:"normalized_actual"`
	Alignment          alignmentDTO   `json:"alignment"`
	Hints              []hintDTO      `json:"hints,omitempty"`
}

type alignmentDTO struct {
	Matches       []wordMatchDTO  `json:"matches"`
	Missing       []indexedWordDTO `json:"missing"`
	Extra         []indexedWordDTO `json:"extra"`
	ExpectedCount int             `json:"expected_count"`
	ActualCount   int             `json:"actual_count"`
	Ratio         float64         `json:"ratio"`
}

type wordMatchDTO struct {
	Word          string `json:"word"`
	ExpectedIndex int    `json:"expected_index"`
	ActualIndex   int    `json:"actual_index"`
}

type indexedWordDTO struct {
	Word  string `json:"word"`
	Index int    `json:"index"`
}

type hintDTO struct {
	Expected   string  `json:"expected"`
	Heard      string  `json:"heard"`
	Similarity float64 `json:"similarity"`
}

// toResultDTO converts a comparison result to its wire shape.
func toResultDTO(res compare.Result) *resultDTO {
	dto := &resultDTO{
		Score:              res.Score,
		Classification:     string(res.Classification),
		Passed:             res.Passed,
		CharSimilarity:     res.CharSimilarity,
		NormalizedExpected: res.NormalizedExpected,
		NormalizedActual:   res.NormalizedActual,
		Alignment: alignmentDTO{
			Matches:       []wordMatchDTO{},
			Missing:       []indexedWordDTO{},
			Extra:         []indexedWordDTO{},
			ExpectedCount: res.Alignment.ExpectedCount,
			ActualCount:   res.Alignment.ActualCount,
			Ratio:         res.Alignment.Ratio,
		},
	}
	for _, m := range res.Alignment.Matches {
		dto.Alignment.Matches = append(dto.Alignment.Matches, wordMatchDTO{
			Word:          m.Word,
			ExpectedIndex: m.ExpectedIndex,
			ActualIndex:   m.ActualIndex,
		})
	}
	for _, m := range res.Alignment.Missing {
		dto.Alignment.Missing = append(dto.Alignment.Missing, indexedWordDTO{Word: m.Word, Index: m.Index})
	}
	for _, e := range res.Alignment.Extra {
		dto.Alignment.Extra = append(dto.Alignment.Extra, indexedWordDTO{Word: e.Word, Index: e.Index})
	}
	for _, h := range res.Hints {
		dto.Hints = append(dto.Hints, hintDTO{Expected: h.Expected, Heard: h.Heard, Similarity: h.Similarity})
	}
	return dto
}
