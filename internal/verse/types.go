// Package verse provides the verse catalogue used for reading practice.
//
// Verses are loaded before practice starts, either from a YAML verse pack
// ([LoadPackFile], [LoadPackFromReader]) or from PostgreSQL
// ([PostgresStore]). The text stored here is the fully-pointed Arabic
// text shown to the reader; scoring normalises it separately.
//
// All store operations are safe for concurrent use.
package verse

import "fmt"

// Reference identifies a verse by book name, chapter and verse number.
type Reference struct {
	// Book is the book's display name (e.g. "تكوين").
	Book string `yaml:"book" json:"book"`

	// Chapter is the 1-based chapter number.
	Chapter int `yaml:"chapter" json:"chapter"`

	// Verse is the 1-based verse number within the chapter.
	Verse int `yaml:"verse" json:"verse"`
}

// String formats the reference in the conventional "Book Chapter:Verse" form.
func (r Reference) String() string {
	return fmt.Sprintf("%s %d:%d", r.Book, r.Chapter, r.Verse)
}

// Verse is a single practice verse.
type Verse struct {
	// ID is a unique identifier. Auto-generated from the reference if
	// empty during import.
	ID string `yaml:"id" json:"id"`

	Reference Reference `yaml:",inline" json:"reference"`

	// Text is the verse text with full diacritics, as displayed to the
	// reader.
	Text string `yaml:"text" json:"text"`

	// Translation is an optional translation shown alongside the Arabic.
	Translation string `yaml:"translation,omitempty" json:"translation,omitempty"`
}

// DefaultID derives a stable identifier from the verse reference,
// e.g. "تكوين-1-1".
func (v Verse) DefaultID() string {
	return fmt.Sprintf("%s-%d-%d", v.Reference.Book, v.Reference.Chapter, v.Reference.Verse)
}

// Validate reports whether the verse is usable for practice.
func (v Verse) Validate() error {
	if v.Reference.Book == "" {
		return fmt.Errorf("verse: book must not be empty")
	}
	if v.Reference.Chapter < 1 {
		return fmt.Errorf("verse: chapter must be >= 1, got %d", v.Reference.Chapter)
	}
	if v.Reference.Verse < 1 {
		return fmt.Errorf("verse: verse number must be >= 1, got %d", v.Reference.Verse)
	}
	if v.Text == "" {
		return fmt.Errorf("verse: text must not be empty")
	}
	return nil
}
