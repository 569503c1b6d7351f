package verse

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// PackFile is the top-level structure of a verse pack YAML file.
//
// Example:
//
//	pack:
//	  name: "مزامير مختارة"
//	  language: ar
//	verses:
//	  - book: "مزمور"
//	    chapter: 23
//	    verse: 1
//	    text: "الرَّبُّ رَاعِيَّ فَلاَ يُعْوِزُنِي شَيْءٌ."
type PackFile struct {
	Pack   PackMeta `yaml:"pack"`
	Verses []Verse  `yaml:"verses"`
}

// PackMeta holds top-level metadata for a verse pack.
type PackMeta struct {
	// Name is the pack's display name.
	Name string `yaml:"name"`

	// Description is a free-text summary of the pack.
	Description string `yaml:"description"`

	// Language is the BCP 47 language tag of the verse text (e.g. "ar").
	Language string `yaml:"language"`
}

// LoadPackFile reads and parses a verse pack YAML file from disk.
// Returns a descriptive error if the file cannot be opened or parsed.
func LoadPackFile(path string) (*PackFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("verse: open pack file %q: %w", path, err)
	}
	defer f.Close()

	pf, err := LoadPackFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("verse: parse pack file %q: %w", path, err)
	}
	return pf, nil
}

// LoadPackFromReader parses verse pack YAML from an [io.Reader].
// The reader is consumed entirely; the caller is responsible for closing it.
func LoadPackFromReader(r io.Reader) (*PackFile, error) {
	var pf PackFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(&pf); err != nil {
		return nil, fmt.Errorf("verse: decode pack yaml: %w", err)
	}
	return &pf, nil
}

// ImportPack imports all verses from a parsed [PackFile] into store.
// Returns the number of verses successfully imported.
// An error from the store aborts the import and returns the count so far.
func ImportPack(ctx context.Context, store Store, pack *PackFile) (int, error) {
	if pack == nil {
		return 0, fmt.Errorf("verse: pack must not be nil")
	}
	n, err := store.BulkImport(ctx, pack.Verses)
	if err != nil {
		return n, fmt.Errorf("verse: import pack %q: %w", pack.Pack.Name, err)
	}
	return n, nil
}
