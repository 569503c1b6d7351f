package verse

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the requested verse does not exist.
var ErrNotFound = errors.New("verse not found")

// ErrDuplicateID is returned by Add when a verse with the same ID already exists.
var ErrDuplicateID = errors.New("verse with that ID already exists")

// ListOptions filters List results. The zero value matches all verses.
type ListOptions struct {
	// Book restricts results to a single book when non-empty.
	Book string

	// Chapter restricts results to a single chapter when > 0.
	// Only effective together with Book.
	Chapter int
}

// Store manages the verse catalogue.
//
// All implementations must be safe for concurrent use.
type Store interface {
	// Add creates a new verse. Returns the verse with a generated ID if
	// the provided verse's ID is empty.
	// Returns [ErrDuplicateID] if a verse with the same ID exists.
	Add(ctx context.Context, v Verse) (Verse, error)

	// Get retrieves a verse by ID.
	// Returns [ErrNotFound] when no verse with that ID exists.
	Get(ctx context.Context, id string) (Verse, error)

	// List returns verses matching opts, ordered by book import order,
	// then chapter, then verse number.
	List(ctx context.Context, opts ListOptions) ([]Verse, error)

	// Books returns the distinct book names in the catalogue, in import
	// order.
	Books(ctx context.Context) ([]string, error)

	// BulkImport adds multiple verses in a single operation. Returns the
	// number of verses successfully imported. An error aborts the import
	// and returns the count so far.
	BulkImport(ctx context.Context, verses []Verse) (int, error)
}
