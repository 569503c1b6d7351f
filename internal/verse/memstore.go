package verse

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store].
// It is the default catalogue backend and is also used in tests.
// The zero value is ready to use.
type MemStore struct {
	mu     sync.RWMutex
	verses map[string]Verse
	order  []string // IDs in insertion order, the basis for book ordering
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		verses: make(map[string]Verse),
	}
}

// Add implements [Store.Add].
func (s *MemStore) Add(ctx context.Context, v Verse) (Verse, error) {
	if v.ID == "" {
		v.ID = v.DefaultID()
	}
	if err := v.Validate(); err != nil {
		return Verse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.verses == nil {
		s.verses = make(map[string]Verse)
	}

	if _, exists := s.verses[v.ID]; exists {
		return Verse{}, fmt.Errorf("verse: add %q: %w", v.ID, ErrDuplicateID)
	}

	s.verses[v.ID] = v
	s.order = append(s.order, v.ID)
	return v, nil
}

// Get implements [Store.Get].
func (s *MemStore) Get(ctx context.Context, id string) (Verse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.verses[id]
	if !ok {
		return Verse{}, fmt.Errorf("verse: get %q: %w", id, ErrNotFound)
	}
	return v, nil
}

// List implements [Store.List].
func (s *MemStore) List(ctx context.Context, opts ListOptions) ([]Verse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bookOrder := make(map[string]int)
	var result []Verse
	for _, id := range s.order {
		v := s.verses[id]
		if _, seen := bookOrder[v.Reference.Book]; !seen {
			bookOrder[v.Reference.Book] = len(bookOrder)
		}
		if opts.Book != "" && v.Reference.Book != opts.Book {
			continue
		}
		if opts.Book != "" && opts.Chapter > 0 && v.Reference.Chapter != opts.Chapter {
			continue
		}
		result = append(result, v)
	}

	sort.SliceStable(result, func(i, j int) bool {
		ri, rj := result[i].Reference, result[j].Reference
		if ri.Book != rj.Book {
			return bookOrder[ri.Book] < bookOrder[rj.Book]
		}
		if ri.Chapter != rj.Chapter {
			return ri.Chapter < rj.Chapter
		}
		return ri.Verse < rj.Verse
	})
	return result, nil
}

// Books implements [Store.Books].
func (s *MemStore) Books(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var books []string
	for _, id := range s.order {
		book := s.verses[id].Reference.Book
		if !seen[book] {
			seen[book] = true
			books = append(books, book)
		}
	}
	return books, nil
}

// BulkImport implements [Store.BulkImport].
func (s *MemStore) BulkImport(ctx context.Context, verses []Verse) (int, error) {
	count := 0
	for _, v := range verses {
		if _, err := s.Add(ctx, v); err != nil {
			return count, fmt.Errorf("verse: bulk import at index %d: %w", count, err)
		}
		count++
	}
	return count, nil
}
