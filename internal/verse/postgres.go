package verse

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the verses table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS verses (
    id          TEXT PRIMARY KEY,
    book        TEXT NOT NULL,
    book_order  INT NOT NULL DEFAULT 0,
    chapter     INT NOT NULL,
    verse       INT NOT NULL,
    text        TEXT NOT NULL,
    translation TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (book, chapter, verse)
);
CREATE INDEX IF NOT EXISTS idx_verses_book ON verses(book);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] that uses the given database
// connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the
// verses table and index if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	if err != nil {
		return fmt.Errorf("verse: migrate: %w", err)
	}
	return nil
}

// Add implements [Store.Add].
func (s *PostgresStore) Add(ctx context.Context, v Verse) (Verse, error) {
	if v.ID == "" {
		v.ID = v.DefaultID()
	}
	if err := v.Validate(); err != nil {
		return Verse{}, err
	}

	const query = `
		INSERT INTO verses (id, book, book_order, chapter, verse, text, translation)
		VALUES ($1, $2,
		        COALESCE((SELECT book_order FROM verses WHERE book = $2 LIMIT 1),
		                 (SELECT COALESCE(MAX(book_order), -1) + 1 FROM verses)),
		        $3, $4, $5, $6)`

	_, err := s.db.Exec(ctx, query,
		v.ID, v.Reference.Book, v.Reference.Chapter, v.Reference.Verse,
		v.Text, v.Translation,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return Verse{}, fmt.Errorf("verse: add %q: %w", v.ID, ErrDuplicateID)
		}
		return Verse{}, fmt.Errorf("verse: add %q: %w", v.ID, err)
	}
	return v, nil
}

// Get implements [Store.Get].
func (s *PostgresStore) Get(ctx context.Context, id string) (Verse, error) {
	const query = `
		SELECT id, book, chapter, verse, text, translation
		FROM verses
		WHERE id = $1`

	var v Verse
	err := s.db.QueryRow(ctx, query, id).Scan(
		&v.ID, &v.Reference.Book, &v.Reference.Chapter, &v.Reference.Verse,
		&v.Text, &v.Translation,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Verse{}, fmt.Errorf("verse: get %q: %w", id, ErrNotFound)
		}
		return Verse{}, fmt.Errorf("verse: get %q: %w", id, err)
	}
	return v, nil
}

// List implements [Store.List].
func (s *PostgresStore) List(ctx context.Context, opts ListOptions) ([]Verse, error) {
	query := `
		SELECT id, book, chapter, verse, text, translation
		FROM verses`
	var args []any
	switch {
	case opts.Book != "" && opts.Chapter > 0:
		query += ` WHERE book = $1 AND chapter = $2`
		args = append(args, opts.Book, opts.Chapter)
	case opts.Book != "":
		query += ` WHERE book = $1`
		args = append(args, opts.Book)
	}
	query += ` ORDER BY book_order, chapter, verse`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("verse: list: %w", err)
	}
	defer rows.Close()

	var result []Verse
	for rows.Next() {
		var v Verse
		if err := rows.Scan(
			&v.ID, &v.Reference.Book, &v.Reference.Chapter, &v.Reference.Verse,
			&v.Text, &v.Translation,
		); err != nil {
			return nil, fmt.Errorf("verse: list scan: %w", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("verse: list rows: %w", err)
	}
	return result, nil
}

// Books implements [Store.Books].
func (s *PostgresStore) Books(ctx context.Context) ([]string, error) {
	const query = `
		SELECT DISTINCT book, book_order
		FROM verses
		ORDER BY book_order`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("verse: books: %w", err)
	}
	defer rows.Close()

	var books []string
	for rows.Next() {
		var book string
		var order int
		if err := rows.Scan(&book, &order); err != nil {
			return nil, fmt.Errorf("verse: books scan: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("verse: books rows: %w", err)
	}
	return books, nil
}

// BulkImport implements [Store.BulkImport].
func (s *PostgresStore) BulkImport(ctx context.Context, verses []Verse) (int, error) {
	count := 0
	for _, v := range verses {
		if _, err := s.Add(ctx, v); err != nil {
			return count, fmt.Errorf("verse: bulk import at index %d: %w", count, err)
		}
		count++
	}
	return count, nil
}

// isDuplicateKeyError reports whether err is a PostgreSQL unique violation
// (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
