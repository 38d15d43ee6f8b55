package retrieval

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed snippet store implementing ContextProvider.
// Ranking happens in process; the database only persists the corpus.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and initializes) a snippet store at path. Use ":memory:"
// for an ephemeral store.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening snippet store: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snippets (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			source  TEXT NOT NULL,
			content TEXT NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing snippet store: %w", err)
	}
	return &Store{db: db}, nil
}

// Add inserts one snippet.
func (s *Store) Add(ctx context.Context, source, content string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO snippets (source, content) VALUES (?, ?)`, source, content)
	if err != nil {
		return fmt.Errorf("adding snippet from %s: %w", source, err)
	}
	return nil
}

// Retrieve returns up to k snippets ranked by term overlap with the query.
func (s *Store) Retrieve(ctx context.Context, query string, k int) ([]Snippet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source, content FROM snippets`)
	if err != nil {
		return nil, fmt.Errorf("querying snippets: %w", err)
	}
	defer rows.Close()

	var scored []Snippet
	for rows.Next() {
		var sn Snippet
		if err := rows.Scan(&sn.Source, &sn.Content); err != nil {
			return nil, fmt.Errorf("scanning snippet: %w", err)
		}
		sn.Score = overlapScore(query, sn.Content)
		if sn.Score > 0 {
			scored = append(scored, sn)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Count returns the number of stored snippets.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snippets`).Scan(&n)
	return n, err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
