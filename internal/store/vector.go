package store

import (
	"context"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/pbaille/notable/internal/domain"
)

// TaggedNote is the slice of a note the normalization engine works on:
// identity, display title and the tag names attached, in link order.
type TaggedNote struct {
	ID    int64
	Title string
	Tags  []string
}

// Pair is one similarity edge candidate: an unordered note pair (A < B)
// with the cosine distance between their embeddings.
type Pair struct {
	A        int64
	B        int64
	Distance float64
}

// SearchSimilar runs an exact nearest-neighbor scan over all stored
// embeddings, optionally restricted to notes carrying tagFilter. Results are
// ordered by ascending cosine distance.
func (s *Store) SearchSimilar(ctx context.Context, query []float32, limit int, tagFilter string) ([]domain.SearchResult, error) {
	if err := s.checkDims(query); err != nil {
		return nil, err
	}

	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, fmt.Errorf("serialize query: %w", err)
	}

	q := `
		SELECT n.note_id, n.title, n.content, n.created_at,
		       vec_distance_cosine(v.embedding, ?) AS distance
		FROM notes n
		JOIN note_vec v ON v.note_id = n.note_id
	`
	args := []any{blob}

	if tagFilter != "" {
		q += `
		WHERE n.note_id IN (
			SELECT nt.note_id FROM note_tags nt
			JOIN tags t ON t.tag_id = nt.tag_id
			WHERE t.name = ?
		)`
		args = append(args, tagFilter)
	}

	q += " ORDER BY distance LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search notes: %w", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var r domain.SearchResult
		if err := rows.Scan(&r.Note.ID, &r.Note.Title, &r.Note.Content, &r.Note.CreatedAt, &r.Distance); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range results {
		tags, err := s.noteTagNames(ctx, results[i].Note.ID)
		if err != nil {
			return nil, err
		}
		results[i].Note.Tags = tags
	}

	return results, nil
}

// TaggedNotes returns every note that carries at least one tag, ordered by
// note id. Untagged notes never reach the normalization pipeline.
func (s *Store) TaggedNotes(ctx context.Context) ([]TaggedNote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT note_id, title FROM notes
		WHERE EXISTS (SELECT 1 FROM note_tags nt WHERE nt.note_id = notes.note_id)
		ORDER BY note_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list tagged notes: %w", err)
	}
	defer rows.Close()

	var notes []TaggedNote
	for rows.Next() {
		var n TaggedNote
		if err := rows.Scan(&n.ID, &n.Title); err != nil {
			return nil, fmt.Errorf("scan tagged note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range notes {
		tags, err := s.noteTagNames(ctx, notes[i].ID)
		if err != nil {
			return nil, err
		}
		notes[i].Tags = tags
	}

	return notes, nil
}

// SimilarPairs computes the all-pairs cosine distances between tagged notes
// and returns the pairs at or below maxDistance, one row per unordered pair
// (A < B), ordered by (A, B). The scan is exact and quadratic in the number
// of tagged notes.
func (s *Store) SimilarPairs(ctx context.Context, maxDistance float64) ([]Pair, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.note_id, b.note_id,
		       vec_distance_cosine(a.embedding, b.embedding) AS distance
		FROM note_vec a, note_vec b
		WHERE a.note_id < b.note_id
		  AND a.note_id IN (SELECT DISTINCT note_id FROM note_tags)
		  AND b.note_id IN (SELECT DISTINCT note_id FROM note_tags)
		  AND vec_distance_cosine(a.embedding, b.embedding) <= ?
		ORDER BY a.note_id, b.note_id
	`, maxDistance)
	if err != nil {
		return nil, fmt.Errorf("similar pairs: %w", err)
	}
	defer rows.Close()

	var pairs []Pair
	for rows.Next() {
		var p Pair
		if err := rows.Scan(&p.A, &p.B, &p.Distance); err != nil {
			return nil, fmt.Errorf("scan pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}
