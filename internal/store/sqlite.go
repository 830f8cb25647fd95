// Package store persists notes, tags and embeddings in a single SQLite
// database. Embeddings live in a sqlite-vec vec0 virtual table keyed by
// note id and are written in the same transaction as the note itself.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pbaille/notable/internal/domain"
	"github.com/pbaille/notable/internal/errs"
)

//go:embed schema.sql
var schema string

func init() {
	sqlite_vec.Auto()
}

// Store handles database operations. It is safe for the read paths to run
// concurrently; tag mutations go through TagTx.
type Store struct {
	db   *sql.DB
	dims int
}

// New opens (or creates) the database at dbPath and initialises the schema,
// including the vec0 embedding table sized to dims.
func New(dbPath string, dims int) (*Store, error) {
	if dims <= 0 {
		return nil, errs.Errorf(errs.CodeStoreInvalidInput, "embedding dimensions must be positive, got %d", dims)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	vecDDL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS note_vec USING vec0(note_id INTEGER PRIMARY KEY, embedding float[%d])`,
		dims,
	)
	if _, err := db.Exec(vecDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init vector table: %w", err)
	}

	return &Store{db: db, dims: dims}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dimensions returns the embedding width the store was opened with.
func (s *Store) Dimensions() int {
	return s.dims
}

func (s *Store) checkDims(embedding []float32) error {
	if len(embedding) != s.dims {
		return errs.Errorf(errs.CodeEmbedDimsInvalid,
			"embedding must be exactly %d dimensions, got %d", s.dims, len(embedding))
	}
	return nil
}

// AddNote creates a note with its embedding and tags in a single transaction.
// The embedding is validated against the store's dimensionality before any
// write happens.
func (s *Store) AddNote(ctx context.Context, title, content string, embedding []float32, tags []string) (*domain.Note, error) {
	if err := s.checkDims(embedding); err != nil {
		return nil, err
	}

	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, fmt.Errorf("serialize embedding: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		"INSERT INTO notes (title, content, created_at) VALUES (?, ?, ?)",
		title, content, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}
	noteID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("note id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO note_vec (note_id, embedding) VALUES (?, ?)",
		noteID, blob,
	); err != nil {
		return nil, fmt.Errorf("insert embedding: %w", err)
	}

	for _, name := range tags {
		tagID, err := getOrCreateTag(ctx, tx, name)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO note_tags (note_id, tag_id) VALUES (?, ?)",
			noteID, tagID,
		); err != nil {
			return nil, fmt.Errorf("link tag %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit note: %w", err)
	}

	return &domain.Note{
		ID:        noteID,
		Title:     title,
		Content:   content,
		Tags:      tags,
		CreatedAt: now,
	}, nil
}

// GetNote retrieves a note by id with its tags.
func (s *Store) GetNote(ctx context.Context, id int64) (*domain.Note, error) {
	var note domain.Note
	err := s.db.QueryRowContext(ctx,
		"SELECT note_id, title, content, created_at FROM notes WHERE note_id = ?",
		id,
	).Scan(&note.ID, &note.Title, &note.Content, &note.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errs.Errorf(errs.CodeStoreNoteNotFound, "note %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}

	tags, err := s.noteTagNames(ctx, id)
	if err != nil {
		return nil, err
	}
	note.Tags = tags

	return &note, nil
}

// noteTagNames returns a note's tag names in link-insertion order, which is
// what keeps tag tallies deterministic downstream.
func (s *Store) noteTagNames(ctx context.Context, noteID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name
		FROM note_tags nt
		JOIN tags t ON t.tag_id = nt.tag_id
		WHERE nt.note_id = ?
		ORDER BY nt.rowid
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("get note tags: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// NotesSince returns notes created at or after since, optionally filtered by
// tag, ordered by creation time (newest first unless oldestFirst).
func (s *Store) NotesSince(ctx context.Context, since time.Time, tag string, limit int, oldestFirst bool) ([]domain.Note, error) {
	q := "SELECT note_id, title, content, created_at FROM notes WHERE created_at >= ?"
	args := []any{since}

	if tag != "" {
		q += ` AND note_id IN (
			SELECT nt.note_id FROM note_tags nt
			JOIN tags t ON t.tag_id = nt.tag_id
			WHERE t.name = ?
		)`
		args = append(args, tag)
	}

	if oldestFirst {
		q += " ORDER BY created_at ASC, note_id ASC"
	} else {
		q += " ORDER BY created_at DESC, note_id DESC"
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
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

// ListTags returns all tags ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT tag_id, name FROM tags ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// TagUsage returns per-tag note counts, most used first, name as tie-break.
func (s *Store) TagUsage(ctx context.Context) ([]domain.TagCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name, COUNT(nt.note_id) AS note_count
		FROM tags t
		LEFT JOIN note_tags nt ON nt.tag_id = t.tag_id
		GROUP BY t.name
		ORDER BY note_count DESC, t.name
	`)
	if err != nil {
		return nil, fmt.Errorf("tag usage: %w", err)
	}
	defer rows.Close()

	var usage []domain.TagCount
	for rows.Next() {
		var tc domain.TagCount
		if err := rows.Scan(&tc.Name, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan tag usage: %w", err)
		}
		usage = append(usage, tc)
	}
	return usage, rows.Err()
}

// Stats summarizes the store contents.
func (s *Store) Stats(ctx context.Context) (*domain.Stats, error) {
	var stats domain.Stats

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notes").Scan(&stats.TotalNotes); err != nil {
		return nil, fmt.Errorf("count notes: %w", err)
	}

	weekAgo := time.Now().UTC().AddDate(0, 0, -7)
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notes WHERE created_at >= ?", weekAgo,
	).Scan(&stats.RecentNotes); err != nil {
		return nil, fmt.Errorf("count recent notes: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tags").Scan(&stats.TotalTags); err != nil {
		return nil, fmt.Errorf("count tags: %w", err)
	}

	usage, err := s.TagUsage(ctx)
	if err != nil {
		return nil, err
	}
	stats.TagUsage = usage

	return &stats, nil
}

// getOrCreateTag resolves a tag name to its id inside tx, creating the row
// when absent.
func getOrCreateTag(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, "SELECT tag_id FROM tags WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("find tag: %w", err)
	}

	res, err := tx.ExecContext(ctx, "INSERT INTO tags (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("insert tag: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("tag id: %w", err)
	}
	return id, nil
}
