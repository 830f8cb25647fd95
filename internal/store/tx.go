package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pbaille/notable/internal/domain"
)

// TagTx is an exclusive transaction scope over note-tag links. The caller
// owns the lifecycle: every TagTx must end in exactly one Commit or
// Rollback. Rollback after a successful Commit is a harmless no-op, so
// `defer tx.Rollback()` is the expected usage.
type TagTx struct {
	tx *sql.Tx
}

// BeginTagTx opens the transaction scope used by tag normalization.
func (s *Store) BeginTagTx(ctx context.Context) (*TagTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tag transaction: %w", err)
	}
	return &TagTx{tx: tx}, nil
}

// NoteExists reports whether a note row exists.
func (t *TagTx) NoteExists(ctx context.Context, noteID int64) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx, "SELECT 1 FROM notes WHERE note_id = ?", noteID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check note %d: %w", noteID, err)
	}
	return true, nil
}

// GetOrCreateTag resolves a tag name to its id, creating the row when absent.
func (t *TagTx) GetOrCreateTag(ctx context.Context, name string) (int64, error) {
	return getOrCreateTag(ctx, t.tx, name)
}

// NoteTags returns the note's current tag links in link-insertion order.
func (t *TagTx) NoteTags(ctx context.Context, noteID int64) ([]domain.Tag, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT t.tag_id, t.name
		FROM note_tags nt
		JOIN tags t ON t.tag_id = nt.tag_id
		WHERE nt.note_id = ?
		ORDER BY nt.rowid
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("note %d tags: %w", noteID, err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var tag domain.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// RemoveTagLink deletes one note-tag association.
func (t *TagTx) RemoveTagLink(ctx context.Context, noteID, tagID int64) error {
	if _, err := t.tx.ExecContext(ctx,
		"DELETE FROM note_tags WHERE note_id = ? AND tag_id = ?", noteID, tagID,
	); err != nil {
		return fmt.Errorf("remove tag link %d-%d: %w", noteID, tagID, err)
	}
	return nil
}

// AddTagLink inserts one note-tag association.
func (t *TagTx) AddTagLink(ctx context.Context, noteID, tagID int64) error {
	if _, err := t.tx.ExecContext(ctx,
		"INSERT INTO note_tags (note_id, tag_id) VALUES (?, ?)", noteID, tagID,
	); err != nil {
		return fmt.Errorf("add tag link %d-%d: %w", noteID, tagID, err)
	}
	return nil
}

// Commit makes the scope's writes visible.
func (t *TagTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit tag transaction: %w", err)
	}
	return nil
}

// Rollback discards the scope's writes.
func (t *TagTx) Rollback() error {
	return t.tx.Rollback()
}
