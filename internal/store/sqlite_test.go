package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/notable/internal/errs"
)

func TestStore_AddAndGetNote(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	note, err := s.AddNote(ctx, "First", "some content", []float32{1, 0, 0}, []string{"py", "python"})
	require.NoError(t, err)
	require.NotZero(t, note.ID)

	got, err := s.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "First", got.Title)
	assert.Equal(t, "some content", got.Content)
	// Tag order is link-insertion order.
	assert.Equal(t, []string{"py", "python"}, got.Tags)
}

func TestStore_AddNoteRejectsWrongDimensions(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	bad := make([]float32, 100)
	_, err := s.AddNote(ctx, "Bad", "content", bad, nil)
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeEmbedDimsInvalid))

	// Rejected before any write.
	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalNotes)
}

func TestStore_GetNoteNotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.GetNote(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestStore_TagsDeduplicatedAcrossNotes(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	_, err := s.AddNote(ctx, "a", "c1", []float32{1, 0, 0}, []string{"go"})
	require.NoError(t, err)
	_, err = s.AddNote(ctx, "b", "c2", []float32{0, 1, 0}, []string{"go", "web"})
	require.NoError(t, err)

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "go", tags[0].Name)
	assert.Equal(t, "web", tags[1].Name)
}

func TestStore_NotesSince(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	_, err := s.AddNote(ctx, "tagged", "c1", []float32{1, 0, 0}, []string{"go"})
	require.NoError(t, err)
	_, err = s.AddNote(ctx, "untagged", "c2", []float32{0, 1, 0}, nil)
	require.NoError(t, err)

	all, err := s.NotesSince(ctx, time.Now().UTC().AddDate(0, 0, -1), "", 50, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Newest first.
	assert.Equal(t, "untagged", all[0].Title)

	oldest, err := s.NotesSince(ctx, time.Now().UTC().AddDate(0, 0, -1), "", 50, true)
	require.NoError(t, err)
	assert.Equal(t, "tagged", oldest[0].Title)

	filtered, err := s.NotesSince(ctx, time.Now().UTC().AddDate(0, 0, -1), "go", 50, false)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "tagged", filtered[0].Title)

	none, err := s.NotesSince(ctx, time.Now().UTC().Add(time.Hour), "", 50, false)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_Stats(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	_, err := s.AddNote(ctx, "a", "c1", []float32{1, 0, 0}, []string{"go", "web"})
	require.NoError(t, err)
	_, err = s.AddNote(ctx, "b", "c2", []float32{0, 1, 0}, []string{"go"})
	require.NoError(t, err)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalNotes)
	assert.Equal(t, 2, stats.RecentNotes)
	assert.Equal(t, 2, stats.TotalTags)
	require.Len(t, stats.TagUsage, 2)
	assert.Equal(t, "go", stats.TagUsage[0].Name)
	assert.Equal(t, 2, stats.TagUsage[0].Count)
}
