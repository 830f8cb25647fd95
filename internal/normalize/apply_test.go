package normalize_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/notable/internal/domain"
	"github.com/pbaille/notable/internal/errs"
	"github.com/pbaille/notable/internal/normalize"
)

// fakeTagDB models just enough of the store for the applier: notes, tags
// and ordered note-tag links, with snapshot transactions. A transaction
// works on a deep copy; Commit swaps it in, Rollback drops it.
type fakeTagDB struct {
	state *tagState
	// failAddForNote makes AddTagLink fail for one note id, to exercise
	// mid-request failures.
	failAddForNote int64
}

type tagState struct {
	notes    map[int64]bool
	tagIDs   map[string]int64
	tagNames map[int64]string
	links    map[int64][]int64
	nextTag  int64
}

func newFakeTagDB(noteIDs ...int64) *fakeTagDB {
	s := &tagState{
		notes:    map[int64]bool{},
		tagIDs:   map[string]int64{},
		tagNames: map[int64]string{},
		links:    map[int64][]int64{},
		nextTag:  1,
	}
	for _, id := range noteIDs {
		s.notes[id] = true
	}
	return &fakeTagDB{state: s}
}

func (db *fakeTagDB) tag(name string) int64 {
	if id, ok := db.state.tagIDs[name]; ok {
		return id
	}
	id := db.state.nextTag
	db.state.nextTag++
	db.state.tagIDs[name] = id
	db.state.tagNames[id] = name
	return id
}

func (db *fakeTagDB) link(noteID int64, tags ...string) {
	for _, name := range tags {
		db.state.links[noteID] = append(db.state.links[noteID], db.tag(name))
	}
}

func (db *fakeTagDB) tagsOf(noteID int64) []string {
	var names []string
	for _, id := range db.state.links[noteID] {
		names = append(names, db.state.tagNames[id])
	}
	return names
}

func (s *tagState) clone() *tagState {
	c := &tagState{
		notes:    map[int64]bool{},
		tagIDs:   map[string]int64{},
		tagNames: map[int64]string{},
		links:    map[int64][]int64{},
		nextTag:  s.nextTag,
	}
	for k, v := range s.notes {
		c.notes[k] = v
	}
	for k, v := range s.tagIDs {
		c.tagIDs[k] = v
	}
	for k, v := range s.tagNames {
		c.tagNames[k] = v
	}
	for k, v := range s.links {
		c.links[k] = append([]int64(nil), v...)
	}
	return c
}

func (db *fakeTagDB) begin(_ context.Context) (normalize.Tx, error) {
	return &fakeTagTx{db: db, work: db.state.clone()}, nil
}

type fakeTagTx struct {
	db   *fakeTagDB
	work *tagState
	done bool
}

func (t *fakeTagTx) NoteExists(_ context.Context, noteID int64) (bool, error) {
	return t.work.notes[noteID], nil
}

func (t *fakeTagTx) GetOrCreateTag(_ context.Context, name string) (int64, error) {
	if id, ok := t.work.tagIDs[name]; ok {
		return id, nil
	}
	id := t.work.nextTag
	t.work.nextTag++
	t.work.tagIDs[name] = id
	t.work.tagNames[id] = name
	return id, nil
}

func (t *fakeTagTx) NoteTags(_ context.Context, noteID int64) ([]domain.Tag, error) {
	var tags []domain.Tag
	for _, id := range t.work.links[noteID] {
		tags = append(tags, domain.Tag{ID: id, Name: t.work.tagNames[id]})
	}
	return tags, nil
}

func (t *fakeTagTx) RemoveTagLink(_ context.Context, noteID, tagID int64) error {
	links := t.work.links[noteID]
	for i, id := range links {
		if id == tagID {
			t.work.links[noteID] = append(links[:i:i], links[i+1:]...)
			return nil
		}
	}
	return nil
}

func (t *fakeTagTx) AddTagLink(_ context.Context, noteID, tagID int64) error {
	if t.db.failAddForNote == noteID {
		return errors.New("constraint violation")
	}
	t.work.links[noteID] = append(t.work.links[noteID], tagID)
	return nil
}

func (t *fakeTagTx) Commit() error {
	t.db.state = t.work
	t.done = true
	return nil
}

func (t *fakeTagTx) Rollback() error {
	t.done = true
	return nil
}

func TestApplier_MissingNoteSkippedWithWarning(t *testing.T) {
	db := newFakeTagDB(1, 2)
	db.link(1, "py")
	db.link(2, "py")

	applier := normalize.NewApplier(db.begin, nil)
	result, err := applier.Apply(context.Background(), normalize.Request{
		NoteIDs:     []int64{1, 2, 999},
		KeepTag:     "python",
		ReplaceTags: []string{"py"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.NotesUpdated)
	assert.Equal(t, 2, result.LinksRemoved)
	assert.Equal(t, 2, result.LinksAdded)
	assert.Equal(t, []int64{999}, result.MissingNotes)

	assert.Equal(t, []string{"python"}, db.tagsOf(1))
	assert.Equal(t, []string{"python"}, db.tagsOf(2))
}

func TestApplier_Idempotent(t *testing.T) {
	db := newFakeTagDB(1, 2, 3)
	db.link(1, "py")
	db.link(2, "python")
	db.link(3, "py", "python")

	req := normalize.Request{
		NoteIDs:     []int64{1, 2, 3},
		KeepTag:     "python",
		ReplaceTags: []string{"py"},
	}

	applier := normalize.NewApplier(db.begin, nil)

	first, err := applier.Apply(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 3, first.NotesUpdated)
	assert.Equal(t, 2, first.LinksRemoved)
	assert.Equal(t, 1, first.LinksAdded)

	after := map[int64][]string{1: db.tagsOf(1), 2: db.tagsOf(2), 3: db.tagsOf(3)}

	second, err := applier.Apply(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 3, second.NotesUpdated)
	assert.Equal(t, 0, second.LinksRemoved)
	assert.Equal(t, 0, second.LinksAdded)

	assert.Equal(t, after[1], db.tagsOf(1))
	assert.Equal(t, after[2], db.tagsOf(2))
	assert.Equal(t, after[3], db.tagsOf(3))
}

func TestApplier_RollsBackOnMidRequestFailure(t *testing.T) {
	db := newFakeTagDB(1, 2, 3, 4, 5)
	for id := int64(1); id <= 5; id++ {
		db.link(id, "py")
	}
	db.failAddForNote = 3

	before := map[int64][]string{}
	for id := int64(1); id <= 5; id++ {
		before[id] = db.tagsOf(id)
	}

	applier := normalize.NewApplier(db.begin, nil)
	_, err := applier.Apply(context.Background(), normalize.Request{
		NoteIDs:     []int64{1, 2, 3, 4, 5},
		KeepTag:     "python",
		ReplaceTags: []string{"py"},
	})
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeNormalizeApply))

	// All five notes must be untouched, including the ones processed
	// before the failure.
	for id := int64(1); id <= 5; id++ {
		assert.Equalf(t, before[id], db.tagsOf(id), "note %d changed despite rollback", id)
	}
}

func TestApplier_KeepTagNeverRemoved(t *testing.T) {
	db := newFakeTagDB(1)
	db.link(1, "python", "py")

	applier := normalize.NewApplier(db.begin, nil)
	result, err := applier.Apply(context.Background(), normalize.Request{
		NoteIDs:     []int64{1},
		KeepTag:     "python",
		ReplaceTags: []string{"python", "py"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.LinksRemoved)
	assert.Equal(t, 0, result.LinksAdded)
	assert.Equal(t, []string{"python"}, db.tagsOf(1))
}

func TestApplier_ValidatesRequest(t *testing.T) {
	applier := normalize.NewApplier(newFakeTagDB().begin, nil)

	_, err := applier.Apply(context.Background(), normalize.Request{KeepTag: "x"})
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))

	_, err = applier.Apply(context.Background(), normalize.Request{NoteIDs: []int64{1}})
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}
