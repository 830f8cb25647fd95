package normalize

import (
	"context"
	"log/slog"

	"github.com/pbaille/notable/internal/domain"
	"github.com/pbaille/notable/internal/errs"
	"github.com/pbaille/notable/internal/store"
)

// Tx is the exclusive transaction scope the applier mutates tags through.
// *store.TagTx satisfies it.
type Tx interface {
	NoteExists(ctx context.Context, noteID int64) (bool, error)
	GetOrCreateTag(ctx context.Context, name string) (int64, error)
	NoteTags(ctx context.Context, noteID int64) ([]domain.Tag, error)
	RemoveTagLink(ctx context.Context, noteID, tagID int64) error
	AddTagLink(ctx context.Context, noteID, tagID int64) error
	Commit() error
	Rollback() error
}

// BeginTxFunc opens a new transaction scope.
type BeginTxFunc func(ctx context.Context) (Tx, error)

// BeginFromStore adapts the store's concrete transaction type to BeginTxFunc.
func BeginFromStore(s *store.Store) BeginTxFunc {
	return func(ctx context.Context) (Tx, error) {
		return s.BeginTagTx(ctx)
	}
}

// Request names the notes to rewrite, the tag to keep, and the tags to
// replace with it.
type Request struct {
	NoteIDs     []int64
	KeepTag     string
	ReplaceTags []string
}

// Result reports what a normalization changed. Applying the same request a
// second time updates the same notes but removes and adds nothing.
type Result struct {
	NotesUpdated int
	LinksRemoved int
	LinksAdded   int
	// MissingNotes lists requested ids that do not exist; they were skipped
	// with a warning, not treated as failures.
	MissingNotes []int64
}

// Applier rewrites tag links for an operator-approved suggestion. The whole
// request runs in one transaction: either every note's rewrite commits or
// none does.
type Applier struct {
	begin BeginTxFunc
	log   *slog.Logger
}

// NewApplier returns an Applier. A nil logger falls back to slog.Default.
func NewApplier(begin BeginTxFunc, log *slog.Logger) *Applier {
	if log == nil {
		log = slog.Default()
	}
	return &Applier{begin: begin, log: log}
}

// Apply performs the normalization. Unknown note ids are skipped with a
// warning and processing continues; any storage failure rolls the entire
// request back and is surfaced with no partial success. The keep tag is
// never removed even when it is also listed in ReplaceTags.
func (a *Applier) Apply(ctx context.Context, req Request) (*Result, error) {
	if len(req.NoteIDs) == 0 {
		return nil, errs.New(errs.CodeNormalizeInput, "no note ids provided")
	}
	if req.KeepTag == "" {
		return nil, errs.New(errs.CodeNormalizeInput, "keep tag must not be empty")
	}

	replace := make(map[string]bool, len(req.ReplaceTags))
	for _, t := range req.ReplaceTags {
		replace[t] = true
	}

	tx, err := a.begin(ctx)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeNormalizeApply, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := a.applyInTx(ctx, tx, req, replace)
	if err != nil {
		// The deferred rollback discards everything done so far.
		return nil, errs.Wrap(err, errs.CodeNormalizeApply, "applying tag normalization")
	}

	if err := tx.Commit(); err != nil {
		return nil, errs.Wrap(err, errs.CodeNormalizeApply, "committing tag normalization")
	}
	return res, nil
}

func (a *Applier) applyInTx(ctx context.Context, tx Tx, req Request, replace map[string]bool) (*Result, error) {
	keepID, err := tx.GetOrCreateTag(ctx, req.KeepTag)
	if err != nil {
		return nil, err
	}

	var res Result
	for _, noteID := range req.NoteIDs {
		exists, err := tx.NoteExists(ctx, noteID)
		if err != nil {
			return nil, err
		}
		if !exists {
			a.log.Warn("note not found, skipping", "note_id", noteID)
			res.MissingNotes = append(res.MissingNotes, noteID)
			continue
		}

		current, err := tx.NoteTags(ctx, noteID)
		if err != nil {
			return nil, err
		}

		hasKeep := false
		for _, tag := range current {
			if tag.Name == req.KeepTag {
				hasKeep = true
				continue
			}
			if replace[tag.Name] {
				if err := tx.RemoveTagLink(ctx, noteID, tag.ID); err != nil {
					return nil, err
				}
				res.LinksRemoved++
			}
		}

		if !hasKeep {
			if err := tx.AddTagLink(ctx, noteID, keepID); err != nil {
				return nil, err
			}
			res.LinksAdded++
		}

		res.NotesUpdated++
	}

	return &res, nil
}
