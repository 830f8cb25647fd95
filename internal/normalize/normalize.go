// Package normalize implements the tag-normalization engine: it discovers
// clusters of semantically near-duplicate notes that were tagged
// inconsistently, proposes a canonical tag per cluster, and applies an
// operator-approved normalization atomically.
//
// The analysis pipeline (graph build, cluster extraction, suggestion
// generation) is read-only and can overlap with other analysis runs. An
// apply running concurrently with an analysis run may observe a torn
// snapshot of tags depending on the storage layer's isolation; that overlap
// is an accepted limitation, not handled here.
package normalize

import (
	"context"

	"github.com/pbaille/notable/internal/store"
)

// Source is the read-only storage view the analysis pipeline consumes.
// *store.Store satisfies it.
type Source interface {
	// TaggedNotes returns every note carrying at least one tag, ascending
	// by note id, tags in a stable per-note order.
	TaggedNotes(ctx context.Context) ([]store.TaggedNote, error)
	// SimilarPairs returns all unordered note pairs (A < B, both tagged)
	// whose cosine distance is at or below maxDistance.
	SimilarPairs(ctx context.Context, maxDistance float64) ([]store.Pair, error)
}

// Options tunes a suggestion run.
type Options struct {
	// DistanceThreshold is the maximum cosine distance for an edge,
	// typically 1 - configured similarity.
	DistanceThreshold float64
	// MinClusterSize drops connected components smaller than this.
	MinClusterSize int
}

// Suggest runs the full analysis pipeline: similarity graph, connected
// components, tag tallies. Clusters whose members all share a single
// distinct tag produce no suggestion. An empty result is not an error.
func Suggest(ctx context.Context, src Source, opts Options) ([]Suggestion, error) {
	if opts.MinClusterSize < 2 {
		opts.MinClusterSize = 2
	}

	graph, err := NewGraphBuilder(src, opts.DistanceThreshold).Build(ctx)
	if err != nil {
		return nil, err
	}

	clusters := ExtractClusters(graph, opts.MinClusterSize)
	return GenerateSuggestions(clusters), nil
}
