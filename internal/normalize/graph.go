package normalize

import (
	"context"
	"sort"

	"github.com/pbaille/notable/internal/store"
)

// Graph is the similarity graph over tagged notes: an undirected adjacency
// relation whose edges are note pairs within the distance threshold.
// Neighbor lists and the node order are sorted ascending by note id so that
// traversal is deterministic regardless of how the pairs were listed.
type Graph struct {
	nodes map[int64]store.TaggedNote
	adj   map[int64][]int64
	order []int64 // node ids with at least one edge, ascending
}

// Node returns the note attached to a graph node.
func (g *Graph) Node(id int64) store.TaggedNote {
	return g.nodes[id]
}

// Neighbors returns the ids adjacent to id, ascending.
func (g *Graph) Neighbors(id int64) []int64 {
	return g.adj[id]
}

// Size returns the number of nodes with at least one edge.
func (g *Graph) Size() int {
	return len(g.order)
}

// GraphBuilder constructs the similarity graph from a Source.
type GraphBuilder struct {
	src         Source
	maxDistance float64
}

// NewGraphBuilder returns a builder producing edges with cosine distance at
// or below maxDistance.
func NewGraphBuilder(src Source, maxDistance float64) *GraphBuilder {
	return &GraphBuilder{src: src, maxDistance: maxDistance}
}

// Build pulls tagged notes and their pairwise distances and assembles the
// graph. Notes without any within-threshold peer get no node; they simply
// drop out of clustering. Untagged notes are excluded by the Source before
// any comparison happens.
func (b *GraphBuilder) Build(ctx context.Context) (*Graph, error) {
	notes, err := b.src.TaggedNotes(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]store.TaggedNote, len(notes))
	for _, n := range notes {
		if len(n.Tags) == 0 {
			continue
		}
		byID[n.ID] = n
	}

	g := &Graph{
		nodes: make(map[int64]store.TaggedNote),
		adj:   make(map[int64][]int64),
	}
	if len(byID) == 0 {
		return g, nil
	}

	pairs, err := b.src.SimilarPairs(ctx, b.maxDistance)
	if err != nil {
		return nil, err
	}

	for _, p := range pairs {
		if p.A == p.B || p.Distance > b.maxDistance {
			continue
		}
		a, okA := byID[p.A]
		bNote, okB := byID[p.B]
		if !okA || !okB {
			continue
		}
		if _, seen := g.nodes[p.A]; !seen {
			g.nodes[p.A] = a
		}
		if _, seen := g.nodes[p.B]; !seen {
			g.nodes[p.B] = bNote
		}
		g.adj[p.A] = append(g.adj[p.A], p.B)
		g.adj[p.B] = append(g.adj[p.B], p.A)
	}

	for id, neighbors := range g.adj {
		sort.Slice(neighbors, func(i, j int) bool { return neighbors[i] < neighbors[j] })
		// A pair may be reported once per direction; dedupe after sorting.
		g.adj[id] = dedupeSorted(neighbors)
		g.order = append(g.order, id)
	}
	sort.Slice(g.order, func(i, j int) bool { return g.order[i] < g.order[j] })

	return g, nil
}

func dedupeSorted(ids []int64) []int64 {
	out := ids[:0]
	for i, id := range ids {
		if i == 0 || id != ids[i-1] {
			out = append(out, id)
		}
	}
	return out
}
