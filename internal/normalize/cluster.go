package normalize

import "github.com/pbaille/notable/internal/store"

// Cluster is one connected component of the similarity graph, in traversal
// order. Membership is transitive: two notes share a cluster when a path of
// similarity edges connects them, even when they are not directly similar
// to each other. Clusters from one extraction are pairwise disjoint.
type Cluster []store.TaggedNote

// NoteIDs returns the members' ids in cluster order.
func (c Cluster) NoteIDs() []int64 {
	ids := make([]int64, len(c))
	for i, n := range c {
		ids[i] = n.ID
	}
	return ids
}

// ExtractClusters partitions the graph's nodes into connected components
// with a stack-based depth-first traversal. Roots are taken in ascending
// note id and neighbors visited ascending, so the same graph always yields
// the same clusters in the same order. Components smaller than minSize are
// discarded.
func ExtractClusters(g *Graph, minSize int) []Cluster {
	visited := make(map[int64]bool, g.Size())
	var clusters []Cluster

	for _, root := range g.order {
		if visited[root] {
			continue
		}

		var cluster Cluster
		stack := []int64{root}

		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if visited[id] {
				continue
			}
			visited[id] = true
			cluster = append(cluster, g.Node(id))

			// Push in reverse so the smallest unvisited neighbor pops first.
			neighbors := g.Neighbors(id)
			for i := len(neighbors) - 1; i >= 0; i-- {
				if !visited[neighbors[i]] {
					stack = append(stack, neighbors[i])
				}
			}
		}

		if len(cluster) >= minSize {
			clusters = append(clusters, cluster)
		}
	}

	return clusters
}
