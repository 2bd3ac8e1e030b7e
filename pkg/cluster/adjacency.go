package cluster

import (
	"sort"

	"github.com/sanonone/refclass/pkg/core/knn"
)

// relabelBySize renumbers labels so that cluster 0 is the largest. Clusters of
// equal size keep the order in which they first appear. Labels that never occur
// are dropped.
func relabelBySize(raw []int) ([]int, []int) {
	count := map[int]int{}
	first := map[int]int{}
	var order []int
	for i, l := range raw {
		if _, seen := count[l]; !seen {
			first[l] = i
			order = append(order, l)
		}
		count[l]++
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := count[order[a]], count[order[b]]
		if ca != cb {
			return ca > cb
		}
		return first[order[a]] < first[order[b]]
	})

	remap := make(map[int]int, len(order))
	sizes := make([]int, len(order))
	for newID, old := range order {
		remap[old] = newID
		sizes[newID] = count[old]
	}
	labels := make([]int, len(raw))
	for i, l := range raw {
		labels[i] = remap[l]
	}
	return labels, sizes
}

// adjacency counts directed kNN edges between clusters.
func adjacency(g *knn.Graph, labels []int, k int) [][]float64 {
	adj := make([][]float64, k)
	for i := range adj {
		adj[i] = make([]float64, k)
	}
	for i, nb := range g.Neighbors {
		from := labels[i]
		for _, j := range nb {
			adj[from][labels[j]]++
		}
	}
	return adj
}
