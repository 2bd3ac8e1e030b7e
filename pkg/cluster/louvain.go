package cluster

import (
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/sanonone/refclass/pkg/core/knn"
)

// fromKNN symmetrises a kNN graph without self loops: every directed edge adds
// one unit of weight to the undirected edge between its ends.
func fromKNN(k *knn.Graph) *simple.WeightedUndirectedGraph {
	type pair struct{ lo, hi int }
	weights := map[pair]float64{}
	for i, nb := range k.Neighbors {
		for _, j := range nb {
			if j == i {
				continue
			}
			weights[pair{min(i, j), max(i, j)}]++
		}
	}

	g := simple.NewWeightedUndirectedGraph(0, 0)
	for i := 0; i < k.N; i++ {
		g.AddNode(simple.Node(i))
	}
	for p, w := range weights {
		g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(p.lo), simple.Node(p.hi), w))
	}
	return g
}

// louvain returns modularity-maximising community labels for every node of g,
// numbered in order of each community's lowest node.
func louvain(g *simple.WeightedUndirectedGraph, resolution float64, seed int64) ([]int, [][]graph.Node) {
	n := g.Nodes().Len()
	labels := make([]int, n)
	if g.WeightedEdges().Len() == 0 {
		comms := make([][]graph.Node, n)
		for i := range labels {
			labels[i] = i
			comms[i] = []graph.Node{simple.Node(i)}
		}
		return labels, comms
	}

	src := rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)
	comms := community.Modularize(g, resolution, src).Communities()
	for _, c := range comms {
		slices.SortFunc(c, func(a, b graph.Node) int { return int(a.ID() - b.ID()) })
	}
	slices.SortFunc(comms, func(a, b []graph.Node) int { return int(a[0].ID() - b[0].ID()) })
	for id, c := range comms {
		for _, node := range c {
			labels[node.ID()] = id
		}
	}
	return labels, comms
}
