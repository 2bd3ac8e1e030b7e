// Package cluster partitions item rows into clusters and reports how strongly
// every pair of clusters is connected.
//
// Three backends are available: "graph" (Louvain communities of the kNN
// graph), "mixture" (full-covariance Gaussian mixture) and "kmeans". Whatever
// the backend, cluster adjacency is measured the same way: the number of kNN
// edges, self loops included, that run from one cluster to another. Labels are
// renumbered so that cluster 0 is the largest.
package cluster

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/sanonone/refclass/pkg/core/distance"
	"github.com/sanonone/refclass/pkg/core/knn"
)

// Algorithm names a clustering backend.
type Algorithm string

const (
	Graph   Algorithm = "graph"
	Mixture Algorithm = "mixture"
	KMeans  Algorithm = "kmeans"
)

var (
	ErrUnknownAlgorithm = errors.New("cluster: unknown algorithm")
	ErrEmptyInput       = errors.New("cluster: no rows to cluster")
)

// Params configures a clustering run.
type Params struct {
	// NClusters is the target cluster count for the mixture and kmeans
	// backends. 0 selects AutoClusters.
	NClusters  int
	NNeighbors int
	Resolution float64
	Metric     distance.DistanceMetric
	Precision  distance.PrecisionType
	Seed       int64
	MaxIter    int
	Workers    int
}

// Partition is the outcome of a clustering run.
type Partition struct {
	Labels []int
	K      int
	Sizes  []int
	// Adjacency[a][b] counts kNN edges from members of a to members of b.
	Adjacency [][]float64
	Graph     *knn.Graph
}

// Engine clusters item rows. Implementations must be deterministic for a
// fixed Params.Seed.
type Engine interface {
	Cluster(rows [][]float64, p Params) (*Partition, error)
}

// labeler assigns raw labels to rows; the graph is shared with the
// adjacency computation.
type labeler func(rows [][]float64, g *knn.Graph, p Params) ([]int, error)

type engine struct {
	name  Algorithm
	label labeler
}

// New returns the Engine for an algorithm.
func New(alg Algorithm) (Engine, error) {
	switch alg {
	case Graph, "":
		return &engine{name: Graph, label: louvainLabels}, nil
	case Mixture:
		return &engine{name: Mixture, label: mixtureLabels}, nil
	case KMeans:
		return &engine{name: KMeans, label: kmeansLabels}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
	}
}

// AutoClusters returns int(log2(n)*2*sqrt(resolution)) clamped to [1, n].
func AutoClusters(n int, resolution float64) int {
	if n <= 1 {
		return 1
	}
	if resolution <= 0 {
		resolution = 1
	}
	k := int(math.Log2(float64(n)) * 2 * math.Sqrt(resolution))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return k
}

func (e *engine) Cluster(rows [][]float64, p Params) (*Partition, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}
	if p.NNeighbors < 1 {
		p.NNeighbors = 10
	}
	if p.Resolution <= 0 {
		p.Resolution = 1
	}
	if p.NClusters <= 0 {
		p.NClusters = AutoClusters(len(rows), p.Resolution)
	}

	g, err := knn.Build(rows, knn.Options{
		K:         p.NNeighbors,
		Metric:    p.Metric,
		Precision: p.Precision,
		Workers:   p.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("cluster: building neighbour graph: %w", err)
	}

	raw, err := e.label(rows, g, p)
	if err != nil {
		return nil, fmt.Errorf("cluster: %s backend: %w", e.name, err)
	}

	labels, sizes := relabelBySize(raw)
	part := &Partition{
		Labels:    labels,
		K:         len(sizes),
		Sizes:     sizes,
		Adjacency: adjacency(g, labels, len(sizes)),
		Graph:     g,
	}
	slog.Debug("[cluster] partition ready", "algorithm", e.name, "rows", len(rows), "clusters", part.K)
	return part, nil
}
