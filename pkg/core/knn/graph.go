// Package knn builds exact k-nearest-neighbour connectivity graphs over a set of
// item rows. Each row's neighbour list always starts with the row itself, which
// matches a connectivity graph built with self loops included.
//
// Rows are processed by a pool of workers, one disjoint block of rows each, so
// the result is deterministic regardless of the number of CPUs.
package knn

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/sanonone/refclass/pkg/core/distance"
)

// Options configures a graph build.
type Options struct {
	// K is the neighbourhood size including the row itself. It is clamped to
	// the number of rows.
	K         int
	Metric    distance.DistanceMetric
	Precision distance.PrecisionType
	// Workers caps the worker pool. 0 means runtime.NumCPU().
	Workers int
}

// Graph is a directed kNN graph. Neighbors[i][0] == i for every row.
type Graph struct {
	N         int
	K         int
	Neighbors [][]int
	Distances [][]float64
}

// Edges returns the number of directed edges, self loops included.
func (g *Graph) Edges() int {
	total := 0
	for _, nb := range g.Neighbors {
		total += len(nb)
	}
	return total
}

// Build computes the exact kNN graph of rows.
func Build(rows [][]float64, opts Options) (*Graph, error) {
	n := len(rows)
	if n == 0 {
		return &Graph{}, nil
	}
	if opts.K < 1 {
		return nil, fmt.Errorf("knn: neighbourhood size must be positive, got %d", opts.K)
	}
	if opts.Metric == "" {
		opts.Metric = distance.Euclidean
	}
	if opts.Precision == "" {
		opts.Precision = distance.Float64
	}
	k := opts.K
	if k > n {
		k = n
	}

	dist, err := newRowDistance(rows, opts.Metric, opts.Precision)
	if err != nil {
		return nil, err
	}

	g := &Graph{
		N:         n,
		K:         k,
		Neighbors: make([][]int, n),
		Distances: make([][]float64, n),
	}

	numWorkers := opts.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if n < numWorkers {
		numWorkers = n
	}

	var wg sync.WaitGroup
	errs := make([]error, numWorkers)
	blockSize := n / numWorkers

	for w := 0; w < numWorkers; w++ {
		start := w * blockSize
		end := start + blockSize
		if w == numWorkers-1 {
			end = n
		}
		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			errs[w] = g.fillRows(start, end, k, dist)
		}(w, start, end)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return g, nil
}

// fillRows writes the neighbour lists for rows [start, end).
func (g *Graph) fillRows(start, end, k int, dist func(i, j int) (float64, error)) error {
	h := newMaxHeap(k)
	for i := start; i < end; i++ {
		for j := 0; j < g.N; j++ {
			if j == i {
				continue
			}
			d, err := dist(i, j)
			if err != nil {
				return fmt.Errorf("knn: row %d vs %d: %w", i, j, err)
			}
			h.offer(Candidate{ID: j, Distance: d}, k-1)
		}
		nearest := h.drain()

		ids := make([]int, 0, k)
		ds := make([]float64, 0, k)
		ids = append(ids, i)
		ds = append(ds, 0)
		for _, c := range nearest {
			ids = append(ids, c.ID)
			ds = append(ds, c.Distance)
		}
		g.Neighbors[i] = ids
		g.Distances[i] = ds
	}
	return nil
}

// newRowDistance prepares the rows once (normalisation, precision conversion)
// and returns a pairwise distance closure over row indices.
func newRowDistance(rows [][]float64, metric distance.DistanceMetric, precision distance.PrecisionType) (func(i, j int) (float64, error), error) {
	prepared := rows
	if metric == distance.Cosine {
		prepared = make([][]float64, len(rows))
		for i, r := range rows {
			c := make([]float64, len(r))
			copy(c, r)
			distance.Normalize(c)
			prepared[i] = c
		}
	}

	switch precision {
	case distance.Float64:
		fn, err := distance.GetFloat64Func(metric)
		if err != nil {
			return nil, err
		}
		return func(i, j int) (float64, error) { return fn(prepared[i], prepared[j]) }, nil
	case distance.Float16:
		fn, err := distance.GetFloat16Func(metric)
		if err != nil {
			return nil, fmt.Errorf("precision '%s' only supports the '%s' metric: %w", precision, distance.Euclidean, err)
		}
		half := make([][]uint16, len(prepared))
		for i, r := range prepared {
			half[i] = distance.ToFloat16(r)
		}
		return func(i, j int) (float64, error) { return fn(half[i], half[j]) }, nil
	default:
		return nil, fmt.Errorf("unsupported precision: %s", precision)
	}
}
