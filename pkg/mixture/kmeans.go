package mixture

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/sanonone/refclass/pkg/core/distance"
)

// ErrNoData is returned when a fit is attempted on an empty row set.
var ErrNoData = errors.New("mixture: no rows to fit")

// KMeansOptions configures KMeans.
type KMeansOptions struct {
	MaxIter int
	Seed    int64
}

// KMeansResult holds the fitted centroids and the label of every row.
type KMeansResult struct {
	Centers [][]float64
	Labels  []int
	Inertia float64
}

// KMeans runs Lloyd's algorithm from a k-means++ initialisation. k is clamped
// to the number of rows. The result depends only on rows, k and the seed.
func KMeans(rows [][]float64, k int, opts KMeansOptions) (*KMeansResult, error) {
	n := len(rows)
	if n == 0 {
		return nil, ErrNoData
	}
	if k < 1 {
		return nil, fmt.Errorf("mixture: k must be positive, got %d", k)
	}
	if k > n {
		k = n
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = 300
	}
	sqDist, _ := distance.GetFloat64Func(distance.Euclidean)

	rng := rand.New(rand.NewSource(opts.Seed))
	centers := kmeansPlusPlus(rows, k, rng, sqDist)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	dim := len(rows[0])
	var inertia float64
	for iter := 0; iter < opts.MaxIter; iter++ {
		changed := false
		inertia = 0
		for i, r := range rows {
			best, bestD := 0, math.Inf(1)
			for c, center := range centers {
				d, err := sqDist(r, center)
				if err != nil {
					return nil, err
				}
				if d < bestD {
					best, bestD = c, d
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
			inertia += bestD
		}
		if !changed {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, r := range rows {
			c := labels[i]
			counts[c]++
			for j, v := range r {
				sums[c][j] += v
			}
		}
		for c := range centers {
			// An empty cluster keeps its previous centroid.
			if counts[c] == 0 {
				continue
			}
			for j := range sums[c] {
				centers[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}

	return &KMeansResult{Centers: centers, Labels: labels, Inertia: inertia}, nil
}

// kmeansPlusPlus picks k initial centroids, each drawn with probability
// proportional to its squared distance from the nearest centroid chosen so far.
func kmeansPlusPlus(rows [][]float64, k int, rng *rand.Rand, sqDist distance.DistanceFuncF64) [][]float64 {
	n := len(rows)
	centers := make([][]float64, 0, k)
	chosen := make([]bool, n)

	first := rng.Intn(n)
	centers = append(centers, cloneRow(rows[first]))
	chosen[first] = true

	closest := make([]float64, n)
	for i, r := range rows {
		closest[i], _ = sqDist(r, centers[0])
	}

	for len(centers) < k {
		var total float64
		for _, d := range closest {
			total += d
		}

		next := -1
		if total > 0 {
			target := rng.Float64() * total
			for i, d := range closest {
				target -= d
				if target <= 0 && d > 0 {
					next = i
					break
				}
			}
		}
		if next == -1 {
			// Every remaining row coincides with a centroid: take the first unused one.
			for i := range rows {
				if !chosen[i] {
					next = i
					break
				}
			}
		}

		chosen[next] = true
		centers = append(centers, cloneRow(rows[next]))
		for i, r := range rows {
			if d, _ := sqDist(r, rows[next]); d < closest[i] {
				closest[i] = d
			}
		}
	}
	return centers
}

func cloneRow(r []float64) []float64 {
	c := make([]float64, len(r))
	copy(c, r)
	return c
}
