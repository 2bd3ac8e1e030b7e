package cluster

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/graph/community"

	"github.com/sanonone/refclass/pkg/core/knn"
)

func threeBlobs(seed int64, sizes ...int) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	centers := [][]float64{{0, 0}, {20, 0}, {0, 20}}
	var rows [][]float64
	for b, size := range sizes {
		for i := 0; i < size; i++ {
			rows = append(rows, []float64{
				centers[b][0] + rng.NormFloat64(),
				centers[b][1] + rng.NormFloat64(),
			})
		}
	}
	return rows
}

func TestRelabelBySize(t *testing.T) {
	labels, sizes := relabelBySize([]int{7, 3, 3, 9, 9, 9, 7})
	wantLabels := []int{1, 2, 2, 0, 0, 0, 1}
	if !reflect.DeepEqual(labels, wantLabels) {
		t.Errorf("labels = %v, want %v", labels, wantLabels)
	}
	if !reflect.DeepEqual(sizes, []int{3, 2, 2}) {
		t.Errorf("sizes = %v", sizes)
	}
}

func TestAdjacencyCountsEdges(t *testing.T) {
	g := &knn.Graph{
		N:         3,
		K:         2,
		Neighbors: [][]int{{0, 1}, {1, 2}, {2, 1}},
	}
	adj := adjacency(g, []int{0, 0, 1}, 2)
	want := [][]float64{{3, 1}, {1, 1}}
	if !reflect.DeepEqual(adj, want) {
		t.Errorf("adjacency = %v, want %v", adj, want)
	}
}

func TestAutoClusters(t *testing.T) {
	cases := []struct {
		n    int
		res  float64
		want int
	}{
		{1, 1, 1},
		{2, 1, 2},
		{1024, 1, 20},
		{1024, 4, 40},
		{3, 100, 3},
	}
	for _, c := range cases {
		if got := AutoClusters(c.n, c.res); got != c.want {
			t.Errorf("AutoClusters(%d, %v) = %d, want %d", c.n, c.res, got, c.want)
		}
	}
}

func TestLouvainTwoCliques(t *testing.T) {
	nb := make([][]int, 8)
	for _, base := range []int{0, 4} {
		for i := 0; i < 4; i++ {
			nb[base+i] = append(nb[base+i], base+i)
			for j := 0; j < 4; j++ {
				if j != i {
					nb[base+i] = append(nb[base+i], base+j)
				}
			}
		}
	}
	nb[3] = append(nb[3], 4)

	g := fromKNN(&knn.Graph{N: 8, K: 4, Neighbors: nb})
	if w, ok := g.Weight(0, 1); !ok || w != 2 {
		t.Fatalf("mutual neighbours weight %v, want 2", w)
	}
	if w, _ := g.Weight(3, 4); w != 1 {
		t.Fatalf("one-way neighbours weight %v, want 1", w)
	}
	if g.HasEdgeBetween(0, 0) {
		t.Fatal("self loop kept")
	}

	labels, comms := louvain(g, 1, 0)
	for i := 1; i < 4; i++ {
		if labels[i] != labels[0] || labels[4+i] != labels[4] {
			t.Fatalf("cliques split: %v", labels)
		}
	}
	if labels[0] != 0 || labels[4] != 1 || len(comms) != 2 {
		t.Fatalf("labels not numbered by lowest member: %v", labels)
	}
	if q := community.Q(g, comms, 1); q <= 0.3 {
		t.Errorf("modularity %v unexpectedly low", q)
	}

	again, _ := louvain(fromKNN(&knn.Graph{N: 8, K: 4, Neighbors: nb}), 1, 0)
	if !reflect.DeepEqual(labels, again) {
		t.Errorf("same seed gave %v then %v", labels, again)
	}
}

func TestLouvainWithoutEdges(t *testing.T) {
	g := fromKNN(&knn.Graph{N: 3, K: 1, Neighbors: [][]int{{0}, {1}, {2}}})
	labels, comms := louvain(g, 1, 0)
	if !reflect.DeepEqual(labels, []int{0, 1, 2}) || len(comms) != 3 {
		t.Errorf("isolated nodes labelled %v", labels)
	}
}

func TestEngines(t *testing.T) {
	rows := threeBlobs(9, 40, 25, 15)
	for _, alg := range []Algorithm{Graph, Mixture, KMeans} {
		t.Run(string(alg), func(t *testing.T) {
			e, err := New(alg)
			if err != nil {
				t.Fatal(err)
			}
			p := Params{NClusters: 3, NNeighbors: 8, Seed: 1}
			part, err := e.Cluster(rows, p)
			if err != nil {
				t.Fatal(err)
			}
			blobOf := func(i int) int {
				switch {
				case i < 40:
					return 0
				case i < 65:
					return 1
				}
				return 2
			}
			owner := map[int]int{}
			for i, l := range part.Labels {
				if b, ok := owner[l]; ok && b != blobOf(i) {
					t.Fatalf("cluster %d spans blobs %d and %d", l, b, blobOf(i))
				}
				owner[l] = blobOf(i)
			}
			if alg != Graph {
				if part.K != 3 {
					t.Fatalf("K = %d, want 3", part.K)
				}
				if !reflect.DeepEqual(part.Sizes, []int{40, 25, 15}) {
					t.Errorf("sizes = %v", part.Sizes)
				}
			}

			var edges float64
			for a := range part.Adjacency {
				for b := range part.Adjacency[a] {
					edges += part.Adjacency[a][b]
				}
				for b := range part.Adjacency[a] {
					if owner[a] != owner[b] && part.Adjacency[a][b] != 0 {
						t.Errorf("edges between clusters %d and %d of different blobs", a, b)
					}
				}
			}
			if edges != float64(len(rows)*8) {
				t.Errorf("adjacency holds %v edges, want %d", edges, len(rows)*8)
			}

			again, _ := e.Cluster(rows, p)
			if !reflect.DeepEqual(part.Labels, again.Labels) {
				t.Error("clustering is not deterministic for a fixed seed")
			}
		})
	}
}

func TestEngineErrors(t *testing.T) {
	if _, err := New("spectral"); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("expected ErrUnknownAlgorithm, got %v", err)
	}
	e, _ := New(Graph)
	if _, err := e.Cluster(nil, Params{}); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}
