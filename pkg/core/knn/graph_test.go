package knn

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/sanonone/refclass/pkg/core/distance"
)

func lineRows() [][]float64 {
	return [][]float64{{0}, {1}, {2}, {10}, {11}, {12}}
}

func TestBuildLine(t *testing.T) {
	g, err := Build(lineRows(), Options{K: 3, Metric: distance.Euclidean})
	if err != nil {
		t.Fatal(err)
	}
	if g.N != 6 || g.K != 3 {
		t.Fatalf("unexpected shape N=%d K=%d", g.N, g.K)
	}

	want := map[int][]int{
		0: {0, 1, 2},
		1: {1, 0, 2},
		3: {3, 4, 5},
		4: {4, 3, 5},
	}
	for row, nb := range want {
		if !reflect.DeepEqual(g.Neighbors[row], nb) {
			t.Errorf("row %d: got %v, want %v", row, g.Neighbors[row], nb)
		}
	}
	if g.Edges() != 18 {
		t.Errorf("Edges = %d, want 18", g.Edges())
	}
}

func TestBuildSelfFirstWithDuplicates(t *testing.T) {
	rows := [][]float64{{1, 1}, {1, 1}, {1, 1}}
	g, err := Build(rows, Options{K: 2})
	if err != nil {
		t.Fatal(err)
	}
	for i, nb := range g.Neighbors {
		if nb[0] != i {
			t.Errorf("row %d does not start with itself: %v", i, nb)
		}
	}
}

func TestBuildClampsK(t *testing.T) {
	g, err := Build(lineRows()[:2], Options{K: 10})
	if err != nil {
		t.Fatal(err)
	}
	if g.K != 2 || len(g.Neighbors[0]) != 2 {
		t.Fatalf("K not clamped: K=%d nb=%v", g.K, g.Neighbors[0])
	}
}

func TestBuildDeterministicAcrossWorkers(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	rows := make([][]float64, 120)
	for i := range rows {
		rows[i] = []float64{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
	}

	single, err := Build(rows, Options{K: 5, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	many, err := Build(rows, Options{K: 5, Workers: 7})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(single.Neighbors, many.Neighbors) {
		t.Fatal("neighbour lists depend on the worker count")
	}
}

func TestBuildFloat16(t *testing.T) {
	g, err := Build(lineRows(), Options{K: 2, Precision: distance.Float16})
	if err != nil {
		t.Fatal(err)
	}
	if g.Neighbors[5][1] != 4 {
		t.Errorf("row 5 nearest = %d, want 4", g.Neighbors[5][1])
	}

	if _, err := Build(lineRows(), Options{K: 2, Precision: distance.Float16, Metric: distance.Cosine}); err == nil {
		t.Error("expected cosine at float16 to be rejected")
	}
}

func TestBuildRejectsBadK(t *testing.T) {
	if _, err := Build(lineRows(), Options{K: 0}); err == nil {
		t.Error("expected an error for K=0")
	}
}
