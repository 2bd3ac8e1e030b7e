package distance

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func floatsAreEqual(a, b float64) bool {
	const tolerance = 1e-9
	return math.Abs(a-b) < tolerance
}

func TestImplementations(t *testing.T) {
	t.Run("EuclideanF64", func(t *testing.T) {
		fn, _ := GetFloat64Func(Euclidean)
		dist, err := fn([]float64{1, 2}, []float64{3, 4})
		if err != nil {
			t.Fatal(err)
		}
		if !floatsAreEqual(dist, 8) {
			t.Errorf("got %f, want 8", dist)
		}
	})

	t.Run("CosineF64", func(t *testing.T) {
		fn, _ := GetFloat64Func(Cosine)
		v1 := []float64{1, 2, 3}
		Normalize(v1)
		v2 := append([]float64{}, v1...)
		dist, _ := fn(v1, v2)
		if !floatsAreEqual(dist, 0) {
			t.Errorf("got %.15f, want 0", dist)
		}
	})

	t.Run("EuclideanF16", func(t *testing.T) {
		fn, _ := GetFloat16Func(Euclidean)
		dist, _ := fn(ToFloat16([]float64{1, 2}), ToFloat16([]float64{3, 4}))
		if math.Abs(dist-8) > 1e-3 {
			t.Errorf("got %f, want ~8", dist)
		}
	})

	t.Run("CosineF16Unsupported", func(t *testing.T) {
		if _, err := GetFloat16Func(Cosine); err == nil {
			t.Error("expected an error for cosine at float16 precision")
		}
	})

	t.Run("LengthMismatch", func(t *testing.T) {
		fn, _ := GetFloat64Func(Euclidean)
		if _, err := fn([]float64{1}, []float64{1, 2}); !errors.Is(err, ErrLengthMismatch) {
			t.Errorf("expected ErrLengthMismatch, got %v", err)
		}
	})
}

func TestGonumMatchesPureGo(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		dim := 1 + rng.Intn(40)
		v1 := make([]float64, dim)
		v2 := make([]float64, dim)
		for j := range v1 {
			v1[j] = rng.NormFloat64()
			v2[j] = rng.NormFloat64()
		}

		want, _ := squaredEuclideanGo(v1, v2)
		got, _ := squaredEuclideanGonum(v1, v2)
		if math.Abs(want-got) > 1e-9*math.Max(1, want) {
			t.Fatalf("euclidean mismatch dim=%d: go=%f gonum=%f", dim, want, got)
		}

		wantDot, _ := dotProductAsDistanceGo(v1, v2)
		gotDot, _ := dotProductAsDistanceGonum(v1, v2)
		if math.Abs(wantDot-gotDot) > 1e-9 {
			t.Fatalf("dot mismatch dim=%d: go=%f gonum=%f", dim, wantDot, gotDot)
		}
	}
}

func TestNormalizeZeroRow(t *testing.T) {
	v := []float64{0, 0, 0}
	Normalize(v)
	for _, x := range v {
		if x != 0 {
			t.Fatalf("zero row changed: %v", v)
		}
	}
}
