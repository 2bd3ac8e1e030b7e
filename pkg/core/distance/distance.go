// Package distance provides the distance kernels used to build item neighbourhood
// graphs. It supports squared Euclidean and cosine metrics over float64 rows and
// squared Euclidean over half-precision (float16) rows.
//
// The package uses runtime CPU detection to pick between a pure Go kernel and the
// Gonum BLAS kernel, which handles SIMD dispatch internally.
package distance

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/klauspost/cpuid/v2"
	"github.com/x448/float16"
	"gonum.org/v1/gonum/blas/gonum"
)

func init() {
	if cpuid.CPU.Supports(cpuid.AVX2, cpuid.FMA3) {
		float64Funcs[Euclidean] = squaredEuclideanGonum
		float64Funcs[Cosine] = dotProductAsDistanceGonum
		kernel = "gonum"
	}
	slog.Debug("[distance] compute kernel selected", "kernel", kernel, "cpu", cpuid.CPU.BrandName)
}

// DistanceMetric defines the type of distance calculation to perform.
type DistanceMetric string

// PrecisionType defines the data type used to store rows during distance evaluation.
type PrecisionType string

const (
	// Euclidean represents the squared Euclidean distance metric.
	Euclidean DistanceMetric = "euclidean"
	// Cosine represents the cosine distance metric (1 - cosine similarity).
	// Rows must be L2-normalised before they reach the kernel.
	Cosine DistanceMetric = "cosine"

	// Float64 keeps rows at full precision.
	Float64 PrecisionType = "float64"
	// Float16 stores rows as IEEE 754 half-precision bits.
	Float16 PrecisionType = "float16"
)

// ErrLengthMismatch is returned when two rows of different length are compared.
var ErrLengthMismatch = errors.New("vectors must have the same length")

type DistanceFuncF64 func(v1, v2 []float64) (float64, error)
type DistanceFuncF16 func(v1, v2 []uint16) (float64, error)

// kernel names the active float64 implementation, for diagnostics only.
var kernel = "pure-go"

// Kernel reports which float64 implementation was selected at start-up.
func Kernel() string { return kernel }

// diffWorkspace holds scratch slices for the BLAS Euclidean kernel so that
// the hot loop of a neighbourhood build does not allocate.
var diffWorkspace = sync.Pool{
	New: func() interface{} {
		s := make([]float64, 64)
		return &s
	},
}

// --- Pure Go kernels ---

func squaredEuclideanGo(v1, v2 []float64) (float64, error) {
	if len(v1) != len(v2) {
		return 0, ErrLengthMismatch
	}
	var sum float64
	for i := range v1 {
		diff := v1[i] - v2[i]
		sum += diff * diff
	}
	return sum, nil
}

func dotProductAsDistanceGo(v1, v2 []float64) (float64, error) {
	if len(v1) != len(v2) {
		return 0, ErrLengthMismatch
	}
	var dot float64
	for i := range v1 {
		dot += v1[i] * v2[i]
	}
	return 1.0 - dot, nil
}

func squaredEuclideanGoFloat16(v1, v2 []uint16) (float64, error) {
	if len(v1) != len(v2) {
		return 0, ErrLengthMismatch
	}
	var sum float64
	for i := range v1 {
		f1 := float64(float16.Frombits(v1[i]).Float32())
		f2 := float64(float16.Frombits(v2[i]).Float32())
		diff := f1 - f2
		sum += diff * diff
	}
	return sum, nil
}

// --- Gonum kernels ---

var gonumEngine = gonum.Implementation{}

func squaredEuclideanGonum(v1, v2 []float64) (float64, error) {
	n := len(v1)
	if n != len(v2) {
		return 0, ErrLengthMismatch
	}

	diffPtr := diffWorkspace.Get().(*[]float64)
	defer diffWorkspace.Put(diffPtr)
	if cap(*diffPtr) < n {
		*diffPtr = make([]float64, n)
	}
	diff := (*diffPtr)[:n]

	copy(diff, v1)
	gonumEngine.Daxpy(n, -1, v2, 1, diff, 1)
	return gonumEngine.Ddot(n, diff, 1, diff, 1), nil
}

func dotProductAsDistanceGonum(v1, v2 []float64) (float64, error) {
	if len(v1) != len(v2) {
		return 0, ErrLengthMismatch
	}
	return 1.0 - gonumEngine.Ddot(len(v1), v1, 1, v2, 1), nil
}

// --- Catalogs ---

var float64Funcs = map[DistanceMetric]DistanceFuncF64{
	Euclidean: squaredEuclideanGo,
	Cosine:    dotProductAsDistanceGo,
}

var float16Funcs = map[DistanceMetric]DistanceFuncF16{
	Euclidean: squaredEuclideanGoFloat16,
}

// GetFloat64Func returns the distance function for a metric at float64 precision.
func GetFloat64Func(metric DistanceMetric) (DistanceFuncF64, error) {
	fn, ok := float64Funcs[metric]
	if !ok {
		return nil, fmt.Errorf("metric '%s' not supported for float64 precision", metric)
	}
	return fn, nil
}

// GetFloat16Func returns the distance function for a metric at float16 precision.
func GetFloat16Func(metric DistanceMetric) (DistanceFuncF16, error) {
	fn, ok := float16Funcs[metric]
	if !ok {
		return nil, fmt.Errorf("metric '%s' not supported for float16 precision", metric)
	}
	return fn, nil
}

// ToFloat16 converts a float64 row into half-precision bits.
func ToFloat16(v []float64) []uint16 {
	out := make([]uint16, len(v))
	for i, x := range v {
		out[i] = float16.Fromfloat32(float32(x)).Bits()
	}
	return out
}

// Normalize scales v to unit L2 norm in place. Zero rows are left untouched.
func Normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] *= inv
	}
}
