// Package mixture implements the statistical models behind the classifier:
// a two-component Gaussian Model over cluster-level scores with its posterior
// and crossover threshold, a full-covariance Gaussian mixture fitted with EM,
// and k-means used both as a clustering backend and as EM initialisation.
package mixture

import (
	"math"
)

// MinAbsValue floors densities and posteriors.
const MinAbsValue = 1e-8

// Model is a two-component Gaussian model. Component 0 is the Baseline
// population and always has the lower mean.
type Model struct {
	W0 float64 `json:"w0"`
	M0 float64 `json:"m0"`
	V0 float64 `json:"v0"`
	W1 float64 `json:"w1"`
	M1 float64 `json:"m1"`
	V1 float64 `json:"v1"`
}

// NewModel builds a Model, swapping the components if they are given in
// descending mean order.
func NewModel(w0, m0, v0, w1, m1, v1 float64) Model {
	if m1 < m0 {
		w0, m0, v0, w1, m1, v1 = w1, m1, v1, w0, m0, v0
	}
	return Model{W0: w0, M0: m0, V0: v0, W1: w1, M1: m1, V1: v1}
}

// weights returns the mixing weights used for density comparisons. A model
// with a non-positive weight (a synthesized Signal component) is compared
// unweighted.
func (m Model) weights() (float64, float64) {
	if m.W0 <= 0 || m.W1 <= 0 {
		return 1, 1
	}
	return m.W0, m.W1
}

func logGaussian(x, w, mu, v float64) float64 {
	v = math.Max(v, MinAbsValue)
	d := x - mu
	return math.Log(w) - 0.5*math.Log(2*math.Pi*v) - d*d/(2*v)
}

// LogDensities returns the weight-scaled log densities of both components at x.
func (m Model) LogDensities(x float64) (float64, float64) {
	w0, w1 := m.weights()
	return logGaussian(x, w0, m.M0, m.V0), logGaussian(x, w1, m.M1, m.V1)
}

// peak returns the point beyond which the density ratio pdf1/pdf0 starts
// falling again, or +Inf if it never does.
func (m Model) peak() float64 {
	v0 := math.Max(m.V0, MinAbsValue)
	v1 := math.Max(m.V1, MinAbsValue)
	if v1 >= v0 {
		return math.Inf(1)
	}
	return (m.M0/v0 - m.M1/v1) / (1/v0 - 1/v1)
}

// Posterior returns the probability that x was drawn from the Signal
// component. It is MinAbsValue below the Baseline mean and non-decreasing
// above it: when the Signal component is narrower than the Baseline one the
// ratio is held at its maximum past the peak.
func (m Model) Posterior(x float64) float64 {
	if math.IsNaN(x) || x < m.M0 {
		return MinAbsValue
	}
	if p := m.peak(); x > p {
		x = p
	}
	// The ratio is taken in log space so tails far from both means do not
	// collapse to 0/0.
	l0, l1 := m.LogDensities(x)
	post := 1 / (1 + math.Exp(l0-l1))
	return math.Min(1, math.Max(MinAbsValue, post))
}

// Separation returns (sqrt(v1)+sqrt(v0))/(m1-m0). Values above 1 mean the two
// components overlap heavily. Coincident means give +Inf.
func (m Model) Separation() float64 {
	gap := m.M1 - m.M0
	if gap <= 0 {
		return math.Inf(1)
	}
	return (math.Sqrt(math.Max(m.V1, 0)) + math.Sqrt(math.Max(m.V0, 0))) / gap
}

// Crossover scans bins evenly spaced points in [lo, hi) and returns the first
// x > M0 where the Signal density meets or exceeds the Baseline density. With
// a light Signal component the crossing can lie above M1. ok is false when no
// grid point qualifies.
func (m Model) Crossover(lo, hi float64, bins int) (x float64, ok bool) {
	if bins < 1 || hi < lo {
		return 0, false
	}
	step := (hi - lo) / float64(bins)
	for i := 0; i < bins; i++ {
		x = lo + float64(i)*step
		if x <= m.M0 {
			continue
		}
		l0, l1 := m.LogDensities(x)
		if l1 >= l0 {
			return x, true
		}
	}
	return 0, false
}
