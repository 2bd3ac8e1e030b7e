package classify

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sanonone/refclass/pkg/core/bitset"
	"github.com/sanonone/refclass/pkg/mixture"
)

// DefaultGridBins is the number of points scanned for the density crossover.
const DefaultGridBins = 1000

// NoCrossover is the threshold reported when the Signal density never
// overtakes the Baseline density above m0 on the scanned grid.
const NoCrossover = -1.0

// CalibrationParams configures Calibrate.
type CalibrationParams struct {
	Strategy  CalibrationStrategy
	PExc      float64
	MarginUCR float64
	// ThMax clips the threshold into [-ThMax, ThMax] when set.
	ThMax    *float64
	GridBins int
	Seed     int64
	MaxIter  int
}

// Calibration holds the fitted model, the threshold with its margin band and
// the resulting per-cluster decisions.
type Calibration struct {
	Model      mixture.Model
	Threshold  float64
	Crossed    bool
	Lower      float64
	Upper      float64
	Separation float64
	Decisions  []Decision
	Warnings   []Warning
}

// Calibrate fits the two-component model over per-cluster mean scores and
// derives the decision threshold. itemScores holds the member scores of every
// cluster and is only used when a single cluster must stand in for a
// population. reference is the trusted Baseline cluster set and is required by
// StrategyReference.
func Calibrate(clusterScores []float64, itemScores [][]float64, reference []int, p CalibrationParams) (*Calibration, error) {
	k := len(clusterScores)
	if k == 0 {
		return nil, fmt.Errorf("%w: no cluster scores", ErrInvalidInput)
	}
	if len(itemScores) != k {
		return nil, fmt.Errorf("%w: %d item score sets for %d clusters", ErrInvalidInput, len(itemScores), k)
	}
	if p.GridBins <= 0 {
		p.GridBins = DefaultGridBins
	}

	cal := &Calibration{}
	var err error
	switch p.Strategy {
	case StrategyReference, "":
		cal.Model, cal.Warnings, err = referenceModel(clusterScores, itemScores, reference, p.PExc)
	case StrategyBimodal:
		cal.Model, err = bimodalModel(clusterScores, itemScores, p)
	default:
		err = configError("calibration_strategy", "unknown value %q", p.Strategy)
	}
	if err != nil {
		return nil, err
	}
	m := cal.Model

	// 1. Separation diagnostic
	cal.Separation = m.Separation()
	if cal.Separation > 1 {
		cal.Warnings = append(cal.Warnings, newWarning(WarnLowSeparation,
			"std sum over mean gap is %.3g > 1: the input may hold no Signal population", cal.Separation))
	}

	// 2. Density crossover on a grid padded by a quarter of the score range
	lo, hi := floats.Min(clusterScores), floats.Max(clusterScores)
	pad := (hi - lo) / 4
	cal.Threshold, cal.Crossed = m.Crossover(lo-pad, hi+pad, p.GridBins)
	usable := cal.Crossed
	if !cal.Crossed {
		cal.Threshold = NoCrossover
		cal.Warnings = append(cal.Warnings, newWarning(WarnNoCrossover,
			"Signal density never reaches Baseline density above %.4g", m.M0))
	}
	if p.Strategy == StrategyBimodal && cal.Separation > 1 {
		cal.Threshold = m.M0 + math.Sqrt(math.Max(m.V0, 0))
		usable = true
	}

	// 3. Without a usable threshold no cluster scores as Signal.
	cal.Decisions = make([]Decision, k)
	if !usable {
		cal.Lower, cal.Upper = NoCrossover, NoCrossover
		for c := range cal.Decisions {
			cal.Decisions[c] = Baseline
		}
		return cal, nil
	}
	if p.ThMax != nil {
		cal.Threshold = math.Max(-*p.ThMax, math.Min(*p.ThMax, cal.Threshold))
	}

	// 4. Margin band and decisions
	th := cal.Threshold
	cal.Lower = th - (th-m.M0)*p.MarginUCR
	cal.Upper = th + (m.M1-th)*p.MarginUCR
	for c, s := range clusterScores {
		cal.Decisions[c] = cal.decide(s)
	}
	return cal, nil
}

func (c *Calibration) decide(score float64) Decision {
	switch {
	case score > c.Upper:
		return Signal
	case score < c.Lower:
		return Baseline
	default:
		return Unclear
	}
}

// referenceModel estimates Baseline from the reference clusters and Signal
// from the clusters scoring above one Baseline standard deviation, trimmed by
// rank at both ends.
func referenceModel(scores []float64, items [][]float64, reference []int, pExc float64) (mixture.Model, []Warning, error) {
	k := len(scores)
	if len(reference) == 0 {
		return mixture.Model{}, nil, fmt.Errorf("%w: empty reference set", ErrNoReferenceCluster)
	}
	var warnings []Warning

	inRef := bitset.New(k)
	base := make([]float64, 0, len(reference))
	for _, c := range reference {
		if c < 0 || c >= k {
			return mixture.Model{}, nil, fmt.Errorf("%w: reference cluster %d out of range", ErrInvalidInput, c)
		}
		if inRef.Has(c) {
			continue
		}
		inRef.Add(c)
		base = append(base, scores[c])
	}

	// 1. Baseline
	w0 := float64(inRef.Len()) / float64(k)
	m0 := stat.Mean(base, nil)
	var v0 float64
	if len(base) > 1 {
		v0 = stat.Variance(base, nil)
	} else {
		v0 = itemVariance(items[reference[0]])
		warnings = append(warnings, newWarning(WarnSingleReferenceCluster,
			"one reference cluster (%d): Baseline variance taken from its %d items", reference[0], len(items[reference[0]])))
	}

	// 2. Signal candidates
	boundary := m0 + math.Sqrt(v0)
	var cands []int
	for c, s := range scores {
		if !inRef.Has(c) && s > boundary {
			cands = append(cands, c)
		}
	}
	ranked := rankAscending(cands, func(c int) float64 { return scores[c] })
	n := len(ranked)
	trim := int(math.Round(float64(n) * pExc))
	if n-2*trim < 1 {
		trim = (n - 1) / 2
	}
	if n > 0 {
		ranked = ranked[trim : n-trim]
	}

	// 3. Signal
	if len(ranked) == 0 {
		maxScore := floats.Max(scores)
		m1 := m0 + 2*math.Abs(maxScore-m0)
		warnings = append(warnings, newWarning(WarnEmptySignalSet,
			"no cluster scores above %.4g: Signal component synthesized at %.4g", boundary, m1))
		return mixture.Model{W0: w0, M0: m0, V0: v0, W1: 0, M1: m1, V1: v0}, warnings, nil
	}
	sig := make([]float64, len(ranked))
	for i, c := range ranked {
		sig[i] = scores[c]
	}
	w1 := float64(len(sig)) / float64(k)
	m1 := stat.Mean(sig, nil)
	var v1 float64
	if len(sig) > 1 {
		v1 = stat.Variance(sig, nil)
	} else {
		v1 = itemVariance(items[ranked[0]])
	}
	return mixture.Model{W0: w0, M0: m0, V0: v0, W1: w1, M1: m1, V1: v1}, warnings, nil
}

// bimodalModel fits an unconstrained two-component mixture to every cluster
// score. A single cluster yields two coincident components.
func bimodalModel(scores []float64, items [][]float64, p CalibrationParams) (mixture.Model, error) {
	if len(scores) < 2 {
		v := itemVariance(items[0])
		return mixture.Model{W0: 1, M0: scores[0], V0: v, W1: 0, M1: scores[0], V1: v}, nil
	}
	m, err := mixture.FitBimodal(scores, p.Seed, p.MaxIter)
	if err != nil {
		return mixture.Model{}, fmt.Errorf("bimodal calibration: %w", err)
	}
	return m, nil
}

// itemVariance is the sample variance of a cluster's item scores, 0 below two items.
func itemVariance(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return stat.Variance(x, nil)
}
