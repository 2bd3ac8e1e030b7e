package classify

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/sanonone/refclass/pkg/mixture"
)

// RawMagnitude is the root mean square of a profile, scaled by 100.
func RawMagnitude(row []float64) float64 {
	if len(row) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(row, row)/float64(len(row))) * 100
}

// NoveltyProbability squashes a novelty score into (0, 1); more novel items
// score closer to 1.
func NoveltyProbability(novelty, gcm float64) float64 {
	return 1 / (1 + math.Exp(-novelty*gcm))
}

// CompositeScore combines magnitude and novelty into the log-scale score used
// for Baseline/Signal calls.
func CompositeScore(rawMagnitude, novelty, gcm float64) float64 {
	return math.Log(rawMagnitude*NoveltyProbability(novelty, gcm) + mixture.MinAbsValue)
}

// FastCall is the advisory per-item call: Signal when the composite score is
// positive.
func FastCall(composite float64) Decision {
	if composite > 0 {
		return Signal
	}
	return Baseline
}

// noveltyModel is a Gaussian mixture fitted on Baseline items only.
type noveltyModel struct {
	gmm *mixture.GaussianMixture
}

// fitNovelty fits the density model on the rows listed in baseline.
func fitNovelty(rows [][]float64, baseline []int, components int, seed int64, maxIter int) (*noveltyModel, error) {
	train := make([][]float64, len(baseline))
	for i, idx := range baseline {
		train[i] = rows[idx]
	}
	gmm, err := mixture.FitGMM(train, mixture.GMMOptions{
		Components: components,
		MaxIter:    maxIter,
		Seed:       seed,
	})
	if err != nil {
		return nil, err
	}
	return &noveltyModel{gmm: gmm}, nil
}

// Novelty returns the negative log-likelihood of every row.
func (n *noveltyModel) Novelty(rows [][]float64) []float64 {
	ll := n.gmm.LogLikelihoods(rows)
	floats.Scale(-1, ll)
	return ll
}

func (n *noveltyModel) Components() int { return n.gmm.K() }
