package mixture

import "fmt"

// FitBimodal fits an unconstrained two-component Gaussian mixture to a set of
// scalar scores and returns it as a Model relabelled by ascending mean.
func FitBimodal(scores []float64, seed int64, maxIter int) (Model, error) {
	if len(scores) < 2 {
		return Model{}, fmt.Errorf("mixture: bimodal fit needs at least 2 scores, got %d", len(scores))
	}
	rows := make([][]float64, len(scores))
	for i, s := range scores {
		rows[i] = []float64{s}
	}
	g, err := FitGMM(rows, GMMOptions{Components: 2, Seed: seed, MaxIter: maxIter})
	if err != nil {
		return Model{}, err
	}
	if g.K() < 2 {
		// Only reachable with fewer rows than components; mirrors the single component.
		v := g.Covariances[0].At(0, 0)
		return NewModel(1, g.Means[0][0], v, 0, g.Means[0][0], v), nil
	}
	return NewModel(
		g.Weights[0], g.Means[0][0], g.Covariances[0].At(0, 0),
		g.Weights[1], g.Means[1][0], g.Covariances[1].At(0, 0),
	), nil
}
