package cluster

import (
	"log/slog"

	"gonum.org/v1/gonum/graph/community"

	"github.com/sanonone/refclass/pkg/core/knn"
	"github.com/sanonone/refclass/pkg/mixture"
)

func louvainLabels(_ [][]float64, g *knn.Graph, p Params) ([]int, error) {
	w := fromKNN(g)
	labels, comms := louvain(w, p.Resolution, p.Seed)
	slog.Debug("[cluster] louvain finished", "communities", len(comms), "modularity", community.Q(w, comms, p.Resolution))
	return labels, nil
}

func mixtureLabels(rows [][]float64, _ *knn.Graph, p Params) ([]int, error) {
	gmm, err := mixture.FitGMM(rows, mixture.GMMOptions{
		Components: p.NClusters,
		MaxIter:    p.MaxIter,
		Seed:       p.Seed,
	})
	if err != nil {
		return nil, err
	}
	if !gmm.Converged {
		slog.Debug("[cluster] mixture did not converge", "iterations", gmm.Iterations)
	}
	return gmm.Predict(rows), nil
}

func kmeansLabels(rows [][]float64, _ *knn.Graph, p Params) ([]int, error) {
	res, err := mixture.KMeans(rows, p.NClusters, mixture.KMeansOptions{Seed: p.Seed})
	if err != nil {
		return nil, err
	}
	return res.Labels, nil
}
