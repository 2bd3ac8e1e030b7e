package mixture

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"
)

// ErrSingularCovariance is returned when a component covariance stays
// non positive definite after every regularisation attempt.
var ErrSingularCovariance = errors.New("mixture: covariance is not positive definite")

const (
	defaultMaxIter  = 100
	defaultTol      = 1e-3
	defaultRegCovar = 1e-6
	// tiny keeps empty components from dividing by zero.
	tiny = 10 * 2.220446049250313e-16
	// regRetries bounds how many times the diagonal jitter is raised tenfold.
	regRetries = 8
)

// GMMOptions configures FitGMM. Zero values select the defaults.
type GMMOptions struct {
	Components int
	MaxIter    int
	Tol        float64
	RegCovar   float64
	Seed       int64
}

// GaussianMixture is a fitted full-covariance Gaussian mixture.
type GaussianMixture struct {
	Weights     []float64
	Means       [][]float64
	Covariances []*mat.SymDense
	Converged   bool
	Iterations  int
	// LowerBound is the mean per-row log-likelihood at the last E-step.
	LowerBound float64

	dim        int
	components []*distmv.Normal
}

// FitGMM fits a Gaussian mixture with EM, initialised from k-means labels.
// The number of components is clamped to the number of rows.
func FitGMM(rows [][]float64, opts GMMOptions) (*GaussianMixture, error) {
	n := len(rows)
	if n == 0 {
		return nil, ErrNoData
	}
	if opts.Components < 1 {
		return nil, fmt.Errorf("mixture: components must be positive, got %d", opts.Components)
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = defaultMaxIter
	}
	if opts.Tol <= 0 {
		opts.Tol = defaultTol
	}
	if opts.RegCovar <= 0 {
		opts.RegCovar = defaultRegCovar
	}
	k := opts.Components
	if k > n {
		k = n
	}
	dim := len(rows[0])
	for i, r := range rows {
		if len(r) != dim {
			return nil, fmt.Errorf("mixture: row %d has %d columns, want %d", i, len(r), dim)
		}
	}

	km, err := KMeans(rows, k, KMeansOptions{Seed: opts.Seed})
	if err != nil {
		return nil, err
	}

	g := &GaussianMixture{
		Weights:     make([]float64, k),
		Means:       km.Centers,
		Covariances: make([]*mat.SymDense, k),
		dim:         dim,
	}
	fallback := diagonalVariance(rows, opts.RegCovar)
	for c := range g.Covariances {
		g.Covariances[c] = mat.NewSymDense(dim, nil)
		g.Covariances[c].CopySym(fallback)
	}

	resp := make([][]float64, n)
	for i := range resp {
		resp[i] = make([]float64, k)
		resp[i][km.Labels[i]] = 1
	}
	if err := g.mStep(rows, resp, opts.RegCovar); err != nil {
		return nil, err
	}

	lowerBound := math.Inf(-1)
	for iter := 1; iter <= opts.MaxIter; iter++ {
		prev := lowerBound
		lowerBound = g.eStep(rows, resp)
		if err := g.mStep(rows, resp, opts.RegCovar); err != nil {
			return nil, err
		}
		g.Iterations = iter
		if math.Abs(lowerBound-prev) < opts.Tol {
			g.Converged = true
			break
		}
	}
	g.LowerBound = lowerBound
	return g, nil
}

// K returns the number of components.
func (g *GaussianMixture) K() int { return len(g.Weights) }

// eStep fills resp with posterior responsibilities and returns the mean
// log-likelihood of rows.
func (g *GaussianMixture) eStep(rows [][]float64, resp [][]float64) float64 {
	var total float64
	for i, r := range rows {
		logp := g.weightedLogProbs(r, resp[i])
		lse := floats.LogSumExp(logp)
		for c := range logp {
			logp[c] = math.Exp(logp[c] - lse)
		}
		total += lse
	}
	return total / float64(len(rows))
}

// mStep re-estimates weights, means and covariances from resp and rebuilds
// the component densities.
func (g *GaussianMixture) mStep(rows [][]float64, resp [][]float64, reg float64) error {
	n := len(rows)
	k := len(g.Weights)
	diff := make([]float64, g.dim)

	for c := 0; c < k; c++ {
		var nk float64
		for i := range rows {
			nk += resp[i][c]
		}
		nk += tiny
		g.Weights[c] = nk / float64(n)

		// Components without support keep their previous parameters.
		if nk < 1e-10 {
			continue
		}

		mean := make([]float64, g.dim)
		for i, r := range rows {
			floats.AddScaled(mean, resp[i][c], r)
		}
		floats.Scale(1/nk, mean)

		cov := mat.NewSymDense(g.dim, nil)
		for i, r := range rows {
			if resp[i][c] == 0 {
				continue
			}
			floats.SubTo(diff, r, mean)
			cov.SymRankOne(cov, resp[i][c]/nk, mat.NewVecDense(g.dim, diff))
		}
		for d := 0; d < g.dim; d++ {
			cov.SetSym(d, d, cov.At(d, d)+reg)
		}

		g.Means[c] = mean
		g.Covariances[c] = cov
	}

	return g.prepare(reg)
}

// prepare builds a distmv.Normal per component, raising the diagonal jitter
// tenfold until the covariance factorises.
func (g *GaussianMixture) prepare(reg float64) error {
	g.components = make([]*distmv.Normal, len(g.Weights))
	for c := range g.Weights {
		cov := g.Covariances[c]
		jitter := reg
		for attempt := 0; ; attempt++ {
			normal, ok := distmv.NewNormal(g.Means[c], cov, nil)
			if ok {
				g.components[c] = normal
				g.Covariances[c] = cov
				break
			}
			if attempt == regRetries {
				return fmt.Errorf("component %d: %w", c, ErrSingularCovariance)
			}
			jitter *= 10
			bumped := mat.NewSymDense(g.dim, nil)
			bumped.CopySym(cov)
			for d := 0; d < g.dim; d++ {
				bumped.SetSym(d, d, bumped.At(d, d)+jitter)
			}
			cov = bumped
		}
	}
	return nil
}

// weightedLogProbs writes log(w_c) + log N(x | mu_c, Sigma_c) into dst.
func (g *GaussianMixture) weightedLogProbs(x []float64, dst []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(g.components))
	}
	for c, comp := range g.components {
		dst[c] = math.Log(g.Weights[c]) + comp.LogProb(x)
	}
	return dst
}

// LogLikelihoods returns the log density of each row under the mixture.
func (g *GaussianMixture) LogLikelihoods(rows [][]float64) []float64 {
	out := make([]float64, len(rows))
	buf := make([]float64, len(g.components))
	for i, r := range rows {
		out[i] = floats.LogSumExp(g.weightedLogProbs(r, buf))
	}
	return out
}

// Predict returns the most probable component for each row. Ties go to the
// lowest component index.
func (g *GaussianMixture) Predict(rows [][]float64) []int {
	out := make([]int, len(rows))
	buf := make([]float64, len(g.components))
	for i, r := range rows {
		out[i] = floats.MaxIdx(g.weightedLogProbs(r, buf))
	}
	return out
}

// diagonalVariance returns diag(var(column)) + reg as a starting covariance.
func diagonalVariance(rows [][]float64, reg float64) *mat.SymDense {
	dim := len(rows[0])
	cov := mat.NewSymDense(dim, nil)
	col := make([]float64, len(rows))
	for d := 0; d < dim; d++ {
		for i, r := range rows {
			col[i] = r[d]
		}
		v := 0.0
		if len(col) > 1 {
			v = stat.PopVariance(col, nil)
		}
		cov.SetSym(d, d, v+reg)
	}
	return cov
}
