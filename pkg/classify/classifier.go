// Package classify implements reference-anchored cluster classification.
//
// A run clusters the item rows, picks a seed set of Baseline clusters (from
// reference flags, or from the densest community of the cluster graph when no
// flags are given), grows it over the cluster adjacency graph, scores every
// item by magnitude and novelty against a density model of the Baseline items,
// and finally calibrates a two-component model over per-cluster scores to call
// each cluster Baseline, Signal or Unclear.
//
// A Classifier holds no mutable state: concurrent calls to Classify are safe
// as long as each call owns its Input.
package classify

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/sanonone/refclass/pkg/cluster"
	"github.com/sanonone/refclass/pkg/metrics"
)

// Classifier runs classifications with a fixed configuration.
type Classifier struct {
	cfg    Config
	engine cluster.Engine
	logger *slog.Logger
}

// Option customises a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Classifier) { c.logger = l }
}

// WithEngine replaces the clustering backend selected by the configuration.
func WithEngine(e cluster.Engine) Option {
	return func(c *Classifier) { c.engine = e }
}

// New validates cfg and returns a Classifier.
func New(cfg Config, opts ...Option) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Classifier{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	if c.engine == nil {
		e, err := cluster.New(cfg.ClusteringAlgorithm)
		if err != nil {
			return nil, configError("clustering_algorithm", "%v", err)
		}
		c.engine = e
	}
	return c, nil
}

// Config returns the configuration the Classifier was built with.
func (c *Classifier) Config() Config { return c.cfg }

// Classify runs one classification. A run that finds no reference cluster is
// not an error: it returns StatusNoReferenceCluster with every item marked NA.
func (c *Classifier) Classify(in Input) (*Result, error) {
	start := time.Now()
	res, err := c.classify(in)

	run := metrics.Run{Seconds: time.Since(start).Seconds(), Status: "error"}
	if err != nil {
		metrics.ObserveRun(run)
		c.logger.Error("[Classify] run failed", "error", err)
		return nil, err
	}
	run.Status = string(res.Status)
	run.Clusters = len(res.Clusters)
	for _, step := range res.Summary.Trail {
		if step.Forced {
			run.ForcedExpansions++
		}
	}
	for _, w := range res.Summary.Warnings {
		run.WarningCodes = append(run.WarningCodes, string(w.Code))
	}
	metrics.ObserveRun(run)

	c.logger.Info("[Classify] run complete",
		"run_id", res.Summary.RunID,
		"status", res.Status,
		"items", len(res.Items),
		"clusters", len(res.Clusters),
		"threshold", res.Summary.Threshold,
		"duration", time.Since(start))
	return res, nil
}

func (c *Classifier) classify(in Input) (*Result, error) {
	cfg := c.cfg
	if err := validateInput(in); err != nil {
		return nil, err
	}
	n := len(in.Features)
	summary := Summary{
		RunID:      uuid.NewString(),
		Supervised: in.Reference != nil,
		Strategy:   cfg.CalibrationStrategy,
	}
	log := c.logger.With("run_id", summary.RunID)

	// 1. Sanitize a private copy of the features
	rows := copyRows(in.Features)
	repaired, err := sanitize(rows)
	if err != nil {
		return nil, err
	}
	if repaired > 0 {
		summary.warn(newWarning(WarnZeroRowsRepaired, "%d all-zero rows replaced by the lowest-sum non-zero row", repaired))
	}

	// 2. Raw magnitudes
	raw := in.Raw
	if raw == nil {
		raw = rows
	}
	magnitudes := make([]float64, n)
	for i, r := range raw {
		magnitudes[i] = RawMagnitude(r)
	}

	// 3. Clustering
	part, err := c.engine.Cluster(rows, cluster.Params{
		NClusters:  cfg.NClustersHint,
		NNeighbors: cfg.NNeighbors,
		Resolution: cfg.Resolution,
		Metric:     cfg.DistanceMetric,
		Precision:  cfg.Precision,
		Seed:       cfg.RandomSeed,
		MaxIter:    cfg.MaxEMIterations,
		Workers:    cfg.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("clustering: %w", err)
	}
	summary.Adjacency = part.Adjacency
	fracs := ReferenceFractions(part.Labels, part.K, in.Reference)
	log.Debug("[Classify] clustered", "clusters", part.K, "sizes", part.Sizes)

	// 4. Seeds
	var seeds []int
	if in.Reference != nil {
		seeds, err = SupervisedSeeds(fracs, cfg.RefPMin)
	} else {
		seeds, err = UnsupervisedSeeds(part.Adjacency, cfg.SeedCutoff)
	}
	if errors.Is(err, ErrNoReferenceCluster) {
		log.Warn("[Classify] no reference cluster", "error", err)
		summary.warn(newWarning(WarnNoReferenceCluster, "%v", err))
		return noReferenceResult(in, part, fracs, summary), nil
	}
	if err != nil {
		return nil, err
	}

	// 5. Expansion
	ex, err := Expand(part.Adjacency, part.Sizes, seeds, ExpansionParams{
		NNeighbors:   cfg.NNeighbors,
		Mode:         cfg.ExpansionMode,
		Alpha:        cfg.ConnectivityThreshold,
		PValueCutoff: cfg.PValueCutoff,
	})
	if err != nil {
		return nil, fmt.Errorf("expansion: %w", err)
	}
	summary.Seeds, summary.Selected, summary.Order, summary.Trail = ex.Seeds, ex.Selected, ex.Order, ex.Trail
	if ex.ForcedRounds > 0 {
		summary.warn(newWarning(WarnForcedExpansion, "%d of %d expansion rounds admitted a cluster without passing the acceptance test", ex.ForcedRounds, ex.Rounds))
	}

	// 6. Density novelty model over the items of selected clusters
	selected := make(map[int]bool, len(ex.Selected))
	for _, s := range ex.Selected {
		selected[s] = true
	}
	var baselineItems []int
	for i, l := range part.Labels {
		if selected[l] {
			baselineItems = append(baselineItems, i)
		}
	}
	components := cfg.DensityComponents
	if components == 0 {
		components = max(1, part.K/2)
	}
	nov, err := fitNovelty(rows, baselineItems, components, cfg.RandomSeed, cfg.MaxEMIterations)
	if err != nil {
		return nil, fmt.Errorf("density model: %w", err)
	}
	summary.DensityComponents = nov.Components()
	novelty := nov.Novelty(rows)

	// 7. Composite scores
	items := make([]ItemResult, n)
	clusterItems := make([][]float64, part.K)
	for i := range items {
		composite := CompositeScore(magnitudes[i], novelty[i], cfg.GCM)
		items[i] = ItemResult{
			ID:                 itemID(in, i),
			ClusterID:          part.Labels[i],
			Reference:          in.Reference != nil && in.Reference[i],
			RawMagnitude:       magnitudes[i],
			NoveltyScore:       novelty[i],
			NoveltyProbability: NoveltyProbability(novelty[i], cfg.GCM),
			CompositeScore:     composite,
			FastCall:           FastCall(composite),
		}
		clusterItems[part.Labels[i]] = append(clusterItems[part.Labels[i]], composite)
	}
	means := make([]float64, part.K)
	for k, scores := range clusterItems {
		means[k] = stat.Mean(scores, nil)
	}

	// 8. Calibration
	cal, err := Calibrate(means, clusterItems, ex.Selected, CalibrationParams{
		Strategy:  cfg.CalibrationStrategy,
		PExc:      cfg.PExc,
		MarginUCR: cfg.MarginUCR,
		ThMax:     cfg.ThMax,
		Seed:      cfg.RandomSeed,
		MaxIter:   cfg.MaxEMIterations,
	})
	if err != nil {
		return nil, fmt.Errorf("calibration: %w", err)
	}
	for _, w := range cal.Warnings {
		summary.warn(w)
	}
	summary.Model = cal.Model
	summary.Threshold, summary.Lower, summary.Upper = cal.Threshold, cal.Lower, cal.Upper
	if !math.IsInf(cal.Separation, 0) {
		sep := cal.Separation
		summary.Separation = &sep
	}

	// 9. Assemble
	for i := range items {
		items[i].Posterior = cal.Model.Posterior(items[i].CompositeScore)
		items[i].Decision = cal.Decisions[items[i].ClusterID]
		if items[i].Reference {
			items[i].Decision = Baseline
		}
	}
	clusters := clusterTable(part, fracs)
	for k := range clusters {
		clusters[k].MeanScore = means[k]
		clusters[k].Posterior = cal.Model.Posterior(means[k])
		clusters[k].Decision = cal.Decisions[k]
		clusters[k].Selected = selected[k]
	}
	for _, step := range ex.Trail {
		rec := &clusters[step.ClusterID]
		rec.Seed = step.Seed
		rec.SelectionOrder = -1
		if !step.Seed {
			rec.SelectionOrder = step.Round
		}
		rec.PairedClusterID = step.ParentID
		rec.EdgeWeight = step.EdgeWeight
		rec.AcceptanceMetric = step.AcceptanceValue
	}

	for _, w := range summary.Warnings {
		log.Warn("[Classify] "+w.Message, "code", w.Code)
	}
	return &Result{Status: StatusOK, Items: items, Clusters: clusters, Summary: summary}, nil
}

// noReferenceResult is the explicit outcome of a run without Baseline clusters.
func noReferenceResult(in Input, part *cluster.Partition, fracs []float64, summary Summary) *Result {
	items := make([]ItemResult, len(in.Features))
	for i := range items {
		items[i] = ItemResult{
			ID:        itemID(in, i),
			ClusterID: part.Labels[i],
			Reference: in.Reference != nil && in.Reference[i],
			Decision:  NA,
			FastCall:  NA,
		}
	}
	clusters := clusterTable(part, fracs)
	for k := range clusters {
		clusters[k].Decision = NA
	}
	summary.Threshold = NoCrossover
	return &Result{Status: StatusNoReferenceCluster, Items: items, Clusters: clusters, Summary: summary}
}

func clusterTable(part *cluster.Partition, fracs []float64) []ClusterRecord {
	clusters := make([]ClusterRecord, part.K)
	for k := range clusters {
		clusters[k] = ClusterRecord{
			ID:                k,
			Size:              part.Sizes[k],
			ReferenceFraction: fracs[k],
			SelectionOrder:    -1,
			PairedClusterID:   -1,
		}
	}
	for i, l := range part.Labels {
		clusters[l].Members = append(clusters[l].Members, i)
	}
	return clusters
}

func validateInput(in Input) error {
	n := len(in.Features)
	if n == 0 {
		return fmt.Errorf("%w: empty feature matrix", ErrInvalidInput)
	}
	if err := checkMatrix("features", in.Features); err != nil {
		return err
	}
	if in.Reference != nil && len(in.Reference) != n {
		return fmt.Errorf("%w: %d reference flags for %d items", ErrInvalidInput, len(in.Reference), n)
	}
	if in.IDs != nil && len(in.IDs) != n {
		return fmt.Errorf("%w: %d ids for %d items", ErrInvalidInput, len(in.IDs), n)
	}
	if in.Raw != nil {
		if len(in.Raw) != n {
			return fmt.Errorf("%w: %d raw profiles for %d items", ErrInvalidInput, len(in.Raw), n)
		}
		if err := checkMatrix("raw", in.Raw); err != nil {
			return err
		}
	}
	return nil
}

func checkMatrix(name string, rows [][]float64) error {
	dim := len(rows[0])
	if dim == 0 {
		return fmt.Errorf("%w: %s rows are empty", ErrInvalidInput, name)
	}
	for i, r := range rows {
		if len(r) != dim {
			return fmt.Errorf("%w: %s row %d has %d columns, want %d", ErrInvalidInput, name, i, len(r), dim)
		}
		for _, v := range r {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: %s row %d holds a non-finite value", ErrInvalidInput, name, i)
			}
		}
	}
	return nil
}

func copyRows(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = append([]float64(nil), r...)
	}
	return out
}

func itemID(in Input, i int) string {
	if in.IDs != nil {
		return in.IDs[i]
	}
	return fmt.Sprintf("%d", i)
}
