package classify

import (
	"github.com/sanonone/refclass/pkg/cluster"
	"github.com/sanonone/refclass/pkg/core/distance"
)

// ExpansionMode selects how edge weights to the core set are aggregated.
type ExpansionMode string

const (
	ExpandMax ExpansionMode = "max"
	ExpandSum ExpansionMode = "sum"
)

// CalibrationStrategy selects how the two-component model is fitted.
type CalibrationStrategy string

const (
	// StrategyReference estimates Baseline from the selected clusters and
	// Signal from the rest.
	StrategyReference CalibrationStrategy = "reference"
	// StrategyBimodal fits an unconstrained two-component mixture to every
	// cluster score.
	StrategyBimodal CalibrationStrategy = "bimodal"
)

// Config holds every tunable of a classification run, loaded from YAML.
type Config struct {
	// Clustering
	ClusteringAlgorithm cluster.Algorithm       `yaml:"clustering_algorithm" json:"clustering_algorithm"`
	NClustersHint       int                     `yaml:"n_clusters_hint" json:"n_clusters_hint"` // 0 = auto
	NNeighbors          int                     `yaml:"n_neighbors" json:"n_neighbors"`
	Resolution          float64                 `yaml:"resolution" json:"resolution"`
	DistanceMetric      distance.DistanceMetric `yaml:"distance_metric" json:"distance_metric"`
	Precision           distance.PrecisionType  `yaml:"precision" json:"precision"`
	Workers             int                     `yaml:"workers" json:"workers"` // 0 = NumCPU

	// Seeding and expansion. Exactly one of ConnectivityThreshold (alpha)
	// and PValueCutoff must be set.
	SeedCutoff            float64       `yaml:"seed_cutoff" json:"seed_cutoff"`
	RefPMin               float64       `yaml:"refp_min" json:"refp_min"`
	ConnectivityThreshold *float64      `yaml:"connectivity_threshold" json:"connectivity_threshold,omitempty"`
	PValueCutoff          *float64      `yaml:"pv_cutoff" json:"pv_cutoff,omitempty"`
	ExpansionMode         ExpansionMode `yaml:"expansion_mode" json:"expansion_mode"`

	// Density novelty model
	DensityComponents int     `yaml:"density_components" json:"density_components"` // 0 = auto
	GCM               float64 `yaml:"density_calibration_gcm" json:"density_calibration_gcm"`
	MaxEMIterations   int     `yaml:"max_em_iterations" json:"max_em_iterations"`

	// Calibration
	CalibrationStrategy CalibrationStrategy `yaml:"calibration_strategy" json:"calibration_strategy"`
	PExc                float64             `yaml:"p_exc" json:"p_exc"`
	MarginUCR           float64             `yaml:"margin_ucr" json:"margin_ucr"`
	ThMax               *float64            `yaml:"th_max" json:"th_max,omitempty"` // nil = no clipping

	RandomSeed int64 `yaml:"random_seed" json:"random_seed"`
}

// DefaultConfig returns the configuration used when no file is supplied.
func DefaultConfig() Config {
	alpha := 0.08
	return Config{
		ClusteringAlgorithm: cluster.Graph,
		NNeighbors:          10,
		Resolution:          1,
		DistanceMetric:      distance.Euclidean,
		Precision:           distance.Float64,

		SeedCutoff:            0.01,
		RefPMin:               0.9,
		ConnectivityThreshold: &alpha,
		ExpansionMode:         ExpandSum,

		GCM:             0.05,
		MaxEMIterations: 100,

		CalibrationStrategy: StrategyReference,
		PExc:                0.1,
		MarginUCR:           0.1,
	}
}

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	switch c.ClusteringAlgorithm {
	case cluster.Graph, cluster.Mixture, cluster.KMeans:
	default:
		return configError("clustering_algorithm", "unknown value %q", c.ClusteringAlgorithm)
	}
	if c.NClustersHint < 0 {
		return configError("n_clusters_hint", "must be >= 0, got %d", c.NClustersHint)
	}
	if c.NNeighbors < 1 {
		return configError("n_neighbors", "must be >= 1, got %d", c.NNeighbors)
	}
	if c.Resolution <= 0 {
		return configError("resolution", "must be > 0, got %v", c.Resolution)
	}
	switch c.DistanceMetric {
	case distance.Euclidean, distance.Cosine:
	default:
		return configError("distance_metric", "unknown value %q", c.DistanceMetric)
	}
	switch c.Precision {
	case distance.Float64:
	case distance.Float16:
		if c.DistanceMetric != distance.Euclidean {
			return configError("precision", "float16 only supports the euclidean metric")
		}
	default:
		return configError("precision", "unknown value %q", c.Precision)
	}
	if c.Workers < 0 {
		return configError("workers", "must be >= 0, got %d", c.Workers)
	}

	switch {
	case c.ConnectivityThreshold == nil && c.PValueCutoff == nil:
		return configError("connectivity_threshold", "one of connectivity_threshold or pv_cutoff must be set")
	case c.ConnectivityThreshold != nil && c.PValueCutoff != nil:
		return configError("connectivity_threshold", "connectivity_threshold and pv_cutoff are mutually exclusive")
	case c.ConnectivityThreshold != nil && *c.ConnectivityThreshold < 0:
		return configError("connectivity_threshold", "must be >= 0, got %v", *c.ConnectivityThreshold)
	case c.PValueCutoff != nil && (*c.PValueCutoff < 0 || *c.PValueCutoff > 1):
		return configError("pv_cutoff", "must be in [0,1], got %v", *c.PValueCutoff)
	}
	switch c.ExpansionMode {
	case ExpandMax, ExpandSum:
	default:
		return configError("expansion_mode", "unknown value %q", c.ExpansionMode)
	}

	fractions := []struct {
		key string
		v   float64
	}{
		{"seed_cutoff", c.SeedCutoff},
		{"refp_min", c.RefPMin},
		{"p_exc", c.PExc},
		{"margin_ucr", c.MarginUCR},
	}
	for _, f := range fractions {
		if f.v < 0 || f.v > 1 {
			return configError(f.key, "must be in [0,1], got %v", f.v)
		}
	}

	if c.DensityComponents < 0 {
		return configError("density_components", "must be >= 0, got %d", c.DensityComponents)
	}
	if c.GCM <= 0 {
		return configError("density_calibration_gcm", "must be > 0, got %v", c.GCM)
	}
	if c.MaxEMIterations < 1 {
		return configError("max_em_iterations", "must be >= 1, got %d", c.MaxEMIterations)
	}
	switch c.CalibrationStrategy {
	case StrategyReference, StrategyBimodal:
	default:
		return configError("calibration_strategy", "unknown value %q", c.CalibrationStrategy)
	}
	if c.ThMax != nil && *c.ThMax < 0 {
		return configError("th_max", "must be >= 0, got %v", *c.ThMax)
	}
	return nil
}
