package classify

import "github.com/sanonone/refclass/pkg/mixture"

// Decision is the call made for an item or cluster.
type Decision string

const (
	Baseline Decision = "Baseline"
	Signal   Decision = "Signal"
	Unclear  Decision = "Unclear"
	// NA marks items of a run that found no reference cluster.
	NA Decision = "NA"
)

// Status tags the outcome of a run.
type Status string

const (
	StatusOK                 Status = "ok"
	StatusNoReferenceCluster Status = "no_reference_cluster"
)

// Input is one classification request. Every slice is indexed by item.
type Input struct {
	IDs      []string    `json:"ids,omitempty"`
	Features [][]float64 `json:"features"`
	// Reference flags known Baseline items. Nil selects unsupervised seeding.
	Reference []bool `json:"reference,omitempty"`
	// Raw profiles used for the magnitude score. Nil reuses Features.
	Raw [][]float64 `json:"raw,omitempty"`
}

// ItemResult is one row of the per-item table.
type ItemResult struct {
	ID        string `json:"id"`
	ClusterID int    `json:"cluster_id"`
	Reference bool   `json:"reference"`

	RawMagnitude float64 `json:"raw_magnitude"`
	NoveltyScore float64 `json:"novelty_score"`
	// NoveltyProbability is the logistic squashing of the novelty score.
	NoveltyProbability float64  `json:"novelty_probability"`
	CompositeScore     float64  `json:"composite_score"`
	Posterior          float64  `json:"posterior_signal_probability"`
	FastCall           Decision `json:"fast_call"`
	Decision           Decision `json:"decision"`
}

// ClusterRecord is one row of the per-cluster table.
type ClusterRecord struct {
	ID                int      `json:"id"`
	Size              int      `json:"size"`
	Members           []int    `json:"members"`
	MeanScore         float64  `json:"mean_score"`
	ReferenceFraction float64  `json:"reference_fraction"`
	Seed              bool     `json:"seed"`
	Selected          bool     `json:"selected"`
	SelectionOrder    int      `json:"selection_order"`
	PairedClusterID   int      `json:"paired_cluster_id"`
	EdgeWeight        float64  `json:"edge_weight"`
	AcceptanceMetric  float64  `json:"acceptance_metric"`
	Posterior         float64  `json:"posterior_signal_probability"`
	Decision          Decision `json:"decision"`
}

// ExpansionStep records how one cluster joined the covering set. Seeds are
// recorded in round 0 with values computed against the other seeds.
type ExpansionStep struct {
	Round           int     `json:"round"`
	ClusterID       int     `json:"cluster_id"`
	ParentID        int     `json:"parent_id"`
	EdgeWeight      float64 `json:"edge_weight"`
	Metric          float64 `json:"metric"`
	AcceptanceValue float64 `json:"acceptance_value"`
	Threshold       float64 `json:"threshold"`
	Seed            bool    `json:"seed"`
	Forced          bool    `json:"forced"`
}

// Summary carries the run-level audit record.
type Summary struct {
	RunID      string              `json:"run_id"`
	Supervised bool                `json:"supervised"`
	Strategy   CalibrationStrategy `json:"strategy"`
	Adjacency  [][]float64         `json:"adjacency"`

	Seeds    []int           `json:"seeds"`
	Selected []int           `json:"selected"`
	Order    []int           `json:"order"`
	Trail    []ExpansionStep `json:"trail"`

	DensityComponents int           `json:"density_components"`
	Model             mixture.Model `json:"model"`
	Threshold         float64       `json:"threshold"`
	Lower             float64       `json:"lower"`
	Upper             float64       `json:"upper"`

	// Separation is nil when the component means coincide.
	Separation *float64 `json:"separation,omitempty"`

	Warnings []Warning `json:"warnings"`
}

// Result is the outcome of one classification run.
type Result struct {
	Status   Status          `json:"status"`
	Items    []ItemResult    `json:"items"`
	Clusters []ClusterRecord `json:"clusters"`
	Summary  Summary         `json:"summary"`
}

func (s *Summary) warn(w Warning) {
	s.Warnings = append(s.Warnings, w)
}
