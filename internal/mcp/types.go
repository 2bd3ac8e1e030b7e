package mcp

// --- Tool Arguments ---

type ClassifyArgs struct {
	Features  [][]float64 `json:"features" jsonschema:"Item feature matrix, one row per item,required"`
	IDs       []string    `json:"ids,omitempty" jsonschema:"Optional item identifiers, same length as features"`
	Reference []bool      `json:"reference,omitempty" jsonschema:"description=Optional reference flags. When given, clusters dominated by flagged items seed the Baseline set."`
	Raw       [][]float64 `json:"raw,omitempty" jsonschema:"Optional raw profiles used for the magnitude score instead of the features"`
	Config    string      `json:"config,omitempty" jsonschema:"description=Optional YAML overrides for this call (e.g. 'n_neighbors: 15'). Defaults to the server configuration."`
	Verbose   bool        `json:"verbose,omitempty" jsonschema:"If true, include per-item scores in the response"`
}

type ClassifyResult struct {
	RunID     string           `json:"run_id"`
	Status    string           `json:"status"`
	Threshold float64          `json:"threshold"`
	Counts    map[string]int   `json:"counts"` // items per decision
	Clusters  []ClusterSummary `json:"clusters"`
	Items     []ItemCall       `json:"items"`
	Warnings  []string         `json:"warnings,omitempty"`
}

type ClusterSummary struct {
	ID        int     `json:"id"`
	Size      int     `json:"size"`
	MeanScore float64 `json:"mean_score"`
	Selected  bool    `json:"selected"`
	Decision  string  `json:"decision"`
}

type ItemCall struct {
	ID        string   `json:"id"`
	ClusterID int      `json:"cluster_id"`
	Decision  string   `json:"decision"`
	Score     *float64 `json:"score,omitempty"`
	Posterior *float64 `json:"posterior,omitempty"`
}

type DescribeConfigArgs struct{}

type DescribeConfigResult struct {
	Config string `json:"config"` // YAML
}
