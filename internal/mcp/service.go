package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"

	"github.com/sanonone/refclass/pkg/classify"
)

// Service implements the MCP tool handlers on top of a classifier.
type Service struct {
	classifier *classify.Classifier
	logger     *slog.Logger
}

// NewService wraps c; logger is passed to classifiers built for per-call overrides.
func NewService(c *classify.Classifier, logger *slog.Logger) *Service {
	return &Service{classifier: c, logger: logger}
}

// classifierFor returns the server classifier, or a fresh one when the call
// carries YAML overrides on top of the server configuration.
func (s *Service) classifierFor(overrides string) (*classify.Classifier, error) {
	if overrides == "" {
		return s.classifier, nil
	}
	cfg, err := s.classifier.Config().Overlay([]byte(overrides))
	if err != nil {
		return nil, err
	}
	return classify.New(cfg, classify.WithLogger(s.logger))
}

// --- Tool Handlers ---

func (s *Service) Classify(ctx context.Context, req *mcp.CallToolRequest, args ClassifyArgs) (*mcp.CallToolResult, ClassifyResult, error) {
	c, err := s.classifierFor(args.Config)
	if err != nil {
		return nil, ClassifyResult{}, fmt.Errorf("config error: %w", err)
	}

	res, err := c.Classify(classify.Input{
		IDs:       args.IDs,
		Features:  args.Features,
		Reference: args.Reference,
		Raw:       args.Raw,
	})
	if err != nil {
		return nil, ClassifyResult{}, err
	}

	out := ClassifyResult{
		RunID:     res.Summary.RunID,
		Status:    string(res.Status),
		Threshold: res.Summary.Threshold,
		Counts:    make(map[string]int),
		Clusters:  make([]ClusterSummary, len(res.Clusters)),
		Items:     make([]ItemCall, len(res.Items)),
	}
	for i, cl := range res.Clusters {
		out.Clusters[i] = ClusterSummary{
			ID:        cl.ID,
			Size:      cl.Size,
			MeanScore: cl.MeanScore,
			Selected:  cl.Selected,
			Decision:  string(cl.Decision),
		}
	}
	for i, it := range res.Items {
		call := ItemCall{ID: it.ID, ClusterID: it.ClusterID, Decision: string(it.Decision)}
		if args.Verbose && res.Status == classify.StatusOK {
			score, post := it.CompositeScore, it.Posterior
			call.Score, call.Posterior = &score, &post
		}
		out.Items[i] = call
		out.Counts[call.Decision]++
	}
	for _, w := range res.Summary.Warnings {
		out.Warnings = append(out.Warnings, fmt.Sprintf("%s: %s", w.Code, w.Message))
	}
	return nil, out, nil
}

func (s *Service) DescribeConfig(ctx context.Context, req *mcp.CallToolRequest, args DescribeConfigArgs) (*mcp.CallToolResult, DescribeConfigResult, error) {
	data, err := yaml.Marshal(s.classifier.Config())
	if err != nil {
		return nil, DescribeConfigResult{}, err
	}
	return nil, DescribeConfigResult{Config: string(data)}, nil
}
