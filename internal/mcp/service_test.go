package mcp

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"testing"

	"github.com/sanonone/refclass/pkg/classify"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := classify.DefaultConfig()
	cfg.ClusteringAlgorithm = "kmeans"
	cfg.NClustersHint = 2
	c, err := classify.New(cfg, classify.WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	return NewService(c, logger)
}

func twoGroups() ([][]float64, []bool) {
	rng := rand.New(rand.NewSource(9))
	var features [][]float64
	var reference []bool
	for i := 0; i < 30; i++ {
		center := 0.1
		if i >= 20 {
			center = 5
		}
		features = append(features, []float64{center + 0.05*rng.NormFloat64(), center + 0.05*rng.NormFloat64()})
		reference = append(reference, i < 20)
	}
	return features, reference
}

func TestClassifyTool(t *testing.T) {
	s := newTestService(t)
	features, reference := twoGroups()

	_, out, err := s.Classify(context.Background(), nil, ClassifyArgs{Features: features, Reference: reference, Verbose: true})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != string(classify.StatusOK) || out.RunID == "" {
		t.Fatalf("unexpected result header: %+v", out)
	}
	if out.Counts["Baseline"] != 20 || out.Counts["Signal"] != 10 {
		t.Errorf("counts = %v", out.Counts)
	}
	if out.Items[0].Score == nil || out.Items[0].Posterior == nil {
		t.Error("verbose call should carry item scores")
	}
}

func TestClassifyToolOverrides(t *testing.T) {
	s := newTestService(t)
	features, reference := twoGroups()

	if _, _, err := s.Classify(context.Background(), nil, ClassifyArgs{
		Features: features, Reference: reference, Config: "n_neighbors: 0\n",
	}); err == nil {
		t.Error("invalid override should fail")
	}

	_, out, err := s.Classify(context.Background(), nil, ClassifyArgs{
		Features: features, Reference: make([]bool, len(features)), Config: "refp_min: 0.5\n",
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != string(classify.StatusNoReferenceCluster) || out.Counts["NA"] != len(features) {
		t.Errorf("unflagged input: %+v", out)
	}
}

func TestDescribeConfig(t *testing.T) {
	_, out, err := newTestService(t).DescribeConfig(context.Background(), nil, DescribeConfigArgs{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.Config, "clustering_algorithm: kmeans") {
		t.Errorf("config dump missing algorithm:\n%s", out.Config)
	}
}
