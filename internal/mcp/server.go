package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sanonone/refclass/pkg/classify"
)

// Version is reported to MCP clients on initialisation.
const Version = "0.1.0"

// NewMCPServer registers the classification tools on a new MCP server.
func NewMCPServer(c *classify.Classifier, logger *slog.Logger) *mcp.Server {
	service := NewService(c, logger)

	s := mcp.NewServer(&mcp.Implementation{
		Name:    "refclass",
		Version: Version,
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "classify_items",
		Description: "Cluster a feature matrix and call every cluster Baseline, Signal or Unclear, anchored on reference flags or on the densest community of clusters.",
	}, service.Classify)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "describe_config",
		Description: "Return the server's classification configuration as YAML.",
	}, service.DescribeConfig)

	return s
}

// Serve runs the server over stdin/stdout until ctx is done or the client disconnects.
func Serve(ctx context.Context, c *classify.Classifier, logger *slog.Logger) error {
	logger.Info("[MCP] serving on stdio", "version", Version)
	return NewMCPServer(c, logger).Run(ctx, &mcp.StdioTransport{})
}
