package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanonone/refclass/internal/mcp"
	"github.com/sanonone/refclass/pkg/classify"
	"github.com/sanonone/refclass/pkg/core/distance"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML classifier configuration (defaults apply when empty)")
	inputPath := flag.String("input", "-", "JSON input file with features, optional ids, reference flags and raw profiles ('-' for stdin)")
	outputPath := flag.String("output", "-", "Where to write the JSON result ('-' for stdout)")
	serveMCP := flag.Bool("mcp", false, "Serve the classify_items tool over MCP on stdio instead of running once")
	metricsAddr := flag.String("metrics-addr", "", "Expose Prometheus metrics on this address (e.g. :9092)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	// Logs go to stderr: stdout carries results or the MCP stream.
	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-level %q\n", *logLevel)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := classify.LoadConfig(*configPath)
	if err != nil {
		logger.Error("Failed to load configuration", "path", *configPath, "error", err)
		os.Exit(1)
	}
	classifier, err := classify.New(cfg, classify.WithLogger(logger))
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.Info("refclass starting",
		"algorithm", cfg.ClusteringAlgorithm,
		"distance", cfg.DistanceMetric,
		"precision", cfg.Precision,
		"kernel", distance.Kernel(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *metricsAddr != "" {
		srv := startMetrics(*metricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	if *serveMCP {
		if err := mcp.Serve(ctx, classifier, logger); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("MCP server stopped", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := runOnce(classifier, *inputPath, *outputPath); err != nil {
		logger.Error("Classification failed", "error", err)
		os.Exit(1)
	}
}

func startMetrics(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("Metrics endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics endpoint failed", "error", err)
		}
	}()
	return srv
}

func runOnce(c *classify.Classifier, inputPath, outputPath string) error {
	// 1. Read input
	var r io.Reader = os.Stdin
	if inputPath != "-" {
		f, err := os.Open(inputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	var in classify.Input
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return fmt.Errorf("decoding input: %w", err)
	}

	// 2. Classify
	res, err := c.Classify(in)
	if err != nil {
		return err
	}

	// 3. Write result
	var w io.Writer = os.Stdout
	if outputPath != "-" {
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
