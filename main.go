package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tournevent/checkout/internal/checkout"
	"github.com/tournevent/checkout/internal/server"
	"github.com/tournevent/checkout/pkg/shipper"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "checkout",
	Short:   "Checkout shipping options - per-seller standard and same-day delivery quotes",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "Compute shipping options for a JSON request and print the response",
	Long: `Reads a POST /shipping-options request body from --file (or stdin when
the file is "-") and prints the JSON response that the server would return.`,
	RunE: runOptions,
}

func init() {
	optionsCmd.Flags().StringP("file", "f", "-", "request body file, - for stdin")
	rootCmd.AddCommand(serveCmd, optionsCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize telemetry
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracer, tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(context.WithoutCancel(ctx))
	}

	metrics, registry := initMetrics()
	aggregator := initAggregator(cfg, logger, tracer, metrics)

	logger.Info("Starting checkout shipping service",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
	)

	srv := server.New(server.Config{Port: cfg.Port, ServiceName: cfg.ServiceName}, aggregator, logger, metrics, registry)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runOptions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	path, _ := cmd.Flags().GetString("file")
	raw, err := readInput(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	metrics, _ := initMetrics()
	aggregator := initAggregator(cfg, logger, nil, metrics)

	var resp checkout.Response
	var body checkout.RequestBody
	if err := json.Unmarshal(raw, &body); err != nil {
		resp = checkout.NewResponse(nil, fmt.Errorf("%w: invalid JSON body: %v", shipper.ErrRequestMalformed, err))
	} else if req, err := body.ToRequest(); err != nil {
		resp = checkout.NewResponse(nil, err)
	} else {
		groups, err := aggregator.GetShippingOptions(ctx, req)
		resp = checkout.NewResponse(groups, err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return err
	}
	if !resp.Success {
		return errors.New(resp.Error)
	}
	return nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading request: %w", err)
	}
	return raw, nil
}
