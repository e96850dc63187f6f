// Package cmd provides the CLI commands for traceback.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yughpatel/TraceBack/internal/analysis"
	"github.com/yughpatel/TraceBack/internal/logging"
	"github.com/yughpatel/TraceBack/internal/server"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Listen string
}

// RunServeCommand starts the HTTP API server.
func RunServeCommand(opts *ServeOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()

	if opts.Listen != "" {
		cfg.Listen = opts.Listen
	}

	logger := logging.L().With(zap.String("command", "serve"))

	pipeline, err := analysis.NewPipeline(cfg, logger)
	if err != nil {
		return err
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Listen = cfg.Listen
	srvCfg.ExtractLines = cfg.ExtractLines
	srvCfg.Logger = logger

	srv, err := server.NewServer(srvCfg, pipeline)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received_signal", zap.String("signal", sig.String()))
		cancel()
	}()

	return srv.Run(ctx)
}

// setupServeCmd configures the serve command.
func setupServeCmd() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the analysis HTTP API",
		Long: `Start a long-running server exposing the analysis pipeline:
  POST /api/analyze     - upload a log file, get the threat report
  GET  /api/report      - current cached report
  POST /api/investigate - ask a question about the current report
  GET  /ws/investigate  - websocket investigation channel
  GET  /api/health      - liveness

Examples:
  traceback serve
  traceback serve --listen :9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunServeCommand(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "bind address (overrides config)")

	return cmd
}
