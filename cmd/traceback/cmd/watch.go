// Package cmd provides the CLI commands for traceback.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yughpatel/TraceBack/internal/analysis"
	"github.com/yughpatel/TraceBack/internal/excerpt"
	"github.com/yughpatel/TraceBack/internal/logging"
	"github.com/yughpatel/TraceBack/internal/watch"
)

// WatchOptions holds options for the watch command.
type WatchOptions struct {
	Path     string
	MinLines int
	MaxWait  time.Duration
}

// DefaultWatchOptions returns the default watch options.
func DefaultWatchOptions() *WatchOptions {
	return &WatchOptions{
		MinLines: 50,
		MaxWait:  30 * time.Second,
	}
}

// WatchRunner follows a log file and re-analyzes it as it grows.
type WatchRunner struct {
	options   *WatchOptions
	logger    *zap.Logger
	pipeline  *analysis.Pipeline
	follower  *excerpt.Follower
	debouncer *watch.Debouncer
}

// NewWatchRunner creates a watch runner with the given options.
func NewWatchRunner(opts *WatchOptions) (*WatchRunner, error) {
	if opts == nil {
		opts = DefaultWatchOptions()
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := logging.L().With(
		zap.String("command", "watch"),
		logging.Path(opts.Path),
	)

	pipeline, err := analysis.NewPipeline(cfg, logger)
	if err != nil {
		return nil, err
	}

	runner := &WatchRunner{
		options:  opts,
		logger:   logger,
		pipeline: pipeline,
		follower: excerpt.NewFollower(opts.Path, logger),
	}

	debounceCfg := &watch.Config{
		MinLines:       opts.MinLines,
		MaxWait:        opts.MaxWait,
		TriggerTimeout: 5 * time.Minute,
		Logger:         logger,
	}
	debouncer, err := watch.NewDebouncer(debounceCfg, runner.reanalyze)
	if err != nil {
		return nil, err
	}
	runner.debouncer = debouncer

	return runner, nil
}

// Run analyzes the file once, then follows it and re-analyzes on growth.
func (r *WatchRunner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		r.logger.Info("received_signal", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := r.reanalyze(ctx, 0); err != nil {
		return err
	}

	lineCh := make(chan string, 1000)
	readErrCh := make(chan error, 1)
	go func() {
		readErrCh <- r.follower.Read(ctx, lineCh)
		close(lineCh)
	}()

	for range lineCh {
		if err := r.debouncer.Observe(); err != nil {
			r.logger.Warn("observe_failed", zap.Error(err))
		}
	}

	if err := r.debouncer.Close(); err != nil {
		r.logger.Error("debouncer_close_error", zap.Error(err))
	}

	metrics := r.debouncer.GetMetrics()
	r.logger.Info("watch_complete",
		zap.Int64("lines_observed", metrics.TotalLines),
		zap.Int64("analyses", metrics.TotalTriggers),
	)

	if err := <-readErrCh; err != nil && ctx.Err() == nil {
		return fmt.Errorf("follow error: %w", err)
	}
	return nil
}

// reanalyze re-reads the file and prints the refreshed report summary.
// Appended content changes the file fingerprint, so the cache recomputes.
func (r *WatchRunner) reanalyze(ctx context.Context, newLines int) error {
	report, err := r.pipeline.AnalyzeFile(ctx, r.options.Path)
	if err != nil {
		r.logger.Error("reanalysis_failed",
			logging.Lines(newLines),
			zap.Error(err),
		)
		return err
	}

	fmt.Printf("[%s] %s: %d threat(s), global risk %d/10, most active IP %s\n",
		time.Now().Format(time.RFC3339),
		r.options.Path,
		report.Summary.TotalThreats,
		report.Summary.GlobalRiskScore,
		report.Summary.MostActiveIP,
	)
	return nil
}

// Close releases resources.
func (r *WatchRunner) Close() error {
	return logging.Close()
}

// RunWatchCommand executes the watch command with the given options.
func RunWatchCommand(opts *WatchOptions) error {
	runner, err := NewWatchRunner(opts)
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	return runner.Run(context.Background())
}

// setupWatchCmd configures the watch command.
func setupWatchCmd() *cobra.Command {
	opts := DefaultWatchOptions()

	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Follow a log file and re-analyze as it grows",
		Long: `Follow a log file (like tail -f) and re-run threat extraction when
enough new lines accumulate or enough time passes.

Examples:
  traceback watch /var/log/auth.log
  traceback watch access.log --min-lines 20 --max-wait 10s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Path = args[0]
			return RunWatchCommand(opts)
		},
	}

	cmd.Flags().IntVar(&opts.MinLines, "min-lines", 50, "new lines that trigger re-analysis")
	cmd.Flags().DurationVar(&opts.MaxWait, "max-wait", 30*time.Second, "max time before re-analysis with pending lines")

	return cmd
}
