// Package cmd provides the CLI commands for traceback.
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yughpatel/TraceBack/internal/analysis"
	"github.com/yughpatel/TraceBack/internal/logging"
)

// InvestigateOptions holds options for the investigate command.
type InvestigateOptions struct {
	Path     string
	Question string
}

// InvestigateRunner handles the interactive investigation workflow.
type InvestigateRunner struct {
	options  *InvestigateOptions
	logger   *zap.Logger
	pipeline *analysis.Pipeline
}

// NewInvestigateRunner creates an investigate runner with the given options.
func NewInvestigateRunner(opts *InvestigateOptions) (*InvestigateRunner, error) {
	if opts == nil {
		opts = &InvestigateOptions{}
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := logging.L().With(
		zap.String("command", "investigate"),
		logging.Path(opts.Path),
	)

	pipeline, err := analysis.NewPipeline(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &InvestigateRunner{
		options:  opts,
		logger:   logger,
		pipeline: pipeline,
	}, nil
}

// Run analyzes the file, then answers questions until EOF or exit.
func (r *InvestigateRunner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		r.logger.Info("received_signal", zap.String("signal", sig.String()))
		cancel()
	}()

	fmt.Printf("Analyzing %s...\n", r.options.Path)
	report, err := r.pipeline.AnalyzeFile(ctx, r.options.Path)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d threat(s). Global risk: %d/10.\n",
		report.Summary.TotalThreats, report.Summary.GlobalRiskScore)

	// One-shot mode
	if r.options.Question != "" {
		fmt.Println(r.pipeline.Ask(ctx, r.options.Question))
		return nil
	}

	fmt.Println("Ask questions about the log (type 'exit' to quit):")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			break
		}
		if ctx.Err() != nil {
			break
		}

		fmt.Println(r.pipeline.Ask(ctx, question))
		fmt.Println()
	}

	return scanner.Err()
}

// Close releases resources.
func (r *InvestigateRunner) Close() error {
	return logging.Close()
}

// RunInvestigateCommand executes the investigate command with the given options.
func RunInvestigateCommand(opts *InvestigateOptions) error {
	runner, err := NewInvestigateRunner(opts)
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	return runner.Run(context.Background())
}

// setupInvestigateCmd configures the investigate command.
func setupInvestigateCmd() *cobra.Command {
	opts := &InvestigateOptions{}

	cmd := &cobra.Command{
		Use:   "investigate [path]",
		Short: "Analyze a log file and ask questions about it",
		Long: `Analyze a log file, then open an interactive prompt where every
question is answered strictly from the log content and the extracted
threat report.

Examples:
  traceback investigate /var/log/auth.log
  traceback investigate access.log --question "which IP attacked most?"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Path = args[0]
			return RunInvestigateCommand(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Question, "question", "q", "", "ask a single question and exit")

	return cmd
}
