// Package cmd provides the CLI commands for traceback.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yughpatel/TraceBack/internal/analysis"
	"github.com/yughpatel/TraceBack/internal/logging"
	"github.com/yughpatel/TraceBack/internal/models"
)

// AnalyzeOptions holds options for the analyze command.
type AnalyzeOptions struct {
	Path   string
	Format string
}

// DefaultAnalyzeOptions returns the default analyze options.
func DefaultAnalyzeOptions() *AnalyzeOptions {
	return &AnalyzeOptions{
		Format: "text",
	}
}

// AnalyzeRunner handles the one-shot analysis workflow.
type AnalyzeRunner struct {
	options  *AnalyzeOptions
	logger   *zap.Logger
	pipeline *analysis.Pipeline
}

// NewAnalyzeRunner creates an analyze runner with the given options.
func NewAnalyzeRunner(opts *AnalyzeOptions) (*AnalyzeRunner, error) {
	if opts == nil {
		opts = DefaultAnalyzeOptions()
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := logging.L().With(
		zap.String("command", "analyze"),
		logging.Path(opts.Path),
	)

	pipeline, err := analysis.NewPipeline(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &AnalyzeRunner{
		options:  opts,
		logger:   logger,
		pipeline: pipeline,
	}, nil
}

// Run executes the analysis and renders the report.
func (r *AnalyzeRunner) Run(ctx context.Context) error {
	startTime := time.Now()

	report, err := r.pipeline.AnalyzeFile(ctx, r.options.Path)
	if err != nil {
		return err
	}

	r.logger.Info("analysis_rendered",
		logging.Count(len(report.Findings)),
		logging.Duration(time.Since(startTime)),
	)

	if r.options.Format == "json" {
		data, err := report.ToJSON()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	renderReport(os.Stdout, report)
	return nil
}

// Close releases resources.
func (r *AnalyzeRunner) Close() error {
	return logging.Close()
}

// RunAnalyzeCommand executes the analyze command with the given options.
func RunAnalyzeCommand(opts *AnalyzeOptions) error {
	runner, err := NewAnalyzeRunner(opts)
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	return runner.Run(context.Background())
}

// setupAnalyzeCmd configures the analyze command.
func setupAnalyzeCmd() *cobra.Command {
	opts := DefaultAnalyzeOptions()

	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Extract a threat report from a log file",
		Long: `Analyze a log file and print the structured threat report.

Examples:
  traceback analyze /var/log/auth.log
  traceback analyze access.log --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Path = args[0]
			if opts.Format != "text" && opts.Format != "json" {
				return fmt.Errorf("unknown format: %s (want text or json)", opts.Format)
			}
			return RunAnalyzeCommand(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (text, json)")

	return cmd
}

// renderReport writes the human-readable report view.
func renderReport(w io.Writer, report *models.FindingsReport) {
	fmt.Fprintln(w, "=== Threat Report ===")
	fmt.Fprintf(w, "Total threats:    %d\n", report.Summary.TotalThreats)
	fmt.Fprintf(w, "Most active IP:   %s\n", report.Summary.MostActiveIP)
	fmt.Fprintf(w, "Global risk:      %d/10 (%s)\n",
		report.Summary.GlobalRiskScore,
		models.RiskBand(report.Summary.GlobalRiskScore),
	)

	if len(report.Findings) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIMESTAMP\tATTACKER IP\tATTACK TYPE\tRISK\tSTATUS")
		for _, f := range report.Findings {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d (%s)\t%s\n",
				f.Timestamp, f.AttackerIP, f.AttackType,
				f.RiskScore, models.RiskBand(f.RiskScore), f.Status,
			)
		}
		tw.Flush()

		for i, f := range report.Findings {
			if f.Snippet == "" && f.Explanation == "" {
				continue
			}
			fmt.Fprintf(w, "\n[%d] %s from %s\n", i+1, f.AttackType, f.AttackerIP)
			if f.Snippet != "" {
				fmt.Fprintf(w, "    evidence: %s\n", f.Snippet)
			}
			if f.Explanation != "" {
				fmt.Fprintf(w, "    %s\n", f.Explanation)
			}
		}
	}

	if report.Educational != "" {
		fmt.Fprintln(w, "\n=== What happened ===")
		fmt.Fprintln(w, report.Educational)
	}

	if len(report.Mitigations) > 0 {
		fmt.Fprintln(w, "\n=== Mitigations ===")
		for _, tool := range []string{"iptables", "ufw", "aws_sg"} {
			rules, ok := report.Mitigations[tool]
			if !ok || len(rules) == 0 {
				continue
			}
			fmt.Fprintf(w, "%s:\n", tool)
			for _, rule := range rules {
				fmt.Fprintf(w, "  %s\n", rule)
			}
		}
	}
}
