// Package cmd provides the CLI commands for traceback.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yughpatel/TraceBack/internal/config"
	"github.com/yughpatel/TraceBack/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "traceback",
	Short: "AI-powered log threat analysis",
	Long: `Traceback is a security log analysis tool that:
  - Extracts structured threat findings from raw server logs
  - Scores every finding on a 0-10 risk scale with an explanation
  - Generates firewall mitigation suggestions (iptables, ufw, AWS SG)
  - Answers follow-up questions about the analyzed log interactively

Analysis is performed by a hosted Gemini model; set GEMINI_API_KEY in
the environment or a .env file.`,
	Version: "1.0.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./traceback.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(setupAnalyzeCmd())
	rootCmd.AddCommand(setupInvestigateCmd())
	rootCmd.AddCommand(setupWatchCmd())
	rootCmd.AddCommand(setupServeCmd())
}

// loadConfig loads configuration and initializes logging for a command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Verbose = true
	}

	logCfg := logging.DefaultConfig()
	logCfg.ConsoleFormat = "plain"
	if cfg.Verbose {
		logCfg.Level = "debug"
	}
	if err := logging.Setup(logCfg); err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	return cfg, nil
}
