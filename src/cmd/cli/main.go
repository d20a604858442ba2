// Package main provides the dashboard command line. It fetches build results
// into the persisted dashboard and renders, browses or serves that dashboard.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"operator-dashboard/src/config"
	"operator-dashboard/src/logger"
	"operator-dashboard/src/provider"
)

var (
	// Application configuration, loaded before every command.
	appConfig *config.Config
	appLogger logger.Logger

	configPath   string
	operatorName string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Operator CI dashboard",
	Long: `Builds the test matrix of an operator from the Prow results of its pull
request jobs.

  fetch   collect build results of a pull request into the dashboard data
  render  write the HTML report for the dashboard data
  view    browse the dashboard data in the terminal
  mirror  copy the artifacts of a pull request into a local directory
  mcp     serve the dashboard data over MCP on stdio
  serve   serve the HTML report and a JSON API over HTTP`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath, operatorName)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		appConfig = cfg

		// The TUI owns the terminal.
		if cmd.Name() == viewCmd.Name() {
			appLogger = logger.NewSilentLogger()
			return nil
		}
		zl, err := logger.NewZapLogger(cfg.LogLevel)
		if err != nil {
			return err
		}
		appLogger = zl
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if zl, ok := appLogger.(*logger.ZapLogger); ok {
			_ = zl.Sync()
		}
	},
}

// loadConfig reads the YAML file when one is given, else the environment,
// and applies the operator override.
func loadConfig(path, op string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return nil, err
	}
	if op != "" {
		if err := cfg.SelectOperator(op); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file (environment variables take precedence)")
	rootCmd.PersistentFlags().StringVar(&operatorName, "operator", "", "Operator to track: gpu or nno (default from configuration)")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(mirrorCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, provider.WrapError(err))
		os.Exit(1)
	}
}
