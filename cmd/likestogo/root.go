package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ZUGAZ/likes-to-go/pkg/config"
	"github.com/ZUGAZ/likes-to-go/pkg/logger"
	"github.com/ZUGAZ/likes-to-go/pkg/ui"
)

var (
	// Version information
	version   = "0.1.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile    string
	logLevel      string
	logFormat     string
	logFile       string
	noColor       bool
	notifications bool
	quiet         bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "likestogo",
	Short: "Collect your liked tracks and export them as JSON",
	Long: `likes-to-go walks your likes page, collects every liked track and saves
the collection as a versioned JSON export.

Commands:
  collect   headless run with console progress
  tui       interactive popup
  serve     HTTP control API
  inspect   show an export file as a table
  config    manage configuration files`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetOutput(os.Stdout, !noColor && ui.IsTerminal(os.Stdout))
		logger.Version = version

		switch cmd.Name() {
		case "version", "help", "completion", "tui", "inspect", "show":
		default:
			if !quiet {
				ui.PrintLogo()
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.likestogo.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&notifications, "notifications", true, "enable desktop notifications")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress everything except errors")

	rootCmd.SetVersionTemplate(`likes-to-go {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// globalFlags collects the persistent flags the user actually set
func globalFlags(cmd *cobra.Command, extra map[string]interface{}) map[string]interface{} {
	flags := make(map[string]interface{})
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if logFormat != "" {
		flags["log-format"] = logFormat
	}
	if logFile != "" {
		flags["log-file"] = logFile
	}
	if cmd.Flags().Changed("notifications") {
		flags["notifications"] = notifications
	}
	for k, v := range extra {
		flags[k] = v
	}
	return flags
}

// loadConfig loads the configuration and installs the global logger
func loadConfig(cmd *cobra.Command, extra map[string]interface{}) (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(configFile, globalFlags(cmd, extra))
	if err != nil {
		return nil, nil, err
	}
	if quiet && logLevel == "" {
		cfg.Logging.Level = "error"
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, nil, fmt.Errorf("initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Debug("likes-to-go starting")
	return cfg, log, nil
}
