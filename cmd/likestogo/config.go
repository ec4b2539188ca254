package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ZUGAZ/likes-to-go/pkg/config"
	"github.com/ZUGAZ/likes-to-go/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage likes-to-go configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (LIKESTOGO_*)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created in the current directory as '.likestogo.yaml'
unless a different path is given with the --config flag.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - URLs, selectors and durations
  - Output and log directory accessibility`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# likes-to-go configuration file
#
# Every option can also be set with an environment variable prefixed with
# LIKESTOGO_, for example LIKESTOGO_OUTPUT_DIR or LIKESTOGO_LOG_LEVEL.

collection:
  # Page the collection starts from
  start_url: "https://soundcloud.com/you/likes"

  # Origin relative track links are resolved against
  base_url: "https://soundcloud.com"

  # Passes in a row without new tracks before the run stops
  stagnation_passes: 3

  # Wait after asking the page for more tracks
  settle_wait: 1.5s

# CSS selectors used to find tracks on the page
selectors:
  list_container: ".lazyLoadingList__list"
  card: ".soundList__item"
  title: ".soundTitle__title"
  artist: ".soundTitle__username"
  link: "a[href]"
  duration: ".playbackTimeline__duration"

browser:
  timeout: 30s
  requests_per_minute: 30
  next_page_selector: "a[rel=next]"
  cloudflare_bypass: true
  # failed page requests are repeated with exponential backoff
  max_retries: 2

output:
  directory: "./exports"
  # {date} and {timestamp} are expanded in UTC
  file_name_pattern: "likes-to-go-{date}.json"
  overwrite_existing: false

server:
  addr: "127.0.0.1:8787"
  metrics_enabled: true

ui:
  poll_interval: 500ms
  notifications_enabled: true

logging:
  # debug, info, warn, error
  level: "info"
  # console, json
  format: "console"
  # optional log file, rotated by size
  file: ""
  max_size: 100
  max_backups: 3
  max_age: 7
  compress: false
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".likestogo.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Adjust the selectors if your likes page uses different markup")
	fmt.Println("2. Run 'likestogo config validate' to check the configuration")
	fmt.Println("3. Start collecting with 'likestogo collect' or 'likestogo tui'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, globalFlags(cmd, nil))
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	fmt.Println(ui.Magenta("Current Configuration"))
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (LIKESTOGO_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (searched in default locations)")
	}
	fmt.Println("4. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		ui.PrintInfo("Validating configuration", configFile)
	}

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	var problems []string
	if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
		problems = append(problems, fmt.Sprintf("Cannot create output directory: %v", err))
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}

	if len(problems) > 0 {
		ui.PrintError("Configuration has errors:")
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		return fmt.Errorf("%d configuration problems", len(problems))
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Likes page: %s\n", cfg.Collection.StartURL)
	fmt.Printf("  Stagnation passes: %d\n", cfg.Collection.StagnationPasses)
	fmt.Printf("  Requests per minute: %d\n", cfg.Browser.RequestsPerMinute)
	fmt.Printf("  Output directory: %s\n", cfg.Output.Directory)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}
