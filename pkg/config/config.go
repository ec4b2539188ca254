package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ZUGAZ/likes-to-go/pkg/extract"
)

// EnvPrefix is prepended to every environment variable the config reads
const EnvPrefix = "LIKESTOGO_"

// Config holds all configuration options for likes-to-go
type Config struct {
	// What to open and when to stop
	Collection CollectionConfig `yaml:"collection" json:"collection"`

	// CSS selectors for the likes page markup
	Selectors extract.Selectors `yaml:"selectors" json:"selectors"`

	// HTTP-backed page loading
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Where exports are written
	Output OutputConfig `yaml:"output" json:"output"`

	// Control API
	Server ServerConfig `yaml:"server" json:"server"`

	// Terminal UI and notifications
	UI UIConfig `yaml:"ui" json:"ui"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// CollectionConfig holds the scrape loop settings
type CollectionConfig struct {
	StartURL         string        `yaml:"start_url" json:"start_url"`
	BaseURL          string        `yaml:"base_url" json:"base_url"`
	StagnationPasses int           `yaml:"stagnation_passes" json:"stagnation_passes"`
	SettleWait       time.Duration `yaml:"settle_wait" json:"settle_wait"`
}

// BrowserConfig holds the page loader settings
type BrowserConfig struct {
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	NextPageSelector  string        `yaml:"next_page_selector" json:"next_page_selector"`
	CloudflareBypass  bool          `yaml:"cloudflare_bypass" json:"cloudflare_bypass"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	Directory         string `yaml:"directory" json:"directory"`
	FileNamePattern   string `yaml:"file_name_pattern" json:"file_name_pattern"`
	OverwriteExisting bool   `yaml:"overwrite_existing" json:"overwrite_existing"`
}

// ServerConfig holds the control API settings
type ServerConfig struct {
	Addr           string `yaml:"addr" json:"addr"`
	MetricsEnabled bool   `yaml:"metrics_enabled" json:"metrics_enabled"`
}

// UIConfig holds presentation preferences
type UIConfig struct {
	PollInterval         time.Duration `yaml:"poll_interval" json:"poll_interval"`
	NotificationsEnabled bool          `yaml:"notifications_enabled" json:"notifications_enabled"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Collection: CollectionConfig{
			StartURL:         "https://soundcloud.com/you/likes",
			BaseURL:          "https://soundcloud.com",
			StagnationPasses: 3,
			SettleWait:       1500 * time.Millisecond,
		},
		Selectors: extract.DefaultSelectors(),
		Browser: BrowserConfig{
			Timeout:           30 * time.Second,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
			RequestsPerMinute: 30,
			NextPageSelector:  "a[rel=next]",
			CloudflareBypass:  true,
			MaxRetries:        2,
		},
		Output: OutputConfig{
			Directory:         "./exports",
			FileNamePattern:   "likes-to-go-{date}.json",
			OverwriteExisting: false,
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:8787",
			MetricsEnabled: true,
		},
		UI: UIConfig{
			PollInterval:         500 * time.Millisecond,
			NotificationsEnabled: true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			File:       "",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   false,
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv(EnvPrefix + "START_URL"); v != "" {
		c.Collection.StartURL = v
	}
	if v := os.Getenv(EnvPrefix + "BASE_URL"); v != "" {
		c.Collection.BaseURL = v
	}
	if v := os.Getenv(EnvPrefix + "STAGNATION_PASSES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSTAGNATION_PASSES: %w", EnvPrefix, err))
		} else {
			c.Collection.StagnationPasses = n
		}
	}
	if v := os.Getenv(EnvPrefix + "SETTLE_WAIT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSETTLE_WAIT: %w", EnvPrefix, err))
		} else {
			c.Collection.SettleWait = d
		}
	}

	if v := os.Getenv(EnvPrefix + "USER_AGENT"); v != "" {
		c.Browser.UserAgent = v
	}
	if v := os.Getenv(EnvPrefix + "REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sREQUESTS_PER_MINUTE: %w", EnvPrefix, err))
		} else if n > 0 {
			c.Browser.RequestsPerMinute = n
		}
	}

	if v := os.Getenv(EnvPrefix + "OUTPUT_DIR"); v != "" {
		c.Output.Directory = v
	}
	if v := os.Getenv(EnvPrefix + "SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvPrefix + "NOTIFICATIONS_ENABLED"); v != "" {
		c.UI.NotificationsEnabled = strings.ToLower(v) == "true"
	}

	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	c.Selectors = c.Selectors.WithDefaults()
	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".likestogo.yaml",
		".likestogo.yml",
		filepath.Join(home, ".config", "likestogo", "config.yaml"),
		filepath.Join(home, ".config", "likestogo", "config.yml"),
		filepath.Join(home, ".likestogo.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if err := validateAbsURL("collection.start_url", c.Collection.StartURL); err != nil {
		errs = append(errs, err)
	}
	if err := validateAbsURL("collection.base_url", c.Collection.BaseURL); err != nil {
		errs = append(errs, err)
	}
	if c.Collection.StagnationPasses <= 0 {
		errs = append(errs, errors.New("stagnation passes must be positive"))
	}
	if c.Collection.SettleWait < 0 {
		errs = append(errs, errors.New("settle wait cannot be negative"))
	}

	if err := c.Selectors.Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Browser.Timeout <= 0 {
		errs = append(errs, errors.New("browser timeout must be positive"))
	}
	if c.Browser.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.Browser.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries must not be negative"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.FileNamePattern == "" {
		errs = append(errs, errors.New("file name pattern is required"))
	} else if strings.ContainsAny(c.Output.FileNamePattern, `/\`) {
		errs = append(errs, errors.New("file name pattern must not contain path separators"))
	}

	if c.UI.PollInterval <= 0 {
		errs = append(errs, errors.New("poll interval must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, errors.New("invalid log format"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

func validateAbsURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%s must be an absolute url", name)
	}
	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Keys are the flag names used by the CLI.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["start-url"].(string); ok && v != "" {
		c.Collection.StartURL = v
	}
	if v, ok := flags["base-url"].(string); ok && v != "" {
		c.Collection.BaseURL = v
	}
	if v, ok := flags["stagnation-passes"].(int); ok && v > 0 {
		c.Collection.StagnationPasses = v
	}
	if v, ok := flags["settle-wait"].(time.Duration); ok && v > 0 {
		c.Collection.SettleWait = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.Directory = v
	}
	if v, ok := flags["overwrite"].(bool); ok {
		c.Output.OverwriteExisting = v
	}
	if v, ok := flags["addr"].(string); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := flags["requests-per-minute"].(int); ok && v > 0 {
		c.Browser.RequestsPerMinute = v
	}
	if v, ok := flags["notifications"].(bool); ok {
		c.UI.NotificationsEnabled = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["log-format"].(string); ok && v != "" {
		c.Logging.Format = v
	}
	if v, ok := flags["log-file"].(string); ok && v != "" {
		c.Logging.File = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".likestogo.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
