package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the scrape-and-analyze pipeline
type Config struct {
	// Apify scraping service settings
	Apify ApifyConfig `yaml:"apify" json:"apify"`

	// Google Cloud Vision settings
	Vision VisionConfig `yaml:"vision" json:"vision"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Report settings
	Report ReportConfig `yaml:"report" json:"report"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ApifyConfig holds credentials and tuning for the Apify actor runs
type ApifyConfig struct {
	Token        string        `yaml:"token" json:"token"`
	Actor        string        `yaml:"actor" json:"actor"`
	BaseURL      string        `yaml:"base_url" json:"base_url"`
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
	RunTimeout   time.Duration `yaml:"run_timeout" json:"run_timeout"`
}

// VisionConfig holds Google Cloud Vision API configuration
type VisionConfig struct {
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file"`
	Enabled         bool   `yaml:"enabled" json:"enabled"`
	Endpoint        string `yaml:"endpoint" json:"endpoint"`
	MaxLabels       int    `yaml:"max_labels" json:"max_labels"`
	MaxFaces        int    `yaml:"max_faces" json:"max_faces"`
	Concurrency     int    `yaml:"concurrency" json:"concurrency"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int           `yaml:"burst_size" json:"burst_size"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" json:"backoff_multiplier"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay" json:"retry_delay"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
	MetadataFile  string `yaml:"metadata_file" json:"metadata_file"`
	AnalysisFile  string `yaml:"analysis_file" json:"analysis_file"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	DownloadTimeout     time.Duration `yaml:"download_timeout" json:"download_timeout"`
	RetryAttempts       int           `yaml:"retry_attempts" json:"retry_attempts"`
	SkipVideos          bool          `yaml:"skip_videos" json:"skip_videos"`
	SkipImages          bool          `yaml:"skip_images" json:"skip_images"`
	MaxFileSize         int64         `yaml:"max_file_size" json:"max_file_size"`
}

// ReportConfig holds Markdown report settings
type ReportConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	FileName string `yaml:"file_name" json:"file_name"`
	TopN     int    `yaml:"top_n" json:"top_n"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Apify: ApifyConfig{
			Actor:        "apify~instagram-scraper",
			BaseURL:      "https://api.apify.com",
			PollInterval: 5 * time.Second,
			RunTimeout:   10 * time.Minute,
		},
		Vision: VisionConfig{
			Enabled:     true,
			Endpoint:    "https://vision.googleapis.com",
			MaxLabels:   10,
			MaxFaces:    10,
			Concurrency: 2,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         10,
			BackoffMultiplier: 2.0,
			MaxRetries:        3,
			RetryDelay:        5 * time.Second,
		},
		Output: OutputConfig{
			BaseDirectory: "instagram_downloads",
			MetadataFile:  "metadata.json",
			AnalysisFile:  "analysis_results.json",
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 3,
			DownloadTimeout:     30 * time.Second,
			RetryAttempts:       3,
			SkipVideos:          false,
			SkipImages:          false,
			MaxFileSize:         0, // 0 means no limit
		},
		Report: ReportConfig{
			Enabled:  false,
			FileName: "analysis_report.md",
			TopN:     10,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if token := os.Getenv("IGVISION_APIFY_TOKEN"); token != "" {
		c.Apify.Token = token
	}
	if actor := os.Getenv("IGVISION_APIFY_ACTOR"); actor != "" {
		c.Apify.Actor = actor
	}
	if creds := os.Getenv("IGVISION_VISION_CREDENTIALS"); creds != "" {
		c.Vision.CredentialsFile = creds
	}
	// The standard Google variable works too, so existing gcloud setups
	// do not need extra configuration.
	if c.Vision.CredentialsFile == "" {
		if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); creds != "" {
			c.Vision.CredentialsFile = creds
		}
	}

	if rpm := os.Getenv("IGVISION_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}

	if outputDir := os.Getenv("IGVISION_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}

	if concurrent := os.Getenv("IGVISION_CONCURRENT_DOWNLOADS"); concurrent != "" {
		var val int
		fmt.Sscanf(concurrent, "%d", &val)
		if val > 0 {
			c.Download.ConcurrentDownloads = val
		}
	}

	if analysis := os.Getenv("IGVISION_ANALYSIS_ENABLED"); analysis != "" {
		c.Vision.Enabled = strings.ToLower(analysis) == "true"
	}

	if logLevel := os.Getenv("IGVISION_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".igvision.yaml",
		".igvision.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "igvision", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "igvision", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".igvision.yaml"),
		filepath.Join(os.Getenv("HOME"), ".igvision.yml"),
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

	if c.Apify.Token == "" {
		errs = append(errs, errors.New("Apify API token is required"))
	}
	if c.Apify.Actor == "" {
		errs = append(errs, errors.New("Apify actor ID is required"))
	}
	if c.Apify.PollInterval <= 0 {
		errs = append(errs, errors.New("Apify poll interval must be positive"))
	}
	if c.Apify.RunTimeout <= 0 {
		errs = append(errs, errors.New("Apify run timeout must be positive"))
	}

	if c.Vision.Enabled {
		if c.Vision.CredentialsFile == "" {
			errs = append(errs, errors.New("Vision credentials file is required when analysis is enabled"))
		}
		if c.Vision.Concurrency <= 0 {
			errs = append(errs, errors.New("Vision concurrency must be positive"))
		}
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}
	if c.RateLimit.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}

	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.ConcurrentDownloads > 10 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 10"))
	}
	if c.Download.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.SkipVideos && c.Download.SkipImages {
		errs = append(errs, errors.New("cannot skip both videos and images"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.MetadataFile == "" {
		errs = append(errs, errors.New("metadata file name is required"))
	}
	if c.Output.AnalysisFile == "" {
		errs = append(errs, errors.New("analysis file name is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
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

	// Token may be present, keep the file private
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if token, ok := flags["apify-token"].(string); ok && token != "" {
		c.Apify.Token = token
	}
	if creds, ok := flags["vision-credentials"].(string); ok && creds != "" {
		c.Vision.CredentialsFile = creds
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if concurrent, ok := flags["concurrent"].(int); ok && concurrent > 0 {
		c.Download.ConcurrentDownloads = concurrent
	}
	if rpm, ok := flags["rate-limit"].(int); ok && rpm > 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if skipVideos, ok := flags["skip-videos"].(bool); ok {
		c.Download.SkipVideos = skipVideos
	}
	if skipAnalysis, ok := flags["skip-analysis"].(bool); ok && skipAnalysis {
		c.Vision.Enabled = false
	}
	if report, ok := flags["report"].(bool); ok && report {
		c.Report.Enabled = true
	}
	if timeout, ok := flags["download-timeout"].(int); ok && timeout > 0 {
		c.Download.DownloadTimeout = time.Duration(timeout) * time.Second
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igvision.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
