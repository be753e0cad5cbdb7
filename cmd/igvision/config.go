package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"igvision/pkg/config"
	"igvision/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage igvision configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (IGVISION_*)
  - Configuration file
  - Default values (lowest priority)`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as '.igvision.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the current configuration including values from all sources.

Sensitive values like the Apify token will be masked for security.`,
	Run: runConfigShow,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Required fields
  - Value types and ranges
  - Path accessibility`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = ".igvision.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	exampleConfig := `# igvision configuration file
#
# This file contains all available configuration options.
# You can also use environment variables prefixed with IGVISION_
# For example: IGVISION_APIFY_TOKEN, IGVISION_VISION_CREDENTIALS

# Apify scraping platform
apify:
  # Personal API token (required)
  # Get this from https://console.apify.com > Settings > API & Integrations
  token: ""

  # Actor to run. The tilde separates author and actor name.
  actor: "apify~instagram-scraper"

  # How often to poll a running actor
  poll_interval: 5s

  # Give up on a run after this long
  run_timeout: 10m

# Google Cloud Vision
vision:
  # Path to a service account JSON key file.
  # Leave empty to disable image analysis.
  credentials_file: ""

  # Enable or disable analysis
  enabled: true

  # Maximum labels and faces requested per image
  max_labels: 10
  max_faces: 10

  # Images annotated in parallel
  concurrency: 2

# Rate limiting
rate_limit:
  # Requests per minute against external APIs
  requests_per_minute: 60

  # Burst size for media downloads
  burst_size: 10

  # Maximum retry attempts for failed API calls
  max_retries: 3

# Output locations
output:
  # Base directory for per-user download trees
  base_directory: "instagram_downloads"

  # Document file names inside each user directory
  metadata_file: "metadata.json"
  analysis_file: "analysis_results.json"

# Download behavior
download:
  # Number of concurrent downloads (1-10)
  concurrent_downloads: 3

  # Per-download timeout
  download_timeout: 30s

  # Skip one media kind entirely
  skip_videos: false
  skip_images: false

# Markdown report
report:
  enabled: false
  file_name: "analysis_report.md"
  top_n: 10

# Logging
logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Log file path (optional, stdout only when empty)
  file: ""
`

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the configuration file or run 'igvision auth login'")
	fmt.Println("2. Run 'igvision config validate' to check the configuration")
	fmt.Println("3. Start scraping with 'igvision scrape <username>'")
}

// loadWithoutValidation assembles the config from file and environment
// without requiring credentials to be present yet
func loadWithoutValidation() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(configFile); err != nil {
		return nil, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := loadWithoutValidation()
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	// Mask the token for display
	displayCfg := *cfg
	if displayCfg.Apify.Token != "" {
		if len(displayCfg.Apify.Token) > 8 {
			displayCfg.Apify.Token = displayCfg.Apify.Token[:4] + "..." + displayCfg.Apify.Token[len(displayCfg.Apify.Token)-4:]
		} else {
			displayCfg.Apify.Token = "***"
		}
	}

	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (IGVISION_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (not specified)")
	}
	fmt.Println("4. Default values")
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	if configFile == "" {
		possiblePaths := []string{
			".igvision.yaml",
			".igvision.yml",
			filepath.Join(os.Getenv("HOME"), ".igvision.yaml"),
			filepath.Join(os.Getenv("HOME"), ".config", "igvision", "config.yaml"),
		}

		for _, path := range possiblePaths {
			if _, err := os.Stat(path); err == nil {
				configFile = path
				break
			}
		}

		if configFile == "" {
			ui.PrintError("No configuration file found", "Specify a file with --config flag")
			os.Exit(1)
		}
	}

	ui.PrintInfo("Validating configuration", configFile)

	cfg, err := loadWithoutValidation()
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		os.Exit(1)
	}

	warnings := []string{}
	errors := []string{}

	// Missing credentials only warn; they may come from the keychain
	if cfg.Apify.Token == "" {
		warnings = append(warnings, "Apify token not configured (run 'igvision auth login')")
	}
	if cfg.Vision.Enabled && cfg.Vision.CredentialsFile == "" {
		warnings = append(warnings, "Vision credentials not configured, analysis will be skipped")
	}

	if cfg.Output.BaseDirectory != "" {
		if err := os.MkdirAll(cfg.Output.BaseDirectory, 0755); err != nil {
			errors = append(errors, fmt.Sprintf("Cannot create output directory: %v", err))
		}
	}

	if cfg.Logging.File != "" {
		dir := filepath.Dir(cfg.Logging.File)
		if err := os.MkdirAll(dir, 0755); err != nil {
			errors = append(errors, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}

	if cfg.Download.ConcurrentDownloads < 1 || cfg.Download.ConcurrentDownloads > 10 {
		errors = append(errors, "concurrent_downloads must be between 1 and 10")
	}
	if cfg.RateLimit.RequestsPerMinute < 1 || cfg.RateLimit.RequestsPerMinute > 120 {
		errors = append(errors, "requests_per_minute must be between 1 and 120")
	}
	if cfg.RateLimit.MaxRetries < 0 || cfg.RateLimit.MaxRetries > 10 {
		errors = append(errors, "max_retries must be between 0 and 10")
	}

	if len(errors) > 0 {
		ui.PrintError("Configuration has errors:", "")
		for _, err := range errors {
			fmt.Printf("  - %s\n", err)
		}
		os.Exit(1)
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:", "")
		for _, warn := range warnings {
			fmt.Printf("  - %s\n", warn)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Actor: %s\n", cfg.Apify.Actor)
	fmt.Printf("  Output directory: %s\n", cfg.Output.BaseDirectory)
	fmt.Printf("  Concurrent downloads: %d\n", cfg.Download.ConcurrentDownloads)
	fmt.Printf("  Rate limit: %d requests/minute\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Printf("  Analysis enabled: %t\n", cfg.Vision.Enabled)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}
