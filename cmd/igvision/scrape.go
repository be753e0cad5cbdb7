package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"igvision/internal/downloader"
	"igvision/pkg/analyzer"
	"igvision/pkg/apify"
	"igvision/pkg/auth"
	"igvision/pkg/config"
	"igvision/pkg/logger"
	"igvision/pkg/scraper"
	"igvision/pkg/ui"
	"igvision/pkg/vision"
)

var (
	// Scrape command flags
	postLimit       int
	outputDir       string
	concurrent      int
	rateLimit       int
	accountName     string
	apifyToken      string
	visionCreds     string
	downloadTimeout int
	skipAnalysis    bool
	skipVideos      bool
	writeReport     bool
	resumeSession   bool
	forceRestart    bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape [username]",
	Short: "Download a profile's media and analyze the images",
	Long: `Scrape an Instagram profile through the Apify instagram-scraper actor,
download the post media and run the images through Google Cloud Vision.

This command requires an Apify API token, configured either through:
  - Stored credentials (use 'igvision auth login' to store)
  - The IGVISION_APIFY_TOKEN environment variable
  - A configuration file or the --apify-token flag

Vision analysis additionally needs a Google service account JSON file
(--vision-credentials, IGVISION_VISION_CREDENTIALS or stored). Without
one, analysis is skipped and only media is downloaded.

If the username or --limit is missing you will be prompted for them.

Output is written under the output directory:
  <output>/<username>/images/post_N.jpg
  <output>/<username>/videos/post_N.mp4
  <output>/<username>/metadata.json
  <output>/<username>/analysis_results.json`,
	Example: `  # Scrape with prompts for username and post count
  igvision scrape

  # Download 25 posts and analyze the images
  igvision scrape natgeo --limit 25

  # Media only, no Vision analysis
  igvision scrape natgeo --limit 25 --skip-analysis

  # Resume an interrupted session without a new actor run
  igvision scrape natgeo --limit 25 --resume

  # Write an additional Markdown summary report
  igvision scrape natgeo --limit 25 --report`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runScrape(cmd, args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().IntVarP(&postLimit, "limit", "l", 0, "number of recent posts to fetch (prompted if omitted)")
	scrapeCmd.Flags().StringVarP(&outputDir, "output", "o", "", "base output directory (default: instagram_downloads)")
	scrapeCmd.Flags().IntVar(&concurrent, "concurrent", 3, "number of concurrent downloads")
	scrapeCmd.Flags().IntVar(&rateLimit, "rate-limit", 60, "requests per minute")
	scrapeCmd.Flags().StringVarP(&accountName, "account", "a", "", "use specific stored account")
	scrapeCmd.Flags().StringVar(&apifyToken, "apify-token", "", "Apify API token")
	scrapeCmd.Flags().StringVar(&visionCreds, "vision-credentials", "", "Google service account JSON file")
	scrapeCmd.Flags().IntVar(&downloadTimeout, "download-timeout", 30, "download timeout in seconds")
	scrapeCmd.Flags().BoolVar(&skipAnalysis, "skip-analysis", false, "download media without Vision analysis")
	scrapeCmd.Flags().BoolVar(&skipVideos, "skip-videos", false, "download images only")
	scrapeCmd.Flags().BoolVar(&writeReport, "report", false, "write a Markdown summary report")
	scrapeCmd.Flags().BoolVar(&resumeSession, "resume", false, "resume from last checkpoint")
	scrapeCmd.Flags().BoolVar(&forceRestart, "force-restart", false, "force restart, ignoring existing checkpoint")
}

func runScrape(cmd *cobra.Command, args []string) {
	reader := bufio.NewReader(os.Stdin)

	var username string
	if len(args) > 0 {
		username = strings.TrimSpace(args[0])
	}
	if username == "" {
		username = promptString(reader, "Instagram username to scrape")
		if username == "" {
			ui.PrintError("Username is required", "")
			os.Exit(1)
		}
	}

	if postLimit <= 0 {
		postLimit = promptInt(reader, "Number of recent posts to download", 10)
	}

	ui.PrintInfo("Target Profile", username)
	ui.PrintInfo("Post Limit", strconv.Itoa(postLimit))

	// Stored credentials fill the gaps left by flags and env vars
	account := lookupAccount()
	if apifyToken == "" && account != nil {
		apifyToken = account.ApifyToken
	}
	if visionCreds == "" && account != nil {
		visionCreds = account.VisionCredentialsFile
	}

	// Without Vision credentials from any source, downgrade to
	// download-only instead of failing
	if !skipAnalysis && visionCreds == "" &&
		os.Getenv("IGVISION_VISION_CREDENTIALS") == "" &&
		os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		ui.PrintWarning("No Vision credentials found, skipping image analysis")
		skipAnalysis = true
	}

	flags := map[string]interface{}{
		"apify-token":        apifyToken,
		"vision-credentials": visionCreds,
		"output":             outputDir,
		"concurrent":         concurrent,
		"rate-limit":         rateLimit,
		"skip-videos":        skipVideos,
		"skip-analysis":      skipAnalysis,
		"report":             writeReport,
		"download-timeout":   downloadTimeout,
		"log-level":          logLevel,
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		if strings.Contains(err.Error(), "token") {
			fmt.Println("\nTo store credentials securely, run:")
			fmt.Println("  igvision auth login")
			fmt.Println("\nOr set the environment variable:")
			fmt.Println("  export IGVISION_APIFY_TOKEN=apify_api_...")
		}
		os.Exit(1)
	}

	logger.Initialize(&cfg.Logging)
	logger.WithField("version", version).Info("igvision starting")

	apifyClient := apify.NewClient(cfg.Apify.Token, apify.Options{
		BaseURL:      cfg.Apify.BaseURL,
		Actor:        cfg.Apify.Actor,
		Timeout:      cfg.Download.DownloadTimeout,
		PollInterval: cfg.Apify.PollInterval,
	}, logger.GetLogger())

	var annotator analyzer.Annotator
	if cfg.Vision.Enabled {
		visionClient, err := vision.NewClient(cfg.Vision.CredentialsFile, vision.Options{
			Endpoint:  cfg.Vision.Endpoint,
			MaxLabels: cfg.Vision.MaxLabels,
			MaxFaces:  cfg.Vision.MaxFaces,
		}, logger.GetLogger())
		if err != nil {
			ui.PrintError("Failed to initialize Vision client", err.Error())
			os.Exit(1)
		}
		annotator = visionClient
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := scraper.New(cfg, apifyClient, annotator, logger.GetLogger())

	progress := ui.NewProgressDisplay(username, 0, logLevel == "debug")
	s.OnQueue = func(total int) {
		progress.UpdateTotal(total)
	}
	s.OnDownload = func(result downloader.MediaResult) {
		if result.Success {
			progress.CompleteDownload(result.Job.FileName, int64(result.Size), result.Skipped)
		} else {
			progress.FailDownload(result.Job.FileName, result.Error)
		}
	}

	ui.PrintHighlight("[STARTING SCRAPE SESSION]")
	ui.PrintStage("Running Apify actor...")

	stats, err := s.Run(ctx, scraper.Options{
		Username:     username,
		Limit:        postLimit,
		Resume:       resumeSession,
		ForceRestart: forceRestart,
	})
	if err != nil {
		logger.WithError(err).WithField("username", username).Error("Scrape failed")
		ui.PrintError("SCRAPE FAILED", err.Error())
		os.Exit(1)
	}

	progress.Complete()

	printStats(stats, cfg)
	logger.WithField("username", username).Info("Scrape completed successfully")
	ui.PrintSuccess("[SESSION COMPLETED SUCCESSFULLY]")
}

// lookupAccount resolves stored credentials. An explicitly named account
// must exist; the default account is best-effort.
func lookupAccount() *auth.Account {
	credManager, err := auth.NewManager()
	if err != nil {
		return nil
	}

	if accountName != "" {
		account, err := credManager.Retrieve(accountName)
		if err != nil {
			ui.PrintError("Account not found", accountName)
			ui.PrintInfo("Available accounts", "Use 'igvision auth list' to see stored accounts")
			os.Exit(1)
		}
		ui.PrintInfo("Using account", account.Name)
		return account
	}

	account, err := credManager.RetrieveDefault()
	if err != nil {
		return nil
	}
	return account
}

// printStats renders the session summary
func printStats(stats *scraper.Stats, cfg *config.Config) {
	fmt.Println()
	ui.PrintInfo("Posts", strconv.Itoa(stats.PostCount))
	ui.PrintInfo("Images saved", strconv.Itoa(stats.ImagesSaved))
	ui.PrintInfo("Videos saved", strconv.Itoa(stats.VideosSaved))
	if stats.Skipped > 0 {
		ui.PrintInfo("Already present", strconv.Itoa(stats.Skipped))
	}
	if stats.Failed > 0 {
		ui.PrintWarning("Failed downloads", stats.Failed)
	}
	ui.PrintInfo("Downloaded", humanize.Bytes(uint64(stats.BytesDownloaded)))
	if cfg.Vision.Enabled {
		ui.PrintInfo("Images analyzed", strconv.Itoa(stats.ImagesAnalyzed))
		if stats.AnalysisFailed > 0 {
			ui.PrintWarning("Analysis failures", stats.AnalysisFailed)
		}
	}
	ui.PrintInfo("Output", stats.OutputDir)
}

// promptString reads one trimmed line from stdin
func promptString(reader *bufio.Reader, label string) string {
	fmt.Printf("%s: ", ui.Cyan(label))
	input, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(input)
}

// promptInt reads a positive integer, falling back to a default
func promptInt(reader *bufio.Reader, label string, fallback int) int {
	fmt.Printf("%s [%d]: ", ui.Cyan(label), fallback)
	input, err := reader.ReadString('\n')
	if err != nil {
		return fallback
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return fallback
	}
	val, err := strconv.Atoi(input)
	if err != nil || val <= 0 {
		ui.PrintWarning("Invalid number, using default", fallback)
		return fallback
	}
	return val
}
