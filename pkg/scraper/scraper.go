package scraper

import (
	"context"
	"fmt"
	"time"

	"igvision/internal/downloader"
	"igvision/pkg/analyzer"
	"igvision/pkg/apify"
	"igvision/pkg/checkpoint"
	"igvision/pkg/config"
	"igvision/pkg/logger"
	"igvision/pkg/ratelimit"
	"igvision/pkg/report"
	"igvision/pkg/retry"
	"igvision/pkg/storage"
)

// Options controls a single scrape session
type Options struct {
	Username     string
	Limit        int
	Resume       bool
	ForceRestart bool
}

// Stats summarizes what a completed session did
type Stats struct {
	Username        string
	PostCount       int
	MediaQueued     int
	ImagesSaved     int
	VideosSaved     int
	Skipped         int
	Failed          int
	BytesDownloaded int64
	ImagesAnalyzed  int
	AnalysisFailed  int
	StartedAt       time.Time
	FinishedAt      time.Time
	OutputDir       string
}

// Scraper orchestrates the full pipeline: actor run, dataset fetch,
// media downloads, Vision analysis and the persisted JSON documents.
type Scraper struct {
	cfg       *config.Config
	client    ActorRunner
	annotator analyzer.Annotator
	logger    logger.Logger

	// Optional UI hooks: OnQueue fires once when the download queue is
	// known, OnDownload once per finished job
	OnQueue    func(total int)
	OnDownload func(result downloader.MediaResult)
}

// New creates a scraper. The annotator may be nil when Vision analysis
// is disabled.
func New(cfg *config.Config, client ActorRunner, annotator analyzer.Annotator, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Scraper{
		cfg:       cfg,
		client:    client,
		annotator: annotator,
		logger:    log,
	}
}

// mediaTask pairs a queued job with the image path it will produce
type mediaTask struct {
	job downloader.MediaJob
}

// Run executes the pipeline for one username. Per-item download and
// analysis failures are recorded and skipped; only infrastructure
// failures (actor run, dataset fetch, filesystem) abort the session.
func (s *Scraper) Run(ctx context.Context, opts Options) (*Stats, error) {
	if opts.Username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("post limit must be positive")
	}

	stats := &Stats{
		Username:  opts.Username,
		StartedAt: time.Now(),
	}

	store, err := storage.NewManager(s.cfg.Output.BaseDirectory, opts.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare output directory: %w", err)
	}
	stats.OutputDir = store.BaseDir()

	cpManager, err := checkpoint.NewManager(opts.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkpoint manager: %w", err)
	}

	cp, datasetID, err := s.resolveDataset(ctx, cpManager, opts)
	if err != nil {
		return nil, err
	}

	posts, raw, err := s.fetchDataset(datasetID)
	if err != nil {
		return nil, err
	}

	// The actor can return more items than asked for
	if len(posts) > opts.Limit {
		posts = posts[:opts.Limit]
	}
	stats.PostCount = len(posts)

	if err := store.WriteMetadata(raw, s.cfg.Output.MetadataFile); err != nil {
		return nil, fmt.Errorf("failed to write metadata: %w", err)
	}
	s.logger.InfoWithFields("metadata saved", map[string]interface{}{
		"username": opts.Username,
		"posts":    len(posts),
	})

	tasks := s.buildTasks(opts.Username, posts)
	stats.MediaQueued = len(tasks)
	if s.OnQueue != nil {
		s.OnQueue(len(tasks))
	}

	savedImages := s.downloadAll(tasks, store, cpManager, cp, stats)

	if s.cfg.Vision.Enabled && s.annotator != nil {
		results, err := s.analyzeImages(ctx, savedImages)
		if err != nil {
			return stats, err
		}

		for _, r := range results {
			if r.Error == "" {
				stats.ImagesAnalyzed++
			} else {
				stats.AnalysisFailed++
			}
		}

		if err := store.WriteAnalysis(results, s.cfg.Output.AnalysisFile); err != nil {
			return stats, fmt.Errorf("failed to write analysis results: %w", err)
		}
		s.logger.InfoWithFields("analysis results saved", map[string]interface{}{
			"username": opts.Username,
			"analyzed": stats.ImagesAnalyzed,
			"failed":   stats.AnalysisFailed,
		})

		if s.cfg.Report.Enabled {
			if err := s.writeReport(store, stats, results); err != nil {
				return stats, err
			}
		}
	} else if s.cfg.Report.Enabled {
		if err := s.writeReport(store, stats, nil); err != nil {
			return stats, err
		}
	}

	if err := cpManager.Delete(); err != nil {
		s.logger.WithError(err).Warn("failed to delete checkpoint")
	}

	stats.FinishedAt = time.Now()
	return stats, nil
}

// resolveDataset decides whether to reuse a checkpointed dataset or
// start a fresh actor run, and returns the dataset to fetch
func (s *Scraper) resolveDataset(ctx context.Context, cpManager *checkpoint.Manager, opts Options) (*checkpoint.Checkpoint, string, error) {
	if opts.ForceRestart {
		if err := cpManager.Delete(); err != nil {
			return nil, "", fmt.Errorf("failed to clear checkpoint: %w", err)
		}
	} else if opts.Resume {
		cp, err := cpManager.Load()
		if err != nil {
			return nil, "", fmt.Errorf("failed to load checkpoint: %w", err)
		}
		if cp.Resumable() {
			s.logger.InfoWithFields("resuming from checkpoint", map[string]interface{}{
				"username":   opts.Username,
				"run_id":     cp.RunID,
				"dataset_id": cp.DatasetID,
			})
			return cp, cp.DatasetID, nil
		}
		s.logger.Info("no resumable checkpoint found, starting a new run")
	}

	retrier := retry.NewHTTPRetrier(s.cfg.RateLimit.MaxRetries, s.logger)

	var run *apify.Run
	input := apify.NewProfileRunInput(opts.Username, opts.Limit)
	err := retrier.DoWithErrorType(func() error {
		var startErr error
		run, startErr = s.client.StartRun(input)
		return startErr
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to start actor run: %w", err)
	}

	cp, err := cpManager.Create(opts.Username, run.ID, run.DefaultDatasetID, opts.Limit)
	if err != nil {
		return nil, "", err
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.Apify.RunTimeout)
	defer cancel()

	finished, err := s.client.WaitForRun(waitCtx, run.ID)
	if err != nil {
		return nil, "", fmt.Errorf("actor run failed: %w", err)
	}

	// The dataset ID is known at start time, but trust the final state
	cp.DatasetID = finished.DefaultDatasetID
	if err := cpManager.Save(cp); err != nil {
		return nil, "", err
	}

	return cp, finished.DefaultDatasetID, nil
}

// fetchDataset retrieves the dataset items with retries
func (s *Scraper) fetchDataset(datasetID string) ([]apify.Post, []byte, error) {
	retrier := retry.NewHTTPRetrier(s.cfg.RateLimit.MaxRetries, s.logger)

	var (
		posts []apify.Post
		raw   []byte
	)
	err := retrier.DoWithErrorType(func() error {
		var fetchErr error
		posts, raw, fetchErr = s.client.DatasetItems(datasetID)
		return fetchErr
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch dataset items: %w", err)
	}

	return posts, raw, nil
}

// buildTasks expands posts (and their carousel children) into download
// jobs, honoring the skip-videos and skip-images settings
func (s *Scraper) buildTasks(username string, posts []apify.Post) []mediaTask {
	var tasks []mediaTask

	appendTask := func(mediaURL string, isVideo bool, postIndex, carouselIndex int) {
		if mediaURL == "" {
			return
		}
		kind := storage.KindImage
		if isVideo {
			if s.cfg.Download.SkipVideos {
				return
			}
			kind = storage.KindVideo
		} else if s.cfg.Download.SkipImages {
			return
		}

		tasks = append(tasks, mediaTask{
			job: downloader.MediaJob{
				URL:           mediaURL,
				Kind:          kind,
				FileName:      storage.MediaFileName(kind, postIndex, carouselIndex, mediaURL),
				PostIndex:     postIndex,
				CarouselIndex: carouselIndex,
				Username:      username,
			},
		})
	}

	for i, post := range posts {
		postIndex := i + 1

		children := post.CarouselItems()
		if len(children) > 0 {
			for j, child := range children {
				appendTask(child.MediaURL(), child.IsVideo(), postIndex, j+1)
			}
			continue
		}

		appendTask(post.MediaURL(), post.IsVideo(), postIndex, 0)
	}

	return tasks
}

// downloadAll runs every task through the worker pool and returns the
// paths of the image files now present on disk, in task order
func (s *Scraper) downloadAll(tasks []mediaTask, store *storage.Manager, cpManager *checkpoint.Manager, cp *checkpoint.Checkpoint, stats *Stats) []string {
	if len(tasks) == 0 {
		return nil
	}

	limiter := s.downloadLimiter()

	pool := downloader.NewWorkerPool(
		s.cfg.Download.ConcurrentDownloads,
		s.client,
		store,
		limiter,
		s.logger,
	)
	pool.Start()

	savedPaths := make(map[string]string, len(tasks))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for result := range pool.Results() {
			if result.Success {
				savedPaths[result.Job.FileName] = result.SavedPath
				if result.Skipped {
					stats.Skipped++
				} else {
					stats.BytesDownloaded += int64(result.Size)
					if result.Job.Kind == storage.KindVideo {
						stats.VideosSaved++
					} else {
						stats.ImagesSaved++
					}
					if cp != nil {
						if err := cpManager.RecordDownload(cp, result.Job.FileName, result.SavedPath); err != nil {
							s.logger.WithError(err).Warn("failed to record download in checkpoint")
						}
					}
				}
			} else {
				stats.Failed++
				logger.LogDownload(result.Job.Username, result.Job.FileName, string(result.Job.Kind), false, result.Error)
			}

			if s.OnDownload != nil {
				s.OnDownload(result)
			}
		}
	}()

	for _, task := range tasks {
		if err := pool.Submit(task.job); err != nil {
			s.logger.WithError(err).Error("failed to submit download job")
			stats.Failed++
		}
	}

	pool.Stop()
	<-done

	// Collect image paths in task order so analysis results line up
	// with the post sequence
	var imagePaths []string
	for _, task := range tasks {
		if task.job.Kind != storage.KindImage {
			continue
		}
		if path, ok := savedPaths[task.job.FileName]; ok {
			imagePaths = append(imagePaths, path)
		}
	}

	return imagePaths
}

// downloadLimiter builds the rate limiter for media requests. The
// bucket refills once per minute, so its capacity is the per-minute
// request budget.
func (s *Scraper) downloadLimiter() ratelimit.Limiter {
	if s.cfg.RateLimit.RequestsPerMinute > 0 {
		return ratelimit.NewTokenBucket(s.cfg.RateLimit.RequestsPerMinute, time.Minute)
	}
	return ratelimit.NewTokenBucket(60, time.Minute)
}

// analyzeImages runs the downloaded images through the Vision pipeline
func (s *Scraper) analyzeImages(ctx context.Context, imagePaths []string) ([]analyzer.Result, error) {
	visionLimiter := ratelimit.NewSlidingWindow(s.cfg.RateLimit.RequestsPerMinute, time.Minute)

	a := analyzer.New(s.annotator, visionLimiter, s.cfg.Vision.Concurrency, s.logger)

	results, err := a.AnalyzeAll(ctx, imagePaths)
	if err != nil {
		return results, fmt.Errorf("analysis aborted: %w", err)
	}
	return results, nil
}

// writeReport renders and persists the Markdown session report
func (s *Scraper) writeReport(store *storage.Manager, stats *Stats, results []analyzer.Result) error {
	content, err := report.Write(&report.Summary{
		Username:        stats.Username,
		PostCount:       stats.PostCount,
		ImagesSaved:     stats.ImagesSaved,
		VideosSaved:     stats.VideosSaved,
		BytesDownloaded: stats.BytesDownloaded,
		StartedAt:       stats.StartedAt,
		FinishedAt:      time.Now(),
		Results:         results,
		TopN:            s.cfg.Report.TopN,
	})
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if err := store.WriteReport(content, s.cfg.Report.FileName); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	s.logger.InfoWithFields("report saved", map[string]interface{}{
		"file": s.cfg.Report.FileName,
	})
	return nil
}
