package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"igvision/pkg/logger"
	"igvision/pkg/ratelimit"
	"igvision/pkg/storage"
)

// MediaJob represents a single media download task
type MediaJob struct {
	URL           string
	Kind          storage.MediaKind
	FileName      string
	PostIndex     int
	CarouselIndex int
	Username      string
}

// MediaResult represents the result of a download job
type MediaResult struct {
	Job       MediaJob
	Success   bool
	Skipped   bool
	SavedPath string
	Error     error
	Duration  time.Duration
	Size      int
}

// MediaDownloader interface for fetching media bytes
type MediaDownloader interface {
	DownloadMedia(url string) ([]byte, error)
}

// MediaStorage interface for storing media files
type MediaStorage interface {
	IsDownloaded(name string) bool
	MediaPath(kind storage.MediaKind, name string) string
	SaveMedia(r io.Reader, kind storage.MediaKind, name string) (string, error)
}

// WorkerPool manages concurrent download workers
type WorkerPool struct {
	numWorkers     int
	jobQueue       chan MediaJob
	resultQueue    chan MediaResult
	wg             sync.WaitGroup
	ctx            context.Context
	cancel         context.CancelFunc
	client         MediaDownloader
	storageManager MediaStorage
	rateLimiter    ratelimit.Limiter
	logger         logger.Logger
}

// NewWorkerPool creates a new download worker pool
func NewWorkerPool(
	numWorkers int,
	client MediaDownloader,
	storageManager MediaStorage,
	rateLimiter ratelimit.Limiter,
	log logger.Logger,
) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	if log == nil {
		log = logger.GetLogger()
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	return &WorkerPool{
		numWorkers:     numWorkers,
		jobQueue:       make(chan MediaJob, numWorkers*2),
		resultQueue:    make(chan MediaResult, numWorkers),
		ctx:            ctx,
		cancel:         cancel,
		client:         client,
		storageManager: storageManager,
		rateLimiter:    rateLimiter,
		logger:         log,
	}
}

// Start initializes and starts all workers
func (wp *WorkerPool) Start() {
	wp.logger.InfoWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop gracefully shuts down the worker pool
func (wp *WorkerPool) Stop() {
	wp.logger.Info("Stopping worker pool...")

	// Close job queue to signal no more jobs will be added
	close(wp.jobQueue)

	// Wait for all workers to finish processing remaining jobs
	wp.wg.Wait()

	// Close result queue
	close(wp.resultQueue)

	// Cancel context
	wp.cancel()

	wp.logger.Info("Worker pool stopped")
}

// Submit adds a new download job to the queue
func (wp *WorkerPool) Submit(job MediaJob) error {
	select {
	case wp.jobQueue <- job:
		wp.logger.DebugWithFields("Job submitted to queue", map[string]interface{}{
			"file":     job.FileName,
			"username": job.Username,
		})
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Results returns the result channel for consuming download results
func (wp *WorkerPool) Results() <-chan MediaResult {
	return wp.resultQueue
}

// worker is the main worker routine
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	wp.logger.DebugWithFields("Worker started", map[string]interface{}{
		"worker_id": id,
	})

	for job := range wp.jobQueue {
		// Check if context is cancelled
		select {
		case <-wp.ctx.Done():
			wp.logger.DebugWithFields("Worker stopping - context cancelled", map[string]interface{}{
				"worker_id": id,
			})
			return
		default:
		}

		result := wp.processJob(job, id)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			wp.logger.DebugWithFields("Worker stopping - context cancelled while sending result", map[string]interface{}{
				"worker_id": id,
			})
			return
		}
	}

	wp.logger.DebugWithFields("Worker stopping - job queue closed", map[string]interface{}{
		"worker_id": id,
	})
}

// processJob handles a single download job
func (wp *WorkerPool) processJob(job MediaJob, workerID int) MediaResult {
	start := time.Now()
	result := MediaResult{
		Job:     job,
		Success: false,
	}

	wp.logger.DebugWithFields("Worker processing job", map[string]interface{}{
		"worker_id": workerID,
		"file":      job.FileName,
		"username":  job.Username,
	})

	// Already present from an earlier run
	if wp.storageManager.IsDownloaded(job.FileName) {
		wp.logger.DebugWithFields("Media already downloaded", map[string]interface{}{
			"worker_id": workerID,
			"file":      job.FileName,
		})
		result.Success = true
		result.Skipped = true
		result.SavedPath = wp.storageManager.MediaPath(job.Kind, job.FileName)
		result.Duration = time.Since(start)
		return result
	}

	// Wait for rate limit
	if !wp.rateLimiter.Allow() {
		wp.logger.DebugWithFields("Worker waiting for rate limit", map[string]interface{}{
			"worker_id": workerID,
			"file":      job.FileName,
		})
		wp.rateLimiter.Wait()
	}

	data, err := wp.client.DownloadMedia(job.URL)
	if err != nil {
		result.Error = fmt.Errorf("download failed: %w", err)
		result.Duration = time.Since(start)

		wp.logger.ErrorWithFields("Worker failed to download media", map[string]interface{}{
			"worker_id": workerID,
			"file":      job.FileName,
			"error":     err.Error(),
			"duration":  result.Duration,
		})

		return result
	}

	result.Size = len(data)

	savedPath, err := wp.storageManager.SaveMedia(bytes.NewReader(data), job.Kind, job.FileName)
	if err != nil {
		result.Error = fmt.Errorf("save failed: %w", err)
		result.Duration = time.Since(start)

		wp.logger.ErrorWithFields("Worker failed to save media", map[string]interface{}{
			"worker_id": workerID,
			"file":      job.FileName,
			"error":     err.Error(),
			"size":      result.Size,
		})

		return result
	}

	result.Success = true
	result.SavedPath = savedPath
	result.Duration = time.Since(start)

	wp.logger.DebugWithFields("Worker completed job successfully", map[string]interface{}{
		"worker_id": workerID,
		"file":      job.FileName,
		"size":      result.Size,
		"duration":  result.Duration,
	})

	return result
}

// GetQueueSize returns the current number of jobs in the queue
func (wp *WorkerPool) GetQueueSize() int {
	return len(wp.jobQueue)
}

// GetActiveWorkers returns the number of active workers
func (wp *WorkerPool) GetActiveWorkers() int {
	return wp.numWorkers
}
