package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// ProgressDisplay provides a clean, minimal progress display for the
// download and analysis stages
type ProgressDisplay struct {
	mu              sync.Mutex
	username        string
	totalMedia      int
	downloadedCount int
	skippedCount    int
	currentMedia    string
	startTime       time.Time
	bytesDownloaded int64
	errors          int
	isDebug         bool
}

// NewProgressDisplay creates a new progress display
func NewProgressDisplay(username string, totalMedia int, debug bool) *ProgressDisplay {
	return &ProgressDisplay{
		username:   username,
		totalMedia: totalMedia,
		startTime:  time.Now(),
		isDebug:    debug,
	}
}

// StartDownload marks the start of a new download
func (p *ProgressDisplay) StartDownload(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.currentMedia = name
	if !p.isDebug {
		p.printProgress()
	}
}

// CompleteDownload marks a download as complete
func (p *ProgressDisplay) CompleteDownload(name string, size int64, skipped bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.downloadedCount++
	p.bytesDownloaded += size
	if skipped {
		p.skippedCount++
	}

	if !p.isDebug {
		p.printProgress()
	} else if skipped {
		fmt.Printf("\n%s %s %s\n", Dim("○"), name, Dim("already present"))
	} else {
		fmt.Printf("\n%s %s • %s\n", Green("✓"), name, humanize.Bytes(uint64(size)))
	}
}

// FailDownload marks a download as failed
func (p *ProgressDisplay) FailDownload(name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.errors++
	if !p.isDebug {
		p.printProgress()
	} else {
		fmt.Printf("\n%s Failed: %s - %v\n", Red("✗"), name, err)
	}
}

// printProgress prints the minimal progress line
func (p *ProgressDisplay) printProgress() {
	if p.totalMedia == 0 {
		return
	}

	elapsed := time.Since(p.startTime)
	rate := float64(p.downloadedCount) / elapsed.Minutes()

	progress := float64(p.downloadedCount) / float64(p.totalMedia)
	barWidth := 20
	filled := int(progress * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)

	line := fmt.Sprintf("\r%s [%s] %d/%d • %.1f/min • %s • %s",
		Cyan(p.username),
		bar,
		p.downloadedCount,
		p.totalMedia,
		rate,
		humanize.Bytes(uint64(p.bytesDownloaded)),
		p.calculateETA(),
	)

	if p.currentMedia != "" {
		line += fmt.Sprintf(" • %s", p.currentMedia)
	}
	if p.errors > 0 {
		line += fmt.Sprintf(" • %s", Red(fmt.Sprintf("%d errors", p.errors)))
	}

	fmt.Printf("\r%s\r%s", strings.Repeat(" ", 120), line)
}

// Complete marks the download stage as complete
func (p *ProgressDisplay) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.startTime)

	fmt.Printf("\n\n%s Downloaded %d media files from @%s\n",
		Green("✓"),
		p.downloadedCount-p.skippedCount,
		p.username,
	)

	fmt.Printf("  %s %s in %s\n",
		Dim("•"),
		humanize.Bytes(uint64(p.bytesDownloaded)),
		formatDuration(elapsed),
	)

	if p.skippedCount > 0 {
		fmt.Printf("  %s %d already present, skipped\n", Dim("•"), p.skippedCount)
	}
	if p.errors > 0 {
		fmt.Printf("  %s %d downloads failed\n", Dim("•"), p.errors)
	}
}

// RateLimitWarning shows a rate limit warning
func (p *ProgressDisplay) RateLimitWarning(waitTime time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Printf("\n%s Rate limit reached. Waiting %s...\n",
		Yellow("⚠"),
		formatDuration(waitTime),
	)
}

// UpdateTotal updates the total media count
func (p *ProgressDisplay) UpdateTotal(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.totalMedia = total
}

// calculateETA estimates time remaining
func (p *ProgressDisplay) calculateETA() string {
	if p.downloadedCount == 0 {
		return "calculating..."
	}

	remaining := p.totalMedia - p.downloadedCount
	elapsed := time.Since(p.startTime)
	rate := float64(p.downloadedCount) / elapsed.Seconds()

	if rate == 0 {
		return "calculating..."
	}

	eta := time.Duration(float64(remaining)/rate) * time.Second
	return formatDuration(eta)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
