package report

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"

	"igvision/pkg/analyzer"
)

// Summary collects everything the Markdown report needs about one
// completed scrape session.
type Summary struct {
	Username        string
	PostCount       int
	ImagesSaved     int
	VideosSaved     int
	BytesDownloaded int64
	StartedAt       time.Time
	FinishedAt      time.Time
	Results         []analyzer.Result
	TopN            int
}

// labelStat aggregates one label across all analyzed images
type labelStat struct {
	description string
	count       int
	bestScore   float64
}

// Write renders the session summary as a Markdown document
func Write(summary *Summary) ([]byte, error) {
	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)

	writeHeader(md, summary)
	writeAnalysisSummary(md, summary)
	writeTopLabels(md, summary)
	writeFlaggedImages(md, summary)
	writeFailures(md, summary)

	md.HorizontalRule()
	md.PlainTextf("*Generated by igvision on %s*", summary.FinishedAt.Format("2006-01-02 15:04:05 MST"))

	if err := md.Build(); err != nil {
		return nil, fmt.Errorf("failed to build report: %w", err)
	}
	return buf.Bytes(), nil
}

// writeHeader writes the session properties table
func writeHeader(md *markdown.Markdown, summary *Summary) {
	md.H1("Instagram Analysis Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Username", "`" + summary.Username + "`"},
			{"Posts", strconv.Itoa(summary.PostCount)},
			{"Images saved", strconv.Itoa(summary.ImagesSaved)},
			{"Videos saved", strconv.Itoa(summary.VideosSaved)},
			{"Downloaded", humanize.Bytes(uint64(summary.BytesDownloaded))},
			{"Duration", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Second).String()},
		},
	})
	md.PlainText("")
}

// writeAnalysisSummary writes the analysis counters
func writeAnalysisSummary(md *markdown.Markdown, summary *Summary) {
	md.H2("Vision Analysis")
	md.PlainText("")

	analyzed, failed, faces := 0, 0, 0
	for _, r := range summary.Results {
		if r.Error != "" {
			failed++
			continue
		}
		analyzed++
		faces += len(r.Faces)
	}

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Images analyzed", strconv.Itoa(analyzed)},
			{"Analysis failures", strconv.Itoa(failed)},
			{"Faces detected", strconv.Itoa(faces)},
		},
	})
	md.PlainText("")

	if failed > 0 {
		md.Warningf("%d image(s) could not be analyzed; see the failure list below.", failed)
		md.PlainText("")
	}
}

// writeTopLabels writes the most frequent labels across the session
func writeTopLabels(md *markdown.Markdown, summary *Summary) {
	md.H2("Top Labels")
	md.PlainText("")

	stats := make(map[string]*labelStat)
	for _, r := range summary.Results {
		for _, l := range r.Labels {
			s, ok := stats[l.Description]
			if !ok {
				s = &labelStat{description: l.Description}
				stats[l.Description] = s
			}
			s.count++
			if l.Score > s.bestScore {
				s.bestScore = l.Score
			}
		}
	}

	if len(stats) == 0 {
		md.PlainText("No labels detected.")
		md.PlainText("")
		return
	}

	ordered := make([]*labelStat, 0, len(stats))
	for _, s := range stats {
		ordered = append(ordered, s)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].count != ordered[j].count {
			return ordered[i].count > ordered[j].count
		}
		return ordered[i].description < ordered[j].description
	})

	topN := summary.TopN
	if topN <= 0 {
		topN = 10
	}
	if len(ordered) > topN {
		ordered = ordered[:topN]
	}

	rows := make([][]string, len(ordered))
	for i, s := range ordered {
		rows[i] = []string{
			s.description,
			strconv.Itoa(s.count),
			fmt.Sprintf("%.2f", s.bestScore),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Label", "Images", "Best score"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFlaggedImages lists images the safe-search classifier flagged
func writeFlaggedImages(md *markdown.Markdown, summary *Summary) {
	md.H2("Safe Search")
	md.PlainText("")

	var rows [][]string
	for _, r := range summary.Results {
		if r.SafeSearch == nil {
			continue
		}
		ss := r.SafeSearch
		if ss.Adult.Flagged() || ss.Violence.Flagged() || ss.Racy.Flagged() {
			rows = append(rows, []string{
				filepath.Base(r.ImagePath),
				string(ss.Adult),
				string(ss.Violence),
				string(ss.Racy),
			})
		}
	}

	if len(rows) == 0 {
		md.Tip("No images were flagged by safe-search detection.")
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"Image", "Adult", "Violence", "Racy"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures lists per-image analysis failures
func writeFailures(md *markdown.Markdown, summary *Summary) {
	var rows [][]string
	for _, r := range summary.Results {
		if r.Error != "" {
			rows = append(rows, []string{filepath.Base(r.ImagePath), r.Error})
		}
	}
	if len(rows) == 0 {
		return
	}

	md.H2("Analysis Failures")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Image", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}
