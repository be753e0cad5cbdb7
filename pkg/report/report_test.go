package report

import (
	"strings"
	"testing"
	"time"

	"igvision/pkg/analyzer"
	"igvision/pkg/vision"
)

func testSummary() *Summary {
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &Summary{
		Username:        "natgeo",
		PostCount:       3,
		ImagesSaved:     3,
		VideosSaved:     1,
		BytesDownloaded: 2 * 1024 * 1024,
		StartedAt:       started,
		FinishedAt:      started.Add(90 * time.Second),
		Results: []analyzer.Result{
			{
				ImagePath: "/data/natgeo/images/post_1.jpg",
				Faces: []analyzer.Face{
					{Joy: vision.LikelihoodVeryLikely, DetectionConfidence: 0.9},
				},
				Labels: []analyzer.Label{
					{Description: "Dog", Score: 0.95},
					{Description: "Outdoor", Score: 0.80},
				},
				SafeSearch: &analyzer.SafeSearch{
					Adult:    vision.LikelihoodVeryUnlikely,
					Violence: vision.LikelihoodVeryUnlikely,
					Racy:     vision.LikelihoodVeryUnlikely,
				},
			},
			{
				ImagePath: "/data/natgeo/images/post_2.jpg",
				Labels: []analyzer.Label{
					{Description: "Dog", Score: 0.88},
				},
				SafeSearch: &analyzer.SafeSearch{
					Adult:    vision.LikelihoodVeryUnlikely,
					Violence: vision.LikelihoodLikely,
					Racy:     vision.LikelihoodPossible,
				},
			},
			{
				ImagePath: "/data/natgeo/images/post_3.jpg",
				Error:     "vision API error 3: bad image",
			},
		},
	}
}

func TestWriteContainsSessionProperties(t *testing.T) {
	content, err := Write(testSummary())
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	text := string(content)

	if !strings.Contains(text, "# Instagram Analysis Report") {
		t.Error("Expected report title")
	}
	if !strings.Contains(text, "`natgeo`") {
		t.Error("Expected username in properties table")
	}
	if !strings.Contains(text, "2.1 MB") {
		t.Errorf("Expected humanized download size, got:\n%s", text)
	}
	if !strings.Contains(text, "1m30s") {
		t.Errorf("Expected session duration, got:\n%s", text)
	}
}

func TestWriteAnalysisCounts(t *testing.T) {
	content, err := Write(testSummary())
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	text := string(content)

	if !strings.Contains(text, "## Vision Analysis") {
		t.Error("Expected analysis section")
	}
	if !strings.Contains(text, "Images analyzed") {
		t.Error("Expected analyzed counter row")
	}
	// 2 analyzed, 1 failed, 1 face
	if !strings.Contains(text, "could not be analyzed") {
		t.Error("Expected failure warning")
	}
}

func TestWriteTopLabels(t *testing.T) {
	content, err := Write(testSummary())
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	text := string(content)

	if !strings.Contains(text, "## Top Labels") {
		t.Error("Expected top labels section")
	}

	// Dog appears in two images, Outdoor in one; Dog must come first
	dogIdx := strings.Index(text, "| Dog")
	outdoorIdx := strings.Index(text, "| Outdoor")
	if dogIdx == -1 || outdoorIdx == -1 {
		t.Fatalf("Expected both labels in report:\n%s", text)
	}
	if dogIdx > outdoorIdx {
		t.Error("Expected labels ordered by image count")
	}

	// Best score across both Dog detections
	if !strings.Contains(text, "0.95") {
		t.Error("Expected best label score in table")
	}
}

func TestWriteTopLabelsHonorsTopN(t *testing.T) {
	summary := testSummary()
	summary.TopN = 1

	content, err := Write(summary)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	text := string(content)

	if !strings.Contains(text, "| Dog") {
		t.Error("Expected the most frequent label")
	}
	if strings.Contains(text, "| Outdoor") {
		t.Error("Expected less frequent labels to be cut")
	}
}

func TestWriteFlaggedImages(t *testing.T) {
	content, err := Write(testSummary())
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	text := string(content)

	if !strings.Contains(text, "## Safe Search") {
		t.Error("Expected safe search section")
	}
	// post_2.jpg has Violence LIKELY and must be listed
	if !strings.Contains(text, "post_2.jpg") {
		t.Errorf("Expected flagged image in report:\n%s", text)
	}
	if !strings.Contains(text, "LIKELY") {
		t.Error("Expected likelihood values in flagged table")
	}
}

func TestWriteNoFlaggedImages(t *testing.T) {
	summary := testSummary()
	summary.Results = summary.Results[:1] // only the clean image

	content, err := Write(summary)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	text := string(content)

	if !strings.Contains(text, "No images were flagged") {
		t.Errorf("Expected tip about no flagged images:\n%s", text)
	}
}

func TestWriteFailureList(t *testing.T) {
	content, err := Write(testSummary())
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	text := string(content)

	if !strings.Contains(text, "## Analysis Failures") {
		t.Error("Expected failures section")
	}
	if !strings.Contains(text, "post_3.jpg") {
		t.Error("Expected failed image name")
	}
	if !strings.Contains(text, "bad image") {
		t.Error("Expected failure message")
	}
}

func TestWriteNoFailuresOmitsSection(t *testing.T) {
	summary := testSummary()
	summary.Results = summary.Results[:2]

	content, err := Write(summary)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if strings.Contains(string(content), "## Analysis Failures") {
		t.Error("Did not expect failures section without failures")
	}
}

func TestWriteEmptyResults(t *testing.T) {
	summary := testSummary()
	summary.Results = nil

	content, err := Write(summary)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	text := string(content)

	if !strings.Contains(text, "No labels detected.") {
		t.Error("Expected empty-labels placeholder")
	}
	if !strings.Contains(text, "Generated by igvision") {
		t.Error("Expected footer")
	}
}
