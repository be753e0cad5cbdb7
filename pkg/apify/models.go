package apify

import "time"

// Run statuses reported by the Apify platform.
const (
	RunStatusReady     = "READY"
	RunStatusRunning   = "RUNNING"
	RunStatusSucceeded = "SUCCEEDED"
	RunStatusFailed    = "FAILED"
	RunStatusAborted   = "ABORTED"
	RunStatusTimedOut  = "TIMED-OUT"
)

// runEnvelope wraps every Apify API response body.
type runEnvelope struct {
	Data Run `json:"data"`
}

// Run represents a single actor run on the Apify platform
type Run struct {
	ID               string     `json:"id"`
	ActorID          string     `json:"actId"`
	Status           string     `json:"status"`
	DefaultDatasetID string     `json:"defaultDatasetId"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	FinishedAt       *time.Time `json:"finishedAt,omitempty"`
	ExitCode         *int       `json:"exitCode,omitempty"`
}

// Finished reports whether the run reached a terminal state
func (r *Run) Finished() bool {
	switch r.Status {
	case RunStatusSucceeded, RunStatusFailed, RunStatusAborted, RunStatusTimedOut:
		return true
	default:
		return false
	}
}

// RunInput is the input document passed to the instagram-scraper actor
type RunInput struct {
	DirectURLs   []string `json:"directUrls"`
	ResultsType  string   `json:"resultsType"`
	ResultsLimit int      `json:"resultsLimit"`
}

// NewProfileRunInput builds the actor input for scraping the most recent
// posts of a single profile
func NewProfileRunInput(username string, limit int) *RunInput {
	return &RunInput{
		DirectURLs:   []string{"https://www.instagram.com/" + username + "/"},
		ResultsType:  "posts",
		ResultsLimit: limit,
	}
}

// Post is one dataset item produced by the instagram-scraper actor.
// Only the fields the pipeline acts on are modeled; the raw dataset
// bytes are persisted separately so nothing is lost.
type Post struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	ShortCode     string `json:"shortCode"`
	Caption       string `json:"caption"`
	URL           string `json:"url"`
	DisplayURL    string `json:"displayUrl"`
	VideoURL      string `json:"videoUrl"`
	LikesCount    int    `json:"likesCount"`
	CommentsCount int    `json:"commentsCount"`
	Timestamp     string `json:"timestamp"`
	OwnerUsername string `json:"ownerUsername"`

	// Carousel children. Recent actor versions emit childPosts, older
	// datasets carry sidecarItems; both are accepted.
	ChildPosts   []Post `json:"childPosts"`
	SidecarItems []Post `json:"sidecarItems"`
}

// IsVideo reports whether the post's primary media is a video
func (p *Post) IsVideo() bool {
	return p.VideoURL != ""
}

// CarouselItems returns the carousel children regardless of which field
// spelling the dataset used
func (p *Post) CarouselItems() []Post {
	if len(p.ChildPosts) > 0 {
		return p.ChildPosts
	}
	return p.SidecarItems
}

// MediaURL returns the URL to download for this post: the video URL for
// videos, otherwise the display image URL
func (p *Post) MediaURL() string {
	if p.VideoURL != "" {
		return p.VideoURL
	}
	return p.DisplayURL
}
