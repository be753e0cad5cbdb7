package scraper

import (
	"context"

	"igvision/pkg/apify"
)

// ActorRunner is the slice of the Apify client the orchestrator needs.
// Tests substitute a fake.
type ActorRunner interface {
	StartRun(input *apify.RunInput) (*apify.Run, error)
	WaitForRun(ctx context.Context, runID string) (*apify.Run, error)
	DatasetItems(datasetID string) ([]apify.Post, []byte, error)
	DownloadMedia(mediaURL string) ([]byte, error)
}
