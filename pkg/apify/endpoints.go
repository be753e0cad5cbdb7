package apify

import (
	"fmt"
	"net/url"
)

// DefaultBaseURL is the public Apify API host
const DefaultBaseURL = "https://api.apify.com"

// DefaultActor is the official Instagram scraper actor. Actor IDs use a
// tilde between the author and actor name in URL form.
const DefaultActor = "apify~instagram-scraper"

// startRunURL builds the endpoint that starts a new actor run
func startRunURL(baseURL, actor, token string) string {
	return fmt.Sprintf("%s/v2/acts/%s/runs?token=%s", baseURL, url.PathEscape(actor), url.QueryEscape(token))
}

// getRunURL builds the endpoint that reports the state of a run
func getRunURL(baseURL, runID, token string) string {
	return fmt.Sprintf("%s/v2/actor-runs/%s?token=%s", baseURL, url.PathEscape(runID), url.QueryEscape(token))
}

// datasetItemsURL builds the endpoint that returns dataset items as a
// clean JSON array
func datasetItemsURL(baseURL, datasetID, token string) string {
	return fmt.Sprintf("%s/v2/datasets/%s/items?token=%s&format=json&clean=true",
		baseURL, url.PathEscape(datasetID), url.QueryEscape(token))
}
