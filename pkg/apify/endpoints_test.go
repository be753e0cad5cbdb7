package apify

import (
	"strings"
	"testing"
)

func TestStartRunURL(t *testing.T) {
	url := startRunURL("https://api.apify.com", "apify~instagram-scraper", "secret_token")

	if !strings.HasPrefix(url, "https://api.apify.com/v2/acts/") {
		t.Errorf("Unexpected URL prefix: %s", url)
	}
	if !strings.Contains(url, "apify~instagram-scraper") {
		t.Errorf("Expected actor in URL: %s", url)
	}
	if !strings.Contains(url, "token=secret_token") {
		t.Errorf("Expected token in URL: %s", url)
	}
	if !strings.Contains(url, "/runs?") {
		t.Errorf("Expected runs endpoint: %s", url)
	}
}

func TestGetRunURL(t *testing.T) {
	url := getRunURL("https://api.apify.com", "run-abc123", "secret_token")

	expected := "https://api.apify.com/v2/actor-runs/run-abc123?token=secret_token"
	if url != expected {
		t.Errorf("Expected %s, got %s", expected, url)
	}
}

func TestDatasetItemsURL(t *testing.T) {
	url := datasetItemsURL("https://api.apify.com", "dataset-xyz", "secret_token")

	if !strings.Contains(url, "/v2/datasets/dataset-xyz/items?") {
		t.Errorf("Unexpected dataset path: %s", url)
	}
	if !strings.Contains(url, "format=json") {
		t.Errorf("Expected JSON format parameter: %s", url)
	}
	if !strings.Contains(url, "clean=true") {
		t.Errorf("Expected clean parameter: %s", url)
	}
}

func TestURLsEscapeToken(t *testing.T) {
	url := getRunURL("https://api.apify.com", "run-1", "token with&chars")

	if strings.Contains(url, "token with&chars") {
		t.Errorf("Token should be escaped: %s", url)
	}
	if !strings.Contains(url, "token+with%26chars") {
		t.Errorf("Expected query-escaped token: %s", url)
	}
}
