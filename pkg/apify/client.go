package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "igvision/pkg/errors"
	"igvision/pkg/logger"
)

// Client talks to the Apify REST API: it starts actor runs, polls them
// to completion and fetches the resulting dataset. It also downloads
// media referenced by dataset items.
type Client struct {
	httpClient   *http.Client
	headers      map[string]string
	baseURL      string
	token        string
	actor        string
	pollInterval time.Duration
	logger       logger.Logger
}

// Options tunes a Client beyond its credentials
type Options struct {
	BaseURL      string
	Actor        string
	Timeout      time.Duration
	PollInterval time.Duration
}

// NewClient creates a new Apify API client
func NewClient(token string, opts Options, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Actor == "" {
		opts.Actor = DefaultActor
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = 5 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		headers: map[string]string{
			"Accept":     "application/json",
			"User-Agent": "igvision/1.0",
		},
		baseURL:      opts.BaseURL,
		token:        token,
		actor:        opts.Actor,
		pollInterval: opts.PollInterval,
		logger:       log,
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.Redacted(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.Redacted(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.Redacted(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// checkResponseStatus maps HTTP status codes to typed errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.logger.WarnWithFields("authentication error", map[string]interface{}{
			"status": resp.StatusCode,
		})
		return &errs.Error{
			Type:    errs.ErrorTypeAuth,
			Message: "Apify rejected the API token",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode == http.StatusPaymentRequired:
		return &errs.Error{
			Type:    errs.ErrorTypeQuota,
			Message: "Apify account limit reached",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode == http.StatusNotFound:
		return &errs.Error{
			Type:    errs.ErrorTypeNotFound,
			Message: "resource not found",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.WarnWithFields("rate limit exceeded", map[string]interface{}{
			"status": resp.StatusCode,
		})
		return &errs.Error{
			Type:    errs.ErrorTypeRateLimit,
			Message: "rate limit exceeded",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode >= 500:
		return &errs.Error{
			Type:    errs.ErrorTypeServerError,
			Message: "server error",
			Code:    resp.StatusCode,
		}
	default:
		return &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}
}

// getJSON performs a GET request and decodes the JSON response
func (c *Client) getJSON(url string, target interface{}) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	return c.decodeJSON(resp, target)
}

// postJSON performs a POST request with a JSON body and decodes the response
func (c *Client) postJSON(url string, body interface{}, target interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to encode request body: %v", err),
		}
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	return c.decodeJSON(resp, target)
}

// decodeJSON reads and decodes a response body into target
func (c *Client) decodeJSON(resp *http.Response, target interface{}) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return nil
}

// StartRun starts a new actor run with the given input
func (c *Client) StartRun(input *RunInput) (*Run, error) {
	c.logger.InfoWithFields("starting actor run", map[string]interface{}{
		"actor":         c.actor,
		"results_limit": input.ResultsLimit,
	})

	var envelope runEnvelope
	if err := c.postJSON(startRunURL(c.baseURL, c.actor, c.token), input, &envelope); err != nil {
		c.logger.WithError(err).Error("failed to start actor run")
		return nil, err
	}

	c.logger.InfoWithFields("actor run started", map[string]interface{}{
		"run_id": envelope.Data.ID,
		"status": envelope.Data.Status,
	})

	return &envelope.Data, nil
}

// GetRun fetches the current state of an actor run
func (c *Client) GetRun(runID string) (*Run, error) {
	var envelope runEnvelope
	if err := c.getJSON(getRunURL(c.baseURL, runID, c.token), &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// WaitForRun polls the run until it reaches a terminal state or the
// context is cancelled. A run that finishes in any state other than
// SUCCEEDED yields an actor_failed error.
func (c *Client) WaitForRun(ctx context.Context, runID string) (*Run, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		run, err := c.GetRun(runID)
		if err != nil {
			return nil, err
		}

		if run.Finished() {
			if run.Status != RunStatusSucceeded {
				c.logger.ErrorWithFields("actor run did not succeed", map[string]interface{}{
					"run_id": runID,
					"status": run.Status,
				})
				return run, &errs.Error{
					Type:    errs.ErrorTypeActorFailed,
					Message: fmt.Sprintf("actor run finished with status %s", run.Status),
				}
			}
			return run, nil
		}

		c.logger.DebugWithFields("actor run still in progress", map[string]interface{}{
			"run_id": runID,
			"status": run.Status,
		})

		select {
		case <-ctx.Done():
			return run, fmt.Errorf("waiting for actor run: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// DatasetItemsRaw fetches the dataset items as raw JSON bytes, exactly
// as the platform returned them
func (c *Client) DatasetItemsRaw(datasetID string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, datasetItemsURL(c.baseURL, datasetID, c.token), nil)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read dataset: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if !json.Valid(data) {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: "dataset response is not valid JSON",
			Code:    resp.StatusCode,
		}
	}

	return data, nil
}

// DatasetItems fetches the dataset and decodes it into posts. The raw
// bytes are returned alongside so callers can persist them verbatim.
func (c *Client) DatasetItems(datasetID string) ([]Post, []byte, error) {
	raw, err := c.DatasetItemsRaw(datasetID)
	if err != nil {
		return nil, nil, err
	}

	var posts []Post
	if err := json.Unmarshal(raw, &posts); err != nil {
		return nil, nil, &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse dataset items: %v", err),
		}
	}

	c.logger.InfoWithFields("dataset items fetched", map[string]interface{}{
		"dataset_id": datasetID,
		"post_count": len(posts),
	})

	return posts, raw, nil
}

// DownloadMedia downloads a media file from the given URL. Media CDN
// URLs are pre-signed, so no token is attached.
func (c *Client) DownloadMedia(mediaURL string) ([]byte, error) {
	c.logger.DebugWithFields("downloading media", map[string]interface{}{
		"url": mediaURL,
	})

	req, err := http.NewRequest(http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	req.Header.Set("Accept", "image/webp,video/mp4,*/*")

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to download media: %v", err),
		}
	}

	c.logger.DebugWithFields("media downloaded", map[string]interface{}{
		"url":  mediaURL,
		"size": len(data),
	})

	return data, nil
}
