package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	errs "igvision/pkg/errors"
	"igvision/pkg/logger"
)

// DefaultEndpoint is the public Vision API host
const DefaultEndpoint = "https://vision.googleapis.com"

// scope required for the images:annotate endpoint
const visionScope = "https://www.googleapis.com/auth/cloud-platform"

// Client calls the Google Cloud Vision images:annotate endpoint with
// face, label and safe-search features for one image at a time.
type Client struct {
	httpClient *http.Client
	endpoint   string
	tokens     oauth2.TokenSource
	maxLabels  int
	maxFaces   int
	logger     logger.Logger
}

// Options tunes a Client beyond its credentials
type Options struct {
	Endpoint  string
	Timeout   time.Duration
	MaxLabels int
	MaxFaces  int
}

func (o *Options) applyDefaults() {
	if o.Endpoint == "" {
		o.Endpoint = DefaultEndpoint
	}
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
	if o.MaxLabels == 0 {
		o.MaxLabels = 10
	}
	if o.MaxFaces == 0 {
		o.MaxFaces = 10
	}
}

// NewClient creates a Vision client from a service-account credentials
// JSON file
func NewClient(credentialsFile string, opts Options, log logger.Logger) (*Client, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(data, visionScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}

	return NewClientWithTokenSource(jwtConfig.TokenSource(context.Background()), opts, log), nil
}

// NewClientWithTokenSource creates a Vision client with an explicit
// token source. Used directly in tests.
func NewClientWithTokenSource(tokens oauth2.TokenSource, opts Options, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	opts.applyDefaults()

	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		endpoint:   opts.Endpoint,
		tokens:     tokens,
		maxLabels:  opts.MaxLabels,
		maxFaces:   opts.MaxFaces,
		logger:     log,
	}
}

// Annotate sends one image through face, label and safe-search detection
func (c *Client) Annotate(ctx context.Context, image []byte) (*Annotation, error) {
	reqBody := annotateRequest{
		Requests: []imageRequest{{
			Image: imageContent{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []feature{
				{Type: featureFaceDetection, MaxResults: c.maxFaces},
				{Type: featureLabelDetection, MaxResults: c.maxLabels},
				{Type: featureSafeSearchDetection},
			},
		}},
	}

	payload, err := json.Marshal(&reqBody)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to encode annotate request: %v", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/images:annotate", bytes.NewReader(payload))
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := c.tokens.Token()
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeAuth,
			Message: fmt.Sprintf("failed to obtain access token: %v", err),
		}
	}
	token.SetAuthHeader(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("annotate request failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("annotate request completed", map[string]interface{}{
		"status":     resp.StatusCode,
		"duration":   time.Since(start),
		"image_size": len(image),
	})

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	var annotateResp annotateResponse
	if err := json.Unmarshal(body, &annotateResp); err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse annotate response: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if len(annotateResp.Responses) == 0 {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: "annotate response contained no results",
			Code:    resp.StatusCode,
		}
	}

	imageResp := annotateResp.Responses[0]
	if imageResp.Error != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("vision API error %d: %s", imageResp.Error.Code, imageResp.Error.Message),
		}
	}

	annotation := &Annotation{
		Faces:  imageResp.FaceAnnotations,
		Labels: imageResp.LabelAnnotations,
	}
	if imageResp.SafeSearchAnnotation != nil {
		annotation.SafeSearch = *imageResp.SafeSearchAnnotation
	}

	return annotation, nil
}

// checkResponseStatus maps HTTP status codes to typed errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.logger.WarnWithFields("vision authentication error", map[string]interface{}{
			"status": resp.StatusCode,
		})
		return &errs.Error{
			Type:    errs.ErrorTypeAuth,
			Message: "Vision API rejected the credentials",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.WarnWithFields("vision rate limit exceeded", map[string]interface{}{
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
