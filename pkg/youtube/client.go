package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mediagate/pkg/config"
	apperrors "mediagate/pkg/errors"
	"mediagate/pkg/logger"
)

// ErrChannelNotFound is returned when a lookup yields no items
var ErrChannelNotFound = errors.New("channel not found")

// Client talks to the YouTube Data API. Calls are never retried or cached.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     logger.Logger
}

// NewClient creates a Data API client from configuration
func NewClient(cfg config.YouTubeConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultYouTubeBaseURL
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		logger:     log.WithField("component", "youtube"),
	}
}

// WithHTTPClient replaces the underlying HTTP client
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

func (c *Client) endpoint(resource string, params url.Values) string {
	params.Set("key", c.apiKey)
	return fmt.Sprintf("%s/%s?%s", c.baseURL, resource, params.Encode())
}

// redact hides the credential in URLs that end up in logs
func redact(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}
	q := parsed.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
		parsed.RawQuery = q.Encode()
	}
	return parsed.String()
}

func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	start := time.Now()
	logURL := redact(req.URL.String())

	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    logURL,
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      logURL,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, apperrors.Upstream("Failed to reach YouTube", err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      logURL,
		"status":   resp.StatusCode,
		"duration": duration,
	})
	return resp, nil
}

// getJSON performs a GET against a Data API resource and decodes the body
func (c *Client) getJSON(ctx context.Context, resource string, params url.Values, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(resource, params), nil)
	if err != nil {
		return apperrors.Internal("failed to build request", err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Upstream("Failed to read YouTube response", err)
	}

	if err := c.checkResponseStatus(resp, body); err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"resource":     resource,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return apperrors.Upstream("Unexpected response from YouTube", err)
	}
	return nil
}

// checkResponseStatus turns non-2xx answers into collaborator failures,
// keeping the API's own message for the logs
func (c *Client) checkResponseStatus(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var apiErr apiErrorResponse
	_ = json.Unmarshal(body, &apiErr)

	c.logger.WarnWithFields("YouTube API error", map[string]interface{}{
		"status":  resp.StatusCode,
		"message": apiErr.Error.Message,
	})

	return apperrors.Upstream("Failed to fetch data from YouTube",
		fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error.Message))
}
