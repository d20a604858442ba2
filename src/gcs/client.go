// Package gcs provides a read-only client for the Google Cloud Storage JSON
// API, used to list and download Prow job artifacts.
package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"operator-dashboard/src/logger"
	"operator-dashboard/src/provider"
)

const (
	// APIBaseURL is the object endpoint of the public Prow results bucket.
	APIBaseURL = "https://storage.googleapis.com/storage/v1/b/test-platform-results/o"

	// PageSize is the maximum number of objects requested per listing page.
	PageSize = 1000
)

// Client is a GCS JSON API client. It implements provider.ArtifactStore.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the object endpoint (tests, mirrors).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit bounds the request rate. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a new GCS client for the Prow results bucket.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: APIBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type objectList struct {
	Items         []object `json:"items"`
	NextPageToken string   `json:"nextPageToken"`
}

type object struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size,string"`
	Updated time.Time `json:"updated"`
}

// List returns all objects under prefix matching the glob, following
// nextPageToken until the listing is exhausted.
func (c *Client) List(ctx context.Context, prefix, glob string) ([]provider.Object, error) {
	var (
		out       []provider.Object
		pageToken string
		page      int
	)
	for {
		params := url.Values{}
		params.Set("prefix", prefix)
		params.Set("alt", "json")
		params.Set("matchGlob", glob)
		params.Set("maxResults", fmt.Sprint(PageSize))
		params.Set("projection", "noAcl")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var list objectList
		body, err := c.get(ctx, c.baseURL+"?"+params.Encode())
		if err != nil {
			return nil, fmt.Errorf("failed to list %s%s: %w", prefix, glob, err)
		}
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("failed to decode listing of %s: %w", prefix, err)
		}

		for _, o := range list.Items {
			out = append(out, provider.Object{Name: o.Name, Size: o.Size, Updated: o.Updated})
		}
		page++

		if list.NextPageToken == "" {
			break
		}
		pageToken = list.NextPageToken
	}

	c.logger.Debug("[GCS] %s%s: %d objects in %d pages", prefix, glob, len(out), page)
	return out, nil
}

// FetchText downloads an object's content.
func (c *Client) FetchText(ctx context.Context, path string) (string, error) {
	body, err := c.fetch(ctx, path)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FetchJSON downloads an object and decodes it into v.
func (c *Client) FetchJSON(ctx context.Context, path string, v any) error {
	body, err := c.fetch(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, path string) ([]byte, error) {
	c.logger.Debug("[GCS] fetching %s", path)
	body, err := c.get(ctx, c.baseURL+"/"+url.QueryEscape(path)+"?alt=media")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w: %v", provider.ErrNetworkTimeout, err)
		}
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, statusError(resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

func statusError(code int, body []byte) error {
	switch code {
	case http.StatusNotFound:
		return fmt.Errorf("%w: status %d", provider.ErrObjectNotFound, code)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", provider.ErrRateLimited, code)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", provider.ErrAuthFailed, code, string(body))
	default:
		return fmt.Errorf("API request failed with status %d: %s", code, string(body))
	}
}
