package loader

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DefaultTimeout bounds package downloads.
const DefaultTimeout = 30 * time.Second

// Client downloads FHIR Schema packages from a registry.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets the registry base URL.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a registry client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Download fetches the package name#version from the registry.
func (c *Client) Download(ctx context.Context, name, version string) (*Package, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("loader: no registry base URL configured")
	}
	url := fmt.Sprintf("%s/%s/%s/package.ndjson.gz", c.baseURL, name, version)
	return c.DownloadURL(ctx, url)
}

// DownloadURL fetches a package from an explicit URL.
func (c *Client) DownloadURL(ctx context.Context, url string) (*Package, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("loader: build request: %w", err)
	}
	req.Header.Set("Accept", "application/gzip")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("loader: download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("loader: download %s: unexpected status %s", url, resp.Status)
	}

	return Read(resp.Body)
}
