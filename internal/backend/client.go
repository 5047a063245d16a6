package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/gistapp/gist/internal/conventions"
	"github.com/gistapp/gist/internal/log"
)

// ClientConfig configures the backend API client.
type ClientConfig struct {
	// BaseURL is the API base URL (e.g. "http://localhost:8000/api").
	BaseURL string
	// Token is the bearer token of the user.
	Token string
	// UserAgent is sent on every request.
	UserAgent string
	// HTTPClient is used for the regular request/response calls.
	HTTPClient *http.Client
	// StreamHTTPClient is used for long lived streams, it must not set a global timeout.
	StreamHTTPClient *http.Client
	Logger           log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.BaseURL == "" {
		c.BaseURL = conventions.DefaultAPIURL
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base url: %w", err)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	if c.UserAgent == "" {
		c.UserAgent = "gist"
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.StreamHTTPClient == nil {
		c.StreamHTTPClient = http.DefaultClient
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "backend.Client"})
	return nil
}

// Client is the Gist backend REST and status stream client.
type Client struct {
	baseURL          string
	token            string
	userAgent        string
	httpClient       *http.Client
	streamHTTPClient *http.Client
	logger           log.Logger
}

// NewClient returns a new backend client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		baseURL:          cfg.BaseURL,
		token:            cfg.Token,
		userAgent:        cfg.UserAgent,
		httpClient:       cfg.HTTPClient,
		streamHTTPClient: cfg.StreamHTTPClient,
		logger:           cfg.Logger,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("could not encode request body: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return req, nil
}

// do executes a JSON request and decodes the JSON response into out (if not nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	logger := c.logger.WithValues(log.Kv{"method": method, "path": path, "request-id": req.Header.Get("X-Request-ID")})
	logger.Debugf("Calling backend")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp)
		logger.Debugf("Backend returned error: %s", apiErr)
		return fmt.Errorf("%s %s: %w", method, path, apiErr)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}

	return nil
}
