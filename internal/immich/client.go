package immich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"palette/internal/config"
	"palette/internal/logging"
	"palette/internal/services"
)

const (
	// DefaultPageSize matches the server's maximum search page.
	DefaultPageSize       = 1000
	defaultRequestTimeout = 30 * time.Second
	maxErrorBody          = 4096
)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client talks to one Immich server with one API key.
type Client struct {
	baseURL  string
	apiKey   string
	pageSize int
	http     HTTPDoer
	logger   *slog.Logger

	mu   sync.Mutex
	tags map[string]string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient swaps the HTTP backend.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithPageSize sets the page size for paginated listings.
func WithPageSize(size int) Option {
	return func(c *Client) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "immich")
		}
	}
}

// New constructs a client for baseURL authenticated with apiKey.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	apiKey = strings.TrimSpace(apiKey)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "immich", "init", "server url is not set", nil)
	}
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "immich", "init", "api key is not set", nil)
	}
	c := &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		pageSize: DefaultPageSize,
		http:     &http.Client{Timeout: defaultRequestTimeout},
		logger:   logging.NewNop(),
		tags:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromConfig builds a client from the [immich] config section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "immich", "init", "config is nil", nil)
	}
	opts := []Option{WithPageSize(cfg.Immich.PageSize), WithLogger(logger)}
	if cfg.Immich.RequestTimeout > 0 {
		opts = append(opts, WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Immich.RequestTimeout) * time.Second,
		}))
	}
	return New(cfg.Immich.URL, cfg.Immich.APIKey, opts...)
}

// BaseURL returns the normalized server URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ping checks that the server answers and the API key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	var resp struct {
		Res string `json:"res"`
	}
	data, err := c.do(ctx, http.MethodGet, "/api/server/ping", nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, &resp); err != nil || !strings.EqualFold(resp.Res, "pong") {
		return services.Wrap(services.ErrUnreachable, "immich", "ping", "unexpected ping response", err)
	}
	return nil
}

// do sends a JSON request and returns the raw response body. Any transport
// failure or non-2xx status is reported as unreachable.
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "immich", "build request", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrUnreachable, "immich", method+" "+path, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := fmt.Sprintf("status %d", resp.StatusCode)
		if text := strings.TrimSpace(string(snippet)); text != "" {
			msg += ": " + text
		}
		return nil, services.Wrap(services.ErrUnreachable, "immich", method+" "+path, msg, nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrUnreachable, "immich", method+" "+path, "read response", err)
	}
	return data, nil
}
