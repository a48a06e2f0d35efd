package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"palette/internal/config"
	"palette/internal/services"
)

const (
	defaultHTTPTimeout = 120 * time.Second
	maxErrorBody       = 512
)

// Classifier is the contract the batch driver depends on.
type Classifier interface {
	Classify(ctx context.Context, path string) (Result, error)
}

// Config captures the runtime settings for the classification service.
type Config struct {
	URL                string
	ImageThreshold     float64
	MinFrames          int
	DetectionThreshold float64
	StrictMode         bool
	TimeoutSeconds     int
	FFprobeBinary      string
	SampleInterval     float64
}

// ConfigFrom extracts classifier settings from application config.
func ConfigFrom(cfg *config.Config) Config {
	if cfg == nil {
		return Config{}
	}
	return Config{
		URL:                cfg.Classifier.URL,
		ImageThreshold:     cfg.Classifier.ImageThreshold,
		MinFrames:          cfg.Classifier.MinFrames,
		DetectionThreshold: cfg.Classifier.DetectionThreshold,
		StrictMode:         cfg.Classifier.StrictMode,
		TimeoutSeconds:     cfg.Classifier.TimeoutSeconds,
		FFprobeBinary:      cfg.FFprobeBinary(),
	}
}

// Prober reads video metadata for frame planning.
type Prober func(ctx context.Context, binary, path string) (VideoInfo, error)

// HTTPClient classifies files by posting them to the classification service.
type HTTPClient struct {
	cfg        Config
	httpClient *http.Client
	probe      Prober
}

// Option customizes the client.
type Option func(*HTTPClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithProber overrides how video metadata is read (useful for tests).
func WithProber(p Prober) Option {
	return func(c *HTTPClient) {
		if p != nil {
			c.probe = p
		}
	}
}

// NewHTTPClient constructs a classifier client.
func NewHTTPClient(cfg Config, opts ...Option) *HTTPClient {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.URL = strings.TrimSpace(cfg.URL)
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = DefaultSampleInterval
	}
	c := &HTTPClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		probe:      ProbeVideo,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type classifyRequest struct {
	Path       string    `json:"path"`
	Kind       Kind      `json:"kind"`
	Timestamps []float64 `json:"timestamps,omitempty"`
}

type classifyResponse struct {
	Probabilities Probabilities `json:"probabilities"`
	Frames        []struct {
		Timestamp     float64       `json:"timestamp"`
		Probabilities Probabilities `json:"probabilities"`
	} `json:"frames"`
	Error string `json:"error"`
}

// Classify scores path and applies the configured decision rules.
func (c *HTTPClient) Classify(ctx context.Context, path string) (Result, error) {
	kind, ok := KindForPath(path)
	if !ok {
		return Result{}, services.Wrap(services.ErrCorrupt, "classifier", "classify",
			fmt.Sprintf("unsupported file type %q", path), nil)
	}
	if kind == KindVideo {
		return c.classifyVideo(ctx, path)
	}

	resp, err := c.send(ctx, classifyRequest{Path: path, Kind: KindImage})
	if err != nil {
		return Result{}, err
	}
	if len(resp.Probabilities) == 0 {
		return Result{}, services.Wrap(services.ErrCorrupt, "classifier", "classify image", "empty probabilities", nil)
	}
	top, _ := resp.Probabilities.Top()
	positive := resp.Probabilities.IsPositive(c.cfg.ImageThreshold)
	if c.cfg.StrictMode {
		positive = resp.Probabilities.IsPositiveStrict(c.cfg.ImageThreshold)
	}
	return Image(ImageResult{
		IsPositive: positive,
		Confidence: resp.Probabilities[LabelWatercolor],
		TopLabel:   top,
	}), nil
}

func (c *HTTPClient) classifyVideo(ctx context.Context, path string) (Result, error) {
	info, err := c.probe(ctx, c.cfg.FFprobeBinary, path)
	if err != nil {
		return Result{}, services.Wrap(services.ErrCorrupt, "classifier", "probe video", path, err)
	}
	plan := PlanFrames(info, c.cfg.SampleInterval, c.cfg.MinFrames)
	rules := VideoRules{
		ImageThreshold:     c.cfg.ImageThreshold,
		DetectionThreshold: c.cfg.DetectionThreshold,
		StrictMode:         c.cfg.StrictMode,
	}
	if len(plan.Timestamps) == 0 {
		return Video(AggregateFrames(info, plan, nil, rules)), nil
	}

	resp, err := c.send(ctx, classifyRequest{Path: path, Kind: KindVideo, Timestamps: plan.Timestamps})
	if err != nil {
		return Result{}, err
	}
	frames := make([]FrameScore, 0, len(resp.Frames))
	for _, f := range resp.Frames {
		frames = append(frames, FrameScore{Timestamp: f.Timestamp, Probabilities: f.Probabilities})
	}
	return Video(AggregateFrames(info, plan, frames, rules)), nil
}

func (c *HTTPClient) send(ctx context.Context, payload classifyRequest) (classifyResponse, error) {
	var decoded classifyResponse
	if c.cfg.URL == "" {
		return decoded, services.Wrap(services.ErrConfiguration, "classifier", "request", "service url not configured", nil)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return decoded, fmt.Errorf("classifier request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(encoded))
	if err != nil {
		return decoded, fmt.Errorf("classifier request: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decoded, services.Wrap(services.ErrUnreachable, "classifier", "request",
			fmt.Sprintf("http error (timeout=%s)", c.httpClient.Timeout), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decoded, services.Wrap(services.ErrUnreachable, "classifier", "request", "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return decoded, services.Wrap(services.ErrUnreachable, "classifier", "request",
			fmt.Sprintf("http %d: %s", resp.StatusCode, snippet(body)), nil)
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return decoded, services.Wrap(services.ErrCorrupt, "classifier", "decode response", snippet(body), err)
	}
	if msg := strings.TrimSpace(decoded.Error); msg != "" {
		return decoded, services.Wrap(services.ErrCorrupt, "classifier", "classify", msg, nil)
	}
	return decoded, nil
}

// Ping verifies the classification service answers HTTP requests.
func (c *HTTPClient) Ping(ctx context.Context) error {
	if c.cfg.URL == "" {
		return services.Wrap(services.ErrConfiguration, "classifier", "ping", "service url not configured", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("classifier ping: new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrUnreachable, "classifier", "ping", c.cfg.URL, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return services.Wrap(services.ErrUnreachable, "classifier", "ping", fmt.Sprintf("http %d", resp.StatusCode), nil)
	}
	return nil
}

func snippet(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		return text[:maxErrorBody] + "..."
	}
	return text
}
