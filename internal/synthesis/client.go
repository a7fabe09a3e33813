package synthesis

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	defaultModel       = "gpt-image-1"
	defaultSize        = "1024x1024"
	defaultQuality     = "standard"
	defaultHTTPTimeout = 180 * time.Second

	retryMaxAttempts = 3
	retryBaseBackoff = 2 * time.Second
	retryMaxBackoff  = 32 * time.Second
)

// Config captures the runtime settings required to talk to the image
// synthesis collaborator.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Size           string
	Quality        string
	Style          string
	TimeoutSeconds int
}

// Client wraps the OpenAI Images API and tracks the estimated cost of every
// generated image.
type Client struct {
	api     openai.Client
	cfg     Config
	timeout time.Duration
	sleeper func(time.Duration)

	mu        sync.Mutex
	totalCost float64
	images    int
}

// Option customizes the client.
type Option func(*Client)

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a synthesis client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Size = strings.TrimSpace(cfg.Size)
	cfg.Quality = strings.TrimSpace(cfg.Quality)
	cfg.Style = strings.TrimSpace(cfg.Style)
	if cfg.APIKey == "" {
		return nil, errors.New("synthesis client: api key required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Size == "" {
		cfg.Size = defaultSize
	}
	if cfg.Quality == "" {
		cfg.Quality = defaultQuality
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	requestOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(cfg.BaseURL))
	}

	client := &Client{
		api:     openai.NewClient(requestOpts...),
		cfg:     cfg,
		timeout: timeout,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Generate produces one PNG image for the sanitized prompt and records its
// cost estimate.
func (c *Client) Generate(ctx context.Context, prompt string) ([]byte, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errors.New("synthesis generate: prompt required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(c.cfg.Model),
		Size:   openai.ImageGenerateParamsSize(c.cfg.Size),
		N:      openai.Int(1),
	}
	// The dall-e models need an explicit base64 response and take the
	// standard/hd quality and style knobs; gpt-image-1 always answers base64
	// and rejects all three parameters.
	if strings.HasPrefix(c.cfg.Model, "dall-e") {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormatB64JSON
		if c.cfg.Quality != "" {
			params.Quality = openai.ImageGenerateParamsQuality(c.cfg.Quality)
		}
		if c.cfg.Style != "" {
			params.Style = openai.ImageGenerateParamsStyle(c.cfg.Style)
		}
	}

	var lastErr error
	for attempt := 0; attempt < retryMaxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		resp, err := c.api.Images.Generate(ctx, params)
		if err != nil {
			lastErr = err
			if isRateLimited(err) && ctx.Err() == nil {
				continue
			}
			return nil, fmt.Errorf("synthesis generate: %w", err)
		}
		if len(resp.Data) == 0 {
			return nil, errors.New("synthesis generate: empty response data")
		}
		encoded := strings.TrimSpace(resp.Data[0].B64JSON)
		if encoded == "" {
			return nil, errors.New("synthesis generate: response carries no image payload")
		}
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("synthesis generate: decode image payload: %w", err)
		}

		c.recordCost(EstimateCost(c.cfg.Size, c.cfg.Quality))
		return decoded, nil
	}

	return nil, fmt.Errorf("synthesis generate: failed after %d attempts: %w", retryMaxAttempts, lastErr)
}

func (c *Client) backoff(ctx context.Context, attempt int) error {
	delay := retryBaseBackoff << (attempt - 1)
	if delay > retryMaxBackoff {
		delay = retryMaxBackoff
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isRateLimited(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

func (c *Client) recordCost(cost float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalCost += cost
	c.images++
}

// TotalCost returns the accumulated cost estimate of all generated images.
func (c *Client) TotalCost() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalCost
}

// Images returns the number of images generated so far.
func (c *Client) Images() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.images
}

// CostPerImage returns the estimate for one image at the configured size and
// quality.
func (c *Client) CostPerImage() float64 {
	return EstimateCost(c.cfg.Size, c.cfg.Quality)
}
