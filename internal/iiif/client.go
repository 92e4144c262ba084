package iiif

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	// DefaultImageWidth is the pixel width requested from image services.
	DefaultImageWidth = 1200

	defaultManifestTimeout = 20 * time.Second
	defaultImageTimeout    = 30 * time.Second
	defaultFetchAttempts   = 3

	// maxImageBytes caps a single page image download.
	maxImageBytes = 32 << 20
)

// ClientConfig configures a manifest/image fetch client.
type ClientConfig struct {
	ImageWidth      int
	ManifestTimeout time.Duration
	ImageTimeout    time.Duration
	Attempts        uint
	HTTPClient      *http.Client // Optional (tests)
	Logger          *slog.Logger
}

// Client fetches manifests and page images over HTTP with retries.
type Client struct {
	http            *http.Client
	imageWidth      int
	manifestTimeout time.Duration
	imageTimeout    time.Duration
	attempts        uint
	logger          *slog.Logger
}

// NewClient creates a fetch client with defaults filled in.
func NewClient(cfg ClientConfig) *Client {
	if cfg.ImageWidth <= 0 {
		cfg.ImageWidth = DefaultImageWidth
	}
	if cfg.ManifestTimeout == 0 {
		cfg.ManifestTimeout = defaultManifestTimeout
	}
	if cfg.ImageTimeout == 0 {
		cfg.ImageTimeout = defaultImageTimeout
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = defaultFetchAttempts
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		http:            cfg.HTTPClient,
		imageWidth:      cfg.ImageWidth,
		manifestTimeout: cfg.ManifestTimeout,
		imageTimeout:    cfg.ImageTimeout,
		attempts:        cfg.Attempts,
		logger:          cfg.Logger,
	}
}

// ImageWidth returns the configured image request width.
func (c *Client) ImageWidth() int {
	return c.imageWidth
}

// FetchManifest downloads and parses a manifest document.
func (c *Client) FetchManifest(ctx context.Context, url string) (*Manifest, error) {
	data, err := c.fetch(ctx, url, c.manifestTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manifest: %w", err)
	}
	return Parse(data)
}

// FetchImage downloads the page image for a canvas at the configured width.
func (c *Client) FetchImage(ctx context.Context, canvas Canvas) ([]byte, error) {
	url := canvas.ImageURL(c.imageWidth)
	if url == "" {
		return nil, fmt.Errorf("canvas %d has no image service", canvas.Number)
	}
	data, err := c.fetch(ctx, url, c.imageTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page %d image: %w", canvas.Number, err)
	}
	return data, nil
}

// fetch performs a GET with per-call timeout and retries on transient errors.
func (c *Client) fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	var body []byte
	err := retry.Do(
		func() error {
			reqCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}

			resp, err := c.http.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				err := fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
				// Client errors won't improve on retry.
				if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
					return retry.Unrecoverable(err)
				}
				return err
			}

			body, err = io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
			return err
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(1*time.Second),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying fetch", "url", url, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}
