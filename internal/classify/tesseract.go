package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	TesseractName       = "tesseract"
	DefaultTesseractURL = "http://localhost:8884"

	// Heading heuristic: a word is heading-sized when its glyph height
	// exceeds the absolute floor or the ratio against the page median.
	minHeadingHeightPx    = 50
	headingToMedianRatio  = 4.0
	minWordConfidencePerc = 60
)

// TesseractConfig holds configuration for the Tesseract structural provider.
type TesseractConfig struct {
	URL        string
	Languages  []string
	Timeout    time.Duration
	HTTPClient *http.Client // Optional (tests)
}

// TesseractClient implements Structural against a tesseract-server instance.
// The server runs the OCR engine out of process; this client only asks for
// word geometry (TSV output) and applies the heading heuristic.
type TesseractClient struct {
	url       string
	languages []string
	client    *http.Client
}

// NewTesseractClient creates a new structural provider.
func NewTesseractClient(cfg TesseractConfig) *TesseractClient {
	if cfg.URL == "" {
		cfg.URL = DefaultTesseractURL
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"pol"}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &TesseractClient{
		url:       strings.TrimRight(cfg.URL, "/"),
		languages: cfg.Languages,
		client:    client,
	}
}

// Name returns the provider identifier.
func (c *TesseractClient) Name() string {
	return TesseractName
}

// Health checks that the OCR server answers.
func (c *TesseractClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/status", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("tesseract server unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tesseract server unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// Analyze runs OCR on the page image and reduces the word geometry to the
// large-heading signal.
func (c *TesseractClient) Analyze(ctx context.Context, image []byte) (Signal, error) {
	stdout, err := c.recognize(ctx, image)
	if err != nil {
		return Signal{}, err
	}
	return headingSignal(stdout), nil
}

// tesseractResponse mirrors the tesseract-server response envelope.
type tesseractResponse struct {
	Data struct {
		Stdout   string `json:"stdout"`
		Stderr   string `json:"stderr"`
		ExitCode int    `json:"exitCode"`
	} `json:"data"`
}

// recognize posts the image and returns the TSV recognition output.
func (c *TesseractClient) recognize(ctx context.Context, image []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	options, err := json.Marshal(map[string]any{
		"languages": c.languages,
		"format":    "tsv",
	})
	if err != nil {
		return "", err
	}
	if err := mw.WriteField("options", string(options)); err != nil {
		return "", err
	}
	part, err := mw.CreateFormFile("file", "page.jpg")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(image); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/tesseract", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ocr server returned status %d: %s", resp.StatusCode, msg)
	}

	var parsed tesseractResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode ocr response: %w", err)
	}
	if parsed.Data.ExitCode != 0 {
		return "", fmt.Errorf("ocr engine failed: %s", parsed.Data.Stderr)
	}
	return parsed.Data.Stdout, nil
}

// headingSignal applies the heading heuristic to Tesseract TSV output.
// Only words with confidence above the floor and non-blank text count;
// a word is heading-sized when taller than the absolute floor or the
// ratio against the median word height on the page.
func headingSignal(tsv string) Signal {
	var heights []float64

	lines := strings.Split(tsv, "\n")
	for i, line := range lines {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue // header
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 12 {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf <= minWordConfidencePerc {
			continue
		}
		if strings.TrimSpace(cols[11]) == "" {
			continue
		}
		h, err := strconv.ParseFloat(cols[9], 64)
		if err != nil {
			continue
		}
		heights = append(heights, h)
	}

	if len(heights) == 0 {
		return Signal{}
	}

	med := median(heights)
	blocks := 0
	for _, h := range heights {
		if h > minHeadingHeightPx || h > med*headingToMedianRatio {
			blocks++
		}
	}

	return Signal{
		LargeHeading: blocks > 0,
		Blocks:       blocks,
		MedianHeight: med,
	}
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
