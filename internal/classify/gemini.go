package classify

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	GeminiName         = "gemini"
	geminiDefaultModel = "gemini-1.5-flash"
)

// GeminiConfig holds configuration for the Gemini visual provider.
type GeminiConfig struct {
	APIKey    string
	Model     string
	RateLimit float64 // Requests per second
}

// GeminiClient implements Visual using Google Gemini vision models.
type GeminiClient struct {
	apiKey  string
	model   string
	limiter *RateLimiter
}

// NewGeminiClient creates a new Gemini visual provider.
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.Model == "" {
		cfg.Model = geminiDefaultModel
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 1.0
	}
	return &GeminiClient{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		limiter: NewRateLimiter(cfg.RateLimit),
	}
}

// Name returns the provider identifier.
func (c *GeminiClient) Name() string {
	return GeminiName
}

// Classify sends the page image with the category prompt and parses the
// model's JSON verdict.
func (c *GeminiClient) Classify(ctx context.Context, image []byte) (Verdict, error) {
	if c.apiKey == "" {
		return Verdict{}, fmt.Errorf("gemini API key not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Verdict{}, err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(c.model)
	model.SetTemperature(0)

	resp, err := model.GenerateContent(ctx,
		genai.ImageData("jpeg", image),
		genai.Text(visionPrompt()),
	)
	if err != nil {
		return Verdict{}, fmt.Errorf("gemini classification failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return Verdict{}, fmt.Errorf("gemini returned no candidates")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return Verdict{}, fmt.Errorf("gemini returned empty content")
	}

	txt, ok := candidate.Content.Parts[0].(genai.Text)
	if !ok {
		return Verdict{}, fmt.Errorf("unexpected response part from gemini")
	}

	return parseVerdict(string(txt))
}
