package classify

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAIName         = "openai"
	openAIDefaultModel = "gpt-4o-mini"
)

// OpenAIConfig holds configuration for the OpenAI visual provider.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	RateLimit  float64       // Requests per second
	MaxRetries int           // SDK transport retries
	Timeout    time.Duration // HTTP timeout
	BaseURL    string        // Optional (tests)
	HTTPClient *http.Client  // Optional (tests)
}

// OpenAIClient implements Visual using OpenAI chat completions with an image
// content part. The answer is requested as JSON and validated locally.
type OpenAIClient struct {
	model   string
	limiter *RateLimiter
	client  openai.Client
}

// NewOpenAIClient creates a new OpenAI visual provider.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 1.0
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		model:   cfg.Model,
		limiter: NewRateLimiter(cfg.RateLimit),
		client:  openai.NewClient(opts...),
	}
}

// Name returns the provider identifier.
func (c *OpenAIClient) Name() string {
	return OpenAIName
}

// Classify sends the page image with the category prompt and parses the
// model's JSON verdict.
func (c *OpenAIClient) Classify(ctx context.Context, image []byte) (Verdict, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Verdict{}, err
	}

	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(visionPrompt()),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL,
				}),
			}),
		},
		Temperature: openai.Float(0),
		MaxTokens:   openai.Int(64),
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("openai classification failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Verdict{}, fmt.Errorf("openai returned no choices")
	}

	return parseVerdict(resp.Choices[0].Message.Content)
}
