package config

import (
	"github.com/openglam/masthead/internal/classify"
	"github.com/openglam/masthead/internal/iiif"
)

// Config holds masthead configuration.
// Stored at: ~/.masthead/config.yaml
type Config struct {
	VisualProviders     map[string]VisualProviderCfg     `mapstructure:"visual_providers" yaml:"visual_providers"`
	StructuralProviders map[string]StructuralProviderCfg `mapstructure:"structural_providers" yaml:"structural_providers"`
	Policy              PolicyCfg                        `mapstructure:"policy" yaml:"policy"`
	Fetch               FetchCfg                         `mapstructure:"fetch" yaml:"fetch"`
	Tesseract           TesseractCfg                     `mapstructure:"tesseract" yaml:"tesseract"`
	Server              ServerCfg                        `mapstructure:"server" yaml:"server"`
}

// VisualProviderCfg configures a vision-model classifier.
type VisualProviderCfg struct {
	Type      string  `mapstructure:"type" yaml:"type"`   // "openai", "gemini"
	Model     string  `mapstructure:"model" yaml:"model"` // Model name
	APIKey    string  `mapstructure:"api_key" yaml:"api_key"` // API key (supports ${ENV_VAR} syntax)
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
}

// StructuralProviderCfg configures an OCR layout analyzer.
type StructuralProviderCfg struct {
	Type      string   `mapstructure:"type" yaml:"type"` // "tesseract"
	URL       string   `mapstructure:"url" yaml:"url"`   // tesseract-server endpoint
	Languages []string `mapstructure:"languages" yaml:"languages"`
	Enabled   bool     `mapstructure:"enabled" yaml:"enabled"`
}

// PolicyCfg selects how signals combine into a verdict.
type PolicyCfg struct {
	// Strategy is one of "visual-only", "structural-only", "hybrid".
	Strategy string `mapstructure:"strategy" yaml:"strategy"`
	// VisualProvider and StructuralProvider name entries in the provider maps.
	VisualProvider     string `mapstructure:"visual_provider" yaml:"visual_provider"`
	StructuralProvider string `mapstructure:"structural_provider" yaml:"structural_provider"`
	// StructuralPrecedence lets a positive heading signal override a
	// negative visual verdict in the hybrid strategy.
	StructuralPrecedence bool `mapstructure:"structural_precedence" yaml:"structural_precedence"`
}

// FetchCfg tunes manifest and image retrieval.
type FetchCfg struct {
	ImageWidth      int  `mapstructure:"image_width" yaml:"image_width"`             // IIIF size parameter, px
	ManifestTimeout int  `mapstructure:"manifest_timeout" yaml:"manifest_timeout"`   // seconds
	ImageTimeout    int  `mapstructure:"image_timeout" yaml:"image_timeout"`         // seconds
	Concurrency     int  `mapstructure:"concurrency" yaml:"concurrency"`             // parallel image downloads
	Dedupe          bool `mapstructure:"dedupe" yaml:"dedupe"`                       // perceptual-hash verdict reuse
}

// TesseractCfg holds the managed tesseract-server container configuration.
type TesseractCfg struct {
	// Managed starts and stops the container with the server. When false the
	// structural provider URL must point at an externally run instance.
	Managed bool `mapstructure:"managed" yaml:"managed"`
	// ContainerName is the Docker container name (default: masthead-tesseract)
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	// Image is the Docker image to use (default: hertzg/tesseract-server:latest)
	Image string `mapstructure:"image" yaml:"image"`
	// Port is the host port to bind (default: 8884)
	Port string `mapstructure:"port" yaml:"port"`
}

// ServerCfg holds the HTTP listener configuration.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		VisualProviders: map[string]VisualProviderCfg{
			"openai": {
				Type:      "openai",
				Model:     "gpt-4o-mini",
				APIKey:    "${OPENAI_API_KEY}",
				RateLimit: 2.0,
				Enabled:   true,
			},
			"gemini": {
				Type:    "gemini",
				Model:   "gemini-1.5-flash",
				APIKey:  "${GEMINI_API_KEY}",
				Enabled: false,
			},
		},
		StructuralProviders: map[string]StructuralProviderCfg{
			"tesseract": {
				Type:      "tesseract",
				URL:       classify.DefaultTesseractURL,
				Languages: []string{"pol"},
				Enabled:   true,
			},
		},
		Policy: PolicyCfg{
			Strategy:             string(classify.StrategyHybrid),
			VisualProvider:       "openai",
			StructuralProvider:   "tesseract",
			StructuralPrecedence: true,
		},
		Fetch: FetchCfg{
			ImageWidth:      iiif.DefaultImageWidth,
			ManifestTimeout: 20,
			ImageTimeout:    30,
			Concurrency:     1,
			Dedupe:          false,
		},
		Tesseract: TesseractCfg{
			Managed:       true,
			ContainerName: "masthead-tesseract",
			Image:         "hertzg/tesseract-server:latest",
			Port:          "8884",
		},
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: 8090,
		},
	}
}

// GetVisualProvider returns a visual provider config by name.
func (c *Config) GetVisualProvider(name string) (VisualProviderCfg, bool) {
	cfg, ok := c.VisualProviders[name]
	return cfg, ok
}

// GetStructuralProvider returns a structural provider config by name.
func (c *Config) GetStructuralProvider(name string) (StructuralProviderCfg, bool) {
	cfg, ok := c.StructuralProviders[name]
	return cfg, ok
}
