package classify

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// VisualProviderConfig configures one visual provider instance.
type VisualProviderConfig struct {
	Type      string  // "openai", "gemini"
	Model     string
	APIKey    string
	RateLimit float64 // Requests per second
	Enabled   bool
}

// StructuralProviderConfig configures one structural provider instance.
type StructuralProviderConfig struct {
	Type      string // "tesseract"
	URL       string
	Languages []string
	Enabled   bool
}

// RegistryConfig is the provider portion of the application config.
type RegistryConfig struct {
	Visual     map[string]VisualProviderConfig
	Structural map[string]StructuralProviderConfig
}

// Registry holds constructed providers, rebuilt on config reload. Providers
// are owned here and passed into pipelines explicitly; nothing holds model
// state at package level.
type Registry struct {
	mu         sync.RWMutex
	visual     map[string]Visual
	structural map[string]Structural
	logger     *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		visual:     make(map[string]Visual),
		structural: make(map[string]Structural),
		logger:     slog.Default(),
	}
}

// SetLogger sets the logger used for reload reporting.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if logger != nil {
		r.logger = logger
	}
}

// Reload replaces all providers from the given configuration. Disabled and
// unconstructible providers are skipped with a log line, not an error, so a
// bad entry cannot take down the rest of the registry.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.visual = make(map[string]Visual)
	for name, pc := range cfg.Visual {
		if !pc.Enabled {
			continue
		}
		provider, err := buildVisual(pc)
		if err != nil {
			r.logger.Warn("skipping visual provider", "name", name, "error", err)
			continue
		}
		r.visual[name] = provider
		r.logger.Info("registered visual provider", "name", name, "type", pc.Type, "model", pc.Model)
	}

	r.structural = make(map[string]Structural)
	for name, pc := range cfg.Structural {
		if !pc.Enabled {
			continue
		}
		provider, err := buildStructural(pc)
		if err != nil {
			r.logger.Warn("skipping structural provider", "name", name, "error", err)
			continue
		}
		r.structural[name] = provider
		r.logger.Info("registered structural provider", "name", name, "type", pc.Type)
	}
}

// RegisterVisual installs a constructed visual provider under a name,
// bypassing config. Reload replaces it.
func (r *Registry) RegisterVisual(name string, p Visual) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visual[name] = p
}

// RegisterStructural installs a constructed structural provider under a name,
// bypassing config. Reload replaces it.
func (r *Registry) RegisterStructural(name string, p Structural) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.structural[name] = p
}

// Visual returns a visual provider by name.
func (r *Registry) Visual(name string) (Visual, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.visual[name]
	if !ok {
		return nil, fmt.Errorf("visual provider not registered: %s", name)
	}
	return p, nil
}

// Structural returns a structural provider by name.
func (r *Registry) Structural(name string) (Structural, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.structural[name]
	if !ok {
		return nil, fmt.Errorf("structural provider not registered: %s", name)
	}
	return p, nil
}

// VisualNames lists registered visual providers, sorted.
func (r *Registry) VisualNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.visual))
	for name := range r.visual {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StructuralNames lists registered structural providers, sorted.
func (r *Registry) StructuralNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.structural))
	for name := range r.structural {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func buildVisual(cfg VisualProviderConfig) (Visual, error) {
	switch cfg.Type {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return NewOpenAIClient(OpenAIConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			RateLimit: cfg.RateLimit,
		}), nil
	case "gemini":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini provider requires an API key")
		}
		return NewGeminiClient(GeminiConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			RateLimit: cfg.RateLimit,
		}), nil
	default:
		return nil, fmt.Errorf("unknown visual provider type: %s", cfg.Type)
	}
}

func buildStructural(cfg StructuralProviderConfig) (Structural, error) {
	switch cfg.Type {
	case "tesseract":
		return NewTesseractClient(TesseractConfig{
			URL:       cfg.URL,
			Languages: cfg.Languages,
		}), nil
	default:
		return nil, fmt.Errorf("unknown structural provider type: %s", cfg.Type)
	}
}
