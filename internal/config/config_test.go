package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openglam/masthead/internal/classify"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if len(cfg.VisualProviders) == 0 {
		t.Error("expected default visual providers")
	}
	if cfg.VisualProviders["openai"].APIKey != "${OPENAI_API_KEY}" {
		t.Error("expected openai API key placeholder")
	}
	if cfg.Policy.Strategy != string(classify.StrategyHybrid) {
		t.Errorf("default strategy = %q", cfg.Policy.Strategy)
	}
	if !classify.ValidStrategy(classify.Strategy(cfg.Policy.Strategy)) {
		t.Errorf("default strategy %q is not valid", cfg.Policy.Strategy)
	}
	if cfg.Fetch.ImageWidth != 1200 {
		t.Errorf("default image width = %d, want 1200", cfg.Fetch.ImageWidth)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		os.Setenv("TEST_API_KEY", "secret123")
		defer os.Unsetenv("TEST_API_KEY")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestConfig_ToRegistryConfig(t *testing.T) {
	os.Setenv("TEST_OPENAI_KEY", "sk-test-123")
	defer os.Unsetenv("TEST_OPENAI_KEY")

	cfg := &Config{
		VisualProviders: map[string]VisualProviderCfg{
			"openai": {Type: "openai", Model: "gpt-4o-mini", APIKey: "${TEST_OPENAI_KEY}", RateLimit: 2, Enabled: true},
		},
		StructuralProviders: map[string]StructuralProviderCfg{
			"tesseract": {Type: "tesseract", URL: "http://localhost:8884", Languages: []string{"pol"}, Enabled: true},
		},
	}

	rc := cfg.ToRegistryConfig()
	if rc.Visual["openai"].APIKey != "sk-test-123" {
		t.Errorf("API key not resolved: %q", rc.Visual["openai"].APIKey)
	}
	if rc.Structural["tesseract"].URL != "http://localhost:8884" {
		t.Errorf("tesseract URL = %q", rc.Structural["tesseract"].URL)
	}
	if got := rc.Structural["tesseract"].Languages; len(got) != 1 || got[0] != "pol" {
		t.Errorf("languages = %v", got)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		configContent := `
policy:
  strategy: "visual-only"
  visual_provider: "gemini"
`
		if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Policy.Strategy != "visual-only" {
			t.Errorf("strategy = %q, want visual-only", cfg.Policy.Strategy)
		}
		if cfg.Policy.VisualProvider != "gemini" {
			t.Errorf("visual provider = %q, want gemini", cfg.Policy.VisualProvider)
		}
		// Unset sections fall back to defaults.
		if cfg.Server.Port != 8090 {
			t.Errorf("server port = %d, want default 8090", cfg.Server.Port)
		}
	})
}

func TestManager_OnChange_Multiple(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configFile, []byte("server:\n  port: 8090\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configFile, []byte("server:\n  port: 8090\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				cfg := mgr.Get()
				_ = cfg.Server.Port
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configFile, []byte("policy:\n  strategy: \"hybrid\"\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	if got := mgr.Get().Policy.Strategy; got != "hybrid" {
		t.Errorf("initial strategy = %q, want hybrid", got)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Value

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.Policy.Strategy)
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("policy:\n  strategy: \"visual-only\"\n"), 0644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	// Wait for the watcher to detect the change (fsnotify is async)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if callbackCount.Load() > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Error("callback was not invoked after config file change")
	}

	if got := mgr.Get().Policy.Strategy; got != "visual-only" {
		t.Errorf("config not updated: strategy = %q, want visual-only", got)
	}
	if v := lastValue.Load(); v != "visual-only" {
		t.Errorf("callback received wrong value: %v", v)
	}
}
