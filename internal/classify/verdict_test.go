package classify

import "testing"

func TestParseVerdict(t *testing.T) {
	t.Run("plain json", func(t *testing.T) {
		v, err := parseVerdict(`{"category": 0, "confidence": 0.93}`)
		if err != nil {
			t.Fatal(err)
		}
		if !v.IsCover || v.Confidence != 0.93 || v.Category != 0 {
			t.Errorf("unexpected verdict: %+v", v)
		}
	})

	t.Run("non-cover category", func(t *testing.T) {
		v, err := parseVerdict(`{"category": 2, "confidence": 0.6}`)
		if err != nil {
			t.Fatal(err)
		}
		if v.IsCover {
			t.Errorf("category 2 must not be a cover: %+v", v)
		}
	})

	t.Run("fenced json", func(t *testing.T) {
		v, err := parseVerdict("```json\n{\"category\": 0, \"confidence\": 0.8}\n```")
		if err != nil {
			t.Fatal(err)
		}
		if !v.IsCover {
			t.Errorf("unexpected verdict: %+v", v)
		}
	})

	t.Run("json embedded in prose", func(t *testing.T) {
		v, err := parseVerdict(`The page is a cover. {"category": 0, "confidence": 0.75}`)
		if err != nil {
			t.Fatal(err)
		}
		if !v.IsCover {
			t.Errorf("unexpected verdict: %+v", v)
		}
	})

	t.Run("category out of bounds", func(t *testing.T) {
		if _, err := parseVerdict(`{"category": 9, "confidence": 0.5}`); err == nil {
			t.Error("expected schema validation failure")
		}
	})

	t.Run("confidence out of bounds", func(t *testing.T) {
		if _, err := parseVerdict(`{"category": 0, "confidence": 1.5}`); err == nil {
			t.Error("expected schema validation failure")
		}
	})

	t.Run("not json", func(t *testing.T) {
		if _, err := parseVerdict("it is a cover, trust me"); err == nil {
			t.Error("expected parse failure")
		}
	})
}

func TestRegistry_Reload(t *testing.T) {
	r := NewRegistry()
	r.Reload(RegistryConfig{
		Visual: map[string]VisualProviderConfig{
			"openai":   {Type: "openai", APIKey: "sk-test", Enabled: true},
			"gemini":   {Type: "gemini", APIKey: "g-test", Enabled: true},
			"disabled": {Type: "openai", APIKey: "sk-test", Enabled: false},
			"broken":   {Type: "openai", Enabled: true}, // no API key
		},
		Structural: map[string]StructuralProviderConfig{
			"tesseract": {Type: "tesseract", Enabled: true},
		},
	})

	names := r.VisualNames()
	if len(names) != 2 || names[0] != "gemini" || names[1] != "openai" {
		t.Errorf("unexpected visual providers: %v", names)
	}
	if _, err := r.Visual("disabled"); err == nil {
		t.Error("disabled provider should not be registered")
	}
	if _, err := r.Structural("tesseract"); err != nil {
		t.Errorf("expected tesseract provider: %v", err)
	}
}
