package api

import (
	"strings"
	"testing"
)

func TestOutputTo_Formats(t *testing.T) {
	data := map[string]any{"session_id": "abc", "cover_pages": []int{1, 3}}

	var jsonBuf strings.Builder
	if err := OutputTo(&jsonBuf, OutputFormatJSON, data); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(jsonBuf.String(), `"session_id": "abc"`) {
		t.Errorf("json output = %q", jsonBuf.String())
	}

	var yamlBuf strings.Builder
	if err := OutputTo(&yamlBuf, OutputFormatYAML, data); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !strings.Contains(yamlBuf.String(), "session_id: abc") {
		t.Errorf("yaml output = %q", yamlBuf.String())
	}

	if err := OutputTo(&jsonBuf, OutputFormat("toml"), data); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestOutputDocumentTo_PreservesManifestText(t *testing.T) {
	doc := map[string]any{
		"@id":   "https://example.com/manifest?page=1&view=full",
		"label": "Głos Poranny",
		"structures": []any{
			map[string]any{"@type": "sc:Range", "label": "zakres od strony 1"},
		},
	}

	var buf strings.Builder
	if err := OutputDocumentTo(&buf, doc); err != nil {
		t.Fatalf("OutputDocumentTo: %v", err)
	}
	out := buf.String()

	// @-keys, non-ASCII labels, and query characters must come through raw.
	for _, want := range []string{`"@id"`, "Głos Poranny", "page=1&view=full", "zakres od strony 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, `\u0026`) {
		t.Error("ampersand was HTML-escaped")
	}
}

func TestSetOutputFormat(t *testing.T) {
	defer SetOutputFormat("yaml")

	SetOutputFormat("json")
	if GetOutputFormat() != OutputFormatJSON {
		t.Errorf("format = %s, want json", GetOutputFormat())
	}
	SetOutputFormat("bogus")
	if GetOutputFormat() != DefaultOutput {
		t.Errorf("format = %s, want default", GetOutputFormat())
	}
}
