// Package iiif reads and rewrites IIIF Presentation API v2 manifests.
//
// Manifests are kept as raw JSON documents so a rewrite round-trips every key
// the tool does not understand; only the `structures` array is ever replaced.
package iiif

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openglam/masthead/internal/ranges"
)

// imagePathSuffix is the fixed IIIF Image API path used to request a
// full-width rendition at a given pixel width.
const imagePathSuffix = "/full/%d,/0/default.jpg"

// Canvas is one page of a manifest: a 1-based ordinal, the canvas @id, the
// display label, and the image service base URL used to build a page image
// request. Any of ID, Label and ImageService may be empty.
type Canvas struct {
	Number       int    `json:"number"`
	ID           string `json:"id"`
	Label        string `json:"label"`
	ImageService string `json:"image_service,omitempty"`
}

// ImageURL returns the full-resolution image URL for the canvas at the given
// width, or "" when the canvas has no image service.
func (c Canvas) ImageURL(width int) string {
	if c.ImageService == "" {
		return ""
	}
	return strings.TrimRight(c.ImageService, "/") + fmt.Sprintf(imagePathSuffix, width)
}

// Page converts the canvas into the builder's page representation.
func (c Canvas) Page() ranges.Page {
	return ranges.Page{Number: c.Number, ID: c.ID, Label: c.Label}
}

// Manifest is a parsed Presentation v2 manifest. The raw document is retained
// so that exporting preserves keys this tool does not model.
type Manifest struct {
	raw      map[string]any
	canvases []Canvas
}

// Parse decodes a manifest document. It fails only on malformed JSON; a
// manifest without canvases parses successfully and reports zero pages.
func Parse(data []byte) (*Manifest, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	m := &Manifest{raw: raw}
	m.canvases = extractCanvases(raw)
	return m, nil
}

// ParseMap wraps an already-decoded manifest document.
func ParseMap(raw map[string]any) (*Manifest, error) {
	if raw == nil {
		return nil, fmt.Errorf("manifest document is nil")
	}
	return &Manifest{raw: raw, canvases: extractCanvases(raw)}, nil
}

// BaseID returns the manifest @id, or "" when absent.
func (m *Manifest) BaseID() string {
	s, _ := m.raw["@id"].(string)
	return s
}

// Label returns the manifest label, or "" when absent.
func (m *Manifest) Label() string {
	s, _ := m.raw["label"].(string)
	return s
}

// Canvases returns the manifest pages in document order.
func (m *Manifest) Canvases() []Canvas {
	return m.canvases
}

// PageCount returns the number of canvases.
func (m *Manifest) PageCount() int {
	return len(m.canvases)
}

// Pages returns the canvases converted for range building.
func (m *Manifest) Pages() []ranges.Page {
	pages := make([]ranges.Page, len(m.canvases))
	for i, c := range m.canvases {
		pages[i] = c.Page()
	}
	return pages
}

// HasStructures reports whether the document currently carries a structures
// array.
func (m *Manifest) HasStructures() bool {
	_, ok := m.raw["structures"]
	return ok
}

// ApplyStructures replaces the manifest's structures array with the given
// ranges. An empty slice removes the key entirely rather than writing an
// empty array.
func (m *Manifest) ApplyStructures(rs []ranges.Range) {
	if len(rs) == 0 {
		delete(m.raw, "structures")
		return
	}

	structures := make([]any, 0, len(rs))
	for _, r := range rs {
		canvases := make([]any, len(r.Canvases))
		for i, id := range r.Canvases {
			canvases[i] = id
		}
		structures = append(structures, map[string]any{
			"@id":      r.ID,
			"@type":    "sc:Range",
			"label":    r.Label,
			"canvases": canvases,
		})
	}
	m.raw["structures"] = structures
}

// Encode serializes the manifest for persistence: four-space indentation,
// non-ASCII left unescaped.
func (m *Manifest) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(m.raw); err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// extractCanvases walks sequences[0].canvases, tolerating missing or
// malformed intermediate nodes.
func extractCanvases(raw map[string]any) []Canvas {
	sequences, _ := raw["sequences"].([]any)
	if len(sequences) == 0 {
		return nil
	}
	seq, _ := sequences[0].(map[string]any)
	canvasList, _ := seq["canvases"].([]any)

	canvases := make([]Canvas, 0, len(canvasList))
	for i, item := range canvasList {
		node, _ := item.(map[string]any)
		c := Canvas{Number: i + 1}
		c.ID, _ = node["@id"].(string)
		c.Label, _ = node["label"].(string)
		c.ImageService = extractImageService(node)
		canvases = append(canvases, c)
	}
	return canvases
}

// extractImageService digs out images[0].resource.service.@id.
func extractImageService(canvas map[string]any) string {
	images, _ := canvas["images"].([]any)
	if len(images) == 0 {
		return ""
	}
	img, _ := images[0].(map[string]any)
	resource, _ := img["resource"].(map[string]any)
	service, _ := resource["service"].(map[string]any)
	id, _ := service["@id"].(string)
	return id
}
