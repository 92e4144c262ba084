// Package ranges derives IIIF structure ranges from a confirmed cover-page set.
//
// Each cover page opens a contiguous range that extends to just before the
// next cover page, or to the last page of the manifest for the final cover.
// Ranges are always regenerated in full from the current cover set; they are
// never mutated incrementally.
package ranges

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultBaseID is substituted when the caller supplies a blank base
// identifier. Matches the fallback used by the exporting clients.
const DefaultBaseID = "http://example.com/manifest"

// rangeLabelFormat embeds the 1-based start page of the range. Labels are in
// Polish to match the conventions of the digital libraries this tool targets.
const rangeLabelFormat = "zakres od strony %d"

var (
	// ErrNotAscending is returned when the cover-page list is not strictly
	// ascending. This is a caller contract violation, not a runtime condition.
	ErrNotAscending = errors.New("cover pages must be strictly ascending")

	// ErrOutOfRange is returned when a cover page falls outside [1, total].
	ErrOutOfRange = errors.New("cover page out of range")
)

// Page is one manifest page as seen by the builder: a 1-based ordinal and an
// opaque external identifier (canvas @id), possibly empty.
type Page struct {
	Number int
	ID     string
	Label  string
}

// Range is a derived, contiguous span of pages starting at a cover page.
// Index is the position of the opening cover page within the input cover set;
// after omission of identifier-less ranges the surviving indices may be
// non-contiguous.
type Range struct {
	Index     int      `json:"index"`
	StartPage int      `json:"start_page"`
	EndPage   int      `json:"end_page"`
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	Canvases  []string `json:"canvases"`
}

// Result is the output of Build: the derived ranges plus non-fatal warnings
// surfaced to the caller.
type Result struct {
	Ranges   []Range
	Warnings []string
}

// Build converts a strictly ascending set of cover-page ordinals into labeled
// contiguous ranges over pages. The range opened by the i-th cover page ends
// just before the next cover page, or at the last page for the final cover.
//
// A range's canvas list keeps only pages with a non-empty identifier; pages
// without one are dropped silently and do not shift the range boundaries. A
// range whose canvas list ends up empty is omitted from the result entirely.
//
// An empty cover set yields an empty result; the caller's contract is that
// any previously persisted structures must then be removed, not left stale.
func Build(coverPages []int, pages []Page, baseID string) (Result, error) {
	var res Result

	total := len(pages)
	if err := validateCovers(coverPages, total); err != nil {
		return Result{}, err
	}
	if len(coverPages) == 0 {
		return res, nil
	}

	if strings.TrimSpace(baseID) == "" {
		baseID = DefaultBaseID
		res.Warnings = append(res.Warnings,
			"manifest has no @id; using default base identifier for ranges")
	}
	base := strings.TrimRight(baseID, "/")

	for i, start := range coverPages {
		end := total
		if i+1 < len(coverPages) {
			end = coverPages[i+1] - 1
		}

		var canvases []string
		for _, p := range pages[start-1 : end] {
			if p.ID != "" {
				canvases = append(canvases, p.ID)
			}
		}
		if len(canvases) == 0 {
			continue
		}

		res.Ranges = append(res.Ranges, Range{
			Index:     i,
			StartPage: start,
			EndPage:   end,
			ID:        fmt.Sprintf("%s/range/r%d", base, i),
			Label:     fmt.Sprintf(rangeLabelFormat, start),
			Canvases:  canvases,
		})
	}

	return res, nil
}

// validateCovers rejects cover lists that violate the builder contract.
func validateCovers(coverPages []int, total int) error {
	prev := 0
	for _, c := range coverPages {
		if c < 1 || c > total {
			return fmt.Errorf("%w: page %d not in [1, %d]", ErrOutOfRange, c, total)
		}
		if c <= prev {
			return fmt.Errorf("%w: %d follows %d", ErrNotAscending, c, prev)
		}
		prev = c
	}
	return nil
}
