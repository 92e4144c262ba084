// Package session holds the in-memory state of loaded manifests: the parsed
// manifest, its page list, the latest scan results, and the editable cover
// set. Manual corrections overwrite automatic verdicts; the cover set is what
// range construction consumes.
package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openglam/masthead/internal/iiif"
	"github.com/openglam/masthead/internal/ranges"
	"github.com/openglam/masthead/internal/scan"
)

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = errors.New("session not found")

// Session is a snapshot of one loaded manifest and its classification state.
// Store methods return copies; mutate through the Store.
type Session struct {
	ID          string    `json:"id"`
	ManifestURL string    `json:"manifest_url"`
	Label       string    `json:"label,omitempty"`
	PageCount   int       `json:"page_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Results []scan.Result `json:"results,omitempty"`

	// CoverPages is the current cover set in ascending page order. It starts
	// from scan verdicts and absorbs manual corrections.
	CoverPages []int `json:"cover_pages,omitempty"`
}

type record struct {
	session  Session
	manifest *iiif.Manifest
	pages    []iiif.Canvas
	covers   map[int]bool
}

// Store is an in-memory session registry, safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record
}

func NewStore() *Store {
	return &Store{records: make(map[string]*record)}
}

// Create registers a parsed manifest under a fresh session id.
func (s *Store) Create(manifestURL string, manifest *iiif.Manifest) Session {
	now := time.Now().UTC()
	rec := &record{
		session: Session{
			ID:          uuid.New().String(),
			ManifestURL: manifestURL,
			Label:       manifest.Label(),
			PageCount:   manifest.PageCount(),
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		manifest: manifest,
		pages:    manifest.Canvases(),
		covers:   make(map[int]bool),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.session.ID] = rec
	return rec.snapshot()
}

// Get returns a copy of the session state.
func (s *Store) Get(id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec.snapshot(), nil
}

// List returns all sessions, newest first.
func (s *Store) List() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Session, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Delete removes a session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.records, id)
	return nil
}

// Pages returns the session's canvases in manifest order.
func (s *Store) Pages(id string) ([]iiif.Canvas, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	pages := make([]iiif.Canvas, len(rec.pages))
	copy(pages, rec.pages)
	return pages, nil
}

// RebuildStructures regenerates the manifest's structures from the session's
// current cover set. The manifest is shared session state, so the rewrite
// happens under the store's lock. An empty cover set removes the structures
// key.
func (s *Store) RebuildStructures(id string) ([]int, ranges.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ranges.Result{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec.rebuild()
}

// ExportManifest rebuilds the structures and encodes the full manifest JSON.
// Rebuild and encode stay under the store's lock so concurrent exports never
// observe a half-written structures array.
func (s *Store) ExportManifest(id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if _, _, err := rec.rebuild(); err != nil {
		return nil, err
	}
	return rec.manifest.Encode()
}

func (r *record) rebuild() ([]int, ranges.Result, error) {
	covers := r.coverList()
	result, err := ranges.Build(covers, r.manifest.Pages(), r.manifest.BaseID())
	if err != nil {
		return nil, ranges.Result{}, fmt.Errorf("failed to build ranges: %w", err)
	}
	r.manifest.ApplyStructures(result.Ranges)
	return covers, result, nil
}

// SetResults replaces the scan results and rebuilds the cover set from the
// automatic verdicts, discarding earlier manual corrections for the scanned
// pages. Pages outside the scanned range keep their current cover flag.
func (s *Store) SetResults(id string, results []scan.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	rec.session.Results = results
	for _, r := range results {
		if r.IsCover {
			rec.covers[r.Page.Number] = true
		} else {
			delete(rec.covers, r.Page.Number)
		}
	}
	rec.session.UpdatedAt = time.Now().UTC()
	return nil
}

// SetCover applies a manual correction for one page. The correction also
// rewrites the page's result entry so listings reflect the edit.
func (s *Store) SetCover(id string, page int, isCover bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if page < 1 || page > rec.session.PageCount {
		return fmt.Errorf("page %d out of range 1..%d", page, rec.session.PageCount)
	}

	if isCover {
		rec.covers[page] = true
	} else {
		delete(rec.covers, page)
	}

	for i := range rec.session.Results {
		if rec.session.Results[i].Page.Number == page {
			rec.session.Results[i].IsCover = isCover
			rec.session.Results[i].Confidence = 1.0
			rec.session.Results[i].DecidedBy = "manual"
			break
		}
	}
	rec.session.UpdatedAt = time.Now().UTC()
	return nil
}

// CoverPages returns the current cover set in ascending page order.
func (s *Store) CoverPages(id string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec.coverList(), nil
}

func (r *record) coverList() []int {
	covers := make([]int, 0, len(r.covers))
	for page := range r.covers {
		covers = append(covers, page)
	}
	sort.Ints(covers)
	return covers
}

func (r *record) snapshot() Session {
	out := r.session
	out.Results = make([]scan.Result, len(r.session.Results))
	copy(out.Results, r.session.Results)
	out.CoverPages = r.coverList()
	return out
}
