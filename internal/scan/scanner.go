// Package scan runs cover classification over a range of manifest pages.
//
// The scan walks pages in manifest order and always reports results in
// ascending page order. A failure on one page (fetch or classification) is
// isolated: the page is recorded with a neutral not-a-cover result and the
// batch continues. Image fetches may overlap with a bounded worker pool;
// classification itself stays sequential so provider rate limits and result
// ordering hold trivially.
package scan

import (
	"context"
	"log/slog"

	"github.com/openglam/masthead/internal/classify"
	"github.com/openglam/masthead/internal/iiif"
)

// ImageFetcher downloads the page image for a canvas.
type ImageFetcher interface {
	FetchImage(ctx context.Context, canvas iiif.Canvas) ([]byte, error)
}

// Result is the classification record for one page. A skipped or failed page
// keeps the neutral zero outcome (not a cover, zero confidence).
type Result struct {
	Page iiif.Canvas `json:"page"`

	classify.Outcome

	// DuplicateOf is the page number whose outcome was reused when the
	// dedupe prefilter matched, 0 otherwise.
	DuplicateOf int `json:"duplicate_of,omitempty"`

	// Skipped marks pages that were never sent to the classifier
	// (no image service in the manifest).
	Skipped bool `json:"skipped,omitempty"`

	// Error carries the per-page failure reason, empty on success.
	Error string `json:"error,omitempty"`
}

// Options tune a scanner.
type Options struct {
	// FetchConcurrency is the bound on overlapping image downloads.
	// Values below 2 keep the scan fully sequential.
	FetchConcurrency int

	// Dedupe reuses the verdict of a perceptually identical earlier page
	// instead of re-classifying.
	Dedupe bool
}

// ProgressFunc is invoked after each page with the number of pages done and
// the batch total. It runs on the scan goroutine.
type ProgressFunc func(done, total int)

// Scanner classifies batches of pages.
type Scanner struct {
	fetcher  ImageFetcher
	pipeline *classify.Pipeline
	opts     Options
	logger   *slog.Logger
}

// New creates a scanner.
func New(fetcher ImageFetcher, pipeline *classify.Pipeline, opts Options, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{fetcher: fetcher, pipeline: pipeline, opts: opts, logger: logger}
}

// Run scans the given pages. It returns the results accumulated so far and
// the context error when cancelled between pages; any other condition is
// recorded per page and never aborts the batch.
func (s *Scanner) Run(ctx context.Context, pages []iiif.Canvas, progress ProgressFunc) ([]Result, error) {
	total := len(pages)
	results := make([]Result, 0, total)

	var dedupe *deduper
	if s.opts.Dedupe {
		dedupe = newDeduper()
	}

	fetches := s.startFetches(ctx, pages)

	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res := Result{Page: page}

		switch {
		case page.ImageURL(1) == "":
			res.Skipped = true
			s.logger.Info("skipping page without image service", "page", page.Number)

		default:
			f := <-fetches[i]
			if f.err != nil {
				res.Error = f.err.Error()
				s.logger.Warn("skipping page after fetch failure", "page", page.Number, "error", f.err)
				break
			}

			if dedupe != nil {
				if prev, ok := dedupe.match(f.data); ok {
					res.Outcome = results[prev].Outcome
					res.DuplicateOf = results[prev].Page.Number
					s.logger.Debug("reusing verdict for duplicate page",
						"page", page.Number, "duplicate_of", res.DuplicateOf)
					break
				}
			}

			outcome, err := s.pipeline.Classify(ctx, f.data)
			if err != nil {
				if ctx.Err() != nil {
					return results, ctx.Err()
				}
				res.Error = err.Error()
				s.logger.Warn("skipping page after classification failure", "page", page.Number, "error", err)
				break
			}
			res.Outcome = outcome

			if dedupe != nil {
				dedupe.add(i, f.data)
			}
		}

		results = append(results, res)
		if progress != nil {
			progress(i+1, total)
		}
	}

	return results, nil
}

// fetched is one completed image download.
type fetched struct {
	data []byte
	err  error
}

// startFetches dispatches page downloads bounded by the configured
// concurrency and returns one single-use channel per page, in page order.
// With concurrency below 2 dispatch degenerates to sequential fetching that
// stays one page ahead of classification.
func (s *Scanner) startFetches(ctx context.Context, pages []iiif.Canvas) []chan fetched {
	concurrency := s.opts.FetchConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	out := make([]chan fetched, len(pages))
	for i := range out {
		out[i] = make(chan fetched, 1)
	}

	sem := make(chan struct{}, concurrency)
	go func() {
		for i, page := range pages {
			if page.ImageURL(1) == "" {
				close(out[i])
				continue
			}
			// Cancellation check before each network call; pending pages
			// report the context error when the scan loop reaches them.
			if err := ctx.Err(); err != nil {
				out[i] <- fetched{err: err}
				continue
			}
			sem <- struct{}{}
			go func(i int, page iiif.Canvas) {
				defer func() { <-sem }()
				data, err := s.fetcher.FetchImage(ctx, page)
				out[i] <- fetched{data: data, err: err}
			}(i, page)
		}
	}()

	return out
}

// CoverPages returns the ascending page numbers of all results currently
// marked as covers.
func CoverPages(results []Result) []int {
	var covers []int
	for _, r := range results {
		if r.IsCover {
			covers = append(covers, r.Page.Number)
		}
	}
	return covers
}
