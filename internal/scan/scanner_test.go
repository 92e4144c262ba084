package scan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/openglam/masthead/internal/classify"
	"github.com/openglam/masthead/internal/iiif"
)

// fakeFetcher serves canned image bytes keyed by page number.
type fakeFetcher struct {
	images map[int][]byte
	errs   map[int]error
}

func (f *fakeFetcher) FetchImage(ctx context.Context, canvas iiif.Canvas) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.errs[canvas.Number]; ok {
		return nil, err
	}
	data, ok := f.images[canvas.Number]
	if !ok {
		return nil, fmt.Errorf("no image for page %d", canvas.Number)
	}
	return data, nil
}

func coverOnPages(t *testing.T, covers ...int) *classify.Pipeline {
	t.Helper()
	set := make(map[string]bool)
	for _, c := range covers {
		set[fmt.Sprintf("page-%d", c)] = true
	}
	p, err := classify.NewPipeline(classify.StrategyVisual, &classify.MockVisual{
		ClassifyFn: func(ctx context.Context, img []byte) (classify.Verdict, error) {
			if set[string(img)] {
				return classify.Verdict{IsCover: true, Confidence: 0.9}, nil
			}
			return classify.Verdict{Confidence: 0.8, Category: 2}, nil
		},
	}, nil, false, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func testPages(n int) ([]iiif.Canvas, map[int][]byte) {
	pages := make([]iiif.Canvas, n)
	images := make(map[int][]byte)
	for i := range pages {
		num := i + 1
		pages[i] = iiif.Canvas{
			Number:       num,
			ID:           fmt.Sprintf("https://example.com/canvas/%d", num),
			Label:        fmt.Sprintf("Page %d", num),
			ImageService: fmt.Sprintf("https://example.com/iiif/p%d", num),
		}
		images[num] = []byte(fmt.Sprintf("page-%d", num))
	}
	return pages, images
}

func TestScanner_Run(t *testing.T) {
	pages, images := testPages(5)
	fetcher := &fakeFetcher{images: images}
	s := New(fetcher, coverOnPages(t, 1, 4), Options{}, nil)

	var calls []int
	results, err := s.Run(context.Background(), pages, func(done, total int) {
		if total != 5 {
			t.Errorf("progress total = %d, want 5", total)
		}
		calls = append(calls, done)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("got %d results, want 5", len(results))
	}
	for i, r := range results {
		if r.Page.Number != i+1 {
			t.Errorf("result %d is page %d, want %d", i, r.Page.Number, i+1)
		}
	}
	if got := CoverPages(results); len(got) != 2 || got[0] != 1 || got[1] != 4 {
		t.Errorf("CoverPages = %v, want [1 4]", got)
	}
	for i, done := range calls {
		if done != i+1 {
			t.Fatalf("progress calls = %v, want 1..5 in order", calls)
		}
	}
}

func TestScanner_ConcurrentFetchKeepsOrder(t *testing.T) {
	pages, images := testPages(12)
	fetcher := &fakeFetcher{images: images}
	s := New(fetcher, coverOnPages(t, 3), Options{FetchConcurrency: 4}, nil)

	results, err := s.Run(context.Background(), pages, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, r := range results {
		if r.Page.Number != i+1 {
			t.Fatalf("result %d is page %d, want %d", i, r.Page.Number, i+1)
		}
	}
	if got := CoverPages(results); len(got) != 1 || got[0] != 3 {
		t.Errorf("CoverPages = %v, want [3]", got)
	}
}

func TestScanner_PageWithoutImageServiceSkipped(t *testing.T) {
	pages, images := testPages(3)
	pages[1].ImageService = ""
	fetcher := &fakeFetcher{images: images}
	s := New(fetcher, coverOnPages(t, 1), Options{}, nil)

	results, err := s.Run(context.Background(), pages, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	r := results[1]
	if !r.Skipped {
		t.Error("page 2 should be marked skipped")
	}
	if r.IsCover || r.Confidence != 0 {
		t.Errorf("skipped page outcome = %+v, want neutral", r.Outcome)
	}
}

func TestScanner_PerPageFailuresDoNotAbort(t *testing.T) {
	pages, images := testPages(4)
	fetcher := &fakeFetcher{
		images: images,
		errs:   map[int]error{2: errors.New("image service returned 500")},
	}
	p, err := classify.NewPipeline(classify.StrategyVisual, &classify.MockVisual{
		ClassifyFn: func(ctx context.Context, img []byte) (classify.Verdict, error) {
			if string(img) == "page-3" {
				return classify.Verdict{}, errors.New("provider timeout")
			}
			return classify.Verdict{IsCover: true, Confidence: 0.9}, nil
		},
	}, nil, false, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	s := New(fetcher, p, Options{}, nil)

	results, err := s.Run(context.Background(), pages, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}
	for _, num := range []int{2, 3} {
		r := results[num-1]
		if r.Error == "" {
			t.Errorf("page %d should carry an error", num)
		}
		if r.IsCover || r.Confidence != 0 {
			t.Errorf("failed page %d outcome = %+v, want neutral", num, r.Outcome)
		}
	}
	if got := CoverPages(results); len(got) != 2 || got[0] != 1 || got[1] != 4 {
		t.Errorf("CoverPages = %v, want [1 4]", got)
	}
}

func TestScanner_CancelStopsBetweenPages(t *testing.T) {
	pages, images := testPages(6)
	fetcher := &fakeFetcher{images: images}
	ctx, cancel := context.WithCancel(context.Background())

	s := New(fetcher, coverOnPages(t), Options{}, nil)
	results, err := s.Run(ctx, pages, func(done, total int) {
		if done == 2 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d partial results, want 2", len(results))
	}
}

func encodeJPEG(t *testing.T, paint func(x, y int) color.Gray) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetGray(x, y, paint(x, y))
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestScanner_DedupeReusesVerdict(t *testing.T) {
	gradient := encodeJPEG(t, func(x, y int) color.Gray { return color.Gray{Y: uint8(x * 4)} })
	checker := encodeJPEG(t, func(x, y int) color.Gray {
		if (x/8+y/8)%2 == 0 {
			return color.Gray{Y: 255}
		}
		return color.Gray{}
	})

	pages, _ := testPages(3)
	fetcher := &fakeFetcher{images: map[int][]byte{
		1: gradient,
		2: checker,
		3: gradient, // rescan of page 1
	}}

	var classified int
	p, err := classify.NewPipeline(classify.StrategyVisual, &classify.MockVisual{
		ClassifyFn: func(ctx context.Context, img []byte) (classify.Verdict, error) {
			classified++
			return classify.Verdict{IsCover: bytes.Equal(img, gradient), Confidence: 0.9}, nil
		},
	}, nil, false, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	s := New(fetcher, p, Options{Dedupe: true}, nil)

	results, err := s.Run(context.Background(), pages, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if classified != 2 {
		t.Errorf("classifier called %d times, want 2", classified)
	}
	if results[2].DuplicateOf != 1 {
		t.Errorf("page 3 DuplicateOf = %d, want 1", results[2].DuplicateOf)
	}
	if !results[2].IsCover {
		t.Error("page 3 should reuse page 1's cover verdict")
	}
	if results[1].DuplicateOf != 0 {
		t.Errorf("page 2 DuplicateOf = %d, want 0", results[1].DuplicateOf)
	}
}
