package scan

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/openglam/masthead/internal/iiif"
)

// pdfRenderDPI keeps rendered pages large enough for the OCR heading
// heuristic while staying in the same size class as downloaded page images.
const pdfRenderDPI = 150

// PDFSource serves pages from a local PDF file instead of a remote image
// service. It satisfies ImageFetcher; page numbers map 1:1 onto PDF pages.
type PDFSource struct {
	path      string
	pageCount int
}

// OpenPDF validates the file and reads its page count.
func OpenPDF(path string) (*PDFSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer f.Close()

	pageCount, err := api.PageCount(f, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get page count for %s: %w", path, err)
	}

	return &PDFSource{path: path, pageCount: pageCount}, nil
}

// PageCount returns the number of pages in the PDF.
func (s *PDFSource) PageCount() int {
	return s.pageCount
}

// Pages returns one synthetic canvas per PDF page so that PDF scans flow
// through the same batch machinery as manifest scans. The canvases carry no
// image service; fetching goes through FetchImage by page number.
func (s *PDFSource) Pages() []iiif.Canvas {
	base := filepath.Base(s.path)
	pages := make([]iiif.Canvas, s.pageCount)
	for i := range pages {
		pages[i] = iiif.Canvas{
			Number:       i + 1,
			ID:           fmt.Sprintf("file://%s#page=%d", s.path, i+1),
			Label:        fmt.Sprintf("%s, page %d", base, i+1),
			ImageService: localImageService,
		}
	}
	return pages
}

// localImageService marks synthetic canvases so the scanner does not skip
// them as service-less; PDFSource ignores it and renders from disk.
const localImageService = "file://local"

// FetchImage renders the canvas's page with pdftoppm (poppler-utils), which
// rasterizes the full page. pdfcpu's image extraction only pulls embedded
// image objects, whose numbering does not reliably follow page order on
// scanned newspapers.
func (s *PDFSource) FetchImage(ctx context.Context, canvas iiif.Canvas) ([]byte, error) {
	if canvas.Number < 1 || canvas.Number > s.pageCount {
		return nil, fmt.Errorf("page %d out of range (PDF has %d pages)", canvas.Number, s.pageCount)
	}

	tmpDir, err := os.MkdirTemp("", "masthead-page-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outputPrefix := filepath.Join(tmpDir, "page")
	pageStr := fmt.Sprintf("%d", canvas.Number)
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-jpeg",
		"-f", pageStr,
		"-l", pageStr,
		"-r", fmt.Sprintf("%d", pdfRenderDPI),
		"-singlefile",
		s.path,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	// pdftoppm with -singlefile creates: <prefix>.jpg
	data, err := os.ReadFile(outputPrefix + ".jpg")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}

	return data, nil
}
