package pdfrender

import (
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// Document is the read-only view of an open PDF presentation that the page
// cache needs: page count, page geometry and a renderer factory.
type Document interface {
	// NumPages returns the number of pages in the document.
	NumPages() int

	// PageSize returns the size of a page in points. Both values are zero
	// for an invalid page index.
	PageSize(page int) (width, height float64)

	// FlexiblePageSizes reports whether pages differ in size. Prefetching
	// to a fixed frame makes no sense for such documents.
	FlexiblePageSizes() bool

	// NewRenderer creates a renderer for this document. Renderers are not
	// safe for concurrent use, so callers create one per goroutine.
	NewRenderer(part PagePart) (Renderer, error)

	// Close releases the document.
	Close() error
}

type pageSize struct {
	width  float64
	height float64
}

// pdfDocument implements Document. Page geometry is read once at open time
// through go-fitz; renderers are created per caller with the configured
// engine.
type pdfDocument struct {
	path     string
	engine   string
	sizes    []pageSize
	flexible bool
}

// Open reads the page geometry of a PDF file and returns a Document that
// creates renderers with the given engine ("fitz" or "pdfium").
func Open(path, engine string) (Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}
	defer doc.Close()

	numPages := doc.NumPage()
	sizes := make([]pageSize, 0, numPages)
	flexible := false
	for page := 0; page < numPages; page++ {
		bound, err := doc.Bound(page)
		if err != nil {
			return nil, fmt.Errorf("unable to read size of page %d: %w", page, err)
		}
		// Bound is in pixels at 72 DPI, which equals points.
		size := pageSize{width: float64(bound.Dx()), height: float64(bound.Dy())}
		if page > 0 && (size != sizes[page-1]) {
			flexible = true
		}
		sizes = append(sizes, size)
	}

	return &pdfDocument{
		path:     path,
		engine:   engine,
		sizes:    sizes,
		flexible: flexible,
	}, nil
}

func (d *pdfDocument) NumPages() int {
	return len(d.sizes)
}

func (d *pdfDocument) PageSize(page int) (float64, float64) {
	if page < 0 || page >= len(d.sizes) {
		return 0, 0
	}
	return d.sizes[page].width, d.sizes[page].height
}

func (d *pdfDocument) FlexiblePageSizes() bool {
	return d.flexible
}

func (d *pdfDocument) NewRenderer(part PagePart) (Renderer, error) {
	return NewRenderer(d.engine, d.path, part)
}

func (d *pdfDocument) Close() error {
	return nil
}
