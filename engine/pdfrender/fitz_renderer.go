package pdfrender

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// FitzRenderer implements page rendering using go-fitz (requires CGo and MuPDF).
// Each renderer holds its own document handle because go-fitz documents are
// not safe for concurrent use.
type FitzRenderer struct {
	doc  *fitz.Document
	part PagePart
}

// NewFitzRenderer opens the document and creates a Fitz-based page renderer.
func NewFitzRenderer(filename string, part PagePart) (*FitzRenderer, error) {
	doc, err := fitz.New(filename)
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}
	return &FitzRenderer{doc: doc, part: part}, nil
}

// RenderPixmap rasterizes one page at the given resolution in pixels per point.
func (r *FitzRenderer) RenderPixmap(page int, resolution float64) (image.Image, error) {
	if r.doc == nil {
		return nil, fmt.Errorf("renderer is closed")
	}
	if resolution <= 0 {
		return nil, fmt.Errorf("invalid resolution %g for page %d", resolution, page)
	}
	// go-fitz takes a DPI; a PDF point is 1/72 inch.
	img, err := r.doc.ImageDPI(page, resolution*72)
	if err != nil {
		return nil, fmt.Errorf("unable to render page %d: %w", page, err)
	}
	return cropToPart(img, r.part), nil
}

// IsValid reports whether the renderer can render pages.
func (r *FitzRenderer) IsValid() bool {
	return r.doc != nil
}

// PagePart returns the part of the page this renderer produces.
func (r *FitzRenderer) PagePart() PagePart {
	return r.part
}

// Close releases the underlying MuPDF document.
func (r *FitzRenderer) Close() error {
	if r.doc == nil {
		return nil
	}
	err := r.doc.Close()
	r.doc = nil
	return err
}
