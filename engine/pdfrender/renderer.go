package pdfrender

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// PagePart selects which part of a page is rendered. Slide decks produced
// with beamer's "show notes on second screen" option carry the slide on one
// half of the page and the speaker notes on the other.
type PagePart int

const (
	FullPage PagePart = iota
	LeftHalf
	RightHalf
)

// EffectiveWidth returns the width in points of the rendered part of a page
// with the given full width.
func (p PagePart) EffectiveWidth(width float64) float64 {
	if p == FullPage {
		return width
	}
	return width / 2
}

// Renderer rasterizes single pages of one document. A Renderer is not safe
// for concurrent use; create one per goroutine via Document.NewRenderer.
type Renderer interface {
	// RenderPixmap rasterizes one page at the given resolution in pixels
	// per point. A nil image or non-nil error means rendering failed.
	RenderPixmap(page int, resolution float64) (image.Image, error)

	// IsValid reports whether the renderer can render pages.
	IsValid() bool

	// PagePart returns the part of the page this renderer produces.
	PagePart() PagePart

	// Close cleans up any resources used by the renderer.
	Close() error
}

// NewRenderer creates a renderer for the given engine name. The supported
// engines are "fitz" (CGo and MuPDF) and "pdfium" (pure Go, WebAssembly).
func NewRenderer(engine, filename string, part PagePart) (Renderer, error) {
	switch engine {
	case "", "fitz":
		return NewFitzRenderer(filename, part)
	case "pdfium":
		return NewPDFiumRenderer(filename, part)
	default:
		return nil, fmt.Errorf("unknown render engine %q", engine)
	}
}

// cropToPart cuts the rendered image down to the requested page part.
func cropToPart(img image.Image, part PagePart) image.Image {
	if part == FullPage || img == nil {
		return img
	}
	bounds := img.Bounds()
	half := bounds.Dx() / 2
	if part == LeftHalf {
		return imaging.Crop(img, image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Min.X+half, bounds.Max.Y))
	}
	return imaging.Crop(img, image.Rect(bounds.Min.X+half, bounds.Min.Y, bounds.Max.X, bounds.Max.Y))
}
