package pdfrender

import (
	"fmt"
	"image"
	"math"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/responses"
	"github.com/klippa-app/go-pdfium/webassembly"
)

// PDFiumRenderer implements page rendering using go-pdfium with WebAssembly
// (pure Go, no CGo).
type PDFiumRenderer struct {
	pool     pdfium.Pool
	instance pdfium.Pdfium
	document *responses.OpenDocument
	part     PagePart
}

// NewPDFiumRenderer opens the document and creates a PDFium-based page
// renderer using WebAssembly.
func NewPDFiumRenderer(filename string, part PagePart) (*PDFiumRenderer, error) {
	// Initialize WebAssembly pool with minimal configuration.
	// Each renderer is used from a single goroutine, so one instance is enough.
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PDFium WebAssembly: %w", err)
	}

	instance, err := pool.GetInstance(time.Second * 30)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to get PDFium instance: %w", err)
	}

	pdfBytes, err := os.ReadFile(filename)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to read PDF file: %w", err)
	}

	doc, err := instance.OpenDocument(&requests.OpenDocument{
		File: &pdfBytes,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}

	return &PDFiumRenderer{
		pool:     pool,
		instance: instance,
		document: doc,
		part:     part,
	}, nil
}

// RenderPixmap rasterizes one page at the given resolution in pixels per point.
func (r *PDFiumRenderer) RenderPixmap(page int, resolution float64) (image.Image, error) {
	if r.instance == nil || r.document == nil {
		return nil, fmt.Errorf("renderer is closed")
	}
	if resolution <= 0 {
		return nil, fmt.Errorf("invalid resolution %g for page %d", resolution, page)
	}

	pageRender, err := r.instance.RenderPageInDPI(&requests.RenderPageInDPI{
		// PDFium takes an integer DPI; a PDF point is 1/72 inch.
		DPI: int(math.Round(resolution * 72)),
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{
				Document: r.document.Document,
				Index:    page,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to render page %d: %w", page, err)
	}

	// Copy the pixels out of the WebAssembly buffer before releasing it.
	img := imaging.Clone(pageRender.Result.Image)
	pageRender.Cleanup()

	return cropToPart(img, r.part), nil
}

// IsValid reports whether the renderer can render pages.
func (r *PDFiumRenderer) IsValid() bool {
	return r.instance != nil && r.document != nil
}

// PagePart returns the part of the page this renderer produces.
func (r *PDFiumRenderer) PagePart() PagePart {
	return r.part
}

// Close cleans up resources used by the PDFium renderer.
func (r *PDFiumRenderer) Close() error {
	if r.document != nil && r.instance != nil {
		r.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
			Document: r.document.Document,
		})
	}
	if r.pool != nil {
		r.pool.Close()
		r.pool = nil
	}
	r.instance = nil
	r.document = nil
	return nil
}
