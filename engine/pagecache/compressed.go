package pagecache

import (
	"bytes"
	"image"
	"image/png"
)

// CompressedPage is one rendered page held in cache as PNG bytes. It is
// immutable after construction; the cache slot is its only owner until the
// page is evicted.
type CompressedPage struct {
	page       int
	resolution float64
	data       []byte
}

// NewCompressedPage compresses a rendered page. The byte size is fixed at
// construction and never recomputed.
func NewCompressedPage(img image.Image, page int, resolution float64) (*CompressedPage, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return &CompressedPage{
		page:       page,
		resolution: resolution,
		data:       buf.Bytes(),
	}, nil
}

// Page returns the page index this image was rendered from.
func (p *CompressedPage) Page() int {
	return p.page
}

// Resolution returns the resolution in pixels per point the page was
// rendered at.
func (p *CompressedPage) Resolution() float64 {
	return p.resolution
}

// Size returns the compressed size in bytes.
func (p *CompressedPage) Size() int64 {
	return int64(len(p.data))
}

// PNG returns the compressed bytes. Callers must not modify them.
func (p *CompressedPage) PNG() []byte {
	return p.data
}

// Pixmap decompresses the page. The decoded form is not retained, so every
// call pays the decode cost again.
func (p *CompressedPage) Pixmap() (image.Image, error) {
	return png.Decode(bytes.NewReader(p.data))
}
