// Package imaging provides the raster primitives the extraction pipeline
// works on: grayscale page buffers, cropping, padding, vertical stacking,
// and ink-density projections.
//
// A Page is immutable once produced; every operation returns a new Page
// backed by its own pixel buffer.
package imaging

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"io"

	xdraw "golang.org/x/image/draw"
)

const (
	// White is the fill value used for padding.
	White = 255

	// InkThreshold is the luma value below which a pixel counts as ink
	// for projection and layout analysis.
	InkThreshold = 200

	// TrimThreshold is the luma value below which a pixel blocks
	// whitespace trimming. Looser than InkThreshold so faint scan
	// artifacts near the edges still anchor the content box.
	TrimThreshold = 250
)

// Page is a grayscale raster page (or a column, or a linearized strip cut
// from one). The zero value is not usable; construct via New, FromImage,
// or DecodePNG.
type Page struct {
	gray *image.Gray
}

// New creates a blank white page of the given dimensions.
func New(width, height int) *Page {
	g := image.NewGray(image.Rect(0, 0, width, height))
	for i := range g.Pix {
		g.Pix[i] = White
	}
	return &Page{gray: g}
}

// FromImage converts an arbitrary image to a grayscale Page using integer
// luma approximation.
func FromImage(src image.Image) *Page {
	if g, ok := src.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		cp := image.NewGray(g.Bounds())
		copy(cp.Pix, g.Pix)
		return &Page{gray: cp}
	}

	b := src.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, gr, bl, _ := src.At(x, y).RGBA()
			luma := (299*r + 587*gr + 114*bl) / 1000
			g.SetGray(x-b.Min.X, y-b.Min.Y, color.Gray{Y: uint8(luma >> 8)})
		}
	}
	return &Page{gray: g}
}

// DecodePNG decodes PNG data into a Page.
func DecodePNG(r io.Reader) (*Page, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	return FromImage(img), nil
}

// Decode decodes any registered image format (PNG, JPEG) into a Page.
func Decode(r io.Reader) (*Page, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return FromImage(img), nil
}

// EncodePNG writes the page as PNG.
func (p *Page) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, p.gray); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// Width returns the page width in pixels.
func (p *Page) Width() int { return p.gray.Bounds().Dx() }

// Height returns the page height in pixels.
func (p *Page) Height() int { return p.gray.Bounds().Dy() }

// At returns the luma value at (x, y). Out-of-bounds coordinates read as
// white.
func (p *Page) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= p.Width() || y >= p.Height() {
		return White
	}
	return p.gray.GrayAt(x, y).Y
}

// Image exposes the underlying grayscale image. Callers must treat it as
// read-only.
func (p *Page) Image() *image.Gray { return p.gray }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SubColumn crops the horizontal band [leftX, rightX), clamped to the page.
// It returns nil when the clamped bound is empty.
func (p *Page) SubColumn(leftX, rightX int) *Page {
	leftX = clamp(leftX, 0, p.Width())
	rightX = clamp(rightX, 0, p.Width())
	if leftX >= rightX {
		return nil
	}
	return p.copyRect(image.Rect(leftX, 0, rightX, p.Height()))
}

// CropRows crops the vertical band [y0, y1), clamped to the page. It
// returns nil when the clamped bound is empty.
func (p *Page) CropRows(y0, y1 int) *Page {
	y0 = clamp(y0, 0, p.Height())
	y1 = clamp(y1, 0, p.Height())
	if y0 >= y1 {
		return nil
	}
	return p.copyRect(image.Rect(0, y0, p.Width(), y1))
}

func (p *Page) copyRect(r image.Rectangle) *Page {
	out := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		srcOff := p.gray.PixOffset(r.Min.X, r.Min.Y+y)
		dstOff := out.PixOffset(0, y)
		copy(out.Pix[dstOff:dstOff+r.Dx()], p.gray.Pix[srcOff:srcOff+r.Dx()])
	}
	return &Page{gray: out}
}

// PadRight returns a copy widened to width with white fill on the right.
// If the page is already at least that wide, a plain copy is returned.
func (p *Page) PadRight(width int) *Page {
	if width <= p.Width() {
		return p.copyRect(p.gray.Bounds())
	}
	out := New(width, p.Height())
	for y := 0; y < p.Height(); y++ {
		srcOff := p.gray.PixOffset(0, y)
		dstOff := out.gray.PixOffset(0, y)
		copy(out.gray.Pix[dstOff:dstOff+p.Width()], p.gray.Pix[srcOff:srcOff+p.Width()])
	}
	return out
}

// StackColumns stacks pages top-to-bottom into one vertical strip, padding
// every page to the maximum width with white fill. No source pixel is
// dropped. Nil entries are skipped.
func StackColumns(cols []*Page) *Page {
	maxW, totalH := 0, 0
	for _, c := range cols {
		if c == nil {
			continue
		}
		if c.Width() > maxW {
			maxW = c.Width()
		}
		totalH += c.Height()
	}
	if maxW == 0 || totalH == 0 {
		return New(1, 1)
	}

	out := New(maxW, totalH)
	yOff := 0
	for _, c := range cols {
		if c == nil {
			continue
		}
		padded := c.PadRight(maxW)
		rows := padded.Height() * maxW
		copy(out.gray.Pix[yOff*maxW:yOff*maxW+rows], padded.gray.Pix[:rows])
		yOff += c.Height()
	}
	return out
}

// Downscale returns a copy scaled so its width does not exceed maxWidth,
// preserving aspect ratio. Pages already narrow enough are copied as-is.
func (p *Page) Downscale(maxWidth int) *Page {
	if maxWidth <= 0 || p.Width() <= maxWidth {
		return p.copyRect(p.gray.Bounds())
	}
	h := p.Height() * maxWidth / p.Width()
	if h < 1 {
		h = 1
	}
	out := image.NewGray(image.Rect(0, 0, maxWidth, h))
	xdraw.CatmullRom.Scale(out, out.Bounds(), p.gray, p.gray.Bounds(), xdraw.Src, nil)
	return &Page{gray: out}
}
