package imaging

import "image"

// VerticalInkProjection counts ink pixels per x-column within the row band
// [y0, y1). Rows are clamped to the page. The result has one entry per
// x-column of the page.
func (p *Page) VerticalInkProjection(y0, y1 int) []int {
	y0 = clamp(y0, 0, p.Height())
	y1 = clamp(y1, 0, p.Height())

	proj := make([]int, p.Width())
	for y := y0; y < y1; y++ {
		rowOff := p.gray.PixOffset(0, y)
		row := p.gray.Pix[rowOff : rowOff+p.Width()]
		for x, v := range row {
			if v < InkThreshold {
				proj[x]++
			}
		}
	}
	return proj
}

// SmoothProjection applies a box filter of the given kernel width. Even
// kernels are rounded up to the next odd width; kernels below 3 return a
// copy of the input.
func SmoothProjection(proj []int, kernel int) []float64 {
	out := make([]float64, len(proj))
	if kernel%2 == 0 {
		kernel++
	}
	if kernel < 3 {
		for i, v := range proj {
			out[i] = float64(v)
		}
		return out
	}

	half := kernel / 2
	for i := range proj {
		sum, n := 0, 0
		for j := i - half; j <= i+half; j++ {
			if j < 0 || j >= len(proj) {
				continue
			}
			sum += proj[j]
			n++
		}
		out[i] = float64(sum) / float64(n)
	}
	return out
}

// TrimWhitespace crops white margins from all four edges, keeping a small
// padding around the remaining content. An all-white page is returned
// unchanged.
func (p *Page) TrimWhitespace() *Page {
	const pad = 10

	minX, minY := p.Width(), p.Height()
	maxX, maxY := -1, -1
	for y := 0; y < p.Height(); y++ {
		rowOff := p.gray.PixOffset(0, y)
		row := p.gray.Pix[rowOff : rowOff+p.Width()]
		for x, v := range row {
			if v < TrimThreshold {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}
	if maxX < 0 {
		return p.copyRect(p.gray.Bounds())
	}

	minX = clamp(minX-pad, 0, p.Width())
	minY = clamp(minY-pad, 0, p.Height())
	maxX = clamp(maxX+pad+1, 0, p.Width())
	maxY = clamp(maxY+pad+1, 0, p.Height())
	return p.copyRect(image.Rect(minX, minY, maxX, maxY))
}

// HasInk reports whether any pixel on the page is darker than InkThreshold.
func (p *Page) HasInk() bool {
	for _, v := range p.gray.Pix {
		if v < InkThreshold {
			return true
		}
	}
	return false
}
