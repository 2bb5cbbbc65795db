package layout

import (
	"sort"

	"github.com/dwkim-dev/probcut/imaging"
)

// minSeparatorSpan is the fraction of page height a merged line must cover
// to count as a column separator.
const minSeparatorSpan = 0.3

// Detector finds the column structure of a page image. Detection is
// deterministic: identical pixels always produce an identical Layout.
type Detector struct {
	config Config
}

// NewDetector creates a detector with default configuration.
func NewDetector() *Detector {
	return &Detector{config: DefaultConfig()}
}

// NewDetectorWithConfig creates a detector with custom configuration.
func NewDetectorWithConfig(config Config) *Detector {
	return &Detector{config: config}
}

// Detect analyzes a page and returns its column layout. Separator lines
// are tried first; if none survive merging and span filtering, content-gap
// analysis takes over. A page with no ink yields one full-width column.
func (d *Detector) Detect(page *imaging.Page) *Layout {
	width, height := page.Width(), page.Height()

	lines := d.findSeparators(page)
	if len(lines) > 0 {
		return d.layoutFromSeparators(width, height, lines)
	}
	return d.layoutFromGaps(page, width, height)
}

// verticalRun is the longest run of ink pixels in one x-column.
type verticalRun struct {
	x      int
	yStart int
	yEnd   int
}

func (r verticalRun) length() int { return r.yEnd - r.yStart }

// findSeparators locates long near-vertical line segments and merges the
// ones belonging to the same physical separator.
func (d *Detector) findSeparators(page *imaging.Page) []SeparatorLine {
	width, height := page.Width(), page.Height()

	// Longest ink run per x-column.
	runs := make([]verticalRun, 0, 8)
	for x := 0; x < width; x++ {
		best := verticalRun{x: x}
		cur := verticalRun{x: x}
		inRun := false
		for y := 0; y < height; y++ {
			if page.At(x, y) < imaging.InkThreshold {
				if !inRun {
					cur = verticalRun{x: x, yStart: y, yEnd: y + 1}
					inRun = true
				} else {
					cur.yEnd = y + 1
				}
				continue
			}
			if inRun {
				if cur.length() > best.length() {
					best = cur
				}
				inRun = false
			}
		}
		if inRun && cur.length() > best.length() {
			best = cur
		}
		if best.length() >= d.config.MinLineLength {
			runs = append(runs, best)
		}
	}
	if len(runs) == 0 {
		return nil
	}

	// Group adjacent candidate columns into bands. A band wider than the
	// line thickness limit is content (a figure edge, a table), not a
	// separator.
	var lines []SeparatorLine
	band := []verticalRun{runs[0]}
	flush := func() {
		if len(band) == 0 {
			return
		}
		if len(band) <= d.config.LineThickness {
			x := (band[0].x + band[len(band)-1].x) / 2
			yStart, yEnd := band[0].yStart, band[0].yEnd
			for _, r := range band[1:] {
				if r.yStart < yStart {
					yStart = r.yStart
				}
				if r.yEnd > yEnd {
					yEnd = r.yEnd
				}
			}
			lines = append(lines, SeparatorLine{X: x, YStart: yStart, YEnd: yEnd})
		}
		band = band[:0]
	}
	for _, r := range runs[1:] {
		if r.x == band[len(band)-1].x+1 {
			band = append(band, r)
			continue
		}
		flush()
		band = append(band, r)
	}
	flush()

	lines = mergeNearbyLines(lines, d.config.MergeThreshold)

	// Keep only separators spanning a meaningful share of the page.
	minSpan := int(float64(height) * minSeparatorSpan)
	kept := lines[:0]
	for _, l := range lines {
		if l.Length() >= minSpan {
			kept = append(kept, l)
		}
	}
	return kept
}

// mergeNearbyLines merges lines whose x-centers sit within threshold of
// each other, averaging x and extending the y-range.
func mergeNearbyLines(lines []SeparatorLine, threshold int) []SeparatorLine {
	if len(lines) == 0 {
		return nil
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].X < lines[j].X })

	merged := []SeparatorLine{lines[0]}
	for _, l := range lines[1:] {
		last := &merged[len(merged)-1]
		if l.X-last.X <= threshold {
			last.X = (last.X + l.X) / 2
			if l.YStart < last.YStart {
				last.YStart = l.YStart
			}
			if l.YEnd > last.YEnd {
				last.YEnd = l.YEnd
			}
		} else {
			merged = append(merged, l)
		}
	}
	return merged
}

// layoutFromSeparators builds column bounds at 0, sep xs..., width, then
// drops columns narrower than MinColumnWidth. Those are slivers produced
// by thick separator bands, not content. If filtering removes everything
// the unfiltered set is kept.
func (d *Detector) layoutFromSeparators(width, height int, lines []SeparatorLine) *Layout {
	xs := make([]int, 0, len(lines)+2)
	xs = append(xs, 0)
	for _, l := range lines {
		xs = append(xs, l.X)
	}
	xs = append(xs, width)

	all := make([]ColumnBound, 0, len(xs)-1)
	for i := 0; i < len(xs)-1; i++ {
		b := ColumnBound{LeftX: xs[i], RightX: xs[i+1]}
		if b.Valid() {
			all = append(all, b)
		}
	}

	content := make([]ColumnBound, 0, len(all))
	for _, b := range all {
		if b.Width() >= d.config.MinColumnWidth {
			content = append(content, b)
		}
	}
	if len(content) == 0 {
		content = all
	}
	if len(content) == 0 {
		content = []ColumnBound{{LeftX: 0, RightX: width}}
	}

	return &Layout{
		PageWidth:   width,
		PageHeight:  height,
		Columns:     content,
		ColumnCount: classify(len(content)),
		Method:      MethodVerticalLines,
		Separators:  lines,
	}
}

// layoutFromGaps splits the page at the deepest content gap when the
// smoothed ink projection dips below 30% of the page average in the middle
// third of the width. Otherwise the page is a single column.
func (d *Detector) layoutFromGaps(page *imaging.Page, width, height int) *Layout {
	single := &Layout{
		PageWidth:   width,
		PageHeight:  height,
		Columns:     []ColumnBound{{LeftX: 0, RightX: width}},
		ColumnCount: One,
		Method:      MethodContentGaps,
	}

	proj := page.VerticalInkProjection(0, height)
	smooth := imaging.SmoothProjection(proj, width/100)

	var total float64
	for _, v := range smooth {
		total += v
	}
	avg := total / float64(len(smooth))
	if avg <= 0 {
		return single
	}

	midStart, midEnd := width/3, 2*width/3
	if midEnd <= midStart {
		return single
	}
	minX, minVal := midStart, smooth[midStart]
	for x := midStart + 1; x < midEnd; x++ {
		if smooth[x] < minVal {
			minX, minVal = x, smooth[x]
		}
	}

	if minVal >= avg*0.3 {
		return single
	}

	return &Layout{
		PageWidth:  width,
		PageHeight: height,
		Columns: []ColumnBound{
			{LeftX: 0, RightX: minX},
			{LeftX: minX, RightX: width},
		},
		ColumnCount: Two,
		Method:      MethodContentGaps,
	}
}
