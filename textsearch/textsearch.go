// Package textsearch locates problem-number strings in a PDF's own
// text layer, independently of OCR. When a range marker promises a
// number that OCR never produced, the embedded text is a much better
// witness than positional guessing, provided the PDF carries a text
// layer at all (pure scans do not, and then every search misses).
package textsearch

import (
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfPointDPI is the resolution of PDF user-space coordinates.
const pdfPointDPI = 72.0

// lineTolerance is the vertical slack, in PDF points, within which two
// text items are considered to sit on the same line.
const lineTolerance = 2.0

// Searcher finds "N." occurrences on one page and reports their
// positions in image pixel space. It implements marker.DirectSearcher.
type Searcher struct {
	scale      float64
	pageHeight float64
	lines      []line
}

type line struct {
	text  string
	items []pdf.Text // one entry per byte of text
}

// Open loads the text layer of a single page. pageNum is 1-indexed;
// dpi is the resolution the page was rasterized at, used to scale PDF
// points into image pixels.
func Open(path string, pageNum, dpi int) (*Searcher, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("textsearch: open %s: %w", path, err)
	}
	defer f.Close()

	if pageNum < 1 || pageNum > reader.NumPage() {
		return nil, fmt.Errorf("textsearch: page %d out of range 1..%d", pageNum, reader.NumPage())
	}
	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return nil, fmt.Errorf("textsearch: page %d has no content", pageNum)
	}

	box := page.V.Key("MediaBox")
	pageHeight := 842.0 // A4 fallback
	if !box.IsNull() && box.Len() == 4 {
		pageHeight = box.Index(3).Float64() - box.Index(1).Float64()
	}

	return &Searcher{
		scale:      float64(dpi) / pdfPointDPI,
		pageHeight: pageHeight,
		lines:      groupLines(page.Content().Text),
	}, nil
}

// Search returns image-space positions for the numbers whose "N."
// string appears in the text layer. Numbers that do not appear are
// absent from the result; that is not an error.
func (s *Searcher) Search(numbers []int) (map[int]image.Point, error) {
	results := make(map[int]image.Point, len(numbers))
	for _, num := range numbers {
		needle := fmt.Sprintf("%d.", num)
		for _, ln := range s.lines {
			idx := indexAtBoundary(ln.text, needle)
			if idx < 0 {
				continue
			}
			item := ln.items[idx]
			results[num] = image.Pt(
				int(item.X*s.scale),
				int((s.pageHeight-item.Y)*s.scale),
			)
			break
		}
	}
	return results, nil
}

// indexAtBoundary finds needle in text, requiring the preceding rune
// (if any) to be a non-digit so that searching for "8." cannot match
// inside "18.".
func indexAtBoundary(text, needle string) int {
	from := 0
	for {
		idx := strings.Index(text[from:], needle)
		if idx < 0 {
			return -1
		}
		idx += from
		if idx == 0 || !isDigit(text[idx-1]) {
			return idx
		}
		from = idx + 1
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// groupLines buckets the page's text items by baseline and orders each
// bucket left to right. The text layer emits items in drawing order,
// which need not be reading order.
func groupLines(texts []pdf.Text) []line {
	sort.SliceStable(texts, func(i, j int) bool {
		if texts[i].Y != texts[j].Y {
			return texts[i].Y > texts[j].Y // PDF y grows upward
		}
		return texts[i].X < texts[j].X
	})

	var lines []line
	var cur []pdf.Text
	flush := func() {
		if len(cur) == 0 {
			return
		}
		sort.SliceStable(cur, func(i, j int) bool { return cur[i].X < cur[j].X })
		var sb strings.Builder
		var items []pdf.Text
		for _, t := range cur {
			// one entry per byte so indexAtBoundary offsets map directly
			for i := 0; i < len(t.S); i++ {
				items = append(items, t)
			}
			sb.WriteString(t.S)
		}
		lines = append(lines, line{text: sb.String(), items: items})
		cur = nil
	}

	for _, t := range texts {
		if t.S == "" {
			continue
		}
		if len(cur) > 0 && abs(t.Y-cur[len(cur)-1].Y) > lineTolerance {
			flush()
		}
		cur = append(cur, t)
	}
	flush()
	return lines
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
