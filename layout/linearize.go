package layout

import "github.com/dwkim-dev/probcut/imaging"

// Strip is a multi-column page linearized into one vertical reading-order
// strip: columns stacked top-to-bottom in left-to-right order, each padded
// to the widest column with white fill.
type Strip struct {
	Page *imaging.Page

	// Segments records where each source column landed in the strip, in
	// stacking order.
	Segments []Segment
}

// Segment maps one source column into the strip's y-space.
type Segment struct {
	ColumnIndex int
	YOffset     int
	Height      int
	Width       int
}

// Separate crops the page at each column bound, clamped to the page.
// The result is index-parallel to l.Columns; bounds that collapse to
// nothing after clamping leave a nil in their slot so callers keep the
// column index.
func Separate(page *imaging.Page, l *Layout) []*imaging.Page {
	cols := make([]*imaging.Page, len(l.Columns))
	for i, b := range l.Columns {
		cols[i] = page.SubColumn(b.LeftX, b.RightX)
	}
	return cols
}

// Linearize stacks column images into a single strip. The operation is
// content-preserving: every retained column pixel appears in the strip,
// only white padding is added.
func Linearize(columns []*imaging.Page) *Strip {
	strip := &Strip{Page: imaging.StackColumns(columns)}

	yOff := 0
	for i, c := range columns {
		if c == nil {
			continue
		}
		strip.Segments = append(strip.Segments, Segment{
			ColumnIndex: i,
			YOffset:     yOff,
			Height:      c.Height(),
			Width:       c.Width(),
		})
		yOff += c.Height()
	}
	return strip
}

// Height returns the total strip height.
func (s *Strip) Height() int { return s.Page.Height() }

// Width returns the strip width (the widest column).
func (s *Strip) Width() int { return s.Page.Width() }

// Locate maps a strip y-coordinate back to the source column index and
// the y within that column. Coordinates past the final segment map into
// the final segment.
func (s *Strip) Locate(y int) (columnIndex, columnY int) {
	if len(s.Segments) == 0 {
		return 0, y
	}
	for _, seg := range s.Segments {
		if y < seg.YOffset+seg.Height {
			return seg.ColumnIndex, y - seg.YOffset
		}
	}
	last := s.Segments[len(s.Segments)-1]
	return last.ColumnIndex, last.Height - 1
}
