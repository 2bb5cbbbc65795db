// Package layout provides page layout analysis for scanned exam sheets:
// column detection from separator lines or content gaps, and linearization
// of multi-column pages into a single reading-order strip.
package layout

// ColumnCount classifies how many content columns a page has. Anything
// beyond three collapses into Three as a catch-all.
type ColumnCount int

const (
	One ColumnCount = iota + 1
	Two
	Three
)

func (c ColumnCount) String() string {
	switch c {
	case One:
		return "one"
	case Two:
		return "two"
	default:
		return "three"
	}
}

// DetectionMethod records which strategy produced a layout.
type DetectionMethod string

const (
	MethodVerticalLines DetectionMethod = "vertical_lines"
	MethodContentGaps   DetectionMethod = "content_gaps"
)

// ColumnBound is the horizontal extent [LeftX, RightX) of one column.
type ColumnBound struct {
	LeftX  int
	RightX int
}

// Width returns the column width in pixels.
func (b ColumnBound) Width() int { return b.RightX - b.LeftX }

// Valid reports whether the bound has positive width.
func (b ColumnBound) Valid() bool { return b.LeftX < b.RightX }

// ContainsX reports whether the x coordinate falls inside the bound.
func (b ColumnBound) ContainsX(x int) bool { return b.LeftX <= x && x <= b.RightX }

// SeparatorLine is a merged near-vertical line segment.
type SeparatorLine struct {
	X      int
	YStart int
	YEnd   int
}

// Length returns the vertical extent of the line.
func (l SeparatorLine) Length() int { return l.YEnd - l.YStart }

// Layout is the detected column structure of one page.
type Layout struct {
	PageWidth  int
	PageHeight int

	// Columns ordered left to right, non-overlapping.
	Columns []ColumnBound

	ColumnCount ColumnCount
	Method      DetectionMethod

	// Separators that produced the columns; empty for the content-gap
	// strategy and for single-column pages.
	Separators []SeparatorLine
}

// ColumnIndex returns the index of the column containing x, or -1.
func (l *Layout) ColumnIndex(x int) int {
	for i, col := range l.Columns {
		if col.ContainsX(x) {
			return i
		}
	}
	return -1
}

// Config holds the tunables for column detection.
type Config struct {
	// MinLineLength is the minimum vertical run, in pixels, for a dark
	// run to be considered a separator segment.
	MinLineLength int

	// LineThickness is the maximum horizontal thickness of a separator
	// line band; wider dark bands are content, not separators.
	LineThickness int

	// GapThreshold is the minimum width of a content gap considered as
	// a column boundary by the fallback strategy.
	GapThreshold int

	// MergeThreshold is the maximum x-distance between separator
	// segments merged into one logical line.
	MergeThreshold int

	// MinColumnWidth filters out columns that are artifacts of thick
	// separator bands rather than real content columns.
	MinColumnWidth int
}

// DefaultConfig returns the detection defaults tuned for 200-300 DPI
// exam-sheet scans.
func DefaultConfig() Config {
	return Config{
		MinLineLength:  100,
		LineThickness:  5,
		GapThreshold:   50,
		MergeThreshold: 15,
		MinColumnWidth: 100,
	}
}

// classify maps a boundary count onto the ColumnCount categories.
func classify(n int) ColumnCount {
	switch {
	case n <= 1:
		return One
	case n == 2:
		return Two
	default:
		return Three
	}
}
