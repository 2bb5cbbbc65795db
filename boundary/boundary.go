// Package boundary converts an ordered marker sequence into the
// non-overlapping vertical regions each problem occupies. The regions
// tile the full image height: content above the first marker (shared
// instructions, a page header) belongs to the first problem, and each
// marker's region runs from its own line down to the next marker.
package boundary

import (
	"errors"
	"fmt"

	"github.com/dwkim-dev/probcut/marker"
)

// ErrNoMarkers is returned when boundary calculation is asked to work
// from an empty marker list. The caller decides whether that fails the
// column or the whole page.
var ErrNoMarkers = errors.New("boundary: no markers")

// Boundary is the vertical slice [YStart, YEnd) assigned to one
// problem number.
type Boundary struct {
	Number int
	YStart int
	YEnd   int
	Width  int
}

// Height returns YEnd - YStart.
func (b Boundary) Height() int { return b.YEnd - b.YStart }

func (b Boundary) String() string {
	return fmt.Sprintf("#%d [%d,%d)", b.Number, b.YStart, b.YEnd)
}

// Warning describes a boundary that was dropped instead of returned.
type Warning struct {
	Number int
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("problem %d: %s", w.Number, w.Reason)
}

// Calculate tiles [0, totalHeight) across the markers, which must be
// sorted by Y. The first boundary starts at 0 regardless of the first
// marker's position; every other boundary starts at its marker's Y and
// ends at the next marker's Y, or totalHeight for the last one.
// Boundaries with non-positive height are dropped with a warning.
// An empty marker list returns ErrNoMarkers.
func Calculate(markers []marker.Marker, totalHeight, width int) ([]Boundary, []Warning, error) {
	if len(markers) == 0 {
		return nil, nil, ErrNoMarkers
	}

	boundaries := make([]Boundary, 0, len(markers))
	var warnings []Warning
	for i, m := range markers {
		yStart := 0
		if i > 0 {
			yStart = m.Y
		}
		yEnd := totalHeight
		if i+1 < len(markers) {
			yEnd = markers[i+1].Y
		}

		if yEnd-yStart <= 0 {
			warnings = append(warnings, Warning{
				Number: m.Number,
				Reason: fmt.Sprintf("non-positive height [%d,%d)", yStart, yEnd),
			})
			continue
		}
		boundaries = append(boundaries, Boundary{
			Number: m.Number,
			YStart: yStart,
			YEnd:   yEnd,
			Width:  width,
		})
	}
	return boundaries, warnings, nil
}
