package probcut

import (
	"image"
	"sort"
	"sync"

	"github.com/dwkim-dev/probcut/boundary"
	"github.com/dwkim-dev/probcut/imaging"
	"github.com/dwkim-dev/probcut/layout"
	"github.com/dwkim-dev/probcut/marker"
)

// job is the mutable state of one extraction run. Ownership is
// strictly top-down: the job owns its pages, each page owns its
// columns, and each column's fields are written by exactly one task
// before the fan-in barrier reads them.
type job struct {
	state State
	pages []*pageState

	mu       sync.Mutex
	warnings []Warning
}

// pageState tracks one rasterized page through the pipeline.
type pageState struct {
	number int
	image  *imaging.Page
	layout *layout.Layout
	cols   []*columnState
}

// columnState tracks one detected column. markers, boundaries, and
// problems are filled in by the column's stage-1 task; stage-2
// escalation may rewrite them.
type columnState struct {
	pageNumber int
	index      int
	bound      layout.ColumnBound
	image      *imaging.Page

	markers    []marker.Marker
	boundaries []boundary.Boundary
	problems   []ExtractedProblem

	// attempts is how many stage-1 runs the column took.
	attempts int

	// ocrFailed marks a column whose engine executions all failed.
	// Column-local: sibling columns are unaffected.
	ocrFailed bool
}

func newJob() *job {
	return &job{state: StateInitial}
}

// transition advances the job state.
func (j *job) transition(s State) {
	j.state = s
}

// warn appends a warning; safe for concurrent use by column tasks.
func (j *job) warn(stage, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.warnings = append(j.warnings, Warning{Stage: stage, Message: message})
}

// detectedNumbers returns the union of problem numbers found across
// all columns, sorted ascending.
func (j *job) detectedNumbers() []int {
	set := make(map[int]bool)
	for _, page := range j.pages {
		for _, col := range page.cols {
			for _, m := range col.markers {
				set[m.Number] = true
			}
		}
	}
	out := make([]int, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// columnsForMissing maps missing problem numbers to the columns that
// should contain them: a column whose detected numbers bracket the
// missing one, else the column holding the closest smaller number,
// else every column. The result is deduplicated.
func (j *job) columnsForMissing(missing []int) []*columnState {
	var all []*columnState
	for _, page := range j.pages {
		all = append(all, page.cols...)
	}
	if len(all) == 0 {
		return nil
	}

	picked := make(map[*columnState]bool)
	for _, n := range missing {
		col := columnForNumber(all, n)
		if col != nil {
			picked[col] = true
			continue
		}
		for _, c := range all {
			picked[c] = true
		}
	}

	out := make([]*columnState, 0, len(picked))
	for _, c := range all { // preserve (page, column) order
		if picked[c] {
			out = append(out, c)
		}
	}
	return out
}

func columnForNumber(cols []*columnState, n int) *columnState {
	var below *columnState
	belowMax := -1
	for _, col := range cols {
		min, max := numberSpan(col.markers)
		if min == 0 {
			continue
		}
		if min <= n && n <= max {
			return col
		}
		if max < n && max > belowMax {
			below = col
			belowMax = max
		}
	}
	return below
}

// numberSpan returns the smallest and largest marker number in a
// column, or (0, 0) when it has none.
func numberSpan(markers []marker.Marker) (int, int) {
	if len(markers) == 0 {
		return 0, 0
	}
	min, max := markers[0].Number, markers[0].Number
	for _, m := range markers[1:] {
		if m.Number < min {
			min = m.Number
		}
		if m.Number > max {
			max = m.Number
		}
	}
	return min, max
}

// collectProblems gathers every extracted problem in deterministic
// (page, column, vertical position) order, regardless of the order the
// column tasks completed in.
func (j *job) collectProblems() []ExtractedProblem {
	var out []ExtractedProblem
	for _, page := range j.pages {
		for _, col := range page.cols {
			out = append(out, col.problems...)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Page != out[j].Page {
			return out[i].Page < out[j].Page
		}
		if out[i].Column != out[j].Column {
			return out[i].Column < out[j].Column
		}
		return out[i].BBox.Min.Y < out[j].BBox.Min.Y
	})
	return out
}

// ExtractedProblem is one cropped problem image with its provenance.
type ExtractedProblem struct {
	// Page and Column locate the problem's source column; Page is
	// 1-indexed, Column is 0-indexed left to right.
	Page   int
	Column int

	// Number is the recognized problem number.
	Number int

	// Image is the cropped problem region.
	Image *imaging.Page

	// BBox is the crop rectangle in page pixel coordinates.
	BBox image.Rectangle

	// Estimated marks problems whose marker position was guessed
	// rather than observed.
	Estimated bool

	// Engine names the OCR engine whose output located the marker.
	Engine string
}
