// Package marker turns raw OCR text spans into typed problem-number
// markers. Exam sheets number their questions in several visual styles
// ("3.", "(3)", "[3]", "③") and OCR noise introduces more ("3,"), so
// recognition is pattern-priority based rather than a single regex.
// Bracketed ranges like "[8~9]" introduce a shared passage covering a
// run of consecutive numbers and are resolved into one marker per
// number.
package marker

import (
	"fmt"
	"sort"
)

// Number bounds for a plausible problem number. Sheets in the target
// document class never exceed 100 questions.
const (
	MinNumber = 1
	MaxNumber = 100
)

// Marker is one recognized problem number with its position on the
// image it was recognized from.
type Marker struct {
	Number       int
	X, Y         int
	Confidence   float64
	SourceEngine string

	// Pattern names the textual form the number was recognized from.
	Pattern Pattern

	// Estimated is set on markers whose position was guessed by even
	// subdivision after a range marker, rather than observed. Their
	// Confidence is correspondingly low.
	Estimated bool
}

func (m Marker) String() string {
	return fmt.Sprintf("#%d@(%d,%d) %s conf=%.2f", m.Number, m.X, m.Y, m.Pattern, m.Confidence)
}

// Pattern identifies which textual form produced a marker.
type Pattern string

const (
	PatternRange       Pattern = "range"       // "[8~9]"
	PatternBracket     Pattern = "bracket"     // "[3]"
	PatternDot         Pattern = "dot"         // "3."
	PatternComma       Pattern = "comma"       // "3," (OCR misread of ".")
	PatternParenthesis Pattern = "parenthesis" // "(3)"
	PatternCircled     Pattern = "circled"     // "③"
	PatternPrefix      Pattern = "prefix"      // "3. 그림은 ..."
	PatternEstimated   Pattern = "estimated"   // position guessed, not observed
	PatternTextSearch  Pattern = "textsearch"  // found by direct page-text search
)

// sortByY orders markers top to bottom. Reading order is positional;
// numeric order is deliberately not consulted.
func sortByY(markers []Marker) {
	sort.SliceStable(markers, func(i, j int) bool {
		return markers[i].Y < markers[j].Y
	})
}

// Merge combines marker lists from multiple recognition passes,
// keeping the highest-confidence occurrence per number, and returns
// the result sorted by vertical position. An observed marker always
// beats an estimated one regardless of confidence.
func Merge(lists ...[]Marker) []Marker {
	best := make(map[int]Marker)
	for _, list := range lists {
		for _, m := range list {
			prev, ok := best[m.Number]
			if !ok || better(m, prev) {
				best[m.Number] = m
			}
		}
	}
	out := make([]Marker, 0, len(best))
	for _, m := range best {
		out = append(out, m)
	}
	sortByY(out)
	return out
}

func better(a, b Marker) bool {
	if a.Estimated != b.Estimated {
		return !a.Estimated
	}
	return a.Confidence > b.Confidence
}
