package marker

import (
	"image"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dwkim-dev/probcut/ocr"
)

// Range-marker resolution tunables. A number introduced by "[8~9]"
// must sit below the range marker but within a couple of problem
// heights of it; when it cannot be found at all its position is
// guessed at a fixed vertical pitch.
const (
	rescanMinOffset = 100  // px below the range marker
	rescanMaxOffset = 2000 // px below the range marker
	estimatePitch   = 600  // px per problem when estimating
	estimateConf    = 0.3
)

var (
	rangeRe   = regexp.MustCompile(`^\[(\d+)\s*[~-]\s*(\d+)\]`)
	bracketRe = regexp.MustCompile(`^\[(\d+)\]$`)
	dotRe     = regexp.MustCompile(`^(\d+)\.$`)
	commaRe   = regexp.MustCompile(`^(\d+),$`)
	parenRe   = regexp.MustCompile(`^\((\d+)\)$`)
	prefixRe  = regexp.MustCompile(`^(\d+)[.,]\s+`)
)

// DirectSearcher locates problem-number strings on the original page
// independently of OCR. It is the second-line fallback for numbers a
// range marker promises but OCR never produced.
type DirectSearcher interface {
	// Search returns pixel positions for the numbers it could find,
	// keyed by number. Numbers it cannot find are simply absent.
	Search(numbers []int) (map[int]image.Point, error)
}

// Recognizer parses OCR spans into markers.
type Recognizer struct {
	searcher DirectSearcher
	log      *logrus.Entry
}

// NewRecognizer returns a recognizer without a direct-search fallback;
// unresolved range numbers go straight to position estimation.
func NewRecognizer() *Recognizer {
	return NewRecognizerWithSearcher(nil)
}

// NewRecognizerWithSearcher returns a recognizer that consults s for
// range numbers OCR missed. A nil s behaves like NewRecognizer.
func NewRecognizerWithSearcher(s DirectSearcher) *Recognizer {
	return &Recognizer{
		searcher: s,
		log:      logrus.WithField("component", "marker"),
	}
}

type pendingRange struct {
	start, end int
	x, y       int
}

// Parse extracts problem-number markers from an OCR result. Output is
// deduplicated (highest confidence wins per number) and sorted by
// vertical position.
func (r *Recognizer) Parse(res *ocr.Result) []Marker {
	var markers []Marker
	var ranges []pendingRange

	for _, span := range res.Spans {
		text := strings.TrimSpace(span.Text)
		center := centerOf(span.Box)

		if m := rangeRe.FindStringSubmatch(text); m != nil {
			start, _ := strconv.Atoi(m[1])
			end, _ := strconv.Atoi(m[2])
			if MinNumber <= start && start <= end && end <= MaxNumber {
				markers = append(markers, Marker{
					Number:       start,
					X:            center.X,
					Y:            center.Y,
					Confidence:   span.Confidence,
					SourceEngine: res.Engine,
					Pattern:      PatternRange,
				})
				ranges = append(ranges, pendingRange{start: start, end: end, x: center.X, y: center.Y})
			}
			continue
		}

		if num, pat, ok := parseScalar(text); ok {
			markers = append(markers, Marker{
				Number:       num,
				X:            center.X,
				Y:            center.Y,
				Confidence:   span.Confidence,
				SourceEngine: res.Engine,
				Pattern:      pat,
			})
			continue
		}

		if m := prefixRe.FindStringSubmatch(text); m != nil && !strings.Contains(text, "점") {
			num, _ := strconv.Atoi(m[1])
			if MinNumber <= num && num <= MaxNumber {
				markers = append(markers, Marker{
					Number:       num,
					X:            center.X,
					Y:            center.Y,
					Confidence:   span.Confidence,
					SourceEngine: res.Engine,
					Pattern:      PatternPrefix,
				})
			}
		}
	}

	markers = r.resolveRanges(markers, ranges, res)
	markers = dedupe(markers)
	sortByY(markers)
	return markers
}

// parseScalar tries the single-number forms in priority order. Spans
// carrying the score glyph "점" ("[2점]") or loose range glyphs are
// rejected outright; both read as numbers otherwise.
func parseScalar(text string) (int, Pattern, bool) {
	if strings.Contains(text, "점") {
		return 0, "", false
	}
	if strings.ContainsAny(text, "~-") {
		return 0, "", false
	}

	for _, try := range []struct {
		re  *regexp.Regexp
		pat Pattern
	}{
		{bracketRe, PatternBracket},
		{dotRe, PatternDot},
		{commaRe, PatternComma},
		{parenRe, PatternParenthesis},
	} {
		if m := try.re.FindStringSubmatch(text); m != nil {
			num, _ := strconv.Atoi(m[1])
			if MinNumber <= num && num <= MaxNumber {
				return num, try.pat, true
			}
			return 0, "", false
		}
	}

	// Circled digits ① (U+2460) through ⑳ (U+2473).
	runes := []rune(text)
	if len(runes) == 1 && runes[0] >= 0x2460 && runes[0] <= 0x2473 {
		return int(runes[0]-0x2460) + 1, PatternCircled, true
	}

	return 0, "", false
}

// resolveRanges produces markers for the numbers after the first in
// each "[A~B]" run: re-scan the spans below the range marker, then the
// direct searcher, then positional estimation.
func (r *Recognizer) resolveRanges(markers []Marker, ranges []pendingRange, res *ocr.Result) []Marker {
	if len(ranges) == 0 {
		return markers
	}

	found := make(map[int]bool, len(markers))
	for _, m := range markers {
		found[m.Number] = true
	}

	var unresolved []int
	rangeOf := make(map[int]pendingRange)
	for _, pr := range ranges {
		for target := pr.start + 1; target <= pr.end; target++ {
			if found[target] {
				continue
			}
			if m, ok := r.rescanSpans(target, pr, res); ok {
				markers = append(markers, m)
				found[target] = true
				continue
			}
			unresolved = append(unresolved, target)
			rangeOf[target] = pr
		}
	}

	if len(unresolved) > 0 && r.searcher != nil {
		positions, err := r.searcher.Search(unresolved)
		if err != nil {
			r.log.WithError(err).Warn("Direct text search failed")
		}
		remaining := unresolved[:0]
		for _, num := range unresolved {
			pt, ok := positions[num]
			if !ok {
				remaining = append(remaining, num)
				continue
			}
			markers = append(markers, Marker{
				Number:       num,
				X:            pt.X,
				Y:            pt.Y,
				Confidence:   0.9,
				SourceEngine: res.Engine,
				Pattern:      PatternTextSearch,
			})
		}
		unresolved = remaining
	}

	for _, num := range unresolved {
		pr := rangeOf[num]
		est := pr.y + (num-pr.start)*estimatePitch
		r.log.WithFields(logrus.Fields{
			"number": num,
			"range":  pr,
			"y":      est,
		}).Warn("Estimating marker position")
		markers = append(markers, Marker{
			Number:       num,
			X:            pr.x,
			Y:            est,
			Confidence:   estimateConf,
			SourceEngine: res.Engine,
			Pattern:      PatternEstimated,
			Estimated:    true,
		})
	}
	return markers
}

// rescanSpans looks for target among the spans positioned in the
// vertical window below a range marker. Exact scalar forms, "N. "
// prefixes, and bare digits all count here; a bare digit is too noisy
// for first-pass recognition but trustworthy once a range marker has
// promised the number exists nearby.
func (r *Recognizer) rescanSpans(target int, pr pendingRange, res *ocr.Result) (Marker, bool) {
	for _, span := range res.Spans {
		center := centerOf(span.Box)
		if center.Y <= pr.y+rescanMinOffset || center.Y >= pr.y+rescanMaxOffset {
			continue
		}
		text := strings.TrimSpace(span.Text)

		match := false
		if num, _, ok := parseScalar(text); ok && num == target {
			match = true
		} else if m := prefixRe.FindStringSubmatch(text); m != nil && m[1] == strconv.Itoa(target) {
			match = true
		} else if text == strconv.Itoa(target) {
			match = true
		}
		if !match {
			continue
		}
		return Marker{
			Number:       target,
			X:            center.X,
			Y:            center.Y,
			Confidence:   span.Confidence,
			SourceEngine: res.Engine,
			Pattern:      PatternDot,
		}, true
	}
	return Marker{}, false
}

// dedupe keeps the highest-confidence marker per number. Order of the
// survivors is not defined; callers sort afterwards.
func dedupe(markers []Marker) []Marker {
	best := make(map[int]Marker, len(markers))
	for _, m := range markers {
		if prev, ok := best[m.Number]; !ok || m.Confidence > prev.Confidence {
			best[m.Number] = m
		}
	}
	out := markers[:0]
	for _, m := range best {
		out = append(out, m)
	}
	return out
}

func centerOf(box image.Rectangle) image.Point {
	return image.Pt((box.Min.X+box.Max.X)/2, (box.Min.Y+box.Max.Y)/2)
}
