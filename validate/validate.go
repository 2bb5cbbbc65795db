// Package validate compares the set of detected problem numbers against
// an expected set and reports what is missing, what is spurious, and an
// accuracy ratio. When no ground truth exists the expected set defaults
// to the contiguous range 1..max(detected), which makes accuracy
// optimistic: a run that detected {1,2,3} out of a 20-problem sheet
// validates cleanly. Callers that have real expectations should always
// supply them.
package validate

import "sort"

// Feedback is the outcome of one validation. It is computed fresh each
// call and never mutated afterwards.
type Feedback struct {
	Expected       []int
	Detected       []int
	Missing        []int
	FalsePositives []int
	Accuracy       float64
	Success        bool
}

// Validate compares detected against expected. Missing is expected
// minus detected, FalsePositives is detected minus expected, and
// Accuracy is |detected ∩ expected| / |expected| (zero when expected
// is empty). Success requires both difference sets to be empty. All
// returned slices are sorted ascending.
func Validate(detected, expected []int) Feedback {
	det := toSet(detected)
	exp := toSet(expected)

	var missing, falsePositives, hits []int
	for n := range exp {
		if det[n] {
			hits = append(hits, n)
		} else {
			missing = append(missing, n)
		}
	}
	for n := range det {
		if !exp[n] {
			falsePositives = append(falsePositives, n)
		}
	}

	accuracy := 0.0
	if len(exp) > 0 {
		accuracy = float64(len(hits)) / float64(len(exp))
	}

	return Feedback{
		Expected:       sorted(exp),
		Detected:       sorted(det),
		Missing:        sortInts(missing),
		FalsePositives: sortInts(falsePositives),
		Accuracy:       accuracy,
		Success:        len(missing) == 0 && len(falsePositives) == 0,
	}
}

// ExpectedRange returns the default expectation 1..max(detected) used
// when no ground truth is available. Empty input yields an empty range.
func ExpectedRange(detected []int) []int {
	max := 0
	for _, n := range detected {
		if n > max {
			max = n
		}
	}
	out := make([]int, 0, max)
	for n := 1; n <= max; n++ {
		out = append(out, n)
	}
	return out
}

func toSet(nums []int) map[int]bool {
	set := make(map[int]bool, len(nums))
	for _, n := range nums {
		set[n] = true
	}
	return set
}

func sorted(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

func sortInts(nums []int) []int {
	sort.Ints(nums)
	return nums
}
