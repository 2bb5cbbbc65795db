package validate

import (
	"reflect"
	"testing"
)

func TestValidateArithmetic(t *testing.T) {
	fb := Validate([]int{1, 2, 4, 5}, []int{1, 2, 3, 4, 5})

	if !reflect.DeepEqual(fb.Missing, []int{3}) {
		t.Errorf("missing = %v, want [3]", fb.Missing)
	}
	if len(fb.FalsePositives) != 0 {
		t.Errorf("false positives = %v, want none", fb.FalsePositives)
	}
	if fb.Accuracy != 0.8 {
		t.Errorf("accuracy = %v, want 0.8", fb.Accuracy)
	}
	if fb.Success {
		t.Error("success should be false with a missing number")
	}
}

func TestValidateSuccess(t *testing.T) {
	fb := Validate([]int{1, 2, 3}, []int{1, 2, 3})

	if !fb.Success {
		t.Error("expected success")
	}
	if fb.Accuracy != 1.0 {
		t.Errorf("accuracy = %v, want 1.0", fb.Accuracy)
	}
}

func TestValidateFalsePositives(t *testing.T) {
	fb := Validate([]int{1, 2, 3, 17}, []int{1, 2, 3})

	if !reflect.DeepEqual(fb.FalsePositives, []int{17}) {
		t.Errorf("false positives = %v, want [17]", fb.FalsePositives)
	}
	if fb.Success {
		t.Error("a false positive must fail validation")
	}
	if fb.Accuracy != 1.0 {
		t.Errorf("accuracy = %v, want 1.0 (all expected found)", fb.Accuracy)
	}
}

func TestValidateEmptyExpected(t *testing.T) {
	fb := Validate([]int{1, 2}, nil)

	if fb.Accuracy != 0 {
		t.Errorf("accuracy = %v, want 0 for empty expected", fb.Accuracy)
	}
	if fb.Success {
		t.Error("detected numbers with no expectation are all false positives")
	}
}

func TestValidateDeduplicatesInput(t *testing.T) {
	fb := Validate([]int{2, 2, 1, 1}, []int{1, 2})

	if !reflect.DeepEqual(fb.Detected, []int{1, 2}) {
		t.Errorf("detected = %v, want deduplicated sorted [1 2]", fb.Detected)
	}
	if !fb.Success {
		t.Error("expected success")
	}
}

func TestExpectedRange(t *testing.T) {
	tests := []struct {
		name     string
		detected []int
		want     []int
	}{
		{"contiguous", []int{1, 2, 3}, []int{1, 2, 3}},
		{"holes", []int{2, 5}, []int{1, 2, 3, 4, 5}},
		{"empty", nil, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpectedRange(tt.detected)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExpectedRange(%v) = %v, want %v", tt.detected, got, tt.want)
			}
		})
	}
}
