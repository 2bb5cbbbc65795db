package probcut

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dwkim-dev/probcut/config"
	"github.com/dwkim-dev/probcut/imaging"
	"github.com/dwkim-dev/probcut/ocr"
)

// fakeEngine serves canned spans keyed by image width, so tests can
// tell pages apart after column separation.
type fakeEngine struct {
	name      string
	available bool
	spans     map[int][]ocr.Span // keyed by image width
	delay     func() time.Duration
	calls     atomic.Int32
}

func (f *fakeEngine) Name() string           { return f.name }
func (f *fakeEngine) Available() bool        { return f.available }
func (f *fakeEngine) EstimatedCost() float64 { return 0 }

func (f *fakeEngine) Execute(ctx context.Context, in ocr.Input) (*ocr.Result, error) {
	f.calls.Add(1)
	if f.delay != nil {
		select {
		case <-time.After(f.delay()):
		case <-ctx.Done():
			return nil, &ocr.ExecutionError{Engine: f.name, Err: ctx.Err()}
		}
	}
	width := in.Image.Bounds().Dx()
	return &ocr.Result{Spans: f.spans[width], Engine: f.name}, nil
}

// markerSpan fabricates a high-confidence "N." span at the given y,
// near the left edge where problem numbers live.
func markerSpan(num, y int) ocr.Span {
	return ocr.Span{
		Text:       fmt.Sprintf("%d.", num),
		Box:        image.Rect(40, y-15, 80, y+15),
		Confidence: 0.95,
	}
}

func testRegistry(t *testing.T, engines ...ocr.Engine) *ocr.Registry {
	t.Helper()
	reg, err := DefaultRegistry(engines...)
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestExtractSinglePage(t *testing.T) {
	fast := &fakeEngine{name: "tesseract", available: true, spans: map[int][]ocr.Span{
		600: {markerSpan(1, 100), markerSpan(2, 500), markerSpan(3, 900)},
	}}

	result, warnings, err := FromImages(imaging.New(600, 1200)).
		WithRegistry(testRegistry(t, fast)).
		Extract(context.Background())
	if err != nil {
		t.Fatalf("extract: %v\n%s", err, FormatWarnings(warnings))
	}

	if len(result.Problems) != 3 {
		t.Fatalf("got %d problems, want 3", len(result.Problems))
	}
	for i, want := range []int{1, 2, 3} {
		if result.Problems[i].Number != want {
			t.Errorf("problems[%d].Number = %d, want %d", i, result.Problems[i].Number, want)
		}
	}
	if !result.Feedback.Success {
		t.Errorf("feedback = %+v, want success", result.Feedback)
	}
	if result.Decision != DecisionAccept {
		t.Errorf("decision = %v, want accept", result.Decision)
	}
	if result.State != StateComplete {
		t.Errorf("state = %v, want complete", result.State)
	}
	// first problem's region starts at the top of the page
	if result.Problems[0].BBox.Min.Y != 0 {
		t.Errorf("first problem starts at y=%d, want 0", result.Problems[0].BBox.Min.Y)
	}
}

func TestExtractOrderingInvariance(t *testing.T) {
	pages := []*imaging.Page{
		imaging.New(600, 1200),
		imaging.New(610, 1200),
		imaging.New(620, 1200),
	}
	spans := map[int][]ocr.Span{
		600: {markerSpan(1, 100), markerSpan(2, 600)},
		610: {markerSpan(3, 100), markerSpan(4, 600)},
		620: {markerSpan(5, 100), markerSpan(6, 600)},
	}

	for trial := 0; trial < 5; trial++ {
		fast := &fakeEngine{
			name:      "tesseract",
			available: true,
			spans:     spans,
			delay: func() time.Duration {
				return time.Duration(rand.Intn(20)) * time.Millisecond
			},
		}

		result, warnings, err := FromImages(pages...).
			WithRegistry(testRegistry(t, fast)).
			MaxConcurrency(3).
			Extract(context.Background())
		if err != nil {
			t.Fatalf("trial %d: %v\n%s", trial, err, FormatWarnings(warnings))
		}

		var got []int
		for _, p := range result.Problems {
			got = append(got, p.Number)
		}
		for i, want := range []int{1, 2, 3, 4, 5, 6} {
			if got[i] != want {
				t.Fatalf("trial %d: order = %v, completion order leaked into output", trial, got)
			}
		}
		for i := 1; i < len(result.Problems); i++ {
			prev, cur := result.Problems[i-1], result.Problems[i]
			if cur.Page < prev.Page {
				t.Fatalf("trial %d: pages out of order", trial)
			}
		}
	}
}

func TestExtractEscalation(t *testing.T) {
	fast := &fakeEngine{name: "tesseract", available: true, spans: map[int][]ocr.Span{
		600: {markerSpan(1, 100), markerSpan(2, 500)},
	}}
	accurate := &fakeEngine{name: "mathpix", available: true, spans: map[int][]ocr.Span{
		600: {markerSpan(1, 100), markerSpan(2, 500), markerSpan(3, 900)},
	}}

	result, warnings, err := FromImages(imaging.New(600, 1200)).
		WithRegistry(testRegistry(t, fast, accurate)).
		Expected(1, 3).
		Extract(context.Background())
	if err != nil {
		t.Fatalf("extract: %v\n%s", err, FormatWarnings(warnings))
	}

	if result.Decision != DecisionEscalate {
		t.Fatalf("decision = %v, want escalate", result.Decision)
	}
	if accurate.calls.Load() == 0 {
		t.Fatal("accurate engine was never called")
	}
	if !result.Feedback.Success {
		t.Errorf("feedback = %+v, want success after escalation", result.Feedback)
	}
	if len(result.Problems) != 3 {
		t.Errorf("got %d problems, want 3", len(result.Problems))
	}
}

func TestExtractPartialWhenTooManyMissing(t *testing.T) {
	fast := &fakeEngine{name: "tesseract", available: true, spans: map[int][]ocr.Span{
		600: {markerSpan(1, 100)},
	}}
	accurate := &fakeEngine{name: "mathpix", available: true}

	result, _, err := FromImages(imaging.New(600, 1200)).
		WithRegistry(testRegistry(t, fast, accurate)).
		Expected(1, 10).
		Extract(context.Background())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if result.Decision != DecisionPartial {
		t.Errorf("decision = %v, want partial (9 missing)", result.Decision)
	}
	if accurate.calls.Load() != 0 {
		t.Error("accurate engine must not run when too many numbers are missing")
	}
	if !result.Partial {
		t.Error("result must be flagged partial")
	}
	if len(result.Feedback.Missing) != 9 {
		t.Errorf("missing = %v, want 9 numbers", result.Feedback.Missing)
	}
}

func TestExtractPartialWhenNoAccurateEngine(t *testing.T) {
	fast := &fakeEngine{name: "tesseract", available: true, spans: map[int][]ocr.Span{
		600: {markerSpan(1, 100), markerSpan(2, 500)},
	}}

	result, _, err := FromImages(imaging.New(600, 1200)).
		WithRegistry(testRegistry(t, fast)).
		Expected(1, 3).
		Extract(context.Background())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if result.Decision != DecisionPartial {
		t.Errorf("decision = %v, want partial without an accurate engine", result.Decision)
	}
	if len(result.Problems) != 2 {
		t.Errorf("got %d problems, want the 2 stage-1 found", len(result.Problems))
	}
}

func TestExtractStage1EngineUnavailable(t *testing.T) {
	offline := &fakeEngine{name: "tesseract", available: false}

	_, _, err := FromImages(imaging.New(600, 1200)).
		WithRegistry(testRegistry(t, offline)).
		Extract(context.Background())
	if !errors.Is(err, ocr.ErrEngineUnavailable) {
		t.Errorf("err = %v, want ErrEngineUnavailable", err)
	}
}

func TestExtractFallbackEngine(t *testing.T) {
	offline := &fakeEngine{name: "tesseract", available: false}
	backup := &fakeEngine{name: "easyocr", available: true, spans: map[int][]ocr.Span{
		600: {markerSpan(1, 100)},
	}}

	result, _, err := FromImages(imaging.New(600, 1200)).
		WithRegistry(testRegistry(t, offline, backup)).
		WithStrategy(Strategy{Stage1Engine: "tesseract", FallbackEngine: "easyocr", MaxRetries: 1}).
		Extract(context.Background())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if backup.calls.Load() == 0 {
		t.Error("fallback engine was never used")
	}
	if len(result.Problems) != 1 {
		t.Errorf("got %d problems", len(result.Problems))
	}
}

func TestExtractNoMarkersFails(t *testing.T) {
	empty := &fakeEngine{name: "tesseract", available: true}

	_, _, err := FromImages(imaging.New(600, 1200)).
		WithRegistry(testRegistry(t, empty)).
		Extract(context.Background())
	if !errors.Is(err, ErrNoProblems) {
		t.Errorf("err = %v, want ErrNoProblems", err)
	}
	// every retry was spent before giving up
	if got := empty.calls.Load(); got != 3 {
		t.Errorf("engine called %d times, want 3 attempts", got)
	}
}

func TestExtractRetryRelaxesConfidence(t *testing.T) {
	// Engine that only yields spans once the confidence floor drops.
	fast := &lowConfidenceEngine{}

	result, _, err := FromImages(imaging.New(600, 1200)).
		WithRegistry(testRegistry(t, fast)).
		Extract(context.Background())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if fast.calls < 2 {
		t.Errorf("engine called %d times, want a retry", fast.calls)
	}
	if len(result.Problems) != 1 {
		t.Errorf("got %d problems, want 1", len(result.Problems))
	}
}

// lowConfidenceEngine reports a span whose confidence sits below the
// default floor but above the first relaxation step.
type lowConfidenceEngine struct {
	calls int
}

func (l *lowConfidenceEngine) Name() string           { return "tesseract" }
func (l *lowConfidenceEngine) Available() bool        { return true }
func (l *lowConfidenceEngine) EstimatedCost() float64 { return 0 }

func (l *lowConfidenceEngine) Execute(ctx context.Context, in ocr.Input) (*ocr.Result, error) {
	l.calls++
	span := ocr.Span{Text: "1.", Box: image.Rect(40, 85, 80, 115), Confidence: 0.5}
	if span.Confidence < in.MinConfidence {
		return &ocr.Result{Engine: "tesseract"}, nil
	}
	return &ocr.Result{Spans: []ocr.Span{span}, Engine: "tesseract"}, nil
}

func TestExtractCancellation(t *testing.T) {
	slow := &fakeEngine{
		name:      "tesseract",
		available: true,
		spans:     map[int][]ocr.Span{600: {markerSpan(1, 100)}},
		delay:     func() time.Duration { return 200 * time.Millisecond },
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	result, _, err := FromImages(imaging.New(600, 1200)).
		WithRegistry(testRegistry(t, slow)).
		Extract(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
	if result != nil {
		t.Error("cancelled job must not return a result")
	}
}

// cancellingEngine cancels the job's context from inside Execute,
// simulating a caller aborting mid-escalation.
type cancellingEngine struct {
	cancel context.CancelFunc
}

func (c *cancellingEngine) Name() string           { return "mathpix" }
func (c *cancellingEngine) Available() bool        { return true }
func (c *cancellingEngine) EstimatedCost() float64 { return 0 }

func (c *cancellingEngine) Execute(ctx context.Context, in ocr.Input) (*ocr.Result, error) {
	c.cancel()
	return nil, &ocr.ExecutionError{Engine: "mathpix", Err: ctx.Err()}
}

func TestExtractCancellationDuringEscalation(t *testing.T) {
	fast := &fakeEngine{name: "tesseract", available: true, spans: map[int][]ocr.Span{
		600: {markerSpan(1, 100), markerSpan(2, 500)},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	accurate := &cancellingEngine{cancel: cancel}
	dir := t.TempDir()

	result, _, err := FromImages(imaging.New(600, 1200)).
		WithRegistry(testRegistry(t, fast, accurate)).
		Expected(1, 3).
		OutputDir(dir).
		Extract(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if result != nil {
		t.Error("cancelled job must not return a result")
	}
	// partial state must be discarded, not written out
	if _, statErr := os.Stat(filepath.Join(dir, "metadata.json")); statErr == nil {
		t.Error("cancelled job must not write output files")
	}
}

func TestMaxProblemWidth(t *testing.T) {
	fast := &fakeEngine{name: "tesseract", available: true, spans: map[int][]ocr.Span{
		600: {markerSpan(1, 100), markerSpan(2, 600)},
	}}

	result, _, err := FromImages(imaging.New(600, 1200)).
		WithRegistry(testRegistry(t, fast)).
		MaxProblemWidth(150).
		Extract(context.Background())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	for _, p := range result.Problems {
		if p.Image.Width() > 150 {
			t.Errorf("problem %d image width = %d, want <= 150", p.Number, p.Image.Width())
		}
		// bounding boxes stay in page coordinates
		if p.BBox.Dx() != 600 {
			t.Errorf("problem %d bbox width = %d, want 600", p.Number, p.BBox.Dx())
		}
	}
}

func TestRegistryFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MathpixAppID = "app-id"
	cfg.MathpixAppKey = "app-key"

	reg, err := RegistryFromConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}

	names := reg.Names()
	if len(names) != 2 || names[0] != "mathpix" || names[1] != "tesseract" {
		t.Fatalf("registered engines = %v, want mathpix and tesseract", names)
	}
	eng, err := reg.Get("mathpix")
	if err != nil {
		t.Fatal(err)
	}
	if !eng.Available() {
		t.Error("mathpix engine with credentials must report available")
	}

	bare, err := RegistryFromConfig(config.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	eng, err = bare.Get("mathpix")
	if err != nil {
		t.Fatal(err)
	}
	if eng.Available() {
		t.Error("mathpix engine without credentials must report unavailable")
	}
}

func TestExtractWritesOutput(t *testing.T) {
	fast := &fakeEngine{name: "tesseract", available: true, spans: map[int][]ocr.Span{
		600: {markerSpan(1, 100), markerSpan(2, 600)},
	}}
	dir := t.TempDir()

	result, _, err := FromImages(imaging.New(600, 1200)).
		WithRegistry(testRegistry(t, fast)).
		OutputDir(dir).
		Extract(context.Background())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if result.MetadataPath == "" || result.ArchivePath == "" {
		t.Fatalf("output paths missing: %+v", result)
	}
	for _, name := range []string{"problem_01.png", "problem_02.png", "metadata.json", "extracted.zip"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected output file %s: %v", name, err)
		}
	}
}

func TestFluentConfigurationDoesNotMutate(t *testing.T) {
	base := FromImages(imaging.New(600, 1200))
	tuned := base.MaxConcurrency(8).Expected(1, 5)

	if base.options.maxConcurrency == tuned.options.maxConcurrency {
		t.Error("configuration leaked into the base extractor")
	}
	if base.options.expected != nil {
		t.Error("expected set leaked into the base extractor")
	}
}
