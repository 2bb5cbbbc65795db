package imaging

import (
	"bytes"
	"image/color"
	"testing"
)

// blank returns an all-white page.
func blank(w, h int) *Page {
	return New(w, h)
}

// inkColumn paints a vertical black bar covering [x0, x1) across
// [y0, y1).
func inkColumn(p *Page, x0, x1, y0, y1 int) {
	img := p.Image()
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			img.SetGray(x, y, color.Gray{})
		}
	}
}

func TestNewIsWhite(t *testing.T) {
	p := New(10, 10)
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if p.At(x, y) != White {
				t.Fatalf("pixel (%d,%d) = %d, want white", x, y, p.At(x, y))
			}
		}
	}
}

func TestSubColumn(t *testing.T) {
	p := blank(100, 50)
	inkColumn(p, 30, 40, 0, 50)

	tests := []struct {
		name        string
		left, right int
		wantNil     bool
		wantWidth   int
	}{
		{"interior", 20, 60, false, 40},
		{"clamped left", -10, 50, false, 50},
		{"clamped right", 50, 300, false, 50},
		{"collapsed", 60, 60, true, 0},
		{"inverted", 80, 20, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col := p.SubColumn(tt.left, tt.right)
			if tt.wantNil {
				if col != nil {
					t.Fatalf("expected nil column, got %dx%d", col.Width(), col.Height())
				}
				return
			}
			if col == nil {
				t.Fatal("expected non-nil column")
			}
			if col.Width() != tt.wantWidth {
				t.Errorf("width = %d, want %d", col.Width(), tt.wantWidth)
			}
			if col.Height() != p.Height() {
				t.Errorf("height = %d, want %d", col.Height(), p.Height())
			}
		})
	}
}

func TestStackColumnsPadsAndPreserves(t *testing.T) {
	a := blank(40, 30)
	inkColumn(a, 0, 40, 0, 30)
	b := blank(60, 20)
	inkColumn(b, 10, 20, 5, 15)

	strip := StackColumns([]*Page{a, b})

	if strip.Width() != 60 {
		t.Errorf("strip width = %d, want widest column 60", strip.Width())
	}
	if strip.Height() != 50 {
		t.Errorf("strip height = %d, want 50", strip.Height())
	}
	// a's content occupies the top rows
	if strip.At(0, 0) != 0 {
		t.Error("first column content missing from strip top")
	}
	// a's rows are padded with white to the right
	if strip.At(50, 10) != White {
		t.Error("padding of narrow column is not white")
	}
	// b's ink lands below a
	if strip.At(15, 30+10) != 0 {
		t.Error("second column content missing from strip")
	}
}

func TestPadRight(t *testing.T) {
	p := blank(40, 20)
	inkColumn(p, 0, 40, 0, 20)

	padded := p.PadRight(60)
	if padded.Width() != 60 || padded.Height() != 20 {
		t.Fatalf("padded = %dx%d, want 60x20", padded.Width(), padded.Height())
	}
	if padded.At(20, 10) != 0 {
		t.Error("source content missing after padding")
	}
	if padded.At(50, 10) != White {
		t.Error("padding is not white")
	}

	// already wide enough returns an unshared copy
	same := p.PadRight(30)
	if same.Width() != 40 {
		t.Errorf("width = %d, want unchanged 40", same.Width())
	}
	same.Image().SetGray(0, 0, color.Gray{Y: White})
	if p.At(0, 0) != 0 {
		t.Error("copy shares pixels with the source")
	}
}

func TestDownscale(t *testing.T) {
	p := blank(400, 200)
	inkColumn(p, 0, 400, 0, 200)

	small := p.Downscale(100)
	if small.Width() != 100 {
		t.Errorf("width = %d, want 100", small.Width())
	}
	if small.Height() != 50 {
		t.Errorf("height = %d, want aspect-preserving 50", small.Height())
	}
	if small.At(50, 25) != 0 {
		t.Error("solid ink should survive downscaling")
	}

	// already narrow enough is returned at full size
	if got := p.Downscale(500); got.Width() != 400 || got.Height() != 200 {
		t.Errorf("narrow page resized to %dx%d", got.Width(), got.Height())
	}
	if got := p.Downscale(0); got.Width() != 400 {
		t.Error("non-positive cap must not resize")
	}
}

func TestStackColumnsEmpty(t *testing.T) {
	strip := StackColumns(nil)
	if strip == nil {
		t.Fatal("expected non-nil strip for empty input")
	}
}

func TestVerticalInkProjection(t *testing.T) {
	p := blank(20, 10)
	inkColumn(p, 5, 7, 0, 10)

	proj := p.VerticalInkProjection(0, 10)
	if len(proj) != 20 {
		t.Fatalf("projection length = %d, want 20", len(proj))
	}
	for x, count := range proj {
		want := 0
		if x == 5 || x == 6 {
			want = 10
		}
		if count != want {
			t.Errorf("proj[%d] = %d, want %d", x, count, want)
		}
	}
}

func TestSmoothProjectionKernel(t *testing.T) {
	proj := []int{0, 0, 9, 0, 0}
	smooth := SmoothProjection(proj, 3)
	if len(smooth) != len(proj) {
		t.Fatalf("smoothed length = %d, want %d", len(smooth), len(proj))
	}
	if smooth[2] >= 9 {
		t.Errorf("smoothing did not spread the peak: %v", smooth)
	}
	if smooth[1] <= 0 || smooth[3] <= 0 {
		t.Errorf("neighbors did not receive mass: %v", smooth)
	}
}

func TestTrimWhitespace(t *testing.T) {
	p := blank(100, 100)
	inkColumn(p, 40, 60, 30, 70)

	trimmed := p.TrimWhitespace()
	if trimmed.Width() >= 100 || trimmed.Height() >= 100 {
		t.Fatalf("trim did nothing: %dx%d", trimmed.Width(), trimmed.Height())
	}
	if !trimmed.HasInk() {
		t.Error("trimmed image lost its content")
	}
}

func TestTrimWhitespaceAllWhite(t *testing.T) {
	p := blank(50, 50)
	trimmed := p.TrimWhitespace()
	if trimmed.Width() != 50 || trimmed.Height() != 50 {
		t.Errorf("all-white trim = %dx%d, want unchanged 50x50", trimmed.Width(), trimmed.Height())
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := blank(30, 30)
	inkColumn(p, 10, 20, 10, 20)

	var buf bytes.Buffer
	if err := p.EncodePNG(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := DecodePNG(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Width() != 30 || back.Height() != 30 {
		t.Fatalf("round trip size = %dx%d", back.Width(), back.Height())
	}
	if back.At(15, 15) != 0 {
		t.Error("round trip lost ink")
	}
}
