package quant

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/pixeltext/img2txt/internal/pixel"
)

func solidBuffer(t *testing.T, w, h int, c Color) *pixel.Buffer {
	t.Helper()
	buf, err := pixel.New(w, h, pixel.RGB)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			buf.Set(x, y, c.R, c.G, c.B, 255)
		}
	}
	return buf
}

// gradientBuffer produces a smooth horizontal gray ramp, the classic case
// where dithering visibly changes index assignment.
func gradientBuffer(t *testing.T, w, h int) *pixel.Buffer {
	t.Helper()
	buf, err := pixel.New(w, h, pixel.RGB)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(x * 255 / (w - 1))
			buf.Set(x, y, v, v, v, 255)
		}
	}
	return buf
}

func quadrantBuffer(t *testing.T, w, h int) *pixel.Buffer {
	t.Helper()
	buf, err := pixel.New(w, h, pixel.RGB)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			switch {
			case x < w/2 && y < h/2:
				buf.Set(x, y, 255, 0, 0, 255)
			case x >= w/2 && y < h/2:
				buf.Set(x, y, 0, 255, 0, 255)
			case x < w/2:
				buf.Set(x, y, 0, 0, 255, 255)
			default:
				buf.Set(x, y, 255, 255, 255, 255)
			}
		}
	}
	return buf
}

func TestQuantize_InvalidSize(t *testing.T) {
	buf := solidBuffer(t, 4, 4, Color{1, 2, 3})
	for _, size := range []int{0, -1, 257, 300} {
		if _, _, err := Quantize(buf, size, false); !errors.Is(err, ErrInvalidPaletteSize) {
			t.Errorf("size %d: got %v, want ErrInvalidPaletteSize", size, err)
		}
	}
}

func TestQuantize_SolidColor(t *testing.T) {
	want := Color{200, 60, 10}
	buf := solidBuffer(t, 8, 8, want)

	pal, idx, err := Quantize(buf, 16, false)
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	if len(pal) != 1 {
		t.Fatalf("palette size: got %d, want 1", len(pal))
	}
	if pal[0] != want {
		t.Errorf("palette[0]: got %v, want %v", pal[0], want)
	}
	for i, pi := range idx.Indices {
		if pi != 0 {
			t.Fatalf("index %d: got %d, want 0", i, pi)
		}
	}
}

func TestQuantize_TwoColorsExact(t *testing.T) {
	buf, err := pixel.New(4, 2, pixel.RGB)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			if x < 2 {
				buf.Set(x, y, 0, 0, 0, 255)
			} else {
				buf.Set(x, y, 255, 255, 255, 255)
			}
		}
	}

	pal, idx, err := Quantize(buf, 2, false)
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	if len(pal) != 2 {
		t.Fatalf("palette size: got %d, want 2", len(pal))
	}
	// The split sorts along the widest channel, so the darker color lands
	// in the lower half and takes palette position 0.
	if (pal[0] != Color{0, 0, 0}) || (pal[1] != Color{255, 255, 255}) {
		t.Fatalf("palette: got %v", pal)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			want := byte(0)
			if x >= 2 {
				want = 1
			}
			if got := idx.Indices[y*4+x]; got != want {
				t.Errorf("index (%d,%d): got %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestQuantize_IndexBound(t *testing.T) {
	buf := gradientBuffer(t, 64, 16)
	for _, size := range []int{1, 2, 7, 16, 256} {
		pal, idx, err := Quantize(buf, size, true)
		if err != nil {
			t.Fatalf("size %d: %v", size, err)
		}
		if len(pal) > size {
			t.Errorf("size %d: palette has %d entries", size, len(pal))
		}
		for i, pi := range idx.Indices {
			if int(pi) >= len(pal) {
				t.Fatalf("size %d: index %d at pixel %d out of bounds", size, pi, i)
			}
		}
	}
}

func TestQuantize_Deterministic(t *testing.T) {
	buf := gradientBuffer(t, 48, 24)
	for _, dither := range []bool{false, true} {
		pal1, idx1, err := Quantize(buf, 8, dither)
		if err != nil {
			t.Fatal(err)
		}
		pal2, idx2, err := Quantize(buf, 8, dither)
		if err != nil {
			t.Fatal(err)
		}
		if len(pal1) != len(pal2) {
			t.Fatalf("dither=%v: palette sizes differ", dither)
		}
		for i := range pal1 {
			if pal1[i] != pal2[i] {
				t.Fatalf("dither=%v: palette entry %d differs", dither, i)
			}
		}
		if !bytes.Equal(idx1.Indices, idx2.Indices) {
			t.Fatalf("dither=%v: index maps differ between identical calls", dither)
		}
	}
}

func TestQuantize_DitherChangesAssignment(t *testing.T) {
	buf := gradientBuffer(t, 64, 8)

	_, plain, err := Quantize(buf, 4, false)
	if err != nil {
		t.Fatal(err)
	}
	_, dithered, err := Quantize(buf, 4, true)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(plain.Indices, dithered.Indices) {
		t.Error("dithering a smooth gradient should change at least one index")
	}
}

func TestQuantize_PaletteSharedAcrossDitherModes(t *testing.T) {
	buf := gradientBuffer(t, 32, 8)
	palPlain, _, err := Quantize(buf, 4, false)
	if err != nil {
		t.Fatal(err)
	}
	palDither, _, err := Quantize(buf, 4, true)
	if err != nil {
		t.Fatal(err)
	}
	for i := range palPlain {
		if palPlain[i] != palDither[i] {
			t.Fatalf("palette entry %d differs between dither modes", i)
		}
	}
}

func TestNearest_TieBreaksLow(t *testing.T) {
	pal := Palette{{100, 0, 0}, {102, 0, 0}}
	// 101 is equidistant from both entries; the lower index must win.
	if got := pal.Nearest(101, 0, 0); got != 0 {
		t.Errorf("tie: got index %d, want 0", got)
	}
}

func TestAnchors_Solid(t *testing.T) {
	buf := solidBuffer(t, 10, 10, Color{255, 0, 0})
	pal, idx, err := Quantize(buf, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	anchors := Anchors(pal, idx)
	if len(anchors) != 1 {
		t.Fatalf("anchors: got %d, want 1", len(anchors))
	}
	a := anchors[0]
	if math.Abs(a.X-0.5) > 0.01 || math.Abs(a.Y-0.5) > 0.01 {
		t.Errorf("centroid: got (%.3f, %.3f), want (0.5, 0.5)", a.X, a.Y)
	}
	if a.Share != 1.0 {
		t.Errorf("share: got %f, want 1.0", a.Share)
	}
}

func TestAnchors_Quadrants(t *testing.T) {
	buf := quadrantBuffer(t, 20, 20)
	pal, idx, err := Quantize(buf, 4, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(pal) != 4 {
		t.Fatalf("palette: got %d entries, want 4", len(pal))
	}
	anchors := Anchors(pal, idx)
	if len(anchors) != 4 {
		t.Fatalf("anchors: got %d, want 4", len(anchors))
	}
	for _, a := range anchors {
		if a.X <= 0 || a.X >= 1 || a.Y <= 0 || a.Y >= 1 {
			t.Errorf("anchor for %v outside (0,1): (%.3f, %.3f)", a.Color, a.X, a.Y)
		}
		if math.Abs(a.Share-0.25) > 0.001 {
			t.Errorf("anchor for %v share: got %f, want 0.25", a.Color, a.Share)
		}
		// Each quadrant centroid sits at a quarter point.
		if math.Abs(a.X-0.25) > 0.01 && math.Abs(a.X-0.75) > 0.01 {
			t.Errorf("anchor X %f not at a quarter point", a.X)
		}
	}
}

func TestQuadrantDominants(t *testing.T) {
	buf := quadrantBuffer(t, 20, 20)
	pal, idx, err := Quantize(buf, 4, false)
	if err != nil {
		t.Fatal(err)
	}
	dom := QuadrantDominants(pal, idx)
	want := [4]Color{{255, 0, 0}, {0, 255, 0}, {0, 0, 255}, {255, 255, 255}}
	if dom != want {
		t.Errorf("dominants: got %v, want %v", dom, want)
	}
}

func TestQuantize_GrayBuffer(t *testing.T) {
	buf, err := pixel.New(4, 4, pixel.Gray)
	if err != nil {
		t.Fatal(err)
	}
	for i := range buf.Data {
		buf.Data[i] = byte(i * 16)
	}
	pal, idx, err := Quantize(buf, 4, false)
	if err != nil {
		t.Fatalf("Quantize on gray: %v", err)
	}
	if len(pal) == 0 || len(pal) > 4 {
		t.Errorf("palette: got %d entries", len(pal))
	}
	// Gray input quantizes to gray palette entries.
	for _, c := range pal {
		if c.R != c.G || c.G != c.B {
			t.Errorf("palette entry %v is not gray", c)
		}
	}
	if len(idx.Indices) != 16 {
		t.Errorf("index map length: got %d, want 16", len(idx.Indices))
	}
}
