package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/pixeltext/img2txt/internal/envelope"
	"github.com/pixeltext/img2txt/internal/pixel"
	"github.com/pixeltext/img2txt/internal/quant"
	"github.com/pixeltext/img2txt/internal/resample"
	"github.com/pixeltext/img2txt/internal/textsafe"
)

func TestLossyAlgo_ScenarioDownscale(t *testing.T) {
	cfg := DefaultConfig()
	src := makeGradient(t, 128, 128)

	manifest, name, err := EncodeLossyAlgo(cfg, src, "scenario_b", AlgoOptions{
		LockDims:    false,
		MaxSide:     64,
		PaletteSize: 16,
		Filter:      resample.Bicubic,
	})
	if err != nil {
		t.Fatalf("EncodeLossyAlgo: %v", err)
	}
	if name != "rebuilt_lossy_algo.png" {
		t.Errorf("suggested name: got %q", name)
	}

	buf, diag, err := DecodeLossyAlgo(cfg, manifest)
	if err != nil {
		t.Fatalf("DecodeLossyAlgo: %v", err)
	}
	if buf.Width != 64 || buf.Height != 64 {
		t.Errorf("encoded dims: got %dx%d, want 64x64", buf.Width, buf.Height)
	}
	if diag.OriginalWidth != 128 || diag.OriginalHeight != 128 {
		t.Errorf("original dims: got %dx%d, want 128x128", diag.OriginalWidth, diag.OriginalHeight)
	}
	if diag.PaletteSize > 16 {
		t.Errorf("palette size: got %d, want <= 16", diag.PaletteSize)
	}
	if diag.Dithered {
		t.Error("dithered flag set without dithering")
	}
	if diag.Filter != "bicubic" {
		t.Errorf("filter: got %q, want bicubic", diag.Filter)
	}

	// Every reconstructed pixel is exactly a palette entry, so the image
	// holds at most palette-size distinct colors.
	distinct := make(map[[3]byte]struct{})
	for i := 0; i < len(buf.Data); i += 3 {
		distinct[[3]byte{buf.Data[i], buf.Data[i+1], buf.Data[i+2]}] = struct{}{}
	}
	if len(distinct) > diag.PaletteSize {
		t.Errorf("reconstruction has %d distinct colors, palette holds %d", len(distinct), diag.PaletteSize)
	}
}

func TestLossyAlgo_LockDimsPreserved(t *testing.T) {
	cfg := DefaultConfig()
	src := makeGradient(t, 96, 40)

	manifest, _, err := EncodeLossyAlgo(cfg, src, "lock", AlgoOptions{
		LockDims:    true,
		MaxSide:     16, // advisory when dims are locked
		PaletteSize: 8,
		Filter:      resample.Nearest,
	})
	if err != nil {
		t.Fatal(err)
	}
	buf, _, err := DecodeLossyAlgo(cfg, manifest)
	if err != nil {
		t.Fatal(err)
	}
	if buf.Width != 96 || buf.Height != 40 {
		t.Errorf("locked dims: got %dx%d, want 96x40", buf.Width, buf.Height)
	}
}

func TestLossyAlgo_AspectPreserved(t *testing.T) {
	cfg := DefaultConfig()
	src := makeGradient(t, 128, 64)

	manifest, _, err := EncodeLossyAlgo(cfg, src, "aspect", AlgoOptions{
		MaxSide:     32,
		PaletteSize: 8,
		Filter:      resample.Bilinear,
	})
	if err != nil {
		t.Fatal(err)
	}
	buf, _, err := DecodeLossyAlgo(cfg, manifest)
	if err != nil {
		t.Fatal(err)
	}
	if buf.Width != 32 || buf.Height != 16 {
		t.Errorf("aspect: got %dx%d, want 32x16", buf.Width, buf.Height)
	}
}

func TestLossyAlgo_Deterministic(t *testing.T) {
	cfg := DefaultConfig()
	src := makeGradient(t, 64, 64)

	for _, f := range []resample.Filter{resample.Nearest, resample.Bilinear, resample.Bicubic, resample.Lanczos} {
		for _, dither := range []bool{false, true} {
			opts := AlgoOptions{MaxSide: 32, PaletteSize: 12, Filter: f, Dither: dither}
			a, _, err := EncodeLossyAlgo(cfg, src, "det", opts)
			if err != nil {
				t.Fatalf("%s dither=%v: %v", f, dither, err)
			}
			b, _, err := EncodeLossyAlgo(cfg, src, "det", opts)
			if err != nil {
				t.Fatalf("%s dither=%v: %v", f, dither, err)
			}
			if a != b {
				t.Errorf("%s dither=%v: identical input produced different manifests", f, dither)
			}
		}
	}
}

func TestLossyAlgo_DitherDiverges(t *testing.T) {
	cfg := DefaultConfig()
	src := makeGradient(t, 64, 32)

	base := AlgoOptions{LockDims: true, PaletteSize: 8, Filter: resample.Bicubic}
	plain, _, err := EncodeLossyAlgo(cfg, src, "c", base)
	if err != nil {
		t.Fatal(err)
	}
	base.Dither = true
	dithered, _, err := EncodeLossyAlgo(cfg, src, "c", base)
	if err != nil {
		t.Fatal(err)
	}

	bufPlain, _, err := DecodeLossyAlgo(cfg, plain)
	if err != nil {
		t.Fatal(err)
	}
	bufDither, diag, err := DecodeLossyAlgo(cfg, dithered)
	if err != nil {
		t.Fatal(err)
	}
	if !diag.Dithered {
		t.Error("dithered flag not round-tripped")
	}
	if bytes.Equal(bufPlain.Data, bufDither.Data) {
		t.Error("dithering a gradient should change at least one pixel assignment")
	}
}

func TestLossyAlgo_InvalidOptions(t *testing.T) {
	cfg := DefaultConfig()
	src := makeSolid(t, 8, 8, 5, 5, 5)

	for _, size := range []int{0, -3, 300} {
		opts := DefaultAlgoOptions()
		opts.PaletteSize = size
		if _, _, err := EncodeLossyAlgo(cfg, src, "x", opts); !errors.Is(err, quant.ErrInvalidPaletteSize) {
			t.Errorf("palette %d: got %v, want ErrInvalidPaletteSize", size, err)
		}
	}

	opts := DefaultAlgoOptions()
	opts.LockDims = false
	opts.MaxSide = 0
	if _, _, err := EncodeLossyAlgo(cfg, src, "x", opts); !errors.Is(err, pixel.ErrInvalidDimensions) {
		t.Errorf("max side 0: got %v, want ErrInvalidDimensions", err)
	}
	opts.MaxSide = cfg.MaxTargetSide + 1
	if _, _, err := EncodeLossyAlgo(cfg, src, "x", opts); !errors.Is(err, pixel.ErrInvalidDimensions) {
		t.Errorf("max side over ceiling: got %v, want ErrInvalidDimensions", err)
	}
}

// rawAlgoManifest compresses and wraps a hand-built blob the way
// EncodeLossyAlgo would.
func rawAlgoManifest(t *testing.T, blob []byte) string {
	t.Helper()
	comp, err := compressPayload(blob)
	if err != nil {
		t.Fatal(err)
	}
	return envelope.Wrap(envelope.LossyAlgo, "crafted", textsafe.Z85.Encode(comp))
}

func algoBlob(encW, encH uint32, paletteSize int, indices []byte) []byte {
	var b bytes.Buffer
	b.WriteString(algoMagic)
	binary.Write(&b, binary.BigEndian, encW)
	binary.Write(&b, binary.BigEndian, encH)
	binary.Write(&b, binary.BigEndian, encW)
	binary.Write(&b, binary.BigEndian, encH)
	b.WriteByte(uint8(paletteSize - 1))
	b.WriteByte(0)
	b.WriteByte(uint8(resample.Nearest))
	for i := 0; i < paletteSize; i++ {
		b.Write([]byte{byte(i), byte(i), byte(i)})
	}
	b.Write(indices)
	return b.Bytes()
}

func TestLossyAlgo_DecodeCorruption(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("index out of range", func(t *testing.T) {
		manifest := rawAlgoManifest(t, algoBlob(2, 2, 1, []byte{0, 0, 0, 5}))
		if _, _, err := DecodeLossyAlgo(cfg, manifest); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("got %v, want ErrIndexOutOfRange", err)
		}
	})

	t.Run("short index map", func(t *testing.T) {
		manifest := rawAlgoManifest(t, algoBlob(2, 2, 1, []byte{0, 0}))
		if _, _, err := DecodeLossyAlgo(cfg, manifest); !errors.Is(err, ErrTruncatedPayload) {
			t.Errorf("got %v, want ErrTruncatedPayload", err)
		}
	})

	t.Run("zero dims", func(t *testing.T) {
		manifest := rawAlgoManifest(t, algoBlob(0, 2, 1, nil))
		if _, _, err := DecodeLossyAlgo(cfg, manifest); !errors.Is(err, pixel.ErrInvalidDimensions) {
			t.Errorf("got %v, want ErrInvalidDimensions", err)
		}
	})

	t.Run("bad magic", func(t *testing.T) {
		blob := algoBlob(2, 2, 1, []byte{0, 0, 0, 0})
		copy(blob, "ZZ9\n")
		manifest := rawAlgoManifest(t, blob)
		if _, _, err := DecodeLossyAlgo(cfg, manifest); !errors.Is(err, envelope.ErrMalformedManifest) {
			t.Errorf("got %v, want ErrMalformedManifest", err)
		}
	})

	t.Run("garbage zstd frame", func(t *testing.T) {
		manifest := envelope.Wrap(envelope.LossyAlgo, "crafted", textsafe.Z85.Encode([]byte("not zstd at all")))
		if _, _, err := DecodeLossyAlgo(cfg, manifest); !errors.Is(err, ErrTruncatedPayload) {
			t.Errorf("got %v, want ErrTruncatedPayload", err)
		}
	})
}

func TestLossyAlgo_ExactColorsRoundTrip(t *testing.T) {
	// A four-color image quantized with room to spare reproduces its
	// colors exactly.
	cfg := DefaultConfig()
	src := makeQuadrants(t, 16, 16)

	manifest, _, err := EncodeLossyAlgo(cfg, src, "exact", AlgoOptions{
		LockDims:    true,
		PaletteSize: 8,
		Filter:      resample.Nearest,
	})
	if err != nil {
		t.Fatal(err)
	}
	buf, diag, err := DecodeLossyAlgo(cfg, manifest)
	if err != nil {
		t.Fatal(err)
	}
	if diag.PaletteSize != 4 {
		t.Errorf("palette size: got %d, want 4", diag.PaletteSize)
	}
	if !bytes.Equal(buf.Data, src.Data) {
		t.Error("four-color image should survive 8-color quantization untouched")
	}
}
