package codec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/pixeltext/img2txt/internal/envelope"
	"github.com/pixeltext/img2txt/internal/pixel"
	"github.com/pixeltext/img2txt/internal/resample"
)

var (
	// ErrTruncatedPayload reports a payload whose decoded byte count does not
	// match what its own header promises.
	ErrTruncatedPayload = errors.New("codec: truncated payload")
	// ErrIndexOutOfRange reports an index map entry at or beyond the palette
	// size. The manifest is corrupt.
	ErrIndexOutOfRange = errors.New("codec: palette index out of range")
	// ErrUnparsableDescription reports a descriptive payload that does not
	// match the expected grammar.
	ErrUnparsableDescription = errors.New("codec: unparsable description")
	// ErrInvalidAnchor reports an anchor coordinate outside [0, 1].
	ErrInvalidAnchor = errors.New("codec: anchor out of range")
)

// Config bounds what a single encode or decode call may allocate. There is
// no global configuration; callers pass a Config into every entrypoint.
type Config struct {
	// MaxSourcePixels caps width*height of any buffer accepted for encoding
	// or reconstructed during decoding.
	MaxSourcePixels int
	// MaxTargetSide caps the max_side / target_short_side options and the
	// canvas dimensions a descriptive manifest may request.
	MaxTargetSide int
	// MaxPaletteSize caps palette_size and palette_probe; never above 256.
	MaxPaletteSize int
}

// DefaultConfig returns ceilings generous enough for interactive use while
// keeping adversarial manifests from forcing unbounded allocation.
func DefaultConfig() Config {
	return Config{
		MaxSourcePixels: 64 << 20, // 64 megapixels
		MaxTargetSide:   8192,
		MaxPaletteSize:  256,
	}
}

func (c Config) maxPalette() int {
	if c.MaxPaletteSize < 1 || c.MaxPaletteSize > 256 {
		return 256
	}
	return c.MaxPaletteSize
}

func (c Config) checkPixelCount(width, height int64) error {
	if c.MaxSourcePixels > 0 && width*height > int64(c.MaxSourcePixels) {
		return fmt.Errorf("%w: %dx%d exceeds %d pixel ceiling",
			pixel.ErrInvalidDimensions, width, height, c.MaxSourcePixels)
	}
	return nil
}

func (c Config) checkEncodeBuffer(buf *pixel.Buffer) error {
	if err := buf.Validate(); err != nil {
		return err
	}
	return c.checkPixelCount(int64(buf.Width), int64(buf.Height))
}

// Diagnostics describes what a decode call reconstructed. Fields that do not
// apply to a codec are left at their zero value and omitted from JSON.
type Diagnostics struct {
	Codec          string `json:"codec"`
	Source         string `json:"source,omitempty"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	Layout         string `json:"layout,omitempty"`
	OriginalWidth  int    `json:"original_width,omitempty"`
	OriginalHeight int    `json:"original_height,omitempty"`
	PaletteSize    int    `json:"palette_size,omitempty"`
	Dithered       bool   `json:"dithered,omitempty"`
	Filter         string `json:"filter,omitempty"`
	Tones          int    `json:"tones,omitempty"`
}

// Suggested output filenames returned by the encode entrypoints and used by
// DecodeToFile when the caller supplies none.
const (
	losslessOutName = "rebuilt_lossless.png"
	algoOutName     = "rebuilt_lossy_algo.png"
	nlpOutName      = "rebuilt_lossy_nlp_proxy.png"
)

// Decode unwraps a manifest of any kind and reconstructs its pixel buffer.
func Decode(cfg Config, manifest string) (*pixel.Buffer, Diagnostics, error) {
	kind, source, payload, err := envelope.Unwrap(manifest)
	if err != nil {
		return nil, Diagnostics{}, err
	}
	switch kind {
	case envelope.Lossless:
		return decodeLosslessPayload(cfg, source, payload)
	case envelope.LossyAlgo:
		return decodeLossyAlgoPayload(cfg, source, payload)
	default:
		return decodeLossyNLPPayload(cfg, source, payload)
	}
}

// decodeKind unwraps a manifest and requires it to carry the given kind.
func decodeKind(manifest string, want envelope.Kind) (string, string, error) {
	kind, source, payload, err := envelope.Unwrap(manifest)
	if err != nil {
		return "", "", err
	}
	if kind != want {
		return "", "", fmt.Errorf("%w: manifest kind %q, want %q",
			envelope.ErrMalformedManifest, kind, want)
	}
	return source, payload, nil
}

// DecodeToFile reconstructs a manifest of any kind and writes the result as
// an image file under outputDir. An empty outName falls back to the codec's
// suggested filename; a name without a recognized image extension gets
// ".png" appended. Returns the written path and the decode diagnostics.
func DecodeToFile(cfg Config, manifest, outputDir, outName string) (string, Diagnostics, error) {
	buf, diag, err := Decode(cfg, manifest)
	if err != nil {
		return "", Diagnostics{}, err
	}

	if outName == "" {
		switch diag.Codec {
		case string(envelope.LossyAlgo):
			outName = algoOutName
		case string(envelope.LossyNLP):
			outName = nlpOutName
		default:
			outName = losslessOutName
		}
	}
	if _, err := imaging.FormatFromFilename(outName); err != nil {
		outName += ".png"
	}

	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", Diagnostics{}, fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(outputDir, outName)
	if err := imaging.Save(buf.ToImage(), path); err != nil {
		return "", Diagnostics{}, fmt.Errorf("write %s: %w", path, err)
	}
	return path, diag, nil
}

// UpscaleTo resizes a reconstructed buffer back to an arbitrary resolution.
// Lossy-algo decoding always reconstructs at the encoded resolution; this is
// the explicit post-decode step for callers that want the original size
// back. It is never applied implicitly.
func UpscaleTo(buf *pixel.Buffer, width, height int, f resample.Filter) (*pixel.Buffer, error) {
	return resample.Resize(buf, width, height, f)
}
