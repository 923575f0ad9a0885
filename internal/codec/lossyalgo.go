package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pixeltext/img2txt/internal/envelope"
	"github.com/pixeltext/img2txt/internal/pixel"
	"github.com/pixeltext/img2txt/internal/quant"
	"github.com/pixeltext/img2txt/internal/resample"
	"github.com/pixeltext/img2txt/internal/textsafe"
)

// algoMagic leads the binary section of every lossy-algo payload.
const algoMagic = "LA1\n"

// lossy-algo blob layout, before zstd and the radix-85 transform:
//
//	magic(4) | enc width u32 | enc height u32 | orig width u32 | orig height u32 |
//	palette size - 1 u8 | flags u8 (bit0 = dithered) | filter id u8 |
//	palette entries (3 bytes RGB each) | index bytes (enc width * enc height)
const algoHeaderLen = 23

const flagDithered = 1 << 0

// AlgoOptions controls the lossy-algo encode pipeline.
type AlgoOptions struct {
	// LockDims preserves the source dimensions; MaxSide is ignored.
	LockDims bool
	// MaxSide is the longest allowed side when LockDims is false. Larger
	// images are downscaled with Filter, preserving aspect ratio.
	MaxSide int
	// PaletteSize is the maximum number of palette colors, in [1, 256].
	PaletteSize int
	// Filter selects the resampling kernel for the downscale step.
	Filter resample.Filter
	// Dither enables Floyd-Steinberg error diffusion during quantization.
	Dither bool
}

// DefaultAlgoOptions mirrors the service defaults: dimensions locked,
// 128px ceiling, 32 colors, bicubic, no dithering.
func DefaultAlgoOptions() AlgoOptions {
	return AlgoOptions{LockDims: true, MaxSide: 128, PaletteSize: 32, Filter: resample.Bicubic}
}

// EncodeLossyAlgo downscale-quantizes a buffer into a compact manifest.
// The manifest records the palette, the per-pixel index map, and both the
// encoded and original dimensions. Identical input and options always yield
// a byte-identical manifest.
func EncodeLossyAlgo(cfg Config, buf *pixel.Buffer, source string, opts AlgoOptions) (string, string, error) {
	if err := cfg.checkEncodeBuffer(buf); err != nil {
		return "", "", err
	}
	if opts.PaletteSize < 1 || opts.PaletteSize > cfg.maxPalette() {
		return "", "", fmt.Errorf("%w: %d", quant.ErrInvalidPaletteSize, opts.PaletteSize)
	}

	work := buf
	if !opts.LockDims {
		if opts.MaxSide < 1 || opts.MaxSide > cfg.MaxTargetSide {
			return "", "", fmt.Errorf("%w: max side %d", pixel.ErrInvalidDimensions, opts.MaxSide)
		}
		if buf.Width > opts.MaxSide || buf.Height > opts.MaxSide {
			w, h := resample.FitLongSide(buf.Width, buf.Height, opts.MaxSide)
			resized, err := resample.Resize(buf, w, h, opts.Filter)
			if err != nil {
				return "", "", err
			}
			work = resized
		}
	}

	pal, idx, err := quant.Quantize(work, opts.PaletteSize, opts.Dither)
	if err != nil {
		return "", "", err
	}

	var bin bytes.Buffer
	bin.Grow(algoHeaderLen + len(pal)*3 + len(idx.Indices))
	bin.WriteString(algoMagic)
	binary.Write(&bin, binary.BigEndian, uint32(work.Width))
	binary.Write(&bin, binary.BigEndian, uint32(work.Height))
	binary.Write(&bin, binary.BigEndian, uint32(buf.Width))
	binary.Write(&bin, binary.BigEndian, uint32(buf.Height))
	bin.WriteByte(uint8(len(pal) - 1))
	var flags byte
	if opts.Dither {
		flags |= flagDithered
	}
	bin.WriteByte(flags)
	bin.WriteByte(uint8(opts.Filter))
	for _, c := range pal {
		bin.Write([]byte{c.R, c.G, c.B})
	}
	bin.Write(idx.Indices)

	comp, err := compressPayload(bin.Bytes())
	if err != nil {
		return "", "", err
	}
	manifest := envelope.Wrap(envelope.LossyAlgo, source, textsafe.Z85.Encode(comp))
	return manifest, algoOutName, nil
}

// DecodeLossyAlgo reconstructs the palette-mapped image a lossy-algo
// manifest encodes, at the encoded resolution. Downscaling is irreversible,
// so the original resolution is reported in the diagnostics but never
// restored implicitly; see UpscaleTo.
func DecodeLossyAlgo(cfg Config, manifest string) (*pixel.Buffer, Diagnostics, error) {
	source, payload, err := decodeKind(manifest, envelope.LossyAlgo)
	if err != nil {
		return nil, Diagnostics{}, err
	}
	return decodeLossyAlgoPayload(cfg, source, payload)
}

func decodeLossyAlgoPayload(cfg Config, source, payload string) (*pixel.Buffer, Diagnostics, error) {
	comp, err := textsafe.Z85.Decode(payload)
	if err != nil {
		return nil, Diagnostics{}, fmt.Errorf("%w: text transform: %v", ErrTruncatedPayload, err)
	}

	maxBlob := 1 << 30
	if cfg.MaxSourcePixels > 0 {
		// Header, full palette, and one index byte per pixel.
		maxBlob = algoHeaderLen + 256*3 + cfg.MaxSourcePixels
	}
	raw, err := decompressPayload(comp, maxBlob)
	if err != nil {
		return nil, Diagnostics{}, err
	}

	if len(raw) < algoHeaderLen {
		return nil, Diagnostics{}, fmt.Errorf("%w: %d bytes, header needs %d",
			ErrTruncatedPayload, len(raw), algoHeaderLen)
	}
	if string(raw[:4]) != algoMagic {
		return nil, Diagnostics{}, fmt.Errorf("%w: bad lossy-algo payload magic",
			envelope.ErrMalformedManifest)
	}

	encW := binary.BigEndian.Uint32(raw[4:8])
	encH := binary.BigEndian.Uint32(raw[8:12])
	origW := binary.BigEndian.Uint32(raw[12:16])
	origH := binary.BigEndian.Uint32(raw[16:20])
	if encW == 0 || encH == 0 {
		return nil, Diagnostics{}, fmt.Errorf("%w: %dx%d", pixel.ErrInvalidDimensions, encW, encH)
	}
	if err := cfg.checkPixelCount(int64(encW), int64(encH)); err != nil {
		return nil, Diagnostics{}, err
	}
	paletteSize := int(raw[20]) + 1
	dithered := raw[21]&flagDithered != 0
	filter, err := resample.ParseFilterID(raw[22])
	if err != nil {
		return nil, Diagnostics{}, fmt.Errorf("%w: %v", envelope.ErrMalformedManifest, err)
	}

	want := int64(algoHeaderLen) + int64(paletteSize)*3 + int64(encW)*int64(encH)
	if int64(len(raw)) != want {
		return nil, Diagnostics{}, fmt.Errorf("%w: %d bytes, want %d", ErrTruncatedPayload, len(raw), want)
	}

	pal := make(quant.Palette, paletteSize)
	off := algoHeaderLen
	for i := range pal {
		pal[i] = quant.Color{R: raw[off], G: raw[off+1], B: raw[off+2]}
		off += 3
	}

	indices := raw[off:]
	buf, err := pixel.New(int(encW), int(encH), pixel.RGB)
	if err != nil {
		return nil, Diagnostics{}, err
	}
	for i, pi := range indices {
		if int(pi) >= paletteSize {
			return nil, Diagnostics{}, fmt.Errorf("%w: index %d at pixel %d, palette holds %d",
				ErrIndexOutOfRange, pi, i, paletteSize)
		}
		c := pal[pi]
		buf.Data[i*3] = c.R
		buf.Data[i*3+1] = c.G
		buf.Data[i*3+2] = c.B
	}

	diag := Diagnostics{
		Codec:          string(envelope.LossyAlgo),
		Source:         source,
		Width:          buf.Width,
		Height:         buf.Height,
		OriginalWidth:  int(origW),
		OriginalHeight: int(origH),
		PaletteSize:    paletteSize,
		Dithered:       dithered,
		Filter:         filter.String(),
	}
	return buf, diag, nil
}
