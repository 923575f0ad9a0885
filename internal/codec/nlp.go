package codec

import (
	"fmt"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/pixeltext/img2txt/internal/envelope"
	"github.com/pixeltext/img2txt/internal/pixel"
	"github.com/pixeltext/img2txt/internal/quant"
	"github.com/pixeltext/img2txt/internal/resample"
)

// NLPOptions controls the descriptive encode pipeline.
type NLPOptions struct {
	// PreserveDims keeps the source dimensions; TargetShortSide is ignored.
	PreserveDims bool
	// TargetShortSide is the length the shorter side is resampled to when
	// PreserveDims is false, preserving aspect ratio.
	TargetShortSide int
	// PaletteProbe is how many dominant colors the quantization probe
	// extracts, in [1, 256].
	PaletteProbe int
}

// DefaultNLPOptions mirrors the service defaults: dimensions preserved,
// 512px short side, 8 probe colors.
func DefaultNLPOptions() NLPOptions {
	return NLPOptions{PreserveDims: true, TargetShortSide: 512, PaletteProbe: 8}
}

// EncodeLossyNLP derives a structural color description of the image and
// wraps it as a manifest. The description reads as prose but follows a fixed
// template with fixed delimiters, so decoding parses it deterministically.
func EncodeLossyNLP(cfg Config, buf *pixel.Buffer, source string, opts NLPOptions) (string, string, error) {
	if err := cfg.checkEncodeBuffer(buf); err != nil {
		return "", "", err
	}
	if opts.PaletteProbe < 1 || opts.PaletteProbe > cfg.maxPalette() {
		return "", "", fmt.Errorf("%w: probe %d", quant.ErrInvalidPaletteSize, opts.PaletteProbe)
	}

	work := buf
	if !opts.PreserveDims {
		if opts.TargetShortSide < 1 || opts.TargetShortSide > cfg.MaxTargetSide {
			return "", "", fmt.Errorf("%w: short side %d", pixel.ErrInvalidDimensions, opts.TargetShortSide)
		}
		if min(buf.Width, buf.Height) != opts.TargetShortSide {
			w, h := resample.FitShortSide(buf.Width, buf.Height, opts.TargetShortSide)
			resized, err := resample.Resize(buf, w, h, resample.Bicubic)
			if err != nil {
				return "", "", err
			}
			work = resized
		}
	}

	// Probe quantization extracts the dominant colors and their spatial
	// anchors; dithering would only smear the cluster boundaries.
	pal, idx, err := quant.Quantize(work, opts.PaletteProbe, false)
	if err != nil {
		return "", "", err
	}
	anchors := quant.Anchors(pal, idx)
	quads := quant.QuadrantDominants(pal, idx)

	body := renderDescription(work.Width, work.Height, anchors, quads)
	return envelope.Wrap(envelope.LossyNLP, source, body), nlpOutName, nil
}

// renderDescription emits the constrained prose template the decoder's
// grammar expects. Field order and delimiters are fixed; only the values
// vary.
func renderDescription(width, height int, anchors []quant.Anchor, quads [4]quant.Color) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "This image is %d by %d pixels. ", width, height)
	if len(anchors) == 1 {
		sb.WriteString("It is painted in 1 dominant tone. ")
	} else {
		fmt.Fprintf(&sb, "It is painted in %d dominant tones. ", len(anchors))
	}
	for i, a := range anchors {
		fmt.Fprintf(&sb, "Tone %d is %s (%s), anchored near (%.3f, %.3f), covering %.1f%% of the frame. ",
			i+1, toneName(a.Color), a.Color.Hex(), a.X, a.Y, a.Share*100)
	}
	fmt.Fprintf(&sb,
		"The top-left quadrant leans %s (%s), the top-right leans %s (%s), "+
			"the bottom-left leans %s (%s), and the bottom-right leans %s (%s).",
		toneName(quads[0]), quads[0].Hex(), toneName(quads[1]), quads[1].Hex(),
		toneName(quads[2]), quads[2].Hex(), toneName(quads[3]), quads[3].Hex())
	return sb.String()
}

// toneVocabulary is the fixed set of color words the description may use.
// The word is decorative; the hex value next to it is what the parser
// trusts.
var toneVocabulary = []struct {
	name string
	hex  string
}{
	{"black", "#141414"},
	{"charcoal", "#36383b"},
	{"gray", "#808080"},
	{"silver", "#c0c4c8"},
	{"white", "#f4f4f2"},
	{"crimson", "#d02030"},
	{"scarlet", "#ff2400"},
	{"coral", "#ff7f50"},
	{"amber", "#ffbf00"},
	{"gold", "#e0b020"},
	{"olive", "#708020"},
	{"lime", "#70d020"},
	{"forest", "#207030"},
	{"teal", "#208080"},
	{"cyan", "#20c0d0"},
	{"azure", "#2070d0"},
	{"navy", "#203070"},
	{"indigo", "#4b0082"},
	{"violet", "#8040c0"},
	{"magenta", "#d020a0"},
	{"rose", "#f080a0"},
	{"brown", "#805020"},
	{"tan", "#d2b48c"},
	{"ivory", "#f0ead6"},
}

// toneName picks the closest vocabulary word by CIE-Lab distance.
func toneName(c quant.Color) string {
	target := colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
	best, bestDist := toneVocabulary[0].name, -1.0
	for _, v := range toneVocabulary {
		ref, err := colorful.Hex(v.hex)
		if err != nil {
			continue
		}
		if d := target.DistanceLab(ref); bestDist < 0 || d < bestDist {
			best, bestDist = v.name, d
		}
	}
	return best
}
