package codec

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/anthonynsimon/bild/blur"

	"github.com/pixeltext/img2txt/internal/envelope"
	"github.com/pixeltext/img2txt/internal/pixel"
	"github.com/pixeltext/img2txt/internal/quant"
)

// Tone is one dominant color with its spatial anchor, parsed back out of a
// descriptive manifest.
type Tone struct {
	Name  string
	Color quant.Color
	// X, Y are the anchor in fractional image coordinates, in [0, 1].
	X, Y float64
	// Share is the fraction of the frame the tone covers, in [0, 1].
	Share float64
}

// Summary is the structured form of a descriptive payload. It is produced
// once per decode call and never mutated.
type Summary struct {
	Width, Height int
	Tones         []Tone
	// Quadrants holds the dominant color per quadrant in reading order
	// (top-left, top-right, bottom-left, bottom-right) when the description
	// includes the quadrant sentence.
	Quadrants    [4]quant.Color
	HasQuadrants bool
	Body         string
}

// The description grammar. The payload reads as prose, but each fact lives
// in a fixed clause with fixed delimiters; these expressions are the single
// source of truth for what the decoder accepts.
var (
	dimsRe  = regexp.MustCompile(`This image is (\d+) by (\d+) pixels\.`)
	countRe = regexp.MustCompile(`It is painted in (\d+) dominant tones?\.`)
	toneRe  = regexp.MustCompile(`Tone (\d+) is ([a-z]+) \(#([0-9a-f]{6})\), anchored near \((-?\d+\.\d+), (-?\d+\.\d+)\), covering (\d+(?:\.\d+)?)% of the frame\.`)
	quadRe  = regexp.MustCompile(`(?i)the (top-left|top-right|bottom-left|bottom-right)(?: quadrant)? leans [a-z]+ \(#([0-9a-f]{6})\)`)
)

// proxyFallbackSide sizes the canvas when a description omits dimensions.
const proxyFallbackSide = 512

// DecodeLossyNLP parses a descriptive manifest and synthesizes a proxy
// image: a visually plausible approximation, not a pixel-accurate
// reconstruction.
func DecodeLossyNLP(cfg Config, manifest string) (*pixel.Buffer, Diagnostics, error) {
	source, payload, err := decodeKind(manifest, envelope.LossyNLP)
	if err != nil {
		return nil, Diagnostics{}, err
	}
	return decodeLossyNLPPayload(cfg, source, payload)
}

func decodeLossyNLPPayload(cfg Config, source, payload string) (*pixel.Buffer, Diagnostics, error) {
	sum, err := parseSummary(payload)
	if err != nil {
		return nil, Diagnostics{}, err
	}
	if cfg.MaxTargetSide > 0 && (sum.Width > cfg.MaxTargetSide || sum.Height > cfg.MaxTargetSide) {
		return nil, Diagnostics{}, fmt.Errorf("%w: %dx%d canvas exceeds %d side ceiling",
			pixel.ErrInvalidDimensions, sum.Width, sum.Height, cfg.MaxTargetSide)
	}
	if err := cfg.checkPixelCount(int64(sum.Width), int64(sum.Height)); err != nil {
		return nil, Diagnostics{}, err
	}

	buf, err := synthesizeProxy(sum)
	if err != nil {
		return nil, Diagnostics{}, err
	}
	diag := Diagnostics{
		Codec:  string(envelope.LossyNLP),
		Source: source,
		Width:  sum.Width,
		Height: sum.Height,
		Tones:  len(sum.Tones),
	}
	return buf, diag, nil
}

// parseSummary applies the description grammar. Any structural deviation is
// ErrUnparsableDescription; structurally sound anchors outside [0, 1] are
// ErrInvalidAnchor.
func parseSummary(body string) (*Summary, error) {
	sum := &Summary{Width: proxyFallbackSide, Height: proxyFallbackSide, Body: body}

	if m := dimsRe.FindStringSubmatch(body); m != nil {
		w, _ := strconv.Atoi(m[1])
		h, _ := strconv.Atoi(m[2])
		if w < 1 || h < 1 {
			return nil, fmt.Errorf("%w: described canvas %dx%d", pixel.ErrInvalidDimensions, w, h)
		}
		sum.Width, sum.Height = w, h
	}

	cm := countRe.FindStringSubmatch(body)
	if cm == nil {
		return nil, fmt.Errorf("%w: missing tone count clause", ErrUnparsableDescription)
	}
	count, _ := strconv.Atoi(cm[1])
	if count < 1 || count > quant.MaxPaletteSize {
		return nil, fmt.Errorf("%w: %d tones", ErrUnparsableDescription, count)
	}

	matches := toneRe.FindAllStringSubmatch(body, -1)
	if len(matches) != count {
		return nil, fmt.Errorf("%w: %d tones announced, %d tone clauses found",
			ErrUnparsableDescription, count, len(matches))
	}

	sum.Tones = make([]Tone, 0, count)
	for i, m := range matches {
		seq, _ := strconv.Atoi(m[1])
		if seq != i+1 {
			return nil, fmt.Errorf("%w: tone %d out of order", ErrUnparsableDescription, seq)
		}
		var c quant.Color
		if _, err := fmt.Sscanf(m[3], "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
			return nil, fmt.Errorf("%w: tone %d color: %v", ErrUnparsableDescription, seq, err)
		}
		x, _ := strconv.ParseFloat(m[4], 64)
		y, _ := strconv.ParseFloat(m[5], 64)
		if x < 0 || x > 1 || y < 0 || y > 1 {
			return nil, fmt.Errorf("%w: tone %d anchored at (%g, %g)", ErrInvalidAnchor, seq, x, y)
		}
		share, _ := strconv.ParseFloat(m[6], 64)
		if share < 0 {
			share = 0
		}
		if share > 100 {
			share = 100
		}
		sum.Tones = append(sum.Tones, Tone{
			Name:  m[2],
			Color: c,
			X:     x,
			Y:     y,
			Share: share / 100,
		})
	}

	if qm := quadRe.FindAllStringSubmatch(body, -1); len(qm) == 4 {
		order := map[string]int{"top-left": 0, "top-right": 1, "bottom-left": 2, "bottom-right": 3}
		seen := 0
		for _, m := range qm {
			var c quant.Color
			if _, err := fmt.Sscanf(m[2], "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
				continue
			}
			sum.Quadrants[order[m[1]]] = c
			seen++
		}
		sum.HasQuadrants = seen == 4
	}
	return sum, nil
}

// synthesizeProxy paints the described scene: the first tone floods the
// canvas, then every tone (in listed order, a deterministic z-order) is
// blended in as a smooth radial falloff around its anchor, with radius
// growing with its coverage share. A final Gaussian pass softens the seams.
func synthesizeProxy(sum *Summary) (*pixel.Buffer, error) {
	w, h := sum.Width, sum.Height
	acc := make([][3]float64, w*h)
	base := sum.Tones[0].Color
	for i := range acc {
		acc[i] = [3]float64{float64(base.R), float64(base.G), float64(base.B)}
	}

	longSide := float64(max(w, h))
	for _, tone := range sum.Tones {
		cx := tone.X * float64(w)
		cy := tone.Y * float64(h)
		radius := (0.35 + 0.65*math.Sqrt(tone.Share)) * longSide
		tr := float64(tone.Color.R)
		tg := float64(tone.Color.G)
		tb := float64(tone.Color.B)

		for y := 0; y < h; y++ {
			dy := float64(y) + 0.5 - cy
			for x := 0; x < w; x++ {
				dx := float64(x) + 0.5 - cx
				d := math.Sqrt(dx*dx + dy*dy)
				if d >= radius {
					continue
				}
				t := 1 - d/radius
				alpha := t * t * (3 - 2*t)
				p := &acc[y*w+x]
				p[0] += (tr - p[0]) * alpha
				p[1] += (tg - p[1]) * alpha
				p[2] += (tb - p[2]) * alpha
			}
		}
	}

	buf, err := pixel.New(w, h, pixel.RGB)
	if err != nil {
		return nil, err
	}
	for i, p := range acc {
		buf.Data[i*3] = uint8(math.Round(p[0]))
		buf.Data[i*3+1] = uint8(math.Round(p[1]))
		buf.Data[i*3+2] = uint8(math.Round(p[2]))
	}

	softened := blur.Gaussian(buf.ToImage(), math.Max(1, longSide/128))
	return pixel.FromImage(softened, pixel.RGB)
}
