package quant

import (
	"errors"
	"fmt"
	"sort"

	"github.com/pixeltext/img2txt/internal/pixel"
)

// MaxPaletteSize is the hard ceiling on palette entries; index maps store
// one byte per pixel.
const MaxPaletteSize = 256

// ErrInvalidPaletteSize reports a requested palette size outside [1, 256].
var ErrInvalidPaletteSize = errors.New("quant: palette size out of range")

// Color is one palette entry.
type Color struct {
	R, G, B uint8
}

// Hex returns the color as a lowercase "#rrggbb" string.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Palette is an ordered set of representative colors. Order is selection
// order: colors produced by earlier splits come first.
type Palette []Color

// IndexMap assigns every pixel of a width x height image to a palette
// position. Invariant: every index is < len(palette).
type IndexMap struct {
	Width   int
	Height  int
	Indices []byte
}

// Quantize reduces buf to at most paletteSize colors and assigns every pixel
// to its nearest palette entry. With dither enabled, Floyd-Steinberg error
// diffusion is applied during assignment; palette selection itself is always
// dither-free so both modes share one palette for the same input.
func Quantize(buf *pixel.Buffer, paletteSize int, dither bool) (Palette, *IndexMap, error) {
	if paletteSize < 1 || paletteSize > MaxPaletteSize {
		return nil, nil, fmt.Errorf("%w: %d", ErrInvalidPaletteSize, paletteSize)
	}
	if err := buf.Validate(); err != nil {
		return nil, nil, err
	}

	pal := buildPalette(buf, paletteSize)
	idx := &IndexMap{
		Width:   buf.Width,
		Height:  buf.Height,
		Indices: make([]byte, buf.Width*buf.Height),
	}
	if dither {
		assignDithered(buf, pal, idx)
	} else {
		assignNearest(buf, pal, idx)
	}
	return pal, idx, nil
}

// entry is one histogram bucket: a distinct color and its pixel count.
type entry struct {
	c Color
	n int
}

// box is a contiguous range of histogram entries plus its pixel total.
type box struct {
	entries []entry
	pixels  int
}

func buildPalette(buf *pixel.Buffer, size int) Palette {
	hist := histogram(buf)

	boxes := []box{{entries: hist, pixels: buf.Width * buf.Height}}
	for len(boxes) < size {
		i := splitCandidate(boxes)
		if i < 0 {
			break
		}
		lo, hi := splitBox(boxes[i])
		// The lower half replaces the split box so earlier splits keep
		// earlier palette positions.
		boxes[i] = lo
		boxes = append(boxes, hi)
	}

	pal := make(Palette, len(boxes))
	for i, b := range boxes {
		pal[i] = meanColor(b)
	}
	return pal
}

// histogram returns the distinct colors of buf with counts, sorted by RGB so
// the rest of the pipeline never depends on map iteration order.
func histogram(buf *pixel.Buffer) []entry {
	counts := make(map[Color]int)
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			r, g, b, _ := buf.At(x, y)
			counts[Color{r, g, b}]++
		}
	}
	hist := make([]entry, 0, len(counts))
	for c, n := range counts {
		hist = append(hist, entry{c: c, n: n})
	}
	sort.Slice(hist, func(i, j int) bool {
		a, b := hist[i].c, hist[j].c
		if a.R != b.R {
			return a.R < b.R
		}
		if a.G != b.G {
			return a.G < b.G
		}
		return a.B < b.B
	})
	return hist
}

// splitCandidate picks the box to split next: the one holding the most
// pixels among boxes with at least two distinct colors. Ties go to the lower
// box index. Returns -1 when nothing is splittable.
func splitCandidate(boxes []box) int {
	best, bestPixels := -1, 0
	for i, b := range boxes {
		if len(b.entries) < 2 {
			continue
		}
		if b.pixels > bestPixels {
			best, bestPixels = i, b.pixels
		}
	}
	return best
}

// splitBox divides a box at the pixel-count median along its widest channel.
func splitBox(b box) (box, box) {
	ch := widestChannel(b.entries)
	sorted := make([]entry, len(b.entries))
	copy(sorted, b.entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return channelValue(sorted[i].c, ch) < channelValue(sorted[j].c, ch)
	})

	half := b.pixels / 2
	acc := 0
	cut := 0
	for i, e := range sorted {
		acc += e.n
		if acc >= half && i < len(sorted)-1 {
			cut = i + 1
			break
		}
	}
	if cut == 0 {
		cut = 1
	}

	lo := box{entries: sorted[:cut]}
	hi := box{entries: sorted[cut:]}
	for _, e := range lo.entries {
		lo.pixels += e.n
	}
	hi.pixels = b.pixels - lo.pixels
	return lo, hi
}

// widestChannel returns the channel (0=R, 1=G, 2=B) with the largest value
// range across the entries. Ties prefer R, then G.
func widestChannel(entries []entry) int {
	var min, max [3]uint8
	for i := 0; i < 3; i++ {
		min[i], max[i] = 255, 0
	}
	for _, e := range entries {
		for ch, v := range [3]uint8{e.c.R, e.c.G, e.c.B} {
			if v < min[ch] {
				min[ch] = v
			}
			if v > max[ch] {
				max[ch] = v
			}
		}
	}
	best, bestRange := 0, -1
	for ch := 0; ch < 3; ch++ {
		if r := int(max[ch]) - int(min[ch]); r > bestRange {
			best, bestRange = ch, r
		}
	}
	return best
}

func channelValue(c Color, ch int) uint8 {
	switch ch {
	case 0:
		return c.R
	case 1:
		return c.G
	default:
		return c.B
	}
}

// meanColor is the pixel-weighted mean of a box, rounded to nearest.
func meanColor(b box) Color {
	var sr, sg, sb, n uint64
	for _, e := range b.entries {
		sr += uint64(e.c.R) * uint64(e.n)
		sg += uint64(e.c.G) * uint64(e.n)
		sb += uint64(e.c.B) * uint64(e.n)
		n += uint64(e.n)
	}
	if n == 0 {
		return Color{}
	}
	return Color{
		R: uint8((sr + n/2) / n),
		G: uint8((sg + n/2) / n),
		B: uint8((sb + n/2) / n),
	}
}

// Nearest returns the palette index closest to (r, g, b) in squared
// Euclidean RGB distance. Ties break toward the lower index.
func (p Palette) Nearest(r, g, b uint8) int {
	best, bestDist := 0, int64(1)<<62
	for i, c := range p {
		dr := int64(r) - int64(c.R)
		dg := int64(g) - int64(c.G)
		db := int64(b) - int64(c.B)
		d := dr*dr + dg*dg + db*db
		if d < bestDist {
			best, bestDist = i, d
			if d == 0 {
				break
			}
		}
	}
	return best
}

func assignNearest(buf *pixel.Buffer, pal Palette, idx *IndexMap) {
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			r, g, b, _ := buf.At(x, y)
			idx.Indices[y*buf.Width+x] = byte(pal.Nearest(r, g, b))
		}
	}
}

// assignDithered performs Floyd-Steinberg error diffusion: the quantization
// error of each pixel is pushed to the right (7/16), below-left (3/16),
// below (5/16), and below-right (1/16) neighbors before they are assigned.
func assignDithered(buf *pixel.Buffer, pal Palette, idx *IndexMap) {
	w, h := buf.Width, buf.Height
	cur := make([][3]float64, w)
	next := make([][3]float64, w)

	for y := 0; y < h; y++ {
		for i := range next {
			next[i] = [3]float64{}
		}
		for x := 0; x < w; x++ {
			r, g, b, _ := buf.At(x, y)
			cr := clamp255(float64(r) + cur[x][0])
			cg := clamp255(float64(g) + cur[x][1])
			cb := clamp255(float64(b) + cur[x][2])

			pi := pal.Nearest(uint8(cr+0.5), uint8(cg+0.5), uint8(cb+0.5))
			idx.Indices[y*w+x] = byte(pi)

			pc := pal[pi]
			er := cr - float64(pc.R)
			eg := cg - float64(pc.G)
			eb := cb - float64(pc.B)

			if x+1 < w {
				diffuse(&cur[x+1], er, eg, eb, 7.0/16.0)
			}
			if y+1 < h {
				if x > 0 {
					diffuse(&next[x-1], er, eg, eb, 3.0/16.0)
				}
				diffuse(&next[x], er, eg, eb, 5.0/16.0)
				if x+1 < w {
					diffuse(&next[x+1], er, eg, eb, 1.0/16.0)
				}
			}
		}
		cur, next = next, cur
	}
}

func diffuse(acc *[3]float64, er, eg, eb, frac float64) {
	acc[0] += er * frac
	acc[1] += eg * frac
	acc[2] += eb * frac
}

func clamp255(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
