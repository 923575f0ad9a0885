package quant

// Anchor is the spatial summary of one palette entry: the centroid of the
// pixels assigned to it, in fractional image coordinates, plus the fraction
// of the image it covers.
type Anchor struct {
	Color Color
	// X, Y are the centroid of the entry's pixels as fractions of the image
	// width and height, measured at pixel centers, so both lie in (0, 1).
	X, Y float64
	// Share is the fraction of all pixels assigned to this entry, in (0, 1].
	Share float64
}

// Anchors computes the per-entry centroid and coverage of a quantized image.
// Entries with no assigned pixels are dropped; the rest keep palette order.
func Anchors(pal Palette, idx *IndexMap) []Anchor {
	counts := make([]int, len(pal))
	sumX := make([]float64, len(pal))
	sumY := make([]float64, len(pal))

	for y := 0; y < idx.Height; y++ {
		for x := 0; x < idx.Width; x++ {
			pi := idx.Indices[y*idx.Width+x]
			counts[pi]++
			sumX[pi] += (float64(x) + 0.5) / float64(idx.Width)
			sumY[pi] += (float64(y) + 0.5) / float64(idx.Height)
		}
	}

	total := float64(idx.Width * idx.Height)
	anchors := make([]Anchor, 0, len(pal))
	for i, n := range counts {
		if n == 0 {
			continue
		}
		anchors = append(anchors, Anchor{
			Color: pal[i],
			X:     sumX[i] / float64(n),
			Y:     sumY[i] / float64(n),
			Share: float64(n) / total,
		})
	}
	return anchors
}

// QuadrantDominants returns the palette color covering the most pixels in
// each image quadrant, in reading order: top-left, top-right, bottom-left,
// bottom-right. Count ties break toward the lower palette index.
func QuadrantDominants(pal Palette, idx *IndexMap) [4]Color {
	midX, midY := idx.Width/2, idx.Height/2
	var counts [4][]int
	for q := range counts {
		counts[q] = make([]int, len(pal))
	}

	for y := 0; y < idx.Height; y++ {
		for x := 0; x < idx.Width; x++ {
			q := 0
			if x >= midX {
				q = 1
			}
			if y >= midY {
				q += 2
			}
			counts[q][idx.Indices[y*idx.Width+x]]++
		}
	}

	var out [4]Color
	for q := range counts {
		best, bestN := 0, -1
		for i, n := range counts[q] {
			if n > bestN {
				best, bestN = i, n
			}
		}
		out[q] = pal[best]
	}
	return out
}
