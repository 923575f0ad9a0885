// Package quant reduces a pixel.Buffer to a bounded palette of representative
// colors plus a per-pixel index map.
//
// Palette selection is a median-cut: the RGB color histogram is split
// iteratively along the channel with the largest value spread, always
// splitting the most populous box first, until the requested number of boxes
// exists or no box can be split further. Each box contributes its
// pixel-weighted mean color, in selection order. The whole procedure is
// deterministic: identical input always yields an identical palette and
// index map, which is what makes lossy manifests byte-reproducible.
//
// Index assignment maps each pixel to the palette entry at minimum squared
// Euclidean RGB distance, ties breaking toward the lower index. With
// dithering enabled, Floyd-Steinberg error diffusion carries the quantization
// error of each pixel into its right and lower neighbors (7/16, 3/16, 5/16,
// 1/16), processed row-major, left to right, top to bottom.
package quant
