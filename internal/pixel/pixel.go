package pixel

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// ErrInvalidDimensions reports a buffer whose width or height is not positive,
// or whose data length disagrees with its declared dimensions.
var ErrInvalidDimensions = errors.New("pixel: invalid dimensions")

// Layout identifies the channel layout of a Buffer.
type Layout uint8

const (
	// RGB stores 3 bytes per pixel: red, green, blue.
	RGB Layout = iota
	// RGBA stores 4 bytes per pixel: red, green, blue, alpha.
	RGBA
	// Gray stores 1 byte per pixel: luminance.
	Gray
)

// Channels returns the number of bytes each pixel occupies under the layout.
func (l Layout) Channels() int {
	switch l {
	case RGBA:
		return 4
	case Gray:
		return 1
	default:
		return 3
	}
}

// String returns the lowercase layout name.
func (l Layout) String() string {
	switch l {
	case RGB:
		return "rgb"
	case RGBA:
		return "rgba"
	case Gray:
		return "gray"
	default:
		return fmt.Sprintf("layout(%d)", uint8(l))
	}
}

// ParseLayout converts a serialized layout id back into a Layout.
func ParseLayout(id uint8) (Layout, error) {
	switch Layout(id) {
	case RGB, RGBA, Gray:
		return Layout(id), nil
	default:
		return RGB, fmt.Errorf("pixel: unknown layout id %d", id)
	}
}

// Buffer is the canonical decoded image: Width*Height pixels in the given
// Layout, packed row-major into Data with no padding.
type Buffer struct {
	Width  int
	Height int
	Layout Layout
	Data   []byte
}

// New allocates a zeroed Buffer with the given dimensions and layout.
func New(width, height int, layout Layout) (*Buffer, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	return &Buffer{
		Width:  width,
		Height: height,
		Layout: layout,
		Data:   make([]byte, width*height*layout.Channels()),
	}, nil
}

// Validate checks the Buffer invariant: positive dimensions and a data slice
// of exactly Width*Height*Channels bytes.
func (b *Buffer) Validate() error {
	if b.Width < 1 || b.Height < 1 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, b.Width, b.Height)
	}
	want := b.Width * b.Height * b.Layout.Channels()
	if len(b.Data) != want {
		return fmt.Errorf("%w: %dx%d %s buffer holds %d bytes, want %d",
			ErrInvalidDimensions, b.Width, b.Height, b.Layout, len(b.Data), want)
	}
	return nil
}

// Clone returns a deep copy of the Buffer.
func (b *Buffer) Clone() *Buffer {
	data := make([]byte, len(b.Data))
	copy(data, b.Data)
	return &Buffer{Width: b.Width, Height: b.Height, Layout: b.Layout, Data: data}
}

// At returns the pixel at (x, y) as 8-bit RGBA components. Gray pixels report
// their luminance on all three color channels; layouts without alpha report
// alpha 255. Coordinates must be inside the buffer.
func (b *Buffer) At(x, y int) (r, g, bl, a uint8) {
	switch b.Layout {
	case RGBA:
		i := (y*b.Width + x) * 4
		return b.Data[i], b.Data[i+1], b.Data[i+2], b.Data[i+3]
	case Gray:
		v := b.Data[y*b.Width+x]
		return v, v, v, 255
	default:
		i := (y*b.Width + x) * 3
		return b.Data[i], b.Data[i+1], b.Data[i+2], 255
	}
}

// Set writes the pixel at (x, y). For Gray buffers the stored value is the
// Rec. 601 luma of the given color; for RGB buffers alpha is discarded.
func (b *Buffer) Set(x, y int, r, g, bl, a uint8) {
	switch b.Layout {
	case RGBA:
		i := (y*b.Width + x) * 4
		b.Data[i], b.Data[i+1], b.Data[i+2], b.Data[i+3] = r, g, bl, a
	case Gray:
		b.Data[y*b.Width+x] = luma(r, g, bl)
	default:
		i := (y*b.Width + x) * 3
		b.Data[i], b.Data[i+1], b.Data[i+2] = r, g, bl
	}
}

// FromImage normalizes an arbitrary image.Image into a Buffer with the given
// layout. The source is first drawn into an NRGBA canvas so that every color
// model (paletted, YCbCr, 16-bit) goes through one conversion path.
func FromImage(img image.Image, layout Layout) (*Buffer, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("%w: %dx%d source image", ErrInvalidDimensions, w, h)
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Src)

	buf, err := New(w, h, layout)
	if err != nil {
		return nil, err
	}
	for y := 0; y < h; y++ {
		row := canvas.Pix[y*canvas.Stride:]
		for x := 0; x < w; x++ {
			buf.Set(x, y, row[x*4], row[x*4+1], row[x*4+2], row[x*4+3])
		}
	}
	return buf, nil
}

// ToImage converts the Buffer into an *image.NRGBA. RGB and Gray buffers
// come back fully opaque.
func (b *Buffer) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			r, g, bl, a := b.At(x, y)
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: bl, A: a})
		}
	}
	return img
}

// HasAlpha reports whether the source image carries a non-opaque pixel.
// Used by callers to pick between RGB and RGBA layouts when normalizing.
func HasAlpha(img image.Image) bool {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}

// luma converts RGB to Rec. 601 luminance with integer rounding.
func luma(r, g, b uint8) uint8 {
	return uint8((19595*uint32(r) + 38470*uint32(g) + 7471*uint32(b) + 1<<15) >> 16)
}
