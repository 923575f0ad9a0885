package resample

import (
	"errors"
	"fmt"
	"math"

	"github.com/disintegration/imaging"

	"github.com/pixeltext/img2txt/internal/pixel"
)

// ErrUnknownFilter reports a filter name outside the supported set.
var ErrUnknownFilter = errors.New("resample: unknown filter")

// Filter selects the resampling kernel.
type Filter uint8

const (
	Nearest Filter = iota
	Bilinear
	Bicubic
	Lanczos
)

// String returns the lowercase filter name used in options and manifests.
func (f Filter) String() string {
	switch f {
	case Nearest:
		return "nearest"
	case Bilinear:
		return "bilinear"
	case Bicubic:
		return "bicubic"
	case Lanczos:
		return "lanczos"
	default:
		return fmt.Sprintf("filter(%d)", uint8(f))
	}
}

// ParseFilter converts an option string (nearest|bilinear|bicubic|lanczos)
// into a Filter.
func ParseFilter(name string) (Filter, error) {
	switch name {
	case "nearest":
		return Nearest, nil
	case "bilinear":
		return Bilinear, nil
	case "bicubic":
		return Bicubic, nil
	case "lanczos":
		return Lanczos, nil
	default:
		return Nearest, fmt.Errorf("%w: %q", ErrUnknownFilter, name)
	}
}

// ParseFilterID converts a serialized filter id back into a Filter.
func ParseFilterID(id uint8) (Filter, error) {
	switch Filter(id) {
	case Nearest, Bilinear, Bicubic, Lanczos:
		return Filter(id), nil
	default:
		return Nearest, fmt.Errorf("%w: id %d", ErrUnknownFilter, id)
	}
}

func kernel(f Filter) imaging.ResampleFilter {
	switch f {
	case Bilinear:
		return imaging.Linear
	case Bicubic:
		return imaging.CatmullRom
	case Lanczos:
		return imaging.Lanczos
	default:
		return imaging.NearestNeighbor
	}
}

// Resize scales buf to width x height with the given filter, preserving the
// buffer's channel layout. A same-size target returns a copy without running
// the kernel.
func Resize(buf *pixel.Buffer, width, height int, f Filter) (*pixel.Buffer, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: target %dx%d", pixel.ErrInvalidDimensions, width, height)
	}
	if width == buf.Width && height == buf.Height {
		return buf.Clone(), nil
	}
	out := imaging.Resize(buf.ToImage(), width, height, kernel(f))
	return pixel.FromImage(out, buf.Layout)
}

// FitLongSide returns dimensions scaled so the longer side equals maxSide,
// preserving aspect ratio. Rounding is to nearest with a 1px floor.
func FitLongSide(width, height, maxSide int) (int, int) {
	if width >= height {
		return maxSide, scaled(height, maxSide, width)
	}
	return scaled(width, maxSide, height), maxSide
}

// FitShortSide returns dimensions scaled so the shorter side equals target,
// preserving aspect ratio. Rounding is to nearest with a 1px floor.
func FitShortSide(width, height, target int) (int, int) {
	if width <= height {
		return target, scaled(height, target, width)
	}
	return scaled(width, target, height), target
}

func scaled(side, target, ref int) int {
	v := int(math.Round(float64(side) * float64(target) / float64(ref)))
	if v < 1 {
		return 1
	}
	return v
}
