// Package paper converts poster size names ("50x70cm", "12x18inch", "A4")
// into physical dimensions.
package paper

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Sentinel errors for size parsing.
var (
	ErrInvalidSize        = errors.New("invalid poster size")
	ErrInvalidOrientation = errors.New("invalid orientation")
)

// Orientation constants.
const (
	Portrait  = "portrait"
	Landscape = "landscape"
)

// Unit conversion constants.
const (
	PointsPerInch = 72.0
	PrintDPI      = 300
	cmPerInch     = 2.54
)

// isoSizes are the A-series sizes in inches, portrait.
var isoSizes = map[string]Size{
	"A6": {Width: 4.1, Height: 5.8},
	"A5": {Width: 5.8, Height: 8.3},
	"A4": {Width: 8.3, Height: 11.7},
	"A3": {Width: 11.7, Height: 16.5},
}

var sizePattern = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)x([0-9]+(?:\.[0-9]+)?)(cm|mm|inch|in)$`)

// Size is a physical size in inches.
type Size struct {
	Width  float64
	Height float64
}

// Parse resolves a size name and orientation to inches.
// Landscape swaps width and height.
func Parse(size, orientation string) (Size, error) {
	s, err := parseSize(size)
	if err != nil {
		return Size{}, err
	}

	switch orientation {
	case Portrait, "":
		return s, nil
	case Landscape:
		return Size{Width: s.Height, Height: s.Width}, nil
	default:
		return Size{}, fmt.Errorf("%w: %q", ErrInvalidOrientation, orientation)
	}
}

func parseSize(size string) (Size, error) {
	if s, ok := isoSizes[strings.ToUpper(size)]; ok {
		return s, nil
	}

	m := sizePattern.FindStringSubmatch(size)
	if m == nil {
		return Size{}, fmt.Errorf("%w: %q (want e.g. 50x70cm, 12x18inch or A4)", ErrInvalidSize, size)
	}

	w, _ := strconv.ParseFloat(m[1], 64)
	h, _ := strconv.ParseFloat(m[2], 64)
	if w <= 0 || h <= 0 {
		return Size{}, fmt.Errorf("%w: %q", ErrInvalidSize, size)
	}

	var perInch float64
	switch m[3] {
	case "cm":
		perInch = cmPerInch
	case "mm":
		perInch = cmPerInch * 10
	default:
		perInch = 1
	}
	return Size{Width: w / perInch, Height: h / perInch}, nil
}

// Points returns the size in PDF points.
func (s Size) Points() (w, h float64) {
	return s.Width * PointsPerInch, s.Height * PointsPerInch
}

// Pixels returns the pixel size at the given resolution.
func (s Size) Pixels(dpi int) (w, h int) {
	return int(math.Round(s.Width * float64(dpi))), int(math.Round(s.Height * float64(dpi)))
}

// AspectRatio returns width / height.
func (s Size) AspectRatio() float64 {
	return s.Width / s.Height
}
