package mapposter

import (
	"fmt"

	"github.com/alnah/go-mapposter/internal/poster"
)

// paddingRatio is the white border around label-less posters, relative to
// the shorter side.
const paddingRatio = 0.035

// Dimensions are the pixel sizes of one request.
type Dimensions struct {
	Width  int
	Height int

	// OriginalWidth and OriginalHeight are the template's declared size
	// before any resize.
	OriginalWidth  int
	OriginalHeight int

	// Padding is the border width used when labels are disabled.
	Padding int
}

// ResolveDimensions applies a resize constraint to the template's declared
// size. resizeToWidth wins over resizeToHeight; the other side keeps the
// aspect ratio, rounded down.
func ResolveDimensions(declared poster.Size, resizeToWidth, resizeToHeight int) (Dimensions, error) {
	if declared.Width <= 0 || declared.Height <= 0 {
		return Dimensions{}, fmt.Errorf("%w: declared size %dx%d", ErrTemplateParse, declared.Width, declared.Height)
	}

	d := Dimensions{
		Width:          declared.Width,
		Height:         declared.Height,
		OriginalWidth:  declared.Width,
		OriginalHeight: declared.Height,
	}
	switch {
	case resizeToWidth > 0:
		d.Height = declared.Height * resizeToWidth / declared.Width
		d.Width = resizeToWidth
	case resizeToHeight > 0:
		d.Width = declared.Width * resizeToHeight / declared.Height
		d.Height = resizeToHeight
	}
	if d.Width < 1 || d.Height < 1 {
		return Dimensions{}, fmt.Errorf("%w: resize to %dx%d collapses a side", ErrInvalidRequest, d.Width, d.Height)
	}

	d.Padding = int(paddingRatio * float64(min(d.Width, d.Height)))
	return d, nil
}

// String formats the dimensions as WxH.
func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// checkSize fails with ErrDimensionMismatch unless the image is w x h.
func checkSize(what string, gotW, gotH, w, h int) error {
	if gotW != w || gotH != h {
		return fmt.Errorf("%w: %s %dx%d, expected: %dx%d", ErrDimensionMismatch, what, gotW, gotH, w, h)
	}
	return nil
}
