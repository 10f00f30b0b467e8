// Package raster wraps the image codec: decoding, geometry operations,
// compositing and encoding of bitmap posters.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // decoder registration
	_ "golang.org/x/image/webp" // decoder registration
)

// Sentinel errors for codec operations.
var (
	ErrUnsupportedFormat = errors.New("unsupported raster format")
	ErrDecode            = errors.New("failed to decode image")
	ErrEncode            = errors.New("failed to encode image")
	ErrBounds            = errors.New("region outside image bounds")
)

// Format is an encodable raster format.
type Format string

// Encodable formats.
const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	TIFF Format = "tiff"
	GIF  Format = "gif"
)

// DefaultQuality is the JPEG quality used when none is given.
const DefaultQuality = 90

// ParseFormat normalizes a raster format name. "jpg" maps to jpeg. webp
// and heif are decodable inputs at most and are rejected for output.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "jpg":
		return JPEG, nil
	case PNG, JPEG, TIFF, GIF:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	return "image/" + string(f)
}

// Metadata describes an encoded image without decoding its pixels.
type Metadata struct {
	Width  int
	Height int
	Format string
}

// Codec performs the raster operations of the poster pipeline.
// The zero value resamples with Lanczos.
type Codec struct {
	Filter *imaging.ResampleFilter
}

func (c Codec) filter() imaging.ResampleFilter {
	if c.Filter != nil {
		return *c.Filter
	}
	return imaging.Lanczos
}

// Metadata reads the dimensions and format from the image header.
func (c Codec) Metadata(data []byte) (Metadata, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return Metadata{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Decode decodes an image, applying EXIF orientation.
func (c Codec) Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// Resize scales img to exactly width x height. A zero side keeps the
// aspect ratio.
func (c Codec) Resize(img image.Image, width, height int) *image.NRGBA {
	return imaging.Resize(img, width, height, c.filter())
}

// Fill scales and center-crops img to cover exactly width x height.
func (c Codec) Fill(img image.Image, width, height int) *image.NRGBA {
	return imaging.Fill(img, width, height, imaging.Center, c.filter())
}

// Extract crops the rectangle r out of img.
func (c Codec) Extract(img image.Image, r image.Rectangle) (*image.NRGBA, error) {
	if r.Empty() || !r.In(img.Bounds()) {
		return nil, fmt.Errorf("%w: %v not in %v", ErrBounds, r, img.Bounds())
	}
	return imaging.Crop(img, r), nil
}

// Extend grows img by the given margins filled with bg.
func (c Codec) Extend(img image.Image, top, right, bottom, left int, bg color.Color) *image.NRGBA {
	b := img.Bounds()
	canvas := imaging.New(b.Dx()+left+right, b.Dy()+top+bottom, bg)
	return imaging.Paste(canvas, img, image.Pt(left, top))
}

// Composite draws overlay onto base at pt, blending overlay's alpha.
func (c Codec) Composite(base, overlay image.Image, pt image.Point) *image.NRGBA {
	return imaging.Overlay(base, overlay, pt, 1.0)
}

// Encode encodes img. Quality applies to JPEG only; values outside 1..100
// use DefaultQuality.
func (c Codec) Encode(img image.Image, format Format, quality int) ([]byte, error) {
	var f imaging.Format
	switch format {
	case PNG:
		f = imaging.PNG
	case JPEG:
		f = imaging.JPEG
	case TIFF:
		f = imaging.TIFF
	case GIF:
		f = imaging.GIF
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, f, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return buf.Bytes(), nil
}

// Pad crops img inward by padding on every side and extends it back with a
// border of color bg, keeping the original size.
func (c Codec) Pad(img image.Image, padding int, bg color.Color) (*image.NRGBA, error) {
	if padding <= 0 {
		return imaging.Clone(img), nil
	}
	b := img.Bounds()
	inner, err := c.Extract(img, image.Rect(b.Min.X+padding, b.Min.Y+padding, b.Max.X-padding, b.Max.Y-padding))
	if err != nil {
		return nil, err
	}
	return c.Extend(inner, padding, padding, padding, padding, bg), nil
}
