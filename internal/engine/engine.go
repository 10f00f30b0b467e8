// Package engine adapts the external cartographic renderer.
//
// A Map is a stateful handle bound to one stylesheet. It is NOT safe for
// concurrent use: Resize, SetExtent and Render must be serialized by the
// caller (the style pool does this with one lock per style).
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alnah/go-mapposter/internal/geo"
)

// Sentinel errors for engine operations.
var (
	ErrStylesheet        = errors.New("failed to load stylesheet")
	ErrRender            = errors.New("map render failed")
	ErrUnsupportedFormat = errors.New("unsupported map format")
)

// Format is an output format the engine renders natively.
type Format string

// Native formats.
const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatSVG  Format = "svg"
	FormatPDF  Format = "pdf"
)

// ParseFormat normalizes a format name; "jpg" maps to jpeg.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "jpg":
		return FormatJPEG, nil
	case FormatPNG, FormatJPEG, FormatSVG, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// IsVector reports whether the format is rendered to a file, not a bitmap.
func (f Format) IsVector() bool {
	return f == FormatSVG || f == FormatPDF
}

// RenderOptions controls one render call.
type RenderOptions struct {
	Scale  float64
	Format Format
}

// Map is a stateful engine instance bound to one stylesheet.
type Map interface {
	Resize(width, height int)
	SetExtent(ext geo.Extent)
	Size() (width, height int)
	Render(ctx context.Context, opts RenderOptions) ([]byte, error)
	Close() error
}

// Engine constructs Map instances. Load is the expensive step: it parses
// the stylesheet and binds its data sources.
type Engine interface {
	Load(ctx context.Context, stylesheetPath string, width, height int) (Map, error)
}
