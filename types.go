package mapposter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/alnah/go-mapposter/internal/fonts"
	"github.com/alnah/go-mapposter/internal/geo"
	"github.com/alnah/go-mapposter/internal/poster"
	"github.com/alnah/go-mapposter/internal/raster"
)

// Geographic types.
type (
	LatLng = geo.LatLng
	Bounds = geo.Bounds
)

// BBox is a rendered text box in template user units.
type BBox = poster.BBox

// FontFace is a font family and the file it resolved to.
type FontFace = fonts.Face

// Format is an output format.
type Format string

// Output formats. Raster formats are composited and encoded by the image
// codec; SVG and PDF keep the map as vectors.
const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatTIFF Format = "tiff"
	FormatGIF  Format = "gif"
	FormatSVG  Format = "svg"
	FormatPDF  Format = "pdf"
)

// ParseFormat normalizes a format name. "jpg" maps to jpeg.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatSVG, FormatPDF:
		return f, nil
	default:
		rf, err := raster.ParseFormat(s)
		if err != nil {
			return "", err
		}
		return Format(rf), nil
	}
}

// IsVector reports whether the format keeps the map as vectors.
func (f Format) IsVector() bool {
	return f == FormatSVG || f == FormatPDF
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPDF:
		return "application/pdf"
	default:
		return raster.Format(f).ContentType()
	}
}

// Orientation constants.
const (
	OrientationPortrait  = poster.Portrait
	OrientationLandscape = poster.Landscape
)

// Label length limit, in runes.
const MaxLabelLength = 200

// DefaultQuality is the JPEG quality used when none is requested.
const DefaultQuality = raster.DefaultQuality

var (
	styleNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)
	sizePattern      = regexp.MustCompile(`^[A-Za-z0-9.]+$`)
	idPattern        = regexp.MustCompile(`^[A-Za-z0-9-]{10,64}$`)
)

// RenderRequest describes one poster.
type RenderRequest struct {
	// ID prefixes every temp artifact of the request. Empty gets a UUID.
	ID string

	MapStyle    string // cartographic style, {styles dir}/{MapStyle}.xml
	PosterStyle string // template family, e.g. "classic"
	Size        string // "50x70cm", "A4", ...
	Orientation string // portrait (default) or landscape
	Bounds      Bounds

	// ResizeToWidth scales the poster to this width, keeping the aspect
	// ratio. It wins over ResizeToHeight. Both are ignored for SVG and PDF.
	ResizeToWidth  int
	ResizeToHeight int

	// Scale multiplies line widths and label sizes in the map. Zero uses
	// the renderer's ScalePolicy.
	Scale float64

	Format  Format // default png
	Quality int    // JPEG quality 1-100, default 90

	LabelsEnabled    bool
	LabelHeader      string
	LabelSmallHeader string
	LabelText        string

	EmbedRaster    bool // PDF: embed the raster poster instead of vector layers
	ClientTemplate bool // use the client variant even when a server one exists
	UseTileRender  bool // force the tile mosaic for resized posters
}

// withDefaults returns a copy with empty fields set: a new UUID, portrait
// orientation, png format and DefaultQuality.
func (r RenderRequest) withDefaults() RenderRequest {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Orientation == "" {
		r.Orientation = OrientationPortrait
	}
	if r.Format == "" {
		r.Format = FormatPNG
	} else if f, err := ParseFormat(string(r.Format)); err == nil {
		r.Format = f
	}
	if r.Quality == 0 {
		r.Quality = DefaultQuality
	}
	return r
}

// hasResize reports whether a resize constraint applies.
func (r RenderRequest) hasResize() bool {
	return r.ResizeToWidth > 0 || r.ResizeToHeight > 0
}

// Validate checks the request. Call after defaults are applied; the
// renderer does both.
func (r RenderRequest) Validate() error {
	if !idPattern.MatchString(r.ID) {
		return fmt.Errorf("%w: id %q must be 10-64 letters, digits or dashes", ErrInvalidRequest, r.ID)
	}
	if !styleNamePattern.MatchString(r.MapStyle) {
		return fmt.Errorf("%w: map style %q", ErrInvalidRequest, r.MapStyle)
	}
	if !styleNamePattern.MatchString(r.PosterStyle) {
		return fmt.Errorf("%w: poster style %q", ErrInvalidRequest, r.PosterStyle)
	}
	if !sizePattern.MatchString(r.Size) {
		return fmt.Errorf("%w: size %q", ErrInvalidRequest, r.Size)
	}
	switch r.Orientation {
	case OrientationPortrait, OrientationLandscape:
	default:
		return fmt.Errorf("%w: orientation %q", ErrInvalidRequest, r.Orientation)
	}
	if err := r.Bounds.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if r.ResizeToWidth < 0 || r.ResizeToHeight < 0 {
		return fmt.Errorf("%w: negative resize", ErrInvalidRequest)
	}
	if r.Scale < 0 {
		return fmt.Errorf("%w: negative scale %v", ErrInvalidRequest, r.Scale)
	}
	if _, err := ParseFormat(string(r.Format)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if r.Quality < 1 || r.Quality > 100 {
		return fmt.Errorf("%w: quality %d (must be 1-100)", ErrInvalidRequest, r.Quality)
	}
	for name, label := range map[string]string{
		"header":       r.LabelHeader,
		"small header": r.LabelSmallHeader,
		"text":         r.LabelText,
	} {
		if n := len([]rune(label)); n > MaxLabelLength {
			return fmt.Errorf("%w: %s label is %d characters (max %d)", ErrInvalidRequest, name, n, MaxLabelLength)
		}
	}
	return nil
}

// Result is a rendered poster.
type Result struct {
	ID       string
	Data     []byte
	Format   Format
	Width    int // pixels; physical size for PDF comes from Size
	Height   int
	Strategy Strategy
	Template string     // template the poster was laid out from
	Fonts    []FontFace // fonts resolved for the labels
}

// ContentType returns the MIME type of Data.
func (r *Result) ContentType() string {
	return r.Format.ContentType()
}
