package mapposter

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/alnah/go-mapposter/internal/raster"
	"github.com/alnah/go-mapposter/internal/yamlutil"
)

// MockupCatalogFile is the photo catalog file inside a mockups directory.
const MockupCatalogFile = "mockups.yaml"

// Placement types.
const (
	// PlaceExact pastes the poster into the TopLeft-BottomRight box.
	PlaceExact = "exact"
	// PlaceCenter centers the poster over the whole photo.
	PlaceCenter = "center"
)

// Frame styles.
const (
	FrameNone  = ""
	FrameBlack = "black"
)

// Frame geometry and the finish applied to pasted posters.
const (
	frameWidth       = 16
	fadeContrast     = -3.0
	darkenBrightness = -5.0
)

var frameColor = color.NRGBA{R: 20, G: 20, B: 20, A: 255}

// Point is a pixel position in a photo.
type Point struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// Photo describes where a poster goes in a mockup photo.
//
// Exact photos fix the poster size and orientation and paste it into the
// TopLeft-BottomRight box. Center photos keep the requested size and
// orientation unless they name their own, and size the poster with
// ResizeToSide or ResizeToWidth/ResizeToHeight.
type Photo struct {
	FileName    string `yaml:"fileName"`
	Type        string `yaml:"type"`
	Size        string `yaml:"size"`
	Orientation string `yaml:"orientation"`
	TopLeft     Point  `yaml:"topLeft"` // exact: poster box
	BottomRight Point  `yaml:"bottomRight"`

	// Center only. Width wins over height, both win over the side.
	ResizeToSide   int `yaml:"resizeToSide"` // poster side along its orientation
	ResizeToWidth  int `yaml:"resizeToWidth"`
	ResizeToHeight int `yaml:"resizeToHeight"`
}

// validate checks the placement geometry.
func (p Photo) validate(name string) error {
	if p.FileName == "" || strings.ContainsAny(p.FileName, `/\`) || strings.Contains(p.FileName, "..") {
		return fmt.Errorf("photo %s: invalid fileName %q", name, p.FileName)
	}
	if p.ResizeToSide < 0 || p.ResizeToWidth < 0 || p.ResizeToHeight < 0 {
		return fmt.Errorf("photo %s: negative resize", name)
	}
	switch p.Type {
	case PlaceExact:
		if p.Size == "" {
			return fmt.Errorf("photo %s: exact placement needs size", name)
		}
		if p.BottomRight.X <= p.TopLeft.X || p.BottomRight.Y <= p.TopLeft.Y {
			return fmt.Errorf("photo %s: bottomRight must be below and right of topLeft", name)
		}
		if p.ResizeToSide > 0 || p.ResizeToWidth > 0 || p.ResizeToHeight > 0 {
			return fmt.Errorf("photo %s: exact placement is sized by its box, not by resize fields", name)
		}
	case PlaceCenter:
	default:
		return fmt.Errorf("photo %s: unknown type %q (want exact or center)", name, p.Type)
	}
	return nil
}

// PhotoCatalog lists the mockup photos of a directory.
type PhotoCatalog struct {
	dir    string
	Photos map[string]Photo `yaml:"photos"`
}

// LoadPhotoCatalog reads {dir}/mockups.yaml.
func LoadPhotoCatalog(dir string) (*PhotoCatalog, error) {
	c := &PhotoCatalog{dir: dir}
	if err := yamlutil.ReadFileStrict(filepath.Join(dir, MockupCatalogFile), c); err != nil {
		return nil, fmt.Errorf("loading mockup catalog: %w", err)
	}
	for name, p := range c.Photos {
		if err := p.validate(name); err != nil {
			return nil, fmt.Errorf("loading mockup catalog: %w", err)
		}
	}
	return c, nil
}

// Photo looks up a photo by name.
func (c *PhotoCatalog) Photo(name string) (Photo, error) {
	p, ok := c.Photos[name]
	if !ok {
		return Photo{}, fmt.Errorf("%w: %q", ErrPhotoNotFound, name)
	}
	return p, nil
}

// Names returns the photo names, sorted.
func (c *PhotoCatalog) Names() []string {
	names := make([]string, 0, len(c.Photos))
	for name := range c.Photos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// path returns the photo file.
func (c *PhotoCatalog) path(p Photo) string {
	return filepath.Join(c.dir, p.FileName)
}

// MockupRequest places a poster into a catalog photo. The photo decides
// the poster's resize, and its size and orientation when it names them;
// the rest comes from Poster.
type MockupRequest struct {
	Photo  string
	Poster RenderRequest
	Frame  string // "" or "black"

	// ResizeToWidth and ResizeToHeight scale the final photo, width first.
	ResizeToWidth  int
	ResizeToHeight int
}

// posterRequest derives the poster render from the photo placement.
func (m MockupRequest) posterRequest(p Photo) RenderRequest {
	req := m.Poster
	if p.Size != "" {
		req.Size = p.Size
	}
	if p.Orientation != "" {
		req.Orientation = p.Orientation
	}
	req.Format = FormatPNG
	req.EmbedRaster = false
	req.ResizeToWidth, req.ResizeToHeight = 0, 0

	frame := 0
	if m.Frame == FrameBlack {
		frame = 2 * frameWidth
	}
	switch p.Type {
	case PlaceExact:
		req.ResizeToWidth = p.BottomRight.X - p.TopLeft.X - frame
	case PlaceCenter:
		switch {
		case p.ResizeToWidth > 0:
			req.ResizeToWidth = p.ResizeToWidth - frame
		case p.ResizeToHeight > 0:
			req.ResizeToHeight = p.ResizeToHeight - frame
		case p.ResizeToSide > 0 && req.Orientation == OrientationLandscape:
			req.ResizeToWidth = p.ResizeToSide - frame
		case p.ResizeToSide > 0:
			req.ResizeToHeight = p.ResizeToSide - frame
		}
	}
	return req
}

// RenderMockup renders the poster and pastes it into the photo.
func (r *Renderer) RenderMockup(ctx context.Context, m MockupRequest) (*Result, error) {
	if r.mockups == nil {
		return nil, fmt.Errorf("%w: no mockup catalog configured", ErrPhotoNotFound)
	}
	switch m.Frame {
	case FrameNone, FrameBlack:
	default:
		return nil, fmt.Errorf("%w: frame %q", ErrInvalidRequest, m.Frame)
	}
	if m.ResizeToWidth < 0 || m.ResizeToHeight < 0 {
		return nil, fmt.Errorf("%w: negative resize", ErrInvalidRequest)
	}
	photo, err := r.mockups.Photo(m.Photo)
	if err != nil {
		return nil, err
	}

	res, err := r.Render(ctx, m.posterRequest(photo))
	if err != nil {
		return nil, err
	}
	posterImg, err := r.codec.Decode(res.Data)
	if err != nil {
		return nil, err
	}
	if m.Frame == FrameBlack {
		posterImg = r.codec.Extend(posterImg, frameWidth, frameWidth, frameWidth, frameWidth, frameColor)
	}

	data, err := os.ReadFile(r.mockups.path(photo)) // #nosec G304 -- file name validated at catalog load
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPhotoNotFound, err)
	}
	base, err := r.codec.Decode(data)
	if err != nil {
		return nil, err
	}

	var out *image.NRGBA
	switch photo.Type {
	case PlaceExact:
		finished := imaging.AdjustContrast(posterImg, fadeContrast)
		finished = imaging.AdjustBrightness(finished, darkenBrightness)
		out = imaging.Paste(base, finished, image.Pt(photo.TopLeft.X, photo.TopLeft.Y))
	default:
		out = imaging.OverlayCenter(base, posterImg, 1.0)
	}

	switch {
	case m.ResizeToWidth > 0:
		out = r.codec.Resize(out, m.ResizeToWidth, 0)
	case m.ResizeToHeight > 0:
		out = r.codec.Resize(out, 0, m.ResizeToHeight)
	}

	encoded, err := r.codec.Encode(out, raster.PNG, 0)
	if err != nil {
		return nil, err
	}
	b := out.Bounds()
	r.logger.Info("mockup done",
		zap.String("request_id", res.ID),
		zap.String("photo", m.Photo),
		zap.Int("width", b.Dx()),
		zap.Int("height", b.Dy()))

	return &Result{
		ID:       res.ID,
		Data:     encoded,
		Format:   FormatPNG,
		Width:    b.Dx(),
		Height:   b.Dy(),
		Strategy: res.Strategy,
		Template: res.Template,
		Fonts:    res.Fonts,
	}, nil
}
