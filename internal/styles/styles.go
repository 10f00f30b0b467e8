// Package styles holds the style policy applied to poster labels: label
// colors per map style, casing and decorative lines per poster style, and
// line stroke widths per poster size.
package styles

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/alnah/go-mapposter/internal/yamlutil"
)

// Sentinel errors for catalog lookups.
var (
	ErrUnknownMapStyle    = errors.New("unknown map style")
	ErrUnknownPosterStyle = errors.New("unknown poster style")
	ErrUnknownSize        = errors.New("unknown poster size")
	ErrInvalidCatalog     = errors.New("invalid style catalog")
)

//go:embed catalog.yaml
var embeddedCatalog []byte

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// MapStyle is the label policy of a cartographic style.
type MapStyle struct {
	LabelColor string `yaml:"labelColor"`
}

// PosterStyle is the layout policy of a poster template family.
type PosterStyle struct {
	UpperCaseLabels bool `yaml:"upperCaseLabels"`
	AddLines        bool `yaml:"addLines"`
}

// SizeStyle holds per-size drawing parameters.
type SizeStyle struct {
	MiddleLineStrokeWidth float64 `yaml:"middleLineStrokeWidth"`
}

// Catalog is the complete style policy.
type Catalog struct {
	MapStyles          map[string]MapStyle    `yaml:"mapStyles"`
	PosterStyles       map[string]PosterStyle `yaml:"posterStyles"`
	Sizes              map[string]SizeStyle   `yaml:"sizes"`
	DefaultStrokeWidth float64                `yaml:"defaultStrokeWidth"`
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return parse(embeddedCatalog)
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	var c Catalog
	if err := yamlutil.ReadFileStrict(path, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yamlutil.UnmarshalStrict(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks colors and stroke widths.
func (c *Catalog) Validate() error {
	if len(c.MapStyles) == 0 || len(c.PosterStyles) == 0 {
		return fmt.Errorf("%w: map and poster styles are required", ErrInvalidCatalog)
	}
	for name, s := range c.MapStyles {
		if !hexColor.MatchString(s.LabelColor) {
			return fmt.Errorf("%w: map style %q has label color %q", ErrInvalidCatalog, name, s.LabelColor)
		}
	}
	for name, s := range c.Sizes {
		if s.MiddleLineStrokeWidth <= 0 {
			return fmt.Errorf("%w: size %q has stroke width %v", ErrInvalidCatalog, name, s.MiddleLineStrokeWidth)
		}
	}
	return nil
}

// MapStyle looks up a map style.
func (c *Catalog) MapStyle(name string) (MapStyle, error) {
	s, ok := c.MapStyles[name]
	if !ok {
		return MapStyle{}, fmt.Errorf("%w: %q", ErrUnknownMapStyle, name)
	}
	return s, nil
}

// PosterStyle looks up a poster style.
func (c *Catalog) PosterStyle(name string) (PosterStyle, error) {
	s, ok := c.PosterStyles[name]
	if !ok {
		return PosterStyle{}, fmt.Errorf("%w: %q", ErrUnknownPosterStyle, name)
	}
	return s, nil
}

// StrokeWidth returns the small-header line width for a size, falling back
// to DefaultStrokeWidth for sizes not listed.
func (c *Catalog) StrokeWidth(size string) float64 {
	if s, ok := c.Sizes[size]; ok {
		return s.MiddleLineStrokeWidth
	}
	if c.DefaultStrokeWidth > 0 {
		return c.DefaultStrokeWidth
	}
	return 1
}

// HasSize reports whether the size is listed in the catalog.
func (c *Catalog) HasSize(size string) bool {
	_, ok := c.Sizes[size]
	return ok
}

// MapStyleNames returns the sorted map style names.
func (c *Catalog) MapStyleNames() []string {
	return sortedKeys(c.MapStyles)
}

// PosterStyleNames returns the sorted poster style names.
func (c *Catalog) PosterStyleNames() []string {
	return sortedKeys(c.PosterStyles)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
