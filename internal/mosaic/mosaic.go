// Package mosaic assembles map rasters from pre-rendered slippy-map tiles.
package mosaic

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-mapposter/internal/geo"
	"github.com/alnah/go-mapposter/internal/raster"
)

// Sentinel errors for mosaic operations.
var (
	ErrTileFetch   = errors.New("tile fetch failed")
	ErrURLTemplate = errors.New("invalid tile url template")
)

// DefaultConcurrency bounds parallel tile requests.
const DefaultConcurrency = 8

// maxTileBytes caps a single tile response.
const maxTileBytes = 8 << 20

// maxTiles caps the grid so a bad request cannot fan out without bound.
const maxTiles = 256

// Fetcher downloads and stitches tiles. The zero value is usable.
type Fetcher struct {
	Client      *http.Client
	Cache       TileCache // nil disables caching
	Concurrency int
	UserAgent   string
	Codec       raster.Codec

	// OnCache, when set, is called once per tile with the cache outcome.
	OnCache func(hit bool)
}

// ValidateURLTemplate checks that tmpl carries {z}, {x} and {y}.
func ValidateURLTemplate(tmpl string) error {
	for _, p := range []string{"{z}", "{x}", "{y}"} {
		if !strings.Contains(tmpl, p) {
			return fmt.Errorf("%w: %q lacks %s", ErrURLTemplate, tmpl, p)
		}
	}
	return nil
}

// TileURL expands {z}, {x} and {y} in tmpl.
func TileURL(tmpl string, z, x, y int) string {
	return strings.NewReplacer(
		"{z}", strconv.Itoa(z),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
	).Replace(tmpl)
}

// Grid is the tile range covering a bounding box at one zoom, and the
// bbox's pixel rectangle inside the stitched grid image.
type Grid struct {
	Zoom   int
	MinX   int
	MinY   int
	MaxX   int // inclusive
	MaxY   int // inclusive
	Bounds image.Rectangle
}

// Tiles returns the number of tiles in the grid.
func (g Grid) Tiles() int {
	return (g.MaxX - g.MinX + 1) * (g.MaxY - g.MinY + 1)
}

// PlanGrid picks the zoom at which b spans at least minWidth x minHeight
// pixels and returns the tiles covering it.
func PlanGrid(b geo.Bounds, minWidth, minHeight int) Grid {
	z := geo.ZoomFor(b, minWidth, minHeight)
	x1, y1 := geo.TilePoint(geo.LatLng{Lat: b.NorthEast.Lat, Lng: b.SouthWest.Lng}, z)
	x2, y2 := geo.TilePoint(geo.LatLng{Lat: b.SouthWest.Lat, Lng: b.NorthEast.Lng}, z)

	last := int(math.Exp2(float64(z))) - 1
	g := Grid{
		Zoom: z,
		MinX: clamp(int(math.Floor(x1)), 0, last),
		MinY: clamp(int(math.Floor(y1)), 0, last),
		MaxX: clamp(int(math.Ceil(x2))-1, 0, last),
		MaxY: clamp(int(math.Ceil(y2))-1, 0, last),
	}
	if g.MaxX < g.MinX {
		g.MaxX = g.MinX
	}
	if g.MaxY < g.MinY {
		g.MaxY = g.MinY
	}

	ox, oy := float64(g.MinX*geo.TileSize), float64(g.MinY*geo.TileSize)
	g.Bounds = image.Rect(
		int(math.Floor(x1*geo.TileSize-ox)),
		int(math.Floor(y1*geo.TileSize-oy)),
		int(math.Ceil(x2*geo.TileSize-ox)),
		int(math.Ceil(y2*geo.TileSize-oy)),
	)
	return g
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// FetchMosaic downloads the tiles covering b at the zoom where the bbox is
// at least minWidth x minHeight pixels, stitches them and crops to the
// bbox. The result is PNG encoded.
func (f *Fetcher) FetchMosaic(ctx context.Context, b geo.Bounds, urlTemplate string, minWidth, minHeight int) ([]byte, error) {
	img, err := f.Stitch(ctx, b, urlTemplate, minWidth, minHeight)
	if err != nil {
		return nil, err
	}
	return f.Codec.Encode(img, raster.PNG, 0)
}

// Stitch is FetchMosaic without the final encoding.
func (f *Fetcher) Stitch(ctx context.Context, b geo.Bounds, urlTemplate string, minWidth, minHeight int) (*image.NRGBA, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateURLTemplate(urlTemplate); err != nil {
		return nil, err
	}

	grid := PlanGrid(b, minWidth, minHeight)
	if n := grid.Tiles(); n > maxTiles {
		return nil, fmt.Errorf("%w: %d tiles at zoom %d exceeds %d", ErrTileFetch, n, grid.Zoom, maxTiles)
	}

	cols := grid.MaxX - grid.MinX + 1
	rows := grid.MaxY - grid.MinY + 1
	tiles := make([]image.Image, cols*rows)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency())
	for ty := grid.MinY; ty <= grid.MaxY; ty++ {
		for tx := grid.MinX; tx <= grid.MaxX; tx++ {
			idx := (ty-grid.MinY)*cols + (tx - grid.MinX)
			url := TileURL(urlTemplate, grid.Zoom, tx, ty)
			g.Go(func() error {
				data, err := f.tile(gctx, url)
				if err != nil {
					return err
				}
				img, err := f.Codec.Decode(data)
				if err != nil {
					return fmt.Errorf("%w: %s: %v", ErrTileFetch, url, err)
				}
				tiles[idx] = img
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	canvas := imaging.New(cols*geo.TileSize, rows*geo.TileSize, color.NRGBA{A: 255})
	for i, tile := range tiles {
		pt := image.Pt((i%cols)*geo.TileSize, (i/cols)*geo.TileSize)
		canvas = imaging.Paste(canvas, tile, pt)
	}

	crop := grid.Bounds.Intersect(canvas.Bounds())
	if crop.Empty() {
		return nil, fmt.Errorf("%w: empty crop %v", ErrTileFetch, grid.Bounds)
	}
	return imaging.Crop(canvas, crop), nil
}

func (f *Fetcher) concurrency() int {
	if f.Concurrency > 0 {
		return f.Concurrency
	}
	return DefaultConcurrency
}

func (f *Fetcher) tile(ctx context.Context, url string) ([]byte, error) {
	if f.Cache != nil {
		data, ok, err := f.Cache.Get(ctx, url)
		if err == nil && ok {
			f.observe(true)
			return data, nil
		}
		f.observe(false)
	}

	data, err := f.download(ctx, url)
	if err != nil {
		return nil, err
	}

	if f.Cache != nil {
		// A failed cache write only costs a refetch next time.
		_ = f.Cache.Set(ctx, url, data)
	}
	return data, nil
}

func (f *Fetcher) observe(hit bool) {
	if f.OnCache != nil {
		f.OnCache(hit)
	}
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTileFetch, err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTileFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: status %d", ErrTileFetch, url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTileBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTileFetch, url, err)
	}
	return data, nil
}
