package mapposter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-mapposter/internal/browser"
	"github.com/alnah/go-mapposter/internal/fileutil"
	"github.com/alnah/go-mapposter/internal/fonts"
	"github.com/alnah/go-mapposter/internal/geo"
	"github.com/alnah/go-mapposter/internal/mosaic"
	"github.com/alnah/go-mapposter/internal/poster"
	"github.com/alnah/go-mapposter/internal/raster"
	"github.com/alnah/go-mapposter/internal/styles"
)

// Compile-time interface implementation checks.
var (
	_ TemplateFinder = (*poster.Resolver)(nil)
	_ TileFetcher    = (*mosaic.Fetcher)(nil)
	_ Overlay        = (*browser.Browser)(nil)
)

// TemplateFinder loads the poster template for a style, size and
// orientation.
type TemplateFinder interface {
	Find(posterStyle, size, orientation string, client bool) (*poster.Template, string, error)
}

// TileFetcher builds a map raster from pre-rendered tiles.
type TileFetcher interface {
	FetchMosaic(ctx context.Context, b geo.Bounds, urlTemplate string, minWidth, minHeight int) ([]byte, error)
}

// Overlay renders SVG files the way a browser does.
type Overlay interface {
	Rasterize(ctx context.Context, svgPath string, width, height int) ([]byte, error)
	MeasureText(ctx context.Context, svgPath, id string) (poster.BBox, error)
	PrintPDF(ctx context.Context, svgPath string, widthIn, heightIn float64) ([]byte, error)
}

// Renderer composes posters. Create with NewRenderer; it is safe for
// concurrent use.
type Renderer struct {
	pool      *StylePool
	templates TemplateFinder
	catalog   *styles.Catalog
	fonts     *fonts.Library
	overlay   Overlay
	tiles     TileFetcher
	tileURL   string
	mockups   *PhotoCatalog
	codec     raster.Codec
	logger    *zap.Logger
	metrics   *Metrics

	tempDir        string
	retain         bool
	smallThreshold int
	scale          ScalePolicy
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics records render counts and durations.
func WithMetrics(m *Metrics) Option {
	return func(r *Renderer) {
		r.metrics = m
	}
}

// WithCatalog replaces the built-in style catalog.
func WithCatalog(c *styles.Catalog) Option {
	return func(r *Renderer) {
		r.catalog = c
	}
}

// WithTemplates sets where poster templates come from. The default serves
// the embedded templates.
func WithTemplates(f TemplateFinder) Option {
	return func(r *Renderer) {
		r.templates = f
	}
}

// WithFonts sets the font library used for label coverage. Required for
// labels.
func WithFonts(l *fonts.Library) Option {
	return func(r *Renderer) {
		r.fonts = l
	}
}

// WithOverlay sets the SVG renderer used for labels and vector PDF.
func WithOverlay(o Overlay) Option {
	return func(r *Renderer) {
		r.overlay = o
	}
}

// WithTiles enables the mosaic strategy with the given fetcher and
// {z}/{x}/{y} URL template.
func WithTiles(f TileFetcher, urlTemplate string) Option {
	return func(r *Renderer) {
		r.tiles = f
		r.tileURL = urlTemplate
	}
}

// WithMockups sets the photo catalog used by RenderMockup.
func WithMockups(c *PhotoCatalog) Option {
	return func(r *Renderer) {
		r.mockups = c
	}
}

// WithTempDir sets where request artifacts are written. With retain set,
// artifacts and debug images are kept after the request.
func WithTempDir(dir string, retain bool) Option {
	return func(r *Renderer) {
		r.tempDir = dir
		r.retain = retain
	}
}

// WithSmallThreshold sets the resize target under which tiles are used.
func WithSmallThreshold(px int) Option {
	return func(r *Renderer) {
		if px >= 0 {
			r.smallThreshold = px
		}
	}
}

// WithScalePolicy sets the scale used when a request has none.
func WithScalePolicy(p ScalePolicy) Option {
	return func(r *Renderer) {
		if p != nil {
			r.scale = p
		}
	}
}

// NewRenderer creates a Renderer drawing maps from pool.
func NewRenderer(pool *StylePool, opts ...Option) (*Renderer, error) {
	if pool == nil {
		return nil, errors.New("renderer needs a style pool")
	}
	r := &Renderer{
		pool:           pool,
		logger:         zap.NewNop(),
		smallThreshold: DefaultSmallThreshold,
		scale:          DefaultScalePolicy,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.templates == nil {
		resolver, err := poster.NewResolver("")
		if err != nil {
			return nil, err
		}
		r.templates = resolver
	}
	if r.catalog == nil {
		c, err := styles.Default()
		if err != nil {
			return nil, fmt.Errorf("loading built-in style catalog: %w", err)
		}
		r.catalog = c
	}
	return r, nil
}

// job is the state of one request.
type job struct {
	r        *Renderer
	req      RenderRequest
	arts     *fileutil.Artifacts
	log      *zap.Logger
	strategy Strategy
	session  *fonts.Session
}

// Render produces one poster. Temp artifacts are removed on every path
// unless retained; a cleanup failure fails the request.
// Internal panics are returned as errors after cleanup.
func (r *Renderer) Render(ctx context.Context, req RenderRequest) (res *Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, fmt.Errorf("internal error: %v", p)
		}
	}()

	req = req.withDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	j := &job{
		r:    r,
		req:  req,
		arts: fileutil.NewArtifacts(r.tempDir, req.ID, r.retain),
		log: r.logger.With(
			zap.String("request_id", req.ID),
			zap.String("style", req.MapStyle),
			zap.String("format", string(req.Format)),
		),
	}

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, fmt.Errorf("internal error: %v", p)
		}
		if cerr := j.arts.Cleanup(); cerr != nil {
			j.log.Error("temp cleanup failed", zap.Error(cerr))
			res, err = nil, errors.Join(err, cerr)
		}
		r.metrics.observeRender(j.strategy, req.Format, time.Since(start), err)
		if err != nil || res == nil {
			j.log.Warn("render failed", zap.Stringer("strategy", j.strategy), zap.Error(err))
			return
		}
		j.log.Info("render done",
			zap.Stringer("strategy", j.strategy),
			zap.Int("width", res.Width),
			zap.Int("height", res.Height),
			zap.Duration("took", time.Since(start)))
	}()

	switch req.Format {
	case FormatSVG:
		return j.renderSVG(ctx)
	case FormatPDF:
		return j.renderPDF(ctx)
	default:
		return j.renderRaster(ctx)
	}
}

// Close releases the style pool. The overlay and tile fetcher belong to
// the caller.
func (r *Renderer) Close() error {
	return r.pool.Close()
}

// loadTemplate finds the request's template and resolves its dimensions.
// Vector output ignores resize constraints.
func (j *job) loadTemplate(client bool) (*poster.Template, string, Dimensions, error) {
	req := j.req
	tmpl, name, err := j.r.templates.Find(req.PosterStyle, req.Size, req.Orientation, client)
	if err != nil {
		return nil, "", Dimensions{}, err
	}
	size, err := tmpl.Size()
	if err != nil {
		return nil, "", Dimensions{}, err
	}

	rw, rh := req.ResizeToWidth, req.ResizeToHeight
	if req.Format.IsVector() {
		rw, rh = 0, 0
	}
	dims, err := ResolveDimensions(size, rw, rh)
	if err != nil {
		return nil, "", Dimensions{}, err
	}
	j.log.Debug("template loaded", zap.String("template", name), zap.Stringer("dims", dims))
	return tmpl, name, dims, nil
}

// scaleFor returns the request scale or the policy default for the
// template's declared size.
func (j *job) scaleFor(dims Dimensions) float64 {
	if j.req.Scale > 0 {
		return j.req.Scale
	}
	return j.r.scale.DefaultScale(dims.OriginalWidth, dims.OriginalHeight)
}

// faces returns the fonts resolved so far.
func (j *job) faces() []FontFace {
	if j.session == nil {
		return nil
	}
	return j.session.Faces()
}
