package mapposter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/alnah/go-mapposter/internal/engine"
	"github.com/alnah/go-mapposter/internal/fonts"
	"github.com/alnah/go-mapposter/internal/geo"
	"github.com/alnah/go-mapposter/internal/poster"
)

var helsinki = Bounds{
	SouthWest: LatLng{Lat: 60.10, Lng: 24.80},
	NorthEast: LatLng{Lat: 60.25, Lng: 25.10},
}

var mapGray = color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}

// ---------------------------------------------------------------------------
// Mock Implementations
// ---------------------------------------------------------------------------

// fakeEngine hands out fakeMaps and instruments their renders.
type fakeEngine struct {
	mu        sync.Mutex
	loads     int
	failLoads int           // the next failLoads loads fail
	shrink    int           // pixels missing from every rendered width
	delay     time.Duration // time spent inside Render
	hold      chan struct{} // when set, Render blocks until closed
	entered   chan string   // receives the style path on Render entry
	active    int
	maxActive int
	renders   int
	maps      []*fakeMap
}

func (e *fakeEngine) Load(ctx context.Context, path string, width, height int) (engine.Map, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.loads++
	if e.failLoads > 0 {
		e.failLoads--
		return nil, errors.New("stylesheet parse error")
	}
	m := &fakeMap{e: e, path: path, w: width, h: height}
	e.maps = append(e.maps, m)
	return m, nil
}

func (e *fakeEngine) loadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loads
}

func (e *fakeEngine) peak() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxActive
}

type fakeMap struct {
	e      *fakeEngine
	path   string
	w, h   int
	ext    geo.Extent
	scales []float64
	closed bool
}

func (m *fakeMap) Resize(width, height int) {
	m.e.mu.Lock()
	defer m.e.mu.Unlock()
	m.w, m.h = width, height
}

func (m *fakeMap) SetExtent(ext geo.Extent) {
	m.e.mu.Lock()
	defer m.e.mu.Unlock()
	m.ext = ext
}

func (m *fakeMap) Size() (int, int) {
	m.e.mu.Lock()
	defer m.e.mu.Unlock()
	return m.w, m.h
}

func (m *fakeMap) Render(ctx context.Context, opts engine.RenderOptions) ([]byte, error) {
	e := m.e
	e.mu.Lock()
	e.active++
	e.renders++
	e.maxActive = max(e.maxActive, e.active)
	m.scales = append(m.scales, opts.Scale)
	w, h := m.w-e.shrink, m.h
	hold, delay, entered := e.hold, e.delay, e.entered
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.active--
		e.mu.Unlock()
	}()

	if entered != nil {
		entered <- m.path
	}
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	time.Sleep(delay)

	if opts.Format == engine.FormatSVG {
		return fmt.Appendf(nil, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d"><rect id="land" width="%d" height="%d" fill="#eeeeee"/></svg>`,
			w, h, w, h, w, h), nil
	}
	return encodePNG(imaging.New(w, h, mapGray)), nil
}

func (m *fakeMap) Close() error {
	m.e.mu.Lock()
	defer m.e.mu.Unlock()
	m.closed = true
	return nil
}

// fakeOverlay stands in for the browser. It keeps the last SVG it was
// given.
type fakeOverlay struct {
	mu         sync.Mutex
	shrink     int
	box        poster.BBox
	rasterized int
	measured   int
	printed    int
	lastSVG    string

	onRasterize func(svgPath string) // runs after the SVG was read
}

func (o *fakeOverlay) read(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	o.lastSVG = string(data)
	return nil
}

func (o *fakeOverlay) Rasterize(ctx context.Context, svgPath string, width, height int) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rasterized++
	if err := o.read(svgPath); err != nil {
		return nil, err
	}
	if o.onRasterize != nil {
		o.onRasterize(svgPath)
	}
	img := imaging.New(width-o.shrink, height, color.Transparent)
	img.Set(1, 1, color.Black)
	return encodePNG(img), nil
}

func (o *fakeOverlay) MeasureText(ctx context.Context, svgPath, id string) (poster.BBox, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.measured++
	if err := o.read(svgPath); err != nil {
		return poster.BBox{}, err
	}
	return o.box, nil
}

func (o *fakeOverlay) PrintPDF(ctx context.Context, svgPath string, widthIn, heightIn float64) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.printed++
	if err := o.read(svgPath); err != nil {
		return nil, err
	}
	return []byte("%PDF-1.7 fake"), nil
}

func (o *fakeOverlay) svg() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastSVG
}

// fakeTiles returns one uniform mosaic.
type fakeTiles struct {
	mu         sync.Mutex
	calls      int
	minW, minH int
}

func (f *fakeTiles) FetchMosaic(ctx context.Context, b geo.Bounds, urlTemplate string, minWidth, minHeight int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.minW, f.minH = minWidth, minHeight
	return encodePNG(imaging.New(256, 160, mapGray)), nil
}

// ---------------------------------------------------------------------------
// Test environment
// ---------------------------------------------------------------------------

// Templates use a small declared size to keep images cheap.
const (
	labelTemplate = `<svg xmlns="http://www.w3.org/2000/svg" width="400" height="600">
  <text id="header" font-family="Latin-Bold" letter-spacing="2"><tspan x="200" y="500">CITY</tspan></text>
  <text id="small-header" font-family="Latin-Regular" letter-spacing="2"><tspan x="200" y="540">COUNTRY</tspan></text>
  <text id="text" font-family="Latin-Regular"><tspan x="200" y="570">00.000°N</tspan></text>
</svg>`
	serverTemplate = `<svg xmlns="http://www.w3.org/2000/svg" width="400" height="600">
  <text id="header" font-family="Latin-Bold"><tspan x="200" y="500">SERVER</tspan></text>
</svg>`
	printTemplate = `<svg xmlns="http://www.w3.org/2000/svg" width="300px" height="400px">
  <text id="header" font-family="Latin-Bold"><tspan x="150" y="340">CITY</tspan></text>
  <text id="credit" font-family="Latin-Regular"><tspan x="150" y="390">map data</tspan></text>
</svg>`
)

type testEnv struct {
	eng     *fakeEngine
	overlay *fakeOverlay
	tiles   *fakeTiles
	metrics *Metrics
	tmp     string
	r       *Renderer
}

func templateDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"bw-50x70cm-portrait":             labelTemplate,
		"classic-50x70cm-portrait":        labelTemplate,
		"classic-50x70cm-portrait-server": serverTemplate,
		"bw-30x40cm-portrait":             printTemplate,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name+".svg"), []byte(content), 0o644); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	return dir
}

func fontLibrary(t *testing.T) *fonts.Library {
	t.Helper()
	dir := t.TempDir()
	files := map[string][]byte{
		"Latin-Bold.ttf":       gobold.TTF,
		"Latin-Regular.ttf":    goregular.TTF,
		"NotoSansCJK-Bold.ttf": gobold.TTF,
		"NotoSans-Regular.ttf": goregular.TTF,
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	lib, err := fonts.LoadLibrary(dir, fonts.Fallbacks{})
	if err != nil {
		t.Fatalf("LoadLibrary() error: %v", err)
	}
	return lib
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	env := &testEnv{
		eng:     &fakeEngine{},
		overlay: &fakeOverlay{box: poster.BBox{X: 150, Y: 520, Width: 100, Height: 20}},
		tiles:   &fakeTiles{},
		metrics: NewMetrics(prometheus.NewRegistry()),
		tmp:     t.TempDir(),
	}
	resolver, err := poster.NewResolver(templateDir(t))
	if err != nil {
		t.Fatalf("NewResolver() error: %v", err)
	}

	pool := NewStylePool(env.eng, "styles", WithPoolMetrics(env.metrics))
	base := []Option{
		WithTemplates(resolver),
		WithFonts(fontLibrary(t)),
		WithOverlay(env.overlay),
		WithTiles(env.tiles, "https://tiles.example.com/{z}/{x}/{y}.png"),
		WithTempDir(env.tmp, false),
		WithMetrics(env.metrics),
	}
	r, err := NewRenderer(pool, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	env.r = r
	return env
}

// request returns a valid raster request for the bw 50x70cm template.
func request() RenderRequest {
	return RenderRequest{
		ID:          "0b9c1f4e-test-request",
		MapStyle:    "bw",
		PosterStyle: "bw",
		Size:        "50x70cm",
		Orientation: OrientationPortrait,
		Bounds:      helsinki,
		Scale:       1,
	}
}

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	return img
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		t.Errorf("leftover temp artifact: %s", e.Name())
	}
}
