// Package browser drives headless Chrome for the SVG work Go cannot do
// natively: rasterizing an overlay, measuring rendered text and printing
// an SVG page to PDF.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-mapposter/internal/poster"
)

// Sentinel errors for browser operations.
var (
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrScreenshot     = errors.New("overlay rasterization failed")
	ErrMeasure        = errors.New("text measurement failed")
	ErrPDFGeneration  = errors.New("PDF generation failed")
)

// DefaultTimeout bounds a single page operation.
const DefaultTimeout = 60 * time.Second

// Options configures the browser launch.
type Options struct {
	// Bin is the Chrome binary. Empty falls back to ROD_BROWSER_BIN, then
	// to rod's managed download.
	Bin       string
	NoSandbox bool
	Timeout   time.Duration
}

// Browser is a lazily launched headless Chrome shared by all requests.
// Each call opens its own page, so methods are safe for concurrent use.
type Browser struct {
	opts Options

	mu      sync.Mutex
	browser *rod.Browser
}

// New returns a Browser. Chrome is started on first use.
func New(opts Options) *Browser {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Browser{opts: opts}
}

// launchConfig resolves the binary and sandbox flag from opts and the
// environment.
func launchConfig(opts Options, getenv func(string) string) (bin string, noSandbox bool) {
	bin = opts.Bin
	if bin == "" {
		bin = getenv("ROD_BROWSER_BIN")
	}
	// NoSandbox required for CI and containerized environments
	noSandbox = opts.NoSandbox || getenv("CI") == "true" || bin != ""
	return bin, noSandbox
}

func (b *Browser) ensure() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		return b.browser, nil
	}

	bin, noSandbox := launchConfig(b.opts, os.Getenv)
	l := launcher.New()
	if bin != "" {
		l = l.Bin(bin)
	}
	if noSandbox {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	rb := rod.New().ControlURL(u)
	if err := rb.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	b.browser = rb
	return rb, nil
}

// Close releases browser resources.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		err := b.browser.Close()
		b.browser = nil
		return err
	}
	return nil
}

// Version launches the browser if needed and reports its product string.
func (b *Browser) Version(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rb, err := b.ensure()
	if err != nil {
		return "", err
	}
	v, err := rb.Context(ctx).Version()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	return v.Product, nil
}

// Rasterize screenshots the SVG file at exactly width x height pixels on a
// transparent background and returns PNG bytes.
func (b *Browser) Rasterize(ctx context.Context, svgPath string, width, height int) ([]byte, error) {
	viewport := &proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	}
	page, done, err := b.open(ctx, svgPath, viewport)
	if err != nil {
		return nil, err
	}
	defer done()

	png, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
		Clip: &proto.PageViewport{
			Width:  float64(width),
			Height: float64(height),
			Scale:  1,
		},
		CaptureBeyondViewport: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScreenshot, err)
	}
	return png, nil
}

// measureJS returns the text element's bbox with letter-spacing zeroed.
// Callers add the spacing back.
const measureJS = `(id) => document.fonts.ready.then(() => {
	const el = document.getElementById(id);
	if (!el || typeof el.getBBox !== 'function') return null;
	el.style.letterSpacing = '0';
	const b = el.getBBox();
	return {x: b.x, y: b.y, width: b.width, height: b.height};
})`

// MeasureText returns the rendered bbox of the element with id, in the
// document's user units.
func (b *Browser) MeasureText(ctx context.Context, svgPath, id string) (poster.BBox, error) {
	page, done, err := b.open(ctx, svgPath, nil)
	if err != nil {
		return poster.BBox{}, err
	}
	defer done()

	res, err := page.Eval(measureJS, id)
	if err != nil {
		return poster.BBox{}, fmt.Errorf("%w: %v", ErrMeasure, err)
	}
	if res.Value.Nil() {
		return poster.BBox{}, fmt.Errorf("%w: no text element %q", ErrMeasure, id)
	}

	var box struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	if err := res.Value.Unmarshal(&box); err != nil {
		return poster.BBox{}, fmt.Errorf("%w: %v", ErrMeasure, err)
	}
	return poster.BBox{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}, nil
}

// PrintPDF prints the SVG file onto a single page of the given size in
// inches, without margins. The SVG should carry the same physical size.
func (b *Browser) PrintPDF(ctx context.Context, svgPath string, widthIn, heightIn float64) ([]byte, error) {
	page, done, err := b.open(ctx, svgPath, nil)
	if err != nil {
		return nil, err
	}
	defer done()

	reader, err := page.PDF(pdfOptions(widthIn, heightIn))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return data, nil
}

func pdfOptions(widthIn, heightIn float64) *proto.PagePrintToPDF {
	return &proto.PagePrintToPDF{
		PaperWidth:      floatPtr(widthIn),
		PaperHeight:     floatPtr(heightIn),
		MarginTop:       floatPtr(0),
		MarginBottom:    floatPtr(0),
		MarginLeft:      floatPtr(0),
		MarginRight:     floatPtr(0),
		PrintBackground: true,
		PageRanges:      "1",
	}
}

// fontsReadyJS resolves once the page's web fonts have loaded. The load
// event does not wait for @font-face files.
const fontsReadyJS = `() => document.fonts.ready.then(() => true)`

// open loads path in a fresh page bounded by ctx and the browser timeout
// and returns once its fonts are ready. A non-nil viewport is applied
// before navigation with a transparent default background.
func (b *Browser) open(ctx context.Context, path string, viewport *proto.EmulationSetDeviceMetricsOverride) (*rod.Page, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	rb, err := b.ensure()
	if err != nil {
		return nil, nil, err
	}

	raw, err := rb.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	done := func() { _ = raw.Close() }

	timeout := b.opts.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			done()
			return nil, nil, context.DeadlineExceeded
		}
	}
	page := raw.Context(ctx).Timeout(timeout)

	if viewport != nil {
		if err := page.SetViewport(viewport); err != nil {
			done()
			return nil, nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
		}
		transparent := proto.EmulationSetDefaultBackgroundColorOverride{
			Color: &proto.DOMRGBA{A: floatPtr(0)},
		}
		if err := transparent.Call(page); err != nil {
			done()
			return nil, nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
		}
	}

	u, err := fileURL(path)
	if err != nil {
		done()
		return nil, nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := page.Navigate(u); err != nil {
		done()
		return nil, nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := page.WaitLoad(); err != nil {
		done()
		return nil, nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if _, err := page.Eval(fontsReadyJS); err != nil {
		done()
		return nil, nil, fmt.Errorf("%w: waiting for fonts: %v", ErrPageLoad, err)
	}
	return page, done, nil
}

func fileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String(), nil
}

// floatPtr returns a pointer to v.
func floatPtr(v float64) *float64 {
	return &v
}
