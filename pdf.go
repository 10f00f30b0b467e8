package mapposter

import (
	"bytes"
	"context"
	"fmt"
	"math"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"

	"github.com/alnah/go-mapposter/internal/paper"
	"github.com/alnah/go-mapposter/internal/raster"
)

// aspectTolerance is the relative aspect ratio difference tolerated between
// a raster poster and its paper size.
const aspectTolerance = 0.001

// pdfCreator is written into the document info.
const pdfCreator = "go-mapposter"

// renderPDF prints the poster at its physical size, either as an embedded
// raster or as vector layers.
func (j *job) renderPDF(ctx context.Context) (*Result, error) {
	size, err := paper.Parse(j.req.Size, j.req.Orientation)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if j.req.EmbedRaster {
		return j.rasterPDF(ctx, size)
	}
	return j.vectorPDF(ctx, size)
}

// rasterPDF draws the raster poster over a single page in points.
func (j *job) rasterPDF(ctx context.Context, size paper.Size) (*Result, error) {
	tmpl, name, dims, err := j.loadTemplate(j.req.ClientTemplate)
	if err != nil {
		return nil, err
	}
	img, err := j.compose(ctx, tmpl, dims)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	want := size.AspectRatio()
	got := float64(b.Dx()) / float64(b.Dy())
	if math.Abs(got-want)/want >= aspectTolerance {
		return nil, fmt.Errorf("%w: image %dx%d (%.4f), paper %.2fx%.2fin (%.4f)",
			ErrAspectRatio, b.Dx(), b.Dy(), got, size.Width, size.Height, want)
	}

	png, err := j.r.codec.Encode(img, raster.PNG, 0)
	if err != nil {
		return nil, err
	}
	data, err := embedImagePDF(png, size, j.req.MapStyle)
	if err != nil {
		return nil, err
	}

	j.log.Info("raster pdf",
		zap.Float64("dpi", float64(b.Dx())/size.Width),
		zap.Float64("width_in", size.Width),
		zap.Float64("height_in", size.Height))

	return &Result{
		ID:       j.req.ID,
		Data:     data,
		Format:   FormatPDF,
		Width:    dims.Width,
		Height:   dims.Height,
		Strategy: j.strategy,
		Template: name,
		Fonts:    j.faces(),
	}, nil
}

// embedImagePDF builds a one-page document of size with png filling it.
func embedImagePDF(png []byte, size paper.Size, title string) ([]byte, error) {
	w, h := size.Points()
	// Landscape would swap Wd and Ht again; the size is already oriented.
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetCreator(pdfCreator, true)
	pdf.SetTitle(title, true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("poster", opts, bytes.NewReader(png))
	pdf.ImageOptions("poster", 0, 0, w, h, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	return buf.Bytes(), nil
}

// vectorPDF prints the layered SVG poster at its physical size. Every text
// element is resolved against the font library first, and the resolved
// files are declared as @font-face so the printer embeds them.
func (j *job) vectorPDF(ctx context.Context, size paper.Size) (*Result, error) {
	if j.r.overlay == nil {
		return nil, fmt.Errorf("%w: no overlay renderer configured", ErrOverlay)
	}
	tmpl, name, dims, err := j.layeredSVG(ctx, true)
	if err != nil {
		return nil, err
	}
	if err := tmpl.SetPhysicalSize(size.Width, size.Height); err != nil {
		return nil, err
	}

	svg, err := tmpl.Bytes()
	if err != nil {
		return nil, err
	}
	path, err := j.arts.Write("-print.svg", svg)
	if err != nil {
		return nil, err
	}
	data, err := j.r.overlay.PrintPDF(ctx, path, size.Width, size.Height)
	if err != nil {
		return nil, err
	}

	faces := j.faces()
	j.log.Info("vector pdf", zap.Int("fonts", len(faces)))
	return &Result{
		ID:       j.req.ID,
		Data:     data,
		Format:   FormatPDF,
		Width:    dims.Width,
		Height:   dims.Height,
		Strategy: j.strategy,
		Template: name,
		Fonts:    faces,
	}, nil
}
