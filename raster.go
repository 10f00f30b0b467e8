package mapposter

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"go.uber.org/zap"

	"github.com/alnah/go-mapposter/internal/engine"
	"github.com/alnah/go-mapposter/internal/poster"
	"github.com/alnah/go-mapposter/internal/raster"
)

// renderRaster composes and encodes a bitmap poster.
func (j *job) renderRaster(ctx context.Context) (*Result, error) {
	tmpl, name, dims, err := j.loadTemplate(j.req.ClientTemplate)
	if err != nil {
		return nil, err
	}
	img, err := j.compose(ctx, tmpl, dims)
	if err != nil {
		return nil, err
	}
	data, err := j.r.codec.Encode(img, raster.Format(j.req.Format), j.req.Quality)
	if err != nil {
		return nil, err
	}
	return &Result{
		ID:       j.req.ID,
		Data:     data,
		Format:   j.req.Format,
		Width:    dims.Width,
		Height:   dims.Height,
		Strategy: j.strategy,
		Template: name,
		Fonts:    j.faces(),
	}, nil
}

// compose runs the pipeline up to the composited bitmap. Without labels
// the map gets a white border instead of the overlay.
func (j *job) compose(ctx context.Context, tmpl *poster.Template, dims Dimensions) (image.Image, error) {
	if j.req.LabelsEnabled {
		if err := j.injectLabels(ctx, tmpl); err != nil {
			return nil, err
		}
	}

	j.strategy = SelectStrategy(j.req, dims, j.r.smallThreshold)
	mapImg, err := j.acquireMap(ctx, dims)
	if err != nil {
		return nil, err
	}
	j.debug("-map.png", mapImg)

	mb := mapImg.Bounds()
	if err := checkSize("map", mb.Dx(), mb.Dy(), dims.Width, dims.Height); err != nil {
		return nil, err
	}

	if !j.req.LabelsEnabled {
		return j.r.codec.Pad(mapImg, dims.Padding, color.White)
	}

	overlay, err := j.rasterizeOverlay(ctx, tmpl, dims)
	if err != nil {
		return nil, err
	}
	ob := overlay.Bounds()
	if err := checkSize("overlay", ob.Dx(), ob.Dy(), dims.Width, dims.Height); err != nil {
		return nil, err
	}

	out := j.r.codec.Composite(mapImg, overlay, image.Point{})
	j.debug("-combined.png", out)
	return out, nil
}

// acquireMap obtains the map raster with the selected strategy.
func (j *job) acquireMap(ctx context.Context, dims Dimensions) (image.Image, error) {
	r, req := j.r, j.req
	scale := j.scaleFor(dims)
	j.log.Debug("acquiring map",
		zap.Stringer("strategy", j.strategy),
		zap.Stringer("dims", dims),
		zap.Float64("scale", scale))

	var data []byte
	var err error
	switch j.strategy {
	case Direct:
		data, err = r.pool.RenderOnce(ctx, req.MapStyle, dims.Width, dims.Height, req.Bounds, scale, engine.FormatPNG)
	case Pooled:
		data, err = r.pool.Render(ctx, req.MapStyle, dims.Width, dims.Height, req.Bounds, PooledScale(req, dims, scale))
	case Mosaic:
		return j.mosaic(ctx, dims)
	default:
		return nil, fmt.Errorf("%w: unknown strategy %d", ErrRender, j.strategy)
	}
	if err != nil {
		return nil, err
	}
	img, err := r.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return img, nil
}

// mosaic stitches tiles at half the target size and resamples them to
// cover the poster.
func (j *job) mosaic(ctx context.Context, dims Dimensions) (image.Image, error) {
	if j.r.tiles == nil {
		return nil, fmt.Errorf("%w: no tile fetcher configured", ErrRender)
	}
	minW, minH := MosaicMinimums(j.req)
	data, err := j.r.tiles.FetchMosaic(ctx, j.req.Bounds, j.r.tileURL, minW, minH)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	img, err := j.r.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return j.r.codec.Fill(img, dims.Width, dims.Height), nil
}

// rasterizeOverlay renders the label-injected template at the final size
// on a transparent background.
func (j *job) rasterizeOverlay(ctx context.Context, tmpl *poster.Template, dims Dimensions) (image.Image, error) {
	if j.r.overlay == nil {
		return nil, fmt.Errorf("%w: no overlay renderer configured", ErrOverlay)
	}
	if err := tmpl.SetSize(dims.Width, dims.Height); err != nil {
		return nil, err
	}
	svg, err := tmpl.Bytes()
	if err != nil {
		return nil, err
	}
	path, err := j.arts.Write("-overlay.svg", svg)
	if err != nil {
		return nil, err
	}

	png, err := j.r.overlay.Rasterize(ctx, path, dims.Width, dims.Height)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOverlay, err)
	}
	j.debugBytes("-overlay.png", png)

	img, err := j.r.codec.Decode(png)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOverlay, err)
	}
	return img, nil
}

// debug keeps an intermediate image when artifacts are retained. Failures
// are logged only.
func (j *job) debug(suffix string, img image.Image) {
	if !j.arts.Retained() {
		return
	}
	data, err := j.r.codec.Encode(img, raster.PNG, 0)
	if err != nil {
		j.log.Warn("writing debug image", zap.String("suffix", suffix), zap.Error(err))
		return
	}
	j.debugBytes(suffix, data)
}

// debugBytes keeps an already encoded intermediate when retained.
func (j *job) debugBytes(suffix string, data []byte) {
	if !j.arts.Retained() {
		return
	}
	if _, err := j.arts.Write(suffix, data); err != nil {
		j.log.Warn("writing debug image", zap.String("suffix", suffix), zap.Error(err))
	}
}
