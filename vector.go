package mapposter

import (
	"context"
	"errors"
	"fmt"

	"github.com/alnah/go-mapposter/internal/engine"
	"github.com/alnah/go-mapposter/internal/fonts"
	"github.com/alnah/go-mapposter/internal/poster"
)

// paddingColor fills the border of label-less posters.
const paddingColor = "#ffffff"

// renderSVG layers the engine's SVG map under the client template.
func (j *job) renderSVG(ctx context.Context) (*Result, error) {
	tmpl, name, dims, err := j.layeredSVG(ctx, false)
	if err != nil {
		return nil, err
	}
	data, err := tmpl.Bytes()
	if err != nil {
		return nil, err
	}
	return &Result{
		ID:       j.req.ID,
		Data:     data,
		Format:   FormatSVG,
		Width:    dims.Width,
		Height:   dims.Height,
		Strategy: j.strategy,
		Template: name,
		Fonts:    j.faces(),
	}, nil
}

// layeredSVG builds the vector poster: the client template with labels
// injected, or only padding rects when labels are off, with the map nested
// as its bottom layer. For print, the static texts of the template are
// resolved too, before the map adds its own.
func (j *job) layeredSVG(ctx context.Context, forPrint bool) (*poster.Template, string, Dimensions, error) {
	tmpl, name, dims, err := j.loadTemplate(true)
	if err != nil {
		return nil, "", Dimensions{}, err
	}

	if j.req.LabelsEnabled {
		if err := j.injectLabels(ctx, tmpl); err != nil {
			return nil, "", Dimensions{}, err
		}
		if forPrint {
			if err := j.coverAll(tmpl); err != nil {
				return nil, "", Dimensions{}, err
			}
			tmpl.AddStyle(fonts.FaceCSS(j.session.Faces()))
		}
	} else {
		tmpl.ClearContent()
		tmpl.AddPaddingRects(dims.Width, dims.Height, dims.Padding, paddingColor)
	}

	j.strategy = SelectStrategy(j.req, dims, j.r.smallThreshold)
	mapSVG, err := j.r.pool.RenderOnce(ctx, j.req.MapStyle, dims.Width, dims.Height, j.req.Bounds, j.scaleFor(dims), engine.FormatSVG)
	if err != nil {
		return nil, "", Dimensions{}, err
	}
	j.debugBytes("-map.svg", mapSVG)

	if err := tmpl.EmbedMap(mapSVG); err != nil {
		if errors.Is(err, poster.ErrMapMismatch) {
			return nil, "", Dimensions{}, fmt.Errorf("%w: %v", ErrDimensionMismatch, err)
		}
		return nil, "", Dimensions{}, err
	}
	return tmpl, name, dims, nil
}
