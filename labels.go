package mapposter

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/alnah/go-mapposter/internal/fonts"
	"github.com/alnah/go-mapposter/internal/poster"
)

// injectLabels writes the request's labels into the template, colors them
// for the map style and makes sure their fonts cover every character.
// Poster styles with lines get the small header's rules redrawn around the
// measured text.
func (j *job) injectLabels(ctx context.Context, tmpl *poster.Template) error {
	r, req := j.r, j.req
	if r.fonts == nil {
		return fmt.Errorf("%w: no font library configured", ErrFontNotFound)
	}
	mapStyle, err := r.catalog.MapStyle(req.MapStyle)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	posterStyle, err := r.catalog.PosterStyle(req.PosterStyle)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	j.session = r.fonts.NewSession()

	header, err := tmpl.Header()
	if err != nil {
		return err
	}
	small, err := tmpl.SmallHeader()
	if err != nil {
		return err
	}
	text, err := tmpl.Text()
	if err != nil {
		return err
	}

	labels := []struct {
		p     *poster.Placeholder
		value string
	}{
		{header, req.LabelHeader},
		{small, req.LabelSmallHeader},
		{text, req.LabelText},
	}
	for _, l := range labels {
		if l.p == nil {
			continue
		}
		value := l.value
		if posterStyle.UpperCaseLabels {
			value = strings.ToUpper(value)
		}
		l.p.SetText(value)
		l.p.SetFill(mapStyle.LabelColor)
		if err := j.cover(l.p); err != nil {
			return err
		}
	}

	// Faces must be in place before measuring: the browser renders with them.
	tmpl.AddStyle(fonts.FaceCSS(j.session.Faces()))

	if posterStyle.AddLines && small != nil && small.Text() != "" {
		box, err := j.measure(ctx, tmpl, small)
		if err != nil {
			return err
		}
		tmpl.SetSmallHeaderLines(box, r.catalog.StrokeWidth(req.Size), mapStyle.LabelColor)
	}
	return nil
}

// cover resolves the placeholder's font against its text, prepending a
// fallback family when the declared one lacks a glyph.
func (j *job) cover(p *poster.Placeholder) error {
	family := p.FontFamily()
	if family == "" || strings.TrimSpace(p.Text()) == "" {
		return nil
	}
	covered, err := j.session.EnsureCoverage(p.Text(), family)
	if err != nil {
		return fmt.Errorf("%s label: %w", p.ID(), err)
	}
	if covered != family {
		j.log.Debug("font fallback",
			zap.String("label", p.ID()),
			zap.String("declared", family),
			zap.String("resolved", covered))
		p.SetFontFamily(covered)
	}
	return nil
}

// measure asks the browser for the rendered box of a placeholder. It zeroes
// letter-spacing, so the spacing between characters is added back and the
// box recentered.
func (j *job) measure(ctx context.Context, tmpl *poster.Template, p *poster.Placeholder) (poster.BBox, error) {
	if j.r.overlay == nil {
		return poster.BBox{}, fmt.Errorf("%w: no overlay renderer configured", ErrOverlay)
	}
	svg, err := tmpl.Bytes()
	if err != nil {
		return poster.BBox{}, err
	}
	path, err := j.arts.Write("-measure.svg", svg)
	if err != nil {
		return poster.BBox{}, err
	}
	box, err := j.r.overlay.MeasureText(ctx, path, p.ID())
	if err != nil {
		return poster.BBox{}, fmt.Errorf("%w: %v", ErrOverlay, err)
	}

	if n := len([]rune(p.Text())); n > 1 {
		extra := p.LetterSpacing() * float64(n-1)
		box.Width += extra
		box.X -= extra / 2
	}
	return box, nil
}

// coverAll resolves every text element of the template, including the
// static ones, so printed output embeds a font for each glyph. Labels
// already resolved by injectLabels are skipped.
func (j *job) coverAll(tmpl *poster.Template) error {
	if j.r.fonts == nil {
		return fmt.Errorf("%w: no font library configured", ErrFontNotFound)
	}
	if j.session == nil {
		j.session = j.r.fonts.NewSession()
	}
	for _, p := range tmpl.Texts() {
		if j.req.LabelsEnabled && isLabel(p.ID()) {
			continue
		}
		if err := j.cover(p); err != nil {
			return err
		}
	}
	return nil
}

func isLabel(id string) bool {
	return id == poster.HeaderID || id == poster.SmallHeaderID || id == poster.TextID
}
