package mapposter

import "math"

// DefaultSmallThreshold is the resize target, in pixels, under which the
// tile mosaic replaces the engine.
const DefaultSmallThreshold = 300

// Strategy is the way a request obtains its map raster.
type Strategy int

// Strategies.
const (
	// Direct renders once with an ephemeral engine map at the final size.
	Direct Strategy = iota
	// Pooled renders with the style's shared engine map.
	Pooled
	// Mosaic stitches pre-rendered tiles instead of running the engine.
	Mosaic
)

// String returns the strategy name used in logs and metrics.
func (s Strategy) String() string {
	switch s {
	case Direct:
		return "direct"
	case Pooled:
		return "pooled"
	case Mosaic:
		return "mosaic"
	default:
		return "unknown"
	}
}

// SelectStrategy picks the strategy for a request. It has no side effects.
// Vector formats and requests without a resize render directly; resized
// requests use the pool unless tiles are forced or a side falls below
// threshold.
func SelectStrategy(req RenderRequest, dims Dimensions, threshold int) Strategy {
	if req.Format.IsVector() || !req.hasResize() {
		return Direct
	}
	if req.UseTileRender || dims.Width < threshold || dims.Height < threshold {
		return Mosaic
	}
	return Pooled
}

// PooledScale adjusts scale to the resize ratio, so strokes and labels
// look the same at every target size.
func PooledScale(req RenderRequest, dims Dimensions, scale float64) float64 {
	switch {
	case req.ResizeToWidth > 0:
		return scale * float64(req.ResizeToWidth) / float64(dims.OriginalWidth)
	case req.ResizeToHeight > 0:
		return scale * float64(req.ResizeToHeight) / float64(dims.OriginalHeight)
	default:
		return scale
	}
}

// MosaicMinimums returns the minimum mosaic size requested from the tile
// service. Half the target is enough since the result is resampled anyway.
func MosaicMinimums(req RenderRequest) (minWidth, minHeight int) {
	if req.ResizeToWidth > 0 {
		return req.ResizeToWidth / 2, 0
	}
	return 0, req.ResizeToHeight / 2
}

// ScalePolicy chooses the render scale when a request leaves it unset.
type ScalePolicy interface {
	DefaultScale(width, height int) float64
}

// SqrtScale grows the scale with the square root of the shorter side.
type SqrtScale struct {
	Divisor float64
}

// DefaultScalePolicy is sqrt(min(w, h)) / 18.2.
var DefaultScalePolicy ScalePolicy = SqrtScale{Divisor: 18.2}

// DefaultScale implements ScalePolicy.
func (s SqrtScale) DefaultScale(width, height int) float64 {
	d := s.Divisor
	if d <= 0 {
		d = 18.2
	}
	return math.Sqrt(float64(min(width, height))) / d
}

// FixedScale returns the same scale for every size.
type FixedScale float64

// DefaultScale implements ScalePolicy.
func (f FixedScale) DefaultScale(int, int) float64 {
	return float64(f)
}
