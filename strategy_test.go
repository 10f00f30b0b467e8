package mapposter

import (
	"errors"
	"math"
	"testing"

	"github.com/alnah/go-mapposter/internal/poster"
)

// ---------------------------------------------------------------------------
// TestResolveDimensions - resize constraints and padding
// ---------------------------------------------------------------------------

func TestResolveDimensions(t *testing.T) {
	t.Parallel()

	declared := poster.Size{Width: 3543, Height: 4961}
	tests := []struct {
		name        string
		rw, rh      int
		wantW       int
		wantH       int
		wantPadding int
	}{
		{"declared", 0, 0, 3543, 4961, 124},
		{"width", 200, 0, 200, 280, 7},
		{"height", 0, 1000, 714, 1000, 24},
		{"width wins", 400, 100, 400, 560, 14},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d, err := ResolveDimensions(declared, tt.rw, tt.rh)
			if err != nil {
				t.Fatalf("ResolveDimensions() error: %v", err)
			}
			if d.Width != tt.wantW || d.Height != tt.wantH {
				t.Errorf("size = %s, want %dx%d", d, tt.wantW, tt.wantH)
			}
			if d.Padding != tt.wantPadding {
				t.Errorf("padding = %d, want %d", d.Padding, tt.wantPadding)
			}
			if d.OriginalWidth != declared.Width || d.OriginalHeight != declared.Height {
				t.Errorf("original = %dx%d, want declared size", d.OriginalWidth, d.OriginalHeight)
			}
		})
	}
}

func TestResolveDimensions_AspectPreserved(t *testing.T) {
	t.Parallel()

	declared := poster.Size{Width: 4724, Height: 3543}
	for _, w := range []int{1, 33, 200, 299, 1024, 4000} {
		d, err := ResolveDimensions(declared, w, 0)
		if err != nil {
			continue // collapsed side, covered below
		}
		exact := float64(w) * float64(declared.Height) / float64(declared.Width)
		if math.Abs(float64(d.Height)-exact) >= 1 {
			t.Errorf("width %d: height %d, exact %.2f", w, d.Height, exact)
		}
	}
}

func TestResolveDimensions_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		declared poster.Size
		rw, rh   int
		wantErr  error
	}{
		{"zero declared", poster.Size{Width: 0, Height: 100}, 0, 0, ErrTemplateParse},
		{"collapsed height", poster.Size{Width: 1000, Height: 10}, 50, 0, ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ResolveDimensions(tt.declared, tt.rw, tt.rh)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestSelectStrategy - strategy decision table
// ---------------------------------------------------------------------------

func TestSelectStrategy(t *testing.T) {
	t.Parallel()

	big := Dimensions{Width: 1000, Height: 1400}
	small := Dimensions{Width: 200, Height: 280}
	tests := []struct {
		name string
		req  RenderRequest
		dims Dimensions
		want Strategy
	}{
		{"no resize", RenderRequest{Format: FormatPNG}, big, Direct},
		{"svg ignores resize", RenderRequest{Format: FormatSVG, ResizeToWidth: 200}, small, Direct},
		{"pdf ignores tiles", RenderRequest{Format: FormatPDF, UseTileRender: true}, big, Direct},
		{"resized", RenderRequest{Format: FormatPNG, ResizeToWidth: 1000}, big, Pooled},
		{"small", RenderRequest{Format: FormatJPEG, ResizeToWidth: 200}, small, Mosaic},
		{"forced tiles", RenderRequest{Format: FormatPNG, ResizeToWidth: 1000, UseTileRender: true}, big, Mosaic},
		{"height only small", RenderRequest{Format: FormatPNG, ResizeToHeight: 280}, Dimensions{Width: 400, Height: 280}, Mosaic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SelectStrategy(tt.req, tt.dims, DefaultSmallThreshold); got != tt.want {
				t.Errorf("SelectStrategy() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestStrategy_String(t *testing.T) {
	t.Parallel()

	for s, want := range map[Strategy]string{Direct: "direct", Pooled: "pooled", Mosaic: "mosaic", Strategy(9): "unknown"} {
		if got := s.String(); got != want {
			t.Errorf("Strategy(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}

// ---------------------------------------------------------------------------
// TestPooledScale - scale follows the resize ratio
// ---------------------------------------------------------------------------

func TestPooledScale(t *testing.T) {
	t.Parallel()

	dims := Dimensions{OriginalWidth: 4000, OriginalHeight: 5000}
	tests := []struct {
		name string
		req  RenderRequest
		want float64
	}{
		{"width", RenderRequest{ResizeToWidth: 1000}, 0.5},
		{"height", RenderRequest{ResizeToHeight: 2500}, 1},
		{"none", RenderRequest{}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := PooledScale(tt.req, dims, 2); got != tt.want {
				t.Errorf("PooledScale() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMosaicMinimums(t *testing.T) {
	t.Parallel()

	if w, h := MosaicMinimums(RenderRequest{ResizeToWidth: 200}); w != 100 || h != 0 {
		t.Errorf("width constraint = (%d, %d), want (100, 0)", w, h)
	}
	if w, h := MosaicMinimums(RenderRequest{ResizeToHeight: 251}); w != 0 || h != 125 {
		t.Errorf("height constraint = (%d, %d), want (0, 125)", w, h)
	}
}

// ---------------------------------------------------------------------------
// TestScalePolicy - default scale computations
// ---------------------------------------------------------------------------

func TestScalePolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		policy ScalePolicy
		w, h   int
		want   float64
	}{
		{"default", DefaultScalePolicy, 3543, 4961, math.Sqrt(3543) / 18.2},
		{"shorter side", DefaultScalePolicy, 900, 400, 20 / 18.2},
		{"zero divisor", SqrtScale{}, 400, 400, 20 / 18.2},
		{"custom divisor", SqrtScale{Divisor: 10}, 400, 900, 2},
		{"fixed", FixedScale(1.5), 10, 10, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.policy.DefaultScale(tt.w, tt.h); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("DefaultScale(%d, %d) = %v, want %v", tt.w, tt.h, got, tt.want)
			}
		})
	}
}
