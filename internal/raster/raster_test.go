package raster_test

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/alnah/go-mapposter/internal/raster"
)

var (
	red   = color.NRGBA{R: 255, A: 255}
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    raster.Format
		wantErr error
	}{
		{in: "png", want: raster.PNG},
		{in: "jpg", want: raster.JPEG},
		{in: "JPEG", want: raster.JPEG},
		{in: "tiff", want: raster.TIFF},
		{in: "gif", want: raster.GIF},
		{in: "webp", wantErr: raster.ErrUnsupportedFormat},
		{in: "heif", wantErr: raster.ErrUnsupportedFormat},
		{in: "svg", wantErr: raster.ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := raster.ParseFormat(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseFormat(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCodec_EncodeRoundTrip(t *testing.T) {
	t.Parallel()

	var c raster.Codec
	img := imaging.New(40, 30, red)

	for _, f := range []raster.Format{raster.PNG, raster.JPEG, raster.TIFF, raster.GIF} {
		t.Run(string(f), func(t *testing.T) {
			t.Parallel()

			data, err := c.Encode(img, f, 80)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			meta, err := c.Metadata(data)
			if err != nil {
				t.Fatalf("Metadata() error: %v", err)
			}
			if meta.Width != 40 || meta.Height != 30 || meta.Format != string(f) {
				t.Errorf("Metadata() = %+v", meta)
			}
		})
	}

	if _, err := c.Encode(img, raster.Format("webp"), 0); !errors.Is(err, raster.ErrUnsupportedFormat) {
		t.Errorf("Encode(webp) error = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := c.Metadata([]byte("nope")); !errors.Is(err, raster.ErrDecode) {
		t.Errorf("Metadata(garbage) error = %v, want ErrDecode", err)
	}
}

func TestCodec_Pad(t *testing.T) {
	t.Parallel()

	var c raster.Codec
	img := imaging.New(200, 300, red)

	got, err := c.Pad(img, 7, white)
	if err != nil {
		t.Fatal(err)
	}
	if got.Bounds() != image.Rect(0, 0, 200, 300) {
		t.Fatalf("Pad() bounds = %v", got.Bounds())
	}

	checks := []struct {
		x, y int
		want color.NRGBA
	}{
		{0, 0, white},
		{6, 150, white},
		{7, 7, red},
		{192, 292, red},
		{193, 150, white},
		{100, 293, white},
	}
	for _, ck := range checks {
		if px := got.NRGBAAt(ck.x, ck.y); px != ck.want {
			t.Errorf("pixel (%d,%d) = %v, want %v", ck.x, ck.y, px, ck.want)
		}
	}
}

func TestCodec_Extract(t *testing.T) {
	t.Parallel()

	var c raster.Codec
	img := imaging.New(10, 10, red)

	got, err := c.Extract(img, image.Rect(2, 2, 6, 8))
	if err != nil {
		t.Fatal(err)
	}
	if got.Bounds().Dx() != 4 || got.Bounds().Dy() != 6 {
		t.Errorf("Extract() size = %v", got.Bounds())
	}

	if _, err := c.Extract(img, image.Rect(5, 5, 20, 20)); !errors.Is(err, raster.ErrBounds) {
		t.Errorf("Extract(out of bounds) error = %v, want ErrBounds", err)
	}
}

func TestCodec_Composite(t *testing.T) {
	t.Parallel()

	var c raster.Codec
	base := imaging.New(4, 4, red)
	overlay := imaging.New(4, 4, color.NRGBA{})
	overlay.SetNRGBA(1, 1, white)

	got := c.Composite(base, overlay, image.Pt(0, 0))
	if px := got.NRGBAAt(0, 0); px != red {
		t.Errorf("transparent overlay changed base: %v", px)
	}
	if px := got.NRGBAAt(1, 1); px != white {
		t.Errorf("opaque overlay pixel = %v, want white", px)
	}
}

func TestCodec_Resize(t *testing.T) {
	t.Parallel()

	var c raster.Codec
	got := c.Resize(imaging.New(400, 600, red), 200, 0)
	if got.Bounds().Dx() != 200 || got.Bounds().Dy() != 300 {
		t.Errorf("Resize() = %v", got.Bounds())
	}
}

func TestCodec_Fill(t *testing.T) {
	t.Parallel()

	var c raster.Codec
	got := c.Fill(imaging.New(512, 300, red), 200, 200)
	if got.Bounds().Dx() != 200 || got.Bounds().Dy() != 200 {
		t.Errorf("Fill() = %v, want 200x200", got.Bounds())
	}
}
