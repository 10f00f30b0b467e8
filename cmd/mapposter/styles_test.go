package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-mapposter/internal/config"
)

// ---------------------------------------------------------------------------
// TestListStyles - Stylesheet discovery against the catalog
// ---------------------------------------------------------------------------

func TestListStyles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"bw.xml", "neon.xml", "bw-autogen.xml", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("<Map/>"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	cfg := config.DefaultConfig()
	cfg.Styles.Dir = dir

	l, err := listStyles(cfg)
	if err != nil {
		t.Fatalf("listStyles() error: %v", err)
	}

	if got := strings.Join(l.MapStyles, ","); got != "bw,neon" {
		t.Errorf("MapStyles = %q, want bw,neon", got)
	}
	if len(l.Unstyled) != 1 || l.Unstyled[0] != "neon" {
		t.Errorf("Unstyled = %v, want [neon]", l.Unstyled)
	}
	if len(l.PosterStyles) == 0 {
		t.Error("PosterStyles should come from the embedded catalog")
	}
	if l.Photos != nil {
		t.Errorf("Photos = %v, want none without a mockups dir", l.Photos)
	}
}

// ---------------------------------------------------------------------------
// TestPrintStyles - Listing output
// ---------------------------------------------------------------------------

func TestPrintStyles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		listing styleListing
		want    []string
		notWant []string
	}{
		{
			name: "full listing",
			listing: styleListing{
				StylesDir:    "/srv/styles",
				MapStyles:    []string{"bw", "neon"},
				Unstyled:     []string{"neon"},
				PosterStyles: []string{"bw", "classic"},
				Photos:       []string{"living-room"},
			},
			want: []string{
				"Map styles (/srv/styles):",
				"  bw\n",
				"neon (no label colors in catalog)",
				"Poster styles: bw, classic",
				"Mockup photos: living-room",
			},
		},
		{
			name:    "nothing on disk",
			listing: styleListing{StylesDir: "styles", PosterStyles: []string{"bw"}},
			want:    []string{"none found"},
			notWant: []string{"Mockup photos"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			printStyles(&buf, &tt.listing)
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out, w) {
					t.Errorf("output should not contain %q:\n%s", w, out)
				}
			}
		})
	}
}
