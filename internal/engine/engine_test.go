package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/alnah/go-mapposter/internal/engine"
	"github.com/alnah/go-mapposter/internal/geo"
)

const stylesheet = `<?xml version="1.0" encoding="utf-8"?>
<Map srs="+init=epsg:3857">
  <Layer name="roads">
    <Datasource>
      <Parameter name="type"><![CDATA[postgis]]></Parameter>
      <Parameter name="dbname"><![CDATA[gis]]></Parameter>
      <Parameter name="host"><![CDATA[db.internal]]></Parameter>
      <Parameter name="port"><![CDATA[4321]]></Parameter>
      <Parameter name="user"><![CDATA[render]]></Parameter>
      <Parameter name="password"><![CDATA[secret]]></Parameter>
    </Datasource>
  </Layer>
</Map>
`

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    engine.Format
		wantErr error
	}{
		{in: "png", want: engine.FormatPNG},
		{in: "jpg", want: engine.FormatJPEG},
		{in: "JPEG", want: engine.FormatJPEG},
		{in: "svg", want: engine.FormatSVG},
		{in: "pdf", want: engine.FormatPDF},
		{in: "webp", wantErr: engine.ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := engine.ParseFormat(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseFormat(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestReplacePostGIS(t *testing.T) {
	t.Parallel()

	got := engine.ReplacePostGIS(stylesheet, engine.PostGIS{Host: "pg.local", Password: "p$1"})

	for _, want := range []string{
		`<Parameter name="dbname"><![CDATA[osm]]></Parameter>`,
		`<Parameter name="host"><![CDATA[pg.local]]></Parameter>`,
		`<Parameter name="port"><![CDATA[5432]]></Parameter>`,
		`<Parameter name="user"><![CDATA[osm]]></Parameter>`,
		`<Parameter name="password"><![CDATA[p$1]]></Parameter>`,
		`<Parameter name="type"><![CDATA[postgis]]></Parameter>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %s", want)
		}
	}
}

func TestAutogenPath(t *testing.T) {
	t.Parallel()

	got := engine.AutogenPath(filepath.Join("styles", "bw.xml"))
	want := filepath.Join("styles", "bw-autogen.xml")
	if got != want {
		t.Errorf("AutogenPath() = %q, want %q", got, want)
	}
}

func TestPrepareStylesheet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "copper.xml")
	if err := os.WriteFile(src, []byte(stylesheet), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := engine.PrepareStylesheet(src, engine.PostGIS{})
	if err != nil {
		t.Fatalf("PrepareStylesheet() error: %v", err)
	}
	if out != filepath.Join(dir, "copper-autogen.xml") {
		t.Errorf("output path = %q", out)
	}
	data, _ := os.ReadFile(out)
	if !strings.Contains(string(data), `<![CDATA[localhost]]>`) {
		t.Errorf("host not substituted: %s", data)
	}
}

func TestPrepareStylesheet_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	notMap := filepath.Join(dir, "bad.xml")
	if err := os.WriteFile(notMap, []byte("<Style/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	broken := filepath.Join(dir, "broken.xml")
	if err := os.WriteFile(broken, []byte("<Map><Layer></Map>"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{notMap, broken, filepath.Join(dir, "absent.xml")} {
		if _, err := engine.PrepareStylesheet(path, engine.PostGIS{}); !errors.Is(err, engine.ErrStylesheet) {
			t.Errorf("PrepareStylesheet(%s) error = %v, want ErrStylesheet", filepath.Base(path), err)
		}
	}
}

func TestDiscoverStyles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"bw.xml", "gray.xml", "bw-autogen.xml", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("<Map/>"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := engine.DiscoverStyles(dir)
	if err != nil {
		t.Fatalf("DiscoverStyles() error: %v", err)
	}
	if want := []string{"bw", "gray"}; !reflect.DeepEqual(got, want) {
		t.Errorf("DiscoverStyles() = %v, want %v", got, want)
	}
}

// TestCommandEngine_Render uses a shell script as the renderer binary and
// checks the arguments it receives.
func TestCommandEngine_Render(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("shell script renderer")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "fake-render.sh")
	argsFile := filepath.Join(dir, "args.txt")
	body := "#!/bin/sh\n" +
		"echo \"$@\" > " + argsFile + "\n" +
		"while [ $# -gt 0 ]; do\n" +
		"  if [ \"$1\" = \"--output\" ]; then printf 'rendered' > \"$2\"; fi\n" +
		"  shift\n" +
		"done\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	style := filepath.Join(dir, "bw.xml")
	if err := os.WriteFile(style, []byte(stylesheet), 0o644); err != nil {
		t.Fatal(err)
	}

	e := &engine.CommandEngine{Command: script, TempDir: dir}
	m, err := e.Load(context.Background(), style, 100, 100)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	defer m.Close()

	m.Resize(400, 600)
	m.SetExtent(geo.Extent{MinX: 1, MinY: 2, MaxX: 3, MaxY: 4})

	data, err := m.Render(context.Background(), engine.RenderOptions{Scale: 2, Format: engine.FormatPNG})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if string(data) != "rendered" {
		t.Errorf("Render() = %q, want %q", data, "rendered")
	}

	args, _ := os.ReadFile(argsFile)
	for _, want := range []string{"--size 400x600", "--scale 2", "--format png", "--bbox 1.000000,2.000000,3.000000,4.000000", "bw-autogen.xml"} {
		if !strings.Contains(string(args), want) {
			t.Errorf("args %q missing %q", args, want)
		}
	}
	if w, h := m.Size(); w != 400 || h != 600 {
		t.Errorf("Size() = %dx%d, want 400x600", w, h)
	}
}

func TestCommandEngine_RenderFailure(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("shell script renderer")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "fail.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho 'datasource down' >&2\nexit 3\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	style := filepath.Join(dir, "bw.xml")
	if err := os.WriteFile(style, []byte(stylesheet), 0o644); err != nil {
		t.Fatal(err)
	}

	e := &engine.CommandEngine{Command: script, TempDir: dir}
	m, err := e.Load(context.Background(), style, 10, 10)
	if err != nil {
		t.Fatal(err)
	}

	_, err = m.Render(context.Background(), engine.RenderOptions{Format: engine.FormatPNG})
	if !errors.Is(err, engine.ErrRender) {
		t.Fatalf("Render() error = %v, want ErrRender", err)
	}
	if !strings.Contains(err.Error(), "datasource down") {
		t.Errorf("error should carry stderr, got: %v", err)
	}
}
