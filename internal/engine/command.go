package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/alnah/go-mapposter/internal/geo"
	"github.com/alnah/go-mapposter/internal/process"
)

// DefaultCommand is the renderer binary looked up on PATH.
const DefaultCommand = "mapnik-render"

// CommandEngine drives an external renderer binary. Each render runs
//
//	{Command} {Args...} --stylesheet FILE --bbox MINX,MINY,MAXX,MAXY
//	    --size WxH --scale S --format F --output FILE
//
// and reads the output file back.
type CommandEngine struct {
	Command string   // renderer binary (default: DefaultCommand)
	Args    []string // extra leading arguments
	PostGIS PostGIS
	TempDir string // where render outputs are written (default: os.TempDir)
}

// Compile-time interface checks.
var (
	_ Engine = (*CommandEngine)(nil)
	_ Map    = (*commandMap)(nil)
)

// Load prepares the stylesheet and returns a map bound to it.
func (e *CommandEngine) Load(ctx context.Context, stylesheetPath string, width, height int) (Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prepared, err := PrepareStylesheet(stylesheetPath, e.PostGIS)
	if err != nil {
		return nil, err
	}

	return &commandMap{
		engine:     e,
		stylesheet: prepared,
		width:      width,
		height:     height,
	}, nil
}

func (e *CommandEngine) command() string {
	if e.Command != "" {
		return e.Command
	}
	return DefaultCommand
}

type commandMap struct {
	engine     *CommandEngine
	stylesheet string
	width      int
	height     int
	extent     geo.Extent
}

func (m *commandMap) Resize(width, height int) {
	m.width, m.height = width, height
}

func (m *commandMap) SetExtent(ext geo.Extent) {
	m.extent = ext
}

func (m *commandMap) Size() (int, int) {
	return m.width, m.height
}

func (m *commandMap) Render(ctx context.Context, opts RenderOptions) ([]byte, error) {
	format := opts.Format
	if format == "" {
		format = FormatPNG
	}
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}

	out, err := os.CreateTemp(m.engine.TempDir, "mapposter-map-*."+string(format))
	if err != nil {
		return nil, fmt.Errorf("%w: creating output file: %v", ErrRender, err)
	}
	outPath := out.Name()
	_ = out.Close()
	defer func() { _ = os.Remove(outPath) }()

	args := append([]string{}, m.engine.Args...)
	args = append(args,
		"--stylesheet", m.stylesheet,
		"--bbox", m.extent.String(),
		"--size", fmt.Sprintf("%dx%d", m.width, m.height),
		"--scale", strconv.FormatFloat(scale, 'f', -1, 64),
		"--format", string(format),
		"--output", outPath,
	)

	cmd := exec.CommandContext(ctx, m.engine.command(), args...) // #nosec G204 -- configured renderer
	process.Isolate(cmd)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v: %s", ErrRender, err, strings.TrimSpace(stderr.String()))
	}

	data, err := os.ReadFile(outPath) // #nosec G304 -- created above
	if err != nil {
		return nil, fmt.Errorf("%w: reading output: %v", ErrRender, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: renderer produced empty output", ErrRender)
	}
	return data, nil
}

// Close is a no-op: the generated stylesheet is shared by every map of the
// same style and is rewritten on the next Load.
func (m *commandMap) Close() error {
	return nil
}
