package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	mapposter "github.com/alnah/go-mapposter"
)

// Sentinel errors for argument handling.
var (
	ErrUsage       = errors.New("invalid usage")
	ErrInvalidBBox = errors.New("invalid bounding box")
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config      string
	envFile     string
	metricsFile string
	quiet       bool
	verbose     bool
}

// runtimeFlags override the pool and temp settings of the config.
type runtimeFlags struct {
	lockTimeout time.Duration
	skipWarmup  bool
	retain      bool
}

// posterFlags describe one poster.
type posterFlags struct {
	id          string
	mapStyle    string
	posterStyle string
	size        string
	orientation string
	bbox        string
	scale       float64
	format      string
	quality     int

	header      string
	smallHeader string
	text        string
	noLabels    bool

	embedRaster    bool
	clientTemplate bool
	tiles          bool
}

// renderFlags holds all flags for the render command.
type renderFlags struct {
	common  commonFlags
	runtime runtimeFlags
	poster  posterFlags
	output  string
	width   int
	height  int
}

// batchFlags holds flags for the batch command.
type batchFlags struct {
	common    commonFlags
	runtime   runtimeFlags
	workers   int
	outputDir string
}

// mockupFlags holds flags for the mockup command. --width and --height
// resize the finished photo; the poster geometry comes from the photo.
type mockupFlags struct {
	common  commonFlags
	runtime runtimeFlags
	poster  posterFlags
	output  string
	photo   string
	frame   string
	width   int
	height  int
}

// stylesFlags holds flags for the styles command.
type stylesFlags struct {
	common  commonFlags
	prewarm bool
}

// doctorFlags holds flags for the doctor command.
type doctorFlags struct {
	common commonFlags
	json   bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.StringVar(&f.envFile, "env-file", "", "load MAPPOSTER_* variables from this file (default: ./.env)")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging and timings")
}

// addRuntimeFlags adds pool and temp-file flags to a FlagSet.
func addRuntimeFlags(fs *flag.FlagSet, f *runtimeFlags) {
	fs.DurationVar(&f.lockTimeout, "lock-timeout", 0, "max wait for a busy style (e.g. 30s)")
	fs.BoolVar(&f.skipWarmup, "skip-warmup", false, "load styles on first use")
	fs.BoolVar(&f.retain, "save-temp-files", false, "keep temp artifacts and debug images")
}

// addPosterFlags adds the poster description flags to a FlagSet.
func addPosterFlags(fs *flag.FlagSet, f *posterFlags) {
	fs.StringVar(&f.id, "id", "", "request id prefixing temp files (default: random UUID)")
	fs.StringVarP(&f.mapStyle, "map-style", "m", "bw", "map style")
	fs.StringVarP(&f.posterStyle, "poster-style", "p", "bw", "poster style")
	fs.StringVarP(&f.size, "size", "s", "50x70cm", "poster size: 50x70cm, 12x18inch, A4")
	fs.StringVar(&f.orientation, "orientation", "", "portrait or landscape")
	fs.StringVarP(&f.bbox, "bbox", "b", "", "west,south,east,north in degrees")
	fs.Float64Var(&f.scale, "scale", 0, "map scale factor (0 = automatic)")
	fs.StringVarP(&f.format, "format", "f", "", "png, jpeg, tiff, gif, svg, pdf (default: from output extension)")
	fs.IntVar(&f.quality, "quality", 0, "JPEG quality 1-100")
	fs.StringVar(&f.header, "header", "", "label header")
	fs.StringVar(&f.smallHeader, "small-header", "", "label small header")
	fs.StringVar(&f.text, "text", "", "label text")
	fs.BoolVar(&f.noLabels, "no-labels", false, "hide the label area")
	fs.BoolVar(&f.embedRaster, "embed-raster", false, "PDF: embed a raster poster instead of vector layers")
	fs.BoolVar(&f.clientTemplate, "client-template", false, "ignore server template variants")
	fs.BoolVar(&f.tiles, "tiles", false, "draw resized posters from map tiles")
}

// newFlagSet returns a FlagSet that reports errors instead of exiting.
func newFlagSet(name string, usage func(io.Writer)) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() { usage(os.Stderr) }
	return fs
}

// parseError wraps flag errors as usage errors. flag.ErrHelp passes
// through so -h exits cleanly.
func parseError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUsage, err)
}

// parseRenderFlags parses render command flags.
func parseRenderFlags(args []string) (*renderFlags, []string, error) {
	f := &renderFlags{}
	fs := newFlagSet("render", printRenderUsage)

	fs.StringVarP(&f.output, "output", "o", "", "output file")
	fs.IntVar(&f.width, "width", 0, "resize the poster to this width in pixels")
	fs.IntVar(&f.height, "height", 0, "resize the poster to this height in pixels")
	addPosterFlags(fs, &f.poster)
	addRuntimeFlags(fs, &f.runtime)
	addCommonFlags(fs, &f.common)

	if err := fs.Parse(args); err != nil {
		return nil, nil, parseError(err)
	}
	return f, fs.Args(), nil
}

// parseBatchFlags parses batch command flags.
func parseBatchFlags(args []string) (*batchFlags, []string, error) {
	f := &batchFlags{}
	fs := newFlagSet("batch", printBatchUsage)

	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel renders (0 = auto)")
	fs.StringVarP(&f.outputDir, "output-dir", "o", "", "directory for relative job outputs")
	addRuntimeFlags(fs, &f.runtime)
	addCommonFlags(fs, &f.common)

	if err := fs.Parse(args); err != nil {
		return nil, nil, parseError(err)
	}
	return f, fs.Args(), nil
}

// parseMockupFlags parses mockup command flags.
func parseMockupFlags(args []string) (*mockupFlags, []string, error) {
	f := &mockupFlags{}
	fs := newFlagSet("mockup", printMockupUsage)

	fs.StringVarP(&f.output, "output", "o", "", "output PNG file")
	fs.StringVar(&f.photo, "photo", "", "photo name from the mockup catalog")
	fs.StringVar(&f.frame, "frame", "", "frame around the poster: black")
	fs.IntVar(&f.width, "width", 0, "resize the photo to this width")
	fs.IntVar(&f.height, "height", 0, "resize the photo to this height")
	addPosterFlags(fs, &f.poster)
	addRuntimeFlags(fs, &f.runtime)
	addCommonFlags(fs, &f.common)

	if err := fs.Parse(args); err != nil {
		return nil, nil, parseError(err)
	}
	return f, fs.Args(), nil
}

// parseStylesFlags parses styles command flags.
func parseStylesFlags(args []string) (*stylesFlags, error) {
	f := &stylesFlags{}
	fs := newFlagSet("styles", printStylesUsage)

	fs.BoolVar(&f.prewarm, "prewarm", false, "load every style to check it renders")
	addCommonFlags(fs, &f.common)

	if err := fs.Parse(args); err != nil {
		return nil, parseError(err)
	}
	return f, nil
}

// parseDoctorFlags parses doctor command flags.
func parseDoctorFlags(args []string) (*doctorFlags, error) {
	f := &doctorFlags{}
	fs := newFlagSet("doctor", printDoctorUsage)

	fs.BoolVar(&f.json, "json", false, "machine-readable output")
	addCommonFlags(fs, &f.common)

	if err := fs.Parse(args); err != nil {
		return nil, parseError(err)
	}
	return f, nil
}

// parseBBox parses "west,south,east,north".
func parseBBox(s string) (mapposter.Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return mapposter.Bounds{}, fmt.Errorf("%w: %q (want west,south,east,north)", ErrInvalidBBox, s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return mapposter.Bounds{}, fmt.Errorf("%w: %q is not a number", ErrInvalidBBox, p)
		}
		v[i] = f
	}
	b := mapposter.Bounds{
		SouthWest: mapposter.LatLng{Lat: v[1], Lng: v[0]},
		NorthEast: mapposter.LatLng{Lat: v[3], Lng: v[2]},
	}
	if err := b.Validate(); err != nil {
		return mapposter.Bounds{}, fmt.Errorf("%w: %v", ErrInvalidBBox, err)
	}
	return b, nil
}

// formatFromPath infers the output format from a file extension.
// Returns "" when the extension is unknown.
func formatFromPath(path string) mapposter.Format {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return ""
	}
	f, err := mapposter.ParseFormat(path[i+1:])
	if err != nil {
		return ""
	}
	return f
}

// request builds the render request described by the poster flags.
// output supplies the format when --format is not given.
func (f *posterFlags) request(output string) (mapposter.RenderRequest, error) {
	if f.bbox == "" {
		return mapposter.RenderRequest{}, fmt.Errorf("%w: --bbox is required", ErrUsage)
	}
	bounds, err := parseBBox(f.bbox)
	if err != nil {
		return mapposter.RenderRequest{}, err
	}

	format := mapposter.Format(f.format)
	if format == "" {
		format = formatFromPath(output)
	}

	return mapposter.RenderRequest{
		ID:               f.id,
		MapStyle:         f.mapStyle,
		PosterStyle:      f.posterStyle,
		Size:             f.size,
		Orientation:      f.orientation,
		Bounds:           bounds,
		Scale:            f.scale,
		Format:           format,
		Quality:          f.quality,
		LabelsEnabled:    !f.noLabels,
		LabelHeader:      f.header,
		LabelSmallHeader: f.smallHeader,
		LabelText:        f.text,
		EmbedRaster:      f.embedRaster,
		ClientTemplate:   f.clientTemplate,
		UseTileRender:    f.tiles,
	}, nil
}
