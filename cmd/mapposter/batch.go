package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	mapposter "github.com/alnah/go-mapposter"
	"github.com/alnah/go-mapposter/internal/yamlutil"
)

// dirPermissions is rwxr-x---: owner full, group read+execute.
const dirPermissions = 0o750

// batchFile is the YAML document read by the batch command. Fields left
// empty in a job take the value from defaults.
type batchFile struct {
	Defaults batchJob   `yaml:"defaults"`
	Jobs     []batchJob `yaml:"jobs"`
}

// batchJob describes one poster, or one mockup when Mockup is set.
type batchJob struct {
	Output         string            `yaml:"output"`
	ID             string            `yaml:"id"`
	MapStyle       string            `yaml:"mapStyle"`
	PosterStyle    string            `yaml:"posterStyle"`
	Size           string            `yaml:"size"`
	Orientation    string            `yaml:"orientation"`
	Bounds         *mapposter.Bounds `yaml:"bounds"`
	ResizeToWidth  int               `yaml:"resizeToWidth"`
	ResizeToHeight int               `yaml:"resizeToHeight"`
	Scale          float64           `yaml:"scale"`
	Format         string            `yaml:"format"`
	Quality        int               `yaml:"quality"`
	Labels         *bool             `yaml:"labels"` // default true
	Header         string            `yaml:"header"`
	SmallHeader    string            `yaml:"smallHeader"`
	Text           string            `yaml:"text"`
	EmbedRaster    bool              `yaml:"embedRaster"`
	ClientTemplate bool              `yaml:"clientTemplate"`
	UseTiles       bool              `yaml:"useTiles"`
	Mockup         *batchMockup      `yaml:"mockup"`
}

// batchMockup places the job's poster into a catalog photo.
type batchMockup struct {
	Photo          string `yaml:"photo"`
	Frame          string `yaml:"frame"`
	ResizeToWidth  int    `yaml:"resizeToWidth"`
	ResizeToHeight int    `yaml:"resizeToHeight"`
}

// BatchResult holds the outcome of one job.
type BatchResult struct {
	Output   string
	Err      error
	Duration time.Duration
	Result   *mapposter.Result
}

// readBatchFile parses and checks a batch file.
func readBatchFile(path string) (*batchFile, error) {
	var bf batchFile
	if err := yamlutil.ReadFileStrict(path, &bf); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrReadBatch, path, err)
	}
	if len(bf.Jobs) == 0 {
		return nil, fmt.Errorf("%w: %s has no jobs", ErrUsage, path)
	}
	seen := make(map[string]int, len(bf.Jobs))
	ids := make(map[string]int, len(bf.Jobs))
	for i := range bf.Jobs {
		bf.Jobs[i] = bf.Jobs[i].withDefaults(bf.Defaults)
		job := bf.Jobs[i]
		if job.Output == "" {
			return nil, fmt.Errorf("%w: job %d has no output", ErrUsage, i+1)
		}
		if job.Bounds == nil {
			return nil, fmt.Errorf("%w: job %d (%s) has no bounds", ErrUsage, i+1, job.Output)
		}
		if prev, ok := seen[job.Output]; ok {
			return nil, fmt.Errorf("%w: jobs %d and %d both write %s", ErrUsage, prev, i+1, job.Output)
		}
		seen[job.Output] = i + 1
		if job.ID != "" {
			if prev, ok := ids[job.ID]; ok {
				return nil, fmt.Errorf("%w: jobs %d and %d share id %q", ErrUsage, prev, i+1, job.ID)
			}
			ids[job.ID] = i + 1
		}
	}
	return &bf, nil
}

// withDefaults fills empty fields from d.
func (j batchJob) withDefaults(d batchJob) batchJob {
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&j.MapStyle, d.MapStyle)
	fill(&j.PosterStyle, d.PosterStyle)
	fill(&j.Size, d.Size)
	fill(&j.Orientation, d.Orientation)
	fill(&j.Format, d.Format)
	if j.Bounds == nil {
		j.Bounds = d.Bounds
	}
	if j.Labels == nil {
		j.Labels = d.Labels
	}
	if j.Quality == 0 {
		j.Quality = d.Quality
	}
	if j.Scale == 0 {
		j.Scale = d.Scale
	}
	if j.ResizeToWidth == 0 && j.ResizeToHeight == 0 {
		j.ResizeToWidth, j.ResizeToHeight = d.ResizeToWidth, d.ResizeToHeight
	}
	if j.Mockup == nil {
		j.Mockup = d.Mockup
	}
	return j
}

// request converts the job to a render request.
func (j batchJob) request() mapposter.RenderRequest {
	format := mapposter.Format(j.Format)
	if format == "" {
		format = formatFromPath(j.Output)
	}
	labels := j.Labels == nil || *j.Labels
	req := mapposter.RenderRequest{
		ID:               j.ID,
		MapStyle:         j.MapStyle,
		PosterStyle:      j.PosterStyle,
		Size:             j.Size,
		Orientation:      j.Orientation,
		ResizeToWidth:    j.ResizeToWidth,
		ResizeToHeight:   j.ResizeToHeight,
		Scale:            j.Scale,
		Format:           format,
		Quality:          j.Quality,
		LabelsEnabled:    labels,
		LabelHeader:      j.Header,
		LabelSmallHeader: j.SmallHeader,
		LabelText:        j.Text,
		EmbedRaster:      j.EmbedRaster,
		ClientTemplate:   j.ClientTemplate,
		UseTileRender:    j.UseTiles,
	}
	if j.Bounds != nil {
		req.Bounds = *j.Bounds
	}
	return req
}

// mapStyles returns the distinct map styles of the jobs, sorted.
func (bf *batchFile) mapStyles() []string {
	set := make(map[string]bool)
	for _, j := range bf.Jobs {
		if j.MapStyle != "" {
			set[j.MapStyle] = true
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// posterRenderer is the part of *mapposter.Renderer the batch uses.
type posterRenderer interface {
	Render(ctx context.Context, req mapposter.RenderRequest) (*mapposter.Result, error)
	RenderMockup(ctx context.Context, m mapposter.MockupRequest) (*mapposter.Result, error)
}

// Compile-time interface implementation check.
var _ posterRenderer = (*mapposter.Renderer)(nil)

// runBatch renders every job of a batch file.
func runBatch(ctx context.Context, args []string, env *Environment) (err error) {
	flags, positional, err := parseBatchFlags(args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return fmt.Errorf("%w: batch takes exactly one job file", ErrUsage)
	}
	bf, err := readBatchFile(positional[0])
	if err != nil {
		return err
	}

	outputDir := flags.outputDir
	if outputDir == "" {
		outputDir = filepath.Dir(positional[0])
	}

	a, err := setup(ctx, flags.common, flags.runtime, env)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, a.Close()) }()
	defer func() { err = errors.Join(err, a.writeMetrics(flags.common.metricsFile)) }()

	a.warm(ctx, bf.mapStyles())

	workers := flags.workers
	if workers <= 0 {
		workers = a.env.Workers
	}
	workers = mapposter.ResolvePoolSize(workers)
	a.logger.Debug("batch starting", zap.Int("jobs", len(bf.Jobs)), zap.Int("workers", workers))

	results := renderBatch(ctx, a.renderer, bf.Jobs, outputDir, workers, env)
	return reportBatch(results, flags.common.quiet, flags.common.verbose, env)
}

// renderBatch runs the jobs with at most workers in flight. Results keep
// the job order. A failed job does not stop the others.
func renderBatch(ctx context.Context, r posterRenderer, jobs []batchJob, outputDir string, workers int, env *Environment) []BatchResult {
	results := make([]BatchResult, len(jobs))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = renderJob(ctx, r, job, outputDir, env)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// renderJob renders and writes one job.
func renderJob(ctx context.Context, r posterRenderer, job batchJob, outputDir string, env *Environment) (result BatchResult) {
	out := job.Output
	if !filepath.IsAbs(out) {
		out = filepath.Join(outputDir, out)
	}
	result = BatchResult{Output: out}
	start := env.Now()
	defer func() { result.Duration = env.Now().Sub(start) }()

	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	var res *mapposter.Result
	var err error
	if job.Mockup != nil {
		res, err = r.RenderMockup(ctx, mapposter.MockupRequest{
			Photo:          job.Mockup.Photo,
			Poster:         job.request(),
			Frame:          job.Mockup.Frame,
			ResizeToWidth:  job.Mockup.ResizeToWidth,
			ResizeToHeight: job.Mockup.ResizeToHeight,
		})
	} else {
		res, err = r.Render(ctx, job.request())
	}
	if err != nil {
		result.Err = err
		return result
	}

	if err := os.MkdirAll(filepath.Dir(out), dirPermissions); err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrWriteOutput, err)
		return result
	}
	if err := writeOutput(out, res.Data); err != nil {
		result.Err = err
		return result
	}
	result.Result = res
	return result
}

// reportBatch prints the results and returns an error naming the failure
// count. The first failure is wrapped so it decides the exit code.
func reportBatch(results []BatchResult, quiet, verbose bool, env *Environment) error {
	var failed int
	var first error
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(env.Stderr, "FAILED %s: %v\n", r.Output, r.Err)
			failed++
			if first == nil {
				first = r.Err
			}
			continue
		}
		if quiet {
			continue
		}
		printResult(env.Stdout, r.Output, r.Result, r.Duration, verbose)
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", len(results)-failed, failed)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed: %w", failed, len(results), first)
	}
	return nil
}
