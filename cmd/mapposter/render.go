package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	mapposter "github.com/alnah/go-mapposter"
)

// Sentinel errors for CLI output.
var (
	ErrWriteOutput = errors.New("failed to write output")
	ErrReadBatch   = errors.New("failed to read batch file")
)

// filePermissions is rw-r--r--: owner read+write, others read.
const filePermissions = 0o644

// setup loads configuration, applies runtime flags and wires the app.
func setup(ctx context.Context, common commonFlags, rt runtimeFlags, env *Environment) (*app, error) {
	cfg, ec, err := loadConfig(common, env)
	if err != nil {
		return nil, err
	}
	rt.apply(cfg)

	logger, err := newLogger(cfg, common, env)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return newApp(ctx, cfg, ec, logger)
}

// runRender renders one poster to --output.
func runRender(ctx context.Context, args []string, env *Environment) (err error) {
	flags, positional, err := parseRenderFlags(args)
	if err != nil {
		return err
	}
	if len(positional) > 0 {
		return fmt.Errorf("%w: unexpected argument %q", ErrUsage, positional[0])
	}
	if flags.output == "" {
		return fmt.Errorf("%w: --output is required", ErrUsage)
	}
	req, err := flags.poster.request(flags.output)
	if err != nil {
		return err
	}
	req.ResizeToWidth, req.ResizeToHeight = flags.width, flags.height

	a, err := setup(ctx, flags.common, flags.runtime, env)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, a.Close()) }()
	defer func() { err = errors.Join(err, a.writeMetrics(flags.common.metricsFile)) }()

	start := env.Now()
	res, err := a.renderer.Render(ctx, req)
	if err != nil {
		return err
	}
	if err := writeOutput(flags.output, res.Data); err != nil {
		return err
	}

	if !flags.common.quiet {
		printResult(env.Stdout, flags.output, res, env.Now().Sub(start), flags.common.verbose)
	}
	return nil
}

// printResult reports a written poster.
func printResult(w io.Writer, path string, res *mapposter.Result, took time.Duration, verbose bool) {
	if !verbose {
		fmt.Fprintf(w, "Created %s\n", path)
		return
	}
	fmt.Fprintf(w, "Created %s (%dx%d %s, %s, %v)\n",
		path, res.Width, res.Height, res.Format, res.Strategy, took.Round(time.Millisecond))
	if res.Template != "" {
		fmt.Fprintf(w, "  template: %s\n", res.Template)
	}
	for _, f := range res.Fonts {
		fmt.Fprintf(w, "  font: %s\n", f.Family)
	}
}
