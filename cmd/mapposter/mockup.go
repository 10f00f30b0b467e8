package main

import (
	"context"
	"errors"
	"fmt"

	mapposter "github.com/alnah/go-mapposter"
)

// runMockup renders a poster into a catalog photo and writes a PNG.
func runMockup(ctx context.Context, args []string, env *Environment) (err error) {
	flags, positional, err := parseMockupFlags(args)
	if err != nil {
		return err
	}
	if len(positional) > 0 {
		return fmt.Errorf("%w: unexpected argument %q", ErrUsage, positional[0])
	}
	if flags.output == "" || flags.photo == "" {
		return fmt.Errorf("%w: --output and --photo are required", ErrUsage)
	}
	req, err := flags.poster.request("")
	if err != nil {
		return err
	}

	a, err := setup(ctx, flags.common, flags.runtime, env)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, a.Close()) }()
	defer func() { err = errors.Join(err, a.writeMetrics(flags.common.metricsFile)) }()

	start := env.Now()
	res, err := a.renderer.RenderMockup(ctx, mapposter.MockupRequest{
		Photo:          flags.photo,
		Poster:         req,
		Frame:          flags.frame,
		ResizeToWidth:  flags.width,
		ResizeToHeight: flags.height,
	})
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
