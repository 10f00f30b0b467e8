package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	mapposter "github.com/alnah/go-mapposter"
	"github.com/alnah/go-mapposter/internal/config"
	"github.com/alnah/go-mapposter/internal/engine"
	"github.com/alnah/go-mapposter/internal/styles"
)

// styleListing is what the styles command prints.
type styleListing struct {
	StylesDir    string
	MapStyles    []string // stylesheets found on disk
	Unstyled     []string // stylesheets without label colors in the catalog
	PosterStyles []string
	Photos       []string
}

// listStyles collects the styles available under cfg.
func listStyles(cfg *config.Config) (*styleListing, error) {
	catalog, err := loadCatalog(cfg.Styles.Catalog)
	if err != nil {
		return nil, err
	}
	sheets, err := engine.DiscoverStyles(cfg.Styles.Dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", cfg.Styles.Dir, err)
	}

	l := &styleListing{
		StylesDir:    cfg.Styles.Dir,
		MapStyles:    sheets,
		PosterStyles: catalog.PosterStyleNames(),
	}
	for _, name := range sheets {
		if _, err := catalog.MapStyle(name); errors.Is(err, styles.ErrUnknownMapStyle) {
			l.Unstyled = append(l.Unstyled, name)
		}
	}
	if cfg.Mockups.Dir != "" {
		photos, err := mapposter.LoadPhotoCatalog(cfg.Mockups.Dir)
		if err != nil {
			return nil, err
		}
		l.Photos = photos.Names()
	}
	return l, nil
}

// runStyles lists map styles, poster styles and mockup photos. With
// --prewarm it loads every map style and reports each outcome.
func runStyles(ctx context.Context, args []string, env *Environment) (err error) {
	flags, err := parseStylesFlags(args)
	if err != nil {
		return err
	}
	cfg, _, err := loadConfig(flags.common, env)
	if err != nil {
		return err
	}
	listing, err := listStyles(cfg)
	if err != nil {
		return err
	}
	printStyles(env.Stdout, listing)

	if !flags.prewarm {
		return nil
	}

	a, err := setup(ctx, flags.common, runtimeFlags{}, env)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, a.Close()) }()
	defer func() { err = errors.Join(err, a.writeMetrics(flags.common.metricsFile)) }()

	fmt.Fprintln(env.Stdout)
	fmt.Fprintln(env.Stdout, "Warm-up:")
	var errs []error
	for _, name := range listing.MapStyles {
		if err := a.pool.Prewarm(ctx, []string{name}); err != nil {
			fmt.Fprintf(env.Stdout, "  [ERROR] %s: %v\n", name, err)
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(env.Stdout, "  [OK] %s\n", name)
	}
	return errors.Join(errs...)
}

// printStyles writes the listing.
func printStyles(w io.Writer, l *styleListing) {
	fmt.Fprintf(w, "Map styles (%s):\n", l.StylesDir)
	if len(l.MapStyles) == 0 {
		fmt.Fprintln(w, "  none found")
	}
	unstyled := make(map[string]bool, len(l.Unstyled))
	for _, name := range l.Unstyled {
		unstyled[name] = true
	}
	for _, name := range l.MapStyles {
		if unstyled[name] {
			fmt.Fprintf(w, "  %s (no label colors in catalog)\n", name)
			continue
		}
		fmt.Fprintf(w, "  %s\n", name)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Poster styles: %s\n", strings.Join(l.PosterStyles, ", "))

	if len(l.Photos) > 0 {
		fmt.Fprintf(w, "Mockup photos: %s\n", strings.Join(l.Photos, ", "))
	}
}
