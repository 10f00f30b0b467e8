package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	mapposter "github.com/alnah/go-mapposter"
	"github.com/alnah/go-mapposter/internal/browser"
	"github.com/alnah/go-mapposter/internal/config"
	"github.com/alnah/go-mapposter/internal/engine"
	"github.com/alnah/go-mapposter/internal/fileutil"
	"github.com/alnah/go-mapposter/internal/fonts"
	"github.com/alnah/go-mapposter/internal/logging"
	"github.com/alnah/go-mapposter/internal/mosaic"
	"github.com/alnah/go-mapposter/internal/poster"
	"github.com/alnah/go-mapposter/internal/styles"
)

// redisPingTimeout bounds the startup check of the tile cache.
const redisPingTimeout = 3 * time.Second

// loadConfig resolves configuration in priority order: environment
// (including the .env file), config file, defaults. Command flags are
// applied on top by the caller.
func loadConfig(common commonFlags, env *Environment) (*config.Config, *envConfig, error) {
	if err := loadDotEnv(common.envFile, env); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if !common.quiet {
		warnUnknownEnvVars(env.Stderr)
	}
	ec := loadEnvConfig()

	path := common.config
	if path == "" {
		path = ec.ConfigPath
	}
	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}

	applyEnvConfig(ec, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, ec, nil
}

// apply overrides config values with the flags that were set.
func (f runtimeFlags) apply(cfg *config.Config) {
	if f.lockTimeout > 0 {
		cfg.Pool.LockTimeout = f.lockTimeout
	}
	if f.skipWarmup {
		cfg.Styles.SkipWarmup = true
	}
	if f.retain {
		cfg.Temp.Retain = true
	}
}

// newLogger builds the zap logger. --verbose and --quiet win over the
// configured level.
func newLogger(cfg *config.Config, common commonFlags, env *Environment) (*zap.Logger, error) {
	level := cfg.Log.Level
	switch {
	case common.verbose:
		level = "debug"
	case common.quiet:
		level = "error"
	}
	return logging.New(logging.Options{
		Level:       level,
		File:        cfg.Log.File,
		Development: cfg.Log.Development,
	}, env.Stderr)
}

// app holds the long-lived pieces a command renders with.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *mapposter.Metrics
	catalog  *styles.Catalog
	pool     *mapposter.StylePool
	renderer *mapposter.Renderer
	browser  *browser.Browser
	redis    *mosaic.RedisCache
	env      *envConfig
}

// newApp wires the renderer from cfg. Styles are not loaded here; call
// warm for that.
func newApp(ctx context.Context, cfg *config.Config, ec *envConfig, logger *zap.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, env: ec, logger: logger, registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = mapposter.NewMetrics(a.registry)

	catalog, err := loadCatalog(cfg.Styles.Catalog)
	if err != nil {
		return nil, err
	}
	a.catalog = catalog

	templates, err := poster.NewResolver(cfg.Posters.Dir)
	if err != nil {
		return nil, err
	}

	tempDir := cfg.Temp.Dir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if err := os.MkdirAll(tempDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}

	eng := &engine.CommandEngine{
		Command: cfg.Engine.Command,
		Args:    cfg.Engine.Args,
		PostGIS: cfg.Engine.PostGIS,
		TempDir: tempDir,
	}
	a.pool = mapposter.NewStylePool(eng, cfg.Styles.Dir,
		mapposter.WithLockTimeout(cfg.Pool.LockTimeout),
		mapposter.WithPoolLogger(logger.Named("pool")),
		mapposter.WithPoolMetrics(a.metrics),
	)

	fetcher := &mosaic.Fetcher{
		Concurrency: cfg.Tiles.Concurrency,
		UserAgent:   cfg.Tiles.UserAgent,
		OnCache:     a.metrics.ObserveTileCache,
	}
	if cfg.Tiles.RedisAddr != "" {
		a.redis = mosaic.DialRedis(cfg.Tiles.RedisAddr, ec.RedisPassword, cfg.Tiles.RedisDB, cfg.Tiles.CacheTTL)
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		err := a.redis.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Warn("tile cache unreachable, using memory cache",
				zap.String("addr", cfg.Tiles.RedisAddr), zap.Error(err))
			_ = a.redis.Close()
			a.redis = nil
		}
	}
	if a.redis != nil {
		fetcher.Cache = a.redis
	} else {
		fetcher.Cache = mosaic.NewMemoryCache(0)
	}

	a.browser = browser.New(browser.Options{
		Bin:       cfg.Browser.Bin,
		NoSandbox: cfg.Browser.NoSandbox,
		Timeout:   cfg.Browser.Timeout,
	})

	opts := []mapposter.Option{
		mapposter.WithLogger(logger),
		mapposter.WithMetrics(a.metrics),
		mapposter.WithCatalog(catalog),
		mapposter.WithTemplates(templates),
		mapposter.WithOverlay(a.browser),
		mapposter.WithTiles(fetcher, cfg.Tiles.URLTemplate),
		mapposter.WithTempDir(tempDir, cfg.Temp.Retain),
		mapposter.WithSmallThreshold(cfg.Pool.SmallThreshold),
	}

	if lib, err := loadFonts(cfg.Fonts); err != nil {
		logger.Warn("fonts unavailable, labelled posters will fail", zap.Error(err))
	} else {
		opts = append(opts, mapposter.WithFonts(lib))
	}

	if cfg.Mockups.Dir != "" {
		photos, err := mapposter.LoadPhotoCatalog(cfg.Mockups.Dir)
		if err != nil {
			return nil, err
		}
		opts = append(opts, mapposter.WithMockups(photos))
	}

	a.renderer, err = mapposter.NewRenderer(a.pool, opts...)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// loadCatalog returns the configured style catalog or the built-in one.
func loadCatalog(path string) (*styles.Catalog, error) {
	if path == "" {
		return styles.Default()
	}
	return styles.Load(path)
}

// loadFonts scans the fonts directory.
func loadFonts(cfg config.FontsConfig) (*fonts.Library, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("%w: fonts.dir is empty", mapposter.ErrFontNotFound)
	}
	if info, err := os.Stat(cfg.Dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", mapposter.ErrFontNotFound, cfg.Dir)
	}
	return fonts.LoadLibrary(cfg.Dir, cfg.Fallback)
}

// warm loads styles into the pool unless warm-up is disabled. Failures
// are logged; the failing style is retried on first use.
func (a *app) warm(ctx context.Context, styleNames []string) {
	if a.cfg.Styles.SkipWarmup || len(styleNames) == 0 {
		return
	}
	start := time.Now()
	if err := a.pool.Prewarm(ctx, styleNames); err != nil {
		a.logger.Warn("style warm-up incomplete", zap.Error(err))
	}
	a.logger.Info("styles loaded",
		zap.Strings("styles", a.pool.Slots()),
		zap.Duration("took", time.Since(start)))
}

// writeMetrics dumps the registry in the Prometheus text format.
func (a *app) writeMetrics(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, a.registry); err != nil {
		return fmt.Errorf("%w: metrics: %v", ErrWriteOutput, err)
	}
	return nil
}

// Close releases the pool, the browser and the tile cache.
func (a *app) Close() error {
	var errs []error
	if a.renderer != nil {
		errs = append(errs, a.renderer.Close())
	} else if a.pool != nil {
		errs = append(errs, a.pool.Close())
	}
	if a.browser != nil {
		errs = append(errs, a.browser.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	_ = a.logger.Sync()
	return errors.Join(errs...)
}

// writeOutput writes data atomically to path.
func writeOutput(path string, data []byte) error {
	if err := fileutil.WriteAtomic(path, data, filePermissions); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	return nil
}
