package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/alnah/go-mapposter/internal/config"
)

// envPrefix marks the variables read by the CLI.
const envPrefix = "MAPPOSTER_"

// dotEnvFile is loaded from the working directory when --env-file is not
// given. A missing file is not an error.
const dotEnvFile = ".env"

// envConfig holds configuration from environment variables.
// Provides container-friendly overrides without requiring YAML files.
type envConfig struct {
	// Tier 1 - Locations
	ConfigPath string // MAPPOSTER_CONFIG: config file path
	StylesDir  string // MAPPOSTER_STYLES_DIR: map stylesheets
	FontsDir   string // MAPPOSTER_FONTS_DIR: font files
	PostersDir string // MAPPOSTER_POSTERS_DIR: poster templates
	TempDir    string // MAPPOSTER_TEMP_DIR: request artifacts
	MockupsDir string // MAPPOSTER_MOCKUPS_DIR: mockup catalog

	// Tier 2 - Services
	TileURL       string // MAPPOSTER_TILE_URL: tile url template
	RedisAddr     string // MAPPOSTER_REDIS_ADDR: tile cache
	RedisPassword string // MAPPOSTER_REDIS_PASSWORD: never read from config files
	BrowserBin    string // MAPPOSTER_BROWSER_BIN: Chrome binary

	// Tier 3 - Tuning
	LogLevel      string        // MAPPOSTER_LOG_LEVEL: debug, info, warn, error
	LogFile       string        // MAPPOSTER_LOG_FILE: rotated JSON log
	Workers       int           // MAPPOSTER_WORKERS: batch workers
	LockTimeout   time.Duration // MAPPOSTER_LOCK_TIMEOUT: style wait
	SkipWarmup    bool          // MAPPOSTER_SKIP_WARMUP: lazy style loading
	SaveTempFiles bool          // MAPPOSTER_SAVE_TEMP_FILES: keep artifacts
}

// knownEnvVars lists valid MAPPOSTER_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	// Tier 1
	"MAPPOSTER_CONFIG":      true,
	"MAPPOSTER_STYLES_DIR":  true,
	"MAPPOSTER_FONTS_DIR":   true,
	"MAPPOSTER_POSTERS_DIR": true,
	"MAPPOSTER_TEMP_DIR":    true,
	"MAPPOSTER_MOCKUPS_DIR": true,
	// Tier 2
	"MAPPOSTER_TILE_URL":       true,
	"MAPPOSTER_REDIS_ADDR":     true,
	"MAPPOSTER_REDIS_PASSWORD": true,
	"MAPPOSTER_BROWSER_BIN":    true,
	// Tier 3
	"MAPPOSTER_LOG_LEVEL":       true,
	"MAPPOSTER_LOG_FILE":        true,
	"MAPPOSTER_WORKERS":         true,
	"MAPPOSTER_LOCK_TIMEOUT":    true,
	"MAPPOSTER_SKIP_WARMUP":     true,
	"MAPPOSTER_SAVE_TEMP_FILES": true,
	// Read by doctor
	"MAPPOSTER_CONTAINER": true,
}

// loadDotEnv loads KEY=VALUE pairs into the process environment.
// Variables already set win over the file. An explicit path must exist;
// the default .env may not.
func loadDotEnv(path string, env *Environment) error {
	explicit := path != ""
	if !explicit {
		wd, err := env.Getwd()
		if err != nil {
			return nil
		}
		path = filepath.Join(wd, dotEnvFile)
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// loadEnvConfig reads configuration from environment variables.
// Unparseable numbers, durations and booleans are ignored.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath:    os.Getenv("MAPPOSTER_CONFIG"),
		StylesDir:     os.Getenv("MAPPOSTER_STYLES_DIR"),
		FontsDir:      os.Getenv("MAPPOSTER_FONTS_DIR"),
		PostersDir:    os.Getenv("MAPPOSTER_POSTERS_DIR"),
		TempDir:       os.Getenv("MAPPOSTER_TEMP_DIR"),
		MockupsDir:    os.Getenv("MAPPOSTER_MOCKUPS_DIR"),
		TileURL:       os.Getenv("MAPPOSTER_TILE_URL"),
		RedisAddr:     os.Getenv("MAPPOSTER_REDIS_ADDR"),
		RedisPassword: os.Getenv("MAPPOSTER_REDIS_PASSWORD"),
		BrowserBin:    os.Getenv("MAPPOSTER_BROWSER_BIN"),
		LogLevel:      os.Getenv("MAPPOSTER_LOG_LEVEL"),
		LogFile:       os.Getenv("MAPPOSTER_LOG_FILE"),
	}

	if workers := os.Getenv("MAPPOSTER_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}
	if timeout := os.Getenv("MAPPOSTER_LOCK_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.LockTimeout = d
		}
	}
	if v := os.Getenv("MAPPOSTER_SKIP_WARMUP"); v != "" {
		cfg.SkipWarmup, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("MAPPOSTER_SAVE_TEMP_FILES"); v != "" {
		cfg.SaveTempFiles, _ = strconv.ParseBool(v)
	}

	return cfg
}

// warnUnknownEnvVars logs warnings for unrecognized MAPPOSTER_* variables.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, envPrefix) {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig overrides config values with the variables that are set.
// Priority: CLI flags > env vars > config file > defaults.
// Flags are applied afterwards by each command.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	setString(&cfg.Styles.Dir, env.StylesDir)
	setString(&cfg.Fonts.Dir, env.FontsDir)
	setString(&cfg.Posters.Dir, env.PostersDir)
	setString(&cfg.Temp.Dir, env.TempDir)
	setString(&cfg.Mockups.Dir, env.MockupsDir)
	setString(&cfg.Tiles.URLTemplate, env.TileURL)
	setString(&cfg.Tiles.RedisAddr, env.RedisAddr)
	setString(&cfg.Browser.Bin, env.BrowserBin)
	setString(&cfg.Log.Level, env.LogLevel)
	setString(&cfg.Log.File, env.LogFile)

	if env.LockTimeout > 0 {
		cfg.Pool.LockTimeout = env.LockTimeout
	}
	if env.SkipWarmup {
		cfg.Styles.SkipWarmup = true
	}
	if env.SaveTempFiles {
		cfg.Temp.Retain = true
	}
}
