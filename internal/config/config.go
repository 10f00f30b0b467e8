package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-mapposter/internal/engine"
	"github.com/alnah/go-mapposter/internal/fonts"
	"github.com/alnah/go-mapposter/internal/mosaic"
	"github.com/alnah/go-mapposter/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxPathLength    = 4096
	MaxURLLength     = 2048 // Browser limit
	MaxCommandLength = 1024
	MaxFamilyLength  = 100
	MaxLevelLength   = 10
)

// Limits on numeric fields.
const (
	MaxLockTimeout      = 30 * time.Minute
	MaxBrowserTimeout   = 30 * time.Minute
	MaxTileConcurrency  = 64
	MaxSmallThreshold   = 10000
	DefaultLockTimeout  = 60 * time.Second
	DefaultSmallRender  = 300
	DefaultCacheTTL     = 24 * time.Hour
	DefaultStylesDir    = "styles"
	DefaultFontsDir     = "fonts"
	DefaultTileTemplate = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"
)

// Config holds all configuration for poster rendering.
type Config struct {
	Styles  StylesConfig  `yaml:"styles"`
	Fonts   FontsConfig   `yaml:"fonts"`
	Posters PostersConfig `yaml:"posters"`
	Temp    TempConfig    `yaml:"temp"`
	Tiles   TilesConfig   `yaml:"tiles"`
	Pool    PoolConfig    `yaml:"pool"`
	Engine  EngineConfig  `yaml:"engine"`
	Browser BrowserConfig `yaml:"browser"`
	Log     LogConfig     `yaml:"log"`
	Mockups MockupsConfig `yaml:"mockups"`
}

// StylesConfig locates map stylesheets.
type StylesConfig struct {
	Dir        string `yaml:"dir"`        // {dir}/{name}.xml
	Catalog    string `yaml:"catalog"`    // Empty = embedded catalog
	SkipWarmup bool   `yaml:"skipWarmup"` // Don't load every style at startup
}

// FontsConfig locates font files and names the fallback families.
type FontsConfig struct {
	Dir      string          `yaml:"dir"`
	Fallback fonts.Fallbacks `yaml:"fallback"` // Empty entries use the Noto families
}

// PostersConfig locates poster templates.
type PostersConfig struct {
	Dir string `yaml:"dir"` // Empty = embedded templates only
}

// TempConfig controls request artifacts.
type TempConfig struct {
	Dir    string `yaml:"dir"`    // Empty = os.TempDir()
	Retain bool   `yaml:"retain"` // Keep artifacts and debug copies
}

// TilesConfig configures the mosaic strategy.
type TilesConfig struct {
	URLTemplate string        `yaml:"urlTemplate"`
	Concurrency int           `yaml:"concurrency"`
	UserAgent   string        `yaml:"userAgent"`
	RedisAddr   string        `yaml:"redisAddr"` // Empty = in-memory cache
	RedisDB     int           `yaml:"redisDB"`
	CacheTTL    time.Duration `yaml:"cacheTTL"`
}

// PoolConfig tunes the style pool and strategy selection.
type PoolConfig struct {
	LockTimeout    time.Duration `yaml:"lockTimeout"`
	SmallThreshold int           `yaml:"smallThreshold"` // Resize targets below this use tiles
}

// EngineConfig configures the external map renderer.
type EngineConfig struct {
	Command string         `yaml:"command"`
	Args    []string       `yaml:"args"`
	PostGIS engine.PostGIS `yaml:"postgis"`
}

// BrowserConfig configures headless Chrome.
type BrowserConfig struct {
	Bin       string        `yaml:"bin"`
	NoSandbox bool          `yaml:"noSandbox"`
	Timeout   time.Duration `yaml:"timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level       string `yaml:"level"`
	File        string `yaml:"file"`
	Development bool   `yaml:"development"`
}

// MockupsConfig locates the mockup photo catalog.
type MockupsConfig struct {
	Dir string `yaml:"dir"` // {dir}/mockups.yaml and the photos it names
}

// Validate checks field lengths and numeric ranges.
// Called automatically by LoadConfig, but available for consumers
// who construct Config manually.
func (c *Config) Validate() error {
	paths := []struct {
		name  string
		value string
	}{
		{"styles.dir", c.Styles.Dir},
		{"styles.catalog", c.Styles.Catalog},
		{"fonts.dir", c.Fonts.Dir},
		{"posters.dir", c.Posters.Dir},
		{"temp.dir", c.Temp.Dir},
		{"browser.bin", c.Browser.Bin},
		{"log.file", c.Log.File},
		{"mockups.dir", c.Mockups.Dir},
	}
	for _, p := range paths {
		if err := validateFieldLength(p.name, p.value, MaxPathLength); err != nil {
			return err
		}
	}

	fb := c.Fonts.Fallback
	for name, family := range map[string]string{
		"default": fb.Default, "cjk": fb.CJK, "arabic": fb.Arabic, "hebrew": fb.Hebrew,
		"thai": fb.Thai, "devanagari": fb.Devanagari, "cyrillic": fb.Cyrillic, "greek": fb.Greek,
	} {
		if err := validateFieldLength("fonts.fallback."+name, family, MaxFamilyLength); err != nil {
			return err
		}
	}

	if err := validateFieldLength("tiles.urlTemplate", c.Tiles.URLTemplate, MaxURLLength); err != nil {
		return err
	}
	if c.Tiles.URLTemplate != "" {
		if err := mosaic.ValidateURLTemplate(c.Tiles.URLTemplate); err != nil {
			return fmt.Errorf("%w: tiles.urlTemplate: %v", ErrInvalidValue, err)
		}
	}
	if c.Tiles.Concurrency < 0 || c.Tiles.Concurrency > MaxTileConcurrency {
		return fmt.Errorf("%w: tiles.concurrency must be between 0 and %d, got %d", ErrInvalidValue, MaxTileConcurrency, c.Tiles.Concurrency)
	}
	if c.Tiles.CacheTTL < 0 {
		return fmt.Errorf("%w: tiles.cacheTTL must not be negative", ErrInvalidValue)
	}

	if c.Pool.LockTimeout < 0 || c.Pool.LockTimeout > MaxLockTimeout {
		return fmt.Errorf("%w: pool.lockTimeout must be between 0 and %s, got %s", ErrInvalidValue, MaxLockTimeout, c.Pool.LockTimeout)
	}
	if c.Pool.SmallThreshold < 0 || c.Pool.SmallThreshold > MaxSmallThreshold {
		return fmt.Errorf("%w: pool.smallThreshold must be between 0 and %d, got %d", ErrInvalidValue, MaxSmallThreshold, c.Pool.SmallThreshold)
	}

	if err := validateFieldLength("engine.command", c.Engine.Command, MaxCommandLength); err != nil {
		return err
	}

	if c.Browser.Timeout < 0 || c.Browser.Timeout > MaxBrowserTimeout {
		return fmt.Errorf("%w: browser.timeout must be between 0 and %s, got %s", ErrInvalidValue, MaxBrowserTimeout, c.Browser.Timeout)
	}

	if err := validateFieldLength("log.level", c.Log.Level, MaxLevelLength); err != nil {
		return err
	}
	if c.Log.Level != "" {
		switch strings.ToLower(c.Log.Level) {
		case "debug", "info", "warn", "error":
			// valid
		default:
			return fmt.Errorf("%w: log.level %q (must be debug, info, warn, or error)", ErrInvalidValue, c.Log.Level)
		}
	}

	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// DefaultConfig returns the configuration used without a config file.
func DefaultConfig() *Config {
	return &Config{
		Styles: StylesConfig{Dir: DefaultStylesDir},
		Fonts:  FontsConfig{Dir: DefaultFontsDir, Fallback: fonts.DefaultFallbacks},
		Tiles: TilesConfig{
			URLTemplate: DefaultTileTemplate,
			Concurrency: mosaic.DefaultConcurrency,
			CacheTTL:    DefaultCacheTTL,
		},
		Pool: PoolConfig{
			LockTimeout:    DefaultLockTimeout,
			SmallThreshold: DefaultSmallRender,
		},
		Engine: EngineConfig{Command: engine.DefaultCommand},
		Log:    LogConfig{Level: "info"},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Values absent from the file keep their DefaultConfig value.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-mapposter/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "go-mapposter", name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
