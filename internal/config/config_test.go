package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-mapposter/internal/fonts"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Styles.Dir != DefaultStylesDir {
		t.Errorf("Styles.Dir = %q, want %q", cfg.Styles.Dir, DefaultStylesDir)
	}
	if cfg.Pool.LockTimeout != 60*time.Second {
		t.Errorf("Pool.LockTimeout = %v, want 60s", cfg.Pool.LockTimeout)
	}
	if cfg.Pool.SmallThreshold != 300 {
		t.Errorf("Pool.SmallThreshold = %d, want 300", cfg.Pool.SmallThreshold)
	}
	if cfg.Fonts.Fallback != fonts.DefaultFallbacks {
		t.Errorf("Fonts.Fallback = %+v", cfg.Fonts.Fallback)
	}
	if cfg.Temp.Retain {
		t.Error("Temp.Retain = true, want false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestValidateFieldLength(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		maxLength int
		wantErr   bool
	}{
		{name: "empty value is valid", value: "", maxLength: 10},
		{name: "value at limit is valid", value: "1234567890", maxLength: 10},
		{name: "value over limit returns error", value: "12345678901", maxLength: 10, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFieldLength("test.field", tt.value, tt.maxLength)
			if tt.wantErr != (err != nil) {
				t.Fatalf("validateFieldLength() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrFieldTooLong) {
				t.Errorf("error = %v, want ErrFieldTooLong", err)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "defaults pass",
			mutate: func(*Config) {},
		},
		{
			name:    "styles.dir too long",
			mutate:  func(c *Config) { c.Styles.Dir = strings.Repeat("a", MaxPathLength+1) },
			wantErr: ErrFieldTooLong,
		},
		{
			name:    "fallback family too long",
			mutate:  func(c *Config) { c.Fonts.Fallback.CJK = strings.Repeat("a", MaxFamilyLength+1) },
			wantErr: ErrFieldTooLong,
		},
		{
			name:    "tile template without placeholders",
			mutate:  func(c *Config) { c.Tiles.URLTemplate = "https://tiles.example.com/tile.png" },
			wantErr: ErrInvalidValue,
		},
		{
			name:   "empty tile template disables the check",
			mutate: func(c *Config) { c.Tiles.URLTemplate = "" },
		},
		{
			name:    "tile concurrency too high",
			mutate:  func(c *Config) { c.Tiles.Concurrency = MaxTileConcurrency + 1 },
			wantErr: ErrInvalidValue,
		},
		{
			name:    "negative lock timeout",
			mutate:  func(c *Config) { c.Pool.LockTimeout = -time.Second },
			wantErr: ErrInvalidValue,
		},
		{
			name:    "small threshold too high",
			mutate:  func(c *Config) { c.Pool.SmallThreshold = MaxSmallThreshold + 1 },
			wantErr: ErrInvalidValue,
		},
		{
			name:    "browser timeout too high",
			mutate:  func(c *Config) { c.Browser.Timeout = MaxBrowserTimeout + time.Second },
			wantErr: ErrInvalidValue,
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Log.Level = "trace" },
			wantErr: ErrInvalidValue,
		},
		{
			name:   "log level is case insensitive",
			mutate: func(c *Config) { c.Log.Level = "DEBUG" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("empty name returns ErrEmptyConfigName", func(t *testing.T) {
		_, err := LoadConfig("")
		if !errors.Is(err, ErrEmptyConfigName) {
			t.Errorf("error = %v, want ErrEmptyConfigName", err)
		}
	})

	t.Run("valid file path loads config over defaults", func(t *testing.T) {
		path := writeConfig(t, "test.yaml", `styles:
  dir: "/srv/styles"
  skipWarmup: true
fonts:
  fallback:
    cjk: "SourceHanSans"
temp:
  retain: true
pool:
  lockTimeout: 90s
engine:
  postgis:
    host: db
browser:
  timeout: 2m
`)

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Styles.Dir != "/srv/styles" || !cfg.Styles.SkipWarmup {
			t.Errorf("Styles = %+v", cfg.Styles)
		}
		if cfg.Fonts.Fallback.CJK != "SourceHanSans" {
			t.Errorf("Fonts.Fallback.CJK = %q", cfg.Fonts.Fallback.CJK)
		}
		if !cfg.Temp.Retain {
			t.Error("Temp.Retain = false, want true")
		}
		if cfg.Pool.LockTimeout != 90*time.Second {
			t.Errorf("Pool.LockTimeout = %v, want 90s", cfg.Pool.LockTimeout)
		}
		if cfg.Pool.SmallThreshold != DefaultSmallRender {
			t.Errorf("Pool.SmallThreshold = %d, want default", cfg.Pool.SmallThreshold)
		}
		if cfg.Engine.PostGIS.Host != "db" {
			t.Errorf("Engine.PostGIS.Host = %q", cfg.Engine.PostGIS.Host)
		}
		if cfg.Browser.Timeout != 2*time.Minute {
			t.Errorf("Browser.Timeout = %v", cfg.Browser.Timeout)
		}
	})

	t.Run("nonexistent file path returns ErrConfigNotFound", func(t *testing.T) {
		_, err := LoadConfig("/nonexistent/path/config.yaml")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("invalid YAML returns ErrConfigParse", func(t *testing.T) {
		path := writeConfig(t, "invalid.yaml", "styles: [unclosed")
		_, err := LoadConfig(path)
		if !errors.Is(err, ErrConfigParse) {
			t.Errorf("error = %v, want ErrConfigParse", err)
		}
	})

	t.Run("unknown field returns ErrConfigParse in strict mode", func(t *testing.T) {
		path := writeConfig(t, "unknown.yaml", "styles:\n  dir: x\nunknownField: y\n")
		_, err := LoadConfig(path)
		if !errors.Is(err, ErrConfigParse) {
			t.Errorf("error = %v, want ErrConfigParse", err)
		}
	})

	t.Run("invalid value fails validation", func(t *testing.T) {
		path := writeConfig(t, "bad.yaml", "log:\n  level: loud\n")
		_, err := LoadConfig(path)
		if !errors.Is(err, ErrInvalidValue) {
			t.Errorf("error = %v, want ErrInvalidValue", err)
		}
	})

	t.Run("config name resolves yml in current directory", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "myconfig.yml"), []byte("posters:\n  dir: fromyml\n"), 0600); err != nil {
			t.Fatalf("setup: %v", err)
		}
		t.Chdir(dir)

		cfg, err := LoadConfig("myconfig")
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Posters.Dir != "fromyml" {
			t.Errorf("Posters.Dir = %q, want %q", cfg.Posters.Dir, "fromyml")
		}
	})

	t.Run("config name prefers yaml over yml", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "myconfig.yaml"), []byte("posters:\n  dir: yaml\n"), 0600); err != nil {
			t.Fatalf("setup yaml: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "myconfig.yml"), []byte("posters:\n  dir: yml\n"), 0600); err != nil {
			t.Fatalf("setup yml: %v", err)
		}
		t.Chdir(dir)

		cfg, err := LoadConfig("myconfig")
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Posters.Dir != "yaml" {
			t.Errorf("Posters.Dir = %q, want yaml", cfg.Posters.Dir)
		}
	})

	t.Run("missing config name lists tried paths", func(t *testing.T) {
		t.Chdir(t.TempDir())

		_, err := LoadConfig("nope")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("error = %v, want ErrConfigNotFound", err)
		}
		if !strings.Contains(err.Error(), "nope.yaml") {
			t.Errorf("error should list tried paths: %v", err)
		}
	})
}

func TestIsFilePath(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]bool{
		"myconfig":           false,
		"./myconfig.yaml":    true,
		"/etc/mapposter.yml": true,
		`dir\config.yaml`:    true,
	} {
		if got := isFilePath(in); got != want {
			t.Errorf("isFilePath(%q) = %v, want %v", in, got, want)
		}
	}
}
