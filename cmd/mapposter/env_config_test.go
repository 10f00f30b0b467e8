package main

// Notes:
// - Tests use t.Setenv() which prevents t.Parallel().
// - loadDotEnv never overrides variables that are already set; godotenv
//   guarantees this, so we only check the file is read and missing files
//   are tolerated when implicit.

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-mapposter/internal/config"
)

// ---------------------------------------------------------------------------
// TestLoadEnvConfig - Environment variable loading
// ---------------------------------------------------------------------------

func TestLoadEnvConfig(t *testing.T) {
	t.Run("locations and services", func(t *testing.T) {
		t.Setenv("MAPPOSTER_CONFIG", "/etc/mapposter.yaml")
		t.Setenv("MAPPOSTER_STYLES_DIR", "/srv/styles")
		t.Setenv("MAPPOSTER_TILE_URL", "https://tiles.example/{z}/{x}/{y}.png")
		t.Setenv("MAPPOSTER_REDIS_ADDR", "redis:6379")
		t.Setenv("MAPPOSTER_REDIS_PASSWORD", "s3cret")

		cfg := loadEnvConfig()

		if cfg.ConfigPath != "/etc/mapposter.yaml" {
			t.Errorf("ConfigPath = %q", cfg.ConfigPath)
		}
		if cfg.StylesDir != "/srv/styles" {
			t.Errorf("StylesDir = %q", cfg.StylesDir)
		}
		if cfg.TileURL != "https://tiles.example/{z}/{x}/{y}.png" {
			t.Errorf("TileURL = %q", cfg.TileURL)
		}
		if cfg.RedisAddr != "redis:6379" || cfg.RedisPassword != "s3cret" {
			t.Errorf("redis = %q / %q", cfg.RedisAddr, cfg.RedisPassword)
		}
	})

	t.Run("tuning", func(t *testing.T) {
		t.Setenv("MAPPOSTER_WORKERS", "3")
		t.Setenv("MAPPOSTER_LOCK_TIMEOUT", "90s")
		t.Setenv("MAPPOSTER_SKIP_WARMUP", "true")
		t.Setenv("MAPPOSTER_SAVE_TEMP_FILES", "1")

		cfg := loadEnvConfig()

		if cfg.Workers != 3 {
			t.Errorf("Workers = %d, want 3", cfg.Workers)
		}
		if cfg.LockTimeout != 90*time.Second {
			t.Errorf("LockTimeout = %v, want 90s", cfg.LockTimeout)
		}
		if !cfg.SkipWarmup || !cfg.SaveTempFiles {
			t.Errorf("SkipWarmup = %v, SaveTempFiles = %v", cfg.SkipWarmup, cfg.SaveTempFiles)
		}
	})

	t.Run("invalid values are ignored", func(t *testing.T) {
		t.Setenv("MAPPOSTER_WORKERS", "-2")
		t.Setenv("MAPPOSTER_LOCK_TIMEOUT", "soon")
		t.Setenv("MAPPOSTER_SKIP_WARMUP", "perhaps")

		cfg := loadEnvConfig()

		if cfg.Workers != 0 || cfg.LockTimeout != 0 || cfg.SkipWarmup {
			t.Errorf("invalid values leaked: %+v", cfg)
		}
	})
}

// ---------------------------------------------------------------------------
// TestWarnUnknownEnvVars - Typo detection
// ---------------------------------------------------------------------------

func TestWarnUnknownEnvVars(t *testing.T) {
	t.Setenv("MAPPOSTER_STYLE_DIR", "/typo")
	t.Setenv("MAPPOSTER_STYLES_DIR", "/ok")

	var buf bytes.Buffer
	warnUnknownEnvVars(&buf)

	out := buf.String()
	if !strings.Contains(out, "MAPPOSTER_STYLE_DIR") {
		t.Errorf("expected warning for MAPPOSTER_STYLE_DIR, got %q", out)
	}
	if strings.Contains(out, "MAPPOSTER_STYLES_DIR ") {
		t.Errorf("known variable should not warn: %q", out)
	}
}

// ---------------------------------------------------------------------------
// TestApplyEnvConfig - env overrides config values
// ---------------------------------------------------------------------------

func TestApplyEnvConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Fonts.Dir = "/from/file"
	applyEnvConfig(&envConfig{
		StylesDir:     "/env/styles",
		RedisAddr:     "redis:6379",
		LogLevel:      "debug",
		LockTimeout:   5 * time.Second,
		SkipWarmup:    true,
		SaveTempFiles: true,
	}, cfg)

	if cfg.Styles.Dir != "/env/styles" {
		t.Errorf("Styles.Dir = %q", cfg.Styles.Dir)
	}
	if cfg.Fonts.Dir != "/from/file" {
		t.Errorf("unset env overrode Fonts.Dir: %q", cfg.Fonts.Dir)
	}
	if cfg.Tiles.RedisAddr != "redis:6379" || cfg.Log.Level != "debug" {
		t.Errorf("tiles/log not applied: %+v %+v", cfg.Tiles, cfg.Log)
	}
	if cfg.Pool.LockTimeout != 5*time.Second {
		t.Errorf("LockTimeout = %v", cfg.Pool.LockTimeout)
	}
	if !cfg.Styles.SkipWarmup || !cfg.Temp.Retain {
		t.Error("boolean overrides not applied")
	}
}

// ---------------------------------------------------------------------------
// TestLoadDotEnv - .env file loading
// ---------------------------------------------------------------------------

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "prod.env")
	if err := os.WriteFile(envFile, []byte("MAPPOSTER_FONTS_DIR=/dotenv/fonts\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MAPPOSTER_FONTS_DIR", "")
	os.Unsetenv("MAPPOSTER_FONTS_DIR")

	env := &Environment{Getwd: func() (string, error) { return dir, nil }}

	t.Run("implicit file may be missing", func(t *testing.T) {
		if err := loadDotEnv("", env); err != nil {
			t.Errorf("loadDotEnv() error: %v", err)
		}
	})

	t.Run("explicit file must exist", func(t *testing.T) {
		if err := loadDotEnv(filepath.Join(dir, "missing.env"), env); err == nil {
			t.Error("expected error for missing explicit file")
		}
	})

	t.Run("explicit file is loaded", func(t *testing.T) {
		if err := loadDotEnv(envFile, env); err != nil {
			t.Fatalf("loadDotEnv() error: %v", err)
		}
		if got := os.Getenv("MAPPOSTER_FONTS_DIR"); got != "/dotenv/fonts" {
			t.Errorf("MAPPOSTER_FONTS_DIR = %q", got)
		}
	})
}
