package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/go-rod/rod/lib/launcher"
	flag "github.com/spf13/pflag"

	"github.com/alnah/go-mapposter/internal/config"
	"github.com/alnah/go-mapposter/internal/engine"
	"github.com/alnah/go-mapposter/internal/mosaic"
)

// Doctor statuses.
const (
	statusReady    = "ready"
	statusWarnings = "warnings"
	statusErrors   = "errors"
)

var (
	okTag    = color.New(color.FgGreen).SprintFunc()
	warnTag  = color.New(color.FgYellow).SprintFunc()
	errorTag = color.New(color.FgRed, color.Bold).SprintFunc()
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string       `json:"status"` // "ready", "warnings", "errors"
	Chrome   chromeInfo   `json:"chrome"`
	Renderer rendererInfo `json:"renderer"`
	Assets   assetInfo    `json:"assets"`
	Tiles    tileInfo     `json:"tiles"`
	Env      envInfo      `json:"environment"`
	System   systemInfo   `json:"system"`
	Warnings []string     `json:"warnings,omitempty"`
	Errors   []string     `json:"errors,omitempty"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

// rendererInfo holds map renderer detection results.
type rendererInfo struct {
	Command string `json:"command"`
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
}

// assetInfo counts the styles and fonts on disk.
type assetInfo struct {
	StylesDir    string   `json:"styles_dir"`
	MapStyles    []string `json:"map_styles"`
	FontsDir     string   `json:"fonts_dir"`
	FontFamilies int      `json:"font_families"`
}

// tileInfo holds tile server and cache settings.
type tileInfo struct {
	URLTemplate string `json:"url_template"`
	Cache       string `json:"cache"` // "memory" or "redis"
	RedisOK     bool   `json:"redis_ok,omitempty"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"browser_bin"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempDir      string `json:"temp_dir"`
	TempWritable bool   `json:"temp_writable"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found, 2 = bad flags.
func runDoctorCmd(ctx context.Context, args []string, env *Environment) int {
	flags, err := parseDoctorFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	if err != nil {
		fmt.Fprintln(env.Stderr, "error:", err)
		return ExitUsage
	}

	result := runDoctor(ctx, flags.common, env)

	if flags.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == statusErrors {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(ctx context.Context, common commonFlags, env *Environment) *doctorResult {
	result := &doctorResult{
		Status: statusReady,
		Env: envInfo{
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			NoSandbox: os.Getenv("ROD_NO_SANDBOX"),
		},
	}

	common.quiet = true
	cfg, ec, err := loadConfig(common, env)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Config: %v", err))
		cfg, ec = config.DefaultConfig(), &envConfig{}
	}
	result.Env.BrowserBin = cfg.Browser.Bin
	if result.Env.BrowserBin == "" {
		result.Env.BrowserBin = os.Getenv("ROD_BROWSER_BIN")
	}

	checkChrome(result, cfg)
	checkRenderer(result, cfg)
	checkAssets(result, cfg)
	checkTiles(ctx, result, cfg, ec)
	checkEnvironment(result)
	checkSystem(result, cfg)

	if len(result.Errors) > 0 {
		result.Status = statusErrors
	} else if len(result.Warnings) > 0 {
		result.Status = statusWarnings
	}
	return result
}

// checkChrome detects Chrome/Chromium installation.
func checkChrome(result *doctorResult, cfg *config.Config) {
	chromePath := result.Env.BrowserBin
	if chromePath == "" {
		var found bool
		chromePath, found = launcher.LookPath()
		if !found {
			result.Errors = append(result.Errors,
				"Chrome/Chromium not found. Install Chrome or set MAPPOSTER_BROWSER_BIN")
			return
		}
	}

	if _, err := os.Stat(chromePath); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath

	out, err := exec.Command(chromePath, "--version").Output() // #nosec G204 -- configured browser
	if err == nil {
		result.Chrome.Version = strings.TrimSpace(string(out))
	} else {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not get Chrome version: %v", err))
	}

	result.Chrome.Sandbox = result.Env.NoSandbox != "1" && !cfg.Browser.NoSandbox
}

// checkRenderer looks the map renderer binary up.
func checkRenderer(result *doctorResult, cfg *config.Config) {
	command := cfg.Engine.Command
	if command == "" {
		command = engine.DefaultCommand
	}
	result.Renderer.Command = command

	path, err := exec.LookPath(command)
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Map renderer %q not found. Install it or set engine.command", command))
		return
	}
	result.Renderer.Found = true
	result.Renderer.Path = path
}

// checkAssets counts stylesheets and font families.
func checkAssets(result *doctorResult, cfg *config.Config) {
	result.Assets.StylesDir = cfg.Styles.Dir
	result.Assets.FontsDir = cfg.Fonts.Dir

	sheets, err := engine.DiscoverStyles(cfg.Styles.Dir)
	switch {
	case err != nil:
		result.Errors = append(result.Errors, fmt.Sprintf("Styles: %v", err))
	case len(sheets) == 0:
		result.Errors = append(result.Errors,
			fmt.Sprintf("No map stylesheets in %s", cfg.Styles.Dir))
	default:
		result.Assets.MapStyles = sheets
	}

	lib, err := loadFonts(cfg.Fonts)
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Fonts: %v (labelled posters will fail)", err))
		return
	}
	result.Assets.FontFamilies = len(lib.Mapping().Families())
	if result.Assets.FontFamilies == 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("No fonts in %s", cfg.Fonts.Dir))
	}
}

// checkTiles reports the tile cache and pings Redis when configured.
func checkTiles(ctx context.Context, result *doctorResult, cfg *config.Config, ec *envConfig) {
	result.Tiles.URLTemplate = cfg.Tiles.URLTemplate
	result.Tiles.Cache = "memory"
	if cfg.Tiles.RedisAddr == "" {
		return
	}
	result.Tiles.Cache = "redis"

	cache := mosaic.DialRedis(cfg.Tiles.RedisAddr, ec.RedisPassword, cfg.Tiles.RedisDB, cfg.Tiles.CacheTTL)
	defer func() { _ = cache.Close() }()

	ctx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := cache.Ping(ctx); err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Redis at %s unreachable: %v (memory cache will be used)", cfg.Tiles.RedisAddr, err))
		return
	}
	result.Tiles.RedisOK = true
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult) {
	result.Env.Container, result.Env.ContainerHint = isContainer()

	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if os.Getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}

	if (result.Env.Container || result.Env.CI) && result.Env.NoSandbox != "1" && result.Chrome.Sandbox {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but the Chrome sandbox is on. Set ROD_NO_SANDBOX=1 or browser.noSandbox")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer() (bool, string) {
	if os.Getenv("MAPPOSTER_CONTAINER") == "1" {
		return true, "MAPPOSTER_CONTAINER=1"
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true, "/.dockerenv"
	}
	if v := os.Getenv("container"); v != "" {
		return true, "container=" + v
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies the temp directory is writable.
func checkSystem(result *doctorResult, cfg *config.Config) {
	tmpDir := cfg.Temp.Dir
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	result.System.TempDir = tmpDir

	testFile := filepath.Join(tmpDir, fmt.Sprintf("mapposter-doctor-%d", time.Now().UnixNano()))
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Temp directory not writable: %s", tmpDir))
		return
	}
	_ = os.Remove(testFile)
	result.System.TempWritable = true
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	ok := okTag("[OK]")
	bad := errorTag("[ERROR]")

	fmt.Fprintln(w, "mapposter doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Chrome/Chromium")
	if r.Chrome.Found {
		fmt.Fprintf(w, "  %s Found at %s\n", ok, r.Chrome.Path)
		if r.Chrome.Version != "" {
			fmt.Fprintf(w, "  %s Version: %s\n", ok, r.Chrome.Version)
		}
		if r.Chrome.Sandbox {
			fmt.Fprintf(w, "  %s Sandbox: enabled\n", ok)
		} else {
			fmt.Fprintf(w, "  %s Sandbox: disabled\n", ok)
		}
	} else {
		fmt.Fprintf(w, "  %s Not found\n", bad)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Map renderer")
	if r.Renderer.Found {
		fmt.Fprintf(w, "  %s %s at %s\n", ok, r.Renderer.Command, r.Renderer.Path)
	} else {
		fmt.Fprintf(w, "  %s %s not found\n", bad, r.Renderer.Command)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Assets")
	if len(r.Assets.MapStyles) > 0 {
		fmt.Fprintf(w, "  %s Map styles: %s\n", ok, strings.Join(r.Assets.MapStyles, ", "))
	} else {
		fmt.Fprintf(w, "  %s Map styles: none in %s\n", bad, r.Assets.StylesDir)
	}
	if r.Assets.FontFamilies > 0 {
		fmt.Fprintf(w, "  %s Fonts: %d families\n", ok, r.Assets.FontFamilies)
	} else {
		fmt.Fprintf(w, "  %s Fonts: none in %s\n", warnTag("[WARN]"), r.Assets.FontsDir)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Tiles")
	fmt.Fprintf(w, "  %s Server: %s\n", ok, r.Tiles.URLTemplate)
	switch {
	case r.Tiles.Cache == "redis" && r.Tiles.RedisOK:
		fmt.Fprintf(w, "  %s Cache: redis\n", ok)
	case r.Tiles.Cache == "redis":
		fmt.Fprintf(w, "  %s Cache: redis unreachable\n", warnTag("[WARN]"))
	default:
		fmt.Fprintf(w, "  %s Cache: memory\n", ok)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  %s Platform: %s/%s\n", ok, r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  %s Container: detected (%s)\n", ok, r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintf(w, "  %s CI: detected\n", ok)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintf(w, "  %s Temp directory: writable\n", ok)
	} else {
		fmt.Fprintf(w, "  %s Temp directory: not writable\n", bad)
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  %s %s\n", warnTag("[WARN]"), warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  %s %s\n", bad, err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case statusReady:
		fmt.Fprintln(w, "Status: Ready to render")
	case statusWarnings:
		fmt.Fprintln(w, "Status: Ready with warnings")
	case statusErrors:
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
