// Package hints appends actionable advice to CLI error messages.
// Hints are formatted as "\n  hint: <text>".
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-mapposter/internal/fileutil"
)

// IsInContainer reports whether the process runs inside Docker.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForBrowserConnect suggests the rod environment variables that usually
// fix a failed Chrome launch.
func ForBrowserConnect() string {
	var hints []string

	inCI := os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""

	if (inCI || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}
	if os.Getenv("ROD_BROWSER_BIN") == "" && os.Getenv("MAPPOSTER_BROWSER_BIN") == "" {
		hints = append(hints, "set MAPPOSTER_BROWSER_BIN to use a custom Chrome")
	}

	return formatHints(hints)
}

// ForLockTimeout suggests a longer wait for busy styles.
func ForLockTimeout() string {
	return format("the style is busy; raise --lock-timeout or pool.lockTimeout")
}

// ForRenderer suggests how to point at the map renderer binary.
func ForRenderer(command string) string {
	return format("check that " + command + " is on PATH or set engine.command")
}

// ForConfigNotFound suggests --config and, if one was searched, the user
// config location.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"
	for _, p := range searchedPaths {
		if strings.Contains(p, "go-mapposter") {
			hint += " or create " + p
			break
		}
	}
	return format(hint)
}

// ForOutputDirectory returns hints for output write errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForStyleNotFound lists the available names.
func ForStyleNotFound(available []string) string {
	if len(available) == 0 {
		return ""
	}
	return format("available: " + strings.Join(available, ", "))
}

// ForTileFetch suggests checking the tile server.
func ForTileFetch() string {
	return format("check tiles.urlTemplate and network access to the tile server")
}

func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
