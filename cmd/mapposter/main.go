package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	mapposter "github.com/alnah/go-mapposter"
	"github.com/alnah/go-mapposter/internal/config"
	"github.com/alnah/go-mapposter/internal/engine"
	"github.com/alnah/go-mapposter/internal/hints"
	"github.com/alnah/go-mapposter/internal/mosaic"
	"github.com/alnah/go-mapposter/internal/styles"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	if isVerbose(os.Args) {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}))
	} else {
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
	}

	ctx, stop := notifyContext(context.Background())
	code := runMain(ctx, os.Args, DefaultEnv())
	stop()
	os.Exit(code)
}

// isVerbose reports whether -v or --verbose appears in args.
func isVerbose(args []string) bool {
	for _, a := range args {
		if a == "-v" || a == "--verbose" {
			return true
		}
	}
	return false
}

// runMain dispatches the command and returns the process exit code.
func runMain(ctx context.Context, args []string, env *Environment) int {
	if len(args) < 2 {
		printUsage(env.Stderr)
		return ExitUsage
	}

	cmd, rest := args[1], args[2:]
	var err error
	switch cmd {
	case "render":
		err = runRender(ctx, rest, env)
	case "batch":
		err = runBatch(ctx, rest, env)
	case "mockup":
		err = runMockup(ctx, rest, env)
	case "styles":
		err = runStyles(ctx, rest, env)
	case "doctor":
		return runDoctorCmd(ctx, rest, env)
	case "version", "--version":
		fmt.Fprintf(env.Stdout, "mapposter %s\n", Version)
		return ExitSuccess
	case "help", "-h", "--help":
		return runHelp(rest, env)
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", cmd)
		printUsage(env.Stderr)
		return ExitUsage
	}

	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hintFor(err))
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// hintFor returns advice for well-known failures, or "".
func hintFor(err error) string {
	switch {
	case errors.Is(err, mapposter.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, mapposter.ErrLockTimeout):
		return hints.ForLockTimeout()
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, engine.ErrRender):
		return hints.ForRenderer(engine.DefaultCommand)
	case errors.Is(err, mosaic.ErrTileFetch):
		return hints.ForTileFetch()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(nil)
	case errors.Is(err, ErrWriteOutput):
		return hints.ForOutputDirectory()
	case errors.Is(err, styles.ErrUnknownMapStyle):
		return builtinStyles((*styles.Catalog).MapStyleNames)
	case errors.Is(err, styles.ErrUnknownPosterStyle):
		return builtinStyles((*styles.Catalog).PosterStyleNames)
	}
	return ""
}

// builtinStyles lists names from the embedded catalog as a hint.
func builtinStyles(names func(*styles.Catalog) []string) string {
	c, err := styles.Default()
	if err != nil {
		return ""
	}
	return hints.ForStyleNotFound(names(c))
}
