package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mapposter <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  render     Render one map poster")
	fmt.Fprintln(w, "  batch      Render every poster of a YAML job file")
	fmt.Fprintln(w, "  mockup     Render a poster into a room photo")
	fmt.Fprintln(w, "  styles     List map styles, poster styles and mockup photos")
	fmt.Fprintln(w, "  doctor     Check Chrome, the map renderer and assets")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'mapposter help <command>' for details on a specific command.")
}

func printCommonUsage(w io.Writer) {
	fmt.Fprintln(w, "Common:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "      --env-file <path>     MAPPOSTER_* variables file (default: ./.env)")
	fmt.Fprintln(w, "      --metrics-file <path> Write Prometheus metrics on exit")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Debug logging and timings")
}

func printRuntimeUsage(w io.Writer) {
	fmt.Fprintln(w, "Runtime:")
	fmt.Fprintln(w, "      --lock-timeout <d>    Max wait for a busy style (e.g. 30s)")
	fmt.Fprintln(w, "      --skip-warmup         Load styles on first use")
	fmt.Fprintln(w, "      --save-temp-files     Keep temp artifacts and debug images")
}

func printPosterUsage(w io.Writer) {
	fmt.Fprintln(w, "Poster:")
	fmt.Fprintln(w, "  -b, --bbox <w,s,e,n>      Bounding box in degrees (required)")
	fmt.Fprintln(w, "  -m, --map-style <s>       Map style (default: bw)")
	fmt.Fprintln(w, "  -p, --poster-style <s>    Poster style (default: bw)")
	fmt.Fprintln(w, "  -s, --size <s>            50x70cm, 12x18inch, A4 (default: 50x70cm)")
	fmt.Fprintln(w, "      --orientation <s>     portrait, landscape")
	fmt.Fprintln(w, "      --scale <f>           Map scale factor (0 = automatic)")
	fmt.Fprintln(w, "      --id <s>              Request id prefixing temp files")
	fmt.Fprintln(w, "      --client-template     Ignore server template variants")
	fmt.Fprintln(w, "      --tiles               Draw resized posters from map tiles")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Labels:")
	fmt.Fprintln(w, "      --header <s>          Header, e.g. the city")
	fmt.Fprintln(w, "      --small-header <s>    Small header, e.g. the country")
	fmt.Fprintln(w, "      --text <s>            Text, e.g. coordinates")
	fmt.Fprintln(w, "      --no-labels           Hide the label area")
}

// printRenderUsage prints usage for the render command.
func printRenderUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mapposter render --bbox <w,s,e,n> -o <file> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render one map poster.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -o, --output <path>       Output file (required)")
	fmt.Fprintln(w, "  -f, --format <s>          png, jpeg, tiff, gif, svg, pdf (default: from extension)")
	fmt.Fprintln(w, "      --quality <n>         JPEG quality 1-100")
	fmt.Fprintln(w, "      --width <px>          Resize to this width (wins over --height)")
	fmt.Fprintln(w, "      --height <px>         Resize to this height")
	fmt.Fprintln(w, "      --embed-raster        PDF: embed a raster poster")
	fmt.Fprintln(w)
	printPosterUsage(w)
	fmt.Fprintln(w)
	printRuntimeUsage(w)
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printBatchUsage prints usage for the batch command.
func printBatchUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mapposter batch <jobs.yaml> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render every job of a YAML file. Jobs inherit empty fields from")
	fmt.Fprintln(w, "'defaults'; a job with 'mockup' renders into a catalog photo.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  jobs:")
	fmt.Fprintln(w, "    - output: helsinki.png")
	fmt.Fprintln(w, "      mapStyle: bw")
	fmt.Fprintln(w, "      posterStyle: bw")
	fmt.Fprintln(w, "      size: 50x70cm")
	fmt.Fprintln(w, "      bounds: {southWest: {lat: 60.1, lng: 24.8}, northEast: {lat: 60.3, lng: 25.1}}")
	fmt.Fprintln(w, "      header: Helsinki")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Batch:")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel renders (0 = auto)")
	fmt.Fprintln(w, "  -o, --output-dir <path>   Base for relative outputs (default: job file dir)")
	fmt.Fprintln(w)
	printRuntimeUsage(w)
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printMockupUsage prints usage for the mockup command.
func printMockupUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mapposter mockup --photo <name> --bbox <w,s,e,n> -o <file.png> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render a poster and place it into a photo from the mockup catalog.")
	fmt.Fprintln(w, "The photo decides the poster size and orientation.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Mockup:")
	fmt.Fprintln(w, "  -o, --output <path>       Output PNG (required)")
	fmt.Fprintln(w, "      --photo <name>        Catalog photo (required)")
	fmt.Fprintln(w, "      --frame <s>           Frame: black")
	fmt.Fprintln(w, "      --width <px>          Resize the photo to this width")
	fmt.Fprintln(w, "      --height <px>         Resize the photo to this height")
	fmt.Fprintln(w)
	printPosterUsage(w)
	fmt.Fprintln(w)
	printRuntimeUsage(w)
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printStylesUsage prints usage for the styles command.
func printStylesUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mapposter styles [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "List map styles, poster styles and mockup photos.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "      --prewarm             Load every map style and report failures")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mapposter doctor [--json]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check Chrome, the map renderer, styles, fonts, the tile cache")
	fmt.Fprintln(w, "and the temp directory.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "      --json                Machine-readable output")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "render":
		printRenderUsage(env.Stdout)
	case "batch":
		printBatchUsage(env.Stdout)
	case "mockup":
		printMockupUsage(env.Stdout)
	case "styles":
		printStylesUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: mapposter version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: mapposter help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
