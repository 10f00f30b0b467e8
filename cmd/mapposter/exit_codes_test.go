package main

// Notes:
// - exitCodeFor: we test the sentinel errors of every group, plus wrapped
//   errors to verify the errors.Is() chain.
// - A batch failure carries its first job error, so it maps like that error.

import (
	"errors"
	"fmt"
	"os"
	"testing"

	mapposter "github.com/alnah/go-mapposter"
	"github.com/alnah/go-mapposter/internal/browser"
	"github.com/alnah/go-mapposter/internal/config"
	"github.com/alnah/go-mapposter/internal/engine"
	"github.com/alnah/go-mapposter/internal/mosaic"
	"github.com/alnah/go-mapposter/internal/paper"
	"github.com/alnah/go-mapposter/internal/styles"
)

// ---------------------------------------------------------------------------
// TestExitCodeFor - Error to exit code mapping
// ---------------------------------------------------------------------------

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, ExitSuccess},

		// Browser errors (exit 4)
		{"browser connect", mapposter.ErrBrowserConnect, ExitBrowser},
		{"page load", browser.ErrPageLoad, ExitBrowser},
		{"screenshot", browser.ErrScreenshot, ExitBrowser},
		{"measure", browser.ErrMeasure, ExitBrowser},
		{"pdf generation", mapposter.ErrPDFGeneration, ExitBrowser},
		{"overlay", mapposter.ErrOverlay, ExitBrowser},

		// Engine errors (exit 5)
		{"style load", mapposter.ErrStyleLoad, ExitEngine},
		{"style load of missing file", fmt.Errorf("%w: %w", mapposter.ErrStyleLoad, os.ErrNotExist), ExitEngine},
		{"lock timeout", mapposter.ErrLockTimeout, ExitEngine},
		{"dimension mismatch", mapposter.ErrDimensionMismatch, ExitEngine},
		{"engine render", engine.ErrRender, ExitEngine},
		{"stylesheet", engine.ErrStylesheet, ExitEngine},
		{"tile fetch", mosaic.ErrTileFetch, ExitEngine},

		// I/O errors (exit 3)
		{"file not exist", os.ErrNotExist, ExitIO},
		{"permission denied", os.ErrPermission, ExitIO},
		{"cleanup", mapposter.ErrCleanup, ExitIO},
		{"font not found", mapposter.ErrFontNotFound, ExitIO},
		{"write output", ErrWriteOutput, ExitIO},
		{"read batch", ErrReadBatch, ExitIO},

		// Usage errors (exit 2)
		{"usage", ErrUsage, ExitUsage},
		{"bbox", ErrInvalidBBox, ExitUsage},
		{"config not found", config.ErrConfigNotFound, ExitUsage},
		{"config parse", config.ErrConfigParse, ExitUsage},
		{"config value", config.ErrInvalidValue, ExitUsage},
		{"invalid request", mapposter.ErrInvalidRequest, ExitUsage},
		{"template not found", mapposter.ErrTemplateNotFound, ExitUsage},
		{"photo not found", mapposter.ErrPhotoNotFound, ExitUsage},
		{"aspect ratio", mapposter.ErrAspectRatio, ExitUsage},
		{"unknown poster style", styles.ErrUnknownPosterStyle, ExitUsage},
		{"paper size", paper.ErrInvalidSize, ExitUsage},
		{"wrapped request", fmt.Errorf("job 3: %w", mapposter.ErrInvalidRequest), ExitUsage},

		// General errors (exit 1)
		{"unknown error", errors.New("something unexpected"), ExitGeneral},
		{"wrapped unknown", fmt.Errorf("context: %w", errors.New("unknown")), ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestExitCodes_Conventions(t *testing.T) {
	t.Parallel()

	if ExitSuccess != 0 || ExitGeneral != 1 || ExitUsage != 2 {
		t.Error("exit codes 0, 1, 2 must follow Unix conventions")
	}
	for _, code := range []int{ExitIO, ExitBrowser, ExitEngine} {
		if code >= 126 {
			t.Errorf("custom exit code %d must be below 126", code)
		}
	}
}
