package main

import (
	"errors"
	"os"

	mapposter "github.com/alnah/go-mapposter"
	"github.com/alnah/go-mapposter/internal/browser"
	"github.com/alnah/go-mapposter/internal/config"
	"github.com/alnah/go-mapposter/internal/engine"
	"github.com/alnah/go-mapposter/internal/mosaic"
	"github.com/alnah/go-mapposter/internal/paper"
	"github.com/alnah/go-mapposter/internal/styles"
)

// Exit codes for the mapposter CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Poster written
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or request
	ExitIO      = 3 // File not found, permission denied
	ExitBrowser = 4 // Chrome errors
	ExitEngine  = 5 // Map renderer, style pool or tile server errors
)

// exitCodeFor returns the exit code for an error. Callers must wrap with
// %w so errors.Is sees the sentinel.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, mapposter.ErrBrowserConnect) ||
		errors.Is(err, browser.ErrPageCreate) ||
		errors.Is(err, browser.ErrPageLoad) ||
		errors.Is(err, browser.ErrScreenshot) ||
		errors.Is(err, browser.ErrMeasure) ||
		errors.Is(err, mapposter.ErrPDFGeneration) ||
		errors.Is(err, mapposter.ErrOverlay) {
		return ExitBrowser
	}

	if errors.Is(err, mapposter.ErrStyleLoad) ||
		errors.Is(err, mapposter.ErrRender) ||
		errors.Is(err, mapposter.ErrLockTimeout) ||
		errors.Is(err, mapposter.ErrDimensionMismatch) ||
		errors.Is(err, engine.ErrStylesheet) ||
		errors.Is(err, engine.ErrRender) ||
		errors.Is(err, mosaic.ErrTileFetch) {
		return ExitEngine
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, mapposter.ErrCleanup) ||
		errors.Is(err, mapposter.ErrFontNotFound) ||
		errors.Is(err, ErrWriteOutput) ||
		errors.Is(err, ErrReadBatch) {
		return ExitIO
	}

	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrInvalidBBox) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, mapposter.ErrInvalidRequest) ||
		errors.Is(err, mapposter.ErrTemplateNotFound) ||
		errors.Is(err, mapposter.ErrTemplateParse) ||
		errors.Is(err, mapposter.ErrPhotoNotFound) ||
		errors.Is(err, mapposter.ErrUnsupportedFormat) ||
		errors.Is(err, mapposter.ErrAspectRatio) ||
		errors.Is(err, styles.ErrUnknownMapStyle) ||
		errors.Is(err, styles.ErrUnknownPosterStyle) ||
		errors.Is(err, styles.ErrInvalidCatalog) ||
		errors.Is(err, paper.ErrInvalidSize) ||
		errors.Is(err, paper.ErrInvalidOrientation) {
		return ExitUsage
	}

	return ExitGeneral
}
