package mapposter

import (
	"errors"

	"github.com/alnah/go-mapposter/internal/browser"
	"github.com/alnah/go-mapposter/internal/fileutil"
	"github.com/alnah/go-mapposter/internal/fonts"
	"github.com/alnah/go-mapposter/internal/poster"
	"github.com/alnah/go-mapposter/internal/raster"
)

// Sentinel errors for library operations.
var (
	ErrInvalidRequest    = errors.New("invalid render request")
	ErrStyleLoad         = errors.New("failed to load map style")
	ErrLockTimeout       = errors.New("timed out waiting for map style")
	ErrPoolClosed        = errors.New("style pool is closed")
	ErrRender            = errors.New("map render failed")
	ErrDimensionMismatch = errors.New("map image has incorrect dimensions")
	ErrAspectRatio       = errors.New("incorrect aspect ratio for target dimensions")
	ErrOverlay           = errors.New("overlay rendering failed")
	ErrPhotoNotFound     = errors.New("mockup photo not found")

	// Errors raised by internal packages, re-exported so callers can match
	// them with errors.Is.
	ErrTemplateNotFound  = poster.ErrTemplateNotFound
	ErrTemplateParse     = poster.ErrTemplateParse
	ErrFontNotFound      = fonts.ErrFontNotFound
	ErrUnsupportedFormat = raster.ErrUnsupportedFormat
	ErrCleanup           = fileutil.ErrCleanup
	ErrBrowserConnect    = browser.ErrBrowserConnect
	ErrPDFGeneration     = browser.ErrPDFGeneration
)
