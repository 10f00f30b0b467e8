package poster

import "errors"

// Sentinel errors for template operations.
var (
	// ErrTemplateNotFound indicates no template exists for the requested name.
	ErrTemplateNotFound = errors.New("poster template not found")

	// ErrTemplateParse indicates the template is not a usable SVG poster:
	// malformed XML, not exactly one <svg> element, a missing or non-numeric
	// declared size, or a placeholder without a <tspan> run.
	ErrTemplateParse = errors.New("failed to parse poster template")

	// ErrInvalidTemplateName indicates the name contains path separators,
	// dots or traversal sequences.
	ErrInvalidTemplateName = errors.New("invalid template name")

	// ErrInvalidBasePath indicates the configured template directory is not a valid directory.
	ErrInvalidBasePath = errors.New("invalid base path")

	// ErrTemplateRead indicates an I/O error occurred while reading a template file.
	ErrTemplateRead = errors.New("failed to read template")

	// ErrPathTraversal indicates an attempt to access files outside the base path.
	ErrPathTraversal = errors.New("path traversal detected")

	// ErrMapMismatch indicates an embedded map document does not share the
	// poster's size and viewBox.
	ErrMapMismatch = errors.New("map document does not match poster")
)
