package poster

// Loader defines the contract for reading raw SVG poster templates.
type Loader interface {
	// LoadTemplate reads a template by name (without the .svg extension).
	// Returns ErrTemplateNotFound if the template doesn't exist.
	// Returns ErrInvalidTemplateName if the name contains invalid characters.
	LoadTemplate(name string) ([]byte, error)
}
