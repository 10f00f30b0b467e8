package poster

import (
	"embed"
	"fmt"
)

//go:embed templates/*.svg
var templates embed.FS

// EmbeddedLoader reads the sample templates compiled into the binary.
// Implements Loader interface.
type EmbeddedLoader struct{}

// NewEmbeddedLoader creates an EmbeddedLoader.
func NewEmbeddedLoader() *EmbeddedLoader {
	return &EmbeddedLoader{}
}

// LoadTemplate reads an embedded SVG template by name.
func (e *EmbeddedLoader) LoadTemplate(name string) ([]byte, error) {
	if err := ValidateTemplateName(name); err != nil {
		return nil, err
	}

	content, err := templates.ReadFile("templates/" + name + ".svg")
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}

	return content, nil
}

// Compile-time interface check.
var _ Loader = (*EmbeddedLoader)(nil)
