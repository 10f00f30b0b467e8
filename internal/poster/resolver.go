package poster

import (
	"errors"
	"fmt"
)

// Orientations accepted in template names.
const (
	Portrait  = "portrait"
	Landscape = "landscape"
)

// serverSuffix marks the print variant of a template. Client variants are
// the previews shown in the web editor.
const serverSuffix = "-server"

// Resolver combines custom and embedded loaders with fallback logic.
// When a custom directory is configured, it tries custom first, then falls
// back to embedded if the template is not found there.
type Resolver struct {
	custom   Loader // nil if no custom path configured
	embedded Loader
}

// NewResolver creates a Resolver.
// If customBasePath is empty, only embedded templates are used.
// Returns error if customBasePath is set but invalid.
func NewResolver(customBasePath string) (*Resolver, error) {
	resolver := &Resolver{
		embedded: NewEmbeddedLoader(),
	}

	if customBasePath != "" {
		fsLoader, err := NewFilesystemLoader(customBasePath)
		if err != nil {
			return nil, err
		}
		resolver.custom = fsLoader
	}

	return resolver, nil
}

// LoadTemplate reads a template, trying the custom loader first if available.
func (r *Resolver) LoadTemplate(name string) ([]byte, error) {
	if r.custom == nil {
		return r.embedded.LoadTemplate(name)
	}

	content, err := r.custom.LoadTemplate(name)
	if err == nil {
		return content, nil
	}

	// Only fall back for "not found" errors, not validation or I/O errors
	if !errors.Is(err, ErrTemplateNotFound) {
		return nil, err
	}

	return r.embedded.LoadTemplate(name)
}

// HasCustomLoader returns true if a custom template directory is configured.
func (r *Resolver) HasCustomLoader() bool {
	return r.custom != nil
}

// TemplateName returns {posterStyle}-{size}-{orientation}, plus "-server"
// for the print variant.
func TemplateName(posterStyle, size, orientation string, server bool) string {
	name := posterStyle + "-" + size + "-" + orientation
	if server {
		name += serverSuffix
	}
	return name
}

// Find loads and parses the template for a poster. The server variant is
// preferred unless client is set; the client variant is the fallback.
// Returns the parsed template and the name it was loaded from.
func (r *Resolver) Find(posterStyle, size, orientation string, client bool) (*Template, string, error) {
	if orientation == "" {
		orientation = Portrait
	}

	names := []string{TemplateName(posterStyle, size, orientation, false)}
	if !client {
		names = append([]string{TemplateName(posterStyle, size, orientation, true)}, names...)
	}

	for _, name := range names {
		data, err := r.LoadTemplate(name)
		if errors.Is(err, ErrTemplateNotFound) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		t, err := Parse(data)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", name, err)
		}
		return t, name, nil
	}

	return nil, "", fmt.Errorf("%w: %s", ErrTemplateNotFound, names[len(names)-1])
}

// Compile-time interface check.
var _ Loader = (*Resolver)(nil)
