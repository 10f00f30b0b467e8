package poster

import (
	"fmt"
	"strings"
)

// ValidateTemplateName checks that a template name is safe for use as a
// filename. Returns ErrInvalidTemplateName if the name is empty or contains
// path separators, dots (which could allow extension manipulation), or
// traversal characters.
func ValidateTemplateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTemplateName)
	}
	if strings.ContainsAny(name, "/\\.") {
		return fmt.Errorf("%w: %q", ErrInvalidTemplateName, name)
	}
	return nil
}
