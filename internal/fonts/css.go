package fonts

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// FaceCSS returns @font-face rules pointing at the local font files, so a
// browser rendering the overlay uses exactly the resolved files.
func FaceCSS(faces []Face) string {
	var b strings.Builder
	for _, f := range faces {
		abs, err := filepath.Abs(f.File.Path)
		if err != nil {
			abs = f.File.Path
		}
		u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
		fmt.Fprintf(&b, "@font-face { font-family: '%s'; src: url('%s') format('%s'); }\n",
			strings.ReplaceAll(f.Family, "'", `\'`), u.String(), cssFormat(f.File.Path))
	}
	return b.String()
}

func cssFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".otf":
		return "opentype"
	case ".ttc":
		return "collection"
	default:
		return "truetype"
	}
}
