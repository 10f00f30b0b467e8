// Package fonts resolves font families to font files and substitutes a
// script-aware fallback family when a declared family cannot draw a label.
package fonts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// ErrFontNotFound is returned when no file is mapped for a family.
var ErrFontNotFound = errors.New("font not found")

// File locates one font inside a font file. Index is the font's position
// in a .ttc collection and zero otherwise.
type File struct {
	Path  string
	Index int
}

// Mapping maps family names to font files.
type Mapping map[string]File

// Families returns the sorted family keys.
func (m Mapping) Families() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MatchFont looks up family by exact key, then with whitespace removed.
func MatchFont(family string, m Mapping) (File, error) {
	if f, ok := m[family]; ok {
		return f, nil
	}
	if f, ok := m[stripSpace(family)]; ok {
		return f, nil
	}
	return File{}, fmt.Errorf("%w: %q", ErrFontNotFound, family)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// BuildMapping scans dir recursively for .ttf, .otf and .ttc files. Each
// font is keyed by file basename (without extension), PostScript name and
// full name. Earlier keys win on collisions. Files that fail to parse are
// still reachable by basename.
func BuildMapping(dir string) (Mapping, error) {
	m := Mapping{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".ttf" && ext != ".otf" && ext != ".ttc" {
			return nil
		}

		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		addKey(m, base, File{Path: path})

		data, err := os.ReadFile(path) // #nosec G304 -- configured font dir
		if err != nil {
			return err
		}
		fonts, err := parseAll(data, ext)
		if err != nil {
			return nil
		}
		for i, f := range fonts {
			file := File{Path: path, Index: i}
			for _, id := range []sfnt.NameID{sfnt.NameIDPostScript, sfnt.NameIDFull} {
				if name, err := f.Name(nil, id); err == nil && name != "" {
					addKey(m, name, file)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning font dir %s: %w", dir, err)
	}
	return m, nil
}

func addKey(m Mapping, key string, f File) {
	if _, ok := m[key]; !ok {
		m[key] = f
	}
}

func parseAll(data []byte, ext string) ([]*sfnt.Font, error) {
	if ext != ".ttc" {
		f, err := opentype.Parse(data)
		if err != nil {
			return nil, err
		}
		return []*sfnt.Font{f}, nil
	}

	c, err := opentype.ParseCollection(data)
	if err != nil {
		return nil, err
	}
	fonts := make([]*sfnt.Font, 0, c.NumFonts())
	for i := range c.NumFonts() {
		f, err := c.Font(i)
		if err != nil {
			return nil, err
		}
		fonts = append(fonts, f)
	}
	return fonts, nil
}

// SplitFamilies parses a font-family attribute value into unquoted names.
func SplitFamilies(attr string) []string {
	parts := strings.Split(attr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `"'`)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinFamilies formats family names as a font-family attribute value.
func JoinFamilies(families []string) string {
	out := make([]string, len(families))
	for i, f := range families {
		if strings.ContainsAny(f, " ,") {
			f = "'" + f + "'"
		}
		out[i] = f
	}
	return strings.Join(out, ", ")
}
