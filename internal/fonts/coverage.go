package fonts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/image/font/sfnt"
)

// Script is a coarse writing-system class used to pick a fallback family.
type Script int

// Script classes.
const (
	ScriptDefault Script = iota
	ScriptCJK
	ScriptArabic
	ScriptHebrew
	ScriptThai
	ScriptDevanagari
	ScriptCyrillic
	ScriptGreek
)

// Classify returns the script class of r.
func Classify(r rune) Script {
	switch {
	case unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul):
		return ScriptCJK
	case unicode.Is(unicode.Arabic, r):
		return ScriptArabic
	case unicode.Is(unicode.Hebrew, r):
		return ScriptHebrew
	case unicode.Is(unicode.Thai, r):
		return ScriptThai
	case unicode.Is(unicode.Devanagari, r):
		return ScriptDevanagari
	case unicode.Is(unicode.Cyrillic, r):
		return ScriptCyrillic
	case unicode.Is(unicode.Greek, r):
		return ScriptGreek
	default:
		return ScriptDefault
	}
}

// Fallbacks names the base fallback family per script class. Weight
// suffixes are added at lookup time.
type Fallbacks struct {
	Default    string `yaml:"default"`
	CJK        string `yaml:"cjk"`
	Arabic     string `yaml:"arabic"`
	Hebrew     string `yaml:"hebrew"`
	Thai       string `yaml:"thai"`
	Devanagari string `yaml:"devanagari"`
	Cyrillic   string `yaml:"cyrillic"`
	Greek      string `yaml:"greek"`
}

// DefaultFallbacks uses the Noto families.
var DefaultFallbacks = Fallbacks{
	Default:    "NotoSans",
	CJK:        "NotoSansCJK",
	Arabic:     "NotoSansArabic",
	Hebrew:     "NotoSansHebrew",
	Thai:       "NotoSansThai",
	Devanagari: "NotoSansDevanagari",
	Cyrillic:   "NotoSans",
	Greek:      "NotoSans",
}

// WithDefaults fills empty entries from DefaultFallbacks.
func (f Fallbacks) WithDefaults() Fallbacks {
	fill := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	fill(&f.Default, DefaultFallbacks.Default)
	fill(&f.CJK, DefaultFallbacks.CJK)
	fill(&f.Arabic, DefaultFallbacks.Arabic)
	fill(&f.Hebrew, DefaultFallbacks.Hebrew)
	fill(&f.Thai, DefaultFallbacks.Thai)
	fill(&f.Devanagari, DefaultFallbacks.Devanagari)
	fill(&f.Cyrillic, DefaultFallbacks.Cyrillic)
	fill(&f.Greek, DefaultFallbacks.Greek)
	return f
}

// For returns the base family for a script class.
func (f Fallbacks) For(s Script) string {
	switch s {
	case ScriptCJK:
		return f.CJK
	case ScriptArabic:
		return f.Arabic
	case ScriptHebrew:
		return f.Hebrew
	case ScriptThai:
		return f.Thai
	case ScriptDevanagari:
		return f.Devanagari
	case ScriptCyrillic:
		return f.Cyrillic
	case ScriptGreek:
		return f.Greek
	default:
		return f.Default
	}
}

// WeightSuffix returns the style suffix of a family name ("-Bold" for
// "Latin-Bold"), or "" when the name has none.
func WeightSuffix(family string) string {
	i := strings.LastIndex(family, "-")
	if i <= 0 || i == len(family)-1 {
		return ""
	}
	return family[i:]
}

// Library holds the family mapping and the parsed fonts shared by all
// requests. It is safe for concurrent use.
type Library struct {
	mapping   Mapping
	fallbacks Fallbacks

	mu     sync.Mutex
	parsed map[File]*sfnt.Font
}

// NewLibrary returns a library over an existing mapping.
func NewLibrary(m Mapping, fallbacks Fallbacks) *Library {
	return &Library{
		mapping:   m,
		fallbacks: fallbacks.WithDefaults(),
		parsed:    make(map[File]*sfnt.Font),
	}
}

// LoadLibrary scans dir and returns a library over it.
func LoadLibrary(dir string, fallbacks Fallbacks) (*Library, error) {
	m, err := BuildMapping(dir)
	if err != nil {
		return nil, err
	}
	return NewLibrary(m, fallbacks), nil
}

// Mapping returns the family mapping.
func (l *Library) Mapping() Mapping { return l.mapping }

func (l *Library) font(f File) (*sfnt.Font, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if font, ok := l.parsed[f]; ok {
		return font, nil
	}
	data, err := os.ReadFile(f.Path) // #nosec G304 -- path from the font mapping
	if err != nil {
		return nil, fmt.Errorf("reading font %s: %w", f.Path, err)
	}
	fonts, err := parseAll(data, strings.ToLower(filepath.Ext(f.Path)))
	if err != nil {
		return nil, fmt.Errorf("parsing font %s: %w", f.Path, err)
	}
	if f.Index >= len(fonts) {
		return nil, fmt.Errorf("%w: %s has no font at index %d", ErrFontNotFound, f.Path, f.Index)
	}
	l.parsed[f] = fonts[f.Index]
	return fonts[f.Index], nil
}

// NewSession starts a request-scoped coverage session.
func (l *Library) NewSession() *Session {
	return &Session{
		lib:   l,
		cache: make(map[coverageKey]string),
		used:  make(map[string]File),
	}
}

type coverageKey struct {
	text   string
	family string
}

// Face is a resolved family and the file that draws it.
type Face struct {
	Family string
	File   File
}

// Session checks glyph coverage for one request and remembers every family
// it resolved. It is safe for concurrent use.
type Session struct {
	lib *Library

	mu    sync.Mutex
	buf   sfnt.Buffer
	cache map[coverageKey]string
	used  map[string]File
}

// EnsureCoverage checks that the primary family of familyAttr has a glyph
// for every code point of text. On the first missing glyph it picks the
// fallback family for that code point's script, keeping the primary's
// weight suffix, and returns it prepended to familyAttr. Otherwise it
// returns familyAttr unchanged. Results are cached per (text, familyAttr).
func (s *Session) EnsureCoverage(text, familyAttr string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := coverageKey{text: text, family: familyAttr}
	if v, ok := s.cache[key]; ok {
		return v, nil
	}

	families := SplitFamilies(familyAttr)
	if len(families) == 0 {
		return "", fmt.Errorf("%w: empty font-family", ErrFontNotFound)
	}
	primary := families[0]

	file, err := MatchFont(primary, s.lib.mapping)
	if err != nil {
		return "", err
	}
	font, err := s.lib.font(file)
	if err != nil {
		return "", err
	}
	s.used[primary] = file

	result := familyAttr
	for _, r := range text {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			continue
		}
		idx, err := font.GlyphIndex(&s.buf, r)
		if err != nil {
			return "", fmt.Errorf("glyph lookup in %s: %w", primary, err)
		}
		if idx != 0 {
			continue
		}

		fallback, fbFile, err := s.fallback(Classify(r), WeightSuffix(primary))
		if err != nil {
			return "", fmt.Errorf("no fallback for %q (U+%04X) in %s: %w", r, r, primary, err)
		}
		s.used[fallback] = fbFile
		result = JoinFamilies(append([]string{fallback}, families...))
		break
	}

	s.cache[key] = result
	return result, nil
}

func (s *Session) fallback(script Script, suffix string) (string, File, error) {
	base := s.lib.fallbacks.For(script)

	candidates := make([]string, 0, 3)
	if suffix != "" {
		candidates = append(candidates, base+suffix)
	}
	candidates = append(candidates, base+"-Regular", base)

	for _, family := range candidates {
		if f, err := MatchFont(family, s.lib.mapping); err == nil {
			return family, f, nil
		}
	}
	return "", File{}, fmt.Errorf("%w: %s", ErrFontNotFound, strings.Join(candidates, ", "))
}

// Faces returns every family resolved in this session, sorted by family.
func (s *Session) Faces() []Face {
	s.mu.Lock()
	defer s.mu.Unlock()

	faces := make([]Face, 0, len(s.used))
	for family, f := range s.used {
		faces = append(faces, Face{Family: family, File: f})
	}
	sort.Slice(faces, func(i, j int) bool { return faces[i].Family < faces[j].Family })
	return faces
}
