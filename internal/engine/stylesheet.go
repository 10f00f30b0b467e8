package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/beevik/etree"

	"github.com/alnah/go-mapposter/internal/fileutil"
)

// AutogenSuffix marks stylesheets generated from a source stylesheet.
// Style discovery skips them.
const AutogenSuffix = "-autogen"

// PostGIS holds the database connection parameters written into
// stylesheets. Zero fields take the defaults.
type PostGIS struct {
	DBName   string `yaml:"dbname"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// WithDefaults fills empty fields with osm/localhost/5432/osm/osm.
func (p PostGIS) WithDefaults() PostGIS {
	if p.DBName == "" {
		p.DBName = "osm"
	}
	if p.Host == "" {
		p.Host = "localhost"
	}
	if p.Port == "" {
		p.Port = "5432"
	}
	if p.User == "" {
		p.User = "osm"
	}
	if p.Password == "" {
		p.Password = "osm"
	}
	return p
}

func (p PostGIS) params() [][2]string {
	p = p.WithDefaults()
	return [][2]string{
		{"dbname", p.DBName},
		{"host", p.Host},
		{"port", p.Port},
		{"user", p.User},
		{"password", p.Password},
	}
}

// ReplacePostGIS rewrites every
// <Parameter name="KEY"><![CDATA[...]]></Parameter> block for the PostGIS
// connection keys.
func ReplacePostGIS(xml string, p PostGIS) string {
	for _, kv := range p.params() {
		re := regexp.MustCompile(`<Parameter name="` + regexp.QuoteMeta(kv[0]) + `"><!\[CDATA\[(.*?)\]\]></Parameter>`)
		repl := `<Parameter name="` + kv[0] + `"><![CDATA[` + strings.ReplaceAll(kv[1], "$", "$$") + `]]></Parameter>`
		xml = re.ReplaceAllString(xml, repl)
	}
	return xml
}

// AutogenPath returns {dir}/{style}-autogen.xml for a stylesheet path.
func AutogenPath(stylesheetPath string) string {
	name := strings.TrimSuffix(filepath.Base(stylesheetPath), ".xml")
	return filepath.Join(filepath.Dir(stylesheetPath), name+AutogenSuffix+".xml")
}

// PrepareStylesheet validates the stylesheet, substitutes the PostGIS
// parameters and writes the result next to the source, so relative
// data-source paths keep resolving. Returns the generated path.
func PrepareStylesheet(stylesheetPath string, p PostGIS) (string, error) {
	data, err := os.ReadFile(stylesheetPath) // #nosec G304 -- configured style dir
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStylesheet, err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrStylesheet, stylesheetPath, err)
	}
	if root := doc.Root(); root == nil || root.Tag != "Map" {
		return "", fmt.Errorf("%w: %s: root element must be <Map>", ErrStylesheet, stylesheetPath)
	}

	out := AutogenPath(stylesheetPath)
	if err := fileutil.WriteAtomic(out, []byte(ReplacePostGIS(string(data), p)), 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStylesheet, err)
	}
	return out, nil
}

// DiscoverStyles lists style names ({name}.xml) in dir, skipping
// generated stylesheets.
func DiscoverStyles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.xml"))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSuffix(filepath.Base(m), ".xml")
		if strings.HasSuffix(name, AutogenSuffix) {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
