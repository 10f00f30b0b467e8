package poster

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Placeholder ids in poster templates.
const (
	HeaderID      = "header"
	SmallHeaderID = "small-header"
	TextID        = "text"
	MapGroupID    = "map"
)

var leadingInt = regexp.MustCompile(`^\s*([+-]?\d+)`)

// Size is a template's declared pixel size.
type Size struct {
	Width  int
	Height int
}

// Template is a parsed SVG poster layout.
type Template struct {
	doc  *etree.Document
	root *etree.Element
}

// Parse reads an SVG template. The document must contain exactly one <svg>
// element, which is its root.
func Parse(data []byte) (*Template, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateParse, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "svg" {
		return nil, fmt.Errorf("%w: root element is not <svg>", ErrTemplateParse)
	}
	if n := len(doc.FindElements("//svg")); n != 1 {
		return nil, fmt.Errorf("%w: unexpected amount of svg elements: %d", ErrTemplateParse, n)
	}
	return &Template{doc: doc, root: root}, nil
}

// Size reads the root width and height with parseInt semantics: the leading
// integer counts and any unit suffix is ignored.
func (t *Template) Size() (Size, error) {
	w, err := parseIntAttr(t.root, "width")
	if err != nil {
		return Size{}, err
	}
	h, err := parseIntAttr(t.root, "height")
	if err != nil {
		return Size{}, err
	}
	return Size{Width: w, Height: h}, nil
}

func parseIntAttr(el *etree.Element, key string) (int, error) {
	v := el.SelectAttrValue(key, "")
	m := leadingInt.FindStringSubmatch(v)
	if m == nil {
		return 0, fmt.Errorf("%w: %s attribute %q is not numeric", ErrTemplateParse, key, v)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s attribute %q is not a positive size", ErrTemplateParse, key, v)
	}
	return n, nil
}

// Header returns the required header placeholder.
func (t *Template) Header() (*Placeholder, error) {
	p, err := t.placeholder(HeaderID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: missing #%s", ErrTemplateParse, HeaderID)
	}
	return p, nil
}

// SmallHeader returns the small-header placeholder, or nil if the template
// has none.
func (t *Template) SmallHeader() (*Placeholder, error) {
	return t.placeholder(SmallHeaderID)
}

// Text returns the body text placeholder, or nil if the template has none.
func (t *Template) Text() (*Placeholder, error) {
	return t.placeholder(TextID)
}

func (t *Template) byID(id string) *etree.Element {
	return t.root.FindElement("//*[@id='" + id + "']")
}

func (t *Template) placeholder(id string) (*Placeholder, error) {
	el := t.byID(id)
	if el == nil {
		return nil, nil
	}
	runs := el.SelectElements("tspan")
	if len(runs) != 1 {
		return nil, fmt.Errorf("%w: #%s must contain exactly one <tspan>, found %d", ErrTemplateParse, id, len(runs))
	}
	return &Placeholder{el: el, run: runs[0]}, nil
}

// Texts returns every <text> element as a run, in document order. Text
// elements without a <tspan> are their own run.
func (t *Template) Texts() []*Placeholder {
	els := t.root.FindElements("//text")
	out := make([]*Placeholder, 0, len(els))
	for _, el := range els {
		run := el.SelectElement("tspan")
		if run == nil {
			run = el
		}
		out = append(out, &Placeholder{el: el, run: run})
	}
	return out
}

// SetSize sets the root width and height, keeping the drawing scaled to the
// new size. A viewBox of the previous declared size is added when missing.
func (t *Template) SetSize(width, height int) error {
	if t.root.SelectAttr("viewBox") == nil {
		s, err := t.Size()
		if err != nil {
			return err
		}
		t.root.CreateAttr("viewBox", fmt.Sprintf("0 0 %d %d", s.Width, s.Height))
	}
	t.root.CreateAttr("width", strconv.Itoa(width))
	t.root.CreateAttr("height", strconv.Itoa(height))
	return nil
}

// SetPhysicalSize is SetSize in inches, for printing.
func (t *Template) SetPhysicalSize(widthIn, heightIn float64) error {
	if t.root.SelectAttr("viewBox") == nil {
		s, err := t.Size()
		if err != nil {
			return err
		}
		t.root.CreateAttr("viewBox", fmt.Sprintf("0 0 %d %d", s.Width, s.Height))
	}
	t.root.CreateAttr("width", strconv.FormatFloat(widthIn, 'f', -1, 64)+"in")
	t.root.CreateAttr("height", strconv.FormatFloat(heightIn, 'f', -1, 64)+"in")
	return nil
}

// ViewBox returns the root viewBox, or "0 0 W H" of the declared size.
func (t *Template) ViewBox() (string, error) {
	return viewBox(t.root)
}

func viewBox(root *etree.Element) (string, error) {
	if v := root.SelectAttrValue("viewBox", ""); v != "" {
		return strings.Join(strings.FieldsFunc(v, func(r rune) bool { return r == ' ' || r == ',' }), " "), nil
	}
	w, err := parseIntAttr(root, "width")
	if err != nil {
		return "", err
	}
	h, err := parseIntAttr(root, "height")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("0 0 %d %d", w, h), nil
}

// AddStyle appends a <style> block to the first <defs>, creating it as the
// root's first child when absent.
func (t *Template) AddStyle(css string) {
	defs := t.root.SelectElement("defs")
	if defs == nil {
		defs = etree.NewElement("defs")
		t.root.InsertChildAt(0, defs)
	}
	style := defs.CreateElement("style")
	style.CreateAttr("type", "text/css")
	style.SetText(css)
}

// ClearContent removes every child of the root.
func (t *Template) ClearContent() {
	for _, tok := range append([]etree.Token(nil), t.root.Child...) {
		t.root.RemoveChild(tok)
	}
}

// AddPaddingRects draws four rects of the given color along the edges of a
// width x height canvas, each padding thick.
func (t *Template) AddPaddingRects(width, height, padding int, color string) {
	rects := [][4]int{
		{0, 0, width, padding},
		{0, height - padding, width, padding},
		{0, 0, padding, height},
		{width - padding, 0, padding, height},
	}
	for _, r := range rects {
		el := t.root.CreateElement("rect")
		el.CreateAttr("x", strconv.Itoa(r[0]))
		el.CreateAttr("y", strconv.Itoa(r[1]))
		el.CreateAttr("width", strconv.Itoa(r[2]))
		el.CreateAttr("height", strconv.Itoa(r[3]))
		el.CreateAttr("fill", color)
	}
}

// EmbedMap nests the children of a map SVG document in a <g id="map">
// inserted as the root's first child. The map's width, height and viewBox
// must equal the poster's.
func (t *Template) EmbedMap(mapSVG []byte) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(mapSVG); err != nil {
		return fmt.Errorf("%w: %v", ErrMapMismatch, err)
	}
	mroot := doc.Root()
	if mroot == nil || mroot.Tag != "svg" {
		return fmt.Errorf("%w: map root is not <svg>", ErrMapMismatch)
	}

	for _, key := range []string{"width", "height"} {
		pv, err := parseIntAttr(t.root, key)
		if err != nil {
			return err
		}
		mv, err := parseIntAttr(mroot, key)
		if err != nil || mv != pv {
			return fmt.Errorf("%w: %s %q, expected %d", ErrMapMismatch, key, mroot.SelectAttrValue(key, ""), pv)
		}
	}
	pvb, err := t.ViewBox()
	if err != nil {
		return err
	}
	if mvb, err := viewBox(mroot); err != nil || mvb != pvb {
		return fmt.Errorf("%w: viewBox %q, expected %q", ErrMapMismatch, mroot.SelectAttrValue("viewBox", ""), pvb)
	}

	for _, a := range mroot.Attr {
		if a.Space == "xmlns" && t.root.SelectAttr("xmlns:"+a.Key) == nil {
			t.root.CreateAttr("xmlns:"+a.Key, a.Value)
		}
	}

	g := etree.NewElement("g")
	g.CreateAttr("id", MapGroupID)
	for _, tok := range append([]etree.Token(nil), mroot.Child...) {
		g.AddChild(tok)
	}
	t.root.InsertChildAt(0, g)
	return nil
}

// Bytes serializes the document.
func (t *Template) Bytes() ([]byte, error) {
	return t.doc.WriteToBytes()
}

// Placeholder is a text element and the run that carries its string.
type Placeholder struct {
	el  *etree.Element
	run *etree.Element
}

// ID returns the element id.
func (p *Placeholder) ID() string {
	return p.el.SelectAttrValue("id", "")
}

// Text returns the run's text.
func (p *Placeholder) Text() string {
	return p.run.Text()
}

// SetText replaces the run's text.
func (p *Placeholder) SetText(s string) {
	p.run.SetText(s)
}

// Fill returns the effective fill color.
func (p *Placeholder) Fill() string {
	return inherited(p.run, "fill")
}

// SetFill sets the fill on the element and on its run.
func (p *Placeholder) SetFill(color string) {
	setPresentation(p.el, "fill", color)
	if p.run != p.el {
		setPresentation(p.run, "fill", color)
	}
}

// FontFamily returns the effective font-family, looking at the run first
// and then its ancestors.
func (p *Placeholder) FontFamily() string {
	return inherited(p.run, "font-family")
}

// SetFontFamily sets the font-family on the run.
func (p *Placeholder) SetFontFamily(family string) {
	setPresentation(p.run, "font-family", family)
}

// LetterSpacing returns the effective letter-spacing in user units, 0 when
// unset or not numeric.
func (p *Placeholder) LetterSpacing() float64 {
	v := strings.TrimSuffix(strings.TrimSpace(inherited(p.run, "letter-spacing")), "px")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

// inherited reads a presentation property from el or its nearest ancestor.
// A style declaration beats the attribute on the same element.
func inherited(el *etree.Element, prop string) string {
	for e := el; e != nil; e = e.Parent() {
		if v, ok := styleProp(e.SelectAttrValue("style", ""), prop); ok {
			return v
		}
		if v := e.SelectAttrValue(prop, ""); v != "" {
			return v
		}
	}
	return ""
}

func styleProp(style, prop string) (string, bool) {
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if ok && strings.TrimSpace(k) == prop {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// setPresentation writes prop into the style attribute when it already
// declares it, otherwise into the attribute.
func setPresentation(el *etree.Element, prop, value string) {
	style := el.SelectAttrValue("style", "")
	if _, ok := styleProp(style, prop); !ok {
		el.CreateAttr(prop, value)
		return
	}
	decls := strings.Split(style, ";")
	for i, decl := range decls {
		if k, _, ok := strings.Cut(decl, ":"); ok && strings.TrimSpace(k) == prop {
			decls[i] = prop + ":" + value
		}
	}
	el.CreateAttr("style", strings.Join(decls, ";"))
}
