package poster

import (
	"strconv"

	"github.com/beevik/etree"
)

// Line element ids flanking the small header.
const (
	LineLeftID  = SmallHeaderID + "-line-left"
	LineRightID = SmallHeaderID + "-line-right"
)

// BBox is a rendered text box in user units.
type BBox struct {
	X, Y, Width, Height float64
}

// SetSmallHeaderLines draws the decorative rules on both sides of the
// small header's box. Existing line elements keep their outer end and get
// their inner end moved to one half box height from the text. Missing ones
// are created three box heights long. A line the text would overlap is
// hidden.
func (t *Template) SetSmallHeaderLines(box BBox, strokeWidth float64, color string) {
	anchor := t.byID(SmallHeaderID)
	if anchor == nil {
		return
	}
	gap := box.Height / 2
	length := box.Height * 3
	cy := box.Y + box.Height/2
	left := box.X - gap
	right := box.X + box.Width + gap

	l := t.line(anchor, LineLeftID)
	if l.SelectAttr("x1") == nil {
		setFloat(l, "x1", left-length)
	}
	setFloat(l, "x2", left)

	r := t.line(l, LineRightID)
	if r.SelectAttr("x2") == nil {
		setFloat(r, "x2", right+length)
	}
	setFloat(r, "x1", right)

	for _, el := range []*etree.Element{l, r} {
		setFloat(el, "y1", cy)
		setFloat(el, "y2", cy)
		setFloat(el, "stroke-width", strokeWidth)
		el.CreateAttr("stroke", color)

		x1, _ := strconv.ParseFloat(el.SelectAttrValue("x1", "0"), 64)
		x2, _ := strconv.ParseFloat(el.SelectAttrValue("x2", "0"), 64)
		if x2 <= x1 {
			el.CreateAttr("visibility", "hidden")
		} else {
			el.RemoveAttr("visibility")
		}
	}
}

// line returns the line element with id, creating it right after anchor.
func (t *Template) line(anchor *etree.Element, id string) *etree.Element {
	if el := t.byID(id); el != nil {
		return el
	}
	el := etree.NewElement("line")
	el.CreateAttr("id", id)
	parent := anchor.Parent()
	parent.InsertChildAt(anchor.Index()+1, el)
	return el
}

func setFloat(el *etree.Element, key string, v float64) {
	el.CreateAttr(key, strconv.FormatFloat(v, 'f', -1, 64))
}
