package scene

import (
	"math"

	"github.com/google/uuid"
)

// NewGroup combines objects into a group.
//
// The group takes the bounding box of its members. Children keep their
// properties but their left/top become relative to the group center.
func NewGroup(name string, members ...*Object) *Object {
	g := &Object{
		id:    uuid.NewString(),
		kind:  KindGroup,
		props: make(map[string]any),
	}

	if len(members) == 0 {
		g.SetCoords()
		return g
	}

	bounds := Rect{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	for _, m := range members {
		m.SetCoords()
		bounds = bounds.Union(m.coords)
	}

	g.props["left"] = bounds.MinX
	g.props["top"] = bounds.MinY
	g.props["width"] = bounds.Width()
	g.props["height"] = bounds.Height()
	if name != "" {
		g.props[PropName] = name
	}

	cx, cy := groupCenter(g)
	for _, m := range members {
		c := m.Clone()
		c.props["left"] = c.Float("left", 0) - cx
		c.props["top"] = c.Float("top", 0) - cy
		g.children = append(g.children, c)
	}
	g.SetCoords()
	return g
}

// Ungroup returns copies of the group's children placed back in canvas
// coordinates. The group itself is not modified.
func (o *Object) Ungroup() []*Object {
	cx, cy := groupCenter(o)
	out := make([]*Object, 0, len(o.children))
	for _, child := range o.children {
		c := child.Clone()
		c.props["left"] = c.Float("left", 0) + cx
		c.props["top"] = c.Float("top", 0) + cy
		c.SetCoords()
		out = append(out, c)
	}
	return out
}

// groupCenter returns the canvas position children are relative to.
func groupCenter(g *Object) (float64, float64) {
	return g.Float("left", 0) + g.Float("width", 0)/2,
		g.Float("top", 0) + g.Float("height", 0)/2
}
