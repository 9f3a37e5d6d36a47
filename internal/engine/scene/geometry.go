package scene

import "math"

// Rect is an axis-aligned bounding box in canvas units.
type Rect struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Width returns the width of the rectangle.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the height of the rectangle.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Union returns the smallest rectangle containing r and other.
func (r Rect) Union(other Rect) Rect {
	return Rect{
		MinX: math.Min(r.MinX, other.MinX),
		MinY: math.Min(r.MinY, other.MinY),
		MaxX: math.Max(r.MaxX, other.MaxX),
		MaxY: math.Max(r.MaxY, other.MaxY),
	}
}

// Contains reports whether the point lies inside r.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.MinX && x <= r.MaxX && y >= r.MinY && y <= r.MaxY
}

// Coords returns the bounding box computed by the last SetCoords call.
func (o *Object) Coords() Rect {
	return o.coords
}

// ScaledSize returns width and height after scaling.
func (o *Object) ScaledSize() (float64, float64) {
	w := o.Float("width", 0) * math.Abs(o.Float("scaleX", 1))
	h := o.Float("height", 0) * math.Abs(o.Float("scaleY", 1))
	return w, h
}

// SetCoords recomputes the bounding box from left, top, width, height,
// scale and angle. The object rotates around its top-left corner.
func (o *Object) SetCoords() {
	left := o.Float("left", 0)
	top := o.Float("top", 0)
	w, h := o.ScaledSize()

	rad := o.Float("angle", 0) * math.Pi / 180
	sin, cos := math.Sincos(rad)

	corners := [4][2]float64{{0, 0}, {w, 0}, {w, h}, {0, h}}
	r := Rect{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	for _, c := range corners {
		x := left + c[0]*cos - c[1]*sin
		y := top + c[0]*sin + c[1]*cos
		r.MinX = math.Min(r.MinX, x)
		r.MinY = math.Min(r.MinY, y)
		r.MaxX = math.Max(r.MaxX, x)
		r.MaxY = math.Max(r.MaxY, y)
	}
	o.coords = r
}

// near reports whether two objects sit at the same position within one
// canvas unit.
func near(a, b float64) bool {
	return math.Abs(a-b) < 1
}
