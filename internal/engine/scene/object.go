package scene

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/dshills/drafter/internal/engine/history"
)

// Kind identifies the shape of an object.
type Kind string

// Object kinds.
const (
	KindRect    Kind = "rect"
	KindEllipse Kind = "ellipse"
	KindLine    Kind = "line"
	KindText    Kind = "text"
	KindImage   Kind = "image"
	KindGroup   Kind = "group"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindRect, KindEllipse, KindLine, KindText, KindImage, KindGroup:
		return true
	}
	return false
}

// Well-known property names beyond the default tracked set.
const (
	PropName              = "name"
	PropTrackedProperties = "trackedProperties"
	PropLockMovementX     = "lockMovementX"
	PropLockMovementY     = "lockMovementY"
	PropLockRotation      = "lockRotation"
	PropLockScalingX      = "lockScalingX"
	PropLockScalingY      = "lockScalingY"
	PropHasControls       = "hasControls"
	PropSrc               = "src"
	PropFontSize          = "fontSize"
)

// Object is a single element of a scene.
//
// Properties are stored as a flat map in the shape the document format
// uses. Object is not safe for concurrent use; the engine serializes access.
type Object struct {
	id       string
	kind     Kind
	props    map[string]any
	children []*Object
	coords   Rect
}

// NewObject creates an object of the given kind.
// An "id" entry in props is used as the object id; otherwise a new one is
// generated. Numeric values are normalized to float64.
func NewObject(kind Kind, props map[string]any) *Object {
	o := &Object{
		kind:  kind,
		props: make(map[string]any, len(props)),
	}
	for k, v := range props {
		switch k {
		case "id":
			if s, ok := v.(string); ok {
				o.id = s
			}
		case "type", "objects":
		default:
			o.props[k] = normalize(v)
		}
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	o.SetCoords()
	return o
}

// ID returns the object id.
func (o *Object) ID() string {
	return o.id
}

// Kind returns the object kind.
func (o *Object) Kind() Kind {
	return o.kind
}

// Name returns the display name of the object.
func (o *Object) Name() string {
	return o.String(PropName, "")
}

// Get returns a property value.
// "id" and "type" are always reported.
func (o *Object) Get(name string) (any, bool) {
	switch name {
	case "id":
		return o.id, true
	case "type":
		return string(o.kind), true
	}
	v, ok := o.props[name]
	return v, ok
}

// Set assigns a property value. Setting "id" or "type" is ignored.
func (o *Object) Set(name string, value any) {
	switch name {
	case "id", "type", "objects":
		return
	}
	if value == nil {
		delete(o.props, name)
		return
	}
	o.props[name] = normalize(value)
}

// SetAll assigns several properties at once.
func (o *Object) SetAll(props map[string]any) {
	for k, v := range props {
		o.Set(k, v)
	}
}

// Float returns a numeric property or def.
func (o *Object) Float(name string, def float64) float64 {
	if v, ok := o.props[name]; ok {
		if f, ok := toFloat(v); ok {
			return f
		}
	}
	return def
}

// String returns a string property or def.
func (o *Object) String(name, def string) string {
	if v, ok := o.props[name].(string); ok {
		return v
	}
	return def
}

// Bool returns a boolean property or def.
func (o *Object) Bool(name string, def bool) bool {
	if v, ok := o.props[name].(bool); ok {
		return v
	}
	return def
}

// Props returns a copy of the property map.
func (o *Object) Props() map[string]any {
	out := make(map[string]any, len(o.props))
	for k, v := range o.props {
		out[k] = clone(v)
	}
	return out
}

// PropNames returns the sorted property names.
func (o *Object) PropNames() []string {
	names := make([]string, 0, len(o.props))
	for k := range o.props {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Children returns the child objects of a group.
func (o *Object) Children() []*Object {
	return append([]*Object(nil), o.children...)
}

// TrackedProperties returns the object's own tracked property list, if it
// carries one.
func (o *Object) TrackedProperties() []string {
	switch v := o.props[PropTrackedProperties].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Clone returns a deep copy with the same id.
func (o *Object) Clone() *Object {
	c := &Object{
		id:     o.id,
		kind:   o.kind,
		props:  o.Props(),
		coords: o.coords,
	}
	for _, child := range o.children {
		c.children = append(c.children, child.Clone())
	}
	return c
}

// Locked reports whether movement is locked.
func (o *Object) Locked() bool {
	return o.Bool(PropLockMovementX, false) && o.Bool(PropLockMovementY, false)
}

var (
	_ history.TrackedObject    = (*Object)(nil)
	_ history.PropertyDeclarer = (*Object)(nil)
)

// CheckValue reports ErrInvalidValue if v is or contains a non-finite number.
func CheckValue(v any) error {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("%w: %v", ErrInvalidValue, t)
		}
	case float32:
		return CheckValue(float64(t))
	case map[string]any:
		for _, e := range t {
			if err := CheckValue(e); err != nil {
				return err
			}
		}
	case []any:
		for _, e := range t {
			if err := CheckValue(e); err != nil {
				return err
			}
		}
	}
	return nil
}

// Validate checks every property of the object and its children.
func (o *Object) Validate() error {
	for name, v := range o.props {
		if err := CheckValue(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	for _, child := range o.children {
		if err := child.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = normalize(e)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = normalize(e)
		}
		return s
	default:
		return v
	}
}

func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = clone(e)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = clone(e)
		}
		return s
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
