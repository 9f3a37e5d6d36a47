package history

// Property names tracked by default.
const (
	PropLeft        = "left"
	PropTop         = "top"
	PropWidth       = "width"
	PropHeight      = "height"
	PropScaleX      = "scaleX"
	PropScaleY      = "scaleY"
	PropFlipX       = "flipX"
	PropFlipY       = "flipY"
	PropAngle       = "angle"
	PropOpacity     = "opacity"
	PropFill        = "fill"
	PropStroke      = "stroke"
	PropStrokeWidth = "strokeWidth"
	PropText        = "text"
)

// DefaultTrackedProperties is the property set used for objects that do not
// declare their own.
var DefaultTrackedProperties = []string{
	PropLeft, PropTop, PropWidth, PropHeight,
	PropScaleX, PropScaleY, PropFlipX, PropFlipY,
	PropAngle, PropOpacity, PropFill, PropStroke,
	PropStrokeWidth, PropText,
}

// TrackedObject is a mutable scene entity whose properties participate in
// undo/redo.
type TrackedObject interface {
	// ID returns the stable identifier of the object.
	ID() string

	// Get returns the value of a property and whether the object has it.
	Get(name string) (any, bool)

	// Set assigns a property value.
	Set(name string, value any)

	// SetCoords recomputes derived geometry after properties change.
	SetCoords()
}

// PropertyDeclarer is implemented by objects that declare their own set of
// tracked properties.
type PropertyDeclarer interface {
	TrackedProperties() []string
}

// Resolver looks up live objects by id.
type Resolver interface {
	Lookup(id string) (TrackedObject, bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(id string) (TrackedObject, bool)

// Lookup calls f(id).
func (f ResolverFunc) Lookup(id string) (TrackedObject, bool) {
	return f(id)
}

// TrackedPropertiesOf returns the properties declared by obj, or defaults
// when obj declares none. The returned slice is a copy.
func TrackedPropertiesOf(obj TrackedObject, defaults []string) []string {
	if d, ok := obj.(PropertyDeclarer); ok {
		if props := d.TrackedProperties(); len(props) > 0 {
			return append([]string(nil), props...)
		}
	}
	return append([]string(nil), defaults...)
}

// TakeSnapshot reads the given properties from obj.
// Properties the object does not report are left out of the snapshot.
func TakeSnapshot(obj TrackedObject, props []string) PropertySnapshot {
	snap := make(PropertySnapshot, len(props))
	for _, name := range props {
		if v, ok := obj.Get(name); ok && v != nil {
			snap[name] = cloneValue(v)
		}
	}
	return snap
}
