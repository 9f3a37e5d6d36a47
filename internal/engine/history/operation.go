package history

import (
	"reflect"
	"sort"
	"time"
)

// PropertySnapshot maps tracked property names to the values they held at
// capture time.
type PropertySnapshot map[string]any

// Clone creates a deep copy of the snapshot.
func (s PropertySnapshot) Clone() PropertySnapshot {
	if s == nil {
		return nil
	}
	clone := make(PropertySnapshot, len(s))
	for k, v := range s {
		clone[k] = cloneValue(v)
	}
	return clone
}

// subset returns a copy holding only the named properties.
func (s PropertySnapshot) subset(props []string) PropertySnapshot {
	out := make(PropertySnapshot, len(props))
	for _, name := range props {
		if v, ok := s[name]; ok {
			out[name] = cloneValue(v)
		}
	}
	return out
}

// Keys returns the property names in sorted order.
func (s PropertySnapshot) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Changed returns the sorted names whose values differ between s and other,
// including names present in only one of them.
func (s PropertySnapshot) Changed(other PropertySnapshot) []string {
	seen := make(map[string]struct{}, len(s)+len(other))
	var changed []string
	for k, v := range s {
		seen[k] = struct{}{}
		if ov, ok := other[k]; !ok || !valuesEqual(v, ov) {
			changed = append(changed, k)
		}
	}
	for k := range other {
		if _, ok := seen[k]; !ok {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

// applyTo writes the snapshot onto obj for every name in props that the
// snapshot contains. Names missing from the snapshot are left untouched.
func (s PropertySnapshot) applyTo(obj TrackedObject, props []string) {
	for _, name := range props {
		if v, ok := s[name]; ok {
			obj.Set(name, cloneValue(v))
		}
	}
}

// cloneValue copies maps and slices so snapshots never alias live state.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	case []float64:
		return append([]float64(nil), t...)
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

func valuesEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
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
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

// OperationInfo provides read-only info about a history entry.
// Used for displaying undo/redo history to users.
type OperationInfo struct {
	Description string    // Human-readable description
	Timestamp   time.Time // When the command was added
}
