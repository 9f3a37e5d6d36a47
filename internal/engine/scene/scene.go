package scene

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sahilm/fuzzy"

	"github.com/dshills/drafter/internal/engine/history"
)

// Errors returned by scene operations.
var (
	// ErrNotFound indicates no object has the given id.
	ErrNotFound = errors.New("object not found")

	// ErrDuplicateID indicates an object with the same id is already present.
	ErrDuplicateID = errors.New("duplicate object id")

	// ErrNilObject indicates a nil object was passed.
	ErrNilObject = errors.New("nil object")

	// ErrInvalidValue indicates a property value that cannot be recorded,
	// such as NaN or an infinity.
	ErrInvalidValue = errors.New("invalid property value")
)

// Canvas describes the page objects are placed on.
type Canvas struct {
	Width      float64
	Height     float64
	Background string
}

// DefaultCanvas is used when a scene is created without dimensions.
var DefaultCanvas = Canvas{Width: 800, Height: 600, Background: "#ffffff"}

// Scene is an ordered collection of objects. Order is z-order: index 0 is
// drawn first.
//
// Scene is safe for concurrent use. It implements history.Resolver so
// commands refer to objects by id.
type Scene struct {
	mu      sync.RWMutex
	canvas  Canvas
	objects []*Object
	byID    map[string]*Object
}

// New creates an empty scene.
func New(canvas Canvas) *Scene {
	if canvas.Width <= 0 || canvas.Height <= 0 {
		canvas.Width, canvas.Height = DefaultCanvas.Width, DefaultCanvas.Height
	}
	if canvas.Background == "" {
		canvas.Background = DefaultCanvas.Background
	}
	return &Scene{
		canvas: canvas,
		byID:   make(map[string]*Object),
	}
}

// Canvas returns the page description.
func (s *Scene) Canvas() Canvas {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.canvas
}

// SetCanvas replaces the page description.
func (s *Scene) SetCanvas(c Canvas) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canvas = c
}

// Add appends objects on top of the scene.
func (s *Scene) Add(objs ...*Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range objs {
		if err := s.checkLocked(o); err != nil {
			return err
		}
		s.objects = append(s.objects, o)
		s.byID[o.id] = o
	}
	return nil
}

// InsertAt inserts obj at index. Out-of-range indexes append.
func (s *Scene) InsertAt(index int, obj *Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(obj); err != nil {
		return err
	}
	if index < 0 || index > len(s.objects) {
		index = len(s.objects)
	}
	s.objects = append(s.objects, nil)
	copy(s.objects[index+1:], s.objects[index:])
	s.objects[index] = obj
	s.byID[obj.id] = obj
	return nil
}

func (s *Scene) checkLocked(o *Object) error {
	if o == nil {
		return ErrNilObject
	}
	if _, exists := s.byID[o.id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, o.id)
	}
	return nil
}

// Remove deletes the object with the given id and returns it together with
// the index it occupied.
func (s *Scene) Remove(id string) (*Object, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return nil, -1, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	obj := s.objects[idx]
	s.objects = append(s.objects[:idx], s.objects[idx+1:]...)
	delete(s.byID, id)
	return obj, idx, nil
}

// IndexOf returns the z-index of the object, or -1.
func (s *Scene) IndexOf(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexLocked(id)
}

func (s *Scene) indexLocked(id string) int {
	if _, ok := s.byID[id]; !ok {
		return -1
	}
	for i, o := range s.objects {
		if o.id == id {
			return i
		}
	}
	return -1
}

// Object returns the object with the given id.
func (s *Scene) Object(id string) (*Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.byID[id]
	return o, ok
}

// Lookup implements history.Resolver.
// Only top-level objects resolve; children of a group do not.
func (s *Scene) Lookup(id string) (history.TrackedObject, bool) {
	o, ok := s.Object(id)
	if !ok {
		return nil, false
	}
	return o, true
}

// At returns the object at index.
func (s *Scene) At(index int) (*Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.objects) {
		return nil, false
	}
	return s.objects[index], true
}

// Objects returns the objects in z-order.
func (s *Scene) Objects() []*Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Object(nil), s.objects...)
}

// Clone returns a deep copy of the scene.
func (s *Scene) Clone() *Scene {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := &Scene{
		canvas:  s.canvas,
		objects: make([]*Object, len(s.objects)),
		byID:    make(map[string]*Object, len(s.objects)),
	}
	for i, o := range s.objects {
		c := o.Clone()
		out.objects[i] = c
		out.byID[c.id] = c
	}
	return out
}

// Len returns the number of top-level objects.
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Move shifts an object by delta positions in z-order, clamped to the
// scene bounds, and returns its new index.
func (s *Scene) Move(id string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return -1, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	target := idx + delta
	if target < 0 {
		target = 0
	}
	if target > len(s.objects)-1 {
		target = len(s.objects) - 1
	}
	if target == idx {
		return idx, nil
	}

	obj := s.objects[idx]
	s.objects = append(s.objects[:idx], s.objects[idx+1:]...)
	s.objects = append(s.objects, nil)
	copy(s.objects[target+1:], s.objects[target:])
	s.objects[target] = obj
	return target, nil
}

// Clear removes every object.
func (s *Scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = nil
	s.byID = make(map[string]*Object)
}

// Find returns objects whose name fuzzily matches query, best match first.
// Objects without a name match on their kind.
func (s *Scene) Find(query string) []*Object {
	s.mu.RLock()
	src := labelSource(append([]*Object(nil), s.objects...))
	s.mu.RUnlock()

	matches := fuzzy.FindFrom(query, src)
	out := make([]*Object, len(matches))
	for i, m := range matches {
		out[i] = src[m.Index]
	}
	return out
}

type labelSource []*Object

func (l labelSource) String(i int) string {
	if name := l[i].Name(); name != "" {
		return name
	}
	return string(l[i].kind)
}

func (l labelSource) Len() int { return len(l) }

// Locate finds the index of the object a serialized record refers to.
// It tries the id, then the recorded index when kind and position agree
// within one unit, then the first object of the same kind at that position.
// It returns -1 when nothing matches.
func (s *Scene) Locate(id string, kind Kind, index int, left, top float64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id != "" {
		if idx := s.indexLocked(id); idx >= 0 {
			return idx
		}
	}

	matches := func(o *Object) bool {
		return o.kind == kind &&
			near(o.Float("left", 0), left) &&
			near(o.Float("top", 0), top)
	}

	if index >= 0 && index < len(s.objects) && matches(s.objects[index]) {
		return index
	}
	for i, o := range s.objects {
		if matches(o) {
			return i
		}
	}
	return -1
}
