package journal

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/drafter/internal/engine/scene"
)

// ref identifies the object a serialized target refers to.
type ref struct {
	id   string
	kind scene.Kind
	left float64
	top  float64
}

func refOf(data []byte) ref {
	r := gjson.GetManyBytes(data, "id", "type", "left", "top")
	return ref{
		id:   r[0].String(),
		kind: scene.Kind(r[1].String()),
		left: r[2].Float(),
		top:  r[3].Float(),
	}
}

// locate resolves the target of s in sc, or returns -1.
func locate(sc *scene.Scene, s Snapshot) int {
	r := refOf(s.Target)
	return sc.Locate(r.id, r.kind, s.Index, r.left, r.top)
}

func undo(sc *scene.Scene, s Snapshot) error {
	found := locate(sc, s)

	switch s.Type {
	case TypeAdd:
		return removeAt(sc, found)
	case TypeDelete:
		return restore(sc, s.Target, pick(found, s.Index))
	case TypeGroup:
		return split(sc, found, s.Objects)
	case TypeUngroup:
		return combine(sc, s)
	case TypeModify, TypeStyle:
		data, err := merge(s.Target, s.Original)
		if err != nil {
			return err
		}
		return restore(sc, data, found)
	case TypeProperty:
		setProperty(sc, found, s.Property, s.OldValue)
	case TypeLock:
		setLock(sc, found, false)
	case TypeUnlock:
		setLock(sc, found, true)
	case TypeOrder:
		return move(sc, found, -s.Move)
	case TypeCanvas:
	}
	return nil
}

func redo(sc *scene.Scene, s Snapshot) error {
	found := locate(sc, s)

	switch s.Type {
	case TypeAdd:
		return restore(sc, s.Target, pick(found, s.Index))
	case TypeDelete:
		return removeAt(sc, found)
	case TypeGroup:
		return combine(sc, s)
	case TypeUngroup:
		return split(sc, found, s.Objects)
	case TypeModify, TypeStyle:
		return restore(sc, s.Target, found)
	case TypeProperty:
		setProperty(sc, found, s.Property, s.NewValue)
	case TypeLock:
		setLock(sc, found, true)
	case TypeUnlock:
		setLock(sc, found, false)
	case TypeOrder:
		return move(sc, found, s.Move)
	case TypeCanvas:
	}
	return nil
}

func pick(found, recorded int) int {
	if found > -1 {
		return found
	}
	return recorded
}

func removeAt(sc *scene.Scene, idx int) error {
	obj, ok := sc.At(idx)
	if !ok {
		return nil
	}
	_, _, err := sc.Remove(obj.ID())
	return err
}

// restore puts the serialized object at idx, replacing any object with the
// same id. A negative idx keeps the replaced object's position or appends.
func restore(sc *scene.Scene, data []byte, idx int) error {
	obj, err := scene.UnmarshalObject(data)
	if err != nil {
		return err
	}
	if existing := sc.IndexOf(obj.ID()); existing >= 0 {
		if _, _, err := sc.Remove(obj.ID()); err != nil {
			return err
		}
		if idx < 0 || idx > existing {
			idx = existing
		}
	}
	return sc.InsertAt(idx, obj)
}

// split replaces the group at idx with its serialized children, moved back
// to canvas coordinates.
func split(sc *scene.Scene, idx int, children []json.RawMessage) error {
	group, ok := sc.At(idx)
	if !ok || len(children) == 0 {
		return nil
	}
	cx := group.Float("left", 0) + group.Float("width", 0)/2
	cy := group.Float("top", 0) + group.Float("height", 0)/2

	for i, data := range children {
		child, err := scene.UnmarshalObject(data)
		if err != nil {
			return fmt.Errorf("child %d: %w", i, err)
		}
		child.Set("left", child.Float("left", 0)+cx)
		child.Set("top", child.Float("top", 0)+cy)
		child.SetCoords()
		if sc.IndexOf(child.ID()) >= 0 {
			continue
		}
		if err := sc.InsertAt(idx+i, child); err != nil {
			return err
		}
	}
	_, _, err := sc.Remove(group.ID())
	return err
}

// combine removes the loose children recorded in s and puts the group back.
func combine(sc *scene.Scene, s Snapshot) error {
	idx := s.Index
	for _, data := range s.Objects {
		id := gjson.GetBytes(data, "id").String()
		if at := sc.IndexOf(id); at >= 0 {
			if at < idx {
				idx = at
			}
			if _, _, err := sc.Remove(id); err != nil {
				return err
			}
		}
	}
	return restore(sc, s.Target, idx)
}

// merge overlays original property values onto the serialized target.
func merge(target []byte, original map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(original))
	for k := range original {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := append([]byte(nil), target...)
	for _, k := range keys {
		if k == "id" || k == "type" {
			continue
		}
		var err error
		out, err = sjson.SetBytes(out, escapePath(k), original[k])
		if err != nil {
			return nil, fmt.Errorf("merge %q: %w", k, err)
		}
	}
	return out, nil
}

var pathEscaper = strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`)

func escapePath(key string) string {
	return pathEscaper.Replace(key)
}

func setProperty(sc *scene.Scene, idx int, name string, value any) {
	obj, ok := sc.At(idx)
	if !ok || name == "" {
		return
	}
	obj.Set(name, value)
	obj.SetCoords()
}

func setLock(sc *scene.Scene, idx int, locked bool) {
	obj, ok := sc.At(idx)
	if !ok {
		return
	}
	if locked {
		scene.Lock(obj)
	} else {
		scene.Unlock(obj)
	}
}

func move(sc *scene.Scene, idx, delta int) error {
	obj, ok := sc.At(idx)
	if !ok || delta == 0 {
		return nil
	}
	_, err := sc.Move(obj.ID(), delta)
	return err
}
