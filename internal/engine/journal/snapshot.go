package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dshills/drafter/internal/engine/scene"
)

// SnapshotType categorizes a journal entry by the mutation it records.
type SnapshotType int

// Snapshot types. Values are part of the persisted format.
const (
	TypeAdd      SnapshotType = 1
	TypeDelete   SnapshotType = 2
	TypeModify   SnapshotType = 3
	TypeOrder    SnapshotType = 4
	TypeGroup    SnapshotType = 5
	TypeUngroup  SnapshotType = 6
	TypeLock     SnapshotType = 7
	TypeUnlock   SnapshotType = 8
	TypeProperty SnapshotType = 9
	TypeStyle    SnapshotType = 10
	TypeCanvas   SnapshotType = 11
)

var typeNames = map[SnapshotType]string{
	TypeAdd:      "add",
	TypeDelete:   "delete",
	TypeModify:   "modify",
	TypeOrder:    "order",
	TypeGroup:    "group",
	TypeUngroup:  "ungroup",
	TypeLock:     "lock",
	TypeUnlock:   "unlock",
	TypeProperty: "property",
	TypeStyle:    "style",
	TypeCanvas:   "canvas",
}

// String returns the lower-case name of the type.
func (t SnapshotType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("SnapshotType(%d)", int(t))
}

// Valid reports whether t is a known type.
func (t SnapshotType) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// Snapshot is one journal entry.
//
// Target holds the serialized object after the mutation (for DELETE, the
// object that was removed). Original holds the pre-edit values of the
// properties a MODIFY or STYLE entry changed.
type Snapshot struct {
	ID         int64             `json:"id,omitempty"`
	Index      int               `json:"index"`
	Target     json.RawMessage   `json:"target,omitempty"`
	Type       SnapshotType      `json:"type"`
	TemplateID string            `json:"tid,omitempty"`
	Objects    []json.RawMessage `json:"objects,omitempty"`
	Action     string            `json:"action,omitempty"`
	Original   map[string]any    `json:"original,omitempty"`
	Move       int               `json:"move,omitempty"`
	Timestamp  int64             `json:"timestamp,omitempty"`
	Property   string            `json:"property,omitempty"`
	OldValue   any               `json:"oldValue,omitempty"`
	NewValue   any               `json:"newValue,omitempty"`
}

// Time returns the timestamp as a time.Time.
func (s Snapshot) Time() time.Time {
	return time.UnixMilli(s.Timestamp)
}

// Clone returns a copy that shares no mutable state with s.
func (s Snapshot) Clone() Snapshot {
	data, err := json.Marshal(s)
	if err != nil {
		return s
	}
	var c Snapshot
	if err := json.Unmarshal(data, &c); err != nil {
		return s
	}
	return c
}

// Capture builds a snapshot of obj at the given z-index.
// Children of a group are serialized into Objects.
func Capture(typ SnapshotType, obj *scene.Object, index int) (Snapshot, error) {
	s := Snapshot{Type: typ, Index: index}
	if obj == nil {
		return s, nil
	}

	target, err := json.Marshal(obj)
	if err != nil {
		return s, fmt.Errorf("capture %s: %w", typ, err)
	}
	s.Target = target

	for _, child := range obj.Children() {
		data, err := json.Marshal(child)
		if err != nil {
			return s, fmt.Errorf("capture %s child: %w", typ, err)
		}
		s.Objects = append(s.Objects, data)
	}
	return s, nil
}
