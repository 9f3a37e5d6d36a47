package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// FormatVersion is written into encoded documents.
const FormatVersion = "1"

// ErrUnknownKind indicates a serialized object with an unsupported type.
var ErrUnknownKind = errors.New("unknown object type")

// Document is the serialized form of a scene.
// JSON documents are valid YAML and decode through the same path.
type Document struct {
	Version    string    `yaml:"version" json:"version"`
	Width      float64   `yaml:"width" json:"width"`
	Height     float64   `yaml:"height" json:"height"`
	Background string    `yaml:"background,omitempty" json:"background,omitempty"`
	Objects    []*Object `yaml:"objects" json:"objects"`
}

// Decode reads a document and builds a scene from it.
func Decode(r io.Reader) (*Scene, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return New(DefaultCanvas), nil
		}
		return nil, fmt.Errorf("decode document: %w", err)
	}

	s := New(Canvas{Width: doc.Width, Height: doc.Height, Background: doc.Background})
	if err := s.Add(doc.Objects...); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return s, nil
}

// Encode writes the scene as a YAML document.
func Encode(w io.Writer, s *Scene) error {
	c := s.Canvas()
	doc := Document{
		Version:    FormatVersion,
		Width:      c.Width,
		Height:     c.Height,
		Background: c.Background,
		Objects:    s.Objects(),
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return enc.Close()
}

// ToMap returns the flat serialized form of the object: its properties
// plus "id", "type" and, for groups, "objects".
func (o *Object) ToMap() map[string]any {
	m := o.Props()
	m["id"] = o.id
	m["type"] = string(o.kind)
	if o.kind == KindGroup {
		children := make([]any, len(o.children))
		for i, c := range o.children {
			children[i] = c.ToMap()
		}
		m["objects"] = children
	}
	return m
}

// FromMap builds an object from its flat serialized form.
func FromMap(m map[string]any) (*Object, error) {
	kindName, _ := m["type"].(string)
	kind := Kind(kindName)
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kindName)
	}

	o := NewObject(kind, m)
	if raw, ok := m["objects"].([]any); ok {
		for i, item := range raw {
			cm, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("object %s: child %d is not a map", o.id, i)
			}
			child, err := FromMap(cm)
			if err != nil {
				return nil, fmt.Errorf("object %s: child %d: %w", o.id, i, err)
			}
			o.children = append(o.children, child)
		}
	}
	return o, nil
}

// MarshalJSON implements json.Marshaler.
func (o *Object) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.ToMap())
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Object) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	parsed, err := FromMap(m)
	if err != nil {
		return err
	}
	*o = *parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (o *Object) MarshalYAML() (any, error) {
	return o.ToMap(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (o *Object) UnmarshalYAML(node *yaml.Node) error {
	var m map[string]any
	if err := node.Decode(&m); err != nil {
		return err
	}
	parsed, err := FromMap(m)
	if err != nil {
		return err
	}
	*o = *parsed
	return nil
}

// UnmarshalObject parses a single JSON-serialized object.
func UnmarshalObject(data []byte) (*Object, error) {
	var o Object
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("unmarshal object: %w", err)
	}
	return &o, nil
}
