package app

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/drafter/internal/engine/scene"
)

// LoadDocument reads the scene stored at path. An empty path or a missing
// file yields an empty scene with the default canvas.
func LoadDocument(path string) (*scene.Scene, error) {
	if path == "" {
		return scene.New(scene.DefaultCanvas), nil
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return scene.New(scene.DefaultCanvas), nil
	}
	if err != nil {
		return nil, NewOperationError("open", path, err)
	}
	defer f.Close()

	s, err := scene.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, NewOperationError("open", path, err)
	}
	return s, nil
}

// SaveDocument writes s to path, as JSON when path ends in .json and as
// YAML otherwise. The file is replaced atomically.
func SaveDocument(path string, s *scene.Scene) error {
	if path == "" {
		return ErrNoDocument
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return NewOperationError("save", path, err)
	}
	tmp, err := os.CreateTemp(dir, ".drafter-*")
	if err != nil {
		return NewOperationError("save", path, err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = encodeJSON(w, s)
	} else {
		err = scene.Encode(w, s)
	}
	if err == nil {
		err = w.Flush()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return NewOperationError("save", path, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return NewOperationError("save", path, err)
	}
	return nil
}

func encodeJSON(w io.Writer, s *scene.Scene) error {
	c := s.Canvas()
	doc := scene.Document{
		Version:    scene.FormatVersion,
		Width:      c.Width,
		Height:     c.Height,
		Background: c.Background,
		Objects:    s.Objects(),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return nil
}
