package render

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/drafter/internal/engine/scene"
)

// Target is one export destination.
type Target struct {
	// Path is the output file.
	Path string

	// Format is "png" or "jpeg". Empty infers it from the extension.
	Format string

	// Scale overrides the renderer scale when positive.
	Scale float64
}

// format returns the target format, inferred from the path if unset.
func (t Target) format() string {
	if t.Format != "" {
		return strings.ToLower(t.Format)
	}
	switch strings.ToLower(filepath.Ext(t.Path)) {
	case ".jpg", ".jpeg":
		return "jpeg"
	}
	return "png"
}

// ExportAll renders every target concurrently, at most workers at a time
// (unbounded when workers <= 0). The first failure cancels the remaining
// exports.
func (r *Renderer) ExportAll(ctx context.Context, s *scene.Scene, workers int, targets ...Target) error {
	if s == nil {
		return ErrNilScene
	}

	snap := s.Clone()

	g, gCtx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for _, t := range targets {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			if err := r.export(snap, t); err != nil {
				return fmt.Errorf("export %s: %w", t.Path, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (r *Renderer) export(s *scene.Scene, t Target) error {
	if dir := filepath.Dir(t.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := os.Create(t.Path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	if err := r.Encode(w, s, t.format(), t.Scale); err != nil {
		f.Close()
		os.Remove(t.Path)
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
