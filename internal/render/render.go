package render

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/dshills/drafter/internal/engine/history"
	"github.com/dshills/drafter/internal/engine/scene"
)

// Errors returned by the renderer.
var (
	// ErrNilScene indicates Render was called without a scene.
	ErrNilScene = errors.New("nil scene")

	// ErrCanvasTooLarge indicates the scaled canvas exceeds MaxPixels.
	ErrCanvasTooLarge = errors.New("canvas too large")

	// ErrUnknownFormat indicates an unsupported export format.
	ErrUnknownFormat = errors.New("unknown format")
)

// Default text settings, matching the document format's defaults.
const (
	DefaultFontSize   = 40.0
	DefaultLineHeight = 1.16
)

// MaxPixels bounds the size of a rendered image.
const MaxPixels = 64 << 20

// Options configures the renderer.
type Options struct {
	// Scale multiplies the canvas size.
	Scale float64

	// Quality is the JPEG quality (1-100).
	Quality int

	// Logger receives warnings about objects that cannot be drawn.
	Logger *slog.Logger
}

// DefaultOptions returns the default renderer options.
func DefaultOptions() Options {
	return Options{
		Scale:   1,
		Quality: 90,
	}
}

// Renderer rasterizes scenes.
// A Renderer is safe for concurrent use; each Render call draws on its own
// context.
type Renderer struct {
	opts   Options
	logger *slog.Logger

	font  *text.FontSource
	mu    sync.Mutex
	faces map[float64]text.Face
}

// New creates a renderer using the Go regular font for text.
func New(opts Options) (*Renderer, error) {
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	if opts.Quality < 1 || opts.Quality > 100 {
		opts.Quality = DefaultOptions().Quality
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	src, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}

	return &Renderer{
		opts:   opts,
		logger: logger,
		font:   src,
		faces:  make(map[float64]text.Face),
	}, nil
}

// Close releases the font.
func (r *Renderer) Close() error {
	return r.font.Close()
}

// Options returns the renderer options.
func (r *Renderer) Options() Options {
	return r.opts
}

// Render draws the scene at the renderer's scale.
func (r *Renderer) Render(s *scene.Scene) (image.Image, error) {
	return r.RenderScaled(s, r.opts.Scale)
}

// RenderScaled draws the scene at the given scale.
func (r *Renderer) RenderScaled(s *scene.Scene, scale float64) (image.Image, error) {
	dc, err := r.draw(s, scale)
	if err != nil {
		return nil, err
	}
	defer dc.Close()
	return dc.Image(), nil
}

// WritePNG renders the scene and writes it to w as PNG.
func (r *Renderer) WritePNG(w io.Writer, s *scene.Scene) error {
	dc, err := r.draw(s, r.opts.Scale)
	if err != nil {
		return err
	}
	defer dc.Close()
	return dc.EncodePNG(w)
}

// WriteJPEG renders the scene and writes it to w as JPEG.
func (r *Renderer) WriteJPEG(w io.Writer, s *scene.Scene) error {
	dc, err := r.draw(s, r.opts.Scale)
	if err != nil {
		return err
	}
	defer dc.Close()
	return dc.EncodeJPEG(w, r.opts.Quality)
}

// Encode renders the scene at scale and writes it in format ("png" or
// "jpeg").
func (r *Renderer) Encode(w io.Writer, s *scene.Scene, format string, scale float64) error {
	if format != "png" && format != "jpeg" && format != "jpg" {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if scale <= 0 {
		scale = r.opts.Scale
	}

	dc, err := r.draw(s, scale)
	if err != nil {
		return err
	}
	defer dc.Close()

	if format == "png" {
		return dc.EncodePNG(w)
	}
	return dc.EncodeJPEG(w, r.opts.Quality)
}

// ============================================================================
// Drawing
// ============================================================================

func (r *Renderer) draw(s *scene.Scene, scale float64) (*gg.Context, error) {
	if s == nil {
		return nil, ErrNilScene
	}

	canvas := s.Canvas()
	w := int(math.Ceil(canvas.Width * scale))
	h := int(math.Ceil(canvas.Height * scale))
	if w <= 0 || h <= 0 || w*h > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrCanvasTooLarge, w, h)
	}

	dc := gg.NewContext(w, h)

	bg, err := ParseColor(canvas.Background)
	if err != nil {
		r.logger.Warn("invalid background", "color", canvas.Background, "error", err)
		bg = NoPaint
	}
	if bg.Visible(1) {
		dc.SetColor(bg.Color(1))
		dc.DrawRectangle(0, 0, float64(w), float64(h))
		if err := dc.Fill(); err != nil {
			dc.Close()
			return nil, fmt.Errorf("fill background: %w", err)
		}
	}

	dc.Scale(scale, scale)

	var errs []error
	for _, obj := range s.Objects() {
		if err := r.drawObject(dc, obj, 1); err != nil {
			errs = append(errs, fmt.Errorf("draw %s: %w", obj.ID(), err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		dc.Close()
		return nil, err
	}
	return dc, nil
}

// drawObject draws obj in the current transform. Opacity multiplies down
// through groups.
func (r *Renderer) drawObject(dc *gg.Context, obj *scene.Object, opacity float64) error {
	if !obj.Bool("visible", true) {
		return nil
	}
	opacity *= clamp(obj.Float(history.PropOpacity, 1), 0, 1)
	if opacity == 0 {
		return nil
	}

	w := obj.Float(history.PropWidth, 0)
	h := obj.Float(history.PropHeight, 0)

	dc.Push()
	defer dc.Pop()

	dc.Translate(obj.Float(history.PropLeft, 0), obj.Float(history.PropTop, 0))
	dc.Rotate(obj.Float(history.PropAngle, 0) * math.Pi / 180)
	dc.Scale(obj.Float(history.PropScaleX, 1), obj.Float(history.PropScaleY, 1))
	if obj.Bool(history.PropFlipX, false) {
		dc.Translate(w, 0)
		dc.Scale(-1, 1)
	}
	if obj.Bool(history.PropFlipY, false) {
		dc.Translate(0, h)
		dc.Scale(1, -1)
	}

	switch obj.Kind() {
	case scene.KindRect:
		rx := obj.Float("rx", 0)
		return r.paint(dc, obj, opacity, func() {
			if rx > 0 {
				dc.DrawRoundedRectangle(0, 0, w, h, rx)
			} else {
				dc.DrawRectangle(0, 0, w, h)
			}
		})

	case scene.KindEllipse:
		rx := obj.Float("rx", w/2)
		ry := obj.Float("ry", h/2)
		return r.paint(dc, obj, opacity, func() {
			dc.DrawEllipse(rx, ry, rx, ry)
		})

	case scene.KindLine:
		return r.stroke(dc, obj, opacity, func() {
			dc.DrawLine(0, 0, w, h)
		})

	case scene.KindText:
		return r.drawText(dc, obj, opacity)

	case scene.KindImage:
		// Image sources are not fetched; draw the frame.
		return r.stroke(dc, obj, opacity, func() {
			dc.DrawRectangle(0, 0, w, h)
			dc.MoveTo(0, 0)
			dc.LineTo(w, h)
			dc.MoveTo(w, 0)
			dc.LineTo(0, h)
		})

	case scene.KindGroup:
		dc.Translate(w/2, h/2)
		var errs []error
		for _, child := range obj.Children() {
			if err := r.drawObject(dc, child, opacity); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	r.logger.Warn("skipping object of unknown kind", "id", obj.ID(), "kind", obj.Kind())
	return nil
}

// paint fills then strokes the path built by shape.
func (r *Renderer) paint(dc *gg.Context, obj *scene.Object, opacity float64, shape func()) error {
	fill := r.color(obj, history.PropFill, "#000000")
	if fill.Visible(opacity) {
		shape()
		dc.SetColor(fill.Color(opacity))
		if err := dc.Fill(); err != nil {
			return err
		}
	}
	return r.stroke(dc, obj, opacity, shape)
}

func (r *Renderer) stroke(dc *gg.Context, obj *scene.Object, opacity float64, shape func()) error {
	def := ""
	if obj.Kind() == scene.KindLine || obj.Kind() == scene.KindImage {
		def = "#000000"
	}
	stroke := r.color(obj, history.PropStroke, def)
	width := obj.Float(history.PropStrokeWidth, 1)
	if !stroke.Visible(opacity) || width <= 0 {
		return nil
	}
	shape()
	dc.SetColor(stroke.Color(opacity))
	dc.SetLineWidth(width)
	return dc.Stroke()
}

func (r *Renderer) color(obj *scene.Object, prop, def string) Paint {
	v := obj.String(prop, def)
	p, err := ParseColor(v)
	if err != nil {
		r.logger.Warn("invalid color", "id", obj.ID(), "property", prop, "color", v, "error", err)
		return NoPaint
	}
	return p
}

// drawText draws each line of the object's text. Glyphs are placed in
// device space at the transformed origin and are not rotated.
func (r *Renderer) drawText(dc *gg.Context, obj *scene.Object, opacity float64) error {
	content := obj.String(history.PropText, "")
	if content == "" {
		return nil
	}
	fill := r.color(obj, history.PropFill, "#000000")
	if !fill.Visible(opacity) {
		return nil
	}

	x0, y0 := dc.TransformPoint(0, 0)
	x1, y1 := dc.TransformPoint(0, 1)
	factor := math.Hypot(x1-x0, y1-y0)

	size := obj.Float(scene.PropFontSize, DefaultFontSize)
	lineHeight := obj.Float("lineHeight", DefaultLineHeight)
	if size <= 0 || factor == 0 {
		return nil
	}

	face := r.face(size * factor)
	dc.SetFont(face)
	dc.SetColor(fill.Color(opacity))

	ascent := face.Metrics().Ascent
	for i, line := range strings.Split(content, "\n") {
		x, y := dc.TransformPoint(0, float64(i)*size*lineHeight)
		dc.DrawString(line, x, y+ascent)
	}
	return nil
}

// face returns a cached face for the device size.
func (r *Renderer) face(size float64) text.Face {
	size = math.Round(size*4) / 4

	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.faces[size]; ok {
		return f
	}
	f := r.font.Face(size)
	r.faces[size] = f
	return f
}
