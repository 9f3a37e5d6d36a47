package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/dshills/drafter/internal/engine"
	"github.com/dshills/drafter/internal/event"
)

// Help is shown in the status line when there is no message.
const Help = "u/← undo  r/→ redo  [ rewind  ] replay  q quit"

// Styles used by the browser.
var (
	styleTitle   = tcell.StyleDefault.Reverse(true)
	styleApplied = tcell.StyleDefault
	styleCurrent = tcell.StyleDefault.Bold(true)
	styleRedo    = tcell.StyleDefault.Dim(true)
	styleStatus  = tcell.StyleDefault.Foreground(tcell.ColorYellow)
)

// Browser is a terminal view of the undo history.
//
// Undo entries are listed oldest first, followed by redo entries; the most
// recently applied entry is marked with ">". The caller owns the screen:
// it initializes it before Run and finalizes it afterwards.
type Browser struct {
	screen tcell.Screen
	eng    *engine.Engine
	bus    *event.Bus
	logger *slog.Logger

	status string
}

// Option configures a Browser.
type Option func(*Browser)

// WithBus redraws the browser when the engine publishes events.
func WithBus(b *event.Bus) Option {
	return func(br *Browser) {
		br.bus = b
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(br *Browser) {
		if l != nil {
			br.logger = l
		}
	}
}

// NewBrowser creates a browser drawing eng's history on screen.
func NewBrowser(screen tcell.Screen, eng *engine.Engine, opts ...Option) *Browser {
	b := &Browser{
		screen: screen,
		eng:    eng,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run draws the browser and processes input until the user quits or ctx
// is done.
func (b *Browser) Run(ctx context.Context) error {
	if b.bus != nil {
		sub, err := b.bus.Subscribe("**", func(context.Context, any) error {
			_ = b.screen.PostEvent(tcell.NewEventInterrupt(nil))
			return nil
		}, event.WithPriority(event.PriorityLow))
		if err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		defer b.bus.Unsubscribe(sub)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = b.screen.PostEvent(tcell.NewEventInterrupt(ctx))
	})
	defer stop()

	b.Draw()
	for {
		ev := b.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if b.HandleEvent(ev) {
			return nil
		}
		b.Draw()
	}
}

// HandleEvent applies ev and reports whether the browser should quit.
func (b *Browser) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return b.handleKey(ev)
	case *tcell.EventResize:
		b.screen.Sync()
	}
	return false
}

func (b *Browser) handleKey(ev *tcell.EventKey) bool {
	b.status = ""

	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyLeft:
		b.report("undo", b.eng.Undo())
		return false
	case tcell.KeyRight:
		b.report("redo", b.eng.Redo())
		return false
	case tcell.KeyRune:
	default:
		return false
	}

	ctx := context.Background()
	switch ev.Rune() {
	case 'q':
		return true
	case 'u':
		b.report("undo", b.eng.Undo())
	case 'r':
		b.report("redo", b.eng.Redo())
	case '[':
		b.report("rewind", b.eng.Rewind(ctx))
	case ']':
		b.report("replay", b.eng.Replay(ctx))
	}
	return false
}

// report sets the status line from the result of an action.
func (b *Browser) report(action string, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, engine.ErrNothingToUndo),
		errors.Is(err, engine.ErrNothingToRedo),
		errors.Is(err, engine.ErrNothingToRewind),
		errors.Is(err, engine.ErrNothingToReplay):
		b.status = err.Error()
	default:
		b.status = fmt.Sprintf("%s failed: %v", action, err)
		b.logger.Warn("history action failed", "action", action, "error", err)
	}
}

// Status returns the current status message.
func (b *Browser) Status() string {
	return b.status
}

// ============================================================================
// Drawing
// ============================================================================

// Draw renders the browser.
func (b *Browser) Draw() {
	b.screen.Clear()
	w, h := b.screen.Size()
	if w <= 0 || h <= 0 {
		return
	}

	info := b.eng.HistoryInfo()
	title := fmt.Sprintf(" drafter  objects: %d  history: %d/%d  journal: %d/%d",
		b.eng.Scene().Len(), info.Index, info.Len, info.JournalCursor+1, info.JournalLen)
	if info.Evicted > 0 {
		title += fmt.Sprintf("  evicted: %d", info.Evicted)
	}
	b.fillRow(0, w, styleTitle)
	drawText(b.screen, 0, 0, w, title, styleTitle)

	status := b.status
	if status == "" {
		status = Help
	}
	if h > 1 {
		drawText(b.screen, 0, h-1, w, status, styleStatus)
	}

	rows := h - 2
	if rows <= 0 {
		b.screen.Show()
		return
	}

	type line struct {
		text  string
		style tcell.Style
	}
	lines := make([]line, 0, len(info.Undo)+len(info.Redo)+1)
	lines = append(lines, line{"  (start)", styleApplied})
	for i, op := range info.Undo {
		l := line{"  " + op.Description, styleApplied}
		if i == len(info.Undo)-1 {
			l = line{"> " + op.Description, styleCurrent}
		}
		lines = append(lines, l)
	}
	if len(info.Undo) == 0 {
		lines[0] = line{"> (start)", styleCurrent}
	}
	for _, op := range info.Redo {
		lines = append(lines, line{"  " + op.Description, styleRedo})
	}

	// Keep the current entry visible.
	offset := 0
	if cur := len(info.Undo); cur >= rows {
		offset = cur - rows + 1
	}
	for i := 0; i < rows && offset+i < len(lines); i++ {
		l := lines[offset+i]
		drawText(b.screen, 0, i+1, w, l.text, l.style)
	}
	b.screen.Show()
}

func (b *Browser) fillRow(y, w int, style tcell.Style) {
	for x := 0; x < w; x++ {
		b.screen.SetContent(x, y, ' ', nil, style)
	}
}

// drawText writes s at (x, y), clipped to maxWidth columns. Wide
// characters and combining sequences are placed by grapheme cluster.
func drawText(s tcell.Screen, x, y, maxWidth int, str string, style tcell.Style) int {
	col := 0
	state := -1
	for len(str) > 0 {
		var cluster string
		var width int
		cluster, str, width, state = uniseg.FirstGraphemeClusterInString(str, state)
		if width == 0 {
			continue
		}
		if col+width > maxWidth {
			break
		}
		runes := []rune(cluster)
		s.SetContent(x+col, y, runes[0], runes[1:], style)
		col += width
	}
	return col
}
