// Package app wires the drafter components together: configuration,
// logging, the event bus, journal storage, the editing engine, the
// renderer, scripting and the history browser.
package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/drafter/internal/config"
	"github.com/dshills/drafter/internal/engine"
	"github.com/dshills/drafter/internal/engine/journal"
	"github.com/dshills/drafter/internal/event"
	"github.com/dshills/drafter/internal/render"
	"github.com/dshills/drafter/internal/script"
	"github.com/dshills/drafter/internal/tui"
)

// Options configures the application.
type Options struct {
	// ConfigPath is the TOML configuration file. Empty uses
	// config.DefaultPath.
	ConfigPath string

	// Document is the scene file to edit. Empty starts from a blank page.
	Document string

	// Session resumes the journal of an earlier session. Empty starts a
	// new one.
	Session string

	// LogLevel overrides logging.level from the configuration.
	LogLevel string

	// LogOutput receives log records. Defaults to os.Stderr.
	LogOutput io.Writer

	// ScriptOutput receives what scripts print. Defaults to os.Stdout.
	ScriptOutput io.Writer

	// ReadOnly rejects every mutation.
	ReadOnly bool

	// Watch reloads the configuration when its file changes.
	Watch bool
}

// Application is a running drafter instance.
type Application struct {
	opts Options

	mu       sync.RWMutex
	config   *config.Config
	reloader *config.Reloader

	logger   *Logger
	bus      *event.Bus
	engine   *engine.Engine
	renderer *render.Renderer
	metrics  *Metrics
	store    journal.Store
	session  string

	subs    *subscriptionManager
	closers []func() error

	modified atomic.Bool
	closed   atomic.Bool
}

// New creates the application and all of its components. On failure the
// components created so far are released.
func New(ctx context.Context, opts Options) (*Application, error) {
	if opts.ConfigPath == "" {
		opts.ConfigPath = config.DefaultPath()
	}
	if opts.ScriptOutput == nil {
		opts.ScriptOutput = os.Stdout
	}

	a := &Application{
		opts:    opts,
		metrics: NewMetrics(),
	}
	if err := a.bootstrap(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// Config returns the current configuration.
func (a *Application) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config
}

// Logger returns the application logger.
func (a *Application) Logger() *Logger { return a.logger }

// Bus returns the event bus.
func (a *Application) Bus() *event.Bus { return a.bus }

// Engine returns the editing engine.
func (a *Application) Engine() *engine.Engine { return a.engine }

// Renderer returns the renderer.
func (a *Application) Renderer() *render.Renderer { return a.renderer }

// Metrics returns the metrics tracker.
func (a *Application) Metrics() *Metrics { return a.metrics }

// Session returns the journal session id.
func (a *Application) Session() string { return a.session }

// Modified reports whether the scene changed since it was loaded or saved.
func (a *Application) Modified() bool { return a.modified.Load() }

// Export renders the scene to every target. Targets without a format use
// render.format from the configuration; targets without a scale use
// render.scale.
func (a *Application) Export(ctx context.Context, targets ...render.Target) error {
	if a.closed.Load() {
		return ErrClosed
	}
	cfg := a.Config()
	targets = append([]render.Target(nil), targets...)
	for i := range targets {
		if targets[i].Format == "" && filepath.Ext(targets[i].Path) == "" {
			targets[i].Format = cfg.Render.Format
		}
		if targets[i].Scale <= 0 {
			targets[i].Scale = cfg.Render.Scale
		}
	}

	start := time.Now()
	err := a.renderer.ExportAll(ctx, a.engine.Snapshot(), cfg.Render.Workers, targets...)
	a.metrics.RecordExport(time.Since(start), err)
	if err != nil {
		return NewOperationError("export", "", err)
	}
	a.logger.Info("exported", "targets", len(targets), "duration", time.Since(start))
	return nil
}

// RunScript executes the Lua file at path against the engine.
func (a *Application) RunScript(ctx context.Context, path string) error {
	if a.closed.Load() {
		return ErrClosed
	}
	cfg := a.Config()
	if !cfg.Script.Enabled {
		return ErrScriptsDisabled
	}

	s := script.NewState(
		script.WithTimeout(cfg.Script.TimeoutDuration()),
		script.WithOutput(a.opts.ScriptOutput),
		script.WithLogger(a.logger.WithComponent("script").Slog()),
	)
	defer s.Close()
	script.OpenDoc(s, a.engine)

	start := time.Now()
	err := s.RunFile(ctx, path)
	a.metrics.RecordScript(time.Since(start), err)
	if a.engine.IsGrouping() {
		// Commit the edits the script made inside an unfinished group.
		a.logger.Warn("script left a history group open", "path", path)
		a.engine.EndGroup()
	}
	if err != nil {
		return NewOperationError("script", path, err)
	}
	return nil
}

// Browse runs the history browser on screen until the user quits or ctx
// is done. The caller owns the screen.
func (a *Application) Browse(ctx context.Context, screen tcell.Screen) error {
	if a.closed.Load() {
		return ErrClosed
	}
	b := tui.NewBrowser(screen, a.engine,
		tui.WithBus(a.bus),
		tui.WithLogger(a.logger.WithComponent("tui").Slog()),
	)
	return b.Run(ctx)
}

// Save writes the scene to path, or to the document it was loaded from
// when path is empty.
func (a *Application) Save(path string) error {
	if path == "" {
		path = a.opts.Document
	}
	if err := SaveDocument(path, a.engine.Snapshot()); err != nil {
		return err
	}
	a.modified.Store(false)
	a.logger.Info("document saved", "path", path)
	return nil
}

// Run blocks until ctx is done, reloading the configuration on change
// when watching is enabled.
func (a *Application) Run(ctx context.Context) error {
	if a.reloader == nil {
		<-ctx.Done()
		return nil
	}
	return a.reloader.Run(ctx)
}

// applyConfig takes a reloaded configuration into use.
func (a *Application) applyConfig(cfg *config.Config) {
	a.mu.Lock()
	a.config = cfg
	a.mu.Unlock()

	a.engine.SetMaxCommands(cfg.History.MaxCommands)
	if a.opts.LogLevel == "" {
		a.logger.SetLevel(ParseLogLevel(cfg.Logging.Level))
	}
	a.metrics.RecordReload()
	a.logger.Info("configuration reloaded", "path", a.opts.ConfigPath)

	ev := event.NewEvent(event.TopicConfigReloaded, cfg, "app")
	if err := a.bus.Publish(context.Background(), ev); err != nil {
		a.logger.Warn("config reload handler failed", "error", err)
	}
}

// Close releases every component. Close is idempotent.
func (a *Application) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs ErrorList
	if a.subs != nil {
		errs.Add(a.subs.unsubscribeAll())
	}
	if a.reloader != nil {
		errs.Add(a.reloader.Close())
	}
	if a.renderer != nil {
		errs.Add(a.renderer.Close())
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs.Add(a.closers[i]())
	}
	return errs.AsError()
}
