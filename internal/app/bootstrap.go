package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/drafter/internal/config"
	"github.com/dshills/drafter/internal/engine"
	"github.com/dshills/drafter/internal/event"
	"github.com/dshills/drafter/internal/render"
	"github.com/dshills/drafter/internal/storage/filestore"
	"github.com/dshills/drafter/internal/storage/pgstore"
)

// bootstrap creates the components in dependency order.
func (a *Application) bootstrap(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"config", a.initConfig},
		{"logger", a.initLogger},
		{"bus", a.initBus},
		{"storage", a.initStorage},
		{"engine", a.initEngine},
		{"renderer", a.initRenderer},
		{"subscriptions", a.initSubscriptions},
	}
	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			return &InitError{Component: step.name, Err: err}
		}
	}
	a.logger.Info("started",
		"backend", a.config.Storage.Backend,
		"session", a.session,
		"document", a.opts.Document,
		"objects", a.engine.Scene().Len(),
	)
	return nil
}

func (a *Application) initConfig(_ context.Context) error {
	if !a.opts.Watch {
		cfg, err := config.Load(a.opts.ConfigPath)
		if err != nil {
			return err
		}
		a.config = cfg
		return nil
	}

	// The logger does not exist yet; reload errors are logged through it
	// once it does.
	r, err := config.NewReloader(a.opts.ConfigPath, func(err error) {
		if a.logger != nil {
			a.logger.Warn("config reload failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	a.reloader = r
	a.config = r.Current()
	r.OnReload(a.applyConfig)
	return nil
}

func (a *Application) initLogger(_ context.Context) error {
	level := a.config.Logging.Level
	if a.opts.LogLevel != "" {
		level = a.opts.LogLevel
	}
	cfg := DefaultLoggerConfig()
	cfg.Level = ParseLogLevel(level)
	cfg.Format = a.config.Logging.Format
	if a.opts.LogOutput != nil {
		cfg.Output = a.opts.LogOutput
	}
	a.logger = NewLogger(cfg)
	return nil
}

func (a *Application) initBus(_ context.Context) error {
	a.bus = event.NewBus()
	return nil
}

// initStorage opens the journal store selected by storage.backend and
// prunes stale sessions.
func (a *Application) initStorage(ctx context.Context) error {
	a.session = a.opts.Session
	switch a.config.Storage.Backend {
	case config.BackendMemory, "":
		if a.session == "" {
			a.session = uuid.NewString()
		}
		return nil
	case config.BackendFile:
		return a.openFileStore()
	case config.BackendPostgres:
		return a.openPostgresStore(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, a.config.Storage.Backend)
	}
}

func (a *Application) openFileStore() error {
	sc := a.config.Storage
	now := time.Now()
	removed, err := filestore.Prune(sc.Dir, sc.MaxAgeDuration(), nil, now)
	if err != nil {
		return err
	}
	if len(removed) > 0 {
		a.logger.Info("pruned journal files", "count", len(removed))
	}

	var store *filestore.Store
	if path := findSession(sc.Dir, a.session); path != "" {
		store, err = filestore.Open(path)
	} else {
		if a.session == "" {
			a.session = uuid.NewString()
		}
		store, err = filestore.Create(sc.Dir, a.session, now)
	}
	if err != nil {
		return err
	}
	a.store = store
	a.closers = append(a.closers, store.Close)
	return nil
}

// findSession returns the newest journal file of session in dir.
func findSession(dir, session string) string {
	if session == "" {
		return ""
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var (
		best    string
		bestAge time.Time
	)
	for _, e := range entries {
		id, created, ok := filestore.ParseFileName(e.Name())
		if !ok || id != session {
			continue
		}
		if best == "" || created.After(bestAge) {
			best, bestAge = filepath.Join(dir, e.Name()), created
		}
	}
	return best
}

func (a *Application) openPostgresStore(ctx context.Context) error {
	sc := a.config.Storage

	session := uuid.New()
	if a.session != "" {
		id, err := uuid.Parse(a.session)
		if err != nil {
			return fmt.Errorf("session %q: %w", a.session, err)
		}
		session = id
	}
	a.session = session.String()

	poolCfg := pgstore.DefaultPoolConfig()
	if sc.MaxConns > 0 {
		poolCfg.MaxConns = int32(sc.MaxConns)
	}
	pool, err := pgstore.Connect(ctx, sc.DatabaseURL, poolCfg)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() error {
		pool.Close()
		return nil
	})

	if err := pgstore.Migrate(ctx, pool); err != nil {
		return err
	}
	removed, err := pgstore.Prune(ctx, pool, sc.MaxAgeDuration(), nil)
	if err != nil {
		return err
	}
	if removed > 0 {
		a.logger.Info("pruned journal rows", "count", removed)
	}

	a.store = pgstore.New(pool, session, a.logger.WithComponent("pgstore").Slog())
	return nil
}

func (a *Application) initEngine(ctx context.Context) error {
	s, err := LoadDocument(a.opts.Document)
	if err != nil {
		return err
	}

	cfg := a.config
	opts := []engine.Option{
		engine.WithScene(s),
		engine.WithBus(a.bus),
		engine.WithLogger(a.logger.WithComponent("engine").Slog()),
		engine.WithMaxCommands(cfg.History.MaxCommands),
		engine.WithMaxSnapshots(cfg.Journal.MaxSnapshots),
		engine.WithTrackedProperties(cfg.History.TrackedProperties...),
		engine.WithIgnoredIDs(cfg.Journal.IgnoredIDs...),
		engine.WithTemplateID(cfg.Journal.TemplateID),
	}
	if a.store != nil {
		opts = append(opts, engine.WithStore(a.store))
	}
	if a.opts.ReadOnly {
		opts = append(opts, engine.WithReadOnly())
	}
	a.engine = engine.New(opts...)

	if err := a.engine.LoadJournal(ctx); err != nil {
		return err
	}
	return nil
}

func (a *Application) initRenderer(_ context.Context) error {
	r, err := render.New(render.Options{
		Scale:   a.config.Render.Scale,
		Quality: a.config.Render.Quality,
		Logger:  a.logger.WithComponent("render").Slog(),
	})
	if err != nil {
		return err
	}
	a.renderer = r
	return nil
}
