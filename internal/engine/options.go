package engine

import (
	"log/slog"

	"github.com/dshills/drafter/internal/engine/history"
	"github.com/dshills/drafter/internal/engine/journal"
	"github.com/dshills/drafter/internal/engine/scene"
	"github.com/dshills/drafter/internal/event"
)

// Default configuration values.
const (
	DefaultMaxCommands  = history.DefaultMaxCommands
	DefaultMaxSnapshots = journal.DefaultLimit
)

// Option configures an Engine during creation.
type Option func(*Engine)

// WithScene sets the scene the engine edits.
func WithScene(s *scene.Scene) Option {
	return func(e *Engine) {
		if s != nil {
			e.scene = s
		}
	}
}

// WithMaxCommands sets the maximum number of history commands.
func WithMaxCommands(max int) Option {
	return func(e *Engine) {
		if max > 0 {
			e.maxCommands = max
		}
	}
}

// WithMaxSnapshots sets the maximum number of journal snapshots.
func WithMaxSnapshots(max int) Option {
	return func(e *Engine) {
		if max > 0 {
			e.maxSnapshots = max
		}
	}
}

// WithTrackedProperties sets the property names recorded for objects that
// do not declare their own.
func WithTrackedProperties(props ...string) Option {
	return func(e *Engine) {
		if len(props) > 0 {
			e.tracked = append([]string(nil), props...)
		}
	}
}

// WithStore sets the journal store. The default keeps snapshots in memory.
func WithStore(s journal.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithBus sets the bus the engine publishes events on.
func WithBus(b *event.Bus) Option {
	return func(e *Engine) {
		e.bus = b
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithIgnoredIDs lists objects whose changes are applied but never
// recorded in the history or the journal.
func WithIgnoredIDs(ids ...string) Option {
	return func(e *Engine) {
		for _, id := range ids {
			e.ignored[id] = struct{}{}
		}
	}
}

// WithTemplateID stamps every journal snapshot with a template id.
func WithTemplateID(id string) Option {
	return func(e *Engine) {
		e.templateID = id
	}
}

// WithReadOnly creates a read-only engine.
// Write operations will return ErrReadOnly.
func WithReadOnly() Option {
	return func(e *Engine) {
		e.readOnly = true
	}
}
