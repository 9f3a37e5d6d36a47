package history

import (
	"sync"
	"time"
)

// DefaultMaxCommands is the history bound used when none is given.
const DefaultMaxCommands = 30

// entry wraps a command with metadata.
type entry struct {
	command   Command
	timestamp time.Time
}

// EvictFunc is called with each command dropped because the history
// exceeded its bound.
type EvictFunc func(cmd Command)

// Option configures a History.
type Option func(*History)

// WithEvictHandler registers a handler notified on eviction.
func WithEvictHandler(fn EvictFunc) Option {
	return func(h *History) {
		h.onEvict = fn
	}
}

// History is a bounded list of commands with a cursor.
//
// Commands in [0, index) can be undone; commands in [index, len) can be
// redone. History is owned by a single editing session.
type History struct {
	mu sync.Mutex

	commands []*entry
	index    int

	// Grouping state
	grouping  bool
	groupName string
	groupCmds []Command

	// Configuration
	maxCommands int
	onEvict     EvictFunc

	evicted int
}

// NewHistory creates a new history holding at most maxCommands commands.
func NewHistory(maxCommands int, opts ...Option) *History {
	if maxCommands <= 0 {
		maxCommands = DefaultMaxCommands
	}
	h := &History{
		maxCommands: maxCommands,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Add appends a command that has already been applied.
// Any redo branch is discarded. If the bound is exceeded the oldest
// command is evicted.
func (h *History) Add(cmd Command) {
	if cmd == nil {
		return
	}

	h.mu.Lock()
	if h.grouping {
		h.groupCmds = append(h.groupCmds, cmd)
		h.mu.Unlock()
		return
	}
	evicted := h.addLocked(cmd)
	onEvict := h.onEvict
	h.mu.Unlock()

	notifyEvicted(onEvict, evicted)
}

// Execute runs a command and adds it to the history.
func (h *History) Execute(cmd Command) error {
	if err := cmd.Execute(); err != nil {
		return err
	}
	h.Add(cmd)
	return nil
}

// addLocked appends cmd and returns the commands evicted by the bound.
func (h *History) addLocked(cmd Command) []Command {
	// Drop the abandoned redo branch
	if h.index < len(h.commands) {
		for i := h.index; i < len(h.commands); i++ {
			h.commands[i] = nil
		}
		h.commands = h.commands[:h.index]
	}

	h.commands = append(h.commands, &entry{
		command:   cmd,
		timestamp: time.Now(),
	})
	h.index++

	return h.enforceLimitLocked()
}

// enforceLimitLocked evicts the oldest commands beyond the bound.
func (h *History) enforceLimitLocked() []Command {
	var evicted []Command
	for len(h.commands) > h.maxCommands {
		evicted = append(evicted, h.commands[0].command)
		h.commands[0] = nil
		h.commands = h.commands[1:]
		h.index--
		if h.index < 0 {
			h.index = 0
		}
		h.evicted++
	}
	return evicted
}

func notifyEvicted(fn EvictFunc, cmds []Command) {
	if fn == nil {
		return
	}
	for _, cmd := range cmds {
		fn(cmd)
	}
}

// Back undoes the command before the cursor.
// It is a no-op when there is nothing to undo. If the command fails to
// undo, the cursor is left where it was and the error is returned.
func (h *History) Back() error {
	h.mu.Lock()
	if h.index == 0 {
		h.mu.Unlock()
		return nil
	}
	h.index--
	e := h.commands[h.index]
	h.mu.Unlock()

	if err := e.command.Undo(); err != nil {
		h.mu.Lock()
		if h.index < len(h.commands) && h.commands[h.index] == e {
			h.index++
		}
		h.mu.Unlock()
		return err
	}
	return nil
}

// Forward redoes the command at the cursor.
// It is a no-op when there is nothing to redo. If the command fails to
// execute, the cursor is left where it was and the error is returned.
func (h *History) Forward() error {
	h.mu.Lock()
	if h.index >= len(h.commands) {
		h.mu.Unlock()
		return nil
	}
	e := h.commands[h.index]
	h.index++
	h.mu.Unlock()

	if err := e.command.Execute(); err != nil {
		h.mu.Lock()
		if h.index > 0 && h.commands[h.index-1] == e {
			h.index--
		}
		h.mu.Unlock()
		return err
	}
	return nil
}

// CanUndo returns true if undo is available.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index > 0
}

// CanRedo returns true if redo is available.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index < len(h.commands)
}

// Index returns the cursor position.
func (h *History) Index() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index
}

// Len returns the number of stored commands.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.commands)
}

// UndoCount returns the number of undo steps available.
func (h *History) UndoCount() int {
	return h.Index()
}

// RedoCount returns the number of redo steps available.
func (h *History) RedoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.commands) - h.index
}

// Evicted returns how many commands have been dropped by the bound.
func (h *History) Evicted() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.evicted
}

// Commands returns the stored commands in chronological order.
func (h *History) Commands() []Command {
	h.mu.Lock()
	defer h.mu.Unlock()

	result := make([]Command, len(h.commands))
	for i, e := range h.commands {
		result[i] = e.command
	}
	return result
}

// Clear removes all commands and resets the cursor.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.commands = nil
	h.index = 0
	h.grouping = false
	h.groupCmds = nil
}

// UndoInfo returns info about available undo steps, oldest first.
func (h *History) UndoInfo() []OperationInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return infoOf(h.commands[:h.index])
}

// RedoInfo returns info about available redo steps, nearest first.
func (h *History) RedoInfo() []OperationInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return infoOf(h.commands[h.index:])
}

func infoOf(entries []*entry) []OperationInfo {
	result := make([]OperationInfo, len(entries))
	for i, e := range entries {
		result[i] = OperationInfo{
			Description: e.command.Description(),
			Timestamp:   e.timestamp,
		}
	}
	return result
}

// PeekUndo returns info about the next undo step without applying it.
func (h *History) PeekUndo() (OperationInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.index == 0 {
		return OperationInfo{}, false
	}
	return infoOf(h.commands[h.index-1 : h.index])[0], true
}

// PeekRedo returns info about the next redo step without applying it.
func (h *History) PeekRedo() (OperationInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.index >= len(h.commands) {
		return OperationInfo{}, false
	}
	return infoOf(h.commands[h.index : h.index+1])[0], true
}

// SetMaxCommands changes the bound.
// If more commands are stored, the oldest are evicted.
func (h *History) SetMaxCommands(max int) {
	if max <= 0 {
		max = DefaultMaxCommands
	}

	h.mu.Lock()
	h.maxCommands = max
	evicted := h.enforceLimitLocked()
	onEvict := h.onEvict
	h.mu.Unlock()

	notifyEvicted(onEvict, evicted)
}

// MaxCommands returns the bound.
func (h *History) MaxCommands() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxCommands
}

// OnEvict replaces the eviction handler.
func (h *History) OnEvict(fn EvictFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEvict = fn
}
