package history

// BeginGroup starts a command group.
// Commands added while grouping will be combined into a single undo unit.
func (h *History) BeginGroup(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.grouping {
		// Already grouping, ignore nested calls
		return
	}

	h.grouping = true
	h.groupName = name
	h.groupCmds = nil
}

// EndGroup finishes a command group.
// All commands since BeginGroup are combined into a CompoundCommand.
func (h *History) EndGroup() {
	h.mu.Lock()

	if !h.grouping {
		h.mu.Unlock()
		return
	}

	h.grouping = false

	if len(h.groupCmds) == 0 {
		h.groupCmds = nil
		h.mu.Unlock()
		return
	}

	compound := &CompoundCommand{
		Name:     h.groupName,
		Commands: h.groupCmds,
	}
	h.groupCmds = nil
	evicted := h.addLocked(compound)
	onEvict := h.onEvict
	h.mu.Unlock()

	notifyEvicted(onEvict, evicted)
}

// CancelGroup cancels a command group without adding to history.
// Note: edits already applied still affect the scene.
func (h *History) CancelGroup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.grouping = false
	h.groupCmds = nil
}

// IsGrouping returns true if currently in a command group.
func (h *History) IsGrouping() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.grouping
}

// GroupScope provides a convenient way to group commands using defer.
// Usage:
//
//	func alignLeft(h *History, ...) {
//	    defer h.GroupScope("Align left").End()
//	    // ... multiple edits ...
//	}
type GroupScope struct {
	history *History
	active  bool
}

// GroupScope starts a new group scope.
// Call End() or use with defer to properly close the group.
func (h *History) GroupScope(name string) *GroupScope {
	h.BeginGroup(name)
	return &GroupScope{
		history: h,
		active:  true,
	}
}

// End ends the group scope.
// Safe to call multiple times; only the first call has effect.
func (g *GroupScope) End() {
	if g.active {
		g.history.EndGroup()
		g.active = false
	}
}

// Cancel cancels the group scope without creating a compound command.
func (g *GroupScope) Cancel() {
	if g.active {
		g.history.CancelGroup()
		g.active = false
	}
}

// Transaction executes a function within a grouped undo context.
// If the function returns an error, the group is cancelled.
// Otherwise, the group is ended normally.
func (h *History) Transaction(name string, fn func() error) error {
	h.BeginGroup(name)

	err := fn()
	if err != nil {
		h.CancelGroup()
		return err
	}

	h.EndGroup()
	return nil
}

// Checkpoint represents a point in history that can be returned to.
// It stays valid across evictions but not across Clear.
type Checkpoint struct {
	position int
}

// CreateCheckpoint creates a checkpoint at the current cursor.
func (h *History) CreateCheckpoint() Checkpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Checkpoint{position: h.evicted + h.index}
}

// checkpointIndex translates a checkpoint into a cursor position.
func (h *History) checkpointIndex(cp Checkpoint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	idx := cp.position - h.evicted
	if idx < 0 {
		idx = 0
	}
	if idx > len(h.commands) {
		idx = len(h.commands)
	}
	return idx
}

// BackTo undoes all commands after the checkpoint.
func (h *History) BackTo(cp Checkpoint) error {
	target := h.checkpointIndex(cp)
	for h.Index() > target {
		if err := h.Back(); err != nil {
			return err
		}
	}
	return nil
}

// ForwardTo redoes commands up to the checkpoint.
// This only works while the redo branch still holds them.
func (h *History) ForwardTo(cp Checkpoint) error {
	target := h.checkpointIndex(cp)
	for h.Index() < target && h.CanRedo() {
		if err := h.Forward(); err != nil {
			return err
		}
	}
	return nil
}
