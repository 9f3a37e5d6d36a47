package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dshills/drafter/internal/engine/history"
	"github.com/dshills/drafter/internal/engine/journal"
	"github.com/dshills/drafter/internal/engine/scene"
	"github.com/dshills/drafter/internal/event"
)

// Re-export commonly used types for convenience.
type (
	// Object is a scene element.
	Object = scene.Object

	// Command is an undoable edit command.
	Command = history.Command

	// OperationInfo describes a history entry.
	OperationInfo = history.OperationInfo

	// Snapshot is a journal entry.
	Snapshot = journal.Snapshot
)

// eventSource is the Source of every event the engine publishes.
const eventSource = "engine"

// HistoryInfo summarizes the history and journal state.
type HistoryInfo struct {
	Undo        []OperationInfo
	Redo        []OperationInfo
	Index       int
	Len         int
	MaxCommands int
	Evicted     int

	JournalCursor int
	JournalLen    int
}

// Engine is the main facade for the design engine.
// It combines the scene, the property history and the snapshot journal
// into a unified, thread-safe API and publishes events for every change.
//
// Events are published after the engine lock is released, so handlers may
// call back into the engine.
type Engine struct {
	mu sync.Mutex

	// Core components
	scene   *scene.Scene
	history *history.History
	journal *journal.Journal
	bus     *event.Bus
	logger  *slog.Logger

	// Configuration
	maxCommands  int
	maxSnapshots int
	tracked      []string
	store        journal.Store
	ignored      map[string]struct{}
	templateID   string
	readOnly     bool

	// Events queued while the lock is held
	pending []any
}

// New creates a new Engine with the given options.
func New(opts ...Option) *Engine {
	e := &Engine{
		maxCommands:  DefaultMaxCommands,
		maxSnapshots: DefaultMaxSnapshots,
		tracked:      append([]string(nil), history.DefaultTrackedProperties...),
		ignored:      make(map[string]struct{}),
		logger:       slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.scene == nil {
		e.scene = scene.New(scene.DefaultCanvas)
	}
	e.history = history.NewHistory(e.maxCommands, history.WithEvictHandler(e.onEvict))
	e.journal = journal.New(e.store,
		journal.WithLimit(e.maxSnapshots),
		journal.WithLogger(e.logger.With("component", "journal")),
	)

	return e
}

// LoadJournal positions the journal after the snapshots already held by
// its store.
func (e *Engine) LoadJournal(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.journal.Load(ctx)
}

// ============================================================================
// Read Operations
// ============================================================================

// Scene returns the scene being edited. Its objects are live and change
// under concurrent edits; use Snapshot for a stable copy.
func (e *Engine) Scene() *scene.Scene {
	return e.scene
}

// Snapshot returns a deep copy of the scene taken between edits.
func (e *Engine) Snapshot() *scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scene.Clone()
}

// Object returns the live object with the given id.
func (e *Engine) Object(id string) (*Object, bool) {
	return e.scene.Object(id)
}

// Objects returns the live top-level objects in z-order.
func (e *Engine) Objects() []*Object {
	return e.scene.Objects()
}

// Find returns objects whose name fuzzily matches query.
func (e *Engine) Find(query string) []*Object {
	return e.scene.Find(query)
}

// IsReadOnly returns true if the engine rejects mutations.
func (e *Engine) IsReadOnly() bool {
	return e.readOnly
}

// IsIgnored reports whether changes to the object are left unrecorded.
func (e *Engine) IsIgnored(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.ignored[id]
	return ok
}

// ============================================================================
// Property Editing
// ============================================================================

// Edit runs fn against the object and records the change.
//
// The tracked properties are read before fn runs and again after. If they
// differ, a command is added to the history and a MODIFY snapshot is
// recorded. If fn returns an error, or leaves a value that cannot be
// recorded, the properties are put back and nothing is recorded.
func (e *Engine) Edit(ctx context.Context, id string, fn func(o *Object) error) error {
	if fn == nil {
		return ErrNilMutation
	}

	e.mu.Lock()
	defer e.unlockAndFlush(ctx)

	if e.readOnly {
		return ErrReadOnly
	}
	obj, ok := e.scene.Object(id)
	if !ok {
		return objectError("edit", id, scene.ErrNotFound)
	}

	props := history.TrackedPropertiesOf(obj, e.tracked)
	prev := history.TakeSnapshot(obj, props)
	before := obj.Props()

	if err := fn(obj); err != nil {
		rollback(obj, before)
		return objectError("edit", id, err)
	}
	if err := obj.Validate(); err != nil {
		rollback(obj, before)
		return objectError("edit", id, err)
	}
	obj.SetCoords()

	cmd, err := history.NewPropertyCommand(e.scene, obj, prev, props)
	if err != nil {
		return objectError("edit", id, err)
	}
	if cmd.IsNoop() {
		return nil
	}

	e.queue(event.TopicObjectModified, event.ObjectPayload{
		ObjectID:    id,
		Kind:        string(obj.Kind()),
		Index:       e.scene.IndexOf(id),
		Description: cmd.Description(),
	})

	if e.isIgnored(id) {
		return nil
	}
	e.history.Add(cmd)

	changed := cmd.State().Changed(prev)
	original := make(map[string]any, len(changed))
	for _, name := range changed {
		if v, ok := prev[name]; ok {
			original[name] = v
		}
	}
	return e.recordLocked(ctx, journal.TypeModify, obj, func(s *journal.Snapshot) {
		s.Original = original
	})
}

// SetProperty assigns a single property and records it as a PROPERTY
// snapshot plus a history command.
func (e *Engine) SetProperty(ctx context.Context, id, name string, value any) error {
	e.mu.Lock()
	defer e.unlockAndFlush(ctx)

	if e.readOnly {
		return ErrReadOnly
	}
	obj, ok := e.scene.Object(id)
	if !ok {
		return objectError("set property", id, scene.ErrNotFound)
	}
	if err := scene.CheckValue(value); err != nil {
		return objectError("set property", id, fmt.Errorf("%s: %w", name, err))
	}

	props := history.TrackedPropertiesOf(obj, e.tracked)
	if !contains(props, name) {
		props = append(props, name)
	}
	prev := history.TakeSnapshot(obj, props)
	oldValue, _ := obj.Get(name)

	obj.Set(name, value)
	obj.SetCoords()
	newValue, _ := obj.Get(name)

	cmd, err := history.NewPropertyCommand(e.scene, obj, prev, props)
	if err != nil {
		return objectError("set property", id, err)
	}
	if cmd.IsNoop() {
		return nil
	}

	e.queue(event.TopicPropertyChanged, event.PropertyPayload{
		ObjectID: id,
		Property: name,
		OldValue: oldValue,
		NewValue: newValue,
	})

	if e.isIgnored(id) {
		return nil
	}
	e.history.Add(cmd)

	return e.recordLocked(ctx, journal.TypeProperty, obj, func(s *journal.Snapshot) {
		s.Property = name
		s.OldValue = oldValue
		s.NewValue = newValue
	})
}

// rollback puts every property back to before.
func rollback(obj *Object, before map[string]any) {
	for _, name := range obj.PropNames() {
		if _, ok := before[name]; !ok {
			obj.Set(name, nil)
		}
	}
	obj.SetAll(before)
	obj.SetCoords()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ============================================================================
// Undo/Redo
// ============================================================================

// Undo reverses the most recent history command.
func (e *Engine) Undo() error {
	e.mu.Lock()
	defer e.unlockAndFlush(context.Background())

	if e.readOnly {
		return ErrReadOnly
	}
	info, ok := e.history.PeekUndo()
	if !ok {
		return ErrNothingToUndo
	}
	if err := e.history.Back(); err != nil {
		return fmt.Errorf("undo %q: %w", info.Description, err)
	}

	e.queue(event.TopicHistoryUndo, e.historyPayload(info.Description))
	return nil
}

// Redo re-applies the most recently undone history command.
func (e *Engine) Redo() error {
	e.mu.Lock()
	defer e.unlockAndFlush(context.Background())

	if e.readOnly {
		return ErrReadOnly
	}
	info, ok := e.history.PeekRedo()
	if !ok {
		return ErrNothingToRedo
	}
	if err := e.history.Forward(); err != nil {
		return fmt.Errorf("redo %q: %w", info.Description, err)
	}

	e.queue(event.TopicHistoryRedo, e.historyPayload(info.Description))
	return nil
}

// CanUndo returns true if there are commands to undo.
func (e *Engine) CanUndo() bool {
	return e.history.CanUndo()
}

// CanRedo returns true if there are commands to redo.
func (e *Engine) CanRedo() bool {
	return e.history.CanRedo()
}

// BeginGroup starts grouping subsequent edits into one undo unit.
func (e *Engine) BeginGroup(name string) {
	e.history.BeginGroup(name)
}

// EndGroup closes the current group.
func (e *Engine) EndGroup() {
	e.mu.Lock()
	defer e.unlockAndFlush(context.Background())
	e.history.EndGroup()
}

// IsGrouping reports whether a group is open.
func (e *Engine) IsGrouping() bool {
	return e.history.IsGrouping()
}

// CancelGroup drops the current group. Edits made inside it stay applied
// but cannot be undone.
func (e *Engine) CancelGroup() {
	e.history.CancelGroup()
}

// ClearHistory removes every history command. The journal is kept.
func (e *Engine) ClearHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.Clear()
}

// SetMaxCommands changes the history bound, evicting the oldest commands
// if needed.
func (e *Engine) SetMaxCommands(max int) {
	e.mu.Lock()
	defer e.unlockAndFlush(context.Background())
	e.history.SetMaxCommands(max)
}

// HistoryInfo returns a summary of the history and journal.
func (e *Engine) HistoryInfo() HistoryInfo {
	return HistoryInfo{
		Undo:          e.history.UndoInfo(),
		Redo:          e.history.RedoInfo(),
		Index:         e.history.Index(),
		Len:           e.history.Len(),
		MaxCommands:   e.history.MaxCommands(),
		Evicted:       e.history.Evicted(),
		JournalCursor: e.journal.Cursor(),
		JournalLen:    e.journal.Len(),
	}
}

// onEvict runs inside history.Add, which the engine only calls with its
// lock held.
func (e *Engine) onEvict(cmd history.Command) {
	e.logger.Debug("history command evicted", "description", cmd.Description())
	e.queue(event.TopicHistoryEvicted, e.historyPayload(cmd.Description()))
}

func (e *Engine) historyPayload(desc string) event.HistoryPayload {
	return event.HistoryPayload{
		Description: desc,
		Index:       e.history.Index(),
		Len:         e.history.Len(),
	}
}

// ============================================================================
// Structure
// ============================================================================

// Add appends objects on top of the scene and records an ADD snapshot for
// each.
func (e *Engine) Add(ctx context.Context, objs ...*Object) error {
	e.mu.Lock()
	defer e.unlockAndFlush(ctx)

	if e.readOnly {
		return ErrReadOnly
	}
	for _, obj := range objs {
		if obj != nil {
			if err := obj.Validate(); err != nil {
				return objectError("add", obj.ID(), err)
			}
		}
		if err := e.scene.Add(obj); err != nil {
			if obj == nil {
				return fmt.Errorf("add: %w", err)
			}
			return objectError("add", obj.ID(), err)
		}
		e.queue(event.TopicObjectAdded, objectPayload(obj, e.scene.IndexOf(obj.ID())))
		if err := e.recordLocked(ctx, journal.TypeAdd, obj, nil); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes an object and records a DELETE snapshot.
func (e *Engine) Remove(ctx context.Context, id string) (*Object, error) {
	e.mu.Lock()
	defer e.unlockAndFlush(ctx)

	if e.readOnly {
		return nil, ErrReadOnly
	}
	obj, ok := e.scene.Object(id)
	if !ok {
		return nil, objectError("remove", id, scene.ErrNotFound)
	}
	snap, record, err := e.captureLocked(journal.TypeDelete, obj, e.scene.IndexOf(id), nil)
	if err != nil {
		return nil, objectError("remove", id, err)
	}
	if _, _, err := e.scene.Remove(id); err != nil {
		return nil, objectError("remove", id, err)
	}
	e.queue(event.TopicObjectRemoved, objectPayload(obj, -1))

	if record {
		if err := e.commitLocked(ctx, snap); err != nil {
			return obj, err
		}
	}
	return obj, nil
}

// Group replaces the given objects with a group containing them. The group
// takes the lowest z-index of its members.
func (e *Engine) Group(ctx context.Context, name string, ids ...string) (*Object, error) {
	if len(ids) == 0 {
		return nil, ErrEmptyGroup
	}

	e.mu.Lock()
	defer e.unlockAndFlush(ctx)

	if e.readOnly {
		return nil, ErrReadOnly
	}

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := e.scene.Object(id); !ok {
			return nil, objectError("group", id, scene.ErrNotFound)
		}
		want[id] = true
	}

	// Members keep their relative z-order.
	var members []*Object
	index := -1
	for i, obj := range e.scene.Objects() {
		if !want[obj.ID()] {
			continue
		}
		if index < 0 {
			index = i
		}
		members = append(members, obj)
	}
	group := scene.NewGroup(name, members...)
	snap, record, err := e.captureLocked(journal.TypeGroup, group, index, nil)
	if err != nil {
		return nil, objectError("group", group.ID(), err)
	}

	for _, m := range members {
		if _, _, err := e.scene.Remove(m.ID()); err != nil {
			return nil, objectError("group", m.ID(), err)
		}
	}
	if err := e.scene.InsertAt(index, group); err != nil {
		return nil, objectError("group", group.ID(), err)
	}

	e.queue(event.TopicObjectGrouped, event.GroupPayload{GroupID: group.ID(), MemberIDs: idsOf(members)})
	if record {
		if err := e.commitLocked(ctx, snap); err != nil {
			return group, err
		}
	}
	return group, nil
}

// Ungroup replaces a group with its children placed back in canvas
// coordinates.
func (e *Engine) Ungroup(ctx context.Context, id string) ([]*Object, error) {
	e.mu.Lock()
	defer e.unlockAndFlush(ctx)

	if e.readOnly {
		return nil, ErrReadOnly
	}
	group, ok := e.scene.Object(id)
	if !ok {
		return nil, objectError("ungroup", id, scene.ErrNotFound)
	}
	if group.Kind() != scene.KindGroup {
		return nil, objectError("ungroup", id, ErrNotGroup)
	}

	index := e.scene.IndexOf(id)
	snap, record, err := e.captureLocked(journal.TypeUngroup, group, index, nil)
	if err != nil {
		return nil, objectError("ungroup", id, err)
	}

	children := group.Ungroup()
	if _, _, err := e.scene.Remove(id); err != nil {
		return nil, objectError("ungroup", id, err)
	}
	for i, child := range children {
		if err := e.scene.InsertAt(index+i, child); err != nil {
			return nil, objectError("ungroup", child.ID(), err)
		}
	}

	e.queue(event.TopicObjectUngrouped, event.GroupPayload{GroupID: id, MemberIDs: idsOf(children)})
	if record {
		if err := e.commitLocked(ctx, snap); err != nil {
			return children, err
		}
	}
	return children, nil
}

// Lock prevents an object from being moved, rotated or scaled.
func (e *Engine) Lock(ctx context.Context, id string) error {
	return e.setLocked(ctx, id, true)
}

// Unlock reverses Lock.
func (e *Engine) Unlock(ctx context.Context, id string) error {
	return e.setLocked(ctx, id, false)
}

func (e *Engine) setLocked(ctx context.Context, id string, locked bool) error {
	e.mu.Lock()
	defer e.unlockAndFlush(ctx)

	if e.readOnly {
		return ErrReadOnly
	}
	obj, ok := e.scene.Object(id)
	if !ok {
		return objectError("lock", id, scene.ErrNotFound)
	}

	typ, topic := journal.TypeLock, event.TopicObjectLocked
	if locked {
		scene.Lock(obj)
	} else {
		scene.Unlock(obj)
		typ, topic = journal.TypeUnlock, event.TopicObjectUnlocked
	}

	e.queue(topic, objectPayload(obj, e.scene.IndexOf(id)))
	return e.recordLocked(ctx, typ, obj, nil)
}

// Reorder moves an object delta positions in z-order and returns its new
// index. The move is clamped to the scene bounds.
func (e *Engine) Reorder(ctx context.Context, id string, delta int) (int, error) {
	e.mu.Lock()
	defer e.unlockAndFlush(ctx)

	if e.readOnly {
		return -1, ErrReadOnly
	}
	obj, ok := e.scene.Object(id)
	if !ok {
		return -1, objectError("reorder", id, scene.ErrNotFound)
	}
	from := e.scene.IndexOf(id)
	to, err := e.scene.Move(id, delta)
	if err != nil {
		return -1, objectError("reorder", id, err)
	}
	if to == from {
		return to, nil
	}

	e.queue(event.TopicObjectOrdered, objectPayload(obj, to))
	err = e.recordAtLocked(ctx, journal.TypeOrder, obj, to, func(s *journal.Snapshot) {
		s.Move = to - from
	})
	return to, err
}

func objectPayload(obj *Object, index int) event.ObjectPayload {
	return event.ObjectPayload{
		ObjectID: obj.ID(),
		Kind:     string(obj.Kind()),
		Index:    index,
	}
}

func idsOf(objs []*Object) []string {
	ids := make([]string, len(objs))
	for i, o := range objs {
		ids[i] = o.ID()
	}
	return ids
}

// ============================================================================
// Journal
// ============================================================================

// Rewind reverts the snapshot at the journal cursor.
func (e *Engine) Rewind(ctx context.Context) error {
	return e.stepJournal(ctx, false)
}

// Replay re-applies the snapshot after the journal cursor.
func (e *Engine) Replay(ctx context.Context) error {
	return e.stepJournal(ctx, true)
}

func (e *Engine) stepJournal(ctx context.Context, forward bool) error {
	e.mu.Lock()
	defer e.unlockAndFlush(ctx)

	if e.readOnly {
		return ErrReadOnly
	}

	step, topic, empty := e.journal.Undo, event.TopicJournalRewind, ErrNothingToRewind
	if forward {
		step, topic, empty = e.journal.Redo, event.TopicJournalReplay, ErrNothingToReplay
	}

	s, ok, err := step(ctx, e.scene)
	if err != nil {
		return err
	}
	if !ok {
		return empty
	}

	e.queue(topic, event.JournalPayload{
		SnapshotID: s.ID,
		Type:       s.Type.String(),
		Cursor:     e.journal.Cursor(),
	})
	return nil
}

// CanRewind returns true if there is a snapshot to rewind.
func (e *Engine) CanRewind() bool {
	return e.journal.CanUndo()
}

// CanReplay returns true if there is a snapshot to replay.
func (e *Engine) CanReplay() bool {
	return e.journal.CanRedo()
}

// StartBatch collects subsequent snapshots so they are committed together.
func (e *Engine) StartBatch() {
	e.journal.StartBatch()
}

// EndBatch commits the collected snapshots.
func (e *Engine) EndBatch(ctx context.Context) error {
	return e.journal.EndBatch(ctx)
}

// ClearJournal removes every journal snapshot.
func (e *Engine) ClearJournal(ctx context.Context) error {
	return e.journal.Clear(ctx)
}

// recordLocked records a snapshot of obj at its current index.
func (e *Engine) recordLocked(ctx context.Context, typ journal.SnapshotType, obj *Object, fill func(*journal.Snapshot)) error {
	return e.recordAtLocked(ctx, typ, obj, e.scene.IndexOf(obj.ID()), fill)
}

func (e *Engine) recordAtLocked(ctx context.Context, typ journal.SnapshotType, obj *Object, index int, fill func(*journal.Snapshot)) error {
	s, record, err := e.captureLocked(typ, obj, index, fill)
	if err != nil || !record {
		return err
	}
	return e.commitLocked(ctx, s)
}

// captureLocked builds the snapshot for obj. record is false when obj is
// ignored.
func (e *Engine) captureLocked(typ journal.SnapshotType, obj *Object, index int, fill func(*journal.Snapshot)) (s journal.Snapshot, record bool, err error) {
	if e.isIgnored(obj.ID()) {
		return s, false, nil
	}
	s, err = journal.Capture(typ, obj, index)
	if err != nil {
		return s, false, err
	}
	s.TemplateID = e.templateID
	if fill != nil {
		fill(&s)
	}
	return s, true, nil
}

func (e *Engine) commitLocked(ctx context.Context, s journal.Snapshot) error {
	if err := e.journal.Record(ctx, s); err != nil {
		e.logger.Warn("journal record failed", "type", s.Type.String(), "error", err)
		return fmt.Errorf("record %s: %w", s.Type, err)
	}
	return nil
}

// ============================================================================
// Events
// ============================================================================

func (e *Engine) isIgnored(id string) bool {
	_, ok := e.ignored[id]
	return ok
}

// queue stores an event until the lock is released. Must hold e.mu.
func (e *Engine) queue(topic event.Topic, payload any) {
	if e.bus == nil {
		return
	}
	var ev any
	switch p := payload.(type) {
	case event.ObjectPayload:
		ev = event.NewEvent(topic, p, eventSource)
	case event.PropertyPayload:
		ev = event.NewEvent(topic, p, eventSource)
	case event.GroupPayload:
		ev = event.NewEvent(topic, p, eventSource)
	case event.HistoryPayload:
		ev = event.NewEvent(topic, p, eventSource)
	case event.JournalPayload:
		ev = event.NewEvent(topic, p, eventSource)
	default:
		ev = event.NewEvent(topic, payload, eventSource)
	}
	e.pending = append(e.pending, ev)
}

// unlockAndFlush releases e.mu and publishes the queued events.
func (e *Engine) unlockAndFlush(ctx context.Context) {
	evs := e.pending
	e.pending = nil
	e.mu.Unlock()

	for _, ev := range evs {
		if err := e.bus.Publish(ctx, ev); err != nil {
			e.logger.Warn("event handler failed", "error", err)
		}
	}
}
