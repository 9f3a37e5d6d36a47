package history

import (
	"errors"
	"fmt"
	"testing"
)

// testObject is a minimal TrackedObject backed by a map.
type testObject struct {
	id       string
	props    map[string]any
	declared []string
	coords   int
}

func newTestObject(id string, props map[string]any) *testObject {
	if props == nil {
		props = make(map[string]any)
	}
	return &testObject{id: id, props: props}
}

func (o *testObject) ID() string { return o.id }

func (o *testObject) Get(name string) (any, bool) {
	v, ok := o.props[name]
	return v, ok
}

func (o *testObject) Set(name string, value any) { o.props[name] = value }

func (o *testObject) SetCoords() { o.coords++ }

// declaringObject declares its own tracked properties.
type declaringObject struct {
	*testObject
}

func (o declaringObject) TrackedProperties() []string { return o.declared }

// testScene resolves test objects by id.
type testScene map[string]*testObject

func (s testScene) Lookup(id string) (TrackedObject, bool) {
	o, ok := s[id]
	if !ok {
		return nil, false
	}
	return o, true
}

// edit applies fn to obj and returns the resulting command.
func edit(t *testing.T, s testScene, obj *testObject, fn func()) *PropertyCommand {
	t.Helper()
	props := TrackedPropertiesOf(obj, DefaultTrackedProperties)
	prev := TakeSnapshot(obj, props)
	fn()
	cmd, err := NewPropertyCommand(s, obj, prev, props)
	if err != nil {
		t.Fatalf("NewPropertyCommand failed: %v", err)
	}
	return cmd
}

// failingCommand fails on demand.
type failingCommand struct {
	failUndo bool
	failExec bool
}

var errFail = errors.New("fail")

func (c *failingCommand) Execute() error {
	if c.failExec {
		return errFail
	}
	return nil
}

func (c *failingCommand) Undo() error {
	if c.failUndo {
		return errFail
	}
	return nil
}

func (c *failingCommand) Description() string { return "failing" }

// Snapshot Tests

func TestTrackedPropertiesOfDefaults(t *testing.T) {
	obj := newTestObject("a", nil)
	props := TrackedPropertiesOf(obj, DefaultTrackedProperties)
	if len(props) != 14 {
		t.Fatalf("got %d properties, want 14", len(props))
	}
	if props[0] != PropLeft || props[13] != PropText {
		t.Errorf("unexpected default order: %v", props)
	}

	// Mutating the result must not affect the defaults.
	props[0] = "changed"
	if DefaultTrackedProperties[0] != PropLeft {
		t.Error("defaults were modified through the returned slice")
	}
}

func TestTrackedPropertiesOfDeclared(t *testing.T) {
	obj := declaringObject{newTestObject("a", nil)}
	obj.declared = []string{"left", "radius"}

	props := TrackedPropertiesOf(obj, DefaultTrackedProperties)
	if len(props) != 2 || props[1] != "radius" {
		t.Errorf("got %v, want declared set", props)
	}
}

func TestTakeSnapshotSkipsMissing(t *testing.T) {
	obj := newTestObject("a", map[string]any{"left": 1.0, "text": nil})
	snap := TakeSnapshot(obj, DefaultTrackedProperties)

	if len(snap) != 1 {
		t.Fatalf("got %d keys, want 1: %v", len(snap), snap)
	}
	if snap["left"] != 1.0 {
		t.Errorf("left = %v", snap["left"])
	}
}

func TestTakeSnapshotCopiesCollections(t *testing.T) {
	fill := map[string]any{"type": "linear", "stops": []any{"#fff", "#000"}}
	obj := newTestObject("a", map[string]any{"fill": fill})
	snap := TakeSnapshot(obj, DefaultTrackedProperties)

	fill["type"] = "radial"
	fill["stops"].([]any)[0] = "#f00"

	got := snap["fill"].(map[string]any)
	if got["type"] != "linear" {
		t.Error("snapshot aliases live map")
	}
	if got["stops"].([]any)[0] != "#fff" {
		t.Error("snapshot aliases live slice")
	}
}

func TestSnapshotChanged(t *testing.T) {
	a := PropertySnapshot{"left": 1.0, "top": 2, "fill": "red"}
	b := PropertySnapshot{"left": 1, "top": 3.0, "stroke": "blue"}

	got := a.Changed(b)
	want := []string{"fill", "stroke", "top"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Changed() = %v, want %v", got, want)
	}
}

// PropertyCommand Tests

func TestPropertyCommandCapturesState(t *testing.T) {
	obj := newTestObject("a", map[string]any{"left": 0.0, "top": 0.0})
	s := testScene{"a": obj}

	cmd := edit(t, s, obj, func() { obj.Set("left", 10.0) })

	if cmd.PrevState()["left"] != 0.0 || cmd.State()["left"] != 10.0 {
		t.Errorf("prev=%v state=%v", cmd.PrevState(), cmd.State())
	}
	if cmd.ObjectID() != "a" {
		t.Errorf("ObjectID() = %q", cmd.ObjectID())
	}
}

func TestPropertyCommandUndoExecute(t *testing.T) {
	obj := newTestObject("a", map[string]any{"left": 0.0, "angle": 0.0})
	s := testScene{"a": obj}

	cmd := edit(t, s, obj, func() {
		obj.Set("left", 25.0)
		obj.Set("angle", 90.0)
	})

	if err := cmd.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if obj.props["left"] != 0.0 || obj.props["angle"] != 0.0 {
		t.Errorf("after undo: %v", obj.props)
	}

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if obj.props["left"] != 25.0 || obj.props["angle"] != 90.0 {
		t.Errorf("after execute: %v", obj.props)
	}

	if obj.coords != 2 {
		t.Errorf("SetCoords called %d times, want 2", obj.coords)
	}
}

func TestPropertyCommandPartialSnapshot(t *testing.T) {
	// "text" appears only after the edit, so undo leaves it untouched.
	obj := newTestObject("a", map[string]any{"left": 0.0})
	s := testScene{"a": obj}

	cmd := edit(t, s, obj, func() {
		obj.Set("left", 5.0)
		obj.Set("text", "hello")
	})

	_ = cmd.Undo()
	if obj.props["left"] != 0.0 {
		t.Errorf("left = %v, want 0", obj.props["left"])
	}
	if obj.props["text"] != "hello" {
		t.Errorf("text = %v, want untouched", obj.props["text"])
	}
}

func TestPropertyCommandDropsUntrackedPrev(t *testing.T) {
	obj := newTestObject("a", map[string]any{"left": 0.0})
	s := testScene{"a": obj}
	prev := PropertySnapshot{"left": 0.0, "fill": "#ff0000"}

	obj.Set("left", 5.0)
	cmd, err := NewPropertyCommand(s, obj, prev, []string{"left"})
	if err != nil {
		t.Fatalf("NewPropertyCommand failed: %v", err)
	}

	got := cmd.PrevState()
	if len(got) != 1 || got["left"] != 0.0 {
		t.Errorf("PrevState() = %v, want only left", got)
	}
	if d := cmd.Description(); d != "Move" {
		t.Errorf("Description() = %q, want Move", d)
	}

	prev["left"] = 99.0
	if cmd.PrevState()["left"] != 0.0 {
		t.Error("prev state aliases the caller's snapshot")
	}
}

func TestPropertyCommandInertWhenRemoved(t *testing.T) {
	obj := newTestObject("a", map[string]any{"left": 0.0})
	s := testScene{"a": obj}

	cmd := edit(t, s, obj, func() { obj.Set("left", 5.0) })
	delete(s, "a")

	if err := cmd.Undo(); err != nil {
		t.Fatalf("Undo on removed object failed: %v", err)
	}
	if obj.props["left"] != 5.0 {
		t.Error("removed object was modified")
	}
	if obj.coords != 0 {
		t.Error("SetCoords called on removed object")
	}
}

func TestPropertyCommandNilReceiver(t *testing.T) {
	if _, err := NewPropertyCommand(testScene{}, nil, nil, DefaultTrackedProperties); !errors.Is(err, ErrNilReceiver) {
		t.Errorf("nil object: got %v, want ErrNilReceiver", err)
	}
	obj := newTestObject("a", nil)
	if _, err := NewPropertyCommand(nil, obj, nil, DefaultTrackedProperties); !errors.Is(err, ErrNilReceiver) {
		t.Errorf("nil resolver: got %v, want ErrNilReceiver", err)
	}
}

func TestPropertyCommandDescription(t *testing.T) {
	tests := []struct {
		name     string
		before   map[string]any
		mutate   map[string]any
		expected string
	}{
		{"move", map[string]any{"left": 0.0, "top": 0.0}, map[string]any{"left": 3.0}, "Move"},
		{"scale", map[string]any{"scaleX": 1.0}, map[string]any{"scaleX": 2.0}, "Scale"},
		{"rotate", map[string]any{"angle": 0.0}, map[string]any{"angle": 45.0}, "Rotate"},
		{"flip", map[string]any{"flipX": false}, map[string]any{"flipX": true}, "Flip"},
		{"text", map[string]any{"text": "a"}, map[string]any{"text": "héllo"}, `Edit text "héllo"`},
		{"long text", map[string]any{"text": "a"}, map[string]any{"text": "this text is longer than twenty"}, "Edit text (31 characters)"},
		{"single", map[string]any{"fill": "red"}, map[string]any{"fill": "blue"}, "Set fill"},
		{"many", map[string]any{"fill": "red", "opacity": 1.0}, map[string]any{"fill": "blue", "opacity": 0.5}, "Modify fill, opacity"},
		{"none", map[string]any{"fill": "red"}, map[string]any{"fill": "red"}, "No change"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := newTestObject("a", tt.before)
			s := testScene{"a": obj}
			cmd := edit(t, s, obj, func() {
				for k, v := range tt.mutate {
					obj.Set(k, v)
				}
			})
			if got := cmd.Description(); got != tt.expected {
				t.Errorf("Description() = %q, want %q", got, tt.expected)
			}
		})
	}
}

// CompoundCommand Tests

func TestCompoundCommandUndoOrder(t *testing.T) {
	obj := newTestObject("a", map[string]any{"left": 0.0})
	s := testScene{"a": obj}

	c1 := edit(t, s, obj, func() { obj.Set("left", 1.0) })
	c2 := edit(t, s, obj, func() { obj.Set("left", 2.0) })

	compound := NewCompoundCommand("Nudge twice", c1, c2)
	if err := compound.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if obj.props["left"] != 0.0 {
		t.Errorf("left = %v, want 0", obj.props["left"])
	}

	if err := compound.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if obj.props["left"] != 2.0 {
		t.Errorf("left = %v, want 2", obj.props["left"])
	}
}

func TestCompoundCommandExecuteRollback(t *testing.T) {
	obj := newTestObject("a", map[string]any{"left": 0.0})
	s := testScene{"a": obj}

	c1 := edit(t, s, obj, func() { obj.Set("left", 1.0) })
	_ = c1.Undo()

	compound := NewCompoundCommand("broken", c1, &failingCommand{failExec: true})
	if err := compound.Execute(); !errors.Is(err, errFail) {
		t.Fatalf("got %v, want errFail", err)
	}
	if obj.props["left"] != 0.0 {
		t.Errorf("left = %v, want rollback to 0", obj.props["left"])
	}
}

func TestCompoundCommandDescription(t *testing.T) {
	if got := NewCompoundCommand("Align").Description(); got != "Align" {
		t.Errorf("got %q", got)
	}
	c := NewCompoundCommand("", &failingCommand{}, &failingCommand{})
	if got := c.Description(); got != "2 operations" {
		t.Errorf("got %q", got)
	}
	if !NewCompoundCommand("x").IsEmpty() {
		t.Error("expected empty")
	}
}

// History Tests

func TestHistoryConcreteScenario(t *testing.T) {
	obj := newTestObject("o", map[string]any{"left": 0.0, "top": 0.0})
	s := testScene{"o": obj}
	h := NewHistory(DefaultMaxCommands)

	c1 := edit(t, s, obj, func() { obj.Set("left", 10.0) })
	h.Add(c1)
	c2 := edit(t, s, obj, func() { obj.Set("top", 20.0) })
	h.Add(c2)

	if h.Index() != 2 {
		t.Fatalf("index = %d, want 2", h.Index())
	}

	_ = h.Back()
	if obj.props["top"] != 0.0 || h.Index() != 1 {
		t.Errorf("after first back: top=%v index=%d", obj.props["top"], h.Index())
	}

	_ = h.Back()
	if obj.props["left"] != 0.0 || h.Index() != 0 {
		t.Errorf("after second back: left=%v index=%d", obj.props["left"], h.Index())
	}

	_ = h.Forward()
	if obj.props["left"] != 10.0 || h.Index() != 1 {
		t.Errorf("after forward: left=%v index=%d", obj.props["left"], h.Index())
	}

	c3 := edit(t, s, obj, func() { obj.Set("angle", 15.0) })
	h.Add(c3)

	if obj.props["left"] != 10.0 || obj.props["top"] != 0.0 {
		t.Errorf("final state: %v", obj.props)
	}
	cmds := h.Commands()
	if len(cmds) != 2 || cmds[0] != Command(c1) || cmds[1] != Command(c3) {
		t.Errorf("commands = %v, want [c1 c3]", cmds)
	}
	if h.Index() != 2 || h.CanRedo() {
		t.Errorf("index=%d canRedo=%v", h.Index(), h.CanRedo())
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	obj := newTestObject("o", map[string]any{"left": 0.0, "top": 0.0, "angle": 0.0, "fill": "red"})
	s := testScene{"o": obj}
	h := NewHistory(100)

	for i := 1; i <= 20; i++ {
		i := i
		h.Add(edit(t, s, obj, func() {
			obj.Set("left", float64(i))
			obj.Set("angle", float64(i*10))
			if i%3 == 0 {
				obj.Set("fill", fmt.Sprintf("#%06x", i))
			}
		}))
	}
	after := TakeSnapshot(obj, DefaultTrackedProperties)

	for h.CanUndo() {
		if err := h.Back(); err != nil {
			t.Fatalf("Back failed: %v", err)
		}
	}
	if obj.props["left"] != 0.0 || obj.props["angle"] != 0.0 || obj.props["fill"] != "red" {
		t.Errorf("after full undo: %v", obj.props)
	}

	for h.CanRedo() {
		if err := h.Forward(); err != nil {
			t.Fatalf("Forward failed: %v", err)
		}
	}
	if changed := TakeSnapshot(obj, DefaultTrackedProperties).Changed(after); len(changed) != 0 {
		t.Errorf("after full redo, changed: %v", changed)
	}
}

func TestHistoryUndoRedoIdempotent(t *testing.T) {
	obj := newTestObject("o", map[string]any{"left": 0.0})
	s := testScene{"o": obj}
	h := NewHistory(10)

	h.Add(edit(t, s, obj, func() { obj.Set("left", 42.0) }))

	_ = h.Back()
	_ = h.Forward()
	if obj.props["left"] != 42.0 {
		t.Errorf("left = %v, want 42", obj.props["left"])
	}
}

func TestHistoryAddTruncatesRedo(t *testing.T) {
	obj := newTestObject("o", map[string]any{"left": 0.0})
	s := testScene{"o": obj}
	h := NewHistory(10)

	for i := 1; i <= 5; i++ {
		i := i
		h.Add(edit(t, s, obj, func() { obj.Set("left", float64(i)) }))
	}
	for i := 0; i < 3; i++ {
		_ = h.Back()
	}
	if h.RedoCount() != 3 {
		t.Fatalf("redo count = %d, want 3", h.RedoCount())
	}

	h.Add(edit(t, s, obj, func() { obj.Set("left", 99.0) }))

	if h.CanRedo() {
		t.Error("redo should be unavailable after add")
	}
	if h.Len() != 3 || h.Index() != 3 {
		t.Errorf("len=%d index=%d, want 3/3", h.Len(), h.Index())
	}
	_ = h.Forward()
	if obj.props["left"] != 99.0 {
		t.Error("forward after truncation should be a no-op")
	}
}

func TestHistoryEviction(t *testing.T) {
	obj := newTestObject("o", map[string]any{"left": 0.0})
	s := testScene{"o": obj}

	var evicted []Command
	h := NewHistory(DefaultMaxCommands, WithEvictHandler(func(cmd Command) {
		evicted = append(evicted, cmd)
	}))

	var all []Command
	for i := 1; i <= DefaultMaxCommands+5; i++ {
		i := i
		cmd := edit(t, s, obj, func() { obj.Set("left", float64(i)) })
		all = append(all, cmd)
		h.Add(cmd)
	}

	if h.Len() != DefaultMaxCommands {
		t.Fatalf("len = %d, want %d", h.Len(), DefaultMaxCommands)
	}
	if h.Index() != DefaultMaxCommands {
		t.Errorf("index = %d, want %d", h.Index(), DefaultMaxCommands)
	}
	if len(evicted) != 5 || h.Evicted() != 5 {
		t.Fatalf("evicted %d (counter %d), want 5", len(evicted), h.Evicted())
	}
	for i := 0; i < 5; i++ {
		if evicted[i] != all[i] {
			t.Errorf("evicted[%d] is not the oldest command", i)
		}
	}

	// Only the most recent edits remain undoable.
	for h.CanUndo() {
		_ = h.Back()
	}
	if obj.props["left"] != 5.0 {
		t.Errorf("left = %v, want 5 (state before the oldest retained edit)", obj.props["left"])
	}
}

func TestHistoryEvictionFloorsIndex(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 3; i++ {
		h.Add(&failingCommand{})
	}
	for h.CanUndo() {
		_ = h.Back()
	}
	h.SetMaxCommands(1)

	if h.Len() != 1 || h.Index() != 0 {
		t.Errorf("len=%d index=%d, want 1/0", h.Len(), h.Index())
	}
}

func TestHistoryBoundaryNoops(t *testing.T) {
	h := NewHistory(5)

	if err := h.Back(); err != nil {
		t.Errorf("Back on empty history: %v", err)
	}
	if err := h.Forward(); err != nil {
		t.Errorf("Forward on empty history: %v", err)
	}
	if h.Index() != 0 || h.Len() != 0 {
		t.Errorf("index=%d len=%d", h.Index(), h.Len())
	}

	h.Add(&failingCommand{})
	if err := h.Forward(); err != nil {
		t.Errorf("Forward at top: %v", err)
	}
	if h.Index() != 1 || h.Len() != 1 {
		t.Errorf("index=%d len=%d after forward at top", h.Index(), h.Len())
	}
}

func TestHistoryFailureRestoresCursor(t *testing.T) {
	h := NewHistory(5)
	h.Add(&failingCommand{failUndo: true, failExec: true})

	if err := h.Back(); !errors.Is(err, errFail) {
		t.Fatalf("got %v, want errFail", err)
	}
	if h.Index() != 1 {
		t.Errorf("index = %d after failed undo, want 1", h.Index())
	}

	h2 := NewHistory(5)
	h2.Add(&failingCommand{failExec: true})
	_ = h2.Back()
	if err := h2.Forward(); !errors.Is(err, errFail) {
		t.Fatalf("got %v, want errFail", err)
	}
	if h2.Index() != 0 {
		t.Errorf("index = %d after failed redo, want 0", h2.Index())
	}
}

func TestHistoryClear(t *testing.T) {
	h := NewHistory(5)
	h.Add(&failingCommand{})
	h.Add(&failingCommand{})
	_ = h.Back()

	h.Clear()
	if h.Len() != 0 || h.Index() != 0 || h.CanUndo() || h.CanRedo() {
		t.Error("history not cleared")
	}
}

func TestHistoryDefaultBound(t *testing.T) {
	if got := NewHistory(0).MaxCommands(); got != DefaultMaxCommands {
		t.Errorf("MaxCommands() = %d, want %d", got, DefaultMaxCommands)
	}
}

// Grouping Tests

func TestHistoryGrouping(t *testing.T) {
	obj := newTestObject("o", map[string]any{"left": 0.0, "top": 0.0})
	s := testScene{"o": obj}
	h := NewHistory(10)

	h.BeginGroup("Align")
	h.Add(edit(t, s, obj, func() { obj.Set("left", 10.0) }))
	h.Add(edit(t, s, obj, func() { obj.Set("top", 10.0) }))
	if h.Len() != 0 {
		t.Errorf("commands visible before EndGroup: %d", h.Len())
	}
	h.EndGroup()

	if h.Len() != 1 {
		t.Fatalf("len = %d, want 1", h.Len())
	}
	_ = h.Back()
	if obj.props["left"] != 0.0 || obj.props["top"] != 0.0 {
		t.Errorf("group not undone as one: %v", obj.props)
	}
	info, ok := h.PeekRedo()
	if !ok || info.Description != "Align" {
		t.Errorf("PeekRedo() = %v, %v", info, ok)
	}
}

func TestHistoryCancelGroup(t *testing.T) {
	h := NewHistory(10)
	h.BeginGroup("x")
	h.Add(&failingCommand{})
	h.CancelGroup()

	if h.Len() != 0 || h.IsGrouping() {
		t.Error("cancelled group should leave history empty")
	}
}

func TestHistoryGroupScope(t *testing.T) {
	h := NewHistory(10)
	func() {
		defer h.GroupScope("scope").End()
		h.Add(&failingCommand{})
		h.Add(&failingCommand{})
	}()
	if h.Len() != 1 {
		t.Errorf("len = %d, want 1", h.Len())
	}
}

func TestHistoryTransaction(t *testing.T) {
	h := NewHistory(10)

	err := h.Transaction("fails", func() error {
		h.Add(&failingCommand{})
		return errFail
	})
	if !errors.Is(err, errFail) || h.Len() != 0 {
		t.Errorf("err=%v len=%d", err, h.Len())
	}

	err = h.Transaction("ok", func() error {
		h.Add(&failingCommand{})
		return nil
	})
	if err != nil || h.Len() != 1 {
		t.Errorf("err=%v len=%d", err, h.Len())
	}
}

// Info Tests

func TestHistoryInfo(t *testing.T) {
	obj := newTestObject("o", map[string]any{"left": 0.0, "fill": "red"})
	s := testScene{"o": obj}
	h := NewHistory(10)

	if _, ok := h.PeekUndo(); ok {
		t.Error("PeekUndo should return false when empty")
	}

	h.Add(edit(t, s, obj, func() { obj.Set("left", 1.0) }))
	h.Add(edit(t, s, obj, func() { obj.Set("fill", "blue") }))
	_ = h.Back()

	undo := h.UndoInfo()
	if len(undo) != 1 || undo[0].Description != "Move" {
		t.Errorf("UndoInfo() = %v", undo)
	}
	if undo[0].Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
	redo := h.RedoInfo()
	if len(redo) != 1 || redo[0].Description != "Set fill" {
		t.Errorf("RedoInfo() = %v", redo)
	}

	info, ok := h.PeekUndo()
	if !ok || info.Description != "Move" {
		t.Errorf("PeekUndo() = %v, %v", info, ok)
	}
	if h.Index() != 1 {
		t.Error("PeekUndo should not move the cursor")
	}
}

// Checkpoint Tests

func TestHistoryCheckpoint(t *testing.T) {
	obj := newTestObject("o", map[string]any{"left": 0.0})
	s := testScene{"o": obj}
	h := NewHistory(10)

	h.Add(edit(t, s, obj, func() { obj.Set("left", 1.0) }))
	cp := h.CreateCheckpoint()
	h.Add(edit(t, s, obj, func() { obj.Set("left", 2.0) }))
	h.Add(edit(t, s, obj, func() { obj.Set("left", 3.0) }))

	if err := h.BackTo(cp); err != nil {
		t.Fatalf("BackTo failed: %v", err)
	}
	if obj.props["left"] != 1.0 || h.Index() != 1 {
		t.Errorf("left=%v index=%d", obj.props["left"], h.Index())
	}

	_ = h.Back()
	if err := h.ForwardTo(cp); err != nil {
		t.Fatalf("ForwardTo failed: %v", err)
	}
	if obj.props["left"] != 1.0 || h.Index() != 1 {
		t.Errorf("left=%v index=%d", obj.props["left"], h.Index())
	}
}

func TestHistoryCheckpointSurvivesEviction(t *testing.T) {
	h := NewHistory(3)
	h.Add(&failingCommand{})
	h.Add(&failingCommand{})
	cp := h.CreateCheckpoint()
	h.Add(&failingCommand{})
	h.Add(&failingCommand{}) // evicts one

	if err := h.BackTo(cp); err != nil {
		t.Fatalf("BackTo failed: %v", err)
	}
	if h.Index() != 1 {
		t.Errorf("index = %d, want 1", h.Index())
	}
}
