package script

import (
	"context"
	"errors"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/drafter/internal/engine"
	"github.com/dshills/drafter/internal/engine/scene"
)

// ModuleName is the global the document module is installed as.
const ModuleName = "doc"

// OpenDoc installs the document module backed by eng.
//
//	local id = doc.add({type = "rect", left = 10, width = 20, height = 20})
//	doc.set(id, "fill", "#ff0000")
//	doc.edit(id, {left = 50, top = 5})
//	doc.undo()
func OpenDoc(s *State, eng *engine.Engine) {
	m := &docModule{eng: eng}
	s.RegisterModule(ModuleName, map[string]lua.LGFunction{
		"add":         m.add,
		"get":         m.get,
		"set":         m.set,
		"edit":        m.edit,
		"remove":      m.remove,
		"find":        m.find,
		"objects":     m.objects,
		"undo":        m.undo,
		"redo":        m.redo,
		"can_undo":    m.canUndo,
		"can_redo":    m.canRedo,
		"rewind":      m.rewind,
		"replay":      m.replay,
		"group":       m.group,
		"ungroup":     m.ungroup,
		"lock":        m.lock,
		"unlock":      m.unlock,
		"reorder":     m.reorder,
		"begin_group": m.beginGroup,
		"end_group":   m.endGroup,
	})
}

type docModule struct {
	eng *engine.Engine
}

func ctxOf(L *lua.LState) context.Context {
	if ctx := L.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// raise converts a Go error into a Lua error.
func raise(L *lua.LState, err error) int {
	L.RaiseError("%s", err.Error())
	return 0
}

// add(props) -> id
func (m *docModule) add(L *lua.LState) int {
	props, ok := ToGo(L.CheckTable(1)).(map[string]any)
	if !ok {
		L.ArgError(1, "object table expected")
		return 0
	}
	if _, ok := props["type"]; !ok {
		props["type"] = string(scene.KindRect)
	}

	obj, err := scene.FromMap(props)
	if err != nil {
		return raise(L, err)
	}
	if err := m.eng.Add(ctxOf(L), obj); err != nil {
		return raise(L, err)
	}
	L.Push(lua.LString(obj.ID()))
	return 1
}

// get(id [, name]) -> table | value | nil
func (m *docModule) get(L *lua.LState) int {
	obj, ok := m.eng.Object(L.CheckString(1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	if L.GetTop() >= 2 {
		v, _ := obj.Get(L.CheckString(2))
		L.Push(ToLua(L, v))
		return 1
	}
	L.Push(ToLua(L, obj.ToMap()))
	return 1
}

// set(id, name, value)
func (m *docModule) set(L *lua.LState) int {
	id, name := L.CheckString(1), L.CheckString(2)
	if err := m.eng.SetProperty(ctxOf(L), id, name, ToGo(L.Get(3))); err != nil {
		return raise(L, err)
	}
	return 0
}

// edit(id, props) applies several properties as one undoable change.
func (m *docModule) edit(L *lua.LState) int {
	id := L.CheckString(1)
	props, ok := ToGo(L.CheckTable(2)).(map[string]any)
	if !ok {
		L.ArgError(2, "property table expected")
		return 0
	}
	err := m.eng.Edit(ctxOf(L), id, func(o *engine.Object) error {
		o.SetAll(props)
		return nil
	})
	if err != nil {
		return raise(L, err)
	}
	return 0
}

// remove(id) -> table
func (m *docModule) remove(L *lua.LState) int {
	obj, err := m.eng.Remove(ctxOf(L), L.CheckString(1))
	if err != nil {
		return raise(L, err)
	}
	L.Push(ToLua(L, obj.ToMap()))
	return 1
}

// find(query) -> {id...}
func (m *docModule) find(L *lua.LState) int {
	L.Push(ToLua(L, ids(m.eng.Find(L.CheckString(1)))))
	return 1
}

// objects() -> {table...}
func (m *docModule) objects(L *lua.LState) int {
	objs := m.eng.Objects()
	t := L.CreateTable(len(objs), 0)
	for i, o := range objs {
		t.RawSetInt(i+1, ToLua(L, o.ToMap()))
	}
	L.Push(t)
	return 1
}

// step pushes true when op succeeded and false when there was nothing to
// do; other errors are raised.
func step(L *lua.LState, err error, nothing ...error) int {
	for _, target := range nothing {
		if errors.Is(err, target) {
			L.Push(lua.LFalse)
			return 1
		}
	}
	if err != nil {
		return raise(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

func (m *docModule) undo(L *lua.LState) int {
	return step(L, m.eng.Undo(), engine.ErrNothingToUndo)
}

func (m *docModule) redo(L *lua.LState) int {
	return step(L, m.eng.Redo(), engine.ErrNothingToRedo)
}

func (m *docModule) canUndo(L *lua.LState) int {
	L.Push(lua.LBool(m.eng.CanUndo()))
	return 1
}

func (m *docModule) canRedo(L *lua.LState) int {
	L.Push(lua.LBool(m.eng.CanRedo()))
	return 1
}

func (m *docModule) rewind(L *lua.LState) int {
	return step(L, m.eng.Rewind(ctxOf(L)), engine.ErrNothingToRewind)
}

func (m *docModule) replay(L *lua.LState) int {
	return step(L, m.eng.Replay(ctxOf(L)), engine.ErrNothingToReplay)
}

// group(name, {id...}) -> id
func (m *docModule) group(L *lua.LState) int {
	name := L.OptString(1, "")
	members := toStrings(L.CheckTable(2))
	g, err := m.eng.Group(ctxOf(L), name, members...)
	if err != nil {
		return raise(L, err)
	}
	L.Push(lua.LString(g.ID()))
	return 1
}

// ungroup(id) -> {id...}
func (m *docModule) ungroup(L *lua.LState) int {
	children, err := m.eng.Ungroup(ctxOf(L), L.CheckString(1))
	if err != nil {
		return raise(L, err)
	}
	L.Push(ToLua(L, ids(children)))
	return 1
}

func (m *docModule) lock(L *lua.LState) int {
	if err := m.eng.Lock(ctxOf(L), L.CheckString(1)); err != nil {
		return raise(L, err)
	}
	return 0
}

func (m *docModule) unlock(L *lua.LState) int {
	if err := m.eng.Unlock(ctxOf(L), L.CheckString(1)); err != nil {
		return raise(L, err)
	}
	return 0
}

// reorder(id, delta) -> index
func (m *docModule) reorder(L *lua.LState) int {
	idx, err := m.eng.Reorder(ctxOf(L), L.CheckString(1), L.CheckInt(2))
	if err != nil {
		return raise(L, err)
	}
	L.Push(lua.LNumber(idx))
	return 1
}

func (m *docModule) beginGroup(L *lua.LState) int {
	m.eng.BeginGroup(L.OptString(1, "Script"))
	return 0
}

func (m *docModule) endGroup(L *lua.LState) int {
	m.eng.EndGroup()
	return 0
}

func ids(objs []*engine.Object) []string {
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = o.ID()
	}
	return out
}
