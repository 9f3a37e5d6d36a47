// Package script runs Lua automation against a document.
//
// Scripts run in a sandboxed gopher-lua state: only the base, table,
// string and math libraries are available, and the base functions that
// load code (dofile, load, require, ...) are removed. Each run is bounded
// by a timeout; print writes to the configured output.
//
// OpenDoc installs the doc module, which exposes the engine:
//
//	doc.add(props) -> id          doc.get(id [, name])
//	doc.set(id, name, value)      doc.edit(id, props)
//	doc.remove(id) -> props       doc.find(query) -> ids
//	doc.objects() -> list         doc.reorder(id, delta) -> index
//	doc.group(name, ids) -> id    doc.ungroup(id) -> ids
//	doc.lock(id)                  doc.unlock(id)
//	doc.undo() -> bool            doc.redo() -> bool
//	doc.can_undo() -> bool        doc.can_redo() -> bool
//	doc.rewind() -> bool          doc.replay() -> bool
//	doc.begin_group([name])       doc.end_group()
//
// undo, redo, rewind and replay return false when there is nothing to
// step over. Engine errors are raised as Lua errors and can be caught
// with pcall.
package script
