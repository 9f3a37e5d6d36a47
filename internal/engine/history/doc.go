// Package history provides undo/redo functionality for the design engine.
//
// The history system uses the Command pattern to encapsulate edits to scene
// objects, enabling them to be executed, undone, and redone. Key concepts:
//
// # Tracked Properties
//
// A TrackedObject exposes Get and Set for a fixed set of property names.
// The set is either declared by the object (PropertyDeclarer) or supplied
// by the caller, usually DefaultTrackedProperties:
//
//	props := history.TrackedPropertiesOf(obj, history.DefaultTrackedProperties)
//
// # Commands
//
// A PropertyCommand records the tracked property values of one object
// before and after a single edit:
//
//	prev := history.TakeSnapshot(obj, props)
//	obj.Set("left", 10.0)
//	cmd, err := history.NewPropertyCommand(scene, obj, prev, props)
//
// Commands hold the object's id and a Resolver rather than the object
// itself. When the object has been removed from the scene the command
// becomes inert.
//
// # History Stack
//
// The History type is a bounded list of commands with a cursor:
//
//	h := history.NewHistory(30)
//	h.Add(cmd)
//	h.Back()    // undo
//	h.Forward() // redo
//
// Adding a command while the cursor is not at the end discards the redo
// branch. When the bound is exceeded the oldest command is evicted; an
// eviction handler can observe this.
//
// # Command Grouping
//
// Multiple commands can be grouped as a single undo unit:
//
//	h.BeginGroup("Align left")
//	// ... multiple edits ...
//	h.EndGroup()
//
// Now all edits undo together with one step.
package history
