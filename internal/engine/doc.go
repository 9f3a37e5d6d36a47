// Package engine provides the core design-document engine for drafter.
//
// The engine package serves as the main facade, combining the scene, the
// property history and the snapshot journal into a unified, thread-safe
// API.
//
// # Architecture
//
// The engine is built on several sub-packages:
//
//   - scene: ordered collection of objects with flat property maps
//   - history: bounded command history of tracked-property edits
//   - journal: persisted snapshots of structural and property changes
//
// Two undo systems run side by side. The history reverts property edits
// made through Edit and SetProperty (Undo/Redo). The journal records every
// change, including adds, removes and grouping, and steps through them with
// Rewind/Replay.
//
// # Basic Usage
//
//	e := engine.New(engine.WithBus(bus))
//
//	rect := scene.NewObject(scene.KindRect, map[string]any{
//	    "left": 10, "top": 10, "width": 100, "height": 50,
//	})
//	e.Add(ctx, rect)
//
//	// Move it
//	e.Edit(ctx, rect.ID(), func(o *engine.Object) error {
//	    o.Set("left", 40.0)
//	    return nil
//	})
//
//	e.Undo() // left is 10 again
//	e.Redo() // left is 40 again
//
// # Grouping Edits
//
//	e.BeginGroup("Align left")
//	for _, id := range selection {
//	    e.SetProperty(ctx, id, "left", 0.0)
//	}
//	e.EndGroup()
//
// # Events
//
// With a bus configured, the engine publishes object.*, property.changed,
// history.* and journal.* events after each operation completes.
package engine
