// Package event provides the in-process event bus for drafter.
//
// Components publish typed events (Event[T]) on hierarchical topics using
// dot notation:
//
//	object.added      - An object was added to the scene
//	history.undo      - A command was undone
//	journal.replay    - A journal snapshot was re-applied
//
// # Wildcard Patterns
//
// Subscriptions support wildcard patterns:
//
//	object.*     - matches object.added, object.removed (single segment)
//	history.**   - matches history.undo and anything deeper
//	*.undo       - matches history.undo
//
// # Delivery
//
// Delivery is synchronous in the publisher's goroutine, ordered by
// priority and then by subscription order. Handler panics are recovered
// and reported as PanicError.
//
// # Example
//
//	bus := event.NewBus()
//	bus.Subscribe("object.*", func(ctx context.Context, ev any) error {
//	    p, _ := event.PayloadOf[event.ObjectPayload](ev)
//	    log.Println("changed", p.ObjectID)
//	    return nil
//	})
//	bus.Publish(ctx, event.NewEvent(event.TopicObjectAdded, payload, "engine"))
package event
