package event

// Topics published by the editing engine.
const (
	TopicObjectAdded     Topic = "object.added"
	TopicObjectRemoved   Topic = "object.removed"
	TopicObjectModified  Topic = "object.modified"
	TopicPropertyChanged Topic = "property.changed"
	TopicObjectGrouped   Topic = "object.grouped"
	TopicObjectUngrouped Topic = "object.ungrouped"
	TopicObjectLocked    Topic = "object.locked"
	TopicObjectUnlocked  Topic = "object.unlocked"
	TopicObjectOrdered   Topic = "object.ordered"

	TopicHistoryUndo    Topic = "history.undo"
	TopicHistoryRedo    Topic = "history.redo"
	TopicHistoryEvicted Topic = "history.evicted"

	TopicJournalRewind Topic = "journal.rewind"
	TopicJournalReplay Topic = "journal.replay"

	TopicConfigReloaded Topic = "config.reloaded"
)

// ObjectPayload describes a change to one object.
type ObjectPayload struct {
	// ObjectID is the id of the affected object.
	ObjectID string

	// Kind is the object kind.
	Kind string

	// Index is the z-index of the object after the change, or -1 if it
	// was removed.
	Index int

	// Description is a human-readable summary of the change.
	Description string
}

// PropertyPayload describes a single property change.
type PropertyPayload struct {
	ObjectID string
	Property string
	OldValue any
	NewValue any
}

// GroupPayload describes a grouping change.
type GroupPayload struct {
	GroupID   string
	MemberIDs []string
}

// HistoryPayload describes a history step.
type HistoryPayload struct {
	// Description is the description of the command undone, redone or
	// evicted.
	Description string

	// Index is the history cursor after the step.
	Index int

	// Len is the number of commands in the history.
	Len int
}

// JournalPayload describes a journal replay step.
type JournalPayload struct {
	SnapshotID int64
	Type       string
	Cursor     int
}
