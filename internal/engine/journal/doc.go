// Package journal records scene mutations as typed snapshots and replays
// them in either direction.
//
// Where the command history restores tracked properties of a single
// object, the journal also covers structural changes: adding and deleting
// objects, grouping, locking and re-ordering. Each Snapshot carries the
// serialized object it affects, so replay can rebuild objects that no
// longer exist in the scene.
//
// Snapshots are kept in a Store. MemoryStore ships here; the storage
// packages provide file and Postgres stores. The journal keeps at most
// Limit snapshots and drops the oldest beyond that.
//
// While a snapshot is being applied the journal is "processing" and
// ignores Record calls, so listeners that record scene changes do not
// capture the replay itself.
package journal
