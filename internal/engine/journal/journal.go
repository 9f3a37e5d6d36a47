package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dshills/drafter/internal/engine/scene"
)

// DefaultLimit is the number of snapshots kept when no limit is given.
const DefaultLimit = 50

// ErrInvalidSnapshot is returned when recording a snapshot with an unknown
// type.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Option configures a Journal.
type Option func(*Journal)

// WithLimit sets the maximum number of stored snapshots.
func WithLimit(n int) Option {
	return func(j *Journal) {
		if n > 0 {
			j.limit = n
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(j *Journal) {
		if l != nil {
			j.logger = l
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) {
		if now != nil {
			j.now = now
		}
	}
}

// Journal is a bounded log of scene mutations with a replay cursor.
//
// The cursor points at the most recently applied snapshot: -1 means every
// snapshot has been undone. Undo reverts the snapshot at the cursor; Redo
// re-applies the one after it.
type Journal struct {
	mu     sync.Mutex
	store  Store
	limit  int
	logger *slog.Logger
	now    func() time.Time

	cursor int
	length int

	processing bool
	batching   bool
	batch      []Snapshot
}

// New creates a journal over store. A nil store uses a MemoryStore.
func New(store Store, opts ...Option) *Journal {
	if store == nil {
		store = NewMemoryStore()
	}
	j := &Journal{
		store:  store,
		limit:  DefaultLimit,
		logger: nopLogger(),
		now:    time.Now,
		cursor: -1,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Load syncs the cursor with the snapshots already in the store, placing
// it after the newest one.
func (j *Journal) Load(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	list, err := j.store.List(ctx)
	if err != nil {
		return fmt.Errorf("load journal: %w", err)
	}
	j.length = len(list)
	j.cursor = j.length - 1
	return nil
}

// Store returns the underlying store.
func (j *Journal) Store() Store {
	return j.store
}

// Cursor returns the index of the most recently applied snapshot.
func (j *Journal) Cursor() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cursor
}

// Len returns the number of stored snapshots.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.length
}

// Limit returns the snapshot bound.
func (j *Journal) Limit() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.limit
}

// SetLimit changes the snapshot bound. It takes effect on the next write.
func (j *Journal) SetLimit(n int) {
	if n <= 0 {
		n = DefaultLimit
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.limit = n
}

// CanUndo reports whether a snapshot can be reverted.
func (j *Journal) CanUndo() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cursor >= 0
}

// CanRedo reports whether a reverted snapshot can be re-applied.
func (j *Journal) CanRedo() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cursor < j.length-1
}

// Processing reports whether an undo or redo is being applied.
// Snapshots recorded meanwhile are ignored.
func (j *Journal) Processing() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.processing
}

// Batching reports whether a batch is open.
func (j *Journal) Batching() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.batching
}

// Record appends a snapshot after the cursor, discarding any snapshots
// that had been undone. When the limit is exceeded the oldest snapshots
// are dropped. In batch mode the snapshot is buffered until EndBatch.
func (j *Journal) Record(ctx context.Context, s Snapshot) error {
	if !s.Type.Valid() {
		return fmt.Errorf("%w: type %d", ErrInvalidSnapshot, int(s.Type))
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.processing {
		j.logger.Debug("snapshot ignored during replay", "type", s.Type.String())
		return nil
	}
	if s.Timestamp == 0 {
		s.Timestamp = j.now().UnixMilli()
	}
	if j.batching {
		j.batch = append(j.batch, s.Clone())
		return nil
	}
	return j.appendLocked(ctx, s, true)
}

// StartBatch begins collecting snapshots into a batch.
func (j *Journal) StartBatch() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.batching = true
	j.batch = nil
}

// EndBatch commits the collected snapshots. The first one discards undone
// snapshots like Record; the rest are appended after it.
func (j *Journal) EndBatch(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	batch := j.batch
	j.batching = false
	j.batch = nil

	for i, s := range batch {
		if err := j.appendLocked(ctx, s, i == 0); err != nil {
			return fmt.Errorf("end batch: %w", err)
		}
	}
	return nil
}

// CancelBatch drops the collected snapshots.
func (j *Journal) CancelBatch() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.batching = false
	j.batch = nil
}

func (j *Journal) appendLocked(ctx context.Context, s Snapshot, truncate bool) error {
	list, err := j.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}

	var drop []int64
	keep := make([]int64, 0, len(list)+1)
	for i, existing := range list {
		if truncate && i > j.cursor {
			drop = append(drop, existing.ID)
			continue
		}
		keep = append(keep, existing.ID)
	}

	id, err := j.store.Append(ctx, s)
	if err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	keep = append(keep, id)

	for len(keep) > j.limit {
		drop = append(drop, keep[0])
		keep = keep[1:]
	}
	if len(drop) > 0 {
		if err := j.store.Delete(ctx, drop...); err != nil {
			return fmt.Errorf("delete snapshots: %w", err)
		}
	}

	j.length = len(keep)
	j.cursor = j.length - 1
	j.logger.Debug("snapshot recorded",
		"type", s.Type.String(), "id", id, "cursor", j.cursor, "dropped", len(drop))
	return nil
}

// Clear removes every snapshot and resets the cursor.
func (j *Journal) Clear(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear journal: %w", err)
	}
	j.cursor = -1
	j.length = 0
	j.batching = false
	j.batch = nil
	return nil
}

// Undo reverts the snapshot at the cursor on sc and moves the cursor back.
// It returns the reverted snapshot, or false when there is nothing to undo.
func (j *Journal) Undo(ctx context.Context, sc *scene.Scene) (Snapshot, bool, error) {
	return j.step(ctx, sc, false)
}

// Redo re-applies the snapshot after the cursor on sc and moves the cursor
// forward. It returns the applied snapshot, or false when there is nothing
// to redo.
func (j *Journal) Redo(ctx context.Context, sc *scene.Scene) (Snapshot, bool, error) {
	return j.step(ctx, sc, true)
}

func (j *Journal) step(ctx context.Context, sc *scene.Scene, forward bool) (Snapshot, bool, error) {
	j.mu.Lock()
	if j.processing {
		j.mu.Unlock()
		return Snapshot{}, false, nil
	}
	pos := j.cursor
	if forward {
		pos++
	}
	if pos < 0 || pos >= j.length {
		j.mu.Unlock()
		return Snapshot{}, false, nil
	}
	j.processing = true
	j.mu.Unlock()

	defer func() {
		j.mu.Lock()
		j.processing = false
		j.mu.Unlock()
	}()

	list, err := j.store.List(ctx)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("list snapshots: %w", err)
	}
	if pos >= len(list) {
		j.logger.Warn("no snapshot at cursor", "position", pos, "stored", len(list))
		return Snapshot{}, false, nil
	}
	s := list[pos]

	if len(s.Target) > 0 {
		if forward {
			err = redo(sc, s)
		} else {
			err = undo(sc, s)
		}
		if err != nil {
			return s, false, fmt.Errorf("apply %s snapshot %d: %w", s.Type, s.ID, err)
		}
	}

	j.mu.Lock()
	if forward {
		j.cursor = pos
	} else {
		j.cursor = pos - 1
	}
	j.mu.Unlock()

	return s, true, nil
}
