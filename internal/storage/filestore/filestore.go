// Package filestore persists journal snapshots as JSON lines, one file per
// editing session.
package filestore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dshills/drafter/internal/engine/journal"
)

// Prefix starts every session file name.
const Prefix = "EDITOR"

// Ext is the session file extension.
const Ext = ".jsonl"

// DefaultMaxAge is the age after which Prune removes session files.
const DefaultMaxAge = 12 * time.Hour

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// FileName returns the file name for a session created at the given time.
func FileName(session string, created time.Time) string {
	return fmt.Sprintf("%s_%s_%d%s", Prefix, session, created.UnixMilli(), Ext)
}

// ParseFileName extracts the session id and creation time from a file name.
// The session id may itself contain underscores; the timestamp follows the
// last one.
func ParseFileName(name string) (session string, created time.Time, ok bool) {
	base := strings.TrimSuffix(filepath.Base(name), Ext)
	rest, found := strings.CutPrefix(base, Prefix+"_")
	if !found {
		return "", time.Time{}, false
	}
	i := strings.LastIndex(rest, "_")
	if i <= 0 {
		return "", time.Time{}, false
	}
	ms, err := strconv.ParseInt(rest[i+1:], 10, 64)
	if err != nil {
		return "", time.Time{}, false
	}
	return rest[:i], time.UnixMilli(ms), true
}

// Store is a journal.Store backed by a JSON-lines file.
//
// Appends go to the end of the file. Deletes rewrite the file through a
// temporary file and rename.
type Store struct {
	mu        sync.Mutex
	path      string
	file      *os.File
	nextID    int64
	snapshots []journal.Snapshot
}

// Open opens or creates the session file at path and loads its snapshots.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	s := &Store{path: path, nextID: 1}
	if err := s.load(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}
	s.file = f
	return s, nil
}

// Create opens a new file for session in dir.
func Create(dir, session string, now time.Time) (*Store, error) {
	return Open(filepath.Join(dir, FileName(session, now)))
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read journal file: %w", err)
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var snap journal.Snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return fmt.Errorf("%s:%d: %w", s.path, line, err)
		}
		s.snapshots = append(s.snapshots, snap)
		if snap.ID >= s.nextID {
			s.nextID = snap.ID + 1
		}
	}
	return sc.Err()
}

// Path returns the file path.
func (s *Store) Path() string {
	return s.path
}

// Append implements journal.Store.
func (s *Store) Append(_ context.Context, snap journal.Snapshot) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return 0, ErrClosed
	}

	snap.ID = s.nextID
	line, err := json.Marshal(snap)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	line = append(line, '\n')
	if _, err := s.file.Write(line); err != nil {
		return 0, fmt.Errorf("failed to write snapshot: %w", err)
	}

	s.nextID++
	s.snapshots = append(s.snapshots, snap.Clone())
	return snap.ID, nil
}

// List implements journal.Store.
func (s *Store) List(_ context.Context) ([]journal.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil, ErrClosed
	}
	out := make([]journal.Snapshot, len(s.snapshots))
	for i, snap := range s.snapshots {
		out[i] = snap.Clone()
	}
	return out, nil
}

// Delete implements journal.Store.
func (s *Store) Delete(_ context.Context, ids ...int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return ErrClosed
	}

	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := make([]journal.Snapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		if _, ok := drop[snap.ID]; !ok {
			kept = append(kept, snap)
		}
	}
	if len(kept) == len(s.snapshots) {
		return nil
	}
	return s.rewriteLocked(kept)
}

// Clear implements journal.Store.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return ErrClosed
	}
	return s.rewriteLocked(nil)
}

// rewriteLocked replaces the file content with snaps.
func (s *Store) rewriteLocked(snaps []journal.Snapshot) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, snap := range snaps {
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := s.file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close journal file: %w", err)
	}
	s.file = nil

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to reopen journal file: %w", err)
	}
	s.file = f
	s.snapshots = snaps
	return nil
}

// Close closes the file. The file is kept on disk.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Remove closes the store and deletes its file.
func (s *Store) Remove() error {
	if err := s.Close(); err != nil {
		return err
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

var _ journal.Store = (*Store)(nil)
