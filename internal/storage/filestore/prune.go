package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Prune deletes session files in dir that are no longer needed: files with
// a malformed name, files of discarded sessions and files created more than
// maxAge before now. It returns the removed paths.
func Prune(dir string, maxAge time.Duration, discarded []string, now time.Time) ([]string, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read journal directory: %w", err)
	}

	gone := make(map[string]struct{}, len(discarded))
	for _, id := range discarded {
		gone[id] = struct{}{}
	}

	var removed []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, Prefix) || !strings.HasSuffix(name, Ext) {
			continue
		}
		if !stale(name, maxAge, gone, now) {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to remove %s: %w", name, err)
		}
		removed = append(removed, path)
	}
	return removed, nil
}

func stale(name string, maxAge time.Duration, discarded map[string]struct{}, now time.Time) bool {
	session, created, ok := ParseFileName(name)
	if !ok {
		return true
	}
	if _, ok := discarded[session]; ok {
		return true
	}
	return now.Sub(created) >= maxAge
}
