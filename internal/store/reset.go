package store

import (
	"context"
	"os"
	"path/filepath"
)

// Reset deletes every shard file under the root, including SQLite
// sidecar files. There is no selective reset and no undo. A missing or
// empty root is not an error. The first failed removal aborts the reset.
func (s *Store) Reset(ctx context.Context) error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return storageErr("reset", "", err)
	}

	removed := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return storageErr("reset", "", err)
		}
		if e.IsDir() || !isShardFile(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(s.root, e.Name())); err != nil && !os.IsNotExist(err) {
			return storageErr("reset", e.Name(), err)
		}
		removed++
	}

	s.logger.Info("store reset", "root", s.root, "removed", removed)
	return nil
}
