package store

import (
	"io/fs"
	"path/filepath"
)

// SizeBytes returns the best-effort on-disk size of the database directory.
// Used by the admin stats surface; zero when the store is closed.
func (s *Store) SizeBytes() uint64 {
	if s == nil || s.db == nil || s.path == "" {
		return 0
	}
	var total uint64
	_ = filepath.WalkDir(s.path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += uint64(fi.Size())
		}
		return nil
	})
	return total
}
