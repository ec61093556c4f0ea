package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// sqliteSidecars are the files SQLite keeps next to a WAL-mode database.
var sqliteSidecars = []string{"-wal", "-shm"}

// DiskUsageBytes returns the bytes used by the given data paths. A path may be a file or a
// directory (summed recursively); a file's SQLite WAL and shared-memory sidecars are counted
// with it. Empty and missing paths count as zero.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		n, err := pathSize(p)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func pathSize(p string) (int64, error) {
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		total := info.Size()
		for _, suffix := range sqliteSidecars {
			if side, err := os.Stat(p + suffix); err == nil && !side.IsDir() {
				total += side.Size()
			}
		}
		return total, nil
	}
	var total int64
	err = filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			fi, err := d.Info()
			if err != nil {
				return err
			}
			total += fi.Size()
		}
		return nil
	})
	return total, err
}
