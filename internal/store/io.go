package store

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrEmptyFile is returned by ReadFile for zero-length files, which callers
// treat differently from missing or unreadable ones.
var ErrEmptyFile = errors.New("file is empty")

// ReadFile reads path in full. Failures stay distinguishable: a missing
// file satisfies errors.Is(err, os.ErrNotExist), an empty file returns
// ErrEmptyFile, anything else is an unreadable file.
func ReadFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, ErrEmptyFile
	}
	return b, nil
}

// WriteFileAtomic stages b in a temp file next to path, syncs it to disk,
// then renames it over path. The sync result is checked before the rename,
// so a crash or a failed flush at any point leaves the previous file
// intact.
func WriteFileAtomic(path string, b []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	f, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	// Best-effort cleanup if anything fails before rename.
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}
