package fsutil

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// IsPNG reports whether name has a .png extension (any case).
func IsPNG(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".png")
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := Get(func() (fs.FileInfo, error) { return os.Stat(path) })
	return err == nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := Get(func() (fs.FileInfo, error) { return os.Stat(path) })
	return err == nil && info.IsDir()
}

// ReadDir lists a directory's entries sorted by name.
func ReadDir(dir string) ([]fs.DirEntry, error) {
	entries, err := Get(func() ([]fs.DirEntry, error) { return os.ReadDir(dir) })
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %q", dir)
	}
	return entries, nil
}

// ListPNGs returns the immediate PNG children of dir in lexical order.
func ListPNGs(dir string) ([]string, error) {
	entries, err := ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsPNG(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}

// ListDirs returns every directory below root (root excluded) in lexical
// pre-order: each directory precedes its descendants.
func ListDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to walk %q", root)
	}
	return dirs, nil
}

// MkdirAll creates dir and any missing parents.
func MkdirAll(dir string) error {
	return errors.Wrapf(Do(func() error { return os.MkdirAll(dir, 0o755) }), "failed to create %q", dir)
}

// Remove deletes a single file or empty directory. Missing paths are not an error.
func Remove(path string) error {
	err := Do(func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	})
	return errors.Wrapf(err, "failed to remove %q", path)
}

// RemoveAll deletes path and everything below it.
func RemoveAll(path string) error {
	return errors.Wrapf(Do(func() error { return os.RemoveAll(path) }), "failed to remove %q", path)
}

// EmptyDir deletes every child of dir, keeping dir itself.
func EmptyDir(dir string) error {
	entries, err := ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// CopyFile copies src to dst, replacing dst.
func CopyFile(src, dst string) error {
	err := Do(func() error {
		in, err := os.Open(src)
		if err != nil {
			return err
		}
		defer in.Close()

		info, err := in.Stat()
		if err != nil {
			return err
		}
		out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	})
	return errors.Wrapf(err, "failed to copy %q to %q", src, dst)
}

// CopyDir recursively copies src into dst, creating dst as needed. Existing
// files in dst with the same names are replaced.
func CopyDir(src, dst string) error {
	if err := MkdirAll(dst); err != nil {
		return err
	}
	entries, err := ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		from, to := filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())
		if e.IsDir() {
			err = CopyDir(from, to)
		} else {
			err = CopyFile(from, to)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// MoveFile moves src to dst, replacing dst. A rename is attempted first, with
// copy+delete as the fallback for cross-device moves.
func MoveFile(src, dst string) error {
	if err := Do(func() error { return os.Rename(src, dst) }); err == nil {
		return nil
	}
	if err := CopyFile(src, dst); err != nil {
		return err
	}
	return Remove(src)
}

// MoveDir merges the contents of src into dst. Files in dst with the same
// names are replaced; other files in dst are kept. src and its subdirectories
// are left in place, empty; see RemoveEmptyDirs.
func MoveDir(src, dst string) error {
	if err := MkdirAll(dst); err != nil {
		return err
	}
	entries, err := ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		from, to := filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())
		if e.IsDir() {
			err = MoveDir(from, to)
		} else {
			err = MoveFile(from, to)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// RemoveEmptyDirs deletes every directory below root that is empty, or that
// becomes empty once its empty children are removed. root itself is kept.
func RemoveEmptyDirs(root string) error {
	dirs, err := ListDirs(root)
	if err != nil {
		return err
	}
	// Deepest first, so parents see their children already gone.
	sort.SliceStable(dirs, func(i, j int) bool {
		return strings.Count(dirs[i], string(filepath.Separator)) > strings.Count(dirs[j], string(filepath.Separator))
	})
	for _, dir := range dirs {
		entries, err := ReadDir(dir)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			if err := Remove(dir); err != nil {
				return err
			}
		}
	}
	return nil
}

// OnlyImagesOrDirs reports whether every file below dir, at any depth, is a PNG.
func OnlyImagesOrDirs(dir string) (bool, error) {
	only := true
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && !IsPNG(d.Name()) {
			only = false
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return false, errors.Wrapf(err, "failed to inspect %q", dir)
	}
	return only, nil
}
