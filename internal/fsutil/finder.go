// Package fsutil provides file system utility functions shared by the
// resolution stages.
package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FindFilesByExtension lists the regular files directly inside dir whose
// extension matches one of extensions (compared case-insensitively). The
// result is sorted so discovery order never depends on directory iteration.
// A missing directory yields no files and no error.
func FindFilesByExtension(dir string, extensions ...string) ([]string, error) {
	if len(extensions) == 0 {
		panic("extensions must not be empty")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		for _, want := range extensions {
			if ext == strings.ToLower(want) {
				files = append(files, filepath.Join(dir, entry.Name()))
				break
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// DirExists reports whether path names an existing directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// RealPath returns the absolute, symlink-resolved form of path. When the
// path cannot be resolved (it may not exist yet) the cleaned absolute path
// is returned instead.
func RealPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	return abs
}

// SameDir reports whether a and b resolve to the same real directory.
func SameDir(a, b string) bool {
	return RealPath(a) == RealPath(b)
}

// NormalizeSeparators rewrites every occurrence of the alternate directory
// separator alt into primary. An alt of zero means the platform has no
// alternate separator and the path is returned unchanged.
func NormalizeSeparators(path string, primary, alt byte) string {
	if alt == 0 || alt == primary {
		return path
	}
	return strings.ReplaceAll(path, string(alt), string(primary))
}
