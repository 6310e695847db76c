// Package apphost binds a native launcher template to a managed
// application by overwriting a well-known placeholder inside the binary.
//
// The placeholder is the lowercase hex SHA-256 of "foobar". Patching
// replaces it with the application file name, zero padded to the same
// length, so the launcher can read its binding back at startup.
package apphost

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const markerSeed = "foobar"

// Marker returns the placeholder an unbound launcher carries.
func Marker() string {
	sum := sha256.Sum256([]byte(markerSeed))
	return hex.EncodeToString(sum[:])
}

// ParseBinding returns the application name held in raw, cut at the first
// NUL byte. A launcher still carrying the placeholder is unbound.
func ParseBinding(raw string) (string, error) {
	if i := strings.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	if raw == "" || raw == Marker() {
		return "", &UnboundError{}
	}
	return raw, nil
}

// SearchAndReplace overwrites the first occurrence of search in the file
// at path with replace. With padZeros the remainder of the placeholder is
// filled with NUL bytes. The caller must hold exclusive access to the file.
func SearchAndReplace(path string, search, replace []byte, padZeros bool) error {
	if len(replace) > len(search) {
		return &NameTooLongError{Name: string(replace), Max: len(search)}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	offset := bytes.Index(data, search)
	if offset < 0 {
		return &MarkerNotFoundError{Path: path}
	}

	patch := replace
	if padZeros {
		patch = make([]byte, len(search))
		copy(patch, replace)
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s for writing: %w", path, err)
	}
	if _, err := f.WriteAt(patch, int64(offset)); err != nil {
		f.Close()
		return fmt.Errorf("failed to patch %s: %w", path, err)
	}
	return f.Close()
}

// Create writes a launcher for appName at dest. The template is copied to
// a temporary file beside dest, patched, marked executable and renamed over
// dest, so dest is never a file open for writing.
func Create(template, dest, appName string) (err error) {
	marker := []byte(Marker())
	if len(appName) > len(marker) {
		return &NameTooLongError{Name: appName, Max: len(marker)}
	}

	tmp, err := copyToTemp(template, filepath.Dir(dest), filepath.Base(dest))
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	if err = SearchAndReplace(tmp, marker, []byte(appName), true); err != nil {
		return err
	}
	if err = os.Chmod(tmp, 0o755); err != nil {
		return fmt.Errorf("failed to mark %s executable: %w", tmp, err)
	}
	if err = os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("failed to move launcher to %s: %w", dest, err)
	}
	return nil
}

func copyToTemp(src, dir, base string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open launcher template: %w", err)
	}
	defer in.Close()

	out, err := os.CreateTemp(dir, "."+base+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create launcher in %s: %w", dir, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to copy launcher template %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to write launcher %s: %w", out.Name(), err)
	}
	return out.Name(), nil
}
