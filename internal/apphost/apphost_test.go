package apphost

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplate(t *testing.T, dir string) string {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("\x7fELF header")
	buf.WriteString(Marker())
	buf.WriteString("\x00trailer")
	path := filepath.Join(dir, "apphost")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestMarker(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "c3ab8ff13720e8ad9047dd39466b3c8974e592c2fa383d4a3960714caef0c4f2", Marker())
	assert.Len(t, Marker(), 64)
}

func TestSearchAndReplace_PadsWithZeros(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	path := writeTemplate(t, t.TempDir())

	// --- Act ---
	err := SearchAndReplace(path, []byte(Marker()), []byte("App.dll"), true)

	// --- Assert ---
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "\x7fELF header" + "App.dll" + strings.Repeat("\x00", 64-len("App.dll")) + "\x00trailer"
	assert.Equal(t, want, string(data))
}

func TestSearchAndReplace_WithoutPadding(t *testing.T) {
	t.Parallel()

	path := writeTemplate(t, t.TempDir())

	require.NoError(t, SearchAndReplace(path, []byte(Marker()), []byte("abc"), false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "abc"+Marker()[3:])
}

func TestSearchAndReplace_MarkerMissing(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	path := writeTemplate(t, t.TempDir())
	require.NoError(t, SearchAndReplace(path, []byte(Marker()), []byte("App.dll"), true))

	// --- Act ---
	err := SearchAndReplace(path, []byte(Marker()), []byte("Other.dll"), true)

	// --- Assert ---
	var notFound *MarkerNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, path, notFound.Path)
}

func TestSearchAndReplace_NameTooLongLeavesFileUntouched(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	path := writeTemplate(t, t.TempDir())
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	name := strings.Repeat("a", 61) + ".dll"

	// --- Act ---
	err = SearchAndReplace(path, []byte(Marker()), []byte(name), true)

	// --- Assert ---
	var tooLong *NameTooLongError
	require.ErrorAs(t, err, &tooLong)
	assert.Equal(t, 64, tooLong.Max)
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCreate(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	template := writeTemplate(t, dir)
	dest := filepath.Join(dir, "App")
	require.NoError(t, os.WriteFile(dest, []byte("stale"), 0o644))

	// --- Act ---
	err := Create(template, dest, "App.dll")

	// --- Assert ---
	require.NoError(t, err)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "App.dll\x00")
	assert.NotContains(t, string(data), Marker())

	tmpl, err := os.ReadFile(template)
	require.NoError(t, err)
	assert.Contains(t, string(tmpl), Marker(), "the template itself is never patched")

	if runtime.GOOS != "windows" {
		info, err := os.Stat(dest)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary file is left behind")
}

func TestCreate_FailureRemovesTemporary(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	template := filepath.Join(dir, "bound")
	require.NoError(t, os.WriteFile(template, []byte("no placeholder here"), 0o644))

	err := Create(template, filepath.Join(dir, "App"), "App.dll")

	var notFound *MarkerNotFoundError
	require.ErrorAs(t, err, &notFound)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestParseBinding(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		raw     string
		want    string
		unbound bool
	}{
		{name: "bound and padded", raw: "App.dll" + strings.Repeat("\x00", 57), want: "App.dll"},
		{name: "bound without padding", raw: "App.dll", want: "App.dll"},
		{name: "placeholder", raw: Marker(), unbound: true},
		{name: "empty", raw: "\x00\x00", unbound: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseBinding(tc.raw)
			if tc.unbound {
				var unbound *UnboundError
				require.ErrorAs(t, err, &unbound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
