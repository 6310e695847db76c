package resolver

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/specialistvlad/hostresolve/internal/fsutil"
	"github.com/specialistvlad/hostresolve/internal/manifest"
)

// App describes the managed entry assembly of a run.
type App struct {
	// Path is the absolute entry path as given, separators normalised.
	Path    string
	Name    string
	Dir     string
	RealDir string
}

// platformAltSeparator is the alternate directory separator accepted in
// entry paths; zero when the platform has none.
func platformAltSeparator() byte {
	if runtime.GOOS == "windows" {
		return '/'
	}
	return 0
}

// NewApp builds the descriptor for entry. The entry file must exist.
func NewApp(entry string, altSep byte) (App, error) {
	entry = fsutil.NormalizeSeparators(entry, os.PathSeparator, altSep)
	abs, err := filepath.Abs(entry)
	if err != nil {
		return App{}, err
	}
	if !fsutil.FileExists(abs) {
		return App{}, &manifest.NotFoundError{Kind: "application", Path: abs}
	}
	base := filepath.Base(abs)
	dir := filepath.Dir(abs)
	return App{
		Path:    abs,
		Name:    strings.TrimSuffix(base, filepath.Ext(base)),
		Dir:     dir,
		RealDir: fsutil.RealPath(dir),
	}, nil
}
