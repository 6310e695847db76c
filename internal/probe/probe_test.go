package probe

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/specialistvlad/hostresolve/internal/framework"
	"github.com/specialistvlad/hostresolve/internal/manifest"
	"github.com/specialistvlad/hostresolve/internal/pathtemplate"
)

var packageDeps = &manifest.Deps{
	Path: "/app/App.deps.json",
	Libraries: []manifest.Library{{
		Name: "Lib", Version: "1.0.0", Type: manifest.LibraryPackage, Path: "lib/1.0.0",
		Runtime: []manifest.Asset{{Name: "Lib", RelativePath: "lib/Lib.dll"}},
	}},
}

type dirKind struct {
	Dir  string
	Kind Kind
}

func summarize(entries []Entry) []dirKind {
	out := make([]dirKind, 0, len(entries))
	for _, e := range entries {
		out = append(out, dirKind{Dir: e.Dir, Kind: e.Kind})
	}
	return out
}

func TestBuild_Ordering(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := t.TempDir()
	fw := &framework.Resolved{Name: "Microsoft.NETCore.App", Version: "2.0.0", Dir: filepath.Join(root, "shared", "fx", "2.0.0")}
	in := Input{
		AppDir:        filepath.Join(root, "app"),
		Deps:          packageDeps,
		ConfigPaths:   []string{filepath.Join(root, "config", pathtemplate.TFMToken)},
		CLIPaths:      []string{filepath.Join(root, "cli")},
		SettingsPaths: []string{filepath.Join(root, "settings")},
		StoreRoots:    []string{filepath.Join(root, "store")},
		PackageCache:  filepath.Join(root, "nuget"),
		Frameworks:    []*framework.Resolved{fw},
		Vars:          pathtemplate.Vars{Arch: "x64", TFM: "netcoreapp2.0"},
	}

	// --- Act ---
	cliFirst := Build(context.Background(), in)
	in.Order = ConfigFirst
	configFirst := Build(context.Background(), in)

	// --- Assert ---
	wantCLIFirst := []dirKind{
		{Dir: filepath.Join(root, "app"), Kind: KindAppLocal},
		{Dir: filepath.Join(root, "cli"), Kind: KindAdditional},
		{Dir: filepath.Join(root, "settings"), Kind: KindAdditional},
		{Dir: filepath.Join(root, "store", "x64", "netcoreapp2.0"), Kind: KindAdditional},
		{Dir: filepath.Join(root, "config", "netcoreapp2.0"), Kind: KindAdditional},
		{Dir: filepath.Join(root, "nuget"), Kind: KindPackageCache},
		{Dir: fw.Dir, Kind: KindFramework},
	}
	if diff := cmp.Diff(wantCLIFirst, summarize(cliFirst)); diff != "" {
		t.Errorf("CLIFirst mismatch (-want +got):\n%s", diff)
	}

	wantConfigFirst := []dirKind{
		wantCLIFirst[0], wantCLIFirst[4], wantCLIFirst[1], wantCLIFirst[2], wantCLIFirst[3], wantCLIFirst[5], wantCLIFirst[6],
	}
	if diff := cmp.Diff(wantConfigFirst, summarize(configFirst)); diff != "" {
		t.Errorf("ConfigFirst mismatch (-want +got):\n%s", diff)
	}
	assert.Same(t, fw, cliFirst[len(cliFirst)-1].Framework)
}

func TestBuild_RemoteDepsSkipsPackageCache(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	entries := Build(context.Background(), Input{
		AppDir:       root,
		Deps:         packageDeps,
		DepsRemote:   true,
		PackageCache: filepath.Join(root, "nuget"),
	})

	assert.Equal(t, []dirKind{{Dir: root, Kind: KindAppLocal}}, summarize(entries))
}

func TestBuild_PackageCacheNeedsPackageAssets(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	entries := Build(context.Background(), Input{
		AppDir:       root,
		Deps:         &manifest.Deps{},
		PackageCache: filepath.Join(root, "nuget"),
	})

	assert.Len(t, entries, 1)
}

func TestBuild_DeduplicatesKeepingFirstPosition(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	shared := filepath.Join(root, "packages")
	entries := Build(context.Background(), Input{
		AppDir:       root,
		Deps:         packageDeps,
		ConfigPaths:  []string{shared},
		CLIPaths:     []string{filepath.Join(root, "other"), shared},
		PackageCache: shared,
	})

	assert.Equal(t, []dirKind{
		{Dir: root, Kind: KindAppLocal},
		{Dir: filepath.Join(root, "other"), Kind: KindAdditional},
		{Dir: shared, Kind: KindAdditional},
	}, summarize(entries))
}

func TestEntry_Serves(t *testing.T) {
	t.Parallel()

	app := Entry{Kind: KindAppLocal}
	assert.True(t, app.ServesProject())
	assert.True(t, app.ServesPackages(false))
	assert.False(t, app.ServesPackages(true))

	additional := Entry{Kind: KindAdditional}
	assert.False(t, additional.ServesProject())
	assert.True(t, additional.ServesPackages(true))

	fx := Entry{Kind: KindFramework}
	assert.False(t, fx.ServesPackages(false))
}
