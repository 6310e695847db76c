package tpa

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/hostresolve/internal/ctxlog"
	"github.com/specialistvlad/hostresolve/internal/framework"
	"github.com/specialistvlad/hostresolve/internal/hosttrace"
	"github.com/specialistvlad/hostresolve/internal/manifest"
	"github.com/specialistvlad/hostresolve/internal/probe"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("MZ"), 0o644))
	return path
}

func tracedContext(buf *bytes.Buffer) context.Context {
	return ctxlog.WithTrace(context.Background(), hosttrace.NewTracer(buf, true))
}

func appDeps(appDir string) *manifest.Deps {
	return &manifest.Deps{
		Path: filepath.Join(appDir, "App.deps.json"),
		Libraries: []manifest.Library{
			{
				Name: "App", Version: "1.0.0", Type: manifest.LibraryProject,
				Runtime: []manifest.Asset{{Name: "App", RelativePath: "App.dll"}},
			},
			{
				Name: "Newtonsoft.Json", Version: "9.0.1", Type: manifest.LibraryPackage, Path: "newtonsoft.json/9.0.1",
				Runtime: []manifest.Asset{{Name: "Newtonsoft.Json", RelativePath: "lib/netstandard1.0/Newtonsoft.Json.dll"}},
				Native:  []manifest.Asset{{Name: "libjson", RelativePath: "runtimes/linux/native/libjson.so", Kind: manifest.AssetNative}},
			},
		},
	}
}

func TestResolve_PublishedLayout(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	appDir := t.TempDir()
	entry := touch(t, filepath.Join(appDir, "App.dll"))
	pkg := touch(t, filepath.Join(appDir, "Newtonsoft.Json.dll"))
	native := touch(t, filepath.Join(appDir, "libjson.so"))
	touch(t, filepath.Join(appDir, "Undeclared.dll"))
	var trace bytes.Buffer

	// --- Act ---
	result, err := Resolve(tracedContext(&trace), Input{
		EntryPath: entry,
		Deps:      appDeps(appDir),
		Probes:    []probe.Entry{{Dir: appDir, Kind: probe.KindAppLocal}},
	})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{entry, pkg}, result.Assemblies.Paths())
	assert.Equal(t, []string{native}, result.Native.Paths())
	assert.Equal(t, []string{appDir}, result.NativeDirs)
	assert.Contains(t, trace.String(), "Adding tpa entry: "+entry+"\n")
	assert.Contains(t, trace.String(), "Adding tpa entry: "+pkg+"\n")
	assert.Contains(t, trace.String(), "Probing path: "+appDir+"\n")
}

func TestResolve_PackageRootLayout(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := t.TempDir()
	appDir := filepath.Join(root, "app")
	entry := touch(t, filepath.Join(appDir, "App.dll"))
	first := filepath.Join(root, "first")
	second := filepath.Join(root, "second")
	want := touch(t, filepath.Join(first, "newtonsoft.json", "9.0.1", "lib", "netstandard1.0", "Newtonsoft.Json.dll"))
	touch(t, filepath.Join(second, "newtonsoft.json", "9.0.1", "lib", "netstandard1.0", "Newtonsoft.Json.dll"))
	native := touch(t, filepath.Join(second, "newtonsoft.json", "9.0.1", "runtimes", "linux", "native", "libjson.so"))

	// --- Act ---
	result, err := Resolve(context.Background(), Input{
		EntryPath: entry,
		Deps:      appDeps(appDir),
		Probes: []probe.Entry{
			{Dir: appDir, Kind: probe.KindAppLocal},
			{Dir: first, Kind: probe.KindAdditional},
			{Dir: second, Kind: probe.KindAdditional},
		},
	})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{entry, want}, result.Assemblies.Paths())
	assert.Equal(t, []string{native}, result.Native.Paths())
	b, ok := result.Assemblies.Lookup("Newtonsoft.Json")
	require.True(t, ok)
	assert.Equal(t, "additional", b.Origin)
}

func TestResolve_ExtensionConflict(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	appDir := t.TempDir()
	entry := touch(t, filepath.Join(appDir, "App.exe"))
	touch(t, filepath.Join(appDir, "Newtonsoft.Json.dll"))
	touch(t, filepath.Join(appDir, "libjson.so"))

	// --- Act ---
	result, err := Resolve(context.Background(), Input{
		EntryPath: entry,
		Deps:      appDeps(appDir),
		Probes:    []probe.Entry{{Dir: appDir, Kind: probe.KindAppLocal}},
	})

	// --- Assert ---
	require.Nil(t, result)
	var conflict *ExtensionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "App", conflict.Name)
	assert.Equal(t, ".exe", conflict.BoundExt)
	assert.Equal(t, ".dll", conflict.CandidateExt)
	assert.Contains(t, err.Error(), "has already been found but with a different file extension")
	assert.Contains(t, err.Error(), `".exe"`)
	assert.Contains(t, err.Error(), `".dll"`)
}

func TestResolve_RemoteDepsRequiresPackageRoot(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	appDir := t.TempDir()
	entry := touch(t, filepath.Join(appDir, "App.dll"))
	touch(t, filepath.Join(appDir, "Newtonsoft.Json.dll"))
	touch(t, filepath.Join(appDir, "libjson.so"))
	deps := appDeps(appDir)
	deps.Path = filepath.Join(appDir, "d", "App.deps.json")

	// --- Act ---
	_, err := Resolve(context.Background(), Input{
		EntryPath:  entry,
		Deps:       deps,
		DepsRemote: true,
		Probes:     []probe.Entry{{Dir: appDir, Kind: probe.KindAppLocal}},
	})

	// --- Assert ---
	var unresolved *UnresolvedAssetError
	require.ErrorAs(t, err, &unresolved)
	assert.True(t, unresolved.DepsRemote)
	assert.Equal(t, []MissingAsset{
		{Library: "Newtonsoft.Json/9.0.1", RelativePath: "lib/netstandard1.0/Newtonsoft.Json.dll"},
		{Library: "Newtonsoft.Json/9.0.1", RelativePath: "runtimes/linux/native/libjson.so"},
	}, unresolved.Missing)
	assert.Contains(t, err.Error(), "package asset not found")
	assert.Contains(t, err.Error(), appDir)
}

func TestResolve_MissingProjectAssetIsSkipped(t *testing.T) {
	t.Parallel()

	appDir := t.TempDir()
	entry := touch(t, filepath.Join(appDir, "App.dll"))
	deps := &manifest.Deps{
		Path: filepath.Join(appDir, "App.deps.json"),
		Libraries: []manifest.Library{{
			Name: "Helper", Version: "1.0.0", Type: manifest.LibraryProject,
			Runtime: []manifest.Asset{{Name: "Helper", RelativePath: "Helper.dll"}},
		}},
	}
	var trace bytes.Buffer

	result, err := Resolve(tracedContext(&trace), Input{
		EntryPath: entry,
		Deps:      deps,
		Probes:    []probe.Entry{{Dir: appDir, Kind: probe.KindAppLocal}},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{entry}, result.Assemblies.Paths())
	assert.Contains(t, trace.String(), "Skipping missing runtime asset Helper.dll of Helper/1.0.0")
}

func TestResolve_WithoutDepsDiscoversDirectory(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	appDir := t.TempDir()
	entry := touch(t, filepath.Join(appDir, "App.exe"))
	touch(t, filepath.Join(appDir, "App.dll"))
	lib := touch(t, filepath.Join(appDir, "Lib.dll"))
	tool := touch(t, filepath.Join(appDir, "Tool.exe"))
	touch(t, filepath.Join(appDir, "readme.txt"))

	// --- Act ---
	result, err := Resolve(context.Background(), Input{
		EntryPath: entry,
		Deps:      &manifest.Deps{},
		Probes:    []probe.Entry{{Dir: appDir, Kind: probe.KindAppLocal}},
	})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{entry, lib, tool}, result.Assemblies.Paths())
}

func TestResolve_Frameworks(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := t.TempDir()
	appDir := filepath.Join(root, "app")
	entry := touch(t, filepath.Join(appDir, "App.dll"))
	appCopy := touch(t, filepath.Join(appDir, "System.Runtime.dll"))

	plainDir := filepath.Join(root, "shared", "Plain.App", "1.0.0")
	plainLib := touch(t, filepath.Join(plainDir, "System.Linq.dll"))
	touch(t, filepath.Join(plainDir, "System.Runtime.dll"))

	manifestDir := filepath.Join(root, "shared", "Listed.App", "2.0.0")
	listed := touch(t, filepath.Join(manifestDir, "System.Listed.dll"))
	touch(t, filepath.Join(manifestDir, "Unlisted.dll"))
	require.NoError(t, os.WriteFile(filepath.Join(manifestDir, "Listed.App.deps.json"), []byte(`{
	  "targets": { "t": { "Listed.App/2.0.0": { "runtime": { "runtimes/any/lib/System.Listed.dll": {} } } } },
	  "libraries": { "Listed.App/2.0.0": { "type": "package" } }
	}`), 0o644))

	// --- Act ---
	result, err := Resolve(context.Background(), Input{
		EntryPath: entry,
		Deps:      &manifest.Deps{},
		Probes: []probe.Entry{
			{Dir: appDir, Kind: probe.KindAppLocal},
			{Dir: plainDir, Kind: probe.KindFramework, Framework: &framework.Resolved{Name: "Plain.App", Dir: plainDir}},
			{Dir: manifestDir, Kind: probe.KindFramework, Framework: &framework.Resolved{Name: "Listed.App", Dir: manifestDir}},
		},
	})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{entry, appCopy, plainLib, listed}, result.Assemblies.Paths())
	assert.Equal(t, []string{plainDir, manifestDir}, result.NativeDirs)
}

func TestList_BindIsInsertOrReject(t *testing.T) {
	t.Parallel()

	list := NewList(false)

	added, err := list.Bind("App", "/a/App.dll", "app-local")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = list.Bind("App", "/b/App.dll", "additional")
	require.NoError(t, err)
	assert.False(t, added)

	_, err = list.Bind("App", "/b/App.exe", "additional")
	var conflict *ExtensionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "/a/App.dll", conflict.BoundPath)

	added, err = list.Bind("app", "/c/app.exe", "additional")
	require.NoError(t, err)
	assert.True(t, added, "case-sensitive lists keep distinct names")

	assert.Equal(t, []string{"/a/App.dll", "/c/app.exe"}, list.Paths())
	assert.Equal(t, 2, list.Len())
}

func TestList_CaseInsensitive(t *testing.T) {
	t.Parallel()

	list := NewList(true)
	_, err := list.Bind("Newtonsoft.Json", "/a/Newtonsoft.Json.dll", "app-local")
	require.NoError(t, err)

	added, err := list.Bind("NEWTONSOFT.JSON", "/b/NEWTONSOFT.JSON.DLL", "additional")
	require.NoError(t, err)
	assert.False(t, added)

	_, err = list.Bind("newtonsoft.json", "/b/newtonsoft.json.exe", "additional")
	require.Error(t, err)

	b, ok := list.Lookup("newtonsoft.JSON")
	require.True(t, ok)
	assert.Equal(t, "Newtonsoft.Json", b.Name)
}
