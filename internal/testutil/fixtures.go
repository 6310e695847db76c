package testutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/singleflight"
)

// Layout selects how a portable application fixture is laid out on disk.
type Layout string

const (
	// LayoutBuild keeps package assets in a separate package root that the
	// development runtime configuration points at.
	LayoutBuild Layout = "build"
	// LayoutPublish copies package assets flat into the application
	// directory.
	LayoutPublish Layout = "publish"
)

// Names used by the portable application fixture.
const (
	AppName        = "PortableApp"
	FrameworkName  = "Microsoft.NETCore.App"
	FrameworkVer   = "2.0.0"
	PackageName    = "Newtonsoft.Json"
	PackageVersion = "9.0.1"
	PackageAsset   = "lib/netstandard1.0/Newtonsoft.Json.dll"
	RuntimeHost    = "corerun"
	HelloOutput    = "Hello World"
)

// Fixture is one independent copy of a portable application together with
// a private runtime install root.
type Fixture struct {
	Layout Layout
	Root   string
	// AppDir holds the entry assembly and its manifests.
	AppDir string
	// Packages is the package root of the build layout.
	Packages string
	// DotnetRoot holds shared/<framework>/<version>.
	DotnetRoot string
}

// AppDll is the entry assembly path.
func (f *Fixture) AppDll() string { return filepath.Join(f.AppDir, AppName+".dll") }

// DepsPath is the default dependency manifest path.
func (f *Fixture) DepsPath() string { return filepath.Join(f.AppDir, AppName+".deps.json") }

// RuntimeConfigPath is the default runtime configuration path.
func (f *Fixture) RuntimeConfigPath() string {
	return filepath.Join(f.AppDir, AppName+".runtimeconfig.json")
}

// FrameworkDir is the shared framework directory of the private install.
func (f *Fixture) FrameworkDir() string {
	return filepath.Join(f.DotnetRoot, "shared", FrameworkName, FrameworkVer)
}

// MoveToSubdir moves path into a new subdirectory of its own directory and
// returns the new location.
func (f *Fixture) MoveToSubdir(t testing.TB, path, sub string) string {
	t.Helper()
	dir := filepath.Join(filepath.Dir(path), sub)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	dest := filepath.Join(dir, filepath.Base(path))
	require.NoError(t, os.Rename(path, dest))
	return dest
}

// Fixtures builds each layout once and hands out private copies. It is
// safe for concurrent use by parallel tests.
type Fixtures struct {
	base  string
	group singleflight.Group
	built sync.Map
}

// NewFixtures caches built layouts under base, which the caller owns.
func NewFixtures(base string) *Fixtures {
	return &Fixtures{base: base}
}

// Copy returns a fresh copy of layout inside t.TempDir(). Callers may
// modify the copy freely.
func (f *Fixtures) Copy(t testing.TB, layout Layout) *Fixture {
	t.Helper()
	src, err := f.source(layout)
	require.NoError(t, err)

	dst := t.TempDir()
	require.NoError(t, copyTree(src, dst))
	return describe(layout, dst)
}

func (f *Fixtures) source(layout Layout) (string, error) {
	if dir, ok := f.built.Load(layout); ok {
		return dir.(string), nil
	}
	v, err, _ := f.group.Do(string(layout), func() (any, error) {
		if dir, ok := f.built.Load(layout); ok {
			return dir, nil
		}
		dir := filepath.Join(f.base, string(layout))
		if err := build(layout, dir); err != nil {
			return nil, fmt.Errorf("failed to build %s fixture: %w", layout, err)
		}
		f.built.Store(layout, dir)
		return dir, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func describe(layout Layout, root string) *Fixture {
	fx := &Fixture{
		Layout:     layout,
		Root:       root,
		AppDir:     filepath.Join(root, "app"),
		DotnetRoot: filepath.Join(root, "dotnet"),
	}
	if layout == LayoutBuild {
		fx.Packages = filepath.Join(root, "packages")
	}
	return fx
}

func build(layout Layout, root string) error {
	fx := describe(layout, root)
	files := map[string]string{
		fx.AppDll():            "MZ " + AppName,
		fx.DepsPath():          depsJSON,
		fx.RuntimeConfigPath(): runtimeConfigJSON,

		filepath.Join(fx.FrameworkDir(), "System.Runtime.dll"):        "MZ System.Runtime",
		filepath.Join(fx.FrameworkDir(), "System.Console.dll"):        "MZ System.Console",
		filepath.Join(fx.FrameworkDir(), FrameworkName+".deps.json"): frameworkDepsJSON,
	}
	switch layout {
	case LayoutBuild:
		files[filepath.Join(fx.AppDir, AppName+".runtimeconfig.dev.json")] = devConfigJSON
		files[filepath.Join(fx.Packages, "newtonsoft.json", PackageVersion, filepath.FromSlash(PackageAsset))] = "MZ " + PackageName
	case LayoutPublish:
		files[filepath.Join(fx.AppDir, PackageName+".dll")] = "MZ " + PackageName
	default:
		return fmt.Errorf("unknown layout %q", layout)
	}

	for path, content := range files {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
	}
	if runtime.GOOS != "windows" {
		host := filepath.Join(fx.FrameworkDir(), RuntimeHost)
		if err := os.WriteFile(host, []byte(hostScript), 0o755); err != nil {
			return err
		}
	}
	return nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		if d.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode().Perm())
	})
}

const depsJSON = `{
  "runtimeTarget": { "name": ".NETCoreApp,Version=v2.0" },
  "targets": {
    ".NETCoreApp,Version=v2.0": {
      "PortableApp/1.0.0": {
        "dependencies": { "Newtonsoft.Json": "9.0.1" },
        "runtime": { "PortableApp.dll": {} }
      },
      "Newtonsoft.Json/9.0.1": {
        "runtime": {
          "lib/netstandard1.0/Newtonsoft.Json.dll": { "assemblyVersion": "9.0.0.0", "fileVersion": "9.0.1.19813" }
        }
      }
    }
  },
  "libraries": {
    "PortableApp/1.0.0": { "type": "project", "serviceable": false, "sha512": "" },
    "Newtonsoft.Json/9.0.1": { "type": "package", "serviceable": true, "path": "newtonsoft.json/9.0.1" }
  }
}
`

const runtimeConfigJSON = `{
  "runtimeOptions": {
    "tfm": "netcoreapp2.0",
    "framework": { "name": "Microsoft.NETCore.App", "version": "2.0.0" }
  }
}
`

const devConfigJSON = `{
  "runtimeOptions": {
    "additionalProbingPaths": [ "../packages" ]
  }
}
`

const frameworkDepsJSON = `{
  "runtimeTarget": { "name": ".NETCoreApp,Version=v2.0" },
  "targets": {
    ".NETCoreApp,Version=v2.0": {
      "Microsoft.NETCore.App/2.0.0": {
        "runtime": {
          "runtimes/any/lib/System.Runtime.dll": {},
          "runtimes/any/lib/System.Console.dll": {}
        }
      }
    }
  },
  "libraries": {
    "Microsoft.NETCore.App/2.0.0": { "type": "package", "serviceable": true }
  }
}
`

const hostScript = `#!/bin/sh
echo "` + HelloOutput + `"
echo "app=$1"
echo "tpa=$TRUSTED_PLATFORM_ASSEMBLIES"
`
