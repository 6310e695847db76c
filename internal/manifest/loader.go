// Package manifest locates and parses the two files that govern an
// application run: the dependency manifest (<app>.deps.json) and the
// runtime configuration (<app>.runtimeconfig.json).
//
// The two are resolved independently. Either may come from an explicit
// override that lives outside the application directory, in which case it
// is reported as remote.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/hostresolve/internal/ctxlog"
	"github.com/specialistvlad/hostresolve/internal/fsutil"
)

const (
	DepsSuffix          = ".deps.json"
	RuntimeConfigSuffix = ".runtimeconfig.json"
	devConfigSuffix     = ".runtimeconfig.dev.json"
)

// Request identifies the application and any explicit manifest paths.
type Request struct {
	AppDir  string
	AppName string
	// DepsOverride and RuntimeConfigOverride are used as given when set.
	DepsOverride          string
	RuntimeConfigOverride string
}

// DefaultDepsPath returns <app-dir>/<app-name>.deps.json.
func (r Request) DefaultDepsPath() string {
	return filepath.Join(r.AppDir, r.AppName+DepsSuffix)
}

// DefaultRuntimeConfigPath returns <app-dir>/<app-name>.runtimeconfig.json.
func (r Request) DefaultRuntimeConfigPath() string {
	return filepath.Join(r.AppDir, r.AppName+RuntimeConfigSuffix)
}

// Set is the outcome of loading both manifests.
type Set struct {
	Deps          *Deps
	RuntimeConfig *RuntimeConfig
	// DepsRemote and ConfigRemote report whether the file that was read
	// lives outside the application directory.
	DepsRemote   bool
	ConfigRemote bool
}

// Load resolves and parses both manifests for req.
func Load(ctx context.Context, req Request) (*Set, error) {
	trace := ctxlog.Trace(ctx)
	set := &Set{Deps: &Deps{}, RuntimeConfig: &RuntimeConfig{}}

	depsPath, explicit := pick(req.DepsOverride, req.DefaultDepsPath())
	data, err := readManifest(kindDeps, depsPath, explicit)
	if err != nil {
		return nil, err
	}
	if data != nil {
		if set.Deps, err = ParseDeps(depsPath, data); err != nil {
			return nil, err
		}
		set.DepsRemote = !fsutil.SameDir(filepath.Dir(depsPath), req.AppDir)
		trace.Info(fmt.Sprintf("Using dependency manifest: %s", depsPath), "remote", set.DepsRemote)
	} else {
		trace.Info(fmt.Sprintf("Dependency manifest %s not found", depsPath))
	}

	configPath, explicit := pick(req.RuntimeConfigOverride, req.DefaultRuntimeConfigPath())
	data, err = readManifest(kindRuntimeConfig, configPath, explicit)
	if err != nil {
		return nil, err
	}
	if data == nil {
		trace.Info(fmt.Sprintf("Runtime configuration %s not found", configPath))
		return set, nil
	}
	if set.RuntimeConfig, err = ParseRuntimeConfig(configPath, data); err != nil {
		return nil, err
	}
	set.ConfigRemote = !fsutil.SameDir(filepath.Dir(configPath), req.AppDir)
	trace.Info(fmt.Sprintf("Using runtime configuration: %s", configPath), "remote", set.ConfigRemote)

	devPath := DevConfigPath(configPath)
	devData, err := readManifest(kindRuntimeConfig, devPath, false)
	if err != nil {
		return nil, err
	}
	if devData != nil {
		if err := set.RuntimeConfig.mergeDev(devPath, devData); err != nil {
			return nil, err
		}
		trace.Info(fmt.Sprintf("Using development runtime configuration: %s", devPath))
	}
	return set, nil
}

// DevConfigPath returns the development sibling of a runtime configuration
// path: App.runtimeconfig.json becomes App.runtimeconfig.dev.json.
func DevConfigPath(configPath string) string {
	dir, file := filepath.Split(configPath)
	if strings.HasSuffix(file, RuntimeConfigSuffix) {
		return filepath.Join(dir, strings.TrimSuffix(file, RuntimeConfigSuffix)+devConfigSuffix)
	}
	return filepath.Join(dir, strings.TrimSuffix(file, ".json")+".dev.json")
}

func pick(override, fallback string) (string, bool) {
	if override != "" {
		if abs, err := filepath.Abs(override); err == nil {
			return abs, true
		}
		return override, true
	}
	return fallback, false
}

// readManifest returns nil data for a missing optional file.
func readManifest(kind, path string, required bool) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		if required {
			return nil, &NotFoundError{Kind: kind, Path: path}
		}
		return nil, nil
	}
	return nil, fmt.Errorf("failed to read %s %s: %w", kind, path, err)
}

// LoadDeps reads an optional dependency manifest outside of an application
// request, such as the one shipped in a shared framework directory. A
// missing file yields an empty Deps.
func LoadDeps(ctx context.Context, path string) (*Deps, error) {
	data, err := readManifest(kindDeps, path, false)
	if err != nil || data == nil {
		return &Deps{}, err
	}
	ctxlog.Trace(ctx).Info(fmt.Sprintf("Using dependency manifest: %s", path))
	return ParseDeps(path, data)
}
