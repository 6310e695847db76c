// Package probe builds the ordered list of directories searched for the
// assemblies an application depends on. Earlier entries win when two
// directories supply the same assembly name.
package probe

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/specialistvlad/hostresolve/internal/ctxlog"
	"github.com/specialistvlad/hostresolve/internal/framework"
	"github.com/specialistvlad/hostresolve/internal/fsutil"
	"github.com/specialistvlad/hostresolve/internal/manifest"
	"github.com/specialistvlad/hostresolve/internal/pathtemplate"
)

// Kind classifies a probing entry by the assets it may supply.
type Kind int

const (
	// KindAppLocal is the application directory.
	KindAppLocal Kind = iota
	// KindAdditional is a package layout root from configuration or the caller.
	KindAdditional
	// KindPackageCache is the machine-wide package cache.
	KindPackageCache
	// KindFramework is a resolved shared framework directory.
	KindFramework
)

func (k Kind) String() string {
	switch k {
	case KindAppLocal:
		return "app-local"
	case KindAdditional:
		return "additional"
	case KindPackageCache:
		return "package-cache"
	case KindFramework:
		return "framework"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Order decides whether caller-supplied probing paths precede the ones
// declared by the runtime configuration.
type Order int

const (
	CLIFirst Order = iota
	ConfigFirst
)

// Entry is one directory of the probing list.
type Entry struct {
	Dir    string
	Kind   Kind
	Origin string
	// Framework is set for KindFramework entries.
	Framework *framework.Resolved
}

// ServesProject reports whether project assets are looked up in e.
func (e Entry) ServesProject() bool {
	return e.Kind == KindAppLocal
}

// ServesPackages reports whether package assets are looked up in e. An
// application directory only serves them when the dependency manifest
// lives next to the application.
func (e Entry) ServesPackages(depsRemote bool) bool {
	switch e.Kind {
	case KindAppLocal:
		return !depsRemote
	case KindAdditional, KindPackageCache:
		return true
	default:
		return false
	}
}

// Input gathers every source that contributes probing directories.
type Input struct {
	AppDir     string
	Deps       *manifest.Deps
	DepsRemote bool
	// ConfigPaths come from the runtime configuration; they are absolute
	// and may carry template tokens.
	ConfigPaths []string
	// CLIPaths, SettingsPaths and StoreRoots are the caller-supplied
	// sources, in that order. Store roots get "/|arch|/|tfm|" appended.
	CLIPaths      []string
	SettingsPaths []string
	StoreRoots    []string
	PackageCache  string
	Frameworks    []*framework.Resolved
	Order         Order
	Vars          pathtemplate.Vars
}

// Build returns the probing entries for in, highest priority first.
func Build(ctx context.Context, in Input) []Entry {
	trace := ctxlog.Trace(ctx)
	b := &builder{seen: make(map[string]struct{})}

	b.add(Entry{Dir: in.AppDir, Kind: KindAppLocal, Origin: "app"})

	config := func() {
		for _, p := range in.ConfigPaths {
			b.add(Entry{Dir: pathtemplate.Expand(p, in.Vars), Kind: KindAdditional, Origin: "runtimeconfig"})
		}
	}
	external := func() {
		for _, p := range in.CLIPaths {
			b.add(Entry{Dir: absolute(pathtemplate.Expand(p, in.Vars)), Kind: KindAdditional, Origin: "cli"})
		}
		for _, p := range in.SettingsPaths {
			b.add(Entry{Dir: absolute(pathtemplate.Expand(p, in.Vars)), Kind: KindAdditional, Origin: "settings"})
		}
		for _, root := range in.StoreRoots {
			templated := filepath.Join(root, pathtemplate.ArchToken, pathtemplate.TFMToken)
			b.add(Entry{Dir: absolute(pathtemplate.Expand(templated, in.Vars)), Kind: KindAdditional, Origin: "store"})
		}
	}
	if in.Order == ConfigFirst {
		config()
		external()
	} else {
		external()
		config()
	}

	if in.PackageCache != "" && !in.DepsRemote && in.Deps.HasPackageAssets() {
		b.add(Entry{Dir: absolute(in.PackageCache), Kind: KindPackageCache, Origin: "package-cache"})
	}

	for _, fw := range in.Frameworks {
		b.add(Entry{Dir: fw.Dir, Kind: KindFramework, Origin: "framework:" + fw.Name, Framework: fw})
	}

	for _, e := range b.entries {
		trace.Info(fmt.Sprintf("Probe entry: %s", e.Dir), "kind", e.Kind.String(), "origin", e.Origin)
	}
	return b.entries
}

type builder struct {
	entries []Entry
	seen    map[string]struct{}
}

// add keeps the first position of a directory; later duplicates are dropped.
func (b *builder) add(e Entry) {
	key := e.Kind.String() + "|" + fsutil.RealPath(e.Dir)
	if e.Kind == KindAdditional || e.Kind == KindPackageCache {
		// Additional roots and the package cache share one namespace.
		key = "packages|" + fsutil.RealPath(e.Dir)
	}
	if _, dup := b.seen[key]; dup {
		return
	}
	b.seen[key] = struct{}{}
	b.entries = append(b.entries, e)
}

func absolute(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
