// Package tpa builds the Trusted Assembly List: the set of assembly files,
// keyed by simple name, that the loader may bind to.
//
// Probing entries are walked in priority order. The first file found for a
// name is authoritative. A later candidate for an already bound name with a
// different file extension is a hard error instead of a silent shadow.
package tpa

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/hostresolve/internal/ctxlog"
	"github.com/specialistvlad/hostresolve/internal/fsutil"
	"github.com/specialistvlad/hostresolve/internal/manifest"
	"github.com/specialistvlad/hostresolve/internal/probe"
)

// ManagedExtensions are the file extensions discovered as assemblies when a
// directory has no dependency manifest. Order is preference on equal names.
var ManagedExtensions = []string{".dll", ".exe"}

// Input is everything the resolver needs for one run.
type Input struct {
	EntryPath       string
	Deps            *manifest.Deps
	DepsRemote      bool
	Probes          []probe.Entry
	CaseInsensitive bool
}

// Result is the resolved assembly and native library sets.
type Result struct {
	Assemblies *List
	Native     *List
	// NativeDirs are the distinct directories of the native bindings,
	// followed by every framework directory.
	NativeDirs []string
}

// Resolve builds the trusted assembly list for in. On error no partial
// result is returned.
func Resolve(ctx context.Context, in Input) (*Result, error) {
	r := &resolver{
		ctx:     ctx,
		in:      in,
		trace:   ctxlog.Trace(ctx),
		tal:     NewList(in.CaseInsensitive),
		native:  NewList(in.CaseInsensitive),
		dirSeen: make(map[string]struct{}),
	}
	if err := r.run(); err != nil {
		return nil, err
	}
	return &Result{Assemblies: r.tal, Native: r.native, NativeDirs: r.nativeDirs}, nil
}

type resolver struct {
	ctx        context.Context
	in         Input
	trace      *slog.Logger
	tal        *List
	native     *List
	nativeDirs []string
	dirSeen    map[string]struct{}
	probed     []string
}

func (r *resolver) run() error {
	entryName := simpleName(r.in.EntryPath)
	if err := r.bind(r.tal, entryName, r.in.EntryPath, probe.KindAppLocal.String()); err != nil {
		return err
	}

	for _, entry := range r.in.Probes {
		r.trace.Info(fmt.Sprintf("Probing path: %s", entry.Dir))
		r.probed = append(r.probed, entry.Dir)

		var err error
		switch {
		case entry.Kind == probe.KindFramework:
			err = r.addFramework(entry)
		case !r.in.Deps.Found():
			if entry.Kind == probe.KindAppLocal {
				err = r.addDirectory(entry)
			}
		default:
			err = r.addDeclared(entry)
		}
		if err != nil {
			return err
		}
	}

	return r.checkUnresolved()
}

// addDeclared binds the manifest assets that entry can supply.
func (r *resolver) addDeclared(entry probe.Entry) error {
	for _, lib := range r.in.Deps.Libraries {
		if !serves(entry, lib, r.in.DepsRemote) {
			continue
		}
		for _, asset := range lib.Runtime {
			candidate := candidatePath(entry, lib, asset)
			if existing, ok := r.tal.Lookup(asset.Name); ok {
				if !strings.EqualFold(existing.Extension, asset.Extension()) {
					return &ExtensionConflictError{
						Name:          asset.Name,
						BoundPath:     existing.Path,
						BoundExt:      existing.Extension,
						CandidatePath: candidate,
						CandidateExt:  asset.Extension(),
					}
				}
				continue
			}
			if !fsutil.FileExists(candidate) {
				continue
			}
			if err := r.bind(r.tal, asset.Name, candidate, entry.Kind.String()); err != nil {
				return err
			}
		}
		for _, asset := range lib.Native {
			if _, ok := r.native.Lookup(asset.FileName()); ok {
				continue
			}
			candidate := candidatePath(entry, lib, asset)
			if !fsutil.FileExists(candidate) {
				continue
			}
			if _, err := r.native.Bind(asset.FileName(), candidate, entry.Kind.String()); err != nil {
				return err
			}
			r.trace.Info(fmt.Sprintf("Adding native entry: %s", candidate))
			r.addNativeDir(filepath.Dir(candidate))
		}
	}
	return nil
}

// addDirectory binds every managed binary of an application directory that
// has no dependency manifest. Names already bound are skipped.
func (r *resolver) addDirectory(entry probe.Entry) error {
	for _, ext := range ManagedExtensions {
		files, err := fsutil.FindFilesByExtension(entry.Dir, ext)
		if err != nil {
			return fmt.Errorf("failed to list assemblies in %s: %w", entry.Dir, err)
		}
		for _, file := range files {
			if _, ok := r.tal.Lookup(simpleName(file)); ok {
				continue
			}
			if err := r.bind(r.tal, simpleName(file), file, entry.Kind.String()); err != nil {
				return err
			}
		}
	}
	return nil
}

// addFramework binds the assemblies of a shared framework directory, taken
// from its own dependency manifest when it ships one. Names the application
// already bound keep their binding.
func (r *resolver) addFramework(entry probe.Entry) error {
	defer r.addNativeDir(entry.Dir)

	if entry.Framework != nil {
		deps, err := manifest.LoadDeps(r.ctx, filepath.Join(entry.Dir, entry.Framework.Name+manifest.DepsSuffix))
		if err != nil {
			return err
		}
		if deps.Found() {
			for _, lib := range deps.Libraries {
				for _, asset := range lib.Runtime {
					candidate := filepath.Join(entry.Dir, asset.FileName())
					if _, ok := r.tal.Lookup(asset.Name); ok || !fsutil.FileExists(candidate) {
						continue
					}
					if err := r.bind(r.tal, asset.Name, candidate, entry.Kind.String()); err != nil {
						return err
					}
				}
			}
			return nil
		}
	}

	files, err := fsutil.FindFilesByExtension(entry.Dir, ".dll")
	if err != nil {
		return fmt.Errorf("failed to list framework assemblies in %s: %w", entry.Dir, err)
	}
	for _, file := range files {
		if _, ok := r.tal.Lookup(simpleName(file)); ok {
			continue
		}
		if err := r.bind(r.tal, simpleName(file), file, entry.Kind.String()); err != nil {
			return err
		}
	}
	return nil
}

// checkUnresolved fails when a package asset was bound by no entry.
// Missing project assets are only traced.
func (r *resolver) checkUnresolved() error {
	if !r.in.Deps.Found() {
		return nil
	}
	var missing []MissingAsset
	for _, lib := range r.in.Deps.Libraries {
		for _, asset := range lib.Runtime {
			if _, ok := r.tal.Lookup(asset.Name); ok {
				continue
			}
			missing = r.noteMissing(missing, lib, asset)
		}
		for _, asset := range lib.Native {
			if _, ok := r.native.Lookup(asset.FileName()); ok {
				continue
			}
			missing = r.noteMissing(missing, lib, asset)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &UnresolvedAssetError{
		Missing:    missing,
		Probed:     r.probed,
		DepsPath:   r.in.Deps.Path,
		DepsRemote: r.in.DepsRemote,
	}
}

func (r *resolver) noteMissing(missing []MissingAsset, lib manifest.Library, asset manifest.Asset) []MissingAsset {
	id := lib.Name + "/" + lib.Version
	if lib.Type != manifest.LibraryPackage {
		r.trace.Info(fmt.Sprintf("Skipping missing %s asset %s of %s", asset.Kind, asset.RelativePath, id))
		return missing
	}
	return append(missing, MissingAsset{Library: id, RelativePath: asset.RelativePath})
}

func (r *resolver) bind(list *List, name, path, origin string) error {
	added, err := list.Bind(name, path, origin)
	if err != nil {
		return err
	}
	if added {
		r.trace.Info(fmt.Sprintf("Adding tpa entry: %s", path))
	}
	return nil
}

func (r *resolver) addNativeDir(dir string) {
	key := fsutil.RealPath(dir)
	if _, ok := r.dirSeen[key]; ok {
		return
	}
	r.dirSeen[key] = struct{}{}
	r.nativeDirs = append(r.nativeDirs, dir)
}

func serves(entry probe.Entry, lib manifest.Library, depsRemote bool) bool {
	if lib.Type == manifest.LibraryPackage {
		return entry.ServesPackages(depsRemote)
	}
	return entry.ServesProject()
}

// candidatePath is where entry would hold asset. The application directory
// holds package assets flattened by file name; package roots keep the
// <package-path>/<relative-path> layout.
func candidatePath(entry probe.Entry, lib manifest.Library, asset manifest.Asset) string {
	rel := filepath.FromSlash(asset.RelativePath)
	if entry.Kind == probe.KindAppLocal {
		if lib.Type == manifest.LibraryPackage {
			return filepath.Join(entry.Dir, asset.FileName())
		}
		return filepath.Join(entry.Dir, rel)
	}
	return filepath.Join(entry.Dir, filepath.FromSlash(lib.Path), rel)
}

func simpleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
