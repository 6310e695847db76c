package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
)

// LibraryType is the kind of a library entry in a dependency manifest.
type LibraryType string

const (
	LibraryProject   LibraryType = "project"
	LibraryPackage   LibraryType = "package"
	LibraryReference LibraryType = "reference"
)

// AssetKind distinguishes managed assemblies from native libraries.
type AssetKind int

const (
	AssetRuntime AssetKind = iota
	AssetNative
)

func (k AssetKind) String() string {
	if k == AssetNative {
		return "native"
	}
	return "runtime"
}

// Asset is one file declared by a library.
type Asset struct {
	// Name is the simple name: the file name without its extension.
	Name string
	// RelativePath uses forward slashes, exactly as written in the manifest.
	RelativePath    string
	AssemblyVersion string
	FileVersion     string
	Kind            AssetKind
}

// FileName returns the last element of the asset's relative path.
func (a Asset) FileName() string {
	return path.Base(a.RelativePath)
}

// Extension returns the asset's file extension including the dot.
func (a Asset) Extension() string {
	return path.Ext(a.RelativePath)
}

// Library is a project, package or reference entry of the runtime target.
type Library struct {
	Name        string
	Version     string
	Type        LibraryType
	Path        string
	Serviceable bool
	Runtime     []Asset
	Native      []Asset
}

// Assets returns the runtime assets followed by the native ones.
func (l Library) Assets() []Asset {
	return append(append([]Asset{}, l.Runtime...), l.Native...)
}

// Deps is a parsed dependency manifest. The zero value stands for "no
// manifest" and is valid input for every later stage.
type Deps struct {
	Path          string
	RuntimeTarget string
	Libraries     []Library
}

// Found reports whether the manifest was read from disk.
func (d *Deps) Found() bool {
	return d != nil && d.Path != ""
}

// HasPackageAssets reports whether any package library declares a file.
func (d *Deps) HasPackageAssets() bool {
	if d == nil {
		return false
	}
	for _, lib := range d.Libraries {
		if lib.Type == LibraryPackage && len(lib.Runtime)+len(lib.Native) > 0 {
			return true
		}
	}
	return false
}

// TFM derives the target framework moniker from the runtime target name,
// e.g. ".NETCoreApp,Version=v2.0" becomes "netcoreapp2.0". It returns the
// empty string for names it does not understand.
func (d *Deps) TFM() string {
	if d == nil {
		return ""
	}
	framework, version, ok := strings.Cut(d.RuntimeTarget, ",Version=v")
	if !ok || framework == "" || version == "" {
		return ""
	}
	if slash := strings.IndexByte(version, '/'); slash >= 0 {
		version = version[:slash]
	}
	framework = strings.ToLower(strings.TrimPrefix(framework, "."))
	return framework + version
}

type depsDocument struct {
	RuntimeTarget *struct {
		Name string `json:"name"`
	} `json:"runtimeTarget"`
	Targets   json.RawMessage        `json:"targets"`
	Libraries map[string]libraryInfo `json:"libraries"`
}

type libraryInfo struct {
	Type        string `json:"type"`
	Serviceable bool   `json:"serviceable"`
	Path        string `json:"path"`
}

type targetLibrary struct {
	Runtime json.RawMessage `json:"runtime"`
	Native  json.RawMessage `json:"native"`
}

type assetInfo struct {
	AssemblyVersion string `json:"assemblyVersion"`
	FileVersion     string `json:"fileVersion"`
}

// ParseDeps decodes a dependency manifest. source is recorded as the
// manifest path and used in error messages.
func ParseDeps(source string, data []byte) (*Deps, error) {
	fail := func(err error) (*Deps, error) {
		return nil, &ParseError{Kind: kindDeps, Path: source, Err: err}
	}

	var doc depsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fail(err)
	}
	if len(doc.Targets) == 0 {
		return fail(errors.New(`missing required key "targets"`))
	}

	targets, err := orderedMembers(doc.Targets)
	if err != nil {
		return fail(fmt.Errorf("targets: %w", err))
	}

	targetName := ""
	if doc.RuntimeTarget != nil {
		targetName = doc.RuntimeTarget.Name
	}
	selected, err := selectTarget(targets, targetName)
	if err != nil {
		return fail(err)
	}

	deps := &Deps{Path: source, RuntimeTarget: selected.Key}
	libs, err := orderedMembers(selected.Value)
	if err != nil {
		return fail(fmt.Errorf("target %q: %w", selected.Key, err))
	}
	for _, m := range libs {
		lib, err := parseLibrary(m, doc.Libraries)
		if err != nil {
			return fail(fmt.Errorf("target %q: %w", selected.Key, err))
		}
		deps.Libraries = append(deps.Libraries, lib)
	}
	return deps, nil
}

func selectTarget(targets []member, name string) (member, error) {
	if name != "" {
		for _, t := range targets {
			if t.Key == name {
				return t, nil
			}
		}
		return member{}, fmt.Errorf("runtime target %q is not listed in targets", name)
	}
	switch len(targets) {
	case 0:
		return member{Key: ""}, nil
	case 1:
		return targets[0], nil
	default:
		keys := make([]string, 0, len(targets))
		for _, t := range targets {
			keys = append(keys, t.Key)
		}
		sort.Strings(keys)
		return member{}, fmt.Errorf("several targets (%s) but no runtimeTarget", strings.Join(keys, ", "))
	}
}

func parseLibrary(m member, infos map[string]libraryInfo) (Library, error) {
	name, version, ok := strings.Cut(m.Key, "/")
	if !ok || name == "" || version == "" {
		return Library{}, fmt.Errorf("library key %q is not of the form name/version", m.Key)
	}

	var body targetLibrary
	if err := json.Unmarshal(m.Value, &body); err != nil {
		return Library{}, fmt.Errorf("library %q: %w", m.Key, err)
	}

	info := infos[m.Key]
	lib := Library{
		Name:        name,
		Version:     version,
		Type:        LibraryType(strings.ToLower(info.Type)),
		Path:        info.Path,
		Serviceable: info.Serviceable,
	}
	if lib.Type == "" {
		lib.Type = LibraryProject
	}
	if lib.Type == LibraryPackage && lib.Path == "" {
		lib.Path = strings.ToLower(name) + "/" + strings.ToLower(version)
	}

	var err error
	if lib.Runtime, err = parseAssets(body.Runtime, AssetRuntime); err != nil {
		return Library{}, fmt.Errorf("library %q runtime: %w", m.Key, err)
	}
	if lib.Native, err = parseAssets(body.Native, AssetNative); err != nil {
		return Library{}, fmt.Errorf("library %q native: %w", m.Key, err)
	}
	return lib, nil
}

func parseAssets(raw json.RawMessage, kind AssetKind) ([]Asset, error) {
	members, err := orderedMembers(raw)
	if err != nil {
		return nil, err
	}
	assets := make([]Asset, 0, len(members))
	for _, m := range members {
		var info assetInfo
		if err := json.Unmarshal(m.Value, &info); err != nil {
			return nil, fmt.Errorf("asset %q: %w", m.Key, err)
		}
		rel := strings.ReplaceAll(m.Key, `\`, "/")
		base := path.Base(rel)
		assets = append(assets, Asset{
			Name:            strings.TrimSuffix(base, path.Ext(base)),
			RelativePath:    rel,
			AssemblyVersion: info.AssemblyVersion,
			FileVersion:     info.FileVersion,
			Kind:            kind,
		})
	}
	return assets, nil
}
