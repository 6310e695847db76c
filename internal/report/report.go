// Package report renders a resolution as YAML or JSON for inspection.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/specialistvlad/hostresolve/internal/resolver"
	"github.com/specialistvlad/hostresolve/internal/tpa"
)

// Supported output formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Report is the serialisable view of a resolver.Result.
type Report struct {
	App           string            `yaml:"app" json:"app"`
	Mode          string            `yaml:"mode" json:"mode"`
	DepsFile      string            `yaml:"deps_file,omitempty" json:"deps_file,omitempty"`
	DepsRemote    bool              `yaml:"deps_remote" json:"deps_remote"`
	RuntimeConfig string            `yaml:"runtime_config,omitempty" json:"runtime_config,omitempty"`
	DevConfig     string            `yaml:"dev_config,omitempty" json:"dev_config,omitempty"`
	ConfigRemote  bool              `yaml:"config_remote" json:"config_remote"`
	RollForward   string            `yaml:"roll_forward" json:"roll_forward"`
	RuntimeDir    string            `yaml:"runtime_dir" json:"runtime_dir"`
	Frameworks    []Framework       `yaml:"frameworks,omitempty" json:"frameworks,omitempty"`
	Probes        []Probe           `yaml:"probes" json:"probes"`
	Assemblies    []Assembly        `yaml:"assemblies" json:"assemblies"`
	Native        []Assembly        `yaml:"native,omitempty" json:"native,omitempty"`
	NativeDirs    []string          `yaml:"native_dirs,omitempty" json:"native_dirs,omitempty"`
	Properties    map[string]string `yaml:"properties,omitempty" json:"properties,omitempty"`
}

// Framework is one resolved framework reference.
type Framework struct {
	Name      string `yaml:"name" json:"name"`
	Requested string `yaml:"requested" json:"requested"`
	Version   string `yaml:"version" json:"version"`
	Dir       string `yaml:"dir" json:"dir"`
}

// Probe is one probing directory.
type Probe struct {
	Dir    string `yaml:"dir" json:"dir"`
	Kind   string `yaml:"kind" json:"kind"`
	Origin string `yaml:"origin" json:"origin"`
}

// Assembly is one bound file.
type Assembly struct {
	Name   string `yaml:"name" json:"name"`
	Path   string `yaml:"path" json:"path"`
	Origin string `yaml:"origin" json:"origin"`
}

// FromResult builds the report for res.
func FromResult(res *resolver.Result) *Report {
	r := &Report{
		App:         res.App.Path,
		Mode:        res.Activation.Mode.String(),
		DepsFile:    res.Manifests.Deps.Path,
		DepsRemote:  res.Manifests.DepsRemote,
		RollForward: res.Policy.String(),
		RuntimeDir:  res.RuntimeDir,
		NativeDirs:  res.Assets.NativeDirs,
		Properties:  res.Activation.Properties,
	}
	if cfg := res.Manifests.RuntimeConfig; cfg != nil {
		r.RuntimeConfig = cfg.Path
		r.DevConfig = cfg.DevPath
		r.ConfigRemote = res.Manifests.ConfigRemote
	}
	for _, fw := range res.Frameworks {
		r.Frameworks = append(r.Frameworks, Framework{Name: fw.Name, Requested: fw.RequestedVersion, Version: fw.Version, Dir: fw.Dir})
	}
	for _, p := range res.Probes {
		r.Probes = append(r.Probes, Probe{Dir: p.Dir, Kind: p.Kind.String(), Origin: p.Origin})
	}
	r.Assemblies = assemblies(res.Assets.Assemblies)
	r.Native = assemblies(res.Assets.Native)
	return r
}

func assemblies(list *tpa.List) []Assembly {
	entries := list.Entries()
	out := make([]Assembly, 0, len(entries))
	for _, b := range entries {
		out = append(out, Assembly{Name: b.Name, Path: b.Path, Origin: b.Origin})
	}
	return out
}

// Write encodes r to w in format.
func Write(w io.Writer, r *Report, format string) error {
	switch strings.ToLower(format) {
	case "", FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode report as yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode report as json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q: must be 'yaml' or 'json'", format)
	}
}
