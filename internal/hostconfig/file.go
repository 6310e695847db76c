package hostconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/hostresolve/internal/pathtemplate"
)

// fileRoot is the top level of a settings file. Every block is optional
// and every attribute inside one overrides the default only when present.
// Unknown blocks and attributes are decode errors.
type fileRoot struct {
	Runtime *runtimeBlock `hcl:"runtime,block"`
	Probing *probingBlock `hcl:"probing,block"`
	Trace   *traceBlock   `hcl:"trace,block"`
}

type runtimeBlock struct {
	Root             *string  `hcl:"root,optional"`
	Host             *string  `hcl:"host,optional"`
	MultilevelLookup *bool    `hcl:"multilevel_lookup,optional"`
	GlobalRoots      []string `hcl:"global_roots,optional"`
	RollForward      *string  `hcl:"roll_forward,optional"`
	Prerelease       *string  `hcl:"prerelease,optional"`
}

type probingBlock struct {
	PackageCache     *string  `hcl:"package_cache,optional"`
	Paths            []string `hcl:"paths,optional"`
	ConfigPathsFirst *bool    `hcl:"config_paths_first,optional"`
	CaseInsensitive  *bool    `hcl:"case_insensitive,optional"`
}

type traceBlock struct {
	Enabled *bool   `hcl:"enabled,optional"`
	File    *string `hcl:"file,optional"`
}

// evalContext exposes home, arch and os to settings expressions, e.g.
// root = "${home}/runtimes/${arch}".
func evalContext(src Source) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"home": cty.StringVal(src.Home),
			"arch": cty.StringVal(pathtemplate.Arch(src.GOARCH)),
			"os":   cty.StringVal(src.GOOS),
		},
	}
}

// applyFile decodes the settings file at path onto s. A missing file is an
// error only when it was asked for explicitly.
func applyFile(s *Settings, path string, explicit bool, evalCtx *hcl.EvalContext) (bool, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return false, nil
		}
		return false, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, path)
	if diags.HasErrors() {
		return false, fmt.Errorf("failed to parse settings file %s: %w", path, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, evalCtx, &root); diags.HasErrors() {
		return false, fmt.Errorf("failed to decode settings file %s: %w", path, diags)
	}

	base := filepath.Dir(path)
	if r := root.Runtime; r != nil {
		setPath(&s.Root, r.Root, base)
		setString(&s.Host, r.Host)
		setBool(&s.MultilevelLookup, r.MultilevelLookup)
		for _, g := range r.GlobalRoots {
			s.GlobalRoots = append(s.GlobalRoots, resolvePath(g, base))
		}
		setString(&s.RollForward, r.RollForward)
		setString(&s.Prerelease, r.Prerelease)
	}
	if p := root.Probing; p != nil {
		setPath(&s.PackageCache, p.PackageCache, base)
		for _, dir := range p.Paths {
			s.ProbingPaths = append(s.ProbingPaths, resolvePath(dir, base))
		}
		setBool(&s.ConfigPathsFirst, p.ConfigPathsFirst)
		setBool(&s.CaseInsensitive, p.CaseInsensitive)
	}
	if t := root.Trace; t != nil {
		setBool(&s.Trace, t.Enabled)
		setPath(&s.TraceFile, t.File, base)
	}

	s.SettingsFile = path
	return true, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setPath(dst *string, v *string, base string) {
	if v != nil && *v != "" {
		*dst = resolvePath(*v, base)
	}
}

// resolvePath makes p absolute against the settings file directory.
func resolvePath(p, base string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
