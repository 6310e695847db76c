// Package hostconfig gathers the host settings that shape a resolution:
// install roots, probing sources, roll-forward defaults and tracing.
//
// Values are layered: built-in defaults, then the HCL settings file, then
// environment variables. Command-line flags are applied by the caller on
// top of the returned Settings. The environment is read exactly once.
package hostconfig

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/hostresolve/internal/ctxlog"
	"github.com/specialistvlad/hostresolve/internal/framework"
	"github.com/specialistvlad/hostresolve/internal/pathtemplate"
	"github.com/specialistvlad/hostresolve/internal/probe"
)

// Environment variables read by Load.
const (
	EnvRoot             = "DOTNET_ROOT"
	EnvMultilevelLookup = "DOTNET_MULTILEVEL_LOOKUP"
	EnvRollForward      = "DOTNET_ROLL_FORWARD"
	EnvSharedStore      = "DOTNET_SHARED_STORE"
	EnvPackages         = "NUGET_PACKAGES"
	EnvTrace            = "COREHOST_TRACE"
	EnvTraceFile        = "COREHOST_TRACEFILE"
	EnvSettings         = "HOSTRESOLVE_SETTINGS"
)

// DefaultSettingsFile is looked up next to the host executable.
const DefaultSettingsFile = "hostresolve.hcl"

// Settings is the merged host configuration.
type Settings struct {
	// SettingsFile is the HCL file that was applied, if any.
	SettingsFile string

	Root             string
	UserRoot         string
	GlobalRoots      []string
	MultilevelLookup bool
	Host             string
	RollForward      string
	Prerelease       string

	PackageCache     string
	ProbingPaths     []string
	SharedStores     []string
	ConfigPathsFirst bool
	CaseInsensitive  bool

	Trace     bool
	TraceFile string

	Arch string
	OS   string
}

// Source describes the process the settings are loaded for. Zero fields
// are filled from the running process.
type Source struct {
	// SettingsFile is an explicit settings path; it must exist.
	SettingsFile string
	Getenv       func(string) string
	ExeDir       string
	Home         string
	GOOS         string
	GOARCH       string
}

// Load builds Settings for src.
func Load(ctx context.Context, src Source) (*Settings, error) {
	logger := ctxlog.FromContext(ctx)
	src = src.withDefaults()

	s := defaults(src)

	path, explicit := src.SettingsFile, src.SettingsFile != ""
	if !explicit {
		if env := src.Getenv(EnvSettings); env != "" {
			path, explicit = env, true
		} else if src.ExeDir != "" {
			path = filepath.Join(src.ExeDir, DefaultSettingsFile)
		}
	}
	if path != "" {
		applied, err := applyFile(s, path, explicit, evalContext(src))
		if err != nil {
			return nil, err
		}
		if applied {
			logger.Debug("Host settings file applied.", "path", s.SettingsFile)
		}
	}

	if err := applyEnv(s, src.Getenv); err != nil {
		return nil, err
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	logger.Debug("Host settings loaded.", "root", s.Root, "multilevel_lookup", s.MultilevelLookup, "trace", s.Trace)
	return s, nil
}

func (src Source) withDefaults() Source {
	if src.Getenv == nil {
		src.Getenv = os.Getenv
	}
	if src.ExeDir == "" {
		if exe, err := os.Executable(); err == nil {
			src.ExeDir = filepath.Dir(exe)
		}
	}
	if src.Home == "" {
		src.Home, _ = os.UserHomeDir()
	}
	if src.GOOS == "" {
		src.GOOS = goos
	}
	if src.GOARCH == "" {
		src.GOARCH = goarch
	}
	return src
}

func defaults(src Source) *Settings {
	s := &Settings{
		Root:             src.ExeDir,
		MultilevelLookup: true,
		Host:             "corerun",
		CaseInsensitive:  src.GOOS == "windows" || src.GOOS == "darwin",
		Arch:             pathtemplate.Arch(src.GOARCH),
		OS:               src.GOOS,
	}
	if src.GOOS == "windows" {
		s.Host += ".exe"
	}
	if src.Home != "" {
		s.UserRoot = filepath.Join(src.Home, ".dotnet")
	}
	return s
}

func applyEnv(s *Settings, getenv func(string) string) error {
	if v := getenv(EnvRoot); v != "" {
		s.Root = v
	}
	switch v := getenv(EnvMultilevelLookup); v {
	case "":
	case "0":
		s.MultilevelLookup = false
	case "1":
		s.MultilevelLookup = true
	default:
		return fmt.Errorf("invalid %s value %q: must be 0 or 1", EnvMultilevelLookup, v)
	}
	if v := getenv(EnvRollForward); v != "" {
		s.RollForward = v
	}
	if v := getenv(EnvSharedStore); v != "" {
		s.SharedStores = filepath.SplitList(v)
	}
	if v := getenv(EnvPackages); v != "" {
		s.PackageCache = v
	}
	if v := getenv(EnvTrace); v != "" {
		s.Trace = v == "1" || strings.EqualFold(v, "true")
	}
	if v := getenv(EnvTraceFile); v != "" {
		s.TraceFile = v
	}
	return nil
}

func (s *Settings) validate() error {
	if _, err := framework.ParsePolicy(s.RollForward); err != nil {
		return err
	}
	if _, err := framework.VersionPolicyByName(s.Prerelease); err != nil {
		return err
	}
	return nil
}

// Roots returns the framework install roots in lookup order. The user and
// global roots only take part when multi-level lookup is enabled.
func (s *Settings) Roots() []string {
	candidates := []string{s.Root}
	if s.MultilevelLookup {
		candidates = append(candidates, s.UserRoot)
		candidates = append(candidates, s.GlobalRoots...)
	}
	roots := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, r := range candidates {
		if r == "" {
			continue
		}
		r = filepath.Clean(r)
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		roots = append(roots, r)
	}
	return roots
}

// VersionPolicy returns the configured pre-release ordering.
func (s *Settings) VersionPolicy() framework.VersionPolicy {
	cmp, err := framework.VersionPolicyByName(s.Prerelease)
	if err != nil {
		return framework.PrereleaseOrdered
	}
	return cmp
}

// ProbeOrder returns the relative order of runtime configuration and
// caller-supplied probing paths.
func (s *Settings) ProbeOrder() probe.Order {
	if s.ConfigPathsFirst {
		return probe.ConfigFirst
	}
	return probe.CLIFirst
}
