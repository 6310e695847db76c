package resolver

import (
	"context"
	"fmt"

	"github.com/specialistvlad/hostresolve/internal/ctxlog"
	"github.com/specialistvlad/hostresolve/internal/framework"
	"github.com/specialistvlad/hostresolve/internal/hostconfig"
	"github.com/specialistvlad/hostresolve/internal/launch"
	"github.com/specialistvlad/hostresolve/internal/manifest"
	"github.com/specialistvlad/hostresolve/internal/pathtemplate"
	"github.com/specialistvlad/hostresolve/internal/probe"
	"github.com/specialistvlad/hostresolve/internal/tpa"
)

// Invocation is one request to run a managed application.
type Invocation struct {
	Mode          launch.Mode
	EntryPath     string
	DepsFile      string
	RuntimeConfig string
	ProbingPaths  []string
	RollForward   string
	Args          []string
}

// Result holds every decision taken for an invocation.
type Result struct {
	App        App
	Manifests  *manifest.Set
	Policy     framework.Policy
	Frameworks []*framework.Resolved
	// RuntimeDir holds the runtime host: the first framework directory, or
	// the application directory when self-contained.
	RuntimeDir string
	Vars       pathtemplate.Vars
	Probes     []probe.Entry
	Assets     *tpa.Result
	Activation launch.Activation
}

// Resolver resolves invocations against fixed host settings. A Resolver
// keeps no state between calls.
type Resolver struct {
	settings *hostconfig.Settings
	// AltSeparator is rewritten to the primary separator in entry paths.
	AltSeparator byte
}

// New returns a Resolver for settings.
func New(settings *hostconfig.Settings) *Resolver {
	return &Resolver{settings: settings, AltSeparator: platformAltSeparator()}
}

// Settings returns the host settings the resolver was created with.
func (r *Resolver) Settings() *hostconfig.Settings {
	return r.settings
}

// Resolve computes the activation for inv. Any error aborts the whole run;
// no partial result is returned.
func (r *Resolver) Resolve(ctx context.Context, inv Invocation) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	s := r.settings

	app, err := NewApp(inv.EntryPath, r.AltSeparator)
	if err != nil {
		return nil, err
	}
	logger.Debug("Resolving application.", "mode", inv.Mode, "app", app.Path)

	set, err := manifest.Load(ctx, manifest.Request{
		AppDir:                app.Dir,
		AppName:               app.Name,
		DepsOverride:          inv.DepsFile,
		RuntimeConfigOverride: inv.RuntimeConfig,
	})
	if err != nil {
		return nil, err
	}
	cfg := set.RuntimeConfig

	policy, err := framework.ParsePolicy(firstNonEmpty(inv.RollForward, s.RollForward, cfg.RollForward))
	if err != nil {
		return nil, err
	}

	res := &Result{App: app, Manifests: set, Policy: policy, RuntimeDir: app.Dir}
	if !cfg.SelfContained() {
		locator := framework.Locator{Roots: s.Roots(), Compare: s.VersionPolicy()}
		for _, ref := range cfg.Frameworks {
			fw, err := locator.Resolve(ctx, ref, policy)
			if err != nil {
				return nil, err
			}
			res.Frameworks = append(res.Frameworks, fw)
		}
		res.RuntimeDir = res.Frameworks[0].Dir
	}
	logger.Debug("Frameworks resolved.", "count", len(res.Frameworks), "runtime_dir", res.RuntimeDir)

	res.Vars = pathtemplate.Vars{Arch: s.Arch, TFM: firstNonEmpty(cfg.TFM, set.Deps.TFM())}
	res.Probes = probe.Build(ctx, probe.Input{
		AppDir:        app.Dir,
		Deps:          set.Deps,
		DepsRemote:    set.DepsRemote,
		ConfigPaths:   cfg.AdditionalProbingPaths,
		CLIPaths:      inv.ProbingPaths,
		SettingsPaths: s.ProbingPaths,
		StoreRoots:    s.SharedStores,
		PackageCache:  s.PackageCache,
		Frameworks:    res.Frameworks,
		Order:         s.ProbeOrder(),
		Vars:          res.Vars,
	})

	res.Assets, err = tpa.Resolve(ctx, tpa.Input{
		EntryPath:       app.Path,
		Deps:            set.Deps,
		DepsRemote:      set.DepsRemote,
		Probes:          res.Probes,
		CaseInsensitive: s.CaseInsensitive,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("Trusted assembly list built.", "assemblies", res.Assets.Assemblies.Len(), "native", res.Assets.Native.Len())

	properties := make(map[string]string, len(cfg.Properties))
	for k, v := range cfg.Properties {
		properties[k] = v
	}
	res.Activation = launch.Activation{
		Mode:       inv.Mode,
		AppPath:    app.Path,
		AppDir:     app.Dir,
		Args:       inv.Args,
		RuntimeDir: res.RuntimeDir,
		Host:       s.Host,
		Assemblies: res.Assets.Assemblies.Paths(),
		NativeDirs: res.Assets.NativeDirs,
		Properties: properties,
	}
	return res, nil
}

// Run resolves inv and hands the activation to rt.
func (r *Resolver) Run(ctx context.Context, inv Invocation, rt launch.Runtime) (int, error) {
	res, err := r.Resolve(ctx, inv)
	if err != nil {
		return -1, err
	}
	code, err := launch.Direct(ctx, rt, res.Activation)
	if err != nil {
		return code, fmt.Errorf("failed to run %s: %w", res.App.Path, err)
	}
	return code, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
