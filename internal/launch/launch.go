// Package launch hands a resolved activation to the managed runtime.
package launch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/specialistvlad/hostresolve/internal/ctxlog"
)

// Mode is how the host was entered.
type Mode int

const (
	// ModeMuxer is `hostresolve <app.dll>`.
	ModeMuxer Mode = iota
	// ModeExec is `hostresolve exec [options] <app.dll>`.
	ModeExec
	// ModeAppHost is a patched native launcher next to the application.
	ModeAppHost
)

func (m Mode) String() string {
	switch m {
	case ModeExec:
		return "exec"
	case ModeAppHost:
		return "apphost"
	default:
		return "muxer"
	}
}

// Environment variables carrying the activation to the runtime process.
const (
	EnvTrustedAssemblies = "TRUSTED_PLATFORM_ASSEMBLIES"
	EnvNativeSearchDirs  = "NATIVE_DLL_SEARCH_DIRECTORIES"
	EnvAppPaths          = "APP_PATHS"
	EnvAppBaseDirectory  = "APP_CONTEXT_BASE_DIRECTORY"
	EnvPropertyPrefix    = "RUNTIME_PROPERTY_"
)

// Activation is everything the runtime needs to start the application.
type Activation struct {
	Mode    Mode
	AppPath string
	AppDir  string
	Args    []string
	// RuntimeDir holds the runtime host binary; it is the application
	// directory for self-contained applications.
	RuntimeDir string
	Host       string
	Assemblies []string
	NativeDirs []string
	Properties map[string]string
}

// HostPath is the runtime executable to start.
func (a Activation) HostPath() string {
	return filepath.Join(a.RuntimeDir, a.Host)
}

// Runtime starts the managed runtime and reports its exit code.
type Runtime interface {
	Run(ctx context.Context, act Activation) (int, error)
}

// RuntimeFunc adapts a function to the Runtime interface.
type RuntimeFunc func(ctx context.Context, act Activation) (int, error)

// Run calls f(ctx, act).
func (f RuntimeFunc) Run(ctx context.Context, act Activation) (int, error) {
	return f(ctx, act)
}

// Direct passes a fully resolved activation to rt.
func Direct(ctx context.Context, rt Runtime, act Activation) (int, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Launching application.", "mode", act.Mode, "app", act.AppPath, "host", act.HostPath(), "assemblies", len(act.Assemblies))
	code, err := rt.Run(ctx, act)
	if err != nil {
		return code, err
	}
	logger.Debug("Application exited.", "code", code)
	return code, nil
}

// ProcessRuntime runs the runtime host as a child process with the
// activation encoded in its environment.
type ProcessRuntime struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Env is the base environment; nil means os.Environ().
	Env []string
}

// Run executes <RuntimeDir>/<Host> <AppPath> <Args...>. A non-zero exit is
// reported through the code, not as an error.
func (p *ProcessRuntime) Run(ctx context.Context, act Activation) (int, error) {
	if act.Host == "" {
		return -1, errors.New("no runtime host executable configured")
	}
	cmd := exec.CommandContext(ctx, act.HostPath(), append([]string{act.AppPath}, act.Args...)...)
	cmd.Dir = act.AppDir
	cmd.Stdin = p.Stdin
	cmd.Stdout = p.Stdout
	cmd.Stderr = p.Stderr
	cmd.Env = append(p.baseEnv(), Environ(act)...)

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, fmt.Errorf("failed to start runtime host %s: %w", act.HostPath(), err)
	}
	return 0, nil
}

func (p *ProcessRuntime) baseEnv() []string {
	if p.Env != nil {
		return append([]string{}, p.Env...)
	}
	return os.Environ()
}

// Environ encodes act as KEY=VALUE pairs. Lists use the platform path list
// separator; properties are sorted by key.
func Environ(act Activation) []string {
	sep := string(os.PathListSeparator)
	env := []string{
		EnvTrustedAssemblies + "=" + strings.Join(act.Assemblies, sep),
		EnvNativeSearchDirs + "=" + strings.Join(act.NativeDirs, sep),
		EnvAppPaths + "=" + act.AppDir,
		EnvAppBaseDirectory + "=" + act.AppDir,
	}
	keys := make([]string, 0, len(act.Properties))
	for k := range act.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, EnvPropertyPrefix+k+"="+act.Properties[k])
	}
	return env
}
