package cli

import (
	"context"
	"path/filepath"

	"github.com/specialistvlad/hostresolve/internal/apphost"
	"github.com/specialistvlad/hostresolve/internal/fsutil"
	"github.com/specialistvlad/hostresolve/internal/launch"
	"github.com/specialistvlad/hostresolve/internal/resolver"
)

// RunAppHost is the body of a patched native launcher. binding is the
// embedded placeholder region and exe the launcher's own path; the bound
// application is looked up next to the real executable.
func RunAppHost(ctx context.Context, env Env, binding, exe string, args []string) error {
	env = env.withDefaults()
	name, err := apphost.ParseBinding(binding)
	if err != nil {
		return classify(err)
	}

	appDir := filepath.Dir(fsutil.RealPath(exe))
	if env.ExeDir == "" {
		env.ExeDir = appDir
	}
	s, err := openSession(ctx, env, globalOptions{logLevel: "error", logFormat: "text"})
	if err != nil {
		return classify(err)
	}
	defer s.close()

	inv := resolver.Invocation{Mode: launch.ModeAppHost, EntryPath: filepath.Join(appDir, name), Args: args}
	code, err := resolver.New(s.settings).Run(s.ctx, inv, env.Runtime)
	if err != nil {
		return classify(err)
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}
