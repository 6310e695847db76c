package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/specialistvlad/hostresolve/internal/apphost"
	"github.com/specialistvlad/hostresolve/internal/launch"
	"github.com/specialistvlad/hostresolve/internal/report"
	"github.com/specialistvlad/hostresolve/internal/resolver"
)

// resolutionFlags are the per-invocation overrides shared by the commands
// that resolve an application.
type resolutionFlags struct {
	depsFile      string
	runtimeConfig string
	probingPaths  []string
	rollForward   string
}

func (f *resolutionFlags) register(cmd *cobra.Command, manifests bool) {
	if manifests {
		cmd.Flags().StringVar(&f.depsFile, "depsfile", "", "Path to the dependency manifest (<app>.deps.json).")
		cmd.Flags().StringVar(&f.runtimeConfig, "runtimeconfig", "", "Path to the runtime configuration (<app>.runtimeconfig.json).")
	}
	cmd.Flags().StringArrayVar(&f.probingPaths, "additionalprobingpath", nil, "Additional package root to probe. May be repeated.")
	cmd.Flags().StringVar(&f.rollForward, "roll-forward", "", "Framework roll-forward policy: Disable, LatestPatch, Minor, LatestMinor, Major or LatestMajor.")
}

func (f *resolutionFlags) invocation(mode launch.Mode, entry string, args []string) resolver.Invocation {
	return resolver.Invocation{
		Mode:          mode,
		EntryPath:     entry,
		DepsFile:      f.depsFile,
		RuntimeConfig: f.runtimeConfig,
		ProbingPaths:  f.probingPaths,
		RollForward:   f.rollForward,
		Args:          args,
	}
}

func newRootCommand(env Env) *cobra.Command {
	var opts globalOptions
	var flags resolutionFlags

	root := &cobra.Command{
		Use:   "hostresolve [options] <app.dll> [args...]",
		Short: "Resolve and launch a managed application.",
		Long: `hostresolve - Resolves the runtime, manifests and trusted assembly list for a
managed application and launches it.

Set COREHOST_TRACE=1 to print every probing path and trusted assembly.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runApp(cmd, env, opts, flags.invocation(launch.ModeMuxer, args[0], args[1:]))
		},
	}
	root.SetIn(env.Stdin)
	root.SetOut(env.Stdout)
	root.SetErr(env.Stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	})
	root.Flags().SetInterspersed(false)

	root.PersistentFlags().StringVar(&opts.settingsFile, "settings", "", "Path to a host settings file (.hcl).")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	root.PersistentPreRunE = func(*cobra.Command, []string) error {
		return opts.validate()
	}
	flags.register(root, false)

	root.AddCommand(newExecCommand(env, &opts), newResolveCommand(env, &opts), newAppHostCommand())
	return root
}

func newExecCommand(env Env, opts *globalOptions) *cobra.Command {
	var flags resolutionFlags
	cmd := &cobra.Command{
		Use:   "exec [options] <app.dll> [args...]",
		Short: "Launch an application with explicit manifests and probing paths.",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd, env, *opts, flags.invocation(launch.ModeExec, args[0], args[1:]))
		},
	}
	cmd.Flags().SetInterspersed(false)
	flags.register(cmd, true)
	return cmd
}

func newResolveCommand(env Env, opts *globalOptions) *cobra.Command {
	var flags resolutionFlags
	var output string
	cmd := &cobra.Command{
		Use:   "resolve [options] <app.dll>",
		Short: "Print the resolution report without launching.",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), env, *opts)
			if err != nil {
				return err
			}
			defer s.close()

			res, err := resolver.New(s.settings).Resolve(s.ctx, flags.invocation(launch.ModeExec, args[0], nil))
			if err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout(), report.FromResult(res), output)
		},
	}
	flags.register(cmd, true)
	cmd.Flags().StringVarP(&output, "output", "o", report.FormatYAML, "Report format. Options: 'yaml' or 'json'.")
	return cmd
}

func newAppHostCommand() *cobra.Command {
	parent := &cobra.Command{
		Use:   "apphost",
		Short: "Manage native application launchers.",
	}

	var template, dest, app string
	create := &cobra.Command{
		Use:   "create",
		Short: "Bind a launcher template to a managed application.",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if template == "" || dest == "" || app == "" {
				return &ExitError{Code: ExitUsage, Message: "apphost create requires --template, --dest and --app"}
			}
			if err := apphost.Create(template, dest, filepath.Base(app)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s for %s\n", dest, filepath.Base(app))
			return nil
		},
	}
	create.Flags().StringVar(&template, "template", "", "Unbound launcher template.")
	create.Flags().StringVar(&dest, "dest", "", "Path of the launcher to write.")
	create.Flags().StringVar(&app, "app", "", "Managed entry assembly the launcher starts.")

	parent.AddCommand(create)
	return parent
}

// runApp resolves and launches inv. A non-zero application exit code is
// returned as an ExitError without a message.
func runApp(cmd *cobra.Command, env Env, opts globalOptions, inv resolver.Invocation) error {
	s, err := openSession(cmd.Context(), env, opts)
	if err != nil {
		return err
	}
	defer s.close()

	code, err := resolver.New(s.settings).Run(s.ctx, inv, env.Runtime)
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &ExitError{Code: ExitUsage, Message: err.Error()}
		}
		return nil
	}
}
