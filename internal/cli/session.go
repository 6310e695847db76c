package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/specialistvlad/hostresolve/internal/ctxlog"
	"github.com/specialistvlad/hostresolve/internal/hostconfig"
	"github.com/specialistvlad/hostresolve/internal/hosttrace"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	settingsFile string
	logLevel     string
	logFormat    string
}

func (o *globalOptions) validate() error {
	o.logFormat = strings.ToLower(o.logFormat)
	if o.logFormat != "text" && o.logFormat != "json" {
		return &ExitError{Code: ExitUsage, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	o.logLevel = strings.ToLower(o.logLevel)
	switch o.logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return &ExitError{Code: ExitUsage, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	return nil
}

// session is the per-run state built from the global options.
type session struct {
	ctx      context.Context
	settings *hostconfig.Settings
	closers  []io.Closer
}

// openSession configures logging, loads host settings and opens the trace
// sink. The caller must call close.
func openSession(ctx context.Context, env Env, opts globalOptions) (*session, error) {
	logger := hosttrace.NewLogger(opts.logLevel, opts.logFormat, env.Stderr)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	settings, err := hostconfig.Load(ctx, hostconfig.Source{
		SettingsFile: opts.settingsFile,
		Getenv:       env.Getenv,
		ExeDir:       env.ExeDir,
	})
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Message: err.Error()}
	}

	s := &session{settings: settings}
	var traceW io.Writer = env.Stderr
	if settings.Trace && settings.TraceFile != "" {
		f, err := os.OpenFile(settings.TraceFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open trace file %s: %w", settings.TraceFile, err)
		}
		s.closers = append(s.closers, f)
		traceW = f
	}
	s.ctx = ctxlog.WithTrace(ctx, hosttrace.NewTracer(traceW, settings.Trace))
	return s, nil
}

func (s *session) close() {
	for _, c := range s.closers {
		c.Close()
	}
}
