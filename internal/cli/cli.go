package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/specialistvlad/hostresolve/internal/apphost"
	"github.com/specialistvlad/hostresolve/internal/framework"
	"github.com/specialistvlad/hostresolve/internal/launch"
	"github.com/specialistvlad/hostresolve/internal/manifest"
	"github.com/specialistvlad/hostresolve/internal/tpa"
)

// Exit codes reported for each error class. A launched application's own
// exit code is passed through unchanged.
const (
	ExitFailure    = 1
	ExitUsage      = 2
	ExitManifest   = 3
	ExitFramework  = 4
	ExitResolution = 5
	ExitAppHost    = 6
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Env is the process the CLI runs in. Zero fields fall back to the real
// process: os streams, os.Getenv, the executable's directory and a child
// process runtime.
type Env struct {
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Getenv  func(string) string
	ExeDir  string
	Runtime launch.Runtime
}

func (e Env) withDefaults() Env {
	if e.Stdin == nil {
		e.Stdin = os.Stdin
	}
	if e.Stdout == nil {
		e.Stdout = os.Stdout
	}
	if e.Stderr == nil {
		e.Stderr = os.Stderr
	}
	if e.Getenv == nil {
		e.Getenv = os.Getenv
	}
	if e.Runtime == nil {
		e.Runtime = &launch.ProcessRuntime{Stdin: e.Stdin, Stdout: e.Stdout, Stderr: e.Stderr}
	}
	return e
}

// Execute runs the hostresolve command line. Every failure is returned as
// an *ExitError.
func Execute(ctx context.Context, env Env, args []string) error {
	env = env.withDefaults()
	root := newRootCommand(env)
	root.SetArgs(args)
	return classify(root.ExecuteContext(ctx))
}

// classify maps err onto an ExitError.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}

	code := ExitFailure
	var (
		notFound      *manifest.NotFoundError
		parseErr      *manifest.ParseError
		fxNotFound    *framework.NotFoundError
		conflict      *tpa.ExtensionConflictError
		unresolved    *tpa.UnresolvedAssetError
		markerMissing *apphost.MarkerNotFoundError
		nameTooLong   *apphost.NameTooLongError
		unbound       *apphost.UnboundError
	)
	switch {
	case errors.As(err, &notFound), errors.As(err, &parseErr):
		code = ExitManifest
	case errors.As(err, &fxNotFound):
		code = ExitFramework
	case errors.As(err, &conflict), errors.As(err, &unresolved):
		code = ExitResolution
	case errors.As(err, &markerMissing), errors.As(err, &nameTooLong), errors.As(err, &unbound):
		code = ExitAppHost
	}
	return &ExitError{Code: code, Message: err.Error()}
}
