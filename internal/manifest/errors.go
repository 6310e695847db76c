package manifest

import "fmt"

// NotFoundError reports a manifest that was explicitly requested but does
// not exist. Missing manifests at their default location are not errors.
type NotFoundError struct {
	Kind string
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("the specified %s [%s] does not exist", e.Kind, e.Path)
}

// ParseError reports a manifest that exists but cannot be used: malformed
// JSON or a missing required key.
type ParseError struct {
	Kind string
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s [%s]: %v", e.Kind, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

const (
	kindDeps          = "dependency manifest"
	kindRuntimeConfig = "runtime configuration"
)
