package apphost

import "fmt"

// MarkerNotFoundError is returned when a template carries no placeholder,
// usually because it was already bound.
type MarkerNotFoundError struct {
	Path string
}

func (e *MarkerNotFoundError) Error() string {
	return fmt.Sprintf("launcher placeholder not found in [%s]; the file is not an unbound launcher", e.Path)
}

// NameTooLongError is returned when the application name does not fit in
// the placeholder.
type NameTooLongError struct {
	Name string
	Max  int
}

func (e *NameTooLongError) Error() string {
	return fmt.Sprintf("application name %q is %d bytes, the launcher holds at most %d", e.Name, len(e.Name), e.Max)
}

// UnboundError is returned by a launcher that was never patched.
type UnboundError struct{}

func (e *UnboundError) Error() string {
	return "this executable is not bound to a managed application; create it with 'hostresolve apphost create'"
}
