// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates CLI flags into resolver invocations and maps resolution
// errors onto distinct exit codes.
package cli
