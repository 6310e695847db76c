// Package resolver turns a host invocation into a launch activation. It
// runs the manifest loader, framework resolution, the probing path builder
// and the assembly resolver in order, and owns every intermediate result of
// one run.
package resolver
