// Package framework finds installed shared frameworks and picks the version
// that satisfies an application's framework reference under its
// roll-forward policy.
//
// Install roots are laid out as <root>/shared/<framework-name>/<version>/.
// Roots are consulted in order; when the same version is installed under
// several roots the first one wins.
package framework

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/specialistvlad/hostresolve/internal/ctxlog"
	"github.com/specialistvlad/hostresolve/internal/manifest"
)

// Candidate is one installed framework version.
type Candidate struct {
	Root    string
	Dir     string
	Version string
}

// Resolved is the framework chosen for a reference.
type Resolved struct {
	Name             string
	RequestedVersion string
	Version          string
	Dir              string
	Policy           Policy
}

// NotFoundError reports that no installed version satisfies a reference.
type NotFoundError struct {
	Name       string
	Requested  string
	Policy     Policy
	Candidates []Candidate
}

func (e *NotFoundError) Error() string {
	installed := "none"
	if len(e.Candidates) > 0 {
		parts := make([]string, 0, len(e.Candidates))
		for _, c := range e.Candidates {
			parts = append(parts, fmt.Sprintf("%s at [%s]", c.Version, c.Root))
		}
		installed = strings.Join(parts, ", ")
	}
	return fmt.Sprintf("framework not found: no version of '%s' compatible with requested %s (roll-forward %s); installed: %s",
		e.Name, e.Requested, e.Policy, installed)
}

// Locator resolves framework references against an ordered list of roots.
type Locator struct {
	Roots   []string
	Compare VersionPolicy
}

// Candidates lists the installed versions of name across all roots, in
// root order and, within a root, in ascending version order. Directories
// whose names are not semantic versions are skipped.
func (l Locator) Candidates(ctx context.Context, name string) ([]Candidate, error) {
	trace := ctxlog.Trace(ctx)
	cmp := l.compare()

	var out []Candidate
	for _, root := range l.Roots {
		base := filepath.Join(root, "shared", name)
		entries, err := os.ReadDir(base)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to list frameworks in %s: %w", base, err)
		}
		var found []Candidate
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			if _, ok := toSemver(entry.Name()); !ok {
				trace.Info(fmt.Sprintf("Ignoring framework directory with invalid version: %s", filepath.Join(base, entry.Name())))
				continue
			}
			found = append(found, Candidate{Root: root, Dir: filepath.Join(base, entry.Name()), Version: entry.Name()})
		}
		sort.SliceStable(found, func(i, j int) bool {
			a, _ := toSemver(found[i].Version)
			b, _ := toSemver(found[j].Version)
			return cmp(a, b) < 0
		})
		out = append(out, found...)
	}
	return out, nil
}

// Resolve picks the framework directory for ref under policy.
func (l Locator) Resolve(ctx context.Context, ref manifest.FrameworkReference, policy Policy) (*Resolved, error) {
	trace := ctxlog.Trace(ctx)
	requested, ok := toSemver(ref.Version)
	if !ok {
		return nil, fmt.Errorf("framework '%s' requests invalid version %q", ref.Name, ref.Version)
	}

	candidates, err := l.Candidates(ctx, ref.Name)
	if err != nil {
		return nil, err
	}

	best, ok := Select(requested, candidates, policy, l.compare())
	if !ok {
		return nil, &NotFoundError{Name: ref.Name, Requested: ref.Version, Policy: policy, Candidates: candidates}
	}

	trace.Info(fmt.Sprintf("Resolved framework %s %s -> %s [%s]", ref.Name, ref.Version, best.Version, best.Dir), "policy", policy.String())
	return &Resolved{
		Name:             ref.Name,
		RequestedVersion: ref.Version,
		Version:          best.Version,
		Dir:              best.Dir,
		Policy:           policy,
	}, nil
}

// Select returns the highest candidate at or above requested within the
// first band of policy that has a match. requested must carry the "v"
// prefix; candidate versions must not.
func Select(requested string, candidates []Candidate, policy Policy, cmp VersionPolicy) (Candidate, bool) {
	if cmp == nil {
		cmp = PrereleaseOrdered
	}

	type versioned struct {
		c Candidate
		v string
	}
	var eligible []versioned
	for _, c := range candidates {
		v, ok := toSemver(c.Version)
		if !ok || cmp(v, requested) < 0 {
			continue
		}
		eligible = append(eligible, versioned{c: c, v: v})
	}

	if policy == PolicyDisable {
		for _, e := range eligible {
			if cmp(e.v, requested) == 0 {
				return e.c, true
			}
		}
		return Candidate{}, false
	}

	for _, inBand := range policy.bands(requested) {
		var best *versioned
		for i := range eligible {
			e := &eligible[i]
			if !inBand(e.v) {
				continue
			}
			if best == nil || cmp(e.v, best.v) > 0 {
				best = e
			}
		}
		if best != nil {
			return best.c, true
		}
	}
	return Candidate{}, false
}

func (l Locator) compare() VersionPolicy {
	if l.Compare == nil {
		return PrereleaseOrdered
	}
	return l.Compare
}
