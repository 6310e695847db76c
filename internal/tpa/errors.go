package tpa

import (
	"fmt"
	"strings"
)

// ExtensionConflictError reports two files claiming the same assembly name
// with different extensions, e.g. App.exe and App.dll.
type ExtensionConflictError struct {
	Name          string
	BoundPath     string
	BoundExt      string
	CandidatePath string
	CandidateExt  string
}

func (e *ExtensionConflictError) Error() string {
	return fmt.Sprintf("assembly [%s] has already been found but with a different file extension: bound %q [%s], candidate %q [%s]",
		e.Name, e.BoundExt, e.BoundPath, e.CandidateExt, e.CandidatePath)
}

// UnresolvedAssetError reports package assets that no probing entry could
// supply.
type UnresolvedAssetError struct {
	Missing    []MissingAsset
	Probed     []string
	DepsPath   string
	DepsRemote bool
}

// MissingAsset is one package asset that was not found.
type MissingAsset struct {
	Library      string
	RelativePath string
}

func (e *UnresolvedAssetError) Error() string {
	parts := make([]string, 0, len(e.Missing))
	for _, m := range e.Missing {
		parts = append(parts, fmt.Sprintf("%s (%s)", m.RelativePath, m.Library))
	}
	msg := fmt.Sprintf("package asset not found: no matching probing path for %s declared in [%s]; probed: %s",
		strings.Join(parts, ", "), e.DepsPath, strings.Join(e.Probed, ", "))
	if e.DepsRemote {
		msg += "; the dependency manifest is outside the application directory, supply an additional probing path holding its packages"
	}
	return msg
}
