// Package pathtemplate expands the placeholder tokens that may appear in
// configured probing paths.
package pathtemplate

import "strings"

const (
	// ArchToken is replaced with the runtime name of the process architecture.
	ArchToken = "|arch|"
	// TFMToken is replaced with the application's target framework moniker.
	TFMToken = "|tfm|"
)

// Vars holds the values substituted for the known tokens.
type Vars struct {
	Arch string
	TFM  string
}

// Expand substitutes every known token in path. Tokens it does not recognise
// are left untouched so newer layouts keep working with older hosts.
func Expand(path string, vars Vars) string {
	if !HasTokens(path) {
		return path
	}
	r := strings.NewReplacer(ArchToken, vars.Arch, TFMToken, vars.TFM)
	return r.Replace(path)
}

// HasTokens reports whether path contains at least one known token.
func HasTokens(path string) bool {
	return strings.Contains(path, ArchToken) || strings.Contains(path, TFMToken)
}

// Arch maps a GOARCH value to the architecture name used by store layouts.
func Arch(goarch string) string {
	switch goarch {
	case "amd64":
		return "x64"
	case "386":
		return "x86"
	default:
		return goarch
	}
}
