package framework

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Policy is a roll-forward policy: the rule deciding which installed
// framework versions satisfy a requested version.
type Policy int

const (
	// PolicyMinor is the default: the requested major.minor band when it
	// has a match, otherwise any higher minor of the same major.
	PolicyMinor Policy = iota
	PolicyDisable
	PolicyLatestPatch
	PolicyLatestMinor
	PolicyMajor
	PolicyLatestMajor
)

var policyNames = map[Policy]string{
	PolicyMinor:       "Minor",
	PolicyDisable:     "Disable",
	PolicyLatestPatch: "LatestPatch",
	PolicyLatestMinor: "LatestMinor",
	PolicyMajor:       "Major",
	PolicyLatestMajor: "LatestMajor",
}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy accepts policy names case-insensitively. The empty string
// selects the default policy.
func ParsePolicy(name string) (Policy, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return PolicyMinor, nil
	}
	for p, n := range policyNames {
		if strings.EqualFold(n, name) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown roll-forward policy %q", name)
}

// VersionPolicy compares two semantic versions (with the leading "v") and
// returns -1, 0 or +1. It decides how pre-release and build suffixes take
// part in ordering.
type VersionPolicy func(a, b string) int

// PrereleaseOrdered orders pre-releases below their release, following
// semantic versioning precedence. Build metadata is ignored.
func PrereleaseOrdered(a, b string) int {
	return semver.Compare(a, b)
}

// PrereleaseIgnored compares only the major.minor.patch core, so
// 2.0.0-preview1 and 2.0.0 are equal.
func PrereleaseIgnored(a, b string) int {
	return semver.Compare(versionCore(a), versionCore(b))
}

// VersionPolicyByName maps the settings values "ordered" and "ignored".
func VersionPolicyByName(name string) (VersionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "ordered":
		return PrereleaseOrdered, nil
	case "ignored":
		return PrereleaseIgnored, nil
	default:
		return nil, fmt.Errorf("unknown prerelease policy %q: must be 'ordered' or 'ignored'", name)
	}
}

func versionCore(v string) string {
	v = semver.Canonical(v)
	if pre := semver.Prerelease(v); pre != "" {
		v = strings.TrimSuffix(v, pre)
	}
	return v
}

// toSemver turns a directory or manifest version such as "2.0.0" into the
// "v2.0.0" form used by x/mod/semver, reporting whether it is valid.
func toSemver(version string) (string, bool) {
	v := "v" + strings.TrimPrefix(strings.TrimSpace(version), "v")
	return v, semver.IsValid(v)
}

// bands returns the candidate filters of p, tried in order; the first one
// with a match decides.
func (p Policy) bands(requested string) []func(string) bool {
	sameMinor := func(v string) bool { return semver.MajorMinor(v) == semver.MajorMinor(requested) }
	sameMajor := func(v string) bool { return semver.Major(v) == semver.Major(requested) }
	anyVersion := func(string) bool { return true }

	switch p {
	case PolicyDisable:
		return nil
	case PolicyLatestPatch:
		return []func(string) bool{sameMinor}
	case PolicyLatestMinor:
		return []func(string) bool{sameMajor}
	case PolicyMajor:
		return []func(string) bool{sameMajor, anyVersion}
	case PolicyLatestMajor:
		return []func(string) bool{anyVersion}
	default:
		return []func(string) bool{sameMinor, sameMajor}
	}
}
