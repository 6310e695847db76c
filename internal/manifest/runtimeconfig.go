package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// FrameworkReference names a shared framework and the minimum version the
// application was built against.
type FrameworkReference struct {
	Name    string
	Version string
}

// RuntimeConfig is a parsed runtime configuration, merged with its
// development sibling when one exists. The zero value means "no file" and
// describes a self-contained application.
type RuntimeConfig struct {
	Path    string
	DevPath string
	TFM     string
	// Frameworks lists "framework" followed by every "frameworks" entry.
	Frameworks  []FrameworkReference
	RollForward string
	// AdditionalProbingPaths are absolute but still carry template tokens.
	AdditionalProbingPaths []string
	Properties             map[string]string
}

// Found reports whether the configuration was read from disk.
func (c *RuntimeConfig) Found() bool {
	return c != nil && c.Path != ""
}

// SelfContained reports whether the application references no shared
// framework and so carries its own runtime.
func (c *RuntimeConfig) SelfContained() bool {
	return c == nil || len(c.Frameworks) == 0
}

// PropertyKeys returns the configuration property names in sorted order.
func (c *RuntimeConfig) PropertyKeys() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Properties))
	for k := range c.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type runtimeConfigDocument struct {
	RuntimeOptions *runtimeOptions `json:"runtimeOptions"`
}

type runtimeOptions struct {
	TFM                        string                     `json:"tfm"`
	Framework                  *frameworkJSON             `json:"framework"`
	Frameworks                 []frameworkJSON            `json:"frameworks"`
	RollForward                string                     `json:"rollForward"`
	RollForwardOnNoCandidateFx *int                       `json:"rollForwardOnNoCandidateFx"`
	AdditionalProbingPaths     []string                   `json:"additionalProbingPaths"`
	ConfigProperties           map[string]json.RawMessage `json:"configProperties"`
}

type frameworkJSON struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// legacyRollForward maps rollForwardOnNoCandidateFx values to policy names.
var legacyRollForward = map[int]string{
	0: "LatestPatch",
	1: "Minor",
	2: "Major",
}

// ParseRuntimeConfig decodes a runtime configuration. Relative probing paths
// are made absolute against the directory of source.
func ParseRuntimeConfig(source string, data []byte) (*RuntimeConfig, error) {
	fail := func(err error) (*RuntimeConfig, error) {
		return nil, &ParseError{Kind: kindRuntimeConfig, Path: source, Err: err}
	}

	opts, err := decodeRuntimeOptions(data)
	if err != nil {
		return fail(err)
	}

	cfg := &RuntimeConfig{
		Path:        source,
		TFM:         opts.TFM,
		RollForward: opts.RollForward,
		Properties:  make(map[string]string, len(opts.ConfigProperties)),
	}
	if cfg.RollForward == "" && opts.RollForwardOnNoCandidateFx != nil {
		legacy, ok := legacyRollForward[*opts.RollForwardOnNoCandidateFx]
		if !ok {
			return fail(fmt.Errorf("rollForwardOnNoCandidateFx value %d is not supported", *opts.RollForwardOnNoCandidateFx))
		}
		cfg.RollForward = legacy
	}

	refs := opts.Frameworks
	if opts.Framework != nil {
		refs = append([]frameworkJSON{*opts.Framework}, refs...)
	}
	for i, fw := range refs {
		if strings.TrimSpace(fw.Name) == "" || strings.TrimSpace(fw.Version) == "" {
			return fail(fmt.Errorf("framework reference %d requires both name and version", i))
		}
		cfg.Frameworks = append(cfg.Frameworks, FrameworkReference{Name: fw.Name, Version: fw.Version})
	}

	cfg.AdditionalProbingPaths = absolutePaths(filepath.Dir(source), opts.AdditionalProbingPaths)

	for k, raw := range opts.ConfigProperties {
		cfg.Properties[k] = propertyString(raw)
	}
	return cfg, nil
}

// mergeDev appends the development configuration's probing paths.
func (c *RuntimeConfig) mergeDev(source string, data []byte) error {
	opts, err := decodeRuntimeOptions(data)
	if err != nil {
		return &ParseError{Kind: kindRuntimeConfig, Path: source, Err: err}
	}
	c.DevPath = source
	c.AdditionalProbingPaths = append(c.AdditionalProbingPaths, absolutePaths(filepath.Dir(source), opts.AdditionalProbingPaths)...)
	return nil
}

func decodeRuntimeOptions(data []byte) (*runtimeOptions, error) {
	var doc runtimeConfigDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.RuntimeOptions == nil {
		return nil, errors.New(`missing required key "runtimeOptions"`)
	}
	return doc.RuntimeOptions, nil
}

func absolutePaths(base string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		p = filepath.FromSlash(p)
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		out = append(out, p)
	}
	return out
}

func propertyString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
