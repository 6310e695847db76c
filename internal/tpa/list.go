package tpa

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
)

// Binding records the first path bound to an assembly name.
type Binding struct {
	Name      string
	Path      string
	Extension string
	// Origin is the probing entry kind that supplied the file.
	Origin string
}

// List is an insertion-ordered map from simple name to binding. Once a name
// is bound it is never rebound.
type List struct {
	fold   cases.Caser
	folded bool
	order  []string
	byKey  map[string]*Binding
}

// NewList returns an empty list. caseInsensitive makes name comparison
// follow Unicode case folding, matching case-insensitive file systems.
func NewList(caseInsensitive bool) *List {
	return &List{
		fold:   cases.Fold(),
		folded: caseInsensitive,
		byKey:  make(map[string]*Binding),
	}
}

func (l *List) key(name string) string {
	if l.folded {
		return l.fold.String(name)
	}
	return name
}

// Lookup returns the binding for name, if any.
func (l *List) Lookup(name string) (Binding, bool) {
	b, ok := l.byKey[l.key(name)]
	if !ok {
		return Binding{}, false
	}
	return *b, true
}

// Bind inserts name -> path unless name is already bound. It reports
// whether the insert happened. An existing binding with a different
// extension is rejected with an ExtensionConflictError; a matching one is
// left in place.
func (l *List) Bind(name, path, origin string) (bool, error) {
	ext := filepath.Ext(path)
	if existing, ok := l.byKey[l.key(name)]; ok {
		if !strings.EqualFold(existing.Extension, ext) {
			return false, &ExtensionConflictError{
				Name:          name,
				BoundPath:     existing.Path,
				BoundExt:      existing.Extension,
				CandidatePath: path,
				CandidateExt:  ext,
			}
		}
		return false, nil
	}
	k := l.key(name)
	l.byKey[k] = &Binding{Name: name, Path: path, Extension: ext, Origin: origin}
	l.order = append(l.order, k)
	return true, nil
}

// Len returns the number of bound names.
func (l *List) Len() int {
	return len(l.order)
}

// Entries returns the bindings in insertion order.
func (l *List) Entries() []Binding {
	out := make([]Binding, 0, len(l.order))
	for _, k := range l.order {
		out = append(out, *l.byKey[k])
	}
	return out
}

// Paths returns the bound paths in insertion order.
func (l *List) Paths() []string {
	out := make([]string, 0, len(l.order))
	for _, k := range l.order {
		out = append(out, l.byKey[k].Path)
	}
	return out
}
