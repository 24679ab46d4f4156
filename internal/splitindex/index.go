// Package splitindex maps the identifiers of resources
// that a base module only knows by placeholder back to
// the real names its splits give them.
package splitindex

import (
	"sort"
	"strings"
)

// ResourceID keys a resource within one identifier table.
type ResourceID struct {
	Type string
	ID   string
}

func (r ResourceID) String() string {
	return r.Type + "/" + r.ID
}

// Conflict records a ResourceID that two tables name differently.
// The first name seen is the one that is kept.
type Conflict struct {
	ResourceID
	Kept    string
	Ignored string
	Table   string
}

// Match is the result of a containment lookup.
type Match struct {
	ResourceID
	Name string
	// Ambiguous holds the names of other entries whose
	// id also contained the fragment, in id order.
	Ambiguous []string
}

type table struct {
	names map[string]string
	ids   []string
	dirty bool
}

func (t *table) sorted() []string {
	if t.dirty {
		sort.Strings(t.ids)
		t.dirty = false
	}

	return t.ids
}

// Index maps ResourceIDs to real names.
type Index struct {
	types     map[string]*table
	conflicts []Conflict
}

func New() *Index {
	return &Index{types: map[string]*table{}}
}

// Add records name for id unless id is already named. It reports
// whether name was recorded.
func (x *Index) Add(id ResourceID, name, from string) bool {
	t, ok := x.types[id.Type]
	if !ok {
		t = &table{names: map[string]string{}}
		x.types[id.Type] = t
	}

	if kept, ok := t.names[id.ID]; ok {
		if kept != name {
			x.conflicts = append(x.conflicts, Conflict{
				ResourceID: id,
				Kept:       kept,
				Ignored:    name,
				Table:      from,
			})
		}

		return false
	}

	t.names[id.ID] = name
	t.ids = append(t.ids, id.ID)
	t.dirty = true

	return true
}

// Lookup returns the name recorded for exactly id.
func (x *Index) Lookup(id ResourceID) (string, bool) {
	t, ok := x.types[id.Type]
	if !ok {
		return "", false
	}

	name, ok := t.names[id.ID]
	return name, ok
}

// Contains returns the entry of typ with the lexically smallest id that
// contains fragment. Placeholders only carry a shortened identifier,
// so an exact lookup would never match them.
func (x *Index) Contains(typ, fragment string) (Match, bool) {
	t, ok := x.types[typ]
	if !ok || fragment == "" {
		return Match{}, false
	}

	var (
		match Match
		found bool
	)

	for _, id := range t.sorted() {
		if !strings.Contains(id, fragment) {
			continue
		}

		name := t.names[id]
		if !found {
			match = Match{ResourceID: ResourceID{Type: typ, ID: id}, Name: name}
			found = true
		} else if name != match.Name {
			match.Ambiguous = append(match.Ambiguous, name)
		}
	}

	return match, found
}

// Len returns the number of entries in the index.
func (x *Index) Len() int {
	n := 0
	for _, t := range x.types {
		n += len(t.ids)
	}

	return n
}

// Types returns the resource types in the index in lexical order.
func (x *Index) Types() []string {
	types := make([]string, 0, len(x.types))
	for typ := range x.types {
		types = append(types, typ)
	}

	sort.Strings(types)

	return types
}

// Conflicts returns every ResourceID that more than one table
// named differently, in the order they were found.
func (x *Index) Conflicts() []Conflict {
	return x.conflicts
}
