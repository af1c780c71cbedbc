package ast

import (
	"slices"
	"strings"

	"github.com/tidwall/btree"
)

// identIndex maps identifier names to the attached KindIdent nodes carrying
// them. Names are kept ordered so prefix queries are range scans.
type identIndex struct {
	names btree.Map[string, map[NodeID]struct{}]
}

func (x *identIndex) add(name string, id NodeID) {
	set, ok := x.names.Get(name)
	if !ok {
		set = make(map[NodeID]struct{})
		x.names.Set(name, set)
	}
	set[id] = struct{}{}
}

func (x *identIndex) remove(name string, id NodeID) {
	set, ok := x.names.Get(name)
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		x.names.Delete(name)
	}
}

// Occurrences returns the attached identifier nodes named name, ordered by ID.
func (t *Tree) Occurrences(name string) []NodeID {
	set, ok := t.idents.names.Get(name)
	if !ok {
		return nil
	}
	ids := make([]NodeID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Count returns how many attached identifiers are named name.
func (t *Tree) Count(name string) int {
	set, _ := t.idents.names.Get(name)
	return len(set)
}

// HasIdent reports whether any attached identifier is named name.
func (t *Tree) HasIdent(name string) bool {
	return t.Count(name) > 0
}

// NamesWithPrefix returns the distinct attached identifier names starting
// with prefix, in lexical order.
func (t *Tree) NamesWithPrefix(prefix string) []string {
	var names []string
	t.idents.names.Ascend(prefix, func(name string, _ map[NodeID]struct{}) bool {
		if !strings.HasPrefix(name, prefix) {
			return false
		}
		names = append(names, name)
		return true
	})
	return names
}

// Names returns every distinct attached identifier name in lexical order.
func (t *Tree) Names() []string {
	names := make([]string, 0, t.idents.names.Len())
	t.idents.names.Scan(func(name string, _ map[NodeID]struct{}) bool {
		names = append(names, name)
		return true
	})
	return names
}
