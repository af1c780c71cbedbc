// Package renamer rewrites identifiers through the tree's identifier index.
//
// The renamer:
// - Finds occurrences by name without walking the tree
// - Filters occurrences with a Predicate on their syntactic position
// - Keeps the identifier index in sync with every rewrite
package renamer

import (
	"strconv"

	"github.com/HugoDaniel/glslpatch/internal/ast"
)

// ----------------------------------------------------------------------------
// Predicates
// ----------------------------------------------------------------------------

// Predicate selects which occurrences of a name are rewritten.
type Predicate func(tree *ast.Tree, id ast.NodeID) bool

// All accepts every occurrence.
func All(*ast.Tree, ast.NodeID) bool { return true }

// CallTargets accepts identifiers used as the callee of a call.
func CallTargets(tree *ast.Tree, id ast.NodeID) bool {
	return tree.IsCallTarget(id)
}

// NotCallTargets accepts identifiers not used as a callee.
func NotCallTargets(tree *ast.Tree, id ast.NodeID) bool {
	return !tree.IsCallTarget(id)
}

// NotMembers accepts identifiers that are neither callees nor struct or
// block member declarations.
func NotMembers(tree *ast.Tree, id ast.NodeID) bool {
	return !tree.IsCallTarget(id) && !tree.IsMemberDeclaration(id)
}

// ----------------------------------------------------------------------------
// Rename
// ----------------------------------------------------------------------------

// Rename rewrites the occurrences of oldName accepted by pred to newName and
// returns how many were rewritten. Occurrences rejected by pred keep their
// name.
func Rename(tree *ast.Tree, oldName, newName string, pred Predicate) int {
	if oldName == newName {
		return 0
	}
	n := 0
	// Occurrences returns a snapshot, so SetText may update the index while
	// we iterate.
	for _, id := range tree.Occurrences(oldName) {
		if pred(tree, id) {
			tree.SetText(id, newName)
			n++
		}
	}
	return n
}

// RenameMap applies Rename for every entry of renames. Entries are applied
// independently: a name produced by one entry is not renamed again by
// another.
func RenameMap(tree *ast.Tree, renames map[string]string, pred Predicate) int {
	var targets []struct {
		id   ast.NodeID
		name string
	}
	for oldName, newName := range renames {
		if oldName == newName {
			continue
		}
		for _, id := range tree.Occurrences(oldName) {
			if pred(tree, id) {
				targets = append(targets, struct {
					id   ast.NodeID
					name string
				}{id, newName})
			}
		}
	}
	for _, t := range targets {
		tree.SetText(t.id, t.name)
	}
	return len(targets)
}

// ----------------------------------------------------------------------------
// Name Generation
// ----------------------------------------------------------------------------

// Fresh returns prefix followed by the smallest non-negative number such
// that the name does not occur in tree.
func Fresh(tree *ast.Tree, prefix string) string {
	for n := 0; ; n++ {
		name := prefix + strconv.Itoa(n)
		if !tree.HasIdent(name) {
			return name
		}
	}
}
