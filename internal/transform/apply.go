package transform

import (
	"fmt"
	"sort"

	"github.com/HugoDaniel/glslpatch/internal/ast"
	"github.com/HugoDaniel/glslpatch/internal/pattern"
)

// ----------------------------------------------------------------------------
// Match and Replace
// ----------------------------------------------------------------------------

// Match is one successful pattern match.
type Match struct {
	Node     ast.NodeID
	Captures pattern.Captures
}

// Rewrite builds the replacement for a match as a detached subtree of the
// job's tree. Returning ast.NoNode leaves the match untouched.
type Rewrite func(job *Job, m Match) (ast.NodeID, error)

// Layer pairs a pattern with its rewrite.
type Layer struct {
	Pattern *pattern.Pattern
	Rewrite Rewrite
}

// Layers is an ordered list of rewrites over nested forms of the same
// construct. Layers run in declared order, so an outer form must be listed
// before the forms it contains: once an inner layer rewrites its part, the
// outer shape no longer exists and the outer layer would never match.
type Layers struct {
	layers []Layer
}

// NewLayers validates the nesting order: no layer may contain the shape of
// a layer declared before it.
func NewLayers(layers ...Layer) (*Layers, error) {
	for i, earlier := range layers {
		for _, later := range layers[i+1:] {
			if pattern.Contains(later.Pattern, earlier.Pattern) && !pattern.Contains(earlier.Pattern, later.Pattern) {
				return nil, fmt.Errorf("layer %q is nested in %q and must be declared after it",
					earlier.Pattern, later.Pattern)
			}
		}
	}
	return &Layers{layers: layers}, nil
}

// MustLayers is like NewLayers but panics on error.
func MustLayers(layers ...Layer) *Layers {
	ls, err := NewLayers(layers...)
	if err != nil {
		panic(err)
	}
	return ls
}

// Replace returns a Rewrite that instantiates tp with the match captures.
func Replace(tp *pattern.Template) Rewrite {
	return func(job *Job, m Match) (ast.NodeID, error) {
		return tp.Instantiate(job.Tree, m.Captures)
	}
}

// ReplaceText is Replace with a template compiled through the context cache.
func ReplaceText(text string) Rewrite {
	return func(job *Job, m Match) (ast.NodeID, error) {
		tp, err := job.ctx.Template(text)
		if err != nil {
			return ast.NoNode, err
		}
		return tp.Instantiate(job.Tree, m.Captures)
	}
}

// Apply runs each layer over the tree in order and returns the number of
// replacements. Within a layer, deeper candidates are rewritten first so a
// match nested in another match's capture is rewritten before being copied.
func (j *Job) Apply(ls *Layers) (int, error) {
	total := 0
	for _, layer := range ls.layers {
		cands := layer.Pattern.Candidates(j.Tree)
		depth := make(map[ast.NodeID]int, len(cands))
		for _, c := range cands {
			depth[c] = j.Tree.Depth(c)
		}
		sort.SliceStable(cands, func(a, b int) bool {
			return depth[cands[a]] > depth[cands[b]]
		})

		for _, c := range cands {
			if !j.Tree.Attached(c) {
				continue
			}
			caps, ok := layer.Pattern.Match(j.Tree, c)
			if !ok {
				continue
			}
			repl, err := layer.Rewrite(j, Match{Node: c, Captures: caps})
			if err != nil {
				return total, err
			}
			if !repl.IsValid() {
				continue
			}
			j.Tree.Replace(c, repl)
			total++
		}
	}
	j.Stats.Rewrites += total
	return total, nil
}
