// Package transform provides the pass primitives and the schedule that runs
// patch passes over one shader-stage tree.
//
// A Context is created once per process and shared by concurrent jobs: it
// owns the bounded caches of parsed fragments and replacement templates. A
// Job holds everything that belongs to one shader stage: the tree, the
// immutable Parameters, the derived Flags and the injection bookkeeping.
// Passes are stateless values; they keep their scratch state on the Job.
package transform

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/HugoDaniel/glslpatch/internal/ast"
	"github.com/HugoDaniel/glslpatch/internal/cache"
	"github.com/HugoDaniel/glslpatch/internal/diagnostic"
	"github.com/HugoDaniel/glslpatch/internal/params"
	"github.com/HugoDaniel/glslpatch/internal/parser"
	"github.com/HugoDaniel/glslpatch/internal/pattern"
)

var log = commonlog.GetLogger("glslpatch.transform")

// ----------------------------------------------------------------------------
// Flags
// ----------------------------------------------------------------------------

// Flags are facts derived while a job runs. Activation predicates read them
// to decide whether later passes apply.
type Flags uint32

const (
	// FlagChunkOffsetApplied is set once the chunk offset has been folded
	// into the vertex position.
	FlagChunkOffsetApplied Flags = 1 << iota

	// FlagFragOutputNormalized is set when location 0 is bound to
	// iris_FragData0.
	FlagFragOutputNormalized

	// FlagMainWrapped is set after the first main wrapper.
	FlagMainWrapped

	// FlagWideLinesApplied is set when the modelview matrix was shrunk for
	// line rendering.
	FlagWideLinesApplied
)

// Has reports whether all bits of x are set.
func (f Flags) Has(x Flags) bool {
	return f&x == x
}

// ----------------------------------------------------------------------------
// Pass
// ----------------------------------------------------------------------------

// Pass is one named rewrite step.
type Pass interface {
	Name() string

	// Active is evaluated just before the pass would run. It must be a pure
	// function of its arguments.
	Active(p params.Parameters, flags Flags) bool

	Run(job *Job) error
}

// ----------------------------------------------------------------------------
// Context
// ----------------------------------------------------------------------------

// Context is the process-wide state shared by jobs.
type Context struct {
	fragments *cache.LRU[cache.Key, *ast.Tree]
	templates *cache.LRU[string, *pattern.Template]
}

// NewContext creates a context whose caches hold at most cacheSize entries
// each. A non-positive size selects cache.DefaultSize.
func NewContext(cacheSize int) (*Context, error) {
	if cacheSize <= 0 {
		cacheSize = cache.DefaultSize
	}
	fragments, err := cache.New[cache.Key, *ast.Tree](cacheSize)
	if err != nil {
		return nil, err
	}
	templates, err := cache.New[string, *pattern.Template](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Context{fragments: fragments, templates: templates}, nil
}

// CacheStats reports fragment and template cache traffic.
func (c *Context) CacheStats() (fragments, templates cache.Stats) {
	return c.fragments.Stats(), c.templates.Stats()
}

// Template returns the compiled expression template for text.
func (c *Context) Template(text string) (*pattern.Template, error) {
	return c.templates.GetOrCreate(text, func() (*pattern.Template, error) {
		tp, err := pattern.NewTemplate(text, parser.RuleExpression)
		if err != nil {
			return nil, diagnostic.Internalf("%v", err)
		}
		return tp, nil
	})
}

// fragment returns the parsed external declarations of text, cached under
// key. The returned tree is shared and must only be read.
func (c *Context) fragment(key cache.Key, text string) (*ast.Tree, error) {
	return c.fragments.GetOrCreate(key, func() (*ast.Tree, error) {
		log.Debugf("parsing fragment %s", key)
		tree, errs := parser.ParseFragment(text, parser.RuleExternalDeclarations)
		if len(errs) > 0 {
			return nil, diagnostic.Internalf("fragment %s: %v", key, errs[0])
		}
		tree.Walk(tree.Root(), func(id ast.NodeID) bool {
			tree.SetPos(id, -1)
			return true
		})
		return tree, nil
	})
}

// ----------------------------------------------------------------------------
// Job
// ----------------------------------------------------------------------------

// Stats counts what a job changed.
type Stats struct {
	PassesRun []string
	Rewrites  int
	Injected  int
	Renamed   int
}

// Job is one shader stage being patched.
type Job struct {
	Tree   *ast.Tree
	Params params.Parameters
	Flags  Flags
	Stats  Stats

	ctx   *Context
	lines *diagnostic.LineIndex
	pass  string

	wraps    int
	injected [injectionPointCount]int
	warnings *diagnostic.DiagnosticList
}

// NewJob creates a job over tree, which was parsed from source.
func NewJob(ctx *Context, tree *ast.Tree, p params.Parameters, source string) *Job {
	return &Job{
		Tree:     tree,
		Params:   p,
		ctx:      ctx,
		lines:    diagnostic.NewLineIndex(source),
		warnings: diagnostic.NewDiagnosticList(source),
	}
}

// Context returns the shared context.
func (j *Job) Context() *Context {
	return j.ctx
}

// Pass returns the name of the running pass.
func (j *Job) Pass() string {
	return j.pass
}

// WrapDepth returns how many main wrappers have been applied.
func (j *Job) WrapDepth() int {
	return j.wraps
}

// Warnings returns the non-fatal diagnostics recorded so far.
func (j *Job) Warnings() *diagnostic.DiagnosticList {
	return j.warnings
}

// Warn records a non-fatal diagnostic at node id.
func (j *Job) Warn(id ast.NodeID, code diagnostic.Code, format string, args ...any) {
	j.warnings.AddWarning(j.pos(id), code, fmt.Sprintf(format, args...))
}

// Errorf creates a SemanticError located at node id, tagged with the job's
// stage and patch kind. id may be ast.NoNode.
func (j *Job) Errorf(kind diagnostic.ErrorKind, id ast.NodeID, format string, args ...any) *diagnostic.SemanticError {
	err := diagnostic.Errorf(kind, format, args...).At(j.lines, j.pos(id))
	err.Stage = j.Params.Stage().String()
	err.Patch = j.Params.Kind().String()
	return err
}

func (j *Job) pos(id ast.NodeID) int {
	if !id.IsValid() {
		return -1
	}
	return j.Tree.Node(id).Pos
}

// ----------------------------------------------------------------------------
// Tree Helpers
// ----------------------------------------------------------------------------

// ReplaceIdent replaces every non-declaring occurrence of name with a fresh
// copy of the expression text and returns how many were replaced.
func (j *Job) ReplaceIdent(name, text string) (int, error) {
	occ := j.Tree.Occurrences(name)
	if len(occ) == 0 {
		return 0, nil
	}
	tp, err := j.ctx.Template(text)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range occ {
		if j.Tree.IsDeclaringIdent(id) {
			continue
		}
		repl, err := tp.Instantiate(j.Tree, nil)
		if err != nil {
			return n, diagnostic.Internalf("%v", err)
		}
		j.Tree.Replace(id, repl)
		n++
	}
	j.Stats.Rewrites += n
	return n, nil
}

// Declaration returns the top-level declaration or function that declares
// name, or ast.NoNode.
func (j *Job) Declaration(name string) ast.NodeID {
	t := j.Tree
	root := t.Root()
	for _, id := range t.Occurrences(name) {
		if !t.IsDeclaringIdent(id) {
			continue
		}
		p := t.Parent(id)
		switch t.Kind(p) {
		case ast.KindDeclarator:
			decl := t.Parent(p)
			if t.Kind(decl) == ast.KindBlock {
				decl = t.Parent(decl)
			}
			if t.Kind(decl) == ast.KindDeclaration && t.Parent(decl) == root {
				return decl
			}
		case ast.KindPrototype:
			if t.Parent(p) == root {
				return p
			}
			if fn := t.Parent(p); t.Kind(fn) == ast.KindFunctionDef && t.Parent(fn) == root {
				return fn
			}
		}
	}
	return ast.NoNode
}

// RemoveDeclarator removes the declarator of name from its top-level
// declaration, removing the whole declaration when it was the only one.
func (j *Job) RemoveDeclarator(name string) bool {
	decl := j.Declaration(name)
	if !decl.IsValid() || j.Tree.Kind(decl) != ast.KindDeclaration {
		return false
	}
	decls := j.Tree.Declarators(decl)
	for _, d := range decls {
		if j.Tree.Text(j.Tree.Child(d, 0)) != name {
			continue
		}
		if len(decls) == 1 {
			j.Tree.Detach(decl)
		} else {
			j.Tree.Detach(d)
		}
		return true
	}
	return false
}
