// Package pattern compiles GLSL snippets with named placeholders into
// immutable structural matchers and replacement templates.
//
// A pattern placeholder is written "<name:kind>" where kind is one of
// expression, identifier or literal:
//
//	gl_TextureMatrix[<index:literal>] * <coord:expression>
//
// A template placeholder is written "<name>" and interpolates a capture:
//
//	vec4(<coord>.xyz * 0.00390625 + 0.03125 * <coord>.w, <coord>.w)
//
// Patterns and templates are compiled once when a pipeline is built and are
// safe for concurrent use.
package pattern

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/HugoDaniel/glslpatch/internal/ast"
	"github.com/HugoDaniel/glslpatch/internal/parser"
)

// capturePrefix marks placeholder identifiers after substitution. The
// leading underscores are reserved in GLSL, so user code cannot collide.
const capturePrefix = "__capture_"

// CaptureKind is the grammar rule a placeholder must match.
type CaptureKind uint8

const (
	CaptureExpression CaptureKind = iota
	CaptureIdentifier
	CaptureLiteral
)

var captureKinds = map[string]CaptureKind{
	"expression": CaptureExpression,
	"identifier": CaptureIdentifier,
	"literal":    CaptureLiteral,
}

func (k CaptureKind) String() string {
	for name, kind := range captureKinds {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// Captures maps placeholder names to matched nodes.
type Captures map[string]ast.NodeID

// Predicate filters a captured node. A false result fails the whole match.
type Predicate func(tree *ast.Tree, id ast.NodeID) bool

var (
	patternHole  = regexp.MustCompile(`<([A-Za-z_][A-Za-z0-9_]*):([a-z]+)>`)
	templateHole = regexp.MustCompile(`<([A-Za-z_][A-Za-z0-9_]*)>`)
)

// ----------------------------------------------------------------------------
// Pattern
// ----------------------------------------------------------------------------

// Pattern is a compiled structural matcher.
type Pattern struct {
	source     string
	tree       *ast.Tree
	root       ast.NodeID
	captures   map[string]CaptureKind
	predicates map[string][]Predicate

	anchor      string
	anchorDepth int
}

// Compile parses src with rule into a pattern. The snippet must produce a
// single root node and contain at least one literal identifier to anchor
// candidate search.
func Compile(src string, rule parser.Rule) (*Pattern, error) {
	p := &Pattern{
		source:     src,
		captures:   make(map[string]CaptureKind),
		predicates: make(map[string][]Predicate),
	}

	var holeErr error
	text := patternHole.ReplaceAllStringFunc(src, func(m string) string {
		sub := patternHole.FindStringSubmatch(m)
		kind, ok := captureKinds[sub[2]]
		if !ok {
			holeErr = fmt.Errorf("pattern %q: unknown placeholder kind %q", src, sub[2])
			return m
		}
		if prev, seen := p.captures[sub[1]]; seen && prev != kind {
			holeErr = fmt.Errorf("pattern %q: placeholder %q redeclared as %s", src, sub[1], sub[2])
			return m
		}
		p.captures[sub[1]] = kind
		return capturePrefix + sub[1]
	})
	if holeErr != nil {
		return nil, holeErr
	}

	tree, root, err := parseSingle(text, rule)
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", src, err)
	}
	p.tree, p.root = tree, root

	p.anchorDepth = -1
	p.walkDepth(root, 0, func(id ast.NodeID, depth int) bool {
		if tree.Kind(id) == ast.KindIdent && !isHole(tree.Text(id)) {
			p.anchor, p.anchorDepth = tree.Text(id), depth
			return false
		}
		return true
	})
	if p.anchorDepth < 0 {
		return nil, fmt.Errorf("pattern %q: no identifier to anchor on", src)
	}
	return p, nil
}

// MustCompile is like Compile but panics on error. It is meant for patterns
// declared in package variables.
func MustCompile(src string, rule parser.Rule) *Pattern {
	p, err := Compile(src, rule)
	if err != nil {
		panic(err)
	}
	return p
}

// Where returns a copy of p that additionally requires pred to hold for the
// named capture.
func (p *Pattern) Where(name string, pred Predicate) *Pattern {
	if _, ok := p.captures[name]; !ok {
		panic(fmt.Sprintf("pattern %q: no placeholder %q", p.source, name))
	}
	cp := *p
	cp.predicates = make(map[string][]Predicate, len(p.predicates)+1)
	for k, v := range p.predicates {
		cp.predicates[k] = v
	}
	cp.predicates[name] = append(append([]Predicate(nil), p.predicates[name]...), pred)
	return &cp
}

// String returns the pattern source.
func (p *Pattern) String() string {
	return p.source
}

// Anchor returns the identifier used to locate candidates.
func (p *Pattern) Anchor() string {
	return p.anchor
}

// Candidates returns the nodes of tree where p could match: for each
// attached occurrence of the anchor identifier, the ancestor at the anchor's
// depth in the pattern.
func (p *Pattern) Candidates(tree *ast.Tree) []ast.NodeID {
	var out []ast.NodeID
	seen := make(map[ast.NodeID]bool)
	for _, occ := range tree.Occurrences(p.anchor) {
		c := tree.Ancestor(occ, p.anchorDepth)
		if c.IsValid() && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// Match reports whether the subtree at id has the pattern's shape, binding
// placeholders. A placeholder used twice must bind equal subtrees.
func (p *Pattern) Match(tree *ast.Tree, id ast.NodeID) (Captures, bool) {
	caps := make(Captures, len(p.captures))
	if !p.match(tree, p.root, id, caps) {
		return nil, false
	}
	for name, preds := range p.predicates {
		for _, pred := range preds {
			if !pred(tree, caps[name]) {
				return nil, false
			}
		}
	}
	return caps, true
}

func (p *Pattern) match(tree *ast.Tree, pn, id ast.NodeID, caps Captures) bool {
	pnode := p.tree.Node(pn)
	if pnode.Kind == ast.KindIdent && isHole(pnode.Text) {
		name := strings.TrimPrefix(pnode.Text, capturePrefix)
		if !kindAccepts(p.captures[name], tree.Kind(id)) {
			return false
		}
		if prev, ok := caps[name]; ok {
			return ast.Equal(tree, prev, tree, id)
		}
		caps[name] = id
		return true
	}

	n := tree.Node(id)
	if n.Kind != pnode.Kind || n.Text != pnode.Text || n.Lit != pnode.Lit ||
		len(n.Children) != len(pnode.Children) {
		return false
	}
	for i, pc := range pnode.Children {
		if !p.match(tree, pc, tree.Child(id, i), caps) {
			return false
		}
	}
	return true
}

func kindAccepts(want CaptureKind, got ast.Kind) bool {
	switch want {
	case CaptureIdentifier:
		return got == ast.KindIdent
	case CaptureLiteral:
		return got == ast.KindLiteral
	}
	return got.IsExpression()
}

func (p *Pattern) walkDepth(id ast.NodeID, depth int, visit func(ast.NodeID, int) bool) bool {
	if !visit(id, depth) {
		return false
	}
	for _, c := range p.tree.Children(id) {
		if !p.walkDepth(c, depth+1, visit) {
			return false
		}
	}
	return true
}

// Contains reports whether inner's shape occurs somewhere inside outer,
// treating inner's placeholders as wildcards. Used to check that layered
// rewrites are declared outermost first.
func Contains(outer, inner *Pattern) bool {
	found := false
	outer.tree.Walk(outer.root, func(id ast.NodeID) bool {
		if found {
			return false
		}
		if looseMatch(inner, inner.root, outer.tree, id) {
			found = true
		}
		return !found
	})
	return found
}

func looseMatch(inner *Pattern, pn ast.NodeID, tree *ast.Tree, id ast.NodeID) bool {
	pnode := inner.tree.Node(pn)
	if pnode.Kind == ast.KindIdent && isHole(pnode.Text) {
		return true
	}
	n := tree.Node(id)
	if n.Kind != pnode.Kind || n.Text != pnode.Text || len(n.Children) != len(pnode.Children) {
		return false
	}
	for i, pc := range pnode.Children {
		if !looseMatch(inner, pc, tree, tree.Child(id, i)) {
			return false
		}
	}
	return true
}

// ----------------------------------------------------------------------------
// Template
// ----------------------------------------------------------------------------

// Template is a parsed replacement with "<name>" holes.
type Template struct {
	source string
	tree   *ast.Tree
	root   ast.NodeID
	holes  []string
}

// NewTemplate parses src with rule into a replacement template.
func NewTemplate(src string, rule parser.Rule) (*Template, error) {
	tp := &Template{source: src}
	seen := make(map[string]bool)
	text := templateHole.ReplaceAllStringFunc(src, func(m string) string {
		name := templateHole.FindStringSubmatch(m)[1]
		if !seen[name] {
			seen[name] = true
			tp.holes = append(tp.holes, name)
		}
		return capturePrefix + name
	})
	tree, root, err := parseSingle(text, rule)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", src, err)
	}
	tp.tree, tp.root = tree, root
	return tp, nil
}

// MustTemplate is like NewTemplate but panics on error.
func MustTemplate(src string, rule parser.Rule) *Template {
	tp, err := NewTemplate(src, rule)
	if err != nil {
		panic(err)
	}
	return tp
}

// String returns the template source.
func (tp *Template) String() string {
	return tp.source
}

// Holes returns the placeholder names in first-use order.
func (tp *Template) Holes() []string {
	return tp.holes
}

// Instantiate builds a detached copy of the template inside dst, replacing
// each hole with a clone of the captured node. Captures refer to nodes of
// dst.
func (tp *Template) Instantiate(dst *ast.Tree, caps Captures) (ast.NodeID, error) {
	for _, h := range tp.holes {
		if _, ok := caps[h]; !ok {
			return ast.NoNode, fmt.Errorf("template %q: no capture for <%s>", tp.source, h)
		}
	}
	root := dst.Import(tp.tree, tp.root)
	if name, ok := holeName(dst, root); ok {
		return dst.Clone(caps[name]), nil
	}

	var holes []ast.NodeID
	dst.Walk(root, func(id ast.NodeID) bool {
		if _, ok := holeName(dst, id); ok {
			holes = append(holes, id)
		}
		return true
	})
	for _, id := range holes {
		name, _ := holeName(dst, id)
		dst.Replace(id, dst.Clone(caps[name]))
	}
	return root, nil
}

func holeName(tree *ast.Tree, id ast.NodeID) (string, bool) {
	if tree.Kind(id) != ast.KindIdent || !isHole(tree.Text(id)) {
		return "", false
	}
	return strings.TrimPrefix(tree.Text(id), capturePrefix), true
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

func isHole(name string) bool {
	return strings.HasPrefix(name, capturePrefix)
}

// parseSingle parses text and returns its only top-level node, with source
// positions cleared so copies never point into the snippet.
func parseSingle(text string, rule parser.Rule) (*ast.Tree, ast.NodeID, error) {
	tree, errs := parser.ParseFragment(text, rule)
	if len(errs) > 0 {
		return nil, ast.NoNode, errs[0]
	}
	kids := tree.Children(tree.Root())
	if len(kids) != 1 {
		return nil, ast.NoNode, fmt.Errorf("expected exactly one node, got %d", len(kids))
	}
	tree.Walk(kids[0], func(id ast.NodeID) bool {
		tree.SetPos(id, -1)
		return true
	})
	return tree, kids[0], nil
}

// ----------------------------------------------------------------------------
// Predicates
// ----------------------------------------------------------------------------

// NonNegativeInt accepts integer literals >= 0.
func NonNegativeInt(tree *ast.Tree, id ast.NodeID) bool {
	v, ok := tree.IntLiteralValue(id)
	return ok && v >= 0
}

// IntIn accepts integer literals with one of the given values.
func IntIn(values ...int) Predicate {
	return func(tree *ast.Tree, id ast.NodeID) bool {
		v, ok := tree.IntLiteralValue(id)
		if !ok {
			return false
		}
		for _, want := range values {
			if v == want {
				return true
			}
		}
		return false
	}
}

// IdentIn accepts identifiers with one of the given names.
func IdentIn(names ...string) Predicate {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(tree *ast.Tree, id ast.NodeID) bool {
		return tree.Kind(id) == ast.KindIdent && set[tree.Text(id)]
	}
}
