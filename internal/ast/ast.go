// Package ast defines the syntax tree for preprocessed GLSL.
//
// The tree is designed to be:
// - Flat: nodes live in an arena and refer to each other by NodeID
// - Indexed: every attached identifier is reachable by name without a walk
// - Transformable: subtrees can be detached, replaced and imported between trees
//
// A node is attached when it is reachable from the tree root. Only attached
// identifiers are present in the identifier index, so a subtree that has been
// replaced or removed never shows up in lookups.
package ast

import "fmt"

// ----------------------------------------------------------------------------
// Node IDs
// ----------------------------------------------------------------------------

// NodeID addresses a node inside a Tree. The zero value is NoNode.
type NodeID uint32

// NoNode is the invalid node handle.
const NoNode NodeID = 0

// IsValid reports whether id refers to a node.
func (id NodeID) IsValid() bool {
	return id != NoNode
}

// ----------------------------------------------------------------------------
// Kinds
// ----------------------------------------------------------------------------

// Kind identifies the syntactic category of a node.
type Kind uint8

const (
	KindInvalid Kind = iota

	// Top level
	KindTranslationUnit
	KindVersion   // Text: number, Aux: profile
	KindDirective // Text: directive line without '#'
	KindPrecision // Text: precision qualifier, [TypeSpec]

	// Declarations
	KindDeclaration // [Qualifiers, TypeSpec?, Declarator...] or [Qualifiers, Block]
	KindQualifiers  // [Qualifier | Layout ...]
	KindQualifier   // Text: keyword
	KindLayout      // [LayoutParam...]
	KindLayoutParam // Text: name, [value?]
	KindTypeSpec    // Text: type name, [StructSpec?, ArraySpec...]
	KindStructSpec  // Text: struct name (may be empty), [Declaration...]
	KindBlock       // Text: block name, [Declaration..., Declarator?]
	KindDeclarator  // [Ident, ArraySpec..., initializer?]
	KindArraySpec   // [size?]
	KindInitList    // [expr...]

	// Functions
	KindFunctionDef // [Prototype, Compound]
	KindPrototype   // [TypeSpec, Ident, Param...]
	KindParam       // [Qualifiers, TypeSpec, Ident?, ArraySpec...]

	// Statements
	KindCompound
	KindDeclStmt // [Declaration]
	KindExprStmt // [expr]
	KindEmpty
	KindIf       // [cond, then, else?]
	KindWhile    // [cond, body]
	KindDoWhile  // [body, cond]
	KindFor      // [init, cond, update, body]; absent parts are KindEmpty
	KindSwitch   // [expr, Compound]
	KindCase     // [expr]
	KindDefault
	KindReturn // [expr?]
	KindBreak
	KindContinue
	KindDiscard

	// Expressions
	KindIdent    // Text: name
	KindLiteral  // Text: literal as written, Lit: literal kind
	KindBinary   // Text: operator, [left, right]
	KindAssign   // Text: operator, [target, value]
	KindUnary    // Text: operator, [operand]
	KindPostfix  // Text: operator, [operand]
	KindTernary  // [cond, then, else]
	KindCall     // [callee, args...]
	KindMember   // Text: field, [base]
	KindIndex    // [base, index]
	KindSequence // [left, right]
)

var kindNames = [...]string{
	KindInvalid:         "invalid",
	KindTranslationUnit: "translation-unit",
	KindVersion:         "version",
	KindDirective:       "directive",
	KindPrecision:       "precision",
	KindDeclaration:     "declaration",
	KindQualifiers:      "qualifiers",
	KindQualifier:       "qualifier",
	KindLayout:          "layout",
	KindLayoutParam:     "layout-param",
	KindTypeSpec:        "type",
	KindStructSpec:      "struct",
	KindBlock:           "block",
	KindDeclarator:      "declarator",
	KindArraySpec:       "array",
	KindInitList:        "init-list",
	KindFunctionDef:     "function",
	KindPrototype:       "prototype",
	KindParam:           "param",
	KindCompound:        "compound",
	KindDeclStmt:        "decl-stmt",
	KindExprStmt:        "expr-stmt",
	KindEmpty:           "empty",
	KindIf:              "if",
	KindWhile:           "while",
	KindDoWhile:         "do-while",
	KindFor:             "for",
	KindSwitch:          "switch",
	KindCase:            "case",
	KindDefault:         "default",
	KindReturn:          "return",
	KindBreak:           "break",
	KindContinue:        "continue",
	KindDiscard:         "discard",
	KindIdent:           "ident",
	KindLiteral:         "literal",
	KindBinary:          "binary",
	KindAssign:          "assign",
	KindUnary:           "unary",
	KindPostfix:         "postfix",
	KindTernary:         "ternary",
	KindCall:            "call",
	KindMember:          "member",
	KindIndex:           "index",
	KindSequence:        "sequence",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// IsExpression reports whether nodes of this kind are expressions.
func (k Kind) IsExpression() bool {
	return k >= KindIdent && k <= KindSequence
}

// IsStatement reports whether nodes of this kind are statements.
func (k Kind) IsStatement() bool {
	return k >= KindCompound && k <= KindDiscard
}

// LiteralKind distinguishes literal nodes.
type LiteralKind uint8

const (
	LitNone LiteralKind = iota
	LitInt
	LitUint
	LitFloat
	LitBool
)

// ----------------------------------------------------------------------------
// Node
// ----------------------------------------------------------------------------

// Node is one arena slot. Parent is a plain index back-reference; only the
// Children slice expresses ownership.
type Node struct {
	Kind     Kind
	Lit      LiteralKind
	Text     string
	Aux      string
	Parent   NodeID
	Children []NodeID
	Pos      int // byte offset in the parsed source, -1 when synthesized

	attached bool
}

// ----------------------------------------------------------------------------
// Tree
// ----------------------------------------------------------------------------

// Tree owns an arena of nodes rooted at a translation unit.
type Tree struct {
	nodes  []Node
	root   NodeID
	idents identIndex
}

// New creates an empty tree holding only its translation-unit root.
func New() *Tree {
	t := &Tree{nodes: make([]Node, 1, 64)}
	t.root = t.alloc(Node{Kind: KindTranslationUnit, Pos: -1})
	t.nodes[t.root].attached = true
	return t
}

func (t *Tree) alloc(n Node) NodeID {
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

// Root returns the translation-unit node.
func (t *Tree) Root() NodeID {
	return t.root
}

// Len returns the number of allocated nodes, attached or not.
func (t *Tree) Len() int {
	return len(t.nodes) - 1
}

// Node returns the node for id. The returned pointer is invalidated by the
// next allocation; structural edits must go through Tree methods.
func (t *Tree) Node(id NodeID) *Node {
	return &t.nodes[id]
}

// Kind returns the kind of id.
func (t *Tree) Kind(id NodeID) Kind {
	if !id.IsValid() || int(id) >= len(t.nodes) {
		return KindInvalid
	}
	return t.nodes[id].Kind
}

// Text returns the text payload of id.
func (t *Tree) Text(id NodeID) string {
	return t.nodes[id].Text
}

// Parent returns the parent of id, or NoNode for detached subtree roots.
func (t *Tree) Parent(id NodeID) NodeID {
	return t.nodes[id].Parent
}

// Children returns the children of id. The slice must not be modified.
func (t *Tree) Children(id NodeID) []NodeID {
	return t.nodes[id].Children
}

// Child returns the i-th child of id, or NoNode when out of range.
func (t *Tree) Child(id NodeID, i int) NodeID {
	c := t.nodes[id].Children
	if i < 0 || i >= len(c) {
		return NoNode
	}
	return c[i]
}

// Attached reports whether id is reachable from the root.
func (t *Tree) Attached(id NodeID) bool {
	return t.nodes[id].attached
}

// IndexOf returns the position of child among its parent's children, or -1.
func (t *Tree) IndexOf(child NodeID) int {
	p := t.nodes[child].Parent
	if !p.IsValid() {
		return -1
	}
	for i, c := range t.nodes[p].Children {
		if c == child {
			return i
		}
	}
	return -1
}

// ----------------------------------------------------------------------------
// Construction
// ----------------------------------------------------------------------------

// NewNode allocates a detached node that adopts the given detached children.
func (t *Tree) NewNode(kind Kind, text string, children ...NodeID) NodeID {
	id := t.alloc(Node{Kind: kind, Text: text, Pos: -1})
	for _, c := range children {
		t.adopt(id, c)
	}
	if len(children) > 0 {
		t.nodes[id].Children = append([]NodeID(nil), children...)
	}
	return id
}

// NewLiteral allocates a detached literal node.
func (t *Tree) NewLiteral(kind LiteralKind, text string) NodeID {
	id := t.NewNode(KindLiteral, text)
	t.nodes[id].Lit = kind
	return id
}

// SetPos records the source offset of id.
func (t *Tree) SetPos(id NodeID, pos int) {
	t.nodes[id].Pos = pos
}

// SetAux sets the auxiliary text of id.
func (t *Tree) SetAux(id NodeID, aux string) {
	t.nodes[id].Aux = aux
}

func (t *Tree) adopt(parent, child NodeID) {
	n := &t.nodes[child]
	if n.Parent.IsValid() || n.attached {
		panic(fmt.Sprintf("ast: node %d (%s) already has a parent", child, n.Kind))
	}
	n.Parent = parent
}

// ----------------------------------------------------------------------------
// Structural Edits
// ----------------------------------------------------------------------------

// Append adds a detached subtree as the last child of parent.
func (t *Tree) Append(parent, child NodeID) {
	t.Insert(parent, len(t.nodes[parent].Children), child)
}

// Insert adds a detached subtree as the index-th child of parent.
func (t *Tree) Insert(parent NodeID, index int, child NodeID) {
	t.adopt(parent, child)
	kids := t.nodes[parent].Children
	if index < 0 || index > len(kids) {
		panic(fmt.Sprintf("ast: insert index %d out of range [0,%d]", index, len(kids)))
	}
	kids = append(kids, NoNode)
	copy(kids[index+1:], kids[index:])
	kids[index] = child
	t.nodes[parent].Children = kids
	if t.nodes[parent].attached {
		t.setAttached(child, true)
	}
}

// Detach unlinks id from its parent. The subtree stays in the arena and can
// be re-inserted or imported elsewhere.
func (t *Tree) Detach(id NodeID) {
	p := t.nodes[id].Parent
	if !p.IsValid() {
		return
	}
	kids := t.nodes[p].Children
	for i, c := range kids {
		if c == id {
			t.nodes[p].Children = append(kids[:i:i], kids[i+1:]...)
			break
		}
	}
	t.nodes[id].Parent = NoNode
	if t.nodes[id].attached {
		t.setAttached(id, false)
	}
}

// Replace puts the detached subtree repl into old's slot and returns old,
// which is left detached.
func (t *Tree) Replace(old, repl NodeID) NodeID {
	p := t.nodes[old].Parent
	if !p.IsValid() {
		panic(fmt.Sprintf("ast: cannot replace parentless node %d", old))
	}
	t.adopt(p, repl)
	for i, c := range t.nodes[p].Children {
		if c == old {
			t.nodes[p].Children[i] = repl
			break
		}
	}
	t.nodes[old].Parent = NoNode
	if t.nodes[old].attached {
		t.setAttached(old, false)
		t.setAttached(repl, true)
	}
	return old
}

// SetText changes the text payload of id, keeping the identifier index in
// sync when id is an attached identifier.
func (t *Tree) SetText(id NodeID, text string) {
	n := &t.nodes[id]
	if n.Kind == KindIdent && n.attached {
		t.idents.remove(n.Text, id)
		t.idents.add(text, id)
	}
	n.Text = text
}

func (t *Tree) setAttached(root NodeID, attached bool) {
	t.Walk(root, func(id NodeID) bool {
		n := &t.nodes[id]
		if n.attached == attached {
			return true
		}
		n.attached = attached
		if n.Kind == KindIdent {
			if attached {
				t.idents.add(n.Text, id)
			} else {
				t.idents.remove(n.Text, id)
			}
		}
		return true
	})
}

// ----------------------------------------------------------------------------
// Traversal
// ----------------------------------------------------------------------------

// Walk visits root and its descendants in pre-order (enter order). Returning
// false from visit skips the node's children.
func (t *Tree) Walk(root NodeID, visit func(id NodeID) bool) {
	stack := []NodeID{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visit(id) {
			continue
		}
		kids := t.nodes[id].Children
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
}

// Ancestor returns the n-th ancestor of id (0 is id itself), or NoNode.
func (t *Tree) Ancestor(id NodeID, n int) NodeID {
	for ; n > 0 && id.IsValid(); n-- {
		id = t.nodes[id].Parent
	}
	return id
}

// EnclosingOf returns the closest ancestor of id (excluding id) with the
// given kind, or NoNode.
func (t *Tree) EnclosingOf(id NodeID, kind Kind) NodeID {
	for p := t.nodes[id].Parent; p.IsValid(); p = t.nodes[p].Parent {
		if t.nodes[p].Kind == kind {
			return p
		}
	}
	return NoNode
}

// Depth returns the number of edges between id and its subtree root.
func (t *Tree) Depth(id NodeID) int {
	d := 0
	for p := t.nodes[id].Parent; p.IsValid(); p = t.nodes[p].Parent {
		d++
	}
	return d
}

// ----------------------------------------------------------------------------
// Copying
// ----------------------------------------------------------------------------

// Import deep-copies the subtree at id from src into t and returns the
// detached copy. src may be t itself.
func (t *Tree) Import(src *Tree, id NodeID) NodeID {
	n := src.nodes[id]
	kids := make([]NodeID, len(n.Children))
	for i, c := range n.Children {
		kids[i] = t.Import(src, c)
	}
	cp := t.NewNode(n.Kind, n.Text, kids...)
	t.nodes[cp].Lit = n.Lit
	t.nodes[cp].Aux = n.Aux
	t.nodes[cp].Pos = n.Pos
	return cp
}

// Clone deep-copies a subtree of t.
func (t *Tree) Clone(id NodeID) NodeID {
	return t.Import(t, id)
}

// Equal reports whether two subtrees have the same shape and payloads.
// Source positions are ignored.
func Equal(a *Tree, x NodeID, b *Tree, y NodeID) bool {
	nx, ny := &a.nodes[x], &b.nodes[y]
	if nx.Kind != ny.Kind || nx.Text != ny.Text || nx.Aux != ny.Aux ||
		nx.Lit != ny.Lit || len(nx.Children) != len(ny.Children) {
		return false
	}
	for i := range nx.Children {
		if !Equal(a, nx.Children[i], b, ny.Children[i]) {
			return false
		}
	}
	return true
}
