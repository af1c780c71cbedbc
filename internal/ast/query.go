package ast

// ----------------------------------------------------------------------------
// Identifier Roles
// ----------------------------------------------------------------------------

// IsCallTarget reports whether the identifier id is the callee of a call.
func (t *Tree) IsCallTarget(id NodeID) bool {
	p := t.nodes[id].Parent
	return p.IsValid() && t.nodes[p].Kind == KindCall && t.nodes[p].Children[0] == id
}

// IsDeclaringIdent reports whether id is the name slot of a variable
// declarator, function prototype or parameter.
func (t *Tree) IsDeclaringIdent(id NodeID) bool {
	p := t.nodes[id].Parent
	if !p.IsValid() {
		return false
	}
	switch t.nodes[p].Kind {
	case KindDeclarator:
		return t.nodes[p].Children[0] == id
	case KindPrototype:
		return len(t.nodes[p].Children) > 1 && t.nodes[p].Children[1] == id
	case KindParam:
		return len(t.nodes[p].Children) > 2 && t.nodes[p].Children[2] == id
	}
	return false
}

// IsMemberDeclaration reports whether id declares a struct or block member.
func (t *Tree) IsMemberDeclaration(id NodeID) bool {
	if !t.IsDeclaringIdent(id) {
		return false
	}
	return t.EnclosingOf(id, KindStructSpec).IsValid() || t.EnclosingOf(id, KindBlock).IsValid()
}

// ----------------------------------------------------------------------------
// Declarations
// ----------------------------------------------------------------------------

// TopLevel returns the children of the root.
func (t *Tree) TopLevel() []NodeID {
	return t.nodes[t.root].Children
}

// Qualifiers returns the qualifier keywords of a declaration or parameter.
func (t *Tree) Qualifiers(decl NodeID) []string {
	q := t.Child(decl, 0)
	if t.Kind(q) != KindQualifiers {
		return nil
	}
	var words []string
	for _, c := range t.nodes[q].Children {
		if t.nodes[c].Kind == KindQualifier {
			words = append(words, t.nodes[c].Text)
		}
	}
	return words
}

// HasQualifier reports whether a declaration carries the keyword q.
func (t *Tree) HasQualifier(decl NodeID, q string) bool {
	for _, w := range t.Qualifiers(decl) {
		if w == q {
			return true
		}
	}
	return false
}

// LayoutParam returns the value node of a layout parameter of decl, whether
// the parameter exists at all, e.g. LayoutParam(d, "location").
func (t *Tree) LayoutParam(decl NodeID, name string) (NodeID, bool) {
	q := t.Child(decl, 0)
	if t.Kind(q) != KindQualifiers {
		return NoNode, false
	}
	for _, c := range t.nodes[q].Children {
		if t.nodes[c].Kind != KindLayout {
			continue
		}
		for _, p := range t.nodes[c].Children {
			if t.nodes[p].Text == name {
				return t.Child(p, 0), true
			}
		}
	}
	return NoNode, false
}

// DeclType returns the TypeSpec of a declaration, or NoNode.
func (t *Tree) DeclType(decl NodeID) NodeID {
	ts := t.Child(decl, 1)
	if t.Kind(ts) != KindTypeSpec {
		return NoNode
	}
	return ts
}

// Declarators returns the declarators of a declaration.
func (t *Tree) Declarators(decl NodeID) []NodeID {
	var out []NodeID
	for _, c := range t.nodes[decl].Children {
		if t.nodes[c].Kind == KindDeclarator {
			out = append(out, c)
		}
	}
	return out
}

// DeclaredNames returns the names a top-level external declaration
// introduces: variable names, function names, struct and block names.
func (t *Tree) DeclaredNames(decl NodeID) []string {
	var names []string
	switch t.nodes[decl].Kind {
	case KindDeclaration:
		if ts := t.DeclType(decl); ts.IsValid() {
			if s := t.Child(ts, 0); t.Kind(s) == KindStructSpec && t.nodes[s].Text != "" {
				names = append(names, t.nodes[s].Text)
			}
		}
		for _, d := range t.Declarators(decl) {
			names = append(names, t.nodes[t.nodes[d].Children[0]].Text)
		}
		if b := t.Child(decl, 1); t.Kind(b) == KindBlock {
			names = append(names, t.nodes[b].Text)
			for _, c := range t.nodes[b].Children {
				if t.nodes[c].Kind == KindDeclarator {
					names = append(names, t.nodes[t.nodes[c].Children[0]].Text)
				}
			}
		}
	case KindFunctionDef:
		names = append(names, t.nodes[t.nodes[t.nodes[decl].Children[0]].Children[1]].Text)
	case KindPrototype:
		names = append(names, t.nodes[t.nodes[decl].Children[1]].Text)
	}
	return names
}

// FunctionDefinitions returns the KindFunctionDef nodes defining name.
func (t *Tree) FunctionDefinitions(name string) []NodeID {
	var defs []NodeID
	for _, id := range t.Occurrences(name) {
		p := t.nodes[id].Parent
		if t.nodes[p].Kind != KindPrototype || t.nodes[p].Children[1] != id {
			continue
		}
		if fn := t.nodes[p].Parent; t.nodes[fn].Kind == KindFunctionDef {
			defs = append(defs, fn)
		}
	}
	return defs
}

// IntLiteralValue returns the value of a non-negative decimal, hex or octal
// int/uint literal node.
func (t *Tree) IntLiteralValue(id NodeID) (int, bool) {
	n := &t.nodes[id]
	if n.Kind != KindLiteral || (n.Lit != LitInt && n.Lit != LitUint) {
		return 0, false
	}
	return ParseIntLiteral(n.Text)
}

// ParseIntLiteral parses GLSL integer literal text.
func ParseIntLiteral(text string) (int, bool) {
	s := text
	if len(s) > 0 && (s[len(s)-1] == 'u' || s[len(s)-1] == 'U') {
		s = s[:len(s)-1]
	}
	if s == "" {
		return 0, false
	}
	base := 10
	switch {
	case len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X"):
		base, s = 16, s[2:]
	case len(s) > 1 && s[0] == '0':
		base, s = 8, s[1:]
	}
	v := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		var d int
		switch {
		case c >= '0' && c <= '9':
			d = int(c - '0')
		case c >= 'a' && c <= 'f':
			d = int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = int(c-'A') + 10
		default:
			return 0, false
		}
		if d >= base {
			return 0, false
		}
		v = v*base + d
		if v > 1<<30 {
			return 0, false
		}
	}
	return v, true
}
