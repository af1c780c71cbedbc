// Package printer outputs GLSL code from an ast.Tree.
//
// The printer can operate in two modes:
// - Pretty: Human-readable output with indentation
// - Minified: Minimal whitespace output
//
// Parentheses are not stored in the tree; they are re-derived from operator
// precedence, so rewritten subtrees always print with correct grouping.
package printer

import (
	"strings"

	"github.com/HugoDaniel/glslpatch/internal/ast"
)

// Options controls printer output.
type Options struct {
	// MinifyWhitespace removes unnecessary whitespace. Directives still end
	// with a newline.
	MinifyWhitespace bool

	// Mapper, if set, receives the output position of every top-level
	// declaration and statement that came from the original source.
	Mapper Mapper
}

// Mapper records generated-to-source position pairs. Lines and columns are
// 0-indexed.
type Mapper interface {
	AddMapping(genLine, genCol, srcOffset int)
}

// Printer outputs GLSL code.
type Printer struct {
	options Options
	tree    *ast.Tree

	buf    strings.Builder
	indent int

	// Output position tracking for the Mapper.
	scanned   int
	line      int
	lineStart int
}

// New creates a new printer.
func New(options Options) *Printer {
	return &Printer{options: options}
}

// Print outputs the tree as a string.
func (p *Printer) Print(tree *ast.Tree) string {
	p.buf.Reset()
	p.tree = tree
	p.indent = 0
	p.scanned, p.line, p.lineStart = 0, 0, 0
	p.printTranslationUnit()
	return p.buf.String()
}

// PrintNode outputs a single subtree, used for diagnostics and tests.
func (p *Printer) PrintNode(tree *ast.Tree, id ast.NodeID) string {
	p.buf.Reset()
	p.tree = tree
	p.indent = 0
	p.scanned, p.line, p.lineStart = 0, 0, 0
	k := tree.Kind(id)
	switch {
	case k.IsExpression():
		p.printExpr(id, precLowest)
	case k.IsStatement():
		p.printStmt(id)
	default:
		p.printExternal(id)
	}
	return strings.TrimRight(p.buf.String(), "\n")
}

// ----------------------------------------------------------------------------
// Output Helpers
// ----------------------------------------------------------------------------

// print appends s, inserting a separating space where gluing would change
// tokenization ("a b", "- -x", "+ +x").
func (p *Printer) print(s string) {
	if s == "" {
		return
	}
	if n := p.buf.Len(); n > 0 {
		last := p.buf.String()[n-1]
		first := s[0]
		if (isWordByte(last) && isWordByte(first)) ||
			(last == '+' && first == '+') || (last == '-' && first == '-') {
			p.buf.WriteByte(' ')
		}
	}
	p.buf.WriteString(s)
}

// mark reports the current output position for id to the Mapper.
func (p *Printer) mark(id ast.NodeID) {
	if p.options.Mapper == nil {
		return
	}
	pos := p.tree.Node(id).Pos
	if pos < 0 {
		return
	}
	out := p.buf.String()
	for ; p.scanned < len(out); p.scanned++ {
		if out[p.scanned] == '\n' {
			p.line++
			p.lineStart = p.scanned + 1
		}
	}
	p.options.Mapper.AddMapping(p.line, len(out)-p.lineStart, pos)
}

func isWordByte(c byte) bool {
	return c == '_' || c == '.' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func (p *Printer) printSpace() {
	if !p.options.MinifyWhitespace {
		p.buf.WriteByte(' ')
	}
}

func (p *Printer) printNewline() {
	if !p.options.MinifyWhitespace {
		p.buf.WriteByte('\n')
	}
}

func (p *Printer) printIndent() {
	if !p.options.MinifyWhitespace {
		for i := 0; i < p.indent; i++ {
			p.buf.WriteString("    ")
		}
	}
}

// ----------------------------------------------------------------------------
// Top Level
// ----------------------------------------------------------------------------

func (p *Printer) printTranslationUnit() {
	t := p.tree
	for i, id := range t.Children(t.Root()) {
		if i > 0 && t.Kind(id) == ast.KindFunctionDef {
			p.printNewline()
		}
		p.printExternal(id)
	}
}

func (p *Printer) printExternal(id ast.NodeID) {
	t := p.tree
	if t.Kind(id) != ast.KindDirective {
		p.mark(id)
	}
	switch t.Kind(id) {
	case ast.KindVersion:
		p.buf.WriteString("#version " + t.Text(id))
		if aux := t.Node(id).Aux; aux != "" {
			p.buf.WriteString(" " + aux)
		}
		p.buf.WriteByte('\n')
	case ast.KindDirective:
		if n := p.buf.Len(); n > 0 && p.buf.String()[n-1] != '\n' {
			p.buf.WriteByte('\n')
		}
		p.mark(id)
		p.buf.WriteString("#" + t.Text(id) + "\n")
	case ast.KindPrecision:
		p.print("precision")
		p.print(t.Text(id))
		p.printType(t.Child(id, 0))
		p.print(";")
		p.printNewline()
	case ast.KindDeclaration:
		p.printDeclaration(id)
		p.print(";")
		p.printNewline()
	case ast.KindPrototype:
		p.printPrototype(id)
		p.print(";")
		p.printNewline()
	case ast.KindFunctionDef:
		p.printPrototype(t.Child(id, 0))
		p.printSpace()
		p.printCompound(t.Child(id, 1))
		p.printNewline()
	default:
		p.printStmt(id)
	}
}

// ----------------------------------------------------------------------------
// Declarations
// ----------------------------------------------------------------------------

func (p *Printer) printDeclaration(id ast.NodeID) {
	t := p.tree
	kids := t.Children(id)
	wrote := p.printQualifiers(kids[0])
	for i, c := range kids[1:] {
		switch t.Kind(c) {
		case ast.KindTypeSpec:
			if wrote {
				p.printSpace()
			}
			p.printType(c)
			wrote = true
		case ast.KindBlock:
			if wrote {
				p.printSpace()
			}
			p.printBlock(c)
		case ast.KindDeclarator:
			if i > 0 && t.Kind(kids[i]) == ast.KindDeclarator {
				p.print(",")
			}
			p.printSpace()
			p.printDeclarator(c)
		}
	}
}

func (p *Printer) printQualifiers(id ast.NodeID) bool {
	t := p.tree
	wrote := false
	for _, q := range t.Children(id) {
		if wrote {
			p.printSpace()
		}
		wrote = true
		if t.Kind(q) == ast.KindQualifier {
			p.print(t.Text(q))
			continue
		}
		p.print("layout(")
		for i, param := range t.Children(q) {
			if i > 0 {
				p.print(",")
				p.printSpace()
			}
			p.print(t.Text(param))
			if v := t.Child(param, 0); v.IsValid() {
				p.printSpace()
				p.print("=")
				p.printSpace()
				p.printExpr(v, precAssign)
			}
		}
		p.print(")")
	}
	return wrote
}

func (p *Printer) printType(id ast.NodeID) {
	t := p.tree
	for _, c := range t.Children(id) {
		if t.Kind(c) == ast.KindStructSpec {
			p.printStruct(c)
		}
	}
	if s := t.Child(id, 0); t.Kind(s) != ast.KindStructSpec {
		p.print(t.Text(id))
	}
	for _, c := range t.Children(id) {
		if t.Kind(c) == ast.KindArraySpec {
			p.printArraySpec(c)
		}
	}
}

func (p *Printer) printStruct(id ast.NodeID) {
	p.print("struct")
	if name := p.tree.Text(id); name != "" {
		p.print(name)
	}
	p.printSpace()
	p.printMembers(p.tree.Children(id))
}

func (p *Printer) printBlock(id ast.NodeID) {
	t := p.tree
	p.print(t.Text(id))
	p.printSpace()
	var members []ast.NodeID
	var inst ast.NodeID
	for _, c := range t.Children(id) {
		if t.Kind(c) == ast.KindDeclarator {
			inst = c
		} else {
			members = append(members, c)
		}
	}
	p.printMembers(members)
	if inst.IsValid() {
		p.printSpace()
		p.printDeclarator(inst)
	}
}

func (p *Printer) printMembers(members []ast.NodeID) {
	p.print("{")
	p.printNewline()
	p.indent++
	for _, m := range members {
		p.printIndent()
		p.printDeclaration(m)
		p.print(";")
		p.printNewline()
	}
	p.indent--
	p.printIndent()
	p.print("}")
}

func (p *Printer) printDeclarator(id ast.NodeID) {
	t := p.tree
	for i, c := range t.Children(id) {
		switch {
		case i == 0:
			p.print(t.Text(c))
		case t.Kind(c) == ast.KindArraySpec:
			p.printArraySpec(c)
		default:
			p.printSpace()
			p.print("=")
			p.printSpace()
			p.printInitializer(c)
		}
	}
}

func (p *Printer) printInitializer(id ast.NodeID) {
	if p.tree.Kind(id) != ast.KindInitList {
		p.printExpr(id, precAssign)
		return
	}
	p.print("{")
	for i, c := range p.tree.Children(id) {
		if i > 0 {
			p.print(",")
			p.printSpace()
		}
		p.printInitializer(c)
	}
	p.print("}")
}

func (p *Printer) printArraySpec(id ast.NodeID) {
	p.print("[")
	if size := p.tree.Child(id, 0); size.IsValid() {
		p.printExpr(size, precLowest)
	}
	p.print("]")
}

func (p *Printer) printPrototype(id ast.NodeID) {
	t := p.tree
	kids := t.Children(id)
	p.printType(kids[0])
	p.print(t.Text(kids[1]))
	p.print("(")
	for i, param := range kids[2:] {
		if i > 0 {
			p.print(",")
			p.printSpace()
		}
		pk := t.Children(param)
		if p.printQualifiers(pk[0]) {
			p.printSpace()
		}
		p.printType(pk[1])
		for _, c := range pk[2:] {
			if t.Kind(c) == ast.KindIdent {
				p.print(t.Text(c))
			} else {
				p.printArraySpec(c)
			}
		}
	}
	p.print(")")
}

// ----------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------

func (p *Printer) printCompound(id ast.NodeID) {
	if len(p.tree.Children(id)) == 0 {
		p.print("{}")
		return
	}
	p.print("{")
	p.printNewline()
	p.indent++
	for _, s := range p.tree.Children(id) {
		p.printIndent()
		p.printStmt(s)
		p.printNewline()
	}
	p.indent--
	p.printIndent()
	p.print("}")
}

// printDirectiveStmt prints a directive inside a function body. It must
// start its own line; the enclosing compound ends the line in pretty mode.
func (p *Printer) printDirectiveStmt(id ast.NodeID) {
	if n := p.buf.Len(); n > 0 && p.options.MinifyWhitespace && p.buf.String()[n-1] != '\n' {
		p.buf.WriteByte('\n')
	}
	p.mark(id)
	p.buf.WriteString("#" + p.tree.Text(id))
	if p.options.MinifyWhitespace {
		p.buf.WriteByte('\n')
	}
}

// printBody prints a statement nested under if/for/while: compounds stay on
// the header line, single statements too.
func (p *Printer) printBody(id ast.NodeID) {
	p.printSpace()
	p.printStmt(id)
}

func (p *Printer) printStmt(id ast.NodeID) {
	t := p.tree
	if t.Kind(id) == ast.KindDirective {
		p.printDirectiveStmt(id)
		return
	}
	p.mark(id)
	kids := t.Children(id)
	switch t.Kind(id) {
	case ast.KindCompound:
		p.printCompound(id)
	case ast.KindDeclStmt:
		p.printDeclaration(kids[0])
		p.print(";")
	case ast.KindExprStmt:
		p.printExpr(kids[0], precLowest)
		p.print(";")
	case ast.KindEmpty:
		p.print(";")
	case ast.KindIf:
		p.print("if")
		p.printSpace()
		p.print("(")
		p.printExpr(kids[0], precLowest)
		p.print(")")
		p.printBody(kids[1])
		if len(kids) > 2 {
			p.printSpace()
			p.print("else")
			p.printBody(kids[2])
		}
	case ast.KindWhile:
		p.print("while")
		p.printSpace()
		p.print("(")
		p.printExpr(kids[0], precLowest)
		p.print(")")
		p.printBody(kids[1])
	case ast.KindDoWhile:
		p.print("do")
		p.printBody(kids[0])
		p.printSpace()
		p.print("while")
		p.printSpace()
		p.print("(")
		p.printExpr(kids[1], precLowest)
		p.print(");")
	case ast.KindFor:
		p.print("for")
		p.printSpace()
		p.print("(")
		p.printStmt(kids[0])
		if t.Kind(kids[1]) != ast.KindEmpty {
			p.printSpace()
			p.printExpr(kids[1], precLowest)
		}
		p.print(";")
		if t.Kind(kids[2]) != ast.KindEmpty {
			p.printSpace()
			p.printExpr(kids[2], precLowest)
		}
		p.print(")")
		p.printBody(kids[3])
	case ast.KindSwitch:
		p.print("switch")
		p.printSpace()
		p.print("(")
		p.printExpr(kids[0], precLowest)
		p.print(")")
		p.printSpace()
		p.printCompound(kids[1])
	case ast.KindCase:
		p.print("case ")
		p.printExpr(kids[0], precLowest)
		p.print(":")
	case ast.KindDefault:
		p.print("default:")
	case ast.KindReturn:
		p.print("return")
		if len(kids) > 0 {
			p.printSpace()
			p.printExpr(kids[0], precLowest)
		}
		p.print(";")
	case ast.KindBreak:
		p.print("break;")
	case ast.KindContinue:
		p.print("continue;")
	case ast.KindDiscard:
		p.print("discard;")
	default:
		if t.Kind(id).IsExpression() {
			p.printExpr(id, precLowest)
		}
	}
}

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

// Precedence levels, loosest first.
const (
	precLowest = iota
	precSequence
	precAssign
	precTernary
	precLogicalOr
	precLogicalXor
	precLogicalAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precShift
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
	precPrimary
)

var binaryPrec = map[string]int{
	"||": precLogicalOr,
	"^^": precLogicalXor,
	"&&": precLogicalAnd,
	"|":  precBitOr,
	"^":  precBitXor,
	"&":  precBitAnd,
	"==": precEquality, "!=": precEquality,
	"<": precRelational, ">": precRelational, "<=": precRelational, ">=": precRelational,
	"<<": precShift, ">>": precShift,
	"+": precAdditive, "-": precAdditive,
	"*": precMultiplicative, "/": precMultiplicative, "%": precMultiplicative,
}

// Precedence returns the binding strength of an expression node.
func Precedence(tree *ast.Tree, id ast.NodeID) int {
	switch tree.Kind(id) {
	case ast.KindSequence:
		return precSequence
	case ast.KindAssign:
		return precAssign
	case ast.KindTernary:
		return precTernary
	case ast.KindBinary:
		return binaryPrec[tree.Text(id)]
	case ast.KindUnary:
		return precUnary
	case ast.KindPostfix, ast.KindCall, ast.KindMember, ast.KindIndex:
		return precPostfix
	}
	return precPrimary
}

func (p *Printer) printExpr(id ast.NodeID, min int) {
	t := p.tree
	prec := Precedence(t, id)
	if prec < min {
		p.print("(")
		p.printExpr(id, precLowest)
		p.print(")")
		return
	}

	kids := t.Children(id)
	switch t.Kind(id) {
	case ast.KindIdent, ast.KindLiteral:
		p.print(t.Text(id))
	case ast.KindSequence:
		p.printExpr(kids[0], precSequence)
		p.print(",")
		p.printSpace()
		p.printExpr(kids[1], precAssign)
	case ast.KindAssign:
		p.printExpr(kids[0], precUnary)
		p.printSpace()
		p.print(t.Text(id))
		p.printSpace()
		p.printExpr(kids[1], precAssign)
	case ast.KindTernary:
		p.printExpr(kids[0], precLogicalOr)
		p.printSpace()
		p.print("?")
		p.printSpace()
		p.printExpr(kids[1], precAssign)
		p.printSpace()
		p.print(":")
		p.printSpace()
		p.printExpr(kids[2], precAssign)
	case ast.KindBinary:
		p.printExpr(kids[0], prec)
		p.printSpace()
		p.print(t.Text(id))
		p.printSpace()
		p.printExpr(kids[1], prec+1)
	case ast.KindUnary:
		p.print(t.Text(id))
		p.printExpr(kids[0], precUnary)
	case ast.KindPostfix:
		p.printExpr(kids[0], precPostfix)
		p.print(t.Text(id))
	case ast.KindCall:
		p.printExpr(kids[0], precPostfix)
		p.print("(")
		for i, arg := range kids[1:] {
			if i > 0 {
				p.print(",")
				p.printSpace()
			}
			p.printExpr(arg, precAssign)
		}
		p.print(")")
	case ast.KindMember:
		p.printExpr(kids[0], precPostfix)
		p.buf.WriteByte('.')
		p.buf.WriteString(t.Text(id))
	case ast.KindIndex:
		p.printExpr(kids[0], precPostfix)
		p.print("[")
		p.printExpr(kids[1], precLowest)
		p.print("]")
	}
}
