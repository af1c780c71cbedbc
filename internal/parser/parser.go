// Package parser parses preprocessed GLSL into an ast.Tree.
//
// The parser is a recursive-descent parser over the token stream produced by
// the lexer. It builds detached subtrees bottom-up and attaches each external
// declaration to the root once complete, so the identifier index only ever
// sees finished subtrees.
//
// Besides whole translation units it parses fragments (a statement list, a
// set of external declarations, or a single expression) used by pattern
// templates and injected code.
package parser

import (
	"fmt"
	"strings"

	"github.com/HugoDaniel/glslpatch/internal/ast"
	"github.com/HugoDaniel/glslpatch/internal/builtins"
	"github.com/HugoDaniel/glslpatch/internal/diagnostic"
	"github.com/HugoDaniel/glslpatch/internal/lexer"
)

// Rule selects the grammar entry point.
type Rule uint8

const (
	RuleTranslationUnit Rule = iota
	RuleExternalDeclarations
	RuleStatements
	RuleExpression
)

// Parser parses GLSL source into a tree.
type Parser struct {
	source    string
	tokens    []lexer.Token
	pos       int
	lineIndex *diagnostic.LineIndex
	tree      *ast.Tree

	// structs holds user struct names, which start declarations like
	// builtin type names do.
	structs map[string]bool

	errors []ParseError
}

// ParseError represents a parsing error.
type ParseError struct {
	Message string
	Pos     int
	Line    int
	Column  int
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// New creates a new parser for the given source.
func New(source string) *Parser {
	return &Parser{
		source:    source,
		tokens:    lexer.New(source).Tokenize(),
		lineIndex: diagnostic.NewLineIndex(source),
		tree:      ast.New(),
		structs:   make(map[string]bool),
	}
}

// Parse parses a whole translation unit.
func Parse(source string) (*ast.Tree, []ParseError) {
	return New(source).ParseRule(RuleTranslationUnit)
}

// ParseFragment parses source with the given rule. The parsed nodes become
// the children of the returned tree's root.
func ParseFragment(source string, rule Rule) (*ast.Tree, []ParseError) {
	return New(source).ParseRule(rule)
}

// ParseRule parses the source starting at rule.
func (p *Parser) ParseRule(rule Rule) (*ast.Tree, []ParseError) {
	root := p.tree.Root()
	switch rule {
	case RuleTranslationUnit, RuleExternalDeclarations:
		p.parseTranslationUnit()
	case RuleStatements:
		for p.current().Kind != lexer.TokEOF && len(p.errors) == 0 {
			if s := p.parseStatement(); s.IsValid() {
				p.tree.Append(root, s)
			}
		}
	case RuleExpression:
		if e := p.parseExpression(); e.IsValid() && len(p.errors) == 0 {
			p.tree.Append(root, e)
		}
		if p.current().Kind != lexer.TokEOF && len(p.errors) == 0 {
			p.error("unexpected " + p.describe(p.current()) + " after expression")
		}
	}
	return p.tree, p.errors
}

// ----------------------------------------------------------------------------
// Token Helpers
// ----------------------------------------------------------------------------

func (p *Parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Kind: lexer.TokEOF, Start: len(p.source)}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peek(offset int) lexer.Token {
	pos := p.pos + offset
	if pos >= len(p.tokens) {
		return lexer.Token{Kind: lexer.TokEOF, Start: len(p.source)}
	}
	return p.tokens[pos]
}

func (p *Parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens) && tok.Kind != lexer.TokEOF && tok.Kind != lexer.TokError {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(kind lexer.TokenKind) (lexer.Token, bool) {
	tok := p.current()
	if tok.Kind != kind {
		p.error(fmt.Sprintf("expected %s, got %s", kind, p.describe(tok)))
		return tok, false
	}
	p.advance()
	return tok, true
}

func (p *Parser) match(kind lexer.TokenKind) bool {
	if p.current().Kind == kind {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) describe(tok lexer.Token) string {
	switch tok.Kind {
	case lexer.TokIdent:
		return "identifier " + tok.Value
	case lexer.TokError:
		return tok.Value
	case lexer.TokEOF:
		return "end of input"
	}
	if tok.Value != "" {
		return fmt.Sprintf("%q", tok.Value)
	}
	return fmt.Sprintf("%q", tok.Kind.String())
}

func (p *Parser) error(msg string) {
	tok := p.current()
	if tok.Kind == lexer.TokError && !strings.Contains(msg, tok.Value) {
		msg = tok.Value
	}
	line, col := p.lineIndex.LineColumn(tok.Start)
	p.errors = append(p.errors, ParseError{
		Message: msg,
		Pos:     tok.Start,
		Line:    line + 1,
		Column:  col + 1,
	})
}

// failed reports whether parsing should stop producing nodes.
func (p *Parser) failed() bool {
	return len(p.errors) > 0 || p.current().Kind == lexer.TokError
}

func (p *Parser) node(kind ast.Kind, text string, pos int, children ...ast.NodeID) ast.NodeID {
	id := p.tree.NewNode(kind, text, children...)
	p.tree.SetPos(id, pos)
	return id
}

// ----------------------------------------------------------------------------
// Translation Unit
// ----------------------------------------------------------------------------

func (p *Parser) parseTranslationUnit() {
	root := p.tree.Root()
	for p.current().Kind != lexer.TokEOF {
		if p.current().Kind == lexer.TokError {
			p.error(p.current().Value)
			return
		}
		start := p.pos
		id := p.parseExternalDeclaration()
		if len(p.errors) > 0 {
			return
		}
		if id.IsValid() {
			p.tree.Append(root, id)
		}
		if p.pos == start {
			p.error("unexpected " + p.describe(p.current()))
			return
		}
	}
}

func (p *Parser) parseExternalDeclaration() ast.NodeID {
	switch tok := p.current(); tok.Kind {
	case lexer.TokDirective:
		p.advance()
		return p.parseDirective(tok)
	case lexer.TokPrecision:
		return p.parsePrecision()
	case lexer.TokSemicolon:
		p.advance()
		return ast.NoNode
	}
	return p.parseDeclarationOrFunction(true)
}

func (p *Parser) parseDirective(tok lexer.Token) ast.NodeID {
	if builtins.DirectiveName(tok.Value) != "version" {
		return p.node(ast.KindDirective, tok.Value, tok.Start)
	}
	fields := strings.Fields(tok.Value)
	if len(fields) < 2 || len(fields) > 3 {
		p.errors = append(p.errors, p.errorAt(tok.Start, "malformed #version directive"))
		return ast.NoNode
	}
	id := p.node(ast.KindVersion, fields[1], tok.Start)
	if len(fields) == 3 {
		p.tree.SetAux(id, fields[2])
	}
	return id
}

func (p *Parser) errorAt(pos int, msg string) ParseError {
	line, col := p.lineIndex.LineColumn(pos)
	return ParseError{Message: msg, Pos: pos, Line: line + 1, Column: col + 1}
}

// precision highp float;
func (p *Parser) parsePrecision() ast.NodeID {
	start := p.advance().Start
	q, ok := p.expect(lexer.TokQualifier)
	if !ok {
		return ast.NoNode
	}
	typ := p.parseTypeSpec()
	p.expect(lexer.TokSemicolon)
	if p.failed() {
		return ast.NoNode
	}
	return p.node(ast.KindPrecision, q.Value, start, typ)
}

// ----------------------------------------------------------------------------
// Declarations
// ----------------------------------------------------------------------------

func (p *Parser) parseDeclarationOrFunction(topLevel bool) ast.NodeID {
	start := p.current().Start
	quals := p.parseQualifiers()
	if p.failed() {
		return ast.NoNode
	}

	// layout(local_size_x = 8) in;
	if p.current().Kind == lexer.TokSemicolon {
		p.advance()
		return p.node(ast.KindDeclaration, "", start, quals)
	}

	// uniform Block { ... } instance;
	if len(p.tree.Children(quals)) > 0 && p.current().Kind == lexer.TokIdent && p.peek(1).Kind == lexer.TokLBrace {
		return p.parseBlock(start, quals)
	}

	// invariant gl_Position;
	if len(p.tree.Children(quals)) > 0 && p.current().Kind == lexer.TokIdent && !p.isTypeName(p.current().Value) &&
		(p.peek(1).Kind == lexer.TokSemicolon || p.peek(1).Kind == lexer.TokComma) {
		decl := p.node(ast.KindDeclaration, "", start, quals)
		for {
			tok := p.advance()
			p.tree.Append(decl, p.node(ast.KindDeclarator, "", tok.Start, p.node(ast.KindIdent, tok.Value, tok.Start)))
			if !p.match(lexer.TokComma) {
				break
			}
			if p.current().Kind != lexer.TokIdent {
				p.error("expected identifier")
				return ast.NoNode
			}
		}
		p.expect(lexer.TokSemicolon)
		return decl
	}

	typ := p.parseTypeSpec()
	if p.failed() {
		return ast.NoNode
	}

	// struct S { ... };
	if p.current().Kind == lexer.TokSemicolon {
		p.advance()
		return p.node(ast.KindDeclaration, "", start, quals, typ)
	}

	nameTok, ok := p.expect(lexer.TokIdent)
	if !ok {
		return ast.NoNode
	}
	name := p.node(ast.KindIdent, nameTok.Value, nameTok.Start)

	if p.current().Kind == lexer.TokLParen {
		if !topLevel {
			p.error("function declared inside a function body")
			return ast.NoNode
		}
		if len(p.tree.Children(quals)) > 0 {
			p.errors = append(p.errors, p.errorAt(start, "qualifiers on function return types are not supported"))
			return ast.NoNode
		}
		return p.parseFunction(start, typ, name)
	}

	decl := p.node(ast.KindDeclaration, "", start, quals, typ)
	p.tree.Append(decl, p.parseDeclarator(name, nameTok.Start))
	for p.match(lexer.TokComma) {
		tok, ok := p.expect(lexer.TokIdent)
		if !ok {
			return ast.NoNode
		}
		p.tree.Append(decl, p.parseDeclarator(p.node(ast.KindIdent, tok.Value, tok.Start), tok.Start))
	}
	p.expect(lexer.TokSemicolon)
	if p.failed() {
		return ast.NoNode
	}
	return decl
}

func (p *Parser) parseDeclarator(name ast.NodeID, pos int) ast.NodeID {
	d := p.node(ast.KindDeclarator, "", pos, name)
	for p.current().Kind == lexer.TokLBracket {
		p.tree.Append(d, p.parseArraySpec())
	}
	if p.match(lexer.TokEq) {
		if init := p.parseInitializer(); init.IsValid() {
			p.tree.Append(d, init)
		}
	}
	return d
}

func (p *Parser) parseInitializer() ast.NodeID {
	if p.current().Kind != lexer.TokLBrace {
		return p.parseAssignment()
	}
	start := p.advance().Start
	list := p.node(ast.KindInitList, "", start)
	for p.current().Kind != lexer.TokRBrace && !p.failed() {
		if e := p.parseInitializer(); e.IsValid() {
			p.tree.Append(list, e)
		}
		if !p.match(lexer.TokComma) {
			break
		}
	}
	p.expect(lexer.TokRBrace)
	return list
}

func (p *Parser) parseArraySpec() ast.NodeID {
	start := p.advance().Start
	spec := p.node(ast.KindArraySpec, "", start)
	if p.current().Kind != lexer.TokRBracket {
		if size := p.parseConditional(); size.IsValid() {
			p.tree.Append(spec, size)
		}
	}
	p.expect(lexer.TokRBracket)
	return spec
}

func (p *Parser) parseQualifiers() ast.NodeID {
	quals := p.node(ast.KindQualifiers, "", p.current().Start)
	for {
		switch tok := p.current(); tok.Kind {
		case lexer.TokQualifier:
			p.advance()
			p.tree.Append(quals, p.node(ast.KindQualifier, tok.Value, tok.Start))
		case lexer.TokLayout:
			p.advance()
			if l := p.parseLayout(tok.Start); l.IsValid() {
				p.tree.Append(quals, l)
			}
		default:
			return quals
		}
		if p.failed() {
			return quals
		}
	}
}

// layout(location = 0, std140)
func (p *Parser) parseLayout(start int) ast.NodeID {
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return ast.NoNode
	}
	layout := p.node(ast.KindLayout, "", start)
	for {
		tok := p.current()
		if tok.Kind != lexer.TokIdent && tok.Kind != lexer.TokQualifier {
			p.error("expected layout qualifier name")
			return ast.NoNode
		}
		p.advance()
		param := p.node(ast.KindLayoutParam, tok.Value, tok.Start)
		if p.match(lexer.TokEq) {
			if v := p.parseConditional(); v.IsValid() {
				p.tree.Append(param, v)
			}
		}
		p.tree.Append(layout, param)
		if !p.match(lexer.TokComma) {
			break
		}
	}
	p.expect(lexer.TokRParen)
	return layout
}

func (p *Parser) isTypeName(name string) bool {
	return builtins.IsTypeName(name) || p.structs[name]
}

func (p *Parser) parseTypeSpec() ast.NodeID {
	tok := p.current()
	var typ ast.NodeID
	switch tok.Kind {
	case lexer.TokStruct:
		typ = p.parseStruct()
	case lexer.TokIdent:
		p.advance()
		typ = p.node(ast.KindTypeSpec, tok.Value, tok.Start)
	default:
		p.error("expected type, got " + p.describe(tok))
		return ast.NoNode
	}
	if !typ.IsValid() {
		return ast.NoNode
	}
	for p.current().Kind == lexer.TokLBracket {
		p.tree.Append(typ, p.parseArraySpec())
	}
	return typ
}

// struct Light { vec3 dir; float power; }
func (p *Parser) parseStruct() ast.NodeID {
	start := p.advance().Start
	name := ""
	if p.current().Kind == lexer.TokIdent {
		name = p.advance().Value
		p.structs[name] = true
	}
	if _, ok := p.expect(lexer.TokLBrace); !ok {
		return ast.NoNode
	}
	spec := p.node(ast.KindStructSpec, name, start)
	for p.current().Kind != lexer.TokRBrace && !p.failed() {
		if m := p.parseMember(); m.IsValid() {
			p.tree.Append(spec, m)
		}
	}
	p.expect(lexer.TokRBrace)
	return p.node(ast.KindTypeSpec, name, start, spec)
}

func (p *Parser) parseMember() ast.NodeID {
	start := p.current().Start
	quals := p.parseQualifiers()
	typ := p.parseTypeSpec()
	if p.failed() {
		return ast.NoNode
	}
	decl := p.node(ast.KindDeclaration, "", start, quals, typ)
	for {
		tok, ok := p.expect(lexer.TokIdent)
		if !ok {
			return ast.NoNode
		}
		p.tree.Append(decl, p.parseDeclarator(p.node(ast.KindIdent, tok.Value, tok.Start), tok.Start))
		if !p.match(lexer.TokComma) {
			break
		}
	}
	p.expect(lexer.TokSemicolon)
	return decl
}

// uniform Matrices { mat4 mvp; } matrices[2];
func (p *Parser) parseBlock(start int, quals ast.NodeID) ast.NodeID {
	nameTok := p.advance()
	p.advance() // {
	block := p.node(ast.KindBlock, nameTok.Value, nameTok.Start)
	for p.current().Kind != lexer.TokRBrace && !p.failed() {
		if m := p.parseMember(); m.IsValid() {
			p.tree.Append(block, m)
		}
	}
	p.expect(lexer.TokRBrace)
	if tok := p.current(); tok.Kind == lexer.TokIdent {
		p.advance()
		p.tree.Append(block, p.parseDeclarator(p.node(ast.KindIdent, tok.Value, tok.Start), tok.Start))
	}
	p.expect(lexer.TokSemicolon)
	if p.failed() {
		return ast.NoNode
	}
	return p.node(ast.KindDeclaration, "", start, quals, block)
}

// ----------------------------------------------------------------------------
// Functions
// ----------------------------------------------------------------------------

func (p *Parser) parseFunction(start int, ret, name ast.NodeID) ast.NodeID {
	p.advance() // (
	proto := p.node(ast.KindPrototype, "", start, ret, name)

	// f(void) and f() both declare no parameters
	if p.current().Kind == lexer.TokIdent && p.current().Value == "void" && p.peek(1).Kind == lexer.TokRParen {
		p.advance()
	}
	for p.current().Kind != lexer.TokRParen && !p.failed() {
		if param := p.parseParam(); param.IsValid() {
			p.tree.Append(proto, param)
		}
		if !p.match(lexer.TokComma) {
			break
		}
	}
	p.expect(lexer.TokRParen)
	if p.failed() {
		return ast.NoNode
	}

	if p.match(lexer.TokSemicolon) {
		return proto
	}
	if p.current().Kind != lexer.TokLBrace {
		p.error("expected function body or ';'")
		return ast.NoNode
	}
	body := p.parseCompound()
	if p.failed() {
		return ast.NoNode
	}
	return p.node(ast.KindFunctionDef, "", start, proto, body)
}

func (p *Parser) parseParam() ast.NodeID {
	start := p.current().Start
	quals := p.parseQualifiers()
	typ := p.parseTypeSpec()
	if p.failed() {
		return ast.NoNode
	}
	param := p.node(ast.KindParam, "", start, quals, typ)
	if tok := p.current(); tok.Kind == lexer.TokIdent {
		p.advance()
		p.tree.Append(param, p.node(ast.KindIdent, tok.Value, tok.Start))
		for p.current().Kind == lexer.TokLBracket {
			p.tree.Append(param, p.parseArraySpec())
		}
	}
	return param
}

// ----------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------

func (p *Parser) parseStatement() ast.NodeID {
	tok := p.current()
	switch tok.Kind {
	case lexer.TokLBrace:
		return p.parseCompound()
	case lexer.TokSemicolon:
		p.advance()
		return p.node(ast.KindEmpty, "", tok.Start)
	case lexer.TokDirective:
		p.advance()
		if builtins.DirectiveName(tok.Value) == "version" {
			p.errors = append(p.errors, p.errorAt(tok.Start, "#version must be the first directive"))
			return ast.NoNode
		}
		return p.node(ast.KindDirective, tok.Value, tok.Start)
	case lexer.TokIf:
		return p.parseIf()
	case lexer.TokWhile:
		p.advance()
		p.expect(lexer.TokLParen)
		cond := p.parseExpression()
		p.expect(lexer.TokRParen)
		body := p.parseStatement()
		if p.failed() {
			return ast.NoNode
		}
		return p.node(ast.KindWhile, "", tok.Start, cond, body)
	case lexer.TokDo:
		p.advance()
		body := p.parseStatement()
		p.expect(lexer.TokWhile)
		p.expect(lexer.TokLParen)
		cond := p.parseExpression()
		p.expect(lexer.TokRParen)
		p.expect(lexer.TokSemicolon)
		if p.failed() {
			return ast.NoNode
		}
		return p.node(ast.KindDoWhile, "", tok.Start, body, cond)
	case lexer.TokFor:
		return p.parseFor()
	case lexer.TokSwitch:
		p.advance()
		p.expect(lexer.TokLParen)
		sel := p.parseExpression()
		p.expect(lexer.TokRParen)
		if p.current().Kind != lexer.TokLBrace {
			p.error("expected '{' after switch")
			return ast.NoNode
		}
		body := p.parseCompound()
		if p.failed() {
			return ast.NoNode
		}
		return p.node(ast.KindSwitch, "", tok.Start, sel, body)
	case lexer.TokCase:
		p.advance()
		label := p.parseConditional()
		p.expect(lexer.TokColon)
		if p.failed() {
			return ast.NoNode
		}
		return p.node(ast.KindCase, "", tok.Start, label)
	case lexer.TokDefault:
		p.advance()
		p.expect(lexer.TokColon)
		return p.node(ast.KindDefault, "", tok.Start)
	case lexer.TokReturn:
		p.advance()
		ret := p.node(ast.KindReturn, "", tok.Start)
		if p.current().Kind != lexer.TokSemicolon {
			if v := p.parseExpression(); v.IsValid() {
				p.tree.Append(ret, v)
			}
		}
		p.expect(lexer.TokSemicolon)
		return ret
	case lexer.TokBreak, lexer.TokContinue, lexer.TokDiscard:
		p.advance()
		p.expect(lexer.TokSemicolon)
		kind := map[lexer.TokenKind]ast.Kind{
			lexer.TokBreak:    ast.KindBreak,
			lexer.TokContinue: ast.KindContinue,
			lexer.TokDiscard:  ast.KindDiscard,
		}[tok.Kind]
		return p.node(kind, "", tok.Start)
	}

	if p.isDeclarationStart() {
		decl := p.parseDeclarationOrFunction(false)
		if !decl.IsValid() {
			return ast.NoNode
		}
		return p.node(ast.KindDeclStmt, "", tok.Start, decl)
	}

	expr := p.parseExpression()
	p.expect(lexer.TokSemicolon)
	if p.failed() || !expr.IsValid() {
		return ast.NoNode
	}
	return p.node(ast.KindExprStmt, "", tok.Start, expr)
}

// isDeclarationStart decides whether a statement begins with a declaration:
// a qualifier, a struct, or a type name followed by a declarator name.
func (p *Parser) isDeclarationStart() bool {
	tok := p.current()
	switch tok.Kind {
	case lexer.TokQualifier, lexer.TokLayout, lexer.TokStruct:
		return true
	case lexer.TokIdent:
	default:
		return false
	}
	if !p.isTypeName(tok.Value) {
		return false
	}
	i := 1
	for p.peek(i).Kind == lexer.TokLBracket {
		depth := 0
		for {
			k := p.peek(i).Kind
			if k == lexer.TokEOF {
				return false
			}
			if k == lexer.TokLBracket {
				depth++
			} else if k == lexer.TokRBracket {
				depth--
			}
			i++
			if depth == 0 {
				break
			}
		}
	}
	return p.peek(i).Kind == lexer.TokIdent
}

func (p *Parser) parseCompound() ast.NodeID {
	start := p.advance().Start // {
	block := p.node(ast.KindCompound, "", start)
	for p.current().Kind != lexer.TokRBrace && p.current().Kind != lexer.TokEOF && !p.failed() {
		if s := p.parseStatement(); s.IsValid() {
			p.tree.Append(block, s)
		}
	}
	p.expect(lexer.TokRBrace)
	return block
}

func (p *Parser) parseIf() ast.NodeID {
	start := p.advance().Start
	p.expect(lexer.TokLParen)
	cond := p.parseExpression()
	p.expect(lexer.TokRParen)
	then := p.parseStatement()
	if p.failed() {
		return ast.NoNode
	}
	stmt := p.node(ast.KindIf, "", start, cond, then)
	if p.match(lexer.TokElse) {
		if els := p.parseStatement(); els.IsValid() {
			p.tree.Append(stmt, els)
		}
	}
	return stmt
}

func (p *Parser) parseFor() ast.NodeID {
	start := p.advance().Start
	p.expect(lexer.TokLParen)

	init := p.parseStatement() // consumes its own ';'
	if p.failed() {
		return ast.NoNode
	}

	cond := p.node(ast.KindEmpty, "", p.current().Start)
	if p.current().Kind != lexer.TokSemicolon {
		cond = p.parseExpression()
	}
	p.expect(lexer.TokSemicolon)

	update := p.node(ast.KindEmpty, "", p.current().Start)
	if p.current().Kind != lexer.TokRParen {
		update = p.parseExpression()
	}
	p.expect(lexer.TokRParen)

	body := p.parseStatement()
	if p.failed() {
		return ast.NoNode
	}
	return p.node(ast.KindFor, "", start, init, cond, update, body)
}

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

func (p *Parser) parseExpression() ast.NodeID {
	left := p.parseAssignment()
	for p.current().Kind == lexer.TokComma && !p.failed() {
		tok := p.advance()
		right := p.parseAssignment()
		if p.failed() {
			return ast.NoNode
		}
		left = p.node(ast.KindSequence, ",", tok.Start, left, right)
	}
	return left
}

var assignOps = map[lexer.TokenKind]bool{
	lexer.TokEq: true, lexer.TokPlusEq: true, lexer.TokMinusEq: true,
	lexer.TokStarEq: true, lexer.TokSlashEq: true, lexer.TokPercentEq: true,
	lexer.TokAmpEq: true, lexer.TokPipeEq: true, lexer.TokCaretEq: true,
	lexer.TokLtLtEq: true, lexer.TokGtGtEq: true,
}

func (p *Parser) parseAssignment() ast.NodeID {
	left := p.parseConditional()
	if tok := p.current(); assignOps[tok.Kind] && !p.failed() {
		p.advance()
		right := p.parseAssignment()
		if p.failed() {
			return ast.NoNode
		}
		return p.node(ast.KindAssign, tok.Kind.String(), tok.Start, left, right)
	}
	return left
}

func (p *Parser) parseConditional() ast.NodeID {
	cond := p.parseBinary(0)
	if p.current().Kind != lexer.TokQuestion || p.failed() {
		return cond
	}
	tok := p.advance()
	then := p.parseExpression()
	p.expect(lexer.TokColon)
	els := p.parseAssignment()
	if p.failed() {
		return ast.NoNode
	}
	return p.node(ast.KindTernary, "?", tok.Start, cond, then, els)
}

// binaryLevels lists binary operators from loosest to tightest binding.
var binaryLevels = [][]lexer.TokenKind{
	{lexer.TokPipePipe},
	{lexer.TokCaretCaret},
	{lexer.TokAmpAmp},
	{lexer.TokPipe},
	{lexer.TokCaret},
	{lexer.TokAmp},
	{lexer.TokEqEq, lexer.TokBangEq},
	{lexer.TokLt, lexer.TokGt, lexer.TokLtEq, lexer.TokGtEq},
	{lexer.TokLtLt, lexer.TokGtGt},
	{lexer.TokPlus, lexer.TokMinus},
	{lexer.TokStar, lexer.TokSlash, lexer.TokPercent},
}

func (p *Parser) parseBinary(level int) ast.NodeID {
	if level == len(binaryLevels) {
		return p.parseUnary()
	}
	left := p.parseBinary(level + 1)
	for !p.failed() {
		tok := p.current()
		found := false
		for _, k := range binaryLevels[level] {
			if tok.Kind == k {
				found = true
				break
			}
		}
		if !found {
			return left
		}
		p.advance()
		right := p.parseBinary(level + 1)
		if p.failed() {
			return ast.NoNode
		}
		left = p.node(ast.KindBinary, tok.Kind.String(), tok.Start, left, right)
	}
	return left
}

func (p *Parser) parseUnary() ast.NodeID {
	switch tok := p.current(); tok.Kind {
	case lexer.TokPlus, lexer.TokMinus, lexer.TokBang, lexer.TokTilde,
		lexer.TokPlusPlus, lexer.TokMinusMinus:
		p.advance()
		operand := p.parseUnary()
		if p.failed() {
			return ast.NoNode
		}
		return p.node(ast.KindUnary, tok.Kind.String(), tok.Start, operand)
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.NodeID {
	left := p.parsePrimary()
	for !p.failed() {
		tok := p.current()
		switch tok.Kind {
		case lexer.TokDot:
			p.advance()
			field, ok := p.expect(lexer.TokIdent)
			if !ok {
				return ast.NoNode
			}
			left = p.node(ast.KindMember, field.Value, field.Start, left)

		case lexer.TokLBracket:
			p.advance()
			index := p.parseExpression()
			p.expect(lexer.TokRBracket)
			if p.failed() {
				return ast.NoNode
			}
			left = p.node(ast.KindIndex, "", tok.Start, left, index)

		case lexer.TokLParen:
			p.advance()
			call := p.node(ast.KindCall, "", tok.Start, left)
			if p.current().Kind == lexer.TokIdent && p.current().Value == "void" && p.peek(1).Kind == lexer.TokRParen {
				p.advance()
			}
			for p.current().Kind != lexer.TokRParen && !p.failed() {
				if arg := p.parseAssignment(); arg.IsValid() {
					p.tree.Append(call, arg)
				}
				if !p.match(lexer.TokComma) {
					break
				}
			}
			p.expect(lexer.TokRParen)
			if p.failed() {
				return ast.NoNode
			}
			left = call

		case lexer.TokPlusPlus, lexer.TokMinusMinus:
			p.advance()
			left = p.node(ast.KindPostfix, tok.Kind.String(), tok.Start, left)

		default:
			return left
		}
	}
	return left
}

func (p *Parser) parsePrimary() ast.NodeID {
	tok := p.current()

	switch tok.Kind {
	case lexer.TokIntLiteral, lexer.TokUintLiteral, lexer.TokFloatLiteral:
		p.advance()
		lit := map[lexer.TokenKind]ast.LiteralKind{
			lexer.TokIntLiteral:   ast.LitInt,
			lexer.TokUintLiteral:  ast.LitUint,
			lexer.TokFloatLiteral: ast.LitFloat,
		}[tok.Kind]
		id := p.tree.NewLiteral(lit, tok.Value)
		p.tree.SetPos(id, tok.Start)
		return id

	case lexer.TokTrue, lexer.TokFalse:
		p.advance()
		id := p.tree.NewLiteral(ast.LitBool, tok.Value)
		p.tree.SetPos(id, tok.Start)
		return id

	case lexer.TokIdent:
		// Type names only appear in expressions as constructors.
		if p.isTypeName(tok.Value) {
			if k := p.peek(1).Kind; k != lexer.TokLParen && k != lexer.TokLBracket {
				p.error("expected expression, got type " + tok.Value)
				return ast.NoNode
			}
		}
		p.advance()
		return p.node(ast.KindIdent, tok.Value, tok.Start)

	case lexer.TokLParen:
		p.advance()
		expr := p.parseExpression()
		p.expect(lexer.TokRParen)
		if p.failed() {
			return ast.NoNode
		}
		return expr

	default:
		p.error("expected expression, got " + p.describe(tok))
		return ast.NoNode
	}
}
