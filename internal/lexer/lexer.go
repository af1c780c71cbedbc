// Package lexer provides tokenization for preprocessed GLSL source code.
//
// The lexer converts a GLSL source string into a sequence of tokens,
// handling:
// - Keywords and qualifiers
// - Identifiers
// - Numeric literals (int, uint, float, double, hex, octal)
// - Operators and punctuation
// - Comments (line and block)
// - Whole-line preprocessor directives
package lexer

import (
	"strings"
)

// ----------------------------------------------------------------------------
// Token Types
// ----------------------------------------------------------------------------

// TokenKind represents the type of a token.
type TokenKind uint8

const (
	TokError TokenKind = iota
	TokEOF

	// Directive holds a whole "#..." line without the leading '#'.
	TokDirective

	// Literals
	TokIntLiteral
	TokUintLiteral
	TokFloatLiteral
	TokTrue
	TokFalse

	// Identifiers (type names are identifiers too)
	TokIdent

	// Storage, interpolation, precision and invariance qualifiers
	TokQualifier

	// Keywords
	TokBreak
	TokCase
	TokContinue
	TokDefault
	TokDiscard
	TokDo
	TokElse
	TokFor
	TokIf
	TokLayout
	TokPrecision
	TokReturn
	TokStruct
	TokSwitch
	TokWhile

	// Operators
	TokPlus    // +
	TokMinus   // -
	TokStar    // *
	TokSlash   // /
	TokPercent // %
	TokAmp     // &
	TokPipe    // |
	TokCaret   // ^
	TokTilde   // ~
	TokBang    // !
	TokLt      // <
	TokGt      // >
	TokEq      // =
	TokDot     // .
	TokQuestion

	// Multi-char operators
	TokPlusPlus    // ++
	TokMinusMinus  // --
	TokAmpAmp      // &&
	TokPipePipe    // ||
	TokCaretCaret  // ^^
	TokLtLt        // <<
	TokGtGt        // >>
	TokLtEq        // <=
	TokGtEq        // >=
	TokEqEq        // ==
	TokBangEq      // !=
	TokPlusEq      // +=
	TokMinusEq     // -=
	TokStarEq      // *=
	TokSlashEq     // /=
	TokPercentEq   // %=
	TokAmpEq       // &=
	TokPipeEq      // |=
	TokCaretEq     // ^=
	TokLtLtEq      // <<=
	TokGtGtEq      // >>=

	// Delimiters
	TokLParen    // (
	TokRParen    // )
	TokLBrace    // {
	TokRBrace    // }
	TokLBracket  // [
	TokRBracket  // ]
	TokSemicolon // ;
	TokColon     // :
	TokComma     // ,
)

// String returns the string representation of a token kind.
func (k TokenKind) String() string {
	if int(k) < len(tokenNames) {
		return tokenNames[k]
	}
	return "unknown"
}

var tokenNames = [...]string{
	TokError:        "error",
	TokEOF:          "EOF",
	TokDirective:    "directive",
	TokIntLiteral:   "int",
	TokUintLiteral:  "uint",
	TokFloatLiteral: "float",
	TokTrue:         "true",
	TokFalse:        "false",
	TokIdent:        "identifier",
	TokQualifier:    "qualifier",
	// Keywords
	TokBreak:     "break",
	TokCase:      "case",
	TokContinue:  "continue",
	TokDefault:   "default",
	TokDiscard:   "discard",
	TokDo:        "do",
	TokElse:      "else",
	TokFor:       "for",
	TokIf:        "if",
	TokLayout:    "layout",
	TokPrecision: "precision",
	TokReturn:    "return",
	TokStruct:    "struct",
	TokSwitch:    "switch",
	TokWhile:     "while",
	// Operators
	TokPlus:        "+",
	TokMinus:       "-",
	TokStar:        "*",
	TokSlash:       "/",
	TokPercent:     "%",
	TokAmp:         "&",
	TokPipe:        "|",
	TokCaret:       "^",
	TokTilde:       "~",
	TokBang:        "!",
	TokLt:          "<",
	TokGt:          ">",
	TokEq:          "=",
	TokDot:         ".",
	TokQuestion:    "?",
	TokPlusPlus:    "++",
	TokMinusMinus:  "--",
	TokAmpAmp:      "&&",
	TokPipePipe:    "||",
	TokCaretCaret:  "^^",
	TokLtLt:        "<<",
	TokGtGt:        ">>",
	TokLtEq:        "<=",
	TokGtEq:        ">=",
	TokEqEq:        "==",
	TokBangEq:      "!=",
	TokPlusEq:      "+=",
	TokMinusEq:     "-=",
	TokStarEq:      "*=",
	TokSlashEq:     "/=",
	TokPercentEq:   "%=",
	TokAmpEq:       "&=",
	TokPipeEq:      "|=",
	TokCaretEq:     "^=",
	TokLtLtEq:      "<<=",
	TokGtGtEq:      ">>=",
	TokLParen:      "(",
	TokRParen:      ")",
	TokLBrace:      "{",
	TokRBrace:      "}",
	TokLBracket:    "[",
	TokRBracket:    "]",
	TokSemicolon:   ";",
	TokColon:       ":",
	TokComma:       ",",
}

// ----------------------------------------------------------------------------
// Token
// ----------------------------------------------------------------------------

// Token represents a lexical token.
type Token struct {
	Kind  TokenKind
	Start int    // Byte offset in source
	End   int    // Byte offset of end (exclusive)
	Value string // For identifiers, qualifiers, literals and directives
}

// Text returns the source text of the token.
func (t Token) Text(source string) string {
	if t.Start >= 0 && t.End <= len(source) {
		return source[t.Start:t.End]
	}
	return ""
}

// ----------------------------------------------------------------------------
// Keywords
// ----------------------------------------------------------------------------

// Keywords maps keyword strings to their token kinds.
var Keywords = map[string]TokenKind{
	"break":     TokBreak,
	"case":      TokCase,
	"continue":  TokContinue,
	"default":   TokDefault,
	"discard":   TokDiscard,
	"do":        TokDo,
	"else":      TokElse,
	"false":     TokFalse,
	"for":       TokFor,
	"if":        TokIf,
	"layout":    TokLayout,
	"precision": TokPrecision,
	"return":    TokReturn,
	"struct":    TokStruct,
	"switch":    TokSwitch,
	"true":      TokTrue,
	"while":     TokWhile,
}

// Qualifiers lists the words lexed as TokQualifier.
var Qualifiers = map[string]bool{
	"attribute": true, "varying": true, "const": true, "uniform": true,
	"buffer": true, "shared": true, "in": true, "out": true, "inout": true,
	"centroid": true, "sample": true, "patch": true,
	"flat": true, "smooth": true, "noperspective": true,
	"highp": true, "mediump": true, "lowp": true,
	"invariant": true, "precise": true,
	"coherent": true, "volatile": true, "restrict": true,
	"readonly": true, "writeonly": true,
}

// ----------------------------------------------------------------------------
// Lexer
// ----------------------------------------------------------------------------

// Lexer tokenizes GLSL source code.
type Lexer struct {
	source string
	pos    int
	start  int
	tokens []Token

	// lineStart is true while only whitespace has been seen on the current line.
	lineStart bool
}

// New creates a new lexer for the given source.
func New(source string) *Lexer {
	return &Lexer{
		source:    source,
		tokens:    make([]Token, 0, len(source)/4),
		lineStart: true,
	}
}

// Tokenize returns all tokens in the source.
func (l *Lexer) Tokenize() []Token {
	for {
		tok := l.Next()
		l.tokens = append(l.tokens, tok)
		if tok.Kind == TokEOF || tok.Kind == TokError {
			break
		}
	}
	return l.tokens
}

// Next returns the next token.
func (l *Lexer) Next() Token {
	l.skipWhitespaceAndComments()

	if l.pos >= len(l.source) {
		return Token{Kind: TokEOF, Start: l.pos, End: l.pos}
	}

	l.start = l.pos
	ch := l.source[l.pos]

	if ch == '#' {
		if !l.lineStart {
			l.pos++
			return Token{Kind: TokError, Start: l.start, End: l.pos, Value: "'#' must start a line"}
		}
		return l.scanDirective()
	}
	l.lineStart = false

	// Identifiers and keywords
	if isASCIIIdentStart(ch) {
		return l.scanIdentOrKeyword()
	}

	// Numbers
	if isDigit(ch) || (ch == '.' && l.pos+1 < len(l.source) && isDigit(l.source[l.pos+1])) {
		return l.scanNumber()
	}

	// Operators and punctuation
	return l.scanOperator()
}

// ----------------------------------------------------------------------------
// Scanning Helpers
// ----------------------------------------------------------------------------

func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.source) {
		ch := l.source[l.pos]

		if ch == '\n' {
			l.lineStart = true
			l.pos++
			continue
		}

		if isWhitespace(ch) {
			l.pos++
			continue
		}

		// Line continuation outside directives
		if ch == '\\' && l.pos+1 < len(l.source) && l.source[l.pos+1] == '\n' {
			l.pos += 2
			continue
		}

		// Line comment
		if ch == '/' && l.pos+1 < len(l.source) && l.source[l.pos+1] == '/' {
			l.pos += 2
			for l.pos < len(l.source) && l.source[l.pos] != '\n' {
				l.pos++
			}
			continue
		}

		// Block comment (GLSL block comments do not nest)
		if ch == '/' && l.pos+1 < len(l.source) && l.source[l.pos+1] == '*' {
			l.pos += 2
			for l.pos < len(l.source) {
				if l.source[l.pos] == '*' && l.pos+1 < len(l.source) && l.source[l.pos+1] == '/' {
					l.pos += 2
					break
				}
				if l.source[l.pos] == '\n' {
					l.lineStart = true
				}
				l.pos++
			}
			continue
		}

		break
	}
}

// scanDirective consumes a preprocessor line, joining backslash continuations
// and dropping trailing comments.
func (l *Lexer) scanDirective() Token {
	start := l.pos
	l.pos++ // '#'

	var sb strings.Builder
	for l.pos < len(l.source) {
		ch := l.source[l.pos]
		if ch == '\\' && l.pos+1 < len(l.source) && l.source[l.pos+1] == '\n' {
			l.pos += 2
			sb.WriteByte(' ')
			continue
		}
		if ch == '\n' {
			break
		}
		if ch == '/' && l.pos+1 < len(l.source) && l.source[l.pos+1] == '/' {
			for l.pos < len(l.source) && l.source[l.pos] != '\n' {
				l.pos++
			}
			break
		}
		if ch == '/' && l.pos+1 < len(l.source) && l.source[l.pos+1] == '*' {
			l.pos += 2
			for l.pos < len(l.source) && !(l.source[l.pos] == '*' && l.pos+1 < len(l.source) && l.source[l.pos+1] == '/') {
				l.pos++
			}
			l.pos += 2
			if l.pos > len(l.source) {
				l.pos = len(l.source)
			}
			sb.WriteByte(' ')
			continue
		}
		sb.WriteByte(ch)
		l.pos++
	}

	return Token{Kind: TokDirective, Start: start, End: l.pos, Value: strings.Join(strings.Fields(sb.String()), " ")}
}

func (l *Lexer) scanIdentOrKeyword() Token {
	start := l.pos
	for l.pos < len(l.source) && isASCIIIdentContinue(l.source[l.pos]) {
		l.pos++
	}

	text := l.source[start:l.pos]

	if kind, ok := Keywords[text]; ok {
		return Token{Kind: kind, Start: start, End: l.pos, Value: text}
	}
	if Qualifiers[text] {
		return Token{Kind: TokQualifier, Start: start, End: l.pos, Value: text}
	}

	return Token{Kind: TokIdent, Start: start, End: l.pos, Value: text}
}

func (l *Lexer) scanNumber() Token {
	start := l.pos
	kind := TokIntLiteral

	if l.pos+1 < len(l.source) && l.source[l.pos] == '0' &&
		(l.source[l.pos+1] == 'x' || l.source[l.pos+1] == 'X') {
		l.pos += 2
		for l.pos < len(l.source) && isHexDigit(l.source[l.pos]) {
			l.pos++
		}
	} else {
		for l.pos < len(l.source) && isDigit(l.source[l.pos]) {
			l.pos++
		}
		if l.pos < len(l.source) && l.source[l.pos] == '.' {
			kind = TokFloatLiteral
			l.pos++
			for l.pos < len(l.source) && isDigit(l.source[l.pos]) {
				l.pos++
			}
		}
		if l.pos < len(l.source) && (l.source[l.pos] == 'e' || l.source[l.pos] == 'E') {
			kind = TokFloatLiteral
			l.pos++
			if l.pos < len(l.source) && (l.source[l.pos] == '+' || l.source[l.pos] == '-') {
				l.pos++
			}
			for l.pos < len(l.source) && isDigit(l.source[l.pos]) {
				l.pos++
			}
		}
	}

	// Type suffix
	if l.pos < len(l.source) {
		switch ch := l.source[l.pos]; {
		case (ch == 'u' || ch == 'U') && kind == TokIntLiteral:
			kind = TokUintLiteral
			l.pos++
		case ch == 'f' || ch == 'F':
			kind = TokFloatLiteral
			l.pos++
		case (ch == 'l' || ch == 'L') && l.pos+1 < len(l.source) &&
			(l.source[l.pos+1] == 'f' || l.source[l.pos+1] == 'F'):
			kind = TokFloatLiteral
			l.pos += 2
		}
	}

	if l.pos < len(l.source) && isASCIIIdentContinue(l.source[l.pos]) {
		for l.pos < len(l.source) && isASCIIIdentContinue(l.source[l.pos]) {
			l.pos++
		}
		return Token{Kind: TokError, Start: start, End: l.pos, Value: "invalid numeric literal " + l.source[start:l.pos]}
	}

	return Token{Kind: kind, Start: start, End: l.pos, Value: l.source[start:l.pos]}
}

// operators is ordered longest first so the first prefix match wins.
var operators = []struct {
	text string
	kind TokenKind
}{
	{"<<=", TokLtLtEq}, {">>=", TokGtGtEq},
	{"++", TokPlusPlus}, {"--", TokMinusMinus}, {"&&", TokAmpAmp},
	{"||", TokPipePipe}, {"^^", TokCaretCaret}, {"<<", TokLtLt},
	{">>", TokGtGt}, {"<=", TokLtEq}, {">=", TokGtEq}, {"==", TokEqEq},
	{"!=", TokBangEq}, {"+=", TokPlusEq}, {"-=", TokMinusEq},
	{"*=", TokStarEq}, {"/=", TokSlashEq}, {"%=", TokPercentEq},
	{"&=", TokAmpEq}, {"|=", TokPipeEq}, {"^=", TokCaretEq},
	{"+", TokPlus}, {"-", TokMinus}, {"*", TokStar}, {"/", TokSlash},
	{"%", TokPercent}, {"&", TokAmp}, {"|", TokPipe}, {"^", TokCaret},
	{"~", TokTilde}, {"!", TokBang}, {"<", TokLt}, {">", TokGt},
	{"=", TokEq}, {".", TokDot}, {"?", TokQuestion},
	{"(", TokLParen}, {")", TokRParen}, {"{", TokLBrace}, {"}", TokRBrace},
	{"[", TokLBracket}, {"]", TokRBracket}, {";", TokSemicolon},
	{":", TokColon}, {",", TokComma},
}

func (l *Lexer) scanOperator() Token {
	start := l.pos
	rest := l.source[l.pos:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op.text) {
			l.pos += len(op.text)
			return Token{Kind: op.kind, Start: start, End: l.pos}
		}
	}
	l.pos++
	return Token{Kind: TokError, Start: start, End: l.pos, Value: "unexpected character " + rest[:1]}
}

// ----------------------------------------------------------------------------
// Character Classification
// ----------------------------------------------------------------------------

// ASCII lookup tables for character classification. GLSL source is ASCII.
var (
	asciiIdentStart    [128]bool
	asciiIdentContinue [128]bool
	asciiWhitespace    [128]bool
)

func init() {
	for c := 'a'; c <= 'z'; c++ {
		asciiIdentStart[c] = true
		asciiIdentContinue[c] = true
	}
	for c := 'A'; c <= 'Z'; c++ {
		asciiIdentStart[c] = true
		asciiIdentContinue[c] = true
	}
	asciiIdentStart['_'] = true
	asciiIdentContinue['_'] = true

	for c := '0'; c <= '9'; c++ {
		asciiIdentContinue[c] = true
	}

	asciiWhitespace[' '] = true
	asciiWhitespace['\t'] = true
	asciiWhitespace['\r'] = true
	asciiWhitespace['\v'] = true
	asciiWhitespace['\f'] = true
}

func isWhitespace(ch byte) bool {
	return ch < 128 && asciiWhitespace[ch]
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isASCIIIdentStart(ch byte) bool {
	return ch < 128 && asciiIdentStart[ch]
}

func isASCIIIdentContinue(ch byte) bool {
	return ch < 128 && asciiIdentContinue[ch]
}

// IsIdentifier reports whether s is a valid GLSL identifier.
func IsIdentifier(s string) bool {
	if s == "" || !isASCIIIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isASCIIIdentContinue(s[i]) {
			return false
		}
	}
	_, kw := Keywords[s]
	return !kw && !Qualifiers[s]
}
