package lexer

import (
	"testing"
)

// ----------------------------------------------------------------------------
// Test Helpers (esbuild-style)
// ----------------------------------------------------------------------------

func expectToken(t *testing.T, input string, expected TokenKind) {
	t.Helper()
	l := New(input)
	tok := l.Next()
	if tok.Kind != expected {
		t.Errorf("input %q: expected %v, got %v", input, expected, tok.Kind)
	}
}

func expectTokenValue(t *testing.T, input string, expectedKind TokenKind, expectedValue string) {
	t.Helper()
	l := New(input)
	tok := l.Next()
	if tok.Kind != expectedKind {
		t.Errorf("input %q: expected kind %v, got %v", input, expectedKind, tok.Kind)
	}
	if tok.Value != expectedValue {
		t.Errorf("input %q: expected value %q, got %q", input, expectedValue, tok.Value)
	}
}

func expectTokens(t *testing.T, input string, expected []TokenKind) {
	t.Helper()
	l := New(input)
	for i, exp := range expected {
		tok := l.Next()
		if tok.Kind != exp {
			t.Errorf("input %q token %d: expected %v, got %v", input, i, exp, tok.Kind)
		}
	}
}

func expectError(t *testing.T, input string) {
	t.Helper()
	l := New(input)
	tok := l.Next()
	if tok.Kind != TokError {
		t.Errorf("input %q: expected error, got %v", input, tok.Kind)
	}
}

// ----------------------------------------------------------------------------
// Keyword Tests
// ----------------------------------------------------------------------------

func TestKeywords(t *testing.T) {
	cases := []struct {
		input string
		kind  TokenKind
	}{
		{"break", TokBreak},
		{"case", TokCase},
		{"continue", TokContinue},
		{"default", TokDefault},
		{"discard", TokDiscard},
		{"do", TokDo},
		{"else", TokElse},
		{"false", TokFalse},
		{"for", TokFor},
		{"if", TokIf},
		{"layout", TokLayout},
		{"precision", TokPrecision},
		{"return", TokReturn},
		{"struct", TokStruct},
		{"switch", TokSwitch},
		{"true", TokTrue},
		{"while", TokWhile},
	}

	for _, c := range cases {
		expectToken(t, c.input, c.kind)
	}
}

func TestQualifiers(t *testing.T) {
	for _, q := range []string{"attribute", "varying", "in", "out", "uniform", "flat", "highp", "invariant"} {
		expectTokenValue(t, q, TokQualifier, q)
	}
}

func TestTypeNamesAreIdentifiers(t *testing.T) {
	for _, name := range []string{"vec4", "mat3", "sampler2D", "void", "float"} {
		expectTokenValue(t, name, TokIdent, name)
	}
}

// ----------------------------------------------------------------------------
// Literal Tests
// ----------------------------------------------------------------------------

func TestNumbers(t *testing.T) {
	cases := []struct {
		input string
		kind  TokenKind
	}{
		{"0", TokIntLiteral},
		{"42", TokIntLiteral},
		{"0x1F", TokIntLiteral},
		{"3u", TokUintLiteral},
		{"1.0", TokFloatLiteral},
		{"1.", TokFloatLiteral},
		{".5", TokFloatLiteral},
		{"1e10", TokFloatLiteral},
		{"2.5e-3", TokFloatLiteral},
		{"1.0f", TokFloatLiteral},
		{"1.0lf", TokFloatLiteral},
	}

	for _, c := range cases {
		expectTokenValue(t, c.input, c.kind, c.input)
	}
}

func TestInvalidNumber(t *testing.T) {
	expectError(t, "12abc")
}

// ----------------------------------------------------------------------------
// Operator Tests
// ----------------------------------------------------------------------------

func TestOperators(t *testing.T) {
	expectTokens(t, "a ^^ b <<= c >>= d", []TokenKind{
		TokIdent, TokCaretCaret, TokIdent, TokLtLtEq, TokIdent, TokGtGtEq, TokIdent, TokEOF,
	})
	expectTokens(t, "x++ + --y", []TokenKind{
		TokIdent, TokPlusPlus, TokPlus, TokMinusMinus, TokIdent, TokEOF,
	})
	expectTokens(t, "c ? a : b;", []TokenKind{
		TokIdent, TokQuestion, TokIdent, TokColon, TokIdent, TokSemicolon, TokEOF,
	})
}

// ----------------------------------------------------------------------------
// Comment and Directive Tests
// ----------------------------------------------------------------------------

func TestComments(t *testing.T) {
	expectTokens(t, "a // line\n/* block\n */ b", []TokenKind{TokIdent, TokIdent, TokEOF})
}

func TestDirectiveValue(t *testing.T) {
	expectTokenValue(t, "#version 120", TokDirective, "version 120")
	expectTokenValue(t, "  #  extension GL_ARB_foo :   enable // trailing", TokDirective, "extension GL_ARB_foo : enable")
	expectTokenValue(t, "#pragma a \\\n b", TokDirective, "pragma a b")
}

func TestDirectiveFollowedByCode(t *testing.T) {
	expectTokens(t, "#version 330\nuniform float x;", []TokenKind{
		TokDirective, TokQualifier, TokIdent, TokIdent, TokSemicolon, TokEOF,
	})
}

func TestHashMidLine(t *testing.T) {
	l := New("a #define")
	l.Next()
	if tok := l.Next(); tok.Kind != TokError {
		t.Errorf("expected error for '#' after code, got %v", tok.Kind)
	}
}

func TestIsIdentifier(t *testing.T) {
	cases := map[string]bool{
		"gl_Vertex": true,
		"_x1":       true,
		"1x":        false,
		"":          false,
		"for":       false,
		"varying":   false,
		"a-b":       false,
	}
	for in, want := range cases {
		if got := IsIdentifier(in); got != want {
			t.Errorf("IsIdentifier(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTokenPositions(t *testing.T) {
	src := "vec4 color;"
	toks := New(src).Tokenize()
	if toks[1].Text(src) != "color" {
		t.Errorf("expected 'color', got %q", toks[1].Text(src))
	}
	if toks[1].Start != 5 || toks[1].End != 10 {
		t.Errorf("unexpected span %d..%d", toks[1].Start, toks[1].End)
	}
}
