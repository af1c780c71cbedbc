package printer

import (
	"strings"
	"testing"

	"github.com/HugoDaniel/glslpatch/internal/ast"
	"github.com/HugoDaniel/glslpatch/internal/parser"
)

// ----------------------------------------------------------------------------
// Test Helpers
// ----------------------------------------------------------------------------

// expectPrinted verifies pretty-printed output.
func expectPrinted(t *testing.T, input string, expected string) {
	t.Helper()
	t.Run(input, func(t *testing.T) {
		t.Helper()
		tree, errs := parser.Parse(input)
		if len(errs) > 0 {
			t.Fatalf("parse errors: %v", errs)
		}
		actual := New(Options{}).Print(tree)
		if actual != expected {
			t.Errorf("\ninput:\n%s\nexpected:\n%s\nactual:\n%s", input, expected, actual)
		}
	})
}

// expectPrintedMinify verifies minified output (whitespace removed).
func expectPrintedMinify(t *testing.T, input string, expected string) {
	t.Helper()
	t.Run(input+"_minify", func(t *testing.T) {
		t.Helper()
		tree, errs := parser.Parse(input)
		if len(errs) > 0 {
			t.Fatalf("parse errors: %v", errs)
		}
		actual := New(Options{MinifyWhitespace: true}).Print(tree)
		if actual != expected {
			t.Errorf("\ninput:\n%s\nexpected:\n%s\nactual:\n%s", input, expected, actual)
		}
	})
}

// ----------------------------------------------------------------------------
// Declarations
// ----------------------------------------------------------------------------

func TestDeclarations(t *testing.T) {
	expectPrinted(t, "uniform sampler2D tex;", "uniform sampler2D tex;\n")
	expectPrinted(t, "const float x = 1.0;", "const float x = 1.0;\n")
	expectPrinted(t, "float a, b = 2.0;", "float a, b = 2.0;\n")
	expectPrinted(t, "vec2 offsets[4];", "vec2 offsets[4];\n")
	expectPrinted(t, "layout(location = 0) out vec4 color;", "layout(location = 0) out vec4 color;\n")
	expectPrinted(t, "flat varying int id;", "flat varying int id;\n")
	expectPrinted(t, "invariant gl_Position;", "invariant gl_Position;\n")
	expectPrinted(t, "float k[2] = {1.0, 2.0};", "float k[2] = {1.0, 2.0};\n")
}

func TestVersionAndDirectives(t *testing.T) {
	expectPrinted(t, "#version 120\nuniform float a;", "#version 120\nuniform float a;\n")
	expectPrinted(t, "#version 330 core\n#extension GL_ARB_foo : enable\nvoid main() {}",
		"#version 330 core\n#extension GL_ARB_foo : enable\n\nvoid main() {}\n")
}

func TestStructsAndBlocks(t *testing.T) {
	expectPrinted(t, "struct Light { vec3 dir; float power; };",
		"struct Light {\n    vec3 dir;\n    float power;\n};\n")
	expectPrinted(t, "uniform Matrices { mat4 mvp; } matrices;",
		"uniform Matrices {\n    mat4 mvp;\n} matrices;\n")
}

func TestFunctions(t *testing.T) {
	expectPrinted(t, "void main() { gl_FragColor = vec4(1.0); }",
		"void main() {\n    gl_FragColor = vec4(1.0);\n}\n")
	expectPrinted(t, "float f(in float x, out vec2 y[2]);",
		"float f(in float x, out vec2 y[2]);\n")
	expectPrinted(t, "uniform float a;\nfloat g() { return a; }",
		"uniform float a;\n\nfloat g() {\n    return a;\n}\n")
}

// ----------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------

func TestControlFlow(t *testing.T) {
	expectPrinted(t, "void main() { if (a) b = 1; else { b = 2; } }",
		"void main() {\n    if (a) b = 1; else {\n        b = 2;\n    }\n}\n")
	expectPrinted(t, "void main() { for (int i = 0; i < 4; i++) { s += i; } }",
		"void main() {\n    for (int i = 0; i < 4; i++) {\n        s += i;\n    }\n}\n")
	expectPrinted(t, "void main() { while (x > 0) x--; }",
		"void main() {\n    while (x > 0) x--;\n}\n")
	expectPrinted(t, "void main() { do { x++; } while (x < 3); }",
		"void main() {\n    do {\n        x++;\n    } while (x < 3);\n}\n")
	expectPrinted(t, "void main() { switch (i) { case 0: break; default: discard; } }",
		"void main() {\n    switch (i) {\n        case 0:\n        break;\n        default:\n        discard;\n    }\n}\n")
}

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

func TestPrecedence(t *testing.T) {
	expectPrinted(t, "void main() { x = (a + b) * c; }", "void main() {\n    x = (a + b) * c;\n}\n")
	expectPrinted(t, "void main() { x = a - (b - c); }", "void main() {\n    x = a - (b - c);\n}\n")
	expectPrinted(t, "void main() { x = (a - b) - c; }", "void main() {\n    x = a - b - c;\n}\n")
	expectPrinted(t, "void main() { x = (a * b).xy; }", "void main() {\n    x = (a * b).xy;\n}\n")
	expectPrinted(t, "void main() { x = a ? b : c ? d : e; }", "void main() {\n    x = a ? b : c ? d : e;\n}\n")
	expectPrinted(t, "void main() { x = (a ? b : c).x; }", "void main() {\n    x = (a ? b : c).x;\n}\n")
	expectPrinted(t, "void main() { x = !(a && b) || c; }", "void main() {\n    x = !(a && b) || c;\n}\n")
}

func TestUnarySpacing(t *testing.T) {
	expectPrinted(t, "void main() { a = -(-a); }", "void main() {\n    a = - -a;\n}\n")
	expectPrintedMinify(t, "void main() { a = b - -c; }", "void main(){a=b- -c;}")
	expectPrintedMinify(t, "void main() { a = b + +c; }", "void main(){a=b+ +c;}")
}

// ----------------------------------------------------------------------------
// Whitespace Minification Tests
// ----------------------------------------------------------------------------

func TestMinifyWhitespace(t *testing.T) {
	expectPrintedMinify(t, "uniform float a;\nvoid main() { a = 1.0 + a; }",
		"uniform float a;void main(){a=1.0+a;}")
	expectPrintedMinify(t, "layout(location = 0) out vec4 color;",
		"layout(location=0)out vec4 color;")
	expectPrintedMinify(t, "#version 330 core\nuniform float a;",
		"#version 330 core\nuniform float a;")
	expectPrintedMinify(t, "float f() { return 1.0; }", "float f(){return 1.0;}")
}

// ----------------------------------------------------------------------------
// Synthesized Trees
// ----------------------------------------------------------------------------

func TestPrintSynthesizedNeedsParens(t *testing.T) {
	tree := ast.New()
	sum := tree.NewNode(ast.KindBinary, "+", tree.NewNode(ast.KindIdent, "a"), tree.NewNode(ast.KindIdent, "b"))
	product := tree.NewNode(ast.KindBinary, "*", sum, tree.NewNode(ast.KindIdent, "c"))
	swizzle := tree.NewNode(ast.KindMember, "xy", product)

	got := New(Options{}).PrintNode(tree, swizzle)
	if got != "((a + b) * c).xy" {
		t.Errorf("expected ((a + b) * c).xy, got %s", got)
	}
}

// ----------------------------------------------------------------------------
// Position Mapping
// ----------------------------------------------------------------------------

type recordedMapping struct{ line, col, offset int }

type recorder struct{ mappings []recordedMapping }

func (r *recorder) AddMapping(genLine, genCol, srcOffset int) {
	r.mappings = append(r.mappings, recordedMapping{genLine, genCol, srcOffset})
}

func TestMapperReceivesStatementPositions(t *testing.T) {
	source := "#version 120\nuniform float a;\nvoid main() {\n    a = 1.0;\n    a += 2.0;\n}\n"
	tree, errs := parser.Parse(source)
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}

	// Synthesized statements are not reported.
	body := tree.Child(tree.FunctionDefinitions("main")[0], 1)
	injected := tree.NewNode(ast.KindEmpty, "")
	tree.Append(body, injected)

	for _, minify := range []bool{false, true} {
		r := &recorder{}
		out := New(Options{MinifyWhitespace: minify, Mapper: r}).Print(tree)
		lines := strings.Split(out, "\n")

		found := 0
		for _, m := range r.mappings {
			if m.offset < 0 {
				t.Errorf("synthesized node reported: %+v", m)
			}
			if m.line >= len(lines) || m.col > len(lines[m.line]) {
				t.Fatalf("mapping %+v outside output:\n%s", m, out)
			}
			gen := strings.TrimLeft(lines[m.line][m.col:], " ")
			for _, stmt := range []string{"a = 1.0", "a += 2.0"} {
				if m.offset == strings.Index(source, stmt) {
					found++
					if want := strings.ReplaceAll(stmt, " ", ""); !strings.HasPrefix(strings.ReplaceAll(gen, " ", ""), want) {
						t.Errorf("minify=%v: mapping for %q points at %q", minify, stmt, gen)
					}
				}
			}
		}
		if found != 2 {
			t.Errorf("minify=%v: expected both statements mapped, got %+v", minify, r.mappings)
		}
		if first := r.mappings[0]; first != (recordedMapping{0, 0, 0}) {
			t.Errorf("expected the version line first, got %+v", first)
		}
	}
}
