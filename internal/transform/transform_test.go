package transform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HugoDaniel/glslpatch/internal/ast"
	"github.com/HugoDaniel/glslpatch/internal/diagnostic"
	"github.com/HugoDaniel/glslpatch/internal/params"
	"github.com/HugoDaniel/glslpatch/internal/parser"
	"github.com/HugoDaniel/glslpatch/internal/pattern"
	"github.com/HugoDaniel/glslpatch/internal/printer"
	"github.com/HugoDaniel/glslpatch/internal/test"
)

// ----------------------------------------------------------------------------
// Test Helpers
// ----------------------------------------------------------------------------

func newJob(t *testing.T, src string) *Job {
	t.Helper()
	tree, errs := parser.Parse(src)
	require.Empty(t, errs)
	ctx, err := NewContext(16)
	require.NoError(t, err)
	return NewJob(ctx, tree, params.New(params.StageFragment, params.PatchVanilla), src)
}

func output(j *Job) string {
	return printer.New(printer.Options{}).Print(j.Tree)
}

type stubPass struct {
	name   string
	active func(params.Parameters, Flags) bool
	run    func(*Job) error
}

func (p stubPass) Name() string { return p.name }

func (p stubPass) Active(pr params.Parameters, f Flags) bool {
	if p.active == nil {
		return true
	}
	return p.active(pr, f)
}

func (p stubPass) Run(j *Job) error {
	if p.run == nil {
		return nil
	}
	return p.run(j)
}

func named(name string) stubPass {
	return stubPass{name: name}
}

// ----------------------------------------------------------------------------
// Schedule
// ----------------------------------------------------------------------------

func TestScheduleOrderRespectsEdges(t *testing.T) {
	s, err := NewSchedule([]Registration{
		{Pass: named("version")},
		{Pass: named("x"), After: []string{"z"}},
		{Pass: named("y"), After: []string{"version"}},
		{Pass: named("z"), After: []string{"version"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"version", "y", "z", "x"}, s.Order())
}

func TestScheduleErrors(t *testing.T) {
	_, err := NewSchedule([]Registration{
		{Pass: named("a"), After: []string{"b"}},
		{Pass: named("b"), After: []string{"a"}},
		{Pass: named("c")},
	})
	assert.ErrorContains(t, err, "cycle among a, b")

	_, err = NewSchedule([]Registration{{Pass: named("a"), After: []string{"missing"}}})
	assert.ErrorContains(t, err, "unknown pass")

	_, err = NewSchedule([]Registration{{Pass: named("a")}, {Pass: named("a")}})
	assert.ErrorContains(t, err, "registered twice")
}

func TestExecuteEvaluatesActivationLazily(t *testing.T) {
	var order []string
	s, err := NewSchedule([]Registration{
		{Pass: stubPass{name: "sets", run: func(j *Job) error {
			order = append(order, "sets")
			j.Flags |= FlagChunkOffsetApplied
			return nil
		}}},
		{Pass: stubPass{
			name:   "needs",
			active: func(_ params.Parameters, f Flags) bool { return f.Has(FlagChunkOffsetApplied) },
			run:    func(*Job) error { order = append(order, "needs"); return nil },
		}, After: []string{"sets"}},
		{Pass: stubPass{
			name:   "never",
			active: func(params.Parameters, Flags) bool { return false },
			run:    func(*Job) error { order = append(order, "never"); return nil },
		}},
	})
	require.NoError(t, err)

	j := newJob(t, "void main() {}")
	require.NoError(t, s.Execute(j))
	assert.Equal(t, []string{"sets", "needs"}, order)
	assert.Equal(t, []string{"sets", "needs"}, j.Stats.PassesRun)
}

func TestExecuteErrors(t *testing.T) {
	s, err := NewSchedule([]Registration{
		{Pass: stubPass{name: "bad", run: func(j *Job) error {
			return diagnostic.Errorf(diagnostic.KindDirective, "nope")
		}}},
	})
	require.NoError(t, err)
	err = s.Execute(newJob(t, "void main() {}"))
	se, ok := diagnostic.AsSemantic(err)
	require.True(t, ok)
	assert.Equal(t, "fragment", se.Stage)
	assert.Equal(t, "vanilla", se.Patch)

	boom := errors.New("boom")
	s, err = NewSchedule([]Registration{{Pass: stubPass{name: "broken", run: func(*Job) error { return boom }}}})
	require.NoError(t, err)
	err = s.Execute(newJob(t, "void main() {}"))
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "pass broken")
}

// ----------------------------------------------------------------------------
// Layers
// ----------------------------------------------------------------------------

var (
	swizzleLayer = Layer{
		Pattern: pattern.MustCompile("(gl_TextureMatrix[<u:literal>] * <c:identifier>).xy", parser.RuleExpression),
		Rewrite: ReplaceText("<c>.xy * 2.0"),
	}
	indexLayer = Layer{
		Pattern: pattern.MustCompile("gl_TextureMatrix[<i:literal>]", parser.RuleExpression),
		Rewrite: ReplaceText("iris_TextureMat"),
	}
)

func TestLayersOutermostFirst(t *testing.T) {
	ls, err := NewLayers(swizzleLayer, indexLayer)
	require.NoError(t, err)

	j := newJob(t, "void main() { v = (gl_TextureMatrix[1] * c).xy; w = gl_TextureMatrix[0]; }")
	n, err := j.Apply(ls)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "void main() {\n    v = c.xy * 2.0;\n    w = iris_TextureMat;\n}\n", output(j))
}

func TestLayersRejectInnerFirst(t *testing.T) {
	_, err := NewLayers(indexLayer, swizzleLayer)
	assert.ErrorContains(t, err, "must be declared after")
}

func TestInnerFirstDestroysOuterShape(t *testing.T) {
	// Bypass the order check to show what it guards against.
	ls := &Layers{layers: []Layer{indexLayer, swizzleLayer}}

	j := newJob(t, "void main() { v = (gl_TextureMatrix[1] * c).xy; }")
	n, err := j.Apply(ls)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "void main() {\n    v = (iris_TextureMat * c).xy;\n}\n", output(j))
}

func TestRewriteMaySkip(t *testing.T) {
	ls := MustLayers(Layer{
		Pattern: pattern.MustCompile("gl_TextureMatrix[<i:literal>]", parser.RuleExpression),
		Rewrite: func(j *Job, m Match) (ast.NodeID, error) {
			if v, _ := j.Tree.IntLiteralValue(m.Captures["i"]); v >= 3 {
				return ast.NoNode, nil
			}
			return ReplaceText("mat4(1.0)")(j, m)
		},
	})
	j := newJob(t, "void main() { a = gl_TextureMatrix[0]; b = gl_TextureMatrix[3]; }")
	n, err := j.Apply(ls)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "void main() {\n    a = mat4(1.0);\n    b = gl_TextureMatrix[3];\n}\n", output(j))
}

func TestNestedMatchesRewriteInnerFirst(t *testing.T) {
	ls := MustLayers(Layer{
		Pattern: pattern.MustCompile("wrap(<x:expression>)", parser.RuleExpression),
		Rewrite: ReplaceText("(<x> + 1.0)"),
	})
	j := newJob(t, "void main() { a = wrap(wrap(b)); }")
	_, err := j.Apply(ls)
	require.NoError(t, err)
	assert.Equal(t, 0, j.Tree.Count("wrap"))
	assert.Equal(t, "void main() {\n    a = b + 1.0 + 1.0;\n}\n", output(j))
}

// ----------------------------------------------------------------------------
// Injection
// ----------------------------------------------------------------------------

func TestInjectionPoints(t *testing.T) {
	j := newJob(t, "#version 330 core\n#extension GL_X : enable\nuniform float a;\nvoid f() {}\nvoid main() {}")

	require.NoError(t, j.Inject(BeforeDeclarations, "a", "uniform float iris_A;"))
	require.NoError(t, j.Inject(BeforeDeclarations, "b", "uniform float iris_B;"))
	require.NoError(t, j.Inject(BeforeFunctions, "g", "float iris_g() { return 1.0; }"))
	require.NoError(t, j.Inject(End, "n", "const int iris_N = 1;"))

	test.AssertEqualWithDiff(t, output(j), test.Normalize(`
		#version 330 core
		#extension GL_X : enable
		uniform float iris_A;
		uniform float iris_B;
		uniform float a;

		float iris_g() {
		    return 1.0;
		}

		void f() {}

		void main() {}
		const int iris_N = 1;
	`))
	assert.Equal(t, 4, j.Stats.Injected)
}

func TestInjectionIsIdempotent(t *testing.T) {
	j := newJob(t, "void main() {}")
	require.NoError(t, j.Inject(BeforeDeclarations, "fog", "uniform vec4 iris_FogColor;"))
	require.NoError(t, j.Inject(BeforeDeclarations, "fog", "uniform vec4 iris_FogColor;"))
	require.NoError(t, j.Inject(End, "fog-again", "uniform vec4 iris_FogColor;"))
	assert.Equal(t, 1, j.Tree.Count("iris_FogColor"))
	assert.Equal(t, 1, j.Stats.Injected)
}

func TestInjectionConflict(t *testing.T) {
	j := newJob(t, "uniform vec2 fogColor;\nvoid main() {}")
	err := j.Inject(BeforeDeclarations, "fog", "uniform vec3 fogColor;")
	se, ok := diagnostic.AsSemantic(err)
	require.True(t, ok)
	assert.Equal(t, diagnostic.KindInjection, se.Kind)
	assert.Equal(t, "fogColor", se.Construct)
	assert.Equal(t, 1, se.Line)
}

func TestInjectionCachesFragments(t *testing.T) {
	ctx, err := NewContext(16)
	require.NoError(t, err)
	p := params.New(params.StageFragment, params.PatchVanilla)
	for i := 0; i < 3; i++ {
		src := "void main() {}"
		tree, errs := parser.Parse(src)
		require.Empty(t, errs)
		j := NewJob(ctx, tree, p, src)
		require.NoError(t, j.Inject(End, "x", "uniform float iris_X;"))
	}
	frags, _ := ctx.CacheStats()
	assert.Equal(t, uint64(2), frags.Hits)
}

// ----------------------------------------------------------------------------
// Main Wrapper
// ----------------------------------------------------------------------------

func TestWrapMainChains(t *testing.T) {
	j := newJob(t, "void main() { x = 1.0; }")
	require.NoError(t, j.WrapMain("", "a = 1.0;"))
	require.NoError(t, j.WrapMain("b = 2.0;", ""))

	test.AssertEqualWithDiff(t, output(j), test.Normalize(`
		void iris_main_0() {
		    x = 1.0;
		}

		void iris_main_1() {
		    iris_main_0();
		    a = 1.0;
		}

		void main() {
		    b = 2.0;
		    iris_main_1();
		}
	`))
	assert.Equal(t, 2, j.WrapDepth())
	assert.True(t, j.Flags.Has(FlagMainWrapped))
	assert.Len(t, j.Tree.FunctionDefinitions("main"), 1)
}

func TestWrapMainErrors(t *testing.T) {
	err := newJob(t, "void f() {}").WrapMain("", "")
	se, ok := diagnostic.AsSemantic(err)
	require.True(t, ok)
	assert.Equal(t, diagnostic.KindMissingMain, se.Kind)

	err = newJob(t, "void main() {}\nvoid main() {}").WrapMain("", "")
	se, ok = diagnostic.AsSemantic(err)
	require.True(t, ok)
	assert.Contains(t, se.Message, "defined 2 times")
}

// ----------------------------------------------------------------------------
// Tree Helpers
// ----------------------------------------------------------------------------

func TestReplaceIdent(t *testing.T) {
	j := newJob(t, "void main() { a = gl_Color.rgb; b = gl_Color; }")
	n, err := j.ReplaceIdent("gl_Color", "iris_Color * iris_ColorModulator")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "void main() {\n    a = (iris_Color * iris_ColorModulator).rgb;\n    b = iris_Color * iris_ColorModulator;\n}\n", output(j))
}

func TestDeclarationLookup(t *testing.T) {
	j := newJob(t, "uniform float a, b;\nstruct S { float c; };\nvoid f(float d) { float e; }\nvoid main() {}")
	assert.True(t, j.Declaration("a").IsValid())
	assert.True(t, j.Declaration("f").IsValid())
	assert.False(t, j.Declaration("c").IsValid())
	assert.False(t, j.Declaration("d").IsValid())
	assert.False(t, j.Declaration("e").IsValid())

	assert.True(t, j.RemoveDeclarator("a"))
	assert.Equal(t, "uniform float b;\n", output(j)[:len("uniform float b;\n")])
	assert.True(t, j.RemoveDeclarator("b"))
	assert.False(t, j.Declaration("b").IsValid())
	assert.False(t, j.RemoveDeclarator("missing"))
}
