package patcher_tests

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/HugoDaniel/glslpatch/internal/builtins"
	"github.com/HugoDaniel/glslpatch/internal/diagnostic"
	"github.com/HugoDaniel/glslpatch/internal/params"
	"github.com/HugoDaniel/glslpatch/internal/patcher"
	"github.com/HugoDaniel/glslpatch/internal/reflect"
)

func newPatcher(t *testing.T, opts patcher.Options) *patcher.Patcher {
	t.Helper()
	p, err := patcher.New(opts)
	require.NoError(t, err)
	return p
}

func patchError(t *testing.T, source string, pr params.Parameters) *diagnostic.SemanticError {
	t.Helper()
	_, err := newPatcher(t, patcher.Options{}).Patch(source, pr)
	require.Error(t, err)
	var se *diagnostic.SemanticError
	require.True(t, errors.As(err, &se), "expected a SemanticError, got %v", err)
	return se
}

// ----------------------------------------------------------------------------
// Properties
// ----------------------------------------------------------------------------

func TestPatchedOutputIsRejected(t *testing.T) {
	source := "#version 120\nvoid main() { gl_FragColor = vec4(1.0); }\n"
	pr := vanilla(params.StageFragment)
	p := newPatcher(t, patcher.Options{})

	first, err := p.Patch(source, pr)
	require.NoError(t, err)

	_, err = p.Patch(first.Code, pr)
	se, ok := diagnostic.AsSemantic(err)
	require.True(t, ok, "expected a SemanticError, got %v", err)
	assert.Equal(t, diagnostic.KindReservedPrefix, se.Kind)
	assert.Equal(t, "iris_FragData0", se.Construct)
}

func TestTextureMatrixExample(t *testing.T) {
	source := "#version 120\nvoid main(){ gl_FragColor = gl_TextureMatrix[0]*vec4(1.0); }"
	pr := params.New(params.StageFragment, params.PatchVanilla,
		params.WithAlphaTest(mustAlpha(t, "ALWAYS")))

	result, err := newPatcher(t, patcher.Options{}).Patch(source, pr)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.Code, "#version 330 core\n"), result.Code)
	assert.NotContains(t, result.Code, "gl_FragColor")
	assert.NotContains(t, result.Code, "gl_TextureMatrix")
	assert.Equal(t, 1, strings.Count(result.Code, "out vec4"), result.Code)
	assert.NotContains(t, result.Code, "discard")
	assert.Equal(t, 0, result.Stats.WrapDepth)
}

func TestMinimalShaderHasNoLegacyTokens(t *testing.T) {
	for _, source := range []string{
		"#version 120\nvoid main() {}\n",
		"#version 150 compatibility\nout vec4 unusedColor;\nvoid main() {}\n",
	} {
		result, err := newPatcher(t, patcher.Options{}).Patch(source, params.New(params.StageFragment, params.PatchVanilla))
		if strings.Contains(source, "unusedColor") {
			// Outputs without a location are rejected rather than guessed.
			se, ok := diagnostic.AsSemantic(err)
			require.True(t, ok)
			assert.Equal(t, diagnostic.KindOutputLocation, se.Kind)
			continue
		}
		require.NoError(t, err)
		assert.Contains(t, result.Code, " core")
		for name := range builtins.LegacyVariables {
			assert.NotContains(t, result.Code, name)
		}
		assert.NotContains(t, result.Code, "varying")
		assert.NotContains(t, result.Code, "attribute")
	}
}

func TestHighTextureMatrixIndexUnchanged(t *testing.T) {
	source := `#version 120
varying vec4 coord;
void main() {
    coord = gl_TextureMatrix[4] * gl_MultiTexCoord0;
    gl_Position = ftransform();
}
`
	result, err := newPatcher(t, patcher.Options{Validate: true}).Patch(source, vanilla(params.StageVertex))
	require.NoError(t, err)
	assert.Contains(t, result.Code, "gl_TextureMatrix[4]")

	var codes []diagnostic.Code
	for _, w := range result.Warnings {
		codes = append(codes, w.Code)
	}
	assert.Contains(t, codes, diagnostic.CodeTextureMatrix)
	assert.Contains(t, codes, diagnostic.CodeLegacyBuiltin)
}

func TestRepeatedInjectionDeclaresOnce(t *testing.T) {
	source := `#version 120
void main() {
    vec4 a = gl_Fog.color;
    vec4 b = gl_Fog.color * 0.5;
    gl_FragColor = a + b;
}
`
	result, err := newPatcher(t, patcher.Options{}).Patch(source, vanilla(params.StageFragment))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(result.Code, "uniform vec4 iris_FogColor;"), result.Code)
	assert.Equal(t, 2, strings.Count(result.Code, "iris_FogColor")-1, result.Code)
}

func TestFragColorAndFragDataConflict(t *testing.T) {
	se := patchError(t, `#version 120
void main() {
    gl_FragColor = vec4(1.0);
    gl_FragData[1] = vec4(0.0);
}
`, vanilla(params.StageFragment))
	assert.Equal(t, diagnostic.KindFragOutput, se.Kind)
	assert.Contains(t, se.Message, "gl_FragColor")
	assert.Contains(t, se.Message, "gl_FragData")
	assert.Equal(t, "fragment", se.Stage)
	assert.Equal(t, "vanilla", se.Patch)
}

// ----------------------------------------------------------------------------
// Driver
// ----------------------------------------------------------------------------

func TestSyntaxError(t *testing.T) {
	se := patchError(t, "#version 120\nvoid main() {\n    float x = ;\n}\n", vanilla(params.StageVertex))
	assert.Equal(t, diagnostic.KindSyntax, se.Kind)
	assert.Equal(t, 3, se.Line)
	assert.Equal(t, "vertex", se.Stage)
	assert.Equal(t, "vanilla", se.Patch)
	assert.Contains(t, se.Error(), "vertex/vanilla: 3:")
}

func TestStrictValidation(t *testing.T) {
	// gl_SecondaryColor has no replacement, so it survives patching.
	source := "#version 120\nvoid main() { gl_FragColor = gl_SecondaryColor; }\n"
	pr := vanilla(params.StageFragment)

	result, err := newPatcher(t, patcher.Options{Validate: true}).Patch(source, pr)
	require.NoError(t, err)
	require.NotEmpty(t, result.Warnings)
	assert.Equal(t, diagnostic.CodeLegacyBuiltin, result.Warnings[0].Code)

	_, err = newPatcher(t, patcher.Options{StrictValidation: true}).Patch(source, pr)
	assert.ErrorIs(t, err, patcher.ErrValidation)
}

func TestReflectPatchedInterface(t *testing.T) {
	source := `#version 120
varying vec2 texcoord;
void main() {
    gl_Position = ftransform();
    texcoord = gl_MultiTexCoord0.xy;
}
`
	p := newPatcher(t, patcher.Options{Reflect: true})
	withoutOverlay := vanilla(params.StageVertex, params.WithAttributes(params.AttrAll&^params.AttrOverlay))
	result, err := p.Patch(source, withoutOverlay)
	require.NoError(t, err)
	require.NotNil(t, result.Interface)

	iface := result.Interface
	assert.Equal(t, "330", iface.Version)
	assert.Equal(t, "core", iface.Profile)
	assert.True(t, iface.HasMain)
	assert.ElementsMatch(t, []string{"iris_Position", "iris_UV0"}, variableNames(iface.Inputs))
	assert.Equal(t, []string{"texcoord"}, variableNames(iface.Outputs))
	assert.ElementsMatch(t, []string{"iris_ModelViewMat", "iris_ProjMat"}, variableNames(iface.Uniforms))

	// The entity overlay adds its own vertex input, output and sampler.
	result, err = p.Patch(source, vanilla(params.StageVertex))
	require.NoError(t, err)
	iface = result.Interface
	assert.Subset(t, variableNames(iface.Inputs), []string{"iris_Position", "iris_UV0", "iris_UV1"})
	assert.ElementsMatch(t, []string{"iris_entityColor", "texcoord"}, variableNames(iface.Outputs))
	assert.Contains(t, variableNames(iface.Uniforms), "iris_overlay")
}

func variableNames(vars []reflect.Variable) []string {
	names := make([]string, 0, len(vars))
	for _, v := range vars {
		names = append(names, v.Name)
	}
	return names
}

func TestStats(t *testing.T) {
	source := "#version 120\nvoid main() { gl_FragColor = vec4(1.0); }\n"
	pr := params.New(params.StageFragment, params.PatchVanilla, params.WithAlphaTest(mustAlpha(t, "GREATER 0.5")))
	result, err := newPatcher(t, patcher.Options{}).Patch(source, pr)
	require.NoError(t, err)

	assert.Equal(t, len(source), result.Stats.OriginalSize)
	assert.Equal(t, len(result.Code), result.Stats.PatchedSize)
	assert.Equal(t, 1, result.Stats.WrapDepth)
	assert.Contains(t, result.Stats.PassesRun, "frag-outputs")
	assert.Contains(t, result.Stats.PassesRun, "alpha-test")
	assert.NotContains(t, result.Stats.PassesRun, "vertex-attributes")
}

// ----------------------------------------------------------------------------
// Concurrency
// ----------------------------------------------------------------------------

func TestConcurrentJobsShareContext(t *testing.T) {
	p := newPatcher(t, patcher.Options{CacheSize: 64})
	sources := make([]string, 16)
	for i := range sources {
		sources[i] = fmt.Sprintf(`#version 120
varying vec4 glcolor;
void main() {
    gl_Position = ftransform();
    glcolor = gl_Color * %d.0;
}
`, i)
	}
	pr := vanilla(params.StageVertex)

	expected := make([]string, len(sources))
	for i, src := range sources {
		r, err := p.Patch(src, pr)
		require.NoError(t, err)
		expected[i] = r.Code
	}

	actual := make([]string, len(sources))
	var g errgroup.Group
	for round := 0; round < 4; round++ {
		round := round
		for i, src := range sources {
			i, src := i, src
			g.Go(func() error {
				r, err := p.Patch(src, pr)
				if err != nil {
					return err
				}
				if round == 0 {
					actual[i] = r.Code
				} else if r.Code != expected[i] {
					return fmt.Errorf("source %d: output differs between runs", i)
				}
				return nil
			})
		}
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, expected, actual)

	fragments, _ := p.CacheStats()
	assert.Positive(t, fragments.Hits)
}

// ----------------------------------------------------------------------------
// Source Maps
// ----------------------------------------------------------------------------

func TestSourceMapTracesPatchedLines(t *testing.T) {
	source := `#version 120
varying vec4 glcolor;
void main() {
    gl_Position = ftransform();
    glcolor = gl_Color;
}
`
	for _, minify := range []bool{false, true} {
		result, err := newPatcher(t, patcher.Options{SourceMap: true, MinifyWhitespace: minify}).
			Patch(source, vanilla(params.StageVertex))
		require.NoError(t, err)
		require.NotNil(t, result.SourceMap)

		line := 0
		for i, text := range strings.Split(result.Code, "\n") {
			if strings.Contains(text, "glcolor") && strings.Contains(text, "iris_Color") {
				line = i + 1
			}
		}
		require.NotZero(t, line, result.Code)

		// Minified, the whole body shares one output line, which maps to
		// the last statement starting on it.
		got, ok := result.SourceMap.OriginalLine(line)
		require.True(t, ok)
		assert.Equal(t, 5, got, result.Code)
	}

	result, err := newPatcher(t, patcher.Options{}).Patch(source, vanilla(params.StageVertex))
	require.NoError(t, err)
	assert.Nil(t, result.SourceMap)
}
