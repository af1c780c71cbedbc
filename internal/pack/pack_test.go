package pack

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HugoDaniel/glslpatch/internal/config"
	"github.com/HugoDaniel/glslpatch/internal/diagnostic"
	"github.com/HugoDaniel/glslpatch/internal/params"
	"github.com/HugoDaniel/glslpatch/internal/patcher"
)

const (
	vertexSource = `#version 120
varying vec2 texcoord;
void main() {
    gl_Position = ftransform();
    texcoord = gl_MultiTexCoord0.xy;
}
`
	fragmentSource = `#version 120
uniform sampler2D colortex0;
varying vec2 texcoord;
void main() {
    gl_FragColor = texture2D(colortex0, texcoord);
}
`
	brokenSource = "#version 120\nvoid main() {\n    gl_FragColor = vec4(1.0);\n    gl_FragData[1] = vec4(0.0);\n}\n"
)

func testPack() fstest.MapFS {
	return fstest.MapFS{
		"shaders/gbuffers_basic.vsh": {Data: []byte(vertexSource)},
		"shaders/gbuffers_basic.fsh": {Data: []byte(fragmentSource)},
		"shaders/composite.vsh":      {Data: []byte(vertexSource)},
		"shaders/composite.fsh":      {Data: []byte(fragmentSource)},
		"shaders/lib/common.glsl":    {Data: []byte("float pi = 3.14;")},
		"shaders/shaders.properties": {Data: []byte("")},
	}
}

func newLoader(t *testing.T, parallelism int) *Loader {
	t.Helper()
	p, err := patcher.New(patcher.DefaultOptions())
	require.NoError(t, err)
	return NewLoader(p, ConfigResolver(nil), parallelism)
}

func TestDiscoverFS(t *testing.T) {
	pk, err := DiscoverFS(testPack(), "test")
	require.NoError(t, err)

	assert.Equal(t, "test", pk.Name)
	require.Len(t, pk.Programs, 2)
	assert.Equal(t, "shaders/composite", pk.Programs[0].Name)
	assert.Equal(t, "shaders/gbuffers_basic", pk.Programs[1].Name)
	assert.Equal(t, 4, pk.Stages())

	stages := pk.Programs[1].Stages
	require.Len(t, stages, 2)
	assert.Equal(t, params.StageVertex, stages[0].Stage)
	assert.Equal(t, params.StageFragment, stages[1].Stage)
	assert.Equal(t, "shaders/gbuffers_basic.fsh", stages[1].Path)
	assert.Equal(t, fragmentSource, stages[1].Code)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "final.fsh"), []byte(fragmentSource), 0644))

	pk, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(dir), pk.Name)
	require.Len(t, pk.Programs, 1)
	assert.Equal(t, "final", pk.Programs[0].Name)
}

func TestDefaultKind(t *testing.T) {
	tests := []struct {
		program string
		stage   params.Stage
		want    params.PatchKind
	}{
		{"gbuffers_terrain", params.StageVertex, params.PatchVanilla},
		{"shaders/composite1", params.StageFragment, params.PatchComposite},
		{"world1/deferred", params.StageVertex, params.PatchComposite},
		{"final", params.StageFragment, params.PatchComposite},
		{"composite", params.StageCompute, params.PatchCompute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultKind(tt.program, tt.stage), tt.program)
	}
}

func TestConfigResolver(t *testing.T) {
	cfg := &config.Config{
		Programs: map[string]config.Program{
			"gbuffers_terrain": {Patch: "sodium-terrain"},
		},
	}
	resolve := ConfigResolver(cfg)

	pr, err := resolve("gbuffers_terrain", params.StageVertex)
	require.NoError(t, err)
	assert.Equal(t, params.PatchSodiumTerrain, pr.Kind())

	pr, err = resolve("composite2", params.StageFragment)
	require.NoError(t, err)
	assert.Equal(t, params.PatchComposite, pr.Kind())
}

// ----------------------------------------------------------------------------
// Loader
// ----------------------------------------------------------------------------

func TestLoad(t *testing.T) {
	pk, err := DiscoverFS(testPack(), "test")
	require.NoError(t, err)

	l := newLoader(t, 2)
	assert.Nil(t, l.Current())

	patched, err := l.Load(context.Background(), pk)
	require.NoError(t, err)
	assert.Same(t, patched, l.Current())
	assert.Equal(t, "test", patched.Pack)

	r, ok := patched.Result("shaders/composite", params.StageFragment)
	require.True(t, ok)
	assert.Contains(t, r.Code, "core")
	assert.NotContains(t, r.Code, "gl_FragColor")

	_, ok = patched.Result("shaders/composite", params.StageGeometry)
	assert.False(t, ok)
}

func TestFailedLoadKeepsPrevious(t *testing.T) {
	good, err := DiscoverFS(testPack(), "test")
	require.NoError(t, err)

	l := newLoader(t, 4)
	first, err := l.Load(context.Background(), good)
	require.NoError(t, err)

	broken := testPack()
	broken["shaders/composite.fsh"] = &fstest.MapFile{Data: []byte(brokenSource)}
	bad, err := DiscoverFS(broken, "test")
	require.NoError(t, err)

	_, err = l.Load(context.Background(), bad)
	require.Error(t, err)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "shaders/composite", le.Program)
	assert.Equal(t, params.StageFragment, le.Stage)
	se, ok := diagnostic.AsSemantic(err)
	require.True(t, ok)
	assert.Equal(t, diagnostic.KindFragOutput, se.Kind)

	assert.Same(t, first, l.Current())

	second, err := l.Load(context.Background(), good)
	require.NoError(t, err)
	assert.NotEqual(t, first.Generation, second.Generation)
	assert.Same(t, second, l.Current())
}

func TestLoadResolverError(t *testing.T) {
	pk, err := DiscoverFS(testPack(), "test")
	require.NoError(t, err)

	p, err := patcher.New(patcher.DefaultOptions())
	require.NoError(t, err)
	resolve := ConfigResolver(&config.Config{Defaults: config.Program{Patch: "deferred"}})

	_, err = NewLoader(p, resolve, 0).Load(context.Background(), pk)
	assert.ErrorContains(t, err, "unknown patch kind")
}

func TestLoadCanceled(t *testing.T) {
	pk, err := DiscoverFS(testPack(), "test")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := newLoader(t, 1)
	_, err = l.Load(ctx, pk)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, l.Current())
}
