package passes

import (
	"fmt"

	"github.com/HugoDaniel/glslpatch/internal/transform"
)

// decl is a declaration a pass may inject. Passes that need the same name
// inject the same text, so the second injection is a no-op.
type decl struct {
	name string
	text string
}

var (
	declTextureMat = decl{"texture-mat", "uniform mat4 iris_TextureMat;"}

	declLightmapTextureMatrix = decl{"lightmap-texture-matrix",
		"const mat4 iris_LightmapTextureMatrix = mat4(" +
			"vec4(0.00390625, 0.0, 0.0, 0.0), " +
			"vec4(0.0, 0.00390625, 0.0, 0.0), " +
			"vec4(0.0, 0.0, 0.00390625, 0.0), " +
			"vec4(0.03125, 0.03125, 0.03125, 1.0));"}

	declModelViewMat = decl{"model-view-mat", "uniform mat4 iris_ModelViewMat;"}
	declProjMat      = decl{"proj-mat", "uniform mat4 iris_ProjMat;"}
	declNormalMat    = decl{"normal-mat", "uniform mat3 iris_NormalMat;"}
	declViewShrink   = decl{"view-shrink",
		"const mat4 iris_VIEW_SHRINK = mat4(" +
			"vec4(1.0 - 1.0 / 256.0, 0.0, 0.0, 0.0), " +
			"vec4(0.0, 1.0 - 1.0 / 256.0, 0.0, 0.0), " +
			"vec4(0.0, 0.0, 1.0 - 1.0 / 256.0, 0.0), " +
			"vec4(0.0, 0.0, 0.0, 1.0));"}

	declPosition       = decl{"position", "in vec3 iris_Position;"}
	declChunkOffset    = decl{"chunk-offset", "uniform vec3 iris_ChunkOffset;"}
	declColor          = decl{"color", "in vec4 iris_Color;"}
	declColorModulator = decl{"color-modulator", "uniform vec4 iris_ColorModulator;"}
	declUV0            = decl{"uv0", "in vec2 iris_UV0;"}
	declUV1            = decl{"uv1", "in ivec2 iris_UV1;"}
	declUV2            = decl{"uv2", "in ivec2 iris_UV2;"}
	declNormal         = decl{"normal", "in vec3 iris_Normal;"}

	declFogColor   = decl{"fog-color", "uniform vec4 iris_FogColor;"}
	declFogDensity = decl{"fog-density", "uniform float iris_FogDensity;"}
	declFogStart   = decl{"fog-start", "uniform float iris_FogStart;"}
	declFogEnd     = decl{"fog-end", "uniform float iris_FogEnd;"}

	declOverlay         = decl{"overlay", "uniform sampler2D iris_overlay;"}
	declLineWidth       = decl{"line-width", "uniform float iris_LineWidth;"}
	declScreenSize      = decl{"screen-size", "uniform vec2 iris_ScreenSize;"}
	declEntityColorOut  = decl{"entity-color", "out vec4 iris_entityColor;"}
	declEntityColorIn   = decl{"entity-color", "in vec4 iris_entityColor;"}
	declFogFragCoordOut = decl{"fog-frag-coord", "out float iris_FogFragCoord;"}
	declFogFragCoordIn  = decl{"fog-frag-coord", "in float iris_FogFragCoord;"}
)

// fragData is the normalized declaration of fragment output n.
func fragData(n int) decl {
	return decl{
		name: fmt.Sprintf("frag-data-%d", n),
		text: fmt.Sprintf("layout(location = %d) out vec4 iris_FragData%d;", n, n),
	}
}

// varying declares a vec4 passed from the vertex to the fragment stage.
func varying(qualifier, name string) decl {
	return decl{
		name: qualifier + "-" + name,
		text: fmt.Sprintf("%s vec4 %s;", qualifier, name),
	}
}

func inject(job *transform.Job, decls ...decl) error {
	for _, d := range decls {
		if err := job.Inject(transform.BeforeDeclarations, d.name, d.text); err != nil {
			return err
		}
	}
	return nil
}

// replaceInjecting replaces every use of name with expr and injects decls
// when at least one use was replaced.
func replaceInjecting(job *transform.Job, name, expr string, decls ...decl) (int, error) {
	n, err := job.ReplaceIdent(name, expr)
	if err != nil || n == 0 {
		return n, err
	}
	return n, inject(job, decls...)
}
