package passes

import (
	"fmt"

	"github.com/HugoDaniel/glslpatch/internal/params"
	"github.com/HugoDaniel/glslpatch/internal/transform"
)

// ----------------------------------------------------------------------------
// Entity Overlay
// ----------------------------------------------------------------------------

const (
	overlayVertex = `iris_entityColor = texelFetch(iris_overlay, iris_UV1, 0);
iris_entityColor.a = 1.0 - iris_entityColor.a;`

	overlayFragment = `iris_FragData0.rgb = mix(iris_entityColor.rgb, iris_FragData0.rgb, iris_entityColor.a);`
)

// Overlay blends the entity hurt and flash overlay into the fragment color.
// The vertex stage samples the overlay texture; the fragment stage mixes it
// into iris_FragData0 after the shader's own main has run.
var Overlay transform.Pass = &pass{
	name: "overlay",
	active: func(p params.Parameters, flags transform.Flags) bool {
		if !entityKind(p) || !p.Attributes().Has(params.AttrOverlay) {
			return false
		}
		return isStage(p, params.StageVertex) ||
			(isStage(p, params.StageFragment) && flags.Has(transform.FlagFragOutputNormalized))
	},
	run: func(job *transform.Job) error {
		if job.Params.Stage() == params.StageVertex {
			if err := inject(job, declOverlay, declUV1, declEntityColorOut); err != nil {
				return err
			}
			return job.WrapMain(overlayVertex, "")
		}
		if err := inject(job, declEntityColorIn); err != nil {
			return err
		}
		return job.WrapMain("", overlayFragment)
	},
}

// ----------------------------------------------------------------------------
// Wide Lines
// ----------------------------------------------------------------------------

// lineExpansion moves each line vertex sideways in screen space by half the
// line width. Even vertices go to one side and odd ones to the other.
const lineExpansion = `vec4 iris_linePosStart = gl_Position;
vec4 iris_linePosEnd = iris_ProjMat * iris_VIEW_SHRINK * iris_ModelViewMat * vec4(iris_Position + iris_Normal, 1.0);
vec3 iris_ndc1 = iris_linePosStart.xyz / iris_linePosStart.w;
vec3 iris_ndc2 = iris_linePosEnd.xyz / iris_linePosEnd.w;
vec2 iris_lineScreenDirection = normalize((iris_ndc2.xy - iris_ndc1.xy) * iris_ScreenSize);
vec2 iris_lineOffset = vec2(-iris_lineScreenDirection.y, iris_lineScreenDirection.x) * iris_LineWidth / iris_ScreenSize;
if (iris_lineOffset.x < 0.0) {
    iris_lineOffset *= -1.0;
}
if (gl_VertexID % 2 == 0) {
    gl_Position = vec4((iris_ndc1 + vec3(iris_lineOffset, 0.0)) * iris_linePosStart.w, iris_linePosStart.w);
} else {
    gl_Position = vec4((iris_ndc1 - vec3(iris_lineOffset, 0.0)) * iris_linePosStart.w, iris_linePosStart.w);
}`

// WideLines expands line primitives to the requested width after the
// vertex main has computed gl_Position. It does not run once the chunk
// offset has been applied, since those draws are never lines.
var WideLines transform.Pass = &pass{
	name: "wide-lines",
	active: func(p params.Parameters, flags transform.Flags) bool {
		return wideLines(p) && !flags.Has(transform.FlagChunkOffsetApplied)
	},
	run: func(job *transform.Job) error {
		err := inject(job,
			declViewShrink, declModelViewMat, declProjMat,
			declPosition, declNormal, declLineWidth, declScreenSize)
		if err != nil {
			return err
		}
		if err := job.WrapMain("", lineExpansion); err != nil {
			return err
		}
		job.Flags |= transform.FlagWideLinesApplied
		return nil
	},
}

// ----------------------------------------------------------------------------
// Alpha Test
// ----------------------------------------------------------------------------

// AlphaTest emulates the fixed-function alpha test by discarding fragments
// whose final alpha fails the job's comparison.
var AlphaTest transform.Pass = &pass{
	name: "alpha-test",
	active: func(p params.Parameters, flags transform.Flags) bool {
		at, ok := p.AlphaTest()
		return ok && at.Active() && isStage(p, params.StageFragment) &&
			flags.Has(transform.FlagFragOutputNormalized)
	},
	run: func(job *transform.Job) error {
		at, _ := job.Params.AlphaTest()
		epilogue := fmt.Sprintf("if (!(%s)) {\n    discard;\n}", at.Condition("iris_FragData0.a"))
		return job.WrapMain("", epilogue)
	},
}
