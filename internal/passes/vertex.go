package passes

import (
	"github.com/HugoDaniel/glslpatch/internal/builtins"
	"github.com/HugoDaniel/glslpatch/internal/params"
	"github.com/HugoDaniel/glslpatch/internal/parser"
	"github.com/HugoDaniel/glslpatch/internal/pattern"
	"github.com/HugoDaniel/glslpatch/internal/transform"
)

// ----------------------------------------------------------------------------
// ftransform
// ----------------------------------------------------------------------------

var ftransformLayers = transform.MustLayers(transform.Layer{
	Pattern: pattern.MustCompile("ftransform()", parser.RuleExpression),
	Rewrite: transform.ReplaceText("gl_ModelViewProjectionMatrix * gl_Vertex"),
})

// FTransform expands ftransform() so the matrix and attribute passes can
// rewrite its parts.
var FTransform transform.Pass = &pass{
	name: "ftransform",
	active: func(p params.Parameters, _ transform.Flags) bool {
		return isStage(p, params.StageVertex)
	},
	run: func(job *transform.Job) error {
		_, err := job.Apply(ftransformLayers)
		return err
	},
}

// ----------------------------------------------------------------------------
// Matrices
// ----------------------------------------------------------------------------

// Derived matrices are expanded first so that only the three base matrices
// need a per-kind replacement.
var derivedMatrices = []struct{ name, expr string }{
	{"gl_ModelViewProjectionMatrixInverse", "inverse(gl_ProjectionMatrix * gl_ModelViewMatrix)"},
	{"gl_ModelViewProjectionMatrix", "gl_ProjectionMatrix * gl_ModelViewMatrix"},
	{"gl_ModelViewMatrixInverse", "inverse(gl_ModelViewMatrix)"},
	{"gl_ModelViewMatrixTranspose", "transpose(gl_ModelViewMatrix)"},
	{"gl_ProjectionMatrixInverse", "inverse(gl_ProjectionMatrix)"},
}

const orthographic = "mat4(vec4(2.0, 0.0, 0.0, 0.0), vec4(0.0, 2.0, 0.0, 0.0), vec4(0.0, 0.0, 0.0, 0.0), vec4(-1.0, -1.0, 0.0, 1.0))"

// Matrices replaces the fixed-function transform matrices with uniforms, or
// with constants for full-screen composite passes.
var Matrices transform.Pass = &pass{
	name: "matrices",
	active: func(p params.Parameters, _ transform.Flags) bool {
		return fixedFunction(p)
	},
	run: func(job *transform.Job) error {
		for _, m := range derivedMatrices {
			if _, err := job.ReplaceIdent(m.name, m.expr); err != nil {
				return err
			}
		}

		if job.Params.Kind() == params.PatchComposite {
			for _, m := range []struct{ name, expr string }{
				{"gl_ModelViewMatrix", "mat4(1.0)"},
				{"gl_ProjectionMatrix", orthographic},
				{"gl_NormalMatrix", "mat3(1.0)"},
			} {
				if _, err := job.ReplaceIdent(m.name, m.expr); err != nil {
					return err
				}
			}
			return nil
		}

		modelView, decls := modelViewStrategy(job.Params)
		if _, err := replaceInjecting(job, "gl_ModelViewMatrix", modelView, decls...); err != nil {
			return err
		}
		if _, err := replaceInjecting(job, "gl_ProjectionMatrix", "iris_ProjMat", declProjMat); err != nil {
			return err
		}
		_, err := replaceInjecting(job, "gl_NormalMatrix", "iris_NormalMat", declNormalMat)
		return err
	},
}

// modelViewStrategy picks the modelview expression. The chunk offset is
// folded into the position, so it takes precedence over line shrinking.
func modelViewStrategy(p params.Parameters) (string, []decl) {
	switch {
	case p.ChunkOffset():
		return "iris_ModelViewMat", []decl{declModelViewMat}
	case wideLines(p):
		return "iris_VIEW_SHRINK * iris_ModelViewMat", []decl{declViewShrink, declModelViewMat}
	}
	return "iris_ModelViewMat", []decl{declModelViewMat}
}

func wideLines(p params.Parameters) bool {
	return isStage(p, params.StageVertex) && entityKind(p) && p.Attributes().Has(params.AttrWideLines)
}

// ----------------------------------------------------------------------------
// Vertex Attributes
// ----------------------------------------------------------------------------

// attribute is the replacement of one legacy vertex attribute: expr when
// the mesh provides it, fallback otherwise.
type attribute struct {
	legacy   string
	required params.AttributeSet
	expr     string
	decls    []decl
	fallback string
}

func vertexAttributes(p params.Parameters) []attribute {
	position := attribute{legacy: "gl_Vertex", expr: "vec4(iris_Position, 1.0)", decls: []decl{declPosition}}
	if p.ChunkOffset() {
		position.expr = "vec4(iris_Position + iris_ChunkOffset, 1.0)"
		position.decls = append(position.decls, declChunkOffset)
	}

	color := attribute{legacy: "gl_Color", required: params.AttrColor, expr: "iris_Color", decls: []decl{declColor}, fallback: "vec4(1.0)"}
	switch p.Kind() {
	case params.PatchVanilla:
		color.expr = "iris_Color * iris_ColorModulator"
		color.decls = append(color.decls, declColorModulator)
	case params.PatchComposite:
		color = attribute{legacy: "gl_Color", expr: "vec4(1.0)"}
	}

	attrs := []attribute{
		position,
		color,
		{legacy: builtins.MultiTexCoord(0), required: params.AttrTexCoord, expr: "vec4(iris_UV0, 0.0, 1.0)", decls: []decl{declUV0}, fallback: "vec4(0.0, 0.0, 0.0, 1.0)"},
		{legacy: builtins.MultiTexCoord(1), required: params.AttrLightmap, expr: "vec4(iris_UV2, 0.0, 1.0)", decls: []decl{declUV2}, fallback: "vec4(240.0, 240.0, 0.0, 1.0)"},
		{legacy: builtins.MultiTexCoord(2), required: params.AttrLightmap, expr: "vec4(iris_UV2, 0.0, 1.0)", decls: []decl{declUV2}, fallback: "vec4(240.0, 240.0, 0.0, 1.0)"},
		{legacy: "gl_Normal", required: params.AttrNormal, expr: "iris_Normal", decls: []decl{declNormal}, fallback: "vec3(0.0, 0.0, 1.0)"},
	}
	for n := 3; n < 8; n++ {
		attrs = append(attrs, attribute{legacy: builtins.MultiTexCoord(n), expr: "vec4(0.0, 0.0, 0.0, 1.0)"})
	}
	return attrs
}

// VertexAttributes replaces the legacy vertex attributes with the mesh's
// named inputs, or with constants when the mesh lacks them.
var VertexAttributes transform.Pass = &pass{
	name: "vertex-attributes",
	active: func(p params.Parameters, _ transform.Flags) bool {
		return isStage(p, params.StageVertex)
	},
	run: func(job *transform.Job) error {
		available := job.Params.Attributes()
		for _, a := range vertexAttributes(job.Params) {
			expr, decls := a.expr, a.decls
			if a.required != 0 && !available.Has(a.required) {
				expr, decls = a.fallback, nil
			}
			if _, err := replaceInjecting(job, a.legacy, expr, decls...); err != nil {
				return err
			}
		}
		if job.Params.ChunkOffset() {
			job.Flags |= transform.FlagChunkOffsetApplied
		}
		return nil
	},
}
