package passes

import (
	"fmt"
	"sort"

	"github.com/HugoDaniel/glslpatch/internal/ast"
	"github.com/HugoDaniel/glslpatch/internal/diagnostic"
	"github.com/HugoDaniel/glslpatch/internal/params"
	"github.com/HugoDaniel/glslpatch/internal/parser"
	"github.com/HugoDaniel/glslpatch/internal/pattern"
	"github.com/HugoDaniel/glslpatch/internal/transform"
)

// ----------------------------------------------------------------------------
// Fog
// ----------------------------------------------------------------------------

var fogParameters = []struct {
	field string
	expr  string
	decls []decl
}{
	{"color", "iris_FogColor", []decl{declFogColor}},
	{"density", "iris_FogDensity", []decl{declFogDensity}},
	{"start", "iris_FogStart", []decl{declFogStart}},
	{"end", "iris_FogEnd", []decl{declFogEnd}},
	{"scale", "1.0 / (iris_FogEnd - iris_FogStart)", []decl{declFogStart, declFogEnd}},
}

var fogLayers = func() *transform.Layers {
	var layers []transform.Layer
	for _, f := range fogParameters {
		expr, decls := f.expr, f.decls
		layers = append(layers, transform.Layer{
			Pattern: pattern.MustCompile("gl_Fog."+f.field, parser.RuleExpression),
			Rewrite: func(job *transform.Job, m transform.Match) (ast.NodeID, error) {
				if err := inject(job, decls...); err != nil {
					return ast.NoNode, err
				}
				return transform.ReplaceText(expr)(job, m)
			},
		})
	}
	return transform.MustLayers(layers...)
}()

// Fog replaces the gl_Fog parameters with uniforms and gl_FogFragCoord with
// a varying between the vertex and fragment stages.
var Fog transform.Pass = &pass{
	name: "fog",
	active: func(p params.Parameters, _ transform.Flags) bool {
		return fixedFunction(p)
	},
	run: func(job *transform.Job) error {
		if job.Tree.HasIdent("gl_Fog") {
			if _, err := job.Apply(fogLayers); err != nil {
				return err
			}
		}

		var d decl
		switch job.Params.Stage() {
		case params.StageVertex:
			d = declFogFragCoordOut
		case params.StageFragment:
			d = declFogFragCoordIn
		default:
			return nil
		}
		job.RemoveDeclarator("gl_FogFragCoord")
		_, err := replaceInjecting(job, "gl_FogFragCoord", "iris_FogFragCoord", d)
		return err
	},
}

// ----------------------------------------------------------------------------
// Fixed Varyings
// ----------------------------------------------------------------------------

// FixedVaryings replaces the fixed-function varyings gl_FrontColor and
// gl_TexCoord[n] with declared outputs in the vertex stage and the matching
// inputs in the fragment stage.
var FixedVaryings transform.Pass = &pass{
	name: "fixed-varyings",
	active: func(p params.Parameters, _ transform.Flags) bool {
		return isStage(p, params.StageVertex) || isStage(p, params.StageFragment)
	},
	run: func(job *transform.Job) error {
		qualifier, color := "out", "gl_FrontColor"
		if job.Params.Stage() == params.StageFragment {
			qualifier, color = "in", "gl_Color"
		}
		if _, err := replaceInjecting(job, color, "iris_FrontColor", varying(qualifier, "iris_FrontColor")); err != nil {
			return err
		}
		return replaceTexCoords(job, qualifier)
	},
}

func replaceTexCoords(job *transform.Job, qualifier string) error {
	t := job.Tree
	if !t.HasIdent("gl_TexCoord") {
		return nil
	}
	job.RemoveDeclarator("gl_TexCoord")

	used := make(map[int]bool)
	for _, id := range t.Occurrences("gl_TexCoord") {
		index := t.Parent(id)
		if t.Kind(index) != ast.KindIndex || t.Child(index, 0) != id {
			return job.Errorf(diagnostic.KindTextureIndex, id,
				"gl_TexCoord must be indexed with a constant").WithConstruct("gl_TexCoord")
		}
		n, ok := t.IntLiteralValue(t.Child(index, 1))
		if !ok {
			return job.Errorf(diagnostic.KindTextureIndex, index,
				"gl_TexCoord must be indexed with a constant").WithConstruct("gl_TexCoord")
		}
		t.Replace(index, t.NewNode(ast.KindIdent, texCoordName(n)))
		used[n] = true
		job.Stats.Rewrites++
	}

	indices := make([]int, 0, len(used))
	for n := range used {
		indices = append(indices, n)
	}
	sort.Ints(indices)
	for _, n := range indices {
		if err := inject(job, varying(qualifier, texCoordName(n))); err != nil {
			return err
		}
	}
	return nil
}

func texCoordName(n int) string {
	return fmt.Sprintf("iris_TexCoord%d", n)
}
