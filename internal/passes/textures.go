package passes

import (
	"sort"

	"github.com/HugoDaniel/glslpatch/internal/ast"
	"github.com/HugoDaniel/glslpatch/internal/builtins"
	"github.com/HugoDaniel/glslpatch/internal/diagnostic"
	"github.com/HugoDaniel/glslpatch/internal/params"
	"github.com/HugoDaniel/glslpatch/internal/parser"
	"github.com/HugoDaniel/glslpatch/internal/pattern"
	"github.com/HugoDaniel/glslpatch/internal/renamer"
	"github.com/HugoDaniel/glslpatch/internal/transform"
)

// ----------------------------------------------------------------------------
// Sampler Renames
// ----------------------------------------------------------------------------

// TextureRenames applies the job's sampler rename map to variable
// references. Calls and struct members keep their names.
var TextureRenames transform.Pass = &pass{
	name: "texture-renames",
	active: func(p params.Parameters, _ transform.Flags) bool {
		return len(p.TextureRenameNames()) > 0
	},
	run: func(job *transform.Job) error {
		renames := make(map[string]string)
		for _, name := range job.Params.TextureRenameNames() {
			renames[name], _ = job.Params.TextureRename(name)
		}
		job.Stats.Renamed += renamer.RenameMap(job.Tree, renames, renamer.NotMembers)
		return nil
	},
}

// ----------------------------------------------------------------------------
// Sampler Functions
// ----------------------------------------------------------------------------

// TextureFunctions renames legacy sampler functions to their core overloads.
// Shadow lookups return float in core, so each call is also wrapped in
// vec4(...) to keep the legacy result type.
var TextureFunctions transform.Pass = &pass{
	name: "texture-functions",
	run: func(job *transform.Job) error {
		t := job.Tree
		job.Stats.Renamed += renamer.RenameMap(t, builtins.TextureFunctionRenames, renamer.CallTargets)

		for _, old := range sortedKeys(builtins.ShadowFunctionRenames) {
			for _, id := range t.Occurrences(old) {
				if !t.IsCallTarget(id) {
					continue
				}
				call := t.Parent(id)
				t.SetText(id, builtins.ShadowFunctionRenames[old])
				wrapper := t.NewNode(ast.KindCall, "", t.NewNode(ast.KindIdent, "vec4"))
				t.Replace(call, wrapper)
				t.Append(wrapper, call)
				job.Stats.Renamed++
				job.Stats.Rewrites++
			}
		}
		return nil
	},
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ----------------------------------------------------------------------------
// Texture Matrix
// ----------------------------------------------------------------------------

// The lightmap matrix is a fixed scale and bias, so its products with a
// lightmap coordinate are expanded inline. Layers are listed outermost
// first: the swizzle wraps the product, which wraps the index.
var (
	lightmapCoord = pattern.IdentIn(builtins.MultiTexCoord(1), builtins.MultiTexCoord(2))

	lightmapProductLayer = transform.Layer{
		Pattern: pattern.MustCompile("gl_TextureMatrix[<u:literal>] * <c:identifier>", parser.RuleExpression).
			Where("u", pattern.IntIn(1, 2)).
			Where("c", lightmapCoord),
		Rewrite: transform.ReplaceText("vec4(<c>.xyz * 0.00390625 + 0.03125 * <c>.w, <c>.w)"),
	}

	textureMatrixIndexLayer = transform.Layer{
		Pattern: pattern.MustCompile("gl_TextureMatrix[<i:literal>]", parser.RuleExpression).
			Where("i", pattern.NonNegativeInt),
		Rewrite: rewriteTextureMatrixIndex,
	}

	textureMatrixLayers = transform.MustLayers(
		lightmapSwizzleLayer("xy"),
		lightmapSwizzleLayer("st"),
		lightmapProductLayer,
		textureMatrixIndexLayer,
	)

	textureMatrixIndexOnly = transform.MustLayers(textureMatrixIndexLayer)
)

func lightmapSwizzleLayer(field string) transform.Layer {
	return transform.Layer{
		Pattern: pattern.MustCompile("(gl_TextureMatrix[<u:literal>] * <c:identifier>)."+field, parser.RuleExpression).
			Where("u", pattern.IntIn(1, 2)).
			Where("c", lightmapCoord),
		Rewrite: transform.ReplaceText("(<c>.xy * 0.00390625 + 0.03125 * <c>.w)"),
	}
}

func rewriteTextureMatrixIndex(job *transform.Job, m transform.Match) (ast.NodeID, error) {
	i, _ := job.Tree.IntLiteralValue(m.Captures["i"])
	kind := job.Params.Kind()
	var text string
	switch {
	case i == 0 && (kind == params.PatchAttributes || kind == params.PatchVanilla):
		if err := inject(job, declTextureMat); err != nil {
			return ast.NoNode, err
		}
		text = "iris_TextureMat"
	case i == 0:
		text = "mat4(1.0)"
	case i <= 2 && kind == params.PatchComposite:
		text = "mat4(1.0)"
	case i <= 2:
		if err := inject(job, declLightmapTextureMatrix); err != nil {
			return ast.NoNode, err
		}
		text = "iris_LightmapTextureMatrix"
	default:
		return ast.NoNode, nil
	}
	return transform.ReplaceText(text)(job, m)
}

// TextureMatrix replaces gl_TextureMatrix[0], [1] and [2]. Other indices
// are left in place with a warning.
var TextureMatrix transform.Pass = &pass{
	name: "texture-matrix",
	active: func(p params.Parameters, _ transform.Flags) bool {
		return fixedFunction(p)
	},
	run: func(job *transform.Job) error {
		if !job.Tree.HasIdent("gl_TextureMatrix") {
			return nil
		}
		layers := textureMatrixLayers
		if job.Params.Kind() == params.PatchComposite {
			layers = textureMatrixIndexOnly
		}
		if _, err := job.Apply(layers); err != nil {
			return err
		}
		for _, id := range job.Tree.Occurrences("gl_TextureMatrix") {
			job.Warn(id, diagnostic.CodeTextureMatrix, "gl_TextureMatrix is only emulated for indices 0, 1 and 2")
		}
		return nil
	},
}
