// Package builtins defines the GLSL names the patcher recognizes: type
// names, legacy fixed-function builtins, sampler function renames, and the
// preprocessor directives that may survive into patched source.
package builtins

import "strings"

// ReservedPrefix is the identifier prefix owned by the patcher. User source
// must not declare or reference names with this prefix.
const ReservedPrefix = "iris_"

// ----------------------------------------------------------------------------
// Types
// ----------------------------------------------------------------------------

// typeNames holds every builtin type keyword usable as a type specifier.
var typeNames = map[string]bool{
	"void": true, "bool": true, "int": true, "uint": true, "float": true, "double": true,
	"atomic_uint": true,
}

func init() {
	for _, prefix := range []string{"", "b", "i", "u", "d"} {
		for n := 2; n <= 4; n++ {
			typeNames[prefix+"vec"+string(rune('0'+n))] = true
		}
	}
	for _, prefix := range []string{"", "d"} {
		for c := 2; c <= 4; c++ {
			typeNames[prefix+"mat"+string(rune('0'+c))] = true
			for r := 2; r <= 4; r++ {
				typeNames[prefix+"mat"+string(rune('0'+c))+"x"+string(rune('0'+r))] = true
			}
		}
	}
	dims := []string{"1D", "2D", "3D", "Cube", "2DRect", "1DArray", "2DArray", "CubeArray", "Buffer", "2DMS", "2DMSArray"}
	for _, prefix := range []string{"", "i", "u"} {
		for _, d := range dims {
			typeNames[prefix+"sampler"+d] = true
			typeNames[prefix+"image"+d] = true
		}
	}
	for _, s := range []string{"1DShadow", "2DShadow", "CubeShadow", "2DRectShadow", "1DArrayShadow", "2DArrayShadow", "CubeArrayShadow"} {
		typeNames["sampler"+s] = true
	}
	typeNames["sampler"] = true
	typeNames["samplerShadow"] = true
}

// IsTypeName reports whether name is a builtin GLSL type.
func IsTypeName(name string) bool {
	return typeNames[name]
}

// ----------------------------------------------------------------------------
// Legacy Builtins
// ----------------------------------------------------------------------------

// LegacyVariables lists fixed-function builtin variables removed from the
// core profile. A patched shader still referencing one will not compile.
var LegacyVariables = map[string]bool{
	"gl_Vertex": true, "gl_Color": true, "gl_SecondaryColor": true, "gl_Normal": true,
	"gl_MultiTexCoord0": true, "gl_MultiTexCoord1": true, "gl_MultiTexCoord2": true,
	"gl_MultiTexCoord3": true, "gl_MultiTexCoord4": true, "gl_MultiTexCoord5": true,
	"gl_MultiTexCoord6": true, "gl_MultiTexCoord7": true, "gl_FogCoord": true,
	"gl_ModelViewMatrix": true, "gl_ProjectionMatrix": true, "gl_ModelViewProjectionMatrix": true,
	"gl_NormalMatrix": true, "gl_TextureMatrix": true,
	"gl_ModelViewMatrixInverse": true, "gl_ProjectionMatrixInverse": true,
	"gl_ModelViewProjectionMatrixInverse": true, "gl_ModelViewMatrixTranspose": true,
	"gl_FragColor": true, "gl_FragData": true, "gl_FrontColor": true, "gl_BackColor": true,
	"gl_FrontSecondaryColor": true, "gl_BackSecondaryColor": true,
	"gl_TexCoord": true, "gl_FogFragCoord": true, "gl_Fog": true,
	"gl_LightSource": true, "gl_LightModel": true, "gl_FrontMaterial": true,
	"gl_BackMaterial": true, "gl_ClipVertex": true, "ftransform": true,
}

// MultiTexCoord returns the attribute name gl_MultiTexCoordN.
func MultiTexCoord(n int) string {
	return "gl_MultiTexCoord" + string(rune('0'+n))
}

// ----------------------------------------------------------------------------
// Sampler Functions
// ----------------------------------------------------------------------------

// TextureFunctionRenames maps legacy sampler functions to their core
// overloaded equivalents. Only call targets are renamed.
var TextureFunctionRenames = map[string]string{
	"texture1D":          "texture",
	"texture2D":          "texture",
	"texture3D":          "texture",
	"textureCube":        "texture",
	"texture2DRect":      "texture",
	"texture1DLod":       "textureLod",
	"texture2DLod":       "textureLod",
	"texture3DLod":       "textureLod",
	"textureCubeLod":     "textureLod",
	"texture2DLodEXT":    "textureLod",
	"texture1DProj":      "textureProj",
	"texture2DProj":      "textureProj",
	"texture3DProj":      "textureProj",
	"texture2DRectProj":  "textureProj",
	"texture1DProjLod":   "textureProjLod",
	"texture2DProjLod":   "textureProjLod",
	"texture3DProjLod":   "textureProjLod",
	"texture2DGrad":      "textureGrad",
	"texture2DGradARB":   "textureGrad",
	"texture3DGradARB":   "textureGrad",
	"textureCubeGradARB": "textureGrad",
	"texelFetch1D":       "texelFetch",
	"texelFetch2D":       "texelFetch",
	"texelFetch3D":       "texelFetch",
	"textureSize2D":      "textureSize",
}

// ShadowFunctionRenames maps legacy shadow lookups to core functions. The
// legacy forms return vec4 while the core ones return float, so call sites
// are wrapped in vec4(...).
var ShadowFunctionRenames = map[string]string{
	"shadow1D":        "texture",
	"shadow2D":        "texture",
	"shadow2DRect":    "texture",
	"shadow1DLod":     "textureLod",
	"shadow2DLod":     "textureLod",
	"shadow1DProj":    "textureProj",
	"shadow2DProj":    "textureProj",
	"shadow2DProjLod": "textureProjLod",
}

// ----------------------------------------------------------------------------
// Directives
// ----------------------------------------------------------------------------

// AllowedDirectives may appear in preprocessed source.
var AllowedDirectives = map[string]bool{
	"version":   true,
	"extension": true,
	"pragma":    true,
	"line":      true,
}

// DirectiveName returns the first word of a directive line ("extension" for
// "extension GL_ARB_foo : enable").
func DirectiveName(line string) string {
	if i := strings.IndexAny(line, " \t("); i >= 0 {
		return line[:i]
	}
	return line
}

// CoreExtensions lists extensions whose functionality is part of GLSL 3.30
// core. Some core-profile drivers reject enabling them.
var CoreExtensions = map[string]bool{
	"GL_EXT_gpu_shader4":              true,
	"GL_ARB_draw_buffers":             true,
	"GL_ARB_texture_rectangle":        true,
	"GL_ARB_explicit_attrib_location": true,
	"GL_ARB_shader_texture_lod":       true,
	"GL_EXT_texture_array":            true,
	"GL_ARB_uniform_buffer_object":    true,
}
