// Package api provides the public API for the GLSL patcher.
//
// This package is intended for programmatic use and for the C and
// WebAssembly bindings. Every option is a plain string or bool so callers
// never touch the internal packages. For CLI usage, see cmd/glslpatch.
package api

import (
	"errors"
	"sync"

	"github.com/HugoDaniel/glslpatch/internal/diagnostic"
	"github.com/HugoDaniel/glslpatch/internal/params"
	"github.com/HugoDaniel/glslpatch/internal/patcher"
	"github.com/HugoDaniel/glslpatch/internal/reflect"
)

// Version is the library version reported by the bindings.
const Version = "0.1.0"

// PatchOptions describes one patch job.
type PatchOptions struct {
	// Stage is a stage name ("vertex", "fragment", ...) or a shader-pack
	// extension ("vsh", "fsh", ...).
	Stage string `json:"stage"`

	// Patch is the patch kind: "attributes", "sodium-terrain", "vanilla",
	// "composite" or "compute". Empty selects "vanilla".
	Patch string `json:"patch,omitempty"`

	// Attributes lists the vertex inputs the mesh provides ("texcoord",
	// "lightmap", "overlay", "color", "normal", "wide-lines"). Nil selects
	// every attribute except wide-lines.
	Attributes []string `json:"attributes,omitempty"`

	// AlphaTest emulates the fixed-function alpha test, e.g. "GREATER 0.1".
	AlphaTest string `json:"alphaTest,omitempty"`

	// ChunkOffset adds the terrain chunk offset to vertex positions.
	ChunkOffset bool `json:"chunkOffset,omitempty"`

	// TextureRenames maps sampler names to the names bound by the host.
	TextureRenames map[string]string `json:"textureRenames,omitempty"`

	// MinifyWhitespace removes unnecessary whitespace and newlines.
	MinifyWhitespace bool `json:"minifyWhitespace,omitempty"`

	// Reflect attaches the interface of the patched shader to the result.
	Reflect bool `json:"reflect,omitempty"`

	// StrictValidation fails the patch if any legacy construct survives.
	StrictValidation bool `json:"strictValidation,omitempty"`

	// SourceMap attaches a Source Map v3 from the patched code to the input.
	SourceMap bool `json:"sourceMap,omitempty"`
}

// PatchResult contains the patch output.
type PatchResult struct {
	// Code is the patched GLSL source. Empty when Error is set.
	Code string `json:"code"`

	// Error describes why the shader could not be patched.
	Error *ErrorInfo `json:"error,omitempty"`

	// Warnings are non-fatal findings, formatted as "line:col: message".
	Warnings []string `json:"warnings,omitempty"`

	// OriginalSize is the size of the input in bytes.
	OriginalSize int `json:"originalSize"`

	// PatchedSize is the size of the output in bytes.
	PatchedSize int `json:"patchedSize"`

	// Passes lists the passes that ran, in order.
	Passes []string `json:"passes,omitempty"`

	// Interface is the reflected interface, if requested.
	Interface *Interface `json:"interface,omitempty"`

	// SourceMap is the source map as JSON, if requested.
	SourceMap string `json:"sourceMap,omitempty"`
}

// ErrorInfo describes a rejected shader.
type ErrorInfo struct {
	// Kind classifies the failure, e.g. "reserved-prefix" or "syntax".
	// "options" reports invalid PatchOptions and "validation" reports a
	// strict validation failure.
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Construct string `json:"construct,omitempty"`
	Stage     string `json:"stage,omitempty"`
	Patch     string `json:"patch,omitempty"`
	Line      int    `json:"line,omitempty"`
	Column    int    `json:"column,omitempty"`
}

// Reflection types.
type (
	Interface    = reflect.Interface
	Variable     = reflect.Variable
	Block        = reflect.Block
	StructLayout = reflect.StructLayout
	FieldInfo    = reflect.FieldInfo
)

// Patchers are shared per option set so the fragment cache stays warm
// across calls.
var patchers sync.Map // patcher.Options -> *patcher.Patcher

func getPatcher(opts patcher.Options) (*patcher.Patcher, error) {
	if p, ok := patchers.Load(opts); ok {
		return p.(*patcher.Patcher), nil
	}
	p, err := patcher.New(opts)
	if err != nil {
		return nil, err
	}
	actual, _ := patchers.LoadOrStore(opts, p)
	return actual.(*patcher.Patcher), nil
}

// Patch patches one shader stage.
func Patch(source string, opts PatchOptions) PatchResult {
	result := PatchResult{OriginalSize: len(source)}

	pr, err := Parameters(opts)
	if err != nil {
		result.Error = &ErrorInfo{Kind: "options", Message: err.Error()}
		return result
	}

	popts := patcher.DefaultOptions()
	popts.MinifyWhitespace = opts.MinifyWhitespace
	popts.Reflect = opts.Reflect
	popts.StrictValidation = opts.StrictValidation
	popts.SourceMap = opts.SourceMap
	p, err := getPatcher(popts)
	if err != nil {
		result.Error = &ErrorInfo{Kind: "options", Message: err.Error()}
		return result
	}

	r, err := p.Patch(source, pr)
	if err != nil {
		result.Error = errorInfo(err, pr)
		return result
	}

	result.Code = r.Code
	result.PatchedSize = r.Stats.PatchedSize
	result.Passes = r.Stats.PassesRun
	result.Interface = r.Interface
	if r.SourceMap != nil {
		result.SourceMap = r.SourceMap.ToJSON()
	}
	for _, w := range r.Warnings {
		result.Warnings = append(result.Warnings, w.Error())
	}
	return result
}

// Parameters converts string-typed options to a job descriptor.
func Parameters(opts PatchOptions) (params.Parameters, error) {
	stage, err := params.ParseStage(opts.Stage)
	if err != nil {
		return params.Parameters{}, err
	}
	kind := params.PatchVanilla
	if opts.Patch != "" {
		if kind, err = params.ParsePatchKind(opts.Patch); err != nil {
			return params.Parameters{}, err
		}
	}

	attrs := params.AttrAll
	if opts.Attributes != nil {
		if attrs, err = params.ParseAttributes(opts.Attributes); err != nil {
			return params.Parameters{}, err
		}
	}
	options := []params.Option{
		params.WithAttributes(attrs),
		params.WithChunkOffset(opts.ChunkOffset),
		params.WithTextureRenames(opts.TextureRenames),
	}
	if opts.AlphaTest != "" {
		at, err := params.ParseAlphaTest(opts.AlphaTest)
		if err != nil {
			return params.Parameters{}, err
		}
		options = append(options, params.WithAlphaTest(at))
	}
	return params.New(stage, kind, options...), nil
}

func errorInfo(err error, pr params.Parameters) *ErrorInfo {
	if se, ok := diagnostic.AsSemantic(err); ok {
		return &ErrorInfo{
			Kind:      se.Kind.String(),
			Message:   se.Message,
			Construct: se.Construct,
			Stage:     se.Stage,
			Patch:     se.Patch,
			Line:      se.Line,
			Column:    se.Column,
		}
	}
	info := &ErrorInfo{
		Kind:    "internal",
		Message: err.Error(),
		Stage:   pr.Stage().String(),
		Patch:   pr.Kind().String(),
	}
	if errors.Is(err, patcher.ErrValidation) {
		info.Kind = "validation"
	}
	return info
}

// ----------------------------------------------------------------------------
// Reflection API
// ----------------------------------------------------------------------------

// Reflect extracts inputs, outputs, uniforms, blocks and struct layouts
// from GLSL source without patching it.
func Reflect(source string) Interface {
	return reflect.ReflectSource(source)
}
