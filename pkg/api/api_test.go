package api

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPatch(t *testing.T) {
	source := `#version 120
uniform sampler2D texture;
varying vec2 texcoord;
void main() {
    gl_FragData[0] = texture2D(texture, texcoord);
}
`
	result := Patch(source, PatchOptions{
		Stage:          "fsh",
		Patch:          "attributes",
		AlphaTest:      "GREATER 0.1",
		TextureRenames: map[string]string{"texture": "gtexture"},
	})

	if result.Error != nil {
		t.Fatalf("unexpected error: %+v", result.Error)
	}
	if !strings.HasPrefix(result.Code, "#version 330 core") {
		t.Errorf("expected a core profile version line, got:\n%s", result.Code)
	}
	for _, legacy := range []string{"gl_FragData", "texture2D", "varying"} {
		if strings.Contains(result.Code, legacy) {
			t.Errorf("output still contains %s:\n%s", legacy, result.Code)
		}
	}
	if !strings.Contains(result.Code, "gtexture") {
		t.Errorf("expected sampler rename to gtexture:\n%s", result.Code)
	}
	if result.OriginalSize != len(source) || result.PatchedSize != len(result.Code) {
		t.Errorf("sizes: got %d/%d", result.OriginalSize, result.PatchedSize)
	}
	if len(result.Passes) == 0 {
		t.Error("expected the passes that ran to be listed")
	}
}

func TestPatchErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		opts   PatchOptions
		kind   string
		line   int
	}{
		{
			name:   "UnknownStage",
			source: "#version 120\nvoid main() {}\n",
			opts:   PatchOptions{Stage: "pixel"},
			kind:   "options",
		},
		{
			name:   "UnknownAttribute",
			source: "#version 120\nvoid main() {}\n",
			opts:   PatchOptions{Stage: "vertex", Attributes: []string{"tangent"}},
			kind:   "options",
		},
		{
			name:   "BadAlphaTest",
			source: "#version 120\nvoid main() {}\n",
			opts:   PatchOptions{Stage: "fragment", AlphaTest: "GREATER"},
			kind:   "options",
		},
		{
			name:   "Syntax",
			source: "#version 120\nvoid main() {\n    float = 1.0;\n}\n",
			opts:   PatchOptions{Stage: "vertex"},
			kind:   "syntax",
			line:   3,
		},
		{
			name:   "ReservedPrefix",
			source: "#version 120\nuniform float iris_Time;\nvoid main() {}\n",
			opts:   PatchOptions{Stage: "fragment"},
			kind:   "reserved-prefix",
		},
		{
			name:   "StrictValidation",
			source: "#version 120\nvoid main() { gl_FragColor = gl_SecondaryColor; }\n",
			opts:   PatchOptions{Stage: "fragment", StrictValidation: true},
			kind:   "validation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Patch(tt.source, tt.opts)
			if result.Error == nil {
				t.Fatalf("expected an error, got:\n%s", result.Code)
			}
			if result.Error.Kind != tt.kind {
				t.Errorf("kind: got %q, want %q (%s)", result.Error.Kind, tt.kind, result.Error.Message)
			}
			if tt.line != 0 && result.Error.Line != tt.line {
				t.Errorf("line: got %d, want %d", result.Error.Line, tt.line)
			}
			if result.Code != "" {
				t.Errorf("expected no code on error, got:\n%s", result.Code)
			}
		})
	}
}

func TestPatchWarnings(t *testing.T) {
	result := Patch("#version 120\nvoid main() { gl_FragColor = gl_SecondaryColor; }\n", PatchOptions{Stage: "fragment"})
	if result.Error != nil {
		t.Fatalf("unexpected error: %+v", result.Error)
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "gl_SecondaryColor") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a gl_SecondaryColor warning, got %v", result.Warnings)
	}
}

func TestPatchReflect(t *testing.T) {
	source := `#version 120
varying vec2 texcoord;
void main() {
    gl_Position = ftransform();
    texcoord = gl_MultiTexCoord0.xy;
}
`
	result := Patch(source, PatchOptions{
		Stage:            "vertex",
		Attributes:       []string{"texcoord", "lightmap", "color", "normal"},
		Reflect:          true,
		MinifyWhitespace: true,
	})
	if result.Error != nil {
		t.Fatalf("unexpected error: %+v", result.Error)
	}
	if result.Interface == nil {
		t.Fatal("expected an interface")
	}
	if len(result.Interface.Outputs) != 1 || result.Interface.Outputs[0].Name != "texcoord" {
		t.Errorf("outputs: got %+v", result.Interface.Outputs)
	}
	if strings.Contains(result.Code, "\n\n") {
		t.Errorf("expected minified output, got:\n%s", result.Code)
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"interface":{"version":"330"`) {
		t.Errorf("unexpected JSON: %s", data)
	}

	// Every attribute, overlay included, by default.
	result = Patch(source, PatchOptions{Stage: "vertex", Reflect: true})
	if result.Error != nil {
		t.Fatalf("unexpected error: %+v", result.Error)
	}
	outputs := map[string]bool{}
	for _, v := range result.Interface.Outputs {
		outputs[v.Name] = true
	}
	if len(outputs) != 2 || !outputs["texcoord"] || !outputs["iris_entityColor"] {
		t.Errorf("outputs with overlay: got %+v", result.Interface.Outputs)
	}
}

func TestPatchSharesPatcher(t *testing.T) {
	opts := PatchOptions{Stage: "fragment"}
	first := Patch("#version 120\nvoid main() { gl_FragColor = vec4(1.0); }\n", opts)
	second := Patch("#version 120\nvoid main() { gl_FragColor = vec4(1.0); }\n", opts)
	if first.Code != second.Code {
		t.Errorf("outputs differ:\n%s\n---\n%s", first.Code, second.Code)
	}

	n := 0
	patchers.Range(func(_, _ any) bool { n++; return true })
	if n == 0 {
		t.Error("expected a cached patcher")
	}
}

func TestReflect(t *testing.T) {
	source := `#version 430 core
struct Light {
    vec3 position;
    float intensity;
};
layout(std140, binding = 2) uniform Lights {
    Light lights[4];
};
layout(location = 0) out vec4 fragColor;
void main() {}
`
	result := Reflect(source)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if light, ok := result.Structs["Light"]; !ok || light.Size != 16 {
		t.Errorf("Light: got %+v", result.Structs["Light"])
	}
	if len(result.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(result.Blocks))
	}
	block := result.Blocks[0]
	if block.Binding == nil || *block.Binding != 2 {
		t.Errorf("binding: got %v", block.Binding)
	}
	if block.Layout == nil || block.Layout.Size != 64 {
		t.Errorf("block layout: got %+v", block.Layout)
	}
	if len(result.Outputs) != 1 || result.Outputs[0].Location == nil || *result.Outputs[0].Location != 0 {
		t.Errorf("outputs: got %+v", result.Outputs)
	}
}

func TestReflectErrors(t *testing.T) {
	result := Reflect("void main( {")
	if len(result.Errors) == 0 {
		t.Error("expected parse errors")
	}
	if result.Inputs == nil || result.Structs == nil {
		t.Error("collections should be empty, not nil")
	}
}

func TestPatchSourceMap(t *testing.T) {
	result := Patch("#version 120\nvoid main() {\n    gl_FragColor = vec4(1.0);\n}\n", PatchOptions{Stage: "fragment", SourceMap: true})
	if result.Error != nil {
		t.Fatalf("unexpected error: %+v", result.Error)
	}
	var sm struct {
		Version  int    `json:"version"`
		Mappings string `json:"mappings"`
	}
	if err := json.Unmarshal([]byte(result.SourceMap), &sm); err != nil {
		t.Fatalf("invalid source map %q: %v", result.SourceMap, err)
	}
	if sm.Version != 3 || sm.Mappings == "" {
		t.Errorf("unexpected source map %+v", sm)
	}
}
