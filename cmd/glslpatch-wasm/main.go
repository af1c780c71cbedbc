//go:build js && wasm

// Command glslpatch-wasm is the WebAssembly build of the GLSL patcher.
// It exposes patching and reflection to JavaScript via syscall/js.
package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/HugoDaniel/glslpatch/pkg/api"
)

func main() {
	js.Global().Set("__glslpatch", js.ValueOf(map[string]interface{}{
		"patch":   js.FuncOf(patchJS),
		"reflect": js.FuncOf(reflectJS),
		"version": api.Version,
	}))

	// Keep the Go runtime alive
	select {}
}

// patchJS is the JavaScript-callable patch function.
// Signature: __glslpatch.patch(source: string, options: object) => object
func patchJS(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 || args[1].IsUndefined() || args[1].IsNull() {
		return makeError("patch requires 2 arguments (source, options)")
	}

	var opts api.PatchOptions
	jsonStr := js.Global().Get("JSON").Call("stringify", args[1]).String()
	if err := json.Unmarshal([]byte(jsonStr), &opts); err != nil {
		return makeError("invalid options: " + err.Error())
	}

	return toJS(api.Patch(args[0].String(), opts))
}

// reflectJS is the JavaScript-callable reflect function.
// Signature: __glslpatch.reflect(source: string) => object
func reflectJS(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeError("reflect requires 1 argument (source)")
	}
	return toJS(api.Reflect(args[0].String()))
}

// toJS converts a result to a plain JS object through JSON.
func toJS(v any) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return makeError(err.Error())
	}
	return js.Global().Get("JSON").Call("parse", string(data))
}

// makeError creates a result object with an error.
func makeError(msg string) interface{} {
	return map[string]interface{}{
		"code": "",
		"error": map[string]interface{}{
			"kind":    "options",
			"message": msg,
		},
	}
}
