// Package main provides a C-callable static library for GLSL patching and reflection.
//
// This is built with -buildmode=c-archive to produce libglslpatch.a
// that can be linked into C/C++/Rust hosts.
//
// Build:
//
//	CGO_ENABLED=1 go build -buildmode=c-archive -o build/libglslpatch.a ./cmd/glslpatch-lib
//
// Exported functions:
//
//	glslpatch_patch(source, source_len, options_json, options_len, out_code, out_code_len, out_json, out_json_len) -> error_code
//	glslpatch_reflect(source, source_len, out_json, out_len) -> error_code
//	glslpatch_free(ptr) -> void
//	glslpatch_version() -> *char
package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"encoding/json"
	"unsafe"

	"github.com/HugoDaniel/glslpatch/pkg/api"
)

// Error codes
const (
	GLSLPATCH_OK              = 0
	GLSLPATCH_ERR_JSON_ENCODE = 1
	GLSLPATCH_ERR_NULL_INPUT  = 2
	GLSLPATCH_ERR_JSON_DECODE = 3
	GLSLPATCH_ERR_REJECTED    = 4
)

// glslpatch_patch patches one GLSL shader stage.
//
// Parameters:
//   - source: pointer to GLSL source code (UTF-8)
//   - source_len: length of source in bytes
//   - options_json: pointer to JSON options (api.PatchOptions); "stage" is required
//   - options_len: length of options JSON
//   - out_code: pointer to receive patched code (caller must free with glslpatch_free)
//   - out_code_len: pointer to receive code length
//   - out_json: pointer to receive the JSON result (may be NULL; caller must free with glslpatch_free)
//   - out_json_len: pointer to receive JSON length
//
// Returns:
//   - 0 on success
//   - GLSLPATCH_ERR_REJECTED if the shader could not be patched; the JSON
//     result carries the error
//   - another non-zero error code on failure
//
//export glslpatch_patch
func glslpatch_patch(
	source *C.char, source_len C.int,
	options_json *C.char, options_len C.int,
	out_code **C.char, out_code_len *C.int,
	out_json **C.char, out_json_len *C.int,
) C.int {
	if source == nil || options_json == nil || out_code == nil || out_code_len == nil {
		return GLSLPATCH_ERR_NULL_INPUT
	}

	goSource := C.GoStringN(source, source_len)

	var opts api.PatchOptions
	if err := json.Unmarshal([]byte(C.GoStringN(options_json, options_len)), &opts); err != nil {
		return GLSLPATCH_ERR_JSON_DECODE
	}

	result := api.Patch(goSource, opts)

	*out_code = C.CString(result.Code)
	*out_code_len = C.int(len(result.Code))

	if out_json != nil && out_json_len != nil {
		jsonBytes, err := json.Marshal(result)
		if err != nil {
			return GLSLPATCH_ERR_JSON_ENCODE
		}
		*out_json = C.CString(string(jsonBytes))
		*out_json_len = C.int(len(jsonBytes))
	}

	if result.Error != nil {
		return GLSLPATCH_ERR_REJECTED
	}
	return GLSLPATCH_OK
}

// glslpatch_reflect reflects GLSL source and returns JSON.
//
// Parameters:
//   - source: pointer to GLSL source code (UTF-8)
//   - source_len: length of source in bytes
//   - out_json: pointer to receive JSON result (caller must free with glslpatch_free)
//   - out_len: pointer to receive JSON length
//
//export glslpatch_reflect
func glslpatch_reflect(source *C.char, source_len C.int, out_json **C.char, out_len *C.int) C.int {
	if source == nil || out_json == nil || out_len == nil {
		return GLSLPATCH_ERR_NULL_INPUT
	}

	result := api.Reflect(C.GoStringN(source, source_len))

	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return GLSLPATCH_ERR_JSON_ENCODE
	}

	*out_json = C.CString(string(jsonBytes))
	*out_len = C.int(len(jsonBytes))
	return GLSLPATCH_OK
}

// glslpatch_free frees memory allocated by glslpatch functions.
//
//export glslpatch_free
func glslpatch_free(ptr *C.char) {
	if ptr != nil {
		C.free(unsafe.Pointer(ptr))
	}
}

var versionString = C.CString(api.Version)

// glslpatch_version returns the library version string.
// The returned pointer is static and must NOT be freed.
//
//export glslpatch_version
func glslpatch_version() *C.char {
	return versionString
}

// Required for c-archive build mode
func main() {}
