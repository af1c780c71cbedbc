// Package reflect provides GLSL shader interface reflection.
// It extracts stage inputs and outputs, uniforms, interface blocks and
// struct layouts from a parsed or patched shader.
package reflect

import (
	"github.com/HugoDaniel/glslpatch/internal/ast"
	"github.com/HugoDaniel/glslpatch/internal/parser"
)

// Interface contains all reflection information for a shader stage.
type Interface struct {
	Version  string                  `json:"version"`
	Profile  string                  `json:"profile,omitempty"`
	Inputs   []Variable              `json:"inputs"`
	Outputs  []Variable              `json:"outputs"`
	Uniforms []Variable              `json:"uniforms"`
	Blocks   []Block                 `json:"blocks"`
	Structs  map[string]StructLayout `json:"structs"`
	HasMain  bool                    `json:"hasMain"`
	Errors   []string                `json:"errors,omitempty"`
}

// Variable describes a single global in, out or uniform variable.
type Variable struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Location      *int   `json:"location,omitempty"`
	Binding       *int   `json:"binding,omitempty"`
	Interpolation string `json:"interpolation,omitempty"`
}

// Block describes an interface block.
type Block struct {
	Name     string        `json:"name"`
	Instance string        `json:"instance,omitempty"`
	Storage  string        `json:"storage"` // "uniform", "buffer", "in", "out"
	Packing  Packing       `json:"packing,omitempty"`
	Binding  *int          `json:"binding,omitempty"`
	Layout   *StructLayout `json:"layout"` // null for in/out blocks
}

// StructLayout describes the memory layout of a struct.
type StructLayout struct {
	Size      int         `json:"size"`
	Alignment int         `json:"alignment"`
	Fields    []FieldInfo `json:"fields"`
}

// FieldInfo describes a single struct field.
type FieldInfo struct {
	Name      string        `json:"name"`
	Type      string        `json:"type"`
	Offset    int           `json:"offset"`
	Size      int           `json:"size"`
	Alignment int           `json:"alignment"`
	Layout    *StructLayout `json:"layout,omitempty"` // for nested structs
}

var interpolations = []string{"flat", "smooth", "noperspective"}

// ReflectSource parses source and reflects it.
func ReflectSource(source string) Interface {
	tree, errs := parser.Parse(source)
	if len(errs) > 0 {
		errors := make([]string, len(errs))
		for i, e := range errs {
			errors[i] = e.Error()
		}
		return Interface{
			Inputs:   []Variable{},
			Outputs:  []Variable{},
			Uniforms: []Variable{},
			Blocks:   []Block{},
			Structs:  make(map[string]StructLayout),
			Errors:   errors,
		}
	}
	return Reflect(tree)
}

// Reflect extracts the interface of a parsed tree. Struct layouts are
// reported with std140 packing.
func Reflect(tree *ast.Tree) Interface {
	result := Interface{
		Inputs:   []Variable{},
		Outputs:  []Variable{},
		Uniforms: []Variable{},
		Blocks:   []Block{},
		Structs:  make(map[string]StructLayout),
	}

	lc := NewLayoutComputer(tree)
	for _, name := range lc.StructNames() {
		result.Structs[name] = *lc.GetStructLayout(name, Std140)
	}

	for _, id := range tree.TopLevel() {
		switch tree.Kind(id) {
		case ast.KindVersion:
			result.Version, result.Profile = tree.Text(id), tree.Node(id).Aux
		case ast.KindFunctionDef:
			if tree.Text(tree.Child(tree.Child(id, 0), 1)) == "main" {
				result.HasMain = true
			}
		case ast.KindDeclaration:
			if b := tree.Child(id, 1); tree.Kind(b) == ast.KindBlock {
				if block, ok := extractBlock(tree, id, b, lc); ok {
					result.Blocks = append(result.Blocks, block)
				}
				continue
			}
			storage := storageOf(tree, id)
			for _, v := range extractVariables(tree, id, lc) {
				switch storage {
				case "in":
					result.Inputs = append(result.Inputs, v)
				case "out":
					result.Outputs = append(result.Outputs, v)
				case "uniform":
					result.Uniforms = append(result.Uniforms, v)
				}
			}
		}
	}
	return result
}

// storageOf returns the interface storage qualifier of a declaration, or "".
func storageOf(tree *ast.Tree, decl ast.NodeID) string {
	for _, q := range tree.Qualifiers(decl) {
		switch q {
		case "in", "out", "uniform", "buffer":
			return q
		}
	}
	return ""
}

func extractVariables(tree *ast.Tree, decl ast.NodeID, lc *LayoutComputer) []Variable {
	ts := tree.DeclType(decl)
	if !ts.IsValid() {
		return nil
	}
	var vars []Variable
	for _, d := range tree.Declarators(decl) {
		v := Variable{
			Name:     tree.Text(tree.Child(d, 0)),
			Type:     lc.typeToString(ts, lc.typeDims(ts, d)),
			Location: layoutInt(tree, decl, "location"),
			Binding:  layoutInt(tree, decl, "binding"),
		}
		for _, q := range interpolations {
			if tree.HasQualifier(decl, q) {
				v.Interpolation = q
			}
		}
		vars = append(vars, v)
	}
	return vars
}

func extractBlock(tree *ast.Tree, decl, block ast.NodeID, lc *LayoutComputer) (Block, bool) {
	storage := storageOf(tree, decl)
	if storage == "" {
		return Block{}, false
	}
	info := Block{
		Name:    tree.Text(block),
		Storage: storage,
		Binding: layoutInt(tree, decl, "binding"),
	}
	for _, c := range tree.Children(block) {
		if tree.Kind(c) == ast.KindDeclarator {
			info.Instance = tree.Text(tree.Child(c, 0))
		}
	}
	if storage == "uniform" || storage == "buffer" {
		// shared and packed are reported as std140
		info.Packing = Std140
		if _, ok := tree.LayoutParam(decl, string(Std430)); ok {
			info.Packing = Std430
		}
		info.Layout = lc.computeStructLayout(block, info.Packing)
	}
	return info, true
}

// layoutInt returns the integer value of a layout parameter, or nil.
func layoutInt(tree *ast.Tree, decl ast.NodeID, name string) *int {
	id, ok := tree.LayoutParam(decl, name)
	if !ok {
		return nil
	}
	v, ok := tree.IntLiteralValue(id)
	if !ok {
		return nil
	}
	return &v
}
