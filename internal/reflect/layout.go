package reflect

import (
	"strconv"
	"strings"

	"github.com/HugoDaniel/glslpatch/internal/ast"
)

// LayoutComputer computes memory layouts for GLSL types declared in one
// tree.
type LayoutComputer struct {
	tree        *ast.Tree
	structs     map[string]ast.NodeID // struct name -> StructSpec
	constants   map[string]int
	structCache map[string]*StructLayout
}

// NewLayoutComputer creates a layout computer for a tree. It indexes the
// named top-level structs and the integer constants usable as array sizes.
func NewLayoutComputer(tree *ast.Tree) *LayoutComputer {
	lc := &LayoutComputer{
		tree:        tree,
		structs:     make(map[string]ast.NodeID),
		constants:   make(map[string]int),
		structCache: make(map[string]*StructLayout),
	}
	for _, id := range tree.TopLevel() {
		if tree.Kind(id) != ast.KindDeclaration {
			continue
		}
		ts := tree.DeclType(id)
		if spec := tree.Child(ts, 0); ts.IsValid() && tree.Kind(spec) == ast.KindStructSpec && tree.Text(spec) != "" {
			lc.structs[tree.Text(spec)] = spec
		}
		if !tree.HasQualifier(id, "const") {
			continue
		}
		for _, d := range tree.Declarators(id) {
			children := tree.Children(d)
			if v, ok := tree.IntLiteralValue(children[len(children)-1]); ok && len(children) > 1 {
				lc.constants[tree.Text(children[0])] = v
			}
		}
	}
	return lc
}

// StructNames returns the names of the indexed structs.
func (lc *LayoutComputer) StructNames() []string {
	names := make([]string, 0, len(lc.structs))
	for name := range lc.structs {
		names = append(names, name)
	}
	return names
}

// ComputeTypeLayout computes the layout of the type ts with the array
// dimensions dims applied, outermost first.
func (lc *LayoutComputer) ComputeTypeLayout(ts ast.NodeID, dims []ast.NodeID, packing Packing) TypeLayout {
	layout := lc.baseLayout(ts, packing)
	if layout.Alignment == 0 {
		return TypeLayout{}
	}
	for i := len(dims) - 1; i >= 0; i-- {
		count := lc.evaluateConstExpr(lc.tree.Child(dims[i], 0))
		if count < 0 {
			// Runtime-sized arrays have unknown size
			count = 0
		}
		layout = computeArrayLayout(layout, count, packing)
	}
	return layout
}

func (lc *LayoutComputer) baseLayout(ts ast.NodeID, packing Packing) TypeLayout {
	if spec := lc.tree.Child(ts, 0); lc.tree.Kind(spec) == ast.KindStructSpec {
		s := lc.computeStructLayout(spec, packing)
		return TypeLayout{Size: s.Size, Alignment: s.Alignment}
	}
	name := lc.tree.Text(ts)
	if layout, ok := primitiveLayout(name, packing); ok {
		return layout
	}
	if s := lc.GetStructLayout(name, packing); s != nil {
		return TypeLayout{Size: s.Size, Alignment: s.Alignment}
	}
	// Opaque types have no host-addressable layout
	return TypeLayout{}
}

// typeDims returns the array specifiers of a type followed by those of a
// declarator, outermost first.
func (lc *LayoutComputer) typeDims(ts, declarator ast.NodeID) []ast.NodeID {
	var dims []ast.NodeID
	if declarator.IsValid() {
		for _, c := range lc.tree.Children(declarator)[1:] {
			if lc.tree.Kind(c) == ast.KindArraySpec {
				dims = append(dims, c)
			}
		}
	}
	for _, c := range lc.tree.Children(ts) {
		if lc.tree.Kind(c) == ast.KindArraySpec {
			dims = append(dims, c)
		}
	}
	return dims
}

// typeToString prints a type with its array dimensions, e.g. "vec4[3]".
func (lc *LayoutComputer) typeToString(ts ast.NodeID, dims []ast.NodeID) string {
	var sb strings.Builder
	sb.WriteString(lc.tree.Text(ts))
	for _, d := range dims {
		sb.WriteByte('[')
		if n := lc.evaluateConstExpr(lc.tree.Child(d, 0)); n >= 0 {
			sb.WriteString(strconv.Itoa(n))
		}
		sb.WriteByte(']')
	}
	return sb.String()
}

// evaluateConstExpr attempts to evaluate a constant expression to an integer.
// Returns -1 if the expression cannot be evaluated.
func (lc *LayoutComputer) evaluateConstExpr(id ast.NodeID) int {
	if !id.IsValid() {
		return -1
	}
	switch lc.tree.Kind(id) {
	case ast.KindLiteral:
		if v, ok := lc.tree.IntLiteralValue(id); ok {
			return v
		}
	case ast.KindIdent:
		if v, ok := lc.constants[lc.tree.Text(id)]; ok {
			return v
		}
	}
	return -1
}

// GetStructLayout returns the layout of a named struct, or nil if name is
// not a struct.
func (lc *LayoutComputer) GetStructLayout(name string, packing Packing) *StructLayout {
	spec, ok := lc.structs[name]
	if !ok {
		return nil
	}
	return lc.computeStructLayout(spec, packing)
}

// computeStructLayout computes the memory layout of a struct or block
// whose member declarations are the Declaration children of spec.
func (lc *LayoutComputer) computeStructLayout(spec ast.NodeID, packing Packing) *StructLayout {
	key := lc.tree.Text(spec) + "/" + string(packing)
	named := lc.tree.Kind(spec) == ast.KindStructSpec && lc.tree.Text(spec) != ""
	if named {
		if cached, ok := lc.structCache[key]; ok {
			return cached
		}
	}

	layout := &StructLayout{Fields: []FieldInfo{}}
	offset, maxAlign := 0, 0
	for _, member := range lc.tree.Children(spec) {
		if lc.tree.Kind(member) != ast.KindDeclaration {
			continue
		}
		ts := lc.tree.DeclType(member)
		for _, d := range lc.tree.Declarators(member) {
			dims := lc.typeDims(ts, d)
			tl := lc.ComputeTypeLayout(ts, dims, packing)
			offset = roundUp(offset, tl.Alignment)
			field := FieldInfo{
				Name:      lc.tree.Text(lc.tree.Child(d, 0)),
				Type:      lc.typeToString(ts, dims),
				Offset:    offset,
				Size:      tl.Size,
				Alignment: tl.Alignment,
			}
			if inner := lc.tree.Child(ts, 0); lc.tree.Kind(inner) == ast.KindStructSpec {
				field.Layout = lc.computeStructLayout(inner, packing)
			} else {
				field.Layout = lc.GetStructLayout(lc.tree.Text(ts), packing)
			}
			layout.Fields = append(layout.Fields, field)
			offset += tl.Size
			maxAlign = max(maxAlign, tl.Alignment)
		}
	}

	if packing == Std140 {
		maxAlign = roundUp(maxAlign, 16)
	}
	layout.Alignment = maxAlign
	layout.Size = roundUp(offset, maxAlign)
	if named {
		lc.structCache[key] = layout
	}
	return layout
}
