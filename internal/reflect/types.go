package reflect

import "strings"

// TypeLayout holds size and alignment information for a GLSL type.
type TypeLayout struct {
	Size      int
	Alignment int
	Stride    int // For arrays only (0 otherwise)
}

// Packing is the memory layout rule of an interface block.
type Packing string

const (
	Std140 Packing = "std140"
	Std430 Packing = "std430"
)

// scalarSizes are the byte sizes of the basic scalar types.
var scalarSizes = map[string]int{
	"bool":   4,
	"int":    4,
	"uint":   4,
	"float":  4,
	"double": 8,
}

// vectorPrefixes maps the vector type prefix to its element type.
var vectorPrefixes = map[string]string{
	"vec":  "float",
	"ivec": "int",
	"uvec": "uint",
	"bvec": "bool",
	"dvec": "double",
}

// primitiveLayout returns the layout of a scalar, vector or matrix type
// name. Matrices follow the packing's column rules.
func primitiveLayout(name string, packing Packing) (TypeLayout, bool) {
	if size, ok := scalarSizes[name]; ok {
		return TypeLayout{Size: size, Alignment: size}, true
	}
	for prefix, elem := range vectorPrefixes {
		if n, ok := dimension(name, prefix); ok {
			return computeVecLayout(n, scalarSizes[elem]), true
		}
	}
	for prefix, elem := range map[string]string{"mat": "float", "dmat": "double"} {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok {
			continue
		}
		cols, rows, ok := matrixShape(rest)
		if !ok {
			continue
		}
		return computeMatLayout(cols, rows, scalarSizes[elem], packing), true
	}
	return TypeLayout{}, false
}

// dimension parses the component count of a vector name such as "ivec3".
func dimension(name, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok || len(rest) != 1 || rest[0] < '2' || rest[0] > '4' {
		return 0, false
	}
	return int(rest[0] - '0'), true
}

// matrixShape parses "4" or "3x2" into columns and rows.
func matrixShape(s string) (cols, rows int, ok bool) {
	switch len(s) {
	case 1:
		if s[0] < '2' || s[0] > '4' {
			return 0, 0, false
		}
		n := int(s[0] - '0')
		return n, n, true
	case 3:
		if s[1] != 'x' || s[0] < '2' || s[0] > '4' || s[2] < '2' || s[2] > '4' {
			return 0, 0, false
		}
		return int(s[0] - '0'), int(s[2] - '0'), true
	}
	return 0, 0, false
}

// computeVecLayout computes the layout for a vector type.
// For vec2: align = 2*N, size = 2*N
// For vec3: align = 4*N, size = 3*N
// For vec4: align = 4*N, size = 4*N
func computeVecLayout(size int, elemSize int) TypeLayout {
	switch size {
	case 2:
		return TypeLayout{Size: elemSize * 2, Alignment: elemSize * 2}
	case 3:
		// vec3 has alignment of vec4 but size of 3 elements
		return TypeLayout{Size: elemSize * 3, Alignment: elemSize * 4}
	case 4:
		return TypeLayout{Size: elemSize * 4, Alignment: elemSize * 4}
	default:
		return TypeLayout{}
	}
}

// computeMatLayout computes the layout for a column-major matrix, stored as
// an array of cols column vectors with rows components each.
func computeMatLayout(cols, rows int, elemSize int, packing Packing) TypeLayout {
	column := computeArrayLayout(computeVecLayout(rows, elemSize), cols, packing)
	column.Stride = 0
	return column
}

// computeArrayLayout computes the layout of count elements of elem. Under
// std140 the element alignment and stride are rounded up to a vec4.
func computeArrayLayout(elem TypeLayout, count int, packing Packing) TypeLayout {
	align := elem.Alignment
	if packing == Std140 {
		align = roundUp(align, 16)
	}
	stride := roundUp(elem.Size, align)
	return TypeLayout{Size: stride * count, Alignment: align, Stride: stride}
}

// roundUp rounds x up to the nearest multiple of align.
func roundUp(x, align int) int {
	if align == 0 {
		return x
	}
	return ((x + align - 1) / align) * align
}
