package transform

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/HugoDaniel/glslpatch/internal/ast"
	"github.com/HugoDaniel/glslpatch/internal/builtins"
	"github.com/HugoDaniel/glslpatch/internal/cache"
	"github.com/HugoDaniel/glslpatch/internal/diagnostic"
	"github.com/HugoDaniel/glslpatch/internal/renamer"
)

// ----------------------------------------------------------------------------
// Injection
// ----------------------------------------------------------------------------

// InjectionPoint is an anchor where external declarations are inserted.
type InjectionPoint uint8

const (
	// BeforeDeclarations is right after the version and directive lines,
	// following anything injected there earlier in the same job.
	BeforeDeclarations InjectionPoint = iota

	// BeforeFunctions is before the first function, or the end when there
	// is none.
	BeforeFunctions

	// End appends.
	End

	injectionPointCount
)

var injectionPointNames = [...]string{
	BeforeDeclarations: "before-declarations",
	BeforeFunctions:    "before-functions",
	End:                "end",
}

func (p InjectionPoint) String() string {
	if int(p) < len(injectionPointNames) {
		return injectionPointNames[p]
	}
	return fmt.Sprintf("point(%d)", p)
}

// Inject inserts the external declarations of text at point. The text is
// parsed once per (pass, Parameters, name) and cloned afterwards. A
// declaration whose names are already declared identically is skipped; a
// conflicting declaration is a SemanticError.
func (j *Job) Inject(point InjectionPoint, name, text string) error {
	key := cache.Key{Pass: j.pass, Signature: j.Params.Signature(), Name: name}
	frag, err := j.ctx.fragment(key, text)
	if err != nil {
		return err
	}

	for _, src := range frag.Children(frag.Root()) {
		skip, err := j.checkInjected(frag, src)
		if err != nil {
			return err
		}
		if skip {
			continue
		}
		j.Tree.Insert(j.Tree.Root(), j.insertIndex(point), j.Tree.Import(frag, src))
		if point == BeforeDeclarations {
			j.injected[BeforeDeclarations]++
		}
		j.Stats.Injected++
	}
	return nil
}

// checkInjected compares the names declared by src against the tree.
func (j *Job) checkInjected(frag *ast.Tree, src ast.NodeID) (bool, error) {
	names := frag.DeclaredNames(src)
	if len(names) == 0 {
		return false, nil
	}
	existing := 0
	for _, n := range names {
		decl := j.Declaration(n)
		if !decl.IsValid() {
			continue
		}
		if !ast.Equal(j.Tree, decl, frag, src) {
			return false, j.Errorf(diagnostic.KindInjection, decl,
				"declaration of %q conflicts with a declaration the patcher needs", n).WithConstruct(n)
		}
		existing++
	}
	return existing == len(names), nil
}

func (j *Job) insertIndex(point InjectionPoint) int {
	top := j.Tree.TopLevel()
	switch point {
	case BeforeDeclarations:
		i := 0
		for i < len(top) {
			k := j.Tree.Kind(top[i])
			if k != ast.KindVersion && k != ast.KindDirective {
				break
			}
			i++
		}
		i += j.injected[BeforeDeclarations]
		if i > len(top) {
			i = len(top)
		}
		return i
	case BeforeFunctions:
		for i, id := range top {
			if k := j.Tree.Kind(id); k == ast.KindFunctionDef || k == ast.KindPrototype {
				return i
			}
		}
	}
	return len(top)
}

// ----------------------------------------------------------------------------
// Main Wrapper
// ----------------------------------------------------------------------------

// WrapMain renames the single main function to iris_main_N and appends a new
// main that runs prologue, calls it, then runs epilogue. Wrappers chain: a
// second call wraps the main created by the first.
func (j *Job) WrapMain(prologue, epilogue string) error {
	defs := j.Tree.FunctionDefinitions("main")
	switch len(defs) {
	case 0:
		return j.Errorf(diagnostic.KindMissingMain, ast.NoNode, "shader has no main function")
	case 1:
	default:
		return j.Errorf(diagnostic.KindMissingMain, defs[1], "main is defined %d times", len(defs))
	}

	inner := renamer.Fresh(j.Tree, builtins.ReservedPrefix+"main_")
	j.Stats.Renamed += renamer.Rename(j.Tree, "main", inner, renamer.All)

	var sb strings.Builder
	sb.WriteString("void main() {\n")
	if prologue != "" {
		sb.WriteString(prologue)
		sb.WriteByte('\n')
	}
	sb.WriteString(inner + "();\n")
	if epilogue != "" {
		sb.WriteString(epilogue)
		sb.WriteByte('\n')
	}
	sb.WriteString("}\n")
	text := sb.String()

	key := cache.Key{
		Pass:      j.pass,
		Signature: j.Params.Signature(),
		Name:      fmt.Sprintf("main/%s/%016x", inner, xxh3.HashString(text)),
	}
	frag, err := j.ctx.fragment(key, text)
	if err != nil {
		return err
	}
	for _, src := range frag.Children(frag.Root()) {
		j.Tree.Append(j.Tree.Root(), j.Tree.Import(frag, src))
	}
	j.wraps++
	j.Flags |= FlagMainWrapped
	log.Debugf("wrapped main as %s (depth %d)", inner, j.wraps)
	return nil
}
