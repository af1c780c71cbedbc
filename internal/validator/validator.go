// Package validator checks patched GLSL for constructs a core-profile
// compiler would reject.
//
// The validator does not type check. It looks for legacy residue left
// behind by the passes (fixed-function builtins, legacy sampler functions,
// attribute and varying qualifiers), a missing core profile, a wrong number
// of main functions and colliding output locations.
package validator

import (
	"fmt"
	"sort"

	"github.com/HugoDaniel/glslpatch/internal/ast"
	"github.com/HugoDaniel/glslpatch/internal/builtins"
	"github.com/HugoDaniel/glslpatch/internal/diagnostic"
)

// Options controls validation behavior.
type Options struct {
	// StrictMode treats warnings as errors.
	StrictMode bool
}

// Result contains validation results.
type Result struct {
	// Valid is true if no errors were found.
	Valid bool
	// Diagnostics contains all validation messages.
	Diagnostics *diagnostic.DiagnosticList
}

// Validator performs validation on one patched tree.
type Validator struct {
	tree    *ast.Tree
	diags   *diagnostic.DiagnosticList
	options Options
}

// Validate checks tree, whose node positions refer to source. Nodes
// synthesized by the passes have no position and are reported without
// one.
func Validate(tree *ast.Tree, source string, options Options) *Result {
	v := &Validator{
		tree:    tree,
		diags:   diagnostic.NewDiagnosticList(source),
		options: options,
	}

	v.validateVersion()
	v.validateLegacyVariables()
	v.validateLegacyFunctions()
	v.validateQualifiers()
	v.validateMain()
	v.validateOutputLocations()

	return &Result{
		Valid:       !v.diags.HasErrors(),
		Diagnostics: v.diags,
	}
}

func (v *Validator) report(severity diagnostic.Severity, id ast.NodeID, code diagnostic.Code, format string, args ...any) {
	if v.options.StrictMode && severity == diagnostic.Warning {
		severity = diagnostic.Error
	}
	pos := -1
	if id.IsValid() {
		pos = v.tree.Node(id).Pos
	}
	v.diags.Add(diagnostic.Diagnostic{
		Severity: severity,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Pos:      v.diags.MakePosition(pos),
	})
}

// ----------------------------------------------------------------------------
// Checks
// ----------------------------------------------------------------------------

func (v *Validator) validateVersion() {
	for _, id := range v.tree.TopLevel() {
		if v.tree.Kind(id) != ast.KindVersion {
			continue
		}
		if profile := v.tree.Node(id).Aux; profile != "core" {
			v.report(diagnostic.Error, id, diagnostic.CodeProfile,
				"#version %s %s is not a core profile", v.tree.Text(id), profile)
		}
		return
	}
	v.report(diagnostic.Error, ast.NoNode, diagnostic.CodeProfile, "missing #version directive")
}

// validateLegacyVariables reports the first reference to each removed
// fixed-function builtin.
func (v *Validator) validateLegacyVariables() {
	for _, name := range v.tree.NamesWithPrefix("gl_") {
		if !builtins.LegacyVariables[name] {
			continue
		}
		occ := v.tree.Occurrences(name)
		v.report(diagnostic.Warning, occ[0], diagnostic.CodeLegacyBuiltin,
			"%s is not available in the core profile (%d references)", name, len(occ))
	}
	if occ := v.tree.Occurrences("ftransform"); len(occ) > 0 {
		v.report(diagnostic.Warning, occ[0], diagnostic.CodeLegacyBuiltin,
			"ftransform is not available in the core profile")
	}
}

func (v *Validator) validateLegacyFunctions() {
	var names []string
	for name := range builtins.TextureFunctionRenames {
		names = append(names, name)
	}
	for name := range builtins.ShadowFunctionRenames {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, id := range v.tree.Occurrences(name) {
			if v.tree.IsCallTarget(id) {
				v.report(diagnostic.Warning, id, diagnostic.CodeLegacyFunction,
					"%s was removed from the core profile", name)
				break
			}
		}
	}
}

func (v *Validator) validateQualifiers() {
	v.tree.Walk(v.tree.Root(), func(id ast.NodeID) bool {
		if v.tree.Kind(id) != ast.KindQualifier {
			return true
		}
		switch q := v.tree.Text(id); q {
		case "attribute", "varying":
			v.report(diagnostic.Warning, id, diagnostic.CodeLegacyQualifier,
				"the %s qualifier was removed from the core profile", q)
		}
		return false
	})
}

func (v *Validator) validateMain() {
	switch defs := v.tree.FunctionDefinitions("main"); len(defs) {
	case 1:
	case 0:
		v.report(diagnostic.Error, ast.NoNode, diagnostic.CodeMainCount, "shader does not define main")
	default:
		v.report(diagnostic.Error, defs[1], diagnostic.CodeMainCount, "main is defined %d times", len(defs))
	}
}

func (v *Validator) validateOutputLocations() {
	seen := make(map[int]string)
	for _, id := range v.tree.TopLevel() {
		if v.tree.Kind(id) != ast.KindDeclaration || !v.tree.HasQualifier(id, "out") {
			continue
		}
		loc, ok := v.tree.LayoutParam(id, "location")
		if !ok {
			continue
		}
		n, ok := v.tree.IntLiteralValue(loc)
		if !ok {
			continue
		}
		for _, name := range v.tree.DeclaredNames(id) {
			if prev, dup := seen[n]; dup {
				v.report(diagnostic.Error, id, diagnostic.CodeDuplicateLocation,
					"outputs %s and %s share location %d", prev, name, n)
				continue
			}
			seen[n] = name
		}
	}
}
